// Package chain wraps the raw Ethereum RPC client in the narrow gateway
// surface the deployer and bid simulation consume: deploy a contract,
// execute a read-only call, submit a state-changing transaction, and await
// its receipt. Account provisioning for bidder wallets lives behind a
// separate interface so tests can script it independently.
package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ToniyaSundaram/raiden-token/internal/ethrpc"
)

// Errors returned by the gateway.
var (
	// ErrConfirmationTimeout indicates a transaction was not mined within
	// the configured receipt timeout.
	ErrConfirmationTimeout = errors.New("transaction confirmation timeout")

	// ErrTransactionFailed indicates a mined transaction threw.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrDeploymentFailed indicates a contract-creation transaction threw
	// or produced no contract address.
	ErrDeploymentFailed = errors.New("contract deployment failed")

	// ErrNoAccounts indicates the node manages no accounts to act as the
	// deployment owner.
	ErrNoAccounts = errors.New("node manages no accounts")
)

// Gateway is the chain access surface for deploying and driving contracts.
type Gateway interface {
	// Deploy submits a contract-creation transaction and waits for it to
	// be mined. Returns the address of the new contract.
	Deploy(ctx context.Context, from common.Address, data []byte, value *big.Int) (common.Address, *ethrpc.Receipt, error)

	// Call executes a read-only contract call against the latest block.
	Call(ctx context.Context, msg ethrpc.CallMsg) ([]byte, error)

	// Transact submits a state-changing transaction signed by the node.
	Transact(ctx context.Context, tx ethrpc.TxArgs) (common.Hash, error)

	// AwaitReceipt polls until the transaction is mined, then verifies it
	// did not fail.
	AwaitReceipt(ctx context.Context, txHash common.Hash) (*ethrpc.Receipt, error)
}

// AccountManager provisions and inspects node-managed accounts.
type AccountManager interface {
	// Accounts lists the accounts managed by the node.
	Accounts(ctx context.Context) ([]common.Address, error)

	// NewAccount creates a node-managed account behind the passphrase.
	NewAccount(ctx context.Context, passphrase string) (common.Address, error)

	// UnlockAccount unlocks a node-managed account for durationSec seconds.
	UnlockAccount(ctx context.Context, addr common.Address, passphrase string, durationSec uint64) (bool, error)

	// Balance returns the wei balance of an address at the latest block.
	Balance(ctx context.Context, addr common.Address) (*big.Int, error)
}
