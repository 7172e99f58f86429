// Package ethrpc provides a JSON-RPC 2.0 client for Ethereum nodes.
//
// The client speaks to node-managed accounts: transactions are submitted
// with eth_sendTransaction and signed by the node, so no key material ever
// passes through this process. Read-only calls are retried with exponential
// backoff; state-changing calls (eth_sendTransaction, personal_newAccount)
// are sent exactly once because a retried submit could land twice.
package ethrpc

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Client defines the Ethereum RPC HTTP interface.
type Client interface {
	// ClientVersion returns the node's software identifier.
	ClientVersion(ctx context.Context) (string, error)

	// NetVersion returns the network ID as a decimal string.
	NetVersion(ctx context.Context) (string, error)

	// BlockNumber returns the latest block number.
	BlockNumber(ctx context.Context) (uint64, error)

	// Accounts lists the accounts managed by the node.
	Accounts(ctx context.Context) ([]common.Address, error)

	// Balance returns the wei balance of an address at the latest block.
	Balance(ctx context.Context, addr common.Address) (*big.Int, error)

	// NewAccount asks the node to create a managed account.
	NewAccount(ctx context.Context, passphrase string) (common.Address, error)

	// UnlockAccount unlocks a node-managed account for durationSec seconds.
	UnlockAccount(ctx context.Context, addr common.Address, passphrase string, durationSec uint64) (bool, error)

	// SendTransaction submits a transaction signed by the node.
	SendTransaction(ctx context.Context, tx TxArgs) (common.Hash, error)

	// Call executes a read-only message against the latest block.
	Call(ctx context.Context, msg CallMsg) ([]byte, error)

	// TransactionReceipt retrieves the receipt for a mined transaction.
	// Returns nil if the transaction is not yet mined.
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*Receipt, error)

	// TransactionByHash retrieves a submitted transaction. Returns nil if
	// the node does not know the hash.
	TransactionByHash(ctx context.Context, txHash common.Hash) (*Transaction, error)
}

// TxArgs are the arguments for eth_sendTransaction. A nil To deploys a
// contract from Data.
type TxArgs struct {
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to,omitempty"`
	Gas      *hexutil.Uint64 `json:"gas,omitempty"`
	GasPrice *hexutil.Big    `json:"gasPrice,omitempty"`
	Value    *hexutil.Big    `json:"value,omitempty"`
	Data     hexutil.Bytes   `json:"data,omitempty"`
}

// CallMsg are the arguments for eth_call.
type CallMsg struct {
	From *common.Address `json:"from,omitempty"`
	To   common.Address  `json:"to"`
	Data hexutil.Bytes   `json:"data,omitempty"`
}

// Receipt is the mined-transaction receipt returned by
// eth_getTransactionReceipt.
type Receipt struct {
	TransactionHash   common.Hash     `json:"transactionHash"`
	BlockHash         common.Hash     `json:"blockHash"`
	BlockNumber       hexutil.Uint64  `json:"blockNumber"`
	ContractAddress   *common.Address `json:"contractAddress"`
	GasUsed           hexutil.Uint64  `json:"gasUsed"`
	CumulativeGasUsed hexutil.Uint64  `json:"cumulativeGasUsed"`
	Status            *hexutil.Uint64 `json:"status"`
}

// Failed reports whether the receipt carries an explicit failure status.
// Pre-Byzantium chains omit the status field; those receipts never report
// failure here and callers must fall back to their own heuristics.
func (r *Receipt) Failed() bool {
	return r.Status != nil && *r.Status == 0
}

// Transaction is a submitted transaction as returned by
// eth_getTransactionByHash. BlockNumber is nil while pending.
type Transaction struct {
	Hash        common.Hash     `json:"hash"`
	From        common.Address  `json:"from"`
	To          *common.Address `json:"to"`
	Gas         hexutil.Uint64  `json:"gas"`
	GasPrice    *hexutil.Big    `json:"gasPrice"`
	Value       *hexutil.Big    `json:"value"`
	Input       hexutil.Bytes   `json:"input"`
	Nonce       hexutil.Uint64  `json:"nonce"`
	BlockNumber *hexutil.Uint64 `json:"blockNumber"`
}

// Head is a block header delivered by a newHeads subscription.
type Head struct {
	Number     hexutil.Uint64 `json:"number"`
	Hash       common.Hash    `json:"hash"`
	ParentHash common.Hash    `json:"parentHash"`
	Timestamp  hexutil.Uint64 `json:"timestamp"`
	GasLimit   hexutil.Uint64 `json:"gasLimit"`
	GasUsed    hexutil.Uint64 `json:"gasUsed"`
}
