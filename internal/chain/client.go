package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/ToniyaSundaram/raiden-token/internal/ethrpc"
)

// Default receipt polling configuration.
const (
	DefaultPollInterval   = 2 * time.Second
	DefaultReceiptTimeout = 180 * time.Second
)

// Options configures Client.
type Options struct {
	// PollInterval is the delay between receipt polls.
	PollInterval time.Duration
	// ReceiptTimeout bounds how long AwaitReceipt waits for a transaction
	// to be mined.
	ReceiptTimeout time.Duration
	// GasLimit, when non-zero, is attached to every submitted transaction
	// in place of the node's own estimate.
	GasLimit uint64
}

// Client implements Gateway and AccountManager on top of an Ethereum RPC
// client.
type Client struct {
	rpc            ethrpc.Client
	pollInterval   time.Duration
	receiptTimeout time.Duration
	gasLimit       uint64
}

var (
	_ Gateway        = (*Client)(nil)
	_ AccountManager = (*Client)(nil)
)

// NewClient creates a gateway around the RPC client.
func NewClient(rpc ethrpc.Client, opts Options) *Client {
	c := &Client{
		rpc:            rpc,
		pollInterval:   opts.PollInterval,
		receiptTimeout: opts.ReceiptTimeout,
		gasLimit:       opts.GasLimit,
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.receiptTimeout <= 0 {
		c.receiptTimeout = DefaultReceiptTimeout
	}
	return c
}

// Deploy submits a contract-creation transaction and waits for it to be
// mined. Returns the address of the new contract.
func (c *Client) Deploy(ctx context.Context, from common.Address, data []byte, value *big.Int) (common.Address, *ethrpc.Receipt, error) {
	tx := ethrpc.TxArgs{From: from, Data: data}
	c.applyDefaults(&tx)
	if value != nil && value.Sign() > 0 {
		v := hexutil.Big(*value)
		tx.Value = &v
	}

	txHash, err := c.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("submit deployment: %w", err)
	}

	receipt, err := c.AwaitReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, ErrTransactionFailed) {
			return common.Address{}, receipt, fmt.Errorf("%w: %s", ErrDeploymentFailed, txHash.Hex())
		}
		return common.Address{}, receipt, err
	}
	if receipt.ContractAddress == nil {
		return common.Address{}, receipt, fmt.Errorf("%w: receipt for %s names no contract address", ErrDeploymentFailed, txHash.Hex())
	}
	return *receipt.ContractAddress, receipt, nil
}

// Call executes a read-only contract call against the latest block.
func (c *Client) Call(ctx context.Context, msg ethrpc.CallMsg) ([]byte, error) {
	return c.rpc.Call(ctx, msg)
}

// Transact submits a state-changing transaction signed by the node. The
// submit is never retried; the caller owns the decision of what a lost
// transaction means.
func (c *Client) Transact(ctx context.Context, tx ethrpc.TxArgs) (common.Hash, error) {
	c.applyDefaults(&tx)
	hash, err := c.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("submit transaction: %w", err)
	}
	return hash, nil
}

// AwaitReceipt polls until the transaction is mined, then verifies it did
// not fail.
func (c *Client) AwaitReceipt(ctx context.Context, txHash common.Hash) (*ethrpc.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		if waitCtx.Err() != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %s not mined within %s", ErrConfirmationTimeout, txHash.Hex(), c.receiptTimeout)
		}

		receipt, err := c.rpc.TransactionReceipt(waitCtx, txHash)
		if err != nil {
			if waitCtx.Err() != nil {
				continue
			}
			return nil, fmt.Errorf("poll receipt: %w", err)
		}
		if receipt != nil {
			return receipt, c.checkReceipt(ctx, receipt)
		}

		select {
		case <-waitCtx.Done():
		case <-ticker.C:
		}
	}
}

// checkReceipt classifies a mined receipt as success or failure. Receipts
// without a status field come from nodes that predate it; for those, a
// transaction that consumed exactly its gas allowance almost certainly
// threw.
func (c *Client) checkReceipt(ctx context.Context, receipt *ethrpc.Receipt) error {
	if receipt.Status != nil {
		if receipt.Failed() {
			return fmt.Errorf("%w: %s", ErrTransactionFailed, receipt.TransactionHash.Hex())
		}
		return nil
	}

	tx, err := c.rpc.TransactionByHash(ctx, receipt.TransactionHash)
	if err != nil || tx == nil {
		return nil
	}
	if receipt.GasUsed == tx.Gas {
		return fmt.Errorf("%w: %s consumed its entire gas allowance", ErrTransactionFailed, receipt.TransactionHash.Hex())
	}
	return nil
}

// applyDefaults fills in the configured gas limit when the caller left it
// unset.
func (c *Client) applyDefaults(tx *ethrpc.TxArgs) {
	if c.gasLimit > 0 && tx.Gas == nil {
		g := hexutil.Uint64(c.gasLimit)
		tx.Gas = &g
	}
}

// Accounts lists the accounts managed by the node.
func (c *Client) Accounts(ctx context.Context) ([]common.Address, error) {
	return c.rpc.Accounts(ctx)
}

// NewAccount creates a node-managed account behind the passphrase.
func (c *Client) NewAccount(ctx context.Context, passphrase string) (common.Address, error) {
	return c.rpc.NewAccount(ctx, passphrase)
}

// UnlockAccount unlocks a node-managed account for durationSec seconds.
func (c *Client) UnlockAccount(ctx context.Context, addr common.Address, passphrase string, durationSec uint64) (bool, error) {
	return c.rpc.UnlockAccount(ctx, addr, passphrase, durationSec)
}

// Balance returns the wei balance of an address at the latest block.
func (c *Client) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	return c.rpc.Balance(ctx, addr)
}
