// Package contracts binds the auction and token contracts to their ABIs
// and the chain gateway. Bindings pack method calls, decode outputs, and
// route reads through eth_call and writes through node-signed
// transactions.
package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/ToniyaSundaram/raiden-token/internal/chain"
	"github.com/ToniyaSundaram/raiden-token/internal/ethrpc"
)

// BoundContract ties an on-chain address to its ABI and the gateway used
// to reach it.
type BoundContract struct {
	addr common.Address
	abi  abi.ABI
	gw   chain.Gateway
}

// Bind creates a binding for a deployed contract.
func Bind(gw chain.Gateway, contractABI abi.ABI, addr common.Address) *BoundContract {
	return &BoundContract{addr: addr, abi: contractABI, gw: gw}
}

// Address returns the bound contract address.
func (c *BoundContract) Address() common.Address {
	return c.addr
}

// call executes a read-only method and returns its decoded outputs.
func (c *BoundContract) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	input, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	out, err := c.gw.Call(ctx, ethrpc.CallMsg{To: c.addr, Data: input})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	vals, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return vals, nil
}

// callUint executes a read-only method with a single uint256 output.
func (c *BoundContract) callUint(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	vals, err := c.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(vals) != 1 {
		return nil, fmt.Errorf("%s returned %d values, want 1", method, len(vals))
	}
	out, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s returned %T, want *big.Int", method, vals[0])
	}
	return out, nil
}

// transact submits a state-changing method call from the given account.
// A positive value rides along as the transaction's wei amount.
func (c *BoundContract) transact(ctx context.Context, from common.Address, value *big.Int, method string, args ...interface{}) (common.Hash, error) {
	input, err := c.abi.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack %s: %w", method, err)
	}

	to := c.addr
	tx := ethrpc.TxArgs{From: from, To: &to, Data: input}
	if value != nil && value.Sign() > 0 {
		v := hexutil.Big(*value)
		tx.Value = &v
	}

	hash, err := c.gw.Transact(ctx, tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("transact %s: %w", method, err)
	}
	return hash, nil
}
