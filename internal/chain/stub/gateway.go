// Package stub provides scripted chain gateway implementations for tests.
package stub

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/ToniyaSundaram/raiden-token/internal/ethrpc"
)

// StubGateway executes deploys, calls, and transactions against scripted
// handlers instead of a live node. The zero value is usable; every deploy
// succeeds with a fresh deterministic address and every transaction is
// mined instantly. Implements chain.Gateway interface.
type StubGateway struct {
	mu sync.Mutex

	// CallHandler services read-only calls. Call fails when unset.
	CallHandler func(msg ethrpc.CallMsg) ([]byte, error)

	// TransactHandler, when set, replaces the default transact behavior.
	// The transaction is still recorded first.
	TransactHandler func(tx ethrpc.TxArgs) (common.Hash, error)

	// DeployErr, when set, fails every Deploy.
	DeployErr error

	// FailedTxs marks transaction hashes whose receipts report failure.
	FailedTxs map[common.Hash]bool

	deployed []common.Address
	deploys  []DeployCall
	txs      []ethrpc.TxArgs
	nextAddr uint64
	nextTx   uint64
}

// DeployCall is one recorded contract-creation request.
type DeployCall struct {
	From  common.Address
	Data  []byte
	Value *big.Int
}

// Deploy records the creation transaction and mines it instantly.
func (g *StubGateway) Deploy(_ context.Context, from common.Address, data []byte, value *big.Int) (common.Address, *ethrpc.Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.DeployErr != nil {
		return common.Address{}, nil, g.DeployErr
	}

	g.deploys = append(g.deploys, DeployCall{From: from, Data: data, Value: value})

	g.nextAddr++
	addr := common.BigToAddress(new(big.Int).SetUint64(0xC0DE0000 + g.nextAddr))
	g.deployed = append(g.deployed, addr)

	g.nextTx++
	txHash := common.BigToHash(new(big.Int).SetUint64(g.nextTx))
	status := hexutil.Uint64(1)
	receipt := &ethrpc.Receipt{
		TransactionHash: txHash,
		BlockNumber:     hexutil.Uint64(g.nextTx),
		ContractAddress: &addr,
		GasUsed:         1_200_000,
		Status:          &status,
	}
	return addr, receipt, nil
}

// Call services a read-only call through CallHandler.
func (g *StubGateway) Call(_ context.Context, msg ethrpc.CallMsg) ([]byte, error) {
	g.mu.Lock()
	handler := g.CallHandler
	g.mu.Unlock()

	if handler == nil {
		return nil, errors.New("stub gateway has no call handler")
	}
	return handler(msg)
}

// Transact records the transaction and returns a deterministic hash.
func (g *StubGateway) Transact(_ context.Context, tx ethrpc.TxArgs) (common.Hash, error) {
	g.mu.Lock()
	g.txs = append(g.txs, tx)
	handler := g.TransactHandler
	g.nextTx++
	txHash := common.BigToHash(new(big.Int).SetUint64(g.nextTx))
	g.mu.Unlock()

	if handler != nil {
		return handler(tx)
	}
	return txHash, nil
}

// AwaitReceipt mines the transaction instantly. Hashes listed in FailedTxs
// produce a failed receipt and an error.
func (g *StubGateway) AwaitReceipt(_ context.Context, txHash common.Hash) (*ethrpc.Receipt, error) {
	g.mu.Lock()
	failed := g.FailedTxs[txHash]
	g.mu.Unlock()

	status := hexutil.Uint64(1)
	if failed {
		status = 0
	}
	receipt := &ethrpc.Receipt{
		TransactionHash: txHash,
		GasUsed:         60_000,
		Status:          &status,
	}
	if failed {
		return receipt, fmt.Errorf("transaction failed: %s", txHash.Hex())
	}
	return receipt, nil
}

// DeployedContracts returns the addresses assigned by Deploy, in order.
func (g *StubGateway) DeployedContracts() []common.Address {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]common.Address, len(g.deployed))
	copy(out, g.deployed)
	return out
}

// DeployCalls returns the recorded contract-creation requests, in order.
func (g *StubGateway) DeployCalls() []DeployCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]DeployCall, len(g.deploys))
	copy(out, g.deploys)
	return out
}

// Transactions returns the recorded state-changing transactions, in order.
func (g *StubGateway) Transactions() []ethrpc.TxArgs {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]ethrpc.TxArgs, len(g.txs))
	copy(out, g.txs)
	return out
}

// StubAccountManager provisions deterministic accounts in memory.
// Implements chain.AccountManager interface.
type StubAccountManager struct {
	mu sync.Mutex

	// Existing is the list returned by Accounts.
	Existing []common.Address

	// Balances maps addresses to wei balances. Missing addresses have a
	// zero balance.
	Balances map[common.Address]*big.Int

	created  []common.Address
	unlocked []common.Address
	nextAcct uint64
}

// Accounts lists the scripted node-managed accounts.
func (m *StubAccountManager) Accounts(_ context.Context) ([]common.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]common.Address, len(m.Existing))
	copy(out, m.Existing)
	return out, nil
}

// NewAccount creates a deterministic fresh account.
func (m *StubAccountManager) NewAccount(_ context.Context, passphrase string) (common.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextAcct++
	addr := common.BigToAddress(new(big.Int).SetUint64(0xB1DE0000 + m.nextAcct))
	m.created = append(m.created, addr)
	return addr, nil
}

// UnlockAccount records the unlock and succeeds.
func (m *StubAccountManager) UnlockAccount(_ context.Context, addr common.Address, passphrase string, durationSec uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unlocked = append(m.unlocked, addr)
	return true, nil
}

// Balance returns the scripted balance, zero when absent.
func (m *StubAccountManager) Balance(_ context.Context, addr common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if bal, ok := m.Balances[addr]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

// Created returns the accounts provisioned through NewAccount, in order.
func (m *StubAccountManager) Created() []common.Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]common.Address, len(m.created))
	copy(out, m.created)
	return out
}

// Unlocked returns the accounts passed to UnlockAccount, in order.
func (m *StubAccountManager) Unlocked() []common.Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]common.Address, len(m.unlocked))
	copy(out, m.unlocked)
	return out
}
