package chain

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/ToniyaSundaram/raiden-token/internal/ethrpc"
)

// fakeRPC scripts the RPC surface the gateway touches.
type fakeRPC struct {
	sendTransaction    func(tx ethrpc.TxArgs) (common.Hash, error)
	transactionReceipt func(txHash common.Hash) (*ethrpc.Receipt, error)
	transactionByHash  func(txHash common.Hash) (*ethrpc.Transaction, error)
	accounts           func() ([]common.Address, error)
	balance            func(addr common.Address) (*big.Int, error)
}

var _ ethrpc.Client = (*fakeRPC)(nil)

func (f *fakeRPC) ClientVersion(ctx context.Context) (string, error) { return "fake/v0", nil }
func (f *fakeRPC) NetVersion(ctx context.Context) (string, error)    { return "1337", nil }
func (f *fakeRPC) BlockNumber(ctx context.Context) (uint64, error)   { return 1, nil }

func (f *fakeRPC) Accounts(ctx context.Context) ([]common.Address, error) {
	if f.accounts == nil {
		return nil, nil
	}
	return f.accounts()
}

func (f *fakeRPC) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	if f.balance == nil {
		return big.NewInt(0), nil
	}
	return f.balance(addr)
}

func (f *fakeRPC) NewAccount(ctx context.Context, passphrase string) (common.Address, error) {
	return common.Address{}, nil
}

func (f *fakeRPC) UnlockAccount(ctx context.Context, addr common.Address, passphrase string, durationSec uint64) (bool, error) {
	return true, nil
}

func (f *fakeRPC) SendTransaction(ctx context.Context, tx ethrpc.TxArgs) (common.Hash, error) {
	if f.sendTransaction == nil {
		return common.Hash{}, errors.New("unexpected SendTransaction")
	}
	return f.sendTransaction(tx)
}

func (f *fakeRPC) Call(ctx context.Context, msg ethrpc.CallMsg) ([]byte, error) {
	return nil, errors.New("unexpected Call")
}

func (f *fakeRPC) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethrpc.Receipt, error) {
	if f.transactionReceipt == nil {
		return nil, errors.New("unexpected TransactionReceipt")
	}
	return f.transactionReceipt(txHash)
}

func (f *fakeRPC) TransactionByHash(ctx context.Context, txHash common.Hash) (*ethrpc.Transaction, error) {
	if f.transactionByHash == nil {
		return nil, nil
	}
	return f.transactionByHash(txHash)
}

func successReceipt(txHash common.Hash) *ethrpc.Receipt {
	status := hexutil.Uint64(1)
	return &ethrpc.Receipt{
		TransactionHash: txHash,
		BlockNumber:     42,
		GasUsed:         21000,
		Status:          &status,
	}
}

func fastOptions() Options {
	return Options{
		PollInterval:   time.Millisecond,
		ReceiptTimeout: time.Second,
	}
}

func TestClient_Deploy(t *testing.T) {
	owner := common.HexToAddress("0x90f8bf6a479f320ead074411a4b0e7944ea8c9c1")
	contractAddr := common.HexToAddress("0x5b1869d9a4c187f2eaa108f3062412ecf0526b24")
	txHash := common.HexToHash("0x01")

	rpc := &fakeRPC{
		sendTransaction: func(tx ethrpc.TxArgs) (common.Hash, error) {
			if tx.From != owner {
				t.Errorf("deployment from %s, want %s", tx.From.Hex(), owner.Hex())
			}
			if tx.To != nil {
				t.Error("deployment transaction must not have a to address")
			}
			if len(tx.Data) == 0 {
				t.Error("deployment transaction has no data")
			}
			return txHash, nil
		},
		transactionReceipt: func(h common.Hash) (*ethrpc.Receipt, error) {
			receipt := successReceipt(h)
			receipt.ContractAddress = &contractAddr
			return receipt, nil
		},
	}

	client := NewClient(rpc, fastOptions())

	addr, receipt, err := client.Deploy(context.Background(), owner, []byte{0x60, 0x60}, nil)
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if addr != contractAddr {
		t.Errorf("deployed address %s, want %s", addr.Hex(), contractAddr.Hex())
	}
	if receipt == nil {
		t.Fatal("expected receipt, got nil")
	}
}

func TestClient_Deploy_FailedReceipt(t *testing.T) {
	status := hexutil.Uint64(0)

	rpc := &fakeRPC{
		sendTransaction: func(tx ethrpc.TxArgs) (common.Hash, error) {
			return common.HexToHash("0x01"), nil
		},
		transactionReceipt: func(h common.Hash) (*ethrpc.Receipt, error) {
			return &ethrpc.Receipt{TransactionHash: h, Status: &status}, nil
		},
	}

	client := NewClient(rpc, fastOptions())

	_, _, err := client.Deploy(context.Background(), common.Address{}, []byte{0x60}, nil)
	if !errors.Is(err, ErrDeploymentFailed) {
		t.Errorf("err = %v, want ErrDeploymentFailed", err)
	}
}

func TestClient_AwaitReceipt_PendingThenMined(t *testing.T) {
	var polls atomic.Int32
	txHash := common.HexToHash("0x02")

	rpc := &fakeRPC{
		transactionReceipt: func(h common.Hash) (*ethrpc.Receipt, error) {
			if polls.Add(1) < 3 {
				return nil, nil
			}
			return successReceipt(h), nil
		},
	}

	client := NewClient(rpc, fastOptions())

	receipt, err := client.AwaitReceipt(context.Background(), txHash)
	if err != nil {
		t.Fatalf("AwaitReceipt: %v", err)
	}
	if receipt.TransactionHash != txHash {
		t.Errorf("receipt for %s, want %s", receipt.TransactionHash.Hex(), txHash.Hex())
	}
	if polls.Load() < 3 {
		t.Errorf("expected at least 3 polls, got %d", polls.Load())
	}
}

func TestClient_AwaitReceipt_Timeout(t *testing.T) {
	rpc := &fakeRPC{
		transactionReceipt: func(h common.Hash) (*ethrpc.Receipt, error) {
			return nil, nil
		},
	}

	client := NewClient(rpc, Options{
		PollInterval:   time.Millisecond,
		ReceiptTimeout: 20 * time.Millisecond,
	})

	_, err := client.AwaitReceipt(context.Background(), common.HexToHash("0x03"))
	if !errors.Is(err, ErrConfirmationTimeout) {
		t.Errorf("err = %v, want ErrConfirmationTimeout", err)
	}
}

func TestClient_AwaitReceipt_Cancelled(t *testing.T) {
	rpc := &fakeRPC{
		transactionReceipt: func(h common.Hash) (*ethrpc.Receipt, error) {
			return nil, nil
		},
	}

	client := NewClient(rpc, fastOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.AwaitReceipt(ctx, common.HexToHash("0x04"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestClient_AwaitReceipt_FailedStatus(t *testing.T) {
	status := hexutil.Uint64(0)

	rpc := &fakeRPC{
		transactionReceipt: func(h common.Hash) (*ethrpc.Receipt, error) {
			return &ethrpc.Receipt{TransactionHash: h, Status: &status}, nil
		},
	}

	client := NewClient(rpc, fastOptions())

	receipt, err := client.AwaitReceipt(context.Background(), common.HexToHash("0x05"))
	if !errors.Is(err, ErrTransactionFailed) {
		t.Errorf("err = %v, want ErrTransactionFailed", err)
	}
	if receipt == nil {
		t.Error("failed receipt should still be returned for inspection")
	}
}

func TestClient_AwaitReceipt_GasHeuristic(t *testing.T) {
	// A node without receipt statuses: all-gas-consumed means the
	// transaction threw.
	tests := []struct {
		name     string
		gas      hexutil.Uint64
		gasUsed  hexutil.Uint64
		wantFail bool
	}{
		{"all gas consumed", 90000, 90000, true},
		{"gas left over", 90000, 36411, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rpc := &fakeRPC{
				transactionReceipt: func(h common.Hash) (*ethrpc.Receipt, error) {
					return &ethrpc.Receipt{TransactionHash: h, GasUsed: tt.gasUsed}, nil
				},
				transactionByHash: func(h common.Hash) (*ethrpc.Transaction, error) {
					return &ethrpc.Transaction{Hash: h, Gas: tt.gas}, nil
				},
			}

			client := NewClient(rpc, fastOptions())

			_, err := client.AwaitReceipt(context.Background(), common.HexToHash("0x06"))
			if tt.wantFail && !errors.Is(err, ErrTransactionFailed) {
				t.Errorf("err = %v, want ErrTransactionFailed", err)
			}
			if !tt.wantFail && err != nil {
				t.Errorf("AwaitReceipt: %v", err)
			}
		})
	}
}

func TestClient_Transact_AppliesGasLimit(t *testing.T) {
	var submitted ethrpc.TxArgs

	rpc := &fakeRPC{
		sendTransaction: func(tx ethrpc.TxArgs) (common.Hash, error) {
			submitted = tx
			return common.HexToHash("0x07"), nil
		},
	}

	opts := fastOptions()
	opts.GasLimit = 4_000_000
	client := NewClient(rpc, opts)

	to := common.HexToAddress("0x5b1869d9a4c187f2eaa108f3062412ecf0526b24")
	_, err := client.Transact(context.Background(), ethrpc.TxArgs{
		From: common.HexToAddress("0x90f8bf6a479f320ead074411a4b0e7944ea8c9c1"),
		To:   &to,
	})
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}

	if submitted.Gas == nil || uint64(*submitted.Gas) != 4_000_000 {
		t.Errorf("gas limit not applied: %+v", submitted.Gas)
	}
}

func TestClient_Transact_KeepsCallerGas(t *testing.T) {
	var submitted ethrpc.TxArgs

	rpc := &fakeRPC{
		sendTransaction: func(tx ethrpc.TxArgs) (common.Hash, error) {
			submitted = tx
			return common.HexToHash("0x08"), nil
		},
	}

	opts := fastOptions()
	opts.GasLimit = 4_000_000
	client := NewClient(rpc, opts)

	gas := hexutil.Uint64(100_000)
	_, err := client.Transact(context.Background(), ethrpc.TxArgs{Gas: &gas})
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}

	if submitted.Gas == nil || uint64(*submitted.Gas) != 100_000 {
		t.Errorf("caller gas overridden: %+v", submitted.Gas)
	}
}
