package contracts

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/ToniyaSundaram/raiden-token/internal/chain/stub"
	"github.com/ToniyaSundaram/raiden-token/internal/ethrpc"
)

func packOutputs(t *testing.T, contractABI abi.ABI, method string, vals ...interface{}) []byte {
	t.Helper()
	out, err := contractABI.Methods[method].Outputs.Pack(vals...)
	if err != nil {
		t.Fatalf("pack %s outputs: %v", method, err)
	}
	return out
}

// dispatch answers read-only calls by method selector.
func dispatch(t *testing.T, contractABI abi.ABI, responses map[string][]byte) func(ethrpc.CallMsg) ([]byte, error) {
	t.Helper()
	return func(msg ethrpc.CallMsg) ([]byte, error) {
		if len(msg.Data) < 4 {
			return nil, fmt.Errorf("call data too short: %x", msg.Data)
		}
		for name, method := range contractABI.Methods {
			if bytes.Equal(method.ID, msg.Data[:4]) {
				resp, ok := responses[name]
				if !ok {
					return nil, fmt.Errorf("no scripted response for %s", name)
				}
				return resp, nil
			}
		}
		return nil, fmt.Errorf("unknown selector %x", msg.Data[:4])
	}
}

func TestDutchAuction_Reads(t *testing.T) {
	reg := loadTestRegistry(t)
	art, err := reg.Get("DutchAuction")
	if err != nil {
		t.Fatalf("Get(DutchAuction): %v", err)
	}

	addr := common.HexToAddress("0x5b1869d9a4c187f2eaa108f3062412ecf0526b24")
	gw := &stub.StubGateway{
		CallHandler: dispatch(t, art.ABI, map[string][]byte{
			"price":                    packOutputs(t, art.ABI, "price", big.NewInt(50000000000000000)),
			"stage":                    packOutputs(t, art.ABI, "stage", uint8(2)),
			"missingFundsToEndAuction": packOutputs(t, art.ABI, "missingFundsToEndAuction", big.NewInt(123456)),
		}),
	}
	auction := NewDutchAuction(gw, art.ABI, addr)

	ctx := context.Background()

	price, err := auction.Price(ctx)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if price.String() != "50000000000000000" {
		t.Errorf("price = %s, want 50000000000000000", price)
	}

	stage, err := auction.Stage(ctx)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if stage != StageStarted {
		t.Errorf("stage = %s, want AuctionStarted", stage)
	}

	ended, err := auction.Ended(ctx)
	if err != nil {
		t.Fatalf("Ended: %v", err)
	}
	if ended {
		t.Error("auction in AuctionStarted stage reported ended")
	}

	missing, err := auction.MissingFundsToEndAuction(ctx)
	if err != nil {
		t.Fatalf("MissingFundsToEndAuction: %v", err)
	}
	if missing.Int64() != 123456 {
		t.Errorf("missing funds = %s, want 123456", missing)
	}
}

func TestDutchAuction_EndedStages(t *testing.T) {
	reg := loadTestRegistry(t)
	art, _ := reg.Get("DutchAuction")

	tests := []struct {
		stage uint8
		want  bool
	}{
		{uint8(StageDeployed), false},
		{uint8(StageSetUp), false},
		{uint8(StageStarted), false},
		{uint8(StageEnded), true},
		{uint8(StageTokensDistributed), true},
	}

	for _, tt := range tests {
		t.Run(AuctionStage(tt.stage).String(), func(t *testing.T) {
			gw := &stub.StubGateway{
				CallHandler: dispatch(t, art.ABI, map[string][]byte{
					"stage": packOutputs(t, art.ABI, "stage", tt.stage),
				}),
			}
			auction := NewDutchAuction(gw, art.ABI, common.Address{})

			ended, err := auction.Ended(context.Background())
			if err != nil {
				t.Fatalf("Ended: %v", err)
			}
			if ended != tt.want {
				t.Errorf("ended = %v, want %v", ended, tt.want)
			}
		})
	}
}

func TestDutchAuction_Bid(t *testing.T) {
	reg := loadTestRegistry(t)
	art, _ := reg.Get("DutchAuction")

	addr := common.HexToAddress("0x5b1869d9a4c187f2eaa108f3062412ecf0526b24")
	bidder := common.HexToAddress("0x22d491bde2303f2f43325b2108d26f1eaba1e32b")

	gw := &stub.StubGateway{}
	auction := NewDutchAuction(gw, art.ABI, addr)

	amount := big.NewInt(50000000000000000)
	txHash, err := auction.Bid(context.Background(), bidder, amount)
	if err != nil {
		t.Fatalf("Bid: %v", err)
	}
	if txHash == (common.Hash{}) {
		t.Error("bid returned zero transaction hash")
	}

	txs := gw.Transactions()
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
	tx := txs[0]
	if tx.From != bidder {
		t.Errorf("bid from %s, want %s", tx.From.Hex(), bidder.Hex())
	}
	if tx.To == nil || *tx.To != addr {
		t.Errorf("bid to %v, want %s", tx.To, addr.Hex())
	}
	if tx.Value == nil || (*big.Int)(tx.Value).Cmp(amount) != 0 {
		t.Errorf("bid value %v, want %s", tx.Value, amount)
	}
	if !bytes.Equal(tx.Data, art.ABI.Methods["bid"].ID) {
		t.Errorf("bid data %x, want bid selector %x", []byte(tx.Data), art.ABI.Methods["bid"].ID)
	}

	if err := auction.AwaitBid(context.Background(), txHash); err != nil {
		t.Errorf("AwaitBid: %v", err)
	}
}

func TestDutchAuction_Setup(t *testing.T) {
	reg := loadTestRegistry(t)
	art, _ := reg.Get("DutchAuction")

	owner := common.HexToAddress("0x90f8bf6a479f320ead074411a4b0e7944ea8c9c1")
	token := common.HexToAddress("0xffcf8fdee72ac11b5c542428b35eef5769c409f0")

	gw := &stub.StubGateway{}
	auction := NewDutchAuction(gw, art.ABI, common.HexToAddress("0x5b1869d9a4c187f2eaa108f3062412ecf0526b24"))

	if _, err := auction.Setup(context.Background(), owner, token); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if _, err := auction.StartAuction(context.Background(), owner); err != nil {
		t.Fatalf("StartAuction: %v", err)
	}

	txs := gw.Transactions()
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}

	setupInput, err := art.ABI.Pack("setup", token)
	if err != nil {
		t.Fatalf("Pack(setup): %v", err)
	}
	if !bytes.Equal(txs[0].Data, setupInput) {
		t.Errorf("setup data %x, want %x", []byte(txs[0].Data), setupInput)
	}
	if txs[0].Value != nil {
		t.Error("setup must not carry value")
	}
	if !bytes.Equal(txs[1].Data, art.ABI.Methods["startAuction"].ID) {
		t.Errorf("startAuction data %x, want selector only", []byte(txs[1].Data))
	}
}

func TestReserveToken_Reads(t *testing.T) {
	reg := loadTestRegistry(t)
	art, err := reg.Get("ReserveToken")
	if err != nil {
		t.Fatalf("Get(ReserveToken): %v", err)
	}

	holder := common.HexToAddress("0xffcf8fdee72ac11b5c542428b35eef5769c409f0")
	supply, _ := new(big.Int).SetString("10000000000000000000000000", 10)

	var lastCall ethrpc.CallMsg
	inner := dispatch(t, art.ABI, map[string][]byte{
		"totalSupply": packOutputs(t, art.ABI, "totalSupply", supply),
		"balanceOf":   packOutputs(t, art.ABI, "balanceOf", big.NewInt(200000)),
	})
	gw := &stub.StubGateway{
		CallHandler: func(msg ethrpc.CallMsg) ([]byte, error) {
			lastCall = msg
			return inner(msg)
		},
	}
	token := NewReserveToken(gw, art.ABI, common.HexToAddress("0x0eb8bb2e2aa3e0bbbdbbcefcdbe46b634bcaf8d6"))

	ctx := context.Background()

	got, err := token.TotalSupply(ctx)
	if err != nil {
		t.Fatalf("TotalSupply: %v", err)
	}
	if got.Cmp(supply) != 0 {
		t.Errorf("totalSupply = %s, want %s", got, supply)
	}

	balance, err := token.BalanceOf(ctx, holder)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if balance.Int64() != 200000 {
		t.Errorf("balance = %s, want 200000", balance)
	}

	wantInput, _ := art.ABI.Pack("balanceOf", holder)
	if !bytes.Equal(lastCall.Data, wantInput) {
		t.Errorf("balanceOf call data %x, want %x", []byte(lastCall.Data), wantInput)
	}
}

func TestAuctionStage_String(t *testing.T) {
	tests := []struct {
		stage AuctionStage
		want  string
	}{
		{StageDeployed, "AuctionDeployed"},
		{StageSetUp, "AuctionSetUp"},
		{StageStarted, "AuctionStarted"},
		{StageEnded, "AuctionEnded"},
		{StageTokensDistributed, "TokensDistributed"},
		{AuctionStage(9), "Stage(9)"},
	}
	for _, tt := range tests {
		if got := tt.stage.String(); got != tt.want {
			t.Errorf("stage %d = %q, want %q", uint8(tt.stage), got, tt.want)
		}
	}
}
