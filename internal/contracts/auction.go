package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/ToniyaSundaram/raiden-token/internal/chain"
	"github.com/ToniyaSundaram/raiden-token/internal/simulation"
)

// AuctionStage mirrors the Stages enum of the auction contract.
type AuctionStage uint8

// Auction lifecycle stages, in contract order.
const (
	StageDeployed AuctionStage = iota
	StageSetUp
	StageStarted
	StageEnded
	StageTokensDistributed
)

func (s AuctionStage) String() string {
	switch s {
	case StageDeployed:
		return "AuctionDeployed"
	case StageSetUp:
		return "AuctionSetUp"
	case StageStarted:
		return "AuctionStarted"
	case StageEnded:
		return "AuctionEnded"
	case StageTokensDistributed:
		return "TokensDistributed"
	default:
		return fmt.Sprintf("Stage(%d)", uint8(s))
	}
}

// DutchAuction binds a deployed auction contract. The contract sells a
// fixed token supply at a price that decays with elapsed time; it is the
// price oracle the bid simulation polls between bids.
type DutchAuction struct {
	*BoundContract
}

// NewDutchAuction binds an auction contract at the given address.
func NewDutchAuction(gw chain.Gateway, contractABI abi.ABI, addr common.Address) *DutchAuction {
	return &DutchAuction{BoundContract: Bind(gw, contractABI, addr)}
}

// Price returns the current token price in wei.
func (a *DutchAuction) Price(ctx context.Context) (*big.Int, error) {
	return a.callUint(ctx, "price")
}

// Stage returns the auction's lifecycle stage.
func (a *DutchAuction) Stage(ctx context.Context) (AuctionStage, error) {
	vals, err := a.call(ctx, "stage")
	if err != nil {
		return 0, err
	}
	if len(vals) != 1 {
		return 0, fmt.Errorf("stage returned %d values, want 1", len(vals))
	}
	stage, ok := vals[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("stage returned %T, want uint8", vals[0])
	}
	return AuctionStage(stage), nil
}

// Ended reports whether the auction has closed: either the final bid
// filled it or the tokens were already distributed.
func (a *DutchAuction) Ended(ctx context.Context) (bool, error) {
	stage, err := a.Stage(ctx)
	if err != nil {
		return false, err
	}
	return stage >= StageEnded, nil
}

// MissingFundsToEndAuction returns the wei still needed to close the
// auction at the current price.
func (a *DutchAuction) MissingFundsToEndAuction(ctx context.Context) (*big.Int, error) {
	return a.callUint(ctx, "missingFundsToEndAuction")
}

// Setup points the auction at its token. Must be called by the auction
// owner before the auction can start.
func (a *DutchAuction) Setup(ctx context.Context, from, token common.Address) (common.Hash, error) {
	return a.transact(ctx, from, nil, "setup", token)
}

// StartAuction opens the auction for bidding.
func (a *DutchAuction) StartAuction(ctx context.Context, from common.Address) (common.Hash, error) {
	return a.transact(ctx, from, nil, "startAuction")
}

// Bid submits a bid carrying amount wei from the bidder's account.
func (a *DutchAuction) Bid(ctx context.Context, bidder common.Address, amount *big.Int) (common.Hash, error) {
	return a.transact(ctx, bidder, amount, "bid")
}

// AwaitBid blocks until the bid transaction is mined and confirms it did
// not fail.
func (a *DutchAuction) AwaitBid(ctx context.Context, txHash common.Hash) error {
	_, err := a.gw.AwaitReceipt(ctx, txHash)
	return err
}

var _ simulation.AuctionSession = (*DutchAuction)(nil)
