package deployer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"

	"github.com/ToniyaSundaram/raiden-token/internal/contracts"
	"github.com/ToniyaSundaram/raiden-token/internal/domain"
	"github.com/ToniyaSundaram/raiden-token/internal/ethrpc"
	"github.com/ToniyaSundaram/raiden-token/internal/observability"
	"github.com/ToniyaSundaram/raiden-token/internal/simulation"
	"github.com/ToniyaSundaram/raiden-token/internal/units"
)

// Bidder accounts created for the rehearsal use a throwaway passphrase,
// like every other plaintext test key this tool prints.
const (
	bidderPassphrase  = "0"
	unlockDurationSec = 3600
)

// fundingGasAllowance tops up each bidder beyond its expected bid spend so
// gas never starves a rehearsal. 0.01 ETH.
var fundingGasAllowance = big.NewInt(10_000_000_000_000_000)

// simulate rehearses the auction with sequential bids and records the
// outcome against the deployment.
// Steps:
//  1. Provision bidder accounts (node accounts 3..n, creating the rest)
//  2. Start the auction when it is only set up
//  3. Fund bidders from the owner so bids can carry value
//  4. Run the scheduler
//  5. Persist bid records and the observed price curve
func (d *Deployer) simulate(ctx context.Context, auction *contracts.DutchAuction, owner common.Address, deploymentID string) (*simulation.Result, error) {
	d.logger.Printf("Starting simulation setup for %d bidders", d.cfg.BidderCount)

	// 1. Provision bidders
	bidders, err := d.provisionBidders(ctx)
	if err != nil {
		return nil, err
	}

	// 2. Open the auction for bidding. Funding comes after: the price read
	// that bounds the funding target is only meaningful once started.
	if err := d.ensureStarted(ctx, auction, owner); err != nil {
		return nil, err
	}

	// 3. Fund the bidders
	if err := d.fundBidders(ctx, auction, owner, bidders); err != nil {
		return nil, err
	}

	d.logger.Printf("Simulating %d bidders %v", len(bidders), hexAddresses(bidders))
	if d.cfg.BidStartPrice != nil {
		d.logger.Printf("Bids will start at %s WEI = %s ETH  / TKN", d.cfg.BidStartPrice, units.EtherString(d.cfg.BidStartPrice))
	}

	// 4. Run the scheduler
	sched, err := simulation.NewScheduler(auction, simulation.Config{
		Bidders:    bidders,
		BidCount:   d.cfg.BidCount,
		Interval:   d.cfg.BidInterval,
		StartPrice: d.cfg.BidStartPrice,
	})
	if err != nil {
		return nil, err
	}

	result, runErr := sched.Run(ctx)
	observability.RecordSimulationRun(result.State.String())

	// 5. Persist what happened, even for an aborted run
	if perr := d.persistRun(ctx, deploymentID, result); perr != nil {
		d.logger.Printf("Recording simulation results failed: %v", perr)
		if runErr == nil {
			runErr = perr
		}
	}

	summary := simulation.Summarize(result)
	if summary.BidCount > 0 {
		d.logger.Printf("Simulation %s: %d bids, price %s -> %s WEI, total decay %s WEI",
			summary.State, summary.BidCount, summary.FirstPrice, summary.LastPrice, summary.TotalDecay)
		if !summary.NonIncreasing {
			d.logger.Printf("Warning: observed prices increased during the run")
		}
	} else {
		d.logger.Printf("Simulation %s: no bids were confirmed", summary.State)
	}

	return result, runErr
}

// provisionBidders selects bidder accounts. Node accounts 0..2 are
// reserved for the owner and preallocations; accounts from index 3 become
// bidders, and missing ones are created and unlocked.
func (d *Deployer) provisionBidders(ctx context.Context) ([]common.Address, error) {
	accounts, err := d.accounts.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	var bidders []common.Address
	if len(accounts) > 3 {
		end := 3 + d.cfg.BidderCount
		if end > len(accounts) {
			end = len(accounts)
		}
		bidders = append(bidders, accounts[3:end]...)
	}

	missing := d.cfg.BidderCount - len(bidders)
	d.logger.Printf("Creating more bidder accounts: %d accounts", missing)
	for i := 0; i < missing; i++ {
		addr, err := d.accounts.NewAccount(ctx, bidderPassphrase)
		if err != nil {
			return nil, fmt.Errorf("create bidder account: %w", err)
		}
		if _, err := d.accounts.UnlockAccount(ctx, addr, bidderPassphrase, unlockDurationSec); err != nil {
			return nil, fmt.Errorf("unlock bidder account %s: %w", addr.Hex(), err)
		}
		bidders = append(bidders, addr)
	}
	return bidders, nil
}

// fundBidders transfers wei from the owner to every bidder short of the
// expected spend. Prices only decay, so the start price (or the current
// price) bounds each bid; the per-bidder share of bids times that bound,
// plus a gas allowance, is the funding target.
func (d *Deployer) fundBidders(ctx context.Context, auction *contracts.DutchAuction, owner common.Address, bidders []common.Address) error {
	maxBid := d.cfg.BidStartPrice
	if maxBid == nil {
		price, err := auction.Price(ctx)
		if err != nil {
			return fmt.Errorf("read price for bidder funding: %w", err)
		}
		maxBid = price
	}

	bidsPerBidder := (d.cfg.BidCount + len(bidders) - 1) / len(bidders)
	target := new(big.Int).Mul(maxBid, big.NewInt(int64(bidsPerBidder)))
	target.Add(target, fundingGasAllowance)

	for _, bidder := range bidders {
		balance, err := d.accounts.Balance(ctx, bidder)
		if err != nil {
			return fmt.Errorf("read balance of %s: %w", bidder.Hex(), err)
		}
		if balance.Cmp(target) >= 0 {
			continue
		}

		topUp := new(big.Int).Sub(target, balance)
		txHash, err := d.gw.Transact(ctx, ethrpc.TxArgs{
			From:  owner,
			To:    &bidder,
			Value: (*hexutil.Big)(topUp),
		})
		if err != nil {
			return fmt.Errorf("fund bidder %s: %w", bidder.Hex(), err)
		}
		if _, err := d.gw.AwaitReceipt(ctx, txHash); err != nil {
			return fmt.Errorf("confirm funding of %s: %w", bidder.Hex(), err)
		}
	}
	return nil
}

// ensureStarted opens the auction for bidding when it is still in the
// set-up stage. A started auction passes through; any other stage cannot
// accept bids.
func (d *Deployer) ensureStarted(ctx context.Context, auction *contracts.DutchAuction, owner common.Address) error {
	stage, err := auction.Stage(ctx)
	if err != nil {
		return fmt.Errorf("read auction stage: %w", err)
	}

	switch stage {
	case contracts.StageStarted:
		return nil
	case contracts.StageSetUp:
		// fall through to start it
	default:
		return fmt.Errorf("auction in stage %s cannot accept bids", stage)
	}

	txHash, err := auction.StartAuction(ctx, owner)
	if err != nil {
		return fmt.Errorf("start auction: %w", err)
	}
	if _, err := d.gw.AwaitReceipt(ctx, txHash); err != nil {
		return fmt.Errorf("confirm auction start: %w", err)
	}
	d.logger.Printf("Auction started")
	return nil
}

// persistRun writes the rehearsal's bid records and observed price curve.
// Confirmed bids re-fetch their receipts for gas accounting; the fetch is
// instant because the transactions are already mined.
func (d *Deployer) persistRun(ctx context.Context, deploymentID string, result *simulation.Result) error {
	if len(result.Bids) == 0 && result.Failed == nil {
		return nil
	}

	records := make([]*domain.BidRecord, 0, len(result.Bids)+1)
	samples := make([]*domain.PriceSample, 0, len(result.Bids))

	var runStart time.Time
	if len(result.Bids) > 0 {
		runStart = result.Bids[0].SubmittedAt
	}

	// Samples are keyed by (deployment, millisecond); an unpaced run can
	// land several bids in one tick, so the curve keeps the first
	// observation per tick.
	lastSampleMs := int64(-1)

	for _, bid := range result.Bids {
		var gasUsed int64
		if receipt, err := d.gw.AwaitReceipt(ctx, bid.TxHash); err == nil {
			gasUsed = int64(receipt.GasUsed)
		}

		records = append(records, &domain.BidRecord{
			BidID:         uuid.NewString(),
			DeploymentID:  deploymentID,
			Sequence:      bid.SequenceIndex + 1,
			Bidder:        bid.Bidder.Hex(),
			AmountWei:     bid.ObservedPrice.String(),
			PriceWei:      bid.ObservedPrice.String(),
			TxHash:        bid.TxHash.Hex(),
			GasUsed:       gasUsed,
			Status:        domain.BidStatusConfirmed,
			SubmittedAtMs: bid.SubmittedAt.UnixMilli(),
		})

		if ts := bid.SubmittedAt.UnixMilli(); ts != lastSampleMs {
			samples = append(samples, &domain.PriceSample{
				DeploymentID: deploymentID,
				TimestampMs:  ts,
				ElapsedSec:   int64(bid.SubmittedAt.Sub(runStart) / time.Second),
				PriceWei:     bid.ObservedPrice.String(),
			})
			lastSampleMs = ts
		}

		observability.RecordBidConfirmed(bid.ConfirmedAt.Sub(bid.SubmittedAt).Seconds())
		observability.SetAuctionPrice(bid.ObservedPrice)
	}

	if failed := result.Failed; failed != nil {
		records = append(records, &domain.BidRecord{
			BidID:         uuid.NewString(),
			DeploymentID:  deploymentID,
			Sequence:      failed.SequenceIndex + 1,
			Bidder:        failed.Bidder.Hex(),
			AmountWei:     failed.ObservedPrice.String(),
			PriceWei:      failed.ObservedPrice.String(),
			TxHash:        failed.TxHash.Hex(),
			Status:        domain.BidStatusFailed,
			SubmittedAtMs: failed.SubmittedAt.UnixMilli(),
		})
		observability.RecordBidFailed()
	}

	if err := d.bids.InsertBulk(ctx, records); err != nil {
		return fmt.Errorf("record bids: %w", err)
	}
	if len(samples) > 0 {
		if err := d.samples.InsertBulk(ctx, samples); err != nil {
			return fmt.Errorf("record price samples: %w", err)
		}
		observability.RecordPriceSamples(len(samples))
	}
	return nil
}
