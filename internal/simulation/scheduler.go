// Package simulation drives rehearsal bids against a live auction to
// validate its price parameters before a production run. Scheduling is
// strictly sequential: the scenario being modeled is a single globally
// ordered ledger, so there are no concurrent bidders and every chain
// interaction blocks until it settles.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Scheduler errors
var (
	ErrInvalidConfig = errors.New("invalid simulation config")
	ErrAlreadyRun    = errors.New("scheduler has already run")
)

// RunState is the lifecycle state of a simulation run.
type RunState int

// Run states, in transition order. A scheduler moves NotStarted -> Running
// once, then terminates in exactly one of Completed or Aborted.
const (
	NotStarted RunState = iota
	Running
	Completed
	Aborted
)

func (s RunState) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case Running:
		return "Running"
	case Completed:
		return "Completed"
	case Aborted:
		return "Aborted"
	default:
		return fmt.Sprintf("RunState(%d)", int(s))
	}
}

// AuctionSession is the slice of a deployed auction the scheduler drives.
// A bound live contract and the scripted test session both implement it.
type AuctionSession interface {
	// Price returns the current token price in wei.
	Price(ctx context.Context) (*big.Int, error)

	// Ended reports whether the auction reached its terminal stage.
	Ended(ctx context.Context) (bool, error)

	// Bid submits a bid carrying amount wei from the bidder's account.
	Bid(ctx context.Context, bidder common.Address, amount *big.Int) (common.Hash, error)

	// AwaitBid blocks until the bid transaction confirms or fails.
	AwaitBid(ctx context.Context, txHash common.Hash) error
}

// Config carries the simulate request parameters.
type Config struct {
	// Bidders is the ordered set of bidding accounts. When BidCount exceeds
	// the number of bidders they are reused in round-robin order.
	Bidders []common.Address

	// BidCount is the total number of bids to submit.
	BidCount int

	// Interval is the pause between bid iterations, modeling real bidder
	// cadence. Zero or negative runs without pacing.
	Interval time.Duration

	// StartPrice delays the first bid until the auction price has decayed
	// to this value or below. Nil starts bidding immediately.
	StartPrice *big.Int
}

// Validate checks the simulate request before any chain interaction.
func (c Config) Validate() error {
	if len(c.Bidders) == 0 {
		return fmt.Errorf("%w: no bidders", ErrInvalidConfig)
	}
	if c.BidCount <= 0 {
		return fmt.Errorf("%w: bid count %d", ErrInvalidConfig, c.BidCount)
	}
	if c.StartPrice != nil && c.StartPrice.Sign() < 0 {
		return fmt.Errorf("%w: negative start price", ErrInvalidConfig)
	}
	return nil
}

// Bid is one simulated bid. Records are immutable once created and are
// never dropped; an aborted run keeps every bid confirmed before the
// failure.
type Bid struct {
	SequenceIndex int            // 0-based submission order
	Bidder        common.Address // account the bid was sent from
	ObservedPrice *big.Int       // oracle price read immediately before submit (wei)
	TxHash        common.Hash    // submitted transaction
	SubmittedAt   time.Time
	ConfirmedAt   time.Time // zero for a bid that never confirmed
}

// Result is the outcome of one simulation run.
type Result struct {
	State RunState

	// Bids holds the confirmed bids in submission order.
	Bids []Bid

	// Failed is the bid whose confirmation failed, when the run aborted
	// after the transaction had already been submitted.
	Failed *Bid
}

// Scheduler replays a deterministic bidding sequence against an auction.
// It is single-threaded and owns the auction exclusively while Running:
// no other writer may submit competing bids during a run.
type Scheduler struct {
	session AuctionSession
	cfg     Config
	state   RunState
}

// NewScheduler creates a scheduler for one simulation run. Schedulers are
// one-shot; create a new one for each run.
func NewScheduler(session AuctionSession, cfg Config) (*Scheduler, error) {
	if session == nil {
		return nil, fmt.Errorf("%w: nil session", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{session: session, cfg: cfg, state: NotStarted}, nil
}

// State returns the scheduler's run state. The scheduler is single-threaded;
// State is meant for inspection before and after Run.
func (s *Scheduler) State() RunState {
	return s.state
}

// Run drives the simulation to a terminal state. Past the one-shot guard
// the returned Result is non-nil and keeps the bids confirmed before any
// failure.
// Steps:
//  1. Wait until the auction price decays to the configured start price
//  2. Per iteration: stop if the auction ended, read the price, submit a
//     bid at that price from the next round-robin bidder
//  3. Block until the bid confirms before submitting the next one
//  4. Pause the configured interval between iterations
func (s *Scheduler) Run(ctx context.Context) (*Result, error) {
	if s.state != NotStarted {
		return nil, ErrAlreadyRun
	}
	s.state = Running

	result := &Result{State: Running}

	if err := s.waitForStartPrice(ctx); err != nil {
		return s.abort(result, err)
	}

	for i := 0; i < s.cfg.BidCount; i++ {
		if i > 0 {
			if err := s.pause(ctx); err != nil {
				return s.abort(result, err)
			}
		}

		ended, err := s.session.Ended(ctx)
		if err != nil {
			return s.abort(result, fmt.Errorf("check auction stage: %w", err))
		}
		if ended {
			// Supply ran out before the requested bid count.
			s.state = Completed
			result.State = Completed
			return result, nil
		}

		price, err := s.session.Price(ctx)
		if err != nil {
			return s.abort(result, fmt.Errorf("read price before bid %d: %w", i, err))
		}

		// Round-robin reuse: bidder identities cycle when BidCount
		// exceeds the bidder count.
		bidder := s.cfg.Bidders[i%len(s.cfg.Bidders)]

		txHash, err := s.session.Bid(ctx, bidder, price)
		if err != nil {
			return s.abort(result, fmt.Errorf("submit bid %d from %s: %w", i, bidder.Hex(), err))
		}

		bid := Bid{
			SequenceIndex: i,
			Bidder:        bidder,
			ObservedPrice: price,
			TxHash:        txHash,
			SubmittedAt:   time.Now(),
		}

		if err := s.session.AwaitBid(ctx, txHash); err != nil {
			result.Failed = &bid
			return s.abort(result, fmt.Errorf("confirm bid %d from %s: %w", i, bidder.Hex(), err))
		}
		bid.ConfirmedAt = time.Now()

		result.Bids = append(result.Bids, bid)
	}

	s.state = Completed
	result.State = Completed
	return result, nil
}

// waitForStartPrice polls the oracle until the price decays to the
// configured start price. The auction price function is non-increasing in
// time, so once the threshold is crossed it stays crossed.
func (s *Scheduler) waitForStartPrice(ctx context.Context) error {
	if s.cfg.StartPrice == nil {
		return nil
	}

	for {
		price, err := s.session.Price(ctx)
		if err != nil {
			return fmt.Errorf("read price while waiting for start: %w", err)
		}
		if price.Cmp(s.cfg.StartPrice) <= 0 {
			return nil
		}
		if err := s.pause(ctx); err != nil {
			return err
		}
	}
}

// pause sleeps the configured interval, honoring cancellation. A zero or
// negative interval only checks the context, so tests run instantly.
func (s *Scheduler) pause(ctx context.Context) error {
	if s.cfg.Interval <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Scheduler) abort(result *Result, err error) (*Result, error) {
	s.state = Aborted
	result.State = Aborted
	return result, err
}
