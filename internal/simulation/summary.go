package simulation

import "math/big"

// Summary condenses a run into the quantities a harness asserts against:
// where the price started, where it ended, and whether the observed
// trajectory ever rose between consecutive bids.
type Summary struct {
	State    RunState
	BidCount int

	FirstPrice *big.Int // observed price of the first bid, nil when no bids
	LastPrice  *big.Int // observed price of the last bid, nil when no bids
	TotalDecay *big.Int // FirstPrice - LastPrice, nil when no bids

	// NonIncreasing reports that no bid observed a higher price than the
	// bid before it. True for runs with fewer than two bids.
	NonIncreasing bool
}

// Summarize reduces a result to its price trajectory.
func Summarize(result *Result) Summary {
	summary := Summary{
		State:         result.State,
		BidCount:      len(result.Bids),
		NonIncreasing: true,
	}
	if len(result.Bids) == 0 {
		return summary
	}

	first := result.Bids[0].ObservedPrice
	last := result.Bids[len(result.Bids)-1].ObservedPrice
	summary.FirstPrice = new(big.Int).Set(first)
	summary.LastPrice = new(big.Int).Set(last)
	summary.TotalDecay = new(big.Int).Sub(first, last)

	for i := 1; i < len(result.Bids); i++ {
		if result.Bids[i].ObservedPrice.Cmp(result.Bids[i-1].ObservedPrice) > 0 {
			summary.NonIncreasing = false
			break
		}
	}

	return summary
}
