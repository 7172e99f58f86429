// Package pricing models the auction's time-decaying price function and
// derives its two on-chain parameters from observed market samples.
//
// The deployed auction evaluates
//
//	price(elapsed) = factor * multiplier / (constant + elapsed)
//
// with integer (floor) division. Every evaluation here mirrors that
// arithmetic exactly: a rounding difference between this model and the
// contract silently changes the economic terms of the sale.
package pricing

import (
	"errors"
	"math/big"
)

// Solver and model errors.
var (
	// ErrInvalidSample is returned for nil or negative sample components.
	ErrInvalidSample = errors.New("invalid price sample")

	// ErrDegenerateSample is returned when both samples carry the same
	// price. The decay curve is strictly monotonic, so equal prices at
	// distinct times cannot be inverted.
	ErrDegenerateSample = errors.New("degenerate price samples: prices are equal")

	// ErrUnsolvableModel is returned when the derived parameters fail to
	// reproduce the input samples under the assumed price function. It
	// signals a mismatch between this model and the on-chain formula and
	// must be treated as a fatal configuration error.
	ErrUnsolvableModel = errors.New("derived parameters do not reproduce the price samples")
)

// PricePoint is one observed sample of the auction price curve.
type PricePoint struct {
	// Price in WEI per whole token.
	Price *big.Int
	// Elapsed seconds since the auction's recorded start.
	Elapsed int64
}

// valid reports whether the sample components are present and non-negative.
func (p PricePoint) valid() bool {
	return p.Price != nil && p.Price.Sign() >= 0 && p.Elapsed >= 0
}

// Parameters are the two free integers of the on-chain price function,
// fixed at deployment and immutable thereafter.
type Parameters struct {
	Factor   *big.Int
	Constant *big.Int
}

// PriceAt evaluates the price function at the given elapsed time.
// Callers must supply positive factor, constant and multiplier; the
// denominator constant+elapsed must be positive.
func PriceAt(elapsed int64, factor, constant, multiplier *big.Int) *big.Int {
	num := new(big.Int).Mul(factor, multiplier)
	den := new(big.Int).Add(constant, big.NewInt(elapsed))
	return num.Quo(num, den)
}
