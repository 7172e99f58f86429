package pricing

import (
	"fmt"
	"math/big"
)

// Solve inverts two price samples into the (factor, constant) pair that
// makes the price function pass through both. The result is exact up to
// the integer truncation of the two parameters; Solve verifies the
// round trip and fails with ErrUnsolvableModel when the reproduced
// prices fall outside the truncation bound (see withinTruncationBound).
//
// Solve is pure and order-insensitive: swapping the samples yields the
// same parameters.
func Solve(p1, p2 PricePoint, multiplier *big.Int) (Parameters, error) {
	if !p1.valid() || !p2.valid() {
		return Parameters{}, ErrInvalidSample
	}
	if multiplier == nil || multiplier.Sign() <= 0 {
		return Parameters{}, fmt.Errorf("%w: multiplier must be positive", ErrInvalidSample)
	}
	if p1.Price.Cmp(p2.Price) == 0 {
		return Parameters{}, ErrDegenerateSample
	}

	// Orient so a is the higher-priced (earlier on the decay curve)
	// sample. The constant formula is symmetric, but factor is derived
	// from a, which keeps the result independent of argument order.
	a, b := p1, p2
	if a.Price.Cmp(b.Price) < 0 {
		a, b = b, a
	}

	// constant = (pb*tb - pa*ta) / (pa - pb)
	num := new(big.Int).Mul(b.Price, big.NewInt(b.Elapsed))
	num.Sub(num, new(big.Int).Mul(a.Price, big.NewInt(a.Elapsed)))
	den := new(big.Int).Sub(a.Price, b.Price)
	constant := new(big.Int).Quo(num, den)

	// factor = pa * (constant + ta) / multiplier
	factor := new(big.Int).Add(constant, big.NewInt(a.Elapsed))
	factor.Mul(factor, a.Price)
	factor.Quo(factor, multiplier)

	if constant.Sign() <= 0 || factor.Sign() <= 0 {
		return Parameters{}, fmt.Errorf("%w: samples imply factor=%s constant=%s",
			ErrUnsolvableModel, factor, constant)
	}

	params := Parameters{Factor: factor, Constant: constant}
	for _, s := range []PricePoint{a, b} {
		got := PriceAt(s.Elapsed, factor, constant, multiplier)
		if !withinTruncationBound(got, s.Price, factor, constant, s.Elapsed) {
			return Parameters{}, fmt.Errorf(
				"%w: price at t=%d evaluates to %s, sample was %s (factor=%s constant=%s)",
				ErrUnsolvableModel, s.Elapsed, got, s.Price, factor, constant)
		}
	}
	return params, nil
}

// withinTruncationBound reports whether got deviates from want by no more
// than the error introduced by truncating the real-valued solution to
// integer parameters. Truncating factor and constant each by less than one
// unit shifts the evaluated price by at most
//
//	want * (1/factor + 1/(constant+elapsed)) + 1
//
// Deviation beyond that cannot come from truncation and means the assumed
// formula does not match the samples. Evaluated in integers by multiplying
// through by factor*(constant+elapsed):
//
//	|got-want| * factor * (constant+t) <= want*(constant+t) + want*factor + factor*(constant+t)
func withinTruncationBound(got, want, factor, constant *big.Int, elapsed int64) bool {
	diff := new(big.Int).Sub(got, want)
	diff.Abs(diff)

	ct := new(big.Int).Add(constant, big.NewInt(elapsed))
	fct := new(big.Int).Mul(factor, ct)

	lhs := new(big.Int).Mul(diff, fct)

	rhs := new(big.Int).Mul(want, ct)
	rhs.Add(rhs, new(big.Int).Mul(want, factor))
	rhs.Add(rhs, fct)

	return lhs.Cmp(rhs) <= 0
}
