package pricing

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// ParsePricePoints parses the CLI sample format
// "price1_in_wei,elapsed_seconds1,price2_in_wei,elapsed_seconds2",
// e.g. "100000000000000000,0,10000000000000000,600".
func ParsePricePoints(s string) (PricePoint, PricePoint, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 4 {
		return PricePoint{}, PricePoint{}, fmt.Errorf(
			"price points must be \"price1,elapsed1,price2,elapsed2\", got %d fields", len(parts))
	}

	p1, err := parsePoint(parts[0], parts[1])
	if err != nil {
		return PricePoint{}, PricePoint{}, fmt.Errorf("first price point: %w", err)
	}
	p2, err := parsePoint(parts[2], parts[3])
	if err != nil {
		return PricePoint{}, PricePoint{}, fmt.Errorf("second price point: %w", err)
	}
	return p1, p2, nil
}

func parsePoint(priceField, elapsedField string) (PricePoint, error) {
	price, ok := new(big.Int).SetString(strings.TrimSpace(priceField), 10)
	if !ok || price.Sign() < 0 {
		return PricePoint{}, fmt.Errorf("%w: price %q", ErrInvalidSample, priceField)
	}
	elapsed, err := strconv.ParseInt(strings.TrimSpace(elapsedField), 10, 64)
	if err != nil || elapsed < 0 {
		return PricePoint{}, fmt.Errorf("%w: elapsed seconds %q", ErrInvalidSample, elapsedField)
	}
	return PricePoint{Price: price, Elapsed: elapsed}, nil
}
