// Package units holds the fixed-point scale shared by the token and the
// auction price function, plus helpers to render smallest-unit integers
// for humans. Both contracts store 18-decimal quantities: token balances
// in Tei (the token's smallest unit) and prices in WEI per whole token.
package units

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Decimals is the number of decimal places of both the token and ether.
const Decimals = 18

// Multiplier is the process-wide scale constant (10^18) converting whole
// tokens or ether into smallest-unit integers. It is defined exactly once
// and must never be recomputed or shadowed; treat it as read-only.
var Multiplier = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

// ToSmallestUnit converts a whole-unit count (tokens or ether) into its
// smallest-unit integer representation.
func ToSmallestUnit(whole int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), Multiplier)
}

// EtherString renders a WEI amount as a decimal ETH quantity without
// floating-point loss.
func EtherString(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -Decimals).String()
}

// TokenString renders a Tei amount as a decimal whole-token quantity.
func TokenString(tei *big.Int) string {
	if tei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(tei, -Decimals).String()
}
