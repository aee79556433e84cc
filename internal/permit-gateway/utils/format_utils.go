package utils

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// HumanAmount scales a raw token amount by 10^decimals.
func HumanAmount(amount *big.Int, decimals uint8) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimals))
}

// FormatUnitsTrim converts a token balance to a human string:
// - divides by 10^decimals
// - truncates to maxFrac decimal places
// - removes trailing zeros
//
// Examples:
//
//	balance=1234500000000000000, decimals=18 -> "1.2345"
//	balance=1000000000000000000, decimals=18 -> "1"
//	balance=1, decimals=18, maxFrac=6 -> "0"
func FormatUnitsTrim(amount *big.Int, decimals uint8, maxFrac int) string {
	if amount == nil || amount.Sign() == 0 {
		return "0"
	}
	if maxFrac < 0 {
		maxFrac = 0
	}
	return HumanAmount(amount, decimals).Truncate(int32(maxFrac)).String()
}

// ParseUnits is the inverse of HumanAmount. It fails when the amount has more
// fractional digits than the token supports.
func ParseUnits(amount decimal.Decimal, decimals uint8) (*big.Int, bool) {
	scaled := amount.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, false
	}
	return scaled.BigInt(), true
}
