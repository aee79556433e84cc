package utils

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok)
	return v
}

func TestFormatUnitsTrim(t *testing.T) {
	cases := []struct {
		amount   string
		decimals uint8
		maxFrac  int
		want     string
	}{
		{"1234500000000000000", 18, 6, "1.2345"},
		{"1000000000000000000", 18, 6, "1"},
		{"1", 18, 18, "0.000000000000000001"},
		{"1", 18, 6, "0"},
		{"1999999", 6, 2, "1.99"},
		{"1500000", 6, 0, "1"},
		{"0", 6, 6, "0"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatUnitsTrim(mustBig(t, tc.amount), tc.decimals, tc.maxFrac), tc.amount)
	}
	assert.Equal(t, "0", FormatUnitsTrim(nil, 18, 6))
}

func TestHumanAmountAndParseUnits(t *testing.T) {
	h := HumanAmount(mustBig(t, "2500000"), 6)
	assert.True(t, h.Equal(decimal.RequireFromString("2.5")))

	raw, ok := ParseUnits(decimal.RequireFromString("2.5"), 6)
	require.True(t, ok)
	assert.Equal(t, "2500000", raw.String())

	_, ok = ParseUnits(decimal.RequireFromString("0.0000001"), 6)
	assert.False(t, ok)
}
