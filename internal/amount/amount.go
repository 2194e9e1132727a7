// Package amount provides shared decimal amount parsing and formatting.
//
// Transfer amounts are carried as decimal strings at every API boundary and
// stored as big.Int in the smallest unit internally (6 decimal places, so
// "1" parses to 1,000,000 units). No floating point is involved anywhere.
package amount

import (
	"math/big"
	"strings"
)

const Decimals = 6

// Parse converts a decimal string (e.g. "1.50") to its smallest-unit
// big.Int representation (1500000). Returns (nil, false) on invalid input.
//
// Rules:
//   - Empty string returns (0, true)
//   - Negative amounts are rejected
//   - Multiple decimal points are rejected
//   - Fractional parts are padded/truncated to 6 decimal places
func Parse(s string) (*big.Int, bool) {
	if s == "" {
		return big.NewInt(0), true
	}

	if strings.HasPrefix(s, "-") {
		return nil, false
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return nil, false
	}
	whole := parts[0]
	frac := ""
	if len(parts) > 1 {
		frac = parts[1]
	}

	for len(frac) < Decimals {
		frac += "0"
	}
	frac = frac[:Decimals]

	combined := whole + frac
	result, ok := new(big.Int).SetString(combined, 10)
	return result, ok
}

// Format converts a smallest-unit big.Int to a human-readable decimal
// string with exactly 6 decimal places (e.g. "1.500000").
func Format(v *big.Int) string {
	if v == nil {
		return "0.000000"
	}
	neg := v.Sign() < 0
	abs := new(big.Int).Abs(v)
	s := abs.String()
	for len(s) < Decimals+1 {
		s = "0" + s
	}
	decimal := len(s) - Decimals
	result := s[:decimal] + "." + s[decimal:]
	if neg {
		result = "-" + result
	}
	return result
}

// Add returns the formatted sum of two decimal strings. Invalid operands
// are treated as zero; the engine validates inputs before arithmetic.
func Add(a, b string) string {
	av, ok := Parse(a)
	if !ok {
		av = big.NewInt(0)
	}
	bv, ok := Parse(b)
	if !ok {
		bv = big.NewInt(0)
	}
	return Format(new(big.Int).Add(av, bv))
}

// Cmp compares two decimal strings, returning -1, 0, or 1 like big.Int.Cmp.
// Invalid operands are treated as zero.
func Cmp(a, b string) int {
	av, ok := Parse(a)
	if !ok {
		av = big.NewInt(0)
	}
	bv, ok := Parse(b)
	if !ok {
		bv = big.NewInt(0)
	}
	return av.Cmp(bv)
}
