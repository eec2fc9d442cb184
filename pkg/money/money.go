// Package money centralizes monetary arithmetic for the pricing and
// checkout coordinators. Every figure leaving the system is rounded to
// two decimal places exactly once, here.
package money

import "github.com/shopspring/decimal"

// Round2 rounds a monetary amount to 2 decimal places (half away from zero).
func Round2(value float64) float64 {
	rounded, _ := decimal.NewFromFloat(value).Round(2).Float64()
	return rounded
}

// Sub2 returns a − b rounded to 2 decimal places.
func Sub2(a, b float64) float64 {
	diff, _ := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Round(2).Float64()
	return diff
}

// NonNegative clamps negative amounts to zero.
func NonNegative(value float64) float64 {
	if value < 0 {
		return 0
	}
	return value
}

// Cmp compares two amounts with decimal precision: -1 if a < b, 0 if
// equal, 1 if a > b.
func Cmp(a, b float64) int {
	return decimal.NewFromFloat(a).Cmp(decimal.NewFromFloat(b))
}

// Min returns the smaller of two amounts with decimal precision.
func Min(a, b float64) float64 {
	if Cmp(a, b) <= 0 {
		return a
	}
	return b
}
