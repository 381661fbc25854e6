package utils

import "github.com/shopspring/decimal"

// ClampDecimal bounds v to the closed interval [lo, hi].
func ClampDecimal(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
