package shared

import "math"

// Round2 rounds an amount to cents. All balance comparisons in the ledger
// core go through this so float noise cannot flip a constraint.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// AmountsEqual reports whether two monetary amounts agree at cent precision.
func AmountsEqual(a, b float64) bool {
	return Round2(a) == Round2(b)
}
