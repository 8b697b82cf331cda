package models

import "math"

// RoundMoney rounds a currency amount to two decimal places, half away from
// zero. All monetary fields are fixed to cents before they are persisted,
// hashed, or returned to callers.
func RoundMoney(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}
