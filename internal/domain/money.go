package domain

import "math"

// CommissionSplit computes the frozen commission/net split for a payment of
// amountMinor at the given commission rate. Commission is floored, never
// rounded up, so commission+net always reconciles to amountMinor.
func CommissionSplit(amountMinor int64, rate float64) (commissionMinor, netMinor int64) {
	commissionMinor = int64(math.Floor(float64(amountMinor) * rate))
	netMinor = amountMinor - commissionMinor
	return commissionMinor, netMinor
}

// RoundMinor rounds a fractional minor-unit amount to the nearest integer,
// half away from zero.
func RoundMinor(amount float64) int64 {
	if amount >= 0 {
		return int64(math.Floor(amount + 0.5))
	}
	return int64(math.Ceil(amount - 0.5))
}
