package policy

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ComputePenalty returns the penalty percentage for a cancellation made
// actualHoursBefore hours before the slot starts.
//
// A tier matches when actualHoursBefore < tier.HoursBefore. Among matching
// tiers the one with the smallest HoursBefore wins, so the closer to start,
// the harsher the tier. No match means no penalty.
//
//	tiers [{2h, 50%}, {1h, 100%}]
//	  3h   -> 0
//	  1.5h -> 50
//	  0.5h -> 100
func ComputePenalty(tiers []PenaltyTier, actualHoursBefore float64) decimal.Decimal {
	ordered := append([]PenaltyTier(nil), tiers...)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].HoursBefore < ordered[j].HoursBefore
	})
	for _, tier := range ordered {
		if actualHoursBefore < tier.HoursBefore {
			return tier.PenaltyPercentage
		}
	}
	return decimal.Zero
}

// Refund splits amountPaid into the refunded part and the penalized part.
// The refund is rounded to cents; penalized is the exact remainder.
func Refund(amountPaid, penaltyPercentage decimal.Decimal) (refund, penalized decimal.Decimal) {
	hundred := decimal.NewFromInt(100)
	keep := hundred.Sub(penaltyPercentage).Div(hundred)
	refund = amountPaid.Mul(keep).Round(2)
	if refund.IsNegative() {
		refund = decimal.Zero
	}
	return refund, amountPaid.Sub(refund)
}
