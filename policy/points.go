package policy

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// SpotBonus looks up the base points of a spot.
// Spot indices past the end of the row (left by cancelled arrivals) earn the
// row's last value. Unknown option sizes earn nothing.
func SpotBonus(table BasePointsTable, optionSize, spotIndex int) decimal.Decimal {
	row := table[optionSize]
	if len(row) == 0 || spotIndex < 0 {
		return decimal.Zero
	}
	if spotIndex >= len(row) {
		spotIndex = len(row) - 1
	}
	return row[spotIndex]
}

// AnticipationDays counts whole calendar days from today to the slot's start
// date, in the start time's location. Never negative.
func AnticipationDays(today, start time.Time) int {
	loc := start.Location()
	t := today.In(loc)
	from := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	to := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	days := int(math.Round(to.Sub(from).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}

// AwardPoints is the enrollment bonus: base points of the spot plus one point
// per day of anticipation.
func AwardPoints(table BasePointsTable, optionSize, spotIndex int, today, start time.Time) decimal.Decimal {
	base := SpotBonus(table, optionSize, spotIndex)
	return base.Add(decimal.NewFromInt(int64(AnticipationDays(today, start))))
}

// CancellationPoints converts the penalized amount of a bonified cancellation
// into loyalty points. A full penalty converts nothing.
func CancellationPoints(penalized, penaltyPercentage, pointsPerEuro decimal.Decimal) decimal.Decimal {
	if penaltyPercentage.GreaterThanOrEqual(decimal.NewFromInt(100)) || !penalized.IsPositive() {
		return decimal.Zero
	}
	return penalized.Mul(pointsPerEuro).Floor()
}
