package settlement

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/slot-engine/ledger"
	"github.com/warp/slot-engine/slots"
)

// EnrollRequest asks for one spot in one option of a slot.
type EnrollRequest struct {
	UserID     string
	SlotID     slots.SlotID
	OptionSize int
	// PaymentMethod defaults to credit.
	PaymentMethod slots.PaymentMethod
}

func (r EnrollRequest) validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(string(r.SlotID)) == "" {
		return fmt.Errorf("%w: slot id is required", ErrInvalidRequest)
	}
	if r.OptionSize < slots.MinOptionSize || r.OptionSize > slots.MaxOptionSize {
		return fmt.Errorf("%w: %d", slots.ErrInvalidOptionSize, r.OptionSize)
	}
	if r.PaymentMethod != "" && !r.PaymentMethod.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidRequest, r.PaymentMethod)
	}
	return nil
}

// EnrollResult describes an accepted enrollment.
type EnrollResult struct {
	// Enrollment is pending, or confirmed when this call filled the option.
	Enrollment    slots.Enrollment
	PricePerHead  decimal.Decimal
	AmountCharged decimal.Decimal
	PointsSpent   decimal.Decimal
	PointsAwarded decimal.Decimal
	// Account is the user's balance after the call.
	Account ledger.Account
	// Settlement is set when this call settled the slot.
	Settlement *Outcome
}

// Outcome is the effect of a slot settling.
type Outcome struct {
	SlotID          slots.SlotID
	ConfirmedOption int
	// Confirmed is ordered by user id.
	Confirmed []slots.Enrollment
	// Voided lists every pending spot released in the other options.
	Voided []slots.Enrollment
}

// CancelResult describes a processed cancellation.
type CancelResult struct {
	Enrollment     slots.Enrollment
	PreviousStatus slots.EnrollmentStatus

	RefundAmount    decimal.Decimal
	PenalizedAmount decimal.Decimal
	// PointsRefunded returns the cost of a pending gratis spot.
	PointsRefunded decimal.Decimal
	// PointsAwarded converts the penalized amount of a partial penalty.
	PointsAwarded decimal.Decimal

	PenaltyApplied    bool
	PenaltyPercentage decimal.Decimal

	Account ledger.Account
}

// ExpiryResult describes a slot closed unfilled.
type ExpiryResult struct {
	SlotID slots.SlotID
	// Voided is ordered by user id.
	Voided         []slots.Enrollment
	Released       decimal.Decimal
	PointsRefunded decimal.Decimal
}
