package settlement

import (
	"errors"

	"github.com/warp/slot-engine/ledger"
	"github.com/warp/slot-engine/lock"
	"github.com/warp/slot-engine/policy"
	"github.com/warp/slot-engine/slots"
)

// =============================================================================
// CALLER-FACING ERRORS - Use with errors.Is()
// =============================================================================

var (
	// Funding. State is left unchanged.
	ErrInsufficientFunds  = ledger.ErrInsufficientFunds
	ErrInsufficientPoints = ledger.ErrInsufficientPoints

	// Admission conflicts. Expected and frequent.
	ErrSlotAlreadySettled  = slots.ErrSlotAlreadySettled
	ErrOptionFull          = slots.ErrOptionFull
	ErrDuplicateEnrollment = slots.ErrDuplicateEnrollment

	// Lookups.
	ErrEnrollmentNotFound = slots.ErrEnrollmentNotFound
	ErrSlotNotFound       = slots.ErrSlotNotFound

	// ErrEnrollmentClosed is returned when cancelling a voided or cancelled enrollment.
	ErrEnrollmentClosed = slots.ErrEnrollmentClosed

	// ErrSlotAlreadyStarted rejects enrollments and cancellations at or after start time.
	ErrSlotAlreadyStarted = errors.New("slot already started")

	// ErrSlotNotStarted rejects expiring a slot before its start time.
	ErrSlotNotStarted = errors.New("slot not started")

	ErrSlotExpired = slots.ErrSlotExpired

	// ErrBusy means the slot lock was not acquired in time. Safe to retry.
	ErrBusy = lock.ErrBusy

	// ErrInvalidRequest is returned for malformed input, before any state change.
	ErrInvalidRequest = errors.New("invalid request")

	ErrInvalidEngineConfig = errors.New("invalid engine config")
)

// =============================================================================
// CLASSIFICATION
// =============================================================================

// IsRetryable reports whether the same call may succeed if retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBusy)
}

// IsConflict reports admission conflicts and closed enrollments.
func IsConflict(err error) bool {
	return slots.IsAdmissionConflict(err) || errors.Is(err, ErrEnrollmentClosed)
}

// IsFunding reports insufficient credit or points.
func IsFunding(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrInsufficientPoints)
}

// IsValidation reports input the engine rejects before touching state.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrSlotAlreadyStarted) ||
		errors.Is(err, ErrSlotNotStarted) ||
		errors.Is(err, slots.ErrInvalidOptionSize) ||
		errors.Is(err, slots.ErrInvalidSlot) ||
		errors.Is(err, policy.ErrInvalidClubConfig) ||
		errors.Is(err, ledger.ErrInvalidAmount) ||
		errors.Is(err, ledger.ErrInvalidUserID)
}

// IsNotFound reports missing slots or enrollments.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEnrollmentNotFound) || errors.Is(err, ErrSlotNotFound)
}
