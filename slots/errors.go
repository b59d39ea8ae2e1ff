package slots

import (
	"errors"
	"fmt"
)

var (
	// Admission conflicts. Expected and frequent.
	ErrSlotAlreadySettled  = errors.New("slot already settled")
	ErrOptionFull          = errors.New("option full")
	ErrDuplicateEnrollment = errors.New("duplicate enrollment")
	ErrSlotExpired         = errors.New("slot expired unfilled")

	ErrSlotNotFound       = errors.New("slot not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")

	// ErrEnrollmentClosed is returned when cancelling a voided or cancelled enrollment.
	ErrEnrollmentClosed = errors.New("enrollment already voided or cancelled")

	// ErrStatusConflict is returned by stores when a status transition finds an unexpected current status.
	ErrStatusConflict = errors.New("enrollment status changed concurrently")

	ErrInvalidSlot       = errors.New("invalid slot")
	ErrInvalidOptionSize = errors.New("invalid option size")
	ErrSlotExists        = errors.New("slot already exists")
)

// AdmissionError explains why a user was not admitted to an option.
type AdmissionError struct {
	SlotID     SlotID
	OptionSize int
	UserID     string
	Reason     error
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("admit %s into option %d of slot %s: %v", e.UserID, e.OptionSize, e.SlotID, e.Reason)
}

func (e *AdmissionError) Unwrap() error {
	return e.Reason
}

// IsAdmissionConflict reports whether err is one of the expected admission conflicts.
func IsAdmissionConflict(err error) bool {
	return errors.Is(err, ErrSlotAlreadySettled) ||
		errors.Is(err, ErrSlotExpired) ||
		errors.Is(err, ErrOptionFull) ||
		errors.Is(err, ErrDuplicateEnrollment)
}
