package slots

import (
	"context"
	"time"
)

// Store persists slots and enrollments.
//
// Like ledger.Store, the tracker expects a Store scoped to one transaction.
type Store interface {
	// GetSlot returns ErrSlotNotFound for unknown ids.
	GetSlot(ctx context.Context, id SlotID) (Slot, error)

	// InsertSlot returns ErrSlotExists for a duplicate id.
	InsertSlot(ctx context.Context, slot Slot) error

	// SettleSlot marks the slot settled with the given option.
	// Returns ErrSlotAlreadySettled if it was not open.
	SettleSlot(ctx context.Context, id SlotID, optionSize int, at time.Time) error

	// ExpireSlot closes an open slot without a confirmed option.
	// Returns ErrSlotAlreadySettled if it was not open.
	ExpireSlot(ctx context.Context, id SlotID, at time.Time) error

	// ListOpenSlots returns the open slots starting at or before startedBy,
	// ordered by start time.
	ListOpenSlots(ctx context.Context, startedBy time.Time) ([]Slot, error)

	InsertEnrollment(ctx context.Context, enrollment Enrollment) error

	// GetEnrollment returns ErrEnrollmentNotFound for unknown ids.
	GetEnrollment(ctx context.Context, id EnrollmentID) (Enrollment, error)

	// ListEnrollments returns every enrollment of a slot, ordered by option size then spot index.
	ListEnrollments(ctx context.Context, slotID SlotID) ([]Enrollment, error)

	// UpdateEnrollmentStatus moves an enrollment from one status to another.
	// Returns ErrStatusConflict when the current status is not from.
	UpdateEnrollmentStatus(ctx context.Context, id EnrollmentID, from, to EnrollmentStatus, at time.Time) error
}
