package slots

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// OPTION TRACKER
// =============================================================================

// Tracker maintains the per-option pending enrollments of slots.
type Tracker struct {
	store Store
	now   func() time.Time
	newID func() string
}

// NewTracker returns a Tracker over store. Nil now/newID fall back to
// time.Now and uuid.NewString.
func NewTracker(store Store, now func() time.Time, newID func() string) *Tracker {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &Tracker{store: store, now: now, newID: newID}
}

// AdmitRequest describes a spot request. Amounts are decided by the caller.
type AdmitRequest struct {
	SlotID        SlotID
	OptionSize    int
	UserID        string
	PaymentMethod PaymentMethod
	AmountBlocked decimal.Decimal
	PointsSpent   decimal.Decimal
}

// AdmissionResult is the outcome of a successful admission.
type AdmissionResult struct {
	Enrollment Enrollment
	// Full is true when this admission made the option reach its size.
	Full bool
}

// Admit inserts a pending enrollment if the option can take the user.
//
// Checks, in order: option exists on the slot, slot not settled, option not
// full, user not already active in the option.
func (t *Tracker) Admit(ctx context.Context, req AdmitRequest) (AdmissionResult, error) {
	slot, err := t.store.GetSlot(ctx, req.SlotID)
	if err != nil {
		return AdmissionResult{}, err
	}
	if !slot.HasOption(req.OptionSize) {
		return AdmissionResult{}, fmt.Errorf("%w: slot %s has no option %d", ErrInvalidOptionSize, slot.ID, req.OptionSize)
	}
	reject := func(reason error) (AdmissionResult, error) {
		return AdmissionResult{}, &AdmissionError{
			SlotID:     slot.ID,
			OptionSize: req.OptionSize,
			UserID:     req.UserID,
			Reason:     reason,
		}
	}
	switch {
	case slot.Settled():
		return reject(ErrSlotAlreadySettled)
	case slot.Expired():
		return reject(ErrSlotExpired)
	}

	enrollments, err := t.store.ListEnrollments(ctx, slot.ID)
	if err != nil {
		return AdmissionResult{}, fmt.Errorf("list enrollments of %s: %w", slot.ID, err)
	}
	var active, arrivals int
	duplicate := false
	for _, e := range enrollments {
		if e.OptionSize != req.OptionSize {
			continue
		}
		arrivals++
		if e.Status.Active() {
			active++
			if e.UserID == req.UserID {
				duplicate = true
			}
		}
	}
	if active >= req.OptionSize {
		return reject(ErrOptionFull)
	}
	if duplicate {
		return reject(ErrDuplicateEnrollment)
	}

	now := t.now()
	enrollment := Enrollment{
		ID:            EnrollmentID(t.newID()),
		SlotID:        slot.ID,
		UserID:        req.UserID,
		OptionSize:    req.OptionSize,
		SpotIndex:     arrivals,
		Status:        StatusPending,
		PaymentMethod: req.PaymentMethod,
		AmountBlocked: req.AmountBlocked,
		PointsSpent:   req.PointsSpent,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := t.store.InsertEnrollment(ctx, enrollment); err != nil {
		return AdmissionResult{}, fmt.Errorf("insert enrollment: %w", err)
	}
	return AdmissionResult{
		Enrollment: enrollment,
		Full:       active+1 == req.OptionSize,
	}, nil
}

// ConfirmOption confirms every pending enrollment of the option and settles
// the slot. Returns the confirmed enrollments ordered by user id.
func (t *Tracker) ConfirmOption(ctx context.Context, slotID SlotID, optionSize int) ([]Enrollment, error) {
	now := t.now()
	if err := t.store.SettleSlot(ctx, slotID, optionSize, now); err != nil {
		return nil, err
	}
	enrollments, err := t.store.ListEnrollments(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments of %s: %w", slotID, err)
	}
	var confirmed []Enrollment
	for _, e := range enrollments {
		if e.OptionSize != optionSize || e.Status != StatusPending {
			continue
		}
		if err := t.store.UpdateEnrollmentStatus(ctx, e.ID, StatusPending, StatusConfirmed, now); err != nil {
			return nil, fmt.Errorf("confirm %s: %w", e.ID, err)
		}
		e.Status = StatusConfirmed
		e.UpdatedAt = now
		confirmed = append(confirmed, e)
	}
	sortByUser(confirmed)
	return confirmed, nil
}

// UsersPendingOutside lists, sorted, the users holding a pending enrollment
// in any option of the slot other than keepOptionSize.
func (t *Tracker) UsersPendingOutside(ctx context.Context, slotID SlotID, keepOptionSize int) ([]string, error) {
	enrollments, err := t.store.ListEnrollments(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments of %s: %w", slotID, err)
	}
	seen := make(map[string]bool)
	var users []string
	for _, e := range enrollments {
		if e.OptionSize == keepOptionSize || e.Status != StatusPending || seen[e.UserID] {
			continue
		}
		seen[e.UserID] = true
		users = append(users, e.UserID)
	}
	sort.Strings(users)
	return users, nil
}

// VoidOthersForUser voids every pending enrollment of userID on the slot
// whose option size differs from keepOptionSize.
func (t *Tracker) VoidOthersForUser(ctx context.Context, slotID SlotID, userID string, keepOptionSize int) ([]Enrollment, error) {
	enrollments, err := t.store.ListEnrollments(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments of %s: %w", slotID, err)
	}
	now := t.now()
	var voided []Enrollment
	for _, e := range enrollments {
		if e.UserID != userID || e.OptionSize == keepOptionSize || e.Status != StatusPending {
			continue
		}
		if err := t.store.UpdateEnrollmentStatus(ctx, e.ID, StatusPending, StatusVoided, now); err != nil {
			return nil, fmt.Errorf("void %s: %w", e.ID, err)
		}
		e.Status = StatusVoided
		e.UpdatedAt = now
		voided = append(voided, e)
	}
	return voided, nil
}

// Expire closes an unfilled slot and voids every pending enrollment on it.
// Returns the voided enrollments ordered by user id.
func (t *Tracker) Expire(ctx context.Context, slotID SlotID) ([]Enrollment, error) {
	now := t.now()
	if err := t.store.ExpireSlot(ctx, slotID, now); err != nil {
		return nil, err
	}
	enrollments, err := t.store.ListEnrollments(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments of %s: %w", slotID, err)
	}
	var voided []Enrollment
	for _, e := range enrollments {
		if e.Status != StatusPending {
			continue
		}
		if err := t.store.UpdateEnrollmentStatus(ctx, e.ID, StatusPending, StatusVoided, now); err != nil {
			return nil, fmt.Errorf("void %s: %w", e.ID, err)
		}
		e.Status = StatusVoided
		e.UpdatedAt = now
		voided = append(voided, e)
	}
	sortByUser(voided)
	return voided, nil
}

// Cancel moves a pending or confirmed enrollment to cancelled.
// It returns the enrollment as it was before cancellation so the caller can
// pick the refund branch from its status.
func (t *Tracker) Cancel(ctx context.Context, id EnrollmentID) (Enrollment, error) {
	e, err := t.store.GetEnrollment(ctx, id)
	if err != nil {
		return Enrollment{}, err
	}
	if !e.Status.Active() {
		return Enrollment{}, fmt.Errorf("cancel %s (%s): %w", id, e.Status, ErrEnrollmentClosed)
	}
	if err := t.store.UpdateEnrollmentStatus(ctx, id, e.Status, StatusCancelled, t.now()); err != nil {
		return Enrollment{}, fmt.Errorf("cancel %s: %w", id, err)
	}
	return e, nil
}

// State derives the per-option view of a slot.
func (t *Tracker) State(ctx context.Context, slotID SlotID) (SlotState, error) {
	slot, err := t.store.GetSlot(ctx, slotID)
	if err != nil {
		return SlotState{}, err
	}
	enrollments, err := t.store.ListEnrollments(ctx, slotID)
	if err != nil {
		return SlotState{}, fmt.Errorf("list enrollments of %s: %w", slotID, err)
	}

	state := SlotState{
		SlotID:          slot.ID,
		ClubID:          slot.ClubID,
		StartTime:       slot.StartTime,
		Settled:         slot.Settled(),
		Expired:         slot.Expired(),
		ConfirmedOption: slot.ConfirmedOption,
		PerOption:       make(map[int]OptionState, len(slot.OptionSizes)),
	}
	for _, size := range slot.OptionSizes {
		state.PerOption[size] = OptionState{
			OptionSize:   size,
			PricePerHead: slot.PricePerHead(size),
			Spots:        []Spot{},
		}
	}
	for _, e := range enrollments {
		option, ok := state.PerOption[e.OptionSize]
		if !ok {
			continue
		}
		option.Spots = append(option.Spots, Spot{
			EnrollmentID: e.ID,
			UserID:       e.UserID,
			SpotIndex:    e.SpotIndex,
			Status:       e.Status,
		})
		if e.Status.Active() {
			option.EnrolledCount++
		}
		option.Full = option.EnrolledCount == option.OptionSize
		state.PerOption[e.OptionSize] = option
	}
	return state, nil
}

func sortByUser(enrollments []Enrollment) {
	sort.SliceStable(enrollments, func(i, j int) bool {
		return enrollments[i].UserID < enrollments[j].UserID
	})
}
