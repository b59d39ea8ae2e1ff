// Package memory provides an in-memory settlement.TxStore for tests and demos.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/slot-engine/ledger"
	"github.com/warp/slot-engine/policy"
	"github.com/warp/slot-engine/settlement"
	"github.com/warp/slot-engine/slots"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Store holds all state behind one mutex. Transactions are serialized and
// rolled back by restoring a snapshot.
type Store struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	accounts    map[ledger.UserID]ledger.Account
	entries     map[ledger.UserID][]ledger.Entry
	points      map[ledger.UserID][]ledger.PointTransaction
	slots       map[slots.SlotID]slots.Slot
	enrollments map[slots.EnrollmentID]slots.Enrollment
	bySlot      map[slots.SlotID][]slots.EnrollmentID
	clubs       map[string]policy.ClubConfig
}

var _ settlement.TxStore = (*Store)(nil)
var _ settlement.Tx = (*state)(nil)

func New() *Store {
	return &Store{state: newState()}
}

func newState() *state {
	return &state{
		accounts:    make(map[ledger.UserID]ledger.Account),
		entries:     make(map[ledger.UserID][]ledger.Entry),
		points:      make(map[ledger.UserID][]ledger.PointTransaction),
		slots:       make(map[slots.SlotID]slots.Slot),
		enrollments: make(map[slots.EnrollmentID]slots.Enrollment),
		bySlot:      make(map[slots.SlotID][]slots.EnrollmentID),
		clubs:       make(map[string]policy.ClubConfig),
	}
}

// WithTx runs fn with exclusive access. An error restores the state fn saw.
func (s *Store) WithTx(ctx context.Context, fn func(settlement.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.state.clone()
	if err := fn(s.state); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// Reset drops all data.
func (s *Store) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = newState()
	return nil
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.accounts {
		c.accounts[k] = v
	}
	for k, v := range st.entries {
		c.entries[k] = append([]ledger.Entry(nil), v...)
	}
	for k, v := range st.points {
		c.points[k] = append([]ledger.PointTransaction(nil), v...)
	}
	for k, v := range st.slots {
		c.slots[k] = v
	}
	for k, v := range st.enrollments {
		c.enrollments[k] = v
	}
	for k, v := range st.bySlot {
		c.bySlot[k] = append([]slots.EnrollmentID(nil), v...)
	}
	for k, v := range st.clubs {
		c.clubs[k] = v
	}
	return c
}

// =============================================================================
// LEDGER
// =============================================================================

func (st *state) GetAccount(_ context.Context, userID ledger.UserID) (ledger.Account, error) {
	account, ok := st.accounts[userID]
	if !ok {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return account, nil
}

func (st *state) SaveAccount(_ context.Context, account ledger.Account) error {
	st.accounts[account.UserID] = account
	return nil
}

func (st *state) AppendEntry(_ context.Context, entry ledger.Entry) error {
	st.entries[entry.UserID] = append(st.entries[entry.UserID], entry)
	return nil
}

func (st *state) AppendPointTransaction(_ context.Context, tx ledger.PointTransaction) error {
	st.points[tx.UserID] = append(st.points[tx.UserID], tx)
	return nil
}

func (st *state) ListEntries(_ context.Context, userID ledger.UserID) ([]ledger.Entry, error) {
	return append([]ledger.Entry(nil), st.entries[userID]...), nil
}

func (st *state) ListPointTransactions(_ context.Context, userID ledger.UserID) ([]ledger.PointTransaction, error) {
	return append([]ledger.PointTransaction(nil), st.points[userID]...), nil
}

// =============================================================================
// SLOTS
// =============================================================================

func (st *state) GetSlot(_ context.Context, id slots.SlotID) (slots.Slot, error) {
	slot, ok := st.slots[id]
	if !ok {
		return slots.Slot{}, fmt.Errorf("slot %s: %w", id, slots.ErrSlotNotFound)
	}
	slot.OptionSizes = append([]int(nil), slot.OptionSizes...)
	return slot, nil
}

func (st *state) InsertSlot(_ context.Context, slot slots.Slot) error {
	if _, ok := st.slots[slot.ID]; ok {
		return fmt.Errorf("slot %s: %w", slot.ID, slots.ErrSlotExists)
	}
	slot.OptionSizes = append([]int(nil), slot.OptionSizes...)
	st.slots[slot.ID] = slot
	return nil
}

func (st *state) SettleSlot(_ context.Context, id slots.SlotID, optionSize int, at time.Time) error {
	slot, ok := st.slots[id]
	if !ok {
		return fmt.Errorf("slot %s: %w", id, slots.ErrSlotNotFound)
	}
	if slot.Status != slots.SlotOpen {
		return fmt.Errorf("slot %s: %w", id, slots.ErrSlotAlreadySettled)
	}
	slot.Status = slots.SlotSettled
	slot.ConfirmedOption = optionSize
	slot.SettledAt = at
	st.slots[id] = slot
	return nil
}

func (st *state) ExpireSlot(_ context.Context, id slots.SlotID, at time.Time) error {
	slot, ok := st.slots[id]
	if !ok {
		return fmt.Errorf("slot %s: %w", id, slots.ErrSlotNotFound)
	}
	if slot.Status != slots.SlotOpen {
		return fmt.Errorf("slot %s: %w", id, slots.ErrSlotAlreadySettled)
	}
	slot.Status = slots.SlotExpired
	slot.SettledAt = at
	st.slots[id] = slot
	return nil
}

func (st *state) ListOpenSlots(_ context.Context, startedBy time.Time) ([]slots.Slot, error) {
	var out []slots.Slot
	for _, slot := range st.slots {
		if slot.Status == slots.SlotOpen && !slot.StartTime.After(startedBy) {
			slot.OptionSizes = append([]int(nil), slot.OptionSizes...)
			out = append(out, slot)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (st *state) InsertEnrollment(_ context.Context, e slots.Enrollment) error {
	if _, ok := st.enrollments[e.ID]; ok {
		return fmt.Errorf("enrollment %s already exists", e.ID)
	}
	// Mirrors the partial unique index of the SQL schema.
	for _, id := range st.bySlot[e.SlotID] {
		other := st.enrollments[id]
		if other.OptionSize == e.OptionSize && other.UserID == e.UserID && other.Status.Active() {
			return fmt.Errorf("enrollment %s: %w", e.ID, slots.ErrDuplicateEnrollment)
		}
	}
	st.enrollments[e.ID] = e
	st.bySlot[e.SlotID] = append(st.bySlot[e.SlotID], e.ID)
	return nil
}

func (st *state) GetEnrollment(_ context.Context, id slots.EnrollmentID) (slots.Enrollment, error) {
	e, ok := st.enrollments[id]
	if !ok {
		return slots.Enrollment{}, fmt.Errorf("enrollment %s: %w", id, slots.ErrEnrollmentNotFound)
	}
	return e, nil
}

func (st *state) ListEnrollments(_ context.Context, slotID slots.SlotID) ([]slots.Enrollment, error) {
	ids := st.bySlot[slotID]
	out := make([]slots.Enrollment, 0, len(ids))
	for _, id := range ids {
		out = append(out, st.enrollments[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OptionSize != out[j].OptionSize {
			return out[i].OptionSize < out[j].OptionSize
		}
		return out[i].SpotIndex < out[j].SpotIndex
	})
	return out, nil
}

func (st *state) UpdateEnrollmentStatus(_ context.Context, id slots.EnrollmentID, from, to slots.EnrollmentStatus, at time.Time) error {
	e, ok := st.enrollments[id]
	if !ok {
		return fmt.Errorf("enrollment %s: %w", id, slots.ErrEnrollmentNotFound)
	}
	if e.Status != from {
		return fmt.Errorf("enrollment %s is %s, not %s: %w", id, e.Status, from, slots.ErrStatusConflict)
	}
	e.Status = to
	e.UpdatedAt = at
	st.enrollments[id] = e
	return nil
}

// =============================================================================
// CLUBS
// =============================================================================

func (st *state) GetClubConfig(_ context.Context, clubID string) (policy.ClubConfig, error) {
	cfg, ok := st.clubs[clubID]
	if !ok {
		return policy.ClubConfig{}, fmt.Errorf("club %s: %w", clubID, policy.ErrClubConfigNotFound)
	}
	return cfg, nil
}

func (st *state) SaveClubConfig(_ context.Context, cfg policy.ClubConfig) error {
	st.clubs[cfg.ClubID] = cfg
	return nil
}
