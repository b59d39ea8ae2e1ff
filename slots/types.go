/*
Package slots is the Slot Registry and the Option Tracker.

PURPOSE:
  A Slot is one bookable time window on a court. It can be filled in several
  mutually exclusive ways, its option sizes (1 to 4 players). Each option IS
  the whole slot: "one player pays the full price" competes with "four
  players split it four ways". Options are not additive.

  Users enroll in an option and hold a pending spot. The first option whose
  pending spots reach its size wins: its enrollments are confirmed, the slot
  is settled, and every pending enrollment in the other options is voided.

ENROLLMENT LIFECYCLE:
  pending ──(option fills)──────────────> confirmed
     │                                        │
     ├──(other option confirmed)──> voided    │
     └──(user cancels)────────────> cancelled <┘ (user cancels)

  A user may hold pending spots in several options of the same slot at once
  ("hedging"), but never two active spots in the same option.

SPOT INDEX:
  Spots are numbered in arrival order within an option, starting at 0. A
  cancelled spot leaves a gap; numbers are never reused or compacted.

SEE ALSO:
  - tracker.go: Admit, ConfirmOption, VoidOthersForUser, Cancel, State
  - settlement/engine.go: drives the tracker and the ledger together
*/
package slots

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// OPTION SIZES
// =============================================================================

const (
	MinOptionSize = 1
	MaxOptionSize = 4
)

// AllOptionSizes is the default option set of a slot.
var AllOptionSizes = []int{1, 2, 3, 4}

// =============================================================================
// SLOT
// =============================================================================

type SlotID string

type SlotStatus string

const (
	SlotOpen    SlotStatus = "open"
	SlotSettled SlotStatus = "settled"
	// SlotExpired is a slot that started before any option filled.
	SlotExpired SlotStatus = "expired"
)

// Slot is a bookable time window with its competing options.
// Immutable once enrollments exist, except for the settle transition.
type Slot struct {
	ID          SlotID
	ClubID      string
	StartTime   time.Time
	EndTime     time.Time
	TotalPrice  decimal.Decimal
	OptionSizes []int

	// Informational, supplied by scheduling.
	Level    string
	Category string

	Status          SlotStatus
	ConfirmedOption int       // 0 unless settled
	SettledAt       time.Time // set on settle and on expiry
	CreatedAt       time.Time
}

// HasOption reports whether size is one of the slot's options.
func (s Slot) HasOption(size int) bool {
	for _, o := range s.OptionSizes {
		if o == size {
			return true
		}
	}
	return false
}

// Settled reports whether an option has been confirmed.
func (s Slot) Settled() bool { return s.Status == SlotSettled }

// Expired reports whether the slot was closed without a confirmed option.
func (s Slot) Expired() bool { return s.Status == SlotExpired }

// Started reports whether the slot has begun at now.
func (s Slot) Started(now time.Time) bool { return !now.Before(s.StartTime) }

// PricePerHead splits the total price across size players, rounded to cents.
func (s Slot) PricePerHead(size int) decimal.Decimal {
	return s.TotalPrice.DivRound(decimal.NewFromInt(int64(size)), 2)
}

// Normalize fills defaults and sorts the option sizes.
func (s *Slot) Normalize() {
	if len(s.OptionSizes) == 0 {
		s.OptionSizes = append([]int(nil), AllOptionSizes...)
	}
	sizes := append([]int(nil), s.OptionSizes...)
	sort.Ints(sizes)
	s.OptionSizes = sizes
	if s.Status == "" {
		s.Status = SlotOpen
	}
}

// Validate checks the scheduling input.
func (s Slot) Validate() error {
	if strings.TrimSpace(string(s.ID)) == "" {
		return fmt.Errorf("%w: empty slot id", ErrInvalidSlot)
	}
	if strings.TrimSpace(s.ClubID) == "" {
		return fmt.Errorf("%w: empty club id", ErrInvalidSlot)
	}
	if s.StartTime.IsZero() || !s.EndTime.After(s.StartTime) {
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidSlot)
	}
	if !s.TotalPrice.IsPositive() {
		return fmt.Errorf("%w: total price must be positive", ErrInvalidSlot)
	}
	seen := make(map[int]bool, len(s.OptionSizes))
	for _, size := range s.OptionSizes {
		if size < MinOptionSize || size > MaxOptionSize {
			return fmt.Errorf("%w: %d", ErrInvalidOptionSize, size)
		}
		if seen[size] {
			return fmt.Errorf("%w: option %d listed twice", ErrInvalidSlot, size)
		}
		seen[size] = true
	}
	return nil
}

// =============================================================================
// ENROLLMENT
// =============================================================================

type EnrollmentID string

type EnrollmentStatus string

const (
	StatusPending   EnrollmentStatus = "pending"
	StatusConfirmed EnrollmentStatus = "confirmed"
	StatusVoided    EnrollmentStatus = "voided"
	StatusCancelled EnrollmentStatus = "cancelled"
)

// Active reports whether the enrollment still holds its spot.
func (s EnrollmentStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

type PaymentMethod string

const (
	PayWithCredit PaymentMethod = "credit"
	PayWithPoints PaymentMethod = "points"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == PayWithCredit || m == PayWithPoints
}

// Enrollment is one user's spot in one option of one slot.
type Enrollment struct {
	ID            EnrollmentID
	SlotID        SlotID
	UserID        string
	OptionSize    int
	SpotIndex     int
	Status        EnrollmentStatus
	PaymentMethod PaymentMethod
	AmountBlocked decimal.Decimal // zero for points-paid spots
	PointsSpent   decimal.Decimal // zero for credit-paid spots
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BookedWithPoints reports whether the spot was paid with loyalty points.
func (e Enrollment) BookedWithPoints() bool { return e.PaymentMethod == PayWithPoints }

// =============================================================================
// DERIVED STATE
// =============================================================================

// Spot is the public view of one enrollment.
type Spot struct {
	EnrollmentID EnrollmentID     `json:"enrollment_id"`
	UserID       string           `json:"user_id"`
	SpotIndex    int              `json:"spot_index"`
	Status       EnrollmentStatus `json:"status"`
}

// OptionState summarizes one option. EnrolledCount counts active spots.
type OptionState struct {
	OptionSize    int             `json:"option_size"`
	PricePerHead  decimal.Decimal `json:"price_per_head"`
	EnrolledCount int             `json:"enrolled_count"`
	Full          bool            `json:"full"`
	Spots         []Spot          `json:"spots"`
}

// SlotState is derived from the slot and its enrollments, never stored.
type SlotState struct {
	SlotID          SlotID              `json:"slot_id"`
	ClubID          string              `json:"club_id"`
	StartTime       time.Time           `json:"start_time"`
	Settled         bool                `json:"settled"`
	Expired         bool                `json:"expired,omitempty"`
	ConfirmedOption int                 `json:"confirmed_option,omitempty"`
	PerOption       map[int]OptionState `json:"per_option"`
}
