/*
Package ledger holds per-user credit and loyalty balances.

PURPOSE:
  The Ledger Store is the leaf component of the settlement engine. Each user
  has one Account row with three decimal balances:

    Available: credit the user can still commit
    Blocked:   credit reserved against pending enrollments, not yet charged
    Points:    loyalty points

  Total credit is Available + Blocked. Every mutation writes an immutable
  Entry (credit movements) or PointTransaction (points) next to the row
  update, so balances can always be explained from the log.

OPERATIONS:
  BlockCredit:          available -> blocked
  ReleaseCredit:        blocked -> available (void, pending cancellation)
  ConsumeBlockedCredit: blocked -> gone (option confirmed, charge final)
  RefundCredit:         -> available (confirmed cancellation refund)
  Deposit:              -> available (top-up)
  AwardPoints / SpendPoints

SINGLE USER:
  No operation touches more than one user. Cross-user effects are issued by
  the settlement engine as several single-user calls inside one store
  transaction.

SEE ALSO:
  - store.go: persistence contract
  - ledger.go: operations
  - settlement/engine.go: orchestrates calls inside one transaction
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ACCOUNT - One row per user
// =============================================================================

type UserID string

// Account is the balance row of one user.
type Account struct {
	UserID    UserID
	Available decimal.Decimal
	Blocked   decimal.Decimal
	Points    decimal.Decimal
	UpdatedAt time.Time
}

// NewAccount returns an empty account.
func NewAccount(userID UserID) Account {
	return Account{
		UserID:    userID,
		Available: decimal.Zero,
		Blocked:   decimal.Zero,
		Points:    decimal.Zero,
	}
}

// Total is available plus blocked credit.
func (a Account) Total() decimal.Decimal {
	return a.Available.Add(a.Blocked)
}

// =============================================================================
// CREDIT ENTRIES - Append-only log of credit movements
// =============================================================================

type EntryType string

const (
	EntryDeposit EntryType = "deposit"
	EntryBlock   EntryType = "block"
	EntryRelease EntryType = "release"
	EntryConsume EntryType = "consume"
	EntryRefund  EntryType = "refund"
)

// Entry records a single credit movement.
//
// AvailableDelta and BlockedDelta are signed; a block of 25 is
// {AvailableDelta: -25, BlockedDelta: +25}.
type Entry struct {
	ID             string
	UserID         UserID
	Type           EntryType
	Amount         decimal.Decimal
	AvailableDelta decimal.Decimal
	BlockedDelta   decimal.Decimal
	ReferenceID    string
	CreatedAt      time.Time
}

// =============================================================================
// POINT TRANSACTIONS - Append-only loyalty audit trail
// =============================================================================

type PointTxType string

const (
	PointsSpotBonus          PointTxType = "spot_bonus"
	PointsGratisSpot         PointTxType = "gratis_spot"
	PointsGratisRefund       PointTxType = "gratis_refund"
	PointsCancellationBonus  PointTxType = "cancellation_bonus"
	PointsCancellationRefund PointTxType = "cancellation_refund"
	PointsCancellationLoss   PointTxType = "cancellation_penalty"
	PointsManual             PointTxType = "manual"
)

// PointTransaction is never mutated. Points is signed: spending is negative.
// A zero-point transaction is a pure audit record.
type PointTransaction struct {
	ID          string
	UserID      UserID
	Points      decimal.Decimal
	Type        PointTxType
	Description string
	ReferenceID string
	CreatedAt   time.Time
}

// RoundMoney rounds a credit amount to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
