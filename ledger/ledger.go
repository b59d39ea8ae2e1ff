package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// LEDGER - Single-user balance operations over a Store
// =============================================================================

// Ledger applies balance operations to one user at a time.
// Each call reads the account, checks the invariant, writes the row and one
// log entry. Callers wrap calls in a store transaction.
type Ledger struct {
	store Store
	now   func() time.Time
	newID func() string
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the timestamp source for log entries.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithIDGenerator overrides the id source for log entries.
func WithIDGenerator(newID func() string) Option {
	return func(l *Ledger) {
		if newID != nil {
			l.newID = newID
		}
	}
}

// New returns a Ledger over store.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Balance returns the account, or an empty one for unknown users.
func (l *Ledger) Balance(ctx context.Context, userID UserID) (Account, error) {
	return l.load(ctx, userID)
}

// Deposit adds credit to the available balance.
func (l *Ledger) Deposit(ctx context.Context, userID UserID, amount decimal.Decimal, referenceID string) (Account, error) {
	if err := requirePositive(amount); err != nil {
		return Account{}, err
	}
	return l.apply(ctx, userID, EntryDeposit, amount, amount, decimal.Zero, referenceID)
}

// BlockCredit moves amount from available to blocked.
func (l *Ledger) BlockCredit(ctx context.Context, userID UserID, amount decimal.Decimal, referenceID string) (Account, error) {
	if err := requirePositive(amount); err != nil {
		return Account{}, err
	}
	account, err := l.load(ctx, userID)
	if err != nil {
		return Account{}, err
	}
	if account.Available.LessThan(amount) {
		return Account{}, &InsufficientFundsError{
			UserID:    userID,
			Available: account.Available,
			Requested: amount,
		}
	}
	return l.write(ctx, account, EntryBlock, amount, amount.Neg(), amount, referenceID)
}

// ReleaseCredit moves amount from blocked back to available.
func (l *Ledger) ReleaseCredit(ctx context.Context, userID UserID, amount decimal.Decimal, referenceID string) (Account, error) {
	if err := requirePositive(amount); err != nil {
		return Account{}, err
	}
	account, err := l.load(ctx, userID)
	if err != nil {
		return Account{}, err
	}
	if account.Blocked.LessThan(amount) {
		return Account{}, fmt.Errorf("release %s for %s: %w", amount.StringFixed(2), userID, ErrInsufficientBlocked)
	}
	return l.write(ctx, account, EntryRelease, amount, amount, amount.Neg(), referenceID)
}

// ConsumeBlockedCredit removes amount from blocked, and therefore from total credit.
func (l *Ledger) ConsumeBlockedCredit(ctx context.Context, userID UserID, amount decimal.Decimal, referenceID string) (Account, error) {
	if err := requirePositive(amount); err != nil {
		return Account{}, err
	}
	account, err := l.load(ctx, userID)
	if err != nil {
		return Account{}, err
	}
	if account.Blocked.LessThan(amount) {
		return Account{}, fmt.Errorf("consume %s for %s: %w", amount.StringFixed(2), userID, ErrInsufficientBlocked)
	}
	return l.write(ctx, account, EntryConsume, amount, decimal.Zero, amount.Neg(), referenceID)
}

// RefundCredit returns previously consumed credit to the available balance.
func (l *Ledger) RefundCredit(ctx context.Context, userID UserID, amount decimal.Decimal, referenceID string) (Account, error) {
	if err := requirePositive(amount); err != nil {
		return Account{}, err
	}
	return l.apply(ctx, userID, EntryRefund, amount, amount, decimal.Zero, referenceID)
}

// AwardPoints adds points and records a PointTransaction.
// Zero points are allowed and produce an audit-only record.
func (l *Ledger) AwardPoints(ctx context.Context, userID UserID, points decimal.Decimal, txType PointTxType, description, referenceID string) (Account, error) {
	if points.IsNegative() {
		return Account{}, fmt.Errorf("%w: award of %s points", ErrInvalidAmount, points)
	}
	account, err := l.load(ctx, userID)
	if err != nil {
		return Account{}, err
	}
	account.Points = account.Points.Add(points)
	return l.writePoints(ctx, account, points, txType, description, referenceID)
}

// SpendPoints removes points and records a negative PointTransaction.
func (l *Ledger) SpendPoints(ctx context.Context, userID UserID, points decimal.Decimal, txType PointTxType, description, referenceID string) (Account, error) {
	if err := requirePositive(points); err != nil {
		return Account{}, err
	}
	account, err := l.load(ctx, userID)
	if err != nil {
		return Account{}, err
	}
	if account.Points.LessThan(points) {
		return Account{}, &InsufficientPointsError{
			UserID:    userID,
			Available: account.Points,
			Requested: points,
		}
	}
	account.Points = account.Points.Sub(points)
	return l.writePoints(ctx, account, points.Neg(), txType, description, referenceID)
}

// Entries returns the credit log of a user.
func (l *Ledger) Entries(ctx context.Context, userID UserID) ([]Entry, error) {
	return l.store.ListEntries(ctx, userID)
}

// PointTransactions returns the points log of a user.
func (l *Ledger) PointTransactions(ctx context.Context, userID UserID) ([]PointTransaction, error) {
	return l.store.ListPointTransactions(ctx, userID)
}

// =============================================================================
// INTERNALS
// =============================================================================

func (l *Ledger) load(ctx context.Context, userID UserID) (Account, error) {
	if strings.TrimSpace(string(userID)) == "" {
		return Account{}, ErrInvalidUserID
	}
	account, err := l.store.GetAccount(ctx, userID)
	if errors.Is(err, ErrAccountNotFound) {
		return NewAccount(userID), nil
	}
	if err != nil {
		return Account{}, fmt.Errorf("load account %s: %w", userID, err)
	}
	return account, nil
}

func (l *Ledger) apply(ctx context.Context, userID UserID, entryType EntryType, amount, availableDelta, blockedDelta decimal.Decimal, referenceID string) (Account, error) {
	account, err := l.load(ctx, userID)
	if err != nil {
		return Account{}, err
	}
	return l.write(ctx, account, entryType, amount, availableDelta, blockedDelta, referenceID)
}

func (l *Ledger) write(ctx context.Context, account Account, entryType EntryType, amount, availableDelta, blockedDelta decimal.Decimal, referenceID string) (Account, error) {
	now := l.now()
	account.Available = account.Available.Add(availableDelta)
	account.Blocked = account.Blocked.Add(blockedDelta)
	account.UpdatedAt = now

	if err := l.store.SaveAccount(ctx, account); err != nil {
		return Account{}, fmt.Errorf("save account %s: %w", account.UserID, err)
	}
	entry := Entry{
		ID:             l.newID(),
		UserID:         account.UserID,
		Type:           entryType,
		Amount:         amount,
		AvailableDelta: availableDelta,
		BlockedDelta:   blockedDelta,
		ReferenceID:    referenceID,
		CreatedAt:      now,
	}
	if err := l.store.AppendEntry(ctx, entry); err != nil {
		return Account{}, fmt.Errorf("append %s entry for %s: %w", entryType, account.UserID, err)
	}
	return account, nil
}

func (l *Ledger) writePoints(ctx context.Context, account Account, signedPoints decimal.Decimal, txType PointTxType, description, referenceID string) (Account, error) {
	now := l.now()
	account.UpdatedAt = now
	if err := l.store.SaveAccount(ctx, account); err != nil {
		return Account{}, fmt.Errorf("save account %s: %w", account.UserID, err)
	}
	tx := PointTransaction{
		ID:          l.newID(),
		UserID:      account.UserID,
		Points:      signedPoints,
		Type:        txType,
		Description: description,
		ReferenceID: referenceID,
		CreatedAt:   now,
	}
	if err := l.store.AppendPointTransaction(ctx, tx); err != nil {
		return Account{}, fmt.Errorf("append %s points for %s: %w", txType, account.UserID, err)
	}
	return account, nil
}

func requirePositive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s must be greater than zero", ErrInvalidAmount, amount)
	}
	return nil
}
