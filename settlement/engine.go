// Package settlement enrolls players into slot options and settles a slot the
// moment one option fills.
//
// Every state-changing call runs under the slot's lock and inside one store
// transaction: the credit ledger, the points log and the enrollment rows move
// together or not at all.
//
// Flow of one enrollment:
//
//	Enroll ──► lock slot ──► WithTx {
//	                admit (slots.Tracker)
//	                block credit | spend points (ledger.Ledger)
//	                award spot bonus (policy.AwardPoints)
//	                option full? ──► confirm option, consume blocked credit,
//	                                 void other options, release their credit
//	            }
package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/slot-engine/ledger"
	"github.com/warp/slot-engine/lock"
	"github.com/warp/slot-engine/policy"
	"github.com/warp/slot-engine/slots"
)

// DefaultLockTimeout bounds how long a call waits for a slot's lock.
const DefaultLockTimeout = 2 * time.Second

// Engine is the settlement service. Safe for concurrent use.
type Engine struct {
	store       TxStore
	locker      lock.Locker
	lockTimeout time.Duration
	now         func() time.Time
	newID       func() string
	logger      OperationLogger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocker replaces the in-process slot lock.
func WithLocker(locker lock.Locker) Option {
	return func(e *Engine) {
		if locker != nil {
			e.locker = locker
		}
	}
}

// WithLockTimeout bounds the wait for a slot lock. Non-positive values are ignored.
func WithLockTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		if timeout > 0 {
			e.lockTimeout = timeout
		}
	}
}

// WithClock overrides the engine's notion of now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator overrides enrollment and log entry ids.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

// WithOperationLogger installs a hook receiving one record per call.
func WithOperationLogger(logger OperationLogger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New returns an Engine over store.
func New(store TxStore, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidEngineConfig)
	}
	e := &Engine{
		store:       store,
		locker:      lock.NewLocal(),
		lockTimeout: DefaultLockTimeout,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// =============================================================================
// ENROLL
// =============================================================================

// Enroll admits the user into an option of a slot, reserves the price per head
// (or spends points) and, if the option becomes full, settles the slot.
//
// Rejections leave every balance and enrollment untouched.
func (e *Engine) Enroll(ctx context.Context, req EnrollRequest) (EnrollResult, error) {
	started := time.Now()
	result, err := e.enroll(ctx, req)
	entry := OperationLog{
		Operation:  operationEnroll,
		UserID:     req.UserID,
		SlotID:     string(req.SlotID),
		OptionSize: req.OptionSize,
		Error:      err,
	}
	if err == nil {
		entry.EnrollmentID = string(result.Enrollment.ID)
		entry.Amount = result.AmountCharged
		entry.Points = result.PointsAwarded.Sub(result.PointsSpent)
		entry.Outcome = string(result.Enrollment.Status)
	}
	e.logOperation(ctx, started, entry)
	return result, err
}

func (e *Engine) enroll(ctx context.Context, req EnrollRequest) (EnrollResult, error) {
	if err := req.validate(); err != nil {
		return EnrollResult{}, err
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = slots.PayWithCredit
	}

	release, err := e.lockSlot(ctx, req.SlotID)
	if err != nil {
		return EnrollResult{}, err
	}
	defer release()

	var result EnrollResult
	err = e.store.WithTx(ctx, func(tx Tx) error {
		now := e.now()
		slot, err := tx.GetSlot(ctx, req.SlotID)
		if err != nil {
			return err
		}
		if slot.Started(now) {
			return fmt.Errorf("enroll in %s starting %s: %w", slot.ID, slot.StartTime.Format(time.RFC3339), ErrSlotAlreadyStarted)
		}
		cfg, err := clubConfig(ctx, tx, slot.ClubID)
		if err != nil {
			return err
		}

		admit := slots.AdmitRequest{
			SlotID:        slot.ID,
			OptionSize:    req.OptionSize,
			UserID:        req.UserID,
			PaymentMethod: req.PaymentMethod,
		}
		if req.PaymentMethod == slots.PayWithPoints {
			admit.PointsSpent = cfg.PointsCostForGratisSpot
		} else {
			admit.AmountBlocked = slot.PricePerHead(req.OptionSize)
		}

		tracker := e.tracker(tx)
		led := e.ledger(tx)
		admission, err := tracker.Admit(ctx, admit)
		if err != nil {
			return err
		}
		enrollment := admission.Enrollment
		user := ledger.UserID(req.UserID)
		ref := string(enrollment.ID)

		var awarded decimal.Decimal
		if enrollment.BookedWithPoints() {
			desc := fmt.Sprintf("gratis spot on slot %s, option %d", slot.ID, enrollment.OptionSize)
			if _, err := led.SpendPoints(ctx, user, enrollment.PointsSpent, ledger.PointsGratisSpot, desc, ref); err != nil {
				return err
			}
		} else {
			if enrollment.AmountBlocked.IsPositive() {
				if _, err := led.BlockCredit(ctx, user, enrollment.AmountBlocked, ref); err != nil {
					return err
				}
			}
			awarded = policy.AwardPoints(cfg.BasePoints, enrollment.OptionSize, enrollment.SpotIndex, now, slot.StartTime)
			desc := fmt.Sprintf("spot %d of option %d on slot %s", enrollment.SpotIndex+1, enrollment.OptionSize, slot.ID)
			if _, err := led.AwardPoints(ctx, user, awarded, ledger.PointsSpotBonus, desc, ref); err != nil {
				return err
			}
		}

		var outcome *Outcome
		if admission.Full {
			outcome, err = e.settle(ctx, tracker, led, slot, enrollment.OptionSize)
			if err != nil {
				return fmt.Errorf("settle %s on option %d: %w", slot.ID, enrollment.OptionSize, err)
			}
			enrollment.Status = slots.StatusConfirmed
			enrollment.UpdatedAt = now
		}

		account, err := led.Balance(ctx, user)
		if err != nil {
			return err
		}
		result = EnrollResult{
			Enrollment:    enrollment,
			PricePerHead:  slot.PricePerHead(enrollment.OptionSize),
			AmountCharged: enrollment.AmountBlocked,
			PointsSpent:   enrollment.PointsSpent,
			PointsAwarded: awarded,
			Account:       account,
			Settlement:    outcome,
		}
		return nil
	})
	if err != nil {
		return EnrollResult{}, err
	}
	return result, nil
}

// settle confirms the full option, consumes the confirmed players' credit and
// voids every pending spot the same players and everyone else hold in the
// slot's other options. Users are processed in id order.
func (e *Engine) settle(ctx context.Context, tracker *slots.Tracker, led *ledger.Ledger, slot slots.Slot, optionSize int) (*Outcome, error) {
	confirmed, err := tracker.ConfirmOption(ctx, slot.ID, optionSize)
	if err != nil {
		return nil, err
	}
	for _, c := range confirmed {
		if c.BookedWithPoints() || !c.AmountBlocked.IsPositive() {
			continue
		}
		if _, err := led.ConsumeBlockedCredit(ctx, ledger.UserID(c.UserID), c.AmountBlocked, string(c.ID)); err != nil {
			return nil, err
		}
	}

	users, err := tracker.UsersPendingOutside(ctx, slot.ID, optionSize)
	if err != nil {
		return nil, err
	}
	var voided []slots.Enrollment
	for _, userID := range users {
		released, err := tracker.VoidOthersForUser(ctx, slot.ID, userID, optionSize)
		if err != nil {
			return nil, err
		}
		for _, v := range released {
			reason := fmt.Sprintf("option %d voided, option %d confirmed", v.OptionSize, optionSize)
			if err := refundVoided(ctx, led, v, reason); err != nil {
				return nil, err
			}
		}
		voided = append(voided, released...)
	}
	return &Outcome{
		SlotID:          slot.ID,
		ConfirmedOption: optionSize,
		Confirmed:       confirmed,
		Voided:          voided,
	}, nil
}

func refundVoided(ctx context.Context, led *ledger.Ledger, v slots.Enrollment, reason string) error {
	user := ledger.UserID(v.UserID)
	if v.BookedWithPoints() {
		if !v.PointsSpent.IsPositive() {
			return nil
		}
		_, err := led.AwardPoints(ctx, user, v.PointsSpent, ledger.PointsGratisRefund, reason, string(v.ID))
		return err
	}
	if !v.AmountBlocked.IsPositive() {
		return nil
	}
	_, err := led.ReleaseCredit(ctx, user, v.AmountBlocked, string(v.ID))
	return err
}

// =============================================================================
// EXPIRY
// =============================================================================

// ExpireSlot closes a slot that reached its start time without a full option
// and returns every pending reservation on it.
func (e *Engine) ExpireSlot(ctx context.Context, slotID slots.SlotID) (ExpiryResult, error) {
	started := time.Now()
	result, err := e.expire(ctx, slotID)
	e.logOperation(ctx, started, OperationLog{
		Operation: operationExpireSlot,
		SlotID:    string(slotID),
		Amount:    result.Released,
		Points:    result.PointsRefunded,
		Outcome:   fmt.Sprintf("%d voided", len(result.Voided)),
		Error:     err,
	})
	return result, err
}

func (e *Engine) expire(ctx context.Context, slotID slots.SlotID) (ExpiryResult, error) {
	release, err := e.lockSlot(ctx, slotID)
	if err != nil {
		return ExpiryResult{}, err
	}
	defer release()

	result := ExpiryResult{SlotID: slotID}
	err = e.store.WithTx(ctx, func(tx Tx) error {
		slot, err := tx.GetSlot(ctx, slotID)
		if err != nil {
			return err
		}
		if !slot.Started(e.now()) {
			return fmt.Errorf("%w: slot %s starts %s", ErrSlotNotStarted, slot.ID, slot.StartTime.Format(time.RFC3339))
		}
		voided, err := e.tracker(tx).Expire(ctx, slot.ID)
		if err != nil {
			return err
		}
		led := e.ledger(tx)
		for _, v := range voided {
			reason := fmt.Sprintf("slot %s started with option %d unfilled", slot.ID, v.OptionSize)
			if err := refundVoided(ctx, led, v, reason); err != nil {
				return err
			}
			if v.BookedWithPoints() {
				result.PointsRefunded = result.PointsRefunded.Add(v.PointsSpent)
			} else {
				result.Released = result.Released.Add(v.AmountBlocked)
			}
		}
		result.Voided = voided
		return nil
	})
	if err != nil {
		return ExpiryResult{SlotID: slotID}, err
	}
	return result, nil
}

// ExpireStarted expires every open slot that has started. Slots settled or
// expired concurrently are skipped.
func (e *Engine) ExpireStarted(ctx context.Context) ([]ExpiryResult, error) {
	var due []slots.Slot
	err := e.store.WithTx(ctx, func(tx Tx) error {
		var err error
		due, err = tx.ListOpenSlots(ctx, e.now())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list started slots: %w", err)
	}

	var results []ExpiryResult
	for _, slot := range due {
		res, err := e.ExpireSlot(ctx, slot.ID)
		if errors.Is(err, ErrSlotAlreadySettled) {
			continue
		}
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// =============================================================================
// CANCEL
// =============================================================================

// Cancel cancels the user's enrollment at the current time.
func (e *Engine) Cancel(ctx context.Context, userID string, enrollmentID slots.EnrollmentID) (CancelResult, error) {
	return e.CancelAt(ctx, userID, enrollmentID, e.now())
}

// CancelAt cancels the user's enrollment as of now.
//
// A pending enrollment is refunded in full. A confirmed enrollment is refunded
// minus the club's penalty for the time left before the slot starts; the
// penalized part of a partial penalty converts into points.
func (e *Engine) CancelAt(ctx context.Context, userID string, enrollmentID slots.EnrollmentID, now time.Time) (CancelResult, error) {
	started := time.Now()
	result, err := e.cancel(ctx, userID, enrollmentID, now)
	entry := OperationLog{
		Operation:    operationCancel,
		UserID:       userID,
		EnrollmentID: string(enrollmentID),
		Error:        err,
	}
	if err == nil {
		entry.SlotID = string(result.Enrollment.SlotID)
		entry.OptionSize = result.Enrollment.OptionSize
		entry.Amount = result.RefundAmount
		entry.Points = result.PointsAwarded.Add(result.PointsRefunded)
		entry.Outcome = string(result.PreviousStatus)
	}
	e.logOperation(ctx, started, entry)
	return result, err
}

func (e *Engine) cancel(ctx context.Context, userID string, enrollmentID slots.EnrollmentID, now time.Time) (CancelResult, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(string(enrollmentID)) == "" {
		return CancelResult{}, fmt.Errorf("%w: user id and enrollment id are required", ErrInvalidRequest)
	}

	// The lock is keyed by slot; the slot is only known from the enrollment.
	var slotID slots.SlotID
	err := e.store.WithTx(ctx, func(tx Tx) error {
		en, err := ownedEnrollment(ctx, tx, userID, enrollmentID)
		if err != nil {
			return err
		}
		slotID = en.SlotID
		return nil
	})
	if err != nil {
		return CancelResult{}, err
	}

	release, err := e.lockSlot(ctx, slotID)
	if err != nil {
		return CancelResult{}, err
	}
	defer release()

	var result CancelResult
	err = e.store.WithTx(ctx, func(tx Tx) error {
		en, err := ownedEnrollment(ctx, tx, userID, enrollmentID)
		if err != nil {
			return err
		}
		if !en.Status.Active() {
			return fmt.Errorf("cancel %s (%s): %w", en.ID, en.Status, ErrEnrollmentClosed)
		}
		slot, err := tx.GetSlot(ctx, en.SlotID)
		if err != nil {
			return err
		}
		if slot.Started(now) {
			return fmt.Errorf("cancel %s of slot starting %s: %w", en.ID, slot.StartTime.Format(time.RFC3339), ErrSlotAlreadyStarted)
		}
		cfg, err := clubConfig(ctx, tx, slot.ClubID)
		if err != nil {
			return err
		}

		before, err := e.tracker(tx).Cancel(ctx, en.ID)
		if err != nil {
			return err
		}
		led := e.ledger(tx)
		switch before.Status {
		case slots.StatusPending:
			result, err = cancelPending(ctx, led, before)
		case slots.StatusConfirmed:
			result, err = cancelConfirmed(ctx, led, cfg, slot, before, now)
		default:
			err = fmt.Errorf("cancel %s (%s): %w", before.ID, before.Status, ErrEnrollmentClosed)
		}
		if err != nil {
			return err
		}

		result.PreviousStatus = before.Status
		result.Enrollment = before
		result.Enrollment.Status = slots.StatusCancelled
		result.Enrollment.UpdatedAt = now
		result.Account, err = led.Balance(ctx, ledger.UserID(userID))
		return err
	})
	if err != nil {
		return CancelResult{}, err
	}
	return result, nil
}

// cancelPending returns everything the pending spot had reserved.
func cancelPending(ctx context.Context, led *ledger.Ledger, en slots.Enrollment) (CancelResult, error) {
	user := ledger.UserID(en.UserID)
	ref := string(en.ID)
	var result CancelResult
	if en.BookedWithPoints() {
		desc := fmt.Sprintf("pending option %d cancelled: points refunded", en.OptionSize)
		if _, err := led.AwardPoints(ctx, user, en.PointsSpent, ledger.PointsGratisRefund, desc, ref); err != nil {
			return CancelResult{}, err
		}
		result.PointsRefunded = en.PointsSpent
		return result, nil
	}

	if en.AmountBlocked.IsPositive() {
		if _, err := led.ReleaseCredit(ctx, user, en.AmountBlocked, ref); err != nil {
			return CancelResult{}, err
		}
	}
	desc := fmt.Sprintf("pending option %d cancelled: %s released", en.OptionSize, en.AmountBlocked.StringFixed(2))
	if _, err := led.AwardPoints(ctx, user, decimal.Zero, ledger.PointsCancellationRefund, desc, ref); err != nil {
		return CancelResult{}, err
	}
	result.RefundAmount = en.AmountBlocked
	return result, nil
}

// cancelConfirmed prices a late withdrawal from a settled slot.
// The seat is not resold; the slot stays settled.
func cancelConfirmed(ctx context.Context, led *ledger.Ledger, cfg policy.ClubConfig, slot slots.Slot, en slots.Enrollment, now time.Time) (CancelResult, error) {
	user := ledger.UserID(en.UserID)
	ref := string(en.ID)
	hundred := decimal.NewFromInt(100)

	if en.BookedWithPoints() {
		desc := fmt.Sprintf("confirmed gratis spot on slot %s cancelled: points are final", slot.ID)
		if _, err := led.AwardPoints(ctx, user, decimal.Zero, ledger.PointsCancellationLoss, desc, ref); err != nil {
			return CancelResult{}, err
		}
		return CancelResult{PenaltyApplied: true, PenaltyPercentage: hundred}, nil
	}

	hoursBefore := slot.StartTime.Sub(now).Hours()
	pct := policy.ComputePenalty(cfg.PenaltyTiers, hoursBefore)
	refund, penalized := policy.Refund(en.AmountBlocked, pct)
	points := policy.CancellationPoints(penalized, pct, cfg.CancellationPointPerEuro)

	if refund.IsPositive() {
		if _, err := led.RefundCredit(ctx, user, refund, ref); err != nil {
			return CancelResult{}, err
		}
	}

	txType := ledger.PointsCancellationBonus
	desc := fmt.Sprintf("cancelled %.1fh before start: %s%% penalty, %s refunded", hoursBefore, pct.String(), refund.StringFixed(2))
	switch {
	case pct.IsZero():
		txType = ledger.PointsCancellationRefund
	case pct.GreaterThanOrEqual(hundred):
		txType = ledger.PointsCancellationLoss
	}
	if _, err := led.AwardPoints(ctx, user, points, txType, desc, ref); err != nil {
		return CancelResult{}, err
	}

	return CancelResult{
		RefundAmount:      refund,
		PenalizedAmount:   penalized,
		PointsAwarded:     points,
		PenaltyApplied:    pct.IsPositive(),
		PenaltyPercentage: pct,
	}, nil
}

// =============================================================================
// SLOTS, CLUBS, ACCOUNTS
// =============================================================================

// ScheduleSlot registers a new open slot.
func (e *Engine) ScheduleSlot(ctx context.Context, slot slots.Slot) (slots.Slot, error) {
	started := time.Now()
	if slot.ID == "" {
		slot.ID = slots.SlotID(e.newID())
	}
	slot.Normalize()
	err := slot.Validate()
	if err == nil {
		slot.CreatedAt = e.now()
		err = e.store.WithTx(ctx, func(tx Tx) error {
			return tx.InsertSlot(ctx, slot)
		})
	}
	e.logOperation(ctx, started, OperationLog{
		Operation: operationScheduleSlot,
		SlotID:    string(slot.ID),
		ClubID:    slot.ClubID,
		Amount:    slot.TotalPrice,
		Error:     err,
	})
	if err != nil {
		return slots.Slot{}, err
	}
	return slot, nil
}

// SlotState returns the per-option view of a slot.
func (e *Engine) SlotState(ctx context.Context, slotID slots.SlotID) (slots.SlotState, error) {
	var state slots.SlotState
	err := e.store.WithTx(ctx, func(tx Tx) error {
		var err error
		state, err = e.tracker(tx).State(ctx, slotID)
		return err
	})
	return state, err
}

// Slot returns a slot by id.
func (e *Engine) Slot(ctx context.Context, slotID slots.SlotID) (slots.Slot, error) {
	var slot slots.Slot
	err := e.store.WithTx(ctx, func(tx Tx) error {
		var err error
		slot, err = tx.GetSlot(ctx, slotID)
		return err
	})
	return slot, err
}

// ConfigureClub validates and stores a club's rules.
// Later enrollments and cancellations of the club's slots use them.
func (e *Engine) ConfigureClub(ctx context.Context, cfg policy.ClubConfig) error {
	started := time.Now()
	err := cfg.Validate()
	if err == nil {
		err = e.store.WithTx(ctx, func(tx Tx) error {
			return tx.SaveClubConfig(ctx, cfg)
		})
	}
	e.logOperation(ctx, started, OperationLog{
		Operation: operationConfigureClub,
		ClubID:    cfg.ClubID,
		Error:     err,
	})
	return err
}

// ClubConfig returns the rules applied to a club's slots.
func (e *Engine) ClubConfig(ctx context.Context, clubID string) (policy.ClubConfig, error) {
	var cfg policy.ClubConfig
	err := e.store.WithTx(ctx, func(tx Tx) error {
		var err error
		cfg, err = clubConfig(ctx, tx, clubID)
		return err
	})
	return cfg, err
}

// Deposit adds credit to a user's available balance.
func (e *Engine) Deposit(ctx context.Context, userID string, amount decimal.Decimal) (ledger.Account, error) {
	started := time.Now()
	var account ledger.Account
	err := e.store.WithTx(ctx, func(tx Tx) error {
		var err error
		account, err = e.ledger(tx).Deposit(ctx, ledger.UserID(userID), ledger.RoundMoney(amount), "deposit:"+e.newID())
		return err
	})
	e.logOperation(ctx, started, OperationLog{
		Operation: operationDeposit,
		UserID:    userID,
		Amount:    amount,
		Error:     err,
	})
	if err != nil {
		return ledger.Account{}, err
	}
	return account, nil
}

// Balance returns a user's credit and points.
func (e *Engine) Balance(ctx context.Context, userID string) (ledger.Account, error) {
	var account ledger.Account
	err := e.store.WithTx(ctx, func(tx Tx) error {
		var err error
		account, err = e.ledger(tx).Balance(ctx, ledger.UserID(userID))
		return err
	})
	return account, err
}

// PointTransactions returns a user's points log, oldest first.
func (e *Engine) PointTransactions(ctx context.Context, userID string) ([]ledger.PointTransaction, error) {
	var txs []ledger.PointTransaction
	err := e.store.WithTx(ctx, func(tx Tx) error {
		var err error
		txs, err = e.ledger(tx).PointTransactions(ctx, ledger.UserID(userID))
		return err
	})
	return txs, err
}

// Entries returns a user's credit log, oldest first.
func (e *Engine) Entries(ctx context.Context, userID string) ([]ledger.Entry, error) {
	var entries []ledger.Entry
	err := e.store.WithTx(ctx, func(tx Tx) error {
		var err error
		entries, err = e.ledger(tx).Entries(ctx, ledger.UserID(userID))
		return err
	})
	return entries, err
}

// =============================================================================
// INTERNALS
// =============================================================================

func (e *Engine) lockSlot(ctx context.Context, slotID slots.SlotID) (func(), error) {
	release, err := e.locker.Acquire(ctx, "slot:"+string(slotID), e.lockTimeout)
	if err != nil {
		return nil, fmt.Errorf("lock slot %s: %w", slotID, err)
	}
	return release, nil
}

func (e *Engine) tracker(tx Tx) *slots.Tracker {
	return slots.NewTracker(tx, e.now, e.newID)
}

func (e *Engine) ledger(tx Tx) *ledger.Ledger {
	return ledger.New(tx, ledger.WithClock(e.now), ledger.WithIDGenerator(e.newID))
}

// clubConfig falls back to the defaults for clubs never configured.
func clubConfig(ctx context.Context, store policy.Store, clubID string) (policy.ClubConfig, error) {
	cfg, err := store.GetClubConfig(ctx, clubID)
	if errors.Is(err, policy.ErrClubConfigNotFound) {
		return policy.DefaultClubConfig(clubID), nil
	}
	if err != nil {
		return policy.ClubConfig{}, fmt.Errorf("load club config %s: %w", clubID, err)
	}
	return cfg, nil
}

// ownedEnrollment hides other users' enrollments behind ErrEnrollmentNotFound.
func ownedEnrollment(ctx context.Context, tx Tx, userID string, id slots.EnrollmentID) (slots.Enrollment, error) {
	en, err := tx.GetEnrollment(ctx, id)
	if err != nil {
		return slots.Enrollment{}, err
	}
	if en.UserID != userID {
		return slots.Enrollment{}, fmt.Errorf("enrollment %s of user %s: %w", id, userID, ErrEnrollmentNotFound)
	}
	return en, nil
}
