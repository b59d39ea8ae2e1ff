// Package storetest is the behavioral contract every settlement.TxStore meets.
// Backends call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/slot-engine/ledger"
	"github.com/warp/slot-engine/policy"
	"github.com/warp/slot-engine/settlement"
	"github.com/warp/slot-engine/slots"
)

// Factory returns an empty store.
type Factory func(t *testing.T) settlement.TxStore

var errRollback = errors.New("rollback")

// Run executes the contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("AccountRoundTrip", func(t *testing.T) { testAccountRoundTrip(t, newStore(t)) })
	t.Run("LogsAreOrdered", func(t *testing.T) { testLogsAreOrdered(t, newStore(t)) })
	t.Run("RollbackDiscardsWrites", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("SlotLifecycle", func(t *testing.T) { testSlotLifecycle(t, newStore(t)) })
	t.Run("SlotExpiry", func(t *testing.T) { testSlotExpiry(t, newStore(t)) })
	t.Run("EnrollmentStatus", func(t *testing.T) { testEnrollmentStatus(t, newStore(t)) })
	t.Run("ActiveEnrollmentUniqueness", func(t *testing.T) { testActiveUniqueness(t, newStore(t)) })
	t.Run("ClubConfig", func(t *testing.T) { testClubConfig(t, newStore(t)) })
}

var (
	t0    = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	start = time.Date(2025, 6, 3, 18, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testSlot(id slots.SlotID) slots.Slot {
	return slots.Slot{
		ID:          id,
		ClubID:      "club-1",
		StartTime:   start,
		EndTime:     start.Add(90 * time.Minute),
		TotalPrice:  dec("100"),
		OptionSizes: []int{1, 2, 4},
		Level:       "intermediate",
		Status:      slots.SlotOpen,
		CreatedAt:   t0,
	}
}

func testEnrollment(id slots.EnrollmentID, slotID slots.SlotID, user string, size, spot int) slots.Enrollment {
	return slots.Enrollment{
		ID:            id,
		SlotID:        slotID,
		UserID:        user,
		OptionSize:    size,
		SpotIndex:     spot,
		Status:        slots.StatusPending,
		PaymentMethod: slots.PayWithCredit,
		AmountBlocked: dec("100").DivRound(decimal.NewFromInt(int64(size)), 2),
		PointsSpent:   decimal.Zero,
		CreatedAt:     t0,
		UpdatedAt:     t0,
	}
}

func withTx(t *testing.T, s settlement.TxStore, fn func(tx settlement.Tx) error) {
	t.Helper()
	require.NoError(t, s.WithTx(context.Background(), fn))
}

func testAccountRoundTrip(t *testing.T, s settlement.TxStore) {
	ctx := context.Background()
	withTx(t, s, func(tx settlement.Tx) error {
		_, err := tx.GetAccount(ctx, "nobody")
		assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

		account := ledger.Account{
			UserID:    "alice",
			Available: dec("66.67"),
			Blocked:   dec("33.33"),
			Points:    dec("12"),
			UpdatedAt: t0,
		}
		require.NoError(t, tx.SaveAccount(ctx, account))
		account.Available = dec("50.00")
		require.NoError(t, tx.SaveAccount(ctx, account))

		got, err := tx.GetAccount(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, got.Available.Equal(dec("50")), "available %s", got.Available)
		assert.True(t, got.Blocked.Equal(dec("33.33")), "blocked %s", got.Blocked)
		assert.True(t, got.Points.Equal(dec("12")))
		assert.True(t, got.UpdatedAt.Equal(t0))
		return nil
	})
}

func testLogsAreOrdered(t *testing.T, s settlement.TxStore) {
	ctx := context.Background()
	withTx(t, s, func(tx settlement.Tx) error {
		for i, typ := range []ledger.EntryType{ledger.EntryDeposit, ledger.EntryBlock, ledger.EntryConsume} {
			require.NoError(t, tx.AppendEntry(ctx, ledger.Entry{
				ID:             string(rune('a' + i)),
				UserID:         "alice",
				Type:           typ,
				Amount:         dec("25"),
				AvailableDelta: dec("-25"),
				BlockedDelta:   dec("25"),
				ReferenceID:    "ref",
				CreatedAt:      t0,
			}))
		}
		require.NoError(t, tx.AppendEntry(ctx, ledger.Entry{ID: "z", UserID: "bob", Type: ledger.EntryDeposit, Amount: dec("1"), CreatedAt: t0}))
		require.NoError(t, tx.AppendPointTransaction(ctx, ledger.PointTransaction{ID: "p1", UserID: "alice", Points: dec("8"), Type: ledger.PointsSpotBonus, CreatedAt: t0}))
		require.NoError(t, tx.AppendPointTransaction(ctx, ledger.PointTransaction{ID: "p2", UserID: "alice", Points: dec("-100"), Type: ledger.PointsGratisSpot, Description: "gratis", CreatedAt: t0}))
		return nil
	})

	withTx(t, s, func(tx settlement.Tx) error {
		entries, err := tx.ListEntries(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, ledger.EntryDeposit, entries[0].Type)
		assert.Equal(t, ledger.EntryConsume, entries[2].Type)
		assert.True(t, entries[1].AvailableDelta.Equal(dec("-25")))
		assert.Equal(t, "ref", entries[1].ReferenceID)

		pts, err := tx.ListPointTransactions(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, pts, 2)
		assert.True(t, pts[1].Points.Equal(dec("-100")))
		assert.Equal(t, "gratis", pts[1].Description)

		none, err := tx.ListPointTransactions(ctx, "carol")
		require.NoError(t, err)
		assert.Empty(t, none)
		return nil
	})
}

func testRollback(t *testing.T, s settlement.TxStore) {
	ctx := context.Background()
	withTx(t, s, func(tx settlement.Tx) error {
		return tx.SaveAccount(ctx, ledger.Account{UserID: "alice", Available: dec("10"), Blocked: decimal.Zero, Points: decimal.Zero, UpdatedAt: t0})
	})

	err := s.WithTx(ctx, func(tx settlement.Tx) error {
		require.NoError(t, tx.SaveAccount(ctx, ledger.Account{UserID: "alice", Available: dec("0"), Blocked: dec("10"), Points: decimal.Zero, UpdatedAt: t0}))
		require.NoError(t, tx.AppendEntry(ctx, ledger.Entry{ID: "e1", UserID: "alice", Type: ledger.EntryBlock, Amount: dec("10"), CreatedAt: t0}))
		require.NoError(t, tx.InsertSlot(ctx, testSlot("s-rollback")))
		return errRollback
	})
	assert.ErrorIs(t, err, errRollback)

	withTx(t, s, func(tx settlement.Tx) error {
		account, err := tx.GetAccount(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, account.Available.Equal(dec("10")))
		assert.True(t, account.Blocked.IsZero())

		entries, err := tx.ListEntries(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, entries)

		_, err = tx.GetSlot(ctx, "s-rollback")
		assert.ErrorIs(t, err, slots.ErrSlotNotFound)
		return nil
	})
}

func testSlotLifecycle(t *testing.T, s settlement.TxStore) {
	ctx := context.Background()
	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	withTx(t, s, func(tx settlement.Tx) error {
		slot := testSlot("s1")
		slot.StartTime = slot.StartTime.In(madrid)
		require.NoError(t, tx.InsertSlot(ctx, slot))
		assert.ErrorIs(t, tx.InsertSlot(ctx, slot), slots.ErrSlotExists)

		_, err := tx.GetSlot(ctx, "missing")
		assert.ErrorIs(t, err, slots.ErrSlotNotFound)

		got, err := tx.GetSlot(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "club-1", got.ClubID)
		assert.Equal(t, []int{1, 2, 4}, got.OptionSizes)
		assert.True(t, got.TotalPrice.Equal(dec("100")))
		assert.True(t, got.StartTime.Equal(start))
		assert.Equal(t, "Europe/Madrid", got.StartTime.Location().String())
		assert.Equal(t, "intermediate", got.Level)
		assert.False(t, got.Settled())

		require.NoError(t, tx.SettleSlot(ctx, "s1", 2, t0))
		assert.ErrorIs(t, tx.SettleSlot(ctx, "s1", 4, t0), slots.ErrSlotAlreadySettled)
		assert.ErrorIs(t, tx.SettleSlot(ctx, "missing", 4, t0), slots.ErrSlotNotFound)

		got, err = tx.GetSlot(ctx, "s1")
		require.NoError(t, err)
		assert.True(t, got.Settled())
		assert.Equal(t, 2, got.ConfirmedOption)
		assert.True(t, got.SettledAt.Equal(t0))
		return nil
	})
}

func testSlotExpiry(t *testing.T, s settlement.TxStore) {
	ctx := context.Background()
	withTx(t, s, func(tx settlement.Tx) error {
		early := testSlot("early")
		early.StartTime = start.Add(-time.Hour)
		early.EndTime = start
		require.NoError(t, tx.InsertSlot(ctx, testSlot("s1")))
		require.NoError(t, tx.InsertSlot(ctx, early))
		require.NoError(t, tx.InsertSlot(ctx, testSlot("later")))
		require.NoError(t, tx.SettleSlot(ctx, "later", 2, t0))

		open, err := tx.ListOpenSlots(ctx, t0)
		require.NoError(t, err)
		assert.Empty(t, open, "nothing has started yet")

		open, err = tx.ListOpenSlots(ctx, start)
		require.NoError(t, err)
		require.Len(t, open, 2)
		assert.Equal(t, slots.SlotID("early"), open[0].ID)
		assert.Equal(t, slots.SlotID("s1"), open[1].ID)

		require.NoError(t, tx.ExpireSlot(ctx, "s1", start))
		assert.ErrorIs(t, tx.ExpireSlot(ctx, "s1", start), slots.ErrSlotAlreadySettled)
		assert.ErrorIs(t, tx.ExpireSlot(ctx, "later", start), slots.ErrSlotAlreadySettled)
		assert.ErrorIs(t, tx.ExpireSlot(ctx, "missing", start), slots.ErrSlotNotFound)

		got, err := tx.GetSlot(ctx, "s1")
		require.NoError(t, err)
		assert.True(t, got.Expired())
		assert.Equal(t, 0, got.ConfirmedOption)
		assert.True(t, got.SettledAt.Equal(start))

		open, err = tx.ListOpenSlots(ctx, start)
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, slots.SlotID("early"), open[0].ID)
		return nil
	})
}

func testEnrollmentStatus(t *testing.T, s settlement.TxStore) {
	ctx := context.Background()
	withTx(t, s, func(tx settlement.Tx) error {
		require.NoError(t, tx.InsertSlot(ctx, testSlot("s1")))
		require.NoError(t, tx.InsertEnrollment(ctx, testEnrollment("e2", "s1", "bob", 4, 0)))
		require.NoError(t, tx.InsertEnrollment(ctx, testEnrollment("e1", "s1", "alice", 2, 0)))
		require.NoError(t, tx.InsertEnrollment(ctx, testEnrollment("e3", "s1", "alice", 4, 1)))

		list, err := tx.ListEnrollments(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, slots.EnrollmentID("e1"), list[0].ID)
		assert.Equal(t, slots.EnrollmentID("e2"), list[1].ID)
		assert.Equal(t, slots.EnrollmentID("e3"), list[2].ID)
		assert.True(t, list[0].AmountBlocked.Equal(dec("50")))

		later := t0.Add(time.Hour)
		require.NoError(t, tx.UpdateEnrollmentStatus(ctx, "e1", slots.StatusPending, slots.StatusConfirmed, later))
		err = tx.UpdateEnrollmentStatus(ctx, "e1", slots.StatusPending, slots.StatusVoided, later)
		assert.ErrorIs(t, err, slots.ErrStatusConflict)
		err = tx.UpdateEnrollmentStatus(ctx, "missing", slots.StatusPending, slots.StatusVoided, later)
		assert.ErrorIs(t, err, slots.ErrEnrollmentNotFound)

		got, err := tx.GetEnrollment(ctx, "e1")
		require.NoError(t, err)
		assert.Equal(t, slots.StatusConfirmed, got.Status)
		assert.True(t, got.UpdatedAt.Equal(later))

		_, err = tx.GetEnrollment(ctx, "missing")
		assert.ErrorIs(t, err, slots.ErrEnrollmentNotFound)
		return nil
	})
}

func testActiveUniqueness(t *testing.T, s settlement.TxStore) {
	ctx := context.Background()
	withTx(t, s, func(tx settlement.Tx) error {
		require.NoError(t, tx.InsertSlot(ctx, testSlot("s1")))
		require.NoError(t, tx.InsertEnrollment(ctx, testEnrollment("e1", "s1", "alice", 4, 0)))

		// Same option, still active.
		err := tx.InsertEnrollment(ctx, testEnrollment("e2", "s1", "alice", 4, 1))
		assert.ErrorIs(t, err, slots.ErrDuplicateEnrollment)

		// Hedging into another option is fine.
		require.NoError(t, tx.InsertEnrollment(ctx, testEnrollment("e3", "s1", "alice", 2, 0)))

		// After cancelling, the user may come back with a new spot number.
		require.NoError(t, tx.UpdateEnrollmentStatus(ctx, "e1", slots.StatusPending, slots.StatusCancelled, t0))
		require.NoError(t, tx.InsertEnrollment(ctx, testEnrollment("e4", "s1", "alice", 4, 1)))
		return nil
	})
}

func testClubConfig(t *testing.T, s settlement.TxStore) {
	ctx := context.Background()
	withTx(t, s, func(tx settlement.Tx) error {
		_, err := tx.GetClubConfig(ctx, "club-1")
		assert.ErrorIs(t, err, policy.ErrClubConfigNotFound)

		cfg := policy.DefaultClubConfig("club-1")
		cfg.PenaltyTiers = []policy.PenaltyTier{
			{HoursBefore: 2, PenaltyPercentage: dec("50")},
			{HoursBefore: 1, PenaltyPercentage: dec("100")},
		}
		cfg.CancellationPointPerEuro = dec("2")
		require.NoError(t, tx.SaveClubConfig(ctx, cfg))

		cfg.PointsCostForGratisSpot = dec("150")
		require.NoError(t, tx.SaveClubConfig(ctx, cfg))

		got, err := tx.GetClubConfig(ctx, "club-1")
		require.NoError(t, err)
		require.Len(t, got.PenaltyTiers, 2)
		assert.True(t, got.PenaltyTiers[0].PenaltyPercentage.Equal(dec("50")))
		assert.True(t, got.PointsCostForGratisSpot.Equal(dec("150")))
		assert.True(t, got.CancellationPointPerEuro.Equal(dec("2")))
		assert.True(t, got.BasePoints[4][3].Equal(dec("3")))
		return nil
	})
}
