package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/slot-engine/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// mapStore is a minimal ledger.Store; transactions are not needed here.
type mapStore struct {
	accounts map[ledger.UserID]ledger.Account
	entries  []ledger.Entry
	points   []ledger.PointTransaction
	failSave bool
}

func newMapStore() *mapStore {
	return &mapStore{accounts: make(map[ledger.UserID]ledger.Account)}
}

func (m *mapStore) GetAccount(_ context.Context, id ledger.UserID) (ledger.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return a, nil
}

func (m *mapStore) SaveAccount(_ context.Context, a ledger.Account) error {
	if m.failSave {
		return errors.New("disk full")
	}
	m.accounts[a.UserID] = a
	return nil
}

func (m *mapStore) AppendEntry(_ context.Context, e ledger.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *mapStore) AppendPointTransaction(_ context.Context, p ledger.PointTransaction) error {
	m.points = append(m.points, p)
	return nil
}

func (m *mapStore) ListEntries(_ context.Context, id ledger.UserID) ([]ledger.Entry, error) {
	var out []ledger.Entry
	for _, e := range m.entries {
		if e.UserID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mapStore) ListPointTransactions(_ context.Context, id ledger.UserID) ([]ledger.PointTransaction, error) {
	var out []ledger.PointTransaction
	for _, p := range m.points {
		if p.UserID == id {
			out = append(out, p)
		}
	}
	return out, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var fixedNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func newTestLedger(store *mapStore) *ledger.Ledger {
	n := 0
	return ledger.New(store,
		ledger.WithClock(func() time.Time { return fixedNow }),
		ledger.WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }),
	)
}

func assertBalance(t *testing.T, a ledger.Account, available, blocked string) {
	t.Helper()
	assert.True(t, a.Available.Equal(dec(available)), "available: got %s want %s", a.Available, available)
	assert.True(t, a.Blocked.Equal(dec(blocked)), "blocked: got %s want %s", a.Blocked, blocked)
}

// =============================================================================
// CREDIT
// =============================================================================

func TestLedger_BlockReleaseConsume(t *testing.T) {
	store := newMapStore()
	led := newTestLedger(store)
	ctx := context.Background()

	// GIVEN: a user with 100 available
	_, err := led.Deposit(ctx, "alice", dec("100"), "dep-1")
	require.NoError(t, err)

	// WHEN: blocking 50, releasing 25, consuming 25
	a, err := led.BlockCredit(ctx, "alice", dec("50"), "e1")
	require.NoError(t, err)
	assertBalance(t, a, "50", "50")

	a, err = led.ReleaseCredit(ctx, "alice", dec("25"), "e1")
	require.NoError(t, err)
	assertBalance(t, a, "75", "25")

	a, err = led.ConsumeBlockedCredit(ctx, "alice", dec("25"), "e1")
	require.NoError(t, err)

	// THEN: consumed credit is gone from the total
	assertBalance(t, a, "75", "0")
	assert.True(t, a.Total().Equal(dec("75")))

	entries, err := led.Entries(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 4)
	types := []ledger.EntryType{entries[0].Type, entries[1].Type, entries[2].Type, entries[3].Type}
	assert.Equal(t, []ledger.EntryType{ledger.EntryDeposit, ledger.EntryBlock, ledger.EntryRelease, ledger.EntryConsume}, types)
	assert.True(t, entries[1].AvailableDelta.Equal(dec("-50")))
	assert.True(t, entries[1].BlockedDelta.Equal(dec("50")))
	assert.Equal(t, "id-2", entries[1].ID)
	assert.True(t, entries[1].CreatedAt.Equal(fixedNow))
}

func TestLedger_BlockCredit_InsufficientFunds(t *testing.T) {
	store := newMapStore()
	led := newTestLedger(store)
	ctx := context.Background()
	_, err := led.Deposit(ctx, "alice", dec("20"), "dep")
	require.NoError(t, err)

	_, err = led.BlockCredit(ctx, "alice", dec("25"), "e1")

	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	var funds *ledger.InsufficientFundsError
	require.ErrorAs(t, err, &funds)
	assert.True(t, funds.Available.Equal(dec("20")))
	assert.True(t, funds.Requested.Equal(dec("25")))

	// Nothing written.
	a, err := led.Balance(ctx, "alice")
	require.NoError(t, err)
	assertBalance(t, a, "20", "0")
	entries, _ := led.Entries(ctx, "alice")
	assert.Len(t, entries, 1)
}

func TestLedger_ReleaseMoreThanBlocked(t *testing.T) {
	led := newTestLedger(newMapStore())
	ctx := context.Background()
	_, err := led.Deposit(ctx, "alice", dec("20"), "dep")
	require.NoError(t, err)
	_, err = led.BlockCredit(ctx, "alice", dec("10"), "e1")
	require.NoError(t, err)

	_, err = led.ReleaseCredit(ctx, "alice", dec("10.01"), "e1")
	assert.ErrorIs(t, err, ledger.ErrInsufficientBlocked)

	_, err = led.ConsumeBlockedCredit(ctx, "alice", dec("11"), "e1")
	assert.ErrorIs(t, err, ledger.ErrInsufficientBlocked)
}

func TestLedger_RefundCredit(t *testing.T) {
	led := newTestLedger(newMapStore())
	ctx := context.Background()

	a, err := led.RefundCredit(ctx, "alice", dec("20"), "e1")
	require.NoError(t, err)
	assertBalance(t, a, "20", "0")
}

func TestLedger_RejectsNonPositiveAmounts(t *testing.T) {
	led := newTestLedger(newMapStore())
	ctx := context.Background()

	for name, call := range map[string]func() error{
		"deposit zero": func() error { _, err := led.Deposit(ctx, "alice", decimal.Zero, ""); return err },
		"block negative": func() error {
			_, err := led.BlockCredit(ctx, "alice", dec("-1"), "")
			return err
		},
		"release zero":  func() error { _, err := led.ReleaseCredit(ctx, "alice", decimal.Zero, ""); return err },
		"consume zero":  func() error { _, err := led.ConsumeBlockedCredit(ctx, "alice", decimal.Zero, ""); return err },
		"refund zero":   func() error { _, err := led.RefundCredit(ctx, "alice", decimal.Zero, ""); return err },
		"spend zero":    func() error { _, err := led.SpendPoints(ctx, "alice", decimal.Zero, ledger.PointsGratisSpot, "", ""); return err },
		"award negative": func() error {
			_, err := led.AwardPoints(ctx, "alice", dec("-1"), ledger.PointsManual, "", "")
			return err
		},
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, call(), ledger.ErrInvalidAmount)
		})
	}
}

func TestLedger_BlankUser(t *testing.T) {
	led := newTestLedger(newMapStore())
	_, err := led.Deposit(context.Background(), "  ", dec("1"), "")
	assert.ErrorIs(t, err, ledger.ErrInvalidUserID)
}

func TestLedger_StoreFailureIsWrapped(t *testing.T) {
	store := newMapStore()
	store.failSave = true
	led := newTestLedger(store)

	_, err := led.Deposit(context.Background(), "alice", dec("1"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

// =============================================================================
// POINTS
// =============================================================================

func TestLedger_Points(t *testing.T) {
	store := newMapStore()
	led := newTestLedger(store)
	ctx := context.Background()

	a, err := led.AwardPoints(ctx, "alice", dec("120"), ledger.PointsSpotBonus, "spot 1", "e1")
	require.NoError(t, err)
	assert.True(t, a.Points.Equal(dec("120")))

	// Zero awards are audit records.
	a, err = led.AwardPoints(ctx, "alice", decimal.Zero, ledger.PointsCancellationLoss, "full penalty", "e2")
	require.NoError(t, err)
	assert.True(t, a.Points.Equal(dec("120")))

	a, err = led.SpendPoints(ctx, "alice", dec("100"), ledger.PointsGratisSpot, "gratis", "e3")
	require.NoError(t, err)
	assert.True(t, a.Points.Equal(dec("20")))

	_, err = led.SpendPoints(ctx, "alice", dec("21"), ledger.PointsGratisSpot, "gratis", "e4")
	require.ErrorIs(t, err, ledger.ErrInsufficientPoints)
	var short *ledger.InsufficientPointsError
	require.ErrorAs(t, err, &short)
	assert.True(t, short.Available.Equal(dec("20")))

	txs, err := led.PointTransactions(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.True(t, txs[2].Points.Equal(dec("-100")), "spends are negative")
	assert.Equal(t, ledger.PointsCancellationLoss, txs[1].Type)
	assert.Equal(t, "e3", txs[2].ReferenceID)

	// Points never touch credit.
	assertBalance(t, a, "0", "0")
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, "33.33", ledger.RoundMoney(dec("33.333")).StringFixed(2))
	assert.Equal(t, "0.01", ledger.RoundMoney(dec("0.005")).StringFixed(2))
}
