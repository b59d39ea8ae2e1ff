package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/slot-engine/lock"
	"github.com/warp/slot-engine/policy"
	"github.com/warp/slot-engine/settlement"
	"github.com/warp/slot-engine/slots"
	"github.com/warp/slot-engine/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type testServer struct {
	t      *testing.T
	router http.Handler
	engine *settlement.Engine
	store  *memory.Store
}

func newTestServer(t *testing.T, opts ...settlement.Option) *testServer {
	t.Helper()
	store := memory.New()
	engine, err := settlement.New(store, opts...)
	require.NoError(t, err)
	h := NewHandler(engine, store, nil)
	return &testServer{
		t:      t,
		router: NewRouter(h, RouterOptions{Scenarios: true}),
		engine: engine,
		store:  store,
	}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) scheduleSlot(id string, price int64, sizes ...int) {
	s.t.Helper()
	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)
	rec := s.do(http.MethodPost, "/api/slots", ScheduleSlotRequest{
		ID:          id,
		ClubID:      "club-1",
		StartTime:   start,
		EndTime:     start.Add(90 * time.Minute),
		TotalPrice:  decimal.NewFromInt(price),
		OptionSizes: sizes,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *testServer) deposit(user string, amount int64) {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/users/"+user+"/deposits", DepositRequest{Amount: decimal.NewFromInt(amount)})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
}

func (s *testServer) enroll(slotID, user string, size int) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.do(http.MethodPost, "/api/slots/"+slotID+"/enrollments", EnrollRequest{UserID: user, OptionSize: size})
}

func (s *testServer) balance(user string) AccountDTO {
	s.t.Helper()
	rec := s.do(http.MethodGet, "/api/users/"+user+"/balance", nil)
	require.Equal(s.t, http.StatusOK, rec.Code)
	return decode[AccountDTO](s.t, rec)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(2))
}

// =============================================================================
// FLOWS
// =============================================================================

func TestEnrollAndSettle(t *testing.T) {
	s := newTestServer(t)
	s.scheduleSlot("s1", 100, 2, 4)
	s.deposit("alice", 100)
	s.deposit("bob", 100)

	// GIVEN: alice hedges across both options
	rec := s.enroll("s1", "alice", 4)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[EnrollResponse](t, rec)
	assert.Equal(t, "pending", first.Enrollment.Status)
	assertMoney(t, "25.00", first.AmountCharged)
	assert.Nil(t, first.Settlement)

	require.Equal(t, http.StatusCreated, s.enroll("s1", "alice", 2).Code)

	// WHEN: bob fills option 2
	rec = s.enroll("s1", "bob", 2)
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[EnrollResponse](t, rec)

	// THEN: the slot settles on option 2
	assert.Equal(t, "confirmed", resp.Enrollment.Status)
	require.NotNil(t, resp.Settlement)
	assert.Equal(t, 2, resp.Settlement.ConfirmedOption)
	assert.Len(t, resp.Settlement.Confirmed, 2)
	require.Len(t, resp.Settlement.Voided, 1)
	assert.Equal(t, "alice", resp.Settlement.Voided[0].UserID)

	alice := s.balance("alice")
	assertMoney(t, "50.00", alice.Available)
	assertMoney(t, "0.00", alice.Blocked)

	rec = s.do(http.MethodGet, "/api/slots/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[SlotStateDTO](t, rec)
	assert.True(t, state.Settled)
	assert.Equal(t, 2, state.ConfirmedOption)
	require.Len(t, state.Options, 2)
	assert.Equal(t, 2, state.Options[0].OptionSize, "options are ordered by size")
	assert.True(t, state.Options[0].Full)

	rec = s.enroll("s1", "carol", 4)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "slot_already_settled", decode[ErrorResponse](t, rec).Code)
}

func TestCancelEnrollment(t *testing.T) {
	s := newTestServer(t)
	s.scheduleSlot("s1", 100)
	s.deposit("alice", 100)
	en := decode[EnrollResponse](t, s.enroll("s1", "alice", 4)).Enrollment

	rec := s.do(http.MethodDelete, "/api/enrollments/"+en.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "user_id is required")

	rec = s.do(http.MethodDelete, "/api/enrollments/"+en.ID+"?user_id=bob", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodDelete, "/api/enrollments/"+en.ID+"?user_id=alice", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[CancelResponse](t, rec)
	assert.Equal(t, "pending", resp.PreviousStatus)
	assert.Equal(t, "cancelled", resp.Enrollment.Status)
	assertMoney(t, "25.00", resp.RefundAmount)
	assertMoney(t, "100.00", resp.Account.Available)

	rec = s.do(http.MethodDelete, "/api/enrollments/"+en.ID+"?user_id=alice", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "enrollment_closed", decode[ErrorResponse](t, rec).Code)
}

func TestClubConfig(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/clubs/club-1/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	defaults := decode[policy.ClubConfigJSON](t, rec)
	assert.Equal(t, "club-1", defaults.ClubID)
	assert.Empty(t, defaults.PenaltyTiers)

	rec = s.do(http.MethodPut, "/api/clubs/club-1/config", `{
		"penalty_tiers": [{"hours_before": 2, "penalty_percentage": 50}],
		"points_cost_for_gratis_spot": 150
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	saved := decode[policy.ClubConfigJSON](t, rec)
	assert.Equal(t, "club-1", saved.ClubID, "the path names the club")
	require.NotNil(t, saved.PointsCostForGratisSpot)
	assert.Equal(t, "150", saved.PointsCostForGratisSpot.String())

	cfg, err := s.engine.ClubConfig(context.Background(), "club-1")
	require.NoError(t, err)
	assert.Len(t, cfg.PenaltyTiers, 1)

	rec = s.do(http.MethodPut, "/api/clubs/club-1/config", `{"penalty_tiers": [{"hours_before": 1, "penalty_percentage": 150}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_club_config", decode[ErrorResponse](t, rec).Code)
}

func TestUserHistory(t *testing.T) {
	s := newTestServer(t)
	s.scheduleSlot("s1", 100)
	s.deposit("alice", 100)
	require.Equal(t, http.StatusCreated, s.enroll("s1", "alice", 4).Code)

	rec := s.do(http.MethodGet, "/api/users/alice/entries", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]EntryDTO](t, rec)
	require.Len(t, entries, 2)
	assert.Equal(t, "deposit", entries[0].Type)
	assert.Equal(t, "block", entries[1].Type)

	rec = s.do(http.MethodGet, "/api/users/alice/point-transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	txs := decode[[]PointTransactionDTO](t, rec)
	require.Len(t, txs, 1)
	assert.Equal(t, "spot_bonus", txs[0].Type)

	rec = s.do(http.MethodGet, "/api/users/nobody/entries", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestErrorStatuses(t *testing.T) {
	s := newTestServer(t)
	s.scheduleSlot("s1", 100, 2, 4)
	s.deposit("alice", 30)
	require.Equal(t, http.StatusCreated, s.enroll("s1", "alice", 4).Code)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"malformed body", http.MethodPost, "/api/slots/s1/enrollments", `{"user_id":`, http.StatusBadRequest, "invalid_body"},
		{"unknown field", http.MethodPost, "/api/slots/s1/enrollments", `{"user":"x","option_size":2}`, http.StatusBadRequest, "invalid_body"},
		{"option not offered", http.MethodPost, "/api/slots/s1/enrollments", EnrollRequest{UserID: "alice", OptionSize: 3}, http.StatusBadRequest, "invalid_option_size"},
		{"missing user", http.MethodPost, "/api/slots/s1/enrollments", EnrollRequest{OptionSize: 2}, http.StatusBadRequest, "invalid_request"},
		{"unknown slot", http.MethodPost, "/api/slots/nope/enrollments", EnrollRequest{UserID: "alice", OptionSize: 2}, http.StatusNotFound, "slot_not_found"},
		{"unknown slot state", http.MethodGet, "/api/slots/nope", nil, http.StatusNotFound, "slot_not_found"},
		{"duplicate", http.MethodPost, "/api/slots/s1/enrollments", EnrollRequest{UserID: "alice", OptionSize: 4}, http.StatusConflict, "duplicate_enrollment"},
		{"insufficient funds", http.MethodPost, "/api/slots/s1/enrollments", EnrollRequest{UserID: "alice", OptionSize: 2}, http.StatusUnprocessableEntity, "insufficient_funds"},
		{"negative deposit", http.MethodPost, "/api/users/alice/deposits", DepositRequest{Amount: decimal.NewFromInt(-1)}, http.StatusBadRequest, "invalid_request"},
		{"slot exists", http.MethodPost, "/api/slots", ScheduleSlotRequest{ID: "s1", ClubID: "c", StartTime: time.Now().Add(time.Hour), EndTime: time.Now().Add(2 * time.Hour), TotalPrice: decimal.NewFromInt(10)}, http.StatusConflict, "slot_exists"},
		{"expire before start", http.MethodPost, "/api/slots/s1/expire", nil, http.StatusBadRequest, "slot_not_started"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestBusySlotReturns503(t *testing.T) {
	locker := lock.NewLocal()
	s := newTestServer(t, settlement.WithLocker(locker), settlement.WithLockTimeout(10*time.Millisecond))
	s.scheduleSlot("s1", 100)
	s.deposit("alice", 100)

	release, err := locker.Acquire(context.Background(), "slot:s1", time.Second)
	require.NoError(t, err)
	defer release()

	rec := s.enroll("s1", "alice", 4)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "busy", decode[ErrorResponse](t, rec).Code)
}

func TestClassify(t *testing.T) {
	status, code := classify(errors.New("disk on fire"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal", code)

	status, code = classify(fmt.Errorf("enroll: %w", &slots.AdmissionError{Reason: slots.ErrOptionFull}))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "option_full", code)

	status, _ = classify(settlement.ErrInsufficientPoints)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestInternalErrorHidesDetails(t *testing.T) {
	s := newTestServer(t)
	h := NewHandler(s.engine, s.store, nil)
	rec := httptest.NewRecorder()
	h.writeEngineError(rec, errors.New("constraint failed: secret table"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
}
