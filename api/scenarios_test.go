package api

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/slot-engine/settlement"
	"github.com/warp/slot-engine/store/memory"
)

// =============================================================================
// SCENARIOS
// =============================================================================

func TestListScenarios(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]ScenarioDTO](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, scenarioMultimodal, list[0].ID)
}

func TestMultimodalScenarioReplay(t *testing.T) {
	s := newTestServer(t)

	// GIVEN: the multimodal scenario, u1 holding spots in options 2, 3 and 4
	rec := s.do(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: scenarioMultimodal})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	loaded := decode[ScenarioLoadedDTO](t, rec)
	require.Len(t, loaded.Users, 5)
	assertMoney(t, "191.67", loaded.Users[0].Available)
	assertMoney(t, "108.33", loaded.Users[0].Blocked)
	assert.False(t, loaded.Slot.Settled)
	assert.NotEmpty(t, loaded.Next)

	// WHEN: u2, u3 and u4 fill option 4
	for _, u := range []string{"u2", "u3"} {
		rec := s.enroll(demoSlot, u, 4)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Nil(t, decode[EnrollResponse](t, rec).Settlement)
	}
	rec = s.enroll(demoSlot, "u4", 4)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[EnrollResponse](t, rec)

	// THEN: option 4 is confirmed and u1's other spots are returned
	require.NotNil(t, resp.Settlement)
	assert.Equal(t, 4, resp.Settlement.ConfirmedOption)
	assert.Len(t, resp.Settlement.Confirmed, 4)
	assert.Len(t, resp.Settlement.Voided, 2)

	u1 := s.balance("u1")
	assertMoney(t, "275.00", u1.Available)
	assertMoney(t, "0.00", u1.Blocked)

	rec = s.enroll(demoSlot, "u5", 4)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "slot_already_settled", decode[ErrorResponse](t, rec).Code)
	assertMoney(t, "50.00", s.balance("u5").Available)
}

func TestLateCancelScenario(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: scenarioLateCancel})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	loaded := decode[ScenarioLoadedDTO](t, rec)

	assert.True(t, loaded.Slot.Settled, "a solo enrollment fills option 1")
	assert.Equal(t, 1, loaded.Slot.ConfirmedOption)
	require.Len(t, loaded.Users, 1)
	assertMoney(t, "60.00", loaded.Users[0].Available)
}

func TestLoadScenario_ResetsPreviousData(t *testing.T) {
	s := newTestServer(t)
	s.deposit("stranger", 10)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/scenarios/multimodal", nil).Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/scenarios/multimodal", nil).Code, "loading twice starts over")

	assertMoney(t, "0.00", s.balance("stranger").Available)
}

func TestLoadScenario_Unknown(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "scenario_not_found", decode[ErrorResponse](t, rec).Code)
}

func TestResetStore(t *testing.T) {
	s := newTestServer(t)
	s.scheduleSlot("s1", 100)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/scenarios/reset", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/slots/s1", nil).Code)
}

func TestScenariosDisabled(t *testing.T) {
	store := memory.New()
	engine, err := settlement.New(store)
	require.NoError(t, err)
	router := NewRouter(NewHandler(engine, store, nil), RouterOptions{})
	s := &testServer{t: t, router: router, engine: engine, store: store}

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/scenarios", nil).Code)
}

// =============================================================================
// EXPIRY SCHEDULER
// =============================================================================

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestExpiryScheduler_RunOnce(t *testing.T) {
	clock := &fakeClock{now: time.Now().UTC()}
	s := newTestServer(t, settlement.WithClock(clock.Now))
	s.scheduleSlot("s1", 100)
	s.deposit("alice", 100)
	require.Equal(t, http.StatusCreated, s.enroll("s1", "alice", 4).Code)

	scheduler := NewExpiryScheduler(s.engine, nil)
	ctx := context.Background()

	// GIVEN: the slot has not started
	assert.Equal(t, 0, scheduler.RunOnce(ctx))

	// WHEN: start time passes with option 4 unfilled
	clock.Advance(72 * time.Hour)

	// THEN: the slot expires and alice's reservation is released
	assert.Equal(t, 1, scheduler.RunOnce(ctx))
	assertMoney(t, "100.00", s.balance("alice").Available)

	state := decode[SlotStateDTO](t, s.do(http.MethodGet, "/api/slots/s1", nil))
	assert.True(t, state.Expired)

	assert.Equal(t, 0, scheduler.RunOnce(ctx), "expired slots are not revisited")
}

func TestExpiryScheduler_StartStop(t *testing.T) {
	s := newTestServer(t)
	scheduler := NewExpiryScheduler(s.engine, nil)
	scheduler.CheckInterval = 10 * time.Millisecond

	scheduler.Start()
	scheduler.Start()
	time.Sleep(30 * time.Millisecond)
	scheduler.Stop()
	scheduler.Stop()
}

func TestExpireSlotEndpoint(t *testing.T) {
	clock := &fakeClock{now: time.Now().UTC()}
	s := newTestServer(t, settlement.WithClock(clock.Now))
	s.scheduleSlot("s1", 100, 2, 4)
	s.deposit("alice", 100)
	require.Equal(t, http.StatusCreated, s.enroll("s1", "alice", 2).Code)

	clock.Advance(72 * time.Hour)
	rec := s.do(http.MethodPost, "/api/slots/s1/expire", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "s1", body["slot_id"])
	assert.Len(t, body["voided"], 1)

	rec = s.do(http.MethodPost, "/api/slots/s1/expire", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
