/*
scenarios.go - Demo scenario loaders

PURPOSE:

	Populates the store with a ready-to-replay situation so the settlement
	rules can be explored over HTTP.

AVAILABLE SCENARIOS:

	multimodal:      One slot offering options 1-4, five funded players, u1
	                 already hedging across options 2, 3 and 4. Filling option
	                 4 settles the slot and returns u1's other reservations.
	late-cancel:     A confirmed solo booking at a club with 2h/1h penalty tiers.

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Configure the club
 3. Schedule the slot two days ahead
 4. Fund the players
 5. Place the opening enrollments through the engine

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "multimodal"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/slot-engine/ledger"
	"github.com/warp/slot-engine/policy"
	"github.com/warp/slot-engine/settlement"
	"github.com/warp/slot-engine/slots"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

const (
	scenarioMultimodal = "multimodal"
	scenarioLateCancel = "late-cancel"

	demoClub = "club-demo"
	demoSlot = "demo-slot"
)

var scenarios = []ScenarioDTO{
	{
		ID:          scenarioMultimodal,
		Name:        "Multimodal Slot",
		Description: "u1 hedges across options 2-4; three more players fill option 4 and settle the slot",
	},
	{
		ID:          scenarioLateCancel,
		Name:        "Late Cancellation",
		Description: "Confirmed solo booking; cancelling inside a penalty tier converts the penalty into points",
	},
}

// LoadScenarioRequest selects a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario resets the store and loads the requested scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.loadScenario(w, r, req.ScenarioID)
}

// LoadMultimodal is a shortcut for the multimodal scenario.
// POST /api/scenarios/multimodal
func (h *Handler) LoadMultimodal(w http.ResponseWriter, r *http.Request) {
	h.loadScenario(w, r, scenarioMultimodal)
}

// ResetStore drops all data.
// POST /api/scenarios/reset
func (h *Handler) ResetStore(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", "internal", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) loadScenario(w http.ResponseWriter, r *http.Request, id string) {
	var load func(context.Context, *settlement.Engine) ([]string, error)
	var info ScenarioDTO
	for _, s := range scenarios {
		if s.ID == id {
			info = s
		}
	}
	switch id {
	case scenarioMultimodal:
		load = loadMultimodalScenario
	case scenarioLateCancel:
		load = loadLateCancelScenario
	default:
		writeError(w, http.StatusNotFound, "Unknown scenario", "scenario_not_found", fmt.Errorf("scenario %q", id))
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", "internal", err)
		return
	}
	users, err := load(ctx, h.Engine)
	if err != nil {
		h.writeEngineError(w, fmt.Errorf("load scenario %s: %w", id, err))
		return
	}

	state, err := h.Engine.SlotState(ctx, demoSlot)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	resp := ScenarioLoadedDTO{
		Scenario: info,
		Slot:     toSlotStateDTO(state),
		Users:    make([]AccountDTO, 0, len(users)),
		Next:     scenarioNextSteps(id),
	}
	for _, u := range users {
		account, err := h.Engine.Balance(ctx, u)
		if err != nil {
			h.writeEngineError(w, err)
			return
		}
		resp.Users = append(resp.Users, toAccountDTO(account))
	}
	h.log.Info("scenario loaded", zap.String("scenario", id))
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func demoStart() time.Time {
	return time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)
}

func demoClubConfig() policy.ClubConfig {
	cfg := policy.DefaultClubConfig(demoClub)
	cfg.PenaltyTiers = []policy.PenaltyTier{
		{HoursBefore: 2, PenaltyPercentage: decimal.NewFromInt(50)},
		{HoursBefore: 1, PenaltyPercentage: decimal.NewFromInt(100)},
	}
	return cfg
}

func scheduleDemoSlot(ctx context.Context, engine *settlement.Engine, price int64, sizes ...int) error {
	start := demoStart()
	_, err := engine.ScheduleSlot(ctx, slots.Slot{
		ID:          demoSlot,
		ClubID:      demoClub,
		StartTime:   start,
		EndTime:     start.Add(90 * time.Minute),
		TotalPrice:  decimal.NewFromInt(price),
		OptionSizes: sizes,
		Level:       "intermediate",
		Category:    "mixed",
	})
	return err
}

func fund(ctx context.Context, engine *settlement.Engine, amounts map[string]int64) error {
	for user, amount := range amounts {
		if _, err := engine.Deposit(ctx, user, ledger.RoundMoney(decimal.NewFromInt(amount))); err != nil {
			return err
		}
	}
	return nil
}

// loadMultimodalScenario: slot at €100 with options 1-4. u1 holds pending
// spots in options 2, 3 and 4 (€50 + €33.33 + €25 blocked).
func loadMultimodalScenario(ctx context.Context, engine *settlement.Engine) ([]string, error) {
	if err := engine.ConfigureClub(ctx, demoClubConfig()); err != nil {
		return nil, err
	}
	if err := scheduleDemoSlot(ctx, engine, 100, 1, 2, 3, 4); err != nil {
		return nil, err
	}
	users := []string{"u1", "u2", "u3", "u4", "u5"}
	if err := fund(ctx, engine, map[string]int64{"u1": 300, "u2": 50, "u3": 50, "u4": 50, "u5": 50}); err != nil {
		return nil, err
	}
	for _, size := range []int{2, 3, 4} {
		if _, err := engine.Enroll(ctx, settlement.EnrollRequest{UserID: "u1", SlotID: demoSlot, OptionSize: size}); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// loadLateCancelScenario: €40 solo slot confirmed for alice.
func loadLateCancelScenario(ctx context.Context, engine *settlement.Engine) ([]string, error) {
	if err := engine.ConfigureClub(ctx, demoClubConfig()); err != nil {
		return nil, err
	}
	if err := scheduleDemoSlot(ctx, engine, 40, 1, 2); err != nil {
		return nil, err
	}
	if err := fund(ctx, engine, map[string]int64{"alice": 100}); err != nil {
		return nil, err
	}
	if _, err := engine.Enroll(ctx, settlement.EnrollRequest{UserID: "alice", SlotID: demoSlot, OptionSize: 1}); err != nil {
		return nil, err
	}
	return []string{"alice"}, nil
}

func scenarioNextSteps(id string) []string {
	switch id {
	case scenarioMultimodal:
		return []string{
			`POST /api/slots/demo-slot/enrollments {"user_id":"u2","option_size":4}`,
			`POST /api/slots/demo-slot/enrollments {"user_id":"u3","option_size":4}`,
			`POST /api/slots/demo-slot/enrollments {"user_id":"u4","option_size":4}  settles option 4`,
			`POST /api/slots/demo-slot/enrollments {"user_id":"u5","option_size":4}  409 slot_already_settled`,
			`GET /api/users/u1/balance`,
		}
	case scenarioLateCancel:
		return []string{
			`GET /api/slots/demo-slot`,
			`DELETE /api/enrollments/{enrollment_id}?user_id=alice`,
			`GET /api/users/alice/point-transactions`,
		}
	}
	return nil
}
