/*
handlers.go - HTTP API handlers for slot enrollment and settlement

PURPOSE:
  Exposes the settlement engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates every decision to settlement.Engine.

ENDPOINTS:
  Slots:
    POST   /api/slots                         Schedule a slot
    GET    /api/slots/{id}                    Per-option state
    POST   /api/slots/{id}/enrollments        Enroll into an option
    POST   /api/slots/{id}/expire             Close a started, unfilled slot

  Enrollments:
    DELETE /api/enrollments/{id}?user_id=     Cancel

  Clubs:
    GET    /api/clubs/{id}/config             Effective rules
    PUT    /api/clubs/{id}/config             Replace rules

  Users:
    POST   /api/users/{id}/deposits           Top up credit
    GET    /api/users/{id}/balance            Credit and points
    GET    /api/users/{id}/entries            Credit movements
    GET    /api/users/{id}/point-transactions Points movements

ERROR HANDLING:
  Engine errors map to HTTP status by class:
  - 400: Validation errors, invalid input
  - 404: Slot or enrollment not found
  - 409: Admission conflicts (settled, full, duplicate), closed enrollments
  - 422: Insufficient credit or points
  - 503: Slot busy, with Retry-After
  - 500: Internal errors

SECURITY NOTE:
  No authentication. The caller-supplied user_id is trusted.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/slot-engine/policy"
	"github.com/warp/slot-engine/settlement"
	"github.com/warp/slot-engine/slots"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Resetter drops all stored data. Used by demo scenarios.
type Resetter interface {
	Reset(ctx context.Context) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *settlement.Engine
	Store  Resetter
	log    *zap.Logger
}

// NewHandler creates a new handler. A nil logger discards output.
func NewHandler(engine *settlement.Engine, store Resetter, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Engine: engine, Store: store, log: log}
}

// Health reports whether the store answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Store unavailable", "store_unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SLOT HANDLERS
// =============================================================================

// ScheduleSlot registers a new slot.
// POST /api/slots
func (h *Handler) ScheduleSlot(w http.ResponseWriter, r *http.Request) {
	var req ScheduleSlotRequest
	if !decodeBody(w, r, &req) {
		return
	}
	slot, err := h.Engine.ScheduleSlot(r.Context(), slots.Slot{
		ID:          slots.SlotID(req.ID),
		ClubID:      req.ClubID,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		TotalPrice:  req.TotalPrice,
		OptionSizes: req.OptionSizes,
		Level:       req.Level,
		Category:    req.Category,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSlotDTO(slot))
}

// GetSlot returns the per-option state of a slot.
// GET /api/slots/{id}
func (h *Handler) GetSlot(w http.ResponseWriter, r *http.Request) {
	state, err := h.Engine.SlotState(r.Context(), slots.SlotID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotStateDTO(state))
}

// Enroll takes a spot in one option of a slot.
// POST /api/slots/{id}/enrollments
func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.Engine.Enroll(r.Context(), settlement.EnrollRequest{
		UserID:        req.UserID,
		SlotID:        slots.SlotID(chi.URLParam(r, "id")),
		OptionSize:    req.OptionSize,
		PaymentMethod: slots.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEnrollResponse(result))
}

// ExpireSlot closes a started slot that never filled.
// POST /api/slots/{id}/expire
func (h *Handler) ExpireSlot(w http.ResponseWriter, r *http.Request) {
	result, err := h.Engine.ExpireSlot(r.Context(), slots.SlotID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"slot_id":         result.SlotID,
		"voided":          toEnrollmentDTOs(result.Voided),
		"released":        result.Released,
		"points_refunded": result.PointsRefunded,
	})
}

// =============================================================================
// ENROLLMENT HANDLERS
// =============================================================================

// CancelEnrollment cancels the caller's enrollment.
// DELETE /api/enrollments/{id}?user_id=
func (h *Handler) CancelEnrollment(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if strings.TrimSpace(userID) == "" {
		writeError(w, http.StatusBadRequest, "user_id query parameter is required", "invalid_request", nil)
		return
	}
	result, err := h.Engine.Cancel(r.Context(), userID, slots.EnrollmentID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCancelResponse(result))
}

// =============================================================================
// CLUB HANDLERS
// =============================================================================

// GetClubConfig returns the rules applied to a club's slots.
// GET /api/clubs/{id}/config
func (h *Handler) GetClubConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Engine.ClubConfig(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, policy.ToJSON(cfg))
}

// PutClubConfig replaces a club's rules. Omitted fields take the defaults.
// PUT /api/clubs/{id}/config
func (h *Handler) PutClubConfig(w http.ResponseWriter, r *http.Request) {
	var doc policy.ClubConfigJSON
	if !decodeBody(w, r, &doc) {
		return
	}
	doc.ClubID = chi.URLParam(r, "id")
	cfg, err := policy.FromJSON(doc)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	if err := h.Engine.ConfigureClub(r.Context(), cfg); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, policy.ToJSON(cfg))
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// Deposit adds credit to a user.
// POST /api/users/{id}/deposits
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if !decodeBody(w, r, &req) {
		return
	}
	account, err := h.Engine.Deposit(r.Context(), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(account))
}

// GetBalance returns a user's credit and points.
// GET /api/users/{id}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	account, err := h.Engine.Balance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(account))
}

// GetEntries returns a user's credit movements, oldest first.
// GET /api/users/{id}/entries
func (h *Handler) GetEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Engine.Entries(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTOs(entries))
}

// GetPointTransactions returns a user's points movements, oldest first.
// GET /api/users/{id}/point-transactions
func (h *Handler) GetPointTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Engine.PointTransactions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPointTransactionDTOs(txs))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message, code string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "invalid_body", err)
		return false
	}
	return true
}

// writeEngineError maps the engine's error classes to HTTP status codes.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	switch status {
	case http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", "1")
	case http.StatusInternalServerError:
		h.log.Error("engine call failed", zap.Error(err))
		writeError(w, status, "Internal error", code, nil)
		return
	}
	writeError(w, status, http.StatusText(status), code, err)
}

var errorCodes = []struct {
	err  error
	code string
}{
	{settlement.ErrSlotAlreadySettled, "slot_already_settled"},
	{settlement.ErrSlotExpired, "slot_expired"},
	{settlement.ErrOptionFull, "option_full"},
	{settlement.ErrDuplicateEnrollment, "duplicate_enrollment"},
	{settlement.ErrEnrollmentClosed, "enrollment_closed"},
	{settlement.ErrInsufficientFunds, "insufficient_funds"},
	{settlement.ErrInsufficientPoints, "insufficient_points"},
	{settlement.ErrSlotAlreadyStarted, "slot_already_started"},
	{settlement.ErrSlotNotStarted, "slot_not_started"},
	{settlement.ErrSlotNotFound, "slot_not_found"},
	{settlement.ErrEnrollmentNotFound, "enrollment_not_found"},
	{settlement.ErrBusy, "busy"},
	{slots.ErrSlotExists, "slot_exists"},
	{slots.ErrInvalidOptionSize, "invalid_option_size"},
	{policy.ErrInvalidClubConfig, "invalid_club_config"},
}

func classify(err error) (int, string) {
	code := "internal"
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			code = c.code
			break
		}
	}
	switch {
	case errors.Is(err, slots.ErrSlotExists):
		return http.StatusConflict, code
	case settlement.IsRetryable(err):
		return http.StatusServiceUnavailable, code
	case settlement.IsFunding(err):
		return http.StatusUnprocessableEntity, code
	case settlement.IsConflict(err):
		return http.StatusConflict, code
	case settlement.IsNotFound(err):
		return http.StatusNotFound, code
	case settlement.IsValidation(err):
		if code == "internal" {
			code = "invalid_request"
		}
		return http.StatusBadRequest, code
	default:
		return http.StatusInternalServerError, code
	}
}
