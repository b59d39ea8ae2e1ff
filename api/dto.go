/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's domain types from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY AND POINTS:
  Amounts travel as decimal strings ("33.33"), never floats. Requests accept
  either a JSON string or number; shopspring/decimal parses both.

VALIDATION:
  Validation is done by the engine. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - policy/factory.go: Club configuration JSON
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/slot-engine/ledger"
	"github.com/warp/slot-engine/settlement"
	"github.com/warp/slot-engine/slots"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ScheduleSlotRequest is the request to schedule a slot.
type ScheduleSlotRequest struct {
	ID          string          `json:"id,omitempty"`
	ClubID      string          `json:"club_id"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	OptionSizes []int           `json:"option_sizes,omitempty"`
	Level       string          `json:"level,omitempty"`
	Category    string          `json:"category,omitempty"`
}

// EnrollRequest is the request to take a spot in one option of a slot.
type EnrollRequest struct {
	UserID        string `json:"user_id"`
	OptionSize    int    `json:"option_size"`
	PaymentMethod string `json:"payment_method,omitempty"` // "credit" (default) or "points"
}

// DepositRequest tops up a user's credit.
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// SlotDTO represents a slot in API responses.
type SlotDTO struct {
	ID              string          `json:"id"`
	ClubID          string          `json:"club_id"`
	StartTime       string          `json:"start_time"`
	EndTime         string          `json:"end_time"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	OptionSizes     []int           `json:"option_sizes"`
	Level           string          `json:"level,omitempty"`
	Category        string          `json:"category,omitempty"`
	Status          string          `json:"status"`
	ConfirmedOption int             `json:"confirmed_option,omitempty"`
}

// SlotStateDTO is the per-option view of a slot.
type SlotStateDTO struct {
	SlotID          string      `json:"slot_id"`
	ClubID          string      `json:"club_id"`
	StartTime       string      `json:"start_time"`
	Settled         bool        `json:"settled"`
	Expired         bool        `json:"expired,omitempty"`
	ConfirmedOption int         `json:"confirmed_option,omitempty"`
	Options         []OptionDTO `json:"options"`
}

// OptionDTO is one option of a slot.
type OptionDTO struct {
	OptionSize    int             `json:"option_size"`
	PricePerHead  decimal.Decimal `json:"price_per_head"`
	EnrolledCount int             `json:"enrolled_count"`
	Full          bool            `json:"full"`
	Spots         []SpotDTO       `json:"spots"`
}

// SpotDTO is one enrollment as seen on the slot.
type SpotDTO struct {
	EnrollmentID string `json:"enrollment_id"`
	UserID       string `json:"user_id"`
	SpotIndex    int    `json:"spot_index"`
	Status       string `json:"status"`
}

// EnrollmentDTO represents an enrollment in API responses.
type EnrollmentDTO struct {
	ID            string          `json:"id"`
	SlotID        string          `json:"slot_id"`
	UserID        string          `json:"user_id"`
	OptionSize    int             `json:"option_size"`
	SpotIndex     int             `json:"spot_index"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	AmountBlocked decimal.Decimal `json:"amount_blocked"`
	PointsSpent   decimal.Decimal `json:"points_spent"`
}

// AccountDTO is a user's balance.
type AccountDTO struct {
	UserID    string          `json:"user_id"`
	Available decimal.Decimal `json:"available"`
	Blocked   decimal.Decimal `json:"blocked"`
	Points    decimal.Decimal `json:"points"`
}

// SettlementDTO describes a slot settling as a result of an enrollment.
type SettlementDTO struct {
	ConfirmedOption int             `json:"confirmed_option"`
	Confirmed       []EnrollmentDTO `json:"confirmed"`
	Voided          []EnrollmentDTO `json:"voided"`
}

// EnrollResponse is returned by a successful enrollment.
type EnrollResponse struct {
	Enrollment    EnrollmentDTO   `json:"enrollment"`
	PricePerHead  decimal.Decimal `json:"price_per_head"`
	AmountCharged decimal.Decimal `json:"amount_charged"`
	PointsSpent   decimal.Decimal `json:"points_spent"`
	PointsAwarded decimal.Decimal `json:"points_awarded"`
	Account       AccountDTO      `json:"account"`
	Settlement    *SettlementDTO  `json:"settlement,omitempty"`
}

// CancelResponse is returned by a successful cancellation.
type CancelResponse struct {
	Enrollment        EnrollmentDTO   `json:"enrollment"`
	PreviousStatus    string          `json:"previous_status"`
	RefundAmount      decimal.Decimal `json:"refund_amount"`
	PenalizedAmount   decimal.Decimal `json:"penalized_amount"`
	PointsRefunded    decimal.Decimal `json:"points_refunded"`
	PointsAwarded     decimal.Decimal `json:"points_awarded"`
	PenaltyApplied    bool            `json:"penalty_applied"`
	PenaltyPercentage decimal.Decimal `json:"penalty_percentage"`
	Account           AccountDTO      `json:"account"`
}

// EntryDTO is one credit movement.
type EntryDTO struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	AvailableDelta decimal.Decimal `json:"available_delta"`
	BlockedDelta   decimal.Decimal `json:"blocked_delta"`
	ReferenceID    string          `json:"reference_id,omitempty"`
	CreatedAt      string          `json:"created_at"`
}

// PointTransactionDTO is one points movement.
type PointTransactionDTO struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Points      decimal.Decimal `json:"points"`
	Description string          `json:"description,omitempty"`
	ReferenceID string          `json:"reference_id,omitempty"`
	CreatedAt   string          `json:"created_at"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ScenarioLoadedDTO is returned after loading a scenario.
type ScenarioLoadedDTO struct {
	Scenario ScenarioDTO  `json:"scenario"`
	Slot     SlotStateDTO `json:"slot"`
	Users    []AccountDTO `json:"users"`
	Next     []string     `json:"next"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toSlotDTO(s slots.Slot) SlotDTO {
	return SlotDTO{
		ID:              string(s.ID),
		ClubID:          s.ClubID,
		StartTime:       s.StartTime.Format(time.RFC3339),
		EndTime:         s.EndTime.Format(time.RFC3339),
		TotalPrice:      s.TotalPrice,
		OptionSizes:     s.OptionSizes,
		Level:           s.Level,
		Category:        s.Category,
		Status:          string(s.Status),
		ConfirmedOption: s.ConfirmedOption,
	}
}

func toSlotStateDTO(s slots.SlotState) SlotStateDTO {
	dto := SlotStateDTO{
		SlotID:          string(s.SlotID),
		ClubID:          s.ClubID,
		StartTime:       s.StartTime.Format(time.RFC3339),
		Settled:         s.Settled,
		Expired:         s.Expired,
		ConfirmedOption: s.ConfirmedOption,
		Options:         make([]OptionDTO, 0, len(s.PerOption)),
	}
	for size := slots.MinOptionSize; size <= slots.MaxOptionSize; size++ {
		o, ok := s.PerOption[size]
		if !ok {
			continue
		}
		option := OptionDTO{
			OptionSize:    o.OptionSize,
			PricePerHead:  o.PricePerHead,
			EnrolledCount: o.EnrolledCount,
			Full:          o.Full,
			Spots:         make([]SpotDTO, len(o.Spots)),
		}
		for i, spot := range o.Spots {
			option.Spots[i] = SpotDTO{
				EnrollmentID: string(spot.EnrollmentID),
				UserID:       spot.UserID,
				SpotIndex:    spot.SpotIndex,
				Status:       string(spot.Status),
			}
		}
		dto.Options = append(dto.Options, option)
	}
	return dto
}

func toEnrollmentDTO(e slots.Enrollment) EnrollmentDTO {
	return EnrollmentDTO{
		ID:            string(e.ID),
		SlotID:        string(e.SlotID),
		UserID:        e.UserID,
		OptionSize:    e.OptionSize,
		SpotIndex:     e.SpotIndex,
		Status:        string(e.Status),
		PaymentMethod: string(e.PaymentMethod),
		AmountBlocked: e.AmountBlocked,
		PointsSpent:   e.PointsSpent,
	}
}

func toEnrollmentDTOs(list []slots.Enrollment) []EnrollmentDTO {
	out := make([]EnrollmentDTO, len(list))
	for i, e := range list {
		out[i] = toEnrollmentDTO(e)
	}
	return out
}

func toAccountDTO(a ledger.Account) AccountDTO {
	return AccountDTO{
		UserID:    string(a.UserID),
		Available: a.Available,
		Blocked:   a.Blocked,
		Points:    a.Points,
	}
}

func toEnrollResponse(r settlement.EnrollResult) EnrollResponse {
	resp := EnrollResponse{
		Enrollment:    toEnrollmentDTO(r.Enrollment),
		PricePerHead:  r.PricePerHead,
		AmountCharged: r.AmountCharged,
		PointsSpent:   r.PointsSpent,
		PointsAwarded: r.PointsAwarded,
		Account:       toAccountDTO(r.Account),
	}
	if r.Settlement != nil {
		resp.Settlement = &SettlementDTO{
			ConfirmedOption: r.Settlement.ConfirmedOption,
			Confirmed:       toEnrollmentDTOs(r.Settlement.Confirmed),
			Voided:          toEnrollmentDTOs(r.Settlement.Voided),
		}
	}
	return resp
}

func toCancelResponse(r settlement.CancelResult) CancelResponse {
	return CancelResponse{
		Enrollment:        toEnrollmentDTO(r.Enrollment),
		PreviousStatus:    string(r.PreviousStatus),
		RefundAmount:      r.RefundAmount,
		PenalizedAmount:   r.PenalizedAmount,
		PointsRefunded:    r.PointsRefunded,
		PointsAwarded:     r.PointsAwarded,
		PenaltyApplied:    r.PenaltyApplied,
		PenaltyPercentage: r.PenaltyPercentage,
		Account:           toAccountDTO(r.Account),
	}
}

func toEntryDTOs(entries []ledger.Entry) []EntryDTO {
	out := make([]EntryDTO, len(entries))
	for i, e := range entries {
		out[i] = EntryDTO{
			ID:             e.ID,
			Type:           string(e.Type),
			Amount:         e.Amount,
			AvailableDelta: e.AvailableDelta,
			BlockedDelta:   e.BlockedDelta,
			ReferenceID:    e.ReferenceID,
			CreatedAt:      e.CreatedAt.Format(time.RFC3339),
		}
	}
	return out
}

func toPointTransactionDTOs(txs []ledger.PointTransaction) []PointTransactionDTO {
	out := make([]PointTransactionDTO, len(txs))
	for i, p := range txs {
		out[i] = PointTransactionDTO{
			ID:          p.ID,
			Type:        string(p.Type),
			Points:      p.Points,
			Description: p.Description,
			ReferenceID: p.ReferenceID,
			CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		}
	}
	return out
}
