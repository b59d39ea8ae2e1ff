package policy

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// JSON SCHEMA
// =============================================================================
//
//	{
//	  "club_id": "club-norte",
//	  "penalty_tiers": [
//	    {"hours_before": 2, "penalty_percentage": 50},
//	    {"hours_before": 1, "penalty_percentage": 100}
//	  ],
//	  "points_cost_for_gratis_spot": 150,
//	  "cancellation_point_per_euro": 2,
//	  "base_points": {"1": [10], "4": [6, 5, 4, 3]}
//	}
//
// Omitted fields keep DefaultClubConfig values. base_points rows replace the
// default row of the same option size only.

// ClubConfigJSON is the stored and wire form of ClubConfig.
type ClubConfigJSON struct {
	ClubID                   string                    `json:"club_id"`
	PenaltyTiers             []PenaltyTier             `json:"penalty_tiers,omitempty"`
	PointsCostForGratisSpot  *decimal.Decimal          `json:"points_cost_for_gratis_spot,omitempty"`
	CancellationPointPerEuro *decimal.Decimal          `json:"cancellation_point_per_euro,omitempty"`
	BasePoints               map[int][]decimal.Decimal `json:"base_points,omitempty"`
}

// ParseClubConfig decodes and validates a club configuration document.
func ParseClubConfig(data []byte) (ClubConfig, error) {
	var doc ClubConfigJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return ClubConfig{}, fmt.Errorf("%w: %v", ErrInvalidClubConfig, err)
	}
	return FromJSON(doc)
}

// FromJSON merges doc over the defaults and validates the result.
func FromJSON(doc ClubConfigJSON) (ClubConfig, error) {
	cfg := DefaultClubConfig(doc.ClubID)
	if doc.PenaltyTiers != nil {
		cfg.PenaltyTiers = append([]PenaltyTier(nil), doc.PenaltyTiers...)
	}
	if doc.PointsCostForGratisSpot != nil {
		cfg.PointsCostForGratisSpot = *doc.PointsCostForGratisSpot
	}
	if doc.CancellationPointPerEuro != nil {
		cfg.CancellationPointPerEuro = *doc.CancellationPointPerEuro
	}
	for size, row := range doc.BasePoints {
		cfg.BasePoints[size] = append([]decimal.Decimal(nil), row...)
	}
	if err := cfg.Validate(); err != nil {
		return ClubConfig{}, err
	}
	return cfg, nil
}

// ToJSON returns the full document form of cfg.
func ToJSON(cfg ClubConfig) ClubConfigJSON {
	gratis := cfg.PointsCostForGratisSpot
	rate := cfg.CancellationPointPerEuro
	return ClubConfigJSON{
		ClubID:                   cfg.ClubID,
		PenaltyTiers:             cfg.PenaltyTiers,
		PointsCostForGratisSpot:  &gratis,
		CancellationPointPerEuro: &rate,
		BasePoints:               cfg.BasePoints,
	}
}

// MarshalClubConfig encodes cfg for storage.
func MarshalClubConfig(cfg ClubConfig) ([]byte, error) {
	return json.Marshal(ToJSON(cfg))
}
