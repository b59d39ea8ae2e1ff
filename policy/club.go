/*
Package policy holds club-level settlement rules and the two pure calculators.

PURPOSE:
  Everything the engine needs to know about a club lives in ClubConfig:

    PenaltyTiers:             cancellation penalties by hours before start
    PointsCostForGratisSpot:  flat points price of a points-only spot
    CancellationPointPerEuro: conversion rate for bonified cancellations
    BasePoints:               loyalty bonus by (option size, spot index)

  The calculators are deterministic and side-effect free:

    ComputePenalty(tiers, hoursBefore) -> percentage
    AwardPoints(table, size, spot, today, start) -> points

CONFIGURATION SOURCE:
  Club configuration is produced by club admin tooling and stored as JSON
  (see factory.go). Clubs without a stored configuration get
  DefaultClubConfig.

SEE ALSO:
  - penalty.go: ComputePenalty
  - points.go: SpotBonus, AnticipationDays, AwardPoints
  - factory.go: JSON parsing and validation
*/
package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrClubConfigNotFound = errors.New("club config not found")
	ErrInvalidClubConfig  = errors.New("invalid club config")
)

// PenaltyTier applies PenaltyPercentage to cancellations made less than
// HoursBefore hours before the slot starts.
type PenaltyTier struct {
	HoursBefore       float64         `json:"hours_before"`
	PenaltyPercentage decimal.Decimal `json:"penalty_percentage"`
}

// BasePointsTable maps option size to the base points of each spot index.
type BasePointsTable map[int][]decimal.Decimal

// ClubConfig is the per-club rule set consumed by the settlement engine.
type ClubConfig struct {
	ClubID                   string          `json:"club_id"`
	PenaltyTiers             []PenaltyTier   `json:"penalty_tiers"`
	PointsCostForGratisSpot  decimal.Decimal `json:"points_cost_for_gratis_spot"`
	CancellationPointPerEuro decimal.Decimal `json:"cancellation_point_per_euro"`
	BasePoints               BasePointsTable `json:"base_points"`
}

// Store persists club configuration.
type Store interface {
	// GetClubConfig returns ErrClubConfigNotFound for unconfigured clubs.
	GetClubConfig(ctx context.Context, clubID string) (ClubConfig, error)
	SaveClubConfig(ctx context.Context, cfg ClubConfig) error
}

// =============================================================================
// DEFAULTS
// =============================================================================

// DefaultBasePoints rewards early arrivals and smaller groups.
// A solo spot earns the most; the last spot of a four-way split the least.
func DefaultBasePoints() BasePointsTable {
	return BasePointsTable{
		1: ints(10),
		2: ints(8, 6),
		3: ints(7, 5, 4),
		4: ints(6, 5, 4, 3),
	}
}

// DefaultClubConfig applies no cancellation penalty.
func DefaultClubConfig(clubID string) ClubConfig {
	return ClubConfig{
		ClubID:                   clubID,
		PenaltyTiers:             nil,
		PointsCostForGratisSpot:  decimal.NewFromInt(100),
		CancellationPointPerEuro: decimal.NewFromInt(1),
		BasePoints:               DefaultBasePoints(),
	}
}

// Validate checks ranges and uniqueness of the configuration.
func (c ClubConfig) Validate() error {
	if strings.TrimSpace(c.ClubID) == "" {
		return fmt.Errorf("%w: empty club id", ErrInvalidClubConfig)
	}
	hundred := decimal.NewFromInt(100)
	seen := make(map[float64]bool, len(c.PenaltyTiers))
	for _, tier := range c.PenaltyTiers {
		if tier.HoursBefore <= 0 {
			return fmt.Errorf("%w: tier hours_before must be positive, got %v", ErrInvalidClubConfig, tier.HoursBefore)
		}
		if tier.PenaltyPercentage.IsNegative() || tier.PenaltyPercentage.GreaterThan(hundred) {
			return fmt.Errorf("%w: penalty percentage %s out of [0,100]", ErrInvalidClubConfig, tier.PenaltyPercentage)
		}
		if seen[tier.HoursBefore] {
			return fmt.Errorf("%w: duplicate tier at %v hours", ErrInvalidClubConfig, tier.HoursBefore)
		}
		seen[tier.HoursBefore] = true
	}
	if !c.PointsCostForGratisSpot.IsPositive() {
		return fmt.Errorf("%w: points cost for gratis spot must be positive", ErrInvalidClubConfig)
	}
	if c.CancellationPointPerEuro.IsNegative() {
		return fmt.Errorf("%w: cancellation point rate must not be negative", ErrInvalidClubConfig)
	}
	for size, row := range c.BasePoints {
		if size < 1 || size > 4 {
			return fmt.Errorf("%w: base points for option size %d", ErrInvalidClubConfig, size)
		}
		for _, p := range row {
			if p.IsNegative() {
				return fmt.Errorf("%w: negative base points for option size %d", ErrInvalidClubConfig, size)
			}
		}
	}
	return nil
}

func ints(values ...int64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewFromInt(v)
	}
	return out
}
