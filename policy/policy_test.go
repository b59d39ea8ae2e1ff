package policy

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func standardTiers() []PenaltyTier {
	return []PenaltyTier{
		{HoursBefore: 2, PenaltyPercentage: dec("50")},
		{HoursBefore: 1, PenaltyPercentage: dec("100")},
	}
}

// =============================================================================
// PENALTY
// =============================================================================

func TestComputePenalty(t *testing.T) {
	tests := []struct {
		name  string
		hours float64
		want  string
	}{
		{"well ahead", 3, "0"},
		{"exactly on outer threshold", 2, "0"},
		{"inside outer tier", 1.5, "50"},
		{"exactly on inner threshold", 1, "50"},
		{"inside inner tier", 0.5, "100"},
		{"just before start", 0.01, "100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputePenalty(standardTiers(), tt.hours)
			assert.True(t, got.Equal(dec(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestComputePenalty_TierOrderDoesNotMatter(t *testing.T) {
	reversed := []PenaltyTier{standardTiers()[1], standardTiers()[0]}
	assert.True(t, ComputePenalty(reversed, 1.5).Equal(dec("50")))
	assert.True(t, ComputePenalty(reversed, 0.5).Equal(dec("100")))
}

func TestComputePenalty_NoTiers(t *testing.T) {
	assert.True(t, ComputePenalty(nil, 0.1).IsZero())
}

func TestRefund(t *testing.T) {
	// €40 paid, cancelled 90 minutes before start.
	refund, penalized := Refund(dec("40"), ComputePenalty(standardTiers(), 1.5))
	assert.Equal(t, "20.00", refund.StringFixed(2))
	assert.Equal(t, "20.00", penalized.StringFixed(2))

	// 30 minutes before start.
	refund, penalized = Refund(dec("40"), ComputePenalty(standardTiers(), 0.5))
	assert.True(t, refund.IsZero())
	assert.Equal(t, "40.00", penalized.StringFixed(2))

	// Rounding keeps the split exact.
	refund, penalized = Refund(dec("33.33"), dec("50"))
	assert.Equal(t, "16.67", refund.StringFixed(2))
	assert.True(t, refund.Add(penalized).Equal(dec("33.33")))
}

// =============================================================================
// POINTS
// =============================================================================

func TestSpotBonus(t *testing.T) {
	table := DefaultBasePoints()
	assert.True(t, SpotBonus(table, 4, 0).Equal(dec("6")))
	assert.True(t, SpotBonus(table, 4, 3).Equal(dec("3")))
	assert.True(t, SpotBonus(table, 4, 7).Equal(dec("3")), "indices past the row clamp to the last value")
	assert.True(t, SpotBonus(table, 1, 0).Equal(dec("10")))
	assert.True(t, SpotBonus(BasePointsTable{}, 2, 0).IsZero())
}

func TestAnticipationDays(t *testing.T) {
	start := time.Date(2025, 6, 10, 19, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, AnticipationDays(start.Add(-2*time.Hour), start))
	assert.Equal(t, 1, AnticipationDays(time.Date(2025, 6, 9, 23, 59, 0, 0, time.UTC), start))
	assert.Equal(t, 9, AnticipationDays(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), start))
	assert.Equal(t, 0, AnticipationDays(start.Add(48*time.Hour), start), "never negative")
}

func TestAnticipationDays_UsesSlotLocation(t *testing.T) {
	// 23:30 UTC is already the next day in UTC+2.
	zone := time.FixedZone("club", 2*3600)
	start := time.Date(2025, 6, 10, 19, 0, 0, 0, zone)
	today := time.Date(2025, 6, 8, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, 1, AnticipationDays(today, start))
}

func TestAwardPoints(t *testing.T) {
	start := time.Date(2025, 6, 10, 19, 0, 0, 0, time.UTC)
	today := time.Date(2025, 6, 5, 12, 0, 0, 0, time.UTC)
	got := AwardPoints(DefaultBasePoints(), 2, 1, today, start)
	assert.True(t, got.Equal(dec("11")), "6 base + 5 days, got %s", got)
}

func TestCancellationPoints(t *testing.T) {
	assert.True(t, CancellationPoints(dec("20"), dec("50"), dec("1")).Equal(dec("20")))
	assert.True(t, CancellationPoints(dec("16.66"), dec("50"), dec("2")).Equal(dec("33")), "floored")
	assert.True(t, CancellationPoints(dec("40"), dec("100"), dec("1")).IsZero(), "full penalty converts nothing")
	assert.True(t, CancellationPoints(decimal.Zero, decimal.Zero, dec("1")).IsZero())
}

// =============================================================================
// CLUB CONFIG
// =============================================================================

func TestDefaultClubConfig_IsValid(t *testing.T) {
	require.NoError(t, DefaultClubConfig("club-1").Validate())
}

func TestClubConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ClubConfig)
	}{
		{"empty club", func(c *ClubConfig) { c.ClubID = "" }},
		{"percentage over 100", func(c *ClubConfig) {
			c.PenaltyTiers = []PenaltyTier{{HoursBefore: 1, PenaltyPercentage: dec("101")}}
		}},
		{"non-positive hours", func(c *ClubConfig) {
			c.PenaltyTiers = []PenaltyTier{{HoursBefore: 0, PenaltyPercentage: dec("10")}}
		}},
		{"duplicate threshold", func(c *ClubConfig) {
			c.PenaltyTiers = []PenaltyTier{
				{HoursBefore: 1, PenaltyPercentage: dec("10")},
				{HoursBefore: 1, PenaltyPercentage: dec("20")},
			}
		}},
		{"free gratis spot", func(c *ClubConfig) { c.PointsCostForGratisSpot = decimal.Zero }},
		{"negative rate", func(c *ClubConfig) { c.CancellationPointPerEuro = dec("-1") }},
		{"option size 5", func(c *ClubConfig) { c.BasePoints[5] = []decimal.Decimal{dec("1")} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultClubConfig("club-1")
			tt.mutate(&cfg)
			assert.True(t, errors.Is(cfg.Validate(), ErrInvalidClubConfig))
		})
	}
}

func TestParseClubConfig(t *testing.T) {
	cfg, err := ParseClubConfig([]byte(`{
		"club_id": "club-norte",
		"penalty_tiers": [
			{"hours_before": 2, "penalty_percentage": 50},
			{"hours_before": 1, "penalty_percentage": 100}
		],
		"points_cost_for_gratis_spot": 150,
		"base_points": {"4": [9, 7, 5, 3]}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "club-norte", cfg.ClubID)
	require.Len(t, cfg.PenaltyTiers, 2)
	assert.True(t, cfg.PointsCostForGratisSpot.Equal(dec("150")))
	assert.True(t, cfg.CancellationPointPerEuro.Equal(dec("1")), "omitted fields keep defaults")
	assert.True(t, cfg.BasePoints[4][0].Equal(dec("9")))
	assert.True(t, cfg.BasePoints[2][0].Equal(dec("8")), "other rows keep defaults")
}

func TestParseClubConfig_Invalid(t *testing.T) {
	_, err := ParseClubConfig([]byte(`{"club_id": "x", "penalty_tiers": [{"hours_before": 1, "penalty_percentage": 150}]}`))
	assert.ErrorIs(t, err, ErrInvalidClubConfig)

	_, err = ParseClubConfig([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidClubConfig)
}

func TestMarshalClubConfig_RoundTrip(t *testing.T) {
	cfg := DefaultClubConfig("club-1")
	cfg.PenaltyTiers = standardTiers()
	data, err := MarshalClubConfig(cfg)
	require.NoError(t, err)

	back, err := ParseClubConfig(data)
	require.NoError(t, err)
	assert.Equal(t, len(cfg.PenaltyTiers), len(back.PenaltyTiers))
	assert.True(t, back.PenaltyTiers[1].PenaltyPercentage.Equal(dec("100")))
	assert.True(t, back.PointsCostForGratisSpot.Equal(cfg.PointsCostForGratisSpot))
}
