package rebalance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/portfolio-valuation/internal/model"
)

var start = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func config(p model.Periodicity, last *time.Time) *model.RebalanceConfig {
	return &model.RebalanceConfig{
		PortfolioID:       "p1",
		Periodicity:       p,
		Targets:           map[string]float64{"Stocks": 60, "Bonds": 40},
		StartDate:         start,
		LastRebalanceDate: last,
	}
}

// TestStatus_Allocation verifies deviations and suggestions for an
// overweight equity allocation.
func TestStatus_Allocation(t *testing.T) {
	// Setup
	allocation := map[string]float64{"Stocks": 7000, "Bonds": 3000}

	// Execute
	got := Status(config(model.PeriodMonthly, nil), allocation, start.AddDate(0, 0, 5))

	// Assert
	require.True(t, got.Configured)
	assert.InDelta(t, 10000.0, got.TotalValue, 1e-9)
	assert.InDelta(t, 10.0, got.Deviations["Stocks"], 1e-9)
	assert.InDelta(t, -10.0, got.Deviations["Bonds"], 1e-9)
	require.Len(t, got.Suggestions, 2)
	assert.Equal(t, "Bonds", got.Suggestions[0].AssetClass)
	assert.Equal(t, model.ActionBuy, got.Suggestions[0].Action)
	assert.InDelta(t, 1000.0, got.Suggestions[0].Amount, 1e-9)
	assert.Equal(t, "Stocks", got.Suggestions[1].AssetClass)
	assert.Equal(t, model.ActionSell, got.Suggestions[1].Action)
	assert.InDelta(t, 1000.0, got.Suggestions[1].Amount, 1e-9)
}

func TestStatus_OnTargetHasNoSuggestions(t *testing.T) {
	got := Status(config(model.PeriodMonthly, nil), map[string]float64{"Stocks": 600, "Bonds": 400}, start)

	assert.Empty(t, got.Suggestions)
	assert.InDelta(t, 0.0, got.Deviations["Stocks"], 1e-9)
}

func TestStatus_MissingClassIsFullDeviation(t *testing.T) {
	got := Status(config(model.PeriodMonthly, nil), map[string]float64{"Stocks": 1000, "REIT": 0}, start)

	assert.InDelta(t, -40.0, got.Deviations["Bonds"], 1e-9)
	assert.NotContains(t, got.Deviations, "REIT")
	require.Len(t, got.Suggestions, 2)
	assert.InDelta(t, 400.0, got.Suggestions[0].Amount, 1e-9)
}

func TestStatus_Timing(t *testing.T) {
	tests := []struct {
		name        string
		periodicity model.Periodicity
		last        *time.Time
		now         time.Time
		wantNext    time.Time
		wantCan     bool
		wantUntil   int
	}{
		{
			name:        "monthly from start, not due",
			periodicity: model.PeriodMonthly,
			now:         start.AddDate(0, 0, 10),
			wantNext:    start.AddDate(0, 0, 30),
			wantCan:     false,
			wantUntil:   20,
		},
		{
			name:        "exactly on the due date",
			periodicity: model.PeriodQuarterly,
			now:         start.AddDate(0, 0, 90),
			wantNext:    start.AddDate(0, 0, 90),
			wantCan:     true,
			wantUntil:   0,
		},
		{
			name:        "last rebalance overrides start",
			periodicity: model.PeriodSemiannual,
			last:        ptr(start.AddDate(0, 3, 0)),
			now:         start.AddDate(0, 7, 0),
			wantNext:    start.AddDate(0, 3, 180),
			wantCan:     false,
			wantUntil:   58,
		},
		{
			name:        "annual overdue",
			periodicity: model.PeriodAnnual,
			now:         start.AddDate(1, 0, 2),
			wantNext:    start.AddDate(0, 0, 365),
			wantCan:     true,
			wantUntil:   -3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Status(config(tt.periodicity, tt.last), nil, tt.now)

			require.NotNil(t, got.NextDueDate)
			assert.Equal(t, tt.wantNext, *got.NextDueDate)
			assert.Equal(t, tt.wantCan, got.CanRebalance)
			assert.Equal(t, tt.periodicity.Days(), got.PeriodDays)
			assert.Equal(t, tt.wantUntil, got.DaysUntilNext)
		})
	}
}

func TestStatus_Unconfigured(t *testing.T) {
	got := Status(nil, map[string]float64{"Stocks": 100}, start)

	assert.False(t, got.Configured)
	assert.False(t, got.CanRebalance)
	assert.Nil(t, got.NextDueDate)
	assert.InDelta(t, 100.0, got.CurrentDistribution["Stocks"], 1e-9)
	assert.Empty(t, got.Suggestions)
}

func ptr(t time.Time) *time.Time { return &t }
