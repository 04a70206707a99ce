package model

import (
	"fmt"
	"strings"
	"time"
)

// Periodicity is how often a portfolio should be rebalanced.
type Periodicity string

const (
	PeriodMonthly    Periodicity = "monthly"
	PeriodQuarterly  Periodicity = "quarterly"
	PeriodSemiannual Periodicity = "semiannual"
	PeriodAnnual     Periodicity = "annual"
)

var periodDays = map[Periodicity]int{
	PeriodMonthly:    30,
	PeriodQuarterly:  90,
	PeriodSemiannual: 180,
	PeriodAnnual:     365,
}

// Days returns the length of the period in calendar days, or 0 if unknown.
func (p Periodicity) Days() int {
	return periodDays[p]
}

// ParsePeriodicity validates a periodicity name.
func ParsePeriodicity(s string) (Periodicity, error) {
	p := Periodicity(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := periodDays[p]; !ok {
		return "", fmt.Errorf("unknown periodicity %q", s)
	}
	return p, nil
}

// RebalanceConfig is the single active rebalance configuration of a portfolio.
// Targets map asset class to target percentage (0-100).
type RebalanceConfig struct {
	PortfolioID       string             `json:"portfolioId"`
	Periodicity       Periodicity        `json:"periodicity"`
	Targets           map[string]float64 `json:"targets"`
	StartDate         time.Time          `json:"startDate"`
	LastRebalanceDate *time.Time         `json:"lastRebalanceDate"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// RebalanceEvent is an append-only record of an executed rebalance.
type RebalanceEvent struct {
	ID          string    `json:"id"`
	PortfolioID string    `json:"portfolioId"`
	Timestamp   time.Time `json:"timestamp"`
	Note        string    `json:"note,omitempty"`
}

// RebalanceAction is the direction of a suggestion.
type RebalanceAction string

const (
	ActionBuy  RebalanceAction = "buy"
	ActionSell RebalanceAction = "sell"
)

// RebalanceSuggestion moves one asset class toward its target.
type RebalanceSuggestion struct {
	AssetClass string          `json:"assetClass"`
	Action     RebalanceAction `json:"action"`
	Amount     float64         `json:"amount"`
}

// RebalanceStatus compares the current allocation with the configured targets.
type RebalanceStatus struct {
	Configured          bool                  `json:"configured"`
	CanRebalance        bool                  `json:"canRebalance"`
	Periodicity         Periodicity           `json:"periodicity,omitempty"`
	PeriodDays          int                   `json:"periodDays"`
	StartDate           *time.Time            `json:"startDate,omitempty"`
	LastRebalanceDate   *time.Time            `json:"lastRebalanceDate,omitempty"`
	NextDueDate         *time.Time            `json:"nextDueDate,omitempty"`
	DaysUntilNext       int                   `json:"daysUntilNext"`
	SinceStartDays      int                   `json:"sinceStartDays"`
	TotalValue          float64               `json:"totalValue"`
	Targets             map[string]float64    `json:"targets"`
	CurrentDistribution map[string]float64    `json:"currentDistribution"`
	Deviations          map[string]float64    `json:"deviations"`
	Suggestions         []RebalanceSuggestion `json:"suggestions"`
}
