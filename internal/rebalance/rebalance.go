// Package rebalance compares a portfolio's allocation with its rebalance
// targets and works out when the next rebalance is due.
package rebalance

import (
	"math"
	"sort"
	"time"

	"github.com/ndewijer/portfolio-valuation/internal/model"
)

// minSuggestion is the smallest gap, in currency, worth suggesting a trade for.
const minSuggestion = 1e-6

// NextDue returns the date the next rebalance is due: the last rebalance, or
// the start date when none was recorded, plus the periodicity's days.
func NextDue(cfg model.RebalanceConfig) time.Time {
	base := cfg.StartDate
	if cfg.LastRebalanceDate != nil {
		base = *cfg.LastRebalanceDate
	}
	return base.AddDate(0, 0, cfg.Periodicity.Days())
}

// Status evaluates cfg against allocation, which maps asset class to the
// current value held in that class. A nil cfg yields an unconfigured status.
func Status(cfg *model.RebalanceConfig, allocation map[string]float64, now time.Time) model.RebalanceStatus {
	total := 0.0
	for _, v := range allocation {
		total += v
	}

	distribution := make(map[string]float64, len(allocation))
	for class, v := range allocation {
		if total > 0 {
			distribution[class] = v / total * 100
		} else {
			distribution[class] = 0
		}
	}

	status := model.RebalanceStatus{
		TotalValue:          total,
		Targets:             map[string]float64{},
		CurrentDistribution: distribution,
		Deviations:          map[string]float64{},
		Suggestions:         []model.RebalanceSuggestion{},
	}
	if cfg == nil {
		return status
	}

	status.Configured = true
	status.Periodicity = cfg.Periodicity
	status.PeriodDays = cfg.Periodicity.Days()
	status.Targets = cfg.Targets

	start := cfg.StartDate
	status.StartDate = &start
	status.LastRebalanceDate = cfg.LastRebalanceDate
	status.SinceStartDays = wholeDays(now.Sub(start))

	next := NextDue(*cfg)
	status.NextDueDate = &next
	status.DaysUntilNext = wholeDays(next.Sub(now))
	status.CanRebalance = !now.Before(next)

	classes := make([]string, 0, len(cfg.Targets))
	for class := range cfg.Targets {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	for _, class := range classes {
		target := cfg.Targets[class]
		status.Deviations[class] = distribution[class] - target

		gap := target/100*total - allocation[class]
		if math.Abs(gap) < minSuggestion {
			continue
		}
		action := model.ActionBuy
		if gap < 0 {
			action = model.ActionSell
		}
		status.Suggestions = append(status.Suggestions, model.RebalanceSuggestion{
			AssetClass: class,
			Action:     action,
			Amount:     math.Abs(gap),
		})
	}
	return status
}

// wholeDays floors d to whole days, so an overdue date counts as negative.
func wholeDays(d time.Duration) int {
	return int(math.Floor(d.Hours() / 24))
}
