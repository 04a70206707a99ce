// Package indexation prices rate-indexed fixed-income positions.
//
// The engine is pure: given an entry price, a regime, the elapsed period and a
// snapshot of current reference rates it returns a fair price. It never fails;
// invalid inputs and implausible results fall back to the entry price and are
// reported through the returned Valuation so the caller can record them.
package indexation

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-valuation/internal/config"
	"github.com/ndewijer/portfolio-valuation/internal/model"
)

// calendarDaysPerYear is the day-count basis of fixed-rate accrual and of the
// calendar to business day conversion.
const calendarDaysPerYear = 365.0

// Parameter bounds, in percent.
const (
	maxPercentOfIndex = 1000.0
	maxSpread         = 50.0
)

// Rates is a snapshot of current reference rates in percent, keyed by index.
type Rates map[model.RateIndex]float64

// Status classifies the outcome of a valuation.
type Status string

const (
	// StatusOK means Price is the computed fair price.
	StatusOK Status = "ok"
	// StatusNotElapsed means no time has passed since entry; Price is the entry price.
	StatusNotElapsed Status = "not_elapsed"
	// StatusInvalidInput means the price, dates or regime parameters were rejected.
	StatusInvalidInput Status = "invalid_input"
	// StatusUnknownRegime means the regime kind is not supported.
	StatusUnknownRegime Status = "unknown_regime"
	// StatusRateUnavailable means the reference rate was missing from the snapshot.
	StatusRateUnavailable Status = "rate_unavailable"
	// StatusCircuitBreaker means the computed price failed the plausibility check.
	StatusCircuitBreaker Status = "circuit_breaker"
)

// Valuation is the result of Engine.Valuate.
type Valuation struct {
	Price       float64
	Computed    float64
	Factor      float64
	ElapsedDays int
	Status      Status
	// Reason is set when the fallback should be recorded as an anomaly.
	Reason model.AnomalyReason
}

// Fallback reports whether Price is the entry price because of a rejection.
func (v Valuation) Fallback() bool {
	return v.Status != StatusOK && v.Status != StatusNotElapsed
}

// Engine values indexed holdings under configurable day-count conventions.
type Engine struct {
	cfg config.ValuationConfig
}

// NewEngine creates an Engine with the given conventions and bounds.
func NewEngine(cfg config.ValuationConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Valuate computes the fair price at asOf of a position bought at entryPrice
// on entryDate under regime. Dates are compared as UTC calendar days and the
// elapsed period is capped at the configured maximum.
func (e *Engine) Valuate(entryPrice float64, regime model.Regime, entryDate, asOf time.Time, rates Rates) Valuation {
	fallback := Valuation{Price: entryPrice, Factor: 1}

	if math.IsNaN(entryPrice) || math.IsInf(entryPrice, 0) || entryPrice <= 0 || regime == nil || entryDate.IsZero() {
		fallback.Status = StatusInvalidInput
		fallback.Reason = model.AnomalyInvalidInput
		return fallback
	}

	if _, unknown := regime.(model.UnknownRegime); unknown {
		fallback.Status = StatusUnknownRegime
		fallback.Reason = model.AnomalyUnknownRegime
		return fallback
	}

	if !ValidParameter(regime) {
		fallback.Status = StatusInvalidInput
		fallback.Reason = model.AnomalyInvalidInput
		return fallback
	}

	days := model.DaysBetween(entryDate, asOf)
	if days < 0 {
		fallback.Status = StatusInvalidInput
		fallback.Reason = model.AnomalyInvalidInput
		return fallback
	}
	if days == 0 {
		fallback.Status = StatusNotElapsed
		return fallback
	}
	if days > e.cfg.MaxElapsedDays {
		days = e.cfg.MaxElapsedDays
	}
	fallback.ElapsedDays = days

	factor, ok := e.factor(regime, days, rates)
	if !ok {
		fallback.Status = StatusRateUnavailable
		return fallback
	}

	computed := e.round(entryPrice * factor)
	result := Valuation{
		Price:       computed,
		Computed:    computed,
		Factor:      factor,
		ElapsedDays: days,
		Status:      StatusOK,
	}

	if reason, ok := e.plausible(entryPrice, computed); !ok {
		fallback.Computed = computed
		fallback.Factor = factor
		fallback.Status = StatusCircuitBreaker
		fallback.Reason = reason
		return fallback
	}
	return result
}

// factor returns the growth factor over days. ok is false when the regime
// needs a reference rate the snapshot does not hold.
func (e *Engine) factor(regime model.Regime, days int, rates Rates) (float64, bool) {
	switch r := regime.(type) {
	case model.Selic:
		annual, ok := rates.get(model.IndexSelic)
		if !ok {
			return 0, false
		}
		return e.businessDayFactor(annual*r.Percent/100, days), true

	case model.CDI:
		annual, ok := rates.get(model.IndexCDI)
		if !ok {
			return 0, false
		}
		return e.businessDayFactor(annual*r.Percent/100, days), true

	case model.CDISpread:
		annual, ok := rates.get(model.IndexCDI)
		if !ok {
			return 0, false
		}
		return e.businessDayFactor(annual+r.Spread, days), true

	case model.IPCA:
		monthly, ok := rates.get(model.IndexIPCA)
		if !ok {
			return 0, false
		}
		return e.monthlyFactor(monthly*r.Percent/100, days), true

	case model.IPCASpread:
		monthly, ok := rates.get(model.IndexIPCA)
		if !ok {
			return 0, false
		}
		return e.monthlyFactor(monthly+r.Spread/12, days), true

	case model.FixedRate:
		return math.Pow(1+r.AnnualRate/100, float64(days)/calendarDaysPerYear), true

	case model.UnknownRegime:
		return 1, true
	}
	return 1, true
}

// businessDayFactor compounds an annual percentage daily over the business
// days approximating the elapsed calendar days.
func (e *Engine) businessDayFactor(annualPct float64, days int) float64 {
	daily := math.Pow(1+annualPct/100, 1/e.cfg.BusinessDaysPerYear) - 1
	businessDays := math.Round(float64(days) * e.cfg.BusinessDaysPerYear / calendarDaysPerYear)
	return math.Pow(1+daily, businessDays)
}

// monthlyFactor compounds a monthly percentage over fractional months.
func (e *Engine) monthlyFactor(monthlyPct float64, days int) float64 {
	months := float64(days) / e.cfg.DaysPerMonth
	return math.Pow(1+monthlyPct/100, months)
}

// plausible applies the circuit breaker to a computed price.
func (e *Engine) plausible(entryPrice, computed float64) (model.AnomalyReason, bool) {
	switch {
	case math.IsNaN(computed) || math.IsInf(computed, 0):
		return model.AnomalyNotFinite, false
	case computed <= 0:
		return model.AnomalyNonPositive, false
	case computed < entryPrice*e.cfg.LowerBound || computed > entryPrice*e.cfg.UpperBound:
		return model.AnomalyOutOfBounds, false
	}
	return "", true
}

func (e *Engine) round(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(e.cfg.PriceDecimals).InexactFloat64()
}

// ValidParameter checks the regime parameter against its range: spreads in
// (0, 50], percentages of an index and fixed annual rates in (0, 1000].
func ValidParameter(regime model.Regime) bool {
	rate := regime.Rate()
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return false
	}
	switch regime.(type) {
	case model.CDISpread, model.IPCASpread:
		return rate <= maxSpread
	}
	return rate <= maxPercentOfIndex
}

// get returns a usable rate. Monthly inflation may be negative; annual
// interest rates must be positive.
func (r Rates) get(index model.RateIndex) (float64, bool) {
	v, ok := r[index]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if v <= 0 && index != model.IndexIPCA {
		return 0, false
	}
	return v, true
}
