package model

import (
	"math"
	"time"
)

// Holding is a current position in a portfolio. It is created on the first
// acquisition of an instrument, mutated by later trade events and removed
// once the position is fully liquidated.
type Holding struct {
	ID           string
	PortfolioID  string
	Instrument   string
	Name         string
	AssetClass   string
	Quantity     float64
	EntryPrice   float64
	AverageCost  float64
	EntryDate    time.Time
	Regime       Regime // nil for market-quoted holdings
	BasePrice    *float64
	BaseDate     *time.Time
	Maturity     *time.Time
	CurrentPrice float64
	CurrentValue float64
	Fundamentals Fundamentals
	UpdatedAt    *time.Time
}

// IsIndexed reports whether the holding is valued by the indexation engine.
func (h Holding) IsIndexed() bool {
	return h.Regime != nil
}

// Fundamentals are the ratios refreshed alongside market quotes.
// Nil fields were not reported by the quote source.
type Fundamentals struct {
	DividendYield  *float64 `json:"dy"`
	PriceEarnings  *float64 `json:"pl"`
	PriceToBook    *float64 `json:"pvp"`
	ReturnOnEquity *float64 `json:"roe"`
}

// MaturityState classifies a holding relative to its maturity date.
type MaturityState string

const (
	MaturityNone     MaturityState = "none"
	MaturityMatured  MaturityState = "matured"
	MaturityDueToday MaturityState = "due_today"
	MaturityDueSoon  MaturityState = "due_soon"
	MaturityActive   MaturityState = "active"
)

// dueSoonDays is the window in which a maturity is reported as due soon.
const dueSoonDays = 30

// MaturityStatus describes how far a holding is from maturity.
type MaturityStatus struct {
	State          MaturityState `json:"state"`
	DaysToMaturity *int          `json:"daysToMaturity,omitempty"`
}

// MaturityStatus evaluates the maturity of h at asOf, comparing calendar days.
func (h Holding) MaturityStatus(asOf time.Time) MaturityStatus {
	if h.Maturity == nil {
		return MaturityStatus{State: MaturityNone}
	}

	days := DaysBetween(asOf, *h.Maturity)
	status := MaturityStatus{DaysToMaturity: &days}

	switch {
	case days < 0:
		status.State = MaturityMatured
	case days == 0:
		status.State = MaturityDueToday
	case days <= dueSoonDays:
		status.State = MaturityDueSoon
	default:
		status.State = MaturityActive
	}
	return status
}

// DaysBetween returns the number of whole calendar days from a to b in UTC.
// The result is negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(math.Round(TruncateDay(b).Sub(TruncateDay(a)).Hours() / 24))
}

// TruncateDay returns midnight UTC of t's calendar day.
func TruncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// RegimeTerms is the presentation form of an indexed holding's regime.
type RegimeTerms struct {
	Kind        RegimeKind `json:"kind"`
	Rate        float64    `json:"rate"`
	Description string     `json:"description"`
	BasePrice   *float64   `json:"basePrice,omitempty"`
	BaseDate    *time.Time `json:"baseDate,omitempty"`
}

// HoldingResponse is a holding as returned by the API.
type HoldingResponse struct {
	ID             string         `json:"id"`
	Instrument     string         `json:"instrument"`
	Name           string         `json:"name"`
	AssetClass     string         `json:"assetClass"`
	Quantity       float64        `json:"quantity"`
	EntryPrice     float64        `json:"entryPrice"`
	AverageCost    float64        `json:"averageCost"`
	EntryDate      time.Time      `json:"entryDate"`
	Regime         *RegimeTerms   `json:"regime,omitempty"`
	Maturity       *time.Time     `json:"maturity,omitempty"`
	MaturityStatus MaturityStatus `json:"maturityStatus"`
	CurrentPrice   float64        `json:"currentPrice"`
	CurrentValue   float64        `json:"currentValue"`
	Weight         float64        `json:"weight"`
	Fundamentals   Fundamentals   `json:"fundamentals"`
	UpdatedAt      *time.Time     `json:"updatedAt,omitempty"`
}

// Response renders h at asOf. weight is the holding's share of the portfolio
// value in percent.
func (h Holding) Response(asOf time.Time, weight float64) HoldingResponse {
	resp := HoldingResponse{
		ID:             h.ID,
		Instrument:     h.Instrument,
		Name:           h.Name,
		AssetClass:     h.AssetClass,
		Quantity:       h.Quantity,
		EntryPrice:     h.EntryPrice,
		AverageCost:    h.AverageCost,
		EntryDate:      h.EntryDate,
		Maturity:       h.Maturity,
		MaturityStatus: h.MaturityStatus(asOf),
		CurrentPrice:   h.CurrentPrice,
		CurrentValue:   h.CurrentValue,
		Weight:         weight,
		Fundamentals:   h.Fundamentals,
		UpdatedAt:      h.UpdatedAt,
	}
	if h.Regime != nil {
		resp.Regime = &RegimeTerms{
			Kind:        h.Regime.Kind(),
			Rate:        h.Regime.Rate(),
			Description: DescribeRegime(h.Regime),
			BasePrice:   h.BasePrice,
			BaseDate:    h.BaseDate,
		}
	}
	return resp
}

// PortfolioSummary is a portfolio with its holdings valued at the last revaluation.
type PortfolioSummary struct {
	Portfolio
	TotalValue float64           `json:"totalValue"`
	Holdings   []HoldingResponse `json:"holdings"`
}

// TradeResult is the outcome of appending a trade: the stored event and the
// holding after it was applied, or nil when the position was closed.
type TradeResult struct {
	Trade   TradeEvent       `json:"trade"`
	Holding *HoldingResponse `json:"holding"`
}
