package model

import "time"

// Quote is a current market quotation with optional fundamentals.
type Quote struct {
	Symbol       string
	Price        float64
	Fundamentals Fundamentals
}

// RevalueResult summarizes a batch revaluation. One holding's failure never
// prevents the others from being updated.
type RevalueResult struct {
	UpdatedCount int            `json:"updatedCount"`
	SkippedCount int            `json:"skippedCount"`
	Errors       []HoldingError `json:"errors"`
}

// HoldingError records why a single holding could not be revalued.
type HoldingError struct {
	HoldingID  string `json:"holdingId"`
	Instrument string `json:"instrument"`
	Error      string `json:"error"`
}

// AnomalyReason explains why a computed valuation was discarded.
type AnomalyReason string

const (
	AnomalyOutOfBounds   AnomalyReason = "out_of_bounds"
	AnomalyNotFinite     AnomalyReason = "not_finite"
	AnomalyNonPositive   AnomalyReason = "non_positive"
	AnomalyInvalidInput  AnomalyReason = "invalid_input"
	AnomalyUnknownRegime AnomalyReason = "unknown_regime"
)

// Anomaly is a persisted record of a valuation fallback.
type Anomaly struct {
	ID            string        `json:"id"`
	PortfolioID   string        `json:"portfolioId"`
	HoldingID     string        `json:"holdingId"`
	Instrument    string        `json:"instrument"`
	Regime        string        `json:"regime"`
	Reason        AnomalyReason `json:"reason"`
	EntryPrice    float64       `json:"entryPrice"`
	ComputedPrice float64       `json:"computedPrice"`
	RecordedAt    time.Time     `json:"recordedAt"`
}

// IndexedValuation is the result of valuing an indexed position on demand.
type IndexedValuation struct {
	Regime      string        `json:"regime"`
	Price       float64       `json:"price"`
	Computed    float64       `json:"computed"`
	Factor      float64       `json:"factor"`
	ElapsedDays int           `json:"elapsedDays"`
	Status      string        `json:"status"`
	Reason      AnomalyReason `json:"reason,omitempty"`
	Rate        *float64      `json:"rate,omitempty"`
}
