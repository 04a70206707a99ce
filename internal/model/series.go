package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PricePoint is a single quote of an instrument or benchmark.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// RatePoint is a single observation of a reference rate series.
type RatePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Sample is one point of a derived series. A sample that is not Valid is a
// gap and is encoded as JSON null; gaps are never coerced to zero.
type Sample struct {
	Value float64
	Valid bool
}

// Some returns a valid sample.
func Some(v float64) Sample { return Sample{Value: v, Valid: true} }

// Gap returns a missing sample.
func Gap() Sample { return Sample{} }

// MarshalJSON encodes gaps as null.
func (s Sample) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// UnmarshalJSON decodes null as a gap.
func (s *Sample) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Gap()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Some(v)
	return nil
}

// Granularity selects the reconstruction time grid.
type Granularity string

const (
	GranularityWeekly     Granularity = "weekly"
	GranularityMonthly    Granularity = "monthly"
	GranularityQuarterly  Granularity = "quarterly"
	GranularitySemiannual Granularity = "semiannual"
	GranularityAnnual     Granularity = "annual"
)

// ParseGranularity accepts the canonical names plus a few short forms.
// An empty string selects monthly.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "monthly", "month", "1m", "max":
		return GranularityMonthly, nil
	case "weekly", "week", "1w":
		return GranularityWeekly, nil
	case "quarterly", "quarter", "3m":
		return GranularityQuarterly, nil
	case "semiannual", "semester", "6m":
		return GranularitySemiannual, nil
	case "annual", "yearly", "year", "1y", "12m":
		return GranularityAnnual, nil
	}
	return "", fmt.Errorf("unknown granularity %q", s)
}

// HistoryComparison is the output of a time-series reconstruction.
type HistoryComparison struct {
	Granularity        Granularity         `json:"granularity"`
	Timestamps         []time.Time         `json:"timestamps"`
	Labels             []string            `json:"labels"`
	Value              []float64           `json:"value"`
	ValueRebased       []Sample            `json:"valueRebased"`
	PriceReturn        []Sample            `json:"priceReturn"`
	Benchmarks         map[string][]Sample `json:"benchmarks"`
	MissingInstruments []string            `json:"missingInstruments,omitempty"`
	MissingBenchmarks  []string            `json:"missingBenchmarks,omitempty"`
}

// HistoryFilters are the optional bounds of a reconstruction request.
type HistoryFilters struct {
	Granularity Granularity
	Start       *time.Time
	End         *time.Time
}
