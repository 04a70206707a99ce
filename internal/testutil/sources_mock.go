package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ndewijer/portfolio-valuation/internal/apperrors"
	"github.com/ndewijer/portfolio-valuation/internal/model"
)

// MockQuoteSource is an in-memory quote source. Current quotes and daily
// histories are configured per ticker; anything not configured is reported
// as unavailable. Calls are counted so tests can assert on fetch behavior.
type MockQuoteSource struct {
	mu        sync.Mutex
	quotes    map[string]model.Quote
	histories map[string][]model.PricePoint
	batchErr  error

	// QuoteCalls counts CurrentQuotes invocations.
	QuoteCalls int
	// HistoryCalls counts QuoteHistory invocations per symbol.
	HistoryCalls map[string]int
}

// NewMockQuoteSource creates an empty mock quote source.
func NewMockQuoteSource() *MockQuoteSource {
	return &MockQuoteSource{
		quotes:       make(map[string]model.Quote),
		histories:    make(map[string][]model.PricePoint),
		HistoryCalls: make(map[string]int),
	}
}

// WithQuote configures the current price of ticker.
func (m *MockQuoteSource) WithQuote(ticker string, price float64) *MockQuoteSource {
	m.quotes[ticker] = model.Quote{Symbol: ticker, Price: price}
	return m
}

// WithFundamentals configures a current quote with fundamentals.
func (m *MockQuoteSource) WithFundamentals(ticker string, price float64, f model.Fundamentals) *MockQuoteSource {
	m.quotes[ticker] = model.Quote{Symbol: ticker, Price: price, Fundamentals: f}
	return m
}

// WithHistory configures the daily closes returned for symbol.
func (m *MockQuoteSource) WithHistory(symbol string, points ...model.PricePoint) *MockQuoteSource {
	m.histories[symbol] = points
	return m
}

// WithBatchError makes CurrentQuotes fail as a whole.
func (m *MockQuoteSource) WithBatchError(err error) *MockQuoteSource {
	m.batchErr = err
	return m
}

// CurrentQuotes returns the configured quotes of tickers.
func (m *MockQuoteSource) CurrentQuotes(_ context.Context, tickers []string) (map[string]model.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.QuoteCalls++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make(map[string]model.Quote, len(tickers))
	for _, t := range tickers {
		if q, ok := m.quotes[t]; ok {
			out[t] = q
		}
	}
	return out, nil
}

// QuoteHistory returns the configured closes of symbol within [from, to].
func (m *MockQuoteSource) QuoteHistory(_ context.Context, symbol string, from, to time.Time) ([]model.PricePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.HistoryCalls[symbol]++
	points, ok := m.histories[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrSymbolNotFound, symbol)
	}
	out := make([]model.PricePoint, 0, len(points))
	for _, p := range points {
		if !p.Date.Before(model.TruncateDay(from)) && !p.Date.After(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

// MockRateSource is an in-memory rate source.
type MockRateSource struct {
	mu      sync.Mutex
	current map[model.RateIndex]float64
	series  map[model.RateIndex][]model.RatePoint

	// CurrentCalls counts CurrentRate invocations per index.
	CurrentCalls map[model.RateIndex]int
}

// NewMockRateSource creates an empty mock rate source.
func NewMockRateSource() *MockRateSource {
	return &MockRateSource{
		current:      make(map[model.RateIndex]float64),
		series:       make(map[model.RateIndex][]model.RatePoint),
		CurrentCalls: make(map[model.RateIndex]int),
	}
}

// WithRate configures the current value of index.
func (m *MockRateSource) WithRate(index model.RateIndex, value float64) *MockRateSource {
	m.current[index] = value
	return m
}

// WithSeries configures the historical observations of index.
func (m *MockRateSource) WithSeries(index model.RateIndex, points ...model.RatePoint) *MockRateSource {
	m.series[index] = points
	return m
}

// CurrentRate returns the configured value or ErrRateUnavailable.
func (m *MockRateSource) CurrentRate(_ context.Context, index model.RateIndex) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CurrentCalls[index]++
	v, ok := m.current[index]
	if !ok {
		return 0, fmt.Errorf("%w: %s", apperrors.ErrRateUnavailable, index)
	}
	return v, nil
}

// HistoricalRateSeries returns the configured observations within [from, to].
func (m *MockRateSource) HistoricalRateSeries(_ context.Context, index model.RateIndex, from, to time.Time) ([]model.RatePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	points, ok := m.series[index]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrRateUnavailable, index)
	}
	out := make([]model.RatePoint, 0, len(points))
	for _, p := range points {
		if !p.Date.Before(from) && !p.Date.After(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

// DailyCloses builds one close per day from start, one price per day.
func DailyCloses(start time.Time, prices ...float64) []model.PricePoint {
	points := make([]model.PricePoint, len(prices))
	for i, p := range prices {
		points[i] = model.PricePoint{Date: start.AddDate(0, 0, i), Price: p}
	}
	return points
}
