package service

import (
	"context"
	"time"

	"github.com/ndewijer/portfolio-valuation/internal/model"
)

// QuoteSource provides market quotations. *yahoo.FinanceClient satisfies it.
type QuoteSource interface {
	// CurrentQuotes returns quotes keyed by the tickers passed in. Tickers
	// without a quote are absent; an error means nothing could be fetched.
	CurrentQuotes(ctx context.Context, tickers []string) (map[string]model.Quote, error)
	// QuoteHistory returns daily closes of symbol between from and to.
	QuoteHistory(ctx context.Context, symbol string, from, to time.Time) ([]model.PricePoint, error)
}

// RateSource provides reference rates. *bcb.Client satisfies it.
type RateSource interface {
	// CurrentRate returns the latest value of index in percent.
	CurrentRate(ctx context.Context, index model.RateIndex) (float64, error)
	// HistoricalRateSeries returns the observations of index between from and to.
	HistoricalRateSeries(ctx context.Context, index model.RateIndex, from, to time.Time) ([]model.RatePoint, error)
}
