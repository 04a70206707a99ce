package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/ndewijer/portfolio-valuation/internal/apperrors"
	"github.com/ndewijer/portfolio-valuation/internal/config"
	"github.com/ndewijer/portfolio-valuation/internal/fanout"
	"github.com/ndewijer/portfolio-valuation/internal/metrics"
	"github.com/ndewijer/portfolio-valuation/internal/model"
	"github.com/ndewijer/portfolio-valuation/internal/repository"
	"github.com/ndewijer/portfolio-valuation/internal/timeseries"
	"github.com/ndewijer/portfolio-valuation/internal/yahoo"
)

// historyLookback widens every price fetch so the first grid point can fall
// back to the last close before it.
const historyLookback = 14 * 24 * time.Hour

// HistoryService reconstructs the historical value of a portfolio and
// compares it with the configured benchmarks.
type HistoryService struct {
	portfolioRepo *repository.PortfolioRepository
	tradeRepo     *repository.TradeRepository
	quotes        QuoteSource
	rates         RateSource
	benchmarks    []model.Benchmark
	fetch         config.FetchConfig
	cache         *cache.Cache
	metrics       *metrics.Registry
	now           func() time.Time
}

// NewHistoryService creates a new HistoryService.
// Price histories are cached for fetch.HistoryCacheTTL; metrics may be nil.
func NewHistoryService(
	portfolioRepo *repository.PortfolioRepository,
	tradeRepo *repository.TradeRepository,
	quotes QuoteSource,
	rates RateSource,
	benchmarks []model.Benchmark,
	fetch config.FetchConfig,
	metrics *metrics.Registry,
) *HistoryService {
	ttl := fetch.HistoryCacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &HistoryService{
		portfolioRepo: portfolioRepo,
		tradeRepo:     tradeRepo,
		quotes:        quotes,
		rates:         rates,
		benchmarks:    benchmarks,
		fetch:         fetch,
		cache:         cache.New(ttl, 2*ttl),
		metrics:       metrics,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Benchmarks returns the benchmark catalogue used for comparisons.
func (s *HistoryService) Benchmarks() []model.Benchmark {
	return s.benchmarks
}

// Reconstruct rebuilds the value curve of a portfolio from its trade ledger.
//
// The window defaults to the first trade through scope.AsOf; a requested start
// before the first trade is moved forward to it. Each instrument and benchmark
// history is fetched once, concurrently and with bounded parallelism. A series
// that cannot be fetched is reported as missing and contributes nothing.
//
// An empty ledger yields an empty comparison. Only an unreadable ledger is an
// error.
func (s *HistoryService) Reconstruct(ctx context.Context, scope model.Scope, filters *model.HistoryFilters) (model.HistoryComparison, error) {
	started := time.Now()

	if _, err := s.portfolioRepo.GetPortfolioOnID(ctx, scope.PortfolioID); err != nil {
		return model.HistoryComparison{}, err
	}

	granularity := model.GranularityMonthly
	if filters != nil && filters.Granularity != "" {
		granularity = filters.Granularity
	}

	events, err := s.tradeRepo.GetTrades(ctx, scope.PortfolioID, "")
	if err != nil {
		return model.HistoryComparison{}, fmt.Errorf("%w: %v", apperrors.ErrLedgerUnreadable, err)
	}
	ledger := timeseries.NewLedger(events)

	first, ok := ledger.Start()
	if !ok {
		return model.HistoryComparison{Granularity: granularity, Benchmarks: map[string][]model.Sample{}}, nil
	}

	start, end := first, model.TruncateDay(scope.AsOf)
	if filters != nil {
		if filters.Start != nil && filters.Start.After(start) {
			start = *filters.Start
		}
		if filters.End != nil {
			end = *filters.End
		}
	}
	if end.Before(start) {
		return model.HistoryComparison{}, apperrors.ErrInvalidDateRange
	}

	from := start.Add(-historyLookback)
	prices := s.instrumentHistories(ctx, ledger.Instruments(), from, end)
	benchmarks, missing := s.benchmarkHistories(ctx, from, end)

	out := timeseries.Reconstruct(timeseries.Input{
		Granularity: granularity,
		Start:       start,
		End:         end,
		Ledger:      ledger,
		Prices:      prices,
		Benchmarks:  benchmarks,
	})
	out.MissingBenchmarks = missing

	s.metrics.ObserveReconstruction(string(granularity), time.Since(started))
	log.Debug().
		Str("portfolio", scope.PortfolioID).
		Str("granularity", string(granularity)).
		Int("points", len(out.Timestamps)).
		Strs("missing_instruments", out.MissingInstruments).
		Strs("missing_benchmarks", out.MissingBenchmarks).
		Dur("duration", time.Since(started)).
		Msg("history reconstructed")

	return out, nil
}

// instrumentHistories fetches the daily closes of every instrument. Results
// are keyed by the ledger instrument; failed fetches are left out.
func (s *HistoryService) instrumentHistories(ctx context.Context, instruments []string, from, to time.Time) map[string]timeseries.PriceSeries {
	results := fanout.Map(ctx, instruments, s.fetch.HistoryWorkers, func(ctx context.Context, instr string) (timeseries.PriceSeries, error) {
		return s.history(ctx, yahoo.NormalizeSymbol(instr), from, to)
	})

	prices := make(map[string]timeseries.PriceSeries, len(instruments))
	for i, r := range results {
		if r.Err != nil {
			log.Warn().Err(r.Err).Str("instrument", instruments[i]).Msg("price history unavailable")
			continue
		}
		prices[instruments[i]] = r.Value
	}
	return prices
}

// benchmarkHistories builds every benchmark series. Keys of benchmarks that
// produced no data are returned sorted in missing.
func (s *HistoryService) benchmarkHistories(ctx context.Context, from, to time.Time) (map[string]timeseries.PriceSeries, []string) {
	results := fanout.Map(ctx, s.benchmarks, s.fetch.BenchmarkWorkers, func(ctx context.Context, b model.Benchmark) (timeseries.PriceSeries, error) {
		return s.benchmarkSeries(ctx, b, from, to)
	})

	series := make(map[string]timeseries.PriceSeries, len(s.benchmarks))
	var missing []string
	for i, r := range results {
		key := s.benchmarks[i].Key
		if r.Err != nil || len(r.Value) == 0 {
			log.Warn().Err(r.Err).Str("benchmark", key).Msg("benchmark unavailable")
			missing = append(missing, key)
			continue
		}
		series[key] = r.Value
	}
	sort.Strings(missing)
	return series, missing
}

func (s *HistoryService) benchmarkSeries(ctx context.Context, b model.Benchmark, from, to time.Time) (timeseries.PriceSeries, error) {
	switch b.Kind {
	case model.BenchmarkQuote:
		var lastErr error
		for _, symbol := range b.Symbols {
			series, err := s.history(ctx, symbol, from, to)
			if err == nil && len(series) > 0 {
				return series, nil
			}
			lastErr = err
		}
		if lastErr == nil {
			lastErr = fmt.Errorf("%w: %s", apperrors.ErrQuoteUnavailable, b.Key)
		}
		return nil, lastErr

	case model.BenchmarkMonthlyIndex:
		// Monthly observations are dated on the first of their month.
		monthStart := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
		points, err := s.rates.HistoricalRateSeries(ctx, b.Index, monthStart, to)
		if err != nil {
			return nil, err
		}
		return timeseries.AccumulateMonthly(points), nil

	case model.BenchmarkDailyRate:
		points, err := s.rates.HistoricalRateSeries(ctx, b.Index, from, to)
		if err != nil {
			return nil, err
		}
		return timeseries.AccumulateDaily(points), nil
	}
	return nil, fmt.Errorf("unknown benchmark kind %q", b.Kind)
}

// history returns the cached close series of symbol, fetching it on a miss.
func (s *HistoryService) history(ctx context.Context, symbol string, from, to time.Time) (timeseries.PriceSeries, error) {
	key := fmt.Sprintf("%s|%s|%s", symbol, from.Format(time.DateOnly), to.Format(time.DateOnly))
	if v, ok := s.cache.Get(key); ok {
		return v.(timeseries.PriceSeries), nil
	}

	points, err := s.quotes.QuoteHistory(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: empty history for %s", apperrors.ErrQuoteUnavailable, symbol)
	}

	series := timeseries.NewPriceSeries(points)
	s.cache.SetDefault(key, series)
	return series, nil
}
