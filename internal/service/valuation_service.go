package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ndewijer/portfolio-valuation/internal/api/request"
	"github.com/ndewijer/portfolio-valuation/internal/apperrors"
	"github.com/ndewijer/portfolio-valuation/internal/fanout"
	"github.com/ndewijer/portfolio-valuation/internal/indexation"
	"github.com/ndewijer/portfolio-valuation/internal/metrics"
	"github.com/ndewijer/portfolio-valuation/internal/model"
	"github.com/ndewijer/portfolio-valuation/internal/repository"
)

// Revaluation outcomes reported to metrics.
const (
	outcomeUpdated  = "updated"
	outcomeFallback = "fallback"
	outcomeSkipped  = "skipped"
	outcomeFailed   = "failed"
)

// ValuationService refreshes the current price and value of every holding.
// Indexed holdings go through the indexation engine; market holdings take
// the latest quote. Each holding is updated independently: one failure is
// reported in the result and never aborts the batch.
type ValuationService struct {
	portfolioRepo *repository.PortfolioRepository
	holdingRepo   *repository.HoldingRepository
	tradeRepo     *repository.TradeRepository
	anomalyRepo   *repository.AnomalyRepository
	engine        *indexation.Engine
	resolver      *indexation.BaseResolver
	quotes        QuoteSource
	rates         RateSource
	metrics       *metrics.Registry
	now           func() time.Time
}

// NewValuationService creates a new ValuationService. metrics may be nil.
func NewValuationService(
	portfolioRepo *repository.PortfolioRepository,
	holdingRepo *repository.HoldingRepository,
	tradeRepo *repository.TradeRepository,
	anomalyRepo *repository.AnomalyRepository,
	engine *indexation.Engine,
	quotes QuoteSource,
	rates RateSource,
	metrics *metrics.Registry,
) *ValuationService {
	return &ValuationService{
		portfolioRepo: portfolioRepo,
		holdingRepo:   holdingRepo,
		tradeRepo:     tradeRepo,
		anomalyRepo:   anomalyRepo,
		engine:        engine,
		resolver:      indexation.DefaultBaseResolver(),
		quotes:        quotes,
		rates:         rates,
		metrics:       metrics,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// RevalueAll revalues every holding of scope.PortfolioID at scope.AsOf.
//
// Indexed holdings accrue from the base resolved by the base strategies;
// when the reference rate is unavailable the stored price is kept, and when
// the engine rejects a result the entry price is written and an anomaly is
// recorded. Market holdings are quoted in one batch; instruments without a
// quote keep their stored price.
//
// The only hard error is an unreadable portfolio or ledger.
func (s *ValuationService) RevalueAll(ctx context.Context, scope model.Scope) (model.RevalueResult, error) {
	if _, err := s.portfolioRepo.GetPortfolioOnID(ctx, scope.PortfolioID); err != nil {
		return model.RevalueResult{}, err
	}

	holdings, err := s.holdingRepo.GetHoldings(ctx, scope.PortfolioID)
	if err != nil {
		return model.RevalueResult{}, fmt.Errorf("%w: %v", apperrors.ErrLedgerUnreadable, err)
	}
	events, err := s.tradeRepo.GetTrades(ctx, scope.PortfolioID, "")
	if err != nil {
		return model.RevalueResult{}, fmt.Errorf("%w: %v", apperrors.ErrLedgerUnreadable, err)
	}
	byInstrument := make(map[string][]model.TradeEvent)
	for _, ev := range events {
		byInstrument[ev.Instrument] = append(byInstrument[ev.Instrument], ev)
	}

	var indexed, market []model.Holding
	for _, h := range holdings {
		if h.IsIndexed() {
			indexed = append(indexed, h)
		} else {
			market = append(market, h)
		}
	}

	result := model.RevalueResult{Errors: []model.HoldingError{}}

	rates := s.currentRates(ctx, indexed)
	for _, h := range indexed {
		s.revalueIndexed(ctx, scope, h, byInstrument[h.Instrument], rates, &result)
	}
	s.revalueMarket(ctx, scope, market, &result)

	log.Info().
		Str("portfolio", scope.PortfolioID).
		Time("as_of", scope.AsOf).
		Int("updated", result.UpdatedCount).
		Int("skipped", result.SkippedCount).
		Int("errors", len(result.Errors)).
		Msg("revaluation complete")

	return result, nil
}

// currentRates fetches each reference rate the indexed holdings depend on once.
// Indexes that could not be fetched are absent from the snapshot.
func (s *ValuationService) currentRates(ctx context.Context, holdings []model.Holding) indexation.Rates {
	var indexes []model.RateIndex
	seen := make(map[model.RateIndex]bool)
	for _, h := range holdings {
		if idx, ok := model.RegimeIndex(h.Regime); ok && !seen[idx] {
			seen[idx] = true
			indexes = append(indexes, idx)
		}
	}

	rates := make(indexation.Rates, len(indexes))
	results := fanout.Map(ctx, indexes, len(indexes), s.rates.CurrentRate)
	for i, r := range results {
		if r.Err != nil {
			log.Warn().Err(r.Err).Str("index", string(indexes[i])).Msg("reference rate unavailable")
			continue
		}
		rates[indexes[i]] = r.Value
	}
	return rates
}

func (s *ValuationService) revalueIndexed(
	ctx context.Context,
	scope model.Scope,
	h model.Holding,
	events []model.TradeEvent,
	rates indexation.Rates,
	result *model.RevalueResult,
) {
	base, ok := s.resolver.Resolve(h, events)
	if !ok {
		s.skip(result, h, apperrors.ErrNoBasePrice)
		return
	}

	v := s.engine.Valuate(base.Price, h.Regime, base.Date, scope.AsOf, rates)

	switch {
	case v.Status == indexation.StatusRateUnavailable:
		index, _ := model.RegimeIndex(h.Regime)
		s.skip(result, h, fmt.Errorf("%w: %s", apperrors.ErrRateUnavailable, index))
		return
	case v.Reason != "":
		s.recordAnomaly(ctx, scope, h, base, v)
	}

	if err := s.persist(ctx, h, v.Price, model.Fundamentals{}); err != nil {
		s.fail(result, h, err)
		return
	}
	result.UpdatedCount++
	if v.Fallback() {
		s.metrics.Revalued(outcomeFallback)
	} else {
		s.metrics.Revalued(outcomeUpdated)
	}
}

func (s *ValuationService) revalueMarket(ctx context.Context, scope model.Scope, holdings []model.Holding, result *model.RevalueResult) {
	if len(holdings) == 0 {
		return
	}

	tickers := make([]string, len(holdings))
	for i, h := range holdings {
		tickers[i] = h.Instrument
	}

	quotes, err := s.quotes.CurrentQuotes(ctx, tickers)
	if err != nil {
		log.Error().Err(err).Str("portfolio", scope.PortfolioID).Msg("quote batch failed")
		for _, h := range holdings {
			s.skip(result, h, err)
		}
		return
	}

	for _, h := range holdings {
		q, ok := quotes[h.Instrument]
		if !ok || q.Price <= 0 {
			s.skip(result, h, fmt.Errorf("%w: %s", apperrors.ErrQuoteUnavailable, h.Instrument))
			continue
		}
		if err := s.persist(ctx, h, q.Price, q.Fundamentals); err != nil {
			s.fail(result, h, err)
			continue
		}
		result.UpdatedCount++
		s.metrics.Revalued(outcomeUpdated)
	}
}

func (s *ValuationService) persist(ctx context.Context, h model.Holding, price float64, f model.Fundamentals) error {
	return s.holdingRepo.UpdateValuation(ctx, h.ID, price, roundCurrency(h.Quantity*price), f, s.now())
}

func (s *ValuationService) recordAnomaly(ctx context.Context, scope model.Scope, h model.Holding, base indexation.Base, v indexation.Valuation) {
	a := &model.Anomaly{
		PortfolioID:   scope.PortfolioID,
		HoldingID:     h.ID,
		Instrument:    h.Instrument,
		Regime:        model.DescribeRegime(h.Regime),
		Reason:        v.Reason,
		EntryPrice:    base.Price,
		ComputedPrice: v.Computed,
		RecordedAt:    s.now(),
	}

	log.Warn().
		Str("holding", h.ID).
		Str("instrument", h.Instrument).
		Str("regime", a.Regime).
		Str("reason", string(v.Reason)).
		Float64("entry_price", base.Price).
		Float64("computed_price", v.Computed).
		Msg("indexed valuation rejected, using entry price")

	s.metrics.Anomaly(string(v.Reason))
	if err := s.anomalyRepo.InsertAnomaly(ctx, a); err != nil {
		log.Error().Err(err).Str("holding", h.ID).Msg("failed to record valuation anomaly")
	}
}

func (s *ValuationService) skip(result *model.RevalueResult, h model.Holding, err error) {
	result.SkippedCount++
	result.Errors = append(result.Errors, model.HoldingError{HoldingID: h.ID, Instrument: h.Instrument, Error: err.Error()})
	s.metrics.Revalued(outcomeSkipped)
}

func (s *ValuationService) fail(result *model.RevalueResult, h model.Holding, err error) {
	result.Errors = append(result.Errors, model.HoldingError{HoldingID: h.ID, Instrument: h.Instrument, Error: err.Error()})
	s.metrics.Revalued(outcomeFailed)
	log.Error().Err(err).Str("holding", h.ID).Msg("failed to persist valuation")
}

// ValuateIndexed prices an indexed position on demand without reading or
// writing any holding. The reference rate is fetched when the regime needs
// one; if it is unavailable the entry price is returned with status
// rate_unavailable.
func (s *ValuationService) ValuateIndexed(ctx context.Context, req request.IndexedValuationRequest) (model.IndexedValuation, error) {
	entryDate, err := request.ParseTime(req.EntryDate)
	if err != nil {
		return model.IndexedValuation{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidDate, err)
	}
	asOf := s.now()
	if req.AsOf != nil {
		if asOf, err = request.ParseTime(*req.AsOf); err != nil {
			return model.IndexedValuation{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidDate, err)
		}
	}

	regime := model.NewRegime(req.Regime.Kind, req.Regime.Rate)
	out := model.IndexedValuation{Regime: model.DescribeRegime(regime)}

	rates := indexation.Rates{}
	if index, ok := model.RegimeIndex(regime); ok {
		rate, err := s.rates.CurrentRate(ctx, index)
		switch {
		case err == nil:
			rates[index] = rate
			out.Rate = &rate
		case errors.Is(err, context.Canceled):
			return model.IndexedValuation{}, err
		default:
			log.Warn().Err(err).Str("index", string(index)).Msg("reference rate unavailable")
		}
	}

	v := s.engine.Valuate(req.EntryPrice, regime, entryDate, asOf, rates)
	if v.Reason != "" {
		s.metrics.Anomaly(string(v.Reason))
	}

	out.Price = v.Price
	out.Computed = v.Computed
	out.Factor = v.Factor
	out.ElapsedDays = v.ElapsedDays
	out.Status = string(v.Status)
	out.Reason = v.Reason
	return out, nil
}

// GetAnomalies lists the most recent valuation anomalies of a portfolio.
func (s *ValuationService) GetAnomalies(ctx context.Context, portfolioID string, limit int) ([]model.Anomaly, error) {
	if _, err := s.portfolioRepo.GetPortfolioOnID(ctx, portfolioID); err != nil {
		return nil, err
	}
	return s.anomalyRepo.GetAnomalies(ctx, portfolioID, limit)
}
