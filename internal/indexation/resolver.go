package indexation

import (
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ndewijer/portfolio-valuation/internal/model"
)

// BaseSource names the strategy that produced a reference base price.
type BaseSource string

const (
	BaseStored        BaseSource = "stored_base"
	BasePurchasePrice BaseSource = "purchase_price"
	BaseAverageCost   BaseSource = "average_cost"
	BaseEarliestTrade BaseSource = "earliest_trade"
)

// Base is the reference price and date an indexed holding accrues from.
type Base struct {
	Price  float64
	Date   time.Time
	Source BaseSource
}

// BaseStrategy tries to derive a base from a holding and its ledger events.
type BaseStrategy struct {
	Source  BaseSource
	Resolve func(h model.Holding, events []model.TradeEvent) (Base, bool)
}

// BaseResolver evaluates strategies in order; the first that succeeds wins.
// The holding's current price is never a candidate: compounding from it would
// re-apply growth on every revaluation.
type BaseResolver struct {
	strategies []BaseStrategy
}

// NewBaseResolver builds a resolver from explicit strategies.
func NewBaseResolver(strategies ...BaseStrategy) *BaseResolver {
	return &BaseResolver{strategies: strategies}
}

// DefaultBaseResolver returns the standard priority: stored base price and
// date, purchase price, average cost, earliest ledger price.
func DefaultBaseResolver() *BaseResolver {
	return NewBaseResolver(
		BaseStrategy{Source: BaseStored, Resolve: storedBase},
		BaseStrategy{Source: BasePurchasePrice, Resolve: purchasePrice},
		BaseStrategy{Source: BaseAverageCost, Resolve: averageCost},
		BaseStrategy{Source: BaseEarliestTrade, Resolve: earliestTrade},
	)
}

// Resolve returns the first base produced by the strategies. ok is false if
// none applies, in which case the holding must be skipped.
func (r *BaseResolver) Resolve(h model.Holding, events []model.TradeEvent) (Base, bool) {
	for _, s := range r.strategies {
		base, ok := s.Resolve(h, events)
		if !ok {
			continue
		}
		base.Source = s.Source
		log.Debug().
			Str("holding", h.ID).
			Str("instrument", h.Instrument).
			Str("source", string(s.Source)).
			Float64("base_price", base.Price).
			Time("base_date", base.Date).
			Msg("resolved base price")
		return base, true
	}

	log.Warn().
		Str("holding", h.ID).
		Str("instrument", h.Instrument).
		Msg("no base price strategy applied")
	return Base{}, false
}

func storedBase(h model.Holding, _ []model.TradeEvent) (Base, bool) {
	if h.BasePrice == nil || *h.BasePrice <= 0 || h.BaseDate == nil || h.BaseDate.IsZero() {
		return Base{}, false
	}
	return Base{Price: *h.BasePrice, Date: *h.BaseDate}, true
}

func purchasePrice(h model.Holding, _ []model.TradeEvent) (Base, bool) {
	if h.EntryPrice <= 0 || h.EntryDate.IsZero() {
		return Base{}, false
	}
	return Base{Price: h.EntryPrice, Date: h.EntryDate}, true
}

func averageCost(h model.Holding, events []model.TradeEvent) (Base, bool) {
	if h.AverageCost <= 0 {
		return Base{}, false
	}
	date := h.EntryDate
	if date.IsZero() {
		first, ok := firstAcquisition(events)
		if !ok {
			return Base{}, false
		}
		date = first.Timestamp
	}
	return Base{Price: h.AverageCost, Date: date}, true
}

func earliestTrade(_ model.Holding, events []model.TradeEvent) (Base, bool) {
	first, ok := firstAcquisition(events)
	if !ok {
		return Base{}, false
	}
	return Base{Price: first.UnitPrice, Date: first.Timestamp}, true
}

// firstAcquisition returns the earliest priced event that added quantity.
func firstAcquisition(events []model.TradeEvent) (model.TradeEvent, bool) {
	sorted := make([]model.TradeEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	for _, ev := range sorted {
		if ev.QuantityDelta > 0 && ev.UnitPrice > 0 {
			return ev, true
		}
	}
	return model.TradeEvent{}, false
}
