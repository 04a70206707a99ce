package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ndewijer/portfolio-valuation/internal/api/request"
	"github.com/ndewijer/portfolio-valuation/internal/apperrors"
	"github.com/ndewijer/portfolio-valuation/internal/model"
	"github.com/ndewijer/portfolio-valuation/internal/repository"
	"github.com/ndewijer/portfolio-valuation/internal/timeseries"
)

// quantityEpsilon absorbs float noise when a sell closes a position.
const quantityEpsilon = 1e-9

// LedgerService appends trade events and keeps the derived holdings in step.
// The ledger stays the source of truth: holdings are only a materialized view
// of it plus the latest valuation.
type LedgerService struct {
	db            *sql.DB
	portfolioRepo *repository.PortfolioRepository
	holdingRepo   *repository.HoldingRepository
	tradeRepo     *repository.TradeRepository
}

// NewLedgerService creates a new LedgerService with the provided repository dependencies.
func NewLedgerService(
	db *sql.DB,
	portfolioRepo *repository.PortfolioRepository,
	holdingRepo *repository.HoldingRepository,
	tradeRepo *repository.TradeRepository,
) *LedgerService {
	return &LedgerService{
		db:            db,
		portfolioRepo: portfolioRepo,
		holdingRepo:   holdingRepo,
		tradeRepo:     tradeRepo,
	}
}

// ListTrades returns the ledger of a portfolio in chronological order,
// optionally restricted to one instrument.
func (s *LedgerService) ListTrades(ctx context.Context, portfolioID, instrument string) ([]model.TradeEvent, error) {
	if _, err := s.portfolioRepo.GetPortfolioOnID(ctx, portfolioID); err != nil {
		return nil, err
	}
	return s.tradeRepo.GetTrades(ctx, portfolioID, strings.ToUpper(strings.TrimSpace(instrument)))
}

// RecordTrade appends a trade to the ledger and applies it to the holding in
// one transaction. A first acquisition creates the holding, buys update the
// weighted average cost, and a sell that brings the quantity to zero removes
// it. Selling more than is held fails with apperrors.ErrInsufficientQuantity.
func (s *LedgerService) RecordTrade(ctx context.Context, scope model.Scope, req request.CreateTradeRequest) (model.TradeResult, error) {
	if _, err := s.portfolioRepo.GetPortfolioOnID(ctx, scope.PortfolioID); err != nil {
		return model.TradeResult{}, err
	}

	timestamp, err := request.ParseTime(req.Timestamp)
	if err != nil {
		return model.TradeResult{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidDate, err)
	}

	kind := model.TradeKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	ev := model.TradeEvent{
		PortfolioID:   scope.PortfolioID,
		Instrument:    strings.ToUpper(strings.TrimSpace(req.Instrument)),
		Timestamp:     timestamp,
		QuantityDelta: signedQuantity(kind, req.Quantity),
		UnitPrice:     req.UnitPrice,
		Kind:          kind,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.TradeResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if ev.QuantityDelta < 0 {
		if err := s.checkNeverShort(ctx, tx, ev); err != nil {
			return model.TradeResult{}, err
		}
	}

	holdings := s.holdingRepo.WithTx(tx)

	existing, err := holdings.GetHoldingByInstrument(ctx, scope.PortfolioID, ev.Instrument)
	var holding *model.Holding
	switch {
	case errors.Is(err, apperrors.ErrHoldingNotFound):
		holding, err = openHolding(ev, req)
		if err != nil {
			return model.TradeResult{}, err
		}
		if err := holdings.InsertHolding(ctx, holding); err != nil {
			return model.TradeResult{}, err
		}
	case err != nil:
		return model.TradeResult{}, err
	default:
		holding, err = applyTrade(existing, ev)
		if err != nil {
			return model.TradeResult{}, err
		}
		if holding == nil {
			err = holdings.DeleteHolding(ctx, existing.ID)
		} else {
			err = holdings.UpdatePosition(ctx, *holding)
		}
		if err != nil {
			return model.TradeResult{}, err
		}
	}

	if err := s.tradeRepo.WithTx(tx).InsertTrade(ctx, &ev); err != nil {
		return model.TradeResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.TradeResult{}, fmt.Errorf("failed to commit trade: %w", err)
	}

	log.Info().
		Str("portfolio", scope.PortfolioID).
		Str("instrument", ev.Instrument).
		Str("kind", string(ev.Kind)).
		Float64("quantity_delta", ev.QuantityDelta).
		Bool("closed", holding == nil).
		Msg("trade recorded")

	result := model.TradeResult{Trade: ev}
	if holding != nil {
		resp := holding.Response(scope.AsOf, 0)
		result.Holding = &resp
	}
	return result, nil
}

// checkNeverShort replays the instrument's ledger with ev inserted at its
// timestamp and rejects ev if the position goes negative on any day, so a
// backdated sell cannot precede the buys that cover it.
func (s *LedgerService) checkNeverShort(ctx context.Context, tx *sql.Tx, ev model.TradeEvent) error {
	events, err := s.tradeRepo.WithTx(tx).GetTrades(ctx, ev.PortfolioID, ev.Instrument)
	if err != nil {
		return err
	}
	ledger := timeseries.NewLedger(append(events, ev))
	if low := ledger.MinQuantity(ev.Instrument); low < -quantityEpsilon {
		return fmt.Errorf("%w: %s would be short %g after the trade on %s",
			apperrors.ErrInsufficientQuantity, ev.Instrument, -low, ev.Timestamp.Format(time.DateOnly))
	}
	return nil
}

// UpdateHolding changes the descriptive and indexation terms of a holding.
// Setting a regime without a base price keeps the stored one.
func (s *LedgerService) UpdateHolding(ctx context.Context, scope model.Scope, holdingID string, req request.UpdateHoldingRequest) (model.HoldingResponse, error) {
	h, err := s.holdingRepo.GetHoldingOnID(ctx, holdingID)
	if err != nil {
		return model.HoldingResponse{}, err
	}
	if h.PortfolioID != scope.PortfolioID {
		return model.HoldingResponse{}, apperrors.ErrHoldingNotFound
	}

	if req.Name != nil {
		h.Name = strings.TrimSpace(*req.Name)
	}
	if req.AssetClass != nil {
		h.AssetClass = strings.TrimSpace(*req.AssetClass)
	}
	if req.ClearRegime {
		h.Regime, h.BasePrice, h.BaseDate = nil, nil, nil
	}
	if req.Regime != nil {
		if err := applyRegime(&h, *req.Regime); err != nil {
			return model.HoldingResponse{}, err
		}
	}
	if req.Maturity != nil {
		maturity, err := request.ParseTime(*req.Maturity)
		if err != nil {
			return model.HoldingResponse{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidDate, err)
		}
		h.Maturity = &maturity
	}

	if err := s.holdingRepo.UpdateTerms(ctx, h); err != nil {
		return model.HoldingResponse{}, err
	}
	return h.Response(scope.AsOf, 0), nil
}

func signedQuantity(kind model.TradeKind, quantity float64) float64 {
	if kind == model.TradeSell {
		return -quantity
	}
	return quantity
}

// openHolding builds the holding created by the first acquisition of an
// instrument. Indexed holdings accrue from the trade unless the request
// carries an explicit base.
func openHolding(ev model.TradeEvent, req request.CreateTradeRequest) (*model.Holding, error) {
	if ev.QuantityDelta <= 0 {
		return nil, fmt.Errorf("%w: %s is not held", apperrors.ErrInsufficientQuantity, ev.Instrument)
	}

	now := time.Now().UTC()
	h := &model.Holding{
		PortfolioID:  ev.PortfolioID,
		Instrument:   ev.Instrument,
		Name:         strings.TrimSpace(req.Name),
		AssetClass:   strings.TrimSpace(req.AssetClass),
		Quantity:     ev.QuantityDelta,
		EntryPrice:   ev.UnitPrice,
		AverageCost:  ev.UnitPrice,
		EntryDate:    model.TruncateDay(ev.Timestamp),
		CurrentPrice: ev.UnitPrice,
		CurrentValue: roundCurrency(ev.QuantityDelta * ev.UnitPrice),
		UpdatedAt:    &now,
	}

	if req.Regime != nil {
		if err := applyRegime(h, *req.Regime); err != nil {
			return nil, err
		}
		if h.BasePrice == nil {
			price, date := ev.UnitPrice, h.EntryDate
			h.BasePrice, h.BaseDate = &price, &date
		}
	}

	if req.Maturity != nil {
		maturity, err := request.ParseTime(*req.Maturity)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidDate, err)
		}
		h.Maturity = &maturity
	}
	return h, nil
}

// applyTrade returns the holding after ev, or nil when the position closes.
func applyTrade(h model.Holding, ev model.TradeEvent) (*model.Holding, error) {
	quantity := h.Quantity + ev.QuantityDelta
	if quantity < -quantityEpsilon {
		return nil, fmt.Errorf("%w: holding %g %s, trade %g",
			apperrors.ErrInsufficientQuantity, h.Quantity, h.Instrument, ev.QuantityDelta)
	}
	if quantity <= quantityEpsilon {
		return nil, nil
	}

	if ev.Kind == model.TradeBuy {
		h.AverageCost = (h.Quantity*h.AverageCost + ev.QuantityDelta*ev.UnitPrice) / quantity
	}
	h.Quantity = quantity
	h.CurrentValue = roundCurrency(quantity * h.CurrentPrice)
	return &h, nil
}

func applyRegime(h *model.Holding, req request.RegimeRequest) error {
	h.Regime = model.NewRegime(req.Kind, req.Rate)
	if req.BasePrice != nil {
		price := *req.BasePrice
		h.BasePrice = &price
	}
	if req.BaseDate != nil {
		date, err := request.ParseTime(*req.BaseDate)
		if err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrInvalidDate, err)
		}
		h.BaseDate = &date
	}
	return nil
}
