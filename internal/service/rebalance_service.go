package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ndewijer/portfolio-valuation/internal/api/request"
	"github.com/ndewijer/portfolio-valuation/internal/apperrors"
	"github.com/ndewijer/portfolio-valuation/internal/model"
	"github.com/ndewijer/portfolio-valuation/internal/rebalance"
	"github.com/ndewijer/portfolio-valuation/internal/repository"
)

// RebalanceService manages rebalance configuration and reports allocation
// drift against the configured targets.
type RebalanceService struct {
	portfolioRepo *repository.PortfolioRepository
	holdingRepo   *repository.HoldingRepository
	rebalanceRepo *repository.RebalanceRepository
	now           func() time.Time
}

// NewRebalanceService creates a new RebalanceService.
func NewRebalanceService(
	portfolioRepo *repository.PortfolioRepository,
	holdingRepo *repository.HoldingRepository,
	rebalanceRepo *repository.RebalanceRepository,
) *RebalanceService {
	return &RebalanceService{
		portfolioRepo: portfolioRepo,
		holdingRepo:   holdingRepo,
		rebalanceRepo: rebalanceRepo,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// GetConfig returns the rebalance configuration of a portfolio.
// Returns apperrors.ErrRebalanceConfigNotFound when none was saved.
func (s *RebalanceService) GetConfig(ctx context.Context, portfolioID string) (model.RebalanceConfig, error) {
	if _, err := s.portfolioRepo.GetPortfolioOnID(ctx, portfolioID); err != nil {
		return model.RebalanceConfig{}, err
	}
	return s.rebalanceRepo.GetConfig(ctx, portfolioID)
}

// SaveConfig creates or replaces the configuration. The request is expected
// to be validated. A new configuration starts now.
func (s *RebalanceService) SaveConfig(ctx context.Context, portfolioID string, req request.RebalanceConfigRequest) (model.RebalanceConfig, error) {
	if _, err := s.portfolioRepo.GetPortfolioOnID(ctx, portfolioID); err != nil {
		return model.RebalanceConfig{}, err
	}

	periodicity, err := model.ParsePeriodicity(req.Periodicity)
	if err != nil {
		return model.RebalanceConfig{}, err
	}

	now := s.now()
	cfg := model.RebalanceConfig{
		PortfolioID: portfolioID,
		Periodicity: periodicity,
		Targets:     make(map[string]float64, len(req.Targets)),
		StartDate:   now,
		UpdatedAt:   now,
	}
	for class, pct := range req.Targets {
		cfg.Targets[assetClassOf(strings.TrimSpace(class))] = pct
	}
	if req.LastRebalanceDate != nil {
		last, err := request.ParseTime(*req.LastRebalanceDate)
		if err != nil {
			return model.RebalanceConfig{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidDate, err)
		}
		cfg.LastRebalanceDate = &last
	}

	if err := s.rebalanceRepo.SaveConfig(ctx, cfg); err != nil {
		return model.RebalanceConfig{}, err
	}

	log.Info().
		Str("portfolio", portfolioID).
		Str("periodicity", string(periodicity)).
		Int("targets", len(cfg.Targets)).
		Msg("rebalance config saved")

	return s.rebalanceRepo.GetConfig(ctx, portfolioID)
}

// Status compares the current allocation of scope.PortfolioID with its
// targets at scope.AsOf. Holdings are grouped by asset class using their last
// revalued value. A portfolio without configuration reports Configured=false.
func (s *RebalanceService) Status(ctx context.Context, scope model.Scope) (model.RebalanceStatus, error) {
	if _, err := s.portfolioRepo.GetPortfolioOnID(ctx, scope.PortfolioID); err != nil {
		return model.RebalanceStatus{}, err
	}

	var cfg *model.RebalanceConfig
	stored, err := s.rebalanceRepo.GetConfig(ctx, scope.PortfolioID)
	switch {
	case err == nil:
		cfg = &stored
	case !errors.Is(err, apperrors.ErrRebalanceConfigNotFound):
		return model.RebalanceStatus{}, err
	}

	holdings, err := s.holdingRepo.GetHoldings(ctx, scope.PortfolioID)
	if err != nil {
		return model.RebalanceStatus{}, errors.Join(apperrors.ErrFailedToRetrieveHoldings, err)
	}

	allocation := make(map[string]float64)
	for _, h := range holdings {
		allocation[assetClassOf(h.AssetClass)] += h.CurrentValue
	}

	return rebalance.Status(cfg, allocation, scope.AsOf), nil
}

// RecordEvent logs an executed rebalance and moves the next due date.
func (s *RebalanceService) RecordEvent(ctx context.Context, portfolioID string, req request.RebalanceEventRequest) (model.RebalanceEvent, error) {
	if _, err := s.portfolioRepo.GetPortfolioOnID(ctx, portfolioID); err != nil {
		return model.RebalanceEvent{}, err
	}

	at := s.now()
	if req.Date != nil {
		parsed, err := request.ParseTime(*req.Date)
		if err != nil {
			return model.RebalanceEvent{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidDate, err)
		}
		at = parsed
	}

	ev := model.RebalanceEvent{
		PortfolioID: portfolioID,
		Timestamp:   at,
		Note:        strings.TrimSpace(req.Note),
	}
	if err := s.rebalanceRepo.RecordEvent(ctx, &ev); err != nil {
		return model.RebalanceEvent{}, err
	}

	log.Info().Str("portfolio", portfolioID).Time("at", at).Msg("rebalance recorded")
	return ev, nil
}

// History lists recorded rebalances, most recent first.
func (s *RebalanceService) History(ctx context.Context, portfolioID string) ([]model.RebalanceEvent, error) {
	if _, err := s.portfolioRepo.GetPortfolioOnID(ctx, portfolioID); err != nil {
		return nil, err
	}
	return s.rebalanceRepo.GetEvents(ctx, portfolioID)
}
