package service

import (
	"context"
	"errors"

	"github.com/ndewijer/portfolio-valuation/internal/api/request"
	"github.com/ndewijer/portfolio-valuation/internal/apperrors"
	"github.com/ndewijer/portfolio-valuation/internal/model"
	"github.com/ndewijer/portfolio-valuation/internal/repository"
)

// PortfolioService handles portfolio-related business logic operations.
// It serves portfolios together with their holdings as of the last revaluation.
type PortfolioService struct {
	portfolioRepo *repository.PortfolioRepository
	holdingRepo   *repository.HoldingRepository
}

// NewPortfolioService creates a new PortfolioService with the provided repository dependencies.
func NewPortfolioService(
	portfolioRepo *repository.PortfolioRepository,
	holdingRepo *repository.HoldingRepository,
) *PortfolioService {
	return &PortfolioService{
		portfolioRepo: portfolioRepo,
		holdingRepo:   holdingRepo,
	}
}

// GetAllPortfolios retrieves all portfolios from the database.
func (s *PortfolioService) GetAllPortfolios(ctx context.Context) ([]model.Portfolio, error) {
	return s.portfolioRepo.GetPortfolios(ctx)
}

// GetPortfolio retrieves a single portfolio.
// Returns apperrors.ErrPortfolioNotFound if it does not exist.
func (s *PortfolioService) GetPortfolio(ctx context.Context, portfolioID string) (model.Portfolio, error) {
	return s.portfolioRepo.GetPortfolioOnID(ctx, portfolioID)
}

// CreatePortfolio stores a new, empty portfolio.
func (s *PortfolioService) CreatePortfolio(ctx context.Context, req request.CreatePortfolioRequest) (model.Portfolio, error) {
	return s.portfolioRepo.InsertPortfolio(ctx, req.Name, req.Description)
}

// DeletePortfolio removes a portfolio and everything attached to it.
func (s *PortfolioService) DeletePortfolio(ctx context.Context, portfolioID string) error {
	return s.portfolioRepo.DeletePortfolio(ctx, portfolioID)
}

// GetSummary returns the portfolio with its holdings, their weights and
// maturity status evaluated at scope.AsOf.
func (s *PortfolioService) GetSummary(ctx context.Context, scope model.Scope) (model.PortfolioSummary, error) {
	portfolio, err := s.portfolioRepo.GetPortfolioOnID(ctx, scope.PortfolioID)
	if err != nil {
		return model.PortfolioSummary{}, err
	}

	holdings, total, err := s.GetHoldings(ctx, scope)
	if err != nil {
		return model.PortfolioSummary{}, err
	}

	return model.PortfolioSummary{
		Portfolio:  portfolio,
		TotalValue: total,
		Holdings:   holdings,
	}, nil
}

// GetHoldings returns the holdings of scope.PortfolioID and their total value.
func (s *PortfolioService) GetHoldings(ctx context.Context, scope model.Scope) ([]model.HoldingResponse, float64, error) {
	if _, err := s.portfolioRepo.GetPortfolioOnID(ctx, scope.PortfolioID); err != nil {
		return nil, 0, err
	}

	holdings, err := s.holdingRepo.GetHoldings(ctx, scope.PortfolioID)
	if err != nil {
		return nil, 0, errors.Join(apperrors.ErrFailedToRetrieveHoldings, err)
	}

	total := 0.0
	for _, h := range holdings {
		total += h.CurrentValue
	}

	responses := make([]model.HoldingResponse, len(holdings))
	for i, h := range holdings {
		weight := 0.0
		if total > 0 {
			weight = roundCurrency(h.CurrentValue / total * 100)
		}
		responses[i] = h.Response(scope.AsOf, weight)
	}
	return responses, roundCurrency(total), nil
}
