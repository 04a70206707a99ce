package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ndewijer/portfolio-valuation/internal/api/request"
	"github.com/ndewijer/portfolio-valuation/internal/apperrors"
	"github.com/ndewijer/portfolio-valuation/internal/model"
	"github.com/ndewijer/portfolio-valuation/internal/testutil"
)

// TestPortfolioService_GetAllPortfolios tests the GetAllPortfolios method.
//
// WHY: Portfolio retrieval is a fundamental operation. This ensures the service
// correctly returns all portfolios from the database, including the empty case.
func TestPortfolioService_GetAllPortfolios(t *testing.T) {
	t.Run("returns empty slice when no portfolios exist", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db)

		// Execute
		portfolios, err := svc.GetAllPortfolios(context.Background())

		// Assert
		if err != nil {
			t.Fatalf("GetAllPortfolios() returned unexpected error: %v", err)
		}
		if len(portfolios) != 0 {
			t.Errorf("Expected empty slice, got %d portfolios", len(portfolios))
		}
	})

	t.Run("returns every portfolio", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db)
		testutil.CreatePortfolio(t, db, "One")
		testutil.CreatePortfolio(t, db, "Two")

		portfolios, err := svc.GetAllPortfolios(context.Background())

		if err != nil {
			t.Fatalf("GetAllPortfolios() returned unexpected error: %v", err)
		}
		if len(portfolios) != 2 {
			t.Errorf("Expected 2 portfolios, got %d", len(portfolios))
		}
	})
}

func TestPortfolioService_CreatePortfolio(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestPortfolioService(t, db)

	created, err := svc.CreatePortfolio(context.Background(), request.CreatePortfolioRequest{Name: "New", Description: "desc"})
	if err != nil {
		t.Fatalf("CreatePortfolio() returned unexpected error: %v", err)
	}

	fetched, err := svc.GetPortfolio(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetPortfolio() returned unexpected error: %v", err)
	}
	if fetched.Name != "New" || fetched.Description != "desc" {
		t.Errorf("Unexpected portfolio %+v", fetched)
	}
}

// TestPortfolioService_GetSummary tests weights and maturity in the summary.
//
// WHY: Weights are what the allocation chart shows; they must add up to 100
// and maturity status must be evaluated against the requested date, not now.
func TestPortfolioService_GetSummary(t *testing.T) {
	t.Run("computes weights and maturity status", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db)
		p := testutil.CreatePortfolio(t, db, "Summary")

		asOf := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		testutil.NewHolding(p.ID, "PETR4").WithQuantity(10).WithCurrentPrice(50).Build(t, db)
		testutil.NewHolding(p.ID, "CDB-XP").
			WithQuantity(1).
			WithCurrentPrice(1500).
			WithRegime(model.CDI{Percent: 100}).
			WithMaturity(asOf.AddDate(0, 0, -1)).
			Build(t, db)

		// Execute
		summary, err := svc.GetSummary(context.Background(), model.NewScope(p.ID, asOf))

		// Assert
		if err != nil {
			t.Fatalf("GetSummary() returned unexpected error: %v", err)
		}
		if summary.TotalValue != 2000 {
			t.Errorf("Expected total value 2000, got %v", summary.TotalValue)
		}

		sum := 0.0
		for _, h := range summary.Holdings {
			sum += h.Weight
			if h.Instrument == "CDB-XP" && h.MaturityStatus.State != model.MaturityMatured {
				t.Errorf("Expected CDB-XP to be matured at %s, got %q", asOf.Format(time.DateOnly), h.MaturityStatus.State)
			}
		}
		if sum != 100 {
			t.Errorf("Expected weights to add up to 100, got %v", sum)
		}
	})

	t.Run("unknown portfolio returns ErrPortfolioNotFound", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPortfolioService(t, db)

		_, err := svc.GetSummary(context.Background(), model.NewScope(testutil.MakeID(), time.Time{}))

		if !errors.Is(err, apperrors.ErrPortfolioNotFound) {
			t.Errorf("Expected ErrPortfolioNotFound, got %v", err)
		}
	})
}
