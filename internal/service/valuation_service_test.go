package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ndewijer/portfolio-valuation/internal/api/request"
	"github.com/ndewijer/portfolio-valuation/internal/apperrors"
	"github.com/ndewijer/portfolio-valuation/internal/config"
	"github.com/ndewijer/portfolio-valuation/internal/indexation"
	"github.com/ndewijer/portfolio-valuation/internal/model"
	"github.com/ndewijer/portfolio-valuation/internal/repository"
	"github.com/ndewijer/portfolio-valuation/internal/testutil"
)

var baseDate = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

// TestValuationService_RevalueAll_Indexed tests revaluation of indexed holdings.
//
// WHY: Indexed holdings have no market quote. Their price must come from the
// indexation engine, and a rejected computation must keep the base price and
// leave an audit record instead of writing an absurd value.
func TestValuationService_RevalueAll_Indexed(t *testing.T) {
	ctx := context.Background()

	t.Run("accrues from the stored base", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		rates := testutil.NewMockRateSource().WithRate(model.IndexCDI, 12)
		svc := testutil.NewTestValuationService(t, db, testutil.NewMockQuoteSource(), rates)
		p := testutil.CreatePortfolio(t, db, "Fixed income")
		h := testutil.NewHolding(p.ID, "CDB-XP").
			WithQuantity(2).
			WithRegime(model.CDI{Percent: 110}).
			WithBase(1000, baseDate).
			Build(t, db)
		asOf := baseDate.AddDate(0, 0, 90)

		// Execute
		result, err := svc.RevalueAll(ctx, model.NewScope(p.ID, asOf))

		// Assert
		if err != nil {
			t.Fatalf("RevalueAll() returned unexpected error: %v", err)
		}
		if result.UpdatedCount != 1 || result.SkippedCount != 0 {
			t.Errorf("Unexpected result %+v", result)
		}

		want := indexation.NewEngine(config.Default().Valuation).
			Valuate(1000, model.CDI{Percent: 110}, baseDate, asOf, indexation.Rates{model.IndexCDI: 12})
		stored, err := repository.NewHoldingRepository(db).GetHoldingOnID(ctx, h.ID)
		if err != nil {
			t.Fatalf("holding lookup failed: %v", err)
		}
		if stored.CurrentPrice != want.Price {
			t.Errorf("Expected price %v, got %v", want.Price, stored.CurrentPrice)
		}
		if stored.CurrentPrice <= 1000 {
			t.Errorf("Expected the price to grow, got %v", stored.CurrentPrice)
		}
		if stored.UpdatedAt == nil {
			t.Error("Expected updatedAt to be set")
		}
	})

	t.Run("fetches each reference rate once", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		rates := testutil.NewMockRateSource().WithRate(model.IndexCDI, 12)
		svc := testutil.NewTestValuationService(t, db, testutil.NewMockQuoteSource(), rates)
		p := testutil.CreatePortfolio(t, db, "Fixed income")
		testutil.NewHolding(p.ID, "CDB-A").WithRegime(model.CDI{Percent: 100}).WithBase(1000, baseDate).Build(t, db)
		testutil.NewHolding(p.ID, "CDB-B").WithRegime(model.CDISpread{Spread: 2}).WithBase(1000, baseDate).Build(t, db)

		result, err := svc.RevalueAll(ctx, model.NewScope(p.ID, baseDate.AddDate(0, 1, 0)))

		if err != nil {
			t.Fatalf("RevalueAll() returned unexpected error: %v", err)
		}
		if result.UpdatedCount != 2 {
			t.Errorf("Expected 2 updates, got %d", result.UpdatedCount)
		}
		if rates.CurrentCalls[model.IndexCDI] != 1 {
			t.Errorf("Expected 1 CDI fetch, got %d", rates.CurrentCalls[model.IndexCDI])
		}
	})

	t.Run("circuit breaker keeps the base price and records an anomaly", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestValuationService(t, db, testutil.NewMockQuoteSource(), testutil.NewMockRateSource())
		p := testutil.CreatePortfolio(t, db, "Fixed income")
		h := testutil.NewHolding(p.ID, "PRE-X").
			WithRegime(model.FixedRate{AnnualRate: 1000}).
			WithBase(1000, baseDate).
			Build(t, db)

		result, err := svc.RevalueAll(ctx, model.NewScope(p.ID, baseDate.AddDate(10, 0, 0)))

		if err != nil {
			t.Fatalf("RevalueAll() returned unexpected error: %v", err)
		}
		if result.UpdatedCount != 1 {
			t.Errorf("Expected the fallback to count as an update, got %+v", result)
		}

		stored, err := repository.NewHoldingRepository(db).GetHoldingOnID(ctx, h.ID)
		if err != nil {
			t.Fatalf("holding lookup failed: %v", err)
		}
		if stored.CurrentPrice != 1000 {
			t.Errorf("Expected the base price 1000, got %v", stored.CurrentPrice)
		}

		anomalies, err := svc.GetAnomalies(ctx, p.ID, 10)
		if err != nil {
			t.Fatalf("GetAnomalies() returned unexpected error: %v", err)
		}
		if len(anomalies) != 1 {
			t.Fatalf("Expected 1 anomaly, got %d", len(anomalies))
		}
		if anomalies[0].HoldingID != h.ID || anomalies[0].ComputedPrice <= 20000 {
			t.Errorf("Unexpected anomaly %+v", anomalies[0])
		}
	})

	t.Run("unavailable rate skips the holding and keeps its price", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestValuationService(t, db, testutil.NewMockQuoteSource(), testutil.NewMockRateSource())
		p := testutil.CreatePortfolio(t, db, "Fixed income")
		h := testutil.NewHolding(p.ID, "TESOURO-IPCA").
			WithCurrentPrice(1234).
			WithRegime(model.IPCASpread{Spread: 6}).
			WithBase(1000, baseDate).
			Build(t, db)

		result, err := svc.RevalueAll(ctx, model.NewScope(p.ID, baseDate.AddDate(0, 6, 0)))

		if err != nil {
			t.Fatalf("RevalueAll() returned unexpected error: %v", err)
		}
		if result.SkippedCount != 1 || result.UpdatedCount != 0 {
			t.Errorf("Unexpected result %+v", result)
		}
		if len(result.Errors) != 1 || !strings.Contains(result.Errors[0].Error, apperrors.ErrRateUnavailable.Error()) {
			t.Errorf("Expected a rate unavailable error, got %+v", result.Errors)
		}

		stored, err := repository.NewHoldingRepository(db).GetHoldingOnID(ctx, h.ID)
		if err != nil {
			t.Fatalf("holding lookup failed: %v", err)
		}
		if stored.CurrentPrice != 1234 {
			t.Errorf("Expected the stored price to be kept, got %v", stored.CurrentPrice)
		}
		testutil.AssertRowCount(t, db, "valuation_anomaly", 0)
	})

	t.Run("deflation month still revalues inflation-linked holdings", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		rates := testutil.NewMockRateSource().WithRate(model.IndexIPCA, -0.29)
		svc := testutil.NewTestValuationService(t, db, testutil.NewMockQuoteSource(), rates)
		p := testutil.CreatePortfolio(t, db, "Inflation")
		spread := testutil.NewHolding(p.ID, "TESOURO-IPCA").
			WithCurrentPrice(1000).
			WithRegime(model.IPCASpread{Spread: 6}).
			WithBase(1000, baseDate).
			Build(t, db)
		plain := testutil.NewHolding(p.ID, "CDB-IPCA").
			WithCurrentPrice(1000).
			WithRegime(model.IPCA{Percent: 100}).
			WithBase(1000, baseDate).
			Build(t, db)
		asOf := baseDate.AddDate(0, 6, 0)

		result, err := svc.RevalueAll(ctx, model.NewScope(p.ID, asOf))

		if err != nil {
			t.Fatalf("RevalueAll() returned unexpected error: %v", err)
		}
		if result.UpdatedCount != 2 || result.SkippedCount != 0 {
			t.Errorf("Expected both holdings updated, got %+v", result)
		}

		repo := repository.NewHoldingRepository(db)
		engine := indexation.NewEngine(config.Default().Valuation)
		deflation := indexation.Rates{model.IndexIPCA: -0.29}

		storedSpread, err := repo.GetHoldingOnID(ctx, spread.ID)
		if err != nil {
			t.Fatalf("holding lookup failed: %v", err)
		}
		want := engine.Valuate(1000, model.IPCASpread{Spread: 6}, baseDate, asOf, deflation)
		if storedSpread.CurrentPrice != want.Price || storedSpread.CurrentPrice <= 1000 {
			t.Errorf("Expected IPCA+ to keep accruing to %v, got %v", want.Price, storedSpread.CurrentPrice)
		}

		storedPlain, err := repo.GetHoldingOnID(ctx, plain.ID)
		if err != nil {
			t.Fatalf("holding lookup failed: %v", err)
		}
		if storedPlain.CurrentPrice >= 1000 {
			t.Errorf("Expected plain IPCA to deflate, got %v", storedPlain.CurrentPrice)
		}
		testutil.AssertRowCount(t, db, "valuation_anomaly", 0)
	})
}

// TestValuationService_RevalueAll_Market tests revaluation of quoted holdings.
//
// WHY: Quote outages are routine. A missing quote must skip only that
// holding; a failed batch must skip all of them without failing the call.
func TestValuationService_RevalueAll_Market(t *testing.T) {
	ctx := context.Background()

	t.Run("applies quotes and fundamentals", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		dy := 8.5
		quotes := testutil.NewMockQuoteSource().WithFundamentals("PETR4", 37.5, model.Fundamentals{DividendYield: &dy})
		svc := testutil.NewTestValuationService(t, db, quotes, testutil.NewMockRateSource())
		p := testutil.CreatePortfolio(t, db, "Stocks")
		h := testutil.NewHolding(p.ID, "PETR4").WithQuantity(100).Build(t, db)

		result, err := svc.RevalueAll(ctx, model.NewScope(p.ID, time.Time{}))

		if err != nil {
			t.Fatalf("RevalueAll() returned unexpected error: %v", err)
		}
		if result.UpdatedCount != 1 {
			t.Errorf("Expected 1 update, got %+v", result)
		}

		stored, err := repository.NewHoldingRepository(db).GetHoldingOnID(ctx, h.ID)
		if err != nil {
			t.Fatalf("holding lookup failed: %v", err)
		}
		if stored.CurrentPrice != 37.5 || stored.CurrentValue != 3750 {
			t.Errorf("Expected price 37.5 and value 3750, got %v and %v", stored.CurrentPrice, stored.CurrentValue)
		}
		if stored.Fundamentals.DividendYield == nil || *stored.Fundamentals.DividendYield != 8.5 {
			t.Errorf("Expected dividend yield 8.5, got %v", stored.Fundamentals.DividendYield)
		}
	})

	t.Run("missing quote skips only that holding", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		quotes := testutil.NewMockQuoteSource().WithQuote("PETR4", 37.5)
		svc := testutil.NewTestValuationService(t, db, quotes, testutil.NewMockRateSource())
		p := testutil.CreatePortfolio(t, db, "Stocks")
		testutil.NewHolding(p.ID, "PETR4").Build(t, db)
		vale := testutil.NewHolding(p.ID, "VALE3").Build(t, db)

		result, err := svc.RevalueAll(ctx, model.NewScope(p.ID, time.Time{}))

		if err != nil {
			t.Fatalf("RevalueAll() returned unexpected error: %v", err)
		}
		if result.UpdatedCount != 1 || result.SkippedCount != 1 {
			t.Errorf("Unexpected result %+v", result)
		}
		if len(result.Errors) != 1 || result.Errors[0].HoldingID != vale.ID {
			t.Errorf("Expected VALE3 to be reported, got %+v", result.Errors)
		}
		if quotes.QuoteCalls != 1 {
			t.Errorf("Expected one batched quote call, got %d", quotes.QuoteCalls)
		}
	})

	t.Run("failed batch skips every quoted holding", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		quotes := testutil.NewMockQuoteSource().WithBatchError(errors.New("upstream down"))
		svc := testutil.NewTestValuationService(t, db, quotes, testutil.NewMockRateSource())
		p := testutil.CreatePortfolio(t, db, "Stocks")
		testutil.NewHolding(p.ID, "PETR4").Build(t, db)
		testutil.NewHolding(p.ID, "VALE3").Build(t, db)

		result, err := svc.RevalueAll(ctx, model.NewScope(p.ID, time.Time{}))

		if err != nil {
			t.Fatalf("RevalueAll() returned unexpected error: %v", err)
		}
		if result.SkippedCount != 2 || result.UpdatedCount != 0 {
			t.Errorf("Unexpected result %+v", result)
		}
	})

	t.Run("unknown portfolio returns ErrPortfolioNotFound", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestValuationService(t, db, testutil.NewMockQuoteSource(), testutil.NewMockRateSource())

		_, err := svc.RevalueAll(ctx, model.NewScope(testutil.MakeID(), time.Time{}))

		if !errors.Is(err, apperrors.ErrPortfolioNotFound) {
			t.Errorf("Expected ErrPortfolioNotFound, got %v", err)
		}
	})
}

func TestValuationService_ValuateIndexed(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	rates := testutil.NewMockRateSource().WithRate(model.IndexIPCA, 0.5)
	svc := testutil.NewTestValuationService(t, db, testutil.NewMockQuoteSource(), rates)
	asOf := "2024-07-15"

	v, err := svc.ValuateIndexed(ctx, request.IndexedValuationRequest{
		EntryPrice: 1000,
		EntryDate:  "2024-01-15",
		AsOf:       &asOf,
		Regime:     request.RegimeRequest{Kind: "IPCA", Rate: 100},
	})

	if err != nil {
		t.Fatalf("ValuateIndexed() returned unexpected error: %v", err)
	}
	if v.Status != string(indexation.StatusOK) {
		t.Errorf("Expected status ok, got %q", v.Status)
	}
	if v.Rate == nil || *v.Rate != 0.5 {
		t.Errorf("Expected the fetched rate 0.5, got %v", v.Rate)
	}
	if v.Price <= 1000 || v.Price >= 1050 {
		t.Errorf("Expected about six months of 0.5%% inflation, got %v", v.Price)
	}
	testutil.AssertRowCount(t, db, "holding", 0)
}
