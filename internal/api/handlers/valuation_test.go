package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ndewijer/portfolio-valuation/internal/api/handlers"
	"github.com/ndewijer/portfolio-valuation/internal/model"
	"github.com/ndewijer/portfolio-valuation/internal/testutil"
)

// TestValuationHandler_Revalue tests POST /api/portfolio/{uuid}/valuation/revalue.
//
// WHY: Revaluation is fail-soft. One unquoted holding must not stop the
// others from being updated, and the caller needs to see which ones were
// skipped and why.
func TestValuationHandler_Revalue(t *testing.T) {
	t.Run("updates what it can and reports the rest", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		quotes := testutil.NewMockQuoteSource().WithQuote("PETR4", 35)
		rates := testutil.NewMockRateSource().WithRate(model.IndexCDI, 12)
		handler := handlers.NewValuationHandler(testutil.NewTestValuationService(t, db, quotes, rates))

		p := testutil.CreatePortfolio(t, db, "Mixed")
		base := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
		testutil.NewHolding(p.ID, "CDB-XP").
			WithAssetClass("Fixed Income").
			WithRegime(model.CDI{Percent: 100}).
			WithBase(1000, base).
			Build(t, db)
		testutil.NewHolding(p.ID, "PETR4").Build(t, db)
		vale := testutil.NewHolding(p.ID, "VALE3").Build(t, db)

		req := testutil.NewRequestWithURLParams(http.MethodPost, "/api/portfolio/"+p.ID+"/valuation/revalue", map[string]string{"uuid": p.ID})
		req = testutil.WithQuery(req, map[string]string{"as_of": "2024-02-14"})
		w := httptest.NewRecorder()

		// Execute
		handler.Revalue(w, req)

		// Assert
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var result model.RevalueResult
		if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if result.UpdatedCount != 2 {
			t.Errorf("Expected 2 updated holdings, got %d", result.UpdatedCount)
		}
		if result.SkippedCount != 1 {
			t.Errorf("Expected 1 skipped holding, got %d", result.SkippedCount)
		}
		if len(result.Errors) != 1 || result.Errors[0].HoldingID != vale.ID {
			t.Errorf("Expected the VALE3 holding to be reported, got %+v", result.Errors)
		}
	})

	t.Run("invalid as_of returns 400", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewValuationHandler(testutil.NewTestValuationService(t, db, testutil.NewMockQuoteSource(), testutil.NewMockRateSource()))
		p := testutil.CreatePortfolio(t, db, "Mixed")

		req := testutil.NewRequestWithURLParams(http.MethodPost, "/api/portfolio/"+p.ID+"/valuation/revalue", map[string]string{"uuid": p.ID})
		req = testutil.WithQuery(req, map[string]string{"as_of": "yesterday"})
		w := httptest.NewRecorder()

		handler.Revalue(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("unknown portfolio returns 404", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewValuationHandler(testutil.NewTestValuationService(t, db, testutil.NewMockQuoteSource(), testutil.NewMockRateSource()))
		id := testutil.MakeID()

		req := testutil.NewRequestWithURLParams(http.MethodPost, "/api/portfolio/"+id+"/valuation/revalue", map[string]string{"uuid": id})
		w := httptest.NewRecorder()

		handler.Revalue(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})
}

// TestValuationHandler_Anomalies tests GET /api/portfolio/{uuid}/valuation/anomalies.
//
// WHY: Anomalies are the audit trail of rejected indexed valuations. A
// circuit breaker trip during revaluation must show up here.
func TestValuationHandler_Anomalies(t *testing.T) {
	t.Run("lists anomalies recorded by a revaluation", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		handler := handlers.NewValuationHandler(testutil.NewTestValuationService(t, db, testutil.NewMockQuoteSource(), testutil.NewMockRateSource()))

		p := testutil.CreatePortfolio(t, db, "Suspicious")
		testutil.NewHolding(p.ID, "PRE-X").
			WithAssetClass("Fixed Income").
			WithRegime(model.FixedRate{AnnualRate: 1000}).
			WithBase(1000, time.Date(2014, 1, 2, 0, 0, 0, 0, time.UTC)).
			Build(t, db)

		revalue := testutil.NewRequestWithURLParams(http.MethodPost, "/api/portfolio/"+p.ID+"/valuation/revalue", map[string]string{"uuid": p.ID})
		revalue = testutil.WithQuery(revalue, map[string]string{"as_of": "2024-01-02"})
		handler.Revalue(httptest.NewRecorder(), revalue)

		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/portfolio/"+p.ID+"/valuation/anomalies", map[string]string{"uuid": p.ID})
		w := httptest.NewRecorder()

		// Execute
		handler.Anomalies(w, req)

		// Assert
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var anomalies []model.Anomaly
		if err := json.NewDecoder(w.Body).Decode(&anomalies); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if len(anomalies) != 1 {
			t.Fatalf("Expected 1 anomaly, got %d", len(anomalies))
		}
		if anomalies[0].Reason != model.AnomalyOutOfBounds {
			t.Errorf("Expected reason %q, got %q", model.AnomalyOutOfBounds, anomalies[0].Reason)
		}
		if anomalies[0].EntryPrice != 1000 {
			t.Errorf("Expected entry price 1000, got %v", anomalies[0].EntryPrice)
		}
	})

	t.Run("limit out of range returns 400", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewValuationHandler(testutil.NewTestValuationService(t, db, testutil.NewMockQuoteSource(), testutil.NewMockRateSource()))
		p := testutil.CreatePortfolio(t, db, "Suspicious")

		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/portfolio/"+p.ID+"/valuation/anomalies", map[string]string{"uuid": p.ID})
		req = testutil.WithQuery(req, map[string]string{"limit": "0"})
		w := httptest.NewRecorder()

		handler.Anomalies(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})
}

func TestValuationHandler_ValuateIndexed(t *testing.T) {
	t.Run("prices a fixed rate position", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		handler := handlers.NewValuationHandler(testutil.NewTestValuationService(t, db, testutil.NewMockQuoteSource(), testutil.NewMockRateSource()))

		req := testutil.NewJSONRequest(http.MethodPost, "/api/valuation/indexed", map[string]any{
			"entryPrice": 1000,
			"entryDate":  "2024-01-15",
			"asOf":       "2024-02-14",
			"regime":     map[string]any{"kind": "FIXED", "rate": 12},
		}, nil)
		w := httptest.NewRecorder()

		// Execute
		handler.ValuateIndexed(w, req)

		// Assert
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var v model.IndexedValuation
		if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if v.Status != "ok" {
			t.Errorf("Expected status ok, got %q", v.Status)
		}
		if v.Price <= 1000 || v.Price >= 1020 {
			t.Errorf("Expected a price slightly above 1000, got %v", v.Price)
		}
		if v.ElapsedDays != 30 {
			t.Errorf("Expected 30 elapsed days, got %d", v.ElapsedDays)
		}
	})

	t.Run("missing reference rate returns the entry price", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewValuationHandler(testutil.NewTestValuationService(t, db, testutil.NewMockQuoteSource(), testutil.NewMockRateSource()))

		req := testutil.NewJSONRequest(http.MethodPost, "/api/valuation/indexed", map[string]any{
			"entryPrice": 1000,
			"entryDate":  "2024-01-15",
			"asOf":       "2024-02-14",
			"regime":     map[string]any{"kind": "CDI", "rate": 100},
		}, nil)
		w := httptest.NewRecorder()

		handler.ValuateIndexed(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var v model.IndexedValuation
		if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if v.Price != 1000 || v.Status != "rate_unavailable" {
			t.Errorf("Expected entry price with rate_unavailable, got %+v", v)
		}
	})

	t.Run("asOf before entry date returns 400", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewValuationHandler(testutil.NewTestValuationService(t, db, testutil.NewMockQuoteSource(), testutil.NewMockRateSource()))

		req := testutil.NewJSONRequest(http.MethodPost, "/api/valuation/indexed", map[string]any{
			"entryPrice": 1000,
			"entryDate":  "2024-01-15",
			"asOf":       "2024-01-01",
			"regime":     map[string]any{"kind": "FIXED", "rate": 12},
		}, nil)
		w := httptest.NewRecorder()

		handler.ValuateIndexed(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})
}
