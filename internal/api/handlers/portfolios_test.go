package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ndewijer/portfolio-valuation/internal/api/handlers"
	"github.com/ndewijer/portfolio-valuation/internal/model"
	"github.com/ndewijer/portfolio-valuation/internal/testutil"
)

// TestPortfolioHandler_Portfolios tests the GET /api/portfolio endpoint.
//
// WHY: This is the entry point of every client. It must return an empty
// array, not null, for a fresh database and list portfolios in creation order.
func TestPortfolioHandler_Portfolios(t *testing.T) {
	t.Run("GET /api/portfolio returns 200 with empty array", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		handler := handlers.NewPortfolioHandler(testutil.NewTestPortfolioService(t, db))

		req := httptest.NewRequest(http.MethodGet, "/api/portfolio/", nil)
		w := httptest.NewRecorder()

		// Execute
		handler.Portfolios(w, req)

		// Assert
		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
		if contentType := w.Header().Get("Content-Type"); contentType != "application/json" {
			t.Errorf("Expected Content-Type 'application/json', got '%s'", contentType)
		}
		if body := w.Body.String(); body != "[]\n" {
			t.Errorf("Expected empty JSON array, got %q", body)
		}
	})

	t.Run("GET /api/portfolio returns all portfolios", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		handler := handlers.NewPortfolioHandler(testutil.NewTestPortfolioService(t, db))

		p1 := testutil.CreatePortfolio(t, db, "Portfolio One")
		p2 := testutil.CreatePortfolio(t, db, "Portfolio Two")

		req := httptest.NewRequest(http.MethodGet, "/api/portfolio/", nil)
		w := httptest.NewRecorder()

		// Execute
		handler.Portfolios(w, req)

		// Assert
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}

		var response []model.Portfolio
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if len(response) != 2 {
			t.Fatalf("Expected 2 portfolios, got %d", len(response))
		}

		ids := map[string]bool{response[0].ID: true, response[1].ID: true}
		if !ids[p1.ID] || !ids[p2.ID] {
			t.Errorf("Expected portfolios %s and %s, got %+v", p1.ID, p2.ID, response)
		}
	})
}

func TestPortfolioHandler_CreatePortfolio(t *testing.T) {
	t.Run("creates a portfolio", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		handler := handlers.NewPortfolioHandler(testutil.NewTestPortfolioService(t, db))

		req := testutil.NewJSONRequest(http.MethodPost, "/api/portfolio", map[string]string{
			"name":        "Retirement",
			"description": "Long term",
		}, nil)
		w := httptest.NewRecorder()

		// Execute
		handler.CreatePortfolio(w, req)

		// Assert
		if w.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
		}

		var created model.Portfolio
		if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if created.ID == "" || created.Name != "Retirement" {
			t.Errorf("Unexpected portfolio %+v", created)
		}
		testutil.AssertRowCount(t, db, "portfolio", 1)
	})

	t.Run("rejects a missing name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewPortfolioHandler(testutil.NewTestPortfolioService(t, db))

		req := testutil.NewJSONRequest(http.MethodPost, "/api/portfolio", map[string]string{"description": "x"}, nil)
		w := httptest.NewRecorder()

		handler.CreatePortfolio(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
		testutil.AssertRowCount(t, db, "portfolio", 0)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewPortfolioHandler(testutil.NewTestPortfolioService(t, db))

		req := testutil.NewJSONRequest(http.MethodPost, "/api/portfolio", `{"name":`, nil)
		w := httptest.NewRecorder()

		handler.CreatePortfolio(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})
}

// TestPortfolioHandler_Portfolio tests GET /api/portfolio/{uuid}.
//
// WHY: The summary is where weights and maturity status are computed; a
// missing portfolio must be a 404, not an empty summary.
func TestPortfolioHandler_Portfolio(t *testing.T) {
	t.Run("returns the summary with weights", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		handler := handlers.NewPortfolioHandler(testutil.NewTestPortfolioService(t, db))

		p := testutil.CreatePortfolio(t, db, "Main")
		testutil.NewHolding(p.ID, "PETR4").WithQuantity(30).WithCurrentPrice(100).Build(t, db)
		testutil.NewHolding(p.ID, "VALE3").WithQuantity(10).WithCurrentPrice(100).Build(t, db)

		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/portfolio/"+p.ID, map[string]string{"uuid": p.ID})
		w := httptest.NewRecorder()

		// Execute
		handler.Portfolio(w, req)

		// Assert
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var summary model.PortfolioSummary
		if err := json.NewDecoder(w.Body).Decode(&summary); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if summary.TotalValue != 4000 {
			t.Errorf("Expected total value 4000, got %v", summary.TotalValue)
		}
		if len(summary.Holdings) != 2 {
			t.Fatalf("Expected 2 holdings, got %d", len(summary.Holdings))
		}
		weights := map[string]float64{}
		for _, h := range summary.Holdings {
			weights[h.Instrument] = h.Weight
		}
		if weights["PETR4"] != 75 || weights["VALE3"] != 25 {
			t.Errorf("Unexpected weights %v", weights)
		}
	})

	t.Run("returns 404 for an unknown portfolio", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewPortfolioHandler(testutil.NewTestPortfolioService(t, db))

		id := testutil.MakeID()
		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/portfolio/"+id, map[string]string{"uuid": id})
		w := httptest.NewRecorder()

		handler.Portfolio(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})
}

func TestPortfolioHandler_DeletePortfolio(t *testing.T) {
	t.Run("deletes the portfolio and its holdings", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewPortfolioHandler(testutil.NewTestPortfolioService(t, db))

		p := testutil.CreatePortfolio(t, db, "Doomed")
		testutil.NewHolding(p.ID, "PETR4").Build(t, db)

		req := testutil.NewRequestWithURLParams(http.MethodDelete, "/api/portfolio/"+p.ID, map[string]string{"uuid": p.ID})
		w := httptest.NewRecorder()

		handler.DeletePortfolio(w, req)

		if w.Code != http.StatusNoContent {
			t.Fatalf("Expected 204, got %d: %s", w.Code, w.Body.String())
		}
		testutil.AssertRowCount(t, db, "portfolio", 0)
		testutil.AssertRowCount(t, db, "holding", 0)
	})

	t.Run("returns 404 for an unknown portfolio", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewPortfolioHandler(testutil.NewTestPortfolioService(t, db))

		id := testutil.MakeID()
		req := testutil.NewRequestWithURLParams(http.MethodDelete, "/api/portfolio/"+id, map[string]string{"uuid": id})
		w := httptest.NewRecorder()

		handler.DeletePortfolio(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})
}
