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

// TestLedgerHandler_CreateTrade tests POST /api/portfolio/{uuid}/trade.
//
// WHY: Trades are the only way holdings change. The handler must reject
// malformed trades before they reach the ledger and surface overselling as a
// client error rather than a server failure.
func TestLedgerHandler_CreateTrade(t *testing.T) {
	t.Run("first buy opens a holding", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		handler := handlers.NewLedgerHandler(testutil.NewTestLedgerService(t, db))
		p := testutil.CreatePortfolio(t, db, "Trading")

		req := testutil.NewJSONRequest(http.MethodPost, "/api/portfolio/"+p.ID+"/trade", map[string]any{
			"instrument": "petr4",
			"assetClass": "Stocks",
			"kind":       "buy",
			"quantity":   100,
			"unitPrice":  30,
			"timestamp":  "2024-03-01",
		}, map[string]string{"uuid": p.ID})
		w := httptest.NewRecorder()

		// Execute
		handler.CreateTrade(w, req)

		// Assert
		if w.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
		}

		var result model.TradeResult
		if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if result.Trade.Instrument != "PETR4" {
			t.Errorf("Expected instrument to be upper-cased, got %q", result.Trade.Instrument)
		}
		if result.Holding == nil {
			t.Fatal("Expected the opened holding in the response")
		}
		if result.Holding.Quantity != 100 || result.Holding.CurrentValue != 3000 {
			t.Errorf("Unexpected holding %+v", result.Holding)
		}
		testutil.AssertRowCount(t, db, "holding", 1)
		testutil.AssertRowCount(t, db, "trade_event", 1)
	})

	t.Run("overselling returns 422 and leaves the ledger untouched", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		handler := handlers.NewLedgerHandler(testutil.NewTestLedgerService(t, db))
		p := testutil.CreatePortfolio(t, db, "Trading")
		testutil.NewHolding(p.ID, "PETR4").WithQuantity(10).Build(t, db)

		req := testutil.NewJSONRequest(http.MethodPost, "/api/portfolio/"+p.ID+"/trade", map[string]any{
			"instrument": "PETR4",
			"kind":       "sell",
			"quantity":   11,
			"unitPrice":  30,
			"timestamp":  "2024-03-01",
		}, map[string]string{"uuid": p.ID})
		w := httptest.NewRecorder()

		// Execute
		handler.CreateTrade(w, req)

		// Assert
		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("Expected 422, got %d: %s", w.Code, w.Body.String())
		}
		testutil.AssertRowCount(t, db, "trade_event", 0)
		testutil.AssertRowCount(t, db, "holding", 1)
	})

	t.Run("invalid trade kind returns 400", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewLedgerHandler(testutil.NewTestLedgerService(t, db))
		p := testutil.CreatePortfolio(t, db, "Trading")

		req := testutil.NewJSONRequest(http.MethodPost, "/api/portfolio/"+p.ID+"/trade", map[string]any{
			"instrument": "PETR4",
			"kind":       "gift",
			"quantity":   1,
			"unitPrice":  30,
			"timestamp":  "2024-03-01",
		}, map[string]string{"uuid": p.ID})
		w := httptest.NewRecorder()

		handler.CreateTrade(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("unknown portfolio returns 404", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewLedgerHandler(testutil.NewTestLedgerService(t, db))
		id := testutil.MakeID()

		req := testutil.NewJSONRequest(http.MethodPost, "/api/portfolio/"+id+"/trade", map[string]any{
			"instrument": "PETR4",
			"kind":       "buy",
			"quantity":   1,
			"unitPrice":  30,
			"timestamp":  "2024-03-01",
		}, map[string]string{"uuid": id})
		w := httptest.NewRecorder()

		handler.CreateTrade(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})
}

func TestLedgerHandler_Trades(t *testing.T) {
	t.Run("filters by instrument", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		handler := handlers.NewLedgerHandler(testutil.NewTestLedgerService(t, db))
		p := testutil.CreatePortfolio(t, db, "Trading")
		testutil.NewTrade(p.ID, "PETR4").Buy(10, 30).Build(t, db)
		testutil.NewTrade(p.ID, "VALE3").Buy(5, 60).Build(t, db)

		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/portfolio/"+p.ID+"/trade", map[string]string{"uuid": p.ID})
		req = testutil.WithQuery(req, map[string]string{"instrument": "vale3"})
		w := httptest.NewRecorder()

		// Execute
		handler.Trades(w, req)

		// Assert
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var trades []model.TradeEvent
		if err := json.NewDecoder(w.Body).Decode(&trades); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if len(trades) != 1 || trades[0].Instrument != "VALE3" {
			t.Errorf("Expected only the VALE3 trade, got %+v", trades)
		}
	})
}

func TestLedgerHandler_UpdateHolding(t *testing.T) {
	t.Run("sets an indexation regime", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		handler := handlers.NewLedgerHandler(testutil.NewTestLedgerService(t, db))
		p := testutil.CreatePortfolio(t, db, "Fixed income")
		h := testutil.NewHolding(p.ID, "CDB-XP").WithAssetClass("Fixed Income").Build(t, db)

		req := testutil.NewJSONRequest(http.MethodPut, "/api/portfolio/"+p.ID+"/holding/"+h.ID+"/regime", map[string]any{
			"regime": map[string]any{"kind": "CDI", "rate": 110},
		}, map[string]string{"uuid": p.ID, "holdingId": h.ID})
		w := httptest.NewRecorder()

		// Execute
		handler.UpdateHolding(w, req)

		// Assert
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var resp model.HoldingResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if resp.Regime == nil || resp.Regime.Kind != model.RegimeCDI || resp.Regime.Rate != 110 {
			t.Errorf("Unexpected regime %+v", resp.Regime)
		}
	})

	t.Run("invalid holding id returns 400", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewLedgerHandler(testutil.NewTestLedgerService(t, db))
		p := testutil.CreatePortfolio(t, db, "Fixed income")

		req := testutil.NewJSONRequest(http.MethodPut, "/api/portfolio/"+p.ID+"/holding/nope/regime", map[string]any{},
			map[string]string{"uuid": p.ID, "holdingId": "nope"})
		w := httptest.NewRecorder()

		handler.UpdateHolding(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("holding of another portfolio returns 404", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		handler := handlers.NewLedgerHandler(testutil.NewTestLedgerService(t, db))
		owner := testutil.CreatePortfolio(t, db, "Owner")
		other := testutil.CreatePortfolio(t, db, "Other")
		h := testutil.NewHolding(owner.ID, "PETR4").Build(t, db)

		req := testutil.NewJSONRequest(http.MethodPut, "/api/portfolio/"+other.ID+"/holding/"+h.ID+"/regime",
			map[string]any{"name": "renamed"}, map[string]string{"uuid": other.ID, "holdingId": h.ID})
		w := httptest.NewRecorder()

		handler.UpdateHolding(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})
}
