package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/portfolio-valuation/internal/api/request"
	"github.com/ndewijer/portfolio-valuation/internal/api/response"
	"github.com/ndewijer/portfolio-valuation/internal/apperrors"
	"github.com/ndewijer/portfolio-valuation/internal/service"
	"github.com/ndewijer/portfolio-valuation/internal/validation"
)

// LedgerHandler handles HTTP requests for the trade ledger and the terms of
// the holdings it derives.
type LedgerHandler struct {
	ledgerService *service.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler with the provided service dependency.
func NewLedgerHandler(ledgerService *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
	}
}

// Trades handles GET requests to list the ledger of a portfolio in
// chronological order, optionally for one instrument.
//
// Endpoint: GET /api/portfolio/{uuid}/trade?instrument=PETR4
// Response: 200 OK with array of TradeEvent
// Error: 404 Not Found if the portfolio does not exist
// Error: 500 Internal Server Error if retrieval fails
func (h *LedgerHandler) Trades(w http.ResponseWriter, r *http.Request) {
	instrument := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("instrument")))

	trades, err := h.ledgerService.ListTrades(r.Context(), chi.URLParam(r, "uuid"), instrument)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveTrades.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, trades)
}

// CreateTrade handles POST requests to append a trade event. The holding of
// the instrument is opened, updated or closed accordingly.
//
// Endpoint: POST /api/portfolio/{uuid}/trade
// Request Body: CreateTradeRequest
// Response: 201 Created with TradeResult
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 404 Not Found if the portfolio does not exist
// Error: 422 Unprocessable Entity if a sale exceeds the quantity held
// Error: 500 Internal Server Error if the trade cannot be recorded
func (h *LedgerHandler) CreateTrade(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	req, err := parseJSON[request.CreateTradeRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCreateTrade(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.ledgerService.RecordTrade(r.Context(), scope, req)
	if err != nil {
		respondServiceError(w, err, "failed to record trade")
		return
	}

	response.RespondJSON(w, http.StatusCreated, result)
}

// UpdateHolding handles PUT requests to change the name, asset class, index
// regime, base or maturity of a holding.
//
// Endpoint: PUT /api/portfolio/{uuid}/holding/{holdingId}/regime
// Request Body: UpdateHoldingRequest (all fields optional)
// Response: 200 OK with HoldingResponse
// Error: 400 Bad Request if the holding ID or body is invalid
// Error: 404 Not Found if the holding does not belong to the portfolio
// Error: 500 Internal Server Error if the update fails
func (h *LedgerHandler) UpdateHolding(w http.ResponseWriter, r *http.Request) {
	holdingID := chi.URLParam(r, "holdingId")
	if err := validation.ValidateUUID(holdingID); err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid UUID format", err.Error())
		return
	}

	scope, err := scopeFromRequest(r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	req, err := parseJSON[request.UpdateHoldingRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateUpdateHolding(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	holding, err := h.ledgerService.UpdateHolding(r.Context(), scope, holdingID, req)
	if err != nil {
		respondServiceError(w, err, "failed to update holding")
		return
	}

	response.RespondJSON(w, http.StatusOK, holding)
}
