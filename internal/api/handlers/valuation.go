package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/portfolio-valuation/internal/api/request"
	"github.com/ndewijer/portfolio-valuation/internal/api/response"
	"github.com/ndewijer/portfolio-valuation/internal/apperrors"
	"github.com/ndewijer/portfolio-valuation/internal/service"
	"github.com/ndewijer/portfolio-valuation/internal/validation"
)

// ValuationHandler handles HTTP requests that revalue holdings or price an
// indexed position on demand.
type ValuationHandler struct {
	valuationService *service.ValuationService
}

// NewValuationHandler creates a new ValuationHandler.
func NewValuationHandler(valuationService *service.ValuationService) *ValuationHandler {
	return &ValuationHandler{
		valuationService: valuationService,
	}
}

// Revalue handles POST requests to refresh the price and value of every
// holding of a portfolio. Per-holding failures are reported in the body and
// do not change the status code.
//
// Endpoint: POST /api/portfolio/{uuid}/valuation/revalue?as_of=YYYY-MM-DD
// Response: 200 OK with RevalueResult
// Error: 404 Not Found if the portfolio does not exist
// Error: 503 Service Unavailable if the ledger cannot be read
func (h *ValuationHandler) Revalue(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	result, err := h.valuationService.RevalueAll(r.Context(), scope)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRevalue.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// Anomalies handles GET requests for the most recent valuation fallbacks.
//
// Endpoint: GET /api/portfolio/{uuid}/valuation/anomalies?limit=50
// Response: 200 OK with array of Anomaly
// Error: 400 Bad Request if limit is invalid
// Error: 404 Not Found if the portfolio does not exist
func (h *ValuationHandler) Anomalies(w http.ResponseWriter, r *http.Request) {
	limit, err := request.ParseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	anomalies, err := h.valuationService.GetAnomalies(r.Context(), chi.URLParam(r, "uuid"), limit)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToRetrieveAnomalies.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, anomalies)
}

// ValuateIndexed handles POST requests to price an indexed position without
// touching stored holdings.
//
// Endpoint: POST /api/valuation/indexed
// Request Body: IndexedValuationRequest
// Response: 200 OK with IndexedValuation
// Error: 400 Bad Request if validation fails or request body is invalid
func (h *ValuationHandler) ValuateIndexed(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.IndexedValuationRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateIndexedValuation(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	valuation, err := h.valuationService.ValuateIndexed(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "failed to value position")
		return
	}

	response.RespondJSON(w, http.StatusOK, valuation)
}
