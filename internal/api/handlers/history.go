package handlers

import (
	"net/http"

	"github.com/ndewijer/portfolio-valuation/internal/api/request"
	"github.com/ndewijer/portfolio-valuation/internal/api/response"
	"github.com/ndewijer/portfolio-valuation/internal/apperrors"
	"github.com/ndewijer/portfolio-valuation/internal/service"
)

// HistoryHandler serves reconstructed portfolio history.
type HistoryHandler struct {
	historyService *service.HistoryService
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(historyService *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{
		historyService: historyService,
	}
}

// History handles GET requests to reconstruct the value curve of a portfolio
// and compare it with the benchmarks, all rebased to 100.
//
// Endpoint: GET /api/portfolio/{uuid}/history?granularity=monthly&start=YYYY-MM-DD&end=YYYY-MM-DD
// Response: 200 OK with HistoryComparison
// Error: 400 Bad Request if a query parameter is invalid
// Error: 404 Not Found if the portfolio does not exist
// Error: 503 Service Unavailable if the ledger cannot be read
func (h *HistoryHandler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters, err := request.ParseHistoryFilters(q.Get("granularity"), q.Get("start"), q.Get("end"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	scope, err := scopeFromRequest(r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	history, err := h.historyService.Reconstruct(r.Context(), scope, filters)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToGetHistory.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, history)
}

// Benchmarks handles GET requests for the benchmark catalogue.
//
// Endpoint: GET /api/benchmark
// Response: 200 OK with array of Benchmark
func (h *HistoryHandler) Benchmarks(w http.ResponseWriter, _ *http.Request) {
	response.RespondJSON(w, http.StatusOK, h.historyService.Benchmarks())
}
