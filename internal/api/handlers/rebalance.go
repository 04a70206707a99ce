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

// RebalanceHandler handles rebalance configuration, status and history requests.
type RebalanceHandler struct {
	rebalanceService *service.RebalanceService
}

// NewRebalanceHandler creates a new RebalanceHandler.
func NewRebalanceHandler(rebalanceService *service.RebalanceService) *RebalanceHandler {
	return &RebalanceHandler{
		rebalanceService: rebalanceService,
	}
}

// Config handles GET requests for the rebalance configuration.
//
// Endpoint: GET /api/portfolio/{uuid}/rebalance/config
// Response: 200 OK with RebalanceConfig
// Error: 404 Not Found if the portfolio or its configuration does not exist
func (h *RebalanceHandler) Config(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.rebalanceService.GetConfig(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, err, "failed to get rebalance config")
		return
	}

	response.RespondJSON(w, http.StatusOK, cfg)
}

// SaveConfig handles PUT requests to create or replace the configuration.
//
// Endpoint: PUT /api/portfolio/{uuid}/rebalance/config
// Request Body: RebalanceConfigRequest (periodicity, targets summing to 100)
// Response: 200 OK with RebalanceConfig
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 404 Not Found if the portfolio does not exist
func (h *RebalanceHandler) SaveConfig(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.RebalanceConfigRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateRebalanceConfig(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	cfg, err := h.rebalanceService.SaveConfig(r.Context(), chi.URLParam(r, "uuid"), req)
	if err != nil {
		respondServiceError(w, err, "failed to save rebalance config")
		return
	}

	response.RespondJSON(w, http.StatusOK, cfg)
}

// Status handles GET requests comparing the allocation with the targets.
// An unconfigured portfolio reports configured=false rather than 404.
//
// Endpoint: GET /api/portfolio/{uuid}/rebalance/status?as_of=YYYY-MM-DD
// Response: 200 OK with RebalanceStatus
// Error: 404 Not Found if the portfolio does not exist
func (h *RebalanceHandler) Status(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromRequest(r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	status, err := h.rebalanceService.Status(r.Context(), scope)
	if err != nil {
		respondServiceError(w, err, apperrors.ErrFailedToGetRebalanceStatus.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, status)
}

// RecordEvent handles POST requests logging an executed rebalance.
//
// Endpoint: POST /api/portfolio/{uuid}/rebalance/event
// Request Body: RebalanceEventRequest (date optional, note optional)
// Response: 201 Created with RebalanceEvent
// Error: 400 Bad Request if validation fails
// Error: 404 Not Found if the portfolio has no configuration
func (h *RebalanceHandler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.RebalanceEventRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateRebalanceEvent(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	ev, err := h.rebalanceService.RecordEvent(r.Context(), chi.URLParam(r, "uuid"), req)
	if err != nil {
		respondServiceError(w, err, "failed to record rebalance")
		return
	}

	response.RespondJSON(w, http.StatusCreated, ev)
}

// History handles GET requests listing recorded rebalances, newest first.
//
// Endpoint: GET /api/portfolio/{uuid}/rebalance/history
// Response: 200 OK with array of RebalanceEvent
// Error: 404 Not Found if the portfolio does not exist
func (h *RebalanceHandler) History(w http.ResponseWriter, r *http.Request) {
	events, err := h.rebalanceService.History(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, err, "failed to get rebalance history")
		return
	}

	response.RespondJSON(w, http.StatusOK, events)
}
