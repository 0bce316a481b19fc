package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fleetops/fleetops/internal/api/models"
	"github.com/fleetops/fleetops/internal/api/response"
	"github.com/fleetops/fleetops/internal/fleet"
)

const maxHistoryLimit = 100

// CompatibilityHandler handles vehicle-trailer compatibility endpoints.
type CompatibilityHandler struct {
	service *fleet.Service
	logger  zerolog.Logger
}

// NewCompatibilityHandler creates a new CompatibilityHandler.
func NewCompatibilityHandler(service *fleet.Service, logger zerolog.Logger) *CompatibilityHandler {
	return &CompatibilityHandler{service: service, logger: logger}
}

// CheckCompatibility handles GET /v1/compatibility - check a stored vehicle
// against a stored trailer.
func (h *CompatibilityHandler) CheckCompatibility(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	vehicleID := q.Get("vehicleId")
	trailerID := q.Get("trailerId")
	if vehicleID == "" || trailerID == "" {
		response.BadRequest(w, r, "vehicleId and trailerId are required", nil)
		return
	}

	report, err := h.service.CheckCompatibility(r.Context(), vehicleID, trailerID, strings.ToUpper(q.Get("province")))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to check compatibility")
		return
	}
	response.JSON(w, r, http.StatusOK, report)
}

// Evaluate handles POST /v1/compatibility/evaluate - check inline records
// without touching stored history.
func (h *CompatibilityHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req models.EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if errs := models.Validate(req); len(errs) > 0 {
		response.ValidationFailed(w, r, errs)
		return
	}

	report, err := h.service.Evaluate(r.Context(), req.Vehicle.Vehicle(), req.Trailer.Trailer(), req.Province)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to evaluate compatibility")
		return
	}
	response.JSON(w, r, http.StatusOK, report)
}

// BestMatches handles POST /v1/compatibility/best-matches - rank active
// vehicles for a trailer.
func (h *CompatibilityHandler) BestMatches(w http.ResponseWriter, r *http.Request) {
	var req models.BestMatchesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if errs := models.Validate(req); len(errs) > 0 {
		response.ValidationFailed(w, r, errs)
		return
	}

	report, err := h.service.BestMatches(r.Context(), req.TrailerID, req.MaxResults)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to find vehicle matches")
		return
	}
	response.JSON(w, r, http.StatusOK, report)
}

// History handles GET /v1/compatibility/history - list stored checks.
func (h *CompatibilityHandler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := fleet.CheckFilter{
		VehicleID: q.Get("vehicleId"),
		TrailerID: q.Get("trailerId"),
		Limit:     fleet.DefaultHistoryLimit,
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxHistoryLimit {
			response.BadRequest(w, r, "limit must be an integer between 1 and 100", []models.FieldError{
				{Field: "limit", Message: "must be between 1 and 100", Code: "OUT_OF_RANGE"},
			})
			return
		}
		filter.Limit = limit
	}

	checks, err := h.service.CompatibilityHistory(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to list compatibility history")
		return
	}
	if checks == nil {
		checks = []*fleet.CompatibilityCheck{}
	}
	response.JSON(w, r, http.StatusOK, models.CompatibilityHistory{
		Items: checks,
		Meta:  models.PagedResponseMeta{Limit: filter.Limit, Count: len(checks)},
	})
}
