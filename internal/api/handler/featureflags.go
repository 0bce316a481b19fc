package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/fleetops/fleetops/internal/api/models"
	"github.com/fleetops/fleetops/internal/api/response"
	"github.com/fleetops/fleetops/internal/featureflags"
)

// FeatureFlagsHandler handles feature flag endpoints.
type FeatureFlagsHandler struct {
	service *featureflags.Service
	logger  zerolog.Logger
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(service *featureflags.Service, logger zerolog.Logger) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service, logger: logger}
}

// ListFeatureFlags handles GET /v1/admin/feature-flags - list all feature flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, featureflags.FlagList{Items: h.service.List(r.Context())})
}

// UpsertFeatureFlags handles PUT /v1/admin/feature-flags - update feature flags.
func (h *FeatureFlagsHandler) UpsertFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var req featureflags.FlagUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if errs := models.Validate(req); len(errs) > 0 {
		response.ValidationFailed(w, r, errs)
		return
	}

	_, err := h.service.Apply(r.Context(), req)
	switch {
	case errors.Is(err, featureflags.ErrUnknownFlag), errors.Is(err, featureflags.ErrInvalidValue):
		response.BadRequest(w, r, err.Error(), nil)
		return
	case err != nil:
		h.logger.Error().Err(err).Msg("failed to update feature flags")
		response.InternalError(w, r, "failed to update feature flags")
		return
	}

	response.JSON(w, r, http.StatusOK, featureflags.FlagList{Items: h.service.List(r.Context())})
}

// InvalidateCache handles POST /v1/admin/feature-flags/invalidate - invalidate flag cache.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateCache()
	response.NoContent(w, r)
}
