package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fleetops/fleetops/internal/api/models"
	"github.com/fleetops/fleetops/internal/api/response"
	"github.com/fleetops/fleetops/internal/compliance"
	"github.com/fleetops/fleetops/internal/export"
	"github.com/fleetops/fleetops/internal/fleet"
)

// ComplianceHandler handles compliance status and renewal endpoints.
type ComplianceHandler struct {
	service *fleet.Service
	logger  zerolog.Logger
}

// NewComplianceHandler creates a new ComplianceHandler.
func NewComplianceHandler(service *fleet.Service, logger zerolog.Logger) *ComplianceHandler {
	return &ComplianceHandler{service: service, logger: logger}
}

// Status handles GET /v1/compliance/status - fleet-wide compliance, or a
// single asset when assetId is given.
func (h *ComplianceHandler) Status(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	detailed := false
	if raw := q.Get("detailed"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequest(w, r, "detailed must be a boolean", []models.FieldError{
				{Field: "detailed", Message: "must be true or false", Code: "INVALID"},
			})
			return
		}
		detailed = v
	}

	assetID := q.Get("assetId")
	if assetID == "" {
		report, err := h.service.FleetStatus(r.Context(), detailed)
		if err != nil {
			writeServiceError(w, r, h.logger, err, "failed to calculate compliance status")
			return
		}
		response.JSON(w, r, http.StatusOK, report)
		return
	}

	assetType := compliance.AssetType(strings.ToUpper(q.Get("assetType")))
	if !assetType.Valid() {
		response.BadRequest(w, r, "assetType must be one of VEHICLE, TRAILER, DRIVER when assetId is set", []models.FieldError{
			{Field: "assetType", Message: "must be one of: VEHICLE TRAILER DRIVER", Code: "ONEOF"},
		})
		return
	}

	report, err := h.service.AssetStatus(r.Context(), assetID, assetType, detailed)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to calculate asset compliance")
		return
	}
	response.JSON(w, r, http.StatusOK, report)
}

// Renewals handles GET /v1/compliance/renewals - upcoming (grouped by
// priority), critical, or timeline views of renewal alerts.
func (h *ComplianceHandler) Renewals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := q.Get("filter")
	if filter == "" {
		filter = models.RenewalFilterUpcoming
	}

	switch filter {
	case models.RenewalFilterUpcoming:
		days := 0
		if raw := q.Get("days"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 1 {
				response.BadRequest(w, r, "days must be a positive integer", []models.FieldError{
					{Field: "days", Message: "must be a positive integer", Code: "INVALID"},
				})
				return
			}
			days = v
		}
		groups, err := h.service.UpcomingRenewals(r.Context(), days)
		if err != nil {
			writeServiceError(w, r, h.logger, err, "failed to list renewals")
			return
		}
		response.JSON(w, r, http.StatusOK, groups)

	case models.RenewalFilterCritical:
		alerts, err := h.service.CriticalRenewals(r.Context())
		if err != nil {
			writeServiceError(w, r, h.logger, err, "failed to list renewals")
			return
		}
		response.JSON(w, r, http.StatusOK, alerts)

	case models.RenewalFilterTimeline:
		timeline, err := h.service.RenewalTimeline(r.Context())
		if err != nil {
			writeServiceError(w, r, h.logger, err, "failed to build renewal timeline")
			return
		}
		response.JSON(w, r, http.StatusOK, timeline)

	default:
		response.BadRequest(w, r, fmt.Sprintf("unknown filter %q", filter), []models.FieldError{
			{Field: "filter", Message: "must be one of: upcoming critical timeline", Code: "ONEOF"},
		})
	}
}

// TimelineWorkbook handles GET /v1/compliance/timeline.xlsx - the renewal
// timeline as a spreadsheet download.
func (h *ComplianceHandler) TimelineWorkbook(w http.ResponseWriter, r *http.Request) {
	timeline, err := h.service.RenewalTimeline(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to build renewal timeline")
		return
	}

	filename := "renewal-timeline-" + h.service.Engine().Now().Format("2006-01-02") + ".xlsx"
	err = response.Attachment(w, r, export.ContentType, filename, func(out io.Writer) error {
		return export.WriteRenewals(out, timeline)
	})
	if err != nil {
		// Headers are already sent; the client sees a truncated download.
		h.logger.Error().Err(err).Msg("failed to write renewal workbook")
	}
}

// Requirements handles GET /v1/compliance/requirements/{province} - the
// mandatory documents of a province.
func (h *ComplianceHandler) Requirements(w http.ResponseWriter, r *http.Request) {
	province := strings.ToUpper(chi.URLParam(r, "province"))

	requirements := compliance.Requirements(province)
	if len(requirements) == 0 {
		response.NotFound(w, r, fmt.Sprintf("no requirements defined for province %q (known: %s)",
			province, strings.Join(compliance.Provinces(), ", ")))
		return
	}

	response.JSON(w, r, http.StatusOK, models.ProvinceRequirements{
		Province:     province,
		Requirements: requirements,
	})
}
