// Package handler provides HTTP handlers for the fleetops API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/fleetops/fleetops/internal/api/models"
	"github.com/fleetops/fleetops/internal/api/response"
	"github.com/fleetops/fleetops/internal/resilience"
)

const readinessTimeout = 2 * time.Second

// ReadinessChecker reports whether a backing store is reachable.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// ActiveFlags reports which runtime switches are on.
type ActiveFlags interface {
	Active(ctx context.Context) []string
}

// OpsConfig holds the dependencies of OpsHandler. Nil dependencies are
// reported as healthy.
type OpsConfig struct {
	Version   string
	BuildTime string
	Store     ReadinessChecker
	Registry  *resilience.Registry
	Flags     ActiveFlags
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status:    models.HealthStatusOK,
		Time:      models.Timestamp(time.Now()),
		Version:   h.cfg.Version,
		BuildTime: h.cfg.BuildTime,
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
// The service is not ready while the record store is unreachable or its
// circuit is open.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.storeError(r.Context()); err != nil {
		response.ServiceUnavailable(w, r, "fleet store not ready: "+err.Error(), 0)
		return
	}
	for _, dep := range h.dependencies() {
		if dep.IsUnhealthy() {
			response.ServiceUnavailable(w, r, "circuit open for "+dep.Name, circuitRetryAfter)
			return
		}
	}

	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - subsystem and dependency status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:       models.HealthStatusOK,
		Time:         models.Timestamp(time.Now()),
		Subsystems:   []models.SubsystemStatus{},
		Dependencies: []models.DependencyStatus{},
	}

	store := models.SubsystemStatus{Name: "fleet-store", Status: models.HealthStatusOK}
	if err := h.storeError(r.Context()); err != nil {
		store.Status = models.HealthStatusFail
		store.Detail = err.Error()
		status.Status = models.HealthStatusFail
	}
	status.Subsystems = append(status.Subsystems, store)

	for _, dep := range h.dependencies() {
		ds := dependencyStatus(dep)
		if ds.Status != models.HealthStatusOK && status.Status == models.HealthStatusOK {
			status.Status = models.HealthStatusDegraded
		}
		status.Dependencies = append(status.Dependencies, ds)
	}

	status.ActiveDegradationFlags = h.activeFlags(r.Context())

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) storeError(ctx context.Context) error {
	if h.cfg.Store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()
	return h.cfg.Store.Ready(ctx)
}

func (h *OpsHandler) dependencies() []*resilience.DependencyHealth {
	if h.cfg.Registry == nil {
		return nil
	}
	return h.cfg.Registry.GetAllHealth()
}

func (h *OpsHandler) activeFlags(ctx context.Context) []string {
	if h.cfg.Flags == nil {
		return nil
	}
	return h.cfg.Flags.Active(ctx)
}

func dependencyStatus(dep *resilience.DependencyHealth) models.DependencyStatus {
	ds := models.DependencyStatus{
		Name:         dep.Name,
		Status:       models.HealthStatusOK,
		CircuitState: dep.CircuitState.String(),
		LastError:    dep.LastError,
	}
	switch {
	case dep.IsUnhealthy():
		ds.Status = models.HealthStatusFail
	case dep.IsDegraded():
		ds.Status = models.HealthStatusDegraded
	}
	if dep.LastSuccessAt != nil {
		ts := models.Timestamp(*dep.LastSuccessAt)
		ds.LastSuccessAt = &ts
	}
	if dep.LastFailureAt != nil {
		ts := models.Timestamp(*dep.LastFailureAt)
		ds.LastFailureAt = &ts
	}
	return ds
}
