// Package api provides the HTTP API for fleetops.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/fleetops/fleetops/internal/api/handler"
	"github.com/fleetops/fleetops/internal/api/middleware"
	"github.com/fleetops/fleetops/internal/featureflags"
	"github.com/fleetops/fleetops/internal/fleet"
	"github.com/fleetops/fleetops/internal/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version            string
	BuildTime          string
	Logger             zerolog.Logger
	ServiceName        string
	Metrics            *middleware.Metrics
	FleetService       *fleet.Service
	FeatureFlagService *featureflags.Service
	Registry           *resilience.Registry
	RequireTLS         bool
	RateLimits         *middleware.RateLimits // nil uses DefaultRateLimits
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "fleetops-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.ClientID)             // Caller identity for logs and rate limits
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.ContentTypeJSON)      // JSON content type
	r.Use(middleware.RequireTLS(cfg.RequireTLS))

	ops := handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Registry:  cfg.Registry,
	}
	if cfg.FleetService != nil {
		ops.Store = cfg.FleetService
	}
	if cfg.FeatureFlagService != nil {
		ops.Flags = cfg.FeatureFlagService
	}
	opsHandler := handler.NewOpsHandler(ops)

	limits := middleware.DefaultRateLimits()
	if cfg.RateLimits != nil {
		limits = *cfg.RateLimits
	}
	adminRateLimit := middleware.RateLimit(limits.Admin)
	expensiveRateLimit := middleware.RateLimit(limits.Expensive)
	standardRateLimit := middleware.RateLimit(limits.Standard)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		if cfg.FleetService != nil {
			compatibilityHandler := handler.NewCompatibilityHandler(cfg.FleetService, cfg.Logger)
			complianceHandler := handler.NewComplianceHandler(cfg.FleetService, cfg.Logger)

			r.Route("/compatibility", func(r chi.Router) {
				r.Use(middleware.RequireJSON)
				r.With(standardRateLimit).Get("/", compatibilityHandler.CheckCompatibility)
				r.With(standardRateLimit).Get("/history", compatibilityHandler.History)
				r.With(expensiveRateLimit).Post("/evaluate", compatibilityHandler.Evaluate)
				// Best matches scans every active vehicle.
				r.With(expensiveRateLimit).Post("/best-matches", compatibilityHandler.BestMatches)
			})

			r.Route("/compliance", func(r chi.Router) {
				r.Use(standardRateLimit)
				r.Get("/status", complianceHandler.Status)
				r.Get("/renewals", complianceHandler.Renewals)
				r.With(expensiveRateLimit).Get("/timeline.xlsx", complianceHandler.TimelineWorkbook)
				r.Get("/requirements/{province}", complianceHandler.Requirements)
			})
		}

		if cfg.FeatureFlagService != nil {
			featureFlagsHandler := handler.NewFeatureFlagsHandler(cfg.FeatureFlagService, cfg.Logger)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireJSON)
				r.Use(standardRateLimit)

				r.Route("/feature-flags", func(r chi.Router) {
					r.Get("/", featureFlagsHandler.ListFeatureFlags)
					r.With(adminRateLimit).Put("/", featureFlagsHandler.UpsertFeatureFlags)
					r.With(adminRateLimit).Post("/invalidate", featureFlagsHandler.InvalidateCache)
				})
			})
		}
	})

	return r
}
