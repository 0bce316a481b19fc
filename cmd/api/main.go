// Package main provides the entrypoint for the FleetOps API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetops/fleetops/internal/api"
	"github.com/fleetops/fleetops/internal/api/middleware"
	"github.com/fleetops/fleetops/internal/featureflags"
	"github.com/fleetops/fleetops/internal/fleet"
	"github.com/fleetops/fleetops/internal/resilience"
	"github.com/fleetops/fleetops/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "fleetops-api"

func main() {
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		log = log.Level(lvl)
	}

	log.Info().Str("build_time", BuildTime).Msg("starting FleetOps API")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log); err != nil {
		log.Error().Err(err).Msg("api exited")
		os.Exit(1) //nolint:gocritic // deferred stop only releases the signal handler
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, log zerolog.Logger) error {
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	telemetryCfg, err := telemetry.ConfigFromEnv(serviceName, Version)
	if err != nil {
		return fmt.Errorf("telemetry config: %w", err)
	}
	sourceCfg, err := fleet.SourceConfigFromEnv()
	if err != nil {
		return fmt.Errorf("fleet store config: %w", err)
	}
	rateLimits, err := middleware.RateLimitsFromEnv()
	if err != nil {
		return fmt.Errorf("rate limit config: %w", err)
	}

	tp, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()
	if telemetryCfg.Enabled {
		log.Info().
			Str("otlp_endpoint", telemetryCfg.OTLPEndpoint).
			Float64("sample_ratio", telemetryCfg.SampleRatio).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		return fmt.Errorf("http metrics: %w", err)
	}
	engineMetrics, err := tp.EngineMetrics()
	if err != nil {
		return fmt.Errorf("engine metrics: %w", err)
	}

	source, err := fleet.OpenSource(ctx, sourceCfg, log)
	if err != nil {
		return fmt.Errorf("open fleet store: %w", err)
	}
	defer source.Close()

	registry := resilience.NewRegistry()
	guardCfg := resilience.DefaultGuardConfig("fleet-store")
	guardCfg.Logger = log
	repo := fleet.NewResilientRepository(source.Repository, guardCfg)
	registry.Register(repo.Guard())

	// Flags share the fleet database when there is one.
	var ffRepo featureflags.Repository = featureflags.NewInMemoryRepository()
	if source.Pool != nil {
		ffRepo = featureflags.NewPostgresRepository(source.Pool)
	}
	flags := featureflags.NewService(featureflags.ServiceConfig{
		Repository: ffRepo,
		Logger:     log,
		CacheTTL:   time.Minute,
	})

	fleetService := fleet.NewService(fleet.ServiceConfig{
		Repository:      repo,
		Logger:          log,
		Flags:           flags,
		Metrics:         engineMetrics,
		DefaultProvince: strings.ToUpper(os.Getenv("DEFAULT_PROVINCE")),
	})

	server := &http.Server{
		Addr: ":" + port,
		Handler: api.NewRouter(api.RouterConfig{
			Version:            Version,
			BuildTime:          BuildTime,
			Logger:             log,
			ServiceName:        serviceName,
			Metrics:            httpMetrics,
			FleetService:       fleetService,
			FeatureFlagService: flags,
			Registry:           registry,
			RequireTLS:         os.Getenv("REQUIRE_TLS") == "true",
			RateLimits:         &rateLimits,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("store", sourceCfg.Kind).
			Str("admin_limit", rateLimits.Admin.String()).
			Msg("server listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
