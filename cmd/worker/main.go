// Package main provides the entrypoint for the FleetOps compliance worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fleetops/fleetops/internal/api/response"
	"github.com/fleetops/fleetops/internal/featureflags"
	"github.com/fleetops/fleetops/internal/fleet"
	"github.com/fleetops/fleetops/internal/resilience"
	"github.com/fleetops/fleetops/internal/telemetry"
	"github.com/fleetops/fleetops/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "fleetops-worker"

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

	log.Info().Str("build_time", BuildTime).Msg("starting FleetOps worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log); err != nil {
		log.Error().Err(err).Msg("worker exited")
		os.Exit(1) //nolint:gocritic // deferred stop only releases the signal handler
	}
	log.Info().Msg("worker stopped")
}

func run(ctx context.Context, log zerolog.Logger) error {
	// The health endpoint keeps Cloud Run probes answered.
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	sweepCfg, err := worker.SweepConfigFromEnv()
	if err != nil {
		return fmt.Errorf("sweep config: %w", err)
	}
	triggerCfg, err := worker.TriggerConfigFromEnv()
	if err != nil {
		return fmt.Errorf("trigger config: %w", err)
	}
	telemetryCfg, err := telemetry.ConfigFromEnv(serviceName, Version)
	if err != nil {
		return fmt.Errorf("telemetry config: %w", err)
	}
	sourceCfg, err := fleet.SourceConfigFromEnv()
	if err != nil {
		return fmt.Errorf("fleet store config: %w", err)
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

	engineMetrics, err := tp.EngineMetrics()
	if err != nil {
		return fmt.Errorf("engine metrics: %w", err)
	}

	source, err := fleet.OpenSource(ctx, sourceCfg, log)
	if err != nil {
		return fmt.Errorf("open fleet store: %w", err)
	}
	defer source.Close()

	guardCfg := resilience.DefaultGuardConfig("fleet-store")
	guardCfg.Logger = log
	repo := fleet.NewResilientRepository(source.Repository, guardCfg)

	var ffRepo featureflags.Repository = featureflags.NewInMemoryRepository()
	if source.Pool != nil {
		ffRepo = featureflags.NewPostgresRepository(source.Pool)
	}
	flags := featureflags.NewService(featureflags.ServiceConfig{
		Repository: ffRepo,
		Logger:     log,
	})

	sweep := worker.NewSweepJob(worker.SweepJobConfig{
		Config: sweepCfg,
		Logger: log,
		Fleet: fleet.NewService(fleet.ServiceConfig{
			Repository: repo,
			Logger:     log,
			Flags:      flags,
			Metrics:    engineMetrics,
		}),
		Flags:   flags,
		Metrics: engineMetrics,
	})

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]interface{}{
			"status":  "healthy",
			"version": Version,
			"circuit": repo.Guard().State().String(),
			"sweeps":  sweep.StatsSnapshot(),
		})
	})

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("health server: %w", err)
		}
	}()

	if triggerCfg.Enabled() {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        triggerCfg.ProjectID,
			SubscriptionName: triggerCfg.Subscription,
			Dispatcher:       worker.NewDispatcher(sweep, log),
			Logger:           log,
			MaxOutstanding:   triggerCfg.MaxOutstanding,
		})
		if err != nil {
			return err
		}
		defer handler.Close()

		go func() {
			if err := handler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("pubsub handler: %w", err)
			}
		}()
	} else {
		log.Info().Msg("pubsub not configured, sweeping on a ticker")
		if _, err := sweep.RunOnce(ctx); err != nil && !errors.Is(err, worker.ErrSweepDisabled) {
			log.Error().Err(err).Msg("initial compliance sweep failed")
		}
		go sweep.RunEvery(ctx)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	log.Info().Msg("shutting down worker")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}
	return runErr
}
