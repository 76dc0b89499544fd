// Package main provides the entrypoint for the Windvane weather simulator.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/windvane/windvane/internal/broker"
	"github.com/windvane/windvane/internal/config"
	"github.com/windvane/windvane/internal/metrics"
	"github.com/windvane/windvane/internal/simulate"
	"github.com/windvane/windvane/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "windvane-simulator"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting Windvane simulator")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.ProjectID == "" {
		log.Fatal().Msg("PUBSUB_PROJECT_ID is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	collector := metrics.NewCollector("windvane", registry)

	publisher, err := broker.NewPubSubPublisher(ctx, cfg.ProjectID, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create publisher")
	}
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close publisher")
		}
	}()

	retrying := broker.NewRetryingPublisher(publisher, broker.RetryConfig{
		Name:       serviceName,
		Timeout:    cfg.PublishTimeout,
		MaxRetries: cfg.PublishMaxRetries,
	})

	sim, err := simulate.New(simulate.Config{
		Stations: cfg.Stations,
		Seed:     cfg.RandomSeed,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create simulator")
	}
	log.Info().
		Int("stations", len(cfg.Stations)).
		Dur("tick_interval", cfg.TickInterval).
		Msg("simulator initialized")

	runner := simulate.NewRunner(simulate.RunnerConfig{
		Simulator:    sim,
		Publisher:    retrying,
		Logger:       log,
		Interval:     cfg.TickInterval,
		LatestTopic:  cfg.LatestTopic,
		HistoryTopic: cfg.HistoryTopic,
		Metrics:      collector,
	})

	// Health and metrics endpoints for the orchestrator.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","version":"%s"}`, Version)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("health server error")
		}
	}()

	runnerDone := make(chan struct{})
	go func() {
		defer close(runnerDone)
		if err := runner.Run(ctx); err != nil {
			log.Error().Err(err).Msg("simulator loop error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down simulator")
	cancel()
	<-runnerDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("simulator stopped")
}
