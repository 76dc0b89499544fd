// Package main provides the entrypoint for the Windvane history service.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/windvane/windvane/internal/api"
	"github.com/windvane/windvane/internal/api/middleware"
	"github.com/windvane/windvane/internal/broker"
	"github.com/windvane/windvane/internal/config"
	"github.com/windvane/windvane/internal/history"
	"github.com/windvane/windvane/internal/metrics"
	"github.com/windvane/windvane/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "windvane-history"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting Windvane history service")

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

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	collector := metrics.NewCollector("windvane", registry)

	service, err := history.NewService(history.ServiceConfig{
		Stations:   cfg.Stations,
		Retention:  cfg.Retention,
		MaxEntries: cfg.MaxWindowEntries,
		Logger:     log,
		Metrics:    collector,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create history service")
	}
	log.Info().
		Int("stations", len(cfg.Stations)).
		Dur("retention", cfg.Retention).
		Msg("history service initialized")

	historySub, err := broker.NewPubSubSubscriber(ctx, broker.SubscriberConfig{
		ProjectID:        cfg.ProjectID,
		SubscriptionName: cfg.HistorySubscription,
		Logger:           log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create history subscriber")
	}
	defer func() {
		if closeErr := historySub.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close history subscriber")
		}
	}()

	latestSub, err := broker.NewPubSubSubscriber(ctx, broker.SubscriberConfig{
		ProjectID:        cfg.ProjectID,
		SubscriptionName: cfg.LatestSubscription,
		Logger:           log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create latest subscriber")
	}
	defer func() {
		if closeErr := latestSub.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close latest subscriber")
		}
	}()

	consumer := history.NewConsumer(history.ConsumerConfig{
		Service: service,
		History: historySub,
		Latest:  latestSub,
		Logger:  log,
	})

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Run(ctx); err != nil {
			log.Error().Err(err).Msg("consumer error")
		}
	}()

	router := api.NewRouter(api.RouterConfig{
		Version:        Version,
		BuildTime:      BuildTime,
		Logger:         log,
		Metrics:        httpMetrics,
		HistoryService: service,
		Registry:       registry,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down history service")
	cancel()
	<-consumerDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("history service stopped")
}
