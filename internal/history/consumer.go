package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/windvane/windvane/internal/broker"
	"github.com/windvane/windvane/internal/station"
)

// ConsumerConfig holds configuration for the stream consumer.
type ConsumerConfig struct {
	Service *Service

	// History delivers the append-only history stream. Required.
	History broker.Subscriber

	// Latest delivers the overwrite-semantics latest stream. Optional;
	// without it the latest query surface stays empty.
	Latest broker.Subscriber

	Logger zerolog.Logger
}

// Consumer feeds broker subscriptions into the history service. Malformed
// or unknown-city readings are discarded and logged; nothing stops the
// ingest loop short of context cancellation.
type Consumer struct {
	service *Service
	history broker.Subscriber
	latest  broker.Subscriber
	logger  zerolog.Logger
}

// NewConsumer creates a Consumer.
func NewConsumer(cfg ConsumerConfig) *Consumer {
	return &Consumer{
		service: cfg.Service,
		history: cfg.History,
		latest:  cfg.Latest,
		logger:  cfg.Logger,
	}
}

// Run consumes both streams until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)

	go func() {
		errCh <- c.receive(ctx, c.history, "history", c.service.Ingest)
	}()

	if c.latest != nil {
		go func() {
			errCh <- c.receive(ctx, c.latest, "latest", c.service.IngestLatest)
		}()
	}

	// The first receiver to fail takes the other down with it.
	err := <-errCh
	cancel()
	if c.latest != nil {
		<-errCh
	}
	return err
}

func (c *Consumer) receive(ctx context.Context, sub broker.Subscriber, stream string, ingest func(station.Reading) error) error {
	logger := c.logger.With().Str("stream", stream).Logger()
	logger.Info().Msg("consumer starting")

	err := sub.Receive(ctx, func(_ context.Context, msg broker.Message) error {
		reading, err := station.DecodeReading(msg.Data)
		if err != nil {
			// Malformed readings are dropped, never redelivered.
			logger.Warn().Err(err).Str("key", msg.Key).Msg("discarding malformed reading")
			return nil
		}

		if err := ingest(reading); err != nil {
			if errors.Is(err, ErrUnknownCity) {
				logger.Warn().Str("city", reading.CityID).Msg("discarding reading for unknown city")
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s consumer: %w", stream, err)
	}

	logger.Info().Msg("consumer stopped")
	return nil
}
