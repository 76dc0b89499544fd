package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// RetryConfig holds configuration for the retrying publisher.
type RetryConfig struct {
	// Name identifies this publisher for circuit breaker naming.
	Name string

	// Timeout bounds one Publish call including all retries, so a slow
	// broker cannot stall the tick loop.
	// Default: 5 seconds
	Timeout time.Duration

	// MaxRetries is the number of retry attempts after the first try.
	// Default: 3
	MaxRetries uint64

	// InitialInterval is the initial retry backoff interval.
	// Default: 100ms
	InitialInterval time.Duration

	// MaxInterval is the maximum retry backoff interval.
	// Default: 2 seconds
	MaxInterval time.Duration
}

// DefaultRetryConfig returns sensible defaults for the retrying publisher.
func DefaultRetryConfig(name string) RetryConfig {
	return RetryConfig{
		Name:            name,
		Timeout:         5 * time.Second,
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// RetryingPublisher wraps a Publisher with bounded exponential-backoff
// retries, a per-publish timeout and a circuit breaker. Exhausted retries
// surface as an error for that record only; the caller's loop continues.
type RetryingPublisher struct {
	inner   Publisher
	config  RetryConfig
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewRetryingPublisher wraps inner with retry and breaker behavior.
func NewRetryingPublisher(inner Publisher, cfg RetryConfig) *RetryingPublisher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 2 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    cfg.Name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &RetryingPublisher{
		inner:   inner,
		config:  cfg,
		breaker: breaker,
	}
}

// Publish sends one record, retrying transient failures with exponential
// backoff. Returns ErrBrokerUnavailable without retrying while the circuit
// breaker is open.
func (p *RetryingPublisher) Publish(ctx context.Context, topic, key string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.config.InitialInterval
	bo.MaxInterval = p.config.MaxInterval
	bo.MaxElapsedTime = 0 // retries bounded by WithMaxRetries and ctx

	operation := func() error {
		_, err := p.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, p.inner.Publish(ctx, topic, key, data)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrBrokerUnavailable)
			}
			return err
		}
		return nil
	}

	boCtx := backoff.WithContext(backoff.WithMaxRetries(bo, p.config.MaxRetries), ctx)
	if err := backoff.Retry(operation, boCtx); err != nil {
		return fmt.Errorf("publishing %s to %s: %w", key, topic, err)
	}
	return nil
}
