package simulate

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/windvane/windvane/internal/broker"
	"github.com/windvane/windvane/internal/metrics"
)

// RunnerConfig holds configuration for the tick loop.
type RunnerConfig struct {
	Simulator *Simulator
	Publisher broker.Publisher
	Logger    zerolog.Logger

	// Interval is the tick cadence. Default: 10 seconds.
	Interval time.Duration

	// Topic names. Defaults: broker.DefaultLatestTopic / DefaultHistoryTopic.
	LatestTopic  string
	HistoryTopic string

	// Metrics is optional; nil disables instrumentation.
	Metrics *metrics.Collector
}

// Runner drives the simulator on a fixed cadence and publishes each tick's
// readings to the latest and history topics.
type Runner struct {
	sim          *Simulator
	publisher    broker.Publisher
	logger       zerolog.Logger
	interval     time.Duration
	latestTopic  string
	historyTopic string
	metrics      *metrics.Collector
}

// NewRunner creates a Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	interval := cfg.Interval
	if interval == 0 {
		interval = 10 * time.Second
	}
	latestTopic := cfg.LatestTopic
	if latestTopic == "" {
		latestTopic = broker.DefaultLatestTopic
	}
	historyTopic := cfg.HistoryTopic
	if historyTopic == "" {
		historyTopic = broker.DefaultHistoryTopic
	}

	return &Runner{
		sim:          cfg.Simulator,
		publisher:    cfg.Publisher,
		logger:       cfg.Logger,
		interval:     interval,
		latestTopic:  latestTopic,
		historyTopic: historyTopic,
		metrics:      cfg.Metrics,
	}
}

// Run ticks until the context is cancelled. Publish failures never stop
// the loop; they are logged and counted for that tick and city only.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info().
		Dur("interval", r.interval).
		Int("stations", len(r.sim.Stations())).
		Msg("simulator loop starting")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("simulator loop stopping")
			return nil
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce advances every station one tick and publishes the readings.
// Station states are independent, so one station's publish failure does
// not affect the others.
func (r *Runner) RunOnce(ctx context.Context) {
	if r.metrics != nil {
		r.metrics.TicksTotal.Inc()
	}

	for _, st := range r.sim.Stations() {
		reading := r.sim.Tick(st)

		data, err := reading.Encode()
		if err != nil {
			r.logger.Error().Err(err).Str("city", st.ID).Msg("encoding reading failed")
			continue
		}

		// Both topics carry the same values and timestamp for one tick.
		r.publish(ctx, r.latestTopic, st.ID, data)
		r.publish(ctx, r.historyTopic, st.ID, data)
	}
}

func (r *Runner) publish(ctx context.Context, topic, city string, data []byte) {
	start := time.Now()
	err := r.publisher.Publish(ctx, topic, city, data)

	if r.metrics != nil {
		r.metrics.PublishDurationSecond.Observe(time.Since(start).Seconds())
	}

	if err != nil {
		if r.metrics != nil {
			r.metrics.PublishFailuresTotal.WithLabelValues(topic, city).Inc()
		}
		r.logger.Error().
			Err(err).
			Str("topic", topic).
			Str("city", city).
			Msg("publish failed")
		return
	}

	if r.metrics != nil {
		r.metrics.ReadingsPublished.WithLabelValues(topic, city).Inc()
	}
}
