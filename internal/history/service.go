package history

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/windvane/windvane/internal/metrics"
	"github.com/windvane/windvane/internal/station"
)

// Sentinel errors for the query surface.
var (
	// ErrUnknownCity is returned for a city that was never configured.
	// Distinct from a known city with no history yet, which is an empty
	// result, not an error.
	ErrUnknownCity = errors.New("unknown city")

	// ErrNoReading is returned when a known city has no latest snapshot yet.
	ErrNoReading = errors.New("no reading for city")

	// ErrNoStations is returned when a service is created without stations.
	ErrNoStations = errors.New("no stations configured")
)

// ServiceConfig holds configuration for the history service.
type ServiceConfig struct {
	// Stations is the configured city list. Required.
	Stations []station.Station

	// Retention is the trailing window duration. Default: 30 minutes.
	Retention time.Duration

	// MaxEntries bounds each window by count as well as age. Default: 360.
	MaxEntries int

	// Logger for service operations.
	Logger zerolog.Logger

	// Metrics is optional; nil disables instrumentation.
	Metrics *metrics.Collector

	// Now returns the current time; tests inject a fake clock.
	Now func() time.Time
}

// cityHistory is one city's mutable state behind its own lock, so cities
// never contend with each other.
type cityHistory struct {
	mu     sync.Mutex
	window *trendWindow
	latest *station.Reading
}

// Service maintains per-city trailing windows and latest snapshots, and
// answers trend queries. Ingest and Query are safe to call concurrently.
type Service struct {
	stations  []station.Station
	retention time.Duration
	logger    zerolog.Logger
	metrics   *metrics.Collector
	now       func() time.Time

	// cities is populated at construction and read-only afterwards;
	// only the per-city state behind each entry is mutated.
	cities map[string]*cityHistory
}

// NewService creates a history service for the configured stations.
func NewService(cfg ServiceConfig) (*Service, error) {
	if len(cfg.Stations) == 0 {
		return nil, ErrNoStations
	}

	retention := cfg.Retention
	if retention == 0 {
		retention = 30 * time.Minute
	}
	maxEntries := cfg.MaxEntries
	if maxEntries == 0 {
		maxEntries = 360
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	cities := make(map[string]*cityHistory, len(cfg.Stations))
	for _, st := range cfg.Stations {
		cities[st.ID] = &cityHistory{
			window: newTrendWindow(retention, maxEntries),
		}
	}

	return &Service{
		stations:  cfg.Stations,
		retention: retention,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		now:       now,
		cities:    cities,
	}, nil
}

// Stations returns the configured station list.
func (s *Service) Stations() []station.Station {
	return s.stations
}

// Retention returns the configured trailing window duration.
func (s *Service) Retention() time.Duration {
	return s.retention
}

// Ingest appends a history reading to its city's window and prunes aged
// entries. Readings older than the retention cutoff are discarded without
// error; readings for unconfigured cities return ErrUnknownCity.
func (s *Service) Ingest(r station.Reading) error {
	if err := r.Validate(); err != nil {
		s.count("malformed")
		return err
	}

	city, ok := s.cities[r.CityID]
	if !ok {
		s.count("unknown_city")
		return fmt.Errorf("%w: %s", ErrUnknownCity, r.CityID)
	}

	now := s.now()

	city.mu.Lock()
	result := city.window.insert(r, now)
	size := city.window.size()
	city.mu.Unlock()

	if s.metrics != nil {
		s.metrics.WindowEntries.WithLabelValues(r.CityID).Set(float64(size))
	}

	switch result {
	case insertStale:
		s.count("stale")
		s.logger.Debug().
			Str("city", r.CityID).
			Time("timestamp", r.Timestamp).
			Msg("discarded reading older than retention")
	default:
		if s.metrics != nil {
			s.metrics.ReadingsIngested.WithLabelValues(r.CityID).Inc()
		}
	}
	return nil
}

// IngestLatest overwrites a city's latest snapshot. A reading older than
// the stored snapshot is ignored so out-of-order delivery cannot move the
// gauge backwards.
func (s *Service) IngestLatest(r station.Reading) error {
	if err := r.Validate(); err != nil {
		s.count("malformed")
		return err
	}

	city, ok := s.cities[r.CityID]
	if !ok {
		s.count("unknown_city")
		return fmt.Errorf("%w: %s", ErrUnknownCity, r.CityID)
	}

	city.mu.Lock()
	if city.latest == nil || !r.Timestamp.Before(city.latest.Timestamp) {
		reading := r
		city.latest = &reading
	}
	city.mu.Unlock()
	return nil
}

// Query returns the city's retained window ascending by timestamp,
// narrowed to the trailing duration d. d <= 0 means the full window; d
// larger than the retention is clamped. A known city with no history
// yields an empty slice and nil error.
func (s *Service) Query(cityID string, d time.Duration) ([]station.Reading, error) {
	city, ok := s.cities[cityID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCity, cityID)
	}

	now := s.now()

	city.mu.Lock()
	defer city.mu.Unlock()
	return city.window.snapshot(d, now), nil
}

// Latest returns the city's newest latest-topic snapshot.
func (s *Service) Latest(cityID string) (station.Reading, error) {
	city, ok := s.cities[cityID]
	if !ok {
		return station.Reading{}, fmt.Errorf("%w: %s", ErrUnknownCity, cityID)
	}

	city.mu.Lock()
	defer city.mu.Unlock()
	if city.latest == nil {
		return station.Reading{}, fmt.Errorf("%w: %s", ErrNoReading, cityID)
	}
	return *city.latest, nil
}

// LatestAll returns the newest snapshot for every city that has one, in
// station order.
func (s *Service) LatestAll() []station.Reading {
	out := make([]station.Reading, 0, len(s.stations))
	for _, st := range s.stations {
		city := s.cities[st.ID]
		city.mu.Lock()
		if city.latest != nil {
			out = append(out, *city.latest)
		}
		city.mu.Unlock()
	}
	return out
}

func (s *Service) count(reason string) {
	if s.metrics != nil {
		s.metrics.ReadingsDiscarded.WithLabelValues(reason).Inc()
	}
}
