// Package config loads configuration for the Windvane binaries from the
// environment, with an optional YAML stations file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/windvane/windvane/internal/broker"
	"github.com/windvane/windvane/internal/station"
)

// ErrNoStations is returned when the configured station list is empty.
// This is the one fatal configuration error: the loops never start.
var ErrNoStations = errors.New("station list is empty")

// Config holds the shared configuration for both binaries.
type Config struct {
	Env  string
	Port string

	// Broker settings.
	ProjectID           string
	LatestTopic         string
	HistoryTopic        string
	LatestSubscription  string
	HistorySubscription string

	// Simulator settings.
	TickInterval      time.Duration
	RandomSeed        uint64
	PublishTimeout    time.Duration
	PublishMaxRetries uint64

	// History settings.
	Retention        time.Duration
	MaxWindowEntries int

	// Telemetry settings.
	OTELEnabled  bool
	OTLPEndpoint string

	Stations []station.Station
}

// Load reads configuration from the environment. A .env file is honored
// when present. STATIONS_FILE points at a YAML station list; without it
// the built-in five-city list is used.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                 envStr("APP_ENV", "development"),
		Port:                envStr("APP_PORT", "8080"),
		ProjectID:           os.Getenv("PUBSUB_PROJECT_ID"),
		LatestTopic:         envStr("LATEST_TOPIC", broker.DefaultLatestTopic),
		HistoryTopic:        envStr("HISTORY_TOPIC", broker.DefaultHistoryTopic),
		LatestSubscription:  envStr("LATEST_SUBSCRIPTION", "weather-latest-sub"),
		HistorySubscription: envStr("HISTORY_SUBSCRIPTION", "weather-history-sub"),
		OTELEnabled:         os.Getenv("OTEL_ENABLED") == "true",
		OTLPEndpoint:        envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}

	var err error
	if cfg.TickInterval, err = envDuration("TICK_INTERVAL", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.Retention, err = envDuration("RETENTION", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.PublishTimeout, err = envDuration("PUBLISH_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.MaxWindowEntries, err = envInt("MAX_WINDOW_ENTRIES", 360); err != nil {
		return nil, err
	}
	if cfg.RandomSeed, err = envUint("RANDOM_SEED", 0); err != nil {
		return nil, err
	}
	if cfg.PublishMaxRetries, err = envUint("PUBLISH_MAX_RETRIES", 3); err != nil {
		return nil, err
	}

	cfg.Stations, err = loadStations(os.Getenv("STATIONS_FILE"))
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// stationsFile is the YAML shape of STATIONS_FILE.
type stationsFile struct {
	Stations []station.Station `yaml:"stations"`
}

func loadStations(path string) ([]station.Station, error) {
	if path == "" {
		return station.DefaultStations(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading stations file: %w", err)
	}

	var file stationsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing stations file %s: %w", path, err)
	}
	if len(file.Stations) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoStations, path)
	}
	for i, st := range file.Stations {
		if st.ID == "" || st.Name == "" {
			return nil, fmt.Errorf("stations file %s: entry %d missing id or name", path, i)
		}
	}
	return file.Stations, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return n, nil
}

func envUint(key string, fallback uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return n, nil
}
