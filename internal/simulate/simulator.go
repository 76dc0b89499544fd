// Package simulate produces physically plausible weather telemetry for a
// fixed set of stations using a bounded random walk per metric.
package simulate

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/windvane/windvane/internal/station"
)

// ErrNoStations is returned when a simulator is created without stations.
var ErrNoStations = errors.New("no stations configured")

// Per-tick walk steps. Each metric moves by a uniform draw in ±step and is
// clamped to the bounds in the station package.
const (
	defaultTemperatureStep = 0.5
	defaultHumidityStep    = 1.0
	defaultWindSpeedStep   = 0.3

	// minTimestampStep is the forced increment when the wall clock has
	// not advanced since the previous tick for a station.
	minTimestampStep = time.Millisecond
)

// State is the mutable per-station simulation state. It is owned
// exclusively by the Simulator and mutated only by Tick.
type State struct {
	Temperature   float64
	Humidity      float64
	WindSpeed     float64
	Precipitating bool
	Precipitation float64
	LastTimestamp time.Time
}

// Config holds configuration for creating a Simulator.
type Config struct {
	// Stations are the cities to simulate. Required.
	Stations []station.Station

	// Seed seeds the internal PRNG. Zero means seed from the clock.
	Seed uint64

	// Now returns the current time. Defaults to time.Now; tests inject
	// a fake clock to exercise timestamp handling.
	Now func() time.Time

	// Walk step overrides. Zero means the package default.
	TemperatureStep float64
	HumidityStep    float64
	WindSpeedStep   float64
}

// Simulator advances per-station weather state one tick at a time. It is
// not safe for concurrent use; the tick loop is a single goroutine.
type Simulator struct {
	stations []station.Station
	states   map[string]*State
	rng      *rand.Rand
	now      func() time.Time

	tempStep float64
	humStep  float64
	windStep float64
}

// New creates a Simulator with every station initialized to its baseline.
func New(cfg Config) (*Simulator, error) {
	if len(cfg.Stations) == 0 {
		return nil, ErrNoStations
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	tempStep := cfg.TemperatureStep
	if tempStep == 0 {
		tempStep = defaultTemperatureStep
	}
	humStep := cfg.HumidityStep
	if humStep == 0 {
		humStep = defaultHumidityStep
	}
	windStep := cfg.WindSpeedStep
	if windStep == 0 {
		windStep = defaultWindSpeedStep
	}

	states := make(map[string]*State, len(cfg.Stations))
	for _, st := range cfg.Stations {
		if st.ID == "" {
			return nil, fmt.Errorf("station %q has no id", st.Name)
		}
		states[st.ID] = &State{
			Temperature: clamp(st.BaselineTemperature, station.MinTemperature, station.MaxTemperature),
			Humidity:    clamp(st.BaselineHumidity, station.MinHumidity, station.MaxHumidity),
			WindSpeed:   clamp(st.BaselineWindSpeed, station.MinWindSpeed, station.MaxWindSpeed),
		}
	}

	return &Simulator{
		stations: cfg.Stations,
		states:   states,
		rng:      rand.New(rand.NewPCG(seed, seed)),
		now:      now,
		tempStep: tempStep,
		humStep:  humStep,
		windStep: windStep,
	}, nil
}

// Stations returns the configured station list in tick order.
func (s *Simulator) Stations() []station.Station {
	return s.stations
}

// Tick advances one station's state and returns the reading for this tick.
// The returned timestamp is strictly greater than the station's previous
// tick; a non-advancing wall clock is corrected with a minimum increment.
func (s *Simulator) Tick(st station.Station) station.Reading {
	state := s.states[st.ID]

	state.Temperature = clamp(state.Temperature+s.noise(s.tempStep), station.MinTemperature, station.MaxTemperature)
	state.Humidity = clamp(state.Humidity+s.noise(s.humStep), station.MinHumidity, station.MaxHumidity)
	state.WindSpeed = clamp(state.WindSpeed+s.noise(s.windStep), station.MinWindSpeed, station.MaxWindSpeed)

	// Precipitation flips state with low probability so rain arrives in
	// streaks instead of flickering tick to tick.
	if s.rng.Float64() < st.RainProbability {
		state.Precipitating = !state.Precipitating
		if state.Precipitating {
			state.Precipitation = 0.1 + s.rng.Float64()*4.9
		} else {
			state.Precipitation = 0
		}
	}

	ts := s.now().UTC()
	if !ts.After(state.LastTimestamp) {
		ts = state.LastTimestamp.Add(minTimestampStep)
	}
	state.LastTimestamp = ts

	return station.Reading{
		CityID:        st.ID,
		CityName:      st.Name,
		Timestamp:     ts,
		Temperature:   state.Temperature,
		Humidity:      state.Humidity,
		WindSpeed:     state.WindSpeed,
		Precipitating: state.Precipitating,
		Precipitation: state.Precipitation,
	}
}

// TickAll advances every station once and returns the readings in station
// order. Station states are independent; one tick touches each exactly once.
func (s *Simulator) TickAll() []station.Reading {
	readings := make([]station.Reading, 0, len(s.stations))
	for _, st := range s.stations {
		readings = append(readings, s.Tick(st))
	}
	return readings
}

func (s *Simulator) noise(step float64) float64 {
	return (s.rng.Float64()*2 - 1) * step
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
