package simulate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windvane/windvane/internal/simulate"
	"github.com/windvane/windvane/internal/station"
)

func TestNew_RequiresStations(t *testing.T) {
	_, err := simulate.New(simulate.Config{Seed: 1})
	require.ErrorIs(t, err, simulate.ErrNoStations)
}

func TestSimulator_Deterministic(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	run := func() []station.Reading {
		sim, err := simulate.New(simulate.Config{
			Stations: station.DefaultStations(),
			Seed:     42,
			Now:      func() time.Time { return base },
		})
		require.NoError(t, err)

		var readings []station.Reading
		for i := 0; i < 20; i++ {
			readings = append(readings, sim.TickAll()...)
		}
		return readings
	}

	first := run()
	second := run()
	assert.Equal(t, first, second, "same seed must produce the same telemetry")
}

func TestSimulator_ValuesStayWithinBounds(t *testing.T) {
	sim, err := simulate.New(simulate.Config{
		Stations: station.DefaultStations(),
		Seed:     7,
	})
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		for _, r := range sim.TickAll() {
			assert.GreaterOrEqual(t, r.Temperature, station.MinTemperature)
			assert.LessOrEqual(t, r.Temperature, station.MaxTemperature)
			assert.GreaterOrEqual(t, r.Humidity, station.MinHumidity)
			assert.LessOrEqual(t, r.Humidity, station.MaxHumidity)
			assert.GreaterOrEqual(t, r.WindSpeed, station.MinWindSpeed)
			assert.LessOrEqual(t, r.WindSpeed, station.MaxWindSpeed)
			if r.Precipitating {
				assert.Greater(t, r.Precipitation, 0.0)
			} else {
				assert.Zero(t, r.Precipitation)
			}
		}
	}
}

func TestSimulator_TimestampsStrictlyIncrease(t *testing.T) {
	// Frozen clock: every tick sees the same wall time, so the forced
	// minimum increment is the only thing keeping timestamps moving.
	frozen := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	sim, err := simulate.New(simulate.Config{
		Stations: station.DefaultStations()[:1],
		Seed:     1,
		Now:      func() time.Time { return frozen },
	})
	require.NoError(t, err)

	st := sim.Stations()[0]
	prev := sim.Tick(st).Timestamp
	for i := 0; i < 50; i++ {
		ts := sim.Tick(st).Timestamp
		assert.True(t, ts.After(prev), "tick %d: %v not after %v", i, ts, prev)
		prev = ts
	}
}

func TestSimulator_WalkIsBoundedPerTick(t *testing.T) {
	sim, err := simulate.New(simulate.Config{
		Stations: station.DefaultStations()[:1],
		Seed:     99,
	})
	require.NoError(t, err)

	st := sim.Stations()[0]
	prev := sim.Tick(st)
	for i := 0; i < 200; i++ {
		cur := sim.Tick(st)
		assert.InDelta(t, prev.Temperature, cur.Temperature, 0.5)
		assert.InDelta(t, prev.Humidity, cur.Humidity, 1.0)
		assert.InDelta(t, prev.WindSpeed, cur.WindSpeed, 0.3)
		prev = cur
	}
}

func TestSimulator_StartsFromBaseline(t *testing.T) {
	stations := []station.Station{{
		ID:                  "city_1",
		Name:                "Testville",
		BaselineTemperature: 20,
		BaselineHumidity:    50,
		BaselineWindSpeed:   5,
	}}

	sim, err := simulate.New(simulate.Config{Stations: stations, Seed: 3})
	require.NoError(t, err)

	r := sim.Tick(stations[0])
	assert.InDelta(t, 20, r.Temperature, 0.5)
	assert.InDelta(t, 50, r.Humidity, 1.0)
	assert.InDelta(t, 5, r.WindSpeed, 0.3)
}
