package history_test

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windvane/windvane/internal/history"
	"github.com/windvane/windvane/internal/simulate"
	"github.com/windvane/windvane/internal/station"
)

func testStations() []station.Station {
	return station.DefaultStations()
}

func newTestService(t *testing.T, retention time.Duration, now func() time.Time) *history.Service {
	t.Helper()
	svc, err := history.NewService(history.ServiceConfig{
		Stations:  testStations(),
		Retention: retention,
		Logger:    zerolog.Nop(),
		Now:       now,
	})
	require.NoError(t, err)
	return svc
}

func testReading(cityID string, ts time.Time, temp float64) station.Reading {
	return station.Reading{
		CityID:      cityID,
		CityName:    cityID,
		Timestamp:   ts,
		Temperature: temp,
		Humidity:    60,
		WindSpeed:   3,
	}
}

func TestNewService_RequiresStations(t *testing.T) {
	_, err := history.NewService(history.ServiceConfig{Logger: zerolog.Nop()})
	require.ErrorIs(t, err, history.ErrNoStations)
}

func TestService_QueryUnknownCity(t *testing.T) {
	svc := newTestService(t, 30*time.Minute, nil)

	_, err := svc.Query("atlantis", 0)
	assert.ErrorIs(t, err, history.ErrUnknownCity)

	_, err = svc.Latest("atlantis")
	assert.ErrorIs(t, err, history.ErrUnknownCity)
}

func TestService_KnownCityWithoutHistoryIsEmptyNotError(t *testing.T) {
	svc := newTestService(t, 30*time.Minute, nil)

	got, err := svc.Query("city_1", 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = svc.Latest("city_1")
	assert.ErrorIs(t, err, history.ErrNoReading)
}

func TestService_IngestRejectsMalformed(t *testing.T) {
	svc := newTestService(t, 30*time.Minute, nil)

	err := svc.Ingest(station.Reading{CityID: "city_1"})
	assert.Error(t, err)

	err = svc.Ingest(testReading("", time.Now(), 20))
	assert.Error(t, err)
}

func TestService_IngestUnknownCity(t *testing.T) {
	svc := newTestService(t, 30*time.Minute, nil)

	err := svc.Ingest(testReading("city_99", time.Now(), 20))
	assert.ErrorIs(t, err, history.ErrUnknownCity)
}

func TestService_DuplicateTimestampDoesNotGrowWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, 30*time.Minute, func() time.Time { return now })

	require.NoError(t, svc.Ingest(testReading("city_1", now, 20)))
	require.NoError(t, svc.Ingest(testReading("city_1", now, 22)))

	got, err := svc.Query("city_1", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 22.0, got[0].Temperature)
}

func TestService_QueryDurationIsSuffixOfFullWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, 30*time.Minute, func() time.Time { return now })

	for i := 0; i < 25; i++ {
		ts := now.Add(time.Duration(-i) * time.Minute)
		require.NoError(t, svc.Ingest(testReading("city_1", ts, 20)))
	}

	full, err := svc.Query("city_1", 0)
	require.NoError(t, err)
	narrow, err := svc.Query("city_1", 10*time.Minute)
	require.NoError(t, err)

	require.NotEmpty(t, narrow)
	assert.Equal(t, full[len(full)-len(narrow):], narrow)
	for _, r := range narrow {
		assert.True(t, r.Timestamp.After(now.Add(-10*time.Minute)))
	}

	// Duration larger than the retention is clamped to the full window.
	clamped, err := svc.Query("city_1", 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, full, clamped)
}

// Ten one-second ticks into a five-second retention: the window holds
// exactly the most recent five readings, ascending.
func TestService_RetentionScenario(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := base

	sim, err := simulate.New(simulate.Config{
		Stations: []station.Station{{
			ID:                  "city_1",
			Name:                "Paris",
			BaselineTemperature: 12,
			BaselineHumidity:    72,
			BaselineWindSpeed:   4.5,
			RainProbability:     0.05,
		}},
		Seed: 42,
		Now:  func() time.Time { return clock },
	})
	require.NoError(t, err)

	svc, err := history.NewService(history.ServiceConfig{
		Stations:  sim.Stations(),
		Retention: 5 * time.Second,
		Logger:    zerolog.Nop(),
		Now:       func() time.Time { return clock },
	})
	require.NoError(t, err)

	var published []station.Reading
	for i := 0; i < 10; i++ {
		clock = base.Add(time.Duration(i) * time.Second)
		r := sim.Tick(sim.Stations()[0])
		published = append(published, r)
		require.NoError(t, svc.Ingest(r))
	}

	got, err := svc.Query("city_1", 0)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, published[5:], got)
}

func TestService_LatestOverwrites(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, 30*time.Minute, func() time.Time { return now })

	require.NoError(t, svc.IngestLatest(testReading("city_1", now, 20)))
	require.NoError(t, svc.IngestLatest(testReading("city_1", now.Add(time.Second), 21)))
	// An out-of-order older snapshot never moves the gauge backwards.
	require.NoError(t, svc.IngestLatest(testReading("city_1", now.Add(-time.Second), 15)))

	latest, err := svc.Latest("city_1")
	require.NoError(t, err)
	assert.Equal(t, 21.0, latest.Temperature)

	all := svc.LatestAll()
	require.Len(t, all, 1)
	assert.Equal(t, 21.0, all[0].Temperature)
}

func TestService_ConcurrentIngestAndQuery(t *testing.T) {
	base := time.Now().UTC()
	svc := newTestService(t, time.Hour, nil)

	var wg sync.WaitGroup
	for _, cityID := range []string{"city_1", "city_2", "city_3"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = svc.Ingest(testReading(id, base.Add(time.Duration(i)*time.Second), 20))
			}
		}(cityID)

		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				got, err := svc.Query(id, 0)
				assert.NoError(t, err)
				for j := 1; j < len(got); j++ {
					// Never a partially-applied window.
					assert.True(t, got[j].Timestamp.After(got[j-1].Timestamp))
				}
			}
		}(cityID)
	}
	wg.Wait()

	got, err := svc.Query("city_1", 0)
	require.NoError(t, err)
	assert.Len(t, got, 200)
}
