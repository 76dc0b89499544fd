package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windvane/windvane/internal/api"
	"github.com/windvane/windvane/internal/api/models"
	"github.com/windvane/windvane/internal/history"
	"github.com/windvane/windvane/internal/station"
)

func newTestServer(t *testing.T) (*httptest.Server, *history.Service) {
	t.Helper()

	svc, err := history.NewService(history.ServiceConfig{
		Stations: station.DefaultStations(),
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Version:        "test",
		BuildTime:      "test",
		Logger:         zerolog.Nop(),
		HistoryService: svc,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, svc
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestRouter_Health(t *testing.T) {
	server, _ := newTestServer(t)

	resp := get(t, server.URL+"/v1/ops/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health models.Health
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
}

func TestRouter_ListCities(t *testing.T) {
	server, _ := newTestServer(t)

	resp := get(t, server.URL+"/v1/cities")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cities []models.CityInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cities))
	require.Len(t, cities, 5)
	assert.Equal(t, "city_1", cities[0].ID)
	assert.Equal(t, "Paris", cities[0].Name)
}

func TestRouter_LatestUnknownCity(t *testing.T) {
	server, _ := newTestServer(t)

	resp := get(t, server.URL+"/v1/latest/atlantis")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))

	var problem models.Problem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	assert.Equal(t, http.StatusNotFound, problem.Status)
	assert.Contains(t, problem.Detail, "atlantis")
}

func TestRouter_LatestKnownCityWithoutReading(t *testing.T) {
	server, _ := newTestServer(t)

	resp := get(t, server.URL+"/v1/latest/city_1")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var problem models.Problem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	assert.Contains(t, problem.Detail, "no reading yet")
}

func TestRouter_LatestReturnsSnapshot(t *testing.T) {
	server, svc := newTestServer(t)

	ts := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, svc.IngestLatest(station.Reading{
		CityID:      "city_1",
		CityName:    "Paris",
		Timestamp:   ts,
		Temperature: 15.5,
		Humidity:    70,
		WindSpeed:   4,
	}))

	resp := get(t, server.URL+"/v1/latest/city_1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reading station.Reading
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reading))
	assert.Equal(t, 15.5, reading.Temperature)
	assert.True(t, reading.Timestamp.Equal(ts))
}

func TestRouter_HistoryEmptyKnownCity(t *testing.T) {
	server, _ := newTestServer(t)

	resp := get(t, server.URL+"/v1/history/city_2")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body models.HistoryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "city_2", body.CityID)
	assert.Empty(t, body.Readings)
}

func TestRouter_HistoryWithWindow(t *testing.T) {
	server, svc := newTestServer(t)

	now := time.Now().UTC()
	for i := 0; i < 20; i++ {
		require.NoError(t, svc.Ingest(station.Reading{
			CityID:      "city_1",
			CityName:    "Paris",
			Timestamp:   now.Add(time.Duration(-i) * time.Minute),
			Temperature: 12,
			Humidity:    70,
			WindSpeed:   4,
		}))
	}

	resp := get(t, server.URL+"/v1/history/city_1?minutes=10")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body models.HistoryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 10, body.WindowMinutes)
	assert.Equal(t, 30, body.RetentionMinutes)
	assert.NotEmpty(t, body.Readings)
	for i := 1; i < len(body.Readings); i++ {
		assert.True(t, body.Readings[i].Timestamp.After(body.Readings[i-1].Timestamp))
	}
	for _, r := range body.Readings {
		assert.True(t, r.Timestamp.After(now.Add(-10*time.Minute)))
	}
}

func TestRouter_HistoryBadMinutes(t *testing.T) {
	server, _ := newTestServer(t)

	for _, q := range []string{"minutes=abc", "minutes=0", "minutes=-5"} {
		resp := get(t, server.URL+"/v1/history/city_1?"+q)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestRouter_RequestIDHeader(t *testing.T) {
	server, _ := newTestServer(t)

	resp := get(t, server.URL+"/v1/cities")
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}
