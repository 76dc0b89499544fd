package models

import (
	"time"

	"github.com/windvane/windvane/internal/station"
)

// CityInfo describes one configured station.
type CityInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LatestResponse carries the current snapshots for one or more cities.
type LatestResponse struct {
	Readings []station.Reading `json:"readings"`
}

// HistoryResponse carries one city's trailing window, ascending by timestamp.
type HistoryResponse struct {
	CityID           string            `json:"city_id"`
	RetentionMinutes int               `json:"retention_minutes"`
	WindowMinutes    int               `json:"window_minutes"`
	Readings         []station.Reading `json:"readings"`
}

// Health is the liveness/readiness response body.
type Health struct {
	Status  string                 `json:"status"`
	Time    time.Time              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatusOK is the healthy status value.
const HealthStatusOK = "ok"
