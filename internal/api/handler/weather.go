// Package handler provides HTTP handlers for the Windvane query API.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/windvane/windvane/internal/api/models"
	"github.com/windvane/windvane/internal/api/response"
	"github.com/windvane/windvane/internal/history"
)

// WeatherHandler handles the latest and history query endpoints.
type WeatherHandler struct {
	service *history.Service
}

// NewWeatherHandler creates a new WeatherHandler.
func NewWeatherHandler(service *history.Service) *WeatherHandler {
	return &WeatherHandler{service: service}
}

// ListCities handles GET /v1/cities - the configured station list.
func (h *WeatherHandler) ListCities(w http.ResponseWriter, r *http.Request) {
	stations := h.service.Stations()
	cities := make([]models.CityInfo, 0, len(stations))
	for _, st := range stations {
		cities = append(cities, models.CityInfo{ID: st.ID, Name: st.Name})
	}
	response.JSON(w, r, http.StatusOK, cities)
}

// GetLatest handles GET /v1/latest/{cityId} - current snapshot for one city.
func (h *WeatherHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	cityID := chi.URLParam(r, "cityId")

	reading, err := h.service.Latest(cityID)
	if err != nil {
		switch {
		case errors.Is(err, history.ErrUnknownCity):
			response.NotFound(w, r, "unknown city: "+cityID)
		case errors.Is(err, history.ErrNoReading):
			response.NotFound(w, r, "no reading yet for city: "+cityID)
		default:
			response.InternalError(w, r, "failed to read latest snapshot")
		}
		return
	}
	response.JSON(w, r, http.StatusOK, reading)
}

// ListLatest handles GET /v1/latest - current snapshots for all cities.
func (h *WeatherHandler) ListLatest(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.LatestResponse{
		Readings: h.service.LatestAll(),
	})
}

// GetHistory handles GET /v1/history/{cityId}?minutes=30 - the trailing
// window for one city, ascending by timestamp. An empty window for a known
// city is an empty readings array, not an error.
func (h *WeatherHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	cityID := chi.URLParam(r, "cityId")

	window := h.service.Retention()
	if raw := r.URL.Query().Get("minutes"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			response.BadRequest(w, r, "minutes must be a positive integer")
			return
		}
		window = time.Duration(minutes) * time.Minute
		if window > h.service.Retention() {
			window = h.service.Retention()
		}
	}

	readings, err := h.service.Query(cityID, window)
	if err != nil {
		if errors.Is(err, history.ErrUnknownCity) {
			response.NotFound(w, r, "unknown city: "+cityID)
			return
		}
		response.InternalError(w, r, "failed to query history")
		return
	}

	response.JSON(w, r, http.StatusOK, models.HistoryResponse{
		CityID:           cityID,
		RetentionMinutes: int(h.service.Retention().Minutes()),
		WindowMinutes:    int(window.Minutes()),
		Readings:         readings,
	})
}
