// Package station defines the city stations Windvane simulates and the
// wire record both telemetry topics carry.
package station

// Station represents a fixed city weather station.
type Station struct {
	// ID is the stable station identifier used as the message key.
	ID string `yaml:"id" validate:"required"`

	// Name is the human-readable city name.
	Name string `yaml:"name" validate:"required"`

	// Baseline climate parameters the simulator starts from.
	BaselineTemperature float64 `yaml:"baseline_temperature_celsius"`
	BaselineHumidity    float64 `yaml:"baseline_humidity_percent" validate:"gte=0,lte=100"`
	BaselineWindSpeed   float64 `yaml:"baseline_wind_speed_mps" validate:"gte=0"`

	// RainProbability is the chance per tick that the precipitation
	// state flips (raining <-> dry).
	RainProbability float64 `yaml:"rain_probability" validate:"gte=0,lte=1"`
}

// DefaultStations returns the built-in five-city station list used when no
// stations file is configured.
func DefaultStations() []Station {
	return []Station{
		{
			ID:                  "city_1",
			Name:                "Paris",
			BaselineTemperature: 12.0,
			BaselineHumidity:    72.0,
			BaselineWindSpeed:   4.5,
			RainProbability:     0.05,
		},
		{
			ID:                  "city_2",
			Name:                "Tokyo",
			BaselineTemperature: 16.5,
			BaselineHumidity:    65.0,
			BaselineWindSpeed:   3.8,
			RainProbability:     0.05,
		},
		{
			ID:                  "city_3",
			Name:                "New York",
			BaselineTemperature: 13.0,
			BaselineHumidity:    63.0,
			BaselineWindSpeed:   5.6,
			RainProbability:     0.05,
		},
		{
			ID:                  "city_4",
			Name:                "Sydney",
			BaselineTemperature: 18.5,
			BaselineHumidity:    68.0,
			BaselineWindSpeed:   6.2,
			RainProbability:     0.05,
		},
		{
			ID:                  "city_5",
			Name:                "Reykjavik",
			BaselineTemperature: 4.5,
			BaselineHumidity:    78.0,
			BaselineWindSpeed:   8.1,
			RainProbability:     0.08,
		},
	}
}
