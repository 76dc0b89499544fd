package station

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Physical bounds the simulator keeps every reading inside. Validation uses
// a wider sanity range so readings from other producers are not rejected
// just for exceeding the simulation clamp.
const (
	MinTemperature = -20.0
	MaxTemperature = 45.0
	MinHumidity    = 0.0
	MaxHumidity    = 100.0
	MinWindSpeed   = 0.0
	MaxWindSpeed   = 40.0
)

// Reading is the wire record published on both the latest and history
// topics. It is an immutable value; both topics share this shape.
type Reading struct {
	CityID        string    `json:"city_id" validate:"required"`
	CityName      string    `json:"city_name" validate:"required"`
	Timestamp     time.Time `json:"timestamp" validate:"required"`
	Temperature   float64   `json:"temperature_celsius" validate:"gte=-90,lte=60"`
	Humidity      float64   `json:"humidity_percent" validate:"gte=0,lte=100"`
	WindSpeed     float64   `json:"wind_speed_mps" validate:"gte=0"`
	Precipitating bool      `json:"precipitation"`
	Precipitation float64   `json:"precipitation_mm" validate:"gte=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the reading against the wire schema. Consumers discard
// readings that fail validation rather than stopping the ingest loop.
func (r Reading) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid reading: %w", err)
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("invalid reading: zero timestamp")
	}
	return nil
}

// Encode marshals the reading for publication.
func (r Reading) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding reading: %w", err)
	}
	return data, nil
}

// DecodeReading unmarshals and validates a wire record.
func DecodeReading(data []byte) (Reading, error) {
	var r Reading
	if err := json.Unmarshal(data, &r); err != nil {
		return Reading{}, fmt.Errorf("decoding reading: %w", err)
	}
	if err := r.Validate(); err != nil {
		return Reading{}, err
	}
	return r, nil
}
