package domain

import (
	"context"
	"math"

	"github.com/paulmach/orb"
)

// WeatherSnapshot is the near-term weather at a location. A nil field is
// unknown, and checks involving it are skipped.
type WeatherSnapshot struct {
	Provider               string   `json:"provider,omitempty"`
	TemperatureC           *float64 `json:"temperatureC,omitempty"`
	HumidityPercent        *float64 `json:"humidityPercent,omitempty"`
	RainProbabilityPercent *float64 `json:"rainProbabilityPercent,omitempty"`
}

// WeatherProvider returns the current weather for a location. Implementations
// absorb upstream failures and return an all-unknown snapshot instead.
type WeatherProvider interface {
	CurrentWeather(ctx context.Context, loc orb.Point) WeatherSnapshot
}

// Float returns a pointer to v, or nil when v is NaN.
func Float(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func known(v *float64) bool {
	return v != nil && !math.IsNaN(*v)
}
