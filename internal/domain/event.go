package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// WeatherUpdate asks for a crop cycle's risk to be recomputed because the
// weather at its location changed.
type WeatherUpdate struct {
	FarmerID               string   `json:"farmer_id"`
	CropCycleID            string   `json:"crop_cycle_id"`
	Latitude               *float64 `json:"latitude"`
	Longitude              *float64 `json:"longitude"`
	CurrentMoisturePercent *float64 `json:"current_moisture_percent,omitempty"`
}

// Point returns the update's location in orb (lon, lat) order.
func (u WeatherUpdate) Point() orb.Point {
	return orb.Point{*u.Longitude, *u.Latitude}
}

// ParseWeatherUpdate decodes and checks a weather-update message.
func ParseWeatherUpdate(raw RawEvent) (WeatherUpdate, error) {
	var u WeatherUpdate
	if err := json.Unmarshal(raw.Value, &u); err != nil {
		return WeatherUpdate{}, fmt.Errorf("unmarshal weather update: %w", err)
	}
	if u.FarmerID == "" || u.CropCycleID == "" {
		return WeatherUpdate{}, fmt.Errorf("%w: farmer_id and crop_cycle_id are required", ErrMissingIdentifier)
	}
	if u.Latitude == nil || u.Longitude == nil {
		return WeatherUpdate{}, errors.New("weather update has no coordinates")
	}
	if *u.Latitude < -90 || *u.Latitude > 90 || *u.Longitude < -180 || *u.Longitude > 180 {
		return WeatherUpdate{}, fmt.Errorf("weather update coordinates out of range: %v,%v", *u.Latitude, *u.Longitude)
	}
	return u, nil
}
