package models

import (
	"time"
)

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// Fix is a location fix as recorded in the fix store.
type Fix struct {
	Coordinate
	Accuracy   float64   `json:"accuracy" validate:"gte=0"`
	RecordedAt time.Time `json:"recorded_at"`
	Source     string    `json:"source"`
}

// WeatherReading is the decoded set of current conditions for one fetch.
type WeatherReading struct {
	TemperatureC float64 `json:"temperature_c"`
	Description  string  `json:"description"`
	FeelsLikeC   float64 `json:"feels_like_c"`
	TempMinC     float64 `json:"temp_min_c"`
	TempMaxC     float64 `json:"temp_max_c"`
}

// Display field names.
const (
	FieldTemperature = "temperature"
	FieldCondition   = "condition"
	FieldDetails     = "details"
	FieldRain        = "rain"
)

type DisplayFields struct {
	Temperature string    `json:"temperature"`
	Condition   string    `json:"condition"`
	Details     string    `json:"details"`
	Rain        string    `json:"rain"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PermissionStatus is the state of the fine-location grant.
type PermissionStatus int

const (
	PermissionUnknown PermissionStatus = iota
	PermissionGranted
	PermissionDenied
)

func (s PermissionStatus) String() string {
	switch s {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "unknown"
	}
}
