package models

import (
	"math"
	"time"
)

// LocationSample is a single GPS fix reported by a device
type LocationSample struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
	Speed     *float64  `json:"speed,omitempty"` // Device-reported speed in m/s, optional
}

// Position implements spatial.Located
func (s LocationSample) Position() (float64, float64) {
	return s.Latitude, s.Longitude
}

// Validate rejects samples with missing or out-of-range coordinates
func (s LocationSample) Validate() error {
	if !finite(s.Latitude) || !finite(s.Longitude) {
		return NewInputError("latitude", "coordinates must be finite numbers")
	}
	if math.Abs(s.Latitude) > 90 {
		return NewInputError("latitude", "must be within [-90, 90]")
	}
	if math.Abs(s.Longitude) > 180 {
		return NewInputError("longitude", "must be within [-180, 180]")
	}
	if s.Speed != nil && (!finite(*s.Speed) || *s.Speed < 0) {
		return NewInputError("speed", "must be a non-negative number")
	}
	return nil
}

// AccelSample is one accelerometer reading including gravity, in m/s²
type AccelSample struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	Timestamp time.Time `json:"timestamp"`
}

// Magnitude returns the Euclidean norm of the acceleration vector
func (a AccelSample) Magnitude() float64 {
	return math.Sqrt(a.X*a.X + a.Y*a.Y + a.Z*a.Z)
}

// Validate rejects malformed accelerometer readings
func (a AccelSample) Validate() error {
	if !finite(a.X) || !finite(a.Y) || !finite(a.Z) {
		return NewInputError("samples", "accelerometer components must be finite numbers")
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
