package models

import (
	"fmt"
	"strings"
	"time"
)

// Station represents a railway station from the directory
type Station struct {
	Code      string   `json:"code" db:"code"` // 3-letter CRS code
	Name      string   `json:"name" db:"name"`
	Latitude  *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" db:"longitude"`
	Operator  string   `json:"operator,omitempty" db:"operator"`
}

// HasCoordinates reports whether the station can take part in proximity checks
func (s Station) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// Position implements spatial.Located. Only valid when HasCoordinates is true.
func (s Station) Position() (float64, float64) {
	if !s.HasCoordinates() {
		return 0, 0
	}
	return *s.Latitude, *s.Longitude
}

// NormalizeStationCode upper-cases and validates a CRS code
func NormalizeStationCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidStationCode, code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: %q", ErrInvalidStationCode, code)
		}
	}
	return code, nil
}

// ServiceSnapshot is a trimmed departure/arrival board entry captured with a visit
type ServiceSnapshot struct {
	ServiceID    string `json:"serviceId"`
	Scheduled    string `json:"scheduled"` // std or sta, "HH:MM"
	Estimated    string `json:"estimated"` // etd or eta: "On time", "Delayed", "HH:MM"
	Platform     string `json:"platform,omitempty"`
	Operator     string `json:"operator"`
	OperatorCode string `json:"operatorCode"`
	Origin       string `json:"origin"`      // first origin location name
	Destination  string `json:"destination"` // first destination location name
	IsCancelled  bool   `json:"isCancelled"`
}

// StationVisit is a detected event of a user being at or near a station
type StationVisit struct {
	ID                 string            `json:"id" db:"id"`
	UserID             string            `json:"userId" db:"user_id"`
	Timestamp          time.Time         `json:"timestamp" db:"visited_at"`
	StationCode        string            `json:"stationCode" db:"station_code"`
	StationName        string            `json:"stationName" db:"station_name"`
	Latitude           float64           `json:"latitude" db:"latitude"`
	Longitude          float64           `json:"longitude" db:"longitude"`
	DistanceKm         float64           `json:"distanceKm" db:"distance_km"`
	PossibleDepartures []ServiceSnapshot `json:"possibleDepartures" db:"departures_json"`
	PossibleArrivals   []ServiceSnapshot `json:"possibleArrivals" db:"arrivals_json"`
}
