package models

import "time"

// JourneyState is the per-user position in the journey state machine
type JourneyState string

const (
	StateIdle      JourneyState = "IDLE"
	StateAtStation JourneyState = "AT_STATION"
	StateInTransit JourneyState = "IN_TRANSIT"
)

// StationInfo describes the station a user is currently at
type StationInfo struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	DistanceKm float64 `json:"distanceKm"`
	VisitID    string  `json:"visitId,omitempty"`
}

// StationEvidence is the station channel's contribution to a fused decision
type StationEvidence struct {
	IsAtStation bool    `json:"isAtStation"`
	Confidence  float64 `json:"confidence"`
	Reason      string  `json:"reason"`
}

// JourneyAnalysis keeps the per-channel evidence behind a JourneyStatus
type JourneyAnalysis struct {
	Station      StationEvidence  `json:"station"`
	Motion       MotionEvidence   `json:"motion"`
	DeviceMotion InertialEvidence `json:"deviceMotion"`
}

// JourneyStatus is the fused per-update output surfaced to callers
type JourneyStatus struct {
	UserID         string            `json:"userId"`
	Timestamp      time.Time         `json:"timestamp"`
	Location       LocationSample    `json:"location"`
	State          JourneyState      `json:"state"`
	IsAtStation    bool              `json:"isAtStation"`
	StationInfo    *StationInfo      `json:"stationInfo,omitempty"`
	IsTrainJourney bool              `json:"isTrainJourney"`
	Confidence     float64           `json:"confidence"`
	AverageSpeed   float64           `json:"averageSpeed"` // km/h
	ServiceInfo    *ServiceCandidate `json:"serviceInfo,omitempty"`
	Reason         string            `json:"reason"`
	Analysis       JourneyAnalysis   `json:"analysis"`
}
