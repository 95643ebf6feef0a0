package models

import "time"

// ConfidenceFactors break a candidate's confidence into its inputs
type ConfidenceFactors struct {
	TimingScore            float64 `json:"timingScore"`
	MotionScore            float64 `json:"motionScore"`
	IntermediateStopsMatch bool    `json:"intermediateStopsMatch"`
}

// ServiceCandidate is a scheduled service hypothesized to match an observed journey
type ServiceCandidate struct {
	ServiceID              string            `json:"serviceId"`
	Operator               string            `json:"operator"`
	OriginCode             string            `json:"originCode"`
	DestinationCode        string            `json:"destinationCode"`
	DepartureTime          time.Time         `json:"departureTime"`
	ArrivalTime            time.Time         `json:"arrivalTime"`
	IntermediateStopsMatch bool              `json:"intermediateStopsMatch"`
	Confidence             float64           `json:"confidence"`
	ConfidenceFactors      ConfidenceFactors `json:"confidenceFactors"`
}

// MatchResult is the outcome of one candidate-matching attempt
type MatchResult struct {
	Matched    bool               `json:"matched"`
	Best       *ServiceCandidate  `json:"best,omitempty"`
	Candidates []ServiceCandidate `json:"candidates,omitempty"`
	Reason     string             `json:"reason"`
}

// ServiceUsage records a service a user was identified travelling on
type ServiceUsage struct {
	ID                 string    `json:"id" db:"id"`
	UserID             string    `json:"userId" db:"user_id"`
	ServiceID          string    `json:"serviceId" db:"service_id"`
	Operator           string    `json:"operator" db:"operator"`
	OriginCode         string    `json:"originCode" db:"origin_code"`
	DestinationCode    string    `json:"destinationCode" db:"destination_code"`
	DepartureTime      time.Time `json:"departureTime" db:"departure_time"`
	ArrivalTime        time.Time `json:"arrivalTime" db:"arrival_time"`
	Confidence         float64   `json:"confidence" db:"confidence"`
	OriginVisitID      string    `json:"originVisitId,omitempty" db:"origin_visit_id"`
	DestinationVisitID string    `json:"destinationVisitId,omitempty" db:"destination_visit_id"`
	RecordedAt         time.Time `json:"recordedAt" db:"recorded_at"`
}

// ServiceHistoryFilter represents filter parameters for a user's service history
type ServiceHistoryFilter struct {
	Since    int64   `form:"since"` // Unix timestamp
	Limit    int     `form:"limit"`
	MinScore float64 `form:"minConfidence"`
}
