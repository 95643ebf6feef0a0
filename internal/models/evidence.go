package models

// MotionMetrics are the kinematic statistics over a location window
type MotionMetrics struct {
	AvgSpeed              float64 `json:"avgSpeed"` // km/h
	MaxSpeed              float64 `json:"maxSpeed"` // km/h
	MinSpeed              float64 `json:"minSpeed"` // km/h
	SpeedVariation        float64 `json:"speedVariation"`
	AvgAcceleration       float64 `json:"avgAcceleration"` // m/s²
	AccelerationVariation float64 `json:"accelerationVariation"`
	SpeedConsistencyRatio float64 `json:"speedConsistencyRatio"`
}

// MotionEvidence is the kinematic analyzer's verdict
type MotionEvidence struct {
	IsTrainLike     bool          `json:"isTrainLike"`
	Confidence      float64       `json:"confidence"`
	AverageSpeedKmh float64       `json:"averageSpeedKmh"`
	SampleCount     int           `json:"sampleCount"`
	Metrics         MotionMetrics `json:"metrics"`
	Reason          string        `json:"reason"`
}

// InertialMetrics are the accelerometer statistics over the sensor window
type InertialMetrics struct {
	AvgMagnitude      float64 `json:"avgMagnitude"`
	MagVariation      float64 `json:"magVariation"`
	DominantFrequency float64 `json:"dominantFrequency"` // Hz
	SmoothnessScore   float64 `json:"smoothnessScore"`
}

// InertialEvidence is the device-motion analyzer's verdict
type InertialEvidence struct {
	IsTrainLike bool            `json:"isTrainLike"`
	Confidence  float64         `json:"confidence"`
	SampleCount int             `json:"sampleCount"`
	Metrics     InertialMetrics `json:"metrics"`
	Reason      string          `json:"reason"`
}
