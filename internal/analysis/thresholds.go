package analysis

// KinematicThresholds holds the additive scoring heuristics of the GPS analyzer.
// Speeds are km/h, accelerations m/s².
type KinematicThresholds struct {
	MinSamples int

	TrainSpeedMin   float64
	TrainSpeedMax   float64
	TrainSpeedScore float64
	SlowSpeedMin    float64
	SlowSpeedScore  float64

	HighMaxSpeed      float64
	HighMaxSpeedScore float64

	SmoothAccelVariation float64
	SmoothAccelMinSpeed  float64
	SmoothAccelScore     float64

	ConsistencyRatio    float64
	ConsistencyMinSpeed float64
	ConsistencyScore    float64

	StopSpeed        float64
	CruiseSpeed      float64
	CruiseFraction   float64
	StopPatternScore float64

	Decision float64
}

// DefaultKinematicThresholds returns the production tuning
func DefaultKinematicThresholds() KinematicThresholds {
	return KinematicThresholds{
		MinSamples: 3,

		TrainSpeedMin:   40,
		TrainSpeedMax:   250,
		TrainSpeedScore: 0.3,
		SlowSpeedMin:    30,
		SlowSpeedScore:  0.1,

		HighMaxSpeed:      80,
		HighMaxSpeedScore: 0.2,

		SmoothAccelVariation: 0.2,
		SmoothAccelMinSpeed:  30,
		SmoothAccelScore:     0.2,

		ConsistencyRatio:    0.3,
		ConsistencyMinSpeed: 40,
		ConsistencyScore:    0.2,

		StopSpeed:        5,
		CruiseSpeed:      50,
		CruiseFraction:   0.3,
		StopPatternScore: 0.1,

		Decision: 0.5,
	}
}

// InertialThresholds holds the accelerometer scoring heuristics
type InertialThresholds struct {
	MinSamples     int
	MaxSamples     int
	SamplingRateHz float64
	PeakRatio      float64 // share of lag-0 autocorrelation a peak must exceed
	// CentreMagnitudes subtracts the window mean before the autocorrelation.
	// Off by default: raw magnitudes carry gravity, which hides the ripple.
	CentreMagnitudes bool

	MagStdMin   float64
	MagStdMax   float64
	MagStdScore float64

	FrequencyMin     float64
	FrequencyMax     float64
	PeriodicityScore float64

	SmoothnessNumerator float64
	SmoothnessMin       float64
	SmoothnessScore     float64

	Decision float64
}

// DefaultInertialThresholds returns the production tuning
func DefaultInertialThresholds() InertialThresholds {
	return InertialThresholds{
		MinSamples:     50,
		MaxSamples:     1000,
		SamplingRateHz: 10,
		PeakRatio:      0.2,

		MagStdMin:   0.05,
		MagStdMax:   0.5,
		MagStdScore: 0.3,

		FrequencyMin:     0.5,
		FrequencyMax:     5,
		PeriodicityScore: 0.4,

		SmoothnessNumerator: 2,
		SmoothnessMin:       0.7,
		SmoothnessScore:     0.2,

		Decision: 0.5,
	}
}
