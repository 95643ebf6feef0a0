package analysis

import (
	"fmt"
	"strings"

	"github.com/James-Fry-2/train-data-api/internal/models"
	"github.com/James-Fry-2/train-data-api/internal/spatial"
	"github.com/James-Fry-2/train-data-api/internal/stats"
)

// KinematicAnalyzer classifies a GPS window as train-like from speed and acceleration
type KinematicAnalyzer struct {
	t KinematicThresholds
}

// NewKinematicAnalyzer creates a new kinematic analyzer
func NewKinematicAnalyzer(t KinematicThresholds) *KinematicAnalyzer {
	return &KinematicAnalyzer{t: t}
}

// Analyze scores an ordered window of location samples
func (a *KinematicAnalyzer) Analyze(samples []models.LocationSample) models.MotionEvidence {
	if len(samples) < a.t.MinSamples {
		return models.MotionEvidence{
			SampleCount: len(samples),
			Reason:      fmt.Sprintf("insufficient location data (%d samples)", len(samples)),
		}
	}

	speeds, accelerations := a.derive(samples)
	if len(speeds) == 0 {
		return models.MotionEvidence{
			SampleCount: len(samples),
			Reason:      "no usable time deltas between samples",
		}
	}

	avgSpeed := stats.Mean(speeds)
	speedStd := stats.StdDev(speeds)
	metrics := models.MotionMetrics{
		AvgSpeed:              avgSpeed,
		MaxSpeed:              stats.Max(speeds),
		MinSpeed:              stats.Min(speeds),
		SpeedVariation:        speedStd,
		AvgAcceleration:       stats.Mean(accelerations),
		AccelerationVariation: stats.StdDev(accelerations),
		SpeedConsistencyRatio: stats.CoefficientOfVariation(speeds),
	}

	confidence, reasons := a.score(metrics, speeds)
	confidence = stats.Clamp01(confidence)
	isTrain := confidence > a.t.Decision

	verdict := "not train-like"
	if isTrain {
		verdict = "train-like"
	}
	reasons = append(reasons, verdict)

	return models.MotionEvidence{
		IsTrainLike:     isTrain,
		Confidence:      confidence,
		AverageSpeedKmh: avgSpeed,
		SampleCount:     len(samples),
		Metrics:         metrics,
		Reason:          strings.Join(reasons, ", "),
	}
}

// derive returns per-transition speeds (km/h) and accelerations (m/s²).
// Transitions with a non-positive time delta are skipped.
func (a *KinematicAnalyzer) derive(samples []models.LocationSample) ([]float64, []float64) {
	speeds := make([]float64, 0, len(samples)-1)
	var accelerations []float64

	prevSpeedMS := 0.0
	havePrev := false
	for i := 1; i < len(samples); i++ {
		dt := samples[i].Timestamp.Sub(samples[i-1].Timestamp).Seconds()
		if dt <= 0 {
			continue
		}

		dist := spatial.HaversineDistance(
			samples[i-1].Latitude, samples[i-1].Longitude,
			samples[i].Latitude, samples[i].Longitude,
		)
		speedMS := dist / dt
		speeds = append(speeds, speedMS*3.6)

		if havePrev {
			accelerations = append(accelerations, (speedMS-prevSpeedMS)/dt)
		}
		prevSpeedMS = speedMS
		havePrev = true
	}

	return speeds, accelerations
}

// score applies the additive heuristics. The sum is clamped by the caller only.
func (a *KinematicAnalyzer) score(m models.MotionMetrics, speeds []float64) (float64, []string) {
	var confidence float64
	reasons := []string{fmt.Sprintf("avg speed %.1f km/h", m.AvgSpeed)}

	if m.AvgSpeed > a.t.TrainSpeedMin && m.AvgSpeed < a.t.TrainSpeedMax {
		confidence += a.t.TrainSpeedScore
		reasons = append(reasons, "speed in train range")
	} else if m.AvgSpeed > a.t.SlowSpeedMin {
		confidence += a.t.SlowSpeedScore
	}

	if m.MaxSpeed > a.t.HighMaxSpeed {
		confidence += a.t.HighMaxSpeedScore
		reasons = append(reasons, fmt.Sprintf("max speed %.1f km/h", m.MaxSpeed))
	}

	if m.AccelerationVariation < a.t.SmoothAccelVariation && m.AvgSpeed > a.t.SmoothAccelMinSpeed {
		confidence += a.t.SmoothAccelScore
		reasons = append(reasons, "smooth acceleration")
	}

	if m.SpeedConsistencyRatio < a.t.ConsistencyRatio && m.AvgSpeed > a.t.ConsistencyMinSpeed {
		confidence += a.t.ConsistencyScore
		reasons = append(reasons, "consistent speed")
	}

	if a.hasStopPattern(speeds) {
		confidence += a.t.StopPatternScore
		reasons = append(reasons, "station stop pattern")
	}

	return confidence, reasons
}

// hasStopPattern is true when the window contains at least one near-standstill
// and a sizeable share of cruising transitions.
func (a *KinematicAnalyzer) hasStopPattern(speeds []float64) bool {
	stopped := stats.FractionWhere(speeds, func(v float64) bool { return v < a.t.StopSpeed }) > 0
	cruising := stats.FractionWhere(speeds, func(v float64) bool { return v > a.t.CruiseSpeed })
	return stopped && cruising > a.t.CruiseFraction
}
