package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/James-Fry-2/train-data-api/internal/models"
	"github.com/James-Fry-2/train-data-api/internal/stats"
)

// InertialAnalyzer classifies accelerometer windows by vibration level and periodicity
type InertialAnalyzer struct {
	t InertialThresholds
}

// NewInertialAnalyzer creates a new device motion analyzer
func NewInertialAnalyzer(t InertialThresholds) *InertialAnalyzer {
	return &InertialAnalyzer{t: t}
}

// Analyze scores a window of accelerometer samples
func (a *InertialAnalyzer) Analyze(samples []models.AccelSample) models.InertialEvidence {
	if len(samples) < a.t.MinSamples {
		return models.InertialEvidence{
			SampleCount: len(samples),
			Reason:      fmt.Sprintf("insufficient sensor data (%d samples)", len(samples)),
		}
	}

	magnitudes := make([]float64, len(samples))
	for i, s := range samples {
		magnitudes[i] = s.Magnitude()
	}

	metrics := models.InertialMetrics{
		AvgMagnitude: stats.Mean(magnitudes),
		MagVariation: stats.StdDev(magnitudes),
	}

	autocorrelation := stats.Autocorrelation
	if a.t.CentreMagnitudes {
		autocorrelation = stats.CentredAutocorrelation
	}
	acf := autocorrelation(magnitudes, len(magnitudes)/3)
	if lag := stats.FirstPeakLag(acf, a.t.PeakRatio); lag > 0 {
		metrics.DominantFrequency = a.t.SamplingRateHz / float64(lag)
	}
	if metrics.DominantFrequency > 0 {
		metrics.SmoothnessScore = math.Min(1, a.t.SmoothnessNumerator/metrics.DominantFrequency)
	}

	var confidence float64
	var reasons []string

	if metrics.MagVariation > a.t.MagStdMin && metrics.MagVariation < a.t.MagStdMax {
		confidence += a.t.MagStdScore
		reasons = append(reasons, fmt.Sprintf("vibration level %.3f", metrics.MagVariation))
	}
	if metrics.DominantFrequency > a.t.FrequencyMin && metrics.DominantFrequency < a.t.FrequencyMax {
		confidence += a.t.PeriodicityScore
		reasons = append(reasons, fmt.Sprintf("periodic motion at %.2f Hz", metrics.DominantFrequency))
	}
	if metrics.SmoothnessScore > a.t.SmoothnessMin {
		confidence += a.t.SmoothnessScore
		reasons = append(reasons, "smooth ride")
	}

	confidence = stats.Clamp01(confidence)
	isTrain := confidence > a.t.Decision
	if isTrain {
		reasons = append(reasons, "train-like vibration")
	} else {
		reasons = append(reasons, "no train-like vibration")
	}

	return models.InertialEvidence{
		IsTrainLike: isTrain,
		Confidence:  confidence,
		SampleCount: len(samples),
		Metrics:     metrics,
		Reason:      strings.Join(reasons, ", "),
	}
}
