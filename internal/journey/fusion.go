package journey

import (
	"fmt"
	"strings"

	"github.com/James-Fry-2/train-data-api/internal/models"
	"github.com/James-Fry-2/train-data-api/internal/stats"
)

// FusionWeights holds the evidence weights and decision threshold
type FusionWeights struct {
	Station   float64
	Kinematic float64
	Inertial  float64
	Threshold float64

	StationBase  float64 // station evidence when at a station
	ServiceShare float64 // added on top, scaled by the identified service's confidence
}

// DefaultFusionWeights returns the production tuning
func DefaultFusionWeights() FusionWeights {
	return FusionWeights{
		Station:      0.4,
		Kinematic:    0.4,
		Inertial:     0.2,
		Threshold:    0.5,
		StationBase:  0.5,
		ServiceShare: 0.5,
	}
}

// Fusion combines the three evidence channels into one decision
type Fusion struct {
	w FusionWeights
}

// NewFusion creates a fusion engine
func NewFusion(w FusionWeights) *Fusion {
	return &Fusion{w: w}
}

// StationEvidence scores the station channel. service may be nil.
func (f *Fusion) StationEvidence(info *models.StationInfo, service *models.ServiceCandidate) models.StationEvidence {
	if info == nil {
		return models.StationEvidence{Reason: "not at a station"}
	}

	ev := models.StationEvidence{
		IsAtStation: true,
		Confidence:  f.w.StationBase,
		Reason:      fmt.Sprintf("at %s (%.0f m)", info.Name, info.DistanceKm*1000),
	}
	if service != nil {
		ev.Confidence += f.w.ServiceShare * stats.Clamp01(service.Confidence)
		ev.Reason += fmt.Sprintf(", arrived on %s from %s", service.ServiceID, service.OriginCode)
	}
	ev.Confidence = stats.Clamp01(ev.Confidence)
	return ev
}

// Fuse returns the weighted confidence and whether it indicates a train journey
func (f *Fusion) Fuse(station models.StationEvidence, motion models.MotionEvidence, inertial models.InertialEvidence) (float64, bool) {
	confidence := f.w.Station*stats.Clamp01(station.Confidence) +
		f.w.Kinematic*stats.Clamp01(motion.Confidence) +
		f.w.Inertial*stats.Clamp01(inertial.Confidence)
	confidence = stats.Clamp01(confidence)
	return confidence, confidence > f.w.Threshold
}

// Reason composes the per-channel rationale
func Reason(station models.StationEvidence, motion models.MotionEvidence, inertial models.InertialEvidence) string {
	parts := make([]string, 0, 3)
	for _, p := range []struct{ label, reason string }{
		{"station", station.Reason},
		{"motion", motion.Reason},
		{"device", inertial.Reason},
	} {
		if p.reason != "" {
			parts = append(parts, p.label+": "+p.reason)
		}
	}
	return strings.Join(parts, "; ")
}
