package matcher

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/James-Fry-2/train-data-api/internal/models"
	"github.com/James-Fry-2/train-data-api/internal/stats"
	"github.com/James-Fry-2/train-data-api/internal/timetable"
)

// Thresholds holds the candidate scoring constants
type Thresholds struct {
	DepartureRows     int
	WindowMinutes     int // half-width of the departure query window around the origin visit
	DepartureLookback time.Duration

	TimingTiers []TimingTier

	BaseConfidence    float64
	TimingWeight      float64
	MotionWeight      float64
	IntermediateBonus float64
	IntermediateShare float64
	MinConfidence     float64
}

// TimingTier awards Score when a time difference is strictly below Within
type TimingTier struct {
	Within time.Duration
	Score  float64
}

// DefaultThresholds returns the production tuning
func DefaultThresholds() Thresholds {
	return Thresholds{
		DepartureRows:     20,
		WindowMinutes:     60,
		DepartureLookback: 12 * time.Hour,
		TimingTiers: []TimingTier{
			{Within: 5 * time.Minute, Score: 0.5},
			{Within: 15 * time.Minute, Score: 0.3},
			{Within: 30 * time.Minute, Score: 0.1},
		},
		BaseConfidence:    0.5,
		TimingWeight:      0.3,
		MotionWeight:      0.2,
		IntermediateBonus: 0.15,
		IntermediateShare: 0.5,
		MinConfidence:     0.5,
	}
}

// Request describes a transit window bounded by two station visits
type Request struct {
	Origin        models.StationVisit
	Destination   models.StationVisit
	Intermediates []models.StationVisit
	Motion        models.MotionEvidence
	// RequireTrainMotion rejects the journey outright when Motion is not train-like
	RequireTrainMotion bool
}

// Matcher ranks timetable services against observed station visits
type Matcher struct {
	client   timetable.Client
	location *time.Location
	timeout  time.Duration
	t        Thresholds
	now      func() time.Time
}

// New creates a new service candidate matcher. loc is the timetable's local zone.
func New(client timetable.Client, loc *time.Location, timeout time.Duration, t Thresholds) *Matcher {
	if loc == nil {
		loc = time.UTC
	}
	return &Matcher{
		client:   client,
		location: loc,
		timeout:  timeout,
		t:        t,
		now:      time.Now,
	}
}

// Match fetches departures from the origin and scores every service that calls at the destination
func (m *Matcher) Match(ctx context.Context, req Request) models.MatchResult {
	if req.Origin.StationCode == "" || req.Destination.StationCode == "" {
		return models.MatchResult{Reason: "at least two station visits are required"}
	}
	if req.Origin.StationCode == req.Destination.StationCode {
		return models.MatchResult{Reason: "origin and destination are the same station"}
	}
	if req.RequireTrainMotion && !req.Motion.IsTrainLike {
		return models.MatchResult{Reason: "motion between visits is not train-like"}
	}

	board, err := m.departures(ctx, req.Origin)
	if err != nil {
		log.Printf("[ServiceMatcher] Departure board unavailable for %s: %v", req.Origin.StationCode, err)
		return models.MatchResult{Reason: "timetable unavailable"}
	}

	details := m.fetchDetails(ctx, board.TrainServices)

	var candidates []models.ServiceCandidate
	for i, svc := range board.TrainServices {
		if details[i] == nil {
			continue
		}
		if c, ok := m.score(req, svc, details[i]); ok {
			candidates = append(candidates, c)
		}
	}

	if len(candidates) == 0 {
		return models.MatchResult{Reason: fmt.Sprintf("no services from %s call at %s",
			req.Origin.StationCode, req.Destination.StationCode)}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].ServiceID < candidates[j].ServiceID
	})

	best := candidates[0]
	result := models.MatchResult{Candidates: candidates}
	if best.Confidence < m.t.MinConfidence {
		result.Reason = fmt.Sprintf("best candidate %s below threshold (%.2f)", best.ServiceID, best.Confidence)
		return result
	}

	result.Matched = true
	result.Best = &best
	result.Reason = fmt.Sprintf("matched %s %s→%s (%.2f)", best.ServiceID,
		best.OriginCode, best.DestinationCode, best.Confidence)
	return result
}

// departures requests a ±WindowMinutes board centred on the origin visit
func (m *Matcher) departures(ctx context.Context, origin models.StationVisit) (*timetable.Board, error) {
	offset := int(math.Round(origin.Timestamp.Sub(m.now()).Minutes())) - m.t.WindowMinutes
	opts := timetable.BoardOptions{
		TimeOffset: offset,
		TimeWindow: 2 * m.t.WindowMinutes,
	}

	callCtx, cancel := m.withTimeout(ctx)
	defer cancel()
	return m.client.GetDepartureBoard(callCtx, origin.StationCode, m.t.DepartureRows, opts)
}

// fetchDetails loads service details concurrently; failed lookups are left nil
func (m *Matcher) fetchDetails(ctx context.Context, services []timetable.TrainService) []*timetable.ServiceDetails {
	details := make([]*timetable.ServiceDetails, len(services))

	var wg sync.WaitGroup
	for i, svc := range services {
		wg.Add(1)
		go func(i int, serviceID string) {
			defer wg.Done()

			callCtx, cancel := m.withTimeout(ctx)
			defer cancel()

			d, err := m.client.GetServiceDetails(callCtx, serviceID)
			if err != nil {
				log.Printf("[ServiceMatcher] Skipping service %s: %v", serviceID, err)
				return
			}
			details[i] = d
		}(i, svc.ServiceID)
	}
	wg.Wait()

	return details
}

// score builds a candidate when the service calls at the destination
func (m *Matcher) score(req Request, svc timetable.TrainService, d *timetable.ServiceDetails) (models.ServiceCandidate, bool) {
	arrivalPoint, ok := d.FindSubsequent(req.Destination.StationCode)
	if !ok {
		return models.ServiceCandidate{}, false
	}

	departure, err := timetable.AnchorClock(timetable.EffectiveClock(svc.STD, svc.ETD), req.Origin.Timestamp.Add(-m.t.DepartureLookback), m.location)
	if err != nil {
		log.Printf("[ServiceMatcher] Service %s has no usable departure time: %v", svc.ServiceID, err)
		return models.ServiceCandidate{}, false
	}
	arrival, err := timetable.AnchorClock(timetable.EffectiveClock(arrivalPoint.ST, arrivalPoint.ET), departure, m.location)
	if err != nil {
		log.Printf("[ServiceMatcher] Service %s has no usable arrival time at %s: %v",
			svc.ServiceID, req.Destination.StationCode, err)
		return models.ServiceCandidate{}, false
	}

	timing := m.timingScore(departure.Sub(req.Origin.Timestamp)) +
		m.timingScore(arrival.Sub(req.Destination.Timestamp))
	intermediate := m.intermediateStopsMatch(d, req.Intermediates)
	motion := stats.Clamp01(req.Motion.Confidence)

	confidence := m.t.BaseConfidence + m.t.TimingWeight*timing + m.t.MotionWeight*motion
	if intermediate {
		confidence += m.t.IntermediateBonus
	}

	return models.ServiceCandidate{
		ServiceID:              svc.ServiceID,
		Operator:               svc.Operator,
		OriginCode:             req.Origin.StationCode,
		DestinationCode:        req.Destination.StationCode,
		DepartureTime:          departure,
		ArrivalTime:            arrival,
		IntermediateStopsMatch: intermediate,
		Confidence:             stats.Clamp01(confidence),
		ConfidenceFactors: models.ConfidenceFactors{
			TimingScore:            timing,
			MotionScore:            motion,
			IntermediateStopsMatch: intermediate,
		},
	}, true
}

// timingScore maps an absolute time difference onto the tier table
func (m *Matcher) timingScore(diff time.Duration) float64 {
	if diff < 0 {
		diff = -diff
	}
	for _, tier := range m.t.TimingTiers {
		if diff < tier.Within {
			return tier.Score
		}
	}
	return 0
}

// intermediateStopsMatch is true when enough intermediate visits are calling points
func (m *Matcher) intermediateStopsMatch(d *timetable.ServiceDetails, intermediates []models.StationVisit) bool {
	if len(intermediates) == 0 {
		return false
	}

	hits := 0
	for _, v := range intermediates {
		if _, ok := d.FindSubsequent(v.StationCode); ok {
			hits++
		}
	}
	return float64(hits)/float64(len(intermediates)) >= m.t.IntermediateShare
}

func (m *Matcher) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}
