package matcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/James-Fry-2/train-data-api/internal/models"
	"github.com/James-Fry-2/train-data-api/internal/timetable"
	"github.com/James-Fry-2/train-data-api/internal/timetable/timetabletest"
)

var day = time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

func at(hh, mm int) time.Time {
	return day.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
}

func visit(code string, ts time.Time) models.StationVisit {
	return models.StationVisit{UserID: "u1", StationCode: code, Timestamp: ts}
}

func trainMotion() models.MotionEvidence {
	return models.MotionEvidence{IsTrainLike: true, Confidence: 0.7}
}

func newMatcher(fake *timetabletest.Fake, now time.Time) *Matcher {
	m := New(fake, time.UTC, time.Second, DefaultThresholds())
	m.now = func() time.Time { return now }
	return m
}

func westCoastFake() *timetabletest.Fake {
	fake := timetabletest.New()
	fake.AddService("EUS", timetable.TrainService{ServiceID: "A", STD: "10:00", Operator: "Avanti"},
		[2]string{"MKC", "10:30"}, [2]string{"MAN", "12:10"})
	fake.AddService("EUS", timetable.TrainService{ServiceID: "B", STD: "10:20", Operator: "Avanti"},
		[2]string{"MAN", "12:40"})
	fake.AddService("EUS", timetable.TrainService{ServiceID: "C", STD: "10:00", Operator: "LNR"},
		[2]string{"BHM", "11:30"})
	return fake
}

func TestMatchRanksCandidates(t *testing.T) {
	fake := westCoastFake()
	m := newMatcher(fake, at(12, 15))

	got := m.Match(context.Background(), Request{
		Origin:      visit("EUS", at(10, 2)),
		Destination: visit("MAN", at(12, 12)),
		Motion:      trainMotion(),
	})

	require.True(t, got.Matched, got.Reason)
	require.Len(t, got.Candidates, 2)
	assert.Equal(t, "A", got.Best.ServiceID)
	assert.Equal(t, "B", got.Candidates[1].ServiceID)

	assert.InDelta(t, 1.0, got.Best.ConfidenceFactors.TimingScore, 1e-9)
	assert.InDelta(t, 0.7, got.Best.ConfidenceFactors.MotionScore, 1e-9)
	assert.InDelta(t, 0.94, got.Best.Confidence, 1e-9)
	assert.Equal(t, at(12, 10), got.Best.ArrivalTime)
	assert.Equal(t, "EUS", got.Best.OriginCode)
	assert.Equal(t, "MAN", got.Best.DestinationCode)

	assert.InDelta(t, 0.2, got.Candidates[1].ConfidenceFactors.TimingScore, 1e-9)
	assert.InDelta(t, 0.70, got.Candidates[1].Confidence, 1e-9)
}

func TestMatchNeverAcceptsServiceMissingDestination(t *testing.T) {
	fake := timetabletest.New()
	// Perfect timing but the service does not call at MAN
	fake.AddService("EUS", timetable.TrainService{ServiceID: "C", STD: "10:00"},
		[2]string{"BHM", "12:10"})
	m := newMatcher(fake, at(12, 15))

	got := m.Match(context.Background(), Request{
		Origin:      visit("EUS", at(10, 0)),
		Destination: visit("MAN", at(12, 10)),
		Motion:      trainMotion(),
	})

	assert.False(t, got.Matched)
	assert.Empty(t, got.Candidates)
	assert.Contains(t, got.Reason, "no services")
}

func TestMatchIntermediateStops(t *testing.T) {
	fake := westCoastFake()
	m := newMatcher(fake, at(12, 15))

	got := m.Match(context.Background(), Request{
		Origin:        visit("EUS", at(10, 2)),
		Destination:   visit("MAN", at(12, 12)),
		Intermediates: []models.StationVisit{visit("MKC", at(10, 31)), visit("SOT", at(11, 20))},
		Motion:        trainMotion(),
	})

	require.True(t, got.Matched)
	assert.True(t, got.Best.IntermediateStopsMatch)
	assert.Equal(t, 1.0, got.Best.Confidence)
	assert.False(t, got.Candidates[1].IntermediateStopsMatch)
}

func TestMatchRejectsNonTrainMotion(t *testing.T) {
	fake := westCoastFake()
	m := newMatcher(fake, at(12, 15))

	got := m.Match(context.Background(), Request{
		Origin:             visit("EUS", at(10, 2)),
		Destination:        visit("MAN", at(12, 12)),
		Motion:             models.MotionEvidence{Confidence: 0.3},
		RequireTrainMotion: true,
	})

	assert.False(t, got.Matched)
	assert.Zero(t, fake.DepartureCalls)
}

func TestMatchRequiresTwoDistinctVisits(t *testing.T) {
	m := newMatcher(westCoastFake(), at(12, 15))

	got := m.Match(context.Background(), Request{Origin: visit("EUS", at(10, 2))})
	assert.False(t, got.Matched)

	got = m.Match(context.Background(), Request{
		Origin:      visit("EUS", at(10, 2)),
		Destination: visit("EUS", at(10, 20)),
	})
	assert.False(t, got.Matched)
}

func TestMatchTimetableUnavailable(t *testing.T) {
	fake := westCoastFake()
	fake.Fail = true
	m := newMatcher(fake, at(12, 15))

	got := m.Match(context.Background(), Request{
		Origin:      visit("EUS", at(10, 2)),
		Destination: visit("MAN", at(12, 12)),
		Motion:      trainMotion(),
	})
	assert.False(t, got.Matched)
	assert.Equal(t, "timetable unavailable", got.Reason)
}

func TestMatchQueriesWindowAroundOrigin(t *testing.T) {
	fake := westCoastFake()
	m := newMatcher(fake, at(10, 2))

	m.Match(context.Background(), Request{
		Origin:      visit("EUS", at(10, 2)),
		Destination: visit("MAN", at(12, 12)),
		Motion:      trainMotion(),
	})
	assert.Equal(t, -60, fake.LastDepartureOpts.TimeOffset)
	assert.Equal(t, 120, fake.LastDepartureOpts.TimeWindow)
}

func TestMatchBelowThreshold(t *testing.T) {
	th := DefaultThresholds()
	th.BaseConfidence = 0.1
	fake := westCoastFake()
	m := New(fake, time.UTC, time.Second, th)
	m.now = func() time.Time { return at(12, 15) }

	got := m.Match(context.Background(), Request{
		Origin:      visit("EUS", at(10, 50)),
		Destination: visit("MAN", at(13, 30)),
		Motion:      models.MotionEvidence{Confidence: 0.2},
	})
	assert.False(t, got.Matched)
	assert.NotEmpty(t, got.Candidates)
	assert.Contains(t, got.Reason, "below threshold")
}

func TestMatchTiesOrderedByServiceID(t *testing.T) {
	fake := timetabletest.New()
	fake.AddService("EUS", timetable.TrainService{ServiceID: "Z", STD: "10:00"}, [2]string{"MAN", "12:10"})
	fake.AddService("EUS", timetable.TrainService{ServiceID: "M", STD: "10:00"}, [2]string{"MAN", "12:10"})
	m := newMatcher(fake, at(12, 15))

	got := m.Match(context.Background(), Request{
		Origin:      visit("EUS", at(10, 0)),
		Destination: visit("MAN", at(12, 10)),
		Motion:      trainMotion(),
	})
	require.Len(t, got.Candidates, 2)
	assert.Equal(t, "M", got.Candidates[0].ServiceID)
	assert.Equal(t, "Z", got.Candidates[1].ServiceID)
}

func TestMatchArrivalPastMidnight(t *testing.T) {
	fake := timetabletest.New()
	fake.AddService("EUS", timetable.TrainService{ServiceID: "N", STD: "23:50"}, [2]string{"WFJ", "00:10"})
	m := newMatcher(fake, at(24, 15))

	got := m.Match(context.Background(), Request{
		Origin:      visit("EUS", at(23, 48)),
		Destination: visit("WFJ", at(24, 11)),
		Motion:      trainMotion(),
	})
	require.True(t, got.Matched)
	assert.Equal(t, at(24, 10), got.Best.ArrivalTime)
	assert.InDelta(t, 1.0, got.Best.ConfidenceFactors.TimingScore, 1e-9)
}

func TestMatchUsesRealtimeEstimates(t *testing.T) {
	fake := timetabletest.New()
	fake.AddService("EUS", timetable.TrainService{ServiceID: "D", STD: "10:00", ETD: "10:25"}, [2]string{"MAN", "12:10"})
	fake.Services["D"].SubsequentCallingPoints[0].CallingPoint[0].ET = "12:35"
	m := newMatcher(fake, at(12, 40))

	got := m.Match(context.Background(), Request{
		Origin:      visit("EUS", at(10, 24)),
		Destination: visit("MAN", at(12, 36)),
		Motion:      trainMotion(),
	})
	require.True(t, got.Matched, got.Reason)
	assert.Equal(t, at(10, 25), got.Best.DepartureTime)
	assert.Equal(t, at(12, 35), got.Best.ArrivalTime)
	assert.InDelta(t, 1.0, got.Best.ConfidenceFactors.TimingScore, 1e-9)
}

func TestTimingScoreTiers(t *testing.T) {
	m := New(nil, nil, 0, DefaultThresholds())

	tests := []struct {
		diff time.Duration
		want float64
	}{
		{0, 0.5},
		{-4 * time.Minute, 0.5},
		{5 * time.Minute, 0.3},
		{14 * time.Minute, 0.3},
		{15 * time.Minute, 0.1},
		{-29 * time.Minute, 0.1},
		{30 * time.Minute, 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, m.timingScore(tc.diff), tc.diff.String())
	}
}

// Departure and arrival tiers add up unscaled: a perfect journey scores 1.0,
// and every tier difference moves the confidence by TimingWeight times that tier.
func TestTimingScoreSumsDepartureAndArrival(t *testing.T) {
	tests := []struct {
		name       string
		origin     time.Time
		dest       time.Time
		wantTiming float64
		wantConf   float64
	}{
		{"both within five minutes", at(10, 2), at(12, 12), 1.0, 0.94},
		{"late arrival", at(10, 2), at(12, 20), 0.8, 0.88},
		{"loose both ends", at(10, 10), at(12, 30), 0.4, 0.76},
		{"arrival outside every tier", at(10, 20), at(12, 50), 0.1, 0.67},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := timetabletest.New()
			fake.AddService("EUS", timetable.TrainService{ServiceID: "A", STD: "10:00"}, [2]string{"MAN", "12:10"})
			m := newMatcher(fake, at(13, 0))

			got := m.Match(context.Background(), Request{
				Origin:      visit("EUS", tt.origin),
				Destination: visit("MAN", tt.dest),
				Motion:      trainMotion(),
			})

			require.True(t, got.Matched, got.Reason)
			assert.InDelta(t, tt.wantTiming, got.Best.ConfidenceFactors.TimingScore, 1e-9)
			assert.InDelta(t, tt.wantConf, got.Best.Confidence, 1e-9)
		})
	}
}
