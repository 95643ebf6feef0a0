package station

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/James-Fry-2/train-data-api/internal/matcher"
	"github.com/James-Fry-2/train-data-api/internal/models"
	"github.com/James-Fry-2/train-data-api/internal/spatial"
	"github.com/James-Fry-2/train-data-api/internal/timetable"
	"github.com/James-Fry-2/train-data-api/internal/timetable/timetabletest"
)

type memoryDirectory struct {
	stations  []models.Station
	fail      bool
	listCalls int
}

func (m *memoryDirectory) Lookup(ctx context.Context, code string) (*models.Station, error) {
	for _, st := range m.stations {
		if st.Code == code {
			st := st
			return &st, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memoryDirectory) ListWithCoordinates(ctx context.Context, limit int) ([]models.Station, error) {
	m.listCalls++
	if m.fail {
		return nil, errors.New("directory down")
	}
	if len(m.stations) > limit {
		return m.stations[:limit], nil
	}
	return m.stations, nil
}

func (m *memoryDirectory) Search(ctx context.Context, query string, limit int) ([]models.Station, error) {
	var out []models.Station
	for _, st := range m.stations {
		if strings.Contains(strings.ToLower(st.Name), strings.ToLower(query)) {
			out = append(out, st)
		}
	}
	return out, nil
}

type memoryVisits struct {
	mu     sync.Mutex
	visits []models.StationVisit
	fail   bool
}

func (m *memoryVisits) SaveStationVisit(ctx context.Context, v *models.StationVisit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("db down")
	}
	m.visits = append(m.visits, *v)
	return nil
}

func coords(lat, lon float64) (*float64, *float64) {
	return &lat, &lon
}

func testStations() []models.Station {
	eusLat, eusLon := coords(51.5282, -0.1337)
	manLat, manLon := coords(53.4774, -2.2309)
	return []models.Station{
		{Code: "EUS", Name: "London Euston", Latitude: eusLat, Longitude: eusLon},
		{Code: "MAN", Name: "Manchester Piccadilly", Latitude: manLat, Longitude: manLon},
		{Code: "XXX", Name: "No Coordinates"},
	}
}

func newDetector(dir Directory, fake *timetabletest.Fake, visits VisitStore, m ServiceMatcher) *Detector {
	return NewDetector(dir, fake, visits, m, time.Second, DefaultThresholds())
}

func TestFindNearestStation(t *testing.T) {
	d := newDetector(&memoryDirectory{stations: testStations()}, timetabletest.New(), nil, nil)

	st, km, err := d.FindNearestStation(context.Background(), 53.47, -2.23)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, "MAN", st.Code)
	assert.Less(t, km, 1.0)
}

func TestFindNearestStationEmptyDirectory(t *testing.T) {
	d := newDetector(&memoryDirectory{}, timetabletest.New(), nil, nil)
	st, _, err := d.FindNearestStation(context.Background(), 53.47, -2.23)
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestDetectAtStationExactCoordinates(t *testing.T) {
	fake := timetabletest.New()
	fake.AddService("EUS", timetable.TrainService{
		ServiceID: "A", STD: "10:00", ETD: "On time", Platform: "4", Operator: "Avanti", OperatorCode: "VT",
		Origin:      []timetable.Location{{LocationName: "London Euston", CRS: "EUS"}},
		Destination: []timetable.Location{{LocationName: "Manchester Piccadilly", CRS: "MAN"}, {LocationName: "Other"}},
	}, [2]string{"MAN", "12:10"})
	visits := &memoryVisits{}
	d := newDetector(&memoryDirectory{stations: testStations()}, fake, visits, nil)

	det, err := d.Detect(context.Background(), Request{
		UserID: "u1",
		Sample: models.LocationSample{Latitude: 51.5282, Longitude: -0.1337, Timestamp: time.Now()},
	})
	require.NoError(t, err)

	assert.True(t, det.AtStation)
	assert.Zero(t, det.DistanceKm)
	require.NotNil(t, det.Visit)
	assert.Equal(t, "EUS", det.Visit.StationCode)
	assert.NotEmpty(t, det.Visit.ID)
	require.Len(t, det.Visit.PossibleDepartures, 1)

	snap := det.Visit.PossibleDepartures[0]
	assert.Equal(t, "A", snap.ServiceID)
	assert.Equal(t, "10:00", snap.Scheduled)
	assert.Equal(t, "On time", snap.Estimated)
	assert.Equal(t, "Manchester Piccadilly", snap.Destination)
	assert.Equal(t, "VT", snap.OperatorCode)
	assert.Empty(t, det.Visit.PossibleArrivals)

	require.Len(t, visits.visits, 1)
	assert.Nil(t, det.Service)
}

func TestDetectOneKilometreAway(t *testing.T) {
	d := newDetector(&memoryDirectory{stations: testStations()}, timetabletest.New(), &memoryVisits{}, nil)

	lat, lon := spatial.DestinationPoint(51.5282, -0.1337, 0, 1000)
	det, err := d.Detect(context.Background(), Request{
		UserID: "u1",
		Sample: models.LocationSample{Latitude: lat, Longitude: lon, Timestamp: time.Now()},
	})
	require.NoError(t, err)
	assert.False(t, det.AtStation)
	assert.Nil(t, det.Visit)
	assert.InDelta(t, 1.0, det.DistanceKm, 0.001)
}

func TestDetectSameStationDoesNotDuplicateVisit(t *testing.T) {
	visits := &memoryVisits{}
	d := newDetector(&memoryDirectory{stations: testStations()}, timetabletest.New(), visits, nil)

	det, err := d.Detect(context.Background(), Request{
		UserID:             "u1",
		Sample:             models.LocationSample{Latitude: 51.5282, Longitude: -0.1337, Timestamp: time.Now()},
		CurrentStationCode: "EUS",
	})
	require.NoError(t, err)
	assert.True(t, det.AtStation)
	assert.Nil(t, det.Visit)
	assert.Empty(t, visits.visits)
}

type recordingMatcher struct {
	req matcher.Request
}

func (r *recordingMatcher) Match(ctx context.Context, req matcher.Request) models.MatchResult {
	r.req = req
	return models.MatchResult{Matched: true, Best: &models.ServiceCandidate{ServiceID: "A", Confidence: 0.9}}
}

func TestDetectIdentifiesServiceFromPreviousVisit(t *testing.T) {
	rec := &recordingMatcher{}
	d := newDetector(&memoryDirectory{stations: testStations()}, timetabletest.New(), &memoryVisits{}, rec)

	prev := &models.StationVisit{StationCode: "EUS", Timestamp: time.Now().Add(-2 * time.Hour)}
	det, err := d.Detect(context.Background(), Request{
		UserID:   "u1",
		Sample:   models.LocationSample{Latitude: 53.4774, Longitude: -2.2309, Timestamp: time.Now()},
		Previous: prev,
		Motion:   models.MotionEvidence{Confidence: 0.6, IsTrainLike: true},
	})
	require.NoError(t, err)
	require.NotNil(t, det.Service)
	assert.True(t, det.Service.Matched)
	assert.Equal(t, "EUS", rec.req.Origin.StationCode)
	assert.Equal(t, "MAN", rec.req.Destination.StationCode)
	assert.False(t, rec.req.RequireTrainMotion)
	assert.InDelta(t, 0.6, rec.req.Motion.Confidence, 1e-9)
}

func TestDetectScoresTransitMotionOnlyWhenIdentifying(t *testing.T) {
	rec := &recordingMatcher{}
	d := newDetector(&memoryDirectory{stations: testStations()}, timetabletest.New(), &memoryVisits{}, rec)

	calls := 0
	transit := func(ctx context.Context) models.MotionEvidence {
		calls++
		return models.MotionEvidence{Confidence: 0.8, IsTrainLike: true, SampleCount: 40}
	}
	prev := &models.StationVisit{StationCode: "EUS", Timestamp: time.Now().Add(-2 * time.Hour)}

	// Away from any station: nothing to identify
	_, err := d.Detect(context.Background(), Request{
		UserID:        "u1",
		Sample:        models.LocationSample{Latitude: 52.5, Longitude: -1.5, Timestamp: time.Now()},
		Previous:      prev,
		TransitMotion: transit,
	})
	require.NoError(t, err)
	assert.Zero(t, calls)

	_, err = d.Detect(context.Background(), Request{
		UserID:             "u1",
		Sample:             models.LocationSample{Latitude: 53.4774, Longitude: -2.2309, Timestamp: time.Now()},
		Previous:           prev,
		Motion:             models.MotionEvidence{Confidence: 0.1},
		TransitMotion:      transit,
		RequireTrainMotion: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, rec.req.RequireTrainMotion)
	assert.Equal(t, 40, rec.req.Motion.SampleCount)
	assert.InDelta(t, 0.8, rec.req.Motion.Confidence, 1e-9)
}

func TestDetectCollaboratorFailures(t *testing.T) {
	fake := timetabletest.New()
	fake.Fail = true
	visits := &memoryVisits{fail: true}
	d := newDetector(&memoryDirectory{stations: testStations()}, fake, visits, nil)

	det, err := d.Detect(context.Background(), Request{
		UserID: "u1",
		Sample: models.LocationSample{Latitude: 51.5282, Longitude: -0.1337, Timestamp: time.Now()},
	})
	require.NoError(t, err)
	require.NotNil(t, det.Visit)
	assert.Empty(t, det.Visit.PossibleDepartures)

	_, err = newDetector(&memoryDirectory{fail: true}, fake, visits, nil).Detect(context.Background(), Request{UserID: "u1"})
	assert.Error(t, err)
}

func TestCachedDirectory(t *testing.T) {
	inner := &memoryDirectory{stations: testStations()}
	cached := NewCachedDirectory(inner, 16, time.Minute)

	for i := 0; i < 3; i++ {
		stations, err := cached.ListWithCoordinates(context.Background(), 100)
		require.NoError(t, err)
		assert.Len(t, stations, 3)
	}
	assert.Equal(t, 1, inner.listCalls)

	st, err := cached.Lookup(context.Background(), "MAN")
	require.NoError(t, err)
	assert.Equal(t, "Manchester Piccadilly", st.Name)

	_, err = cached.Lookup(context.Background(), "ZZZ")
	assert.ErrorIs(t, err, models.ErrNotFound)

	found, err := cached.Search(context.Background(), "euston", 10)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}
