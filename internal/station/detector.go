package station

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/James-Fry-2/train-data-api/internal/matcher"
	"github.com/James-Fry-2/train-data-api/internal/models"
	"github.com/James-Fry-2/train-data-api/internal/spatial"
	"github.com/James-Fry-2/train-data-api/internal/timetable"
)

// VisitStore persists station visits
type VisitStore interface {
	SaveStationVisit(ctx context.Context, visit *models.StationVisit) error
}

// ServiceMatcher identifies the service used between two visits
type ServiceMatcher interface {
	Match(ctx context.Context, req matcher.Request) models.MatchResult
}

// Thresholds configures proximity detection
type Thresholds struct {
	RadiusKm    float64
	MaxStations int
	BoardRows   int
}

// DefaultThresholds returns the production tuning
func DefaultThresholds() Thresholds {
	return Thresholds{
		RadiusKm:    0.2,
		MaxStations: 100,
		BoardRows:   10,
	}
}

// Detector decides whether a location sample is at a station and records visits
type Detector struct {
	directory Directory
	client    timetable.Client
	visits    VisitStore
	matcher   ServiceMatcher
	timeout   time.Duration
	t         Thresholds
}

// NewDetector creates a new station proximity detector
func NewDetector(dir Directory, client timetable.Client, visits VisitStore, m ServiceMatcher, timeout time.Duration, t Thresholds) *Detector {
	return &Detector{
		directory: dir,
		client:    client,
		visits:    visits,
		matcher:   m,
		timeout:   timeout,
		t:         t,
	}
}

// Request is one proximity check for a user
type Request struct {
	UserID string
	Sample models.LocationSample
	// CurrentStationCode is the station the user is already known to be at; a sample
	// near it again does not create a second visit.
	CurrentStationCode string
	// Previous is the latest visit to a different station, used to identify the service taken
	Previous *models.StationVisit
	Motion   models.MotionEvidence
	// TransitMotion scores the track since Previous. It is only called when a service
	// identification runs; Motion is used when it is nil.
	TransitMotion func(ctx context.Context) models.MotionEvidence
	// RequireTrainMotion rejects the identification when the transit motion is not train-like
	RequireTrainMotion bool
}

// Detection is the detector's result for one sample
type Detection struct {
	AtStation  bool
	Station    *models.Station
	DistanceKm float64
	Visit      *models.StationVisit // nil when no new visit was recorded
	Service    *models.MatchResult  // nil when no identification was attempted
}

// FindNearestStation scans the directory for the closest station with coordinates
func (d *Detector) FindNearestStation(ctx context.Context, lat, lon float64) (*models.Station, float64, error) {
	callCtx, cancel := d.withTimeout(ctx)
	defer cancel()

	stations, err := d.directory.ListWithCoordinates(callCtx, d.t.MaxStations)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list stations: %w", err)
	}

	located := stations[:0:0]
	for _, st := range stations {
		if st.HasCoordinates() {
			located = append(located, st)
		}
	}

	idx, meters := spatial.Nearest(lat, lon, located)
	if idx < 0 {
		return nil, 0, nil
	}
	st := located[idx]
	return &st, meters / 1000, nil
}

// Detect checks proximity and, at a new station, records a visit and tries to
// identify the service used since the previous visit.
func (d *Detector) Detect(ctx context.Context, req Request) (*Detection, error) {
	st, distKm, err := d.FindNearestStation(ctx, req.Sample.Latitude, req.Sample.Longitude)
	if err != nil {
		return nil, err
	}
	if st == nil || distKm > d.t.RadiusKm {
		return &Detection{Station: st, DistanceKm: distKm}, nil
	}

	det := &Detection{AtStation: true, Station: st, DistanceKm: distKm}
	if st.Code == req.CurrentStationCode {
		return det, nil
	}

	visit, err := d.buildVisit(ctx, req.UserID, st, distKm, req.Sample)
	if err != nil {
		log.Printf("[StationDetector] Ignoring station %q: %v", st.Code, err)
		return &Detection{Station: st, DistanceKm: distKm}, nil
	}
	det.Visit = visit

	if err := d.save(ctx, visit); err != nil {
		log.Printf("[StationDetector] Failed to persist visit for user %s at %s: %v", req.UserID, visit.StationCode, err)
	}

	if req.Previous != nil && req.Previous.StationCode != visit.StationCode && d.matcher != nil {
		motion := req.Motion
		if req.TransitMotion != nil {
			motion = req.TransitMotion(ctx)
		}
		result := d.matcher.Match(ctx, matcher.Request{
			Origin:             *req.Previous,
			Destination:        *visit,
			Motion:             motion,
			RequireTrainMotion: req.RequireTrainMotion,
		})
		det.Service = &result
	}

	return det, nil
}

// buildVisit creates a visit with snapshots of the station's departure and arrival boards
func (d *Detector) buildVisit(ctx context.Context, userID string, st *models.Station, distKm float64, sample models.LocationSample) (*models.StationVisit, error) {
	code, err := models.NormalizeStationCode(st.Code)
	if err != nil {
		return nil, err
	}

	lat, lon := st.Position()
	visit := &models.StationVisit{
		ID:          uuid.NewString(),
		UserID:      userID,
		Timestamp:   sample.Timestamp,
		StationCode: code,
		StationName: st.Name,
		Latitude:    lat,
		Longitude:   lon,
		DistanceKm:  distKm,
	}

	visit.PossibleDepartures = d.snapshot(ctx, code, true)
	visit.PossibleArrivals = d.snapshot(ctx, code, false)
	return visit, nil
}

// snapshot trims a live board into visit snapshots; an unavailable board yields none
func (d *Detector) snapshot(ctx context.Context, code string, departures bool) []models.ServiceSnapshot {
	callCtx, cancel := d.withTimeout(ctx)
	defer cancel()

	var board *timetable.Board
	var err error
	if departures {
		board, err = d.client.GetDepartureBoard(callCtx, code, d.t.BoardRows, timetable.BoardOptions{})
	} else {
		board, err = d.client.GetArrivalBoard(callCtx, code, d.t.BoardRows, timetable.BoardOptions{})
	}
	if err != nil {
		log.Printf("[StationDetector] Board unavailable for %s: %v", code, err)
		return []models.ServiceSnapshot{}
	}

	out := make([]models.ServiceSnapshot, 0, len(board.TrainServices))
	for _, svc := range board.TrainServices {
		snap := models.ServiceSnapshot{
			ServiceID:    svc.ServiceID,
			Platform:     svc.Platform,
			Operator:     svc.Operator,
			OperatorCode: svc.OperatorCode,
			Origin:       svc.FirstOrigin(),
			Destination:  svc.FirstDestination(),
			IsCancelled:  svc.IsCancelled,
		}
		if departures {
			snap.Scheduled, snap.Estimated = svc.STD, svc.ETD
		} else {
			snap.Scheduled, snap.Estimated = svc.STA, svc.ETA
		}
		out = append(out, snap)
	}
	return out
}

func (d *Detector) save(ctx context.Context, visit *models.StationVisit) error {
	if d.visits == nil {
		return nil
	}
	callCtx, cancel := d.withTimeout(ctx)
	defer cancel()
	return d.visits.SaveStationVisit(callCtx, visit)
}

func (d *Detector) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.timeout)
}
