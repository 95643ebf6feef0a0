package journey

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/James-Fry-2/train-data-api/internal/analysis"
	"github.com/James-Fry-2/train-data-api/internal/matcher"
	"github.com/James-Fry-2/train-data-api/internal/models"
	"github.com/James-Fry-2/train-data-api/internal/station"
)

// ErrCollectionInactive is returned when motion samples arrive outside a collection window
var ErrCollectionInactive = errors.New("motion collection is not active")

// Detector checks station proximity and records visits
type Detector interface {
	Detect(ctx context.Context, req station.Request) (*station.Detection, error)
}

// Store is the persistence the journey service needs
type Store interface {
	SaveUserLocation(ctx context.Context, userID string, sample models.LocationSample) error
	GetUserLocationsBetween(ctx context.Context, userID string, from, to time.Time) ([]models.LocationSample, error)
	RecordServiceUsage(ctx context.Context, usage *models.ServiceUsage) error
	GetUserServiceHistory(ctx context.Context, userID string, filter models.ServiceHistoryFilter) ([]models.ServiceUsage, error)
	GetVisit(ctx context.Context, userID, id string) (*models.StationVisit, error)
	GetVisitsBetween(ctx context.Context, userID string, from, to time.Time) ([]models.StationVisit, error)
	GetUserStationVisits(ctx context.Context, userID string, limit int) ([]models.StationVisit, error)
}

// Publisher mirrors live positions and statuses to subscribers
type Publisher interface {
	UpdateLastPosition(ctx context.Context, userID string, lat, lon float64, at time.Time) error
	PublishStatus(ctx context.Context, userID string, status any) error
}

// Options configures the journey service
type Options struct {
	CollaboratorTimeout time.Duration
	// TransitTimeout closes a transit window that has not reached a station in time
	TransitTimeout time.Duration
	// SessionIdleTimeout drops sessions that have not been touched for this long
	SessionIdleTimeout time.Duration
	LocationCapacity   int
	AccelCapacity      int
	MaxMotionBatch     int
	Weights            FusionWeights
	Kinematic          analysis.KinematicThresholds
	Inertial           analysis.InertialThresholds
}

// DefaultOptions returns the production settings
func DefaultOptions() Options {
	return Options{
		CollaboratorTimeout: 5 * time.Second,
		TransitTimeout:      3 * time.Hour,
		SessionIdleTimeout:  6 * time.Hour,
		LocationCapacity:    20,
		AccelCapacity:       1000,
		MaxMotionBatch:      1000,
		Weights:             DefaultFusionWeights(),
		Kinematic:           analysis.DefaultKinematicThresholds(),
		Inertial:            analysis.DefaultInertialThresholds(),
	}
}

// Service runs the per-user detection pipeline
type Service struct {
	sessions  *SessionManager
	detector  Detector
	matcher   station.ServiceMatcher
	store     Store
	publisher Publisher
	kinematic *analysis.KinematicAnalyzer
	inertial  *analysis.InertialAnalyzer
	fusion    *Fusion
	opts      Options
	now       func() time.Time
}

// NewService creates a new journey service. publisher may be nil.
func NewService(detector Detector, m station.ServiceMatcher, store Store, publisher Publisher, opts Options) *Service {
	return &Service{
		sessions:  NewSessionManager(opts.LocationCapacity, opts.AccelCapacity),
		detector:  detector,
		matcher:   m,
		store:     store,
		publisher: publisher,
		kinematic: analysis.NewKinematicAnalyzer(opts.Kinematic),
		inertial:  analysis.NewInertialAnalyzer(opts.Inertial),
		fusion:    NewFusion(opts.Weights),
		opts:      opts,
		now:       time.Now,
	}
}

// ProcessLocationUpdate ingests one sample and returns the fused journey status
func (s *Service) ProcessLocationUpdate(ctx context.Context, userID string, sample models.LocationSample) (*models.JourneyStatus, error) {
	if userID == "" {
		return nil, models.NewInputError("userId", "is required")
	}
	if err := sample.Validate(); err != nil {
		return nil, err
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now().UTC()
	}

	sess := s.sessions.Get(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastSeen = s.now()

	s.persistLocation(ctx, userID, sample)
	sess.locations.Append(sample)

	motion := s.kinematic.Analyze(sess.locations.Snapshot())
	s.expireTransit(sess, sample.Timestamp)

	det, err := s.detector.Detect(ctx, station.Request{
		UserID:             userID,
		Sample:             sample,
		CurrentStationCode: currentCode(sess),
		Previous:           sess.lastVisit,
		Motion:             motion,
		TransitMotion:      s.transitMotion(userID, sess.lastVisit, sample.Timestamp, motion),
		RequireTrainMotion: true,
	})
	if err != nil {
		log.Printf("[JourneyService] Station channel unavailable for user %s: %v", userID, err)
		det = nil
	}

	s.advance(ctx, sess, det, motion, sample.Timestamp)

	deviceMotion := s.deviceMotion(sess)
	stationEv := models.StationEvidence{Reason: "station directory unavailable"}
	if det != nil {
		stationEv = s.fusion.StationEvidence(sess.currentStation, sess.service)
	}
	confidence, isTrain := s.fusion.Fuse(stationEv, motion, deviceMotion)

	status := &models.JourneyStatus{
		UserID:         userID,
		Timestamp:      sample.Timestamp,
		Location:       sample,
		State:          sess.state,
		IsAtStation:    stationEv.IsAtStation,
		StationInfo:    stationInfo(stationEv, sess.currentStation),
		IsTrainJourney: isTrain,
		Confidence:     confidence,
		AverageSpeed:   motion.AverageSpeedKmh,
		ServiceInfo:    sess.service,
		Reason:         Reason(stationEv, motion, deviceMotion),
		Analysis: models.JourneyAnalysis{
			Station:      stationEv,
			Motion:       motion,
			DeviceMotion: deviceMotion,
		},
	}
	sess.lastStatus = status

	s.publish(ctx, status)
	return status, nil
}

// transitMotion scores the stored track from origin up to until. The rolling
// buffer stands in when the track cannot be loaded.
func (s *Service) transitMotion(userID string, origin *models.StationVisit, until time.Time, buffered models.MotionEvidence) func(context.Context) models.MotionEvidence {
	if origin == nil {
		return nil
	}
	return func(ctx context.Context) models.MotionEvidence {
		callCtx, cancel := s.withTimeout(ctx)
		defer cancel()

		track, err := s.store.GetUserLocationsBetween(callCtx, userID, origin.Timestamp, until)
		if err != nil {
			log.Printf("[JourneyService] Transit track unavailable for user %s, using recent samples: %v", userID, err)
			return buffered
		}
		return s.kinematic.Analyze(track)
	}
}

// advance applies a detection to the session's state machine. A nil detection
// means the station channel was unavailable and leaves station state untouched.
func (s *Service) advance(ctx context.Context, sess *Session, det *station.Detection, motion models.MotionEvidence, at time.Time) {
	if det == nil {
		if sess.currentStation == nil && motion.IsTrainLike {
			sess.state = models.StateInTransit
		}
		return
	}

	if det.AtStation {
		if det.Visit != nil {
			sess.service = nil
			if det.Service != nil && det.Service.Matched {
				sess.service = det.Service.Best
				s.recordUsage(ctx, sess.userID, det.Service.Best, sess.lastVisit, det.Visit)
			}
			sess.lastVisit = det.Visit
		}
		sess.currentStation = &models.StationInfo{
			Code:       det.Station.Code,
			Name:       det.Station.Name,
			DistanceKm: det.DistanceKm,
			VisitID:    visitID(sess.lastVisit, det.Station.Code),
		}
		sess.state = models.StateAtStation
		sess.departedAt = time.Time{}
		return
	}

	if sess.currentStation != nil {
		sess.departedAt = at
	}
	sess.currentStation = nil
	sess.service = nil

	switch {
	case motion.IsTrainLike:
		sess.state = models.StateInTransit
	case sess.state == models.StateInTransit:
		// A train slowing between stations keeps the window open until it expires
	default:
		sess.state = models.StateIdle
	}
}

// expireTransit drops the origin anchor once the user has been away from a station too long
func (s *Service) expireTransit(sess *Session, now time.Time) {
	if s.opts.TransitTimeout <= 0 || sess.lastVisit == nil || sess.departedAt.IsZero() {
		return
	}
	if now.Sub(sess.departedAt) <= s.opts.TransitTimeout {
		return
	}

	log.Printf("[JourneyService] Transit window from %s expired for user %s", sess.lastVisit.StationCode, sess.userID)
	sess.lastVisit = nil
	sess.departedAt = time.Time{}
	if sess.state == models.StateInTransit {
		sess.state = models.StateIdle
	}
}

func (s *Service) deviceMotion(sess *Session) models.InertialEvidence {
	if !sess.collecting {
		return models.InertialEvidence{Reason: "device motion collection inactive"}
	}
	return s.inertial.Analyze(sess.accel.Snapshot())
}

// StartMotionCollection opens a fresh accelerometer window for the user
func (s *Service) StartMotionCollection(userID string) {
	sess := s.sessions.Get(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.lastSeen = s.now()
	sess.accel.Reset()
	sess.collecting = true
	log.Printf("[JourneyService] Motion collection started for user %s", userID)
}

// StopMotionCollection closes the accelerometer window and drops its samples
func (s *Service) StopMotionCollection(userID string) {
	sess, ok := s.sessions.Peek(userID)
	if !ok {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.collecting = false
	sess.accel.Reset()
	log.Printf("[JourneyService] Motion collection stopped for user %s", userID)
}

// AddMotionSamples appends accelerometer readings to an active collection window
func (s *Service) AddMotionSamples(userID string, samples []models.AccelSample) (int, error) {
	if len(samples) == 0 {
		return 0, models.NewInputError("samples", "must not be empty")
	}
	if s.opts.MaxMotionBatch > 0 && len(samples) > s.opts.MaxMotionBatch {
		return 0, models.NewInputError("samples", fmt.Sprintf("at most %d per request", s.opts.MaxMotionBatch))
	}
	for i, sample := range samples {
		if err := sample.Validate(); err != nil {
			return 0, fmt.Errorf("sample %d: %w", i, err)
		}
	}

	sess, ok := s.sessions.Peek(userID)
	if !ok {
		return 0, ErrCollectionInactive
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !sess.collecting {
		return 0, ErrCollectionInactive
	}
	sess.lastSeen = s.now()
	for _, sample := range samples {
		sess.accel.Append(sample)
	}
	return sess.accel.Len(), nil
}

// GetCurrentJourney returns the last status computed for the user
func (s *Service) GetCurrentJourney(userID string) (*models.JourneyStatus, bool) {
	sess, ok := s.sessions.Peek(userID)
	if !ok {
		return nil, false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.lastStatus == nil {
		return nil, false
	}
	status := *sess.lastStatus
	return &status, true
}

// EndSession drops the user's buffers and journey state
func (s *Service) EndSession(userID string) bool {
	ended := s.sessions.End(userID)
	if ended {
		log.Printf("[JourneyService] Session ended for user %s", userID)
	}
	return ended
}

// ExpireIdleSessions ends every session untouched for longer than SessionIdleTimeout
func (s *Service) ExpireIdleSessions() int {
	if s.opts.SessionIdleTimeout <= 0 {
		return 0
	}
	n := s.sessions.ExpireIdle(s.now().Add(-s.opts.SessionIdleTimeout))
	if n > 0 {
		log.Printf("[JourneyService] Expired %d idle sessions", n)
	}
	return n
}

// RunSessionSweeper expires idle sessions every interval until ctx is done
func (s *Service) RunSessionSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.opts.SessionIdleTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ExpireIdleSessions()
		}
	}
}

// MatchJourney identifies the service taken between two of the user's stored visits
func (s *Service) MatchJourney(ctx context.Context, userID, originID, destinationID string) (*models.MatchResult, error) {
	if originID == "" || destinationID == "" {
		return nil, models.NewInputError("visitId", "origin and destination visit ids are required")
	}

	origin, err := s.loadVisit(ctx, userID, originID)
	if err != nil {
		return nil, err
	}
	destination, err := s.loadVisit(ctx, userID, destinationID)
	if err != nil {
		return nil, err
	}
	if !destination.Timestamp.After(origin.Timestamp) {
		return nil, models.NewInputError("destinationVisitId", "must be later than the origin visit")
	}

	callCtx, cancel := s.withTimeout(ctx)
	intermediates, err := s.store.GetVisitsBetween(callCtx, userID, origin.Timestamp, destination.Timestamp)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to load intermediate visits: %w", err)
	}

	callCtx, cancel = s.withTimeout(ctx)
	track, err := s.store.GetUserLocationsBetween(callCtx, userID, origin.Timestamp, destination.Timestamp)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to load locations: %w", err)
	}

	result := s.matcher.Match(ctx, matcher.Request{
		Origin:             *origin,
		Destination:        *destination,
		Intermediates:      intermediates,
		Motion:             s.kinematic.Analyze(track),
		RequireTrainMotion: true,
	})
	if result.Matched {
		s.recordUsage(ctx, userID, result.Best, origin, destination)
	}
	return &result, nil
}

// GetUserStationVisits returns the user's recent visits, newest first
func (s *Service) GetUserStationVisits(ctx context.Context, userID string, limit int) ([]models.StationVisit, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.GetUserStationVisits(ctx, userID, limit)
}

// GetUserServiceHistory returns the services the user was identified travelling on
func (s *Service) GetUserServiceHistory(ctx context.Context, userID string, filter models.ServiceHistoryFilter) ([]models.ServiceUsage, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.store.GetUserServiceHistory(ctx, userID, filter)
}

func (s *Service) loadVisit(ctx context.Context, userID, id string) (*models.StationVisit, error) {
	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.GetVisit(callCtx, userID, id)
}

func (s *Service) persistLocation(ctx context.Context, userID string, sample models.LocationSample) {
	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.store.SaveUserLocation(callCtx, userID, sample); err != nil {
		log.Printf("[JourneyService] Failed to save location for user %s: %v", userID, err)
	}
}

func (s *Service) recordUsage(ctx context.Context, userID string, best *models.ServiceCandidate, origin, destination *models.StationVisit) {
	if best == nil {
		return
	}
	usage := &models.ServiceUsage{
		ID:              uuid.NewString(),
		UserID:          userID,
		ServiceID:       best.ServiceID,
		Operator:        best.Operator,
		OriginCode:      best.OriginCode,
		DestinationCode: best.DestinationCode,
		DepartureTime:   best.DepartureTime,
		ArrivalTime:     best.ArrivalTime,
		Confidence:      best.Confidence,
		RecordedAt:      time.Now().UTC(),
	}
	if origin != nil {
		usage.OriginVisitID = origin.ID
	}
	if destination != nil {
		usage.DestinationVisitID = destination.ID
	}

	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.store.RecordServiceUsage(callCtx, usage); err != nil {
		log.Printf("[JourneyService] Failed to record service %s for user %s: %v", best.ServiceID, userID, err)
	}
}

func (s *Service) publish(ctx context.Context, status *models.JourneyStatus) {
	if s.publisher == nil {
		return
	}
	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.publisher.UpdateLastPosition(callCtx, status.UserID, status.Location.Latitude, status.Location.Longitude, status.Timestamp); err != nil {
		log.Printf("[JourneyService] Failed to update last position for user %s: %v", status.UserID, err)
	}
	if err := s.publisher.PublishStatus(callCtx, status.UserID, status); err != nil {
		log.Printf("[JourneyService] Failed to publish status for user %s: %v", status.UserID, err)
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.CollaboratorTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.CollaboratorTimeout)
}

func currentCode(sess *Session) string {
	if sess.currentStation == nil {
		return ""
	}
	return sess.currentStation.Code
}

func visitID(v *models.StationVisit, code string) string {
	if v == nil || v.StationCode != code {
		return ""
	}
	return v.ID
}

func stationInfo(ev models.StationEvidence, info *models.StationInfo) *models.StationInfo {
	if !ev.IsAtStation || info == nil {
		return nil
	}
	c := *info
	return &c
}
