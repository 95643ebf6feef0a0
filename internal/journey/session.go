package journey

import (
	"sync"
	"time"

	"github.com/James-Fry-2/train-data-api/internal/buffer"
	"github.com/James-Fry-2/train-data-api/internal/models"
)

// Session is one user's in-process journey state. All fields are guarded by mu.
type Session struct {
	mu     sync.Mutex
	userID string

	locations  *buffer.Ring[models.LocationSample]
	accel      *buffer.Ring[models.AccelSample]
	collecting bool

	state          models.JourneyState
	currentStation *models.StationInfo
	// lastVisit anchors the transit window: the origin for the next service identification
	lastVisit *models.StationVisit
	// departedAt is when the user last left a station; zero while at one
	departedAt time.Time
	service    *models.ServiceCandidate
	lastStatus *models.JourneyStatus
	// lastSeen is the wall-clock time of the latest call touching the session
	lastSeen time.Time
}

func newSession(userID string, locationCap, accelCap int) *Session {
	return &Session{
		userID:    userID,
		locations: buffer.NewRing[models.LocationSample](locationCap),
		accel:     buffer.NewRing[models.AccelSample](accelCap),
		state:     models.StateIdle,
	}
}

// State returns the session's current journey state
func (s *Session) State() models.JourneyState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SessionManager is the arena of live sessions indexed by user id
type SessionManager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	locationCap int
	accelCap    int
}

// NewSessionManager creates an empty session arena
func NewSessionManager(locationCap, accelCap int) *SessionManager {
	return &SessionManager{
		sessions:    make(map[string]*Session),
		locationCap: locationCap,
		accelCap:    accelCap,
	}
}

// Get returns the user's session, creating it on first use
func (m *SessionManager) Get(userID string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[userID]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		return s
	}
	s = newSession(userID, m.locationCap, m.accelCap)
	m.sessions[userID] = s
	return s
}

// Peek returns the user's session without creating one
func (m *SessionManager) Peek(userID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	return s, ok
}

// End drops the user's session and its buffers. Reports whether one existed.
func (m *SessionManager) End(userID string) bool {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if ok {
		s.mu.Lock()
		s.locations.Reset()
		s.accel.Reset()
		s.collecting = false
		s.mu.Unlock()
	}
	return ok
}

// ExpireIdle ends every session last seen before cutoff and returns how many were dropped
func (m *SessionManager) ExpireIdle(cutoff time.Time) int {
	m.mu.Lock()
	var idle []*Session
	for userID, s := range m.sessions {
		s.mu.Lock()
		if s.lastSeen.Before(cutoff) {
			delete(m.sessions, userID)
			idle = append(idle, s)
		}
		s.mu.Unlock()
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.mu.Lock()
		s.locations.Reset()
		s.accel.Reset()
		s.collecting = false
		s.mu.Unlock()
	}
	return len(idle)
}

// Len returns the number of live sessions
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
