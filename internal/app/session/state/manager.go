package state

import (
	"sync"
	"time"

	"github.com/osa030/soundbridge/internal/domain/bridge"
)

// Manager manages session state with thread-safe access.
type Manager struct {
	mu sync.RWMutex

	// Session identity
	sessionID string

	// Session lifecycle
	phase     Phase
	startTime time.Time
	endTime   *time.Time

	// Recorded data
	transitions []bridge.TransitionRecord
	reviews     []Review
}

// New creates an idle state manager.
func New() *Manager {
	return &Manager{phase: PhaseIdle}
}

// Begin resets the state for a new session.
func (m *Manager) Begin(sessionID string, start time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionID = sessionID
	m.phase = PhaseActive
	m.startTime = start
	m.endTime = nil
	m.transitions = nil
	m.reviews = nil
}

// Finish marks the session ended at end.
func (m *Manager) Finish(end time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phase = PhaseEnded
	m.endTime = &end
}

// GetPhase returns the current session phase.
func (m *Manager) GetPhase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

// IsActive returns true while a session is recording.
func (m *Manager) IsActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase == PhaseActive
}

// GetSessionID returns the session ID.
func (m *Manager) GetSessionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionID
}

// AddTransition appends a transition record.
func (m *Manager) AddTransition(r bridge.TransitionRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, r)
}

// LastTransition returns the most recent transition record.
func (m *Manager) LastTransition() (bridge.TransitionRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.transitions) == 0 {
		return bridge.TransitionRecord{}, false
	}
	return m.transitions[len(m.transitions)-1], true
}

// AddReview appends a review.
func (m *Manager) AddReview(r Review) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews = append(m.reviews, r)
}

// Counts returns the number of recorded transitions and reviews.
func (m *Manager) Counts() (transitions, reviews int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.transitions), len(m.reviews)
}

// Snapshot returns a copy of the session.
func (m *Manager) Snapshot() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Session{
		ID:          m.sessionID,
		StartTime:   m.startTime,
		Transitions: append([]bridge.TransitionRecord{}, m.transitions...),
		Reviews:     append([]Review{}, m.reviews...),
	}
	if m.endTime != nil {
		end := *m.endTime
		s.EndTime = &end
	}
	return s
}
