// Package session records listening sessions: the transitions a listener
// heard and the reviews they gave.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/osa030/soundbridge/internal/app/notification"
	"github.com/osa030/soundbridge/internal/app/playback"
	"github.com/osa030/soundbridge/internal/app/session/state"
	"github.com/osa030/soundbridge/internal/domain/bridge"
	"github.com/osa030/soundbridge/internal/infra/logger"
	"github.com/osa030/soundbridge/internal/infra/metrics"
)

var (
	ErrNoActiveSession = errors.New("no active session")
	ErrNoTransition    = errors.New("no transition to review")
)

// Config holds recorder configuration.
type Config struct {
	RetryAttempts int           // Attempts per save, at least 1
	RetryDelay    time.Duration // Wait between attempts
}

// Manager records one session at a time and persists every change to a Store.
// It is a notification.Stream, so it can subscribe to playback events.
type Manager struct {
	mu sync.Mutex

	store    Store
	config   Config
	state    *state.Manager
	metrics  *metrics.Metrics
	validate *validator.Validate
	log      zerolog.Logger
	now      func() time.Time
}

// NewManager creates a session recorder writing to store.
func NewManager(store Store, cfg Config, m *metrics.Metrics) *Manager {
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Manager{
		store:    store,
		config:   cfg,
		state:    state.New(),
		metrics:  m,
		validate: validator.New(),
		log:      logger.Component("session"),
		now:      time.Now,
	}
}

// Start begins a new session and returns its ID. If a session is already
// active its ID is returned and nothing is written.
func (m *Manager) Start(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.IsActive() {
		id := m.state.GetSessionID()
		m.log.Warn().Msgf("session %s already active", id)
		return id, nil
	}

	id := uuid.NewString()
	start := m.now()
	rec := Record{Kind: KindSessionStart, SessionID: id, At: start}
	if err := m.save(ctx, rec); err != nil {
		return "", errors.Wrap(err, "failed to start session")
	}

	m.state.Begin(id, start)
	m.log.Info().Msgf("session %s started", id)
	return id, nil
}

// RecordTransition adds a completed transition to the active session.
func (m *Manager) RecordTransition(ctx context.Context, r bridge.TransitionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.IsActive() {
		return ErrNoActiveSession
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = m.now()
	}

	rec := Record{Kind: KindTransition, SessionID: m.state.GetSessionID(), At: r.Timestamp, Data: r}
	if err := m.save(ctx, rec); err != nil {
		return errors.Wrap(err, "failed to log transition")
	}

	m.state.AddTransition(r)
	m.log.Debug().Msgf("recorded transition %s: %q -> %q", r.ID, r.FromTrack, r.ToTrack)
	return nil
}

// SaveReview attaches a review to the latest transition.
func (m *Manager) SaveReview(ctx context.Context, ratings state.Ratings, feedback state.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.IsActive() {
		return ErrNoActiveSession
	}
	last, ok := m.state.LastTransition()
	if !ok {
		return ErrNoTransition
	}
	if err := m.validate.Struct(ratings); err != nil {
		return errors.Wrap(err, "invalid ratings")
	}

	review := state.Review{
		TransitionID: last.ID,
		Ratings:      ratings,
		Feedback:     feedback,
		Timestamp:    m.now(),
	}
	rec := Record{Kind: KindReview, SessionID: m.state.GetSessionID(), At: review.Timestamp, Data: review}
	if err := m.save(ctx, rec); err != nil {
		return errors.Wrap(err, "failed to save review")
	}

	m.state.AddReview(review)
	return nil
}

// End closes the active session and writes the full session as its last record.
func (m *Manager) End(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.IsActive() {
		return ErrNoActiveSession
	}

	end := m.now()
	snapshot := m.state.Snapshot()
	snapshot.EndTime = &end

	rec := Record{Kind: KindSessionEnd, SessionID: snapshot.ID, At: end, Data: snapshot}
	if err := m.save(ctx, rec); err != nil {
		return errors.Wrap(err, "failed to end session")
	}

	m.state.Finish(end)
	transitions, reviews := m.state.Counts()
	m.log.Info().Msgf("session %s ended: transitions=%d reviews=%d", snapshot.ID, transitions, reviews)
	return nil
}

// Send records completed transitions from playback notifications.
func (m *Manager) Send(n notification.Notification) error {
	e := n.Event
	if e.Type != playback.EventTransitionCompleted || e.Transition == nil {
		return nil
	}
	if !m.IsActive() {
		return nil
	}
	return m.RecordTransition(context.Background(), *e.Transition)
}

// IsActive reports whether a session is recording.
func (m *Manager) IsActive() bool {
	return m.state.IsActive()
}

// Counts returns the number of transitions and reviews in the current session.
func (m *Manager) Counts() (transitions, reviews int) {
	return m.state.Counts()
}

// Session returns a copy of the active or most recently ended session.
func (m *Manager) Session() (state.Session, bool) {
	if m.state.GetPhase() == state.PhaseIdle {
		return state.Session{}, false
	}
	return m.state.Snapshot(), true
}

// Export returns the active session as JSON.
func (m *Manager) Export() ([]byte, error) {
	if !m.state.IsActive() {
		return nil, ErrNoActiveSession
	}
	out := struct {
		state.Session
		ExportedAt time.Time `json:"exported_at"`
	}{
		Session:    m.state.Snapshot(),
		ExportedAt: m.now(),
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode session")
	}
	return data, nil
}

// save appends rec, retrying failed writes.
func (m *Manager) save(ctx context.Context, rec Record) error {
	var lastErr error
	for i := 0; i < m.config.RetryAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				m.metrics.SessionSaveFails.Inc()
				return ctx.Err()
			case <-time.After(m.config.RetryDelay):
			}
		}

		lastErr = m.store.Append(ctx, rec)
		if lastErr == nil {
			return nil
		}
		m.log.Warn().Msgf("save %s attempt %d/%d failed: %v", rec.Kind, i+1, m.config.RetryAttempts, lastErr)
	}

	m.metrics.SessionSaveFails.Inc()
	return errors.Wrapf(lastErr, "max retries exceeded (%d)", m.config.RetryAttempts)
}
