package playback

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/osa030/soundbridge/internal/app/audio"
	"github.com/osa030/soundbridge/internal/domain/bridge"
	"github.com/osa030/soundbridge/internal/infra/logger"
	"github.com/osa030/soundbridge/internal/infra/metrics"
)

// Cache resolves keys to decoded buffers.
type Cache interface {
	Resolve(ctx context.Context, key string) (*audio.Buffer, error)
	Clear()
}

// Config holds controller configuration.
type Config struct {
	Bridge      bridge.Config // Defaults for Transition requests
	EventBuffer int           // Size of the event channel buffer
}

// Callbacks are fire-and-forget UI hooks. They run in order on a notifier
// goroutine and are never awaited by the engine.
type Callbacks struct {
	OnPlayStateChange    func(isPlaying bool)
	OnTrackEnd           func()
	OnTransitionComplete func(record bridge.TransitionRecord)
}

// Controller owns one audio context and moves playback through its states.
type Controller struct {
	mu sync.RWMutex

	actx      audio.Context
	cache     Cache
	config    Config
	callbacks Callbacks
	metrics   *metrics.Metrics
	log       zerolog.Logger

	// Lifecycle
	state    State
	resumeTo State         // State restored by Resume
	initDone chan struct{} // Closed when an in-flight Initialize finishes

	// Current track
	current        *Node
	trackEndCancel func() bool

	// In-flight transition
	pending *pendingTransition

	// Events
	eventCh      chan Event
	eventsClosed bool
	notifier     *notifier
}

// NewController creates a controller bound to actx. The context is resumed
// by Initialize and closed by Dispose.
func NewController(actx audio.Context, cache Cache, config Config, callbacks Callbacks, m *metrics.Metrics) *Controller {
	if config.EventBuffer <= 0 {
		config.EventBuffer = 64
	}
	if m == nil {
		m = metrics.NewNop()
	}
	log := logger.Component("playback")
	c := &Controller{
		actx:      actx,
		cache:     cache,
		config:    config,
		callbacks: callbacks,
		metrics:   m,
		log:       log,
		state:     StateIdle,
		eventCh:   make(chan Event, config.EventBuffer),
		notifier:  newNotifier(log),
	}
	c.metrics.SetState(c.state.String(), allStates)
	return c
}

// Events returns the event channel. It is closed by Dispose.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Initialize resumes the audio context. Calling it again after success is a
// no-op; concurrent calls wait for the first.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()

	switch c.state {
	case StateDisposed:
		c.mu.Unlock()
		return audio.ErrNotInitialized

	case StateInitializing:
		done := c.initDone
		c.mu.Unlock()
		select {
		case <-done:
			return c.Initialize(ctx)
		case <-ctx.Done():
			return errors.Mark(errors.Wrap(ctx.Err(), "initialization interrupted"), audio.ErrInitialization)
		}

	case StateIdle:
		// Resume outside the lock.

	default:
		c.mu.Unlock()
		return nil
	}

	done := make(chan struct{})
	c.initDone = done
	c.setStateLocked(StateInitializing)
	c.mu.Unlock()

	err := c.actx.Resume(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer close(done)

	if c.state != StateInitializing {
		// Disposed while resuming.
		return audio.ErrNotInitialized
	}
	if err != nil {
		c.setStateLocked(StateIdle)
		return errors.Mark(errors.Wrap(err, "failed to resume audio context"), audio.ErrInitialization)
	}

	c.setStateLocked(StateReady)
	c.log.Info().Msgf("engine initialized at %s", c.actx.CurrentTime())
	return nil
}

// Play stops any current track and starts buf from the beginning. While
// paused the new track is scheduled but stays silent until Resume.
func (c *Controller) Play(buf *audio.Buffer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkInitializedLocked(); err != nil {
		return err
	}
	if c.pending != nil {
		return audio.ErrTransitionInProgress
	}

	node, err := NewNode(c.actx, buf)
	if err != nil {
		return audio.PlaybackError(err)
	}

	now := c.actx.CurrentTime()
	c.stopCurrentLocked(now)

	if err := node.Start(now, 0); err != nil {
		return audio.PlaybackError(err)
	}
	c.current = node
	c.armTrackEndLocked()

	c.log.Debug().Msgf("playing %q at %s (%s)", node.Key(), now, buf.Duration())
	c.sendEventLocked(Event{Type: EventTrackStarted})

	if c.state != StatePaused {
		c.setStateLocked(StatePlaying)
	}
	return nil
}

// PlayKey initializes the engine if needed, loads key and plays it.
func (c *Controller) PlayKey(ctx context.Context, key string) error {
	if err := c.Initialize(ctx); err != nil {
		return err
	}
	buf, err := c.cache.Resolve(ctx, key)
	if err != nil {
		return err
	}
	return c.Play(buf)
}

// Pause suspends the audio clock. Scheduled ramps and a pending commit wait
// with it.
func (c *Controller) Pause(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkInitializedLocked(); err != nil {
		return err
	}
	if !c.state.IsPlaying() {
		return audio.ErrNotPlaying
	}

	if err := c.actx.Suspend(ctx); err != nil {
		return audio.PlaybackError(errors.Wrap(err, "failed to suspend audio context"))
	}
	c.resumeTo = c.state
	c.setStateLocked(StatePaused)
	return nil
}

// Resume restarts the audio clock and returns to the state held before Pause.
func (c *Controller) Resume(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkInitializedLocked(); err != nil {
		return err
	}
	if c.state != StatePaused {
		return audio.ErrNotPaused
	}

	if err := c.actx.Resume(ctx); err != nil {
		return audio.PlaybackError(errors.Wrap(err, "failed to resume audio context"))
	}

	next := c.resumeTo
	if next == StateTransitioning && c.pending == nil {
		next = StatePlaying
	}
	if next == StatePlaying && c.current == nil {
		next = StateReady
	}
	c.setStateLocked(next)
	return nil
}

// Dispose stops every node, cancels a pending commit, clears the cache and
// closes the audio context. It is idempotent.
func (c *Controller) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateDisposed {
		return
	}

	now := c.actx.CurrentTime()
	if p := c.pending; p != nil {
		p.cancel()
		for _, n := range p.nodes() {
			stopNode(c.log, n, now)
		}
		c.pending = nil
		c.metrics.Transitions.WithLabelValues(metrics.ResultCancelled).Inc()
		c.sendEventLocked(Event{Type: EventTransitionCancelled, Transition: &p.record})
		c.log.Debug().Msgf("cancelled transition %s", p.record.ID)
	}
	c.stopCurrentLocked(now)

	c.cache.Clear()
	if err := c.actx.Close(); err != nil {
		c.log.Debug().Msgf("ignoring close error: %v", err)
	}

	c.setStateLocked(StateDisposed)
	c.eventsClosed = true
	close(c.eventCh)
	c.notifier.close()
	c.log.Info().Msg("engine disposed")
}

// State returns the current playback state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// CurrentKey returns the key of the current buffer.
func (c *Controller) CurrentKey() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return "", false
	}
	return c.current.Key(), true
}

// Position returns the time elapsed since the current track started, or 0
// when nothing plays or the clock is not running.
func (c *Controller) Position() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current == nil || c.actx.State() != audio.ContextRunning {
		return 0
	}
	return max(c.actx.CurrentTime()-c.current.StartedAt(), 0)
}

// Timeline returns the timeline of the pending transition.
func (c *Controller) Timeline() (Timeline, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.pending == nil {
		return Timeline{}, false
	}
	return c.pending.timeline, true
}

func (c *Controller) checkInitializedLocked() error {
	switch c.state {
	case StateIdle, StateInitializing, StateDisposed:
		return audio.ErrNotInitialized
	}
	return nil
}

// stopCurrentLocked stops and forgets the current node.
func (c *Controller) stopCurrentLocked(at time.Duration) {
	c.cancelTrackEndLocked()
	if c.current != nil {
		stopNode(c.log, c.current, at)
		c.current = nil
	}
}

func (c *Controller) armTrackEndLocked() {
	c.cancelTrackEndLocked()
	node := c.current
	c.trackEndCancel = c.actx.AfterFunc(node.EndsAt(), func() {
		c.onTrackEnd(node.ID)
	})
}

func (c *Controller) cancelTrackEndLocked() {
	if c.trackEndCancel != nil {
		c.trackEndCancel()
		c.trackEndCancel = nil
	}
}

// onTrackEnd is called when the current track's buffer runs out.
func (c *Controller) onTrackEnd(nodeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.current.ID != nodeID || c.pending != nil {
		return
	}

	ended := c.current
	c.trackEndCancel = nil
	c.log.Debug().Msgf("track %q ended at %s", ended.Key(), c.actx.CurrentTime())

	c.sendEventLocked(Event{Type: EventTrackEnded})
	c.current = nil
	c.notifier.post(c.callbacks.OnTrackEnd)

	switch c.state {
	case StatePlaying:
		c.setStateLocked(StateReady)
	case StatePaused:
		c.resumeTo = StateReady
	}
}

// setStateLocked changes state and reports it.
func (c *Controller) setStateLocked(s State) {
	prev := c.state
	if prev == s {
		return
	}
	c.state = s
	c.metrics.SetState(s.String(), allStates)
	c.log.Debug().Msgf("state %s -> %s", prev, s)

	c.sendEventLocked(Event{Type: EventStateChanged})

	if cb := c.callbacks.OnPlayStateChange; cb != nil && prev.IsPlaying() != s.IsPlaying() {
		playing := s.IsPlaying()
		c.notifier.post(func() { cb(playing) })
	}
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(e Event) {
	if c.eventsClosed {
		return
	}
	e.State = c.state
	e.At = c.actx.CurrentTime()
	if c.current != nil && e.Key == "" {
		e.Key = c.current.Key()
	}

	select {
	case c.eventCh <- e:
	default:
		c.log.Warn().Msgf("event channel full, dropping %s", e.Type)
	}
}
