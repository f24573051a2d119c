package playback

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/osa030/soundbridge/internal/app/audio"
	"github.com/osa030/soundbridge/internal/domain/bridge"
	"github.com/osa030/soundbridge/internal/infra/metrics"
)

// TransitionRequest names the buffers of a transition by key.
type TransitionRequest struct {
	NextKey    string
	BridgeKeys []string
	Config     *bridge.Config // nil uses the controller default
}

// pendingTransition is the state of a scheduled transition until its commit.
type pendingTransition struct {
	timeline Timeline
	from     *Node
	next     *Node
	bridges  []*Node
	record   bridge.TransitionRecord
	cancel   func() bool
}

func (p *pendingTransition) nodes() []*Node {
	return append([]*Node{p.next}, p.bridges...)
}

// Transition initializes the engine if needed, loads the buffers of req in
// parallel and performs the transition. Load failures leave playback as it was.
func (c *Controller) Transition(ctx context.Context, req TransitionRequest) error {
	if err := c.Initialize(ctx); err != nil {
		return err
	}

	cfg := c.config.Bridge
	if req.Config != nil {
		cfg = *req.Config
	}

	var next *audio.Buffer
	bridges := make([]*audio.Buffer, len(req.BridgeKeys))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		buf, err := c.cache.Resolve(gctx, req.NextKey)
		next = buf
		return err
	})
	for i, key := range req.BridgeKeys {
		g.Go(func() error {
			buf, err := c.cache.Resolve(gctx, key)
			bridges[i] = buf
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return c.PerformTransition(next, bridges, cfg)
}

// PerformTransition schedules a bridge transition from the current track to
// next through bridges, all relative to one sampled context time. It does not
// block; the swap to next happens at the timeline's cleanup time.
func (c *Controller) PerformTransition(next *audio.Buffer, bridges []*audio.Buffer, cfg bridge.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkInitializedLocked(); err != nil {
		return err
	}
	if c.pending != nil {
		c.metrics.Transitions.WithLabelValues(metrics.ResultRejected).Inc()
		return audio.ErrTransitionInProgress
	}
	if c.current == nil {
		c.metrics.Transitions.WithLabelValues(metrics.ResultRejected).Inc()
		return audio.ErrNoActiveTrack
	}
	if err := validateTransition(next, bridges, cfg); err != nil {
		c.metrics.Transitions.WithLabelValues(metrics.ResultRejected).Inc()
		return audio.PlaybackError(errors.Wrap(err, "invalid transition"))
	}
	if c.state != StatePlaying {
		c.metrics.Transitions.WithLabelValues(metrics.ResultRejected).Inc()
		return audio.ErrNotPlaying
	}

	nextNode, err := NewNode(c.actx, next)
	if err != nil {
		return audio.PlaybackError(err)
	}
	bridgeNodes := make([]*Node, len(bridges))
	for i, b := range bridges {
		if bridgeNodes[i], err = NewNode(c.actx, b); err != nil {
			return audio.PlaybackError(err)
		}
	}

	t0 := c.actx.CurrentTime()
	tl := NewTimeline(t0, cfg)

	if err := scheduleTransition(tl, cfg, c.current, bridgeNodes, nextNode); err != nil {
		now := c.actx.CurrentTime()
		stopNode(c.log, nextNode, now)
		for _, n := range bridgeNodes {
			stopNode(c.log, n, now)
		}
		return audio.PlaybackError(err)
	}

	// The outgoing track no longer ends on its own terms.
	c.cancelTrackEndLocked()

	keys := make([]string, len(bridgeNodes))
	for i, n := range bridgeNodes {
		keys[i] = n.Key()
	}
	p := &pendingTransition{
		timeline: tl,
		from:     c.current,
		next:     nextNode,
		bridges:  bridgeNodes,
		record: bridge.TransitionRecord{
			ID:           uuid.NewString(),
			FromTrack:    c.current.Key(),
			ToTrack:      nextNode.Key(),
			BridgeSounds: keys,
			Config:       cfg,
		},
	}
	p.cancel = c.actx.AfterFunc(tl.Cleanup, func() {
		c.commit(p)
	})
	c.pending = p

	c.log.Debug().Msgf("transition %s scheduled: %q -> %v -> %q, t0=%s bridge=[%s,%s] next=[%s,%s] commit=%s",
		p.record.ID, p.record.FromTrack, keys, p.record.ToTrack,
		tl.T0, tl.BridgeStart, tl.BridgeEnd, tl.NextStart, tl.NextPeak, tl.Cleanup)

	c.sendEventLocked(Event{Type: EventTransitionStarted, Transition: &p.record})
	c.setStateLocked(StateTransitioning)
	return nil
}

// commit swaps the current track for the incoming one once the timeline has
// elapsed. It runs at most once per transition.
func (c *Controller) commit(p *pendingTransition) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != p {
		return
	}

	now := c.actx.CurrentTime()
	stopNode(c.log, p.from, now)
	for _, n := range p.bridges {
		stopNode(c.log, n, now)
	}

	c.pending = nil
	c.current = p.next
	c.armTrackEndLocked()

	p.record.Timestamp = time.Now()
	record := p.record

	c.metrics.Transitions.WithLabelValues(metrics.ResultCompleted).Inc()
	c.log.Info().Msgf("transition %s complete: now playing %q", record.ID, record.ToTrack)

	c.sendEventLocked(Event{Type: EventTransitionCompleted, Transition: &record})
	if cb := c.callbacks.OnTransitionComplete; cb != nil {
		c.notifier.post(func() { cb(record) })
	}

	if c.state == StatePaused {
		c.resumeTo = StatePlaying
		return
	}
	c.setStateLocked(StatePlaying)
}

func validateTransition(next *audio.Buffer, bridges []*audio.Buffer, cfg bridge.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if next == nil {
		return errors.New("next buffer is required")
	}
	if len(bridges) != cfg.BridgeSoundCount {
		return errors.Newf("expected %d bridge sounds, got %d", cfg.BridgeSoundCount, len(bridges))
	}
	for i, b := range bridges {
		if b == nil {
			return errors.Newf("bridge buffer %d is nil", i)
		}
	}
	if cfg.CrossfadeOffset >= next.Duration() {
		return errors.Newf("crossfade offset %s is beyond the next track (%s)", cfg.CrossfadeOffset, next.Duration())
	}
	return nil
}

// scheduleTransition applies tl to the three legs. Every ramp is linear.
func scheduleTransition(tl Timeline, cfg bridge.Config, current *Node, bridges []*Node, next *Node) error {
	// Outgoing: present value down to silence.
	g := current.Gain
	v := g.ValueAt(tl.T0)
	g.CancelScheduledValues(tl.T0)
	g.SetValueAtTime(v, tl.T0)
	g.LinearRampToValueAtTime(0, tl.CurrentFadeEnd)

	// Bridge: layered sounds share the envelope and split the peak.
	peak := 1 / float64(len(bridges))
	for _, b := range bridges {
		b.Gain.SetValueAtTime(0, tl.T0)
		b.Gain.SetValueAtTime(0, tl.BridgeStart)
		b.Gain.LinearRampToValueAtTime(peak, tl.BridgePeak)
		b.Gain.SetValueAtTime(peak, tl.BridgeFadeStart)
		b.Gain.LinearRampToValueAtTime(0, tl.BridgeEnd)
		if err := b.Start(tl.BridgeStart, 0); err != nil {
			return err
		}
	}

	// Incoming: silent until its start, then up to full.
	next.Gain.SetValueAtTime(0, tl.T0)
	next.Gain.SetValueAtTime(0, tl.NextStart)
	next.Gain.LinearRampToValueAtTime(1, tl.NextPeak)
	return next.Start(tl.NextStart, cfg.CrossfadeOffset)
}
