package playback

import (
	"time"

	"github.com/osa030/soundbridge/internal/domain/bridge"
)

// Timeline holds the context times of one transition, all derived from T0.
type Timeline struct {
	T0              time.Duration
	CurrentFadeEnd  time.Duration // outgoing gain reaches 0
	BridgeStart     time.Duration // bridge sources start, gain 0
	BridgePeak      time.Duration // bridge gain reaches its peak
	BridgeFadeStart time.Duration // bridge gain starts falling
	BridgeEnd       time.Duration // bridge gain reaches 0
	NextStart       time.Duration // incoming source starts, gain 0
	NextPeak        time.Duration // incoming gain reaches 1
	Cleanup         time.Duration // commit: outgoing and bridge sources stop
}

// NewTimeline computes the transition times for cfg starting at t0. cfg must
// be valid.
//
// When the bridge rise and fall would overlap (duration under four fades)
// the bridge peaks where they meet, so its gain never exceeds the peak and
// never ramps backwards.
func NewTimeline(t0 time.Duration, cfg bridge.Config) Timeline {
	d, f := cfg.Duration, cfg.FadeDuration

	peak := 2 * f
	if peak >= d-f {
		peak = d / 2
	}
	fall := max(d-2*f, peak)

	return Timeline{
		T0:              t0,
		CurrentFadeEnd:  t0 + f,
		BridgeStart:     t0 + f,
		BridgePeak:      t0 + peak,
		BridgeFadeStart: t0 + fall,
		BridgeEnd:       t0 + d - f,
		NextStart:       t0 + d - f,
		NextPeak:        t0 + d,
		Cleanup:         t0 + d + f,
	}
}

// Duration returns the time from T0 to the commit.
func (t Timeline) Duration() time.Duration {
	return t.Cleanup - t.T0
}
