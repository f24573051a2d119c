package audio

import (
	"context"
	"time"
)

// ContextState is the run state of an audio context.
type ContextState int

const (
	ContextSuspended ContextState = iota // Clock stopped; created or paused
	ContextRunning                       // Clock advancing
	ContextClosed                        // Released; terminal
)

// String returns the string representation of the state.
func (s ContextState) String() string {
	switch s {
	case ContextSuspended:
		return "suspended"
	case ContextRunning:
		return "running"
	case ContextClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Context is the audio clock and output graph. Its time only advances while
// running, and every schedule is expressed in that time.
type Context interface {
	// CurrentTime returns the monotonically increasing context time.
	CurrentTime() time.Duration
	// State returns the current run state.
	State() ContextState
	// Resume starts (or restarts) the clock. Blocks until the output is ready.
	Resume(ctx context.Context) error
	// Suspend stops the clock without releasing the output.
	Suspend(ctx context.Context) error
	// Close stops every voice and releases the output. Terminal.
	Close() error
	// NewVoice creates an unstarted source for buf, routed through its own gain
	// into the shared output.
	NewVoice(buf *Buffer) (Source, Gain, error)
	// AfterFunc calls fn once context time reaches at. The returned stop
	// function cancels the call and reports whether it was still pending.
	AfterFunc(at time.Duration, fn func()) (stop func() bool)
}

// Source is a single-use playable source.
type Source interface {
	// Start schedules playback at context time at, beginning offset into the buffer.
	Start(at, offset time.Duration) error
	// Stop schedules the end of playback at context time at. Times in the past
	// stop immediately.
	Stop(at time.Duration) error
}

// Gain is an automatable gain parameter.
type Gain interface {
	ValueAt(t time.Duration) float64
	SetValueAtTime(v float64, at time.Duration)
	LinearRampToValueAtTime(v float64, at time.Duration)
	CancelScheduledValues(from time.Duration)
}
