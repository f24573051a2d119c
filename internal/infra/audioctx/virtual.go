// Package audioctx provides audio.Context implementations: a logical clock
// driven by the caller and a hardware device clock driven by oto.
package audioctx

import (
	"context"
	"sync"
	"time"

	"github.com/osa030/soundbridge/internal/app/audio"
)

// Virtual is an audio context whose clock only moves when Advance is called.
// Scheduled callbacks fire synchronously, in time order, inside Advance.
type Virtual struct {
	mu          sync.Mutex
	now         time.Duration
	state       audio.ContextState
	resumeCalls int

	mixer  *audio.Mixer
	timers *audio.TimerQueue
}

// NewVirtual creates a suspended virtual context at time zero.
func NewVirtual() *Virtual {
	return &Virtual{
		state:  audio.ContextSuspended,
		mixer:  audio.NewMixer(),
		timers: audio.NewTimerQueue(),
	}
}

// CurrentTime returns the logical time.
func (v *Virtual) CurrentTime() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// State returns the run state.
func (v *Virtual) State() audio.ContextState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Resume starts the clock.
func (v *Virtual) Resume(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state == audio.ContextClosed {
		return audio.ErrContextClosed
	}
	v.resumeCalls++
	v.state = audio.ContextRunning
	return nil
}

// Suspend stops the clock.
func (v *Virtual) Suspend(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state == audio.ContextClosed {
		return audio.ErrContextClosed
	}
	v.state = audio.ContextSuspended
	return nil
}

// Close stops every voice and drops pending callbacks.
func (v *Virtual) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state == audio.ContextClosed {
		return nil
	}
	v.mixer.StopAll(v.now)
	v.timers.Clear()
	v.state = audio.ContextClosed
	return nil
}

// NewVoice creates an unstarted voice for buf.
func (v *Virtual) NewVoice(buf *audio.Buffer) (audio.Source, audio.Gain, error) {
	if v.State() == audio.ContextClosed {
		return nil, nil, audio.ErrContextClosed
	}
	src, gain := v.mixer.NewVoice(buf)
	return src, gain, nil
}

// AfterFunc schedules fn at logical time at.
func (v *Virtual) AfterFunc(at time.Duration, fn func()) func() bool {
	return v.timers.Add(at, fn)
}

// Advance moves the clock forward by d while running, firing due callbacks
// at their own times. A suspended clock does not move.
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	if v.state != audio.ContextRunning {
		v.mu.Unlock()
		return
	}
	target := v.now + d
	v.mu.Unlock()

	for {
		at, ok := v.timers.Next()
		if !ok || at > target {
			break
		}

		v.mu.Lock()
		if v.state != audio.ContextRunning {
			v.mu.Unlock()
			return
		}
		if at > v.now {
			v.now = at
		}
		now := v.now
		v.mu.Unlock()

		for _, fn := range v.timers.PopDue(now) {
			fn()
		}
	}

	v.mu.Lock()
	if v.state == audio.ContextRunning && target > v.now {
		v.now = target
	}
	v.mu.Unlock()
}

// AdvanceTo moves the clock to the absolute time t.
func (v *Virtual) AdvanceTo(t time.Duration) {
	v.Advance(t - v.CurrentTime())
}

// ResumeCalls returns how many times Resume succeeded.
func (v *Virtual) ResumeCalls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.resumeCalls
}

// ActiveVoices returns the number of voices audible at the current time.
func (v *Virtual) ActiveVoices() int {
	return v.mixer.Active(v.CurrentTime())
}

// RegisteredVoices returns the number of voices the mixer still tracks.
func (v *Virtual) RegisteredVoices() int {
	return v.mixer.Voices()
}

// PendingCallbacks returns the number of scheduled callbacks not yet fired.
func (v *Virtual) PendingCallbacks() int {
	return v.timers.Len()
}
