package audio

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

const never = time.Duration(math.MaxInt64)

// Mixer sums every scheduled voice through its gain envelope. Context
// implementations own one mixer and render it against their own clock.
type Mixer struct {
	mu     sync.Mutex
	voices map[string]*voice
}

// NewMixer creates an empty mixer.
func NewMixer() *Mixer {
	return &Mixer{voices: make(map[string]*voice)}
}

// NewVoice registers an unstarted voice for buf.
func (m *Mixer) NewVoice(buf *Buffer) (Source, Gain) {
	v := &voice{
		id:     uuid.NewString(),
		mixer:  m,
		buf:    buf,
		gain:   NewEnvelope(1),
		stopAt: never,
	}
	m.mu.Lock()
	m.voices[v.id] = v
	m.mu.Unlock()
	return v, v.gain
}

// Active returns the number of voices that are started and not yet ended at t.
func (m *Mixer) Active(t time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, v := range m.voices {
		if v.playingAt(t) {
			n++
		}
	}
	return n
}

// Render mixes frames of interleaved output starting at context time from.
// dst must hold frames*channels samples; it is overwritten.
func (m *Mixer) Render(dst []float32, channels, sampleRate int, from time.Duration) {
	for i := range dst {
		dst[i] = 0
	}
	frames := len(dst) / channels
	step := time.Second / time.Duration(sampleRate)
	end := from + time.Duration(frames)*step

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, v := range m.voices {
		if !v.started {
			continue
		}
		if v.endedBy(from) {
			delete(m.voices, id)
			continue
		}
		for f := range frames {
			t := from + time.Duration(f)*step
			if !v.playingAt(t) {
				continue
			}
			g := float32(v.gain.ValueAt(t))
			if g == 0 {
				continue
			}
			pos := t - v.startAt + v.offset
			for ch := range channels {
				dst[f*channels+ch] += v.buf.SampleAt(pos, ch) * g
			}
		}
		if v.endedBy(end) {
			delete(m.voices, id)
		}
	}

	for i, s := range dst {
		if s > 1 {
			dst[i] = 1
		} else if s < -1 {
			dst[i] = -1
		}
	}
}

// Voices returns the number of registered voices, started or not.
func (m *Mixer) Voices() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.voices)
}

// StopAll stops every voice at t and forgets them.
func (m *Mixer) StopAll(t time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, v := range m.voices {
		if v.started && v.stopAt > t {
			v.stopAt = t
		}
		v.stopped = true
		delete(m.voices, id)
	}
}

// voice is one source routed through its own gain envelope.
type voice struct {
	id      string
	mixer   *Mixer
	buf     *Buffer
	gain    *Envelope
	startAt time.Duration
	offset  time.Duration
	stopAt  time.Duration
	started bool
	stopped bool
}

func (v *voice) Start(at, offset time.Duration) error {
	v.mixer.mu.Lock()
	defer v.mixer.mu.Unlock()

	if v.started || v.stopped {
		return ErrAlreadyStarted
	}
	if offset < 0 {
		offset = 0
	}
	v.startAt = at
	v.offset = offset
	v.started = true
	v.mixer.voices[v.id] = v
	return nil
}

func (v *voice) Stop(at time.Duration) error {
	v.mixer.mu.Lock()
	defer v.mixer.mu.Unlock()

	if !v.started {
		// Unregistered until started, so abandoned voices do not pile up.
		delete(v.mixer.voices, v.id)
		return ErrNotStarted
	}
	if v.stopped {
		return ErrAlreadyStopped
	}
	v.stopped = true
	if at < v.stopAt {
		v.stopAt = at
	}
	return nil
}

// playingAt reports whether the voice produces sound at t. Caller holds the mixer lock.
func (v *voice) playingAt(t time.Duration) bool {
	return v.started && t >= v.startAt && !v.endedBy(t)
}

// endedBy reports whether the voice has finished at or before t. Caller holds the mixer lock.
func (v *voice) endedBy(t time.Duration) bool {
	if !v.started {
		return false
	}
	if t >= v.stopAt {
		return true
	}
	return t-v.startAt+v.offset >= v.buf.Duration()
}
