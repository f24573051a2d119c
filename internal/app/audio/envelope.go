package audio

import (
	"sort"
	"sync"
	"time"
)

type rampKind int

const (
	rampSet    rampKind = iota // jump to value at time
	rampLinear                 // reach value at time, linearly from the previous point
)

type automation struct {
	kind  rampKind
	value float64
	at    time.Duration
}

// Envelope is a time-indexed gain curve built from set-value and linear-ramp
// automation points, evaluated against context time.
// It is safe for concurrent use: the renderer reads while the scheduler writes.
type Envelope struct {
	mu      sync.RWMutex
	initial float64
	points  []automation
}

// NewEnvelope creates an envelope that holds initial until the first point.
func NewEnvelope(initial float64) *Envelope {
	return &Envelope{initial: initial}
}

// SetValueAtTime jumps to v at time at.
func (e *Envelope) SetValueAtTime(v float64, at time.Duration) {
	e.insert(automation{kind: rampSet, value: v, at: at})
}

// LinearRampToValueAtTime ramps linearly from the previous point so that the
// gain equals v at time at.
func (e *Envelope) LinearRampToValueAtTime(v float64, at time.Duration) {
	e.insert(automation{kind: rampLinear, value: v, at: at})
}

// CancelScheduledValues drops every point at or after from. The value held
// before from becomes the new tail.
func (e *Envelope) CancelScheduledValues(from time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := sort.Search(len(e.points), func(i int) bool { return e.points[i].at >= from })
	e.points = e.points[:i]
}

// ValueAt evaluates the envelope at time t.
func (e *Envelope) ValueAt(t time.Duration) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	value := e.initial
	var since time.Duration
	for _, p := range e.points {
		if p.at <= t {
			value = p.value
			since = p.at
			continue
		}
		if p.kind == rampLinear {
			span := p.at - since
			if span <= 0 {
				return p.value
			}
			frac := float64(t-since) / float64(span)
			return value + (p.value-value)*frac
		}
		break
	}
	return value
}

// insert keeps points ordered by time; points at equal times keep call order.
func (e *Envelope) insert(p automation) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := sort.Search(len(e.points), func(i int) bool { return e.points[i].at > p.at })
	e.points = append(e.points, automation{})
	copy(e.points[i+1:], e.points[i:])
	e.points[i] = p
}
