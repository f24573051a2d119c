package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvelope_ValueAt(t *testing.T) {
	e := NewEnvelope(0.5)
	e.SetValueAtTime(0, time.Second)
	e.LinearRampToValueAtTime(1, 2*time.Second)
	e.SetValueAtTime(1, 3*time.Second)
	e.LinearRampToValueAtTime(0, 4*time.Second)

	tests := []struct {
		name string
		at   time.Duration
		want float64
	}{
		{name: "initial value before first point", at: 500 * time.Millisecond, want: 0.5},
		{name: "set point", at: time.Second, want: 0},
		{name: "mid ramp up", at: 1500 * time.Millisecond, want: 0.5},
		{name: "ramp end", at: 2 * time.Second, want: 1},
		{name: "hold", at: 2500 * time.Millisecond, want: 1},
		{name: "mid ramp down", at: 3250 * time.Millisecond, want: 0.75},
		{name: "ramp down end", at: 4 * time.Second, want: 0},
		{name: "after last point", at: 10 * time.Second, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, e.ValueAt(tt.at), 1e-9)
		})
	}
}

func TestEnvelope_RampFromInitialValue(t *testing.T) {
	e := NewEnvelope(1)
	e.LinearRampToValueAtTime(0, 2*time.Second)

	assert.InDelta(t, 1.0, e.ValueAt(0), 1e-9)
	assert.InDelta(t, 0.5, e.ValueAt(time.Second), 1e-9)
	assert.InDelta(t, 0.0, e.ValueAt(2*time.Second), 1e-9)
}

func TestEnvelope_CancelScheduledValues(t *testing.T) {
	e := NewEnvelope(1)
	e.SetValueAtTime(1, time.Second)
	e.LinearRampToValueAtTime(0, 3*time.Second)

	e.CancelScheduledValues(2 * time.Second)

	assert.InDelta(t, 1.0, e.ValueAt(2500*time.Millisecond), 1e-9)
	assert.InDelta(t, 1.0, e.ValueAt(5*time.Second), 1e-9)
}

func TestEnvelope_EqualTimesKeepCallOrder(t *testing.T) {
	e := NewEnvelope(0)
	e.LinearRampToValueAtTime(1, time.Second)
	e.SetValueAtTime(0.25, time.Second)

	assert.InDelta(t, 0.25, e.ValueAt(time.Second), 1e-9)
}
