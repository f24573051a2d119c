package audioctx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/soundbridge/internal/app/audio"
)

func testBuffer(t *testing.T, d time.Duration) *audio.Buffer {
	t.Helper()
	frames := int(d / (time.Second / 100))
	buf, err := audio.NewBuffer("test", 100, 1, make([]float32, frames))
	require.NoError(t, err)
	return buf
}

func TestVirtual_ClockOnlyRunsWhileRunning(t *testing.T) {
	v := NewVirtual()
	assert.Equal(t, audio.ContextSuspended, v.State())

	v.Advance(time.Second)
	assert.Equal(t, time.Duration(0), v.CurrentTime())

	require.NoError(t, v.Resume(context.Background()))
	v.Advance(time.Second)
	assert.Equal(t, time.Second, v.CurrentTime())

	require.NoError(t, v.Suspend(context.Background()))
	v.Advance(time.Second)
	assert.Equal(t, time.Second, v.CurrentTime())

	require.NoError(t, v.Resume(context.Background()))
	assert.Equal(t, 2, v.ResumeCalls())
}

func TestVirtual_CallbacksFireInOrderAtTheirTime(t *testing.T) {
	v := NewVirtual()
	require.NoError(t, v.Resume(context.Background()))

	var fired []time.Duration
	record := func() { fired = append(fired, v.CurrentTime()) }

	v.AfterFunc(3*time.Second, record)
	v.AfterFunc(time.Second, record)
	stop := v.AfterFunc(2*time.Second, record)
	assert.True(t, stop())
	assert.False(t, stop())

	v.Advance(5 * time.Second)
	assert.Equal(t, []time.Duration{time.Second, 3 * time.Second}, fired)
	assert.Equal(t, 5*time.Second, v.CurrentTime())
	assert.Equal(t, 0, v.PendingCallbacks())
}

func TestVirtual_CallbackCanScheduleWithinSameAdvance(t *testing.T) {
	v := NewVirtual()
	require.NoError(t, v.Resume(context.Background()))

	var fired []time.Duration
	v.AfterFunc(time.Second, func() {
		v.AfterFunc(v.CurrentTime()+time.Second, func() {
			fired = append(fired, v.CurrentTime())
		})
	})

	v.Advance(3 * time.Second)
	assert.Equal(t, []time.Duration{2 * time.Second}, fired)
}

func TestVirtual_SuspendFromCallbackStopsClock(t *testing.T) {
	v := NewVirtual()
	require.NoError(t, v.Resume(context.Background()))

	v.AfterFunc(time.Second, func() {
		_ = v.Suspend(context.Background())
	})
	v.Advance(3 * time.Second)
	assert.Equal(t, time.Second, v.CurrentTime())
	assert.Equal(t, audio.ContextSuspended, v.State())
}

func TestVirtual_Close(t *testing.T) {
	v := NewVirtual()
	require.NoError(t, v.Resume(context.Background()))

	src, _, err := v.NewVoice(testBuffer(t, 10*time.Second))
	require.NoError(t, err)
	require.NoError(t, src.Start(0, 0))
	v.AfterFunc(time.Second, func() {})

	assert.Equal(t, 1, v.ActiveVoices())
	require.NoError(t, v.Close())
	require.NoError(t, v.Close())

	assert.Equal(t, audio.ContextClosed, v.State())
	assert.Equal(t, 0, v.ActiveVoices())
	assert.Equal(t, 0, v.PendingCallbacks())

	_, _, err = v.NewVoice(testBuffer(t, time.Second))
	assert.ErrorIs(t, err, audio.ErrContextClosed)
	assert.ErrorIs(t, v.Resume(context.Background()), audio.ErrContextClosed)
}
