package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerQueue_PopDueInOrder(t *testing.T) {
	q := NewTimerQueue()
	var fired []int
	q.Add(3*time.Second, func() { fired = append(fired, 3) })
	q.Add(time.Second, func() { fired = append(fired, 1) })
	q.Add(time.Second, func() { fired = append(fired, 2) })

	for _, fn := range q.PopDue(2 * time.Second) {
		fn()
	}
	assert.Equal(t, []int{1, 2}, fired)

	next, ok := q.Next()
	assert.True(t, ok)
	assert.Equal(t, 3*time.Second, next)
	assert.Equal(t, 1, q.Len())
}

func TestTimerQueue_Cancel(t *testing.T) {
	q := NewTimerQueue()
	stop := q.Add(time.Second, func() { t.Fatal("cancelled timer fired") })

	assert.True(t, stop())
	assert.False(t, stop(), "second cancel reports not pending")
	assert.Empty(t, q.PopDue(time.Hour))
}

func TestTimerQueue_CancelAfterFire(t *testing.T) {
	q := NewTimerQueue()
	stop := q.Add(time.Second, func() {})

	assert.Len(t, q.PopDue(time.Second), 1)
	assert.False(t, stop())
}

func TestTimerQueue_Clear(t *testing.T) {
	q := NewTimerQueue()
	stop := q.Add(time.Second, func() {})
	q.Add(2*time.Second, func() {})

	q.Clear()

	assert.Equal(t, 0, q.Len())
	assert.False(t, stop())
}
