package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNotifier_OrderAndPanic(t *testing.T) {
	n := newNotifier(zerolog.Nop())

	var mu sync.Mutex
	var got []int
	record := func(i int) func() {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, i)
		}
	}

	n.post(record(1))
	n.post(func() { panic("boom") })
	n.post(nil)
	n.post(record(2))
	n.post(record(3))
	n.close()

	select {
	case <-n.done:
	case <-time.After(time.Second):
		t.Fatal("notifier did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, got)

	// Posting after close is dropped.
	n.post(record(4))
	assert.Len(t, got, 3)
}
