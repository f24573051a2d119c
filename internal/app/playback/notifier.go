package playback

import (
	"sync"

	"github.com/rs/zerolog"
)

// notifier runs callbacks one at a time, in the order they were posted, on
// its own goroutine. Posting never blocks.
type notifier struct {
	log zerolog.Logger

	mu     sync.Mutex
	queue  []func()
	closed bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func newNotifier(log zerolog.Logger) *notifier {
	n := &notifier{
		log:  log,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go n.run()
	return n
}

func (n *notifier) post(fn func()) {
	if fn == nil {
		return
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.queue = append(n.queue, fn)
	n.mu.Unlock()

	select {
	case n.wake <- struct{}{}:
	default:
	}
}

// close runs what is already queued, then stops. It does not wait.
func (n *notifier) close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	close(n.stop)
}

func (n *notifier) run() {
	defer close(n.done)
	for {
		select {
		case <-n.wake:
			n.drain()
		case <-n.stop:
			n.drain()
			return
		}
	}
}

func (n *notifier) drain() {
	for {
		n.mu.Lock()
		q := n.queue
		n.queue = nil
		n.mu.Unlock()

		if len(q) == 0 {
			return
		}
		for _, fn := range q {
			n.call(fn)
		}
	}
}

func (n *notifier) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			n.log.Error().Msgf("callback panicked: %v", r)
		}
	}()
	fn()
}
