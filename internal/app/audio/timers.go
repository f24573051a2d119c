package audio

import (
	"container/heap"
	"sync"
	"time"
)

// TimerQueue holds callbacks keyed by context time. Contexts drain it as
// their clock advances.
type TimerQueue struct {
	mu    sync.Mutex
	items timerHeap
	seq   uint64
}

type timer struct {
	at    time.Duration
	seq   uint64
	fn    func()
	index int
}

// NewTimerQueue creates an empty queue.
func NewTimerQueue() *TimerQueue {
	q := &TimerQueue{}
	heap.Init(&q.items)
	return q
}

// Add schedules fn at context time at. The returned function cancels it and
// reports whether it was still pending.
func (q *TimerQueue) Add(at time.Duration, fn func()) func() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	t := &timer{at: at, seq: q.seq, fn: fn}
	heap.Push(&q.items, t)

	return func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		if t.index < 0 {
			return false
		}
		heap.Remove(&q.items, t.index)
		return true
	}
}

// PopDue removes and returns, in time order, every callback due at or before now.
func (q *TimerQueue) PopDue(now time.Duration) []func() {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []func()
	for q.items.Len() > 0 && q.items[0].at <= now {
		t := heap.Pop(&q.items).(*timer)
		due = append(due, t.fn)
	}
	return due
}

// Next returns the time of the earliest pending callback.
func (q *TimerQueue) Next() (time.Duration, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.Len() == 0 {
		return 0, false
	}
	return q.items[0].at, true
}

// Len returns the number of pending callbacks.
func (q *TimerQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Clear drops every pending callback.
func (q *TimerQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, t := range q.items {
		t.index = -1
	}
	q.items = q.items[:0]
}

// timerHeap implements heap.Interface ordered by time, then insertion.
type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].at == h[j].at {
		return h[i].seq < h[j].seq
	}
	return h[i].at < h[j].at
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
