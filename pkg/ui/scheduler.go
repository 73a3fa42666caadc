package ui

import (
	"sync"
	"time"
)

// Scheduler accepts redraw requests for displayables.
type Scheduler interface {
	Redraw(d Displayable, delay time.Duration)
}

// RedrawQueue collects displayables that need redrawing, once each, in the
// order they were first scheduled.
type RedrawQueue struct {
	mu      sync.Mutex
	pending []Displayable
	seen    map[Displayable]time.Duration

	// OnNeedsFrame is called when a displayable is newly scheduled, so an
	// on-demand frame loop can wake up.
	OnNeedsFrame func()
}

// NewRedrawQueue creates an empty queue.
func NewRedrawQueue() *RedrawQueue {
	return &RedrawQueue{}
}

// Redraw schedules d. A repeated request keeps the shortest delay.
func (q *RedrawQueue) Redraw(d Displayable, delay time.Duration) {
	if d == nil {
		return
	}
	added := func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		if q.seen == nil {
			q.seen = make(map[Displayable]time.Duration)
		}
		if prev, ok := q.seen[d]; ok {
			if delay < prev {
				q.seen[d] = delay
			}
			return false
		}
		q.seen[d] = delay
		q.pending = append(q.pending, d)
		return true
	}()

	if added && q.OnNeedsFrame != nil {
		q.OnNeedsFrame()
	}
}

// Pending reports whether d is scheduled.
func (q *RedrawQueue) Pending(d Displayable) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.seen[d]
	return ok
}

// Len returns the number of scheduled displayables.
func (q *RedrawQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Flush empties the queue and returns what was scheduled, oldest first.
func (q *RedrawQueue) Flush() []Displayable {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	clear(q.seen)
	return out
}
