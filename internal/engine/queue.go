package engine

import (
	"sync"

	"github.com/roach88/rxflow/internal/store"
)

// event is one notification waiting to be stamped.
type event struct {
	kind  store.Kind
	value any
	err   error
}

// eventQueue collects notifications from any goroutine and hands them to
// the run loop in batches, preserving arrival order.
//
// Pushes never block: a synchronous source may emit its whole sequence
// inside Subscribe, before the loop first drains.
type eventQueue struct {
	mu      sync.Mutex
	pending []event
	closed  bool
	ready   chan struct{} // buffered, size 1; coalesces wakeups
}

func newEventQueue() *eventQueue {
	return &eventQueue{ready: make(chan struct{}, 1)}
}

// push appends e. It reports false once the queue is closed.
func (q *eventQueue) push(e event) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.pending = append(q.pending, e)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// drain moves every pending event into buf, which it returns. Events
// pushed before close are still drained.
func (q *eventQueue) drain(buf []event) []event {
	q.mu.Lock()
	defer q.mu.Unlock()
	buf = append(buf[:0], q.pending...)
	clear(q.pending)
	q.pending = q.pending[:0]
	return buf
}

// wait fires after pushes; several pushes may share one wakeup.
func (q *eventQueue) wait() <-chan struct{} {
	return q.ready
}

// close drops later pushes, such as notifications from a pipeline that
// is being disposed.
func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}
