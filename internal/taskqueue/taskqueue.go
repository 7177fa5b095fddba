// internal/taskqueue/taskqueue.go

// Package taskqueue provides a strict FIFO, one-at-a-time executor. The
// reconciliation engine funnels every top-level procedure through one queue so
// that at most one procedure is in flight at any moment.
package taskqueue

import (
	"errors"
	"sync"
)

// ErrDestroyed is returned for units rejected because the queue was destroyed.
var ErrDestroyed = errors.New("taskqueue: destroyed")

type task struct {
	fn   func() error
	done chan error
}

// Queue executes units of work strictly in arrival order, one in flight.
// A unit that returns an error propagates it to its own caller only; the
// queue still advances to the next unit.
type Queue struct {
	mu        sync.Mutex
	cond      *sync.Cond
	tasks     []*task
	destroyed bool
}

// New creates a queue and starts its runner goroutine.
func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Do enqueues fn and blocks until it has run, returning fn's error. Must not
// be called from within a unit already running on the same queue.
func (q *Queue) Do(fn func() error) error {
	t := &task{fn: fn, done: make(chan error, 1)}

	q.mu.Lock()
	if q.destroyed {
		q.mu.Unlock()
		return ErrDestroyed
	}
	q.tasks = append(q.tasks, t)
	q.cond.Signal()
	q.mu.Unlock()

	return <-t.done
}

// Go enqueues fn without waiting for it. Used for passive reconciliation,
// where the triggering event has no caller to report back to. The unit is
// appended before Go returns, so successive Go calls from one goroutine
// keep their relative order; fn's error is discarded.
func (q *Queue) Go(fn func() error) {
	t := &task{fn: fn, done: make(chan error, 1)}

	q.mu.Lock()
	if q.destroyed {
		q.mu.Unlock()
		return
	}
	q.tasks = append(q.tasks, t)
	q.cond.Signal()
	q.mu.Unlock()
}

// Destroy rejects all pending units and every future Do with ErrDestroyed.
// The in-flight unit, if any, is not cancelled; it runs to completion.
func (q *Queue) Destroy() {
	q.mu.Lock()
	q.destroyed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Pending returns the number of queued, not-yet-started units.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *Queue) run() {
	for {
		q.mu.Lock()
		for len(q.tasks) == 0 && !q.destroyed {
			q.cond.Wait()
		}
		if q.destroyed {
			pending := q.tasks
			q.tasks = nil
			q.mu.Unlock()
			for _, t := range pending {
				t.done <- ErrDestroyed
			}
			return
		}
		t := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		t.done <- t.fn()
	}
}
