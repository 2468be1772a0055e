// Package queue holds the task types consumed by the indexing worker and the
// FIFO that connects producers to it.
package queue

import (
	"context"
	"sync"
	"time"
)

// Queue is an unbounded FIFO of tasks. Any number of goroutines may Push; a
// single consumer Pops and calls Done once per popped task. Join waits until
// every pushed task has been marked done.
type Queue struct {
	mu      sync.Mutex
	items   []Task
	pending int           // pushed but not yet marked done
	ready   chan struct{} // signalled on push, capacity 1
	idle    chan struct{} // closed while pending == 0
}

// New creates an empty queue.
func New() *Queue {
	idle := make(chan struct{})
	close(idle)
	return &Queue{
		ready: make(chan struct{}, 1),
		idle:  idle,
	}
}

// Push appends a task.
func (q *Queue) Push(task Task) {
	q.mu.Lock()
	q.items = append(q.items, task)
	if q.pending == 0 {
		q.idle = make(chan struct{})
	}
	q.pending++
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Pop removes the oldest task, waiting up to timeout for one to arrive.
// It returns false on timeout or when ctx is done.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (Task, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if task, ok := q.tryPop(); ok {
			return task, true
		}
		select {
		case <-q.ready:
		case <-timer.C:
			return q.tryPop()
		case <-ctx.Done():
			return nil, false
		}
	}
}

func (q *Queue) tryPop() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	task := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	if len(q.items) > 0 {
		// Other tasks remain; keep the consumer from sleeping on ready.
		select {
		case q.ready <- struct{}{}:
		default:
		}
	}
	return task, true
}

// Done marks one popped task as processed, whether or not it succeeded.
func (q *Queue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending == 0 {
		return
	}
	q.pending--
	if q.pending == 0 {
		close(q.idle)
	}
}

// Join blocks until every pushed task has been marked done or ctx is done.
func (q *Queue) Join(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of tasks waiting to be popped.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pending returns the number of tasks pushed but not yet marked done,
// including the one in flight.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}
