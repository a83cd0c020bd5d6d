package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
)

// Context is an execution context that callbacks can be delivered to.
// Post must not block indefinitely; the function is executed later on
// the context's own goroutine.
type Context interface {
	Post(fn func())
}

// Queue is a serialized FIFO executor backed by a single goroutine.
// Functions posted to the queue run one at a time in posting order.
//
// A Queue is also a Context, so it can serve as a delivery target.
type Queue struct {
	mu    sync.Mutex
	tasks []func()

	// wake signals the run loop that tasks are available.
	wake chan struct{}

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewQueue creates a new queue. Call Start before posting work that
// must execute.
func NewQueue() *Queue {
	return &Queue{
		wake: make(chan struct{}, 1),
	}
}

// Start begins executing posted functions.
func (q *Queue) Start() {
	if q.running.Swap(true) {
		return // Already running
	}

	q.ctx, q.cancel = context.WithCancel(context.Background())
	q.wg.Add(1)
	go q.run()
}

// Stop stops the queue and waits for the in-flight function to finish.
// Functions still pending when Stop is called are not executed, and
// functions posted after Stop are dropped.
func (q *Queue) Stop() {
	if !q.running.Swap(false) {
		return // Not running
	}

	q.cancel()
	q.wg.Wait()

	q.mu.Lock()
	q.tasks = nil
	q.mu.Unlock()
}

// Running returns true if the queue is executing posted functions.
func (q *Queue) Running() bool {
	return q.running.Load()
}

// Post enqueues fn for execution. Post never blocks.
func (q *Queue) Post(fn func()) {
	if fn == nil {
		return
	}

	q.mu.Lock()
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Flush blocks until every function posted before the call has run.
// It returns immediately if the queue is not running.
func (q *Queue) Flush() {
	if !q.running.Load() {
		return
	}

	done := make(chan struct{})
	q.Post(func() { close(done) })

	select {
	case <-done:
	case <-q.ctx.Done():
	}
}

func (q *Queue) run() {
	defer q.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			return
		default:
		}

		fn := q.next()
		if fn != nil {
			fn()
			continue
		}

		select {
		case <-q.ctx.Done():
			return
		case <-q.wake:
		}
	}
}

// next pops the oldest pending task, or returns nil if the queue is empty.
func (q *Queue) next() func() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil
	}
	fn := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return fn
}

// Compile-time interface satisfaction check.
var _ Context = (*Queue)(nil)
