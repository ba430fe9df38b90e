// Package workpool provides a fixed-size worker pool for CPU-bound work
// with a future-style handoff back to the submitting caller.
package workpool

import (
	"context"
	"sync"
)

const defaultWorkers = 2

// Pool runs submitted functions on a bounded set of workers. The worker
// count is a hard backpressure bound: excess work queues rather than
// spawning new goroutines. Tasks share no state through the pool.
type Pool struct {
	tasks chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

// New creates a pool with the given worker count and queue depth.
func New(workers, queueDepth int) *Pool {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueDepth < 0 {
		queueDepth = 0
	}

	p := &Pool{tasks: make(chan func(), queueDepth)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// Close stops accepting work and waits for queued tasks to drain. Safe to
// call more than once.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.tasks)
	})
	p.wg.Wait()
}

// Submit runs fn on the pool and blocks until its result is available or
// ctx is done. Cancellation is cooperative: work already running is not
// interrupted, its result is simply discarded.
func Submit[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}

	// Buffered so an abandoned task never blocks its worker.
	ch := make(chan result, 1)

	task := func() {
		val, err := fn()
		ch <- result{val: val, err: err}
	}

	select {
	case p.tasks <- task:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}

	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
