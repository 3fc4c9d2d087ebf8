// Package async provides the single-shot task used at the scoring boundary
// and a bounded pool for fanning such tasks out.
package async

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// Task is the result of a function running on its own goroutine. It
// completes exactly once; every Wait observes the same result.
type Task[T any] struct {
	done   chan struct{}
	result T
	err    error
}

// Go starts fn and returns its task.
func Go[T any](fn func() (T, error)) *Task[T] {
	t := &Task[T]{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		t.result, t.err = fn()
	}()
	return t
}

// Done returns a channel closed when the task has completed.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task completes or ctx is done. A cancelled wait
// does not stop the task; a later Wait can still collect the result.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Pool runs functions with bounded concurrency.
type Pool struct {
	sem       chan struct{}
	wg        sync.WaitGroup
	submitted atomic.Uint64
	completed atomic.Uint64
}

// NewPool creates a pool. If workers is 0, it defaults to runtime.NumCPU().
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{sem: make(chan struct{}, workers)}
}

// Submit runs fn once a worker slot is free. It blocks while the pool is
// saturated and returns false if ctx ends first.
func (p *Pool) Submit(ctx context.Context, fn func()) bool {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return false
	}

	p.submitted.Add(1)
	p.wg.Add(1)
	go func() {
		defer func() {
			<-p.sem
			p.completed.Add(1)
			p.wg.Done()
		}()
		fn()
	}()
	return true
}

// Wait blocks until all submitted functions have returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Stats returns pool statistics.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Workers:   cap(p.sem),
		Busy:      len(p.sem),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
	}
}

// PoolStats contains pool statistics.
type PoolStats struct {
	Workers   int
	Busy      int
	Submitted uint64
	Completed uint64
}
