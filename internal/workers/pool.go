package workers

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

var ErrClosed = errors.New("worker pool closed")

// Pool runs background work with bounded parallelism
type Pool struct {
	size  int
	group errgroup.Group

	mu     sync.RWMutex
	closed bool
}

// New creates a pool running at most size tasks at once
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{size: size}
	p.group.SetLimit(size)
	return p
}

// Size returns the parallelism limit
func (p *Pool) Size() int { return p.size }

// Task is a handle on submitted work
type Task struct {
	done chan struct{}
	err  error
}

// Done is closed when the task finished
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task finished or ctx is done
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Go submits fn. It blocks while the pool is saturated, so tasks must not
// call it; they use GoOrRun.
func (p *Pool) Go(fn func() error) (*Task, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrClosed
	}

	t := &Task{done: make(chan struct{})}
	p.group.Go(t.run(fn))
	return t, nil
}

// GoOrRun submits fn without blocking. When the pool is saturated fn runs on
// the caller's goroutine before GoOrRun returns.
func (p *Pool) GoOrRun(fn func() error) (*Task, error) {
	t := &Task{done: make(chan struct{})}
	run := t.run(fn)

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, ErrClosed
	}
	started := p.group.TryGo(run)
	p.mu.RUnlock()

	if !started {
		_ = run()
	}
	return t, nil
}

func (t *Task) run(fn func() error) func() error {
	return func() error {
		defer close(t.done)
		t.err = fn()
		// task errors belong to the task handle, never to the pool
		return nil
	}
}

// Close rejects new tasks and waits for the running ones
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	_ = p.group.Wait()
}

// ForEach runs fn for every index in [0, n) with the pool's parallelism and
// returns the first error. The context passed to fn is cancelled on the
// first failure.
func (p *Pool) ForEach(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.size)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return fn(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
