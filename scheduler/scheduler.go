package scheduler

import (
	"context"
	"sync"
)

// Task is a unit of background work. Tasks must watch ctx.Done() and return
// promptly when cancelled.
type Task func(ctx context.Context)

// Scheduler runs background work on behalf of managers and subscription
// pumps. Implementations decide how concurrency is bounded.
type Scheduler interface {
	// Schedule starts task in the background. The task's context is
	// cancelled when either ctx is cancelled or the scheduler shuts down.
	Schedule(ctx context.Context, name string, task Task) error
}

// Direct is an unbounded Scheduler that runs each task on its own goroutine.
// Intended for tests and small embedded hosts.
type Direct struct {
	wg sync.WaitGroup
}

// NewDirect creates a Direct scheduler.
func NewDirect() *Direct {
	return &Direct{}
}

// Schedule runs task immediately on a new goroutine.
func (d *Direct) Schedule(ctx context.Context, _ string, task Task) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		task(ctx)
	}()
	return nil
}

// Wait blocks until every scheduled task has returned.
func (d *Direct) Wait() {
	d.wg.Wait()
}
