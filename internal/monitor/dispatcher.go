package monitor

import (
	"context"
	"fmt"
	"sync"
)

const defaultDispatchQueue = 64

type job struct {
	ctx    context.Context
	fn     func()
	result chan error
}

// Dispatcher runs state mutations one at a time on a single goroutine.
//
// Every Sink call goes through Do, so observable state has exactly one
// writer no matter how many loops are polling.
type Dispatcher struct {
	jobs     chan job
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
	start    sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// NewDispatcher creates a dispatcher. queue bounds how many jobs may wait;
// zero selects a default.
func NewDispatcher(queue int) *Dispatcher {
	if queue <= 0 {
		queue = defaultDispatchQueue
	}
	return &Dispatcher{
		jobs:    make(chan job, queue),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// SetLogger sets the logger used to report panicking jobs.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.loggerMu.Lock()
	d.logger = logger
	d.loggerMu.Unlock()
}

// Start launches the worker goroutine. Calling it more than once is a no-op.
func (d *Dispatcher) Start() {
	d.start.Do(func() {
		go d.run()
	})
}

// Stop ends the worker after the job in progress, if any. Jobs still queued
// are answered with ErrDispatcherStopped.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.done)
	})
	d.Start() // a never-started dispatcher still needs to close stopped
	<-d.stopped
}

// Do runs fn on the dispatcher goroutine and waits for it to finish.
//
// fn is skipped if ctx is already cancelled when its turn comes, so once a
// loop observes cancellation none of its queued mutations are applied.
func (d *Dispatcher) Do(ctx context.Context, fn func()) error {
	j := job{ctx: ctx, fn: fn, result: make(chan error, 1)}

	select {
	case d.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		return ErrDispatcherStopped
	}

	select {
	case err := <-j.result:
		return err
	case <-d.stopped:
		select {
		case err := <-j.result:
			return err
		default:
			return ErrDispatcherStopped
		}
	}
}

func (d *Dispatcher) run() {
	defer close(d.stopped)
	for {
		select {
		case <-d.done:
			return
		case j := <-d.jobs:
			j.result <- d.execute(j)
		}
	}
}

func (d *Dispatcher) execute(j job) (err error) {
	if err := j.ctx.Err(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrJobPanicked, r)
			d.loggerMu.RLock()
			logger := d.logger
			d.loggerMu.RUnlock()
			if logger != nil {
				logger.Error("dispatched job panicked", "panic", r)
			}
		}
	}()
	j.fn()
	return nil
}
