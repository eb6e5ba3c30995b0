// Package coordinator tracks the outcome of individual transfers. Each
// transfer owns exactly one Coordinator, which is the single source of truth
// for its status, terminal error and completion callbacks. Submission-pool and
// request-pool workers race to finish or fail a transfer, so every mutation
// goes through one mutex.
package coordinator

import (
	"context"
	"sync"

	"github.com/omics-tools/omics-transfer/internal/executor"
)

// Status is the lifecycle state of a transfer.
type Status int32

// Transfer lifecycle states
const (
	// StatusNotStarted is the state before the transfer is handed to a pool
	StatusNotStarted Status = iota

	// StatusQueued is the state while the submission task waits for a worker
	StatusQueued

	// StatusRunning is the state once any task of the transfer has started
	StatusRunning

	// StatusDone is the terminal state; a Coordinator reaches it exactly once
	// and never leaves it
	StatusDone
)

// Coordinator is the per-transfer outcome state machine.
type Coordinator struct {
	transferID int64

	mu              sync.Mutex
	status          Status
	err             error
	cancelled       bool
	failed          bool
	announced       bool
	doneCallbacks   []func()
	failureCleanups []func()

	done chan struct{}
}

// New creates a Coordinator for the transfer with the given ID.
func New(transferID int64) *Coordinator {
	return &Coordinator{
		transferID: transferID,
		done:       make(chan struct{}),
	}
}

// TransferID returns the ID of the transfer this Coordinator tracks.
func (c *Coordinator) TransferID() int64 {
	return c.transferID
}

// Status returns the current lifecycle state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SetQueued marks the transfer as handed to the submission pool.
func (c *Coordinator) SetQueued() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusNotStarted {
		c.status = StatusQueued
	}
}

// SetRunning marks the transfer as actively executing.
func (c *Coordinator) SetRunning() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusQueued || c.status == StatusNotStarted {
		c.status = StatusRunning
	}
}

// SetException records the transfer's failure. The first exception wins:
// later failures from sibling part tasks are discarded. A no-op once the
// transfer is done.
func (c *Coordinator) SetException(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.announced || c.err != nil {
		return
	}
	c.err = err
	c.failed = true
}

// Cancel requests cooperative cancellation with the given terminal error. It
// does not interrupt in-flight reads; part tasks observe the flag before
// queueing each chunk. Cancelling an already-done or already-failed transfer
// is a no-op.
func (c *Coordinator) Cancel(reason error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.announced || c.failed {
		return
	}
	c.err = reason
	c.failed = true
	c.cancelled = true
}

// Stopped reports whether the transfer has failed or been cancelled and new
// work for it should not start.
func (c *Coordinator) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed
}

// Cancelled reports whether the transfer was cancelled rather than failed.
func (c *Coordinator) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// Err returns the terminal (or pending-terminal) error, nil on success.
func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// AddDoneCallback registers a callback to run after the transfer reaches
// StatusDone. Callbacks run at most once, in registration order. If the
// transfer is already done the callback runs immediately.
func (c *Coordinator) AddDoneCallback(fn func()) {
	c.mu.Lock()
	if c.announced {
		c.mu.Unlock()
		fn()
		return
	}
	c.doneCallbacks = append(c.doneCallbacks, fn)
	c.mu.Unlock()
}

// AddFailureCleanup registers a compensating action that fires exactly once
// if the transfer reaches a failed or cancelled terminal state. The multipart
// upload pipeline uses this to abort orphaned remote sessions.
func (c *Coordinator) AddFailureCleanup(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failureCleanups = append(c.failureCleanups, fn)
}

// AnnounceDone flips the transfer to StatusDone, runs failure cleanups when
// the transfer failed, then runs done callbacks in registration order. Only
// the first call has any effect.
func (c *Coordinator) AnnounceDone() {
	c.mu.Lock()
	if c.announced {
		c.mu.Unlock()
		return
	}
	c.announced = true
	c.status = StatusDone
	failed := c.failed
	cleanups := c.failureCleanups
	callbacks := c.doneCallbacks
	c.failureCleanups = nil
	c.doneCallbacks = nil
	c.mu.Unlock()

	if failed {
		for _, cleanup := range cleanups {
			cleanup()
		}
	}
	for _, cb := range callbacks {
		cb()
	}

	// Waiters unblock only after every callback has observed the terminal
	// state.
	close(c.done)
}

// Done returns a channel closed when the transfer reaches StatusDone.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Result blocks until the transfer is done and returns its terminal error,
// or the context error if ctx dies first.
func (c *Coordinator) Result(ctx context.Context) error {
	select {
	case <-c.done:
		return c.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit wraps a unit of work so it is trackable and cancellable, and hands
// it to the given pool. If the transfer has already stopped the unit is
// skipped, but done hooks still run so completion counters stay balanced. A
// unit returning an error records it as the transfer's failure.
func (c *Coordinator) Submit(pool *executor.Pool, unit func() error, doneHooks ...func()) error {
	err := pool.Submit(func() {
		defer func() {
			for _, hook := range doneHooks {
				hook()
			}
		}()
		if c.Stopped() {
			return
		}
		c.SetRunning()
		if err := unit(); err != nil {
			c.SetException(err)
		}
	})
	if err != nil {
		for _, hook := range doneHooks {
			hook()
		}
	}
	return err
}
