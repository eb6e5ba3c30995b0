package coordinator

import (
	"context"
	"sync"
)

// Controller is the registry of in-flight transfer Coordinators. Coordinators
// are inserted at call time and removed by their own done callback, which
// bounds the registry's growth. It is the only structure mutated by multiple
// pools concurrently, so one lock guards it.
type Controller struct {
	mu           sync.Mutex
	coordinators map[int64]*Coordinator
}

// NewController creates an empty registry.
func NewController() *Controller {
	return &Controller{
		coordinators: make(map[int64]*Coordinator),
	}
}

// Add registers a Coordinator for tracking.
func (tc *Controller) Add(c *Coordinator) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.coordinators[c.TransferID()] = c
}

// Remove stops tracking a Coordinator. Safe to call for one never added.
func (tc *Controller) Remove(c *Coordinator) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	delete(tc.coordinators, c.TransferID())
}

// Count returns the number of tracked transfers.
func (tc *Controller) Count() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return len(tc.coordinators)
}

// Cancel requests cancellation of every tracked transfer with the given
// terminal error.
func (tc *Controller) Cancel(reason error) {
	for _, c := range tc.snapshot() {
		c.Cancel(reason)
	}
}

// Wait blocks until every tracked transfer reaches StatusDone, or until ctx
// dies, in which case the context error is returned.
func (tc *Controller) Wait(ctx context.Context) error {
	for _, c := range tc.snapshot() {
		select {
		case <-c.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (tc *Controller) snapshot() []*Coordinator {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	out := make([]*Coordinator, 0, len(tc.coordinators))
	for _, c := range tc.coordinators {
		out = append(out, c)
	}
	return out
}
