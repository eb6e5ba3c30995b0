package coordinator

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omics-tools/omics-transfer/errors"
	"github.com/omics-tools/omics-transfer/internal/executor"
)

func TestStatusLifecycle(t *testing.T) {
	c := New(1)
	assert.Equal(t, StatusNotStarted, c.Status())

	c.SetQueued()
	assert.Equal(t, StatusQueued, c.Status())

	c.SetRunning()
	assert.Equal(t, StatusRunning, c.Status())

	c.AnnounceDone()
	assert.Equal(t, StatusDone, c.Status())

	// terminal state is sticky
	c.SetRunning()
	assert.Equal(t, StatusDone, c.Status())
}

func TestFirstExceptionWins(t *testing.T) {
	c := New(1)
	first := stderrors.New("part 3 failed")
	second := stderrors.New("part 7 failed")

	c.SetException(first)
	c.SetException(second)

	assert.True(t, c.Stopped())
	assert.False(t, c.Cancelled())
	assert.Same(t, first, c.Err())
}

func TestCancelRecordsReason(t *testing.T) {
	c := New(1)
	reason := &errors.CancelledError{Reason: "user requested"}
	c.Cancel(reason)

	assert.True(t, c.Stopped())
	assert.True(t, c.Cancelled())
	assert.Same(t, reason, c.Err())
}

func TestCancelAfterFailureIsNoop(t *testing.T) {
	c := New(1)
	failure := stderrors.New("part failed")
	c.SetException(failure)
	c.Cancel(&errors.CancelledError{Reason: "too late"})

	assert.False(t, c.Cancelled())
	assert.Same(t, failure, c.Err())
}

func TestCancelAfterDoneIsNoop(t *testing.T) {
	c := New(1)
	c.AnnounceDone()
	c.Cancel(&errors.CancelledError{Reason: "too late"})

	assert.False(t, c.Cancelled())
	assert.NoError(t, c.Err())
}

func TestDoneCallbacksRunInOrder(t *testing.T) {
	c := New(1)
	var order []int
	c.AddDoneCallback(func() { order = append(order, 1) })
	c.AddDoneCallback(func() { order = append(order, 2) })
	c.AddDoneCallback(func() { order = append(order, 3) })

	c.AnnounceDone()
	assert.Equal(t, []int{1, 2, 3}, order)

	// second announce must not rerun them
	c.AnnounceDone()
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestDoneCallbackAfterDoneRunsImmediately(t *testing.T) {
	c := New(1)
	c.AnnounceDone()

	var ran bool
	c.AddDoneCallback(func() { ran = true })
	assert.True(t, ran)
}

func TestFailureCleanupsOnlyOnFailure(t *testing.T) {
	t.Run("success skips cleanups", func(t *testing.T) {
		c := New(1)
		var cleaned bool
		c.AddFailureCleanup(func() { cleaned = true })
		c.AnnounceDone()
		assert.False(t, cleaned)
	})

	t.Run("failure runs cleanups before callbacks", func(t *testing.T) {
		c := New(1)
		var order []string
		c.AddFailureCleanup(func() { order = append(order, "cleanup") })
		c.AddDoneCallback(func() { order = append(order, "callback") })
		c.SetException(stderrors.New("part failed"))
		c.AnnounceDone()
		assert.Equal(t, []string{"cleanup", "callback"}, order)
	})

	t.Run("cancellation runs cleanups", func(t *testing.T) {
		c := New(1)
		var cleaned int
		c.AddFailureCleanup(func() { cleaned++ })
		c.Cancel(&errors.CancelledError{})
		c.AnnounceDone()
		c.AnnounceDone()
		assert.Equal(t, 1, cleaned)
	})
}

func TestResult(t *testing.T) {
	t.Run("returns terminal error", func(t *testing.T) {
		c := New(1)
		failure := stderrors.New("part failed")
		go func() {
			c.SetException(failure)
			c.AnnounceDone()
		}()
		err := c.Result(context.Background())
		assert.Same(t, failure, err)
	})

	t.Run("nil on success", func(t *testing.T) {
		c := New(1)
		c.AnnounceDone()
		assert.NoError(t, c.Result(context.Background()))
	})

	t.Run("context abandons the wait", func(t *testing.T) {
		c := New(1)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		err := c.Result(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestSubmitRecordsUnitFailure(t *testing.T) {
	pool := executor.New(10, 1)
	defer pool.Shutdown()

	c := New(1)
	failure := stderrors.New("unit failed")
	var hooks atomic.Int32
	require.NoError(t, c.Submit(pool, func() error {
		return failure
	}, func() { hooks.Add(1) }))
	pool.Shutdown()

	assert.Same(t, failure, c.Err())
	assert.Equal(t, int32(1), hooks.Load())
}

func TestSubmitSkipsUnitWhenStopped(t *testing.T) {
	pool := executor.New(10, 1)
	defer pool.Shutdown()

	c := New(1)
	c.Cancel(&errors.CancelledError{})

	var ran bool
	var hooks atomic.Int32
	require.NoError(t, c.Submit(pool, func() error {
		ran = true
		return nil
	}, func() { hooks.Add(1) }))
	pool.Shutdown()

	assert.False(t, ran)
	assert.Equal(t, int32(1), hooks.Load(), "done hooks must run for skipped units")
}

func TestSubmitRunsHooksOnPoolError(t *testing.T) {
	pool := executor.New(10, 1)
	pool.Shutdown()

	c := New(1)
	var hooks atomic.Int32
	err := c.Submit(pool, func() error { return nil }, func() { hooks.Add(1) })

	assert.ErrorIs(t, err, errors.ErrQueueClosed)
	assert.Equal(t, int32(1), hooks.Load())
}

func TestControllerTracksCoordinators(t *testing.T) {
	tc := NewController()
	a := New(1)
	b := New(2)

	tc.Add(a)
	tc.Add(b)
	assert.Equal(t, 2, tc.Count())

	tc.Remove(a)
	assert.Equal(t, 1, tc.Count())

	// removing twice is harmless
	tc.Remove(a)
	assert.Equal(t, 1, tc.Count())
}

func TestControllerCancelAll(t *testing.T) {
	tc := NewController()
	a := New(1)
	b := New(2)
	tc.Add(a)
	tc.Add(b)

	reason := &errors.CancelledError{Reason: "shutdown"}
	tc.Cancel(reason)

	assert.True(t, a.Cancelled())
	assert.True(t, b.Cancelled())
	assert.Same(t, reason, a.Err())
}

func TestControllerWait(t *testing.T) {
	t.Run("returns once all are done", func(t *testing.T) {
		tc := NewController()
		a := New(1)
		b := New(2)
		tc.Add(a)
		tc.Add(b)

		go func() {
			a.AnnounceDone()
			b.AnnounceDone()
		}()
		assert.NoError(t, tc.Wait(context.Background()))
	})

	t.Run("context interrupts the wait", func(t *testing.T) {
		tc := NewController()
		tc.Add(New(1))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, tc.Wait(ctx), context.DeadlineExceeded)
	})
}
