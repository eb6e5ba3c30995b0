// Package executor provides the bounded worker pools the transfer manager
// schedules onto. Each pool owns a fixed number of workers and a bounded
// backlog; submitting to a full backlog blocks the caller, which is how
// backpressure propagates from disk writes back to network reads.
package executor

import (
	"sync"

	"github.com/omics-tools/omics-transfer/errors"
)

// Pool is a fixed-size worker pool with a bounded submission queue.
type Pool struct {
	queue chan func()

	// wg tracks worker goroutines for Shutdown
	wg sync.WaitGroup

	// mu guards closed; held shared for the duration of a queue send so
	// Shutdown cannot close the channel under an in-flight Submit
	mu     sync.RWMutex
	closed bool
}

// New creates a pool with the given backlog bound and worker count.
func New(maxQueueSize, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	p := &Pool{
		queue: make(chan func(), maxQueueSize),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.queue {
		task()
	}
}

// Submit enqueues a task for execution. It blocks while the backlog is full
// and returns ErrQueueClosed if the pool has been shut down.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errors.ErrQueueClosed
	}
	p.queue <- task
	return nil
}

// Shutdown stops accepting tasks, drains the backlog and waits for all
// workers to exit. It is safe to call more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	p.wg.Wait()
}

// Semaphore is an auxiliary resource limiter that can be attached to units of
// work without changing pool semantics. The transfer manager uses one to cap
// how many upload part bodies are held in memory at once.
type Semaphore struct {
	slots chan struct{}
}

// NewSemaphore creates a semaphore with the given number of slots.
func NewSemaphore(n int) *Semaphore {
	if n <= 0 {
		n = 1
	}
	return &Semaphore{slots: make(chan struct{}, n)}
}

// Acquire takes a slot, blocking until one is free.
func (s *Semaphore) Acquire() {
	s.slots <- struct{}{}
}

// Release returns a slot.
func (s *Semaphore) Release() {
	<-s.slots
}
