package procstream

import (
	"context"
	"sync/atomic"
)

// semaphore bounds the number of children a [Runner] keeps alive at once.
// Acquire unblocks if the context is cancelled.
type semaphore struct {
	ch       chan struct{}
	cap      int
	acquired atomic.Int64
}

// newSemaphore creates a semaphore with the given capacity.
// Panics if n <= 0.
func newSemaphore(n int) *semaphore {
	if n <= 0 {
		panic("procstream: semaphore requires n > 0")
	}
	return &semaphore{
		ch:  make(chan struct{}, n),
		cap: n,
	}
}

// Acquire blocks until a slot is available or ctx is cancelled.
// Returns ctx.Err() on cancellation, nil on success.
func (s *semaphore) Acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		s.acquired.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release releases a slot. Panics if more slots are released than acquired.
func (s *semaphore) Release() {
	if s.acquired.Add(-1) < 0 {
		s.acquired.Add(1) // undo
		panic("procstream: semaphore released without matching acquire")
	}
	<-s.ch
}

// Available returns the number of available slots.
// The value may be stale in concurrent contexts.
func (s *semaphore) Available() int {
	return s.cap - len(s.ch)
}
