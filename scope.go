package procstream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// workerFunc is the body of a worker goroutine. It receives the scope's
// context, which is cancelled when the scope ends or a sibling fails.
type workerFunc func(ctx context.Context) error

// scope gives the goroutines of one launch a shared lifetime: they are
// spawned into it, share a cancellable context, and are joined by wait.
// The first failure (including a recovered panic) cancels the context with
// that failure as its cause.
type scope struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	logger *zap.Logger

	wg sync.WaitGroup

	errOnce  sync.Once
	firstErr error

	open   atomic.Bool
	active atomic.Int64
}

func newScope(parent context.Context, logger *zap.Logger) *scope {
	ctx, cancel := context.WithCancelCause(parent)
	s := &scope{
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
	s.open.Store(true)
	return s
}

// spawn starts fn in a new goroutine tracked by the scope.
func (s *scope) spawn(name string, fn workerFunc) {
	// Check open BEFORE wg.Add to avoid racing wait's wg.Wait().
	if !s.open.Load() {
		panic("procstream: spawn called after scope shutdown")
	}

	s.wg.Add(1)
	s.active.Add(1)

	go func() {
		defer s.wg.Done()

		start := time.Now()
		err := s.exec(fn)
		elapsed := time.Since(start)
		remaining := s.active.Add(-1)

		if err != nil {
			s.logger.Debug("worker failed",
				zap.String("worker", name),
				zap.Duration("duration", elapsed),
				zap.Int64("active", remaining),
				zap.Error(err),
			)
			s.recordError(err)
			return
		}
		s.logger.Debug("worker finished",
			zap.String("worker", name),
			zap.Duration("duration", elapsed),
			zap.Int64("active", remaining),
		)
	}()
}

// exec runs fn with panic recovery.
func (s *scope) exec(fn workerFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicError(r)
		}
	}()
	return fn(s.ctx)
}

func (s *scope) recordError(err error) {
	s.errOnce.Do(func() {
		s.firstErr = err
		s.cancel(err)
	})
}

// wait closes the scope, cancels its context and blocks until every worker
// has returned. It returns the first worker failure.
func (s *scope) wait() error {
	s.open.Store(false)
	s.cancel(nil)
	s.wg.Wait()
	return s.firstErr
}
