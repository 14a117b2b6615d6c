package procstream

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Runner launches processes as event streams. A Runner holds configuration
// shared by its launches and, with [WithMaxProcesses], a limit on how many
// of them may run at once. The zero value is not usable; use [NewRunner].
//
// A Runner is safe for concurrent use.
type Runner struct {
	cfg   config
	slots *semaphore
}

// NewRunner creates a Runner configured by opts.
func NewRunner(opts ...Option) *Runner {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Runner{cfg: cfg}
	if cfg.maxProcesses > 0 {
		r.slots = newSemaphore(cfg.maxProcesses)
	}
	return r
}

// Launch returns the event stream of one run of spec.
//
// The stream is cold: nothing is spawned until its first Next call, which
// starts the child and yields the Launch event. Every later Next yields the
// child's output in pipe order, and the last one yields the Exit event for
// status 0 or fails with a *TaskError. A spawn failure is reported by the
// first Next as a *TaskError of kind KindLaunchFailure with no events.
//
// If stdin is non-nil its chunks are written to the child's standard input,
// which is closed once stdin ends; otherwise the child's standard input is
// closed right after spawning. The stream takes ownership of stdin and
// closes it, at the latest when the launch ends.
//
// Cancelling ctx, cancelling the ctx passed to Next while it waits, or
// calling Close terminates the child and joins every goroutine of the launch
// before returning. Each returned stream launches at most once.
func (r *Runner) Launch(ctx context.Context, spec LaunchSpec, stdin *Stream[[]byte]) *Stream[TaskEvent] {
	logger := r.cfg.logger.With(
		zap.String("launch_id", uuid.NewString()),
		zap.String("path", spec.path),
	)
	e := newExecution(ctx, spec, stdin, r.cfg, r.slots, logger)
	return newOwningStream(e.next, e.close)
}

// Launch is shorthand for NewRunner(opts...).Launch(ctx, s, stdin).
func (s LaunchSpec) Launch(ctx context.Context, stdin *Stream[[]byte], opts ...Option) *Stream[TaskEvent] {
	return NewRunner(opts...).Launch(ctx, s, stdin)
}
