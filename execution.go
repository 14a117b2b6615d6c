package procstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	stdoutSource = iota
	stderrSource
	outputSources
)

var (
	errEmptyPath    = errors.New("empty executable path")
	errStreamClosed = errors.New("procstream: stream closed")
)

type phase int

const (
	phaseIdle phase = iota
	phaseRunning
	phaseDone
)

// execution is one launch of a LaunchSpec. It exclusively owns the child
// process and its three pipes from the first Next until the terminal event,
// an error, or Close.
type execution struct {
	spec   LaunchSpec
	stdin  *Stream[[]byte]
	cfg    config
	slots  *semaphore
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelCauseFunc
	closed atomic.Bool

	// phase is only touched by the consumer goroutine.
	phase phase

	// mu orders start against a concurrent Close.
	mu        sync.Mutex
	cmd       *exec.Cmd
	pipes     []io.Closer
	workers   *scope
	events    *eventChannel
	release   func()
	stopWatch func() bool

	readers sync.WaitGroup
	exited  chan struct{}
	waitErr error

	killOnce     sync.Once
	shutdownOnce sync.Once
}

func newExecution(parent context.Context, spec LaunchSpec, stdin *Stream[[]byte], cfg config, slots *semaphore, logger *zap.Logger) *execution {
	ctx, cancel := context.WithCancelCause(parent)
	return &execution{
		spec:    spec,
		stdin:   stdin,
		cfg:     cfg,
		slots:   slots,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		release: func() {},
	}
}

// next is the pull function of the event stream.
func (e *execution) next(ctx context.Context) (TaskEvent, error) {
	if e.closed.Load() {
		return TaskEvent{}, io.EOF
	}

	switch e.phase {
	case phaseIdle:
		e.phase = phaseRunning
		ev, err := e.start(ctx)
		if err != nil {
			e.phase = phaseDone
			return e.abort(err)
		}
		return ev, nil
	case phaseDone:
		return TaskEvent{}, io.EOF
	}

	ev, ok, err := e.events.next(ctx)
	if err != nil {
		// The consumer gave up waiting; treat it as unsubscribing.
		e.phase = phaseDone
		return e.abort(err)
	}
	if ok {
		return ev, nil
	}

	e.phase = phaseDone
	return e.finish(ctx)
}

// start spawns the child and its workers and returns the Launch event.
func (e *execution) start(ctx context.Context) (TaskEvent, error) {
	if err := e.ctx.Err(); err != nil {
		return TaskEvent{}, context.Cause(e.ctx)
	}
	if e.spec.path == "" {
		return TaskEvent{}, e.launchFailure(errEmptyPath)
	}

	release, err := e.acquireSlot(ctx)
	if err != nil {
		return TaskEvent{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		release()
		return TaskEvent{}, io.EOF
	}

	cmd := exec.Command(e.spec.path, e.spec.arguments...)
	cmd.Dir = e.spec.workingDir
	cmd.Env = e.spec.environ()

	var pipes []io.Closer
	closePipes := func() {
		for _, p := range pipes {
			_ = p.Close()
		}
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		release()
		return TaskEvent{}, e.launchFailure(fmt.Errorf("create stdin pipe: %w", err))
	}
	pipes = append(pipes, stdin)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		closePipes()
		release()
		return TaskEvent{}, e.launchFailure(fmt.Errorf("create stdout pipe: %w", err))
	}
	pipes = append(pipes, stdout)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		closePipes()
		release()
		return TaskEvent{}, e.launchFailure(fmt.Errorf("create stderr pipe: %w", err))
	}
	pipes = append(pipes, stderr)

	if err := cmd.Start(); err != nil {
		closePipes()
		release()
		return TaskEvent{}, e.launchFailure(err)
	}

	e.cmd = cmd
	e.pipes = pipes
	e.release = release
	e.logger = e.logger.With(zap.Int("pid", cmd.Process.Pid))
	e.workers = newScope(e.ctx, e.logger)
	e.events = newEventChannel(e.workers.ctx, outputSources, e.cfg.eventBuffer)
	e.exited = make(chan struct{})

	e.readers.Add(outputSources)
	e.workers.spawn("stdout", e.drain(stdout, stdoutSource, EventStdOut))
	e.workers.spawn("stderr", e.drain(stderr, stderrSource, EventStdErr))
	e.workers.spawn("wait", e.await)
	if e.stdin != nil {
		e.workers.spawn("stdin", e.feed(stdin))
	} else {
		_ = stdin.Close()
	}
	e.stopWatch = context.AfterFunc(e.workers.ctx, e.terminate)

	e.logger.Debug("process launched", zap.Strings("arguments", e.spec.arguments))
	return LaunchEvent(e.spec.path), nil
}

func (e *execution) acquireSlot(ctx context.Context) (func(), error) {
	if e.slots == nil {
		return func() {}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(e.ctx, cancel)
	defer stop()

	if err := e.slots.Acquire(ctx); err != nil {
		if e.ctx.Err() != nil {
			return nil, context.Cause(e.ctx)
		}
		return nil, err
	}
	return sync.OnceFunc(e.slots.Release), nil
}

// drain reads one output pipe until EOF and emits every chunk.
func (e *execution) drain(r io.Reader, src int, kind EventKind) workerFunc {
	return func(ctx context.Context) error {
		defer e.readers.Done()
		defer e.events.done(src)

		buf := make([]byte, e.cfg.readBufferSize)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				ev := TaskEvent{Kind: kind, Data: bytes.Clone(buf[:n])}
				if serr := e.events.emit(ctx, src, ev); serr != nil {
					return nil
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
					e.logger.Debug("output pipe read failed", zap.Stringer("pipe", kind), zap.Error(err))
				}
				return nil
			}
		}
	}
}

// feed copies the input stream into the child's stdin and closes it once
// the input is exhausted. When the launch ends first, the input stream is
// closed so that a source blocked in a read can return.
func (e *execution) feed(w io.WriteCloser) workerFunc {
	return func(ctx context.Context) error {
		stop := context.AfterFunc(ctx, e.stdin.Close)
		defer stop()
		defer e.stdin.Close()
		defer w.Close()

		for {
			chunk, err := e.pull(ctx)
			if err == io.EOF {
				return nil
			}
			var pe *PanicError
			if errors.As(err, &pe) {
				return pe
			}
			if err != nil {
				if ctx.Err() == nil {
					e.logger.Warn("stdin stream failed, closing child stdin", zap.Error(err))
				}
				return nil
			}
			if len(chunk) == 0 {
				continue
			}
			if _, err := w.Write(chunk); err != nil {
				e.logger.Debug("child stopped accepting stdin", zap.Error(err))
				return nil
			}
		}
	}
}

type pulled struct {
	chunk []byte
	err   error
}

// pull returns the next input chunk, or ctx's error once ctx is done. A
// source that honours neither ctx nor Close finishes its last pull on its
// own goroutine after the launch is over.
func (e *execution) pull(ctx context.Context) ([]byte, error) {
	res := make(chan pulled, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				res <- pulled{err: newPanicError(r)}
			}
		}()
		chunk, err := e.stdin.Next(ctx)
		res <- pulled{chunk: chunk, err: err}
	}()

	select {
	case r := <-res:
		return r.chunk, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// await reaps the child once both output pipes are drained. Waiting
// earlier would close the pipes under the readers.
func (e *execution) await(context.Context) error {
	e.readers.Wait()
	e.waitErr = e.cmd.Wait()
	close(e.exited)
	return nil
}

// terminate stops a child that is still running: it sends the termination
// signal, stops reading its output, and kills it once the grace period
// runs out. It returns after the child was reaped.
func (e *execution) terminate() {
	e.killOnce.Do(func() {
		select {
		case <-e.exited:
			return
		default:
		}

		proc := e.cmd.Process
		e.logger.Debug("terminating process", zap.Stringer("signal", e.cfg.termSignal))
		if err := proc.Signal(e.cfg.termSignal); err != nil && !errors.Is(err, os.ErrProcessDone) {
			e.logger.Warn("failed to signal process", zap.Error(err))
		}

		// Descendants may hold the pipes open long after the child is gone.
		for _, p := range e.pipes {
			_ = p.Close()
		}

		if e.cfg.gracePeriod > 0 {
			grace := time.NewTimer(e.cfg.gracePeriod)
			defer grace.Stop()

			select {
			case <-e.exited:
				return
			case <-grace.C:
			}
			e.logger.Warn("process did not exit after termination signal, killing",
				zap.Duration("grace_period", e.cfg.gracePeriod))
		}

		if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			e.logger.Warn("failed to kill process", zap.Error(err))
		}
		<-e.exited
	})
}

// finish produces the terminal event or error once both pipes hit EOF.
func (e *execution) finish(ctx context.Context) (TaskEvent, error) {
	select {
	case <-e.exited:
	case <-ctx.Done():
		return e.abort(ctx.Err())
	}

	// A cancelled launch or a failed worker outranks however the child
	// ended after being signalled.
	if e.workers.ctx.Err() != nil {
		return e.abort(context.Cause(e.workers.ctx))
	}

	e.shutdown()
	return e.classify()
}

func (e *execution) classify() (TaskEvent, error) {
	if e.waitErr == nil {
		e.logger.Debug("process exited", zap.Int("status", 0))
		return ExitEvent(0), nil
	}

	var exitErr *exec.ExitError
	if !errors.As(e.waitErr, &exitErr) {
		return TaskEvent{}, fmt.Errorf("wait for %s: %w", e.spec.path, e.waitErr)
	}

	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		e.logger.Debug("process killed by signal", zap.Stringer("signal", ws.Signal()))
		return TaskEvent{}, &TaskError{Kind: KindUncaughtSignal, Path: e.spec.path, Signal: ws.Signal()}
	}

	code := exitErr.ExitCode()
	if code < 0 {
		return TaskEvent{}, &TaskError{Kind: KindUncaughtSignal, Path: e.spec.path}
	}
	e.logger.Debug("process exited", zap.Int("status", code))
	return TaskEvent{}, &TaskError{Kind: KindExit, Path: e.spec.path, StatusCode: code}
}

func (e *execution) launchFailure(err error) *TaskError {
	e.logger.Debug("process failed to launch", zap.Error(err))
	return &TaskError{Kind: KindLaunchFailure, Path: e.spec.path, Err: err}
}

// abort tears the launch down and reports err, or io.EOF when the
// teardown was requested through Close.
func (e *execution) abort(err error) (TaskEvent, error) {
	e.shutdown()
	if e.closed.Load() {
		return TaskEvent{}, io.EOF
	}
	return TaskEvent{}, err
}

// close implements Stream.Close for the event stream.
func (e *execution) close() {
	e.closed.Store(true)
	e.cancel(errStreamClosed)
	e.shutdown()
}

// shutdown releases everything the launch owns: the child is terminated if
// still running and reaped, every worker is joined, and the process slot
// is returned. It blocks until all of that is done.
func (e *execution) shutdown() {
	e.shutdownOnce.Do(func() {
		e.mu.Lock()
		started := e.workers != nil
		e.mu.Unlock()

		if !started {
			if e.stdin != nil {
				e.stdin.Close()
			}
			e.cancel(nil)
			return
		}

		// Readers blocked on a consumer that is gone only return once the
		// context is cancelled, and the child is not reaped before they do.
		e.stopWatch()
		e.cancel(nil)
		e.terminate()
		_ = e.workers.wait()
		e.release()
	})
}
