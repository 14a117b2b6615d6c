package procstream

import (
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultReadBufferSize is the size of the buffer each output pipe is
	// read with. It bounds the size of a single StdOut/StdErr chunk.
	DefaultReadBufferSize = 32 * 1024

	// DefaultEventBuffer is the number of chunks each output pipe may have
	// in flight before its reader waits for the consumer.
	DefaultEventBuffer = 8

	// DefaultGracePeriod is how long a child gets to exit after the
	// termination signal before it is killed.
	DefaultGracePeriod = 5 * time.Second
)

type config struct {
	logger         *zap.Logger
	readBufferSize int
	eventBuffer    int
	gracePeriod    time.Duration
	termSignal     os.Signal
	maxProcesses   int
}

// Option configures a [Runner].
type Option func(*config)

func defaultConfig() config {
	return config{
		logger:         zap.NewNop(),
		readBufferSize: DefaultReadBufferSize,
		eventBuffer:    DefaultEventBuffer,
		gracePeriod:    DefaultGracePeriod,
		termSignal:     syscall.SIGTERM,
	}
}

// WithLogger sets the logger launches report their lifecycle to.
// A nil logger disables logging.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l == nil {
			l = zap.NewNop()
		}
		c.logger = l
	}
}

// WithReadBufferSize sets the read buffer size of the output pipes.
// It panics if n is not positive.
func WithReadBufferSize(n int) Option {
	if n <= 0 {
		panic("procstream: read buffer size must be positive")
	}
	return func(c *config) {
		c.readBufferSize = n
	}
}

// WithEventBuffer sets how many chunks per output pipe may wait for the
// consumer. Zero makes every reader hand chunks over synchronously.
// It panics if n is negative.
func WithEventBuffer(n int) Option {
	if n < 0 {
		panic("procstream: event buffer must be non-negative")
	}
	return func(c *config) {
		c.eventBuffer = n
	}
}

// WithGracePeriod sets how long a cancelled child may take to exit after
// the termination signal before it is killed. Zero kills immediately.
// It panics if d is negative.
func WithGracePeriod(d time.Duration) Option {
	if d < 0 {
		panic("procstream: grace period must be non-negative")
	}
	return func(c *config) {
		c.gracePeriod = d
	}
}

// WithTerminationSignal sets the signal sent to a child when its launch is
// cancelled. It panics if sig is nil.
func WithTerminationSignal(sig os.Signal) Option {
	if sig == nil {
		panic("procstream: termination signal must not be nil")
	}
	return func(c *config) {
		c.termSignal = sig
	}
}

// WithMaxProcesses limits the number of children a Runner keeps alive at
// once. Launches beyond the limit wait in their first Next call. Zero (the
// default) means unlimited. It panics if n is negative.
func WithMaxProcesses(n int) Option {
	if n < 0 {
		panic("procstream: max processes must be non-negative")
	}
	return func(c *config) {
		c.maxProcesses = n
	}
}
