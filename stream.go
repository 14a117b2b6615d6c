package procstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrInvalidChunkSize is returned by [FromReader] streams built with a
// non-positive chunk size.
var ErrInvalidChunkSize = fmt.Errorf("procstream: chunk size must be positive")

// Stream represents a structured, pull-based data stream.
//
// A stream may own resources (a running process, an upstream stream).
// Consumers that stop pulling before io.EOF or an error must call
// [Stream.Close] to release them; derived streams forward Close upstream.
//
// Note: Streams are single-consumer. Next() and other terminal methods
// must not be called concurrently. Close may be called from any goroutine.
type Stream[T any] struct {
	next     func(ctx context.Context) (T, error)
	stop     func()
	stopOnce sync.Once
	err      error
	mu       sync.Mutex
}

// NewStream creates a new stream from an iterator function. The iterator
// returns io.EOF when exhausted.
func NewStream[T any](next func(context.Context) (T, error)) *Stream[T] {
	return &Stream[T]{
		next: next,
	}
}

// newOwningStream creates a stream whose Close runs stop.
func newOwningStream[T any](next func(context.Context) (T, error), stop func()) *Stream[T] {
	return &Stream[T]{
		next: next,
		stop: stop,
	}
}

// Next returns the next item in the stream.
// Returns io.EOF when the stream is exhausted.
func (s *Stream[T]) Next(ctx context.Context) (T, error) {
	val, err := s.next(ctx)
	if err != nil && err != io.EOF {
		s.setError(err)
	}
	return val, err
}

// Err returns the first non-EOF error the stream produced.
func (s *Stream[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream[T]) setError(err error) {
	if err == nil || err == io.EOF {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Close releases the resources behind the stream. It is idempotent and
// blocks until the release has finished.
func (s *Stream[T]) Close() {
	s.stopNow()
}

func (s *Stream[T]) stopNow() {
	s.stopOnce.Do(func() {
		if s.stop != nil {
			s.stop()
		}
	})
}

// Filter returns a stream of the items for which fn returns true.
func (s *Stream[T]) Filter(fn func(T) bool) *Stream[T] {
	return newOwningStream(func(ctx context.Context) (T, error) {
		for {
			val, err := s.Next(ctx)
			if err != nil {
				return val, err
			}
			if fn(val) {
				return val, nil
			}
		}
	}, s.stopNow)
}

// Take limits the stream to n items. Once the n-th item has been returned
// the source is closed.
func (s *Stream[T]) Take(n int) *Stream[T] {
	var idx int
	return newOwningStream(func(ctx context.Context) (T, error) {
		if idx >= n {
			s.stopNow()
			var zero T
			return zero, io.EOF
		}
		val, err := s.Next(ctx)
		if err != nil {
			return val, err
		}
		idx++
		if idx >= n {
			s.stopNow()
		}
		return val, nil
	}, s.stopNow)
}

// Skip skips the first n items in the stream.
func (s *Stream[T]) Skip(n int) *Stream[T] {
	var skipped int
	return newOwningStream(func(ctx context.Context) (T, error) {
		for skipped < n {
			_, err := s.Next(ctx)
			if err != nil {
				var zero T
				return zero, err
			}
			skipped++
		}
		return s.Next(ctx)
	}, s.stopNow)
}

// Peek allows inspecting items as they pass through the stream.
func (s *Stream[T]) Peek(fn func(T)) *Stream[T] {
	return newOwningStream(func(ctx context.Context) (T, error) {
		val, err := s.Next(ctx)
		if err == nil {
			fn(val)
		}
		return val, err
	}, s.stopNow)
}

// FromSlice creates a stream from a slice.
func FromSlice[T any](items []T) *Stream[T] {
	var idx int
	return NewStream(func(ctx context.Context) (T, error) {
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		default:
		}
		if idx >= len(items) {
			var zero T
			return zero, io.EOF
		}
		val := items[idx]
		idx++
		return val, nil
	})
}

// FromChan creates a stream from a channel. The stream ends when ch is
// closed.
func FromChan[T any](ch <-chan T) *Stream[T] {
	return NewStream(func(ctx context.Context) (T, error) {
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case v, ok := <-ch:
			if !ok {
				var zero T
				return zero, io.EOF
			}
			return v, nil
		}
	})
}

// FromFunc creates a stream from a function.
func FromFunc[T any](fn func(context.Context) (T, error)) *Stream[T] {
	return NewStream(fn)
}

// FromReader creates a stream of chunks of at most chunkSize bytes read
// from r. Every chunk is a fresh slice. The context is checked between
// reads only. If r is an io.Closer, Close closes it, which is how a read
// blocked on a pipe or a terminal is interrupted.
func FromReader(r io.Reader, chunkSize int) *Stream[[]byte] {
	buf := make([]byte, max(chunkSize, 0))
	next := func(ctx context.Context) ([]byte, error) {
		if chunkSize <= 0 {
			return nil, ErrInvalidChunkSize
		}
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			n, err := r.Read(buf)
			if n > 0 {
				return bytes.Clone(buf[:n]), nil
			}
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			if err != nil {
				return nil, err
			}
		}
	}
	return newOwningStream(next, func() {
		if c, ok := r.(io.Closer); ok {
			_ = c.Close()
		}
	})
}

// Map transforms a stream using a function.
// Note: This is a function and not a method because Go does not support
// generic methods on generic types.
func Map[A, B any](s *Stream[A], fn func(context.Context, A) (B, error)) *Stream[B] {
	return newOwningStream(func(ctx context.Context) (B, error) {
		val, err := s.Next(ctx)
		if err != nil {
			var zero B
			return zero, err
		}
		return fn(ctx, val)
	}, s.stopNow)
}

// ToSlice collects all items in the stream into a slice. On failure it
// returns the items collected so far together with the error, following
// io.Reader conventions.
func (s *Stream[T]) ToSlice(ctx context.Context) ([]T, error) {
	var items []T
	for {
		val, err := s.Next(ctx)
		if err == io.EOF {
			return items, s.Err()
		}
		if err != nil {
			return items, err
		}
		items = append(items, val)
	}
}

// Collect is an alias for ToSlice.
func (s *Stream[T]) Collect(ctx context.Context) ([]T, error) {
	return s.ToSlice(ctx)
}

// ForEach applies a function to each item in the stream. If fn fails, the
// stream is closed and fn's error is returned.
func (s *Stream[T]) ForEach(ctx context.Context, fn func(T) error) error {
	for {
		val, err := s.Next(ctx)
		if err == io.EOF {
			return s.Err()
		}
		if err != nil {
			return err
		}
		if err := fn(val); err != nil {
			s.stopNow()
			return err
		}
	}
}

// Count counts the number of items in the stream.
func (s *Stream[T]) Count(ctx context.Context) (int, error) {
	var count int
	for {
		_, err := s.Next(ctx)
		if err == io.EOF {
			return count, s.Err()
		}
		if err != nil {
			return count, err
		}
		count++
	}
}
