package chanx

import "context"

// Send delivers v on ch or gives up when ctx is done, returning ctx.Err()
// in that case. The output pipe readers hand their chunks to the event
// fan-in through it, so a reader stalls while the consumer is not pulling
// and stops once the launch is torn down.
func Send[T any](ctx context.Context, ch chan<- T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv takes the next value from ch or gives up when ctx is done. The
// boolean is false once ch is closed, which for the merged event channel
// means every output pipe has reached EOF. A done ctx is reported as
// ctx.Err() with a false boolean.
func Recv[T any](ctx context.Context, ch <-chan T) (T, bool, error) {
	select {
	case v, ok := <-ch:
		return v, ok, nil
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}
