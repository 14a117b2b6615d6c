package chanx

import (
	"context"
	"sync"
)

// Merge combines multiple input channels into a single output channel
// (fan-in). The output channel is closed once every input is closed and
// its values have been forwarded, or when the context is cancelled.
//
// Values of one input keep their relative order; the interleaving between
// different inputs is non-deterministic. Nil inputs are ignored.
//
// Every internal goroutine is tied to ctx and will exit promptly on
// cancellation.
func Merge[T any](ctx context.Context, chs ...<-chan T) <-chan T {
	out := make(chan T)

	var wg sync.WaitGroup
	for _, ch := range chs {
		if ch == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case v, ok := <-ch:
					if !ok {
						return
					}
					select {
					case out <- v:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
