package procstream

import (
	"context"
	"sync"

	"github.com/baxromumarov/procstream/chanx"
)

// eventChannel serializes the events of several concurrent producers into
// one sequence. Each producer owns a bounded source channel; the sources
// are fanned in with chanx.Merge, so a producer's own events keep their
// order and the merged sequence ends only after every source was closed and
// drained.
//
// A full source blocks its producer until the consumer catches up, which is
// how consumer backpressure reaches the pipe readers.
type eventChannel struct {
	sources []chan TaskEvent
	closers []sync.Once
	merged  <-chan TaskEvent
}

func newEventChannel(ctx context.Context, producers, buffer int) *eventChannel {
	c := &eventChannel{
		sources: make([]chan TaskEvent, producers),
		closers: make([]sync.Once, producers),
	}
	ins := make([]<-chan TaskEvent, producers)
	for i := range c.sources {
		c.sources[i] = make(chan TaskEvent, buffer)
		ins[i] = c.sources[i]
	}
	c.merged = chanx.Merge(ctx, ins...)
	return c
}

// emit hands ev to the consumer on behalf of producer src. It blocks while
// the source is full and returns the context error if ctx ends first.
func (c *eventChannel) emit(ctx context.Context, src int, ev TaskEvent) error {
	return chanx.Send(ctx, c.sources[src], ev)
}

// done marks producer src as finished. It is idempotent.
func (c *eventChannel) done(src int) {
	c.closers[src].Do(func() { close(c.sources[src]) })
}

// next returns the next merged event. ok is false once every producer is
// done and all of their events were delivered (or the merge context ended).
func (c *eventChannel) next(ctx context.Context) (ev TaskEvent, ok bool, err error) {
	return chanx.Recv(ctx, c.merged)
}
