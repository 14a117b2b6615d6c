package chanx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSend(t *testing.T) {
	ch := make(chan int, 1) // buffered so Send doesn't block

	err := Send(context.Background(), ch, 12)
	assert.NoError(t, err)

	val := <-ch
	assert.Equal(t, 12, val)
}

func TestSend_ContextCanceled(t *testing.T) {
	ch := make(chan int) // unbuffered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Send(ctx, ch, 12)
	assert.Equal(t, context.Canceled, err)
}

func TestSend_WaitsForReceiver(t *testing.T) {
	ch := make(chan int)

	sent := make(chan error, 1)
	go func() { sent <- Send(context.Background(), ch, 7) }()

	select {
	case <-sent:
		t.Fatal("Send returned with nobody receiving")
	case <-time.After(20 * time.Millisecond):
	}

	v, ok, err := Recv(context.Background(), ch)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, v)
	assert.NoError(t, <-sent)
}

func TestRecv(t *testing.T) {
	ch := make(chan string, 1)
	ch <- "chunk"

	v, ok, err := Recv(context.Background(), ch)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "chunk", v)

	close(ch)
	v, ok, err = Recv(context.Background(), ch)
	assert.NoError(t, err)
	assert.False(t, ok, "closed channel reports ok=false")
	assert.Empty(t, v)
}

func TestRecv_ContextCanceled(t *testing.T) {
	ch := make(chan int)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := Recv(ctx, ch)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}
