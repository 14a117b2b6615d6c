package procstream

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJustOutput(t *testing.T) {
	events := FromSlice([]TaskEvent{
		LaunchEvent("/bin/x"),
		StdOutEvent([]byte("a")),
		StdErrEvent([]byte("b")),
		StdOutEvent([]byte("c")),
		ExitEvent(0),
	})

	out, err := JustOutput(events).ToSlice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, out)
}

func TestJustExitStatus(t *testing.T) {
	events := FromSlice([]TaskEvent{
		LaunchEvent("/bin/x"),
		StdOutEvent([]byte("a")),
		ExitEvent(0),
	})

	codes, err := JustExitStatus(events).ToSlice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{0}, codes)
}

func TestProjectionsPassFailuresThrough(t *testing.T) {
	failing := func() *Stream[TaskEvent] {
		var i int
		return NewStream(func(ctx context.Context) (TaskEvent, error) {
			i++
			switch i {
			case 1:
				return LaunchEvent("/bin/x"), nil
			case 2:
				return StdOutEvent([]byte("partial")), nil
			default:
				return TaskEvent{}, ExitStatus(100)
			}
		})
	}

	out, err := JustOutput(failing()).ToSlice(context.Background())
	assert.ErrorIs(t, err, ExitStatus(100))
	assert.Equal(t, [][]byte{[]byte("partial")}, out)

	codes, err := JustExitStatus(failing()).ToSlice(context.Background())
	assert.True(t, errors.Is(err, ExitStatus(100)))
	assert.Empty(t, codes)
}

func TestProjectionsOnRealProcess(t *testing.T) {
	spec := script(t, "echo hello\necho world")
	ctx := context.Background()

	out, err := JustOutput(testRunner(t).Launch(ctx, spec, nil)).ToSlice(ctx)
	require.NoError(t, err)
	var joined []byte
	for _, chunk := range out {
		joined = append(joined, chunk...)
	}
	assert.Equal(t, "hello\nworld\n", string(joined))

	codes, err := JustExitStatus(testRunner(t).Launch(ctx, spec, nil)).ToSlice(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, codes)
}
