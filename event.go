package procstream

import (
	"bytes"
	"fmt"
)

// EventKind classifies a [TaskEvent].
type EventKind int

const (
	// EventLaunch is emitted once, first, when the child has been spawned.
	EventLaunch EventKind = iota

	// EventStdOut carries a chunk read from the child's standard output.
	EventStdOut

	// EventStdErr carries a chunk read from the child's standard error.
	EventStdErr

	// EventExit is the terminal event of a clean run. It is only emitted
	// for exit status 0; other outcomes fail the stream with a [*TaskError].
	EventExit
)

// String returns a human-readable kind name.
func (k EventKind) String() string {
	switch k {
	case EventLaunch:
		return "launch"
	case EventStdOut:
		return "stdout"
	case EventStdErr:
		return "stderr"
	case EventExit:
		return "exit"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// TaskEvent is a single observation of a running process. Only the payload
// field matching Kind is meaningful:
//
//   - EventLaunch: Command
//   - EventStdOut, EventStdErr: Data
//   - EventExit: StatusCode
type TaskEvent struct {
	Kind       EventKind
	Command    string
	Data       []byte
	StatusCode int
}

// LaunchEvent returns the event announcing that command was spawned.
func LaunchEvent(command string) TaskEvent {
	return TaskEvent{Kind: EventLaunch, Command: command}
}

// StdOutEvent returns an event carrying a standard output chunk.
func StdOutEvent(data []byte) TaskEvent {
	return TaskEvent{Kind: EventStdOut, Data: data}
}

// StdErrEvent returns an event carrying a standard error chunk.
func StdErrEvent(data []byte) TaskEvent {
	return TaskEvent{Kind: EventStdErr, Data: data}
}

// ExitEvent returns the terminal event for the given status code.
func ExitEvent(statusCode int) TaskEvent {
	return TaskEvent{Kind: EventExit, StatusCode: statusCode}
}

// IsOutput reports whether e carries stdout or stderr data.
func (e TaskEvent) IsOutput() bool {
	return e.Kind == EventStdOut || e.Kind == EventStdErr
}

// Equal reports whether e and o are the same event. Fields that do not
// belong to the kind are ignored.
func (e TaskEvent) Equal(o TaskEvent) bool {
	if e.Kind != o.Kind {
		return false
	}
	switch e.Kind {
	case EventLaunch:
		return e.Command == o.Command
	case EventStdOut, EventStdErr:
		return bytes.Equal(e.Data, o.Data)
	case EventExit:
		return e.StatusCode == o.StatusCode
	default:
		return false
	}
}

func (e TaskEvent) String() string {
	switch e.Kind {
	case EventLaunch:
		return fmt.Sprintf("launch(%s)", e.Command)
	case EventStdOut, EventStdErr:
		return fmt.Sprintf("%s(%q)", e.Kind, e.Data)
	case EventExit:
		return fmt.Sprintf("exit(%d)", e.StatusCode)
	default:
		return e.Kind.String()
	}
}
