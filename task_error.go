package procstream

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrorKind classifies a [*TaskError].
type ErrorKind int

const (
	// KindExit means the child ran to completion with a non-zero status.
	KindExit ErrorKind = iota + 1

	// KindUncaughtSignal means the child was terminated by a signal it did
	// not handle, so no exit status is available.
	KindUncaughtSignal

	// KindLaunchFailure means the child could not be spawned at all.
	KindLaunchFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindExit:
		return "exit"
	case KindUncaughtSignal:
		return "uncaught signal"
	case KindLaunchFailure:
		return "launch failure"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Sentinels for errors.Is. They match any [*TaskError] of the same kind.
var (
	ErrUncaughtSignal = &TaskError{Kind: KindUncaughtSignal}
	ErrLaunchFailure  = &TaskError{Kind: KindLaunchFailure}
)

// TaskError is the terminal failure of a launch. Output events emitted
// before the failure are never retracted.
//
// Use errors.Is with [ExitStatus], [ErrUncaughtSignal] or [ErrLaunchFailure]
// to match a kind; launch failures also unwrap to the underlying OS error,
// so errors.Is(err, fs.ErrNotExist) works for a missing executable.
type TaskError struct {
	Kind ErrorKind

	// Path is the executable the failure belongs to.
	Path string

	// StatusCode is the exit status for KindExit.
	StatusCode int

	// Signal is the terminating signal for KindUncaughtSignal, when the
	// platform reports it.
	Signal syscall.Signal

	// Err is the underlying cause for KindLaunchFailure.
	Err error
}

// ExitStatus returns a [*TaskError] of kind KindExit for code, suitable as
// an errors.Is target.
func ExitStatus(code int) *TaskError {
	return &TaskError{Kind: KindExit, StatusCode: code}
}

func (e *TaskError) Error() string {
	prefix := "process"
	if e.Path != "" {
		prefix = fmt.Sprintf("process %q", e.Path)
	}
	switch e.Kind {
	case KindExit:
		return fmt.Sprintf("%s exited with status %d", prefix, e.StatusCode)
	case KindUncaughtSignal:
		if e.Signal != 0 {
			return fmt.Sprintf("%s terminated by uncaught signal: %v", prefix, e.Signal)
		}
		return prefix + " terminated by uncaught signal"
	case KindLaunchFailure:
		if e.Err != nil {
			return fmt.Sprintf("%s failed to launch: %v", prefix, e.Err)
		}
		return prefix + " failed to launch"
	default:
		return fmt.Sprintf("%s failed: %v", prefix, e.Kind)
	}
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Is matches targets of the same kind. A KindExit target also has to carry
// the same status code.
func (e *TaskError) Is(target error) bool {
	t, ok := target.(*TaskError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return e.Kind != KindExit || t.StatusCode == e.StatusCode
}

// IsTaskError reports whether err (or any error in its chain) is a [*TaskError].
func IsTaskError(err error) bool {
	if err == nil {
		return false
	}
	var te *TaskError
	return errors.As(err, &te)
}

// KindOf returns the kind of the first [*TaskError] in err's chain.
// Returns false if no TaskError is found.
func KindOf(err error) (ErrorKind, bool) {
	var te *TaskError
	if err != nil && errors.As(err, &te) {
		return te.Kind, true
	}
	return 0, false
}

// ExitStatusOf extracts the exit status from a KindExit [*TaskError] in
// err's chain.
func ExitStatusOf(err error) (int, bool) {
	var te *TaskError
	if err != nil && errors.As(err, &te) && te.Kind == KindExit {
		return te.StatusCode, true
	}
	return 0, false
}

// CauseOf unwraps the first [*TaskError] in err's chain and returns its
// underlying cause. If err is not a TaskError, or the TaskError carries no
// cause, err is returned as-is. Returns nil if err is nil.
func CauseOf(err error) error {
	if err == nil {
		return nil
	}

	var te *TaskError
	if errors.As(err, &te) && te.Err != nil {
		return te.Err
	}

	return err
}
