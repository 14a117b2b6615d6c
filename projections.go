package procstream

import "context"

// JustOutput keeps only the payloads of the StdOut and StdErr events of s,
// in order. Failures of s pass through unchanged.
func JustOutput(s *Stream[TaskEvent]) *Stream[[]byte] {
	return Map(s.Filter(TaskEvent.IsOutput), func(_ context.Context, ev TaskEvent) ([]byte, error) {
		return ev.Data, nil
	})
}

// JustExitStatus keeps only the status codes of the Exit events of s.
// Failures of s pass through unchanged.
func JustExitStatus(s *Stream[TaskEvent]) *Stream[int] {
	exits := s.Filter(func(ev TaskEvent) bool { return ev.Kind == EventExit })
	return Map(exits, func(_ context.Context, ev TaskEvent) (int, error) {
		return ev.StatusCode, nil
	})
}
