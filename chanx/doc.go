// Package chanx provides the context-aware channel operations procstream
// builds its event fan-in from.
//
// Go channels are powerful but have sharp edges: blocked sends leak
// goroutines, and combining channels with context cancellation requires
// careful select statements.
//
//   - [Send] and [Recv]: context-aware send and receive that unblock on
//     cancellation instead of leaking goroutines.
//   - [Merge]: fan-in that combines multiple channels into one, keeping the
//     order of every individual input.
//
// All functions that spawn goroutines tie them to a [context.Context],
// ensuring they terminate when the context is canceled.
package chanx
