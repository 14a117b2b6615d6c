// Package procstream runs external processes and exposes each run as an
// ordered, pull-based stream of events.
//
// # Launching
//
// A [LaunchSpec] describes what to run: an executable path, arguments, an
// optional working directory and an optional environment. Launching it
// returns a [Stream] of [TaskEvent] values:
//
//	spec := procstream.NewLaunchSpec("/bin/sh", "-c", "echo hello")
//	events := spec.Launch(ctx, nil)
//	defer events.Close()
//
//	for {
//	    ev, err := events.Next(ctx)
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(ev)
//	}
//
// The stream is cold: the child is spawned by the first Next call. A run
// always yields one Launch event first, then StdOut and StdErr chunks as
// they are read, and ends with an Exit event for status 0. Chunks of one
// pipe keep their order; chunks of different pipes interleave in whatever
// order they were read.
//
// # Failures
//
// Runs that do not exit cleanly fail the stream with a [*TaskError]:
//
//   - [KindExit]: the child exited with a non-zero status. Match it with
//     errors.Is(err, procstream.ExitStatus(code)).
//   - [KindUncaughtSignal]: the child was killed by a signal.
//   - [KindLaunchFailure]: the child could not be spawned. The error
//     unwraps to the OS error, e.g. fs.ErrNotExist.
//
// Output emitted before a failure is still delivered.
//
// # Standard Input
//
// Pass a Stream[[]byte] as stdin to feed the child. [FromReader],
// [FromSlice] and [FromChan] build one from common sources. The child's
// stdin is closed once the input stream ends; with a nil input it is
// closed right after the spawn. A child may also exit while its input is
// still open, for instance a FromReader over os.Stdin waiting on a
// terminal. The launch then closes the input stream and reports the exit
// without waiting for the pending read.
//
// # Cancellation
//
// Cancelling the launch context, cancelling the context of a waiting Next
// call, or calling [Stream.Close] terminates the child (the termination
// signal first, SIGKILL after [WithGracePeriod]) and joins all goroutines
// of the run before returning. Derived streams such as [Stream.Take]
// release the launch when they are done with it.
//
// # Runners
//
// A [Runner] carries configuration shared by many launches: a
// [go.uber.org/zap] logger, pipe buffer sizes, the grace period and an
// optional [WithMaxProcesses] limit. [LoadConfig] reads the same settings
// from a file and PROCSTREAM_* environment variables, and [LoadManifest]
// reads named launch specs from YAML.
//
// # Projections
//
// [JustOutput] reduces an event stream to its output payloads and
// [JustExitStatus] to its exit status.
package procstream
