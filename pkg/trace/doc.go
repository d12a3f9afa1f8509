// Package trace records the lifecycle of TLS contexts, sessions and the
// handoff signal as a machine-readable event stream.
//
// It is separate from operational logging (slog). Operational logs are for
// people; the trace is what tests and the handoff-trace tool use to check
// ordering, for example that a session was always destroyed before the
// context it was bound to.
//
// # Basic Usage
//
//	// Development: mirror events into slog
//	var logger trace.Logger = trace.NewSlogAdapter(slog.Default())
//
//	// Capture to a CBOR file (.htrace: a versioned Header, then events)
//	fl, _ := trace.NewFileLogger("/tmp/run.htrace")
//
//	// In tests: keep events in memory
//	rec := trace.NewRecorder()
//
//	// Several at once
//	logger = trace.NewMultiLogger(logger, fl, rec)
//
// # Event Types
//
//   - Lifecycle: a context, session or task changed state (LifecycleEvent)
//   - Load: one of the three certificate material load steps ran (LoadEvent)
//   - Signal: the handoff notification was raised, awaited or timed out
//   - Error: any reported condition with its numeric code
package trace
