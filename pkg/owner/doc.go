// Package owner holds the TLS context and session of one client identity.
//
// An Owner is shared by reference between exactly two tasks: the owning
// task and a worker. Neither task takes a lock. Instead their mutation
// windows are disjoint by protocol:
//
//   - the owning task mutates until it spawns the worker;
//   - the worker mutates until it raises the handoff signal;
//   - the owning task mutates again only after it observed that signal.
//
// If the wait for the signal times out, the owning task must not touch the
// Owner again. The session the worker may have built is then leaked on
// purpose.
//
// Each mutating method enters a short mutation window guarded by an atomic
// flag. The flag is a tripwire, not a lock: a call that overlaps another
// fails with ErrConcurrentMutation instead of waiting.
//
// Teardown always releases the session before the context.
package owner
