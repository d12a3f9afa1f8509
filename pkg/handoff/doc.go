// Package handoff runs the cross-task session handoff: the owning task
// builds a TLS context, a worker task builds a session on the same Owner
// and raises a one-shot signal, and the owning task, after observing the
// signal within a bounded wait, destroys the session.
//
// The signal is the only synchronization between the two tasks. When the
// wait times out the owning task never touches the Owner again and the
// session is reported as leaked.
package handoff
