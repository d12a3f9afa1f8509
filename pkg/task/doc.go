// Package task provides the cooperating-task primitives used by the handoff:
// named task contexts, a bounded scheduler backed by an ants pool, and a
// single-slot notification with overwrite semantics.
//
// Stack size and priority are carried as task metadata. The Go runtime
// grows goroutine stacks on demand and has no priorities, so neither value
// changes scheduling; both are logged and traced so runs stay comparable
// with deployments that do honor them.
package task
