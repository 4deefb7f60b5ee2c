// Package inmemorystore provides the ephemeral, thread-safe store of the
// invokers a run has produced.
//
// # Purpose
//
// The interpreter resolves a node's inputs by reading outputs from the
// invokers of its source nodes. Those invokers are written by the main loop
// and, during a loop fan-out, by a worker goroutine, so the store uses
// sync.Map for fine-grained concurrent access without a global lock.
//
// # Characteristics
//
//   - **Ephemeral:** created fresh for each run and released at its end
//   - **Replace-on-retry:** a retried node's new invoker replaces the old one
//   - **Snapshot iteration:** Range never blocks writers
package inmemorystore
