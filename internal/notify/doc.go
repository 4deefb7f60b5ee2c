// Package notify delivers workflow lifecycle events to external observers.
//
// The interpreter publishes four event types: WorkflowStarted with the
// initial input values, PartialResult whenever Output nodes become
// reportable, WorkflowTerminated when a run ends, and NodeProgress on every
// node state change. Delivery is best-effort: a failing sink is logged and
// never stops a run.
//
// Sinks:
//
//   - Log writes events to the context logger.
//   - NATS publishes JSON events on a subject.
//   - Redis publishes JSON events on a pub/sub channel.
//   - SocketIO emits events to a socket.io server.
//   - Multi fans one event out to several sinks.
//   - Async moves delivery off the caller's goroutine, preserving order.
package notify
