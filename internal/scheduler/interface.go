package scheduler

// Budget tells the evaluator whether a Failed node may be dispatched again.
//
// # Why Budget Exists
//
// A Failed node is only ready when its kind is retryable and it still has
// retry budget. The evaluator does not own the counters; the interpreter
// loop does, and RetryCounter is its implementation.
//
// # Relationship with Other Components
//
//   - **Executor:** records each re-dispatch and resets budgets on RetryNode
//   - **Scheduler:** queries CanRetry when computing the ready set and the
//     remaining work
type Budget interface {
	// CanRetry reports whether the node with the given ID may be retried.
	CanRetry(id string) bool
}
