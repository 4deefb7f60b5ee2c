// Package scheduler provides the readiness evaluator of the interpreter.
// Its role is to analyze the graph and the per-node state and determine
// which nodes may be dispatched now, and whether anything is left to do.
package scheduler
