package node

import "fmt"

// State represents the execution state of a node in the graph.
type State int32

const (
	// Waiting indicates the node has not run yet in this run.
	Waiting State = iota
	// Executing indicates the node is being dispatched, or is owned by a
	// fan-out worker.
	Executing
	// Finished indicates the node has completed successfully.
	Finished
	// Failed indicates the node's last attempt failed.
	Failed
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Executing:
		return "executing"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}
