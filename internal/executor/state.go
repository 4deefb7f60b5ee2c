package executor

import "fmt"

// State is the whole-workflow execution state of one executor.
type State int32

const (
	None State = iota
	Running
	Paused
	Step
	Stopped
)

func (s State) String() string {
	switch s {
	case None:
		return "none"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Step:
		return "step"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Active reports whether a run is in progress.
func (s State) Active() bool {
	return s == Running || s == Paused || s == Step
}

var transitions = map[State][]State{
	None:    {Running},
	Running: {Paused, Step, Stopped},
	Paused:  {Running, Step, Stopped},
	Step:    {Paused, Running, Stopped},
	Stopped: {None},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
