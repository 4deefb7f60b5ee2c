package node

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/gridflow/internal/config"
	"github.com/zclconf/go-cty/cty"
)

// Well-known control-out port names.
const (
	// ControlDone is the control-out port every non-conditional node owns.
	// It is set once the node finishes successfully.
	ControlDone = "done"
	// ControlTrue and ControlFalse are the two branches of a Conditional.
	ControlTrue  = "true"
	ControlFalse = "false"
)

// ValuePort is the single output port of Input, Constant and S3Input nodes
// and the single input port of Output nodes.
const ValuePort = "value"

// InstancePort is the output port of ResourceStart nodes carrying the
// resource handle.
const InstancePort = "instance"

// ResultPort is the output port of Conditional nodes carrying the
// evaluated condition as a bool.
const ResultPort = "result"

// Direction tells whether a port receives or produces values.
type Direction int

const (
	In Direction = iota
	Out
)

// DataPort is one input or output value slot of a node.
type DataPort struct {
	Name      string
	Owner     *Node
	Direction Direction
	Type      cty.Type
	// Source is the upstream output port an input port is wired from. It is
	// nil for output ports.
	Source *DataPort
}

// String renders the port as "node.port".
func (p *DataPort) String() string {
	return p.Owner.ID + "." + p.Name
}

// ControlPort carries a boolean condition between nodes. The conditionMet
// flag belongs to the control-out port that sets it.
type ControlPort struct {
	Name      string
	Owner     *Node
	Direction Direction
	// Sources lists the upstream control-out ports feeding a control-in port.
	Sources []*ControlPort

	conditionMet atomic.Bool
}

// ConditionMet reports whether the port's condition is currently satisfied.
func (p *ControlPort) ConditionMet() bool {
	return p.conditionMet.Load()
}

// SetConditionMet records the outcome for the port.
func (p *ControlPort) SetConditionMet(v bool) {
	p.conditionMet.Store(v)
}

// String renders the port as "node.port".
func (p *ControlPort) String() string {
	return p.Owner.ID + "." + p.Name
}

// Node is a single vertex in the workflow graph.
type Node struct {
	// ID is the unique node name within its workflow.
	ID   string
	Kind Kind
	// Config is the authored definition the node was built from.
	Config *config.Node

	Inputs     []*DataPort
	Outputs    []*DataPort
	ControlIn  *ControlPort
	ControlOut []*ControlPort

	// state is the node's current execution state, managed atomically.
	state      atomic.Int32
	breakpoint atomic.Bool

	mu  sync.Mutex
	err error
}

// New creates a Waiting node of the given kind.
func New(id string, kind Kind, cfg *config.Node) *Node {
	n := &Node{ID: id, Kind: kind, Config: cfg}
	if cfg != nil && cfg.Breakpoint {
		n.breakpoint.Store(true)
	}
	return n
}

// AddInput appends an input port.
func (n *Node) AddInput(name string, ty cty.Type) *DataPort {
	p := &DataPort{Name: name, Owner: n, Direction: In, Type: ty}
	n.Inputs = append(n.Inputs, p)
	return p
}

// AddOutput appends an output port.
func (n *Node) AddOutput(name string, ty cty.Type) *DataPort {
	p := &DataPort{Name: name, Owner: n, Direction: Out, Type: ty}
	n.Outputs = append(n.Outputs, p)
	return p
}

// AddControlOut appends a control-out port.
func (n *Node) AddControlOut(name string) *ControlPort {
	p := &ControlPort{Name: name, Owner: n, Direction: Out}
	n.ControlOut = append(n.ControlOut, p)
	return p
}

// ConnectControl wires an upstream control-out port into this node's
// control-in port, creating the port on first use.
func (n *Node) ConnectControl(src *ControlPort) {
	if n.ControlIn == nil {
		n.ControlIn = &ControlPort{Name: "in", Owner: n, Direction: In}
	}
	n.ControlIn.Sources = append(n.ControlIn.Sources, src)
}

// Input returns the input port with the given name.
func (n *Node) Input(name string) (*DataPort, bool) {
	for _, p := range n.Inputs {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Output returns the output port with the given name.
func (n *Node) Output(name string) (*DataPort, bool) {
	for _, p := range n.Outputs {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// ControlOutPort returns the control-out port with the given name.
func (n *Node) ControlOutPort(name string) (*ControlPort, bool) {
	for _, p := range n.ControlOut {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// State atomically retrieves the node's execution state.
func (n *Node) State() State {
	return State(n.state.Load())
}

// SetState atomically sets the node's execution state and returns the
// previous one.
func (n *Node) SetState(s State) State {
	return State(n.state.Swap(int32(s)))
}

// Breakpoint reports whether the node is flagged as a breakpoint.
func (n *Node) Breakpoint() bool {
	return n.breakpoint.Load()
}

// SetBreakpoint flags or clears the node as a breakpoint.
func (n *Node) SetBreakpoint(v bool) {
	n.breakpoint.Store(v)
}

// Err returns the error recorded by the node's last failed attempt.
func (n *Node) Err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.err
}

// SetErr records the error of a failed attempt.
func (n *Node) SetErr(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

// Reset returns the node to Waiting and clears every control-out condition.
func (n *Node) Reset() {
	n.state.Store(int32(Waiting))
	n.SetErr(nil)
	for _, p := range n.ControlOut {
		p.SetConditionMet(false)
	}
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	return fmt.Sprintf("%s(%s)", n.Kind, n.ID)
}
