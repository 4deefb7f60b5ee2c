package node

import (
	"fmt"
	"strings"
)

// Kind is the component kind of a node. It decides how the node is
// dispatched.
type Kind int

const (
	ServiceCall Kind = iota
	SubWorkflow
	Conditional
	ConditionalJoin
	Loop
	LoopJoin
	Constant
	Input
	Output
	ResourceStart
	ResourceStop
	DynamicCall
	// S3Input is an Input whose value is read from an S3 object at run start.
	S3Input
)

var kindNames = map[Kind]string{
	ServiceCall:     "service_call",
	SubWorkflow:     "sub_workflow",
	Conditional:     "conditional",
	ConditionalJoin: "conditional_join",
	Loop:            "loop",
	LoopJoin:        "loop_join",
	Constant:        "constant",
	Input:           "input",
	Output:          "output",
	ResourceStart:   "resource_start",
	ResourceStop:    "resource_stop",
	DynamicCall:     "dynamic_call",
	S3Input:         "s3_input",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind resolves the snake_case kind name used in workflow files.
func ParseKind(s string) (Kind, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == want {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown node kind %q", s)
}

// IsSource reports whether nodes of this kind are resolved at run start
// instead of being dispatched.
func (k Kind) IsSource() bool {
	return k == Input || k == Constant || k == S3Input
}

// Retryable reports whether a failed node of this kind may be re-dispatched
// after a transient invocation fault.
func (k Kind) Retryable() bool {
	switch k {
	case ServiceCall, DynamicCall, ResourceStop, SubWorkflow, Loop:
		return true
	}
	return false
}
