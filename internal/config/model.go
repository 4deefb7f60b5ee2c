package config

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of every workflow
// definition found by a loader. Workflows reference each other by name
// through SubWorkflow nodes.
type Model struct {
	Workflows map[string]*Workflow
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{Workflows: make(map[string]*Workflow)}
}

// Add registers a workflow, rejecting duplicate names.
func (m *Model) Add(wf *Workflow) error {
	if _, exists := m.Workflows[wf.Name]; exists {
		return fmt.Errorf("workflow %q is defined more than once", wf.Name)
	}
	m.Workflows[wf.Name] = wf
	return nil
}

// Workflow looks a definition up by name. An empty name selects the only
// workflow in the model, or the one called "main".
func (m *Model) Workflow(name string) (*Workflow, error) {
	if name != "" {
		wf, ok := m.Workflows[name]
		if !ok {
			return nil, fmt.Errorf("workflow %q not found (known: %v)", name, m.Names())
		}
		return wf, nil
	}
	if len(m.Workflows) == 1 {
		for _, wf := range m.Workflows {
			return wf, nil
		}
	}
	if wf, ok := m.Workflows["main"]; ok {
		return wf, nil
	}
	return nil, fmt.Errorf("no workflow selected and no \"main\" workflow among %v", m.Names())
}

// Names returns the sorted workflow names.
func (m *Model) Names() []string {
	names := make([]string, 0, len(m.Workflows))
	for name := range m.Workflows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Workflow is one authored dataflow graph.
type Workflow struct {
	Name        string
	Description string
	Nodes       []*Node
}

// Node is the format-agnostic representation of a `node` block.
type Node struct {
	Kind string
	Name string

	// Operation names the remote or local operation for ServiceCall and
	// DynamicCall nodes. Endpoint, when set, routes a ServiceCall to a
	// remote HTTP service instead of the local registry.
	Operation string
	Endpoint  string

	// Workflow is the referenced definition for SubWorkflow nodes.
	Workflow string

	// Condition is the boolean expression template of a Conditional node,
	// with $0, $1, ... standing for its inputs in order.
	Condition string

	// Value is the literal of Constant nodes and the default of Input nodes.
	Value *cty.Value
	Type  cty.Type

	Breakpoint bool

	// DependsOn lists control edges as "node" or "node.port" references.
	DependsOn []string

	Inputs  []*Port
	Outputs []*Port

	Resource *Resource
	S3       *S3Object
}

// Port declares one data port. For inputs, From references the upstream
// "node.port" (or just "node" for its first output).
type Port struct {
	Name string
	From string
	Type cty.Type
}

// Resource describes the compute resource a ResourceStart node provisions.
type Resource struct {
	Provider     string
	InstanceID   string
	ImageID      string
	InstanceType string
	Region       string
}

// S3Object locates the object an S3Input node reads.
type S3Object struct {
	Bucket string
	Key    string
	Region string
}
