package invoker

import (
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/specialistvlad/gridflow/internal/node"
	"github.com/specialistvlad/gridflow/internal/registry"
)

// Factory creates a fresh invoker for each dispatch attempt.
type Factory struct {
	Registry *registry.Registry
	Client   *resty.Client
}

// NewFactory creates a Factory over the given registry and HTTP client.
func NewFactory(reg *registry.Registry, client *resty.Client) *Factory {
	if reg == nil {
		reg = registry.New()
	}
	if client == nil {
		client = resty.New()
	}
	return &Factory{Registry: reg, Client: client}
}

// New returns a configured invoker for a node of the given kind. Service
// calls with an endpoint go over HTTP, the rest resolve locally.
func (f *Factory) New(kind node.Kind, op Operation) (Invoker, error) {
	var inv Invoker
	switch kind {
	case node.DynamicCall:
		inv = NewDynamic(f.Registry)
	case node.ServiceCall:
		if op.Endpoint != "" {
			inv = NewREST(f.Client)
		} else {
			inv = NewLocal(f.Registry)
		}
	default:
		return nil, fmt.Errorf("no invoker for node kind %s", kind)
	}
	if err := inv.Configure(op); err != nil {
		return nil, err
	}
	return inv, nil
}

// OperationFor derives the Operation a node calls from its definition and
// ports.
func OperationFor(n *node.Node) Operation {
	op := Operation{}
	if n.Config != nil {
		op.Name = n.Config.Operation
		op.Endpoint = n.Config.Endpoint
	}
	for _, p := range n.Inputs {
		op.Inputs = append(op.Inputs, Param{Name: p.Name, Type: p.Type})
	}
	for _, p := range n.Outputs {
		op.Outputs = append(op.Outputs, Param{Name: p.Name, Type: p.Type})
	}
	return op
}
