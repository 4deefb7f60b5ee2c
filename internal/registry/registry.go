package registry

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"

	"github.com/zclconf/go-cty/cty"
)

// Module is the interface that all built-in modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// ServiceFunc implements a named-port service.
type ServiceFunc func(ctx context.Context, inputs map[string]cty.Value) (map[string]cty.Value, error)

// Registry holds the registered services and operations for a single
// application instance. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	services   map[string]ServiceFunc
	operations map[string]reflect.Value
}

// New creates and initializes a new Registry instance, registering the
// given modules.
func New(modules ...Module) *Registry {
	r := &Registry{
		services:   make(map[string]ServiceFunc),
		operations: make(map[string]reflect.Value),
	}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// RegisterService registers a named-port service.
func (r *Registry) RegisterService(name string, fn ServiceFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.services[name]; exists {
		panic(fmt.Sprintf("service with name '%s' already registered", name))
	}
	slog.Debug("Registering service.", "name", name)
	r.services[name] = fn
}

// RegisterOperation registers a Go function callable by DynamicCall nodes.
// fn must be a function, optionally taking a context.Context first and
// returning one value, optionally followed by an error.
func (r *Registry) RegisterOperation(name string, fn any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.operations[name]; exists {
		panic(fmt.Sprintf("operation with name '%s' already registered", name))
	}
	slog.Debug("Registering operation.", "name", name)
	r.operations[name] = reflect.ValueOf(fn)
}

// Service looks a service up by name.
func (r *Registry) Service(name string) (ServiceFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.services[name]
	return fn, ok
}

// Names returns the sorted service and operation names.
func (r *Registry) Names() (services, operations []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name := range r.services {
		services = append(services, name)
	}
	for name := range r.operations {
		operations = append(operations, name)
	}
	sort.Strings(services)
	sort.Strings(operations)
	return services, operations
}
