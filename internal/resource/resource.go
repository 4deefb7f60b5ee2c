// Package resource implements the compute-resource lifecycle used by
// ResourceStart and ResourceStop nodes.
package resource

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/gridflow/internal/config"
)

// DefaultProvider is used when a resource names no provider.
const DefaultProvider = "aws"

// Handle identifies one compute resource.
type Handle struct {
	Provider     string
	InstanceID   string
	ImageID      string
	InstanceType string
	Region       string
}

// HandleFrom converts an authored resource block into a Handle.
func HandleFrom(cfg *config.Resource) Handle {
	if cfg == nil {
		return Handle{Provider: DefaultProvider}
	}
	h := Handle{
		Provider:     cfg.Provider,
		InstanceID:   cfg.InstanceID,
		ImageID:      cfg.ImageID,
		InstanceType: cfg.InstanceType,
		Region:       cfg.Region,
	}
	if h.Provider == "" {
		h.Provider = DefaultProvider
	}
	return h
}

// Metadata returns the non-empty attributes attached to service calls that
// run on this resource.
func (h Handle) Metadata() map[string]string {
	md := make(map[string]string)
	set := func(k, v string) {
		if v != "" {
			md[k] = v
		}
	}
	set("provider", h.Provider)
	set("instance", h.InstanceID)
	set("image", h.ImageID)
	set("type", h.InstanceType)
	set("region", h.Region)
	return md
}

// Provider starts and terminates resources of one kind.
type Provider interface {
	// CheckCredentials fails when the provider cannot authenticate. It is
	// called before any lifecycle call.
	CheckCredentials(ctx context.Context) error
	// Terminate tears the resource down and blocks until the provider has
	// accepted the request.
	Terminate(ctx context.Context, h Handle) error
}

// Fault is a missing credential or configuration for a resource node. It is
// always fatal to the run.
type Fault struct {
	Provider string
	Err      error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("resource provider %q: %v", f.Provider, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// IsFault reports whether err carries a resource fault.
func IsFault(err error) bool {
	var f *Fault
	return errors.As(err, &f)
}

// Providers maps provider names to implementations.
type Providers map[string]Provider

// Lookup returns the provider registered under name, or the default one
// for an empty name.
func (p Providers) Lookup(name string) (Provider, error) {
	if name == "" {
		name = DefaultProvider
	}
	prov, ok := p[strings.ToLower(name)]
	if !ok {
		names := make([]string, 0, len(p))
		for k := range p {
			names = append(names, k)
		}
		sort.Strings(names)
		return nil, &Fault{Provider: name, Err: fmt.Errorf("not configured (available: %v)", names)}
	}
	return prov, nil
}
