// Package yamlloader implements config.Loader for workflow definitions
// written in YAML. It produces exactly the same model as the HCL loader and
// reuses its type syntax ("string", "list(number)", ...).
package yamlloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/specialistvlad/gridflow/internal/config"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/ctyutil"
	"github.com/specialistvlad/gridflow/internal/fsutil"
	"github.com/specialistvlad/gridflow/internal/hcl"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

type document struct {
	Workflows []workflow `yaml:"workflows"`
}

type workflow struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Nodes       []node `yaml:"nodes"`
}

type node struct {
	Kind       string    `yaml:"kind"`
	Name       string    `yaml:"name"`
	Operation  string    `yaml:"operation"`
	Endpoint   string    `yaml:"endpoint"`
	Workflow   string    `yaml:"workflow"`
	Condition  string    `yaml:"condition"`
	Breakpoint bool      `yaml:"breakpoint"`
	DependsOn  []string  `yaml:"depends_on"`
	Default    any       `yaml:"default"`
	Value      any       `yaml:"value"`
	Type       string    `yaml:"type"`
	From       string    `yaml:"from"`
	Inputs     []port    `yaml:"inputs"`
	Outputs    []port    `yaml:"outputs"`
	Resource   *resource `yaml:"resource"`
	S3         *s3Object `yaml:"s3"`
}

type port struct {
	Name string `yaml:"name"`
	From string `yaml:"from"`
	Type string `yaml:"type"`
}

type resource struct {
	Provider     string `yaml:"provider"`
	InstanceID   string `yaml:"instance_id"`
	ImageID      string `yaml:"image_id"`
	InstanceType string `yaml:"instance_type"`
	Region       string `yaml:"region"`
}

type s3Object struct {
	Bucket string `yaml:"bucket"`
	Key    string `yaml:"key"`
	Region string `yaml:"region"`
}

// Loader reads .yaml and .yml workflow files.
type Loader struct{}

// NewLoader creates a new YAML configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load discovers YAML files under the given paths and merges their
// workflows into one model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	files, err := fsutil.FindFilesByExtension(paths, ".yaml", ".yml")
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered YAML files.", "count", len(files))

	model := config.NewModel()
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		if err := l.decode(ctx, model, file, src); err != nil {
			return nil, err
		}
	}
	logger.Debug("YAML loading complete.", "workflows", model.Names())
	return model, nil
}

// LoadSource parses a single in-memory YAML document.
func (l *Loader) LoadSource(ctx context.Context, filename string, src []byte) (*config.Model, error) {
	model := config.NewModel()
	if err := l.decode(ctx, model, filename, src); err != nil {
		return nil, err
	}
	return model, nil
}

func (l *Loader) decode(ctx context.Context, model *config.Model, file string, src []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)
	for {
		var doc document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to decode YAML file %s: %w", file, err)
		}
		for _, w := range doc.Workflows {
			wf, err := translateWorkflow(ctx, w)
			if err != nil {
				return fmt.Errorf("%s: workflow %q: %w", file, w.Name, err)
			}
			if err := model.Add(wf); err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
		}
	}
}

func translateWorkflow(ctx context.Context, w workflow) (*config.Workflow, error) {
	out := &config.Workflow{Name: w.Name, Description: w.Description}
	for _, n := range w.Nodes {
		cn := &config.Node{
			Kind:       n.Kind,
			Name:       n.Name,
			Operation:  n.Operation,
			Endpoint:   n.Endpoint,
			Workflow:   n.Workflow,
			Condition:  n.Condition,
			Breakpoint: n.Breakpoint,
			DependsOn:  n.DependsOn,
		}

		raw := n.Value
		if raw == nil {
			raw = n.Default
		}
		if raw != nil {
			v, err := ctyutil.FromNative(raw)
			if err != nil {
				return nil, fmt.Errorf("node %q: %w", n.Name, err)
			}
			cn.Value = &v
		}

		ty, err := parseType(ctx, n.Type)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.Name, err)
		}
		cn.Type = ty

		for _, p := range n.Inputs {
			cp, err := translatePort(ctx, p)
			if err != nil {
				return nil, fmt.Errorf("node %q, input %q: %w", n.Name, p.Name, err)
			}
			cn.Inputs = append(cn.Inputs, cp)
		}
		for _, p := range n.Outputs {
			cp, err := translatePort(ctx, p)
			if err != nil {
				return nil, fmt.Errorf("node %q, output %q: %w", n.Name, p.Name, err)
			}
			cn.Outputs = append(cn.Outputs, cp)
		}
		if n.From != "" {
			if len(cn.Inputs) > 0 {
				return nil, fmt.Errorf("node %q: `from` cannot be combined with inputs", n.Name)
			}
			cn.Inputs = []*config.Port{{Name: shorthandInput(n.Kind), From: n.From, Type: cn.Type}}
		}

		if n.Resource != nil {
			cn.Resource = &config.Resource{
				Provider:     n.Resource.Provider,
				InstanceID:   n.Resource.InstanceID,
				ImageID:      n.Resource.ImageID,
				InstanceType: n.Resource.InstanceType,
				Region:       n.Resource.Region,
			}
		}
		if n.S3 != nil {
			cn.S3 = &config.S3Object{Bucket: n.S3.Bucket, Key: n.S3.Key, Region: n.S3.Region}
		}
		out.Nodes = append(out.Nodes, cn)
	}
	return out, nil
}

func translatePort(ctx context.Context, p port) (*config.Port, error) {
	ty, err := parseType(ctx, p.Type)
	if err != nil {
		return nil, err
	}
	return &config.Port{Name: p.Name, From: p.From, Type: ty}, nil
}

func parseType(ctx context.Context, src string) (cty.Type, error) {
	if src == "" {
		return cty.NilType, nil
	}
	return hcl.ParseType(ctx, src)
}

func shorthandInput(kind string) string {
	switch kind {
	case "loop":
		return "items"
	case "resource_stop":
		return "instance"
	}
	return "value"
}
