package hcl

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// fileRoot is used to decode all top-level blocks from any file.
type fileRoot struct {
	Workflows []*Workflow `hcl:"workflow,block"`
	Remain    hcl.Body    `hcl:",remain"`
}

// Workflow represents a `workflow` block.
type Workflow struct {
	Name        string  `hcl:"name,label"`
	Description string  `hcl:"description,optional"`
	Nodes       []*Node `hcl:"node,block"`
}

// Node represents a `node "<kind>" "<name>"` block.
type Node struct {
	Kind       string         `hcl:"kind,label"`
	Name       string         `hcl:"name,label"`
	Operation  string         `hcl:"operation,optional"`
	Endpoint   string         `hcl:"endpoint,optional"`
	Workflow   string         `hcl:"workflow,optional"`
	Condition  string         `hcl:"condition,optional"`
	Breakpoint bool           `hcl:"breakpoint,optional"`
	DependsOn  []string       `hcl:"depends_on,optional"`
	Default    *cty.Value     `hcl:"default,optional"`
	Value      *cty.Value     `hcl:"value,optional"`
	Type       hcl.Expression `hcl:"type,optional"`
	From       hcl.Expression `hcl:"from,optional"`
	Inputs     []*Port        `hcl:"input,block"`
	Outputs    []*Port        `hcl:"output,block"`
	Resource   *Resource      `hcl:"resource,block"`
	S3         *S3Object      `hcl:"s3,block"`
}

// Port represents an `input` or `output` block inside a node.
type Port struct {
	Name string         `hcl:"name,label"`
	From hcl.Expression `hcl:"from,optional"`
	Type hcl.Expression `hcl:"type,optional"`
}

// Resource represents the `resource` block of a resource_start node.
type Resource struct {
	Provider     string `hcl:"provider,optional"`
	InstanceID   string `hcl:"instance_id,optional"`
	ImageID      string `hcl:"image_id,optional"`
	InstanceType string `hcl:"instance_type,optional"`
	Region       string `hcl:"region,optional"`
}

// S3Object represents the `s3` block of an s3_input node.
type S3Object struct {
	Bucket string `hcl:"bucket"`
	Key    string `hcl:"key"`
	Region string `hcl:"region,optional"`
}
