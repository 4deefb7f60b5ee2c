package app

import (
	"context"
	"slices"

	"github.com/specialistvlad/gridflow/internal/executor"
	"github.com/specialistvlad/gridflow/internal/node"
	"github.com/specialistvlad/gridflow/internal/resource"
	"github.com/specialistvlad/gridflow/internal/s3input"
)

// usesKind reports whether any workflow in the library contains a node of
// one of the given kinds. Sub-workflows share the parent's providers, so
// the whole library counts.
func (a *App) usesKind(kinds ...node.Kind) bool {
	for _, wf := range a.model.Workflows {
		for _, n := range wf.Nodes {
			k, err := node.ParseKind(n.Kind)
			if err == nil && slices.Contains(kinds, k) {
				return true
			}
		}
	}
	return false
}

// providers creates the AWS provider when the workflow manages resources.
// Loading the AWS configuration does not contact AWS; credentials are
// checked per node at dispatch.
func (a *App) providers(ctx context.Context) (resource.Providers, error) {
	if !a.usesKind(node.ResourceStart, node.ResourceStop) {
		return nil, nil
	}
	p, err := resource.NewEC2(ctx, resource.EC2Options{
		Region:   a.cfg.AWSRegion,
		Endpoint: a.cfg.AWSEndpoint,
	})
	if err != nil {
		return nil, err
	}
	return resource.Providers{resource.DefaultProvider: p}, nil
}

// objects creates the S3 fetcher when the workflow reads S3 inputs.
func (a *App) objects(ctx context.Context) (executor.ObjectFetcher, error) {
	if !a.usesKind(node.S3Input) {
		return nil, nil
	}
	f, err := s3input.NewFromOptions(ctx, s3input.Options{
		URL:    a.cfg.S3Endpoint,
		Region: a.cfg.AWSRegion,
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}
