package resource

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
)

// EC2API is the subset of the EC2 client the provider uses.
type EC2API interface {
	TerminateInstances(ctx context.Context, in *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
}

// EC2Options configures the EC2 provider. Empty keys fall back to the
// default AWS credential chain.
type EC2Options struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// EC2Provider manages EC2 instances.
type EC2Provider struct {
	creds  aws.CredentialsProvider
	client EC2API
}

// NewEC2 loads the AWS configuration and creates an EC2 provider.
func NewEC2(ctx context.Context, opts EC2Options) (*EC2Provider, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	if opts.Endpoint != "" {
		loadOpts = append(loadOpts, awsconfig.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{URL: opts.Endpoint}, nil
				},
			),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return NewEC2WithClient(cfg.Credentials, ec2.NewFromConfig(cfg)), nil
}

// NewEC2WithClient creates a provider over an existing client.
func NewEC2WithClient(creds aws.CredentialsProvider, client EC2API) *EC2Provider {
	return &EC2Provider{creds: creds, client: client}
}

func (p *EC2Provider) CheckCredentials(ctx context.Context) error {
	if p.creds == nil {
		return &Fault{Provider: DefaultProvider, Err: errors.New("no credentials configured")}
	}
	if _, err := p.creds.Retrieve(ctx); err != nil {
		return &Fault{Provider: DefaultProvider, Err: fmt.Errorf("credentials unavailable: %w", err)}
	}
	return nil
}

func (p *EC2Provider) Terminate(ctx context.Context, h Handle) error {
	if h.InstanceID == "" {
		return &Fault{Provider: DefaultProvider, Err: errors.New("no instance id to terminate")}
	}
	ctxlog.FromContext(ctx).Info("Terminating instance.", "instance", h.InstanceID, "region", h.Region)
	_, err := p.client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{h.InstanceID},
	}, func(o *ec2.Options) {
		if h.Region != "" {
			o.Region = h.Region
		}
	})
	if err != nil {
		return fmt.Errorf("terminate %s: %w", h.InstanceID, err)
	}
	return nil
}
