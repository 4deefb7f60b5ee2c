// Package s3input resolves the values of S3Input nodes from S3 objects.
package s3input

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/specialistvlad/gridflow/internal/config"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// DefaultMaxSize bounds how many bytes are read from one object.
const DefaultMaxSize int64 = 4 << 20

// GetObjectAPI is the subset of the S3 client the fetcher uses.
type GetObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Options configures the S3 client.
type Options struct {
	URL       string // custom endpoint, e.g. MinIO
	Region    string
	AccessKey string
	SecretKey string
	MaxSize   int64
}

// Fetcher reads S3 objects as string values.
type Fetcher struct {
	client  GetObjectAPI
	maxSize int64
}

// New creates a Fetcher over an existing client.
func New(client GetObjectAPI, maxSize int64) *Fetcher {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Fetcher{client: client, maxSize: maxSize}
}

// NewFromOptions loads the AWS configuration and creates a Fetcher.
func NewFromOptions(ctx context.Context, opts Options) (*Fetcher, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	if opts.URL != "" {
		loadOpts = append(loadOpts, awsconfig.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{URL: opts.URL}, nil
				},
			),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	cli := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Region != "" {
			o.Region = opts.Region
		}
		o.UsePathStyle = opts.URL != ""
	})
	return New(cli, opts.MaxSize), nil
}

// Fetch reads the object and returns its content as a string value.
func (f *Fetcher) Fetch(ctx context.Context, obj *config.S3Object) (cty.Value, error) {
	if obj == nil || obj.Bucket == "" || obj.Key == "" {
		return cty.NilVal, errors.New("s3 object needs a bucket and a key")
	}
	ctxlog.FromContext(ctx).Debug("Fetching S3 object.", "bucket", obj.Bucket, "key", obj.Key)

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(obj.Bucket),
		Key:    aws.String(obj.Key),
	}, func(o *s3.Options) {
		if obj.Region != "" {
			o.Region = obj.Region
		}
	})
	if err != nil {
		return cty.NilVal, fmt.Errorf("get s3://%s/%s: %w", obj.Bucket, obj.Key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, f.maxSize+1))
	if err != nil {
		return cty.NilVal, fmt.Errorf("read s3://%s/%s: %w", obj.Bucket, obj.Key, err)
	}
	if int64(len(data)) > f.maxSize {
		return cty.NilVal, fmt.Errorf("s3://%s/%s exceeds %d bytes", obj.Bucket, obj.Key, f.maxSize)
	}
	return cty.StringVal(string(data)), nil
}
