package s3input

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/specialistvlad/gridflow/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type fakeS3 struct {
	objects map[string]string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	f := New(&fakeS3{objects: map[string]string{"data/in.txt": "a,b,c"}}, 0)

	v, err := f.Fetch(context.Background(), &config.S3Object{Bucket: "data", Key: "in.txt"})
	require.NoError(t, err)
	assert.True(t, v.RawEquals(cty.StringVal("a,b,c")))

	_, err = f.Fetch(context.Background(), &config.S3Object{Bucket: "data", Key: "missing"})
	assert.ErrorContains(t, err, "NoSuchKey")

	_, err = f.Fetch(context.Background(), &config.S3Object{Bucket: "data"})
	assert.Error(t, err)
}

func TestFetcher_MaxSize(t *testing.T) {
	t.Parallel()

	f := New(&fakeS3{objects: map[string]string{"b/k": "0123456789"}}, 4)
	_, err := f.Fetch(context.Background(), &config.S3Object{Bucket: "b", Key: "k"})
	assert.ErrorContains(t, err, "exceeds 4 bytes")
}
