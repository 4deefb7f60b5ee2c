package executor_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/specialistvlad/gridflow/internal/config"
	"github.com/specialistvlad/gridflow/internal/executor"
	"github.com/specialistvlad/gridflow/internal/resource"
	"github.com/specialistvlad/gridflow/internal/registry"
	"github.com/specialistvlad/gridflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type fakeProvider struct {
	credErr      error
	terminateErr error

	mu         sync.Mutex
	terminated []resource.Handle
}

func (p *fakeProvider) CheckCredentials(context.Context) error {
	return p.credErr
}

func (p *fakeProvider) Terminate(_ context.Context, h resource.Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.terminated = append(p.terminated, h)
	return p.terminateErr
}

func (p *fakeProvider) Terminated() []resource.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]resource.Handle(nil), p.terminated...)
}

const resourceWorkflow = `
workflow "main" {
  node "resource_start" "vm" {
    resource {
      instance_id   = "i-123"
      instance_type = "t3.micro"
      region        = "eu-west-1"
    }
  }

  node "service_call" "work" {
    operation  = "echo"
    depends_on = ["vm"]
    input "value" { from = vm.instance }
    output "result" {}
  }

  node "resource_stop" "down" {
    from       = vm.instance
    depends_on = ["work"]
  }

  node "output" "out" {
    from = work.result
  }
}
`

func TestExecutor_ResourceLifecycle(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	prov := &fakeProvider{}
	svc := testutil.NewServices()
	h := testutil.NewHarness(t, resourceWorkflow, "", registry.New(svc), executor.Options{
		Providers: resource.Providers{"aws": prov},
	})
	checkSafety(t, h)

	// --- Act ---
	outputs, err := h.Run(t)

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, outputs["out"].RawEquals(cty.StringVal("i-123")))
	terminated := prov.Terminated()
	require.Len(t, terminated, 1)
	assert.Equal(t, "i-123", terminated[0].InstanceID)
	assert.Equal(t, "eu-west-1", terminated[0].Region)
	assert.Equal(t, "aws", terminated[0].Provider)
}

func TestExecutor_ResourceFaults(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		providers resource.Providers
		wantErr   string
		resource  bool
	}{
		{
			name:      "provider not configured",
			providers: nil,
			wantErr:   "not configured",
			resource:  true,
		},
		{
			name:      "missing credentials",
			providers: resource.Providers{"aws": &fakeProvider{credErr: errors.New("no credentials")}},
			wantErr:   "no credentials",
			resource:  true,
		},
		{
			name:      "terminate keeps failing",
			providers: resource.Providers{"aws": &fakeProvider{terminateErr: errors.New("throttled")}},
			wantErr:   "retry budget exhausted",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			svc := testutil.NewServices()
			h := testutil.NewHarness(t, resourceWorkflow, "", registry.New(svc), executor.Options{Providers: tc.providers})

			// --- Act ---
			_, err := h.Run(t)

			// --- Assert ---
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
			assert.Equal(t, tc.resource, resource.IsFault(err))
			if tc.resource {
				assert.Zero(t, svc.Calls("echo"), "resource faults surface before any call")
			} else {
				prov := tc.providers["aws"].(*fakeProvider)
				assert.Len(t, prov.Terminated(), 3)
			}
		})
	}
}

type fakeObjects map[string]string

func (f fakeObjects) Fetch(_ context.Context, obj *config.S3Object) (cty.Value, error) {
	body, ok := f[obj.Bucket+"/"+obj.Key]
	if !ok {
		return cty.NilVal, errors.New("no such key")
	}
	return cty.StringVal(body), nil
}

const s3Workflow = `
workflow "main" {
  node "s3_input" "blob" {
    s3 {
      bucket = "data"
      key    = "in.txt"
    }
  }
  node "service_call" "up" {
    operation = "shout"
    input "value" { from = blob }
    output "result" {}
  }
  node "output" "out" { from = up.result }
}
`

func TestExecutor_S3Input(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		objects executor.ObjectFetcher
		inputs  map[string]cty.Value
		want    string
		wantErr string
	}{
		{name: "fetched", objects: fakeObjects{"data/in.txt": "hello"}, want: "HELLO"},
		{name: "binding wins", objects: fakeObjects{}, inputs: map[string]cty.Value{"blob": cty.StringVal("bound")}, want: "BOUND"},
		{name: "missing object", objects: fakeObjects{}, wantErr: "no such key"},
		{name: "no object store", wantErr: "no object store"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			h := testutil.NewHarness(t, s3Workflow, "", registry.New(testutil.NewServices()), executor.Options{
				Objects: tc.objects,
				Inputs:  tc.inputs,
			})

			// --- Act ---
			outputs, err := h.Run(t)

			// --- Assert ---
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.True(t, resource.IsFault(err))
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, outputs["out"].RawEquals(cty.StringVal(tc.want)))
		})
	}
}
