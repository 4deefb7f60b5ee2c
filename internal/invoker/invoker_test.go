package invoker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/specialistvlad/gridflow/internal/node"
	"github.com/specialistvlad/gridflow/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type testModule struct{}

func (testModule) Register(r *registry.Registry) {
	r.RegisterService("upper", func(_ context.Context, in map[string]cty.Value) (map[string]cty.Value, error) {
		return map[string]cty.Value{"result": cty.StringVal(strings.ToUpper(in["value"].AsString()))}, nil
	})
	r.RegisterService("broken", func(context.Context, map[string]cty.Value) (map[string]cty.Value, error) {
		return nil, errors.New("cluster unavailable")
	})
	r.RegisterOperation("join", func(parts []string, sep string) string {
		return strings.Join(parts, sep)
	})
}

func TestSystemInvoker(t *testing.T) {
	t.Parallel()

	s := NewSystem("join")
	_, err := s.Output("x")
	require.Error(t, err)
	assert.True(t, IsFault(err))
	assert.ErrorIs(t, err, ErrNotInvoked)

	s.SetOutput("x", cty.StringVal("a"))
	v, err := s.Output("x")
	require.NoError(t, err)
	assert.True(t, v.RawEquals(cty.StringVal("a")))

	_, err = s.Output("missing")
	assert.True(t, IsFault(err))
}

func TestSystemInvoker_InvokeCopiesInputs(t *testing.T) {
	t.Parallel()

	s := NewSystem("pass")
	require.NoError(t, s.SetInput("a", cty.NumberIntVal(1)))
	require.NoError(t, s.Invoke(context.Background()))
	assert.Len(t, s.Outputs(), 1)
}

func TestLocalInvoker(t *testing.T) {
	t.Parallel()

	reg := registry.New(testModule{})
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		inv := NewLocal(reg)
		require.NoError(t, inv.Configure(Operation{Name: "upper", Outputs: []Param{{Name: "result", Type: cty.String}}}))
		require.NoError(t, inv.SetInput("value", cty.StringVal("abc")))
		require.NoError(t, inv.Invoke(ctx))

		v, err := inv.Output("result")
		require.NoError(t, err)
		assert.True(t, v.RawEquals(cty.StringVal("ABC")))
	})

	t.Run("service error is a fault", func(t *testing.T) {
		t.Parallel()
		inv := NewLocal(reg)
		require.NoError(t, inv.Configure(Operation{Name: "broken"}))
		err := inv.Invoke(ctx)
		require.Error(t, err)
		assert.True(t, IsFault(err))
		assert.Contains(t, err.Error(), "cluster unavailable")
	})

	t.Run("missing declared output is a fault", func(t *testing.T) {
		t.Parallel()
		inv := NewLocal(reg)
		require.NoError(t, inv.Configure(Operation{Name: "upper", Outputs: []Param{{Name: "other", Type: cty.String}}}))
		require.NoError(t, inv.SetInput("value", cty.StringVal("abc")))
		err := inv.Invoke(ctx)
		assert.True(t, IsFault(err))
	})

	t.Run("unknown service fails configuration", func(t *testing.T) {
		t.Parallel()
		err := NewLocal(reg).Configure(Operation{Name: "ghost"})
		require.Error(t, err)
		assert.False(t, IsFault(err))
	})
}

func TestDynamicInvoker(t *testing.T) {
	t.Parallel()

	reg := registry.New(testModule{})
	inv := NewDynamic(reg)
	op := Operation{
		Name: "join",
		Inputs: []Param{
			{Name: "parts", Type: cty.List(cty.String)},
			{Name: "sep", Type: cty.String},
		},
		Outputs: []Param{{Name: "joined", Type: cty.String}},
	}
	require.NoError(t, inv.Configure(op))
	require.NoError(t, inv.SetInput("parts", cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.StringVal("b")})))
	require.NoError(t, inv.SetInput("sep", cty.StringVal("+")))
	require.NoError(t, inv.Invoke(context.Background()))

	v, err := inv.Output("joined")
	require.NoError(t, err)
	assert.True(t, v.RawEquals(cty.StringVal("a+b")))

	err = NewDynamic(reg).Configure(Operation{Name: "join", Inputs: []Param{{Name: "parts"}}})
	assert.ErrorContains(t, err, "takes 2 arguments")
}

func TestRESTInvoker(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	headers := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Get("X-Gridflow-Instance-Type")
		var req struct {
			Operation string         `json:"operation"`
			Inputs    map[string]any `json:"inputs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Operation != "double" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"unknown operation"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"outputs":{"result":"10"}}`))
	}))
	t.Cleanup(srv.Close)

	client := resty.New()

	// --- Act ---
	inv := NewREST(client)
	require.NoError(t, inv.Configure(Operation{
		Name:     "double",
		Endpoint: srv.URL,
		Outputs:  []Param{{Name: "result", Type: cty.Number}},
		Metadata: map[string]string{"instance_type": "t3.micro"},
	}))
	require.NoError(t, inv.SetInput("value", cty.StringVal("5")))
	err := inv.Invoke(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	v, err := inv.Output("result")
	require.NoError(t, err)
	assert.True(t, v.RawEquals(cty.NumberIntVal(10)))
	assert.Equal(t, "t3.micro", <-headers)

	bad := NewREST(client)
	require.NoError(t, bad.Configure(Operation{Name: "triple", Endpoint: srv.URL}))
	err = bad.Invoke(context.Background())
	require.Error(t, err)
	assert.True(t, IsFault(err))
	assert.Contains(t, err.Error(), "unknown operation")
}

func TestRESTInvoker_RequiresEndpoint(t *testing.T) {
	t.Parallel()
	assert.Error(t, NewREST(nil).Configure(Operation{Name: "x"}))
}

func TestFactory(t *testing.T) {
	t.Parallel()

	f := NewFactory(registry.New(testModule{}), nil)

	inv, err := f.New(node.ServiceCall, Operation{Name: "upper"})
	require.NoError(t, err)
	assert.IsType(t, &LocalInvoker{}, inv)

	inv, err = f.New(node.ServiceCall, Operation{Name: "upper", Endpoint: "http://svc"})
	require.NoError(t, err)
	assert.IsType(t, &RESTInvoker{}, inv)

	inv, err = f.New(node.DynamicCall, Operation{Name: "join", Inputs: []Param{{Name: "a"}, {Name: "b"}}})
	require.NoError(t, err)
	assert.IsType(t, &DynamicInvoker{}, inv)

	_, err = f.New(node.Loop, Operation{})
	assert.Error(t, err)
}

func TestHeaderName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Instance-Type", headerName("instance_type"))
	assert.Equal(t, "Image", headerName("image"))
}
