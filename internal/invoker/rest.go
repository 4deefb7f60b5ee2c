package invoker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// MetadataHeaderPrefix prefixes the headers carrying Operation.Metadata.
const MetadataHeaderPrefix = "X-Gridflow-"

// restRequest is the JSON envelope POSTed to a remote service.
type restRequest struct {
	Operation string          `json:"operation"`
	Inputs    json.RawMessage `json:"inputs"`
}

// restResponse is the envelope a remote service answers with.
type restResponse struct {
	Outputs json.RawMessage `json:"outputs"`
	Error   string          `json:"error,omitempty"`
}

// RESTInvoker calls a remote service endpoint over HTTP.
type RESTInvoker struct {
	values
	client *resty.Client
}

// NewREST creates a RESTInvoker sharing the given client. A nil client gets
// a default one.
func NewREST(client *resty.Client) *RESTInvoker {
	if client == nil {
		client = resty.New()
	}
	return &RESTInvoker{values: newValues(), client: client}
}

func (r *RESTInvoker) Configure(op Operation) error {
	if op.Endpoint == "" {
		return fmt.Errorf("remote service %q has no endpoint", op.Name)
	}
	return r.values.Configure(op)
}

func (r *RESTInvoker) Invoke(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	op, in := r.snapshot()

	obj := cty.EmptyObjectVal
	if len(in) > 0 {
		obj = cty.ObjectVal(in)
	}
	payload, err := ctyjson.Marshal(obj, obj.Type())
	if err != nil {
		return fmt.Errorf("failed to encode inputs of %q: %w", op.Name, err)
	}

	req := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(restRequest{Operation: op.Name, Inputs: payload})
	for k, v := range op.Metadata {
		req.SetHeader(MetadataHeaderPrefix+headerName(k), v)
	}

	logger.Debug("Calling remote service.", "operation", op.Name, "endpoint", op.Endpoint)
	resp, err := req.Post(op.Endpoint)
	if err != nil {
		return &Fault{Operation: op.Name, Err: err}
	}

	var body restResponse
	if len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), &body); err != nil {
			return &Fault{Operation: op.Name, Err: fmt.Errorf("malformed response (status %d): %w", resp.StatusCode(), err)}
		}
	}
	if resp.StatusCode() != http.StatusOK {
		msg := body.Error
		if msg == "" {
			msg = resp.Status()
		}
		return &Fault{Operation: op.Name, Err: fmt.Errorf("remote service returned %d: %s", resp.StatusCode(), msg)}
	}

	raw, err := decodeOutputs(body.Outputs)
	if err != nil {
		return &Fault{Operation: op.Name, Err: err}
	}
	out, err := conformOutputs(op, raw)
	if err != nil {
		return &Fault{Operation: op.Name, Err: err}
	}
	r.complete(out)
	return nil
}

func decodeOutputs(raw json.RawMessage) (map[string]cty.Value, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return map[string]cty.Value{}, nil
	}
	ty, err := ctyjson.ImpliedType(raw)
	if err != nil {
		return nil, fmt.Errorf("malformed outputs: %w", err)
	}
	if !ty.IsObjectType() {
		return nil, fmt.Errorf("outputs must be a JSON object, got %s", ty.FriendlyName())
	}
	val, err := ctyjson.Unmarshal(raw, ty)
	if err != nil {
		return nil, fmt.Errorf("malformed outputs: %w", err)
	}
	return val.AsValueMap(), nil
}

// headerName turns "instance_type" into "Instance-Type".
func headerName(key string) string {
	parts := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' })
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
	}
	return strings.Join(parts, "-")
}
