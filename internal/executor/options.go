package executor

import (
	"context"
	"time"

	"github.com/specialistvlad/gridflow/internal/config"
	"github.com/specialistvlad/gridflow/internal/invoker"
	"github.com/specialistvlad/gridflow/internal/notify"
	"github.com/specialistvlad/gridflow/internal/resource"
	"github.com/specialistvlad/gridflow/internal/scheduler"
	"github.com/zclconf/go-cty/cty"
	"go.opentelemetry.io/otel/trace"
)

// DefaultPollInterval is how long an idle loop waits before re-evaluating
// readiness when nothing woke it.
const DefaultPollInterval = 400 * time.Millisecond

// DefaultLoopWorkers bounds concurrent loop fan-outs per run.
const DefaultLoopWorkers = 4

// ObjectFetcher resolves S3Input nodes.
type ObjectFetcher interface {
	Fetch(ctx context.Context, obj *config.S3Object) (cty.Value, error)
}

// Options configures an Executor.
type Options struct {
	// Interactive runs pause instead of stopping when work runs out or the
	// retry budget is exhausted, and honor breakpoints.
	Interactive  bool
	PollInterval time.Duration
	// MaxRetry is the number of retries per node. Zero selects
	// scheduler.MaxRetry; a negative value disables retries.
	MaxRetry    int
	LoopWorkers int

	// Inputs binds values to Input nodes by name, overriding defaults.
	Inputs map[string]cty.Value

	// Library holds the workflow definitions SubWorkflow nodes reference.
	Library   *config.Model
	Factory   *invoker.Factory
	Providers resource.Providers
	Objects   ObjectFetcher

	Notifier  notify.Notifier
	Listeners []Listener
	Tracer    trace.Tracer
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.MaxRetry == 0 {
		o.MaxRetry = scheduler.MaxRetry
	}
	if o.LoopWorkers <= 0 {
		o.LoopWorkers = DefaultLoopWorkers
	}
	if o.Factory == nil {
		o.Factory = invoker.NewFactory(nil, nil)
	}
	if o.Notifier == nil {
		o.Notifier = notify.Nop{}
	}
	return o
}
