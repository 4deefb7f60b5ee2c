package testutil

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/specialistvlad/gridflow/internal/ctyutil"
	"github.com/specialistvlad/gridflow/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// ErrFlaky is returned by the "flaky" service while it is set to fail.
var ErrFlaky = errors.New("flaky service failure")

// Services is a registry module for tests. It counts calls per service and
// lets tests script failures.
//
//   - "echo" returns `value` as `result`.
//   - "shout" waits for Delay, then upper-cases `value` into `result`.
//   - "flaky" fails its first Failures calls with ErrFlaky, then returns
//     "attempt-<n>" as `result`.
//   - "slow" sleeps for Delay, then returns `value` as `result`.
type Services struct {
	Failures int
	Delay    time.Duration

	mu    sync.Mutex
	calls map[string]int
	seen  map[string][]cty.Value
}

// NewServices creates a Services module.
func NewServices() *Services {
	return &Services{calls: make(map[string]int), seen: make(map[string][]cty.Value)}
}

// Register registers the test services.
func (s *Services) Register(r *registry.Registry) {
	r.RegisterService("echo", s.echo)
	r.RegisterService("shout", s.shout)
	r.RegisterService("flaky", s.flaky)
	r.RegisterService("slow", s.slow)
}

// Calls returns how often the named service ran.
func (s *Services) Calls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

// Seen returns the `value` inputs the named service received.
func (s *Services) Seen(name string) []cty.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]cty.Value(nil), s.seen[name]...)
}

func (s *Services) record(name string, in map[string]cty.Value) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[name]++
	if v, ok := in["value"]; ok {
		s.seen[name] = append(s.seen[name], v)
	}
	return s.calls[name]
}

func (s *Services) echo(_ context.Context, in map[string]cty.Value) (map[string]cty.Value, error) {
	s.record("echo", in)
	return map[string]cty.Value{"result": in["value"]}, nil
}

func (s *Services) shout(ctx context.Context, in map[string]cty.Value) (map[string]cty.Value, error) {
	s.record("shout", in)
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	str, err := ctyutil.AsString(in["value"])
	if err != nil {
		return nil, err
	}
	return map[string]cty.Value{"result": cty.StringVal(strings.ToUpper(str))}, nil
}

func (s *Services) flaky(_ context.Context, in map[string]cty.Value) (map[string]cty.Value, error) {
	n := s.record("flaky", in)
	if n <= s.Failures {
		return nil, fmt.Errorf("attempt %d: %w", n, ErrFlaky)
	}
	return map[string]cty.Value{"result": cty.StringVal(fmt.Sprintf("attempt-%d", n))}, nil
}

func (s *Services) slow(ctx context.Context, in map[string]cty.Value) (map[string]cty.Value, error) {
	s.record("slow", in)
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return map[string]cty.Value{"result": in["value"]}, nil
}

func (s *Services) wait(ctx context.Context) error {
	if s.Delay <= 0 {
		return nil
	}
	select {
	case <-time.After(s.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
