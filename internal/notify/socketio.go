package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Emitter is the subset of a socket.io client the sink uses.
type Emitter interface {
	Emit(ev string, args ...any) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ev string, args ...any) error

func (f EmitterFunc) Emit(ev string, args ...any) error {
	return f(ev, args...)
}

// SocketIO emits each event under its type name.
type SocketIO struct {
	emitter Emitter
	client  *socket.Socket
}

// NewSocketIO wraps an existing emitter.
func NewSocketIO(e Emitter) *SocketIO {
	return &SocketIO{emitter: e}
}

// SocketIOOptions configures DialSocketIO.
type SocketIOOptions struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// DialSocketIO connects to a socket.io server over WebSocket and waits for
// the connection to be acknowledged.
func DialSocketIO(ctx context.Context, o SocketIOOptions) (*SocketIO, error) {
	logger := ctxlog.FromContext(ctx).With("url", o.URL)

	parsedURL, err := url.Parse(o.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if o.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connected := make(chan error, 1)
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(o.Namespace, opts)

	report := func(err error) {
		select {
		case connected <- err:
		default:
		}
	}
	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to socket.io server.", "sid", io.Id())
		report(nil)
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		report(connectError(errs))
	})
	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(o.Timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", o.Timeout)
	}

	s := NewSocketIO(EmitterFunc(func(ev string, args ...any) error {
		io.Emit(ev, args...)
		return nil
	}))
	s.client = io
	return s, nil
}

func (s *SocketIO) Publish(_ context.Context, ev Event) error {
	data, err := encode(ev)
	if err != nil {
		return err
	}
	return s.emitter.Emit(string(ev.Type), string(data))
}

// Close disconnects a client opened by DialSocketIO.
func (s *SocketIO) Close() error {
	if s.client != nil {
		s.client.Disconnect()
	}
	return nil
}

// connectError turns the arguments of a connect_error event into an error.
// The first report wins; later events are dropped by the caller.
func connectError(args []any) error {
	if len(args) == 0 {
		return errors.New("connect_error without details")
	}
	if err, ok := args[0].(error); ok && err != nil {
		return err
	}
	return fmt.Errorf("connect_error: %v", args[0])
}
