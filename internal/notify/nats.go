package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/specialistvlad/gridflow/internal/ctxlog"
)

// DefaultSubject is the NATS subject events are published on.
const DefaultSubject = "gridflow.events"

// Publisher is the subset of *nats.Conn the sink uses.
type Publisher interface {
	Publish(subj string, data []byte) error
}

// NATS publishes events on a subject, suffixed with the event type.
type NATS struct {
	pub     Publisher
	subject string
	conn    *nats.Conn
}

// NewNATS wraps an existing publisher.
func NewNATS(pub Publisher, subject string) *NATS {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATS{pub: pub, subject: subject}
}

// DialNATS connects to the NATS server at url.
func DialNATS(ctx context.Context, url, subject string) (*NATS, error) {
	logger := ctxlog.FromContext(ctx)
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(
		url,
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected.", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected.", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	n := NewNATS(nc, subject)
	n.conn = nc
	return n, nil
}

func (n *NATS) Publish(_ context.Context, ev Event) error {
	data, err := encode(ev)
	if err != nil {
		return err
	}
	return n.pub.Publish(n.subject+"."+string(ev.Type), data)
}

// Close closes the connection opened by DialNATS.
func (n *NATS) Close() error {
	if n.conn != nil && !n.conn.IsClosed() {
		n.conn.Close()
	}
	return nil
}
