package notify

import (
	"context"
	"sync"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
)

type queued struct {
	ctx context.Context
	ev  Event
}

// Async delivers events to the wrapped sink on a single goroutine, in the
// order they were published. When the queue is full, events are dropped.
type Async struct {
	next  Notifier
	queue chan queued
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewAsync starts the delivery goroutine.
func NewAsync(next Notifier, size int) *Async {
	if size <= 0 {
		size = 256
	}
	a := &Async{next: next, queue: make(chan queued, size), done: make(chan struct{})}
	go a.loop()
	return a
}

func (a *Async) loop() {
	defer close(a.done)
	for q := range a.queue {
		if err := a.next.Publish(q.ctx, q.ev); err != nil {
			ctxlog.FromContext(q.ctx).Warn("Failed to deliver notification.", "type", q.ev.Type, "error", err)
		}
	}
}

// Publish enqueues the event and returns immediately. Events published
// after Close are dropped.
func (a *Async) Publish(ctx context.Context, ev Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		ctxlog.FromContext(ctx).Debug("Notifier closed, dropping event.", "type", ev.Type)
		return nil
	}
	select {
	case a.queue <- queued{ctx: context.WithoutCancel(ctx), ev: ev}:
	default:
		ctxlog.FromContext(ctx).Warn("Notification queue full, dropping event.", "type", ev.Type)
	}
	return nil
}

// Close stops accepting events and waits until the queue is drained or ctx
// ends.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
