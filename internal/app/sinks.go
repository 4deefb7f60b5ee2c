package app

import (
	"context"
	"time"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/notify"
)

// notifier builds the notification channel: events are always logged and
// additionally delivered, off the interpreter goroutine, to every
// configured broker. The returned function drains and closes the brokers.
func (a *App) notifier(ctx context.Context) (notify.Notifier, func(), error) {
	logger := ctxlog.FromContext(ctx)

	var (
		remote  notify.Multi
		closers []func() error
	)
	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("Failed to close notifier.", "error", err)
			}
		}
	}

	if a.cfg.NATSURL != "" {
		n, err := notify.DialNATS(ctx, a.cfg.NATSURL, a.cfg.NATSSubject)
		if err != nil {
			return nil, nil, err
		}
		remote = append(remote, n)
		closers = append(closers, n.Close)
		logger.Info("NATS notifications enabled.", "url", a.cfg.NATSURL)
	}
	if a.cfg.RedisAddr != "" {
		r := notify.DialRedis(a.cfg.RedisAddr, "", a.cfg.RedisChannel)
		remote = append(remote, r)
		closers = append(closers, r.Close)
		logger.Info("Redis notifications enabled.", "addr", a.cfg.RedisAddr)
	}
	if a.cfg.SocketIOURL != "" {
		s, err := notify.DialSocketIO(ctx, notify.SocketIOOptions{URL: a.cfg.SocketIOURL})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		remote = append(remote, s)
		closers = append(closers, s.Close)
		logger.Info("socket.io notifications enabled.", "url", a.cfg.SocketIOURL)
	}

	if len(remote) == 0 {
		return notify.Log{}, cleanup, nil
	}

	async := notify.NewAsync(remote, 0)
	drain := func() error {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return async.Close(ctx)
	}
	// The queue must drain before the brokers close.
	closers = append([]func() error{drain}, closers...)
	return notify.Multi{notify.Log{}, async}, cleanup, nil
}
