package notify

import (
	"context"

	"github.com/go-redis/redis/v8"
)

// DefaultChannel is the Redis channel events are published on.
const DefaultChannel = "gridflow:events"

// Redis publishes events on a pub/sub channel.
type Redis struct {
	client  *redis.Client
	channel string
}

// NewRedis creates a sink over an existing client.
func NewRedis(client *redis.Client, channel string) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Redis{client: client, channel: channel}
}

// DialRedis creates a client for addr.
func DialRedis(addr, password, channel string) *Redis {
	return NewRedis(redis.NewClient(&redis.Options{Addr: addr, Password: password}), channel)
}

func (r *Redis) Publish(ctx context.Context, ev Event) error {
	data, err := encode(ev)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
