package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/roundabout/pkg/errors"
	"github.com/matzehuels/roundabout/pkg/retry"
	"github.com/matzehuels/roundabout/pkg/sim"
)

// DefaultChannel is the pub/sub channel frames are published on.
const DefaultChannel = "roundabout:frames"

// Client is the subset of a Redis client a [RedisPublisher] needs.
// *redis.Client satisfies it.
type Client interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Close() error
}

// RedisPublisher publishes frames as JSON on a Redis channel.
type RedisPublisher struct {
	client  Client
	channel string
}

// NewRedisPublisher connects to the Redis server at url (for example
// redis://localhost:6379/0) and pings it, retrying while the server is
// unreachable. An empty channel
// uses [DefaultChannel].
func NewRedisPublisher(ctx context.Context, url, channel string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "redis url %q", url)
	}
	client := redis.NewClient(opts)
	err = retry.Do(ctx, func(int) error {
		return retry.Mark(client.Ping(ctx).Err())
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opts.Addr, err)
	}
	return NewRedisPublisherWithClient(client, channel), nil
}

// NewRedisPublisherWithClient wraps an existing client.
func NewRedisPublisherWithClient(client Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

// Channel returns the channel frames are published on.
func (p *RedisPublisher) Channel() string { return p.channel }

// Publish sends f to every current subscriber of the channel.
func (p *RedisPublisher) Publish(ctx context.Context, f sim.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame %d: %w", f.Seq, err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish frame %d: %w", f.Seq, err)
	}
	return nil
}

// Close closes the underlying client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
