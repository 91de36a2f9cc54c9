package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisDispatcher publishes envelopes for the Hubs to pick up.
type RedisDispatcher struct {
	redis   *redis.Client
	channel string
}

func NewRedisDispatcher(client *redis.Client, channel string) *RedisDispatcher {
	return &RedisDispatcher{redis: client, channel: channel}
}

func (d *RedisDispatcher) Dispatch(ctx context.Context, token string, ev Event) error {
	payload, err := json.Marshal(Envelope{Token: token, Event: ev})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := d.redis.Publish(ctx, d.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
