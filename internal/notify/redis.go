package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBroadcaster publishes room events over Redis Pub/Sub. Real-time
// gateways subscribe to "<prefix>:<room>".
type RedisBroadcaster struct {
	client redis.Cmdable
	prefix string
}

// NewRedisBroadcaster constructs a RedisBroadcaster.
func NewRedisBroadcaster(client redis.Cmdable, prefix string) *RedisBroadcaster {
	return &RedisBroadcaster{client: client, prefix: prefix}
}

type envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Channel returns the Pub/Sub channel of a room.
func (b *RedisBroadcaster) Channel(room string) string {
	return b.prefix + ":" + room
}

// Publish implements Broadcaster.
func (b *RedisBroadcaster) Publish(ctx context.Context, room, event string, payload any) error {
	body, err := json.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event, err)
	}
	if err := b.client.Publish(ctx, b.Channel(room), body).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", room, err)
	}
	return nil
}

// Name implements Sink.
func (b *RedisBroadcaster) Name() string { return "redis" }

// Deliver implements Sink by publishing to the subject's own room.
func (b *RedisBroadcaster) Deliver(ctx context.Context, msg Message) error {
	return b.Publish(ctx, UserRoom(msg.SubjectID), msg.Event, msg)
}
