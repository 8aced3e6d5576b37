package meeting

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Channel is the Redis pub/sub channel the worker publishes lifecycle
// events on and every API instance subscribes to.
const Channel = "meeting-events"

// Event types mirror the queue topics that produce them.
const (
	EventEnded      = "meetingEnded"
	EventEndingSoon = "meetingEndingSoon"
)

// Event is one lifecycle notification crossing process boundaries.
type Event struct {
	Type    string  `json:"type"`
	Payload Payload `json:"payload"`
}

// Bus bridges the worker and the API instances over Redis pub/sub. Workers
// publish; every API instance subscribes and reacts, so a meeting ends
// correctly no matter which instance holds its members' connections.
type Bus struct {
	rdb *redis.Client
}

func NewBus(rdb *redis.Client) *Bus {
	return &Bus{rdb: rdb}
}

func (b *Bus) Publish(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, Channel, raw).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// Subscribe blocks delivering events to handler until ctx is cancelled.
// Malformed messages are logged and skipped.
func (b *Bus) Subscribe(ctx context.Context, handler func(context.Context, Event)) error {
	sub := b.rdb.Subscribe(ctx, Channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Error().Err(err).Str("payload", msg.Payload).Msg("malformed meeting event")
				continue
			}
			handler(ctx, ev)
		}
	}
}
