package events

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStream appends events to a capped redis stream.
type RedisStream struct {
	R      *redis.Client
	Stream string
	MaxLen int64
}

// Append implements EventStore with XADD.
func (s RedisStream) Append(ctx context.Context, event Event) (Event, error) {
	if s.R == nil {
		return Event{}, errors.New("events: redis client not configured")
	}
	stream := s.Stream
	if stream == "" {
		stream = "pricing:events"
	}
	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"topic":        event.Topic,
			"aggregate_id": event.AggregateID,
			"payload":      string(event.Payload),
			"occurred_at":  event.OccurredAt.Format(time.RFC3339Nano),
		},
	}
	if s.MaxLen > 0 {
		args.MaxLen = s.MaxLen
		args.Approx = true
	}
	id, err := s.R.XAdd(ctx, args).Result()
	if err != nil {
		return Event{}, err
	}
	event.ID = id
	return event, nil
}

// LogNotifier writes every event to a logger.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, event Event) error {
	n.Logger.Debug().
		Str("event_id", event.ID).
		Str("topic", event.Topic).
		Str("aggregate_id", event.AggregateID).
		RawJSON("payload", event.Payload).
		Msg("event emitted")
	return nil
}
