package feed

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/kelimeoyunu/internal/model"
)

const channelPrefix = "kelime:feed:"

// RedisFeed relays events over Redis pub/sub so every server instance sees them.
// Payloads arrive at remote subscribers as decoded JSON.
type RedisFeed struct {
	client *redis.Client
	logger *slog.Logger
}

var _ Feed = (*RedisFeed)(nil)

// NewRedis creates a feed over an existing client
func NewRedis(client *redis.Client, logger *slog.Logger) *RedisFeed {
	return &RedisFeed{
		client: client,
		logger: logger.With(slog.String("component", "feed")),
	}
}

func (f *RedisFeed) Publish(ctx context.Context, event model.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, channelPrefix+event.Topic, data).Err()
}

func (f *RedisFeed) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	pubsub := f.client.Subscribe(subCtx, channelPrefix+topic)

	// Wait for the subscription to be confirmed so no event published after
	// Subscribe returns can be missed
	if _, err := pubsub.Receive(subCtx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan model.Event, subscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event model.Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					f.logger.Warn("dropping malformed event", slog.String("topic", topic), slog.Any("error", err))
					continue
				}
				select {
				case out <- event:
				default:
					f.logger.Warn("subscriber buffer full, dropping event",
						slog.String("topic", topic),
						slog.String("type", string(event.Type)))
				}
			}
		}
	}()

	return &Subscription{C: out, cancel: cancel}, nil
}

// Close is a no-op; the client is owned by the storage layer
func (f *RedisFeed) Close() error {
	return nil
}
