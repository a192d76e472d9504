// Package feed carries change events from the services to live subscribers.
package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcoot/kelimeoyunu/internal/dependencies/clock"
	"github.com/mcoot/kelimeoyunu/internal/model"
)

// subscriberBuffer is the per-subscription channel capacity.
// Events beyond it are dropped for that subscriber.
const subscriberBuffer = 64

// Publisher delivers an event to every subscriber of its topic
type Publisher interface {
	Publish(ctx context.Context, event model.Event) error
}

// Subscriber opens a stream of events for a topic
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (*Subscription, error)
}

// Feed is a publish/subscribe bus
type Feed interface {
	Publisher
	Subscriber
	Close() error
}

// Subscription is a live stream of events.
// C is closed when the subscription ends.
type Subscription struct {
	C <-chan model.Event

	once   sync.Once
	cancel func()
}

// Close ends the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}

// Emitter stamps and publishes events on behalf of a service.
// Publication failures are logged and never returned.
type Emitter struct {
	pub    Publisher
	clock  clock.Clock
	logger *slog.Logger
}

// NewEmitter creates an Emitter
func NewEmitter(pub Publisher, clk clock.Clock, logger *slog.Logger) *Emitter {
	return &Emitter{pub: pub, clock: clk, logger: logger}
}

// Emit publishes an event on topic
func (e *Emitter) Emit(ctx context.Context, topic string, eventType model.EventType, payload any) {
	event := model.Event{
		Type:      eventType,
		Topic:     topic,
		Timestamp: e.clock.Now(),
		Payload:   payload,
	}
	if err := e.pub.Publish(ctx, event); err != nil {
		e.logger.Warn("failed to publish event",
			slog.String("topic", topic),
			slog.String("type", string(eventType)),
			slog.Any("error", err))
	}
}
