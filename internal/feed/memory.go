package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcoot/kelimeoyunu/internal/model"
)

// MemoryFeed is an in-process Feed for single-instance deployments and tests
type MemoryFeed struct {
	mu     sync.RWMutex
	topics map[string]map[chan model.Event]struct{}
	closed bool
	logger *slog.Logger
}

var _ Feed = (*MemoryFeed)(nil)

// NewMemory creates an empty in-process feed
func NewMemory(logger *slog.Logger) *MemoryFeed {
	return &MemoryFeed{
		topics: make(map[string]map[chan model.Event]struct{}),
		logger: logger.With(slog.String("component", "feed")),
	}
}

// Publish fans the event out without blocking on slow subscribers
func (f *MemoryFeed) Publish(ctx context.Context, event model.Event) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for ch := range f.topics[event.Topic] {
		select {
		case ch <- event:
		default:
			f.logger.Warn("subscriber buffer full, dropping event",
				slog.String("topic", event.Topic),
				slog.String("type", string(event.Type)))
		}
	}
	return nil
}

// Subscribe registers a subscriber until ctx ends or Close is called
func (f *MemoryFeed) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	ch := make(chan model.Event, subscriberBuffer)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(ch)
		return &Subscription{C: ch, cancel: func() {}}, nil
	}
	if f.topics[topic] == nil {
		f.topics[topic] = make(map[chan model.Event]struct{})
	}
	f.topics[topic][ch] = struct{}{}
	f.mu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	go func() {
		<-subCtx.Done()
		f.remove(topic, ch)
	}()

	return &Subscription{C: ch, cancel: cancel}, nil
}

func (f *MemoryFeed) remove(topic string, ch chan model.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	subs, ok := f.topics[topic]
	if !ok {
		return
	}
	if _, ok := subs[ch]; !ok {
		return
	}
	delete(subs, ch)
	if len(subs) == 0 {
		delete(f.topics, topic)
	}
	close(ch)
}

// SubscriberCount returns the number of live subscriptions on topic
func (f *MemoryFeed) SubscriberCount(topic string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.topics[topic])
}

// Close ends every subscription
func (f *MemoryFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for topic, subs := range f.topics {
		for ch := range subs {
			close(ch)
		}
		delete(f.topics, topic)
	}
	return nil
}
