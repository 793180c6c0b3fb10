package messaging

import (
	"context"
	"log/slog"
	"sync"

	"concord/contexts/governance/promotion-engine/ports"
)

// Bus fans governance events out to in-process consumers. It satisfies
// ports.EventPublisher for the outbox relay and carries the consumer side the
// worker uses for its audit trail. The broker address list is accepted so
// wiring stays stable once an external broker client lands.
type Bus struct {
	mu     sync.RWMutex
	topics map[string][]*subscriber
	logger *slog.Logger
}

type subscriber struct {
	group string
	ch    chan ports.EventEnvelope
}

func NewBus(_ []string, logger *slog.Logger) (*Bus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		topics: make(map[string][]*subscriber),
		logger: logger,
	}, nil
}

// Publish delivers the envelope to every subscriber of the topic. A consumer
// whose buffer is full drops the event rather than stalling the relay; the
// outbox row stays the durable record either way.
func (b *Bus) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	b.mu.RLock()
	subs := append([]*subscriber(nil), b.topics[topic]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sub.ch <- event:
		default:
			b.logger.Warn("governance event dropped for slow consumer",
				"event", "governance_bus_drop",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", topic,
				"consumer_group", sub.group,
				"event_id", event.EventID,
			)
		}
	}

	b.logger.Info("governance event published",
		"event", "governance_bus_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
	)
	return nil
}

// Subscribe registers handler for the topic until ctx is cancelled. Handler
// errors are logged and the subscription keeps consuming.
func (b *Bus) Subscribe(ctx context.Context, topic string, group string, handler func(context.Context, ports.EventEnvelope) error) error {
	sub := &subscriber{group: group, ch: make(chan ports.EventEnvelope, 64)}

	b.mu.Lock()
	b.topics[topic] = append(b.topics[topic], sub)
	b.mu.Unlock()

	go b.consume(ctx, topic, sub, handler)
	return nil
}

func (b *Bus) consume(ctx context.Context, topic string, sub *subscriber, handler func(context.Context, ports.EventEnvelope) error) {
	defer b.drop(topic, sub)
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-sub.ch:
			if err := handler(ctx, event); err != nil {
				b.logger.Error("governance event handler failed",
					"event", "governance_bus_consume_failed",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"topic", topic,
					"consumer_group", sub.group,
					"event_id", event.EventID,
					"event_type", event.EventType,
					"error", err.Error(),
				)
			}
		}
	}
}

func (b *Bus) drop(topic string, target *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := b.topics[topic]
	filtered := make([]*subscriber, 0, len(items))
	for _, item := range items {
		if item != target {
			filtered = append(filtered, item)
		}
	}
	b.topics[topic] = filtered
}

var _ ports.EventPublisher = (*Bus)(nil)
