package broker

import (
	"context"
	"sync"
)

// MemoryBroker is an in-process implementation of the Publisher and
// Subscriber capabilities. It backs tests and single-process local runs;
// production uses Cloud Pub/Sub.
type MemoryBroker struct {
	mu        sync.Mutex
	published map[string][]Message
	subs      map[string][]chan Message
}

// NewMemoryBroker creates an empty in-memory broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		published: make(map[string][]Message),
		subs:      make(map[string][]chan Message),
	}
}

// Publish records the message and fans it out to topic subscribers.
func (b *MemoryBroker) Publish(_ context.Context, topic, key string, data []byte) error {
	msg := Message{Key: key, Data: data}

	b.mu.Lock()
	b.published[topic] = append(b.published[topic], msg)
	subs := make([]chan Message, len(b.subs[topic]))
	copy(subs, b.subs[topic])
	b.mu.Unlock()

	for _, ch := range subs {
		ch <- msg
	}
	return nil
}

// Messages returns everything published to a topic, in order.
func (b *MemoryBroker) Messages(topic string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	msgs := make([]Message, len(b.published[topic]))
	copy(msgs, b.published[topic])
	return msgs
}

// Subscriber attaches a new subscription to a topic. Messages published
// before the subscriber attaches are not replayed.
func (b *MemoryBroker) Subscriber(topic string) Subscriber {
	ch := make(chan Message, 128)

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()

	return &memorySubscriber{ch: ch}
}

type memorySubscriber struct {
	ch chan Message
}

// Receive delivers messages until the context is cancelled. Handler errors
// drop the message; the in-memory broker does not redeliver.
func (s *memorySubscriber) Receive(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-s.ch:
			_ = handler(ctx, msg)
		}
	}
}
