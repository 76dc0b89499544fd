// Package broker abstracts the pub/sub transport Windvane publishes
// telemetry through. The simulator sees a Publisher, the history service a
// Subscriber; Cloud Pub/Sub supplies both in production and an in-memory
// broker stands in for tests and local runs.
package broker

import (
	"context"
	"errors"
)

// Default topic names for the two telemetry channels.
const (
	DefaultLatestTopic  = "weather-latest"
	DefaultHistoryTopic = "weather-history"
)

// ErrBrokerUnavailable is returned when the transport is down and the
// circuit breaker refuses further publish attempts.
var ErrBrokerUnavailable = errors.New("broker unavailable")

// Message is one record delivered from a topic.
type Message struct {
	// Key is the partition key, the station id for both channels.
	Key string

	// Data is the JSON-encoded wire record.
	Data []byte
}

// Publisher publishes a keyed record to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, data []byte) error
}

// Handler processes one delivered message. A non-nil error nacks the
// message so the transport may redeliver it.
type Handler func(ctx context.Context, msg Message) error

// Subscriber delivers messages from a single subscription until the
// context is cancelled.
type Subscriber interface {
	Receive(ctx context.Context, handler Handler) error
}
