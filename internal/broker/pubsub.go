package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// attrCityID carries the station id alongside the payload so consumers can
// key without decoding.
const attrCityID = "city_id"

// PubSubPublisher publishes records to Cloud Pub/Sub topics with per-key
// message ordering enabled.
type PubSubPublisher struct {
	client *pubsub.Client
	logger zerolog.Logger

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewPubSubPublisher creates a publisher bound to a project.
func NewPubSubPublisher(ctx context.Context, projectID string, logger zerolog.Logger) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &PubSubPublisher{
		client:     client,
		logger:     logger,
		publishers: make(map[string]*pubsub.Publisher),
	}, nil
}

// Publish sends one record and waits for the server acknowledgement.
func (p *PubSubPublisher) Publish(ctx context.Context, topic, key string, data []byte) error {
	pub := p.publisher(topic)

	result := pub.Publish(ctx, &pubsub.Message{
		Data:        data,
		OrderingKey: key,
		Attributes:  map[string]string{attrCityID: key},
	})

	if _, err := result.Get(ctx); err != nil {
		// A failed ordered publish pauses the key; resume so the next
		// tick can publish again.
		pub.ResumePublish(key)
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// Close flushes outstanding messages and releases the client.
func (p *PubSubPublisher) Close() error {
	p.mu.Lock()
	for _, pub := range p.publishers {
		pub.Stop()
	}
	p.mu.Unlock()
	return p.client.Close()
}

func (p *PubSubPublisher) publisher(topic string) *pubsub.Publisher {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pub, ok := p.publishers[topic]; ok {
		return pub
	}
	pub := p.client.Publisher(topic)
	pub.EnableMessageOrdering = true
	p.publishers[topic] = pub
	return pub
}

// PubSubSubscriber consumes one Pub/Sub subscription and hands decoded
// messages to a Handler.
type PubSubSubscriber struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	logger           zerolog.Logger
}

// SubscriberConfig holds configuration for a Pub/Sub subscriber.
type SubscriberConfig struct {
	ProjectID        string
	SubscriptionName string
	Logger           zerolog.Logger
}

// NewPubSubSubscriber creates a subscriber for one subscription.
func NewPubSubSubscriber(ctx context.Context, cfg SubscriberConfig) (*PubSubSubscriber, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 50
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubSubscriber{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		logger:           cfg.Logger,
	}, nil
}

// Receive blocks delivering messages until the context is cancelled.
// Handler errors nack the message for redelivery.
func (s *PubSubSubscriber) Receive(ctx context.Context, handler Handler) error {
	s.logger.Info().
		Str("subscription", s.subscriptionName).
		Msg("starting pubsub subscriber")

	return s.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		m := Message{
			Key:  msg.Attributes[attrCityID],
			Data: msg.Data,
		}
		if err := handler(ctx, m); err != nil {
			s.logger.Error().
				Err(err).
				Str("message_id", msg.ID).
				Msg("message handling failed")
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Close releases the underlying client.
func (s *PubSubSubscriber) Close() error {
	return s.client.Close()
}
