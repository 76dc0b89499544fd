package broker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windvane/windvane/internal/broker"
)

// countingPublisher fails the first failures calls, then succeeds.
type countingPublisher struct {
	failures int
	calls    int
}

func (p *countingPublisher) Publish(_ context.Context, _, _ string, _ []byte) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("transient broker error")
	}
	return nil
}

func testRetryConfig() broker.RetryConfig {
	return broker.RetryConfig{
		Name:            "test",
		Timeout:         time.Second,
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}
}

func TestRetryingPublisher_RecoversFromTransientFailure(t *testing.T) {
	inner := &countingPublisher{failures: 2}
	pub := broker.NewRetryingPublisher(inner, testRetryConfig())

	err := pub.Publish(context.Background(), "t", "city_1", []byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingPublisher_SurfacesExhaustedRetries(t *testing.T) {
	inner := &countingPublisher{failures: 100}
	pub := broker.NewRetryingPublisher(inner, testRetryConfig())

	err := pub.Publish(context.Background(), "t", "city_1", []byte("{}"))
	require.Error(t, err)
	// First attempt plus MaxRetries.
	assert.Equal(t, 4, inner.calls)
}

func TestRetryingPublisher_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	inner := &countingPublisher{failures: 1000}
	pub := broker.NewRetryingPublisher(inner, testRetryConfig())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.Error(t, pub.Publish(ctx, "t", "city_1", []byte("{}")))
	}

	calls := inner.calls
	err := pub.Publish(ctx, "t", "city_1", []byte("{}"))
	require.ErrorIs(t, err, broker.ErrBrokerUnavailable)
	// The open breaker refuses the attempt without touching the broker.
	assert.Equal(t, calls, inner.calls)
}

func TestMemoryBroker_FansOutToSubscribers(t *testing.T) {
	mem := broker.NewMemoryBroker()
	sub := mem.Subscriber("weather-history")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan broker.Message, 1)
	go func() {
		_ = sub.Receive(ctx, func(_ context.Context, msg broker.Message) error {
			received <- msg
			return nil
		})
	}()

	require.NoError(t, mem.Publish(ctx, "weather-history", "city_1", []byte(`{"a":1}`)))

	select {
	case msg := <-received:
		assert.Equal(t, "city_1", msg.Key)
		assert.JSONEq(t, `{"a":1}`, string(msg.Data))
	case <-time.After(time.Second):
		t.Fatal("message was not delivered")
	}

	msgs := mem.Messages("weather-history")
	require.Len(t, msgs, 1)
	assert.Equal(t, "city_1", msgs[0].Key)
}
