package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/ghuser/lostfound/pkg/config"
	"github.com/ghuser/lostfound/pkg/logger"
)

// runConsumer starts a consumer over an in-memory pubsub with handlers
// registered by register, and returns the publisher side.
func runConsumer(t *testing.T, register func(*Consumer)) message.Publisher {
	t.Helper()
	wlog := watermill.NopLogger{}
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, wlog)
	c, err := newConsumer(pubsub, wlog, logger.NewNop(), "test-consumer", time.Millisecond)
	require.NoError(t, err)
	register(c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	select {
	case <-c.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not start")
	}
	return pubsub
}

func TestConsumer_RetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	handled := make(chan struct{})
	pub := runConsumer(t, func(c *Consumer) {
		c.Handle("item.approved", func(context.Context, *message.Message) error {
			if calls.Add(1) < 3 {
				return errors.New("redis unavailable")
			}
			close(handled)
			return nil
		})
	})

	msg, err := NewJSONMessage(context.Background(), "evt-1", 1, map[string]string{"item_id": "abc"})
	require.NoError(t, err)
	require.NoError(t, pub.Publish("item.approved", msg))

	select {
	case <-handled:
	case <-time.After(5 * time.Second):
		t.Fatalf("handler never succeeded, %d calls", calls.Load())
	}
	require.EqualValues(t, 3, calls.Load())
}

func TestConsumer_RecoversPanics(t *testing.T) {
	var calls atomic.Int32
	handled := make(chan struct{})
	pub := runConsumer(t, func(c *Consumer) {
		c.Handle("claim.submitted", func(context.Context, *message.Message) error {
			if calls.Add(1) == 1 {
				panic("nil snapshot")
			}
			close(handled)
			return nil
		})
	})

	require.NoError(t, pub.Publish("claim.submitted", message.NewMessage(watermill.NewUUID(), []byte(`{}`))))
	select {
	case <-handled:
	case <-time.After(5 * time.Second):
		t.Fatal("panicking handler was not retried")
	}
}

func TestConsumer_RestoresTraceContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background()) //nolint:errcheck
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	got := make(chan trace.SpanContext, 1)
	pub := runConsumer(t, func(c *Consumer) {
		c.Handle("claim.decided", func(ctx context.Context, _ *message.Message) error {
			got <- trace.SpanContextFromContext(ctx)
			return nil
		})
	})

	ctx, span := tp.Tracer("events-test").Start(context.Background(), "claim.decide")
	msg, err := NewJSONMessage(ctx, "evt-2", 1, map[string]string{"decision": "approved"})
	span.End()
	require.NoError(t, err)
	require.NotEmpty(t, msg.Metadata.Get("traceparent"))
	require.NoError(t, pub.Publish("claim.decided", msg))

	select {
	case sc := <-got:
		require.Equal(t, span.SpanContext().TraceID(), sc.TraceID())
	case <-time.After(5 * time.Second):
		t.Fatal("handler not called")
	}
}

func TestNewJSONMessage(t *testing.T) {
	type payload struct {
		ItemID string `json:"item_id"`
	}
	msg, err := NewJSONMessage(context.Background(), "evt-1", 2, payload{ItemID: "abc"})
	require.NoError(t, err)
	require.Equal(t, "evt-1", msg.Metadata.Get(MetadataEventID))
	require.Equal(t, "2", msg.Metadata.Get(MetadataEventVersion))

	var got payload
	require.NoError(t, DecodeJSON(msg, &got))
	require.Equal(t, "abc", got.ItemID)

	var v map[string]any
	require.Error(t, DecodeJSON(message.NewMessage("id", []byte("{not json")), &v))
}

func TestNewEventBus_RequiresPostgres(t *testing.T) {
	_, err := NewEventBus(&config.Config{DatabaseDriver: config.DriverSQLite}, logger.NewNop())
	require.ErrorIs(t, err, ErrPostgresRequired)
}
