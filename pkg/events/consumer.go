package events

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/ghuser/lostfound/pkg/logger"
)

const (
	maxRetries     = 3
	retryBaseDelay = time.Second
	closeTimeout   = 30 * time.Second
)

// Handler processes one event. Handlers must be idempotent: a returned error
// or a panic is retried with backoff and the message is then redelivered.
type Handler func(context.Context, *message.Message) error

// Consumer routes topics to Handlers on top of a watermill Router.
type Consumer struct {
	router *message.Router
	sub    message.Subscriber
	log    logger.Logger
	group  string
}

func newConsumer(sub message.Subscriber, wlog watermill.LoggerAdapter, log logger.Logger, group string, delay time.Duration) (*Consumer, error) {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: closeTimeout}, wlog)
	if err != nil {
		return nil, err
	}
	router.AddMiddleware(
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      maxRetries,
			InitialInterval: delay,
			Multiplier:      2,
			Logger:          wlog,
		}.Middleware,
	)
	return &Consumer{router: router, sub: sub, log: log, group: group}, nil
}

// Handle registers h for topic. Call before Run.
func (c *Consumer) Handle(topic string, h Handler) {
	c.router.AddNoPublisherHandler(c.group+"."+topic, topic, c.sub, func(msg *message.Message) error {
		ctx := otel.GetTextMapPropagator().Extract(msg.Context(), propagation.MapCarrier(msg.Metadata))
		ctx = logger.ContextWith(ctx, "topic", topic, "message_id", msg.UUID)
		return h(ctx, msg)
	})
}

// Run consumes until ctx is cancelled, then waits up to 30s for in-flight
// handlers.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.sub.Close() //nolint:errcheck
	return c.router.Run(ctx)
}

// Running is closed once every handler is subscribed.
func (c *Consumer) Running() chan struct{} {
	return c.router.Running()
}
