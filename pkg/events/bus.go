// Package events carries item and claim domain events from the API to the
// worker through a transactional outbox in PostgreSQL.
//
// Repositories publish with PublishTx inside the transaction that changes
// the item, so an event exists exactly when its change was committed. The
// API runs a forwarder that moves outbox rows to their real topics; the
// worker consumes those topics through a Consumer.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ThreeDotsLabs/watermill"
	watermillsql "github.com/ThreeDotsLabs/watermill-sql/v3/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/ghuser/lostfound/pkg/config"
	"github.com/ghuser/lostfound/pkg/logger"
)

const (
	outboxTopic    = "_lostfound_outbox"
	forwarderGroup = "lostfound-forwarder"

	// MetadataEventID carries the domain event id for deduplication.
	MetadataEventID = "event_id"
	// MetadataEventVersion carries the payload schema version.
	MetadataEventVersion = "event_version"
)

// ErrPostgresRequired is returned when the bus is requested with the sqlite
// driver. Single-node deployments run without events.
var ErrPostgresRequired = errors.New("events: the event bus requires postgres")

// EventBus owns the outbox tables and the connection they live on.
type EventBus struct {
	db       *sql.DB
	log      logger.Logger
	wlog     watermill.LoggerAdapter
	consumer string
	fwd      *forwarder.Forwarder
}

// NewEventBus opens its own pool on cfg.DatabaseURL. Consumers it creates
// join the "<service>-consumer" group.
func NewEventBus(cfg *config.Config, log logger.Logger) (*EventBus, error) {
	if cfg.DatabaseDriver != config.DriverPostgres {
		return nil, ErrPostgresRequired
	}
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("events: open db: %w", err)
	}
	return &EventBus{
		db:       db,
		log:      log,
		wlog:     watermill.NewSlogLogger(log.ToSlog()),
		consumer: cfg.ServiceName + "-consumer",
	}, nil
}

func publisherOn(db watermillsql.ContextExecutor, wlog watermill.LoggerAdapter, initSchema bool) (*watermillsql.Publisher, error) {
	pub, err := watermillsql.NewPublisher(db, watermillsql.PublisherConfig{
		SchemaAdapter:        watermillsql.DefaultPostgreSQLSchema{},
		AutoInitializeSchema: initSchema,
	}, wlog)
	if err != nil {
		return nil, fmt.Errorf("events: new publisher: %w", err)
	}
	return pub, nil
}

func (q *EventBus) subscriber(group string) (*watermillsql.Subscriber, error) {
	sub, err := watermillsql.NewSubscriber(q.db, watermillsql.SubscriberConfig{
		SchemaAdapter:    watermillsql.DefaultPostgreSQLSchema{},
		OffsetsAdapter:   watermillsql.DefaultPostgreSQLOffsetsAdapter{},
		InitializeSchema: true,
		ConsumerGroup:    group,
	}, q.wlog)
	if err != nil {
		return nil, fmt.Errorf("events: new subscriber: %w", err)
	}
	return sub, nil
}

// StartForwarder drains the outbox onto the real topics until ctx ends. It
// returns once the forwarder is running.
func (q *EventBus) StartForwarder(ctx context.Context) error {
	if q.fwd != nil {
		return errors.New("events: forwarder already started")
	}
	sub, err := q.subscriber(forwarderGroup)
	if err != nil {
		return err
	}
	pub, err := publisherOn(q.db, q.wlog, true)
	if err != nil {
		_ = sub.Close()
		return err
	}
	fwd, err := forwarder.NewForwarder(sub, pub, q.wlog, forwarder.Config{ForwarderTopic: outboxTopic})
	if err != nil {
		_ = pub.Close()
		_ = sub.Close()
		return fmt.Errorf("events: create forwarder: %w", err)
	}
	q.fwd = fwd

	go func() {
		if err := fwd.Run(ctx); err != nil {
			q.log.ErrorContext(ctx, "events: forwarder stopped", "error", err)
		}
	}()

	select {
	case <-fwd.Running():
		q.log.InfoContext(ctx, "events: forwarder running", "outbox", outboxTopic)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("events: waiting for forwarder: %w", ctx.Err())
	}
}

// PublishTx writes msgs for topic into the outbox inside tx. The outbox
// table is created when StartForwarder subscribes to it, so no schema work
// happens inside the caller's transaction.
func (q *EventBus) PublishTx(tx *sql.Tx, topic string, msgs ...*message.Message) error {
	pub, err := publisherOn(tx, q.wlog, false)
	if err != nil {
		return err
	}
	outbox := forwarder.NewPublisher(pub, forwarder.PublisherConfig{ForwarderTopic: outboxTopic})
	if err := outbox.Publish(topic, msgs...); err != nil {
		return fmt.Errorf("events: publish to %s: %w", topic, err)
	}
	return nil
}

// NewConsumer returns a Consumer reading from this bus in its consumer group.
func (q *EventBus) NewConsumer() (*Consumer, error) {
	sub, err := q.subscriber(q.consumer)
	if err != nil {
		return nil, err
	}
	return newConsumer(sub, q.wlog, q.log, q.consumer, retryBaseDelay)
}

// Ping checks the bus connection. Used by /health.
func (q *EventBus) Ping(ctx context.Context) error {
	if err := q.db.PingContext(ctx); err != nil {
		return fmt.Errorf("events: ping db: %w", err)
	}
	return nil
}

// Close stops the forwarder and closes the pool. Consumers are closed by
// their own Run returning.
func (q *EventBus) Close() error {
	var errs []error
	if q.fwd != nil {
		errs = append(errs, q.fwd.Close())
	}
	errs = append(errs, q.db.Close())
	return errors.Join(errs...)
}

// NewJSONMessage marshals payload into a message tagged with eventID and
// version, carrying the trace context of ctx.
func NewJSONMessage(ctx context.Context, eventID string, version int, payload any) (*message.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("events: marshal payload: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(MetadataEventID, eventID)
	msg.Metadata.Set(MetadataEventVersion, strconv.Itoa(version))
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(msg.Metadata))
	return msg, nil
}

// DecodeJSON unmarshals a message payload into v.
func DecodeJSON(msg *message.Message, v any) error {
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("events: decode %s: %w", msg.UUID, err)
	}
	return nil
}
