// Package postgres wires the item repositories to PostgreSQL: items are
// locked with SELECT ... FOR UPDATE and domain events go to the watermill
// outbox in the same transaction.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ghuser/lostfound/pkg/database"
	"github.com/ghuser/lostfound/pkg/events"
	domainevents "github.com/ghuser/lostfound/services/item/domain/events"
	"github.com/ghuser/lostfound/services/item/infrastructure/persistence"
)

// NewItemRepository returns an item repository backed by db. bus may be nil,
// in which case events are not published.
func NewItemRepository(db *database.Database, bus *events.EventBus) *persistence.ItemStore {
	opts := persistence.Options{LockClause: " FOR UPDATE"}
	if bus != nil {
		opts.Publish = Outbox(bus)
	}
	return persistence.NewItemStore(db, opts)
}

// NewAdminLogRepository returns the audit log repository.
func NewAdminLogRepository(db *database.Database) *persistence.AdminLogStore {
	return persistence.NewAdminLogStore(db)
}

// Outbox publishes each event as a JSON message on its topic inside tx.
func Outbox(bus *events.EventBus) persistence.Publisher {
	return func(ctx context.Context, tx *sql.Tx, evts []domainevents.Event) error {
		for _, e := range evts {
			meta := e.Meta()
			msg, err := events.NewJSONMessage(ctx, meta.EventID.String(), meta.Version, e)
			if err != nil {
				return err
			}
			if err := bus.PublishTx(tx, e.Topic(), msg); err != nil {
				return fmt.Errorf("outbox %s: %w", e.Topic(), err)
			}
		}
		return nil
	}
}
