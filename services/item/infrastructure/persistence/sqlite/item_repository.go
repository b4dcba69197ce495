// Package sqlite wires the item repositories to an embedded SQLite database.
// The pool holds one connection, so transactions are already serialized and
// no row lock is needed. There is no outbox: domain events are dropped.
package sqlite

import (
	"github.com/ghuser/lostfound/pkg/database"
	"github.com/ghuser/lostfound/services/item/infrastructure/persistence"
)

// NewItemRepository returns an item repository backed by db.
func NewItemRepository(db *database.Database) *persistence.ItemStore {
	return persistence.NewItemStore(db, persistence.Options{})
}

// NewAdminLogRepository returns the audit log repository.
func NewAdminLogRepository(db *database.Database) *persistence.AdminLogStore {
	return persistence.NewAdminLogStore(db)
}
