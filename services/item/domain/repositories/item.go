package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/lostfound/services/item/domain/events"
	"github.com/ghuser/lostfound/services/item/domain/models"
)

// QueryOpts contains pagination parameters for list queries.
// A zero Limit means no limit.
type QueryOpts struct {
	Limit  int // Maximum number of records to return
	Offset int // Number of records to skip
}

// ListFilter narrows ListItems. Zero values mean "any".
type ListFilter struct {
	Status  models.Status
	OwnerID uuid.UUID
	QueryOpts
}

// MutateFunc changes a locked item in place and returns the events to
// publish with the change. Returning an error aborts the transaction.
type MutateFunc func(item *models.Item) ([]events.Event, error)

// ClaimOverview is a claim flattened with its item for the admin overview.
type ClaimOverview struct {
	ItemID     uuid.UUID
	ItemTitle  string
	ClaimID    uuid.UUID
	Position   int
	ClaimantID uuid.UUID
	Confidence int
	Status     models.ClaimStatus
	CreatedAt  time.Time
}

// ItemRepository is the persistence interface for the Item aggregate,
// including its embedded claims. The domain layer owns this interface;
// infrastructure implements it.
type ItemRepository interface {
	// Create persists a new item and publishes evts in the same transaction.
	Create(ctx context.Context, item *models.Item, evts ...events.Event) error

	// GetByID loads an item with its claims in submission order.
	// Returns ErrItemNotFound if missing.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error)

	// List returns items newest first, with claims loaded.
	List(ctx context.Context, filter ListFilter) ([]*models.Item, error)

	// Mutate loads the item under an exclusive lock, applies fn and persists
	// the result. All mutations of one item are serialized through here.
	Mutate(ctx context.Context, id uuid.UUID, fn MutateFunc) (*models.Item, error)

	// Delete removes the item after fn approves it under the same lock.
	// Claims and chat history are removed with it.
	Delete(ctx context.Context, id uuid.UUID, fn MutateFunc) (*models.Item, error)

	// ListClaims returns every claim, grouped by item newest first and in
	// submission order within an item.
	ListClaims(ctx context.Context) ([]ClaimOverview, error)
}

// AdminLogRepository stores the admin audit trail.
type AdminLogRepository interface {
	Append(ctx context.Context, entry *models.AdminLog) error
	// List returns entries newest first.
	List(ctx context.Context, opts QueryOpts) ([]*models.AdminLog, error)
}
