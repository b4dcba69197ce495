package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/ghuser/lostfound/services/chat/domain/models"
	itemmodels "github.com/ghuser/lostfound/services/item/domain/models"
)

// MessageRepository stores chat history.
type MessageRepository interface {
	Append(ctx context.Context, msg *models.Message) error
	// History returns an item's messages in acceptance order.
	History(ctx context.Context, itemID uuid.UUID) ([]*models.Message, error)
}

// ItemReader loads the current item state. Implementations must read the
// system of record, never a cache, since chat access follows claim
// decisions immediately.
type ItemReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*itemmodels.Item, error)
}
