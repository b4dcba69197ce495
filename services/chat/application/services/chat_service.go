package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/lostfound/pkg/logger"
	"github.com/ghuser/lostfound/services/chat/domain/models"
	"github.com/ghuser/lostfound/services/chat/domain/repositories"
	gate "github.com/ghuser/lostfound/services/chat/domain/services"
	itemmodels "github.com/ghuser/lostfound/services/item/domain/models"
)

// ChatService gates access to item chat rooms and records messages. Every
// call reloads the item, so access follows claim decisions immediately.
type ChatService struct {
	items    repositories.ItemReader
	messages repositories.MessageRepository
	log      logger.Logger
	now      func() time.Time
}

// NewChatService returns a ChatService. log may be nil.
func NewChatService(items repositories.ItemReader, messages repositories.MessageRepository, log logger.Logger) *ChatService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ChatService{items: items, messages: messages, log: log, now: time.Now}
}

// Authorize loads the item and checks userID may use its room.
func (s *ChatService) Authorize(ctx context.Context, userID, itemID uuid.UUID) (*itemmodels.Item, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := gate.Authorize(item, userID); err != nil {
		return nil, err
	}
	return item, nil
}

// History returns the room's messages in acceptance order.
func (s *ChatService) History(ctx context.Context, userID, itemID uuid.UUID) ([]*models.Message, error) {
	if _, err := s.Authorize(ctx, userID, itemID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.History(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	return msgs, nil
}

// Post authorizes the sender and stores the message. The item state it was
// authorized against is returned so callers can re-check room members.
// Callers serialize Post per item to keep history and delivery order equal.
func (s *ChatService) Post(ctx context.Context, userID, itemID uuid.UUID, text string) (*models.Message, *itemmodels.Item, error) {
	item, err := s.Authorize(ctx, userID, itemID)
	if err != nil {
		return nil, nil, err
	}
	msg, err := models.NewMessage(itemID, userID, text, s.now())
	if err != nil {
		return nil, nil, err
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, nil, fmt.Errorf("store chat message: %w", err)
	}
	s.log.DebugContext(ctx, "chat message stored", "item_id", itemID, "user_id", userID, "message_id", msg.ID)
	return msg, item, nil
}
