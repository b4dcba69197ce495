// Package persistence stores chat messages. The queries are portable, so one
// implementation serves both database drivers.
package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ghuser/lostfound/pkg/database"
	"github.com/ghuser/lostfound/services/chat/domain/models"
	"github.com/ghuser/lostfound/services/chat/domain/repositories"
)

// MessageStore implements repositories.MessageRepository.
type MessageStore struct {
	db *database.Database
}

var _ repositories.MessageRepository = (*MessageStore)(nil)

// NewMessageStore returns a MessageStore over db.
func NewMessageStore(db *database.Database) *MessageStore {
	return &MessageStore{db: db}
}

// Append stores msg. The database sequence fixes its position in history.
func (s *MessageStore) Append(ctx context.Context, msg *models.Message) error {
	_, err := s.db.DB().ExecContext(ctx,
		s.db.Rebind(`INSERT INTO chat_messages (id, item_id, sender_id, body, created_at) VALUES (?, ?, ?, ?, ?)`),
		msg.ID, msg.ItemID, msg.SenderID, msg.Text, msg.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

// History returns the item's messages in the order they were appended.
func (s *MessageStore) History(ctx context.Context, itemID uuid.UUID) ([]*models.Message, error) {
	rows, err := s.db.DB().QueryContext(ctx,
		s.db.Rebind(`SELECT id, item_id, sender_id, body, created_at FROM chat_messages WHERE item_id = ? ORDER BY seq`),
		itemID)
	if err != nil {
		return nil, fmt.Errorf("query chat history: %w", err)
	}
	defer rows.Close()

	out := []*models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ItemID, &m.SenderID, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		m.CreatedAt = m.CreatedAt.UTC()
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat history: %w", err)
	}
	return out, nil
}
