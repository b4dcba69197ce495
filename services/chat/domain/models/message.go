package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	chatdomain "github.com/ghuser/lostfound/services/chat/domain"
	itemdomain "github.com/ghuser/lostfound/services/item/domain"
)

// MaxMessageLength bounds a message in runes.
const MaxMessageLength = 2000

// Message is one accepted chat line in an item's room. Messages are
// append-only.
type Message struct {
	ID        uuid.UUID
	ItemID    uuid.UUID
	SenderID  uuid.UUID
	Text      string
	CreatedAt time.Time
}

// NewMessage trims and validates text.
func NewMessage(itemID, senderID uuid.UUID, text string, now time.Time) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, chatdomain.ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return nil, itemdomain.Validationf("message must not exceed %d characters", MaxMessageLength)
	}
	return &Message{
		ID:        uuid.New(),
		ItemID:    itemID,
		SenderID:  senderID,
		Text:      text,
		CreatedAt: now.UTC(),
	}, nil
}
