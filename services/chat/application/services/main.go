package services

import (
	"github.com/ghuser/lostfound/pkg/app"
	"github.com/ghuser/lostfound/services/chat/domain/repositories"
	"github.com/ghuser/lostfound/services/chat/infrastructure/persistence"
)

// New wires the chat service. items must read the item store directly.
func New(a *app.Application, items repositories.ItemReader) *ChatService {
	return NewChatService(items, persistence.NewMessageStore(a.Db), a.Logger)
}
