package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ghuser/lostfound/pkg/auth"
	"github.com/ghuser/lostfound/pkg/errhttp"
	"github.com/ghuser/lostfound/pkg/httpx"
	chatsvcs "github.com/ghuser/lostfound/services/chat/application/services"
	"github.com/ghuser/lostfound/services/chat/domain/models"
	itemdomain "github.com/ghuser/lostfound/services/item/domain"
)

// MessageView is one chat line as sent to clients, over HTTP and the
// websocket alike.
type MessageView struct {
	Sender uuid.UUID `json:"sender"`
	Text   string    `json:"text" example:"Hi, I think that's my wallet"`
	Time   time.Time `json:"time"`
} // @name MessageView

// ToMessageView converts a stored message.
func ToMessageView(m *models.Message) MessageView {
	return MessageView{Sender: m.SenderID, Text: m.Text, Time: m.CreatedAt}
}

// ToMessageViews converts a history slice, never returning nil.
func ToMessageViews(msgs []*models.Message) []MessageView {
	out := make([]MessageView, len(msgs))
	for k, m := range msgs {
		out[k] = ToMessageView(m)
	}
	return out
}

// GetHistoryHandler handles GET /items/{id}/chat.
type GetHistoryHandler struct {
	svc *chatsvcs.ChatService
}

// NewGetHistoryHandler returns a GetHistoryHandler.
func NewGetHistoryHandler(svc *chatsvcs.ChatService) *GetHistoryHandler {
	return &GetHistoryHandler{svc: svc}
}

// Execute returns the item's chat history, oldest first. Only the owner and
// the approved claimant may read it.
//
//	@Summary	Chat history
//	@Tags		chat
//	@Produce	json
//	@Param		id	path		string	true	"Item ID"
//	@Success	200	{array}		MessageView
//	@Failure	401	{object}	map[string]string
//	@Failure	403	{object}	map[string]string
//	@Failure	404	{object}	map[string]string
//	@Security	BearerAuth
//	@Router		/items/{id}/chat [get]
func (h *GetHistoryHandler) Execute(w http.ResponseWriter, r *http.Request) {
	p, err := auth.PrincipalFromCtx(r.Context())
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		errhttp.WriteError(w, itemdomain.ErrItemNotFound)
		return
	}

	msgs, err := h.svc.History(r.Context(), p.UserID, itemID)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToMessageViews(msgs))
}
