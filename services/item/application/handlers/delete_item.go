package handlers

import (
	"net/http"

	"github.com/ghuser/lostfound/pkg/errhttp"
	"github.com/ghuser/lostfound/pkg/httpx"
	appsvcs "github.com/ghuser/lostfound/services/item/application/services"
)

// DeleteItemHandler handles DELETE /items/{id} (admin) and
// DELETE /items/{id}/own (owner).
type DeleteItemHandler struct {
	svc *appsvcs.Services
	own bool
}

// NewDeleteItemHandler returns the admin delete handler.
func NewDeleteItemHandler(svc *appsvcs.Services) *DeleteItemHandler {
	return &DeleteItemHandler{svc: svc}
}

// NewDeleteOwnItemHandler returns the owner delete handler.
func NewDeleteOwnItemHandler(svc *appsvcs.Services) *DeleteItemHandler {
	return &DeleteItemHandler{svc: svc, own: true}
}

// Execute permanently deletes an item with its claims and chat history.
// Admins may delete any item; owners only until a claim is approved.
//
//	@Summary	Delete item
//	@Tags		items
//	@Produce	json
//	@Param		id	path		string	true	"Item ID"
//	@Success	200	{object}	MessageResponse
//	@Failure	403	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Failure	409	{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/items/{id} [delete]
//	@Router		/items/{id}/own [delete]
func (h *DeleteItemHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	if h.own {
		err = h.svc.Item.DeleteOwn(r.Context(), actorFrom(r), id)
	} else {
		err = h.svc.Item.Delete(r.Context(), actorFrom(r), id)
	}
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, MessageResponse{Message: "Item deleted"})
}
