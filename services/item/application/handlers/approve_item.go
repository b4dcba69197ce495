package handlers

import (
	"net/http"

	"github.com/ghuser/lostfound/pkg/errhttp"
	"github.com/ghuser/lostfound/pkg/httpx"
	appsvcs "github.com/ghuser/lostfound/services/item/application/services"
)

// ApproveItemHandler handles PUT /items/{id}/approve.
type ApproveItemHandler struct {
	svc *appsvcs.Services
}

// NewApproveItemHandler returns an ApproveItemHandler.
func NewApproveItemHandler(svc *appsvcs.Services) *ApproveItemHandler {
	return &ApproveItemHandler{svc: svc}
}

// Execute publishes a pending item, generating verification questions when
// it has none.
//
//	@Summary	Approve item
//	@Tags		admin
//	@Produce	json
//	@Param		id	path		string	true	"Item ID"
//	@Success	200	{object}	ItemView
//	@Failure	403	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/items/{id}/approve [put]
func (h *ApproveItemHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	item, err := h.svc.Item.Approve(r.Context(), actorFrom(r), id)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toItemView(item))
}
