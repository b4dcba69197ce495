package handlers

import (
	"net/http"

	"github.com/ghuser/lostfound/pkg/errhttp"
	"github.com/ghuser/lostfound/pkg/httpx"
	appsvcs "github.com/ghuser/lostfound/services/item/application/services"
)

// UpdateOwnItemHandler handles PUT /items/{id}/own.
type UpdateOwnItemHandler struct {
	svc *appsvcs.Services
}

// NewUpdateOwnItemHandler returns an UpdateOwnItemHandler.
func NewUpdateOwnItemHandler(svc *appsvcs.Services) *UpdateOwnItemHandler {
	return &UpdateOwnItemHandler{svc: svc}
}

// Execute edits an item the caller owns. Edits are refused once a claim
// exists; an edited item returns to moderation.
//
//	@Summary	Edit own item
//	@Tags		items
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		id			path		string	true	"Item ID"
//	@Param		title		formData	string	true	"Title"
//	@Param		description	formData	string	true	"Description"
//	@Param		contact		formData	string	true	"Contact details"
//	@Param		questions	formData	string	false	"JSON array of {question, answer}"
//	@Param		image		formData	file	false	"Replacement photo"
//	@Success	200			{object}	ItemView
//	@Failure	400			{object}	ErrorResponse
//	@Failure	403			{object}	ErrorResponse
//	@Failure	409			{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/items/{id}/own [put]
func (h *UpdateOwnItemHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	_, details, ok := parseItemForm(w, r, h.svc.Images)
	if !ok {
		return
	}

	item, err := h.svc.Item.UpdateOwn(r.Context(), actorFrom(r), id, details)
	if err != nil {
		if details.ImageURL != "" && h.svc.Images != nil {
			_ = h.svc.Images.Remove(details.ImageURL)
		}
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toItemView(item))
}
