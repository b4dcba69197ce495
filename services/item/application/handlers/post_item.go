package handlers

import (
	"net/http"

	"github.com/ghuser/lostfound/pkg/errhttp"
	"github.com/ghuser/lostfound/pkg/httpx"
	appsvcs "github.com/ghuser/lostfound/services/item/application/services"
	"github.com/ghuser/lostfound/services/item/domain/models"
)

// PostItemHandler handles POST /items requests.
type PostItemHandler struct {
	svc *appsvcs.Services
}

// NewPostItemHandler returns a PostItemHandler backed by the given services.
func NewPostItemHandler(svc *appsvcs.Services) *PostItemHandler {
	return &PostItemHandler{svc: svc}
}

// Execute creates a new pending item.
//
//	@Summary		Report item
//	@Description	Reports a lost or found item. The item stays pending until an admin approves it. Owner questions are kept for lost items only.
//	@Tags			items
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			title		formData	string	true	"Title"
//	@Param			description	formData	string	true	"Description"
//	@Param			category	formData	string	true	"lost or found (alias: type)"
//	@Param			contact		formData	string	true	"Contact details, revealed once claimed"
//	@Param			questions	formData	string	false	"JSON array of {question, answer}"
//	@Param			image		formData	file	false	"JPEG or PNG photo"
//	@Success		201			{object}	ItemView
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/items [post]
func (h *PostItemHandler) Execute(w http.ResponseWriter, r *http.Request) {
	_, details, ok := parseItemForm(w, r, h.svc.Images)
	if !ok {
		return
	}

	raw := r.FormValue("category")
	if raw == "" {
		raw = r.FormValue("type")
	}
	category, err := models.ParseCategory(raw)
	if err != nil {
		h.discard(details.ImageURL)
		errhttp.WriteError(w, err)
		return
	}

	item, err := h.svc.Item.Create(r.Context(), actorFrom(r), category, details)
	if err != nil {
		h.discard(details.ImageURL)
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toItemView(item))
}

func (h *PostItemHandler) discard(path string) {
	if path != "" && h.svc.Images != nil {
		_ = h.svc.Images.Remove(path)
	}
}
