package handlers

import (
	"net/http"

	"github.com/ghuser/lostfound/pkg/errhttp"
	"github.com/ghuser/lostfound/pkg/httpx"
	appsvcs "github.com/ghuser/lostfound/services/item/application/services"
)

// ListItemsHandler handles GET /items.
type ListItemsHandler struct {
	svc *appsvcs.Services
}

// NewListItemsHandler returns a ListItemsHandler.
func NewListItemsHandler(svc *appsvcs.Services) *ListItemsHandler {
	return &ListItemsHandler{svc: svc}
}

// Execute lists items newest first. Admins see every item, other users
// only approved ones.
//
//	@Summary	List items
//	@Tags		items
//	@Produce	json
//	@Param		limit	query		int	false	"Page size (1-100)"
//	@Param		offset	query		int	false	"Items to skip"
//	@Success	200		{array}		ItemView
//	@Failure	400		{object}	ErrorResponse
//	@Failure	401		{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/items [get]
func (h *ListItemsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	opts, err := pageOpts(r)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	items, err := h.svc.Item.List(r.Context(), actorFrom(r), opts)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toItemViews(items))
}

// ListMyItemsHandler handles GET /items/mine.
type ListMyItemsHandler struct {
	svc *appsvcs.Services
}

// NewListMyItemsHandler returns a ListMyItemsHandler.
func NewListMyItemsHandler(svc *appsvcs.Services) *ListMyItemsHandler {
	return &ListMyItemsHandler{svc: svc}
}

// Execute lists the caller's own items in any state.
//
//	@Summary	List own items
//	@Tags		items
//	@Produce	json
//	@Success	200	{array}		ItemView
//	@Failure	401	{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/items/mine [get]
func (h *ListMyItemsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Item.ListMine(r.Context(), actorFrom(r))
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toItemViews(items))
}
