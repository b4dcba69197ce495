package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ghuser/lostfound/pkg/errhttp"
	"github.com/ghuser/lostfound/pkg/httpx"
	appsvcs "github.com/ghuser/lostfound/services/item/application/services"
	"github.com/ghuser/lostfound/services/item/domain/models"
)

// DecideClaimResponse reports the decided claim.
type DecideClaimResponse struct {
	Message string    `json:"message" example:"Claim approved"`
	Claim   ClaimView `json:"claim"`
} // @name DecideClaimResponse

// DecideClaimHandler handles PUT /items/{id}/claim/{ref}/approve and
// PUT /items/{id}/claim/{ref}/reject.
type DecideClaimHandler struct {
	svc      *appsvcs.Services
	decision models.Decision
}

// NewApproveClaimHandler returns the handler approving a claim.
func NewApproveClaimHandler(svc *appsvcs.Services) *DecideClaimHandler {
	return &DecideClaimHandler{svc: svc, decision: models.DecisionApprove}
}

// NewRejectClaimHandler returns the handler rejecting a claim.
func NewRejectClaimHandler(svc *appsvcs.Services) *DecideClaimHandler {
	return &DecideClaimHandler{svc: svc, decision: models.DecisionReject}
}

// Execute applies the decision. ref is the claim id or its zero-based
// submission index. Approving a claim rejects all others on the item.
//
//	@Summary	Decide claim
//	@Tags		admin
//	@Produce	json
//	@Param		id	path		string	true	"Item ID"
//	@Param		ref	path		string	true	"Claim ID or submission index"
//	@Success	200	{object}	DecideClaimResponse
//	@Failure	403	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Failure	409	{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/items/{id}/claim/{ref}/approve [put]
//	@Router		/items/{id}/claim/{ref}/reject [put]
func (h *DecideClaimHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	claim, err := h.svc.Item.DecideClaim(r.Context(), actorFrom(r), id, chi.URLParam(r, "ref"), h.decision)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	msg := "Claim rejected"
	if h.decision == models.DecisionApprove {
		msg = "Claim approved"
	}
	httpx.JSON(w, http.StatusOK, DecideClaimResponse{Message: msg, Claim: toClaimView(*claim)})
}
