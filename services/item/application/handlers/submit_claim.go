package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ghuser/lostfound/pkg/errhttp"
	"github.com/ghuser/lostfound/pkg/httpx"
	pkgvalidator "github.com/ghuser/lostfound/pkg/validator"
	appsvcs "github.com/ghuser/lostfound/services/item/application/services"
)

// SubmitClaimRequest carries one answer per verification question, in
// question order.
type SubmitClaimRequest struct {
	Answers []string `json:"answers" validate:"required,min=1,max=10,dive,max=2000" example:"black,initials JD,torn lining"`
} // @name SubmitClaimRequest

// SubmitClaimResponse reports the stored claim.
type SubmitClaimResponse struct {
	Message    string    `json:"message" example:"Claim submitted"`
	Confidence int       `json:"confidence" example:"72"`
	ClaimID    uuid.UUID `json:"claim_id"`
} // @name SubmitClaimResponse

// SubmitClaimHandler handles POST /items/{id}/claim.
type SubmitClaimHandler struct {
	svc *appsvcs.Services
}

// NewSubmitClaimHandler returns a SubmitClaimHandler.
func NewSubmitClaimHandler(svc *appsvcs.Services) *SubmitClaimHandler {
	return &SubmitClaimHandler{svc: svc}
}

// Execute submits the caller's claim on an approved item.
//
//	@Summary	Claim item
//	@Tags		claims
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string				true	"Item ID"
//	@Param		request	body		SubmitClaimRequest	true	"Answers"
//	@Success	201		{object}	SubmitClaimResponse
//	@Failure	400		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Failure	409		{object}	ErrorResponse
//	@Failure	422		{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/items/{id}/claim [post]
func (h *SubmitClaimHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	req, ok := pkgvalidator.ValidateRequest[SubmitClaimRequest](w, r)
	if !ok {
		return
	}

	claim, err := h.svc.Item.SubmitClaim(r.Context(), actorFrom(r), id, req.Answers)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, SubmitClaimResponse{
		Message:    "Claim submitted",
		Confidence: claim.Confidence,
		ClaimID:    claim.ID,
	})
}
