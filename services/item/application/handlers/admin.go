package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/lostfound/pkg/errhttp"
	"github.com/ghuser/lostfound/pkg/httpx"
	appsvcs "github.com/ghuser/lostfound/services/item/application/services"
)

// ClaimOverviewView is one row of the admin claims overview.
type ClaimOverviewView struct {
	ItemID     uuid.UUID `json:"item_id"`
	ItemTitle  string    `json:"item_title"`
	ClaimID    uuid.UUID `json:"claim_id"`
	Index      int       `json:"index" example:"0"`
	ClaimantID uuid.UUID `json:"claimant_id"`
	Confidence int       `json:"confidence" example:"72"`
	Status     string    `json:"status" example:"pending"`
	CreatedAt  time.Time `json:"created_at"`
} // @name ClaimOverviewView

// AdminLogView is one audit record.
type AdminLogView struct {
	ID        uuid.UUID `json:"id"`
	AdminID   uuid.UUID `json:"admin_id"`
	Action    string    `json:"action" example:"approve_claim"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"created_at"`
} // @name AdminLogView

// ListClaimsHandler handles GET /items/admin/claims.
type ListClaimsHandler struct {
	svc *appsvcs.Services
}

// NewListClaimsHandler returns a ListClaimsHandler.
func NewListClaimsHandler(svc *appsvcs.Services) *ListClaimsHandler {
	return &ListClaimsHandler{svc: svc}
}

// Execute lists every claim grouped by item, newest item first.
//
//	@Summary	Claims overview
//	@Tags		admin
//	@Produce	json
//	@Success	200	{array}		ClaimOverviewView
//	@Failure	403	{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/items/admin/claims [get]
func (h *ListClaimsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Item.ListClaims(r.Context(), actorFrom(r))
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	out := make([]ClaimOverviewView, len(rows))
	for k, o := range rows {
		out[k] = ClaimOverviewView{
			ItemID:     o.ItemID,
			ItemTitle:  o.ItemTitle,
			ClaimID:    o.ClaimID,
			Index:      o.Position,
			ClaimantID: o.ClaimantID,
			Confidence: o.Confidence,
			Status:     string(o.Status),
			CreatedAt:  o.CreatedAt,
		}
	}
	httpx.JSON(w, http.StatusOK, out)
}

// AdminLogsHandler handles GET /admin/logs.
type AdminLogsHandler struct {
	svc *appsvcs.Services
}

// NewAdminLogsHandler returns an AdminLogsHandler.
func NewAdminLogsHandler(svc *appsvcs.Services) *AdminLogsHandler {
	return &AdminLogsHandler{svc: svc}
}

// Execute returns the admin audit trail, newest first.
//
//	@Summary	Admin activity log
//	@Tags		admin
//	@Produce	json
//	@Param		limit	query		int	false	"Page size (1-100)"
//	@Param		offset	query		int	false	"Entries to skip"
//	@Success	200		{array}		AdminLogView
//	@Failure	403		{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/admin/logs [get]
func (h *AdminLogsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	opts, err := pageOpts(r)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	logs, err := h.svc.Item.AdminLogs(r.Context(), actorFrom(r), opts)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	out := make([]AdminLogView, len(logs))
	for k, l := range logs {
		out[k] = AdminLogView{ID: l.ID, AdminID: l.AdminID, Action: string(l.Action), Target: l.Target, CreatedAt: l.CreatedAt}
	}
	httpx.JSON(w, http.StatusOK, out)
}
