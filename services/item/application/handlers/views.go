package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ghuser/lostfound/pkg/auth"
	itemdomain "github.com/ghuser/lostfound/services/item/domain"
	"github.com/ghuser/lostfound/services/item/domain/models"
	"github.com/ghuser/lostfound/services/item/domain/repositories"
)

const maxPageSize = 100

// ErrorResponse is returned on all error responses.
type ErrorResponse struct {
	Error   string `json:"error" example:"item already claimed"`
	Message string `json:"message" example:"item already claimed"`
} // @name ErrorResponse

// MessageResponse acknowledges an action without a resource body.
type MessageResponse struct {
	Message string `json:"message" example:"Item deleted"`
} // @name MessageResponse

// QuestionView is a verification question. Answer is present for the owner only.
type QuestionView struct {
	Question string `json:"question" example:"What is engraved on the back?"`
	Answer   string `json:"answer,omitempty"`
	Source   string `json:"source" example:"generated"`
} // @name QuestionView

// ClaimView is a claim as visible to the caller.
type ClaimView struct {
	ID         uuid.UUID `json:"id"`
	ClaimantID uuid.UUID `json:"claimant_id"`
	Answers    []string  `json:"answers"`
	Confidence int       `json:"confidence" example:"72"`
	Status     string    `json:"status" example:"pending"`
	CreatedAt  time.Time `json:"created_at"`
} // @name ClaimView

// ItemView is an item projected for the caller.
type ItemView struct {
	ID          uuid.UUID      `json:"id"`
	OwnerID     uuid.UUID      `json:"owner_id"`
	Title       string         `json:"title" example:"Black leather wallet"`
	Description string         `json:"description"`
	Category    string         `json:"category" example:"found"`
	Contact     string         `json:"contact,omitempty"`
	ImageURL    string         `json:"image_url,omitempty" example:"/uploads/5f1c.jpg"`
	Status      string         `json:"status" example:"approved"`
	Claimed     bool           `json:"claimed"`
	Questions   []QuestionView `json:"questions"`
	Claims      []ClaimView    `json:"claims"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
} // @name ItemView

func toClaimView(c models.Claim) ClaimView {
	return ClaimView{
		ID:         c.ID,
		ClaimantID: c.ClaimantID,
		Answers:    c.Answers,
		Confidence: c.Confidence,
		Status:     string(c.Status),
		CreatedAt:  c.CreatedAt,
	}
}

func toItemView(item *models.Item) ItemView {
	v := ItemView{
		ID:          item.ID,
		OwnerID:     item.OwnerID,
		Title:       item.Title,
		Description: item.Description,
		Category:    string(item.Category),
		Contact:     item.Contact,
		ImageURL:    item.ImageURL,
		Status:      string(item.Status),
		Claimed:     item.Claimed,
		Questions:   make([]QuestionView, len(item.Questions)),
		Claims:      make([]ClaimView, len(item.Claims)),
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
	for k, q := range item.Questions {
		v.Questions[k] = QuestionView{Question: q.Text, Answer: q.Answer, Source: string(q.Source)}
	}
	for k, c := range item.Claims {
		v.Claims[k] = toClaimView(c)
	}
	return v
}

func toItemViews(items []*models.Item) []ItemView {
	out := make([]ItemView, len(items))
	for k, item := range items {
		out[k] = toItemView(item)
	}
	return out
}

// actorFrom converts the request principal, if any, into a domain actor.
func actorFrom(r *http.Request) models.Actor {
	p, err := auth.PrincipalFromCtx(r.Context())
	if err != nil {
		return models.Actor{}
	}
	return models.Actor{UserID: p.UserID, Admin: p.IsAdmin()}
}

// itemID parses the {id} URL parameter. A malformed id cannot name an item.
func itemID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, itemdomain.ErrItemNotFound
	}
	return id, nil
}

// pageOpts reads optional limit and offset query parameters.
func pageOpts(r *http.Request) (repositories.QueryOpts, error) {
	var opts repositories.QueryOpts
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageSize {
			return opts, itemdomain.Validationf("limit must be between 1 and %d", maxPageSize)
		}
		opts.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return opts, itemdomain.Validationf("offset must be a non-negative integer")
		}
		opts.Offset = n
	}
	return opts, nil
}
