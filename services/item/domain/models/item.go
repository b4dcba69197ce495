package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	itemdomain "github.com/ghuser/lostfound/services/item/domain"
)

// Category distinguishes items reported lost by their owner from items
// handed in by a finder.
type Category string

const (
	CategoryLost  Category = "lost"
	CategoryFound Category = "found"
)

// ParseCategory validates a category string.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryLost, CategoryFound:
		return c, nil
	default:
		return "", itemdomain.Validationf("category must be %q or %q", CategoryLost, CategoryFound)
	}
}

// Status is the moderation state of an item.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

// QuestionSource records where a verification question came from.
type QuestionSource string

const (
	QuestionSourceOwner     QuestionSource = "owner"
	QuestionSourceGenerated QuestionSource = "generated"
	QuestionSourceFallback  QuestionSource = "fallback"
)

// Question is a verification question. Answer is set only for owner-authored
// questions and is never shown to anyone but the owner.
type Question struct {
	Text   string         `json:"question"`
	Answer string         `json:"answer,omitempty"`
	Source QuestionSource `json:"source"`
}

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
	maxContactLength     = 200
	maxQuestionLength    = 500
	maxOwnerQuestions    = 10
)

// Item is the core aggregate for this bounded context. Claims are embedded
// and kept in submission order.
type Item struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID // immutable after creation
	Title       string
	Description string
	Category    Category
	Contact     string
	ImageURL    string
	Status      Status
	Questions   []Question
	Claims      []Claim
	Claimed     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ItemDetails are the owner-editable fields of an item.
type ItemDetails struct {
	Title       string
	Description string
	Contact     string
	ImageURL    string
	Questions   []Question // honored for lost items only
}

// NewItem constructs a pending, unclaimed Item. Owner-authored questions are
// kept only for lost items.
func NewItem(ownerID uuid.UUID, category Category, d ItemDetails, now time.Time) (*Item, error) {
	if ownerID == uuid.Nil {
		return nil, itemdomain.Validationf("owner is required")
	}
	if category != CategoryLost && category != CategoryFound {
		return nil, itemdomain.Validationf("category must be %q or %q", CategoryLost, CategoryFound)
	}
	d, err := normalizeDetails(d)
	if err != nil {
		return nil, err
	}

	item := &Item{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       d.Title,
		Description: d.Description,
		Category:    category,
		Contact:     d.Contact,
		ImageURL:    d.ImageURL,
		Status:      StatusPending,
		Questions:   []Question{},
		Claims:      []Claim{},
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	if category == CategoryLost {
		item.Questions = d.Questions
	}
	return item, nil
}

func normalizeDetails(d ItemDetails) (ItemDetails, error) {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Contact = strings.TrimSpace(d.Contact)

	switch {
	case d.Title == "":
		return d, itemdomain.Validationf("title is required")
	case d.Description == "":
		return d, itemdomain.Validationf("description is required")
	case d.Contact == "":
		return d, itemdomain.Validationf("contact is required")
	case utf8.RuneCountInString(d.Title) > maxTitleLength:
		return d, itemdomain.Validationf("title must not exceed %d characters", maxTitleLength)
	case utf8.RuneCountInString(d.Description) > maxDescriptionLength:
		return d, itemdomain.Validationf("description must not exceed %d characters", maxDescriptionLength)
	case utf8.RuneCountInString(d.Contact) > maxContactLength:
		return d, itemdomain.Validationf("contact must not exceed %d characters", maxContactLength)
	}

	questions := make([]Question, 0, len(d.Questions))
	for _, q := range d.Questions {
		text := strings.TrimSpace(q.Text)
		if text == "" {
			continue
		}
		if utf8.RuneCountInString(text) > maxQuestionLength {
			return d, itemdomain.Validationf("question must not exceed %d characters", maxQuestionLength)
		}
		questions = append(questions, Question{
			Text:   text,
			Answer: strings.TrimSpace(q.Answer),
			Source: QuestionSourceOwner,
		})
	}
	if len(questions) > maxOwnerQuestions {
		return d, itemdomain.Validationf("at most %d questions are allowed", maxOwnerQuestions)
	}
	d.Questions = questions
	return d, nil
}

// NeedsQuestions reports whether approval should enrich the item with
// generated questions.
func (i *Item) NeedsQuestions() bool {
	return len(i.Questions) == 0
}

// Approve publishes the item. generated is used only if the item still has
// no questions, so a concurrent approval never overwrites an earlier one.
func (i *Item) Approve(generated []Question, now time.Time) {
	i.Status = StatusApproved
	if i.NeedsQuestions() && len(generated) > 0 {
		i.Questions = append([]Question(nil), generated...)
	}
	i.UpdatedAt = now.UTC()
}

// ClaimBy returns the claim submitted by userID, or nil.
func (i *Item) ClaimBy(userID uuid.UUID) *Claim {
	for k := range i.Claims {
		if i.Claims[k].ClaimantID == userID {
			return &i.Claims[k]
		}
	}
	return nil
}

// ApprovedClaim returns the approved claim, or nil.
func (i *Item) ApprovedClaim() *Claim {
	for k := range i.Claims {
		if i.Claims[k].Status == ClaimApproved {
			return &i.Claims[k]
		}
	}
	return nil
}

// CheckClaimable reports why claimantID may not submit a claim, or nil.
func (i *Item) CheckClaimable(claimantID uuid.UUID) error {
	switch {
	case i.Status != StatusApproved:
		return itemdomain.ErrItemUnavailable
	case i.Claimed:
		return itemdomain.ErrItemAlreadyClaimed
	case claimantID == i.OwnerID:
		return itemdomain.ErrOwnItemClaim
	case i.ClaimBy(claimantID) != nil:
		return itemdomain.ErrDuplicateClaim
	}
	return nil
}

// NormalizeAnswers trims answers and checks there is exactly one per question.
func (i *Item) NormalizeAnswers(answers []string) ([]string, error) {
	if len(answers) == 0 {
		return nil, itemdomain.Validationf("answers are required")
	}
	if len(answers) != len(i.Questions) {
		return nil, itemdomain.Validationf("expected %d answers, got %d", len(i.Questions), len(answers))
	}
	out := make([]string, len(answers))
	for k, a := range answers {
		out[k] = strings.TrimSpace(a)
		if out[k] == "" {
			return nil, itemdomain.Validationf("answer %d is empty", k+1)
		}
	}
	return out, nil
}

// AddClaim appends a pending claim. All claimability rules are re-checked
// so the caller can score answers before taking the item lock.
func (i *Item) AddClaim(claimantID uuid.UUID, answers []string, confidence int, now time.Time) (*Claim, error) {
	if err := i.CheckClaimable(claimantID); err != nil {
		return nil, err
	}
	normalized, err := i.NormalizeAnswers(answers)
	if err != nil {
		return nil, err
	}

	i.Claims = append(i.Claims, Claim{
		ID:         uuid.New(),
		ClaimantID: claimantID,
		Answers:    normalized,
		Confidence: ClampConfidence(confidence),
		Status:     ClaimPending,
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	})
	i.UpdatedAt = now.UTC()
	return &i.Claims[len(i.Claims)-1], nil
}

// ResolveClaim maps a claim reference to a claim ID. ref is either the
// claim's UUID or its zero-based submission index.
func (i *Item) ResolveClaim(ref string) (uuid.UUID, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		for _, c := range i.Claims {
			if c.ID == id {
				return id, nil
			}
		}
		return uuid.Nil, itemdomain.ErrClaimNotFound
	}
	idx, err := strconv.Atoi(ref)
	if err != nil || idx < 0 || idx >= len(i.Claims) {
		return uuid.Nil, fmt.Errorf("%w: %q", itemdomain.ErrClaimNotFound, ref)
	}
	return i.Claims[idx].ID, nil
}

// DecideClaim applies an admin decision. Approving a claim rejects every
// other claim and marks the item claimed; once claimed no claim outcome may
// change. Rejecting an already rejected claim is a no-op.
func (i *Item) DecideClaim(claimID uuid.UUID, d Decision, now time.Time) (*Claim, error) {
	target := -1
	for k := range i.Claims {
		if i.Claims[k].ID == claimID {
			target = k
			break
		}
	}
	if target < 0 {
		return nil, itemdomain.ErrClaimNotFound
	}
	c := &i.Claims[target]
	ts := now.UTC()

	switch d {
	case DecisionApprove:
		if i.Claimed {
			return nil, itemdomain.ErrItemAlreadyClaimed
		}
		for k := range i.Claims {
			if k == target {
				continue
			}
			if i.Claims[k].Status != ClaimRejected {
				i.Claims[k].Status = ClaimRejected
				i.Claims[k].UpdatedAt = ts
			}
		}
		c.Status = ClaimApproved
		c.UpdatedAt = ts
		i.Claimed = true
	case DecisionReject:
		switch c.Status {
		case ClaimApproved:
			return nil, itemdomain.ErrClaimAlreadyDecided
		case ClaimRejected:
			return c, nil
		}
		c.Status = ClaimRejected
		c.UpdatedAt = ts
	default:
		return nil, itemdomain.Validationf("unknown decision %q", d)
	}
	i.UpdatedAt = ts
	return c, nil
}

// CanChat reports whether userID may take part in the item's chat room: the
// owner, or the claimant whose claim was approved.
func (i *Item) CanChat(userID uuid.UUID) bool {
	if userID == uuid.Nil {
		return false
	}
	if userID == i.OwnerID {
		return true
	}
	c := i.ClaimBy(userID)
	return c != nil && c.Status == ClaimApproved
}

// UpdateDetails applies an owner edit. Editing is only possible before any
// claim exists; an approved item goes back to moderation and loses questions
// that were not written by the owner.
func (i *Item) UpdateDetails(actorID uuid.UUID, d ItemDetails, now time.Time) error {
	if actorID != i.OwnerID {
		return itemdomain.ErrForbidden
	}
	if i.Claimed {
		return itemdomain.ErrItemAlreadyClaimed
	}
	if len(i.Claims) > 0 {
		return itemdomain.ErrItemHasClaims
	}
	d, err := normalizeDetails(d)
	if err != nil {
		return err
	}

	i.Title = d.Title
	i.Description = d.Description
	i.Contact = d.Contact
	if d.ImageURL != "" {
		i.ImageURL = d.ImageURL
	}

	kept := make([]Question, 0, len(i.Questions))
	for _, q := range i.Questions {
		if q.Source == QuestionSourceOwner {
			kept = append(kept, q)
		}
	}
	if i.Category == CategoryLost && len(d.Questions) > 0 {
		kept = d.Questions
	}
	i.Questions = kept

	i.Status = StatusPending
	i.UpdatedAt = now.UTC()
	return nil
}

// CheckOwnerDelete reports why actorID may not delete the item as its owner.
func (i *Item) CheckOwnerDelete(actorID uuid.UUID) error {
	if actorID != i.OwnerID {
		return itemdomain.ErrForbidden
	}
	if i.Claimed {
		return itemdomain.ErrItemAlreadyClaimed
	}
	return nil
}

// Clone returns a deep copy of the item.
func (i *Item) Clone() *Item {
	out := *i
	out.Questions = append([]Question(nil), i.Questions...)
	out.Claims = make([]Claim, len(i.Claims))
	for k, c := range i.Claims {
		c.Answers = append([]string(nil), c.Answers...)
		out.Claims[k] = c
	}
	return &out
}
