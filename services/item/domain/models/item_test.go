package models

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	itemdomain "github.com/ghuser/lostfound/services/item/domain"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func validDetails() ItemDetails {
	return ItemDetails{
		Title:       "Blue backpack",
		Description: "Left on the 14 bus",
		Contact:     "owner@example.com",
	}
}

func approvedItem(t *testing.T, questions int) *Item {
	t.Helper()
	item, err := NewItem(uuid.New(), CategoryFound, validDetails(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	generated := make([]Question, questions)
	for k := range generated {
		generated[k] = Question{Text: "Question number " + strconv.Itoa(k+1), Source: QuestionSourceGenerated}
	}
	item.Approve(generated, now)
	return item
}

func answers(n int) []string {
	out := make([]string, n)
	for k := range out {
		out[k] = "answer"
	}
	return out
}

func TestNewItem(t *testing.T) {
	owner := uuid.New()

	t.Run("starts pending and unclaimed", func(t *testing.T) {
		item, err := NewItem(owner, CategoryFound, validDetails(), now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if item.ID == uuid.Nil {
			t.Fatal("expected non-zero UUID for ID")
		}
		if item.Status != StatusPending || item.Claimed || len(item.Claims) != 0 {
			t.Fatalf("unexpected initial state: %+v", item)
		}
		if item.OwnerID != owner {
			t.Fatalf("expected owner %v, got %v", owner, item.OwnerID)
		}
	})

	t.Run("trims fields", func(t *testing.T) {
		d := validDetails()
		d.Title = "  Keys  "
		item, err := NewItem(owner, CategoryLost, d, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if item.Title != "Keys" {
			t.Fatalf("expected trimmed title, got %q", item.Title)
		}
	})

	t.Run("owner questions kept for lost items", func(t *testing.T) {
		d := validDetails()
		d.Questions = []Question{{Text: "What is engraved on it?", Answer: "JS"}, {Text: "   "}}
		item, err := NewItem(owner, CategoryLost, d, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(item.Questions) != 1 {
			t.Fatalf("expected 1 question, got %d", len(item.Questions))
		}
		if item.Questions[0].Source != QuestionSourceOwner || item.Questions[0].Answer != "JS" {
			t.Fatalf("unexpected question: %+v", item.Questions[0])
		}
	})

	t.Run("owner questions ignored for found items", func(t *testing.T) {
		d := validDetails()
		d.Questions = []Question{{Text: "What is engraved on it?", Answer: "JS"}}
		item, err := NewItem(owner, CategoryFound, d, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !item.NeedsQuestions() {
			t.Fatal("found item must start without questions")
		}
	})

	missing := []struct {
		name   string
		mutate func(*ItemDetails)
	}{
		{"missing title", func(d *ItemDetails) { d.Title = " " }},
		{"missing description", func(d *ItemDetails) { d.Description = "" }},
		{"missing contact", func(d *ItemDetails) { d.Contact = "" }},
		{"title too long", func(d *ItemDetails) { d.Title = strings.Repeat("x", maxTitleLength+1) }},
	}
	for _, tt := range missing {
		t.Run(tt.name, func(t *testing.T) {
			d := validDetails()
			tt.mutate(&d)
			_, err := NewItem(owner, CategoryLost, d, now)
			if !errors.Is(err, itemdomain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}

	t.Run("unknown category", func(t *testing.T) {
		_, err := NewItem(owner, Category("stolen"), validDetails(), now)
		if !errors.Is(err, itemdomain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})
}

func TestParseCategory(t *testing.T) {
	if c, err := ParseCategory(" Lost "); err != nil || c != CategoryLost {
		t.Fatalf("expected lost, got %q (%v)", c, err)
	}
	if _, err := ParseCategory("misc"); !errors.Is(err, itemdomain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestApprove_DoesNotOverwriteQuestions(t *testing.T) {
	item := approvedItem(t, 3)
	item.Approve([]Question{{Text: "Another question", Source: QuestionSourceGenerated}}, now)
	if len(item.Questions) != 3 {
		t.Fatalf("expected existing 3 questions to be kept, got %d", len(item.Questions))
	}
}

func TestAddClaim(t *testing.T) {
	t.Run("appends pending claim with clamped confidence", func(t *testing.T) {
		item := approvedItem(t, 3)
		c, err := item.AddClaim(uuid.New(), answers(3), 140, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Status != ClaimPending || c.Confidence != 100 || c.ID == uuid.Nil {
			t.Fatalf("unexpected claim: %+v", c)
		}
		if len(item.Claims) != 1 {
			t.Fatalf("expected 1 claim, got %d", len(item.Claims))
		}
	})

	tests := []struct {
		name    string
		setup   func(item *Item) uuid.UUID
		answers []string
		wantErr error
	}{
		{
			name:    "pending item is unavailable",
			setup:   func(item *Item) uuid.UUID { item.Status = StatusPending; return uuid.New() },
			answers: answers(3),
			wantErr: itemdomain.ErrItemUnavailable,
		},
		{
			name:    "owner cannot claim",
			setup:   func(item *Item) uuid.UUID { return item.OwnerID },
			answers: answers(3),
			wantErr: itemdomain.ErrOwnItemClaim,
		},
		{
			name: "second claim by same user",
			setup: func(item *Item) uuid.UUID {
				u := uuid.New()
				if _, err := item.AddClaim(u, answers(3), 10, now); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return u
			},
			answers: answers(3),
			wantErr: itemdomain.ErrDuplicateClaim,
		},
		{
			name:    "claimed item",
			setup:   func(item *Item) uuid.UUID { item.Claimed = true; return uuid.New() },
			answers: answers(3),
			wantErr: itemdomain.ErrItemAlreadyClaimed,
		},
		{
			name:    "no answers",
			setup:   func(*Item) uuid.UUID { return uuid.New() },
			answers: nil,
			wantErr: itemdomain.ErrValidation,
		},
		{
			name:    "answer count mismatch",
			setup:   func(*Item) uuid.UUID { return uuid.New() },
			answers: answers(2),
			wantErr: itemdomain.ErrValidation,
		},
		{
			name:    "blank answer",
			setup:   func(*Item) uuid.UUID { return uuid.New() },
			answers: []string{"a", " ", "c"},
			wantErr: itemdomain.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := approvedItem(t, 3)
			claimant := tt.setup(item)
			before := len(item.Claims)
			_, err := item.AddClaim(claimant, tt.answers, 50, now)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if len(item.Claims) != before {
				t.Fatal("failed AddClaim must not append")
			}
		})
	}
}

func TestDecideClaim_ApproveRejectsSiblings(t *testing.T) {
	item := approvedItem(t, 3)
	var ids []uuid.UUID
	for range 4 {
		c, err := item.AddClaim(uuid.New(), answers(3), 50, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ids = append(ids, c.ID)
	}
	// a prior rejection does not change the outcome
	if _, err := item.DecideClaim(ids[0], DecisionReject, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := item.DecideClaim(ids[2], DecisionApprove, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !item.Claimed {
		t.Fatal("expected item to be claimed")
	}
	approved, rejected := 0, 0
	for _, c := range item.Claims {
		switch c.Status {
		case ClaimApproved:
			approved++
		case ClaimRejected:
			rejected++
		}
	}
	if approved != 1 || rejected != 3 {
		t.Fatalf("expected 1 approved and 3 rejected, got %d/%d", approved, rejected)
	}
	if item.ApprovedClaim().ID != ids[2] {
		t.Fatal("wrong claim approved")
	}

	if _, err := item.DecideClaim(ids[1], DecisionApprove, now); !errors.Is(err, itemdomain.ErrItemAlreadyClaimed) {
		t.Fatalf("expected ErrItemAlreadyClaimed, got %v", err)
	}
	if _, err := item.DecideClaim(ids[2], DecisionReject, now); !errors.Is(err, itemdomain.ErrClaimAlreadyDecided) {
		t.Fatalf("expected ErrClaimAlreadyDecided, got %v", err)
	}
}

func TestDecideClaim_Reject(t *testing.T) {
	item := approvedItem(t, 1)
	c, _ := item.AddClaim(uuid.New(), answers(1), 0, now)

	if _, err := item.DecideClaim(c.ID, DecisionReject, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Claimed || item.Claims[0].Status != ClaimRejected {
		t.Fatalf("unexpected state after reject: %+v", item)
	}
	// rejecting again is a no-op
	if _, err := item.DecideClaim(c.ID, DecisionReject, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// item stays open for new claims
	if _, err := item.AddClaim(uuid.New(), answers(1), 0, now); err != nil {
		t.Fatalf("expected new claim to be accepted, got %v", err)
	}
}

func TestDecideClaim_UnknownClaim(t *testing.T) {
	item := approvedItem(t, 1)
	if _, err := item.DecideClaim(uuid.New(), DecisionApprove, now); !errors.Is(err, itemdomain.ErrClaimNotFound) {
		t.Fatalf("expected ErrClaimNotFound, got %v", err)
	}
}

func TestResolveClaim(t *testing.T) {
	item := approvedItem(t, 1)
	first, _ := item.AddClaim(uuid.New(), answers(1), 0, now)
	firstID := first.ID
	second, _ := item.AddClaim(uuid.New(), answers(1), 0, now)
	secondID := second.ID

	tests := []struct {
		ref     string
		want    uuid.UUID
		wantErr bool
	}{
		{firstID.String(), firstID, false},
		{"1", secondID, false},
		{"0", firstID, false},
		{"2", uuid.Nil, true},
		{"-1", uuid.Nil, true},
		{uuid.NewString(), uuid.Nil, true},
		{"abc", uuid.Nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := item.ResolveClaim(tt.ref)
			if tt.wantErr {
				if !errors.Is(err, itemdomain.ErrClaimNotFound) {
					t.Fatalf("expected ErrClaimNotFound, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("expected %v, got %v (%v)", tt.want, got, err)
			}
		})
	}
}

func TestCanChat(t *testing.T) {
	item := approvedItem(t, 1)
	pendingUser, rejectedUser, approvedUser, stranger := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	for _, u := range []uuid.UUID{pendingUser, rejectedUser, approvedUser} {
		if _, err := item.AddClaim(u, answers(1), 0, now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, err := item.DecideClaim(item.ClaimBy(rejectedUser).ID, DecisionReject, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !item.CanChat(item.OwnerID) {
		t.Fatal("owner must always be able to chat")
	}
	for name, u := range map[string]uuid.UUID{"pending": pendingUser, "rejected": rejectedUser, "approved-before-decision": approvedUser, "stranger": stranger, "anonymous": uuid.Nil} {
		if item.CanChat(u) {
			t.Fatalf("%s user must not chat before approval", name)
		}
	}

	if _, err := item.DecideClaim(item.ClaimBy(approvedUser).ID, DecisionApprove, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !item.CanChat(approvedUser) {
		t.Fatal("approved claimant must be able to chat")
	}
	if item.CanChat(pendingUser) {
		t.Fatal("superseded claimant must not chat")
	}
}

func TestUpdateDetails(t *testing.T) {
	t.Run("approved item returns to moderation and drops generated questions", func(t *testing.T) {
		item := approvedItem(t, 3)
		d := validDetails()
		d.Title = "Green backpack"
		if err := item.UpdateDetails(item.OwnerID, d, now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if item.Status != StatusPending || item.Title != "Green backpack" {
			t.Fatalf("unexpected state: %+v", item)
		}
		if !item.NeedsQuestions() {
			t.Fatal("generated questions must be dropped")
		}
	})

	t.Run("keeps image when none supplied", func(t *testing.T) {
		item := approvedItem(t, 1)
		item.ImageURL = "/uploads/a.jpg"
		if err := item.UpdateDetails(item.OwnerID, validDetails(), now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if item.ImageURL != "/uploads/a.jpg" {
			t.Fatalf("expected image to be kept, got %q", item.ImageURL)
		}
	})

	t.Run("non-owner forbidden", func(t *testing.T) {
		item := approvedItem(t, 1)
		if err := item.UpdateDetails(uuid.New(), validDetails(), now); !errors.Is(err, itemdomain.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("locked once claims exist", func(t *testing.T) {
		item := approvedItem(t, 1)
		if _, err := item.AddClaim(uuid.New(), answers(1), 0, now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := item.UpdateDetails(item.OwnerID, validDetails(), now); !errors.Is(err, itemdomain.ErrItemHasClaims) {
			t.Fatalf("expected ErrItemHasClaims, got %v", err)
		}
	})
}

func TestCheckOwnerDelete(t *testing.T) {
	item := approvedItem(t, 1)
	if err := item.CheckOwnerDelete(uuid.New()); !errors.Is(err, itemdomain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := item.CheckOwnerDelete(item.OwnerID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	item.Claimed = true
	if err := item.CheckOwnerDelete(item.OwnerID); !errors.Is(err, itemdomain.ErrItemAlreadyClaimed) {
		t.Fatalf("expected ErrItemAlreadyClaimed, got %v", err)
	}
}

func TestClone_IsDeep(t *testing.T) {
	item := approvedItem(t, 1)
	if _, err := item.AddClaim(uuid.New(), answers(1), 0, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cp := item.Clone()
	cp.Claims[0].Answers[0] = "changed"
	cp.Questions[0].Text = "changed"
	if item.Claims[0].Answers[0] == "changed" || item.Questions[0].Text == "changed" {
		t.Fatal("Clone must not share slices")
	}
}
