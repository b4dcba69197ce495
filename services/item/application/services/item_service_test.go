package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghuser/lostfound/pkg/database/dbtest"
	"github.com/ghuser/lostfound/services/item/application/services"
	itemdomain "github.com/ghuser/lostfound/services/item/domain"
	"github.com/ghuser/lostfound/services/item/domain/models"
	"github.com/ghuser/lostfound/services/item/domain/repositories"
	"github.com/ghuser/lostfound/services/item/infrastructure/persistence/sqlite"
)

type fakeAI struct {
	mu        sync.Mutex
	questions []string
	qErr      error
	qCalls    int
	score     int
	sErr      error
	delay     time.Duration
	// stall, when set, blocks both calls until closed regardless of ctx
	stall chan struct{}
}

func (f *fakeAI) GenerateQuestions(ctx context.Context, _, _, _ string) ([]string, error) {
	f.mu.Lock()
	f.qCalls++
	qs, err, stall := f.questions, f.qErr, f.stall
	f.mu.Unlock()
	if stall != nil {
		<-stall
	}
	return qs, err
}

func (f *fakeAI) ScoreClaim(ctx context.Context, _, _ string, _, _ []string) (int, error) {
	f.mu.Lock()
	stall := f.stall
	f.mu.Unlock()
	if stall != nil {
		<-stall
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return f.score, f.sErr
}

type fakeImages struct {
	mu      sync.Mutex
	removed []string
}

func (f *fakeImages) Remove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, path)
	return nil
}

// tickingClock advances one second per call so ordering by time is stable.
type tickingClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	svc    *services.ItemService
	ai     *fakeAI
	images *fakeImages
	admin  models.Actor
	owner  models.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.NewSQLite(t)
	f := &fixture{
		ai: &fakeAI{
			questions: []string{"What brand is it?", "What is written inside?", "Which pocket has a tear?"},
			score:     75,
		},
		images: &fakeImages{},
		admin:  models.Actor{UserID: uuid.New(), Admin: true},
		owner:  models.Actor{UserID: uuid.New()},
	}
	clock := &tickingClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	f.svc = services.NewItemService(services.Dependencies{
		Items:     sqlite.NewItemRepository(db),
		AdminLogs: sqlite.NewAdminLogRepository(db),
		Questions: f.ai,
		Scorer:    f.ai,
		Images:    f.images,
		AITimeout: 50 * time.Millisecond,
		Now:       clock.Now,
	})
	return f
}

func details() models.ItemDetails {
	return models.ItemDetails{
		Title:       "Grey wool scarf",
		Description: "Found on a bench near the library",
		Contact:     "finder@example.com",
		ImageURL:    "/uploads/scarf.jpg",
	}
}

// approvedFound creates a found item and approves it with generated questions.
func (f *fixture) approvedFound(t *testing.T) *models.Item {
	t.Helper()
	ctx := context.Background()
	item, err := f.svc.Create(ctx, f.owner, models.CategoryFound, details())
	require.NoError(t, err)
	approved, err := f.svc.Approve(ctx, f.admin, item.ID)
	require.NoError(t, err)
	return approved
}

func threeAnswers() []string { return []string{"Acme", "initials JD", "left"} }

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	withQuestions := details()
	withQuestions.Questions = []models.Question{{Text: "What is the label?", Answer: "M&S"}}

	lost, err := f.svc.Create(ctx, f.owner, models.CategoryLost, withQuestions)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, lost.Status)
	assert.False(t, lost.Claimed)
	require.Len(t, lost.Questions, 1)
	assert.Equal(t, "M&S", lost.Questions[0].Answer, "owner sees their answers")

	found, err := f.svc.Create(ctx, f.owner, models.CategoryFound, withQuestions)
	require.NoError(t, err)
	assert.Empty(t, found.Questions)

	missing := details()
	missing.Contact = "  "
	_, err = f.svc.Create(ctx, f.owner, models.CategoryFound, missing)
	assert.ErrorIs(t, err, itemdomain.ErrValidation)

	doubleSpace := details()
	doubleSpace.Title = "Grey  scarf"
	_, err = f.svc.Create(ctx, f.owner, models.CategoryFound, doubleSpace)
	assert.ErrorIs(t, err, itemdomain.ErrValidation)

	_, err = f.svc.Create(ctx, models.Actor{}, models.CategoryFound, details())
	assert.ErrorIs(t, err, itemdomain.ErrForbidden)
}

func TestApprove_GeneratesQuestions(t *testing.T) {
	f := newFixture(t)
	item := f.approvedFound(t)

	assert.Equal(t, models.StatusApproved, item.Status)
	require.Len(t, item.Questions, 3)
	for _, q := range item.Questions {
		assert.Equal(t, models.QuestionSourceGenerated, q.Source)
		assert.Empty(t, q.Answer)
	}

	stranger := models.Actor{UserID: uuid.New()}
	view, err := f.svc.Get(context.Background(), stranger, item.ID)
	require.NoError(t, err)
	assert.Len(t, view.Questions, 3)
	assert.Empty(t, view.Contact, "contact is withheld until claimed")
}

func TestApprove_FallbackQuestions(t *testing.T) {
	tests := []struct {
		name      string
		questions []string
		err       error
	}{
		{"provider error", nil, errors.New("upstream 502")},
		{"too few questions", []string{"What brand is it?", "Which size is it?"}, nil},
		{"question too short", []string{"Size?", "What is written inside?", "Which pocket has a tear?"}, nil},
		{"blank padded question", []string{"  Size?  ", "What is written inside?", "Which pocket has a tear?"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.ai.questions, f.ai.qErr = tt.questions, tt.err

			item := f.approvedFound(t)
			require.Len(t, item.Questions, 3)
			for k, q := range item.Questions {
				assert.Equal(t, services.FallbackQuestions[k], q.Text)
				assert.Equal(t, models.QuestionSourceFallback, q.Source)
			}
		})
	}
}

func TestApprove_ShortestAcceptedQuestion(t *testing.T) {
	f := newFixture(t)
	f.ai.questions = []string{" Brand? ", "What is written inside?", "Which pocket has a tear?"}

	item := f.approvedFound(t)
	require.Len(t, item.Questions, 3)
	assert.Equal(t, "Brand?", item.Questions[0].Text)
	for _, q := range item.Questions {
		assert.Equal(t, models.QuestionSourceGenerated, q.Source)
	}
}

func TestApprove_KeepsOwnerQuestions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := details()
	d.Questions = []models.Question{{Text: "What is the label?", Answer: "M&S"}}

	item, err := f.svc.Create(ctx, f.owner, models.CategoryLost, d)
	require.NoError(t, err)
	approved, err := f.svc.Approve(ctx, f.admin, item.ID)
	require.NoError(t, err)

	assert.Zero(t, f.ai.qCalls)
	require.Len(t, approved.Questions, 1)
	assert.Empty(t, approved.Questions[0].Answer, "admins never see answers")
}

func TestApprove_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item, err := f.svc.Create(ctx, f.owner, models.CategoryFound, details())
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, f.owner, item.ID)
	assert.ErrorIs(t, err, itemdomain.ErrForbidden)
	_, err = f.svc.Approve(ctx, f.admin, uuid.New())
	assert.ErrorIs(t, err, itemdomain.ErrItemNotFound)
}

func TestGet_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item, err := f.svc.Create(ctx, f.owner, models.CategoryFound, details())
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, models.Actor{UserID: uuid.New()}, item.ID)
	assert.ErrorIs(t, err, itemdomain.ErrItemUnavailable)
	_, err = f.svc.Get(ctx, models.Actor{}, item.ID)
	assert.ErrorIs(t, err, itemdomain.ErrItemUnavailable)

	own, err := f.svc.Get(ctx, f.owner, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "finder@example.com", own.Contact)

	_, err = f.svc.Get(ctx, f.owner, uuid.New())
	assert.ErrorIs(t, err, itemdomain.ErrItemNotFound)
}

func TestSubmitClaim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.approvedFound(t)
	claimant := models.Actor{UserID: uuid.New()}

	claim, err := f.svc.SubmitClaim(ctx, claimant, item.ID, threeAnswers())
	require.NoError(t, err)
	assert.Equal(t, 75, claim.Confidence)
	assert.Equal(t, models.ClaimPending, claim.Status)

	// the claimant sees exactly their own claim, unchanged
	view, err := f.svc.Get(ctx, claimant, item.ID)
	require.NoError(t, err)
	require.Len(t, view.Claims, 1)
	assert.Equal(t, claim.ID, view.Claims[0].ID)
	assert.Equal(t, 75, view.Claims[0].Confidence)
	assert.Equal(t, models.ClaimPending, view.Claims[0].Status)

	tests := []struct {
		name    string
		actor   models.Actor
		answers []string
		want    error
	}{
		{"duplicate", claimant, threeAnswers(), itemdomain.ErrDuplicateClaim},
		{"owner", f.owner, threeAnswers(), itemdomain.ErrOwnItemClaim},
		{"no answers", models.Actor{UserID: uuid.New()}, nil, itemdomain.ErrValidation},
		{"wrong count", models.Actor{UserID: uuid.New()}, []string{"a", "b"}, itemdomain.ErrValidation},
		{"anonymous", models.Actor{}, threeAnswers(), itemdomain.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SubmitClaim(ctx, tt.actor, item.ID, tt.answers)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSubmitClaim_PendingItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item, err := f.svc.Create(ctx, f.owner, models.CategoryFound, details())
	require.NoError(t, err)

	_, err = f.svc.SubmitClaim(ctx, models.Actor{UserID: uuid.New()}, item.ID, threeAnswers())
	assert.ErrorIs(t, err, itemdomain.ErrItemUnavailable)
	_, err = f.svc.SubmitClaim(ctx, models.Actor{UserID: uuid.New()}, uuid.New(), threeAnswers())
	assert.ErrorIs(t, err, itemdomain.ErrItemNotFound)
}

func TestSubmitClaim_ScorerFailureYieldsZero(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeAI)
		want  int
	}{
		{"error", func(a *fakeAI) { a.sErr = errors.New("boom") }, 0},
		{"timeout", func(a *fakeAI) { a.delay = time.Second }, 0},
		{"clamped high", func(a *fakeAI) { a.score = 250 }, 100},
		{"clamped low", func(a *fakeAI) { a.score = -4 }, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			item := f.approvedFound(t)
			tt.setup(f.ai)

			claim, err := f.svc.SubmitClaim(context.Background(), models.Actor{UserID: uuid.New()}, item.ID, threeAnswers())
			require.NoError(t, err)
			assert.Equal(t, tt.want, claim.Confidence)
			assert.Equal(t, models.ClaimPending, claim.Status)
		})
	}
}

// stallAI makes every AI call hang past the timeout while ignoring ctx.
func (f *fixture) stallAI(t *testing.T) {
	t.Helper()
	stall := make(chan struct{})
	f.ai.mu.Lock()
	f.ai.stall = stall
	f.ai.mu.Unlock()
	t.Cleanup(func() { close(stall) })
}

func TestAITimeout_HoldsWhenProviderIgnoresContext(t *testing.T) {
	t.Run("approve", func(t *testing.T) {
		f := newFixture(t)
		f.stallAI(t)

		start := time.Now()
		item := f.approvedFound(t)
		assert.Less(t, time.Since(start), time.Second)
		require.Len(t, item.Questions, 3)
		for k, q := range item.Questions {
			assert.Equal(t, services.FallbackQuestions[k], q.Text)
			assert.Equal(t, models.QuestionSourceFallback, q.Source)
		}
	})

	t.Run("submit claim", func(t *testing.T) {
		f := newFixture(t)
		item := f.approvedFound(t)
		f.stallAI(t)

		start := time.Now()
		claim, err := f.svc.SubmitClaim(context.Background(), models.Actor{UserID: uuid.New()}, item.ID, threeAnswers())
		require.NoError(t, err)
		assert.Less(t, time.Since(start), time.Second)
		assert.Zero(t, claim.Confidence)
		assert.Equal(t, models.ClaimPending, claim.Status)
	})
}

func TestDecideClaim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.approvedFound(t)

	claimants := []models.Actor{{UserID: uuid.New()}, {UserID: uuid.New()}, {UserID: uuid.New()}}
	var claims []*models.Claim
	for _, c := range claimants {
		claim, err := f.svc.SubmitClaim(ctx, c, item.ID, threeAnswers())
		require.NoError(t, err)
		claims = append(claims, claim)
	}

	_, err := f.svc.DecideClaim(ctx, f.owner, item.ID, "0", models.DecisionApprove)
	assert.ErrorIs(t, err, itemdomain.ErrForbidden)
	_, err = f.svc.DecideClaim(ctx, f.admin, item.ID, "7", models.DecisionApprove)
	assert.ErrorIs(t, err, itemdomain.ErrClaimNotFound)

	// reject by index, then approve a different claim by id
	rejected, err := f.svc.DecideClaim(ctx, f.admin, item.ID, "0", models.DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, claims[0].ID, rejected.ID)
	assert.Equal(t, models.ClaimRejected, rejected.Status)

	approved, err := f.svc.DecideClaim(ctx, f.admin, item.ID, claims[2].ID.String(), models.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimApproved, approved.Status)

	view, err := f.svc.Get(ctx, f.admin, item.ID)
	require.NoError(t, err)
	assert.True(t, view.Claimed)
	approvedCount := 0
	for _, c := range view.Claims {
		if c.Status == models.ClaimApproved {
			approvedCount++
		} else {
			assert.Equal(t, models.ClaimRejected, c.Status)
		}
	}
	assert.Equal(t, 1, approvedCount)

	_, err = f.svc.DecideClaim(ctx, f.admin, item.ID, "1", models.DecisionApprove)
	assert.ErrorIs(t, err, itemdomain.ErrItemAlreadyClaimed)
	_, err = f.svc.DecideClaim(ctx, f.admin, item.ID, "2", models.DecisionReject)
	assert.ErrorIs(t, err, itemdomain.ErrClaimAlreadyDecided)
	_, err = f.svc.SubmitClaim(ctx, models.Actor{UserID: uuid.New()}, item.ID, threeAnswers())
	assert.ErrorIs(t, err, itemdomain.ErrItemAlreadyClaimed)

	// once claimed, the contact is visible to everyone
	public, err := f.svc.Get(ctx, models.Actor{}, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "finder@example.com", public.Contact)
	assert.Empty(t, public.Claims)

	logs, err := f.svc.AdminLogs(ctx, f.admin, repositories.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, models.ActionApproveClaim, logs[0].Action)
	assert.Equal(t, models.ActionRejectClaim, logs[1].Action)
	assert.Equal(t, models.ActionApproveItem, logs[2].Action)

	_, err = f.svc.AdminLogs(ctx, f.owner, repositories.QueryOpts{})
	assert.ErrorIs(t, err, itemdomain.ErrForbidden)
}

func TestConcurrentSubmitClaim_SameClaimant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.approvedFound(t)
	claimant := models.Actor{UserID: uuid.New()}

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for k := 0; k < n; k++ {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			_, errs[k] = f.svc.SubmitClaim(ctx, claimant, item.ID, threeAnswers())
		}(k)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, itemdomain.ErrDuplicateClaim)
	}
	assert.Equal(t, 1, ok)

	view, err := f.svc.Get(ctx, f.admin, item.ID)
	require.NoError(t, err)
	assert.Len(t, view.Claims, 1)
}

func TestConcurrentApprove_DifferentClaims(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.approvedFound(t)

	var ids []string
	for k := 0; k < 4; k++ {
		c, err := f.svc.SubmitClaim(ctx, models.Actor{UserID: uuid.New()}, item.ID, threeAnswers())
		require.NoError(t, err)
		ids = append(ids, c.ID.String())
	}

	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for k, id := range ids {
		wg.Add(1)
		go func(k int, id string) {
			defer wg.Done()
			_, errs[k] = f.svc.DecideClaim(ctx, f.admin, item.ID, id, models.DecisionApprove)
		}(k, id)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, itemdomain.ErrItemAlreadyClaimed)
	}
	assert.Equal(t, 1, ok)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.approvedFound(t)
	claimant := models.Actor{UserID: uuid.New()}
	_, err := f.svc.SubmitClaim(ctx, claimant, item.ID, threeAnswers())
	require.NoError(t, err)
	_, err = f.svc.DecideClaim(ctx, f.admin, item.ID, "0", models.DecisionApprove)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteOwn(ctx, claimant, item.ID), itemdomain.ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteOwn(ctx, f.owner, item.ID), itemdomain.ErrItemAlreadyClaimed)
	assert.ErrorIs(t, f.svc.Delete(ctx, f.owner, item.ID), itemdomain.ErrForbidden)

	// admins may delete claimed items
	require.NoError(t, f.svc.Delete(ctx, f.admin, item.ID))
	_, err = f.svc.Get(ctx, f.admin, item.ID)
	assert.ErrorIs(t, err, itemdomain.ErrItemNotFound)
	assert.Equal(t, []string{"/uploads/scarf.jpg"}, f.images.removed)
	assert.ErrorIs(t, f.svc.Delete(ctx, f.admin, item.ID), itemdomain.ErrItemNotFound)

	other, err := f.svc.Create(ctx, f.owner, models.CategoryFound, details())
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteOwn(ctx, f.owner, other.ID))
}

func TestUpdateOwn_ReturnsToModeration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.approvedFound(t)

	d := details()
	d.Title = "Grey cashmere scarf"
	d.ImageURL = "/uploads/new.jpg"
	updated, err := f.svc.UpdateOwn(ctx, f.owner, item.ID, d)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.Status)
	assert.Empty(t, updated.Questions, "generated questions are regenerated on the next approval")
	assert.Equal(t, []string{"/uploads/scarf.jpg"}, f.images.removed)

	_, err = f.svc.UpdateOwn(ctx, models.Actor{UserID: uuid.New()}, item.ID, d)
	assert.ErrorIs(t, err, itemdomain.ErrForbidden)

	reapproved, err := f.svc.Approve(ctx, f.admin, item.ID)
	require.NoError(t, err)
	assert.Len(t, reapproved.Questions, 3)
	_, err = f.svc.SubmitClaim(ctx, models.Actor{UserID: uuid.New()}, item.ID, threeAnswers())
	require.NoError(t, err)

	_, err = f.svc.UpdateOwn(ctx, f.owner, item.ID, d)
	assert.ErrorIs(t, err, itemdomain.ErrItemHasClaims)
}

func TestListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	approved := f.approvedFound(t)
	pending, err := f.svc.Create(ctx, f.owner, models.CategoryFound, details())
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, models.Actor{UserID: uuid.New()}, models.CategoryLost, details())
	require.NoError(t, err)

	all, err := f.svc.List(ctx, f.admin, repositories.QueryOpts{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	public, err := f.svc.List(ctx, models.Actor{UserID: uuid.New()}, repositories.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, approved.ID, public[0].ID)

	mine, err := f.svc.ListMine(ctx, f.owner)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, pending.ID, mine[0].ID)

	_, err = f.svc.ListClaims(ctx, f.owner)
	assert.ErrorIs(t, err, itemdomain.ErrForbidden)
	overview, err := f.svc.ListClaims(ctx, f.admin)
	require.NoError(t, err)
	assert.Empty(t, overview)
}
