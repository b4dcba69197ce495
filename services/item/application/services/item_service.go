package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgcache "github.com/ghuser/lostfound/pkg/cache"
	"github.com/ghuser/lostfound/pkg/logger"
	"github.com/ghuser/lostfound/pkg/telemetry"
	itemdomain "github.com/ghuser/lostfound/services/item/domain"
	domainevents "github.com/ghuser/lostfound/services/item/domain/events"
	"github.com/ghuser/lostfound/services/item/domain/models"
	"github.com/ghuser/lostfound/services/item/domain/repositories"
	domainsvcs "github.com/ghuser/lostfound/services/item/domain/services"
)

// QuestionProvider generates verification questions for an item.
type QuestionProvider interface {
	GenerateQuestions(ctx context.Context, title, description, category string) ([]string, error)
}

// ClaimScorer estimates how likely answers come from the real owner.
type ClaimScorer interface {
	ScoreClaim(ctx context.Context, title, description string, questions, answers []string) (int, error)
}

// ImageRemover deletes stored item images. Failures are logged only.
type ImageRemover interface {
	Remove(publicPath string) error
}

// ImageStore persists uploaded item images and returns their public path.
type ImageStore interface {
	ImageRemover
	Save(r io.Reader) (string, error)
}

const (
	generatedQuestionCount = 3
	minQuestionLength      = 6
	defaultAITimeout       = 8 * time.Second
)

// FallbackQuestions replace generated questions whenever the provider fails.
var FallbackQuestions = []string{
	"What color is the item?",
	"Where was it lost/found?",
	"Describe a unique feature.",
}

// SnapshotCache is the read-through cache for unprojected items.
// *cache.ItemCache satisfies it. Fill must drop the snapshot when the
// version moved since it was read; Delete moves it.
type SnapshotCache interface {
	Get(ctx context.Context, itemID uuid.UUID, dst any) error
	Version(ctx context.Context, itemID uuid.UUID) (int64, error)
	Fill(ctx context.Context, itemID uuid.UUID, version int64, v any) error
	Delete(ctx context.Context, itemIDs ...uuid.UUID) error
}

// Dependencies are the collaborators of ItemService. Cache, Questions,
// Scorer, Images and Metrics may be nil.
type Dependencies struct {
	Items     repositories.ItemRepository
	AdminLogs repositories.AdminLogRepository
	Cache     SnapshotCache
	Questions QuestionProvider
	Scorer    ClaimScorer
	Images    ImageRemover
	Metrics   *telemetry.Metrics
	Logger    logger.Logger
	AITimeout time.Duration
	Now       func() time.Time
}

// ItemService runs the item and claim lifecycle. Domain events are published
// by the repository inside each mutation's transaction (outbox pattern).
// Single-item reads go through the Redis cache when one is configured.
type ItemService struct {
	repo      repositories.ItemRepository
	logs      repositories.AdminLogRepository
	cache     SnapshotCache
	questions QuestionProvider
	scorer    ClaimScorer
	images    ImageRemover
	metrics   *telemetry.Metrics
	log       logger.Logger
	aiTimeout time.Duration
	now       func() time.Time
}

// NewItemService returns an ItemService wired with deps.
func NewItemService(deps Dependencies) *ItemService {
	s := &ItemService{
		repo:      deps.Items,
		logs:      deps.AdminLogs,
		cache:     deps.Cache,
		questions: deps.Questions,
		scorer:    deps.Scorer,
		images:    deps.Images,
		metrics:   deps.Metrics,
		log:       deps.Logger,
		aiTimeout: deps.AITimeout,
		now:       deps.Now,
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	if s.aiTimeout <= 0 {
		s.aiTimeout = defaultAITimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Create validates and stores a new pending item owned by the actor.
func (s *ItemService) Create(ctx context.Context, actor models.Actor, category models.Category, d models.ItemDetails) (*models.Item, error) {
	if actor.Anonymous() {
		return nil, itemdomain.ErrForbidden
	}
	now := s.now()
	item, err := models.NewItem(actor.UserID, category, d, now)
	if err != nil {
		return nil, err
	}
	if err := domainsvcs.ValidateItemForCreation(item); err != nil {
		return nil, err
	}

	evt := domainevents.ItemCreatedEvent{
		Envelope: domainevents.NewEnvelope(now),
		ItemID:   item.ID,
		OwnerID:  item.OwnerID,
		Category: string(item.Category),
		Title:    item.Title,
	}
	if err := s.repo.Create(ctx, item, evt); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	s.log.InfoContext(ctx, "item created", "item_id", item.ID, "user_id", actor.UserID, "category", item.Category)
	return domainsvcs.ProjectForViewer(item, actor)
}

// List returns every item for admins and approved items for everyone else,
// newest first.
func (s *ItemService) List(ctx context.Context, actor models.Actor, opts repositories.QueryOpts) ([]*models.Item, error) {
	filter := repositories.ListFilter{QueryOpts: opts}
	if !actor.Admin {
		filter.Status = models.StatusApproved
	}
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return domainsvcs.FilterVisible(items, actor), nil
}

// ListMine returns the actor's own items in any state.
func (s *ItemService) ListMine(ctx context.Context, actor models.Actor) ([]*models.Item, error) {
	if actor.Anonymous() {
		return nil, itemdomain.ErrForbidden
	}
	items, err := s.repo.List(ctx, repositories.ListFilter{OwnerID: actor.UserID})
	if err != nil {
		return nil, fmt.Errorf("list own items: %w", err)
	}
	return domainsvcs.FilterVisible(items, actor), nil
}

// Get returns the item as the actor may see it. Reads go through the cache;
// the snapshot is unprojected, so visibility is applied on every call.
func (s *ItemService) Get(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Item, error) {
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return domainsvcs.ProjectForViewer(item, actor)
}

func (s *ItemService) load(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	if s.cache == nil {
		return s.repo.GetByID(ctx, id)
	}
	var cached models.Item
	switch err := s.cache.Get(ctx, id, &cached); {
	case err == nil:
		return &cached, nil
	case !errors.Is(err, pkgcache.ErrCacheMiss):
		s.log.WarnContext(ctx, "item cache read failed", "item_id", id, "error", err)
	}

	version, verr := s.cache.Version(ctx, id)
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if verr != nil {
		s.log.WarnContext(ctx, "item cache version read failed", "item_id", id, "error", verr)
		return item, nil
	}
	if err := s.cache.Fill(ctx, id, version, item); err != nil {
		s.log.WarnContext(ctx, "item cache write failed", "item_id", id, "error", err)
	}
	return item, nil
}

// Approve publishes an item. Items without questions get three generated
// ones; a provider failure substitutes FallbackQuestions and never fails the
// approval.
func (s *ItemService) Approve(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Item, error) {
	if !actor.Admin {
		return nil, itemdomain.ErrForbidden
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var generated []models.Question
	if current.NeedsQuestions() {
		generated = s.generateQuestions(ctx, current)
	}

	item, err := s.repo.Mutate(ctx, id, func(it *models.Item) ([]domainevents.Event, error) {
		now := s.now()
		it.Approve(generated, now)
		source := ""
		if len(it.Questions) > 0 {
			source = string(it.Questions[0].Source)
		}
		return []domainevents.Event{domainevents.ItemApprovedEvent{
			Envelope:       domainevents.NewEnvelope(now),
			ItemID:         it.ID,
			OwnerID:        it.OwnerID,
			AdminID:        actor.UserID,
			QuestionCount:  len(it.Questions),
			QuestionSource: source,
		}}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("approve item: %w", err)
	}

	s.invalidate(ctx, id)
	s.audit(ctx, actor, models.ActionApproveItem, id.String())
	s.log.InfoContext(ctx, "item approved", "item_id", id, "user_id", actor.UserID, "questions", len(item.Questions))
	return domainsvcs.ProjectForViewer(item, actor)
}

func (s *ItemService) generateQuestions(ctx context.Context, item *models.Item) []models.Question {
	if s.questions != nil {
		actx, cancel := context.WithTimeout(ctx, s.aiTimeout)
		texts, err := withDeadline(actx, func(ctx context.Context) ([]string, error) {
			return s.questions.GenerateQuestions(ctx, item.Title, item.Description, string(item.Category))
		})
		cancel()
		if err == nil {
			err = checkGenerated(texts)
		}
		if err == nil {
			out := make([]models.Question, len(texts))
			for k, t := range texts {
				out[k] = models.Question{Text: strings.TrimSpace(t), Source: models.QuestionSourceGenerated}
			}
			return out
		}
		s.upstreamFailed(ctx, "generate_questions", item.ID, err)
	}

	out := make([]models.Question, len(FallbackQuestions))
	for k, t := range FallbackQuestions {
		out[k] = models.Question{Text: t, Source: models.QuestionSourceFallback}
	}
	return out
}

// withDeadline returns call's result, or ctx.Err() as soon as ctx is done
// even when call does not watch ctx. An abandoned call finishes in the
// background and its result is discarded.
func withDeadline[T any](ctx context.Context, call func(context.Context) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := call(ctx)
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func checkGenerated(texts []string) error {
	if len(texts) != generatedQuestionCount {
		return fmt.Errorf("expected %d questions, got %d", generatedQuestionCount, len(texts))
	}
	for k, t := range texts {
		if len([]rune(strings.TrimSpace(t))) < minQuestionLength {
			return fmt.Errorf("question %d is too short", k+1)
		}
	}
	return nil
}

// SubmitClaim records the actor's answers as a pending claim. Scoring runs
// before the item is locked; a scorer failure yields confidence 0 and the
// claim is stored regardless.
func (s *ItemService) SubmitClaim(ctx context.Context, actor models.Actor, id uuid.UUID, answers []string) (*models.Claim, error) {
	if actor.Anonymous() {
		return nil, itemdomain.ErrForbidden
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := current.CheckClaimable(actor.UserID); err != nil {
		return nil, err
	}
	normalized, err := current.NormalizeAnswers(answers)
	if err != nil {
		return nil, err
	}

	confidence := s.score(ctx, current, normalized)

	var claim models.Claim
	_, err = s.repo.Mutate(ctx, id, func(it *models.Item) ([]domainevents.Event, error) {
		now := s.now()
		c, err := it.AddClaim(actor.UserID, normalized, confidence, now)
		if err != nil {
			return nil, err
		}
		claim = *c
		return []domainevents.Event{domainevents.ClaimSubmittedEvent{
			Envelope:   domainevents.NewEnvelope(now),
			ItemID:     it.ID,
			OwnerID:    it.OwnerID,
			ClaimID:    c.ID,
			ClaimantID: c.ClaimantID,
			Confidence: c.Confidence,
		}}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("submit claim: %w", err)
	}

	s.invalidate(ctx, id)
	s.metrics.ClaimSubmitted(ctx)
	s.log.InfoContext(ctx, "claim submitted", "item_id", id, "claim_id", claim.ID, "user_id", actor.UserID, "confidence", claim.Confidence)
	return &claim, nil
}

func (s *ItemService) score(ctx context.Context, item *models.Item, answers []string) int {
	if s.scorer == nil {
		return 0
	}
	questions := make([]string, len(item.Questions))
	for k, q := range item.Questions {
		questions[k] = q.Text
	}

	actx, cancel := context.WithTimeout(ctx, s.aiTimeout)
	defer cancel()
	score, err := withDeadline(actx, func(ctx context.Context) (int, error) {
		return s.scorer.ScoreClaim(ctx, item.Title, item.Description, questions, answers)
	})
	if err != nil {
		s.upstreamFailed(ctx, "score_claim", item.ID, err)
		return 0
	}
	return models.ClampConfidence(score)
}

// DecideClaim approves or rejects the claim named by ref, which is either a
// claim id or a zero-based submission index.
func (s *ItemService) DecideClaim(ctx context.Context, actor models.Actor, id uuid.UUID, ref string, d models.Decision) (*models.Claim, error) {
	if !actor.Admin {
		return nil, itemdomain.ErrForbidden
	}

	var claim models.Claim
	_, err := s.repo.Mutate(ctx, id, func(it *models.Item) ([]domainevents.Event, error) {
		claimID, err := it.ResolveClaim(ref)
		if err != nil {
			return nil, err
		}
		now := s.now()
		c, err := it.DecideClaim(claimID, d, now)
		if err != nil {
			return nil, err
		}
		claim = *c
		return []domainevents.Event{domainevents.ClaimDecidedEvent{
			Envelope:    domainevents.NewEnvelope(now),
			ItemID:      it.ID,
			ClaimID:     c.ID,
			ClaimantID:  c.ClaimantID,
			AdminID:     actor.UserID,
			Decision:    string(d),
			ItemClaimed: it.Claimed,
		}}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("decide claim: %w", err)
	}

	action := models.ActionRejectClaim
	if d == models.DecisionApprove {
		action = models.ActionApproveClaim
	}
	s.invalidate(ctx, id)
	s.audit(ctx, actor, action, claim.ID.String())
	s.metrics.ClaimDecided(ctx, string(d))
	s.log.InfoContext(ctx, "claim decided", "item_id", id, "claim_id", claim.ID, "decision", d, "user_id", actor.UserID)
	return &claim, nil
}

// Delete removes any item. Admin only.
func (s *ItemService) Delete(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	if !actor.Admin {
		return itemdomain.ErrForbidden
	}
	if err := s.delete(ctx, actor, id, true, func(*models.Item) error { return nil }); err != nil {
		return err
	}
	s.audit(ctx, actor, models.ActionDeleteItem, id.String())
	return nil
}

// DeleteOwn removes the actor's own item while it is unclaimed.
func (s *ItemService) DeleteOwn(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	return s.delete(ctx, actor, id, false, func(it *models.Item) error {
		return it.CheckOwnerDelete(actor.UserID)
	})
}

func (s *ItemService) delete(ctx context.Context, actor models.Actor, id uuid.UUID, byAdmin bool, check func(*models.Item) error) error {
	item, err := s.repo.Delete(ctx, id, func(it *models.Item) ([]domainevents.Event, error) {
		if err := check(it); err != nil {
			return nil, err
		}
		return []domainevents.Event{domainevents.ItemDeletedEvent{
			Envelope: domainevents.NewEnvelope(s.now()),
			ItemID:   it.ID,
			ActorID:  actor.UserID,
			ByAdmin:  byAdmin,
			Claimed:  it.Claimed,
		}}, nil
	})
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	s.invalidate(ctx, id)
	s.removeImage(ctx, item.ImageURL)
	s.log.InfoContext(ctx, "item deleted", "item_id", id, "user_id", actor.UserID)
	return nil
}

// UpdateOwn applies an owner edit and sends the item back to moderation.
func (s *ItemService) UpdateOwn(ctx context.Context, actor models.Actor, id uuid.UUID, d models.ItemDetails) (*models.Item, error) {
	var oldImage string
	item, err := s.repo.Mutate(ctx, id, func(it *models.Item) ([]domainevents.Event, error) {
		oldImage = it.ImageURL
		now := s.now()
		if err := it.UpdateDetails(actor.UserID, d, now); err != nil {
			return nil, err
		}
		if err := domainsvcs.ValidateTitle(it.Title); err != nil {
			return nil, err
		}
		return []domainevents.Event{domainevents.ItemUpdatedEvent{
			Envelope: domainevents.NewEnvelope(now),
			ItemID:   it.ID,
			OwnerID:  it.OwnerID,
		}}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}

	s.invalidate(ctx, id)
	if oldImage != item.ImageURL {
		s.removeImage(ctx, oldImage)
	}
	return domainsvcs.ProjectForViewer(item, actor)
}

// ListClaims returns the admin overview of every claim.
func (s *ItemService) ListClaims(ctx context.Context, actor models.Actor) ([]repositories.ClaimOverview, error) {
	if !actor.Admin {
		return nil, itemdomain.ErrForbidden
	}
	out, err := s.repo.ListClaims(ctx)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	return out, nil
}

// AdminLogs returns the audit trail, newest first.
func (s *ItemService) AdminLogs(ctx context.Context, actor models.Actor, opts repositories.QueryOpts) ([]*models.AdminLog, error) {
	if !actor.Admin {
		return nil, itemdomain.ErrForbidden
	}
	out, err := s.logs.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list admin logs: %w", err)
	}
	return out, nil
}

// audit runs after the change has committed; a failed write is logged and
// does not undo the action.
func (s *ItemService) audit(ctx context.Context, actor models.Actor, action models.AdminAction, target string) {
	if s.logs == nil {
		return
	}
	if err := s.logs.Append(ctx, models.NewAdminLog(actor.UserID, action, target, s.now())); err != nil {
		s.log.ErrorContext(ctx, "admin log write failed", "action", action, "target", target, "error", err)
	}
}

func (s *ItemService) invalidate(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, id); err != nil {
		s.log.WarnContext(ctx, "item cache invalidation failed", "item_id", id, "error", err)
	}
}

func (s *ItemService) removeImage(ctx context.Context, path string) {
	if s.images == nil || path == "" {
		return
	}
	if err := s.images.Remove(path); err != nil {
		s.log.WarnContext(ctx, "image cleanup failed", "path", path, "error", err)
	}
}

func (s *ItemService) upstreamFailed(ctx context.Context, operation string, itemID uuid.UUID, err error) {
	s.log.WarnContext(ctx, "ai provider failed, using fallback", "operation", operation, "item_id", itemID, "error", err)
	s.metrics.AIFallback(ctx, operation)
	telemetry.CaptureUpstream(ctx, operation, itemID, err)
}
