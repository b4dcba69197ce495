// Package persistence holds the SQL implementation of the item repositories
// shared by the postgres and sqlite adapters. Queries are written with "?"
// placeholders and rebound per driver.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ghuser/lostfound/pkg/database"
	itemdomain "github.com/ghuser/lostfound/services/item/domain"
	domainevents "github.com/ghuser/lostfound/services/item/domain/events"
	"github.com/ghuser/lostfound/services/item/domain/models"
	"github.com/ghuser/lostfound/services/item/domain/repositories"
)

const (
	itemColumns  = `id, owner_id, title, description, category, contact, image_url, status, claimed, questions, created_at, updated_at`
	claimColumns = `id, item_id, position, claimant_id, answers, confidence, status, created_at, updated_at`
)

// Publisher writes domain events inside the repository transaction. A nil
// Publisher drops them.
type Publisher func(ctx context.Context, tx *sql.Tx, evts []domainevents.Event) error

// Options are the dialect-specific parts of an ItemStore.
type Options struct {
	// LockClause is appended to the item SELECT inside Mutate and Delete,
	// e.g. " FOR UPDATE". Empty when the engine serializes transactions.
	LockClause string
	Publish    Publisher
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ItemStore implements repositories.ItemRepository.
type ItemStore struct {
	db   *database.Database
	opts Options
}

var _ repositories.ItemRepository = (*ItemStore)(nil)

// NewItemStore returns an ItemStore over db.
func NewItemStore(db *database.Database, opts Options) *ItemStore {
	return &ItemStore{db: db, opts: opts}
}

// Create inserts a new item with its claims and publishes evts atomically.
func (s *ItemStore) Create(ctx context.Context, item *models.Item, evts ...domainevents.Event) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.insertItem(ctx, tx, item); err != nil {
			return err
		}
		for pos := range item.Claims {
			if err := s.insertClaim(ctx, tx, item.ID, pos, &item.Claims[pos]); err != nil {
				return err
			}
		}
		return s.publish(ctx, tx, evts)
	})
}

// GetByID loads an item with its claims.
func (s *ItemStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	return s.load(ctx, s.db.DB(), id, "")
}

// List returns items newest first, each with its claims.
func (s *ItemStore) List(ctx context.Context, f repositories.ListFilter) ([]*models.Item, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.OwnerID != uuid.Nil {
		where = append(where, "owner_id = ?")
		args = append(args, f.OwnerID)
	}

	q := `SELECT ` + itemColumns + ` FROM items`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := s.db.DB().QueryContext(ctx, s.db.Rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	byID := make(map[uuid.UUID]*models.Item)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		byID[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	if err := s.attachClaims(ctx, s.db.DB(), byID); err != nil {
		return nil, err
	}
	return items, nil
}

// Mutate applies fn to the locked item and persists the result together
// with the events fn returns.
func (s *ItemStore) Mutate(ctx context.Context, id uuid.UUID, fn repositories.MutateFunc) (*models.Item, error) {
	var out *models.Item
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		item, err := s.load(ctx, tx, id, s.opts.LockClause)
		if err != nil {
			return err
		}
		before := make(map[uuid.UUID]models.Claim, len(item.Claims))
		for _, c := range item.Claims {
			before[c.ID] = c
		}

		evts, err := fn(item)
		if err != nil {
			return err
		}
		if err := s.updateItem(ctx, tx, item); err != nil {
			return err
		}
		if err := s.saveClaims(ctx, tx, item, before); err != nil {
			return err
		}
		if err := s.publish(ctx, tx, evts); err != nil {
			return err
		}
		out = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the item once fn accepts it. Claims and chat history go
// with it through ON DELETE CASCADE.
func (s *ItemStore) Delete(ctx context.Context, id uuid.UUID, fn repositories.MutateFunc) (*models.Item, error) {
	var out *models.Item
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		item, err := s.load(ctx, tx, id, s.opts.LockClause)
		if err != nil {
			return err
		}
		evts, err := fn(item)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.db.Rebind(`DELETE FROM items WHERE id = ?`), item.ID); err != nil {
			return fmt.Errorf("delete item: %w", err)
		}
		if err := s.publish(ctx, tx, evts); err != nil {
			return err
		}
		out = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListClaims flattens every claim with its item title.
func (s *ItemStore) ListClaims(ctx context.Context) ([]repositories.ClaimOverview, error) {
	rows, err := s.db.DB().QueryContext(ctx, `
		SELECT c.item_id, i.title, c.id, c.position, c.claimant_id, c.confidence, c.status, c.created_at
		FROM claims c
		JOIN items i ON i.id = c.item_id
		ORDER BY i.created_at DESC, i.id, c.position`)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()

	var out []repositories.ClaimOverview
	for rows.Next() {
		var (
			o      repositories.ClaimOverview
			status string
		)
		if err := rows.Scan(&o.ItemID, &o.ItemTitle, &o.ClaimID, &o.Position, &o.ClaimantID, &o.Confidence, &status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan claim overview: %w", err)
		}
		o.Status = models.ClaimStatus(status)
		o.CreatedAt = o.CreatedAt.UTC()
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	return out, nil
}

func (s *ItemStore) load(ctx context.Context, q querier, id uuid.UUID, lock string) (*models.Item, error) {
	row := q.QueryRowContext(ctx, s.db.Rebind(`SELECT `+itemColumns+` FROM items WHERE id = ?`+lock), id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, itemdomain.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.attachClaims(ctx, q, map[uuid.UUID]*models.Item{item.ID: item}); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ItemStore) attachClaims(ctx context.Context, q querier, byID map[uuid.UUID]*models.Item) error {
	if len(byID) == 0 {
		return nil
	}
	args := make([]any, 0, len(byID))
	for id := range byID {
		args = append(args, id)
	}
	query := `SELECT ` + claimColumns + ` FROM claims WHERE item_id IN (` + database.Placeholders(len(args)) + `) ORDER BY item_id, position`
	rows, err := q.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		itemID, c, err := scanClaim(rows)
		if err != nil {
			return err
		}
		if item := byID[itemID]; item != nil {
			item.Claims = append(item.Claims, c)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate claims: %w", err)
	}
	return nil
}

func (s *ItemStore) insertItem(ctx context.Context, q querier, item *models.Item) error {
	questions, err := json.Marshal(item.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	_, err = q.ExecContext(ctx, s.db.Rebind(`INSERT INTO items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		item.ID, item.OwnerID, item.Title, item.Description, string(item.Category), item.Contact, item.ImageURL,
		string(item.Status), item.Claimed, string(questions), item.CreatedAt.UTC(), item.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (s *ItemStore) updateItem(ctx context.Context, q querier, item *models.Item) error {
	questions, err := json.Marshal(item.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	_, err = q.ExecContext(ctx, s.db.Rebind(`
		UPDATE items
		SET title = ?, description = ?, contact = ?, image_url = ?, status = ?, claimed = ?, questions = ?, updated_at = ?
		WHERE id = ?`),
		item.Title, item.Description, item.Contact, item.ImageURL, string(item.Status), item.Claimed,
		string(questions), item.UpdatedAt.UTC(), item.ID)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// saveClaims inserts claims absent from before and updates changed ones.
// Claims are never removed individually.
func (s *ItemStore) saveClaims(ctx context.Context, q querier, item *models.Item, before map[uuid.UUID]models.Claim) error {
	for pos := range item.Claims {
		c := &item.Claims[pos]
		prev, existed := before[c.ID]
		switch {
		case !existed:
			if err := s.insertClaim(ctx, q, item.ID, pos, c); err != nil {
				return err
			}
		case prev.Status != c.Status || prev.Confidence != c.Confidence:
			if err := s.updateClaim(ctx, q, c); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *ItemStore) insertClaim(ctx context.Context, q querier, itemID uuid.UUID, pos int, c *models.Claim) error {
	answers, err := json.Marshal(c.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = q.ExecContext(ctx, s.db.Rebind(`INSERT INTO claims (`+claimColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		c.ID, itemID, pos, c.ClaimantID, string(answers), c.Confidence, string(c.Status), c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	if database.IsUniqueViolation(err) {
		return itemdomain.ErrDuplicateClaim
	}
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

func (s *ItemStore) updateClaim(ctx context.Context, q querier, c *models.Claim) error {
	_, err := q.ExecContext(ctx, s.db.Rebind(`UPDATE claims SET status = ?, confidence = ?, updated_at = ? WHERE id = ?`),
		string(c.Status), c.Confidence, c.UpdatedAt.UTC(), c.ID)
	if database.IsUniqueViolation(err) {
		// uq_claims_one_approved: another claim was approved first
		return itemdomain.ErrItemAlreadyClaimed
	}
	if err != nil {
		return fmt.Errorf("update claim: %w", err)
	}
	return nil
}

func (s *ItemStore) publish(ctx context.Context, tx *sql.Tx, evts []domainevents.Event) error {
	if s.opts.Publish == nil || len(evts) == 0 {
		return nil
	}
	if err := s.opts.Publish(ctx, tx, evts); err != nil {
		return fmt.Errorf("publish events: %w", err)
	}
	return nil
}
