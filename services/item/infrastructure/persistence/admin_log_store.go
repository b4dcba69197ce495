package persistence

import (
	"context"
	"fmt"

	"github.com/ghuser/lostfound/pkg/database"
	"github.com/ghuser/lostfound/services/item/domain/models"
	"github.com/ghuser/lostfound/services/item/domain/repositories"
)

// AdminLogStore implements repositories.AdminLogRepository.
type AdminLogStore struct {
	db *database.Database
}

var _ repositories.AdminLogRepository = (*AdminLogStore)(nil)

// NewAdminLogStore returns an AdminLogStore over db.
func NewAdminLogStore(db *database.Database) *AdminLogStore {
	return &AdminLogStore{db: db}
}

// Append stores one audit entry.
func (s *AdminLogStore) Append(ctx context.Context, e *models.AdminLog) error {
	_, err := s.db.DB().ExecContext(ctx,
		s.db.Rebind(`INSERT INTO admin_logs (id, admin_id, action, target, created_at) VALUES (?, ?, ?, ?, ?)`),
		e.ID, e.AdminID, string(e.Action), e.Target, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert admin log: %w", err)
	}
	return nil
}

// List returns entries newest first.
func (s *AdminLogStore) List(ctx context.Context, opts repositories.QueryOpts) ([]*models.AdminLog, error) {
	q := `SELECT id, admin_id, action, target, created_at FROM admin_logs ORDER BY created_at DESC, id`
	var args []any
	if opts.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, opts.Offset)
	}
	rows, err := s.db.DB().QueryContext(ctx, s.db.Rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("query admin logs: %w", err)
	}
	defer rows.Close()

	var out []*models.AdminLog
	for rows.Next() {
		var (
			e      models.AdminLog
			action string
		)
		if err := rows.Scan(&e.ID, &e.AdminID, &action, &e.Target, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan admin log: %w", err)
		}
		e.Action = models.AdminAction(action)
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admin logs: %w", err)
	}
	return out, nil
}
