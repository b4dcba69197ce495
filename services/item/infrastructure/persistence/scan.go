package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ghuser/lostfound/services/item/domain/models"
)

type scanner interface {
	Scan(dest ...any) error
}

// scanItem reads a row selected with itemColumns. sql.ErrNoRows is returned
// unwrapped.
func scanItem(row scanner) (*models.Item, error) {
	var (
		item             models.Item
		category, status string
		questions        []byte
	)
	err := row.Scan(&item.ID, &item.OwnerID, &item.Title, &item.Description, &category, &item.Contact,
		&item.ImageURL, &status, &item.Claimed, &questions, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.Category = models.Category(category)
	item.Status = models.Status(status)
	item.Questions = []models.Question{}
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &item.Questions); err != nil {
			return nil, fmt.Errorf("decode questions of item %s: %w", item.ID, err)
		}
	}
	item.Claims = []models.Claim{}
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	return &item, nil
}

// scanClaim reads a row selected with claimColumns.
func scanClaim(row scanner) (uuid.UUID, models.Claim, error) {
	var (
		c       models.Claim
		itemID  uuid.UUID
		pos     int
		status  string
		answers []byte
	)
	if err := row.Scan(&c.ID, &itemID, &pos, &c.ClaimantID, &answers, &c.Confidence, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return uuid.Nil, c, fmt.Errorf("scan claim: %w", err)
	}
	if err := json.Unmarshal(answers, &c.Answers); err != nil {
		return uuid.Nil, c, fmt.Errorf("decode answers of claim %s: %w", c.ID, err)
	}
	c.Status = models.ClaimStatus(status)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return itemID, c, nil
}
