// Package services contains stateless domain services for the item bounded context.
// Domain services enforce business rules that operate purely on domain types
// and have zero external dependencies beyond stdlib and the domain layer.
package services

import (
	"strings"
	"unicode"

	"github.com/google/uuid"

	itemdomain "github.com/ghuser/lostfound/services/item/domain"
	"github.com/ghuser/lostfound/services/item/domain/models"
)

// ValidateTitle enforces business rules for a title beyond the length
// checks done by the model constructor:
//   - No control characters (Unicode category Cc)
//   - No consecutive spaces
func ValidateTitle(title string) error {
	for _, r := range title {
		if unicode.IsControl(r) {
			return itemdomain.Validationf("title must not contain control characters")
		}
	}
	if strings.Contains(title, "  ") {
		return itemdomain.Validationf("title must not contain consecutive spaces")
	}
	return nil
}

// ValidateItemForCreation performs cross-field validation on a fully-constructed
// Item aggregate before it is persisted. It assumes the Item was built via
// models.NewItem and checks the invariants of a fresh listing.
func ValidateItemForCreation(item *models.Item) error {
	if item == nil {
		return itemdomain.Validationf("item cannot be nil")
	}
	if err := ValidateTitle(item.Title); err != nil {
		return err
	}
	if item.ID == uuid.Nil {
		return itemdomain.Validationf("id must be set")
	}
	if item.OwnerID == uuid.Nil {
		return itemdomain.Validationf("owner must be set")
	}
	if item.Status != models.StatusPending || item.Claimed || len(item.Claims) > 0 {
		return itemdomain.Validationf("new items must be pending and unclaimed")
	}
	if item.Category == models.CategoryFound && len(item.Questions) > 0 {
		return itemdomain.Validationf("found items cannot carry owner questions")
	}
	return nil
}
