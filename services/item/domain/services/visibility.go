package services

import (
	itemdomain "github.com/ghuser/lostfound/services/item/domain"
	"github.com/ghuser/lostfound/services/item/domain/models"
)

// CanView reports whether viewer may see the item at all. Approved items are
// public; pending items are visible to admins and the owner only.
func CanView(item *models.Item, viewer models.Actor) bool {
	if item.Status == models.StatusApproved {
		return true
	}
	return viewer.Admin || (!viewer.Anonymous() && viewer.UserID == item.OwnerID)
}

// ProjectForViewer returns a copy of item stripped down to what viewer may
// see:
//   - question answers only for the owner
//   - contact once claimed, or for the owner and admins
//   - all claims for the owner and admins, the viewer's own claim otherwise
//
// Returns ErrItemUnavailable when the viewer may not see the item.
func ProjectForViewer(item *models.Item, viewer models.Actor) (*models.Item, error) {
	if !CanView(item, viewer) {
		return nil, itemdomain.ErrItemUnavailable
	}

	owner := !viewer.Anonymous() && viewer.UserID == item.OwnerID
	out := item.Clone()

	if !owner {
		for k := range out.Questions {
			out.Questions[k].Answer = ""
		}
	}

	if !out.Claimed && !owner && !viewer.Admin {
		out.Contact = ""
	}

	if !owner && !viewer.Admin {
		own := make([]models.Claim, 0, 1)
		for _, c := range out.Claims {
			if !viewer.Anonymous() && c.ClaimantID == viewer.UserID {
				own = append(own, c)
			}
		}
		out.Claims = own
	}
	return out, nil
}

// FilterVisible projects every item the viewer may see and drops the rest,
// preserving order.
func FilterVisible(items []*models.Item, viewer models.Actor) []*models.Item {
	out := make([]*models.Item, 0, len(items))
	for _, item := range items {
		if projected, err := ProjectForViewer(item, viewer); err == nil {
			out = append(out, projected)
		}
	}
	return out
}
