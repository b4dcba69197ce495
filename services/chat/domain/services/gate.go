// Package services contains the chat authorization gate.
package services

import (
	"github.com/google/uuid"

	chatdomain "github.com/ghuser/lostfound/services/chat/domain"
	itemmodels "github.com/ghuser/lostfound/services/item/domain/models"
)

// Verdict is the outcome of a chat access check.
type Verdict int

const (
	// Admitted lets the request through.
	Admitted Verdict = iota
	// DeniedSilently drops the request without telling the caller.
	DeniedSilently
)

func (v Verdict) String() string {
	if v == Admitted {
		return "admitted"
	}
	return "denied"
}

// Evaluate admits userID when it owns the item or holds its approved claim.
// It must run against fresh item state on every join and every message.
func Evaluate(item *itemmodels.Item, userID uuid.UUID) Verdict {
	if item == nil || !item.CanChat(userID) {
		return DeniedSilently
	}
	return Admitted
}

// Authorize is Evaluate in error form: DeniedSilently becomes
// ErrNotParticipant.
func Authorize(item *itemmodels.Item, userID uuid.UUID) error {
	if Evaluate(item, userID) != Admitted {
		return chatdomain.ErrNotParticipant
	}
	return nil
}
