// Package domain holds the sentinel errors of the chat bounded context.
// They wrap the item context's sentinels so one HTTP mapping serves both.
package domain

import (
	"fmt"

	itemdomain "github.com/ghuser/lostfound/services/item/domain"
)

var (
	// ErrNotParticipant is returned when the caller may not use an item's
	// chat room.
	ErrNotParticipant = fmt.Errorf("%w: not a chat participant", itemdomain.ErrForbidden)

	// ErrEmptyMessage is returned for blank message text.
	ErrEmptyMessage = fmt.Errorf("%w: message text is required", itemdomain.ErrValidation)
)
