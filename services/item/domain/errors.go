package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the item domain. Use errors.Is() to check these.
var (
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden indicates the actor lacks the role or ownership required.
	ErrForbidden = errors.New("forbidden")

	// ErrItemNotFound indicates the requested item does not exist.
	ErrItemNotFound = errors.New("item not found")

	// ErrClaimNotFound indicates the claim reference does not match any claim on the item.
	ErrClaimNotFound = errors.New("claim not found")

	// ErrItemUnavailable indicates the item exists but is not yet approved.
	ErrItemUnavailable = errors.New("item not available")

	// ErrConflict is the parent of every state conflict below.
	ErrConflict = errors.New("conflict")
)

// Conflict errors. Each wraps ErrConflict.
var (
	ErrItemAlreadyClaimed  = fmt.Errorf("%w: item already claimed", ErrConflict)
	ErrDuplicateClaim      = fmt.Errorf("%w: you have already claimed this item", ErrConflict)
	ErrOwnItemClaim        = fmt.Errorf("%w: you cannot claim your own item", ErrConflict)
	ErrClaimAlreadyDecided = fmt.Errorf("%w: claim already decided", ErrConflict)
	ErrItemHasClaims       = fmt.Errorf("%w: item has claims and can no longer be edited", ErrConflict)
)

// validationf wraps ErrValidation with a formatted detail message.
func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Validationf is the exported form of validationf for other layers that
// need to report input errors in the item domain's vocabulary.
func Validationf(format string, args ...any) error {
	return validationf(format, args...)
}
