package models

import "github.com/google/uuid"

// Actor is the authenticated principal performing an operation, reduced to
// what the item domain needs. The zero value is an anonymous viewer.
type Actor struct {
	UserID uuid.UUID
	Admin  bool
}

// Anonymous reports whether no user is attached.
func (a Actor) Anonymous() bool {
	return a.UserID == uuid.Nil
}
