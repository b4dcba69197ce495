package models

import (
	"time"

	"github.com/google/uuid"
)

// AdminAction names an audited moderation action.
type AdminAction string

const (
	ActionApproveItem  AdminAction = "approve_item"
	ActionDeleteItem   AdminAction = "delete_item"
	ActionApproveClaim AdminAction = "approve_claim"
	ActionRejectClaim  AdminAction = "reject_claim"
)

// AdminLog is an append-only audit record of an admin action.
type AdminLog struct {
	ID        uuid.UUID
	AdminID   uuid.UUID
	Action    AdminAction
	Target    string
	CreatedAt time.Time
}

// NewAdminLog stamps a new audit record.
func NewAdminLog(adminID uuid.UUID, action AdminAction, target string, now time.Time) *AdminLog {
	return &AdminLog{
		ID:        uuid.New(),
		AdminID:   adminID,
		Action:    action,
		Target:    target,
		CreatedAt: now.UTC(),
	}
}
