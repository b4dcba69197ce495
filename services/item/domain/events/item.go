package events

import (
	"time"

	"github.com/google/uuid"
)

// Watermill topics published by the item context.
const (
	TopicItemCreated    = "item.created"
	TopicItemApproved   = "item.approved"
	TopicItemUpdated    = "item.updated"
	TopicItemDeleted    = "item.deleted"
	TopicClaimSubmitted = "claim.submitted"
	TopicClaimDecided   = "claim.decided"
)

// Topics lists every topic above, for subscribers that want all of them.
var Topics = []string{
	TopicItemCreated, TopicItemApproved, TopicItemUpdated,
	TopicItemDeleted, TopicClaimSubmitted, TopicClaimDecided,
}

// Event is a domain event that knows its topic.
type Event interface {
	Topic() string
	Meta() Envelope
}

// Envelope carries the fields shared by every event.
type Envelope struct {
	EventID    uuid.UUID `json:"event_id"` // Unique publish-time identifier for deduplication
	Version    int       `json:"version"`  // Schema version; increment on breaking changes
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEnvelope stamps a fresh envelope.
func NewEnvelope(now time.Time) Envelope {
	return Envelope{EventID: uuid.New(), Version: 1, OccurredAt: now.UTC()}
}

// Meta returns the envelope.
func (e Envelope) Meta() Envelope { return e }

// ItemCreatedEvent is published after a new Item is persisted.
type ItemCreatedEvent struct {
	Envelope
	ItemID   uuid.UUID `json:"item_id"`
	OwnerID  uuid.UUID `json:"owner_id"`
	Category string    `json:"category"`
	Title    string    `json:"title"`
}

func (ItemCreatedEvent) Topic() string { return TopicItemCreated }

// ItemApprovedEvent is published when an admin approves an item.
type ItemApprovedEvent struct {
	Envelope
	ItemID         uuid.UUID `json:"item_id"`
	OwnerID        uuid.UUID `json:"owner_id"`
	AdminID        uuid.UUID `json:"admin_id"`
	QuestionCount  int       `json:"question_count"`
	QuestionSource string    `json:"question_source"`
}

func (ItemApprovedEvent) Topic() string { return TopicItemApproved }

// ItemUpdatedEvent is published when an owner edits an item.
type ItemUpdatedEvent struct {
	Envelope
	ItemID  uuid.UUID `json:"item_id"`
	OwnerID uuid.UUID `json:"owner_id"`
}

func (ItemUpdatedEvent) Topic() string { return TopicItemUpdated }

// ItemDeletedEvent is published when an item is removed by an admin or its owner.
type ItemDeletedEvent struct {
	Envelope
	ItemID  uuid.UUID `json:"item_id"`
	ActorID uuid.UUID `json:"actor_id"`
	ByAdmin bool      `json:"by_admin"`
	Claimed bool      `json:"claimed"`
}

func (ItemDeletedEvent) Topic() string { return TopicItemDeleted }

// ClaimSubmittedEvent is published when a claimant submits answers.
type ClaimSubmittedEvent struct {
	Envelope
	ItemID     uuid.UUID `json:"item_id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	ClaimID    uuid.UUID `json:"claim_id"`
	ClaimantID uuid.UUID `json:"claimant_id"`
	Confidence int       `json:"confidence"`
}

func (ClaimSubmittedEvent) Topic() string { return TopicClaimSubmitted }

// ClaimDecidedEvent is published when an admin approves or rejects a claim.
type ClaimDecidedEvent struct {
	Envelope
	ItemID      uuid.UUID `json:"item_id"`
	ClaimID     uuid.UUID `json:"claim_id"`
	ClaimantID  uuid.UUID `json:"claimant_id"`
	AdminID     uuid.UUID `json:"admin_id"`
	Decision    string    `json:"decision"`
	ItemClaimed bool      `json:"item_claimed"`
}

func (ClaimDecidedEvent) Topic() string { return TopicClaimDecided }
