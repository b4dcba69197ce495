package main

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/ghuser/lostfound/pkg/app"
	"github.com/ghuser/lostfound/pkg/cache"
	"github.com/ghuser/lostfound/pkg/events"
	"github.com/ghuser/lostfound/pkg/logger"
	itemEvents "github.com/ghuser/lostfound/services/item/domain/events"
)

// itemInvalidator drops cached item snapshots. *cache.ItemCache satisfies it.
type itemInvalidator interface {
	Delete(ctx context.Context, itemIDs ...uuid.UUID) error
}

// itemRef is the subset shared by every item event payload.
type itemRef struct {
	ItemID uuid.UUID `json:"item_id"`
}

// registerSubscribers wires the domain event handlers onto c. Every item
// topic invalidates the cached snapshot; claim topics are also logged for the
// notification trail.
func registerSubscribers(c *events.Consumer, a *app.Application) {
	itemCache := cache.NewItemCache(a.Redis)
	var inv itemInvalidator
	if itemCache != nil {
		inv = itemCache
	}

	handlers := map[string]events.Handler{}
	for _, topic := range itemEvents.Topics {
		handlers[topic] = handleInvalidate(inv, a.Logger)
	}
	handlers[itemEvents.TopicClaimSubmitted] = chain(handlers[itemEvents.TopicClaimSubmitted], handleClaimSubmitted(a.Logger))
	handlers[itemEvents.TopicClaimDecided] = chain(handlers[itemEvents.TopicClaimDecided], handleClaimDecided(a.Logger))

	for topic, h := range handlers {
		c.Handle(topic, h)
	}
	a.Logger.Info("event subscribers registered", "topics", itemEvents.Topics)
}

// chain runs handlers in order and stops at the first error.
func chain(hs ...events.Handler) events.Handler {
	return func(ctx context.Context, msg *message.Message) error {
		for _, h := range hs {
			if err := h(ctx, msg); err != nil {
				return err
			}
		}
		return nil
	}
}

// handleInvalidate removes the event's item from the cache.
func handleInvalidate(inv itemInvalidator, log logger.Logger) events.Handler {
	return func(ctx context.Context, msg *message.Message) error {
		if inv == nil {
			return nil
		}
		var ref itemRef
		if err := events.DecodeJSON(msg, &ref); err != nil {
			return err
		}
		if err := inv.Delete(ctx, ref.ItemID); err != nil {
			return err
		}
		log.DebugContext(ctx, "item cache invalidated", "item_id", ref.ItemID)
		return nil
	}
}

func handleClaimSubmitted(log logger.Logger) events.Handler {
	return func(ctx context.Context, msg *message.Message) error {
		var evt itemEvents.ClaimSubmittedEvent
		if err := events.DecodeJSON(msg, &evt); err != nil {
			return err
		}
		log.InfoContext(ctx, "claim awaiting review",
			"item_id", evt.ItemID,
			"claim_id", evt.ClaimID,
			"owner_id", evt.OwnerID,
			"claimant_id", evt.ClaimantID,
			"confidence", evt.Confidence,
		)
		return nil
	}
}

func handleClaimDecided(log logger.Logger) events.Handler {
	return func(ctx context.Context, msg *message.Message) error {
		var evt itemEvents.ClaimDecidedEvent
		if err := events.DecodeJSON(msg, &evt); err != nil {
			return err
		}
		log.InfoContext(ctx, "claimant notified of decision",
			"item_id", evt.ItemID,
			"claim_id", evt.ClaimID,
			"claimant_id", evt.ClaimantID,
			"decision", evt.Decision,
			"item_claimed", evt.ItemClaimed,
		)
		return nil
	}
}
