package outbound

import (
	"context"

	"github.com/google/uuid"

	"tradebidz-core-service/internal/domain/shared"
)

// EventType represents the type of event being broadcasted
type EventType string

const (
	EventTypePriceUpdate  EventType = "auction.price_update"
	EventTypeAuctionEnded EventType = "auction.ended"
)

// Event is a broadcast message on an auction's live channel
type Event struct {
	Type      EventType              `json:"type"`
	AuctionID uuid.UUID              `json:"auction_id"`
	Snapshot  shared.AuctionSnapshot `json:"snapshot"`
	Timestamp int64                  `json:"timestamp"`
}

// Broadcaster publishes live auction snapshots and fans them out to
// subscribed clients. Publishing is best-effort; no acknowledgement is
// awaited.
type Broadcaster interface {
	// Subscribe subscribes a client to events for a specific auction.
	// Events for all of a client's auctions are delivered to the same channel.
	Subscribe(ctx context.Context, auctionID uuid.UUID, clientID string, eventChan chan Event) error

	// Unsubscribe removes a client's subscription to one auction
	Unsubscribe(ctx context.Context, auctionID uuid.UUID, clientID string) error

	// Publish publishes an event to all subscribers of an auction
	Publish(ctx context.Context, auctionID uuid.UUID, event Event) error

	// IsSubscribed checks if a client is subscribed to an auction
	IsSubscribed(ctx context.Context, auctionID uuid.UUID, clientID string) bool
}
