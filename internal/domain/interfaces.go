package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store interfaces

// ListingStore persists listings and owns the two atomic mutations the
// bidding engine is allowed to perform. Direct unconditional writes to
// the price or active flag are not part of the contract.
type ListingStore interface {
	Create(ctx context.Context, listing *Listing) error
	Get(ctx context.Context, listingID string) (*Listing, error)
	ListActive(ctx context.Context) ([]*Listing, error)
	ListExpired(ctx context.Context, before time.Time) ([]*Listing, error)

	// CompareAndSetPrice updates current_bid only if the stored value
	// still equals expected and the listing is still active. Returns
	// false on mismatch so the caller can detect the race.
	CompareAndSetPrice(ctx context.Context, listingID string, expected, next decimal.Decimal) (bool, error)

	// SetClosed atomically flips is_active to false and records the
	// final price. Fails with ErrAlreadyClosed if already inactive.
	SetClosed(ctx context.Context, listingID string, finalPrice decimal.Decimal) error
}

type BidStore interface {
	Append(ctx context.Context, bid *Bid) error
	ListByListing(ctx context.Context, listingID string) ([]*Bid, error)

	// HighestBid returns the bid with the greatest amount, which by the
	// strictly-increasing invariant is also the most recent one. Fails
	// with ErrNoBids when the listing was never bid on.
	HighestBid(ctx context.Context, listingID string) (*Bid, error)
}

type WatchlistStore interface {
	Add(ctx context.Context, userID, listingID string) error
	Remove(ctx context.Context, userID, listingID string) error
	ListByUser(ctx context.Context, userID string) ([]*Listing, error)
}

type CommentStore interface {
	Add(ctx context.Context, comment *Comment) error
	ListByListing(ctx context.Context, listingID string) ([]*Comment, error)
}

// Event interfaces
type EventPublisher interface {
	PublishBidEvent(ctx context.Context, event *BidEvent) error
}

type EventSubscriber interface {
	SubscribeToBidEvents(ctx context.Context, handler EventHandler) error
}

type EventHandler func(event *BidEvent) error

// Notification interfaces
type ListingBroadcaster interface {
	BroadcastToListing(ctx context.Context, listingID string, message interface{}) error
}

// Leader election interface
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}

// WebSocket interfaces
type WebSocketConnection interface {
	Send(message interface{}) error
	Close() error
	UserID() string
	ListingID() string
}

type ConnectionManager interface {
	RegisterConnection(userID, listingID string, conn WebSocketConnection) error
	UnregisterConnection(userID, listingID string) error
	GetConnectionsForListing(listingID string) []WebSocketConnection
	BroadcastToListing(listingID string, message interface{}) error
	CloseAndUnregisterConnections(listingID string) error
}
