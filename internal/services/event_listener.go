package services

import (
	"context"
	"fmt"

	"github.com/haopham98/commerce/internal/domain"
	"github.com/haopham98/commerce/pkg/logger"
)

// EventListener fans bid events out to websocket clients watching the
// affected listing.
type EventListener struct {
	broadcaster       domain.ListingBroadcaster
	connectionManager domain.ConnectionManager
	log               logger.Logger
}

func NewEventListener(connectionManager domain.ConnectionManager,
	broadcaster domain.ListingBroadcaster, log logger.Logger) *EventListener {
	return &EventListener{
		broadcaster:       broadcaster,
		connectionManager: connectionManager,
		log:               log,
	}
}

func (el *EventListener) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	el.log.Info("Starting event listener")
	return subscriber.SubscribeToBidEvents(ctx, el.handleBidEvent)
}

func (el *EventListener) handleBidEvent(event *domain.BidEvent) error {
	el.log.Debug("Handling bid event", "type", event.Type, "listing_id", event.ListingID)

	switch event.Type {
	case domain.BidAccepted:
		return el.handleBidAccepted(event)
	case domain.ListingClosed:
		return el.handleListingClosed(event)
	}

	return fmt.Errorf("unknown event type %q", event.Type)
}

func (el *EventListener) handleBidAccepted(event *domain.BidEvent) error {
	return el.broadcaster.BroadcastToListing(context.Background(), event.ListingID, map[string]interface{}{
		"type":        "bid_update",
		"current_bid": event.Amount.StringFixed(2),
		"bidder_id":   event.UserID,
		"timestamp":   event.Timestamp,
	})
}

func (el *EventListener) handleListingClosed(event *domain.BidEvent) error {
	if err := el.broadcaster.BroadcastToListing(context.Background(), event.ListingID, map[string]interface{}{
		"type":      "listing_closed",
		"won_price": event.Amount.StringFixed(2),
		"timestamp": event.Timestamp,
	}); err != nil {
		el.log.Error("Failed to broadcast close event", "error", err)
		return err
	}

	if err := el.connectionManager.CloseAndUnregisterConnections(event.ListingID); err != nil {
		el.log.Error("Failed to finalize connections for listing",
			"listing_id", event.ListingID, "error", err)
		return err
	}
	return nil
}
