package services

import (
	"context"
	"errors"
	"time"

	"github.com/haopham98/commerce/internal/domain"
	"github.com/haopham98/commerce/pkg/logger"
	"github.com/haopham98/commerce/pkg/utils"

	"github.com/shopspring/decimal"
)

// maxBidAttempts bounds the compare-and-set retry loop: validate against
// the last-known price, try to commit, re-read on a lost race, try once
// more. Without the retry two near-simultaneous bids could both be
// accepted against the same stale price.
const maxBidAttempts = 2

// BiddingEngine enforces the bidding and closing rules. It is the only
// writer of bid records and the only caller of the listing store
// mutators.
type BiddingEngine struct {
	listings domain.ListingStore
	bids     domain.BidStore
	events   domain.EventPublisher
	log      logger.Logger
}

func NewBiddingEngine(
	listings domain.ListingStore,
	bids domain.BidStore,
	events domain.EventPublisher,
	log logger.Logger,
) *BiddingEngine {
	return &BiddingEngine{
		listings: listings,
		bids:     bids,
		events:   events,
		log:      log,
	}
}

type BidResult struct {
	Listing *domain.Listing `json:"listing"`
	Bid     *domain.Bid     `json:"bid"`
}

type CloseResult struct {
	Listing *domain.Listing `json:"listing"`
	Winner  *domain.Winner  `json:"winner,omitempty"`
}

// PlaceBid validates and commits a bid. The amount arrives as the raw
// decimal string from the request so precondition order holds: listing
// existence and active state are checked before the amount is parsed.
func (e *BiddingEngine) PlaceBid(ctx context.Context, listingID, bidderID, amount string) (*BidResult, error) {
	listing, err := e.listings.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}

	if !listing.IsActive {
		return nil, domain.ErrAuctionClosed
	}

	amt, err := decimal.NewFromString(amount)
	if err != nil || !amt.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	current := listing.CurrentBid
	for attempt := 0; attempt < maxBidAttempts; attempt++ {
		if !amt.GreaterThan(current) {
			return nil, &domain.BidTooLowError{CurrentBid: current}
		}

		committed, err := e.listings.CompareAndSetPrice(ctx, listingID, current, amt)
		if err != nil {
			return nil, err
		}

		if committed {
			return e.recordBid(ctx, listing, bidderID, amt)
		}

		// Lost the race: another bid (or a close) landed first.
		fresh, err := e.listings.Get(ctx, listingID)
		if err != nil {
			return nil, err
		}
		if !fresh.IsActive {
			return nil, domain.ErrAuctionClosed
		}
		current = fresh.CurrentBid

		e.log.Debug("Bid lost price race, retrying",
			"listing_id", listingID, "bidder_id", bidderID,
			"amount", amt.StringFixed(2), "current_bid", current.StringFixed(2))
	}

	if !amt.GreaterThan(current) {
		return nil, &domain.BidTooLowError{CurrentBid: current}
	}
	return nil, domain.ErrConcurrentUpdateExceeded
}

func (e *BiddingEngine) recordBid(ctx context.Context, listing *domain.Listing, bidderID string, amount decimal.Decimal) (*BidResult, error) {
	bid := &domain.Bid{
		ID:        utils.GenerateID("bid"),
		ListingID: listing.ID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}

	if err := e.bids.Append(ctx, bid); err != nil {
		return nil, err
	}

	listing.CurrentBid = amount

	e.publish(ctx, &domain.BidEvent{
		Type:      domain.BidAccepted,
		ListingID: listing.ID,
		UserID:    bidderID,
		Amount:    amount,
		Timestamp: bid.CreatedAt,
	})

	e.log.Info("Bid accepted", "listing_id", listing.ID,
		"bidder_id", bidderID, "amount", amount.StringFixed(2))

	return &BidResult{Listing: listing, Bid: bid}, nil
}

// Close ends bidding on a listing. Only the owner may close. The won
// price is the current bid even when no bids were ever placed, in which
// case it equals the starting bid and there is no winner.
func (e *BiddingEngine) Close(ctx context.Context, listingID, requesterID string) (*CloseResult, error) {
	listing, err := e.listings.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}

	if !listing.IsActive {
		return nil, domain.ErrAlreadyClosed
	}

	if listing.OwnerID != requesterID {
		return nil, domain.ErrNotOwner
	}

	if err := e.listings.SetClosed(ctx, listingID, listing.CurrentBid); err != nil {
		return nil, err
	}

	listing.IsActive = false
	listing.WonPrice = listing.CurrentBid

	winner, err := e.GetWinner(ctx, listingID)
	if err != nil {
		return nil, err
	}

	e.publish(ctx, &domain.BidEvent{
		Type:      domain.ListingClosed,
		ListingID: listingID,
		UserID:    requesterID,
		Amount:    listing.WonPrice,
		Timestamp: time.Now().UTC(),
	})

	e.log.Info("Listing closed", "listing_id", listingID,
		"won_price", listing.WonPrice.StringFixed(2))

	return &CloseResult{Listing: listing, Winner: winner}, nil
}

// GetWinner returns the bidder and amount of the highest accepted bid,
// or nil when the listing was never bid on. Since amounts are strictly
// increasing the highest bid is also the most recent one.
func (e *BiddingEngine) GetWinner(ctx context.Context, listingID string) (*domain.Winner, error) {
	if _, err := e.listings.Get(ctx, listingID); err != nil {
		return nil, err
	}

	highest, err := e.bids.HighestBid(ctx, listingID)
	if err != nil {
		if errors.Is(err, domain.ErrNoBids) {
			return nil, nil
		}
		return nil, err
	}

	return &domain.Winner{
		BidderID: highest.BidderID,
		Amount:   highest.Amount,
	}, nil
}

func (e *BiddingEngine) publish(ctx context.Context, event *domain.BidEvent) {
	if e.events == nil {
		return
	}
	if err := e.events.PublishBidEvent(ctx, event); err != nil {
		e.log.Error("Failed to publish bid event",
			"listing_id", event.ListingID, "type", event.Type, "error", err)
	}
}
