package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Store-level errors
var (
	ErrNotFound = errors.New("listing not found")
	ErrNoBids   = errors.New("no bids found for listing")
)

// Business rule errors. All of these are recoverable and surface to the
// calling layer as user-facing messages; only storage failures propagate
// undecorated.
var (
	ErrAuctionClosed            = errors.New("listing is closed for bidding")
	ErrInvalidAmount            = errors.New("invalid bid amount")
	ErrBidTooLow                = errors.New("bid amount too low")
	ErrNotOwner                 = errors.New("only the listing owner may close it")
	ErrAlreadyClosed            = errors.New("listing already closed")
	ErrConcurrentUpdateExceeded = errors.New("bid retry budget exhausted")
	ErrAlreadyWatched           = errors.New("listing already in watchlist")
	ErrInvalidInput             = errors.New("invalid input")
)

// BidTooLowError carries the current bid so the caller can redisplay it.
// It matches ErrBidTooLow under errors.Is.
type BidTooLowError struct {
	CurrentBid decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid amount too low, current bid is %s", e.CurrentBid.StringFixed(2))
}

func (e *BidTooLowError) Is(target error) bool {
	return target == ErrBidTooLow
}
