package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/haopham98/commerce/internal/domain"
	"github.com/haopham98/commerce/internal/infrastructure/memory"
	"github.com/haopham98/commerce/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []*domain.BidEvent
}

func (p *capturePublisher) PublishBidEvent(_ context.Context, event *domain.BidEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) byType(t domain.BidEventType) []*domain.BidEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*domain.BidEvent
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newTestEngine(t *testing.T) (*BiddingEngine, *memory.Store, *capturePublisher) {
	t.Helper()
	store := memory.NewStore()
	pub := &capturePublisher{}
	return NewBiddingEngine(store, store, pub, logger.New()), store, pub
}

func seedListing(t *testing.T, store *memory.Store, ownerID string, startingBid string) *domain.Listing {
	t.Helper()
	price := decimal.RequireFromString(startingBid)
	now := time.Now().UTC()
	listing := &domain.Listing{
		ID:          "listing-test-" + startingBid + "-" + t.Name(),
		Title:       "vintage camera",
		StartingBid: price,
		CurrentBid:  price,
		IsActive:    true,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, store.Create(context.Background(), listing))
	return listing
}

func TestBiddingEngine_PlaceBid(t *testing.T) {
	tests := []struct {
		name          string
		amount        string
		setup         func(t *testing.T, engine *BiddingEngine, listing *domain.Listing)
		expectedError error
	}{
		{
			name:   "valid_first_bid",
			amount: "150",
		},
		{
			name:          "below_starting_bid",
			amount:        "80",
			expectedError: domain.ErrBidTooLow,
		},
		{
			name:          "equal_to_current_bid",
			amount:        "100",
			expectedError: domain.ErrBidTooLow,
		},
		{
			name:          "malformed_amount",
			amount:        "not-a-number",
			expectedError: domain.ErrInvalidAmount,
		},
		{
			name:          "zero_amount",
			amount:        "0",
			expectedError: domain.ErrInvalidAmount,
		},
		{
			name:          "negative_amount",
			amount:        "-50",
			expectedError: domain.ErrInvalidAmount,
		},
		{
			name:   "closed_listing",
			amount: "150",
			setup: func(t *testing.T, engine *BiddingEngine, listing *domain.Listing) {
				_, err := engine.Close(context.Background(), listing.ID, listing.OwnerID)
				require.NoError(t, err)
			},
			expectedError: domain.ErrAuctionClosed,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			engine, store, _ := newTestEngine(t)
			listing := seedListing(t, store, "owner1", "100")

			if tc.setup != nil {
				tc.setup(t, engine, listing)
			}

			result, err := engine.PlaceBid(context.Background(), listing.ID, "bidder1", tc.amount)

			if tc.expectedError != nil {
				require.Error(t, err)
				require.True(t, errors.Is(err, tc.expectedError),
					"expected error: %v, got: %v", tc.expectedError, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, "bidder1", result.Bid.BidderID)
			require.True(t, result.Listing.CurrentBid.Equal(result.Bid.Amount))

			stored, err := store.Get(context.Background(), listing.ID)
			require.NoError(t, err)
			require.True(t, stored.CurrentBid.Equal(result.Bid.Amount))
		})
	}
}

func TestBiddingEngine_PlaceBid_UnknownListing(t *testing.T) {
	t.Parallel()

	engine, _, _ := newTestEngine(t)

	_, err := engine.PlaceBid(context.Background(), "listing-missing", "bidder1", "150")
	require.True(t, errors.Is(err, domain.ErrNotFound))
}

// Bids must advance the price strictly: 80 on a 100 start is rejected,
// 150 is accepted, a second 150 is rejected with the current price.
func TestBiddingEngine_PlaceBid_StrictlyIncreasing(t *testing.T) {
	t.Parallel()

	engine, store, _ := newTestEngine(t)
	listing := seedListing(t, store, "owner1", "100")
	ctx := context.Background()

	_, err := engine.PlaceBid(ctx, listing.ID, "bidder1", "80")
	require.True(t, errors.Is(err, domain.ErrBidTooLow))

	result, err := engine.PlaceBid(ctx, listing.ID, "bidder1", "150")
	require.NoError(t, err)
	require.True(t, result.Listing.CurrentBid.Equal(decimal.RequireFromString("150")))

	_, err = engine.PlaceBid(ctx, listing.ID, "bidder2", "150")
	require.True(t, errors.Is(err, domain.ErrBidTooLow))

	var tooLow *domain.BidTooLowError
	require.True(t, errors.As(err, &tooLow))
	require.True(t, tooLow.CurrentBid.Equal(decimal.RequireFromString("150")))

	bids, err := store.ListByListing(ctx, listing.ID)
	require.NoError(t, err)
	require.Len(t, bids, 1)

	stored, err := store.Get(ctx, listing.ID)
	require.NoError(t, err)
	require.True(t, stored.CurrentBid.GreaterThanOrEqual(stored.StartingBid))
}

// racingListingStore injects a competing bid between the engine's read
// and its compare-and-set, forcing the stale-price code path.
type racingListingStore struct {
	*memory.Store
	raceOnce sync.Once
	raceBid  decimal.Decimal
}

func (s *racingListingStore) CompareAndSetPrice(ctx context.Context, listingID string, expected, next decimal.Decimal) (bool, error) {
	s.raceOnce.Do(func() {
		listing, err := s.Store.Get(ctx, listingID)
		if err != nil {
			return
		}
		s.Store.CompareAndSetPrice(ctx, listingID, listing.CurrentBid, s.raceBid)
	})
	return s.Store.CompareAndSetPrice(ctx, listingID, expected, next)
}

// Two near-simultaneous bids of 200 and 201 against a current bid of
// 150: the 201 lands first, so the 200 must fail with the fresh price.
func TestBiddingEngine_PlaceBid_LosesRace(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	racing := &racingListingStore{Store: store, raceBid: decimal.RequireFromString("201")}
	engine := NewBiddingEngine(racing, store, &capturePublisher{}, logger.New())

	listing := seedListing(t, store, "owner1", "100")
	ctx := context.Background()

	_, err := engine.PlaceBid(ctx, listing.ID, "bidder1", "150")
	require.NoError(t, err)

	_, err = engine.PlaceBid(ctx, listing.ID, "bidder2", "200")
	require.True(t, errors.Is(err, domain.ErrBidTooLow))

	var tooLow *domain.BidTooLowError
	require.True(t, errors.As(err, &tooLow))
	require.True(t, tooLow.CurrentBid.Equal(decimal.RequireFromString("201")),
		"rejection must reference the winning price, got %s", tooLow.CurrentBid)

	stored, err := store.Get(ctx, listing.ID)
	require.NoError(t, err)
	require.True(t, stored.CurrentBid.Equal(decimal.RequireFromString("201")))
}

// A lost race against a lower competing bid is retried once and wins.
func TestBiddingEngine_PlaceBid_RetriesAndWins(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	racing := &racingListingStore{Store: store, raceBid: decimal.RequireFromString("180")}
	engine := NewBiddingEngine(racing, store, &capturePublisher{}, logger.New())

	listing := seedListing(t, store, "owner1", "100")
	ctx := context.Background()

	result, err := engine.PlaceBid(ctx, listing.ID, "bidder1", "200")
	require.NoError(t, err)
	require.True(t, result.Listing.CurrentBid.Equal(decimal.RequireFromString("200")))
}

// alwaysLosingStore makes every compare-and-set lose while keeping the
// bid amount valid, draining the retry budget.
type alwaysLosingStore struct {
	*memory.Store
}

func (s *alwaysLosingStore) CompareAndSetPrice(ctx context.Context, listingID string, expected, next decimal.Decimal) (bool, error) {
	return false, nil
}

func TestBiddingEngine_PlaceBid_RetryBudgetExhausted(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	engine := NewBiddingEngine(&alwaysLosingStore{Store: store}, store, &capturePublisher{}, logger.New())

	listing := seedListing(t, store, "owner1", "100")

	_, err := engine.PlaceBid(context.Background(), listing.ID, "bidder1", "500")
	require.True(t, errors.Is(err, domain.ErrConcurrentUpdateExceeded))
}

func TestBiddingEngine_PlaceBid_ConcurrentBidders(t *testing.T) {
	t.Parallel()

	engine, store, _ := newTestEngine(t)
	listing := seedListing(t, store, "owner1", "100")
	ctx := context.Background()

	const bidders = 20
	var wg sync.WaitGroup
	accepted := make([]decimal.Decimal, bidders)
	var mu sync.Mutex
	var acceptedCount int

	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			amount := decimal.NewFromInt(int64(101 + n))
			result, err := engine.PlaceBid(ctx, listing.ID, "bidder", amount.String())
			if err != nil {
				return
			}
			mu.Lock()
			accepted[acceptedCount] = result.Bid.Amount
			acceptedCount++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	require.Greater(t, acceptedCount, 0, "at least one bid must land")

	stored, err := store.Get(ctx, listing.ID)
	require.NoError(t, err)
	require.True(t, stored.CurrentBid.GreaterThanOrEqual(stored.StartingBid))

	bids, err := store.ListByListing(ctx, listing.ID)
	require.NoError(t, err)
	require.Len(t, bids, acceptedCount)

	// The final price is the maximum accepted amount, and every
	// accepted amount beats the starting bid.
	max := stored.StartingBid
	for _, bid := range bids {
		require.True(t, bid.Amount.GreaterThan(stored.StartingBid))
		if bid.Amount.GreaterThan(max) {
			max = bid.Amount
		}
	}
	require.True(t, stored.CurrentBid.Equal(max))
}

func TestBiddingEngine_Close(t *testing.T) {
	t.Parallel()

	engine, store, pub := newTestEngine(t)
	listing := seedListing(t, store, "owner1", "100")
	ctx := context.Background()

	_, err := engine.PlaceBid(ctx, listing.ID, "bidder1", "150")
	require.NoError(t, err)
	_, err = engine.PlaceBid(ctx, listing.ID, "bidder2", "175")
	require.NoError(t, err)

	result, err := engine.Close(ctx, listing.ID, "owner1")
	require.NoError(t, err)
	require.False(t, result.Listing.IsActive)
	require.True(t, result.Listing.WonPrice.Equal(decimal.RequireFromString("175")))
	require.NotNil(t, result.Winner)
	require.Equal(t, "bidder2", result.Winner.BidderID)
	require.True(t, result.Winner.Amount.Equal(result.Listing.WonPrice))

	require.Len(t, pub.byType(domain.ListingClosed), 1)

	// Closed is terminal: no bids, no second close.
	_, err = engine.PlaceBid(ctx, listing.ID, "bidder3", "500")
	require.True(t, errors.Is(err, domain.ErrAuctionClosed))

	_, err = engine.Close(ctx, listing.ID, "owner1")
	require.True(t, errors.Is(err, domain.ErrAlreadyClosed))

	stored, err := store.Get(ctx, listing.ID)
	require.NoError(t, err)
	require.False(t, stored.IsActive)
	require.True(t, stored.WonPrice.Equal(decimal.RequireFromString("175")))
}

func TestBiddingEngine_Close_NotOwner(t *testing.T) {
	t.Parallel()

	engine, store, _ := newTestEngine(t)
	listing := seedListing(t, store, "owner1", "100")
	ctx := context.Background()

	_, err := engine.Close(ctx, listing.ID, "intruder")
	require.True(t, errors.Is(err, domain.ErrNotOwner))

	stored, err := store.Get(ctx, listing.ID)
	require.NoError(t, err)
	require.True(t, stored.IsActive, "failed close must leave the listing untouched")
	require.True(t, stored.WonPrice.IsZero())
}

// Closing with zero bids reports the starting bid as the won price and
// no winner. Documented behavior, not a bug.
func TestBiddingEngine_Close_NoBids(t *testing.T) {
	t.Parallel()

	engine, store, _ := newTestEngine(t)
	listing := seedListing(t, store, "owner1", "100")
	ctx := context.Background()

	result, err := engine.Close(ctx, listing.ID, "owner1")
	require.NoError(t, err)
	require.True(t, result.Listing.WonPrice.Equal(listing.StartingBid))
	require.Nil(t, result.Winner)

	winner, err := engine.GetWinner(ctx, listing.ID)
	require.NoError(t, err)
	require.Nil(t, winner)
}

func TestBiddingEngine_Close_UnknownListing(t *testing.T) {
	t.Parallel()

	engine, _, _ := newTestEngine(t)

	_, err := engine.Close(context.Background(), "listing-missing", "owner1")
	require.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestBiddingEngine_GetWinner_AfterClose(t *testing.T) {
	t.Parallel()

	engine, store, _ := newTestEngine(t)
	listing := seedListing(t, store, "owner1", "100")
	ctx := context.Background()

	for i, amount := range []string{"110", "120", "130"} {
		bidder := []string{"bidder1", "bidder2", "bidder3"}[i]
		_, err := engine.PlaceBid(ctx, listing.ID, bidder, amount)
		require.NoError(t, err)
	}

	closed, err := engine.Close(ctx, listing.ID, "owner1")
	require.NoError(t, err)

	winner, err := engine.GetWinner(ctx, listing.ID)
	require.NoError(t, err)
	require.NotNil(t, winner)
	require.Equal(t, "bidder3", winner.BidderID)
	require.True(t, winner.Amount.Equal(closed.Listing.WonPrice))
}
