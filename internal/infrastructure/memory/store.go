package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/haopham98/commerce/internal/domain"

	"github.com/shopspring/decimal"
)

// Store is a concurrency-safe in-memory implementation of the listing,
// bid, watchlist and comment stores. It backs unit tests and local
// development without MySQL.
type Store struct {
	mu       sync.RWMutex
	listings map[string]*domain.Listing
	bids     map[string][]*domain.Bid // key: listingID
	watching map[string][]string      // key: userID -> listingIDs
	comments map[string][]*domain.Comment
}

func NewStore() *Store {
	return &Store{
		listings: make(map[string]*domain.Listing),
		bids:     make(map[string][]*domain.Bid),
		watching: make(map[string][]string),
		comments: make(map[string][]*domain.Comment),
	}
}

func (s *Store) Create(ctx context.Context, listing *domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *listing
	s.listings[listing.ID] = &copied
	return nil
}

func (s *Store) Get(ctx context.Context, listingID string) (*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	listing, ok := s.listings[listingID]
	if !ok {
		return nil, fmt.Errorf("get listing %s: %w", listingID, domain.ErrNotFound)
	}

	copied := *listing
	return &copied, nil
}

func (s *Store) ListActive(ctx context.Context) ([]*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var listings []*domain.Listing
	for _, listing := range s.listings {
		if listing.IsActive {
			copied := *listing
			listings = append(listings, &copied)
		}
	}

	sort.Slice(listings, func(i, j int) bool {
		return listings[i].CreatedAt.Before(listings[j].CreatedAt)
	})
	return listings, nil
}

func (s *Store) ListExpired(ctx context.Context, before time.Time) ([]*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var listings []*domain.Listing
	for _, listing := range s.listings {
		if listing.IsActive && listing.EndDate != nil && !listing.EndDate.After(before) {
			copied := *listing
			listings = append(listings, &copied)
		}
	}

	sort.Slice(listings, func(i, j int) bool {
		return listings[i].EndDate.Before(*listings[j].EndDate)
	})
	return listings, nil
}

func (s *Store) CompareAndSetPrice(ctx context.Context, listingID string, expected, next decimal.Decimal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, ok := s.listings[listingID]
	if !ok {
		return false, fmt.Errorf("compare-and-set listing %s: %w", listingID, domain.ErrNotFound)
	}

	if !listing.IsActive || !listing.CurrentBid.Equal(expected) {
		return false, nil
	}

	listing.CurrentBid = next
	listing.UpdatedAt = time.Now()
	return true, nil
}

func (s *Store) SetClosed(ctx context.Context, listingID string, finalPrice decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, ok := s.listings[listingID]
	if !ok {
		return fmt.Errorf("close listing %s: %w", listingID, domain.ErrNotFound)
	}

	if !listing.IsActive {
		return fmt.Errorf("close listing %s: %w", listingID, domain.ErrAlreadyClosed)
	}

	listing.IsActive = false
	listing.WonPrice = finalPrice
	listing.UpdatedAt = time.Now()
	return nil
}

func (s *Store) Append(ctx context.Context, bid *domain.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listings[bid.ListingID]; !ok {
		return fmt.Errorf("append bid for listing %s: %w", bid.ListingID, domain.ErrNotFound)
	}

	copied := *bid
	s.bids[bid.ListingID] = append(s.bids[bid.ListingID], &copied)
	return nil
}

func (s *Store) ListByListing(ctx context.Context, listingID string) ([]*domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bids := s.bids[listingID]
	out := make([]*domain.Bid, 0, len(bids))
	for _, bid := range bids {
		copied := *bid
		out = append(out, &copied)
	}
	return out, nil
}

func (s *Store) HighestBid(ctx context.Context, listingID string) (*domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bids := s.bids[listingID]
	if len(bids) == 0 {
		return nil, fmt.Errorf("highest bid for listing %s: %w", listingID, domain.ErrNoBids)
	}

	highest := bids[0]
	for _, bid := range bids[1:] {
		if bid.Amount.GreaterThan(highest.Amount) {
			highest = bid
		}
	}

	copied := *highest
	return &copied, nil
}

func (s *Store) AddWatch(ctx context.Context, userID, listingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listings[listingID]; !ok {
		return fmt.Errorf("watch listing %s: %w", listingID, domain.ErrNotFound)
	}

	for _, id := range s.watching[userID] {
		if id == listingID {
			return fmt.Errorf("watch listing %s: %w", listingID, domain.ErrAlreadyWatched)
		}
	}

	s.watching[userID] = append(s.watching[userID], listingID)
	return nil
}

func (s *Store) RemoveWatch(ctx context.Context, userID, listingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.watching[userID]
	for i, id := range ids {
		if id == listingID {
			s.watching[userID] = append(ids[:i], ids[i+1:]...)
			return nil
		}
	}

	return fmt.Errorf("unwatch listing %s: %w", listingID, domain.ErrNotFound)
}

func (s *Store) WatchedByUser(ctx context.Context, userID string) ([]*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.watching[userID]
	listings := make([]*domain.Listing, 0, len(ids))
	for _, id := range ids {
		if listing, ok := s.listings[id]; ok {
			copied := *listing
			listings = append(listings, &copied)
		}
	}
	return listings, nil
}

func (s *Store) AddComment(ctx context.Context, comment *domain.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listings[comment.ListingID]; !ok {
		return fmt.Errorf("comment on listing %s: %w", comment.ListingID, domain.ErrNotFound)
	}

	copied := *comment
	s.comments[comment.ListingID] = append(s.comments[comment.ListingID], &copied)
	return nil
}

func (s *Store) CommentsByListing(ctx context.Context, listingID string) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comments := s.comments[listingID]
	out := make([]*domain.Comment, 0, len(comments))
	for _, comment := range comments {
		copied := *comment
		out = append(out, &copied)
	}
	return out, nil
}

// Watchlist and Comments adapt the Store to the narrower domain
// interfaces without the method name clash on Add/Remove.
type Watchlist struct{ *Store }

func (w Watchlist) Add(ctx context.Context, userID, listingID string) error {
	return w.AddWatch(ctx, userID, listingID)
}

func (w Watchlist) Remove(ctx context.Context, userID, listingID string) error {
	return w.RemoveWatch(ctx, userID, listingID)
}

func (w Watchlist) ListByUser(ctx context.Context, userID string) ([]*domain.Listing, error) {
	return w.WatchedByUser(ctx, userID)
}

type Comments struct{ *Store }

func (c Comments) Add(ctx context.Context, comment *domain.Comment) error {
	return c.AddComment(ctx, comment)
}

func (c Comments) ListByListing(ctx context.Context, listingID string) ([]*domain.Comment, error) {
	return c.CommentsByListing(ctx, listingID)
}
