package services

import (
	"context"
	"strings"
	"time"

	"github.com/haopham98/commerce/internal/domain"
	"github.com/haopham98/commerce/pkg/logger"
	"github.com/haopham98/commerce/pkg/utils"

	"github.com/shopspring/decimal"
)

const maxCommentLength = 500

const defaultImageURL = "https://placehold.co/600x400"

// ListingService owns listing creation, browsing, watchlists and
// comments. Price and lifecycle mutations stay with the BiddingEngine.
type ListingService struct {
	listings  domain.ListingStore
	bids      domain.BidStore
	watchlist domain.WatchlistStore
	comments  domain.CommentStore
	log       logger.Logger
}

func NewListingService(
	listings domain.ListingStore,
	bids domain.BidStore,
	watchlist domain.WatchlistStore,
	comments domain.CommentStore,
	log logger.Logger,
) *ListingService {
	return &ListingService{
		listings:  listings,
		bids:      bids,
		watchlist: watchlist,
		comments:  comments,
		log:       log,
	}
}

type CreateListingInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	ImageURL    string     `json:"image_url"`
	StartingBid string     `json:"starting_bid"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

type ListingDetail struct {
	Listing  *domain.Listing   `json:"listing"`
	Bids     []*domain.Bid     `json:"bids"`
	Comments []*domain.Comment `json:"comments"`
}

func (s *ListingService) CreateListing(ctx context.Context, ownerID string, input CreateListingInput) (*domain.Listing, error) {
	if strings.TrimSpace(input.Title) == "" || ownerID == "" {
		return nil, domain.ErrInvalidInput
	}

	startingBid, err := decimal.NewFromString(input.StartingBid)
	if err != nil || !startingBid.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	imageURL := input.ImageURL
	if imageURL == "" {
		imageURL = defaultImageURL
	}

	now := time.Now().UTC()
	listing := &domain.Listing{
		ID:          utils.GenerateID("listing"),
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		ImageURL:    imageURL,
		StartingBid: startingBid,
		CurrentBid:  startingBid,
		IsActive:    true,
		EndDate:     input.EndDate,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, err
	}

	s.log.Info("Listing created", "listing_id", listing.ID,
		"owner_id", ownerID, "starting_bid", startingBid.StringFixed(2))
	return listing, nil
}

func (s *ListingService) ListActive(ctx context.Context) ([]*domain.Listing, error) {
	return s.listings.ListActive(ctx)
}

func (s *ListingService) GetDetail(ctx context.Context, listingID string) (*ListingDetail, error) {
	listing, err := s.listings.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}

	bids, err := s.bids.ListByListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	comments, err := s.comments.ListByListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	return &ListingDetail{
		Listing:  listing,
		Bids:     bids,
		Comments: comments,
	}, nil
}

func (s *ListingService) Watch(ctx context.Context, userID, listingID string) error {
	if _, err := s.listings.Get(ctx, listingID); err != nil {
		return err
	}
	return s.watchlist.Add(ctx, userID, listingID)
}

func (s *ListingService) Unwatch(ctx context.Context, userID, listingID string) error {
	return s.watchlist.Remove(ctx, userID, listingID)
}

func (s *ListingService) Watchlist(ctx context.Context, userID string) ([]*domain.Listing, error) {
	return s.watchlist.ListByUser(ctx, userID)
}

func (s *ListingService) AddComment(ctx context.Context, userID, listingID, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" || len(content) > maxCommentLength {
		return nil, domain.ErrInvalidInput
	}

	if _, err := s.listings.Get(ctx, listingID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		ID:        utils.GenerateID("comment"),
		ListingID: listingID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.comments.Add(ctx, comment); err != nil {
		return nil, err
	}

	return comment, nil
}
