package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/haopham98/commerce/internal/domain"
)

type MySQLBidStore struct {
	db *sql.DB
}

func NewMySQLBidStore(db *sql.DB) *MySQLBidStore {
	return &MySQLBidStore{db: db}
}

func (s *MySQLBidStore) Append(ctx context.Context, bid *domain.Bid) error {
	query := `
        INSERT INTO bids (id, listing_id, bidder_id, amount, created_at)
        VALUES (?, ?, ?, ?, ?)
    `
	_, err := s.db.ExecContext(ctx, query,
		bid.ID, bid.ListingID, bid.BidderID, bid.Amount, bid.CreatedAt)
	return err
}

func (s *MySQLBidStore) ListByListing(ctx context.Context, listingID string) ([]*domain.Bid, error) {
	query := `
        SELECT id, listing_id, bidder_id, amount, created_at
        FROM bids WHERE listing_id = ?
        ORDER BY created_at ASC, id ASC
    `

	rows, err := s.db.QueryContext(ctx, query, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		var bid domain.Bid
		err := rows.Scan(&bid.ID, &bid.ListingID, &bid.BidderID,
			&bid.Amount, &bid.CreatedAt)
		if err != nil {
			return nil, err
		}
		bids = append(bids, &bid)
	}

	return bids, rows.Err()
}

func (s *MySQLBidStore) HighestBid(ctx context.Context, listingID string) (*domain.Bid, error) {
	query := `
        SELECT id, listing_id, bidder_id, amount, created_at
        FROM bids WHERE listing_id = ?
        ORDER BY amount DESC LIMIT 1
    `

	var bid domain.Bid
	err := s.db.QueryRowContext(ctx, query, listingID).Scan(
		&bid.ID, &bid.ListingID, &bid.BidderID, &bid.Amount, &bid.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("highest bid for listing %s: %w", listingID, domain.ErrNoBids)
		}
		return nil, err
	}

	return &bid, nil
}
