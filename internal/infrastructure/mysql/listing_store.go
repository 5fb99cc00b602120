package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/haopham98/commerce/internal/domain"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

type MySQLListingStore struct {
	db *sql.DB
}

func NewMySQLListingStore(db *sql.DB) *MySQLListingStore {
	return &MySQLListingStore{db: db}
}

func (s *MySQLListingStore) Create(ctx context.Context, listing *domain.Listing) error {
	query := `
        INSERT INTO listings (id, title, description, category, image_url,
            starting_bid, current_bid, won_price, is_active, end_date, owner_id,
            created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	var endDate sql.NullTime
	if listing.EndDate != nil {
		endDate = sql.NullTime{Time: *listing.EndDate, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		listing.ID, listing.Title, listing.Description, listing.Category,
		listing.ImageURL, listing.StartingBid, listing.CurrentBid,
		listing.WonPrice, listing.IsActive, endDate, listing.OwnerID,
		listing.CreatedAt, listing.UpdatedAt)
	return err
}

func (s *MySQLListingStore) Get(ctx context.Context, listingID string) (*domain.Listing, error) {
	query := `
        SELECT id, title, description, category, image_url, starting_bid,
            current_bid, won_price, is_active, end_date, owner_id, created_at, updated_at
        FROM listings WHERE id = ?
    `

	listing, err := scanListing(s.db.QueryRowContext(ctx, query, listingID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get listing %s: %w", listingID, domain.ErrNotFound)
		}
		return nil, err
	}

	return listing, nil
}

func (s *MySQLListingStore) ListActive(ctx context.Context) ([]*domain.Listing, error) {
	query := `
        SELECT id, title, description, category, image_url, starting_bid,
            current_bid, won_price, is_active, end_date, owner_id, created_at, updated_at
        FROM listings WHERE is_active = 1
        ORDER BY created_at ASC
    `
	return s.queryListings(ctx, query)
}

func (s *MySQLListingStore) ListExpired(ctx context.Context, before time.Time) ([]*domain.Listing, error) {
	query := `
        SELECT id, title, description, category, image_url, starting_bid,
            current_bid, won_price, is_active, end_date, owner_id, created_at, updated_at
        FROM listings WHERE is_active = 1 AND end_date IS NOT NULL AND end_date <= ?
        ORDER BY end_date ASC
    `
	return s.queryListings(ctx, query, before)
}

// CompareAndSetPrice commits a price advance as a single conditional
// UPDATE. The is_active guard makes a bid racing with a close lose.
func (s *MySQLListingStore) CompareAndSetPrice(ctx context.Context, listingID string, expected, next decimal.Decimal) (bool, error) {
	query := `
        UPDATE listings SET current_bid = ?, updated_at = ?
        WHERE id = ? AND is_active = 1 AND current_bid = ?
    `
	result, err := s.db.ExecContext(ctx, query, next, time.Now(), listingID, expected)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

func (s *MySQLListingStore) SetClosed(ctx context.Context, listingID string, finalPrice decimal.Decimal) error {
	query := `
        UPDATE listings SET is_active = 0, won_price = ?, updated_at = ?
        WHERE id = ? AND is_active = 1
    `
	result, err := s.db.ExecContext(ctx, query, finalPrice, time.Now(), listingID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		// Distinguish a missing listing from a double close.
		if _, err := s.Get(ctx, listingID); err != nil {
			return err
		}
		return fmt.Errorf("close listing %s: %w", listingID, domain.ErrAlreadyClosed)
	}

	return nil
}

func (s *MySQLListingStore) queryListings(ctx context.Context, query string, args ...interface{}) ([]*domain.Listing, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []*domain.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}

	return listings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanListing(row rowScanner) (*domain.Listing, error) {
	var listing domain.Listing
	var endDate sql.NullTime

	err := row.Scan(&listing.ID, &listing.Title, &listing.Description,
		&listing.Category, &listing.ImageURL, &listing.StartingBid,
		&listing.CurrentBid, &listing.WonPrice, &listing.IsActive,
		&endDate, &listing.OwnerID, &listing.CreatedAt, &listing.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if endDate.Valid {
		listing.EndDate = &endDate.Time
	}

	return &listing, nil
}
