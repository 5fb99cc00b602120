package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/haopham98/commerce/internal/domain"

	"github.com/go-sql-driver/mysql"
)

const mysqlDuplicateEntry = 1062

type MySQLWatchlistStore struct {
	db *sql.DB
}

func NewMySQLWatchlistStore(db *sql.DB) *MySQLWatchlistStore {
	return &MySQLWatchlistStore{db: db}
}

func (s *MySQLWatchlistStore) Add(ctx context.Context, userID, listingID string) error {
	query := `
        INSERT INTO watchlist_entries (user_id, listing_id, created_at)
        VALUES (?, ?, ?)
    `
	_, err := s.db.ExecContext(ctx, query, userID, listingID, time.Now())
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return fmt.Errorf("watch listing %s: %w", listingID, domain.ErrAlreadyWatched)
		}
		return err
	}
	return nil
}

func (s *MySQLWatchlistStore) Remove(ctx context.Context, userID, listingID string) error {
	query := `DELETE FROM watchlist_entries WHERE user_id = ? AND listing_id = ?`

	result, err := s.db.ExecContext(ctx, query, userID, listingID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("unwatch listing %s: %w", listingID, domain.ErrNotFound)
	}

	return nil
}

func (s *MySQLWatchlistStore) ListByUser(ctx context.Context, userID string) ([]*domain.Listing, error) {
	query := `
        SELECT l.id, l.title, l.description, l.category, l.image_url, l.starting_bid,
            l.current_bid, l.won_price, l.is_active, l.end_date, l.owner_id,
            l.created_at, l.updated_at
        FROM watchlist_entries w
        JOIN listings l ON l.id = w.listing_id
        WHERE w.user_id = ?
        ORDER BY w.created_at ASC
    `

	rows, err := s.db.QueryContext(ctx, query, userID)
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
