package mysql

import (
	"context"
	"database/sql"

	"github.com/haopham98/commerce/internal/domain"
)

type MySQLCommentStore struct {
	db *sql.DB
}

func NewMySQLCommentStore(db *sql.DB) *MySQLCommentStore {
	return &MySQLCommentStore{db: db}
}

func (s *MySQLCommentStore) Add(ctx context.Context, comment *domain.Comment) error {
	query := `
        INSERT INTO comments (id, listing_id, user_id, content, created_at)
        VALUES (?, ?, ?, ?, ?)
    `
	_, err := s.db.ExecContext(ctx, query,
		comment.ID, comment.ListingID, comment.UserID,
		comment.Content, comment.CreatedAt)
	return err
}

func (s *MySQLCommentStore) ListByListing(ctx context.Context, listingID string) ([]*domain.Comment, error) {
	query := `
        SELECT id, listing_id, user_id, content, created_at
        FROM comments WHERE listing_id = ?
        ORDER BY created_at ASC
    `

	rows, err := s.db.QueryContext(ctx, query, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []*domain.Comment
	for rows.Next() {
		var comment domain.Comment
		err := rows.Scan(&comment.ID, &comment.ListingID, &comment.UserID,
			&comment.Content, &comment.CreatedAt)
		if err != nil {
			return nil, err
		}
		comments = append(comments, &comment)
	}

	return comments, rows.Err()
}
