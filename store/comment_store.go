package store

import (
	"context"
	"database/sql"
	"fmt"

	"quizfunnel/api/models"
)

type CommentStore struct {
	db *sql.DB
}

func NewCommentStore(db *sql.DB) *CommentStore {
	return &CommentStore{db: db}
}

func (s *CommentStore) InsertComment(ctx context.Context, c *models.Comment) error {
	query := `
		INSERT INTO comments (session_token, name, text, product, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := s.db.QueryRowContext(ctx, query, c.SessionToken, c.Name, c.Text, c.Product, c.CreatedAt).Scan(&c.ID); err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

func (s *CommentStore) ListComments(ctx context.Context, f models.Filter) ([]models.Comment, error) {
	w := filterWhere(f, "created_at", "product", "")
	query := `SELECT id, session_token, name, text, product, created_at FROM comments` + w.String() +
		` ORDER BY created_at DESC` + page(w, f, defaultListLimit)

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.SessionToken, &c.Name, &c.Text, &c.Product, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}
	return comments, nil
}
