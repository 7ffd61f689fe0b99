package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Shivang0/linkedinai/internal/domain"
)

const postColumns = `id, user_id, content, status, linkedin_post_id, linkedin_post_url,
	failure_reason, media_keys, published_at, created_at, updated_at`

// CreatePost inserts a new post row.
func (r *Repository) CreatePost(ctx context.Context, p domain.Post) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO posts (id, user_id, content, status, media_keys, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.UserID, p.Content, p.Status, p.MediaKeys, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetPost fetches a post by ID.
func (r *Repository) GetPost(ctx context.Context, id uuid.UUID) (domain.Post, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
	return scanPost(row)
}

func scanPost(row pgx.Row) (domain.Post, error) {
	var p domain.Post
	err := row.Scan(
		&p.ID, &p.UserID, &p.Content, &p.Status, &p.LinkedInPostID, &p.LinkedInPostURL,
		&p.FailureReason, &p.MediaKeys, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Post{}, ErrNotFound
	}
	if err != nil {
		return domain.Post{}, err
	}
	return p, nil
}
