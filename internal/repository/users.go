package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Shivang0/linkedinai/internal/domain"
)

// GetUser fetches a user by ID. The publish pipeline calls this fresh on
// every attempt: account and subscription state must never be stale.
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, account_status, subscription_status, linkedin_member_id,
			linkedin_access_token, linkedin_token_expiry, created_at, updated_at
		FROM users WHERE id = $1`, id,
	).Scan(
		&u.ID, &u.Email, &u.AccountStatus, &u.SubscriptionStatus, &u.LinkedInMemberID,
		&u.LinkedInAccessToken, &u.LinkedInTokenExpiry, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}
