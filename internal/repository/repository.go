// Package repository implements Postgres persistence for posts,
// scheduled posts, recurring rules, and users. It is the only package
// that speaks SQL; everything above it works with domain types.
package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository bundles the persistence operations over a shared pool.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a Repository over the given pool.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}
