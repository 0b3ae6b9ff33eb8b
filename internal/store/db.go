package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool and *pgx.Conn every store in this
// package needs; callers choose pooling without this package caring.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Migrate executes Schema against db, creating every table and index this
// package uses if they do not already exist.
func Migrate(ctx context.Context, db DB) error {
	_, err := db.Exec(ctx, Schema)
	return err
}
