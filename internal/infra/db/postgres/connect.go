package postgres

import (
	"context"
	"database/sql"
	_ "embed"

	_ "github.com/lib/pq"

	"github.com/bryanwahyu/propvest/internal/infra/db"
)

//go:embed schema.sql
var Schema string

func Connect(ctx context.Context, dsn string, pool db.Pool) (*sql.DB, error) {
	return db.Open(ctx, "postgres", dsn, pool)
}

// Migrate creates the tables and indexes if they do not exist yet.
func Migrate(ctx context.Context, conn *sql.DB) error {
	return db.Migrate(ctx, conn, Schema)
}
