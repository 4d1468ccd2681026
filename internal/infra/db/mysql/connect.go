package mysql

import (
	"context"
	"database/sql"
	_ "embed"

	drv "github.com/go-sql-driver/mysql"
	"github.com/rotisserie/eris"

	"github.com/bryanwahyu/propvest/internal/infra/db"
)

//go:embed schema.sql
var Schema string

// Connect opens the pool. parseTime is always forced on so DATETIME columns scan
// into time.Time.
func Connect(ctx context.Context, dsn string, pool db.Pool) (*sql.DB, error) {
	dsn, err := normalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	return db.Open(ctx, "mysql", dsn, pool)
}

func normalizeDSN(dsn string) (string, error) {
	cfg, err := drv.ParseDSN(dsn)
	if err != nil {
		return "", eris.Wrap(err, "mysql: parse dsn")
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func Migrate(ctx context.Context, conn *sql.DB) error {
	return db.Migrate(ctx, conn, Schema)
}
