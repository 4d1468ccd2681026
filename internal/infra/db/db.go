package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Pool sizes a *sql.DB. Zero fields fall back to the defaults below.
type Pool struct {
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	PingTimeout     time.Duration `yaml:"ping_timeout"`
}

func (p Pool) withDefaults() Pool {
	if p.MaxOpenConns <= 0 {
		p.MaxOpenConns = 25
	}
	if p.MaxIdleConns <= 0 {
		p.MaxIdleConns = 10
	}
	if p.ConnMaxLifetime <= 0 {
		p.ConnMaxLifetime = 30 * time.Minute
	}
	if p.PingTimeout <= 0 {
		p.PingTimeout = 5 * time.Second
	}
	return p
}

// Open opens driver with dsn, sizes the pool and pings once.
func Open(ctx context.Context, driver, dsn string, pool Pool) (*sql.DB, error) {
	pool = pool.withDefaults()
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: open", driver)
	}
	conn.SetMaxOpenConns(pool.MaxOpenConns)
	conn.SetMaxIdleConns(pool.MaxIdleConns)
	conn.SetConnMaxLifetime(pool.ConnMaxLifetime)

	// test ping
	pingCtx, cancel := context.WithTimeout(ctx, pool.PingTimeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, eris.Wrapf(err, "%s: ping", driver)
	}
	return conn, nil
}

// Migrate applies an embedded schema statement by statement. Every statement is
// expected to be idempotent (IF NOT EXISTS).
func Migrate(ctx context.Context, conn *sql.DB, schema string) error {
	stmts := Statements(schema)
	for i, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "migrate: statement %d", i+1)
		}
	}
	zap.L().Info("schema applied", zap.Int("statements", len(stmts)))
	return nil
}

// Statements splits a schema on semicolons that end a line, skipping comment
// lines and blanks.
func Statements(schema string) []string {
	var out []string
	var cur strings.Builder
	for _, line := range strings.Split(schema, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		cur.WriteString(line)
		cur.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
		}
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" {
		out = append(out, rest)
	}
	return out
}
