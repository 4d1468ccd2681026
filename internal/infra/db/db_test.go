package db

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schema = `
-- tables
CREATE TABLE IF NOT EXISTS a (
  id TEXT PRIMARY KEY
);

CREATE INDEX IF NOT EXISTS a_idx ON a (id);
`

func TestStatements(t *testing.T) {
	got := Statements(schema)
	require.Len(t, got, 2)
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS a (\n  id TEXT PRIMARY KEY\n);", got[0])
	assert.Equal(t, "CREATE INDEX IF NOT EXISTS a_idx ON a (id);", got[1])
}

func TestMigrate(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS a_idx").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Migrate(context.Background(), conn, schema))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolDefaults(t *testing.T) {
	p := Pool{MaxOpenConns: 4}.withDefaults()
	assert.Equal(t, 4, p.MaxOpenConns)
	assert.Equal(t, 10, p.MaxIdleConns)
	assert.NotZero(t, p.ConnMaxLifetime)
	assert.NotZero(t, p.PingTimeout)
}
