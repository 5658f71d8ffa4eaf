package migration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestApplyEmbeddedIsIdempotent(t *testing.T) {
	dsn := fmt.Sprintf("file:migration_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, Run(ctx, conn))
	require.NoError(t, ApplyEmbedded(ctx, conn))

	var version int64
	require.NoError(t, conn.Raw(`SELECT MAX(version) FROM schema_migrations`).Scan(&version).Error)
	require.Equal(t, int64(1), version)

	for _, table := range []string{"orders", "commissions", "payment_events", "ledger_entries", "audit_logs"} {
		require.True(t, conn.Migrator().HasTable(table), table)
	}
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("-- header\nCREATE TABLE a (id INT);\n\n  ;CREATE INDEX ix ON a (id);\n")
	require.Equal(t, []string{"CREATE TABLE a (id INT)", "CREATE INDEX ix ON a (id)"}, stmts)
}
