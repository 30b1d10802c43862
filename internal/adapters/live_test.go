package adapters

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/TFMV/reconcile/pkg/core"
	"github.com/stretchr/testify/require"
)

// TestPostgresConnectivity runs against a live server when RECONCILE_TEST_POSTGRES_DSN
// is set, e.g. "postgres://user:pass@{server}/{database}?sslmode=disable".
func TestPostgresConnectivity(t *testing.T) {
	dsn := os.Getenv("RECONCILE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RECONCILE_TEST_POSTGRES_DSN not set")
	}
	ds := core.DataSource{
		Label:    "Live",
		Server:   os.Getenv("RECONCILE_TEST_POSTGRES_SERVER"),
		Database: os.Getenv("RECONCILE_TEST_POSTGRES_DATABASE"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := NewSQLPool("postgres", dsn, nil)
	require.NoError(t, err)
	defer pool.Close()

	db, err := pool.DB(ctx, ds)
	require.NoError(t, err)
	require.NoError(t, db.PingContext(ctx))
}
