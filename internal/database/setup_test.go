package database

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

// setupTestDB connects to the database named by TEST_DB_* and resets the
// schema. Tests that need Postgres are skipped when TEST_DB_HOST is
// unset so the suite stays runnable without infrastructure.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping database test")
	}

	port := 5432
	if v := os.Getenv("TEST_DB_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		require.NoError(t, err)
		port = p
	}

	ctx := context.Background()
	db, err := New(ctx, Config{
		Host:     host,
		Port:     port,
		User:     envOr("TEST_DB_USER", "postgres"),
		Password: envOr("TEST_DB_PASSWORD", "postgres"),
		Database: envOr("TEST_DB_NAME", "reviews_test"),
	})
	require.NoError(t, err)

	require.NoError(t, NewReviewStore(db).CreateSchema(ctx))
	_, err = db.Exec(ctx, `TRUNCATE reviews, harvest_runs, outbox_event`)
	require.NoError(t, err)

	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
