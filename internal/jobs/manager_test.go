package jobs

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coupang-review-harvester/internal/database"
	"coupang-review-harvester/internal/pipeline"
)

type stubRunner struct {
	result pipeline.Result
	err    error
	calls  int
}

func (s *stubRunner) Run(ctx context.Context, keyword string, pages int) (pipeline.Result, error) {
	s.calls++
	return s.result, s.err
}

func setupTestDB(t *testing.T) *database.DB {
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
	envOr := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	ctx := context.Background()
	db, err := database.New(ctx, database.Config{
		Host:     host,
		Port:     port,
		User:     envOr("TEST_DB_USER", "postgres"),
		Password: envOr("TEST_DB_PASSWORD", "postgres"),
		Database: envOr("TEST_DB_NAME", "reviews_test"),
	})
	require.NoError(t, err)

	require.NoError(t, database.NewReviewStore(db).CreateSchema(ctx))
	_, err = db.Exec(ctx, `TRUNCATE reviews, harvest_runs, outbox_event`)
	require.NoError(t, err)

	return db
}

func TestRunLifecycleCompleted(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	runner := &stubRunner{result: pipeline.Result{Collected: 42, Persisted: 42}}
	m := NewManager(db, runner, "", slog.Default())

	run, err := m.Create(ctx, "청소기", 2)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, run.Status)

	got, err := m.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, "청소기", got.Keyword)
	assert.Equal(t, 2, got.Pages)

	m.processNextRun(ctx)
	assert.Equal(t, 1, runner.calls)

	got, err = m.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 42, got.ReviewsCollected)
	assert.Equal(t, 42, got.ReviewsPersisted)
	assert.Empty(t, got.Error)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)

	// The completion event landed in the outbox within the same commit.
	pending, err := database.NewOutboxRepository(db).GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, EventTypeRunCompleted, pending[0].EventType)
	assert.Equal(t, run.ID.String(), pending[0].AggregateID)
}

func TestRunLifecycleFailed(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	runner := &stubRunner{err: errors.New("harvest failed: session lost")}
	m := NewManager(db, runner, "", slog.Default())

	run, err := m.Create(ctx, "가습기", 1)
	require.NoError(t, err)

	m.processNextRun(ctx)

	got, err := m.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Contains(t, got.Error, "session lost")

	pending, err := database.NewOutboxRepository(db).GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, EventTypeRunFailed, pending[0].EventType)
}

func TestRunsProcessedOldestFirst(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	runner := &stubRunner{}
	m := NewManager(db, runner, "", slog.Default())

	first, err := m.Create(ctx, "첫번째", 1)
	require.NoError(t, err)
	second, err := m.Create(ctx, "두번째", 1)
	require.NoError(t, err)

	m.processNextRun(ctx)

	got, err := m.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)

	got, err = m.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestGetUnknownRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	m := NewManager(db, &stubRunner{}, "", slog.Default())

	_, err := m.Get(context.Background(), uuid.New())
	assert.ErrorContains(t, err, "run not found")
}

func TestListNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	m := NewManager(db, &stubRunner{}, "", slog.Default())

	_, err := m.Create(ctx, "옛날", 1)
	require.NoError(t, err)
	latest, err := m.Create(ctx, "최신", 1)
	require.NoError(t, err)

	runs, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, latest.ID, runs[0].ID)
}
