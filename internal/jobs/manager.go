package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"coupang-review-harvester/internal/database"
	"coupang-review-harvester/internal/pipeline"
)

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"

	EventTypeRunCompleted = "HARVEST_RUN_COMPLETED"
	EventTypeRunFailed    = "HARVEST_RUN_FAILED"
)

// Run is one harvest request with an observable lifecycle. It replaces a
// fire-and-forget background thread: callers create a run, poll its
// status, and read the final counts.
type Run struct {
	ID                uuid.UUID  `json:"id"`
	Keyword           string     `json:"keyword"`
	Pages             int        `json:"pages"`
	Status            string     `json:"status"`
	ReviewsCollected  int        `json:"reviews_collected"`
	ReviewsPersisted  int        `json:"reviews_persisted"`
	Error             string     `json:"error,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// Runner executes one harvest run end to end.
type Runner interface {
	Run(ctx context.Context, keyword string, pages int) (pipeline.Result, error)
}

type Manager struct {
	db     *database.DB
	runner Runner
	outbox *database.OutboxRepository
	stream string
	logger *slog.Logger
}

func NewManager(db *database.DB, runner Runner, stream string, logger *slog.Logger) *Manager {
	if stream == "" {
		stream = database.DefaultTargetStream
	}
	return &Manager{
		db:     db,
		runner: runner,
		outbox: database.NewOutboxRepository(db),
		stream: stream,
		logger: logger.With("component", "run_manager"),
	}
}

// Create registers a pending run for the worker to pick up.
func (m *Manager) Create(ctx context.Context, keyword string, pages int) (*Run, error) {
	run := &Run{
		ID:        uuid.New(),
		Keyword:   keyword,
		Pages:     pages,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO harvest_runs (id, keyword, pages, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := m.db.Exec(ctx, query, run.ID, run.Keyword, run.Pages, run.Status, run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	m.logger.Info("run created", "id", run.ID, "keyword", keyword, "pages", pages)
	return run, nil
}

// Get retrieves one run by id.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	query := `
		SELECT id, keyword, pages, status, reviews_collected,
		       reviews_persisted, COALESCE(error, ''), created_at,
		       started_at, completed_at
		FROM harvest_runs
		WHERE id = $1`

	run := &Run{}
	err := m.db.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.Keyword, &run.Pages, &run.Status, &run.ReviewsCollected,
		&run.ReviewsPersisted, &run.Error, &run.CreatedAt,
		&run.StartedAt, &run.CompletedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("run not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// List returns the most recent runs, newest first.
func (m *Manager) List(ctx context.Context) ([]*Run, error) {
	query := `
		SELECT id, keyword, pages, status, reviews_collected,
		       reviews_persisted, COALESCE(error, ''), created_at,
		       started_at, completed_at
		FROM harvest_runs
		ORDER BY created_at DESC
		LIMIT 100`

	rows, err := m.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		err := rows.Scan(
			&run.ID, &run.Keyword, &run.Pages, &run.Status, &run.ReviewsCollected,
			&run.ReviewsPersisted, &run.Error, &run.CreatedAt,
			&run.StartedAt, &run.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (m *Manager) markRunning(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE harvest_runs
		SET status = $2, started_at = NOW()
		WHERE id = $1`

	_, err := m.db.Exec(ctx, query, id, StatusRunning)
	return err
}

// runEventPayload is what downstream stream consumers receive.
type runEventPayload struct {
	RunID            string    `json:"run_id"`
	Keyword          string    `json:"keyword"`
	Pages            int       `json:"pages"`
	Status           string    `json:"status"`
	ReviewsCollected int       `json:"reviews_collected"`
	ReviewsPersisted int       `json:"reviews_persisted"`
	Error            string    `json:"error,omitempty"`
	CompletedAt      time.Time `json:"completed_at"`
}

// finishRun records the final state and writes the outbox event in the
// same transaction, so the stream never announces a state the table does
// not hold.
func (m *Manager) finishRun(ctx context.Context, id uuid.UUID, keyword string, pages int, result pipeline.Result, runErr error) error {
	status := StatusCompleted
	eventType := EventTypeRunCompleted
	errText := ""
	if runErr != nil {
		status = StatusFailed
		eventType = EventTypeRunFailed
		errText = runErr.Error()
	}

	payload, err := json.Marshal(runEventPayload{
		RunID:            id.String(),
		Keyword:          keyword,
		Pages:            pages,
		Status:           status,
		ReviewsCollected: result.Collected,
		ReviewsPersisted: result.Persisted,
		Error:            errText,
		CompletedAt:      time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal run event: %w", err)
	}

	return m.db.WithTx(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE harvest_runs
			SET status = $2, reviews_collected = $3, reviews_persisted = $4,
			    error = NULLIF($5, ''), completed_at = NOW()
			WHERE id = $1`

		if _, err := tx.Exec(ctx, query, id, status, result.Collected, result.Persisted, errText); err != nil {
			return fmt.Errorf("failed to finish run: %w", err)
		}

		return m.outbox.InsertWithTx(ctx, tx, &database.OutboxEvent{
			AggregateType: "harvest_run",
			AggregateID:   id.String(),
			EventType:     eventType,
			Payload:       payload,
			TargetStream:  m.stream,
		})
	})
}
