package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StartWorker polls for pending runs until the context is cancelled.
// Runs execute one at a time: the browser session behind the runner is
// not safe to share across concurrent harvests.
func (m *Manager) StartWorker(ctx context.Context) {
	m.logger.Info("run worker started")

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("run worker stopping")
			return
		case <-ticker.C:
			m.processNextRun(ctx)
		}
	}
}

func (m *Manager) processNextRun(ctx context.Context) {
	query := `
		SELECT id, keyword, pages
		FROM harvest_runs
		WHERE status = $1
		ORDER BY created_at
		LIMIT 1`

	var id uuid.UUID
	var keyword string
	var pages int

	if err := m.db.QueryRow(ctx, query, StatusPending).Scan(&id, &keyword, &pages); err != nil {
		// No pending runs.
		return
	}

	m.logger.Info("processing run", "id", id, "keyword", keyword)

	if err := m.markRunning(ctx, id); err != nil {
		m.logger.Error("failed to mark run running", "id", id, "error", err)
		return
	}

	result, runErr := m.runner.Run(ctx, keyword, pages)
	if runErr != nil {
		m.logger.Error("run failed", "id", id, "error", runErr)
	}

	if err := m.finishRun(ctx, id, keyword, pages, result, runErr); err != nil {
		m.logger.Error("failed to record run result", "id", id, "error", err)
		return
	}

	status := StatusCompleted
	if runErr != nil {
		status = StatusFailed
	}
	m.logger.Info("run finished", "id", id, "status", status,
		"collected", result.Collected, "persisted", result.Persisted)
}
