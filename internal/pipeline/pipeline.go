package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"coupang-review-harvester/internal/etl"
	"coupang-review-harvester/internal/models"
)

// Harvester is the crawl stage the pipeline drives.
type Harvester interface {
	Run(ctx context.Context, keyword string, pages int) ([]models.RawReview, error)
}

// Store is the persistence stage.
type Store interface {
	InsertAll(ctx context.Context, reviews []models.CanonicalReview) error
}

// Result reports what a run achieved. Collecting and persisting fail
// independently: a run can collect reviews and still fail to persist
// them, and callers must treat the two counts separately.
type Result struct {
	Collected int `json:"collected"`
	Persisted int `json:"persisted"`
}

// Pipeline wires harvest → normalize → persist for one keyword run.
type Pipeline struct {
	harvester  Harvester
	normalizer *etl.Normalizer
	store      Store
	logger     *slog.Logger
}

func New(harvester Harvester, normalizer *etl.Normalizer, store Store, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		harvester:  harvester,
		normalizer: normalizer,
		store:      store,
		logger:     logger.With("component", "pipeline"),
	}
}

// Run executes one end-to-end harvest. A run that collects zero reviews
// is an empty result, not an error: ETL and persistence are skipped
// cleanly and nothing is written.
func (p *Pipeline) Run(ctx context.Context, keyword string, pages int) (Result, error) {
	raws, err := p.harvester.Run(ctx, keyword, pages)
	if err != nil {
		return Result{}, fmt.Errorf("harvest failed: %w", err)
	}

	if len(raws) == 0 {
		p.logger.Warn("no reviews collected, skipping ETL and persistence", "keyword", keyword)
		return Result{}, nil
	}

	canonical := p.normalizer.Normalize(raws)

	if err := p.store.InsertAll(ctx, canonical); err != nil {
		return Result{Collected: len(raws)}, fmt.Errorf("failed to persist reviews: %w", err)
	}

	p.logger.Info("pipeline run finished", "keyword", keyword, "collected", len(raws), "persisted", len(canonical))
	return Result{Collected: len(raws), Persisted: len(canonical)}, nil
}
