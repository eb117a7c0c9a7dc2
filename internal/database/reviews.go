package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"coupang-review-harvester/internal/models"
)

// ReviewStore persists canonical reviews. Rows are insert-only: each
// harvest run is fully additive and nothing updates or deletes a review.
type ReviewStore struct {
	db *DB
}

func NewReviewStore(db *DB) *ReviewStore {
	return &ReviewStore{db: db}
}

// CreateSchema creates the reviews table and the supporting run/outbox
// tables if they do not exist yet.
func (s *ReviewStore) CreateSchema(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS reviews (
			id BIGSERIAL PRIMARY KEY,
			product_name VARCHAR(255) NOT NULL,
			brand VARCHAR(255),
			price VARCHAR(50),
			coupang_product_id VARCHAR(255),
			option TEXT,
			review_title VARCHAR(500),
			review_content TEXT,
			review_page INT,
			author VARCHAR(255),
			rating DOUBLE PRECISION,
			created_at TIMESTAMP,
			seller VARCHAR(255),
			actual_purchase_product_name VARCHAR(255),
			images TEXT,
			survey_response TEXT,
			helpful_count INT
		)`,
		`CREATE TABLE IF NOT EXISTS harvest_runs (
			id UUID PRIMARY KEY,
			keyword VARCHAR(255) NOT NULL,
			pages INT NOT NULL,
			status VARCHAR(20) NOT NULL,
			reviews_collected INT NOT NULL DEFAULT 0,
			reviews_persisted INT NOT NULL DEFAULT 0,
			error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			started_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS outbox_event (
			id UUID PRIMARY KEY,
			aggregate_type VARCHAR(50) NOT NULL,
			aggregate_id VARCHAR(255) NOT NULL,
			event_type VARCHAR(100) NOT NULL,
			payload JSONB NOT NULL,
			target_stream VARCHAR(255) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			retry_count INT NOT NULL DEFAULT 0,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			processed_at TIMESTAMPTZ,
			next_retry_at TIMESTAMPTZ
		)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

const insertReviewQuery = `
	INSERT INTO reviews (
		product_name, brand, price, coupang_product_id, option,
		review_title, review_content, review_page, author, rating,
		created_at, seller, actual_purchase_product_name, images,
		survey_response, helpful_count
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
	)`

// InsertAll writes the whole batch in one transaction. Any row failure
// rolls back the entire batch: partial writes would corrupt aggregate
// reporting downstream.
func (s *ReviewStore) InsertAll(ctx context.Context, reviews []models.CanonicalReview) error {
	if len(reviews) == 0 {
		return nil
	}

	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		for _, r := range reviews {
			_, err := tx.Exec(ctx, insertReviewQuery,
				r.ProductName, r.Brand, r.Price, r.ProductID, r.Option,
				r.Title, r.Content, r.Page, r.Author, r.Rating,
				r.WrittenAt, r.Seller, r.PurchasedProduct, r.Images,
				r.Survey, r.HelpfulCount,
			)
			if err != nil {
				return fmt.Errorf("failed to insert review: %w", err)
			}
		}
		return nil
	})
}

// GetAll returns every persisted review in insertion order with the
// assigned identifier populated.
func (s *ReviewStore) GetAll(ctx context.Context) ([]models.CanonicalReview, error) {
	query := `
		SELECT id, product_name, brand, price, coupang_product_id, option,
		       review_title, review_content, review_page, author, rating,
		       created_at, seller, actual_purchase_product_name, images,
		       survey_response, helpful_count
		FROM reviews
		ORDER BY id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []models.CanonicalReview
	for rows.Next() {
		var r models.CanonicalReview
		err := rows.Scan(
			&r.ID, &r.ProductName, &r.Brand, &r.Price, &r.ProductID, &r.Option,
			&r.Title, &r.Content, &r.Page, &r.Author, &r.Rating,
			&r.WrittenAt, &r.Seller, &r.PurchasedProduct, &r.Images,
			&r.Survey, &r.HelpfulCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reviews: %w", err)
	}
	return reviews, nil
}

// Count returns the number of persisted reviews.
func (s *ReviewStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM reviews`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return count, nil
}
