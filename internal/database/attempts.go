package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/suatklnc/alcpn-sub000/internal/models"
)

type AttemptRepository struct {
	db *DB
}

func NewAttemptRepository(db *DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

func (r *AttemptRepository) Insert(ctx context.Context, a *models.ScrapeAttempt) error {
	query := `
		INSERT INTO scrape_attempts (id, tracked_url_id, url, success, price, title,
			availability, image_url, error, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(ctx, query,
		a.ID, a.TrackedURLID, a.URL, a.Success, a.Price, a.Title,
		a.Availability, a.ImageURL, a.Error, a.DurationMs, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert scrape attempt: %w", err)
	}
	return nil
}

// ListByTrackedURL returns the most recent attempts for one tracked URL.
func (r *AttemptRepository) ListByTrackedURL(ctx context.Context, trackedURLID string, limit int) ([]*models.ScrapeAttempt, error) {
	query := `
		SELECT id, tracked_url_id, url, success, price, title, availability,
			image_url, error, duration_ms, created_at
		FROM scrape_attempts
		WHERE tracked_url_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, trackedURLID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scrape attempts: %w", err)
	}
	defer rows.Close()

	return collectAttempts(rows)
}

// ListRecent returns the most recent attempts across all URLs.
func (r *AttemptRepository) ListRecent(ctx context.Context, limit int) ([]*models.ScrapeAttempt, error) {
	query := `
		SELECT id, tracked_url_id, url, success, price, title, availability,
			image_url, error, duration_ms, created_at
		FROM scrape_attempts
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scrape attempts: %w", err)
	}
	defer rows.Close()

	return collectAttempts(rows)
}

func collectAttempts(rows pgx.Rows) ([]*models.ScrapeAttempt, error) {
	var out []*models.ScrapeAttempt
	for rows.Next() {
		var a models.ScrapeAttempt
		err := rows.Scan(&a.ID, &a.TrackedURLID, &a.URL, &a.Success, &a.Price, &a.Title,
			&a.Availability, &a.ImageURL, &a.Error, &a.DurationMs, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scrape attempt: %w", err)
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scrape attempts: %w", err)
	}
	return out, nil
}
