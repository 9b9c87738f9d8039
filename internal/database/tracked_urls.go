package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/suatklnc/alcpn-sub000/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrHasHistory is returned when deleting a tracked URL that still has
// scrape attempts recorded against it.
var ErrHasHistory = errors.New("tracked url has scrape history")

type TrackedURLRepository struct {
	db *DB
}

func NewTrackedURLRepository(db *DB) *TrackedURLRepository {
	return &TrackedURLRepository{db: db}
}

const trackedURLColumns = `id, url, selector, material_key, is_active, auto_scrape,
	interval_seconds, multiplier, last_run, next_due, last_result, created_at, updated_at`

func (r *TrackedURLRepository) Create(ctx context.Context, t *models.TrackedURL) error {
	lastResult, err := marshalResult(t.LastResult)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tracked_urls (id, url, selector, material_key, is_active, auto_scrape,
			interval_seconds, multiplier, last_run, next_due, last_result, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = r.db.Exec(ctx, query,
		t.ID, t.URL, t.Selector, t.MaterialKey, t.IsActive, t.AutoScrape,
		int64(t.Interval.Seconds()), t.Multiplier, t.LastRun, t.NextDue,
		lastResult, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create tracked url: %w", err)
	}
	return nil
}

func (r *TrackedURLRepository) Get(ctx context.Context, id string) (*models.TrackedURL, error) {
	query := `SELECT ` + trackedURLColumns + ` FROM tracked_urls WHERE id = $1`

	t, err := scanTrackedURL(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tracked url: %w", err)
	}
	return t, nil
}

func (r *TrackedURLRepository) List(ctx context.Context) ([]*models.TrackedURL, error) {
	query := `SELECT ` + trackedURLColumns + ` FROM tracked_urls ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked urls: %w", err)
	}
	defer rows.Close()

	return collectTrackedURLs(rows)
}

// ListDue returns active auto-scrape URLs whose next_due has passed, oldest
// first, capped at limit.
func (r *TrackedURLRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.TrackedURL, error) {
	query := `
		SELECT ` + trackedURLColumns + `
		FROM tracked_urls
		WHERE is_active = true AND auto_scrape = true AND next_due IS NOT NULL AND next_due <= $1
		ORDER BY next_due ASC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due tracked urls: %w", err)
	}
	defer rows.Close()

	return collectTrackedURLs(rows)
}

func (r *TrackedURLRepository) Update(ctx context.Context, t *models.TrackedURL) error {
	lastResult, err := marshalResult(t.LastResult)
	if err != nil {
		return err
	}

	query := `
		UPDATE tracked_urls
		SET url = $2, selector = $3, material_key = $4, is_active = $5, auto_scrape = $6,
			interval_seconds = $7, multiplier = $8, last_run = $9, next_due = $10,
			last_result = $11, updated_at = $12
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		t.ID, t.URL, t.Selector, t.MaterialKey, t.IsActive, t.AutoScrape,
		int64(t.Interval.Seconds()), t.Multiplier, t.LastRun, t.NextDue,
		lastResult, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update tracked url: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkRun records the outcome of one scheduled run and advances the schedule.
// It is called for failures too, so a permanently broken URL cannot wedge the
// head of the due queue.
func (r *TrackedURLRepository) MarkRun(ctx context.Context, id string, lastRun, nextDue time.Time, res *models.ScrapeResult) error {
	lastResult, err := marshalResult(res)
	if err != nil {
		return err
	}

	query := `
		UPDATE tracked_urls
		SET last_run = $2, next_due = $3, last_result = $4, updated_at = $5
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, lastRun, nextDue, lastResult, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark tracked url run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a tracked URL unless scrape attempts reference it. The
// history check and the delete run in one transaction so a concurrent attempt
// insert cannot slip between them.
func (r *TrackedURLRepository) Delete(ctx context.Context, id string) error {
	return r.db.Transaction(ctx, func(tx pgx.Tx) error {
		var attempts int
		countQuery := `SELECT COUNT(*) FROM scrape_attempts WHERE tracked_url_id = $1`
		if err := tx.QueryRow(ctx, countQuery, id).Scan(&attempts); err != nil {
			return fmt.Errorf("failed to count scrape attempts: %w", err)
		}
		if attempts > 0 {
			return ErrHasHistory
		}

		tag, err := tx.Exec(ctx, `DELETE FROM tracked_urls WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete tracked url: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func collectTrackedURLs(rows pgx.Rows) ([]*models.TrackedURL, error) {
	var out []*models.TrackedURL
	for rows.Next() {
		t, err := scanTrackedURL(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tracked url: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tracked urls: %w", err)
	}
	return out, nil
}

func scanTrackedURL(row pgx.Row) (*models.TrackedURL, error) {
	var t models.TrackedURL
	var intervalSeconds int64
	var lastResult []byte

	err := row.Scan(&t.ID, &t.URL, &t.Selector, &t.MaterialKey, &t.IsActive, &t.AutoScrape,
		&intervalSeconds, &t.Multiplier, &t.LastRun, &t.NextDue, &lastResult,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	t.Interval = time.Duration(intervalSeconds) * time.Second
	if len(lastResult) > 0 {
		var res models.ScrapeResult
		if err := json.Unmarshal(lastResult, &res); err != nil {
			return nil, fmt.Errorf("failed to unmarshal last result: %w", err)
		}
		t.LastResult = &res
	}
	return &t, nil
}

func marshalResult(res *models.ScrapeResult) ([]byte, error) {
	if res == nil {
		return nil, nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scrape result: %w", err)
	}
	return data, nil
}
