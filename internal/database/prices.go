package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/suatklnc/alcpn-sub000/internal/models"
)

type PriceRepository struct {
	db *DB
}

func NewPriceRepository(db *DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// Upsert writes the current unit price for a material key, last writer wins.
func (r *PriceRepository) Upsert(ctx context.Context, p *models.PriceRecord) error {
	query := `
		INSERT INTO price_records (material_key, unit_price, source, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (material_key)
		DO UPDATE SET unit_price = EXCLUDED.unit_price,
			source = EXCLUDED.source,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.Exec(ctx, query, p.MaterialKey, p.UnitPrice, p.Source, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert price record: %w", err)
	}
	return nil
}

func (r *PriceRepository) Get(ctx context.Context, materialKey string) (*models.PriceRecord, error) {
	query := `SELECT material_key, unit_price, source, updated_at FROM price_records WHERE material_key = $1`

	var p models.PriceRecord
	err := r.db.QueryRow(ctx, query, materialKey).Scan(&p.MaterialKey, &p.UnitPrice, &p.Source, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get price record: %w", err)
	}
	return &p, nil
}

func (r *PriceRepository) List(ctx context.Context) ([]*models.PriceRecord, error) {
	query := `SELECT material_key, unit_price, source, updated_at FROM price_records ORDER BY material_key`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list price records: %w", err)
	}
	defer rows.Close()

	var out []*models.PriceRecord
	for rows.Next() {
		var p models.PriceRecord
		if err := rows.Scan(&p.MaterialKey, &p.UnitPrice, &p.Source, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price record: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate price records: %w", err)
	}
	return out, nil
}
