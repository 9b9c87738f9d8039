// Package pricing maintains the authoritative unit price per material key,
// fed either by scrape results or manual overrides.
package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/suatklnc/alcpn-sub000/internal/models"
)

// PriceStore persists price records.
type PriceStore interface {
	Upsert(ctx context.Context, p *models.PriceRecord) error
	Get(ctx context.Context, materialKey string) (*models.PriceRecord, error)
	List(ctx context.Context) ([]*models.PriceRecord, error)
}

type Service struct {
	store  PriceStore
	cache  *expirable.LRU[string, models.PriceRecord]
	logger *slog.Logger
}

const readCacheSize = 512

func NewService(store PriceStore, readTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		cache:  expirable.NewLRU[string, models.PriceRecord](readCacheSize, nil, readTTL),
		logger: logger.With("component", "pricing"),
	}
}

// ApplyScrape records a scraped price after applying the tracked URL's
// multiplier. The raw scraped value is kept in the attempt history; only the
// multiplied value becomes the unit price.
func (s *Service) ApplyScrape(ctx context.Context, materialKey string, price, multiplier float64) (*models.PriceRecord, error) {
	if multiplier <= 0 {
		multiplier = 1.0
	}
	record := &models.PriceRecord{
		MaterialKey: materialKey,
		UnitPrice:   price * multiplier,
		Source:      models.PriceSourceScraped,
		UpdatedAt:   time.Now(),
	}
	if err := s.store.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to apply scraped price: %w", err)
	}
	s.cache.Add(materialKey, *record)

	s.logger.Info("scraped price applied",
		"material_key", materialKey, "unit_price", record.UnitPrice, "multiplier", multiplier)
	return record, nil
}

// SetManualPrice overrides the unit price for a material key by hand.
func (s *Service) SetManualPrice(ctx context.Context, materialKey string, price float64) (*models.PriceRecord, error) {
	if price <= 0 {
		return nil, fmt.Errorf("manual price must be positive, got %v", price)
	}
	record := &models.PriceRecord{
		MaterialKey: materialKey,
		UnitPrice:   price,
		Source:      models.PriceSourceManual,
		UpdatedAt:   time.Now(),
	}
	if err := s.store.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to set manual price: %w", err)
	}
	s.cache.Add(materialKey, *record)

	s.logger.Info("manual price set", "material_key", materialKey, "unit_price", price)
	return record, nil
}

// GetUnitPrice returns the current price record, consulting the in-process
// read cache before the store.
func (s *Service) GetUnitPrice(ctx context.Context, materialKey string) (*models.PriceRecord, error) {
	if cached, ok := s.cache.Get(materialKey); ok {
		return &cached, nil
	}

	record, err := s.store.Get(ctx, materialKey)
	if err != nil {
		return nil, err
	}
	s.cache.Add(materialKey, *record)
	return record, nil
}

// ListPrices returns all current price records straight from the store.
func (s *Service) ListPrices(ctx context.Context) ([]*models.PriceRecord, error) {
	return s.store.List(ctx)
}
