package pricing

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suatklnc/alcpn-sub000/internal/database"
	"github.com/suatklnc/alcpn-sub000/internal/models"
)

type fakePriceStore struct {
	records map[string]models.PriceRecord
	gets    int
}

func newFakePriceStore() *fakePriceStore {
	return &fakePriceStore{records: make(map[string]models.PriceRecord)}
}

func (f *fakePriceStore) Upsert(_ context.Context, p *models.PriceRecord) error {
	f.records[p.MaterialKey] = *p
	return nil
}

func (f *fakePriceStore) Get(_ context.Context, materialKey string) (*models.PriceRecord, error) {
	f.gets++
	p, ok := f.records[materialKey]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &p, nil
}

func (f *fakePriceStore) List(context.Context) ([]*models.PriceRecord, error) {
	var out []*models.PriceRecord
	for key := range f.records {
		p := f.records[key]
		out = append(out, &p)
	}
	return out, nil
}

func testService(store PriceStore) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, time.Minute, logger)
}

func TestApplyScrapeMultiplies(t *testing.T) {
	store := newFakePriceStore()
	svc := testService(store)

	record, err := svc.ApplyScrape(context.Background(), "alci_levha", 1250.00, 1.1)
	require.NoError(t, err)
	assert.InDelta(t, 1375.00, record.UnitPrice, 0.001)
	assert.Equal(t, models.PriceSourceScraped, record.Source)

	stored := store.records["alci_levha"]
	assert.InDelta(t, 1375.00, stored.UnitPrice, 0.001)
}

func TestApplyScrapeDefaultsMultiplier(t *testing.T) {
	svc := testService(newFakePriceStore())

	record, err := svc.ApplyScrape(context.Background(), "profil", 45.00, 0)
	require.NoError(t, err)
	assert.InDelta(t, 45.00, record.UnitPrice, 0.001)
}

func TestSetManualPriceOverridesScraped(t *testing.T) {
	store := newFakePriceStore()
	svc := testService(store)
	ctx := context.Background()

	_, err := svc.ApplyScrape(ctx, "vida", 10.00, 1.0)
	require.NoError(t, err)

	record, err := svc.SetManualPrice(ctx, "vida", 12.50)
	require.NoError(t, err)
	assert.Equal(t, models.PriceSourceManual, record.Source)

	current, err := svc.GetUnitPrice(ctx, "vida")
	require.NoError(t, err)
	assert.InDelta(t, 12.50, current.UnitPrice, 0.001)
}

func TestSetManualPriceRejectsNonPositive(t *testing.T) {
	svc := testService(newFakePriceStore())

	_, err := svc.SetManualPrice(context.Background(), "vida", 0)
	assert.Error(t, err)
	_, err = svc.SetManualPrice(context.Background(), "vida", -5)
	assert.Error(t, err)
}

func TestGetUnitPriceUsesReadCache(t *testing.T) {
	store := newFakePriceStore()
	store.records["bant"] = models.PriceRecord{
		MaterialKey: "bant", UnitPrice: 99.90, Source: models.PriceSourceManual, UpdatedAt: time.Now(),
	}
	svc := testService(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		record, err := svc.GetUnitPrice(ctx, "bant")
		require.NoError(t, err)
		assert.InDelta(t, 99.90, record.UnitPrice, 0.001)
	}
	assert.Equal(t, 1, store.gets)
}

func TestGetUnitPriceUnknownKey(t *testing.T) {
	svc := testService(newFakePriceStore())

	_, err := svc.GetUnitPrice(context.Background(), "yok")
	assert.ErrorIs(t, err, database.ErrNotFound)
}
