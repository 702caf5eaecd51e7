package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/codyseavey/tcg-market/internal/database"
	"github.com/codyseavey/tcg-market/internal/models"
	"github.com/codyseavey/tcg-market/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := database.Open(database.Options{
		Driver:   database.DriverSQLite,
		DSN:      dsn,
		LogLevel: gormlogger.Silent,
	}, zap.NewNop())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func day(offset int) time.Time {
	return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

// seedCatalog inserts two editions with one card each
func seedCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()
	ctx := context.Background()
	catalog := repository.NewCatalogRepository(db)

	older := day(-3000)
	newer := day(-100)
	require.NoError(t, catalog.UpsertEditions(ctx, []models.Edition{
		{ID: "base1", Name: "Base", ReleaseDate: &older},
		{ID: "sv1", Name: "Scarlet & Violet", ReleaseDate: &newer},
	}))
	require.NoError(t, catalog.UpsertCards(ctx, []models.Card{
		{ID: "base1-4", Name: "Charizard", EditionID: "base1", Number: "4"},
		{ID: "sv1-1", Name: "Pineco", EditionID: "sv1", Number: "1"},
	}))
}

type fakeHoldings struct {
	holdings []models.Holding
	users    []string
	err      error
}

func (f *fakeHoldings) FetchHoldings(ctx context.Context, userID string) ([]models.Holding, error) {
	return f.holdings, f.err
}

func (f *fakeHoldings) GetHolding(ctx context.Context, id string) (*models.Holding, error) {
	for i := range f.holdings {
		if f.holdings[i].ID == id {
			return &f.holdings[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeHoldings) CreateHolding(ctx context.Context, holding *models.Holding) error {
	return f.err
}

func (f *fakeHoldings) SetPrice(ctx context.Context, id string, price decimal.NullDecimal, forSale *bool) (*models.Holding, error) {
	return nil, f.err
}

func (f *fakeHoldings) MarkSold(ctx context.Context, id string) (*models.Holding, error) {
	return nil, f.err
}

func (f *fakeHoldings) ListUserIDs(ctx context.Context) ([]string, error) {
	return f.users, f.err
}

// fakePrices returns the history up to upTo, or err. When block is set the
// first call waits for it to close (or for ctx to be cancelled).
type fakePrices struct {
	history []models.PriceSnapshot
	err     error
	block   chan struct{}
	entered chan struct{}

	mu    sync.Mutex
	calls int
}

func (f *fakePrices) FetchPriceHistory(ctx context.Context, cardIDs []string, upTo *time.Time) ([]models.PriceSnapshot, error) {
	f.mu.Lock()
	f.calls++
	first := f.calls == 1
	f.mu.Unlock()

	if f.block != nil && first {
		close(f.entered)
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}

	history := make([]models.PriceSnapshot, 0, len(f.history))
	for _, snap := range f.history {
		if upTo != nil && snap.Date.After(*upTo) {
			continue
		}
		history = append(history, snap)
	}
	return history, nil
}

func (f *fakePrices) AppendSnapshots(ctx context.Context, snapshots []models.PriceSnapshot) (int, error) {
	return len(snapshots), f.err
}
