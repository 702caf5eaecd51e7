package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codyseavey/tcg-market/internal/models"
	"github.com/codyseavey/tcg-market/internal/repository"
)

func TestValuateFromDatabase(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	ctx := context.Background()

	holdings := repository.NewHoldingsRepository(db)
	prices := repository.NewPriceRepository(db)

	require.NoError(t, holdings.CreateHolding(ctx, &models.Holding{UserID: "ash", CardID: "base1-4"}))
	require.NoError(t, holdings.CreateHolding(ctx, &models.Holding{UserID: "ash", CardID: "sv1-1", Price: price("3")}))
	require.NoError(t, holdings.CreateHolding(ctx, &models.Holding{UserID: "misty", CardID: "base1-4"}))

	_, err := prices.AppendSnapshots(ctx, []models.PriceSnapshot{
		{CardID: "base1-4", Date: day(-8), PriceMid: price("100")},
		{CardID: "base1-4", Date: day(0), PriceMid: price("120")},
		{CardID: "base1-4", Date: day(5), PriceMid: price("999")}, // after asOf
	})
	require.NoError(t, err)

	svc, err := NewValuationService(holdings, prices, 16, time.Minute, zap.NewNop())
	require.NoError(t, err)

	result := svc.Valuate(ctx, "ash", day(0))

	assert.True(t, decimal.NewFromInt(123).Equal(result.TotalValue), "got %s", result.TotalValue)
	assert.Equal(t, 1, result.CardsWithBothPrices)
	assert.True(t, decimal.NewFromInt(20).Equal(result.VariationPercent), "got %s", result.VariationPercent)
	assert.Equal(t, day(0), result.AsOf)

	cached, ok := svc.Cached("ash", day(0).Add(20*time.Hour))
	require.True(t, ok, "any time on the same day shares the entry")
	assert.True(t, result.TotalValue.Equal(cached.TotalValue))

	_, ok = svc.Cached("ash", day(-1))
	assert.False(t, ok)
	_, ok = svc.Cached("misty", day(0))
	assert.False(t, ok)
}

func TestValuateFetchErrorReturnsZero(t *testing.T) {
	tests := []struct {
		name     string
		holdings *fakeHoldings
		prices   *fakePrices
	}{
		{
			name:     "holdings fetch fails",
			holdings: &fakeHoldings{err: errors.New("db down")},
			prices:   &fakePrices{},
		},
		{
			name:     "price fetch fails",
			holdings: &fakeHoldings{holdings: []models.Holding{{ID: "h1", CardID: "A", Price: price("10")}}},
			prices:   &fakePrices{err: errors.New("timeout")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewValuationService(tt.holdings, tt.prices, 4, time.Minute, zap.NewNop())
			require.NoError(t, err)

			result := svc.Valuate(context.Background(), "ash", day(0))
			assert.True(t, result.TotalValue.IsZero())
			assert.True(t, result.VariationPercent.IsZero())
			assert.Equal(t, 0, result.CardsWithBothPrices)

			_, ok := svc.Cached("ash", day(0))
			assert.False(t, ok, "failed valuations must not be cached")
		})
	}
}

func TestValuateSupersededReturnsNewerResult(t *testing.T) {
	holdings := &fakeHoldings{holdings: []models.Holding{{ID: "h1", CardID: "A"}}}
	prices := &fakePrices{
		history: []models.PriceSnapshot{{ID: 1, CardID: "A", Date: day(0), PriceMid: price("42")}},
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}
	svc, err := NewValuationService(holdings, prices, 4, time.Minute, zap.NewNop())
	require.NoError(t, err)

	first := make(chan models.ValuationResult)
	go func() {
		first <- svc.Valuate(context.Background(), "ash", day(0))
	}()
	<-prices.entered

	second := svc.Valuate(context.Background(), "ash", day(0))
	assert.True(t, decimal.NewFromInt(42).Equal(second.TotalValue))

	older := <-first
	assert.True(t, decimal.NewFromInt(42).Equal(older.TotalValue), "the older request answers with the newer result, got %s", older.TotalValue)

	cached, ok := svc.Cached("ash", day(0))
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(42).Equal(cached.TotalValue))
}

func TestValuateDifferentDatesRunIndependently(t *testing.T) {
	holdings := &fakeHoldings{holdings: []models.Holding{{ID: "h1", CardID: "A"}}}
	prices := &fakePrices{
		history: []models.PriceSnapshot{
			{ID: 1, CardID: "A", Date: day(-12), PriceMid: price("30")},
			{ID: 2, CardID: "A", Date: day(0), PriceMid: price("42")},
		},
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}
	svc, err := NewValuationService(holdings, prices, 4, time.Minute, zap.NewNop())
	require.NoError(t, err)

	past := make(chan models.ValuationResult)
	go func() {
		past <- svc.Valuate(context.Background(), "ash", day(-10))
	}()
	<-prices.entered

	today := svc.Valuate(context.Background(), "ash", day(0))
	assert.True(t, decimal.NewFromInt(42).Equal(today.TotalValue))

	close(prices.block)
	earlier := <-past
	assert.True(t, decimal.NewFromInt(30).Equal(earlier.TotalValue), "got %s", earlier.TotalValue)
	assert.Equal(t, day(-10), earlier.AsOf)

	cached, ok := svc.Cached("ash", day(0))
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(42).Equal(cached.TotalValue))
	cached, ok = svc.Cached("ash", day(-10))
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(30).Equal(cached.TotalValue))
}

func TestPublishRejectsOlderSequence(t *testing.T) {
	svc, err := NewValuationService(&fakeHoldings{}, &fakePrices{}, 4, time.Minute, zap.NewNop())
	require.NoError(t, err)

	key := keyFor("ash", day(0))
	newer := models.ValuationResult{TotalValue: decimal.NewFromInt(2)}
	older := models.ValuationResult{TotalValue: decimal.NewFromInt(1)}

	assert.True(t, svc.publish(key, 5, newer))
	assert.False(t, svc.publish(key, 3, older))
	assert.True(t, svc.publish(keyFor("ash", day(-1)), 3, older), "other dates are independent")

	cached, ok := svc.Cached("ash", day(0))
	require.True(t, ok)
	assert.True(t, newer.TotalValue.Equal(cached.TotalValue))
}

func TestInvalidate(t *testing.T) {
	holdings := &fakeHoldings{holdings: []models.Holding{{ID: "h1", CardID: "A", Price: price("7")}}}
	svc, err := NewValuationService(holdings, &fakePrices{}, 4, time.Minute, zap.NewNop())
	require.NoError(t, err)

	svc.Valuate(context.Background(), "ash", day(0))
	_, ok := svc.Cached("ash", day(0))
	require.True(t, ok)

	seqBefore := svc.seq
	svc.Invalidate("ash")

	_, ok = svc.Cached("ash", day(0))
	assert.False(t, ok)

	// A computation that started before the invalidation cannot publish
	assert.False(t, svc.publish(keyFor("ash", day(-3)), seqBefore, models.ValuationResult{}))

	svc.Valuate(context.Background(), "ash", day(0))
	_, ok = svc.Cached("ash", day(0))
	assert.True(t, ok)
}

func TestValuateRecomputesAfterInvalidation(t *testing.T) {
	holdings := &fakeHoldings{holdings: []models.Holding{{ID: "h1", CardID: "A"}}}
	prices := &fakePrices{
		history: []models.PriceSnapshot{{ID: 1, CardID: "A", Date: day(0), PriceMid: price("42")}},
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}
	svc, err := NewValuationService(holdings, prices, 4, time.Minute, zap.NewNop())
	require.NoError(t, err)

	result := make(chan models.ValuationResult)
	go func() {
		result <- svc.Valuate(context.Background(), "ash", day(0))
	}()
	<-prices.entered

	svc.Invalidate("ash")

	got := <-result
	assert.True(t, decimal.NewFromInt(42).Equal(got.TotalValue), "got %s", got.TotalValue)
	_, ok := svc.Cached("ash", day(0))
	assert.True(t, ok)
}

func TestNewValuationServiceRejectsEmptyCache(t *testing.T) {
	_, err := NewValuationService(&fakeHoldings{}, &fakePrices{}, 0, time.Minute, zap.NewNop())
	assert.Error(t, err)
}

func TestComputeReportsHoldingCount(t *testing.T) {
	holdings := &fakeHoldings{holdings: []models.Holding{
		{ID: "h1", CardID: "A"},
		{ID: "h2", CardID: "A"},
		{ID: "h3", CardID: "B"},
	}}
	svc, err := NewValuationService(holdings, &fakePrices{}, 4, time.Minute, zap.NewNop())
	require.NoError(t, err)

	_, count, err := svc.Compute(context.Background(), "ash", day(0))
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
