package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codyseavey/tcg-market/internal/models"
	"github.com/codyseavey/tcg-market/internal/repository"
)

type snapshotFixture struct {
	svc       *SnapshotService
	holdings  repository.HoldingsRepository
	prices    repository.PriceRepository
	snapshots repository.SnapshotRepository
}

func newSnapshotFixture(t *testing.T, now time.Time) snapshotFixture {
	t.Helper()
	db := setupTestDB(t)
	seedCatalog(t, db)

	holdings := repository.NewHoldingsRepository(db)
	prices := repository.NewPriceRepository(db)
	snapshots := repository.NewSnapshotRepository(db)

	valuation, err := NewValuationService(holdings, prices, 16, time.Minute, zap.NewNop())
	require.NoError(t, err)

	svc := NewSnapshotService(holdings, snapshots, valuation, 23, time.Minute, zap.NewNop())
	svc.now = func() time.Time { return now }

	return snapshotFixture{svc: svc, holdings: holdings, prices: prices, snapshots: snapshots}
}

func TestTakeSnapshot(t *testing.T) {
	now := day(0).Add(23 * time.Hour)
	f := newSnapshotFixture(t, now)
	ctx := context.Background()

	require.NoError(t, f.holdings.CreateHolding(ctx, &models.Holding{UserID: "ash", CardID: "base1-4"}))
	require.NoError(t, f.holdings.CreateHolding(ctx, &models.Holding{UserID: "ash", CardID: "base1-4"}))
	require.NoError(t, f.holdings.CreateHolding(ctx, &models.Holding{UserID: "misty", CardID: "sv1-1", Price: price("2")}))
	_, err := f.prices.AppendSnapshots(ctx, []models.PriceSnapshot{
		{CardID: "base1-4", Date: day(0), PriceMid: price("50")},
	})
	require.NoError(t, err)

	recorded, err := f.svc.TakeSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, recorded)
	assert.Equal(t, now, f.svc.LastRun())

	history, err := f.svc.GetHistory(ctx, "ash", "week")
	require.NoError(t, err)
	require.Len(t, history.Snapshots, 1)
	assert.Equal(t, "week", history.Period)
	assert.Equal(t, 2, history.Snapshots[0].TotalCards)
	assert.True(t, decimal.NewFromInt(100).Equal(history.Snapshots[0].TotalValue))

	t.Run("rerun replaces the day's snapshot", func(t *testing.T) {
		require.NoError(t, f.holdings.CreateHolding(ctx, &models.Holding{UserID: "ash", CardID: "sv1-1", Price: price("1")}))

		_, err := f.svc.TakeSnapshot(ctx)
		require.NoError(t, err)

		history, err := f.svc.GetHistory(ctx, "ash", "all")
		require.NoError(t, err)
		require.Len(t, history.Snapshots, 1)
		assert.Equal(t, 3, history.Snapshots[0].TotalCards)
		assert.True(t, decimal.NewFromInt(101).Equal(history.Snapshots[0].TotalValue))
	})

	t.Run("last snapshot", func(t *testing.T) {
		last, err := f.svc.GetLastSnapshot(ctx, "misty")
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, day(0), last.SnapshotDate.UTC())

		none, err := f.svc.GetLastSnapshot(ctx, "brock")
		require.NoError(t, err)
		assert.Nil(t, none)
	})
}

func TestCheckAndSnapshotRespectsHour(t *testing.T) {
	ctx := context.Background()

	t.Run("before the snapshot hour", func(t *testing.T) {
		f := newSnapshotFixture(t, day(0).Add(9*time.Hour))
		require.NoError(t, f.holdings.CreateHolding(ctx, &models.Holding{UserID: "ash", CardID: "base1-4"}))

		f.svc.checkAndSnapshot(ctx)

		exists, err := f.snapshots.HasSnapshotsForDate(ctx, day(0))
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("after the snapshot hour", func(t *testing.T) {
		f := newSnapshotFixture(t, day(0).Add(23*time.Hour+30*time.Minute))
		require.NoError(t, f.holdings.CreateHolding(ctx, &models.Holding{UserID: "ash", CardID: "base1-4"}))

		f.svc.checkAndSnapshot(ctx)

		exists, err := f.snapshots.HasSnapshotsForDate(ctx, day(0))
		require.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestGetHistoryPeriods(t *testing.T) {
	now := day(0)
	f := newSnapshotFixture(t, now)
	ctx := context.Background()

	for _, offset := range []int{0, -5, -20, -60, -200, -500} {
		require.NoError(t, f.snapshots.Upsert(ctx, &models.CollectionValueSnapshot{
			UserID:       "ash",
			SnapshotDate: day(offset),
			TotalValue:   decimal.NewFromInt(int64(-offset)),
		}))
	}

	tests := []struct {
		period     string
		wantPeriod string
		want       int
	}{
		{"week", "week", 2},
		{"month", "month", 3},
		{"3month", "3month", 4},
		{"year", "year", 5},
		{"all", "all", 6},
		{"", "month", 3},
		{"decade", "month", 3},
	}
	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			history, err := f.svc.GetHistory(ctx, "ash", tt.period)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPeriod, history.Period)
			assert.Len(t, history.Snapshots, tt.want)
		})
	}

	history, err := f.svc.GetHistory(ctx, "ash", "all")
	require.NoError(t, err)
	for i := 1; i < len(history.Snapshots); i++ {
		assert.True(t, history.Snapshots[i-1].SnapshotDate.Before(history.Snapshots[i].SnapshotDate), "oldest first")
	}
}

func TestSnapshotUserOnlyRecordsThatUser(t *testing.T) {
	f := newSnapshotFixture(t, day(0).Add(9*time.Hour))
	ctx := context.Background()

	require.NoError(t, f.holdings.CreateHolding(ctx, &models.Holding{UserID: "ash", CardID: "sv1-1", Price: price("4")}))
	require.NoError(t, f.holdings.CreateHolding(ctx, &models.Holding{UserID: "misty", CardID: "sv1-1", Price: price("9")}))

	snapshot, err := f.svc.SnapshotUser(ctx, "ash")
	require.NoError(t, err)
	assert.Equal(t, "ash", snapshot.UserID)
	assert.Equal(t, 1, snapshot.TotalCards)
	assert.True(t, decimal.NewFromInt(4).Equal(snapshot.TotalValue))

	none, err := f.svc.GetLastSnapshot(ctx, "misty")
	require.NoError(t, err)
	assert.Nil(t, none, "other users are untouched")
	assert.True(t, f.svc.LastRun().IsZero(), "a single-user snapshot is not a full run")
}
