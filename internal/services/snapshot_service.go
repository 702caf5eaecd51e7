package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/codyseavey/tcg-market/internal/metrics"
	"github.com/codyseavey/tcg-market/internal/models"
	"github.com/codyseavey/tcg-market/internal/repository"
)

// SnapshotService handles collection value snapshots
type SnapshotService struct {
	holdings  repository.HoldingsRepository
	snapshots repository.SnapshotRepository
	valuation *ValuationService
	log       *zap.Logger
	now       func() time.Time

	mu            sync.Mutex
	lastSnapshot  time.Time
	snapshotHour  int // Hour of day to take snapshot (0-23)
	checkInterval time.Duration
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(
	holdings repository.HoldingsRepository,
	snapshots repository.SnapshotRepository,
	valuation *ValuationService,
	snapshotHour int,
	checkInterval time.Duration,
	log *zap.Logger,
) *SnapshotService {
	if checkInterval <= 0 {
		checkInterval = 15 * time.Minute
	}
	return &SnapshotService{
		holdings:      holdings,
		snapshots:     snapshots,
		valuation:     valuation,
		log:           log,
		now:           time.Now,
		snapshotHour:  snapshotHour,
		checkInterval: checkInterval,
	}
}

// Start begins the background snapshot worker. It returns when ctx is done.
func (s *SnapshotService) Start(ctx context.Context) {
	s.log.Info("snapshot service started",
		zap.Int("snapshot_hour", s.snapshotHour),
		zap.Duration("check_interval", s.checkInterval))

	// Check if we need to take a snapshot for today on startup
	s.checkAndSnapshot(ctx)

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("snapshot service stopping")
			return
		case <-ticker.C:
			s.checkAndSnapshot(ctx)
		}
	}
}

// checkAndSnapshot takes today's snapshot once the configured hour has passed
func (s *SnapshotService) checkAndSnapshot(ctx context.Context) {
	now := s.now()
	if now.Hour() < s.snapshotHour {
		return
	}

	exists, err := s.snapshots.HasSnapshotsForDate(ctx, now)
	if err != nil {
		s.log.Error("snapshot check failed", zap.Error(err))
		return
	}
	if exists {
		return
	}

	if _, err := s.TakeSnapshot(ctx); err != nil {
		s.log.Error("failed to take snapshot", zap.Error(err))
	}
}

// TakeSnapshot records today's collection value for every user with owned
// holdings and returns how many snapshots were written. A user whose
// valuation fails is skipped rather than recorded as zero.
func (s *SnapshotService) TakeSnapshot(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	defer func() { metrics.SnapshotRunDuration.Observe(time.Since(start).Seconds()) }()

	userIDs, err := s.holdings.ListUserIDs(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	recorded := 0
	var errs []error
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return recorded, err
		}

		snapshot, err := s.recordUser(ctx, userID, now)
		if err != nil {
			s.log.Warn("skipping snapshot for user", zap.String("user_id", userID), zap.Error(err))
			errs = append(errs, err)
			continue
		}

		recorded++
		s.log.Debug("recorded value snapshot",
			zap.String("user_id", userID),
			zap.String("total_value", snapshot.TotalValue.StringFixed(2)),
			zap.Int("total_cards", snapshot.TotalCards))
	}

	s.lastSnapshot = now
	s.log.Info("value snapshots recorded",
		zap.String("date", models.DateOf(now).Format("2006-01-02")),
		zap.Int("users", len(userIDs)),
		zap.Int("recorded", recorded))

	return recorded, errors.Join(errs...)
}

// SnapshotUser records today's collection value for a single user
func (s *SnapshotService) SnapshotUser(ctx context.Context, userID string) (*models.CollectionValueSnapshot, error) {
	return s.recordUser(ctx, userID, s.now())
}

func (s *SnapshotService) recordUser(ctx context.Context, userID string, now time.Time) (*models.CollectionValueSnapshot, error) {
	result, totalCards, err := s.valuation.Compute(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("value collection of %s: %w", userID, err)
	}

	snapshot := &models.CollectionValueSnapshot{
		UserID:           userID,
		SnapshotDate:     now,
		TotalCards:       totalCards,
		TotalValue:       result.TotalValue,
		VariationPercent: result.VariationPercent,
	}
	if err := s.snapshots.Upsert(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("store snapshot of %s: %w", userID, err)
	}
	metrics.SnapshotsRecordedTotal.Inc()
	return snapshot, nil
}

// GetHistory retrieves a user's value snapshots for a given period
func (s *SnapshotService) GetHistory(ctx context.Context, userID, period string) (*models.ValueHistoryResponse, error) {
	now := s.now()
	var startDate time.Time

	switch period {
	case "week":
		startDate = now.AddDate(0, 0, -7)
	case "month":
		startDate = now.AddDate(0, -1, 0)
	case "3month":
		startDate = now.AddDate(0, -3, 0)
	case "year":
		startDate = now.AddDate(-1, 0, 0)
	case "all":
		startDate = time.Time{} // No filter
	default:
		period = "month"
		startDate = now.AddDate(0, -1, 0)
	}

	snapshots, err := s.snapshots.History(ctx, userID, startDate)
	if err != nil {
		return nil, err
	}
	return &models.ValueHistoryResponse{Snapshots: snapshots, Period: period}, nil
}

// GetLastSnapshot returns the user's most recent snapshot, or nil if none
func (s *SnapshotService) GetLastSnapshot(ctx context.Context, userID string) (*models.CollectionValueSnapshot, error) {
	snapshot, err := s.snapshots.Latest(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return snapshot, err
}

// LastRun reports when TakeSnapshot last completed
func (s *SnapshotService) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSnapshot
}
