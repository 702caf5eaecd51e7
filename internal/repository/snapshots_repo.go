package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/tcg-market/internal/models"
)

// SnapshotRepository stores daily collection value snapshots
type SnapshotRepository interface {
	// Upsert writes the snapshot for (user, date), replacing any existing one
	Upsert(ctx context.Context, snapshot *models.CollectionValueSnapshot) error
	HasSnapshotsForDate(ctx context.Context, date time.Time) (bool, error)
	// History returns a user's snapshots on or after since, oldest first.
	// A zero since returns everything.
	History(ctx context.Context, userID string, since time.Time) ([]models.CollectionValueSnapshot, error)
	Latest(ctx context.Context, userID string) (*models.CollectionValueSnapshot, error)
}

type snapshotRepository struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

func (r *snapshotRepository) Upsert(ctx context.Context, snapshot *models.CollectionValueSnapshot) error {
	snapshot.SnapshotDate = models.DateOf(snapshot.SnapshotDate)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "snapshot_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_cards", "total_value", "variation_percent"}),
	}).Create(snapshot).Error
	if err != nil {
		return fmt.Errorf("upsert value snapshot for %s: %w", snapshot.UserID, err)
	}
	return nil
}

func (r *snapshotRepository) HasSnapshotsForDate(ctx context.Context, date time.Time) (bool, error) {
	start := models.DateOf(date)
	end := start.AddDate(0, 0, 1)

	var count int64
	err := r.db.WithContext(ctx).Model(&models.CollectionValueSnapshot{}).
		Where("snapshot_date >= ? AND snapshot_date < ?", start, end).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count value snapshots: %w", err)
	}
	return count > 0, nil
}

func (r *snapshotRepository) History(ctx context.Context, userID string, since time.Time) ([]models.CollectionValueSnapshot, error) {
	snapshots := make([]models.CollectionValueSnapshot, 0)

	query := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("snapshot_date ASC")
	if !since.IsZero() {
		query = query.Where("snapshot_date >= ?", models.DateOf(since))
	}
	if err := query.Find(&snapshots).Error; err != nil {
		return nil, fmt.Errorf("fetch value history for %s: %w", userID, err)
	}
	return snapshots, nil
}

func (r *snapshotRepository) Latest(ctx context.Context, userID string) (*models.CollectionValueSnapshot, error) {
	var snapshot models.CollectionValueSnapshot
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("snapshot_date DESC").
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch latest value snapshot for %s: %w", userID, err)
	}
	return &snapshot, nil
}
