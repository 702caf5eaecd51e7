package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"gorm.io/gorm"

	"github.com/codyseavey/tcg-market/internal/models"
)

// PriceRepository reads the append-only market_prices series
type PriceRepository interface {
	// FetchPriceHistory returns every snapshot of the given cards dated on or
	// before upTo (nil = no bound), most recent first
	FetchPriceHistory(ctx context.Context, cardIDs []string, upTo *time.Time) ([]models.PriceSnapshot, error)
	// AppendSnapshots inserts new snapshots; existing rows are never touched
	AppendSnapshots(ctx context.Context, snapshots []models.PriceSnapshot) (int, error)
}

type priceRepository struct {
	db *gorm.DB
}

func NewPriceRepository(db *gorm.DB) PriceRepository {
	return &priceRepository{db: db}
}

// maxIDsPerQuery keeps IN clauses under SQLite's bound-variable limit
const maxIDsPerQuery = 500

func (r *priceRepository) FetchPriceHistory(ctx context.Context, cardIDs []string, upTo *time.Time) ([]models.PriceSnapshot, error) {
	history := make([]models.PriceSnapshot, 0)
	if len(cardIDs) == 0 {
		return history, nil
	}

	ids := uniqueStrings(cardIDs)
	for start := 0; start < len(ids); start += maxIDsPerQuery {
		end := min(start+maxIDsPerQuery, len(ids))

		query := r.db.WithContext(ctx).Where("card_id IN ?", ids[start:end])
		if upTo != nil {
			// Dates are stored as midnight UTC, so the next midnight is an exclusive bound
			query = query.Where("date < ?", models.DateOf(*upTo).AddDate(0, 0, 1))
		}

		var batch []models.PriceSnapshot
		if err := query.Order("date DESC, id DESC").Find(&batch).Error; err != nil {
			return nil, fmt.Errorf("fetch price history: %w", err)
		}
		history = append(history, batch...)
	}

	if len(ids) > maxIDsPerQuery {
		slices.SortStableFunc(history, func(a, b models.PriceSnapshot) int {
			if c := b.Date.Compare(a.Date); c != 0 {
				return c
			}
			return cmp.Compare(b.ID, a.ID)
		})
	}
	return history, nil
}

func (r *priceRepository) AppendSnapshots(ctx context.Context, snapshots []models.PriceSnapshot) (int, error) {
	if len(snapshots) == 0 {
		return 0, nil
	}

	rows := make([]models.PriceSnapshot, len(snapshots))
	for i, s := range snapshots {
		s.ID = 0
		s.Date = models.DateOf(s.Date)
		rows[i] = s
	}

	if err := r.db.WithContext(ctx).CreateInBatches(&rows, 200).Error; err != nil {
		return 0, fmt.Errorf("append price snapshots: %w", err)
	}
	return len(rows), nil
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
