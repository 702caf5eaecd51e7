package services

import (
	"context"
	"time"

	"github.com/codyseavey/tcg-market/internal/models"
	"github.com/codyseavey/tcg-market/internal/repository"
	"github.com/codyseavey/tcg-market/internal/valuation"
)

const (
	// PriceStalenessThreshold is how old a price can be before it's considered stale
	PriceStalenessThreshold = 48 * time.Hour
)

// PriceService serves market price history for display
type PriceService struct {
	prices  repository.PriceRepository
	catalog repository.CatalogRepository
	now     func() time.Time
}

// NewPriceService creates a new price service
func NewPriceService(prices repository.PriceRepository, catalog repository.CatalogRepository) *PriceService {
	return &PriceService{
		prices:  prices,
		catalog: catalog,
		now:     time.Now,
	}
}

// CardPriceHistory returns the snapshots of a card from the last days days,
// most recent first, along with its latest snapshot overall. days <= 0
// returns the full history.
func (s *PriceService) CardPriceHistory(ctx context.Context, cardID string, days int) (*models.CardPriceHistory, error) {
	if _, err := s.catalog.GetCard(ctx, cardID); err != nil {
		return nil, err
	}

	history, err := s.prices.FetchPriceHistory(ctx, []string{cardID}, nil)
	if err != nil {
		return nil, err
	}

	resp := &models.CardPriceHistory{
		CardID:    cardID,
		Snapshots: make([]models.PriceSnapshot, 0, len(history)),
	}
	if latest, ok := valuation.LatestSnapshots(history, nil)[cardID]; ok {
		resp.Latest = &latest
		resp.Stale = !s.isFresh(&latest.Date)
	}

	var since time.Time
	if days > 0 {
		since = models.DateOf(s.now()).AddDate(0, 0, -days)
	}
	for _, snap := range history {
		if !since.IsZero() && snap.Date.Before(since) {
			continue
		}
		resp.Snapshots = append(resp.Snapshots, snap)
	}
	return resp, nil
}

// LatestPrice returns the most recent snapshot of a card, or nil when the
// card has never been priced.
func (s *PriceService) LatestPrice(ctx context.Context, cardID string) (*models.PriceSnapshot, error) {
	history, err := s.prices.FetchPriceHistory(ctx, []string{cardID}, nil)
	if err != nil {
		return nil, err
	}
	latest, ok := valuation.LatestSnapshots(history, nil)[cardID]
	if !ok {
		return nil, nil
	}
	return &latest, nil
}

// isFresh checks if a price date is within the staleness threshold
func (s *PriceService) isFresh(date *time.Time) bool {
	if date == nil {
		return false
	}
	return s.now().Sub(*date) < PriceStalenessThreshold
}
