package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ValuationResult is the derived, non-persisted valuation of a collection
type ValuationResult struct {
	TotalValue          decimal.Decimal `json:"total_value"`
	VariationPercent    decimal.Decimal `json:"variation_percent"`
	CurrentTotal        decimal.Decimal `json:"current_total"`
	PreviousTotal       decimal.Decimal `json:"previous_total"`
	CardsWithBothPrices int             `json:"cards_with_both_prices"`

	// Totals restricted to holdings priced at both cutoffs; the
	// percentage is computed from these.
	MatchedCurrentTotal  decimal.Decimal `json:"matched_current_total"`
	MatchedPreviousTotal decimal.Decimal `json:"matched_previous_total"`

	AsOf time.Time `json:"as_of"`
}

// CollectionValueSnapshot stores a user's daily collection value for historical tracking
type CollectionValueSnapshot struct {
	ID               uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID           string          `json:"user_id" gorm:"not null;uniqueIndex:idx_user_snapshot_date"`
	SnapshotDate     time.Time       `json:"snapshot_date" gorm:"not null;uniqueIndex:idx_user_snapshot_date"`
	TotalCards       int             `json:"total_cards"`
	TotalValue       decimal.Decimal `json:"total_value" gorm:"type:numeric"`
	VariationPercent decimal.Decimal `json:"variation_percent" gorm:"type:numeric"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ValueHistoryResponse is the API response for value history
type ValueHistoryResponse struct {
	Snapshots []CollectionValueSnapshot `json:"snapshots"`
	Period    string                    `json:"period"` // "week", "month", "3month", "year", "all"
}
