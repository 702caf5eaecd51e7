package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSnapshot is one market price observation for a catalog card.
// Rows are append-only: they are never updated or deleted once written.
type PriceSnapshot struct {
	ID        uint                `json:"id" gorm:"primaryKey;autoIncrement"`
	CardID    string              `json:"card_id" gorm:"not null;index:idx_market_prices_card_date,priority:1"`
	Date      time.Time           `json:"date" gorm:"not null;index:idx_market_prices_card_date,priority:2"`
	PriceLow  decimal.NullDecimal `json:"price_low" gorm:"type:numeric"`
	PriceMid  decimal.NullDecimal `json:"price_mid" gorm:"type:numeric"`
	PriceHigh decimal.NullDecimal `json:"price_high" gorm:"type:numeric"`
	CreatedAt time.Time           `json:"created_at"`
}

func (PriceSnapshot) TableName() string {
	return "market_prices"
}

// CardPriceHistory is the API response for a card's market price series
type CardPriceHistory struct {
	CardID    string          `json:"card_id"`
	Latest    *PriceSnapshot  `json:"latest"`
	Stale     bool            `json:"stale"` // latest snapshot older than the staleness threshold
	Snapshots []PriceSnapshot `json:"snapshots"` // most recent first
}
