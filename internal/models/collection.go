package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Condition string

const (
	ConditionMint      Condition = "M"
	ConditionNearMint  Condition = "NM"
	ConditionExcellent Condition = "EX"
	ConditionGood      Condition = "GD"
	ConditionLightPlay Condition = "LP"
	ConditionPlayed    Condition = "PL"
	ConditionPoor      Condition = "PR"
)

// NormalizeCondition maps free-form condition input to a Condition.
// Returns ConditionNearMint for unknown/empty values.
func NormalizeCondition(condition string) Condition {
	switch strings.ToUpper(strings.TrimSpace(condition)) {
	case "M", "MINT":
		return ConditionMint
	case "EX", "EXCELLENT":
		return ConditionExcellent
	case "GD", "GOOD":
		return ConditionGood
	case "LP", "LIGHT PLAY", "LIGHTLY PLAYED":
		return ConditionLightPlay
	case "PL", "PLAYED":
		return ConditionPlayed
	case "PR", "POOR":
		return ConditionPoor
	default:
		return ConditionNearMint
	}
}

type HoldingStatus string

const (
	HoldingOwned HoldingStatus = "owned"
	HoldingSold  HoldingStatus = "sold"
)

// Holding is one physical card owned by a user. Multiple copies of the
// same card are separate rows.
type Holding struct {
	ID        string              `json:"id" gorm:"primaryKey"`
	UserID    string              `json:"user_id" gorm:"not null;index"`
	CardID    string              `json:"card_id" gorm:"not null;index"`
	Price     decimal.NullDecimal `json:"price" gorm:"type:numeric"` // manual override, set when listing for sale
	Condition Condition           `json:"condition" gorm:"default:'NM'"`
	ForSale   bool                `json:"for_sale"`
	Status    HoldingStatus       `json:"status" gorm:"not null;default:'owned';index"`
	AddedAt   time.Time           `json:"added_at"`
	SoldAt    *time.Time          `json:"sold_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func (Holding) TableName() string {
	return "user_cards"
}

type AddHoldingRequest struct {
	CardID    string          `json:"card_id" binding:"required"`
	Condition string          `json:"condition"`
	Price     json.RawMessage `json:"price"` // number, numeric string or null
	ForSale   bool            `json:"for_sale"`
}

type UpdatePriceRequest struct {
	Price   json.RawMessage `json:"price"` // null clears the manual price
	ForSale *bool           `json:"for_sale"`
}

// MutationResult is returned by every holding mutation. Callers refetch
// valuations when Changed is true.
type MutationResult struct {
	Holding   Holding `json:"holding"`
	Changed   bool    `json:"changed"`
	Operation string  `json:"operation"` // "created", "priced", "sold", "unchanged"
	Message   string  `json:"message,omitempty"`
}

// CardValuation summarizes a user's copies of one card
type CardValuation struct {
	Card        Card            `json:"card"`
	EditionName string          `json:"edition_name"`
	ReleaseDate *time.Time      `json:"release_date"`
	OwnedCount  int             `json:"owned_count"`
	MarketPrice *PriceSnapshot  `json:"market_price,omitempty"` // latest snapshot, if any
	Value       decimal.Decimal `json:"value"`
	Holdings    []Holding       `json:"holdings"`
}

func (v CardValuation) SortName() string           { return v.Card.Name }
func (v CardValuation) SortReleaseDate() time.Time { return releaseOrEpoch(v.ReleaseDate) }
func (v CardValuation) SortValue() decimal.Decimal { return v.Value }
func (v CardValuation) SortOwnedCount() int        { return v.OwnedCount }

// EditionGroup buckets a user's holdings under one edition
type EditionGroup struct {
	Edition    Edition         `json:"edition"`
	Cards      []CardValuation `json:"cards"`
	OwnedCount int             `json:"owned_count"`
	TotalValue decimal.Decimal `json:"total_value"`
}

func (g EditionGroup) SortName() string           { return g.Edition.Name }
func (g EditionGroup) SortReleaseDate() time.Time { return releaseOrEpoch(g.Edition.ReleaseDate) }
func (g EditionGroup) SortValue() decimal.Decimal { return g.TotalValue }
func (g EditionGroup) SortOwnedCount() int        { return g.OwnedCount }

// releaseOrEpoch treats a missing release date as the Unix epoch so it
// sorts as the earliest edition.
func releaseOrEpoch(t *time.Time) time.Time {
	if t == nil {
		return time.Unix(0, 0).UTC()
	}
	return *t
}
