// Package valuation computes collection values and trailing market
// variation from holdings and market price snapshots. Everything here is
// pure: inputs are never modified and no I/O is performed.
package valuation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/codyseavey/tcg-market/internal/models"
)

// LatestSnapshots returns the most recent snapshot per card whose date is on
// or before cutoff. A nil cutoff considers the whole history.
//
// When several snapshots share the latest date for a card, a non-null mid
// price beats a null one, then the higher mid price wins, then the higher ID.
// The result therefore does not depend on the order of history.
func LatestSnapshots(history []models.PriceSnapshot, cutoff *time.Time) map[string]models.PriceSnapshot {
	var bound time.Time
	if cutoff != nil {
		bound = models.DateOf(*cutoff)
	}

	latest := make(map[string]models.PriceSnapshot)
	for _, snap := range history {
		if cutoff != nil && models.DateOf(snap.Date).After(bound) {
			continue
		}
		current, ok := latest[snap.CardID]
		if !ok || supersedes(snap, current) {
			latest[snap.CardID] = snap
		}
	}
	return latest
}

// supersedes reports whether a should replace b as the latest snapshot
func supersedes(a, b models.PriceSnapshot) bool {
	dayA, dayB := models.DateOf(a.Date), models.DateOf(b.Date)
	if !dayA.Equal(dayB) {
		return dayA.After(dayB)
	}
	if a.PriceMid.Valid != b.PriceMid.Valid {
		return a.PriceMid.Valid
	}
	if a.PriceMid.Valid {
		if c := a.PriceMid.Decimal.Cmp(b.PriceMid.Decimal); c != 0 {
			return c > 0
		}
	}
	return a.ID > b.ID
}

// midPrice returns the mid price of the card's snapshot in latest, if any
func midPrice(latest map[string]models.PriceSnapshot, cardID string) (decimal.Decimal, bool) {
	snap, ok := latest[cardID]
	if !ok || !snap.PriceMid.Valid {
		return decimal.Zero, false
	}
	return snap.PriceMid.Decimal, true
}
