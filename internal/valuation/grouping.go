package valuation

import (
	"cmp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/codyseavey/tcg-market/internal/models"
)

// GroupHoldingsByEdition joins holdings to their catalog card and edition and
// returns one group per edition that has at least one holding. Holdings whose
// card or edition is unknown are skipped.
//
// Groups are ordered by release date, most recent first; a missing release
// date sorts as the epoch (last). Ties fall back to edition name, then ID.
// Cards inside a group are ordered by name, then ID.
func GroupHoldingsByEdition(holdings []models.Holding, cards []models.Card, editions []models.Edition, history []models.PriceSnapshot) []models.EditionGroup {
	cardByID := make(map[string]models.Card, len(cards))
	for _, c := range cards {
		cardByID[c.ID] = c
	}
	editionByID := make(map[string]models.Edition, len(editions))
	for _, e := range editions {
		editionByID[e.ID] = e
	}

	latest := LatestSnapshots(history, nil)

	type bucket struct {
		edition models.Edition
		cards   map[string]*models.CardValuation
	}
	buckets := make(map[string]*bucket)

	for _, h := range holdings {
		card, ok := cardByID[h.CardID]
		if !ok {
			continue
		}
		edition, ok := editionByID[card.EditionID]
		if !ok {
			continue
		}

		b, ok := buckets[edition.ID]
		if !ok {
			b = &bucket{edition: edition, cards: make(map[string]*models.CardValuation)}
			buckets[edition.ID] = b
		}

		cv, ok := b.cards[card.ID]
		if !ok {
			cv = &models.CardValuation{
				Card:        card,
				EditionName: edition.Name,
				ReleaseDate: edition.ReleaseDate,
				Value:       decimal.Zero,
			}
			if snap, found := latest[card.ID]; found {
				cv.MarketPrice = &snap
			}
			b.cards[card.ID] = cv
		}

		cv.OwnedCount++
		cv.Holdings = append(cv.Holdings, h)
		cv.Value = cv.Value.Add(HoldingValue(h, latest))
	}

	groups := make([]models.EditionGroup, 0, len(buckets))
	for _, b := range buckets {
		group := models.EditionGroup{
			Edition:    b.edition,
			Cards:      make([]models.CardValuation, 0, len(b.cards)),
			TotalValue: decimal.Zero,
		}
		for _, cv := range b.cards {
			group.Cards = append(group.Cards, *cv)
			group.OwnedCount += cv.OwnedCount
			group.TotalValue = group.TotalValue.Add(cv.Value)
		}
		slices.SortFunc(group.Cards, func(a, b models.CardValuation) int {
			if c := strings.Compare(a.Card.Name, b.Card.Name); c != 0 {
				return c
			}
			return strings.Compare(a.Card.ID, b.Card.ID)
		})
		groups = append(groups, group)
	}

	slices.SortFunc(groups, func(a, b models.EditionGroup) int {
		if c := b.SortReleaseDate().Compare(a.SortReleaseDate()); c != 0 {
			return c
		}
		if c := strings.Compare(a.Edition.Name, b.Edition.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.Edition.ID, b.Edition.ID)
	})

	return groups
}

// FlattenCards returns every card valuation across groups, in group order
func FlattenCards(groups []models.EditionGroup) []models.CardValuation {
	var out []models.CardValuation
	for _, g := range groups {
		out = append(out, g.Cards...)
	}
	return out
}
