package valuation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/codyseavey/tcg-market/internal/models"
)

// VariationWindowDays is the trailing lookback of the variation calculation.
// Eight days guarantees a full week has elapsed across day boundaries.
const VariationWindowDays = 8

var hundred = decimal.NewFromInt(100)

// HoldingValue returns the value of a single holding. A manual price always
// wins, even when it is zero; otherwise the mid price of the card's latest
// snapshot is used, and a missing snapshot or null mid contributes zero.
func HoldingValue(h models.Holding, latest map[string]models.PriceSnapshot) decimal.Decimal {
	if h.Price.Valid {
		return h.Price.Decimal
	}
	mid, _ := midPrice(latest, h.CardID)
	return mid
}

// ComputeTotalValue sums the value of every holding. Copies of the same card
// are separate holdings and each contributes. No rounding is applied.
func ComputeTotalValue(holdings []models.Holding, history []models.PriceSnapshot) decimal.Decimal {
	total := decimal.Zero
	if len(holdings) == 0 {
		return total
	}

	latest := LatestSnapshots(history, nil)
	for _, h := range holdings {
		total = total.Add(HoldingValue(h, latest))
	}
	return total
}

// ComputeVariation measures market movement of the collection between asOf
// and asOf minus VariationWindowDays. Manual prices are ignored: only market
// mid prices are compared.
//
// CurrentTotal and PreviousTotal sum every holding that has a price at the
// respective cutoff. The percentage compares the holdings priced at both
// cutoffs, so cards acquired inside the window do not show up as growth.
// Without any such holding, or with a zero baseline, the variation is 0.
func ComputeVariation(holdings []models.Holding, history []models.PriceSnapshot, asOf time.Time) models.ValuationResult {
	currentCutoff := models.DateOf(asOf)
	previousCutoff := currentCutoff.AddDate(0, 0, -VariationWindowDays)

	result := models.ValuationResult{
		TotalValue: ComputeTotalValue(holdings, history),
		AsOf:       currentCutoff,
	}
	if len(holdings) == 0 {
		return result
	}

	current := LatestSnapshots(history, &currentCutoff)
	previous := LatestSnapshots(history, &previousCutoff)

	for _, h := range holdings {
		cur, hasCurrent := midPrice(current, h.CardID)
		prev, hasPrevious := midPrice(previous, h.CardID)

		if hasCurrent {
			result.CurrentTotal = result.CurrentTotal.Add(cur)
		}
		if hasPrevious {
			result.PreviousTotal = result.PreviousTotal.Add(prev)
		}
		if hasCurrent && hasPrevious {
			result.CardsWithBothPrices++
			result.MatchedCurrentTotal = result.MatchedCurrentTotal.Add(cur)
			result.MatchedPreviousTotal = result.MatchedPreviousTotal.Add(prev)
		}
	}

	if result.PreviousTotal.IsZero() || result.CardsWithBothPrices == 0 || result.MatchedPreviousTotal.IsZero() {
		return result
	}

	result.VariationPercent = result.MatchedCurrentTotal.
		Sub(result.MatchedPreviousTotal).
		Div(result.MatchedPreviousTotal).
		Mul(hundred)
	return result
}
