// Package browse implements the filter and sort applied to collection
// listings: a case-insensitive name filter followed by a single sort key.
package browse

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type SortKey string

const (
	SortName        SortKey = "name"
	SortReleaseDate SortKey = "release_date"
	SortValue       SortKey = "value"
	SortOwnedCount  SortKey = "owned_count"
)

// AllSortKeys returns every supported sort key
func AllSortKeys() []SortKey {
	return []SortKey{SortName, SortReleaseDate, SortValue, SortOwnedCount}
}

// Item is anything that can be listed on a collection screen
type Item interface {
	SortName() string
	SortReleaseDate() time.Time
	SortValue() decimal.Decimal
	SortOwnedCount() int
}

type Options struct {
	Query      string
	Sort       SortKey
	Descending bool
}

// ParseOptions builds Options from raw query-string values. Unknown sort
// keys fall back to name; order is "desc" for descending, anything else
// ascending.
func ParseOptions(query, sort, order string) Options {
	key := SortKey(strings.ToLower(strings.TrimSpace(sort)))
	if !slices.Contains(AllSortKeys(), key) {
		key = SortName
	}
	return Options{
		Query:      strings.TrimSpace(query),
		Sort:       key,
		Descending: strings.EqualFold(strings.TrimSpace(order), "desc"),
	}
}

// Apply filters items by name and sorts them by the active key. The input
// slice is left untouched. Items that compare equal keep their input order.
func Apply[T Item](items []T, opts Options) []T {
	needle := strings.ToLower(opts.Query)

	out := make([]T, 0, len(items))
	for _, item := range items {
		if needle == "" || strings.Contains(strings.ToLower(item.SortName()), needle) {
			out = append(out, item)
		}
	}

	compare := comparator[T](opts.Sort)
	slices.SortStableFunc(out, func(a, b T) int {
		if opts.Descending {
			return compare(b, a)
		}
		return compare(a, b)
	})
	return out
}

func comparator[T Item](key SortKey) func(a, b T) int {
	switch key {
	case SortReleaseDate:
		return func(a, b T) int { return a.SortReleaseDate().Compare(b.SortReleaseDate()) }
	case SortValue:
		return func(a, b T) int { return a.SortValue().Cmp(b.SortValue()) }
	case SortOwnedCount:
		return func(a, b T) int { return a.SortOwnedCount() - b.SortOwnedCount() }
	default:
		return func(a, b T) int {
			return strings.Compare(strings.ToLower(a.SortName()), strings.ToLower(b.SortName()))
		}
	}
}
