package valuation

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePrice parses a numeric string, falling back to zero when the input
// is not a number.
func ParsePrice(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseNullablePrice is ParsePrice for optional fields: empty input and the
// literal "null" mean "no price", anything else parses with a zero fallback.
func ParseNullablePrice(raw string) decimal.NullDecimal {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "null") {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(ParsePrice(s))
}

// ParseJSONPrice accepts a JSON number, a JSON string holding a number, or
// null. A missing field (empty raw message) is treated like null.
func ParseJSONPrice(raw json.RawMessage) decimal.NullDecimal {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal([]byte(s), &str); err != nil {
			return decimal.NewNullDecimal(decimal.Zero)
		}
		return ParseNullablePrice(str)
	}
	return ParseNullablePrice(s)
}
