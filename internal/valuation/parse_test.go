package valuation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"12.50", "12.5"},
		{"  7 ", "7"},
		{"0", "0"},
		{"abc", "0"},
		{"", "0"},
		{"$5", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assertDecimal(t, tt.expected, ParsePrice(tt.input))
		})
	}
}

func TestParseNullablePrice(t *testing.T) {
	assert.False(t, ParseNullablePrice("").Valid)
	assert.False(t, ParseNullablePrice(" NULL ").Valid)

	p := ParseNullablePrice("not-a-number")
	assert.True(t, p.Valid)
	assert.True(t, p.Decimal.IsZero())

	p = ParseNullablePrice("19.99")
	assert.True(t, p.Valid)
	assertDecimal(t, "19.99", p.Decimal)
}

func TestParseJSONPrice(t *testing.T) {
	tests := []struct {
		name      string
		raw       json.RawMessage
		wantValid bool
		want      string
	}{
		{"missing", nil, false, ""},
		{"null", json.RawMessage(`null`), false, ""},
		{"number", json.RawMessage(`42.5`), true, "42.5"},
		{"numeric string", json.RawMessage(`"13.00"`), true, "13"},
		{"empty string", json.RawMessage(`""`), false, ""},
		{"garbage string", json.RawMessage(`"n/a"`), true, "0"},
		{"bool", json.RawMessage(`true`), true, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseJSONPrice(tt.raw)
			assert.Equal(t, tt.wantValid, got.Valid)
			if tt.wantValid {
				assertDecimal(t, tt.want, got.Decimal)
			}
		})
	}
}
