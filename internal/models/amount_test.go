package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"plain", "123.45", "123.45", true},
		{"negative", "-50", "-50", true},
		{"leading plus with space", "+ 1,000", "1000", true},
		{"parentheses negation", "(1,234.56)", "-1234.56", true},
		{"currency glyph", "$45.10", "45.1", true},
		{"euro glyph", "€12.00", "12", true},
		{"code suffix", "565.24 USD", "565.24", true},
		{"quoted thousands", "\"200,000.00\"", "200000", true},
		{"empty", "", "0", false},
		{"whitespace", "   ", "0", false},
		{"garbage", "n/a", "0", false},
		{"lone minus", "-", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseAmount(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s want %s", got, tt.want)
		})
	}
}

func TestParseAmountSepEuropean(t *testing.T) {
	got, ok := ParseAmountSep("1.234,56", ",", ".")
	assert.True(t, ok)
	assert.Equal(t, "1234.56", got.StringFixed(2))
}
