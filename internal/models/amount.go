package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a raw statement amount into a decimal. It strips
// currency glyphs, whitespace, quotes and thousand-separator commas, treats
// surrounding parentheses as negation and retains a leading sign.
// The boolean is false when the cell was empty or unparseable; the returned
// value is zero in that case.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	return ParseAmountSep(raw, ".", ",")
}

// ParseAmountSep is ParseAmount with configurable decimal and thousand
// separators, for banks that export "1.234,56" style amounts.
func ParseAmountSep(raw, decimalSep, thousandSep string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	// Keep only digits, separators and signs; everything else is a currency
	// glyph, quote or stray letter.
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '-', r == '+':
			b.WriteRune(r)
		case string(r) == decimalSep, string(r) == thousandSep:
			b.WriteRune(r)
		}
	}
	s = b.String()

	if thousandSep != "" {
		s = strings.ReplaceAll(s, thousandSep, "")
	}
	if decimalSep != "." && decimalSep != "" {
		s = strings.ReplaceAll(s, decimalSep, ".")
	}
	s = strings.TrimPrefix(s, "+")

	if s == "" || s == "-" {
		return decimal.Zero, false
	}

	dec, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		dec = dec.Neg()
	}
	return dec, true
}
