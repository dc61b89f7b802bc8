// Package models provides the data structures shared across the pipeline.
package models

import (
	"time"

	"github.com/shopspring/decimal"

	"csv2ledger/internal/dateutils"
)

// Canonical column names used after normalization. Every cleaned row is keyed
// by a subset of these plus any bank-specific raw columns kept aside.
const (
	ColDate     = "Date"
	ColAmount   = "Amount"
	ColTitle    = "Title"
	ColNote     = "Note"
	ColCurrency = "Currency"
	ColBalance  = "Balance"
)

// Category constants.
const (
	CategoryUncategorized = "Uncategorized"

	// DefaultTransferCategory is assigned to both members of a committed
	// transfer pair unless overridden in the app configuration.
	DefaultTransferCategory = "Balance Correction"
)

// Transaction is a canonical, normalized statement row. It is created during
// normalization, mutated only by the cleaning, categorization and
// transfer-detection stages, and treated as immutable once emitted.
type Transaction struct {
	// Index uniquely identifies the row within a processing session and is
	// stable across pipeline stages. Within a file it follows source order.
	Index int

	Date    time.Time
	RawDate string // original value when parsing failed; empty otherwise

	Amount   decimal.Decimal
	Currency string // ISO-4217, uppercase

	Description string
	Note        string
	Category    string
	Account     string

	Balance    decimal.Decimal
	HasBalance bool

	SourceBank string // lower-case bank key, empty when undetected
	SourceFile string

	// Destination side of a documented currency conversion, when the source
	// row carries one.
	ExchangeAmount   decimal.Decimal
	ExchangeCurrency string
	HasExchange      bool

	// Raw preserves the original source fields for audit and fallback
	// lookups.
	Raw map[string]string
}

// IsOutgoing reports whether the transaction is an outflow.
func (t *Transaction) IsOutgoing() bool {
	return t.Amount.IsNegative()
}

// IsIncoming reports whether the transaction is an inflow.
func (t *Transaction) IsIncoming() bool {
	return t.Amount.IsPositive()
}

// DateISO returns the transaction date formatted as YYYY-MM-DD, or the raw
// source value when the date never parsed.
func (t *Transaction) DateISO() string {
	if t.Date.IsZero() {
		return t.RawDate
	}
	return dateutils.ToISODate(t.Date)
}

// HasValidDate reports whether the date parsed during normalization.
func (t *Transaction) HasValidDate() bool {
	return !t.Date.IsZero()
}

// SameDay reports whether two transactions fall on the same calendar day.
func (t *Transaction) SameDay(other *Transaction) bool {
	return t.Date.Year() == other.Date.Year() && t.Date.YearDay() == other.Date.YearDay()
}

// Clone returns a deep copy; the Raw map is copied as well.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.Raw != nil {
		c.Raw = make(map[string]string, len(t.Raw))
		for k, v := range t.Raw {
			c.Raw[k] = v
		}
	}
	return &c
}
