package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerRow is the export shape consumed by personal-finance importers.
// Column order is fixed; all other canonical fields are dropped on export.
type LedgerRow struct {
	Date     string `csv:"Date"`
	Amount   string `csv:"Amount"`
	Category string `csv:"Category"`
	Title    string `csv:"Title"`
	Note     string `csv:"Note"`
	Account  string `csv:"Account"`
}

// FromLedgerRow rebuilds a canonical transaction from an exported row, for
// re-analysis of previously transformed data. Unparseable dates and amounts
// are carried raw; the amount falls back to zero.
func FromLedgerRow(row LedgerRow, index int) *Transaction {
	t := &Transaction{
		Index:       index,
		Category:    row.Category,
		Description: row.Title,
		Note:        row.Note,
		Account:     row.Account,
	}
	if date, err := time.Parse("2006-01-02", row.Date); err == nil {
		t.Date = date
	} else {
		t.RawDate = row.Date
	}
	if amount, err := decimal.NewFromString(row.Amount); err == nil {
		t.Amount = amount
	}
	return t
}

// ToLedgerRow projects a canonical transaction onto the export shape.
func ToLedgerRow(t *Transaction) LedgerRow {
	return LedgerRow{
		Date:     t.DateISO(),
		Amount:   t.Amount.StringFixed(2),
		Category: t.Category,
		Title:    t.Description,
		Note:     t.Note,
		Account:  t.Account,
	}
}
