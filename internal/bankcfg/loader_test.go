package bankcfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wiseConf = `[bank_info]
name = wise
display_name = Wise
currency = USD
account = Wise USD
filename_patterns = wise, transferwise
content_signatures = TransferWise Ltd
expected_headers = Date, Amount, Description, Currency
outgoing_patterns = Sent money to {name}
incoming_patterns = Received money from {name}

[csv_config]
delimiter = comma
has_header = true
header_row = 1

[column_mapping]
date = Date
amount = Amount
description = Description
currency = Currency

[account_mapping]
USD = Wise USD
EUR = Wise EUR

[data_cleaning]
currency_symbols = $
date_formats = %d-%m-%Y
decimal_separator = .

[description_cleaning]
card_prefix = Card transaction of \d+ [A-Z]{3} issued by |
old_suffix = (legacy)

[categorization]
Shell.*Petrol = Transport

[conditional_override_1]
if_description_contains = Outgoing fund transfer to
if_amount_min = -2000
if_amount_max = -0.01
if_note_equals = Raast Out
set_description = Ride Hailing Services
`

func writeConf(t *testing.T, dir, name, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o600))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	writeConf(t, dir, "wise.conf", wiseConf)

	cfg, err := LoadFile(filepath.Join(dir, "wise.conf"))
	require.NoError(t, err)

	assert.Equal(t, "wise", cfg.Name)
	assert.Equal(t, "Wise", cfg.DisplayName)
	assert.Equal(t, "USD", cfg.PrimaryCurrency)
	assert.Equal(t, "Wise USD", cfg.CashewAccount)
	assert.Equal(t, []string{"wise", "transferwise"}, cfg.Detection.FilenamePatterns)
	assert.Equal(t, 1.0, cfg.Detection.ConfidenceWeight)
	assert.Equal(t, []string{"Sent money to {name}"}, cfg.OutgoingPatterns)

	assert.Equal(t, ",", cfg.CSV.Delimiter)
	assert.True(t, cfg.CSV.HasHeader)
	assert.Equal(t, 1, cfg.CSV.HeaderRow)

	// "description" aliases the canonical "title" field.
	assert.Equal(t, "Description", cfg.ColumnMapping["title"])
	assert.Equal(t, "Date", cfg.ColumnMapping["date"])
	assert.Equal(t, "Wise EUR", cfg.AccountMapping["EUR"])

	// strptime date formats are translated to Go layouts at load time.
	assert.Equal(t, []string{"02-01-2006"}, cfg.Cleaning.DateFormats)

	require.Len(t, cfg.Cleaning.DescriptionRules, 2)
	assert.True(t, cfg.Cleaning.DescriptionRules[0].IsRegex)
	assert.Equal(t, "", cfg.Cleaning.DescriptionRules[0].Replacement)
	assert.False(t, cfg.Cleaning.DescriptionRules[1].IsRegex)
	assert.Equal(t, "(legacy)", cfg.Cleaning.DescriptionRules[1].Pattern)

	require.Len(t, cfg.CategoryRules, 1)
	assert.Equal(t, "Shell.*Petrol", cfg.CategoryRules[0].Pattern)
	assert.Equal(t, "Transport", cfg.CategoryRules[0].Category)

	require.Len(t, cfg.Overrides, 1)
	o := cfg.Overrides[0]
	assert.Equal(t, "Outgoing fund transfer to", o.DescriptionContains)
	assert.Equal(t, "Raast Out", o.NoteEquals)
	assert.Equal(t, "Ride Hailing Services", o.SetDescription)
	require.NotNil(t, o.AmountMin)
	assert.True(t, o.AmountMin.Equal(decimal.NewFromInt(-2000)))
	require.NotNil(t, o.AmountMax)
	assert.True(t, o.AmountMax.Equal(decimal.RequireFromString("-0.01")))
}

func TestLoadFileOverrideWithoutAction(t *testing.T) {
	dir := t.TempDir()
	writeConf(t, dir, "bad.conf", "[conditional_override_1]\nif_note_equals = x\n")

	_, err := LoadFile(filepath.Join(dir, "bad.conf"))
	assert.Error(t, err)
}

func TestLoadFileNameDefaultsToFileName(t *testing.T) {
	dir := t.TempDir()
	writeConf(t, dir, "mybank.conf", "[csv_config]\ndelimiter = tab\n")

	cfg, err := LoadFile(filepath.Join(dir, "mybank.conf"))
	require.NoError(t, err)
	assert.Equal(t, "mybank", cfg.Name)
	assert.Equal(t, "\t", cfg.CSV.Delimiter)
}

func TestLoadDirFamilyInheritance(t *testing.T) {
	dir := t.TempDir()
	writeConf(t, dir, "wise_family.conf", `[bank_info]
currency = USD
[column_mapping]
date = Date
amount = Amount
[description_cleaning]
shared = Card transaction prefix
`)
	writeConf(t, dir, "wise_usd.conf", `[bank_info]
family = wise_family
account = Wise USD
[column_mapping]
note = Note
[description_cleaning]
own = Own rule text
`)

	banks, _, err := LoadDir(dir)
	require.NoError(t, err)

	assert.NotContains(t, banks, "wise_family")
	cfg := banks["wise_usd"]
	require.NotNil(t, cfg)

	// Inherited where unset, own values kept.
	assert.Equal(t, "USD", cfg.PrimaryCurrency)
	assert.Equal(t, "Wise USD", cfg.CashewAccount)
	assert.Equal(t, "Date", cfg.ColumnMapping["date"])
	assert.Equal(t, "Note", cfg.ColumnMapping["note"])

	// Bank rules run before family rules.
	require.Len(t, cfg.Cleaning.DescriptionRules, 2)
	assert.Equal(t, "own", cfg.Cleaning.DescriptionRules[0].Name)
	assert.Equal(t, "shared", cfg.Cleaning.DescriptionRules[1].Name)
}

func TestLoadDirGlobalConfig(t *testing.T) {
	dir := t.TempDir()
	writeConf(t, dir, "global.conf", `[default_category_rules]
grocery = Groceries
`)
	writeConf(t, dir, "acme.conf", `[bank_info]
currency = EUR
`)

	banks, global, err := LoadDir(dir)
	require.NoError(t, err)
	require.NotNil(t, global)
	assert.NotContains(t, banks, GlobalConfigName)

	cfg := banks["acme"]
	require.NotNil(t, cfg)
	require.Len(t, cfg.DefaultCategoryRules, 1)
	assert.Equal(t, "Groceries", cfg.DefaultCategoryRules[0].Category)
}

func TestLoadDirSkipsBrokenFamilyChain(t *testing.T) {
	dir := t.TempDir()
	writeConf(t, dir, "orphan.conf", `[bank_info]
family = missing_family
`)

	banks, _, err := LoadDir(dir)
	require.NoError(t, err)
	assert.NotContains(t, banks, "orphan")
}

func TestAccountFor(t *testing.T) {
	cfg := &BankConfig{
		CashewAccount:  "Main",
		AccountMapping: map[string]string{"EUR": "Euro Account"},
	}
	assert.Equal(t, "Euro Account", cfg.AccountFor("eur"))
	assert.Equal(t, "Main", cfg.AccountFor("CHF"))
}

func TestNormalizeDelimiter(t *testing.T) {
	assert.Equal(t, "\t", normalizeDelimiter("tab"))
	assert.Equal(t, ";", normalizeDelimiter("semicolon"))
	assert.Equal(t, ";", normalizeDelimiter(";"))
	assert.Equal(t, "", normalizeDelimiter(""))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b c"}, splitList(" a , b c ,"))
	assert.Nil(t, splitList("  "))
}
