// Package bankcfg loads and resolves per-bank configuration from INI-style
// .conf files and classifies statement files against the loaded banks.
package bankcfg

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"csv2ledger/internal/logging"
)

var log = logging.GetLogger()

// SetLogger allows setting a configured logger.
func SetLogger(logger logging.Logger) {
	if logger != nil {
		log = logger
	}
}

// GlobalConfigName is the reserved config providing bank-independent cleaning
// and fallback categorization rules. It is not a detectable bank.
const GlobalConfigName = "global"

// Detection describes how a bank's statement files are recognized.
type Detection struct {
	FilenamePatterns  []string
	FilenameRegexes   []*regexp.Regexp
	ContentSignatures []string
	RequiredHeaders   []string
	ConfidenceWeight  float64
}

// CSVConfig carries per-bank parsing hints that override detection.
type CSVConfig struct {
	Delimiter string
	QuoteChar string
	Encoding  string
	HasHeader bool
	// HeaderRow is 1-indexed per the config file convention; 0 means unset.
	HeaderRow int
	SkipRows  int
}

// CleaningRule rewrites a description. A rule value of the form
// "pattern|replacement" is a case-insensitive regex substitution; anything
// else is removed as a literal substring.
type CleaningRule struct {
	Name        string
	Pattern     string
	Replacement string
	IsRegex     bool
}

// ConditionalOverride rewrites a row's description when all of its predicates
// hold. Overrides are evaluated in order; the first match wins.
type ConditionalOverride struct {
	Name                string
	AmountMin           *decimal.Decimal
	AmountMax           *decimal.Decimal
	AmountLessThan      *decimal.Decimal
	AmountGreaterThan   *decimal.Decimal
	AmountEquals        *decimal.Decimal
	NoteEquals          string
	NoteContains        string
	DescriptionContains string
	SetDescription      string
}

// CategoryRule maps a regex pattern to a category.
type CategoryRule struct {
	Pattern  string
	Category string
}

// DataCleaning holds per-bank normalization settings.
type DataCleaning struct {
	CurrencySymbols   []string
	DateFormats       []string // Go layouts, already translated from strptime
	DecimalSeparator  string
	ThousandSeparator string
	DescriptionRules  []CleaningRule
}

// BankConfig is the flattened, immutable configuration for one bank. Family
// inheritance is resolved at load time, so consumers never see the chain.
type BankConfig struct {
	Name            string
	DisplayName     string
	PrimaryCurrency string
	// CashewAccount is the default logical account transactions land on when
	// no currency-specific mapping applies.
	CashewAccount string
	Family        string

	Detection Detection
	CSV       CSVConfig

	// ColumnMapping maps canonical field keys (date, amount, title, note,
	// currency, balance, exchange_amount, exchange_currency) to source
	// headers.
	ColumnMapping map[string]string

	// AccountMapping maps an upper-case currency code to a logical account
	// for multi-currency banks.
	AccountMapping map[string]string

	Cleaning DataCleaning

	OutgoingPatterns []string
	IncomingPatterns []string

	CategoryRules        []CategoryRule
	DefaultCategoryRules []CategoryRule

	Overrides []ConditionalOverride
}

// AccountFor resolves the logical account for a currency, falling back to the
// bank's default account.
func (c *BankConfig) AccountFor(currency string) string {
	if c == nil {
		return ""
	}
	if acct, ok := c.AccountMapping[strings.ToUpper(currency)]; ok {
		return acct
	}
	return c.CashewAccount
}

// mergeFrom fills unset fields of c from parent. The bank's own settings
// always win; list-valued rules are parent-first so bank rules can override
// by running later in declaration order where that matters, except
// description rules and overrides, where bank rules run first.
func (c *BankConfig) mergeFrom(parent *BankConfig) {
	if parent == nil {
		return
	}
	if c.PrimaryCurrency == "" {
		c.PrimaryCurrency = parent.PrimaryCurrency
	}
	if c.CashewAccount == "" {
		c.CashewAccount = parent.CashewAccount
	}
	if c.CSV.Delimiter == "" {
		c.CSV.Delimiter = parent.CSV.Delimiter
	}
	if c.CSV.QuoteChar == "" {
		c.CSV.QuoteChar = parent.CSV.QuoteChar
	}
	if c.CSV.Encoding == "" {
		c.CSV.Encoding = parent.CSV.Encoding
	}
	if c.CSV.HeaderRow == 0 {
		c.CSV.HeaderRow = parent.CSV.HeaderRow
	}
	if c.CSV.SkipRows == 0 {
		c.CSV.SkipRows = parent.CSV.SkipRows
	}

	for k, v := range parent.ColumnMapping {
		if _, ok := c.ColumnMapping[k]; !ok {
			c.ColumnMapping[k] = v
		}
	}
	for k, v := range parent.AccountMapping {
		if _, ok := c.AccountMapping[k]; !ok {
			c.AccountMapping[k] = v
		}
	}

	if len(c.Cleaning.DateFormats) == 0 {
		c.Cleaning.DateFormats = parent.Cleaning.DateFormats
	}
	if c.Cleaning.DecimalSeparator == "" {
		c.Cleaning.DecimalSeparator = parent.Cleaning.DecimalSeparator
	}
	if c.Cleaning.ThousandSeparator == "" {
		c.Cleaning.ThousandSeparator = parent.Cleaning.ThousandSeparator
	}
	c.Cleaning.CurrencySymbols = append(c.Cleaning.CurrencySymbols, parent.Cleaning.CurrencySymbols...)
	c.Cleaning.DescriptionRules = append(c.Cleaning.DescriptionRules, parent.Cleaning.DescriptionRules...)
	c.Overrides = append(c.Overrides, parent.Overrides...)

	c.OutgoingPatterns = append(c.OutgoingPatterns, parent.OutgoingPatterns...)
	c.IncomingPatterns = append(c.IncomingPatterns, parent.IncomingPatterns...)
	c.CategoryRules = append(c.CategoryRules, parent.CategoryRules...)
	c.DefaultCategoryRules = append(c.DefaultCategoryRules, parent.DefaultCategoryRules...)
}
