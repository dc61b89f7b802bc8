// Package cleaning turns parsed row maps into canonical transactions: column
// focusing and renaming, currency injection, numeric and date coercion,
// per-bank description cleaning, conditional overrides and keyword
// categorization.
package cleaning

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"csv2ledger/internal/bankcfg"
	"csv2ledger/internal/categorize"
	"csv2ledger/internal/dateutils"
	"csv2ledger/internal/logging"
	"csv2ledger/internal/models"
)

var log = logging.GetLogger()

// SetLogger allows setting a configured logger.
func SetLogger(logger logging.Logger) {
	if logger != nil {
		log = logger
	}
}

// DefaultCurrency is injected when neither the file nor the bank config
// supplies one.
const DefaultCurrency = "USD"

// Canonical field keys used in column mappings.
const (
	FieldDate             = "date"
	FieldAmount           = "amount"
	FieldTitle            = "title"
	FieldNote             = "note"
	FieldCurrency         = "currency"
	FieldBalance          = "balance"
	FieldExchangeAmount   = "exchange_amount"
	FieldExchangeCurrency = "exchange_currency"
)

// Options parameterizes one normalization run. A nil Bank means identity
// header mapping; callers pass the registry's global config there to still
// get the shared cleaning and fallback category rules.
type Options struct {
	Bank       *bankcfg.BankConfig
	SourceFile string
	SourceBank string
	// IndexOffset is added to every transaction index so indices stay unique
	// across a multi-file session.
	IndexOffset int
}

// Result carries the canonical transactions plus the column mapping that was
// actually used, in both directions, so transformers can re-look-up original
// headers.
type Result struct {
	Transactions   []*models.Transaction
	ColumnMapping  map[string]string // canonical field -> source header
	ReverseMapping map[string]string // source header -> canonical field
	DroppedRows    int
	Warnings       []string
}

// fieldAliases drives identity mapping when the config has no entry for a
// canonical field. Matched case-insensitively, exact first, substring second.
var fieldAliases = map[string][]string{
	FieldDate:             {"date", "booking date", "value date", "transaction date", "completed date", "timestamp", "datum", "fecha", "dátum"},
	FieldAmount:           {"amount", "betrag", "value", "transaction amount", "importe", "összeg"},
	FieldTitle:            {"description", "title", "merchant", "payee", "details", "narrative", "verwendungszweck", "libellé", "concepto"},
	FieldNote:             {"note", "memo", "remarks", "reference"},
	FieldCurrency:         {"currency", "ccy", "währung", "devise", "moneda"},
	FieldBalance:          {"balance", "running balance", "saldo", "solde"},
	FieldExchangeAmount:   {"exchange to amount", "exchange_to_amount", "exchange amount", "exchangetoamount"},
	FieldExchangeCurrency: {"exchange to currency", "exchange_to_currency", "exchange currency", "exchangetocurrency"},
}

// substringOrder fixes the order of the substring fallback pass; amount goes
// last so it cannot claim an exchange-amount column.
var substringOrder = []string{
	FieldDate, FieldTitle, FieldNote, FieldCurrency, FieldBalance,
	FieldExchangeAmount, FieldExchangeCurrency, FieldAmount,
}

// focusKeywords marks columns worth keeping in the raw map even when no
// canonical field claims them.
var focusKeywords = []string{
	"date", "time", "amount", "balance", "desc", "title", "note", "memo",
	"currency", "exchange", "fee", "ref", "value", "payee", "merchant",
}

var whitespaceRe = regexp.MustCompile(`\s+`)

var titleCaser = cases.Title(language.English)

// Normalize converts parsed rows into canonical transactions. The steps run
// in a fixed order; re-running Normalize on its own output is a no-op.
func Normalize(headers []string, rows []map[string]string, opts Options) *Result {
	res := &Result{
		ColumnMapping:  resolveMapping(headers, opts.Bank),
		ReverseMapping: make(map[string]string),
	}
	for field, header := range res.ColumnMapping {
		res.ReverseMapping[header] = field
	}

	cat := newCategorizer(opts.Bank)
	rules := compiledRules(opts.Bank)

	for i, row := range rows {
		t := buildTransaction(row, res.ColumnMapping, opts)
		t.Index = opts.IndexOffset + i

		if !t.HasValidDate() && t.Amount.IsZero() {
			res.DroppedRows++
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("row %d: no valid amount or date, dropped", i))
			continue
		}

		t.Description = applyCleaningRules(t.Description, rules)
		applyOverrides(t, opts.Bank)
		if t.Category == "" {
			t.Category = cat.Categorize(t.Description)
		}
		t.Account = resolveAccount(t.Currency, opts)

		res.Transactions = append(res.Transactions, t)
	}

	log.WithFields(
		logging.Field{Key: logging.FieldFile, Value: opts.SourceFile},
		logging.Field{Key: logging.FieldBank, Value: opts.SourceBank},
		logging.Field{Key: logging.FieldCount, Value: len(res.Transactions)},
	).Debug("Normalized rows")
	return res
}

// resolveMapping picks a source header for each canonical field: the config
// mapping first, then exact alias matches, then substring matches on
// unclaimed headers.
func resolveMapping(headers []string, cfg *bankcfg.BankConfig) map[string]string {
	mapping := make(map[string]string)
	claimed := make(map[string]bool)

	find := func(want string) (string, bool) {
		w := strings.ToLower(strings.TrimSpace(want))
		for _, h := range headers {
			if strings.ToLower(strings.TrimSpace(h)) == w && !claimed[h] {
				return h, true
			}
		}
		return "", false
	}

	if cfg != nil {
		for field, source := range cfg.ColumnMapping {
			if h, ok := find(source); ok {
				mapping[field] = h
				claimed[h] = true
			}
		}
	}

	for _, field := range substringOrder {
		if _, done := mapping[field]; done {
			continue
		}
		for _, alias := range fieldAliases[field] {
			if h, ok := find(alias); ok {
				mapping[field] = h
				claimed[h] = true
				break
			}
		}
	}

	for _, field := range substringOrder {
		if _, done := mapping[field]; done {
			continue
		}
		for _, alias := range fieldAliases[field] {
			for _, h := range headers {
				if claimed[h] {
					continue
				}
				if strings.Contains(strings.ToLower(h), alias) {
					mapping[field] = h
					claimed[h] = true
					break
				}
			}
			if _, done := mapping[field]; done {
				break
			}
		}
	}
	return mapping
}

func buildTransaction(row map[string]string, mapping map[string]string, opts Options) *models.Transaction {
	cfg := opts.Bank
	get := func(field string) string {
		if h, ok := mapping[field]; ok {
			return strings.TrimSpace(row[h])
		}
		return ""
	}

	decSep, thouSep := ".", ","
	var symbols []string
	if cfg != nil {
		if cfg.Cleaning.DecimalSeparator != "" {
			decSep = cfg.Cleaning.DecimalSeparator
		}
		if cfg.Cleaning.ThousandSeparator != "" {
			thouSep = cfg.Cleaning.ThousandSeparator
		}
		symbols = cfg.Cleaning.CurrencySymbols
	}
	parseAmount := func(raw string) (decimal.Decimal, bool) {
		return models.ParseAmountSep(stripCurrencySymbols(raw, symbols), decSep, thouSep)
	}

	t := &models.Transaction{
		Description: get(FieldTitle),
		Note:        get(FieldNote),
		SourceBank:  opts.SourceBank,
		SourceFile:  opts.SourceFile,
		Raw:         focusColumns(row, mapping),
	}

	if amount, ok := parseAmount(get(FieldAmount)); ok {
		t.Amount = amount
	}
	if raw := get(FieldBalance); raw != "" {
		if balance, ok := parseAmount(raw); ok {
			t.Balance = balance
			t.HasBalance = true
		}
	}

	var extraLayouts []string
	if cfg != nil {
		extraLayouts = cfg.Cleaning.DateFormats
	}
	rawDate := get(FieldDate)
	if parsed, _, err := dateutils.ParseDate(rawDate, extraLayouts...); err == nil {
		t.Date = parsed
	} else {
		t.RawDate = rawDate
	}

	t.Currency = strings.ToUpper(get(FieldCurrency))
	if t.Currency == "" {
		if cfg != nil && cfg.PrimaryCurrency != "" {
			t.Currency = cfg.PrimaryCurrency
		} else {
			t.Currency = DefaultCurrency
		}
	}

	if raw := get(FieldExchangeAmount); raw != "" {
		if amount, ok := parseAmount(raw); ok {
			t.ExchangeAmount = amount.Abs()
			t.ExchangeCurrency = strings.ToUpper(get(FieldExchangeCurrency))
			t.HasExchange = t.ExchangeCurrency != ""
		}
	}
	return t
}

// stripCurrencySymbols removes the bank's configured currency markers before
// numeric parsing. Symbols like "Fr." contain a separator character and would
// otherwise corrupt the parse.
func stripCurrencySymbols(raw string, symbols []string) string {
	for _, sym := range symbols {
		if sym == "" {
			continue
		}
		raw = strings.ReplaceAll(raw, sym, "")
	}
	return raw
}

// focusColumns keeps only mapped columns and columns whose header mentions a
// common transaction concern.
func focusColumns(row map[string]string, mapping map[string]string) map[string]string {
	mapped := make(map[string]bool, len(mapping))
	for _, h := range mapping {
		mapped[h] = true
	}
	out := make(map[string]string)
	for header, val := range row {
		if mapped[header] || hasFocusKeyword(header) {
			out[header] = val
		}
	}
	return out
}

func hasFocusKeyword(header string) bool {
	h := strings.ToLower(header)
	for _, kw := range focusKeywords {
		if strings.Contains(h, kw) {
			return true
		}
	}
	return false
}

type compiledRule struct {
	re          *regexp.Regexp
	replacement string
	literal     string
}

func compiledRules(cfg *bankcfg.BankConfig) []compiledRule {
	if cfg == nil {
		return nil
	}
	rules := make([]compiledRule, 0, len(cfg.Cleaning.DescriptionRules))
	for _, r := range cfg.Cleaning.DescriptionRules {
		if r.IsRegex {
			re, err := regexp.Compile("(?i)" + r.Pattern)
			if err != nil {
				log.WithError(err).WithField("rule", r.Name).Warn("Ignoring invalid cleaning rule")
				continue
			}
			rules = append(rules, compiledRule{re: re, replacement: r.Replacement})
			continue
		}
		re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(r.Pattern))
		if err != nil {
			continue
		}
		rules = append(rules, compiledRule{re: re, literal: r.Pattern})
	}
	return rules
}

// applyCleaningRules runs the description rules in order and collapses
// whitespace afterwards.
func applyCleaningRules(desc string, rules []compiledRule) string {
	for _, r := range rules {
		desc = r.re.ReplaceAllString(desc, r.replacement)
	}
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(desc), " ")
}

// applyOverrides evaluates the conditional overrides in order; the first rule
// whose predicates all hold rewrites the description and stops evaluation.
func applyOverrides(t *models.Transaction, cfg *bankcfg.BankConfig) {
	if cfg == nil {
		return
	}
	for _, o := range cfg.Overrides {
		if overrideMatches(t, &o) {
			t.Description = o.SetDescription
			return
		}
	}
}

func overrideMatches(t *models.Transaction, o *bankcfg.ConditionalOverride) bool {
	if o.AmountMin != nil && t.Amount.LessThan(*o.AmountMin) {
		return false
	}
	if o.AmountMax != nil && t.Amount.GreaterThan(*o.AmountMax) {
		return false
	}
	if o.AmountLessThan != nil && !t.Amount.LessThan(*o.AmountLessThan) {
		return false
	}
	if o.AmountGreaterThan != nil && !t.Amount.GreaterThan(*o.AmountGreaterThan) {
		return false
	}
	if o.AmountEquals != nil && !t.Amount.Equal(*o.AmountEquals) {
		return false
	}
	if o.NoteEquals != "" && !strings.EqualFold(strings.TrimSpace(t.Note), o.NoteEquals) {
		return false
	}
	if o.NoteContains != "" && !containsFold(t.Note, o.NoteContains) {
		return false
	}
	if o.DescriptionContains != "" && !containsFold(t.Description, o.DescriptionContains) {
		return false
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func newCategorizer(cfg *bankcfg.BankConfig) *categorize.Categorizer {
	if cfg == nil {
		return categorize.New()
	}
	return categorize.New(cfg.CategoryRules, cfg.DefaultCategoryRules)
}

// resolveAccount applies the account fallback chain: currency mapping, bank
// default, then a name derived from the file name.
func resolveAccount(currency string, opts Options) string {
	if opts.Bank != nil {
		if acct := opts.Bank.AccountFor(currency); acct != "" {
			return acct
		}
	}
	return accountFromFilename(opts.SourceFile)
}

// accountFromFilename turns "wise_usd-2025.csv" into "Wise Usd 2025".
func accountFromFilename(path string) string {
	if path == "" {
		return ""
	}
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return titleCaser.String(whitespaceRe.ReplaceAllString(strings.TrimSpace(base), " "))
}
