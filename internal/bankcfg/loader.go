package bankcfg

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/ini.v1"

	"csv2ledger/internal/dateutils"
	"csv2ledger/internal/logging"
)

// ConfigExt is the extension bank config files carry.
const ConfigExt = ".conf"

// overrideSectionPrefix marks the ordered conditional-override sections.
// Overrides apply in the order their sections appear in the file.
const overrideSectionPrefix = "conditional_override"

// LoadDir reads every .conf file in dir, resolves family inheritance and
// returns the bank configs keyed by bank name, plus the reserved global
// config when present. Family files referenced by a bank are treated as
// partial configs and are not returned as banks themselves.
func LoadDir(dir string) (map[string]*BankConfig, *BankConfig, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config directory %s: %w", dir, err)
	}

	raw := make(map[string]*BankConfig)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ConfigExt) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ConfigExt)
		if name == "app" {
			continue
		}
		cfg, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.WithError(err).WithField(logging.FieldFile, entry.Name()).
				Warn("Skipping unreadable bank config")
			continue
		}
		raw[cfg.Name] = cfg
	}

	families := make(map[string]bool)
	for _, cfg := range raw {
		if cfg.Family != "" {
			families[cfg.Family] = true
		}
	}

	banks := make(map[string]*BankConfig, len(raw))
	resolved := make(map[string]bool)
	var global *BankConfig
	for name, cfg := range raw {
		if name == GlobalConfigName {
			global = cfg
			continue
		}
		if families[name] {
			continue
		}
		if err := resolveFamily(cfg, raw, resolved, nil); err != nil {
			log.WithError(err).WithField("bank", name).Warn("Skipping bank with broken family chain")
			continue
		}
		cfg.mergeFrom(raw[GlobalConfigName])
		banks[name] = cfg
	}
	return banks, global, nil
}

// resolveFamily flattens the inheritance chain onto cfg, at most once per
// config so shared family files do not get merged twice. Cycles and missing
// family files fail the bank.
func resolveFamily(cfg *BankConfig, all map[string]*BankConfig, resolved map[string]bool, seen []string) error {
	if cfg.Family == "" || resolved[cfg.Name] {
		return nil
	}
	for _, s := range seen {
		if s == cfg.Family {
			return fmt.Errorf("family cycle involving %s", cfg.Family)
		}
	}
	parent, ok := all[cfg.Family]
	if !ok {
		return fmt.Errorf("family config %s not found", cfg.Family)
	}
	if err := resolveFamily(parent, all, resolved, append(seen, cfg.Name)); err != nil {
		return err
	}
	cfg.mergeFrom(parent)
	resolved[cfg.Name] = true
	return nil
}

// LoadFile parses a single bank config file. The bank name defaults to the
// file name without extension.
func LoadFile(path string) (*BankConfig, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := &BankConfig{
		Name:           strings.TrimSuffix(filepath.Base(path), ConfigExt),
		ColumnMapping:  make(map[string]string),
		AccountMapping: make(map[string]string),
		Detection:      Detection{ConfidenceWeight: 1.0},
		CSV:            CSVConfig{HasHeader: true},
	}

	info := f.Section("bank_info")
	if n := info.Key("name").String(); n != "" {
		cfg.Name = n
	}
	cfg.DisplayName = info.Key("display_name").String()
	if cfg.DisplayName == "" {
		cfg.DisplayName = cfg.Name
	}
	cfg.PrimaryCurrency = strings.ToUpper(info.Key("currency").String())
	cfg.CashewAccount = info.Key("account").String()
	cfg.Family = info.Key("family").String()

	cfg.Detection.FilenamePatterns = splitList(info.Key("filename_patterns").String())
	for _, expr := range splitList(info.Key("filename_regex").String()) {
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			log.WithError(err).WithField("bank", cfg.Name).Warn("Ignoring invalid filename regex")
			continue
		}
		cfg.Detection.FilenameRegexes = append(cfg.Detection.FilenameRegexes, re)
	}
	cfg.Detection.ContentSignatures = splitList(info.Key("content_signatures").String())
	cfg.Detection.RequiredHeaders = splitList(info.Key("expected_headers").String())
	if info.HasKey("confidence_weight") {
		cfg.Detection.ConfidenceWeight = info.Key("confidence_weight").MustFloat64(1.0)
	}

	cfg.OutgoingPatterns = splitList(info.Key("outgoing_patterns").String())
	cfg.IncomingPatterns = splitList(info.Key("incoming_patterns").String())

	csvSec := f.Section("csv_config")
	cfg.CSV.Delimiter = normalizeDelimiter(csvSec.Key("delimiter").String())
	cfg.CSV.QuoteChar = csvSec.Key("quote_char").String()
	cfg.CSV.Encoding = strings.ToLower(csvSec.Key("encoding").String())
	cfg.CSV.HasHeader = csvSec.Key("has_header").MustBool(true)
	cfg.CSV.HeaderRow = csvSec.Key("header_row").MustInt(0)
	cfg.CSV.SkipRows = csvSec.Key("skip_rows").MustInt(0)

	for _, key := range f.Section("column_mapping").KeyStrings() {
		field := strings.ToLower(key)
		if field == "description" {
			field = "title"
		}
		cfg.ColumnMapping[field] = f.Section("column_mapping").Key(key).String()
	}
	for _, key := range f.Section("account_mapping").KeyStrings() {
		cfg.AccountMapping[strings.ToUpper(key)] = f.Section("account_mapping").Key(key).String()
	}

	cleaning := f.Section("data_cleaning")
	cfg.Cleaning.CurrencySymbols = splitList(cleaning.Key("currency_symbols").String())
	cfg.Cleaning.DateFormats = dateutils.LayoutsFromConfig(splitList(cleaning.Key("date_formats").String()))
	cfg.Cleaning.DecimalSeparator = cleaning.Key("decimal_separator").String()
	cfg.Cleaning.ThousandSeparator = cleaning.Key("thousand_separator").String()
	cfg.Cleaning.DescriptionRules = parseCleaningRules(f.Section("description_cleaning"))

	cfg.CategoryRules = parseCategoryRules(f.Section("categorization"))
	cfg.DefaultCategoryRules = parseCategoryRules(f.Section("default_category_rules"))

	overrides, err := parseOverrides(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Overrides = overrides

	return cfg, nil
}

// parseCleaningRules builds description rules in declaration order. A value
// of the form "pattern|replacement" is a regex substitution; anything else is
// a literal substring to remove.
func parseCleaningRules(sec *ini.Section) []CleaningRule {
	var rules []CleaningRule
	for _, name := range sec.KeyStrings() {
		val := sec.Key(name).String()
		rule := CleaningRule{Name: name, Pattern: val}
		if idx := strings.Index(val, "|"); idx >= 0 {
			rule.Pattern = val[:idx]
			rule.Replacement = val[idx+1:]
			rule.IsRegex = true
		}
		if rule.Pattern == "" {
			continue
		}
		rules = append(rules, rule)
	}
	return rules
}

// parseCategoryRules reads pattern = category pairs.
func parseCategoryRules(sec *ini.Section) []CategoryRule {
	var rules []CategoryRule
	for _, pattern := range sec.KeyStrings() {
		category := sec.Key(pattern).String()
		if category == "" {
			continue
		}
		rules = append(rules, CategoryRule{Pattern: pattern, Category: category})
	}
	return rules
}

// parseOverrides collects conditional_override_* sections in file order.
func parseOverrides(f *ini.File) ([]ConditionalOverride, error) {
	var overrides []ConditionalOverride
	for _, name := range f.SectionStrings() {
		if !strings.HasPrefix(name, overrideSectionPrefix) {
			continue
		}
		sec := f.Section(name)
		o := ConditionalOverride{
			Name:                name,
			NoteEquals:          sec.Key("if_note_equals").String(),
			NoteContains:        sec.Key("if_note_contains").String(),
			DescriptionContains: sec.Key("if_description_contains").String(),
			SetDescription:      sec.Key("set_description").String(),
		}
		if o.SetDescription == "" {
			return nil, fmt.Errorf("override %s has no set_description", name)
		}
		var err error
		if o.AmountMin, err = parseAmountKey(sec, "if_amount_min"); err != nil {
			return nil, fmt.Errorf("override %s: %w", name, err)
		}
		if o.AmountMax, err = parseAmountKey(sec, "if_amount_max"); err != nil {
			return nil, fmt.Errorf("override %s: %w", name, err)
		}
		if o.AmountLessThan, err = parseAmountKey(sec, "if_amount_less_than"); err != nil {
			return nil, fmt.Errorf("override %s: %w", name, err)
		}
		if o.AmountGreaterThan, err = parseAmountKey(sec, "if_amount_greater_than"); err != nil {
			return nil, fmt.Errorf("override %s: %w", name, err)
		}
		if o.AmountEquals, err = parseAmountKey(sec, "if_amount_equals"); err != nil {
			return nil, fmt.Errorf("override %s: %w", name, err)
		}
		overrides = append(overrides, o)
	}
	return overrides, nil
}

func parseAmountKey(sec *ini.Section, key string) (*decimal.Decimal, error) {
	if !sec.HasKey(key) {
		return nil, nil
	}
	val := strings.TrimSpace(sec.Key(key).String())
	if val == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(val)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q", key, val)
	}
	return &d, nil
}

// splitList splits a comma-separated multi-value key, dropping empties.
func splitList(val string) []string {
	if strings.TrimSpace(val) == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeDelimiter maps config spellings of the delimiter to the literal
// character.
func normalizeDelimiter(val string) string {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "":
		return ""
	case "tab", `\t`:
		return "\t"
	case "semicolon":
		return ";"
	case "comma":
		return ","
	case "pipe":
		return "|"
	default:
		return val
	}
}
