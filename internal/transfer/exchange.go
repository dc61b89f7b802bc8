package transfer

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"csv2ledger/internal/models"
)

// Known spellings of the exchange destination fields across bank exports.
var (
	exchangeAmountAliases = []string{
		"exchange to amount", "exchange_to_amount", "exchangetoamount",
		"exchange amount", "exchange_amount",
	}
	exchangeCurrencyAliases = []string{
		"exchange to currency", "exchange_to_currency", "exchangetocurrency",
		"exchange currency", "exchange_currency", "exchange to", "exchange_to",
	}

	exchangeHintWords = []string{"exchange", "convert", "total", "target", "destination"}
	amountHintWords   = []string{"amount", "value", "sum"}

	currencyCodeRe = regexp.MustCompile(`^[A-Za-z]{3}$`)
)

// exchangeInfo returns the destination amount and currency of a conversion
// recorded on the source row: normalized fields first, then alias columns,
// then a keyword heuristic over the remaining raw columns.
func exchangeInfo(t *models.Transaction) (decimal.Decimal, string, bool) {
	if t.HasExchange {
		return t.ExchangeAmount, t.ExchangeCurrency, true
	}
	if t.Raw == nil {
		return decimal.Zero, "", false
	}

	amount, okAmount := rawAmountField(t, exchangeAmountAliases, nil)
	currency, okCurrency := rawCurrencyField(t, exchangeCurrencyAliases, nil)
	if !okAmount {
		amount, okAmount = rawAmountField(t, nil, exchangeHintWords)
	}
	if !okCurrency {
		currency, okCurrency = rawCurrencyField(t, nil, exchangeHintWords)
	}
	if !okAmount || !okCurrency {
		return decimal.Zero, "", false
	}
	return amount, currency, true
}

// rawAmountField finds an amount column either by exact alias or by the
// keyword heuristic (an exchange hint word plus an amount hint word).
func rawAmountField(t *models.Transaction, aliases, hints []string) (decimal.Decimal, bool) {
	for key, val := range t.Raw {
		k := strings.ToLower(strings.TrimSpace(key))
		if !matchesAlias(k, aliases) && !matchesHints(k, hints, amountHintWords) {
			continue
		}
		if amount, ok := models.ParseAmount(val); ok && !amount.IsZero() {
			return amount.Abs(), true
		}
	}
	return decimal.Zero, false
}

func rawCurrencyField(t *models.Transaction, aliases, hints []string) (string, bool) {
	for key, val := range t.Raw {
		k := strings.ToLower(strings.TrimSpace(key))
		if !matchesAlias(k, aliases) && !matchesHints(k, hints, []string{"currency"}) {
			continue
		}
		v := strings.TrimSpace(val)
		if currencyCodeRe.MatchString(v) {
			return strings.ToUpper(v), true
		}
	}
	return "", false
}

func matchesAlias(key string, aliases []string) bool {
	for _, a := range aliases {
		if key == a {
			return true
		}
	}
	return false
}

func matchesHints(key string, hints, second []string) bool {
	if hints == nil {
		return false
	}
	hintHit := false
	for _, h := range hints {
		if strings.Contains(key, h) {
			hintHit = true
			break
		}
	}
	if !hintHit {
		return false
	}
	for _, s := range second {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}
