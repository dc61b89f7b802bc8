// Package transfer detects internal transfers across the canonicalized
// transaction set: intra-bank currency conversions, cross-bank movements and
// the conflict/review bookkeeping around them.
package transfer

import (
	"time"

	"github.com/shopspring/decimal"

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

// Strategy names a pairing mechanism. The name is recorded on the pair and in
// the note tag appended to both members.
type Strategy string

const (
	StrategyConversion     Strategy = "currency_conversion"
	StrategyExchangeAmount Strategy = "exchange_amount"
	StrategyTraditional    Strategy = "traditional"
	StrategyFlexible       Strategy = "flexible"
	StrategyManual         Strategy = "manual"
)

// State tracks a transaction through detection.
type State int

const (
	StateUncategorized State = iota
	StateCandidate
	StatePaired
	StateCategorizedAsTransfer
	StateConflicted
	StateFlaggedUnmatched
	StateCategorizedByKeyword
	StateFlaggedLargeUnmatched
)

func (s State) String() string {
	switch s {
	case StateCandidate:
		return "candidate"
	case StatePaired:
		return "paired"
	case StateCategorizedAsTransfer:
		return "categorized_as_transfer"
	case StateConflicted:
		return "conflicted"
	case StateFlaggedUnmatched:
		return "flagged_unmatched"
	case StateCategorizedByKeyword:
		return "categorized_by_keyword"
	case StateFlaggedLargeUnmatched:
		return "flagged_large_unmatched"
	default:
		return "uncategorized"
	}
}

// Pair is a committed transfer: one outgoing and one incoming transaction.
type Pair struct {
	ID         string
	Outgoing   *models.Transaction
	Incoming   *models.Transaction
	Strategy   Strategy
	Confidence float64
}

// IsConversion reports whether the pair is an intra-bank currency conversion.
func (p *Pair) IsConversion() bool {
	return p.Strategy == StrategyConversion
}

// Conflict reports an outgoing transaction whose best incoming matches tied
// within epsilon. Nothing is committed for it.
type Conflict struct {
	Outgoing   *models.Transaction
	Candidates []*models.Transaction
	Confidence float64
}

// Summary aggregates counts for reporting.
type Summary struct {
	TotalTransactions int
	Candidates        int
	Pairs             int
	ConversionPairs   int
	CrossBankPairs    int
	ManualPairs       int
	Conflicts         int
	FlaggedForReview  int
}

// Result is the full outcome of a detection run.
type Result struct {
	Pairs            []*Pair
	Candidates       []*models.Transaction
	Conflicts        []Conflict
	FlaggedForReview []*models.Transaction
	States           map[int]State // keyed by transaction index
	Summary          Summary
}

// ManualPair is a caller-confirmed pair, referenced by transaction index.
type ManualPair struct {
	OutgoingIndex int
	IncomingIndex int
}

// BankDirectionPatterns are a bank's own transfer phrasings, taken from its
// config. Patterns are regular expressions matched case-insensitively; the
// literal "{name}" expands to the configured user name.
type BankDirectionPatterns struct {
	Outgoing []string
	Incoming []string
}

// Config parameterizes a Detector.
type Config struct {
	// UserName is the account holder's display name used by the name-based
	// cross-bank gate. When empty, the gate is skipped and only the
	// exchange-amount and same-amount strategies apply across banks.
	UserName string

	DateTolerance       time.Duration
	ConfidenceThreshold float64
	PairCategory        string

	// BankPatterns carries per-bank outgoing/incoming phrasings keyed by the
	// lower-case bank name. They mark candidates and satisfy the cross-bank
	// direction gate alongside the built-in patterns.
	BankPatterns map[string]BankDirectionPatterns

	// LargeAmountThreshold flags unpaired non-candidates at or above this
	// absolute amount when their description mentions a transfer keyword.
	LargeAmountThreshold decimal.Decimal
}

// Defaults for Config fields left at their zero value.
const (
	DefaultDateTolerance       = 72 * time.Hour
	DefaultConfidenceThreshold = 0.7
)

// confidenceEpsilon is the tie window for conflict detection.
const confidenceEpsilon = 0.01

// amountEpsilon is the tolerance for amount equality checks.
var amountEpsilon = decimal.RequireFromString("0.01")

func (c Config) withDefaults() Config {
	if c.DateTolerance <= 0 {
		c.DateTolerance = DefaultDateTolerance
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if c.PairCategory == "" {
		c.PairCategory = models.DefaultTransferCategory
	}
	if c.LargeAmountThreshold.IsZero() {
		c.LargeAmountThreshold = decimal.NewFromInt(10000)
	}
	return c
}
