package transfer

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"csv2ledger/internal/logging"
	"csv2ledger/internal/models"
)

// newPairID is swapped in tests for deterministic identifiers.
var newPairID = uuid.NewString

// Detector runs transfer detection over a canonicalized transaction set.
type Detector struct {
	cfg      Config
	patterns *patternSet
}

// NewDetector builds a Detector, filling config defaults.
func NewDetector(cfg Config) *Detector {
	cfg = cfg.withDefaults()
	return &Detector{cfg: cfg, patterns: newPatternSet(cfg.UserName, cfg.BankPatterns)}
}

// Detect identifies transfer pairs among the given transactions. Manual
// pairs, when supplied, are committed first and categorized identically to
// auto-detected ones. Detection never fails a request: an internal panic is
// recovered and reported as a result with no transfers.
func (d *Detector) Detect(transactions []*models.Transaction, manual ...ManualPair) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Transfer detection panicked, returning empty result",
				logging.Field{Key: logging.FieldReason, Value: fmt.Sprint(r)})
			res = emptyResult(transactions)
		}
	}()

	ordered := orderTransactions(transactions)
	res = &Result{States: make(map[int]State, len(ordered))}
	res.Summary.TotalTransactions = len(ordered)

	byIndex := make(map[int]*models.Transaction, len(ordered))
	for _, t := range ordered {
		byIndex[t.Index] = t
		if t.Category != "" {
			res.States[t.Index] = StateCategorizedByKeyword
		} else {
			res.States[t.Index] = StateUncategorized
		}
	}

	var candidates []*models.Transaction
	for _, t := range ordered {
		if d.patterns.isCandidate(t.SourceBank, t.Description) {
			candidates = append(candidates, t)
			res.States[t.Index] = StateCandidate
		}
	}
	res.Candidates = candidates
	res.Summary.Candidates = len(candidates)

	matched := make(map[int]bool)

	for _, m := range manual {
		out, okOut := byIndex[m.OutgoingIndex]
		in, okIn := byIndex[m.IncomingIndex]
		if !okOut || !okIn || matched[out.Index] || matched[in.Index] {
			log.Warn("Ignoring unknown or already-matched manual pair",
				logging.Field{Key: logging.FieldRow, Value: m.OutgoingIndex})
			continue
		}
		res.Pairs = append(res.Pairs, &Pair{
			ID:         newPairID(),
			Outgoing:   out,
			Incoming:   in,
			Strategy:   StrategyManual,
			Confidence: 1.0,
		})
		matched[out.Index] = true
		matched[in.Index] = true
		res.Summary.ManualPairs++
	}

	conversionPairs := d.pairConversions(candidates, matched)
	res.Pairs = append(res.Pairs, conversionPairs...)
	res.Summary.ConversionPairs = len(conversionPairs)

	crossPairs, conflicts := d.pairCrossBank(candidates, matched)
	res.Pairs = append(res.Pairs, crossPairs...)
	res.Summary.CrossBankPairs = len(crossPairs)
	res.Conflicts = conflicts
	res.Summary.Conflicts = len(conflicts)
	for _, c := range conflicts {
		res.States[c.Outgoing.Index] = StateConflicted
	}

	for _, p := range res.Pairs {
		d.categorizePair(p)
		res.States[p.Outgoing.Index] = StateCategorizedAsTransfer
		res.States[p.Incoming.Index] = StateCategorizedAsTransfer
	}
	res.Summary.Pairs = len(res.Pairs)

	d.flagForReview(ordered, candidates, matched, res)
	res.Summary.FlaggedForReview = len(res.FlaggedForReview)

	log.WithFields(
		logging.Field{Key: logging.FieldCount, Value: res.Summary.Pairs},
		logging.Field{Key: "conflicts", Value: res.Summary.Conflicts},
		logging.Field{Key: "flagged", Value: res.Summary.FlaggedForReview},
	).Info("Transfer detection complete")
	return res
}

// categorizePair overrides both members' category and appends the pair tag to
// their notes. This supersedes any earlier keyword categorization.
func (d *Detector) categorizePair(p *Pair) {
	p.Outgoing.Category = d.cfg.PairCategory
	p.Incoming.Category = d.cfg.PairCategory
	p.Outgoing.Note = appendNote(p.Outgoing.Note, pairTag("out", p))
	p.Incoming.Note = appendNote(p.Incoming.Note, pairTag("in", p))
}

func pairTag(direction string, p *Pair) string {
	return fmt.Sprintf("Transfer %s (Pair: %s, Strategy: %s)", direction, p.ID, p.Strategy)
}

func appendNote(note, tag string) string {
	if note == "" {
		return tag
	}
	return note + " | " + tag
}

// flagForReview collects unmatched candidates and large non-candidate
// transactions whose description mentions a transfer keyword.
func (d *Detector) flagForReview(all, candidates []*models.Transaction, matched map[int]bool, res *Result) {
	isCandidate := make(map[int]bool, len(candidates))
	for _, t := range candidates {
		isCandidate[t.Index] = true
	}

	for _, t := range all {
		switch {
		case isCandidate[t.Index]:
			if !matched[t.Index] && res.States[t.Index] != StateConflicted {
				res.States[t.Index] = StateFlaggedUnmatched
				res.FlaggedForReview = append(res.FlaggedForReview, t)
			}
		case t.Amount.Abs().GreaterThanOrEqual(d.cfg.LargeAmountThreshold) && hasReviewKeyword(t.Description):
			res.States[t.Index] = StateFlaggedLargeUnmatched
			res.FlaggedForReview = append(res.FlaggedForReview, t)
		}
	}
}

// withinTolerance checks the date gap against the configured tolerance.
// Transactions without a parsed date never satisfy it.
func (d *Detector) withinTolerance(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= d.cfg.DateTolerance
}

// orderTransactions imposes the deterministic bank+file+row order so repeated
// runs over the same inputs produce identical results.
func orderTransactions(transactions []*models.Transaction) []*models.Transaction {
	ordered := make([]*models.Transaction, len(transactions))
	copy(ordered, transactions)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.SourceBank != b.SourceBank {
			return a.SourceBank < b.SourceBank
		}
		if a.SourceFile != b.SourceFile {
			return a.SourceFile < b.SourceFile
		}
		return a.Index < b.Index
	})
	return ordered
}

func emptyResult(transactions []*models.Transaction) *Result {
	res := &Result{States: make(map[int]State, len(transactions))}
	for _, t := range transactions {
		if t == nil {
			continue
		}
		res.States[t.Index] = StateUncategorized
	}
	res.Summary.TotalTransactions = len(transactions)
	return res
}
