package transfer

import (
	"github.com/shopspring/decimal"

	"csv2ledger/internal/models"
)

type crossBankMatch struct {
	incoming   *models.Transaction
	strategy   Strategy
	confidence float64
}

// pairCrossBank matches remaining outgoing candidates against incoming
// candidates from other banks. Each outgoing takes its best-confidence
// incoming; ties within epsilon become conflicts and commit nothing.
func (d *Detector) pairCrossBank(candidates []*models.Transaction, matched map[int]bool) ([]*Pair, []Conflict) {
	var pairs []*Pair
	var conflicts []Conflict

	for _, out := range candidates {
		if matched[out.Index] || !out.IsOutgoing() {
			continue
		}
		exchAmount, exchCurrency, hasExchange := exchangeInfo(out)

		var matches []crossBankMatch
		for _, in := range candidates {
			if matched[in.Index] || !in.IsIncoming() {
				continue
			}
			if in.SourceBank == out.SourceBank {
				continue
			}
			if !d.withinTolerance(out.Date, in.Date) {
				continue
			}
			if !d.patterns.gatePasses(out.SourceBank, out.Description, in.SourceBank, in.Description) {
				continue
			}
			if m, ok := d.evaluateStrategies(out, in, exchAmount, exchCurrency, hasExchange); ok {
				matches = append(matches, m)
			}
		}
		if len(matches) == 0 {
			continue
		}

		best := matches[0]
		for _, m := range matches[1:] {
			if m.confidence > best.confidence {
				best = m
			}
		}

		var tied []*models.Transaction
		for _, m := range matches {
			if best.confidence-m.confidence < confidenceEpsilon {
				tied = append(tied, m.incoming)
			}
		}
		if len(tied) > 1 {
			conflicts = append(conflicts, Conflict{
				Outgoing:   out,
				Candidates: tied,
				Confidence: best.confidence,
			})
			continue
		}

		if best.confidence < d.cfg.ConfidenceThreshold {
			continue
		}
		pairs = append(pairs, &Pair{
			ID:         newPairID(),
			Outgoing:   out,
			Incoming:   best.incoming,
			Strategy:   best.strategy,
			Confidence: best.confidence,
		})
		matched[out.Index] = true
		matched[best.incoming.Index] = true
	}
	return pairs, conflicts
}

// evaluateStrategies tries the three cross-bank strategies in priority order
// and returns the first that applies.
func (d *Detector) evaluateStrategies(out, in *models.Transaction, exchAmount decimal.Decimal, exchCurrency string, hasExchange bool) (crossBankMatch, bool) {
	// Strategy A: the outgoing row documents the destination amount.
	if hasExchange && in.Currency == exchCurrency &&
		exchAmount.Sub(in.Amount).Abs().LessThanOrEqual(amountEpsilon) {
		return crossBankMatch{
			incoming:   in,
			strategy:   StrategyExchangeAmount,
			confidence: d.crossBankConfidence(out, in, true),
		}, true
	}

	// Strategy B: plain same-amount match.
	if out.Amount.Abs().Sub(in.Amount).Abs().LessThanOrEqual(amountEpsilon) {
		return crossBankMatch{
			incoming:   in,
			strategy:   StrategyTraditional,
			confidence: d.crossBankConfidence(out, in, false),
		}, true
	}

	// Strategy C: both sides name the user and amounts differ by an implicit
	// FX conversion.
	if d.patterns.mentionsUser(out.Description, d.cfg.UserName) &&
		d.patterns.mentionsUser(in.Description, d.cfg.UserName) &&
		percentageDiff(out.Amount.Abs(), in.Amount) < 1.0 {
		conf := d.crossBankConfidence(out, in, false)
		if conf < DefaultConfidenceThreshold {
			conf = DefaultConfidenceThreshold
		}
		return crossBankMatch{incoming: in, strategy: StrategyFlexible, confidence: conf}, true
	}

	return crossBankMatch{}, false
}

// crossBankConfidence scores a cross-bank pair: 0.5 base, +0.2 for differing
// banks, +0.3 for the exchange-amount strategy, +0.2 same day, +0.1 when both
// descriptions name the user.
func (d *Detector) crossBankConfidence(out, in *models.Transaction, exchangeStrategy bool) float64 {
	conf := 0.5
	if out.SourceBank != in.SourceBank {
		conf += 0.2
	}
	if exchangeStrategy {
		conf += 0.3
	}
	if out.SameDay(in) {
		conf += 0.2
	}
	if d.patterns.mentionsUser(out.Description, d.cfg.UserName) &&
		d.patterns.mentionsUser(in.Description, d.cfg.UserName) {
		conf += 0.1
	}
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}

// percentageDiff is |a-b| relative to the mean of a and b.
func percentageDiff(a, b decimal.Decimal) float64 {
	sum := a.Add(b)
	if sum.IsZero() {
		return 0
	}
	mean := sum.Div(decimal.NewFromInt(2))
	diff, _ := a.Sub(b).Abs().Div(mean).Float64()
	return diff
}
