package transfer

import (
	"strings"

	"csv2ledger/internal/models"
)

// pairConversions matches documented currency conversions within a bank.
// Candidates are scanned in index order; the first acceptable partner wins
// and both sides leave the pool.
func (d *Detector) pairConversions(candidates []*models.Transaction, matched map[int]bool) []*Pair {
	var pairs []*Pair
	for i, a := range candidates {
		if matched[a.Index] {
			continue
		}
		descA := parseConversion(a.Description)
		if descA == nil {
			continue
		}
		for _, b := range candidates[i+1:] {
			if matched[b.Index] || b.SourceBank != a.SourceBank {
				continue
			}
			descB := parseConversion(b.Description)
			if descB == nil || !descA.agrees(descB) {
				continue
			}
			if !d.withinTolerance(a.Date, b.Date) {
				continue
			}
			if a.Amount.Sign() == b.Amount.Sign() {
				continue
			}
			if !amountMatchesDescriptor(a, descA) || !amountMatchesDescriptor(b, descB) {
				continue
			}

			out, in := a, b
			if in.IsOutgoing() {
				out, in = b, a
			}
			pairs = append(pairs, &Pair{
				ID:         newPairID(),
				Outgoing:   out,
				Incoming:   in,
				Strategy:   StrategyConversion,
				Confidence: conversionConfidence(out, in, descA, descB),
			})
			matched[a.Index] = true
			matched[b.Index] = true
			break
		}
	}
	return pairs
}

// amountMatchesDescriptor requires the row amount to be one of the two sides
// of the documented conversion.
func amountMatchesDescriptor(t *models.Transaction, desc *conversionDescriptor) bool {
	a := t.Amount.Abs()
	return a.Sub(desc.FromAmount).Abs().LessThan(amountEpsilon) ||
		a.Sub(desc.ToAmount).Abs().LessThan(amountEpsilon)
}

// conversionConfidence scores a conversion pair: 0.5 base, +0.3 for a tight
// out=from/in=to amount match, +0.2 same day, +0.2 when both descriptions
// document the conversion, +0.1 when the descriptors agree exactly.
func conversionConfidence(out, in *models.Transaction, descOut, descIn *conversionDescriptor) float64 {
	conf := 0.5
	if out.Amount.Abs().Sub(descOut.FromAmount).Abs().LessThan(amountEpsilon) &&
		in.Amount.Abs().Sub(descIn.ToAmount).Abs().LessThan(amountEpsilon) {
		conf += 0.3
	}
	if out.SameDay(in) {
		conf += 0.2
	}
	if containsConverted(out.Description) && containsConverted(in.Description) {
		conf += 0.2
	}
	if descOut.equalExactly(descIn) {
		conf += 0.1
	}
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}

func containsConverted(desc string) bool {
	return strings.Contains(strings.ToLower(desc), "converted")
}
