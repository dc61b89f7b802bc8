package transfer

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"csv2ledger/internal/models"
)

// Candidate patterns that do not depend on the configured user name.
var (
	conversionRe = regexp.MustCompile(
		`(?i)converted\s+([\d,.]+)\s+([A-Z]{3})\s+(?:from\s+[A-Z]{3}\s+balance\s+)?to\s+([\d,.]+)\s*([A-Z]{3})`)
	conversionLooseRe = regexp.MustCompile(`(?i)\bconverted\b\s+[\d,.]+\s*[A-Z]{3}`)

	genericCandidateRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\btransfer\s+to\s+\w+`),
		regexp.MustCompile(`(?i)\btransfer\s+from\s+\w+`),
		regexp.MustCompile(`(?i)\bincoming\s+fund\s+transfer\b`),
		regexp.MustCompile(`(?i)\bfund\s+transfer\s+from\b`),
	}

	reviewKeywords = []string{"transfer", "convert", "exchange", "send"}
)

// namePlaceholder in bank-config patterns expands to the configured user name.
const namePlaceholder = "{name}"

// patternSet holds the compiled per-user patterns next to the static ones,
// plus each bank's own outgoing/incoming phrasings.
type patternSet struct {
	userSentTo   *regexp.Regexp // "sent (money )to <user>", "transfer to <user>"
	userRecvFrom *regexp.Regexp // "transfer from <user>", "incoming ... from <user>"

	bankOut map[string][]*regexp.Regexp
	bankIn  map[string][]*regexp.Regexp
}

func newPatternSet(userName string, banks map[string]BankDirectionPatterns) *patternSet {
	ps := &patternSet{
		bankOut: make(map[string][]*regexp.Regexp),
		bankIn:  make(map[string][]*regexp.Regexp),
	}
	for bank, dp := range banks {
		ps.bankOut[bank] = compileBankPatterns(bank, dp.Outgoing, userName)
		ps.bankIn[bank] = compileBankPatterns(bank, dp.Incoming, userName)
	}

	if strings.TrimSpace(userName) == "" {
		return ps
	}
	user := regexp.QuoteMeta(strings.TrimSpace(userName))
	ps.userSentTo = regexp.MustCompile(`(?i)(?:sent\s+(?:money\s+)?to|transfer\s+to)\s+` + user + `\b`)
	ps.userRecvFrom = regexp.MustCompile(`(?i)(?:incoming.*transfer\s+from|transfer\s+from|fund\s+transfer\s+from)\s+` + user + `\b`)
	return ps
}

// compileBankPatterns expands the {name} placeholder and compiles each
// pattern case-insensitively. Patterns that need a name when none is
// configured, or that fail to compile, are skipped with a warning.
func compileBankPatterns(bank string, patterns []string, userName string) []*regexp.Regexp {
	user := strings.TrimSpace(userName)
	var res []*regexp.Regexp
	for _, p := range patterns {
		if strings.Contains(p, namePlaceholder) {
			if user == "" {
				continue
			}
			p = strings.ReplaceAll(p, namePlaceholder, regexp.QuoteMeta(user))
		}
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			log.WithError(err).WithField("bank", bank).Warn("Ignoring invalid transfer pattern")
			continue
		}
		res = append(res, re)
	}
	return res
}

// isCandidate reports whether a description marks the transaction as a
// potential transfer, consulting the bank's own patterns when it has any.
func (ps *patternSet) isCandidate(bank, desc string) bool {
	if conversionLooseRe.MatchString(desc) || conversionRe.MatchString(desc) {
		return true
	}
	for _, re := range genericCandidateRes {
		if re.MatchString(desc) {
			return true
		}
	}
	if ps.userSentTo != nil && ps.userSentTo.MatchString(desc) {
		return true
	}
	if ps.userRecvFrom != nil && ps.userRecvFrom.MatchString(desc) {
		return true
	}
	return matchesAny(ps.bankOut[bank], desc) || matchesAny(ps.bankIn[bank], desc)
}

// gatePasses applies the cross-bank direction gate: one side must read as
// outgoing, the other as incoming, in either assignment. Evidence is the
// user-name patterns or the banks' own phrasings; with neither configured
// the gate is skipped.
func (ps *patternSet) gatePasses(outBank, outDesc, inBank, inDesc string) bool {
	if ps.userSentTo == nil && !ps.hasBankPatterns(outBank) && !ps.hasBankPatterns(inBank) {
		return true
	}
	if ps.outgoingEvidence(outBank, outDesc) && ps.incomingEvidence(inBank, inDesc) {
		return true
	}
	if ps.outgoingEvidence(inBank, inDesc) && ps.incomingEvidence(outBank, outDesc) {
		return true
	}
	return false
}

func (ps *patternSet) hasBankPatterns(bank string) bool {
	return len(ps.bankOut[bank]) > 0 || len(ps.bankIn[bank]) > 0
}

func (ps *patternSet) outgoingEvidence(bank, desc string) bool {
	if ps.userSentTo != nil && ps.userSentTo.MatchString(desc) {
		return true
	}
	return matchesAny(ps.bankOut[bank], desc)
}

func (ps *patternSet) incomingEvidence(bank, desc string) bool {
	if ps.userRecvFrom != nil && ps.userRecvFrom.MatchString(desc) {
		return true
	}
	return matchesAny(ps.bankIn[bank], desc)
}

func matchesAny(res []*regexp.Regexp, desc string) bool {
	for _, re := range res {
		if re.MatchString(desc) {
			return true
		}
	}
	return false
}

// mentionsUser reports whether a description contains the user name at all.
func (ps *patternSet) mentionsUser(desc string, userName string) bool {
	if strings.TrimSpace(userName) == "" {
		return false
	}
	return strings.Contains(strings.ToLower(desc), strings.ToLower(strings.TrimSpace(userName)))
}

// conversionDescriptor is the parsed form of a documented conversion.
type conversionDescriptor struct {
	FromAmount   decimal.Decimal
	FromCurrency string
	ToAmount     decimal.Decimal
	ToCurrency   string
}

// parseConversion extracts a conversion descriptor from a description, or
// nil when the description does not document one.
func parseConversion(desc string) *conversionDescriptor {
	m := conversionRe.FindStringSubmatch(desc)
	if m == nil {
		return nil
	}
	from, okFrom := models.ParseAmount(m[1])
	to, okTo := models.ParseAmount(m[3])
	if !okFrom || !okTo {
		return nil
	}
	return &conversionDescriptor{
		FromAmount:   from,
		FromCurrency: strings.ToUpper(m[2]),
		ToAmount:     to,
		ToCurrency:   strings.ToUpper(m[4]),
	}
}

// agrees reports whether two descriptors describe the same conversion within
// the amount epsilon.
func (d *conversionDescriptor) agrees(other *conversionDescriptor) bool {
	return d.FromCurrency == other.FromCurrency &&
		d.ToCurrency == other.ToCurrency &&
		d.FromAmount.Sub(other.FromAmount).Abs().LessThan(amountEpsilon) &&
		d.ToAmount.Sub(other.ToAmount).Abs().LessThan(amountEpsilon)
}

// equalExactly is the stricter form used for the descriptor-agreement bonus.
func (d *conversionDescriptor) equalExactly(other *conversionDescriptor) bool {
	return d.FromCurrency == other.FromCurrency &&
		d.ToCurrency == other.ToCurrency &&
		d.FromAmount.Equal(other.FromAmount) &&
		d.ToAmount.Equal(other.ToAmount)
}

// hasReviewKeyword reports whether a description mentions a transfer-like
// action, used for large-amount review flagging.
func hasReviewKeyword(desc string) bool {
	d := strings.ToLower(desc)
	for _, kw := range reviewKeywords {
		if strings.Contains(d, kw) {
			return true
		}
	}
	return false
}
