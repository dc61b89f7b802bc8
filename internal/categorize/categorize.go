// Package categorize assigns categories to transactions by matching
// configured regex patterns against cleaned descriptions.
package categorize

import (
	"regexp"

	"csv2ledger/internal/bankcfg"
	"csv2ledger/internal/logging"
)

var log = logging.GetLogger()

// SetLogger allows setting a configured logger.
func SetLogger(logger logging.Logger) {
	if logger != nil {
		log = logger
	}
}

type rule struct {
	pattern  string
	category string
	re       *regexp.Regexp
}

// Categorizer matches descriptions against the union of bank-scoped and
// default category rules. Matching is case-insensitive on word boundaries;
// among matching rules the longest pattern string wins.
type Categorizer struct {
	rules []rule
}

// New compiles the given rule sets into a Categorizer. Invalid patterns are
// logged and skipped.
func New(ruleSets ...[]bankcfg.CategoryRule) *Categorizer {
	c := &Categorizer{}
	for _, set := range ruleSets {
		for _, r := range set {
			re, err := regexp.Compile(`(?i)\b(?:` + r.Pattern + `)\b`)
			if err != nil {
				log.WithError(err).WithField(logging.FieldCategory, r.Category).
					Warn("Ignoring invalid category pattern")
				continue
			}
			c.rules = append(c.rules, rule{pattern: r.Pattern, category: r.Category, re: re})
		}
	}
	return c
}

// Categorize returns the category for a description, or "" when no rule
// matches.
func (c *Categorizer) Categorize(description string) string {
	best := ""
	bestLen := -1
	for _, r := range c.rules {
		if !r.re.MatchString(description) {
			continue
		}
		if len(r.pattern) > bestLen {
			best, bestLen = r.category, len(r.pattern)
		}
	}
	return best
}

// RuleCount reports how many rules compiled successfully.
func (c *Categorizer) RuleCount() int {
	return len(c.rules)
}
