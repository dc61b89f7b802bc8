// Package dialect infers the CSV dialect of a statement export: delimiter,
// quote character, quoting mode and line terminator.
package dialect

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"csv2ledger/internal/encoding"
	"csv2ledger/internal/logging"
	"csv2ledger/internal/parsererror"
)

var log = logging.GetLogger()

// SetLogger allows setting a configured logger.
func SetLogger(logger logging.Logger) {
	if logger != nil {
		log = logger
	}
}

// Quoting modes.
const (
	QuotingAll     = "ALL"
	QuotingMinimal = "MINIMAL"
	QuotingNone    = "NONE"
)

// DefaultSampleLines is how many non-empty lines the detector inspects.
const DefaultSampleLines = 10

// terminatorSampleSize is the binary sample used for line-terminator tallies.
const terminatorSampleSize = 8 * 1024

var delimiterCandidates = []rune{',', ';', '\t', '|', ':'}
var quoteCandidates = []rune{'"', '\''}

// Dialect describes how a CSV file is structured on the wire.
type Dialect struct {
	Delimiter        rune
	QuoteChar        rune
	Quoting          string
	SkipInitialSpace bool
	LineTerminator   string
	Confidence       float64
}

// Detector infers dialects from file samples.
type Detector struct {
	SampleLines int
}

// NewDetector returns a Detector with default sampling.
func NewDetector() *Detector {
	return &Detector{SampleLines: DefaultSampleLines}
}

// Detect infers the dialect of the file at path, decoding it with the given
// encoding first. When delimiter detection scores zero the comma dialect is
// returned together with a DialectError so the caller can record the low
// confidence; parsing still proceeds.
func (d *Detector) Detect(path, enc string) (*Dialect, error) {
	content, err := encoding.DecodeFile(path, enc)
	if err != nil {
		return nil, fmt.Errorf("reading sample for dialect detection: %w", err)
	}

	lines := sampleLines(content, d.SampleLines)

	dialect := &Dialect{
		Delimiter:      ',',
		QuoteChar:      '"',
		Quoting:        QuotingMinimal,
		LineTerminator: "\n",
	}

	terminator, err := detectLineTerminator(path)
	if err == nil && terminator != "" {
		dialect.LineTerminator = terminator
	}

	if len(lines) == 0 {
		dialect.Confidence = 0
		return dialect, nil
	}

	delim, confidence := detectDelimiter(lines)
	if confidence == 0 {
		log.WithField(logging.FieldFile, path).Warn("Delimiter detection scored zero, falling back to comma")
		dialect.Confidence = 0
		return dialect, &parsererror.DialectError{FilePath: path}
	}
	dialect.Delimiter = delim
	dialect.Confidence = confidence
	dialect.QuoteChar = detectQuoteChar(lines, delim)
	dialect.Quoting = detectQuotingMode(lines, delim, dialect.QuoteChar)
	dialect.SkipInitialSpace = detectSkipInitialSpace(lines, delim)

	log.WithFields(
		logging.Field{Key: logging.FieldFile, Value: path},
		logging.Field{Key: logging.FieldDelimiter, Value: string(delim)},
		logging.Field{Key: logging.FieldConfidence, Value: confidence},
	).Debug("Detected CSV dialect")

	return dialect, nil
}

func sampleLines(content string, max int) []string {
	var lines []string
	for _, line := range strings.FieldsFunc(content, func(r rune) bool { return r == '\n' || r == '\r' }) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) >= max {
			break
		}
	}
	return lines
}

// detectDelimiter scores each candidate by total occurrences weighted by how
// consistent the per-line field counts are, and returns the winner together
// with its share of the total score.
func detectDelimiter(lines []string) (rune, float64) {
	scores := make(map[rune]float64, len(delimiterCandidates))
	total := 0.0

	for _, cand := range delimiterCandidates {
		occurrences := 0
		fieldCounts := make(map[int]int)
		for _, line := range lines {
			n := strings.Count(line, string(cand))
			occurrences += n
			fieldCounts[n+1]++
		}
		if occurrences == 0 {
			continue
		}

		modal := 0
		for _, c := range fieldCounts {
			if c > modal {
				modal = c
			}
		}
		consistency := float64(modal) / float64(len(lines))
		score := float64(occurrences) * (1 + consistency)
		scores[cand] = score
		total += score
	}

	if total == 0 {
		return ',', 0
	}

	best := ','
	bestScore := 0.0
	for _, cand := range delimiterCandidates {
		if scores[cand] > bestScore {
			best = cand
			bestScore = scores[cand]
		}
	}
	return best, bestScore / total
}

// detectQuoteChar scores candidates by properly-paired occurrences, with a
// strong bonus when a delimiter appears inside a quoted field.
func detectQuoteChar(lines []string, delim rune) rune {
	best := '"'
	bestScore := -1

	for _, cand := range quoteCandidates {
		score := 0
		quotedFieldWithDelim := regexp.MustCompile(
			regexp.QuoteMeta(string(cand)) + `[^` + regexp.QuoteMeta(string(cand)) + `]*` +
				regexp.QuoteMeta(string(delim)) + `[^` + regexp.QuoteMeta(string(cand)) + `]*` +
				regexp.QuoteMeta(string(cand)))
		for _, line := range lines {
			n := strings.Count(line, string(cand))
			score += n / 2 // paired occurrences
			score += 5 * len(quotedFieldWithDelim.FindAllString(line, -1))
		}
		if score > bestScore {
			best = cand
			bestScore = score
		}
	}
	return best
}

// detectQuotingMode classifies the file as QUOTE_ALL when at least 75% of the
// sample lines quote essentially every field.
func detectQuotingMode(lines []string, delim, quote rune) string {
	q := regexp.QuoteMeta(string(quote))
	d := regexp.QuoteMeta(string(delim))
	quotedField := regexp.MustCompile(q + `[^"]*` + q + `(` + d + `|$)`)

	qualifying := 0
	for _, line := range lines {
		fieldCount := strings.Count(line, string(delim)) + 1
		quoted := len(quotedField.FindAllString(line, -1))
		threshold := 4
		if scaled := int(0.8 * float64(fieldCount)); scaled > threshold {
			threshold = scaled
		}
		if quoted >= threshold {
			qualifying++
		}
	}

	if float64(qualifying) >= 0.75*float64(len(lines)) && qualifying > 0 {
		return QuotingAll
	}
	return QuotingMinimal
}

func detectSkipInitialSpace(lines []string, delim rune) bool {
	withSpace, total := 0, 0
	for _, line := range lines {
		total += strings.Count(line, string(delim))
		withSpace += strings.Count(line, string(delim)+" ")
	}
	return total > 0 && float64(withSpace)/float64(total) > 0.5
}

// detectLineTerminator tallies terminator patterns over a raw binary sample.
// Compound patterns subtract from the standalone counts, and the non-standard
// double-CR terminator some banks emit is recognized explicitly.
func detectLineTerminator(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.WithError(err).Warn("Failed to close file")
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(f, terminatorSampleSize))
	if err != nil {
		return "", err
	}
	s := string(raw)

	crlf := strings.Count(s, "\r\n")
	lfcr := strings.Count(s, "\n\r")
	crcr := strings.Count(s, "\r\r")
	lf := strings.Count(s, "\n") - crlf - lfcr
	cr := strings.Count(s, "\r") - crlf - lfcr - 2*crcr

	bestPattern := "\n"
	bestCount := 0
	for _, c := range []struct {
		pattern string
		count   int
	}{
		{"\r\n", crlf},
		{"\n", lf},
		{"\r\r", crcr},
		{"\n\r", lfcr},
		{"\r", cr},
	} {
		if c.count > bestCount {
			bestPattern = c.pattern
			bestCount = c.count
		}
	}
	return bestPattern, nil
}
