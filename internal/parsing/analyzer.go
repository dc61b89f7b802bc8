package parsing

import (
	"strings"

	"csv2ledger/internal/dialect"
	"csv2ledger/internal/encoding"
)

// Analysis is the bank-agnostic structural summary of a statement file. It
// carries everything bank detection needs: suggested header location, raw
// headers, and a content sample wide enough to catch identifying text that
// some banks print above the data section.
type Analysis struct {
	Encoding              *encoding.Result
	Dialect               *dialect.Dialect
	SuggestedHeaderRow    *int // nil for headerless files
	SuggestedDataStartRow int
	RawHeaders            []string
	ContentSample         string
	HasHeaders            bool
	Confidence            float64
	LanguageHints         []string
}

// Analyzer performs encoding, dialect and structure analysis in one pass.
type Analyzer struct {
	encodingDetector *encoding.Detector
	dialectDetector  *dialect.Detector
}

// NewAnalyzer returns an Analyzer with default detectors.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		encodingDetector: encoding.NewDetector(),
		dialectDetector:  dialect.NewDetector(),
	}
}

// sampleRowLimit bounds how much of the file the analyzer parses: up to 15
// pre-header rows, the header, and 5 data rows.
const (
	preHeaderSampleRows  = 15
	postHeaderSampleRows = 5
)

// Analyze inspects the file at path. A dialect fallback (DialectError) is not
// fatal here; the comma dialect is carried forward with zero confidence.
func (a *Analyzer) Analyze(path string) (*Analysis, error) {
	encResult, err := a.encodingDetector.Detect(path)
	if err != nil {
		return nil, err
	}

	dial, dialErr := a.dialectDetector.Detect(path, encResult.Encoding)
	if dial == nil {
		return nil, dialErr
	}

	analysis := &Analysis{
		Encoding: encResult,
		Dialect:  dial,
	}

	outcome := Parse(path, encResult.Encoding, dial, Options{
		MaxRows: preHeaderSampleRows + 1 + postHeaderSampleRows,
	})
	if !outcome.Success {
		return nil, outcome.Err
	}
	rows := NormalizeColumnCounts(outcome.Rows)
	if len(rows) == 0 {
		analysis.HasHeaders = false
		analysis.RawHeaders = []string{}
		analysis.Confidence = encResult.Confidence
		return analysis, nil
	}

	headerRow, _, keywordHits := DetectHeaderRow(rows)
	if keywordHits > 0 {
		analysis.HasHeaders = true
		hr := headerRow
		analysis.SuggestedHeaderRow = &hr
		analysis.SuggestedDataStartRow = headerRow + 1
		analysis.RawHeaders = headersFromRow(rows[headerRow])
		analysis.LanguageHints = KeywordLanguages(rows[headerRow])
	} else {
		analysis.HasHeaders = false
		analysis.SuggestedHeaderRow = nil
		analysis.SuggestedDataStartRow = 0
		analysis.RawHeaders = SyntheticHeaders(len(rows[0]))
	}

	analysis.ContentSample = buildContentSample(rows, headerRow, analysis.HasHeaders, dial.Delimiter)
	analysis.Confidence = combineConfidence(encResult.Confidence, dial.Confidence, keywordHits, len(analysis.RawHeaders))
	return analysis, nil
}

// buildContentSample joins up to 15 pre-header rows, the header row, and 5
// rows after it. Bank content signatures match against this sample.
func buildContentSample(rows [][]string, headerRow int, hasHeaders bool, delim rune) string {
	start := 0
	if hasHeaders && headerRow > preHeaderSampleRows {
		start = headerRow - preHeaderSampleRows
	}
	end := headerRow + postHeaderSampleRows + 1
	if !hasHeaders {
		end = postHeaderSampleRows + 1
	}
	if end > len(rows) {
		end = len(rows)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		if i > start {
			b.WriteByte('\n')
		}
		b.WriteString(strings.Join(rows[i], string(delim)))
	}
	return b.String()
}

func combineConfidence(encConf, dialConf float64, keywordHits, headerCount int) float64 {
	headerConf := 0.0
	if headerCount > 0 {
		headerConf = float64(keywordHits) / float64(headerCount)
		if headerConf > 1 {
			headerConf = 1
		}
	}
	return (encConf + dialConf + headerConf) / 3
}
