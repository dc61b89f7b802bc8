package parsing

import (
	"fmt"
	"strconv"
	"strings"
)

// financeKeywords are the header tokens (per locale) that mark a row as a
// plausible header. Statement exports in the wild are not always English.
var financeKeywords = map[string][]string{
	"en": {"date", "timestamp", "amount", "balance", "description", "type",
		"transaction", "currency", "reference", "memo", "note"},
	"de": {"datum", "betrag", "saldo", "buchungstag", "verwendungszweck",
		"waehrung", "währung", "empfänger"},
	"fr": {"date", "montant", "solde", "libellé", "libelle", "devise",
		"bénéficiaire", "beneficiaire"},
	"hu": {"dátum", "datum", "összeg", "osszeg", "egyenleg", "közlemény",
		"kozlemeny", "devizanem", "terhelés", "terheles"},
	"es": {"fecha", "importe", "saldo", "concepto", "divisa"},
}

// headerScanRows is how many leading rows are scored as header candidates.
const headerScanRows = 5

// ProcessOptions control header handling.
type ProcessOptions struct {
	// HeaderRow forces a specific zero-based header row when non-nil.
	HeaderRow *int
	// Headerless disables header extraction entirely; columns get synthetic
	// names and every row becomes data.
	Headerless bool
}

// ProcessingInfo records how the processor interpreted the raw rows.
type ProcessingInfo struct {
	HeaderRow    int // -1 when headerless
	HeaderSource string
	ColumnCount  int
	DroppedBlank int
}

// Header sources.
const (
	HeaderSourceExplicit  = "explicit"
	HeaderSourceDetected  = "detected"
	HeaderSourceSynthetic = "synthetic"
)

// ProcessResult is the structured output of raw-row processing.
type ProcessResult struct {
	Headers  []string
	Data     []map[string]string
	RowCount int
	Info     ProcessingInfo
}

// Process normalizes column counts, locates the header row, and converts the
// remaining rows into header-keyed records.
func Process(rows [][]string, opts ProcessOptions) *ProcessResult {
	rows = NormalizeColumnCounts(rows)
	result := &ProcessResult{Info: ProcessingInfo{HeaderRow: -1}}
	if len(rows) == 0 {
		result.Headers = []string{}
		result.Data = []map[string]string{}
		return result
	}
	result.Info.ColumnCount = len(rows[0])

	var headerRow int
	switch {
	case opts.Headerless:
		result.Headers = SyntheticHeaders(result.Info.ColumnCount)
		result.Info.HeaderSource = HeaderSourceSynthetic
		headerRow = -1
	case opts.HeaderRow != nil && *opts.HeaderRow >= 0 && *opts.HeaderRow < len(rows):
		headerRow = *opts.HeaderRow
		result.Headers = headersFromRow(rows[headerRow])
		result.Info.HeaderSource = HeaderSourceExplicit
	default:
		headerRow, _, _ = DetectHeaderRow(rows)
		result.Headers = headersFromRow(rows[headerRow])
		result.Info.HeaderSource = HeaderSourceDetected
	}
	result.Info.HeaderRow = headerRow

	for i := headerRow + 1; i < len(rows); i++ {
		if isBlankRow(rows[i]) {
			result.Info.DroppedBlank++
			continue
		}
		record := make(map[string]string, len(result.Headers))
		for j, h := range result.Headers {
			if j < len(rows[i]) {
				record[h] = sanitizeCell(rows[i][j])
			} else {
				record[h] = ""
			}
		}
		result.Data = append(result.Data, record)
	}
	result.RowCount = len(result.Data)
	return result
}

// NormalizeColumnCounts pads or truncates every row to the maximum observed
// width.
func NormalizeColumnCounts(rows [][]string) [][]string {
	max := 0
	for _, row := range rows {
		if len(row) > max {
			max = len(row)
		}
	}
	if max == 0 {
		return nil
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) == max {
			out[i] = row
			continue
		}
		normalized := make([]string, max)
		copy(normalized, row)
		out[i] = normalized
	}
	return out
}

// DetectHeaderRow scores the first few rows and returns the best candidate
// along with its total score and the number of finance-keyword hits.
// Scoring: 2 points per cell containing a finance keyword, 1 point per
// non-numeric cell.
func DetectHeaderRow(rows [][]string) (row, score, keywordHits int) {
	limit := headerScanRows
	if len(rows) < limit {
		limit = len(rows)
	}

	bestRow, bestScore, bestHits := 0, -1, 0
	for i := 0; i < limit; i++ {
		s, hits := scoreHeaderCandidate(rows[i])
		if s > bestScore {
			bestRow, bestScore, bestHits = i, s, hits
		}
	}
	return bestRow, bestScore, bestHits
}

func scoreHeaderCandidate(row []string) (score, keywordHits int) {
	for _, cell := range row {
		lower := strings.ToLower(strings.TrimSpace(cell))
		if lower == "" {
			continue
		}
		hit := false
		for _, keywords := range financeKeywords {
			for _, kw := range keywords {
				if strings.Contains(lower, kw) {
					hit = true
					break
				}
			}
			if hit {
				break
			}
		}
		if hit {
			score += 2
			keywordHits++
		}
		if !isNumericCell(lower) {
			score++
		}
	}
	return score, keywordHits
}

// KeywordLanguages reports which locales contributed keyword hits for a row.
func KeywordLanguages(row []string) []string {
	var hints []string
	for lang, keywords := range financeKeywords {
		for _, cell := range row {
			lower := strings.ToLower(cell)
			matched := false
			for _, kw := range keywords {
				if strings.Contains(lower, kw) {
					hints = append(hints, lang)
					matched = true
					break
				}
			}
			if matched {
				break
			}
		}
	}
	return hints
}

// SyntheticHeaders names columns Column_1..Column_N.
func SyntheticHeaders(n int) []string {
	headers := make([]string, n)
	for i := range headers {
		headers[i] = fmt.Sprintf("Column_%d", i+1)
	}
	return headers
}

func headersFromRow(row []string) []string {
	headers := make([]string, len(row))
	for i, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			cell = fmt.Sprintf("Column_%d", i+1)
		}
		headers[i] = cell
	}
	return headers
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func isNumericCell(cell string) bool {
	if cell == "" {
		return false
	}
	cleaned := strings.NewReplacer(",", "", "+", "", "-", "", "(", "", ")", "").Replace(cell)
	_, err := strconv.ParseFloat(cleaned, 64)
	return err == nil
}

// sanitizeCell removes serialization sentinels that must never reach JSON
// output.
func sanitizeCell(cell string) string {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "nan", "null", "none":
		return ""
	}
	return cell
}
