// Package parsing turns raw statement files into rows of string cells.
// Three strategies are tried in order; the first that succeeds wins. Strategy
// names are carried through to the processing metadata so operators can see
// which path handled a troublesome export.
package parsing

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"csv2ledger/internal/dialect"
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

// Strategy names, in fallback order.
const (
	StrategyCSVReader = "csv_reader"
	StrategyLazyCSV   = "lazy_csv"
	StrategyManual    = "manual"
)

// Options controls a parse run.
type Options struct {
	// StartRow skips rows before this zero-based index.
	StartRow int
	// MaxRows bounds the number of returned rows; zero means unbounded.
	// Used by preview.
	MaxRows int
}

// Outcome is the result of running the strategy chain.
type Outcome struct {
	Success      bool
	Rows         [][]string
	StrategyUsed string
	Err          error
}

// Parse reads the file at path with the detected encoding and dialect,
// falling back through the strategy chain until one produces rows.
func Parse(path, enc string, d *dialect.Dialect, opts Options) *Outcome {
	content, err := encoding.DecodeFile(path, enc)
	if err != nil {
		return &Outcome{Err: &parsererror.ParsingError{FilePath: path, Err: err}}
	}

	type strategy struct {
		name string
		run  func(string, *dialect.Dialect, Options) ([][]string, error)
	}
	chain := []strategy{
		{StrategyCSVReader, parseStrict},
		{StrategyLazyCSV, parseLazy},
		{StrategyManual, parseManual},
	}

	var lastErr error
	for _, s := range chain {
		rows, err := s.run(content, d, opts)
		if err != nil {
			log.WithError(err).WithFields(
				logging.Field{Key: logging.FieldFile, Value: path},
				logging.Field{Key: logging.FieldStrategy, Value: s.name},
			).Debug("Parsing strategy failed, trying next")
			lastErr = err
			continue
		}
		return &Outcome{Success: true, Rows: rows, StrategyUsed: s.name}
	}

	return &Outcome{Err: &parsererror.ParsingError{FilePath: path, Err: lastErr}}
}

// normalizeTerminators rewrites whatever terminator the file uses into plain
// newlines so the csv readers only ever see one convention.
func normalizeTerminators(content, terminator string) string {
	switch terminator {
	case "\r\r", "\n\r":
		content = strings.ReplaceAll(content, terminator, "\n")
	case "\r":
		content = strings.ReplaceAll(content, "\r\n", "\n")
		content = strings.ReplaceAll(content, "\r", "\n")
	}
	// \r\n is handled natively by encoding/csv and the manual splitter.
	return content
}

// parseStrict uses the standard library reader with the detected dialect and
// strict quoting. It fails fast on structurally broken quoting, handing the
// file to the more tolerant strategies.
func parseStrict(content string, d *dialect.Dialect, opts Options) ([][]string, error) {
	return runCSVReader(content, d, opts, false)
}

// parseLazy is the same reader with LazyQuotes, which accepts stray quotes in
// unquoted fields and doubled quotes in odd positions.
func parseLazy(content string, d *dialect.Dialect, opts Options) ([][]string, error) {
	return runCSVReader(content, d, opts, true)
}

func runCSVReader(content string, d *dialect.Dialect, opts Options, lazy bool) ([][]string, error) {
	content = normalizeTerminators(content, d.LineTerminator)

	r := csv.NewReader(strings.NewReader(content))
	r.Comma = d.Delimiter
	r.LazyQuotes = lazy
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = d.SkipInitialSpace

	var rows [][]string
	rowIndex := 0
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if rowIndex < opts.StartRow {
			rowIndex++
			continue
		}
		rows = append(rows, cleanCells(record))
		rowIndex++
		if opts.MaxRows > 0 && len(rows) >= opts.MaxRows {
			break
		}
	}
	return rows, nil
}

// parseManual is the last-resort splitter: a character state machine that
// tracks quote state, treats a doubled quote as an escaped quote, and splits
// only on delimiters outside quotes. Lines without the quote character are
// split directly.
func parseManual(content string, d *dialect.Dialect, opts Options) ([][]string, error) {
	content = normalizeTerminators(content, d.LineTerminator)
	content = strings.ReplaceAll(content, "\r\n", "\n")

	var rows [][]string
	rowIndex := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if rowIndex < opts.StartRow {
			rowIndex++
			continue
		}

		var cells []string
		if strings.ContainsRune(line, d.QuoteChar) {
			cells = splitQuoted(line, d.Delimiter, d.QuoteChar)
		} else {
			cells = strings.Split(line, string(d.Delimiter))
		}
		rows = append(rows, cleanCells(cells))
		rowIndex++
		if opts.MaxRows > 0 && len(rows) >= opts.MaxRows {
			break
		}
	}
	return rows, nil
}

func splitQuoted(line string, delim, quote rune) []string {
	var cells []string
	var field strings.Builder
	inQuotes := false

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == quote:
			if inQuotes && i+1 < len(runes) && runes[i+1] == quote {
				// Doubled quote inside a quoted field is an escaped quote.
				field.WriteRune(quote)
				i++
				continue
			}
			inQuotes = !inQuotes
		case r == delim && !inQuotes:
			cells = append(cells, field.String())
			field.Reset()
		default:
			field.WriteRune(r)
		}
	}
	cells = append(cells, field.String())
	return cells
}

// cleanCells strips BOM and NUL bytes and trims surrounding whitespace.
func cleanCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		c = strings.ReplaceAll(c, "\uFEFF", "")
		c = strings.ReplaceAll(c, "\x00", "")
		out[i] = strings.TrimSpace(c)
	}
	return out
}
