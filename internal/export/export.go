// Package export writes canonical transactions to the fixed-column ledger
// CSV consumed by personal-finance importers.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	"csv2ledger/internal/config"
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

// Options control the output format.
type Options struct {
	Delimiter      rune
	IncludeHeaders bool
	QuoteAll       bool
}

// DefaultOptions is comma-separated output with a header row.
func DefaultOptions() Options {
	return Options{Delimiter: ',', IncludeHeaders: true}
}

// OptionsFromConfig maps the app CSV settings onto export options.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	if cfg == nil {
		return opts
	}
	if cfg.CSV.Delimiter != "" {
		opts.Delimiter = []rune(cfg.CSV.Delimiter)[0]
	}
	opts.IncludeHeaders = cfg.CSV.IncludeHeaders
	opts.QuoteAll = cfg.CSV.QuoteAll
	return opts
}

// Write renders the transactions as ledger CSV onto w. Column order is fixed:
// Date, Amount, Category, Title, Note, Account.
func Write(w io.Writer, transactions []*models.Transaction, opts Options) error {
	if transactions == nil {
		return fmt.Errorf("cannot export nil transactions")
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}

	rows := make([]models.LedgerRow, 0, len(transactions))
	for _, t := range transactions {
		if t == nil {
			continue
		}
		rows = append(rows, models.ToLedgerRow(t))
	}

	writer := newRowWriter(w, opts)
	var err error
	if opts.IncludeHeaders {
		err = gocsv.MarshalCSV(&rows, writer)
	} else {
		err = gocsv.MarshalCSVWithoutHeaders(&rows, writer)
	}
	if err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	return nil
}

// WriteFile writes the ledger CSV to path, creating parent directories.
func WriteFile(path string, transactions []*models.Transaction, opts Options) error {
	log.WithFields(
		logging.Field{Key: logging.FieldFile, Value: path},
		logging.Field{Key: logging.FieldCount, Value: len(transactions)},
	).Info("Writing ledger CSV")

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating CSV file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			log.WithField(logging.FieldFile, path).Warn("Failed to close file")
		}
	}()

	if err := Write(file, transactions, opts); err != nil {
		return err
	}
	log.WithFields(
		logging.Field{Key: logging.FieldFile, Value: path},
		logging.Field{Key: logging.FieldCount, Value: len(transactions)},
	).Info("Successfully wrote ledger CSV")
	return nil
}

// newRowWriter picks the CSV writer implementation for the options. The
// standard writer only quotes when it must; quote-all output needs the
// explicit variant.
func newRowWriter(w io.Writer, opts Options) gocsv.CSVWriter {
	if opts.QuoteAll {
		return &quoteAllWriter{w: w, delim: opts.Delimiter}
	}
	cw := csv.NewWriter(w)
	cw.Comma = opts.Delimiter
	return gocsv.NewSafeCSVWriter(cw)
}

// quoteAllWriter quotes every field unconditionally.
type quoteAllWriter struct {
	w     io.Writer
	delim rune
	err   error
}

func (q *quoteAllWriter) Write(row []string) error {
	if q.err != nil {
		return q.err
	}
	parts := make([]string, len(row))
	for i, cell := range row {
		parts[i] = `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
	}
	_, err := io.WriteString(q.w, strings.Join(parts, string(q.delim))+"\n")
	if err != nil {
		q.err = err
	}
	return err
}

func (q *quoteAllWriter) Flush() {}

func (q *quoteAllWriter) Error() error { return q.err }
