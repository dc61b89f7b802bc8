package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"csv2ledger/internal/bankcfg"
	"csv2ledger/internal/cleaning"
	"csv2ledger/internal/logging"
	"csv2ledger/internal/parsererror"
	"csv2ledger/internal/parsing"
)

// PreviewOptions tune a preview request.
type PreviewOptions struct {
	Encoding  string
	HeaderRow *int
	MaxRows   int
}

// PreviewResult is the preview payload: the first rows plus everything the
// caller needs to confirm or correct the automatic interpretation.
type PreviewResult struct {
	PreviewData []map[string]string
	Headers     []string
	TotalRows   int
	Encoding    string
	Bank        *BankDetection
	Info        ParsingInfo
}

// ParseOptions tune a single-file parse.
type ParseOptions struct {
	StartRow int
	EndRow   int // 0 = no limit
	StartCol int
	EndCol   int // 0 = no limit
	Encoding string
	// HeaderRow forces a zero-based header row.
	HeaderRow      *int
	Headerless     bool
	EnableCleaning bool
}

// ParseRequest pairs a path with its options for batch parsing.
type ParseRequest struct {
	Path    string
	Options ParseOptions
}

// Preview parses the head of a file without cleaning.
func (p *Pipeline) Preview(ctx context.Context, path string, opts PreviewOptions) (*PreviewResult, error) {
	maxRows := opts.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultPreviewRows
	}

	res := p.Parse(ctx, path, ParseOptions{
		EndRow:    maxRows,
		Encoding:  opts.Encoding,
		HeaderRow: opts.HeaderRow,
	})
	if !res.Success {
		return nil, res.Err
	}
	return &PreviewResult{
		PreviewData: res.Data,
		Headers:     res.Headers,
		TotalRows:   res.RowCount,
		Encoding:    res.Info.Encoding,
		Bank:        res.Bank,
		Info:        res.Info,
	}, nil
}

// Parse runs the per-file pipeline: structure analysis, bank detection,
// strategy parsing, row processing and optional cleaning. Errors are carried
// on the result, never panicked or lost.
func (p *Pipeline) Parse(ctx context.Context, path string, opts ParseOptions) *FileResult {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	res := &FileResult{Path: path}
	defer func() {
		res.Duration = time.Since(start)
		log.WithFields(
			logging.Field{Key: logging.FieldFile, Value: path},
			logging.Field{Key: logging.FieldDuration, Value: res.Duration},
			logging.Field{Key: "success", Value: res.Success},
		).Debug("File parse finished")
	}()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	analysis, err := p.analyzer.Analyze(path)
	if err != nil {
		res.Err = err
		return res
	}

	enc := analysis.Encoding.Encoding
	if opts.Encoding != "" {
		enc = strings.ToLower(opts.Encoding)
	}
	dial := analysis.Dialect

	res.Bank = p.detectBank(path, analysis.ContentSample, analysis.RawHeaders)
	var bank *bankcfg.BankConfig
	if p.registry != nil && res.Bank.Bank != "" {
		bank = p.registry.GetConfig(res.Bank.Bank)
	}

	startRow := opts.StartRow
	headerRow := opts.HeaderRow
	headerless := opts.Headerless || (!analysis.HasHeaders && headerRow == nil)
	if bank != nil {
		if bank.CSV.Delimiter != "" {
			dial.Delimiter = rune(bank.CSV.Delimiter[0])
		}
		if bank.CSV.Encoding != "" && opts.Encoding == "" {
			enc = bank.CSV.Encoding
		}
		if startRow == 0 && bank.CSV.SkipRows > 0 {
			startRow = bank.CSV.SkipRows
		}
		if headerRow == nil && bank.CSV.HeaderRow > 0 {
			hr := bank.CSV.HeaderRow - 1
			headerRow = &hr
		}
		if !bank.CSV.HasHeader {
			headerless = true
		} else if headerRow != nil {
			headerless = false
		}
	}

	outcome := parsing.Parse(path, enc, dial, parsing.Options{StartRow: startRow, MaxRows: opts.EndRow})
	if !outcome.Success {
		res.Err = outcome.Err
		return res
	}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	rows := sliceColumns(outcome.Rows, opts.StartCol, opts.EndCol)
	headerRow = p.validateHeaderRow(res, rows, headerRow, bank)

	proc := parsing.Process(rows, parsing.ProcessOptions{HeaderRow: headerRow, Headerless: headerless})
	res.Headers = proc.Headers
	res.Data = proc.Data
	res.RowCount = proc.RowCount
	res.Info = ParsingInfo{
		Encoding:           enc,
		EncodingConfidence: analysis.Encoding.Confidence,
		Delimiter:          string(dial.Delimiter),
		Strategy:           outcome.StrategyUsed,
		HasHeaders:         proc.Info.HeaderSource != parsing.HeaderSourceSynthetic,
		Confidence:         analysis.Confidence,
	}
	if proc.Info.HeaderRow >= 0 {
		hr := proc.Info.HeaderRow
		res.Info.HeaderRow = &hr
	}

	if opts.EnableCleaning {
		cleanCfg := bank
		if cleanCfg == nil && p.registry != nil {
			cleanCfg = p.registry.Global()
		}
		norm := cleaning.Normalize(proc.Headers, proc.Data, cleaning.Options{
			Bank:       cleanCfg,
			SourceFile: path,
			SourceBank: res.Bank.Bank,
		})
		res.Transactions = norm.Transactions
		res.ColumnMapping = norm.ColumnMapping
		res.DroppedRows = norm.DroppedRows
		res.Warnings = append(res.Warnings, norm.Warnings...)
	}

	res.Success = true
	return res
}

// ParseMany fans the files out over a small worker pool. Results come back
// in input order regardless of completion order, and the batch always
// returns: per-file failures are recorded, not raised.
func (p *Pipeline) ParseMany(ctx context.Context, requests []ParseRequest, workers int) *BatchResult {
	if workers <= 0 {
		workers = 4
	}
	if workers > len(requests) {
		workers = len(requests)
	}

	files := make([]*FileResult, len(requests))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				files[i] = p.Parse(ctx, requests[i].Path, requests[i].Options)
			}
		}()
	}
	for i := range requests {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	batch := &BatchResult{Success: true, Files: files}
	for _, f := range files {
		if !f.Success {
			batch.Success = false
		}
	}
	return batch
}

// detectBank scores the file against the registry.
func (p *Pipeline) detectBank(path, contentSample string, headers []string) *BankDetection {
	det := &BankDetection{}
	if p.registry == nil {
		return det
	}
	name, score := p.registry.DetectBank(path, contentSample, headers)
	if name == "" {
		return det
	}
	det.Bank = name
	det.Confidence = score
	det.Confident = score >= bankcfg.ConfidentDetectionThreshold
	if cfg := p.registry.GetConfig(name); cfg != nil {
		det.DisplayName = cfg.DisplayName
	}
	return det
}

// validateHeaderRow checks a configured header row against the bank's
// expected headers and falls back to auto-detection on a bad match. Short
// expectation lists must match fully.
func (p *Pipeline) validateHeaderRow(res *FileResult, rows [][]string, headerRow *int, bank *bankcfg.BankConfig) *int {
	if headerRow == nil || bank == nil || len(bank.Detection.RequiredHeaders) == 0 {
		return headerRow
	}
	if *headerRow < 0 || *headerRow >= len(rows) {
		return nil
	}
	observed := rows[*headerRow]
	rate := headerMatchRate(observed, bank.Detection.RequiredHeaders)
	required := 0.5
	if len(bank.Detection.RequiredHeaders) < 3 {
		required = 1.0
	}
	if rate >= required {
		return headerRow
	}
	err := &parsererror.HeaderValidationError{
		FilePath:  res.Path,
		Expected:  bank.Detection.RequiredHeaders,
		Observed:  observed,
		MatchRate: rate,
	}
	res.Warnings = append(res.Warnings, err.Error())
	log.WithField(logging.FieldFile, res.Path).Warn(err.Error())
	return nil
}

func headerMatchRate(observed, expected []string) float64 {
	if len(expected) == 0 {
		return 1
	}
	hits := 0
	for _, want := range expected {
		w := strings.ToLower(strings.TrimSpace(want))
		for _, h := range observed {
			if strings.Contains(strings.ToLower(strings.TrimSpace(h)), w) {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(expected))
}

// sliceColumns applies the requested column range to every row. EndCol is
// exclusive; zero means no limit.
func sliceColumns(rows [][]string, startCol, endCol int) [][]string {
	if startCol <= 0 && endCol <= 0 {
		return rows
	}
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		lo := startCol
		if lo < 0 {
			lo = 0
		}
		hi := len(row)
		if endCol > 0 && endCol < hi {
			hi = endCol
		}
		if lo > hi {
			lo = hi
		}
		out = append(out, row[lo:hi])
	}
	return out
}
