package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csv2ledger/internal/bankcfg"
	"csv2ledger/internal/models"
)

func writeTempFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func newTestPipeline(t *testing.T, confs map[string]string) *Pipeline {
	t.Helper()
	if confs == nil {
		return New(nil, nil)
	}
	dir := t.TempDir()
	for name, data := range confs {
		writeTempFile(t, dir, name, data)
	}
	reg, err := bankcfg.NewRegistry(dir)
	require.NoError(t, err)
	return New(nil, reg)
}

func TestPreview(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "stmt.csv",
		"Date,Amount,Description\n2025-01-15,-12.50,Coffee\n2025-01-16,3.00,Refund\n2025-01-17,-4.00,Bus\n")

	p := newTestPipeline(t, nil)
	res, err := p.Preview(context.Background(), path, PreviewOptions{MaxRows: 3})
	require.NoError(t, err)

	assert.Equal(t, []string{"Date", "Amount", "Description"}, res.Headers)
	assert.Len(t, res.PreviewData, 2) // header consumed one of the three raw rows
	assert.Equal(t, "utf-8", res.Encoding)
	assert.True(t, res.Info.HasHeaders)
}

func TestParseWithBankDetectionAndCleaning(t *testing.T) {
	p := newTestPipeline(t, map[string]string{
		"wise.conf": `[bank_info]
display_name = Wise
currency = CHF
account = Wise Main
filename_patterns = wise
expected_headers = Date, Amount
`,
	})

	dir := t.TempDir()
	path := writeTempFile(t, dir, "wise_statement.csv",
		"Date,Amount,Description\n2025-01-15,-12.50,Coffee\n")

	res := p.Parse(context.Background(), path, ParseOptions{EnableCleaning: true})
	require.True(t, res.Success)

	require.NotNil(t, res.Bank)
	assert.Equal(t, "wise", res.Bank.Bank)
	assert.Equal(t, "Wise", res.Bank.DisplayName)
	assert.True(t, res.Bank.Confident)

	require.Len(t, res.Transactions, 1)
	tx := res.Transactions[0]
	assert.Equal(t, "wise", tx.SourceBank)
	assert.Equal(t, "CHF", tx.Currency)
	assert.Equal(t, "Wise Main", tx.Account)
}

func TestParseUndetectedBankUsesIdentityMapping(t *testing.T) {
	p := newTestPipeline(t, map[string]string{
		"wise.conf": "[bank_info]\nfilename_patterns = wise\n",
	})
	dir := t.TempDir()
	path := writeTempFile(t, dir, "mystery.csv",
		"Date,Amount,Description\n2025-01-15,-1.00,Something\n")

	res := p.Parse(context.Background(), path, ParseOptions{EnableCleaning: true})
	require.True(t, res.Success)
	assert.Equal(t, "", res.Bank.Bank)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "Something", res.Transactions[0].Description)
}

func TestParseHeaderless(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "raw.csv", "2025-01-15,-12.50,coffee\n2025-01-16,3.00,refund\n")

	p := newTestPipeline(t, nil)
	res := p.Parse(context.Background(), path, ParseOptions{})
	require.True(t, res.Success)
	assert.Equal(t, []string{"Column_1", "Column_2", "Column_3"}, res.Headers)
	assert.Equal(t, 2, res.RowCount)
	assert.False(t, res.Info.HasHeaders)
}

func TestParseBankDelimiterOverride(t *testing.T) {
	p := newTestPipeline(t, map[string]string{
		"acme.conf": `[bank_info]
filename_patterns = acme
[csv_config]
delimiter = semicolon
`,
	})
	dir := t.TempDir()
	path := writeTempFile(t, dir, "acme_export.csv",
		"Date;Amount;Description\n2025-01-15;-1,50;Kaffee\n")

	res := p.Parse(context.Background(), path, ParseOptions{})
	require.True(t, res.Success)
	assert.Equal(t, ";", res.Info.Delimiter)
	assert.Equal(t, []string{"Date", "Amount", "Description"}, res.Headers)
}

func TestParseHeaderValidationFallsBack(t *testing.T) {
	p := newTestPipeline(t, map[string]string{
		"acme.conf": `[bank_info]
filename_patterns = acme
expected_headers = Date, Amount, Description
[csv_config]
header_row = 1
`,
	})
	dir := t.TempDir()
	// The configured header row (first row) is preamble, not the header.
	path := writeTempFile(t, dir, "acme_export.csv",
		"Statement for account 42,,\nDate,Amount,Description\n2025-01-15,-1.50,Coffee\n")

	res := p.Parse(context.Background(), path, ParseOptions{})
	require.True(t, res.Success)
	assert.Equal(t, []string{"Date", "Amount", "Description"}, res.Headers)
	assert.NotEmpty(t, res.Warnings)
}

func TestParseMissingFile(t *testing.T) {
	p := newTestPipeline(t, nil)
	res := p.Parse(context.Background(), filepath.Join(t.TempDir(), "gone.csv"), ParseOptions{})
	assert.False(t, res.Success)
	assert.Error(t, res.Err)
}

func TestParseCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(t, nil)
	res := p.Parse(ctx, "whatever.csv", ParseOptions{})
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestDetectorConfigCarriesBankPatterns(t *testing.T) {
	p := newTestPipeline(t, map[string]string{
		"meezan.conf": `[bank_info]
display_name = Meezan
filename_patterns = meezan
outgoing_patterns = raast\s+out
incoming_patterns = raast\s+in
`,
		"plain.conf": `[bank_info]
display_name = Plain
filename_patterns = plain
`,
	})

	tc := p.detectorConfig()
	require.Contains(t, tc.BankPatterns, "meezan")
	assert.Equal(t, []string{`raast\s+out`}, tc.BankPatterns["meezan"].Outgoing)
	assert.Equal(t, []string{`raast\s+in`}, tc.BankPatterns["meezan"].Incoming)
	// Banks without patterns are not listed at all.
	assert.NotContains(t, tc.BankPatterns, "plain")
}

func TestParseNilContext(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "stmt.csv", "Date,Amount\n2025-01-15,-1.00\n")

	p := newTestPipeline(t, nil)
	// Callers built outside Execute may hand over a nil context.
	res := p.Parse(context.Context(nil), path, ParseOptions{})
	assert.True(t, res.Success)
	assert.NoError(t, res.Err)

	tres, err := p.Transform(context.Context(nil), []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, tres.Summary.FilesProcessed)
}

func TestParseManyKeepsOrderAndRecordsFailures(t *testing.T) {
	dir := t.TempDir()
	good1 := writeTempFile(t, dir, "a.csv", "Date,Amount\n2025-01-15,-1\n")
	missing := filepath.Join(dir, "missing.csv")
	good2 := writeTempFile(t, dir, "b.csv", "Date,Amount\n2025-01-16,-2\n")

	p := newTestPipeline(t, nil)
	batch := p.ParseMany(context.Background(), []ParseRequest{
		{Path: good1}, {Path: missing}, {Path: good2},
	}, 2)

	assert.False(t, batch.Success)
	require.Len(t, batch.Files, 3)
	assert.Equal(t, good1, batch.Files[0].Path)
	assert.True(t, batch.Files[0].Success)
	assert.False(t, batch.Files[1].Success)
	assert.True(t, batch.Files[2].Success)
}

func TestTransformDetectsConversionPair(t *testing.T) {
	dir := t.TempDir()
	usd := writeTempFile(t, dir, "wise_usd.csv",
		"Date,Amount,Description,Currency\n2025-01-15,-565.24,\"Converted 565.24 USD to 200,000.00 HUF\",USD\n")
	huf := writeTempFile(t, dir, "wise_huf.csv",
		"Date,Amount,Description,Currency\n2025-01-15,\"200,000.00\",\"Converted 565.24 USD to 200,000.00 HUF\",HUF\n")

	p := newTestPipeline(t, nil)
	res, err := p.Transform(context.Background(), []string{usd, huf})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Summary.FilesProcessed)
	assert.Equal(t, 2, res.Summary.Transactions)
	require.NotNil(t, res.TransferAnalysis)
	require.Len(t, res.TransferAnalysis.Pairs, 1)
	assert.GreaterOrEqual(t, res.TransferAnalysis.Pairs[0].Confidence, 0.8)

	for _, tx := range res.Transactions {
		assert.Equal(t, models.DefaultTransferCategory, tx.Category)
		assert.Contains(t, tx.Note, "Transfer ")
	}
}

func TestTransformReindexesDeterministically(t *testing.T) {
	dir := t.TempDir()
	b := writeTempFile(t, dir, "b.csv", "Date,Amount,Description\n2025-01-15,-1,x\n")
	a := writeTempFile(t, dir, "a.csv", "Date,Amount,Description\n2025-01-15,-2,y\n")

	p := newTestPipeline(t, nil)
	res, err := p.Transform(context.Background(), []string{b, a})
	require.NoError(t, err)

	require.Len(t, res.Transactions, 2)
	// Files sort by path, so a.csv's row gets index 0.
	assert.Equal(t, 0, res.Transactions[0].Index)
	assert.Equal(t, "y", res.Transactions[0].Description)
	assert.Equal(t, 1, res.Transactions[1].Index)
}

func TestTransformSkipsFailedFiles(t *testing.T) {
	dir := t.TempDir()
	good := writeTempFile(t, dir, "good.csv", "Date,Amount,Description\n2025-01-15,-1,x\n")
	missing := filepath.Join(dir, "missing.csv")

	p := newTestPipeline(t, nil)
	res, err := p.Transform(context.Background(), []string{good, missing})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Summary.FilesProcessed)
	assert.Equal(t, 1, res.Summary.FilesFailed)
	assert.Len(t, res.Transactions, 1)
}

func TestSliceColumns(t *testing.T) {
	rows := [][]string{{"a", "b", "c", "d"}}
	assert.Equal(t, [][]string{{"b", "c"}}, sliceColumns(rows, 1, 3))
	assert.Equal(t, [][]string{{"a", "b", "c", "d"}}, sliceColumns(rows, 0, 0))
}
