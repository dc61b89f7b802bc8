package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csv2ledger/internal/models"
)

func sampleTransactions() []*models.Transaction {
	return []*models.Transaction{
		{
			Date:        time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
			Amount:      decimal.RequireFromString("-12.5"),
			Category:    "Food",
			Description: "Coffee House",
			Note:        "morning",
			Account:     "Wise CHF",
		},
		{
			Date:        time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC),
			Amount:      decimal.RequireFromString("3"),
			Category:    "Refunds",
			Description: "Store, refund",
			Account:     "Wise CHF",
		},
	}
}

func TestWriteWithHeaders(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleTransactions(), DefaultOptions()))

	lines := splitLines(buf.String())
	require.Len(t, lines, 3)
	assert.Equal(t, "Date,Amount,Category,Title,Note,Account", lines[0])
	assert.Equal(t, "2025-01-15,-12.50,Food,Coffee House,morning,Wise CHF", lines[1])
	// The comma in the title forces quoting.
	assert.Equal(t, `2025-01-16,3.00,Refunds,"Store, refund",,Wise CHF`, lines[2])
}

func TestWriteWithoutHeaders(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.IncludeHeaders = false
	require.NoError(t, Write(&buf, sampleTransactions(), opts))

	lines := splitLines(buf.String())
	require.Len(t, lines, 2)
	assert.Equal(t, "2025-01-15,-12.50,Food,Coffee House,morning,Wise CHF", lines[0])
}

func TestWriteSemicolonDelimiter(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Delimiter = ';'
	require.NoError(t, Write(&buf, sampleTransactions(), opts))

	lines := splitLines(buf.String())
	assert.Equal(t, "Date;Amount;Category;Title;Note;Account", lines[0])
	// A comma inside a field needs no quoting under a semicolon delimiter.
	assert.Equal(t, "2025-01-16;3.00;Refunds;Store, refund;;Wise CHF", lines[2])
}

func TestWriteQuoteAll(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.QuoteAll = true
	require.NoError(t, Write(&buf, sampleTransactions(), opts))

	lines := splitLines(buf.String())
	assert.Equal(t, `"Date","Amount","Category","Title","Note","Account"`, lines[0])
	assert.Equal(t, `"2025-01-15","-12.50","Food","Coffee House","morning","Wise CHF"`, lines[1])
	assert.Equal(t, `"2025-01-16","3.00","Refunds","Store, refund","","Wise CHF"`, lines[2])
}

func TestWriteUnparsedDateFallsBackToRaw(t *testing.T) {
	txs := []*models.Transaction{{
		RawDate:     "not-a-date",
		Amount:      decimal.NewFromInt(-1),
		Description: "x",
	}}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, txs, DefaultOptions()))
	assert.Contains(t, buf.String(), "not-a-date,-1.00")
}

func TestWriteNilTransactions(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, nil, DefaultOptions()))
}

func TestWriteSkipsNilEntries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []*models.Transaction{nil}, DefaultOptions()))
	lines := splitLines(buf.String())
	require.Len(t, lines, 1) // header only
}

func TestWriteFileCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out", "ledger.csv")
	require.NoError(t, WriteFile(path, sampleTransactions(), DefaultOptions()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Date,Amount,Category,Title,Note,Account")
	assert.Contains(t, string(data), "Coffee House")
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range bytes.Split([]byte(s), []byte("\n")) {
		trimmed := string(bytes.TrimRight(line, "\r"))
		if trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
