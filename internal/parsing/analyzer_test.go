package parsing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, data string) *Analysis {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stmt.csv")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	a, err := NewAnalyzer().Analyze(path)
	require.NoError(t, err)
	return a
}

func TestAnalyzeHeaderedFile(t *testing.T) {
	a := analyze(t, "Date,Amount,Description,Currency\n2025-01-15,-12.50,Coffee,USD\n2025-01-16,3.00,Refund,USD\n")

	assert.True(t, a.HasHeaders)
	require.NotNil(t, a.SuggestedHeaderRow)
	assert.Equal(t, 0, *a.SuggestedHeaderRow)
	assert.Equal(t, 1, a.SuggestedDataStartRow)
	assert.Equal(t, []string{"Date", "Amount", "Description", "Currency"}, a.RawHeaders)
	assert.Contains(t, a.LanguageHints, "en")
}

func TestAnalyzeHeaderlessFile(t *testing.T) {
	a := analyze(t, "2025-01-15,-12.50,something\n2025-01-16,3.00,other\n")

	assert.False(t, a.HasHeaders)
	assert.Nil(t, a.SuggestedHeaderRow)
	assert.Equal(t, 0, a.SuggestedDataStartRow)
	assert.Equal(t, []string{"Column_1", "Column_2", "Column_3"}, a.RawHeaders)
}

func TestAnalyzePreambleBeforeHeader(t *testing.T) {
	data := "Acme Bank e-statement\nAccount: 123-456\n\nDate,Amount,Description\n2025-01-15,-12.50,Coffee\n"
	a := analyze(t, data)

	assert.True(t, a.HasHeaders)
	require.NotNil(t, a.SuggestedHeaderRow)
	assert.Equal(t, 2, *a.SuggestedHeaderRow) // blank line dropped by the reader
	assert.Contains(t, a.ContentSample, "Acme Bank e-statement")
	assert.Contains(t, a.ContentSample, "Date,Amount,Description")
}

func TestAnalyzeMultilingualHeaders(t *testing.T) {
	a := analyze(t, "Datum;Betrag;Verwendungszweck\n15.01.2025;-12,50;Miete\n")

	assert.True(t, a.HasHeaders)
	assert.Contains(t, a.LanguageHints, "de")
}

func TestAnalyzeEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	a, err := NewAnalyzer().Analyze(path)
	require.NoError(t, err)
	assert.False(t, a.HasHeaders)
	assert.Empty(t, a.RawHeaders)
}
