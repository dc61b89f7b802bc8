package transform

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csv2ledger/cmd/root"
)

func TestTransformWritesLedgerFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "stmt.csv")
	require.NoError(t, os.WriteFile(input,
		[]byte("Date,Amount,Description\n2025-01-15,-12.50,Coffee House\n"), 0o600))
	output := filepath.Join(dir, "ledger.csv")

	require.NoError(t, root.Setup())
	root.SharedFlags.Output = output
	defer func() { root.SharedFlags.Output = "" }()

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	require.NoError(t, transformFunc(cmd, []string{input}))

	assert.Contains(t, buf.String(), "Files processed:    1")
	assert.Contains(t, buf.String(), "Transactions:       1")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Date,Amount,Category,Title,Note,Account")
	assert.Contains(t, string(data), "2025-01-15,-12.50")
	assert.Contains(t, string(data), "Coffee House")
}

func TestTransformMissingFile(t *testing.T) {
	require.NoError(t, root.Setup())
	root.SharedFlags.Output = ""

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetOut(&bytes.Buffer{})
	err := transformFunc(cmd, []string{filepath.Join(t.TempDir(), "gone.csv")})
	assert.Error(t, err)
}
