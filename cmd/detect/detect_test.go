package detect

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csv2ledger/cmd/root"
)

func TestDetectFindsConversionPair(t *testing.T) {
	ledger := "Date,Amount,Category,Title,Note,Account\n" +
		`2025-01-15,-565.24,,"Converted 565.24 USD to 200,000.00 HUF",,Wise USD` + "\n" +
		`2025-01-15,200000.00,,"Converted 565.24 USD to 200,000.00 HUF",,Wise HUF` + "\n"
	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, os.WriteFile(path, []byte(ledger), 0o600))

	require.NoError(t, root.Setup())
	root.SharedFlags.Output = ""

	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	require.NoError(t, detectFunc(cmd, []string{path}))

	assert.Contains(t, buf.String(), "Transactions:       2")
	assert.Contains(t, buf.String(), "Transfer pairs:     1")
	assert.Contains(t, buf.String(), "currency_conversion")
}

func TestDetectMissingFile(t *testing.T) {
	require.NoError(t, root.Setup())

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	err := detectFunc(cmd, []string{filepath.Join(t.TempDir(), "gone.csv")})
	assert.Error(t, err)
	assert.Equal(t, 5, root.ExitCode(err))
}
