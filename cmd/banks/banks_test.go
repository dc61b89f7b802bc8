package banks

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
	"csv2ledger/internal/bankcfg"
	"csv2ledger/internal/pipeline"
)

func TestBanksWithoutRegistry(t *testing.T) {
	require.NoError(t, root.Setup())
	root.Registry = nil

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	require.NoError(t, banksFunc(cmd, nil))
	assert.Contains(t, buf.String(), "No bank configuration directory loaded.")
}

func TestBanksListsAndScores(t *testing.T) {
	confDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(confDir, "wise.conf"),
		[]byte("[bank_info]\ndisplay_name = Wise\nfilename_patterns = wise\nexpected_headers = Date, Amount\n"), 0o600))

	require.NoError(t, root.Setup())
	reg, err := bankcfg.NewRegistry(confDir)
	require.NoError(t, err)
	root.Registry = reg
	root.Pipe = pipeline.New(root.Cfg, reg)

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	require.NoError(t, banksFunc(cmd, nil))
	assert.Contains(t, buf.String(), "1 configured banks:")
	assert.Contains(t, buf.String(), "wise (Wise)")

	stmt := filepath.Join(t.TempDir(), "wise_statement.csv")
	require.NoError(t, os.WriteFile(stmt,
		[]byte("Date,Amount,Description\n2025-01-15,-1.00,Coffee\n"), 0o600))

	buf.Reset()
	require.NoError(t, banksFunc(cmd, []string{stmt}))
	assert.Contains(t, buf.String(), "wise confidence 0.60")
}
