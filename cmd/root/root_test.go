package root

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csv2ledger/internal/config"
	"csv2ledger/internal/parsererror"
	"csv2ledger/internal/pipeline"
)

func TestInitRegistersPersistentFlags(t *testing.T) {
	Init()

	for _, name := range []string{"output", "config-dir", "log-level", "strict"} {
		assert.NotNil(t, Cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"bank not detected", &parsererror.BankNotDetectedError{FilePath: "x.csv"}, 3},
		{"parsing", &parsererror.ParsingError{FilePath: "x.csv", Err: errors.New("boom")}, 2},
		{"encoding", &parsererror.EncodingError{FilePath: "x.csv", Attempts: 3}, 2},
		{"structure", &parsererror.StructureError{FilePath: "x.csv", Reason: "no headers"}, 2},
		{"io", &fs.PathError{Op: "open", Path: "x.csv", Err: fs.ErrNotExist}, 5},
		{"other", errors.New("unexpected"), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExitCode(tc.err))
		})
	}
}

func TestCheckStrictDetection(t *testing.T) {
	cfg, err := config.InitializeConfig("")
	require.NoError(t, err)
	Cfg = cfg

	res := &pipeline.FileResult{Path: "stmt.csv", Bank: &pipeline.BankDetection{Confident: false}}
	assert.NoError(t, CheckStrictDetection(res))

	Cfg.App.Strict = true
	err = CheckStrictDetection(res)
	require.Error(t, err)
	assert.Equal(t, 3, ExitCode(err))

	res.Bank.Confident = true
	assert.NoError(t, CheckStrictDetection(res))
}

func TestSetupWithoutConfigDir(t *testing.T) {
	SharedFlags = CommonFlags{}
	require.NoError(t, Setup())
	assert.NotNil(t, Cfg)
	assert.NotNil(t, Pipe)
}
