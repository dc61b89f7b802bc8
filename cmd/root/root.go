// Package root contains the root command for the application.
package root

import (
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"csv2ledger/internal/bankcfg"
	"csv2ledger/internal/categorize"
	"csv2ledger/internal/cleaning"
	"csv2ledger/internal/config"
	"csv2ledger/internal/dialect"
	"csv2ledger/internal/encoding"
	"csv2ledger/internal/export"
	"csv2ledger/internal/logging"
	"csv2ledger/internal/parsererror"
	"csv2ledger/internal/parsing"
	"csv2ledger/internal/pipeline"
	"csv2ledger/internal/transfer"
)

// CommonFlags represents the flags that are common to multiple commands.
type CommonFlags struct {
	Output    string
	ConfigDir string
	LogLevel  string
	Strict    bool
}

var (
	// Log is the shared logger instance for commands.
	Log = config.Logger

	// Cfg is the loaded application configuration, available after
	// PersistentPreRunE has run.
	Cfg *config.Config

	// Registry holds the bank configurations; nil when no config directory
	// was found.
	Registry *bankcfg.Registry

	// Pipe is the request pipeline wired to Cfg and Registry.
	Pipe *pipeline.Pipeline

	// SharedFlags are the persistent flags accessible to all commands.
	SharedFlags = CommonFlags{}

	// Cmd is the root command.
	Cmd = &cobra.Command{
		Use:   "csv2ledger",
		Short: "Unify heterogeneous bank statement CSVs into one ledger format.",
		Long: `csv2ledger ingests CSV statement exports from different banks, detects
their encoding, dialect and origin, normalizes every row into a canonical
transaction shape, and pairs the two halves of inter-account transfers so
they can be excluded from spending reports.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return Setup()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Init registers the persistent flags on the root command.
func Init() {
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Output, "output", "o", "", "Output file")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.ConfigDir, "config-dir", "c", "", "Bank configuration directory")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.LogLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	Cmd.PersistentFlags().BoolVar(&SharedFlags.Strict, "strict", false, "Fail when a file's bank cannot be confidently detected")
}

// Setup loads configuration, configures logging and builds the shared
// pipeline.
func Setup() error {
	config.LoadEnv()

	configDir := SharedFlags.ConfigDir
	if configDir == "" {
		configDir = config.GetEnv("C2L_APP_CONFIG_DIR", defaultConfigDir())
	}

	cfg, err := config.InitializeConfig(configDir)
	if err != nil {
		return err
	}
	if SharedFlags.LogLevel != "" {
		cfg.Log.Level = SharedFlags.LogLevel
	}
	if SharedFlags.Strict {
		cfg.App.Strict = true
	}
	Cfg = cfg

	Log = config.ConfigureLogging(cfg)
	propagateLogger(logging.GetLogger())

	if cfg.App.ConfigDir != "" {
		if _, statErr := os.Stat(cfg.App.ConfigDir); statErr == nil {
			Registry, err = bankcfg.NewRegistry(cfg.App.ConfigDir)
			if err != nil {
				return err
			}
		} else {
			Log.WithField("dir", cfg.App.ConfigDir).Warn("Bank config directory not found, detection disabled")
		}
	}

	Pipe = pipeline.New(cfg, Registry)
	return nil
}

// propagateLogger hands the configured logger to every package that keeps
// its own reference.
func propagateLogger(l logging.Logger) {
	encoding.SetLogger(l)
	dialect.SetLogger(l)
	parsing.SetLogger(l)
	bankcfg.SetLogger(l)
	cleaning.SetLogger(l)
	categorize.SetLogger(l)
	transfer.SetLogger(l)
	pipeline.SetLogger(l)
	export.SetLogger(l)
}

// defaultConfigDir looks for a bank-configs directory next to the working
// directory, mirroring the repository layout.
func defaultConfigDir() string {
	for _, dir := range []string{"bank-configs", "configs"} {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return ""
}

// Exit codes.
const (
	ExitOK          = 0
	ExitBadInput    = 2
	ExitNoBank      = 3
	ExitIOFailure   = 5
	exitGenericFail = 1
)

// ExitCode maps an error onto the process exit code contract: 2 for
// unparseable input, 3 for strict-mode bank detection failure, 5 for I/O
// failures.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var bankErr *parsererror.BankNotDetectedError
	if errors.As(err, &bankErr) {
		return ExitNoBank
	}
	var parseErr *parsererror.ParsingError
	var encErr *parsererror.EncodingError
	var structErr *parsererror.StructureError
	if errors.As(err, &parseErr) || errors.As(err, &encErr) || errors.As(err, &structErr) {
		return ExitBadInput
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return ExitIOFailure
	}
	return exitGenericFail
}

// CheckStrictDetection enforces strict mode: a file whose bank detection is
// missing or below the confidence threshold becomes a fatal error.
func CheckStrictDetection(res *pipeline.FileResult) error {
	if Cfg == nil || !Cfg.App.Strict {
		return nil
	}
	if res.Bank == nil || !res.Bank.Confident {
		return &parsererror.BankNotDetectedError{FilePath: res.Path}
	}
	return nil
}
