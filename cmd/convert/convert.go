// Package convert handles conversion of statement files to ledger CSV.
package convert

import (
	"fmt"

	"github.com/spf13/cobra"

	"csv2ledger/cmd/root"
	"csv2ledger/internal/export"
	"csv2ledger/internal/models"
	"csv2ledger/internal/pipeline"
)

var workers int

// Cmd represents the convert command.
var Cmd = &cobra.Command{
	Use:   "convert <file>...",
	Short: "Convert statement files to the canonical ledger CSV",
	Long: `Convert parses and normalizes one or more statement files and writes
the resulting transactions as ledger CSV. Transfer detection is not applied;
use transform for the full pipeline.`,
	Args: cobra.MinimumNArgs(1),
	RunE: convertFunc,
}

func init() {
	Cmd.Flags().IntVar(&workers, "workers", 0, "Number of parallel workers (0 = default)")
}

func convertFunc(cmd *cobra.Command, args []string) error {
	requests := make([]pipeline.ParseRequest, len(args))
	for i, path := range args {
		requests[i] = pipeline.ParseRequest{Path: path, Options: pipeline.ParseOptions{EnableCleaning: true}}
	}
	batch := root.Pipe.ParseMany(cmd.Context(), requests, workers)

	var transactions []*models.Transaction
	for _, f := range batch.Files {
		if !f.Success {
			return f.Err
		}
		if err := root.CheckStrictDetection(f); err != nil {
			return err
		}
		for _, warning := range f.Warnings {
			root.Log.WithField("file", f.Path).Warn(warning)
		}
		transactions = append(transactions, f.Transactions...)
	}

	opts := export.OptionsFromConfig(root.Cfg)
	if root.SharedFlags.Output != "" {
		if err := export.WriteFile(root.SharedFlags.Output, transactions, opts); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d transactions to %s\n", len(transactions), root.SharedFlags.Output)
		return nil
	}
	return export.Write(cmd.OutOrStdout(), transactions, opts)
}
