// Package transform handles the full statement transformation command.
package transform

import (
	"fmt"

	"github.com/spf13/cobra"

	"csv2ledger/cmd/root"
	"csv2ledger/internal/export"
)

// Cmd represents the transform command.
var Cmd = &cobra.Command{
	Use:   "transform <file>...",
	Short: "Run the full pipeline: parse, normalize and detect transfers",
	Long: `Transform parses and normalizes every input file, runs transfer
detection across all of them, and writes the resulting ledger CSV. Paired
transfers are re-categorized and tagged in the note column.`,
	Args: cobra.MinimumNArgs(1),
	RunE: transformFunc,
}

func transformFunc(cmd *cobra.Command, args []string) error {
	res, err := root.Pipe.Transform(cmd.Context(), args)
	if err != nil {
		return err
	}
	for _, f := range res.Files {
		if !f.Success {
			return f.Err
		}
		if err := root.CheckStrictDetection(f); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Files processed:    %d\n", res.Summary.FilesProcessed)
	fmt.Fprintf(out, "Transactions:       %d\n", res.Summary.Transactions)
	fmt.Fprintf(out, "Dropped rows:       %d\n", res.Summary.DroppedRows)
	fmt.Fprintf(out, "Transfer pairs:     %d\n", res.Summary.TransferPairs)
	fmt.Fprintf(out, "Conflicts:          %d\n", res.Summary.Conflicts)
	fmt.Fprintf(out, "Flagged for review: %d\n", res.Summary.FlaggedForReview)

	opts := export.OptionsFromConfig(root.Cfg)
	if root.SharedFlags.Output != "" {
		if err := export.WriteFile(root.SharedFlags.Output, res.Transactions, opts); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %d transactions to %s\n", len(res.Transactions), root.SharedFlags.Output)
		return nil
	}
	fmt.Fprintln(out)
	return export.Write(out, res.Transactions, opts)
}
