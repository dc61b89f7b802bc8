// Package detect re-runs transfer detection over an exported ledger CSV.
package detect

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"csv2ledger/cmd/root"
	"csv2ledger/internal/export"
	"csv2ledger/internal/models"
)

// Cmd represents the detect command.
var Cmd = &cobra.Command{
	Use:   "detect <ledger.csv>",
	Short: "Detect transfer pairs in a previously exported ledger CSV",
	Long: `Detect reads a ledger CSV produced by convert or transform, runs
transfer detection over its rows, and reports pairs, conflicts and
transactions flagged for review. With --output the re-categorized ledger is
written back out.`,
	Args: cobra.ExactArgs(1),
	RunE: detectFunc,
}

func detectFunc(cmd *cobra.Command, args []string) error {
	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			root.Log.WithField("file", args[0]).Warn("Failed to close file")
		}
	}()

	var rows []models.LedgerRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return fmt.Errorf("error parsing ledger CSV: %w", err)
	}
	transactions := make([]*models.Transaction, len(rows))
	for i, row := range rows {
		transactions[i] = models.FromLedgerRow(row, i)
	}

	res := root.Pipe.DetectTransfersOnly(transactions)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Transactions:       %d\n", len(transactions))
	fmt.Fprintf(out, "Transfer pairs:     %d\n", res.Summary.Pairs)
	fmt.Fprintf(out, "Conflicts:          %d\n", res.Summary.Conflicts)
	fmt.Fprintf(out, "Flagged for review: %d\n", res.Summary.FlaggedForReview)
	for _, pair := range res.Pairs {
		fmt.Fprintf(out, "  pair %s: #%d -> #%d (%s, confidence %.2f)\n",
			pair.ID, pair.Outgoing.Index, pair.Incoming.Index, pair.Strategy, pair.Confidence)
	}

	if root.SharedFlags.Output != "" {
		opts := export.OptionsFromConfig(root.Cfg)
		if err := export.WriteFile(root.SharedFlags.Output, transactions, opts); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %d transactions to %s\n", len(transactions), root.SharedFlags.Output)
	}
	return nil
}
