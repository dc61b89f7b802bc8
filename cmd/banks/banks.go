// Package banks handles bank registry inspection commands.
package banks

import (
	"fmt"

	"github.com/spf13/cobra"

	"csv2ledger/cmd/root"
	"csv2ledger/internal/pipeline"
)

// Cmd represents the banks command.
var Cmd = &cobra.Command{
	Use:   "banks [file...]",
	Short: "List configured banks or score files against them",
	Long: `Without arguments, banks lists every configured bank. With file
arguments it runs bank detection on each file and prints the winning bank
and its confidence, which is useful when tuning detection settings.`,
	RunE: banksFunc,
}

func banksFunc(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if root.Registry == nil {
		fmt.Fprintln(out, "No bank configuration directory loaded.")
		return nil
	}

	if len(args) == 0 {
		names := root.Registry.ListBanks()
		fmt.Fprintf(out, "%d configured banks:\n", len(names))
		for _, name := range names {
			cfg := root.Registry.GetConfig(name)
			display := ""
			if cfg != nil && cfg.DisplayName != name {
				display = " (" + cfg.DisplayName + ")"
			}
			fmt.Fprintf(out, "  %s%s\n", name, display)
		}
		return nil
	}

	for _, path := range args {
		res := root.Pipe.Parse(cmd.Context(), path, pipeline.ParseOptions{EndRow: 25})
		if !res.Success {
			fmt.Fprintf(out, "%s: error: %v\n", path, res.Err)
			continue
		}
		if res.Bank == nil || res.Bank.Bank == "" {
			fmt.Fprintf(out, "%s: no bank detected\n", path)
			continue
		}
		marker := ""
		if !res.Bank.Confident {
			marker = " (below confidence threshold)"
		}
		fmt.Fprintf(out, "%s: %s confidence %.2f%s\n", path, res.Bank.Bank, res.Bank.Confidence, marker)
	}
	return nil
}
