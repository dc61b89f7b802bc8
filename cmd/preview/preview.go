// Package preview handles the statement preview command.
package preview

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"csv2ledger/cmd/root"
	"csv2ledger/internal/pipeline"
)

var (
	rows      int
	encoding  string
	headerRow int

	// Cmd represents the preview command.
	Cmd = &cobra.Command{
		Use:   "preview <file>",
		Short: "Show how a statement file will be interpreted",
		Long: `Preview parses the head of a statement file and reports the detected
encoding, delimiter, header row and bank, together with the first rows as
they will be seen by the converter.`,
		Args: cobra.ExactArgs(1),
		RunE: previewFunc,
	}
)

func init() {
	Cmd.Flags().IntVarP(&rows, "rows", "n", pipeline.DefaultPreviewRows, "Number of rows to preview")
	Cmd.Flags().StringVarP(&encoding, "encoding", "e", "", "Force a character encoding")
	Cmd.Flags().IntVar(&headerRow, "header-row", -1, "Force a zero-based header row")
}

func previewFunc(cmd *cobra.Command, args []string) error {
	opts := pipeline.PreviewOptions{MaxRows: rows, Encoding: encoding}
	if headerRow >= 0 {
		hr := headerRow
		opts.HeaderRow = &hr
	}

	res, err := root.Pipe.Preview(cmd.Context(), args[0], opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "File:      %s\n", args[0])
	fmt.Fprintf(out, "Encoding:  %s (confidence %.2f)\n", res.Encoding, res.Info.EncodingConfidence)
	fmt.Fprintf(out, "Delimiter: %q\n", res.Info.Delimiter)
	fmt.Fprintf(out, "Strategy:  %s\n", res.Info.Strategy)
	if res.Info.HeaderRow != nil {
		fmt.Fprintf(out, "Header:    row %d\n", *res.Info.HeaderRow)
	} else {
		fmt.Fprintln(out, "Header:    none (synthetic columns)")
	}
	if res.Bank != nil && res.Bank.Bank != "" {
		fmt.Fprintf(out, "Bank:      %s (%s, confidence %.2f)\n", res.Bank.Bank, res.Bank.DisplayName, res.Bank.Confidence)
	} else {
		fmt.Fprintln(out, "Bank:      not detected")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, strings.Join(res.Headers, " | "))
	for _, record := range res.PreviewData {
		cells := make([]string, len(res.Headers))
		for i, h := range res.Headers {
			cells[i] = record[h]
		}
		fmt.Fprintln(out, strings.Join(cells, " | "))
	}
	return nil
}
