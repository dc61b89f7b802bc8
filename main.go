package main

import (
	"os"

	"csv2ledger/cmd/banks"
	"csv2ledger/cmd/convert"
	"csv2ledger/cmd/detect"
	"csv2ledger/cmd/preview"
	"csv2ledger/cmd/root"
	"csv2ledger/cmd/transform"
)

func init() {
	root.Init()

	root.Cmd.AddCommand(preview.Cmd)
	root.Cmd.AddCommand(convert.Cmd)
	root.Cmd.AddCommand(transform.Cmd)
	root.Cmd.AddCommand(detect.Cmd)
	root.Cmd.AddCommand(banks.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		root.Log.Error(err)
		os.Exit(root.ExitCode(err))
	}
}
