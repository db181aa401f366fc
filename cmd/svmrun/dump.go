package main

import (
	"github.com/spf13/cobra"

	"github.com/wasmlet/svm"
	"github.com/wasmlet/svm/internal/logio"
	"github.com/wasmlet/svm/memstore"
)

func newDumpCmd(log *logio.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "dump <module.svm>",
		Short: "Print a module's resolved symbol tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mod, err := loadModule(args[0])
			if err != nil {
				return err
			}
			store := memstore.New()
			it, err := svm.NewInterpreter(mod, store)
			if err != nil {
				return err
			}
			it.Dump(cmd.OutOrStdout())
			return nil
		},
	}
}
