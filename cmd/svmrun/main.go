// Command svmrun loads and executes textual stack-machine modules, in the
// manner of the teacher's FIRST/THIRD main command: a small flag surface
// around Run with optional trace logging, plus separate lint and dump
// subcommands that instantiate modules without running them.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/wasmlet/svm/internal/logio"
)

func main() {
	log := &logio.Logger{}
	log.SetOutput(os.Stderr)
	defer os.Exit(log.ExitCode())

	root := &cobra.Command{
		Use:           "svmrun",
		Short:         "Load and execute textual stack-machine modules",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(log))
	root.AddCommand(newLintCmd(log))
	root.AddCommand(newDumpCmd(log))

	if err := root.Execute(); err != nil {
		log.Errorf("%v", err)
	}
}
