package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wasmlet/svm"
	"github.com/wasmlet/svm/internal/logio"
	"github.com/wasmlet/svm/internal/panicerr"
	"github.com/wasmlet/svm/memstore"
)

func newLintCmd(log *logio.Logger) *cobra.Command {
	var jobs int

	cmd := &cobra.Command{
		Use:   "lint <module.svm>...",
		Short: "Parse and instantiate modules concurrently, reporting any failure",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, paths []string) error {
			return lintAll(log, paths, jobs)
		},
	}

	cmd.Flags().IntVar(&jobs, "jobs", 0, "maximum concurrent files (0 = unbounded)")
	return cmd
}

// lintAll parses and instantiates every path concurrently. Unlike Run,
// which recovers panics synchronously within one goroutine (spec.md §5:
// run is single-threaded and cooperative), linting genuinely fans out one
// goroutine per file, so panicerr.Recover -- not a plain defer/recover --
// isolates each file's panics from its siblings.
func lintAll(log *logio.Logger, paths []string, jobs int) error {
	var g errgroup.Group
	if jobs > 0 {
		g.SetLimit(jobs)
	}

	for _, path := range paths {
		path := path
		g.Go(func() error {
			err := panicerr.Recover(path, func() error { return lintOne(path) })
			if err != nil {
				log.Errorf("%v: %v", path, err)
				return err
			}
			log.Printf("OK", "%v", path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("lint failed")
	}
	return nil
}

func lintOne(path string) error {
	mod, err := loadModule(path)
	if err != nil {
		return err
	}
	store := memstore.New()
	it, err := svm.NewInterpreter(mod, store)
	if err != nil {
		return err
	}
	return registerHostEnv(it, store)
}
