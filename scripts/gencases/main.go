// Command gencases regenerates golden ".expected" files for every ".svm"
// fixture under a directory, running each concurrently under a shared
// deadline -- grounded in the teacher's scripts/gen_vm_expects.go pipeline
// (flag-driven paths, errgroup.WithContext, a context timeout), but driving
// the interpreter over fixtures instead of scanning test-DSL source lines.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wasmlet/svm"
	"github.com/wasmlet/svm/memstore"
)

func main() {
	var (
		dir     string
		funcName string
		timeout time.Duration
	)
	flag.StringVar(&dir, "dir", "testdata", "directory of .svm fixtures")
	flag.StringVar(&funcName, "func", "main", "exported function to invoke per fixture")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "overall deadline")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := run(ctx, dir, funcName); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, dir, funcName string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*.svm"))
	if err != nil {
		return err
	}

	eg, ctx := errgroup.WithContext(ctx)
	for _, path := range matches {
		path := path
		eg.Go(func() error { return genOne(ctx, path, funcName) })
	}
	return eg.Wait()
}

func genOne(ctx context.Context, path, funcName string) error {
	text, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	mod, err := svm.Parse(path, string(text))
	if err != nil {
		return writeExpected(path, fmt.Sprintf("parse error: %v\n", err))
	}

	store := memstore.New()
	it, err := svm.NewInterpreter(mod, store)
	if err != nil {
		return writeExpected(path, fmt.Sprintf("instantiate error: %v\n", err))
	}

	result, err := it.Run(ctx, funcName, nil)
	if err != nil {
		return writeExpected(path, fmt.Sprintf("run error: %v\n", err))
	}
	return writeExpected(path, fmt.Sprintf("%v\n", result))
}

func writeExpected(svmPath, content string) error {
	expectedPath := svmPath[:len(svmPath)-len(filepath.Ext(svmPath))] + ".expected"
	return os.WriteFile(expectedPath, []byte(content), 0o644)
}
