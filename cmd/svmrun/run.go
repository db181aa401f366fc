package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wasmlet/svm"
	"github.com/wasmlet/svm/internal/logio"
	"github.com/wasmlet/svm/memstore"
)

func newRunCmd(log *logio.Logger) *cobra.Command {
	var (
		funcName       string
		argStrs        []string
		timeout        time.Duration
		trace          bool
		callStackLimit int
	)

	cmd := &cobra.Command{
		Use:   "run <module.svm>",
		Short: "Instantiate a module and invoke one of its exported functions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mod, err := loadModule(args[0])
			if err != nil {
				return err
			}

			var opts []svm.InterpreterOption
			if trace {
				opts = append(opts, svm.WithTraceLog(log.Leveledf("TRACE")))
			}
			if callStackLimit > 0 {
				opts = append(opts, svm.WithCallStackLimit(callStackLimit))
			}

			store := memstore.New()
			it, err := svm.NewInterpreter(mod, store, opts...)
			if err != nil {
				return err
			}
			if err := registerHostEnv(it, store); err != nil {
				return err
			}

			callArgs, err := parseArgs(argStrs)
			if err != nil {
				return err
			}

			ctx := context.Background()
			if timeout != 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			result, err := it.Run(ctx, funcName, callArgs)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&funcName, "func", "main", "exported function to invoke")
	cmd.Flags().StringSliceVar(&argStrs, "arg", nil, "typed argument, e.g. i32:42 or f64:3.5 (repeatable)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "cancel execution after this duration")
	cmd.Flags().BoolVar(&trace, "trace", false, "log every executed instruction")
	cmd.Flags().IntVar(&callStackLimit, "call-stack-limit", 0, "bound call-stack depth (0 = unbounded)")

	return cmd
}

// parseArgs parses "type:literal" strings into typed Values, e.g. "i32:42".
func parseArgs(strs []string) ([]svm.Value, error) {
	out := make([]svm.Value, 0, len(strs))
	for _, s := range strs {
		typeName, lit, ok := strings.Cut(s, ":")
		if !ok {
			return nil, fmt.Errorf("malformed --arg %q, want type:literal", s)
		}
		switch typeName {
		case "i32":
			n, err := strconv.ParseInt(lit, 10, 32)
			if err != nil {
				return nil, err
			}
			out = append(out, svm.I32(int32(n)))
		case "i64":
			n, err := strconv.ParseInt(lit, 10, 64)
			if err != nil {
				return nil, err
			}
			out = append(out, svm.I64(n))
		case "f32":
			f, err := strconv.ParseFloat(lit, 32)
			if err != nil {
				return nil, err
			}
			out = append(out, svm.F32(float32(f)))
		case "f64":
			f, err := strconv.ParseFloat(lit, 64)
			if err != nil {
				return nil, err
			}
			out = append(out, svm.F64(f))
		default:
			return nil, fmt.Errorf("unknown arg type %q", typeName)
		}
	}
	return out, nil
}
