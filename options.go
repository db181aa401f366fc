package svm

// InterpreterOption configures an Interpreter at construction time,
// following the teacher's VMOption pattern (api.go/options.go): small typed
// option values applied in order against the Interpreter under
// construction.
type InterpreterOption interface{ apply(it *Interpreter) }

type options []InterpreterOption

func (opts options) apply(it *Interpreter) {
	for _, opt := range opts {
		if opt != nil {
			opt.apply(it)
		}
	}
}

// InterpreterOptions flattens and returns a combined option, so callers may
// build up a reusable option set the same way the teacher composes
// VMOptions.
func InterpreterOptions(opts ...InterpreterOption) InterpreterOption {
	var res options
	for _, opt := range opts {
		switch impl := opt.(type) {
		case nil:
		case options:
			res = append(res, impl...)
		default:
			res = append(res, opt)
		}
	}
	return res
}

type withLogfn func(mess string, args ...interface{})

func (f withLogfn) apply(it *Interpreter) { it.logfn = f }

// WithTraceLog enables per-instruction trace logging through logfn, in the
// style of teacher's WithLogf: logfn receives a printf-style format string
// and its arguments for one line per call, typically wired to a
// Logger.Leveledf output.
func WithTraceLog(logfn func(mess string, args ...interface{})) InterpreterOption {
	return withLogfn(logfn)
}

type callStackLimitOption int

func (n callStackLimitOption) apply(it *Interpreter) { it.callStackLimit = int(n) }

// WithCallStackLimit bounds the depth of the interpreter's call stack,
// surfacing a CallStackOverflowError once exceeded. Zero (the default)
// means unbounded.
func WithCallStackLimit(n int) InterpreterOption { return callStackLimitOption(n) }
