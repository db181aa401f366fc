package svm

import (
	"fmt"
	"io"
	"strconv"
)

// interpreterDumper renders an Interpreter's resolved state for
// diagnostics, in the section-by-section style of the teacher's vmDumper:
// fixed-width address/index columns, one logical section per region of
// state.
type interpreterDumper struct {
	it  *Interpreter
	out io.Writer

	idxWidth int
}

// Dump writes a human-readable rendering of the interpreter's module
// symbols, funcref table, and live stacks to w.
func (it *Interpreter) Dump(w io.Writer) {
	dump := interpreterDumper{it: it, out: w}
	dump.idxWidth = len(strconv.Itoa(len(it.mod.Functions))) + 1
	dump.dumpFunctions()
	dump.dumpTable()
	dump.dumpStrings()
	dump.dumpStacks()
}

func (dump interpreterDumper) dumpFunctions() {
	fmt.Fprintf(dump.out, "# functions\n")
	for i, fn := range dump.it.mod.Functions {
		fmt.Fprintf(dump.out, "  %*d: %s%s\n", dump.idxWidth, i, fn.Name, dump.signature(fn.ParamTypes, fn.ResultTypes))
	}
}

func (dump interpreterDumper) signature(params, results []ValueType) string {
	s := " ("
	for i, p := range params {
		if i > 0 {
			s += " "
		}
		s += p.String()
	}
	s += ")"
	if len(results) > 0 {
		s += " ->"
		for _, r := range results {
			s += " " + r.String()
		}
	}
	return s
}

func (dump interpreterDumper) dumpTable() {
	if len(dump.it.table) == 0 {
		return
	}
	fmt.Fprintf(dump.out, "# table\n")
	for i, fi := range dump.it.table {
		if fi == nullElement {
			fmt.Fprintf(dump.out, "  %*d: <null>\n", dump.idxWidth, i)
			continue
		}
		fmt.Fprintf(dump.out, "  %*d: %s\n", dump.idxWidth, i, dump.it.mod.Functions[fi].Name)
	}
}

func (dump interpreterDumper) dumpStrings() {
	if len(dump.it.stringHandles) == 0 {
		return
	}
	fmt.Fprintf(dump.out, "# strings\n")
	for _, sd := range dump.it.mod.Strings {
		fmt.Fprintf(dump.out, "  $%s -> handle %d\n", sd.Alias, dump.it.stringHandles[sd.Alias])
	}
}

func (dump interpreterDumper) dumpStacks() {
	fmt.Fprintf(dump.out, "# value stack\n  %v\n", dump.it.valueStack)
	fmt.Fprintf(dump.out, "# call stack\n")
	for i := len(dump.it.callStack) - 1; i >= 0; i-- {
		f := dump.it.callStack[i]
		fmt.Fprintf(dump.out, "  %*d: %s pc=%d\n", dump.idxWidth, i, f.fn.Name, f.pc)
	}
}
