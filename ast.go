package svm

// Function is a named, fully-parsed function body: parallel parameter
// types/names, zero-or-one result type, parallel local types/names, and a
// flat pre-order instruction stream with BLOCK/LOOP/END markers.
type Function struct {
	Name string

	ParamTypes []ValueType
	ParamNames []string

	ResultTypes []ValueType

	LocalTypes []ValueType
	LocalNames []string

	Body []Instruction
}

func (f *Function) arity() int { return len(f.ParamTypes) }

func (f *Function) hasResult() bool { return len(f.ResultTypes) > 0 }

// Import names a host-satisfied or cross-module function dependency.
type Import struct {
	Module string
	Field  string
	Alias  string // local alias; may be empty

	ParamTypes  []ValueType
	ResultTypes []ValueType
}

// Type is a named function signature, referenced by call_indirect.
type Type struct {
	Name        string
	ParamTypes  []ValueType
	ResultTypes []ValueType
}

func (t Type) signatureEqual(params, results []ValueType) bool {
	if len(t.ParamTypes) != len(params) || len(t.ResultTypes) != len(results) {
		return false
	}
	for i := range params {
		if t.ParamTypes[i] != params[i] {
			return false
		}
	}
	for i := range results {
		if t.ResultTypes[i] != results[i] {
			return false
		}
	}
	return true
}

// Table declares a single module-level funcref table.
type Table struct {
	Name string
	Min  int
	Max  int
}

// ElementSegment installs a run of function names into the funcref table
// starting at a constant offset.
type ElementSegment struct {
	Offset        int32
	FunctionNames []string
}

// StringDefinition is a named byte-serializable constant instantiated on
// module load into a read-only memory-store block.
type StringDefinition struct {
	Alias string
	Value string
}

// Module is the parser's output: owned collections of every top-level form.
type Module struct {
	Name string

	Functions []Function
	Imports   []Import
	Types     []Type
	Tables    []Table
	Elements  []ElementSegment
	Strings   []StringDefinition
}

func (m *Module) findType(name string) (Type, bool) {
	for _, t := range m.Types {
		if t.Name == name {
			return t, true
		}
	}
	return Type{}, false
}
