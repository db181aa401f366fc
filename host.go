package svm

import "strconv"

// HostFunc is a callable host function: it consumes the declared arity of
// argument values and returns either a single result Value or Void.
// Cross-module linking is modeled by registering a HostFunc in module A
// whose body invokes Run on an Interpreter for module B (spec.md §4.5, §9).
type HostFunc func(args []Value) (Value, error)

type hostEntry struct {
	fn      HostFunc
	params  []ValueType
	results []ValueType
}

func (e hostEntry) arity() int { return len(e.params) }

// RegisterHostFunction scans the module's imports for every (modName,
// field) match and registers fn under each match's alias (if any), its
// stringified import index, and its "module.field" form, after asserting
// the given signature equals the import's declared one.
func (it *Interpreter) RegisterHostFunction(modName, field string, fn HostFunc, params, results []ValueType) error {
	for i, imp := range it.mod.Imports {
		if imp.Module != modName || imp.Field != field {
			continue
		}
		if !typeListEqual(imp.ParamTypes, params) || !typeListEqual(imp.ResultTypes, results) {
			return ImportSignatureMismatchError{Module: modName, Field: field}
		}
		entry := hostEntry{fn: fn, params: params, results: results}
		if imp.Alias != "" {
			it.hostFuncs[imp.Alias] = entry
		}
		it.hostFuncs[strconv.Itoa(i)] = entry
		it.hostFuncs[imp.Module+"."+imp.Field] = entry
	}
	return nil
}
