package main

import (
	"os"

	"github.com/wasmlet/svm"
	"github.com/wasmlet/svm/memstore"
)

// loadModule reads and parses a single module file, the shared entry point
// for run/lint/dump.
func loadModule(path string) (*svm.Module, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return svm.Parse(path, string(text))
}

// registerHostEnv wires the CLI's concrete "env" host module onto it: the
// memory-store primitives spec.md leaves abstract ("Host Function Façade")
// so that a textual module can actually allocate and touch bytes when run
// from the command line. A library embedder is free to register a wholly
// different set; these exist only to make svmrun self-sufficient.
func registerHostEnv(it *svm.Interpreter, store *memstore.Store) error {
	reg := func(field string, fn svm.HostFunc, params, results []svm.ValueType) error {
		return it.RegisterHostFunction("env", field, fn, params, results)
	}

	i32 := svm.TypeI32
	noresult := []svm.ValueType(nil)

	if err := reg("alloc", func(args []svm.Value) (svm.Value, error) {
		h, err := store.Alloc(int(args[0].I32()))
		if err != nil {
			return svm.Void, err
		}
		return svm.I32(int32(h)), nil
	}, []svm.ValueType{i32}, []svm.ValueType{i32}); err != nil {
		return err
	}

	if err := reg("size", func(args []svm.Value) (svm.Value, error) {
		n, err := store.Size(memstore.Handle(args[0].I32()))
		if err != nil {
			return svm.Void, err
		}
		return svm.I32(int32(n)), nil
	}, []svm.ValueType{i32}, []svm.ValueType{i32}); err != nil {
		return err
	}

	if err := reg("make_span", func(args []svm.Value) (svm.Value, error) {
		h, err := store.MakeSpan(memstore.Handle(args[0].I32()), int(args[1].I32()), int(args[2].I32()))
		if err != nil {
			return svm.Void, err
		}
		return svm.I32(int32(h)), nil
	}, []svm.ValueType{i32, i32, i32}, []svm.ValueType{i32}); err != nil {
		return err
	}

	if err := reg("read_i32", func(args []svm.Value) (svm.Value, error) {
		v, err := memstore.Read[int32](store, memstore.Handle(args[0].I32()), int(args[1].I32()))
		if err != nil {
			return svm.Void, err
		}
		return svm.I32(v), nil
	}, []svm.ValueType{i32, i32}, []svm.ValueType{i32}); err != nil {
		return err
	}

	if err := reg("write_i32", func(args []svm.Value) (svm.Value, error) {
		err := memstore.Write[int32](store, memstore.Handle(args[0].I32()), int(args[1].I32()), args[2].I32())
		return svm.Void, err
	}, []svm.ValueType{i32, i32, i32}, noresult); err != nil {
		return err
	}

	if err := reg("read_f64", func(args []svm.Value) (svm.Value, error) {
		v, err := memstore.Read[float64](store, memstore.Handle(args[0].I32()), int(args[1].I32()))
		if err != nil {
			return svm.Void, err
		}
		return svm.F64(v), nil
	}, []svm.ValueType{i32, i32}, []svm.ValueType{svm.TypeF64}); err != nil {
		return err
	}

	if err := reg("write_f64", func(args []svm.Value) (svm.Value, error) {
		err := memstore.Write[float64](store, memstore.Handle(args[0].I32()), int(args[1].I32()), args[2].F64())
		return svm.Void, err
	}, []svm.ValueType{i32, i32, svm.TypeF64}, noresult); err != nil {
		return err
	}

	return nil
}
