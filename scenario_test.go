package svm

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasmlet/svm/memstore"
)

// Scenario A: import + addition.
func TestScenarioImportAddition(t *testing.T) {
	mod := mustParse(t, `
		(module
			(import "env" "add" (func $add (param i32 i32) (result i32)))
			(func $main (result i32) (call $add (i32.const 10) (i32.const 32))))
	`)
	it, err := NewInterpreter(mod, memstore.New())
	require.NoError(t, err)
	require.NoError(t, it.RegisterHostFunction("env", "add", func(args []Value) (Value, error) {
		return I32(args[0].I32() + args[1].I32()), nil
	}, []ValueType{TypeI32, TypeI32}, []ValueType{TypeI32}))

	result, err := it.Run(context.Background(), "main", nil)
	require.NoError(t, err)
	assert.Equal(t, I32(42), result)
}

// Scenario B: array via memory store, f64 sum.
func TestScenarioMemoryStoreArraySum(t *testing.T) {
	mod := mustParse(t, `
		(module
			(import "env" "alloc" (func $alloc (param i32) (result i32)))
			(import "env" "write_f64" (func $write_f64 (param i32 i32 f64)))
			(import "env" "read_f64" (func $read_f64 (param i32 i32) (result f64)))
			(func $main (result f64)
				(local $p i32)
				(local.set $p (call $alloc (i32.const 16)))
				(call $write_f64 (local.get $p) (i32.const 0) (f64.const 1.1))
				(call $write_f64 (local.get $p) (i32.const 8) (f64.const 2.2))
				(f64.add (call $read_f64 (local.get $p) (i32.const 0))
				         (call $read_f64 (local.get $p) (i32.const 8)))))
	`)
	store := memstore.New()
	it, err := NewInterpreter(mod, store)
	require.NoError(t, err)

	require.NoError(t, it.RegisterHostFunction("env", "alloc", func(args []Value) (Value, error) {
		h, err := store.Alloc(int(args[0].I32()))
		if err != nil {
			return Void, err
		}
		return I32(int32(h)), nil
	}, []ValueType{TypeI32}, []ValueType{TypeI32}))

	require.NoError(t, it.RegisterHostFunction("env", "write_f64", func(args []Value) (Value, error) {
		h := memstore.Handle(args[0].I32())
		off := int(args[1].I32())
		return Void, memstore.Write[float64](store, h, off, args[2].F64())
	}, []ValueType{TypeI32, TypeI32, TypeF64}, nil))

	require.NoError(t, it.RegisterHostFunction("env", "read_f64", func(args []Value) (Value, error) {
		h := memstore.Handle(args[0].I32())
		off := int(args[1].I32())
		v, err := memstore.Read[float64](store, h, off)
		return F64(v), err
	}, []ValueType{TypeI32, TypeI32}, []ValueType{TypeF64}))

	result, err := it.Run(context.Background(), "main", nil)
	require.NoError(t, err)
	assert.InDelta(t, 3.3, result.F64(), 1e-9)
}

// Scenario C: span aliasing cross-module.
func TestScenarioSpanAliasing(t *testing.T) {
	store := memstore.New()
	h, err := store.Alloc(12)
	require.NoError(t, err)
	span, err := store.MakeSpan(h, 4, 8)
	require.NoError(t, err)

	require.NoError(t, memstore.Write[int32](store, span, 0, 11))
	v, err := memstore.Read[int32](store, h, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 11, v)
}

// Scenario D: branch to loop.
func TestScenarioBranchToLoop(t *testing.T) {
	mod := mustParse(t, `
		(module
			(func $f (result i32)
				(local $i i32)
				(local.set $i (i32.const 0))
				(loop $L
					(local.set $i (i32.add (local.get $i) (i32.const 1)))
					(br_if $L (i32.lt_s (local.get $i) (i32.const 5))))
				(local.get $i)))
	`)
	it, err := NewInterpreter(mod, memstore.New())
	require.NoError(t, err)

	result, err := it.Run(context.Background(), "f", nil)
	require.NoError(t, err)
	assert.Equal(t, I32(5), result)
}

// Scenario E: indirect call, including error paths.
func TestScenarioIndirectCall(t *testing.T) {
	mod := mustParse(t, `
		(module
			(type $bin (func (param i32 i32) (result i32)))
			(table 2 funcref)
			(elem (i32.const 0) $add $sub)
			(func $add (param i32 i32) (result i32) (i32.add (local.get 0) (local.get 1)))
			(func $sub (param i32 i32) (result i32) (i32.sub (local.get 0) (local.get 1)))
			(func $dispatch (param $a i32) (param $b i32) (param $idx i32) (result i32)
				(call_indirect (type $bin) (local.get $a) (local.get $b) (local.get $idx))))
	`)
	it, err := NewInterpreter(mod, memstore.New())
	require.NoError(t, err)

	result, err := it.Run(context.Background(), "dispatch", []Value{I32(7), I32(3), I32(1)})
	require.NoError(t, err)
	assert.Equal(t, I32(4), result)

	_, err = it.Run(context.Background(), "dispatch", []Value{I32(7), I32(3), I32(2)})
	require.Error(t, err)
	assert.IsType(t, UndefinedElementError{}, err)
}

func TestScenarioIndirectCallSignatureMismatch(t *testing.T) {
	mod := mustParse(t, `
		(module
			(type $bin (func (param i32 i32) (result i32)))
			(table 1 funcref)
			(elem (i32.const 0) $one)
			(func $one (param i32) (result i32) (local.get 0))
			(func $dispatch (result i32)
				(call_indirect (type $bin) (i32.const 7) (i32.const 3) (i32.const 0))))
	`)
	it, err := NewInterpreter(mod, memstore.New())
	require.NoError(t, err)

	_, err = it.Run(context.Background(), "dispatch", nil)
	require.Error(t, err)
	assert.IsType(t, IndirectCallSignatureMismatchError{}, err)
}

// Scenario F: read-only protection of string constants.
func TestScenarioReadOnlyStringConst(t *testing.T) {
	mod := mustParse(t, `
		(module
			(string $greeting "hi")
			(func $main (result i32) (string.const $greeting)))
	`)
	store := memstore.New()
	it, err := NewInterpreter(mod, store)
	require.NoError(t, err)

	result, err := it.Run(context.Background(), "main", nil)
	require.NoError(t, err)

	h := memstore.Handle(result.I32())
	n, err := memstore.Read[int32](store, h, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	err = memstore.Write[byte](store, h, 4, 'x')
	require.Error(t, err)
	assert.IsType(t, memstore.WriteToReadOnlyError{}, err)
}

// Invariant 1: parser round-trip of arithmetic, including two's-complement wrap.
func TestInvariantArithmeticWrap(t *testing.T) {
	mod := mustParse(t, `
		(module (func $f (result i32) (i32.add (i32.const 2147483647) (i32.const 1))))
	`)
	it, err := NewInterpreter(mod, memstore.New())
	require.NoError(t, err)

	result, err := it.Run(context.Background(), "f", nil)
	require.NoError(t, err)
	assert.Equal(t, I32(math.MinInt32), result)
}

// Invariant 2: named and numeric local references address the same storage.
func TestInvariantLocalAliasing(t *testing.T) {
	mod := mustParse(t, `
		(module
			(func $f (param $x i32) (result i32)
				(local.set 0 (i32.add (local.get $x) (i32.const 1)))
				(local.get $x)))
	`)
	it, err := NewInterpreter(mod, memstore.New())
	require.NoError(t, err)

	result, err := it.Run(context.Background(), "f", []Value{I32(41)})
	require.NoError(t, err)
	assert.Equal(t, I32(42), result)
}

// Invariant 6: a block's br resumes execution immediately after its end.
func TestInvariantBlockBranchSkipsToAfterEnd(t *testing.T) {
	mod := mustParse(t, `
		(module
			(func $f (result i32)
				(block $done
					(br $done)
					(return))
				(i32.const 9)))
	`)
	it, err := NewInterpreter(mod, memstore.New())
	require.NoError(t, err)

	result, err := it.Run(context.Background(), "f", nil)
	require.NoError(t, err)
	assert.Equal(t, I32(9), result)
}

// Invariant 8: reentrancy leaves the outer interpreter's stacks exactly as
// they were, plus the declared result.
func TestInvariantReentrancyStackDiscipline(t *testing.T) {
	inner := mustParse(t, `(module (func $double (param i32) (result i32) (i32.mul (local.get 0) (i32.const 2))))`)
	outerMod := mustParse(t, `
		(module
			(import "env" "bridge" (func $bridge (param i32) (result i32)))
			(func $main (param $n i32) (result i32) (call $bridge (local.get $n))))
	`)

	store := memstore.New()
	innerIt, err := NewInterpreter(inner, store)
	require.NoError(t, err)
	outerIt, err := NewInterpreter(outerMod, store)
	require.NoError(t, err)

	require.NoError(t, outerIt.RegisterHostFunction("env", "bridge", func(args []Value) (Value, error) {
		before := len(outerIt.valueStack)
		beforeCalls := len(outerIt.callStack)
		result, err := innerIt.Run(context.Background(), "double", []Value{args[0]})
		if err != nil {
			return Void, err
		}
		assert.Equal(t, before, len(outerIt.valueStack))
		assert.Equal(t, beforeCalls, len(outerIt.callStack))
		return result, nil
	}, []ValueType{TypeI32}, []ValueType{TypeI32}))

	result, err := outerIt.Run(context.Background(), "main", []Value{I32(21)})
	require.NoError(t, err)
	assert.Equal(t, I32(42), result)
}
