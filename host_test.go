package svm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasmlet/svm/memstore"
)

func TestRegisterHostFunctionSignatureMismatch(t *testing.T) {
	mod := mustParse(t, `
		(module
			(import "env" "f" (func $f (param i32) (result i32))))
	`)
	it, err := NewInterpreter(mod, memstore.New())
	require.NoError(t, err)

	err = it.RegisterHostFunction("env", "f", func(args []Value) (Value, error) {
		return Void, nil
	}, []ValueType{TypeI64}, []ValueType{TypeI32})
	assert.IsType(t, ImportSignatureMismatchError{}, err)
}

func TestRegisterHostFunctionNoMatchIsNoop(t *testing.T) {
	mod := mustParse(t, `(module)`)
	it, err := NewInterpreter(mod, memstore.New())
	require.NoError(t, err)

	err = it.RegisterHostFunction("env", "nonexistent", func(args []Value) (Value, error) {
		return Void, nil
	}, nil, nil)
	assert.NoError(t, err)
}

func TestRegisterHostFunctionAllKeyForms(t *testing.T) {
	mod := mustParse(t, `
		(module
			(import "env" "f" (func $alias (param i32) (result i32))))
	`)
	it, err := NewInterpreter(mod, memstore.New())
	require.NoError(t, err)

	require.NoError(t, it.RegisterHostFunction("env", "f", func(args []Value) (Value, error) {
		return I32(args[0].I32() + 1), nil
	}, []ValueType{TypeI32}, []ValueType{TypeI32}))

	_, okAlias := it.hostFuncs["alias"]
	_, okIndex := it.hostFuncs["0"]
	_, okQualified := it.hostFuncs["env.f"]
	assert.True(t, okAlias)
	assert.True(t, okIndex)
	assert.True(t, okQualified)
}
