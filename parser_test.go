package svm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleFunc(t *testing.T) {
	mod, err := Parse("t", `
		(module
			(func $add (param $a i32) (param $b i32) (result i32)
				(i32.add (local.get $a) (local.get $b))))
	`)
	require.NoError(t, err)
	require.Len(t, mod.Functions, 1)

	fn := mod.Functions[0]
	assert.Equal(t, "add", fn.Name)
	assert.Equal(t, []ValueType{TypeI32, TypeI32}, fn.ParamTypes)
	assert.Equal(t, []string{"a", "b"}, fn.ParamNames)
	assert.Equal(t, []ValueType{TypeI32}, fn.ResultTypes)

	// folded form desugars to flat postfix: operands before the op.
	require.Len(t, fn.Body, 3)
	assert.Equal(t, OpLocalGet, fn.Body[0].Op)
	assert.Equal(t, "a", fn.Body[0].Imm.name)
	assert.Equal(t, OpLocalGet, fn.Body[1].Op)
	assert.Equal(t, "b", fn.Body[1].Imm.name)
	assert.Equal(t, OpI32Add, fn.Body[2].Op)
}

func TestParseBlockLoopBranch(t *testing.T) {
	mod, err := Parse("t", `
		(module
			(func $count_down (param $n i32)
				(block $done
					(loop $again
						(br_if $done (i32.eq (local.get $n) (i32.const 0)))
						(local.set $n (i32.sub (local.get $n) (i32.const 1)))
						(br $again)))))
	`)
	require.NoError(t, err)
	require.Len(t, mod.Functions, 1)

	body := mod.Functions[0].Body
	require.NotEmpty(t, body)
	assert.Equal(t, OpBlock, body[0].Op)
	assert.Equal(t, "done", body[0].Imm.name)
	assert.Equal(t, OpEnd, body[len(body)-1].Op)

	var sawLoop, sawBrIf, sawBr bool
	for _, instr := range body {
		switch instr.Op {
		case OpLoop:
			sawLoop = true
			assert.Equal(t, "again", instr.Imm.name)
		case OpBrIf:
			sawBrIf = true
			assert.Equal(t, "done", instr.Imm.name)
		case OpBr:
			sawBr = true
			assert.Equal(t, "again", instr.Imm.name)
		}
	}
	assert.True(t, sawLoop)
	assert.True(t, sawBrIf)
	assert.True(t, sawBr)
}

func TestParseTableElemAndCallIndirect(t *testing.T) {
	mod, err := Parse("t", `
		(module
			(type $binop (func (param i32 i32) (result i32)))
			(table 2 funcref)
			(elem (i32.const 0) $add $sub)
			(func $add (param i32 i32) (result i32) (i32.add (local.get 0) (local.get 1)))
			(func $sub (param i32 i32) (result i32) (i32.sub (local.get 0) (local.get 1)))
			(func $dispatch (param $idx i32) (param $a i32) (param $b i32) (result i32)
				(call_indirect (type $binop) (local.get $a) (local.get $b) (local.get $idx))))
	`)
	require.NoError(t, err)
	require.Len(t, mod.Tables, 1)
	assert.Equal(t, 2, mod.Tables[0].Min)

	require.Len(t, mod.Elements, 1)
	assert.Equal(t, []string{"add", "sub"}, mod.Elements[0].FunctionNames)

	dispatch := mod.Functions[2]
	last := dispatch.Body[len(dispatch.Body)-1]
	assert.Equal(t, OpCallIndirect, last.Op)
	assert.Equal(t, "binop", last.Imm.name)
}

func TestParseImportAndString(t *testing.T) {
	mod, err := Parse("t", `
		(module
			(import "env" "log" (func $log (param i32)))
			(string $greeting "hello"))
	`)
	require.NoError(t, err)
	require.Len(t, mod.Imports, 1)
	assert.Equal(t, "env", mod.Imports[0].Module)
	assert.Equal(t, "log", mod.Imports[0].Field)
	assert.Equal(t, "log", mod.Imports[0].Alias)

	require.Len(t, mod.Strings, 1)
	assert.Equal(t, "greeting", mod.Strings[0].Alias)
	assert.Equal(t, "hello", mod.Strings[0].Value)
}

func TestParseRejectsMemoryOps(t *testing.T) {
	_, err := Parse("t", `
		(module
			(func $bad (i32.load (i32.const 0))))
	`)
	require.Error(t, err)
	assert.IsType(t, UnsupportedMnemonicError{}, err)
}

func TestParseRejectsFlatInstructions(t *testing.T) {
	_, err := Parse("t", `
		(module
			(func $bad i32.const 1))
	`)
	require.Error(t, err)
	assert.IsType(t, FlatInstructionNotSupportedError{}, err)
}
