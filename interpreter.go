package svm

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/wasmlet/svm/memstore"
)

const nullElement = -1

type frame struct {
	fn           *Function
	pc           int
	returnHeight int
	locals       []Value
}

// Interpreter holds all per-instance state for one instantiated Module:
// the function symbol table, host-function registry, funcref table,
// string-constant handle table, value stack and call stack (spec.md §3
// "Runtime instance state"). Construction resolves strings and the funcref
// table once; any number of Run invocations may follow.
type Interpreter struct {
	mod   *Module
	store *memstore.Store

	funcMap       map[string]int
	hostFuncs     map[string]hostEntry
	table         []int32 // function index, or nullElement
	stringHandles map[string]memstore.Handle

	valueStack []Value
	callStack  []frame

	callStackLimit int

	logfn     func(mess string, args ...interface{})
	markWidth int
}

// logf formats and emits one trace line through logfn, left-padding mark to
// the widest mark seen so far, matching the teacher's logging.logf.
func (it *Interpreter) logf(mark, mess string, args ...interface{}) {
	if it.logfn == nil {
		return
	}
	if n := it.markWidth - len(mark); n > 0 {
		mark = strings.Repeat(" ", n) + mark
	} else if n < 0 {
		it.markWidth = len(mark)
	}
	if len(args) > 0 {
		mess = fmt.Sprintf(mess, args...)
	}
	it.logfn("%v %v", mark, mess)
}

// NewInterpreter constructs an Interpreter over mod, sharing store with any
// other interpreter the embedder has built (spec.md §4.4 "Construction").
func NewInterpreter(mod *Module, store *memstore.Store, opts ...InterpreterOption) (*Interpreter, error) {
	it := &Interpreter{
		mod:           mod,
		store:         store,
		funcMap:       make(map[string]int, len(mod.Functions)),
		hostFuncs:     make(map[string]hostEntry),
		stringHandles: make(map[string]memstore.Handle, len(mod.Strings)),
	}
	InterpreterOptions(opts...).apply(it)

	for i := range mod.Functions {
		it.funcMap[mod.Functions[i].Name] = i
	}

	for _, sd := range mod.Strings {
		h := it.store.AllocReadonly(encodeStringConst(sd.Value))
		it.stringHandles[sd.Alias] = h
	}

	if len(mod.Tables) > 0 {
		tbl := mod.Tables[0]
		it.table = make([]int32, tbl.Min)
		for i := range it.table {
			it.table[i] = nullElement
		}
		for _, elem := range mod.Elements {
			for i, name := range elem.FunctionNames {
				idx := int(elem.Offset) + i
				if idx < 0 || idx >= len(it.table) {
					continue // surfaces later as an indirect-call fault
				}
				fi, ok := it.funcMap[name]
				if !ok {
					continue
				}
				it.table[idx] = int32(fi)
			}
		}
	}

	if err := precomputeBranches(mod); err != nil {
		return nil, err
	}

	return it, nil
}

// encodeStringConst serializes a string constant as a 4-byte little-endian
// length prefix followed by its raw bytes (spec.md §6).
func encodeStringConst(s string) []byte {
	buf := make([]byte, 4+len(s))
	n := uint32(len(s))
	buf[0] = byte(n)
	buf[1] = byte(n >> 8)
	buf[2] = byte(n >> 16)
	buf[3] = byte(n >> 24)
	copy(buf[4:], s)
	return buf
}

// precomputeBranches resolves, for every BLOCK marker in every function
// body, the index of its matching END -- the suggested optimization from
// spec.md's Design Notes ("a single pre-pass matches BLOCK/LOOP/END by
// depth"), avoiding a forward rescan on every block-exit branch taken at
// runtime. LOOP markers need no precomputed target: branching to a loop
// jumps to the marker's own index.
func precomputeBranches(mod *Module) error {
	for fi := range mod.Functions {
		body := mod.Functions[fi].Body
		var stack []int
		for i := range body {
			switch body[i].Op {
			case OpBlock, OpLoop:
				stack = append(stack, i)
			case OpEnd:
				if len(stack) == 0 {
					return UnmatchedEndError{Func: mod.Functions[fi].Name}
				}
				start := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				body[start].branchTarget = i
			}
		}
	}
	return nil
}

// Store returns the memory store this interpreter shares with its embedder
// and any other interpreter instantiated against the same store.
func (it *Interpreter) Store() *memstore.Store { return it.store }

// Module returns the module this interpreter was instantiated from.
func (it *Interpreter) Module() *Module { return it.mod }

func (it *Interpreter) push(v Value) { it.valueStack = append(it.valueStack, v) }

func (it *Interpreter) pop() (Value, error) {
	n := len(it.valueStack)
	if n == 0 {
		return Value{}, StackUnderflowError{}
	}
	v := it.valueStack[n-1]
	it.valueStack = it.valueStack[:n-1]
	return v, nil
}

func (it *Interpreter) popI32() (int32, error) {
	v, err := it.pop()
	if err != nil {
		return 0, err
	}
	return v.I32(), nil
}

// Run looks up funcName, verifies arity, and executes it to completion or
// fault (spec.md §4.4 "Invocation"). A returned error means the interpreter
// must not be reused (spec.md §5 "Cancellation").
func (it *Interpreter) Run(ctx context.Context, funcName string, args []Value) (result Value, err error) {
	fi, ok := it.funcMap[funcName]
	if !ok {
		return Value{}, UnknownFunctionError{Name: funcName}
	}
	fn := &it.mod.Functions[fi]
	if len(args) != len(fn.ParamTypes) {
		return Value{}, ArgumentMismatchError{Func: funcName, Want: len(fn.ParamTypes), Got: len(args)}
	}

	defer func() {
		if r := recover(); r != nil {
			if he, ok2 := r.(haltError); ok2 {
				err = he.error
				return
			}
			panic(r)
		}
	}()

	it.pushFrame(fn, args)

	for len(it.callStack) > 0 {
		if err := ctx.Err(); err != nil {
			return Value{}, err
		}
		it.step()
	}

	if len(it.valueStack) > 0 {
		return it.valueStack[len(it.valueStack)-1], nil
	}
	return Void, nil
}

type haltError struct{ error }

func (it *Interpreter) halt(err error) {
	panic(haltError{err})
}

func (it *Interpreter) pushFrame(fn *Function, args []Value) {
	locals := make([]Value, 0, len(args)+len(fn.LocalTypes))
	locals = append(locals, args...)
	for _, lt := range fn.LocalTypes {
		locals = append(locals, zeroOf(lt))
	}
	it.callStack = append(it.callStack, frame{fn: fn, returnHeight: len(it.valueStack), locals: locals})
	if it.callStackLimit > 0 && len(it.callStack) > it.callStackLimit {
		it.halt(CallStackOverflowError{Limit: it.callStackLimit})
	}
}

// step fetches, advances the program counter past, and executes one
// instruction of the topmost call frame -- or performs a return if the
// frame's body is exhausted (spec.md §4.4 "State machine").
func (it *Interpreter) step() {
	cur := &it.callStack[len(it.callStack)-1]
	if cur.pc >= len(cur.fn.Body) {
		it.handleReturn()
		return
	}

	instr := cur.fn.Body[cur.pc]
	cur.pc++

	if it.logfn != nil {
		it.traceStep(cur, instr)
	}

	it.execute(cur, instr)
}

// traceStep emits one WithTraceLog line per executed instruction, mirroring
// the mark/message shape of the teacher's step tracing.
func (it *Interpreter) traceStep(cur *frame, instr Instruction) {
	it.logf(cur.fn.Name, "%v pc=%d stack=%v", instr.Op, cur.pc-1, it.valueStack)
}

func (it *Interpreter) handleReturn() {
	cur := it.callStack[len(it.callStack)-1]
	hasResult := cur.fn.hasResult()
	var res Value
	if hasResult {
		var err error
		if res, err = it.pop(); err != nil {
			it.halt(err)
		}
	}
	for len(it.valueStack) > cur.returnHeight {
		it.valueStack = it.valueStack[:len(it.valueStack)-1]
	}
	if hasResult {
		it.push(res)
	}
	it.callStack = it.callStack[:len(it.callStack)-1]
}

// execute dispatches a single instruction, per spec.md §4.4 "Instruction
// semantics".
func (it *Interpreter) execute(cur *frame, instr Instruction) {
	switch instr.Op {
	case OpNop, OpBlock, OpLoop, OpEnd:
		// control-flow markers participate only in branch resolution.

	case OpI32Const:
		it.push(I32(int32(instr.Imm.i64)))
	case OpI64Const:
		it.push(I64(instr.Imm.i64))
	case OpF32Const:
		it.push(F32(float32(instr.Imm.f64)))
	case OpF64Const:
		it.push(F64(instr.Imm.f64))

	case OpStringConst:
		h, ok := it.stringHandles[instr.Imm.name]
		if !ok {
			it.halt(UnknownStringError{Alias: instr.Imm.name})
			return
		}
		it.push(I32(int32(h)))

	case OpI32Add, OpI32Sub, OpI32Mul, OpI32Eq, OpI32Ne, OpI32LtS, OpI32GtS, OpI32LeS, OpI32GeS:
		it.executeI32Binop(instr.Op)

	case OpF64Add, OpF64Sub, OpF64Mul, OpF64Div:
		it.executeF64Binop(instr.Op)

	case OpLocalGet:
		idx, err := it.resolveLocal(cur.fn, instr.Imm.name)
		if err != nil {
			it.halt(err)
			return
		}
		it.push(cur.locals[idx])

	case OpLocalSet:
		idx, err := it.resolveLocal(cur.fn, instr.Imm.name)
		if err != nil {
			it.halt(err)
			return
		}
		v, err := it.pop()
		if err != nil {
			it.halt(err)
			return
		}
		cur.locals[idx] = v

	case OpBr:
		target, err := it.resolveBranch(cur, instr.Imm.name)
		if err != nil {
			it.halt(err)
			return
		}
		cur.pc = target

	case OpBrIf:
		cond, err := it.popI32()
		if err != nil {
			it.halt(err)
			return
		}
		if cond != 0 {
			target, err := it.resolveBranch(cur, instr.Imm.name)
			if err != nil {
				it.halt(err)
				return
			}
			cur.pc = target
		}

	case OpCall:
		it.executeCall(instr.Imm.name)

	case OpCallIndirect:
		it.executeCallIndirect(instr.Imm.name)

	case OpLocalTee, OpGlobalGet, OpGlobalSet, OpReturn, OpUnreachable,
		OpI32DivS, OpI32DivU, OpI32RemS, OpI32RemU:
		it.halt(UnsupportedInstructionError{Op: instr.Op})

	default:
		// unrecognized opcodes degrade to NOP per spec.md §4.2; reaching
		// here would mean a value the parser never emits.
	}
}

func (it *Interpreter) executeI32Binop(op Opcode) {
	b, err := it.popI32()
	if err != nil {
		it.halt(err)
		return
	}
	a, err := it.popI32()
	if err != nil {
		it.halt(err)
		return
	}
	switch op {
	case OpI32Add:
		it.push(I32(a + b))
	case OpI32Sub:
		it.push(I32(a - b))
	case OpI32Mul:
		it.push(I32(a * b))
	case OpI32Eq:
		it.push(I32(boolToI32(a == b)))
	case OpI32Ne:
		it.push(I32(boolToI32(a != b)))
	case OpI32LtS:
		it.push(I32(boolToI32(a < b)))
	case OpI32GtS:
		it.push(I32(boolToI32(a > b)))
	case OpI32LeS:
		it.push(I32(boolToI32(a <= b)))
	case OpI32GeS:
		it.push(I32(boolToI32(a >= b)))
	}
}

func (it *Interpreter) executeF64Binop(op Opcode) {
	b, err := it.pop()
	if err != nil {
		it.halt(err)
		return
	}
	a, err := it.pop()
	if err != nil {
		it.halt(err)
		return
	}
	switch op {
	case OpF64Add:
		it.push(F64(a.F64() + b.F64()))
	case OpF64Sub:
		it.push(F64(a.F64() - b.F64()))
	case OpF64Mul:
		it.push(F64(a.F64() * b.F64()))
	case OpF64Div:
		it.push(F64(a.F64() / b.F64()))
	}
}

func boolToI32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// resolveLocal resolves a local reference: digits are taken as a direct
// index, otherwise the name is scanned first against parameter names, then
// local names (spec.md §4.4 "Local resolution").
func (it *Interpreter) resolveLocal(fn *Function, id string) (int, error) {
	if n, err := strconv.Atoi(id); err == nil {
		if n < 0 || n >= len(fn.ParamTypes)+len(fn.LocalTypes) {
			return 0, UnknownLocalError{Name: id}
		}
		return n, nil
	}
	if i := lo.IndexOf(fn.ParamNames, id); i >= 0 {
		return i, nil
	}
	if i := lo.IndexOf(fn.LocalNames, id); i >= 0 {
		return len(fn.ParamNames) + i, nil
	}
	return 0, UnknownLocalError{Name: id}
}

// resolveBranch implements spec.md §4.4's branching discipline: scan
// backwards from the current pc for the nearest LOOP with this label
// (re-entering the loop header); failing that, scan backwards for a BLOCK
// with this label and resume just past its precomputed matching END.
func (it *Interpreter) resolveBranch(cur *frame, label string) (int, error) {
	body := cur.fn.Body
	for i := cur.pc - 1; i >= 0; i-- {
		if body[i].Op == OpLoop && body[i].Imm.name == label {
			return i, nil
		}
	}
	for i := cur.pc - 1; i >= 0; i-- {
		if body[i].Op == OpBlock && body[i].Imm.name == label {
			return body[i].branchTarget + 1, nil
		}
	}
	return 0, UnknownLabelError{Name: label}
}

func (it *Interpreter) executeCall(name string) {
	if entry, ok := it.hostFuncs[name]; ok {
		args := make([]Value, entry.arity())
		for i := entry.arity() - 1; i >= 0; i-- {
			v, err := it.pop()
			if err != nil {
				it.halt(err)
				return
			}
			args[i] = v
		}
		res, err := entry.fn(args)
		if err != nil {
			it.halt(err)
			return
		}
		if res.Type != TypeVoid {
			it.push(res)
		}
		return
	}

	if fi, ok := it.funcMap[name]; ok {
		callee := &it.mod.Functions[fi]
		args := make([]Value, callee.arity())
		for i := callee.arity() - 1; i >= 0; i-- {
			v, err := it.pop()
			if err != nil {
				it.halt(err)
				return
			}
			args[i] = v
		}
		it.pushFrame(callee, args)
		return
	}

	it.halt(UnknownFunctionError{Name: name})
}

func (it *Interpreter) executeCallIndirect(typeName string) {
	typ, ok := it.mod.findType(typeName)
	if !ok {
		it.halt(UnknownTypeError{Name: typeName})
		return
	}

	idx, err := it.popI32()
	if err != nil {
		it.halt(err)
		return
	}

	if idx < 0 || int(idx) >= len(it.table) {
		it.halt(UndefinedElementError{Index: idx})
		return
	}
	fi := it.table[idx]
	if fi == nullElement {
		it.halt(UninitializedElementError{Index: idx})
		return
	}

	callee := &it.mod.Functions[fi]
	if !typ.signatureEqual(callee.ParamTypes, callee.ResultTypes) {
		it.halt(IndirectCallSignatureMismatchError{Type: typeName, Callee: callee.Name})
		return
	}

	args := make([]Value, callee.arity())
	for i := callee.arity() - 1; i >= 0; i-- {
		v, err := it.pop()
		if err != nil {
			it.halt(err)
			return
		}
		args[i] = v
	}
	it.pushFrame(callee, args)
}
