package svm

// Opcode names an interpreter instruction. The zero value is NOP, the
// degradation target for any unrecognized mnemonic (spec.md §4.2).
type Opcode uint8

const (
	OpNop Opcode = iota

	OpI32Const
	OpI64Const
	OpF32Const
	OpF64Const

	OpI32Add
	OpI32Sub
	OpI32Mul
	OpI32Eq
	OpI32Ne
	OpI32LtS
	OpI32GtS
	OpI32LeS
	OpI32GeS
	OpI32DivS
	OpI32DivU
	OpI32RemS
	OpI32RemU

	OpF64Add
	OpF64Sub
	OpF64Mul
	OpF64Div

	OpLocalGet
	OpLocalSet
	OpLocalTee
	OpGlobalGet
	OpGlobalSet

	OpBlock
	OpLoop
	OpEnd
	OpBr
	OpBrIf

	OpCall
	OpCallIndirect
	OpReturn
	OpUnreachable

	OpStringConst
)

var opcodeNames = map[Opcode]string{
	OpNop:          "nop",
	OpI32Const:     "i32.const",
	OpI64Const:     "i64.const",
	OpF32Const:     "f32.const",
	OpF64Const:     "f64.const",
	OpI32Add:       "i32.add",
	OpI32Sub:       "i32.sub",
	OpI32Mul:       "i32.mul",
	OpI32Eq:        "i32.eq",
	OpI32Ne:        "i32.ne",
	OpI32LtS:       "i32.lt_s",
	OpI32GtS:       "i32.gt_s",
	OpI32LeS:       "i32.le_s",
	OpI32GeS:       "i32.ge_s",
	OpI32DivS:      "i32.div_s",
	OpI32DivU:      "i32.div_u",
	OpI32RemS:      "i32.rem_s",
	OpI32RemU:      "i32.rem_u",
	OpF64Add:       "f64.add",
	OpF64Sub:       "f64.sub",
	OpF64Mul:       "f64.mul",
	OpF64Div:       "f64.div",
	OpLocalGet:     "local.get",
	OpLocalSet:     "local.set",
	OpLocalTee:     "local.tee",
	OpGlobalGet:    "global.get",
	OpGlobalSet:    "global.set",
	OpBlock:        "block",
	OpLoop:         "loop",
	OpEnd:          "end",
	OpBr:           "br",
	OpBrIf:         "br_if",
	OpCall:         "call",
	OpCallIndirect: "call_indirect",
	OpReturn:       "return",
	OpUnreachable:  "unreachable",
	OpStringConst:  "string.const",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "nop"
}

// mnemonicTable maps source mnemonics to opcodes; load/store mnemonics are
// deliberately absent and are rejected explicitly by the parser (there is no
// linear memory in this dialect). Anything else not found here degrades to
// NOP, per spec.md §4.2.
var mnemonicTable = map[string]Opcode{
	"i32.const":     OpI32Const,
	"i64.const":     OpI64Const,
	"f32.const":     OpF32Const,
	"f64.const":     OpF64Const,
	"i32.add":       OpI32Add,
	"i32.sub":       OpI32Sub,
	"i32.mul":       OpI32Mul,
	"i32.eq":        OpI32Eq,
	"i32.ne":        OpI32Ne,
	"i32.lt_s":      OpI32LtS,
	"i32.gt_s":      OpI32GtS,
	"i32.le_s":      OpI32LeS,
	"i32.ge_s":      OpI32GeS,
	"i32.div_s":     OpI32DivS,
	"i32.div_u":     OpI32DivU,
	"i32.rem_s":     OpI32RemS,
	"i32.rem_u":     OpI32RemU,
	"f64.add":       OpF64Add,
	"f64.sub":       OpF64Sub,
	"f64.mul":       OpF64Mul,
	"f64.div":       OpF64Div,
	"local.get":     OpLocalGet,
	"local.set":     OpLocalSet,
	"local.tee":     OpLocalTee,
	"global.get":    OpGlobalGet,
	"global.set":    OpGlobalSet,
	"block":         OpBlock,
	"loop":          OpLoop,
	"end":           OpEnd,
	"br":            OpBr,
	"br_if":         OpBrIf,
	"call":          OpCall,
	"call_indirect": OpCallIndirect,
	"return":        OpReturn,
	"unreachable":   OpUnreachable,
	"string.const":  OpStringConst,
}

// immediateKind describes what, if anything, follows an opcode token in the
// source before its operand sub-expressions.
type immediateKind uint8

const (
	immNone immediateKind = iota
	immI32
	immI64
	immF32
	immF64
	immName // local/label/function/type/string-alias, resolved at execution time
)

var immediateKinds = map[Opcode]immediateKind{
	OpI32Const:     immI32,
	OpI64Const:     immI64,
	OpF32Const:     immF32,
	OpF64Const:     immF64,
	OpLocalGet:     immName,
	OpLocalSet:     immName,
	OpLocalTee:     immName,
	OpGlobalGet:    immName,
	OpGlobalSet:    immName,
	OpBr:           immName,
	OpBrIf:         immName,
	OpCall:         immName,
	OpCallIndirect: immName, // filled from the nested (type $t) annotation
	OpBlock:        immName,
	OpLoop:         immName,
	OpStringConst:  immName,
}

// Immediate is the single optional operand an Instruction may carry.
type Immediate struct {
	kind immediateKind
	i64  int64
	f64  float64
	name string
}

func immI32Of(v int32) Immediate    { return Immediate{kind: immI32, i64: int64(v)} }
func immI64Of(v int64) Immediate    { return Immediate{kind: immI64, i64: v} }
func immF32Of(v float32) Immediate  { return Immediate{kind: immF32, f64: float64(v)} }
func immF64Of(v float64) Immediate  { return Immediate{kind: immF64, f64: v} }
func immNameOf(name string) Immediate { return Immediate{kind: immName, name: name} }

// Instruction is an opcode plus at most one immediate.
type Instruction struct {
	Op    Opcode
	Imm   Immediate
	HasImm bool

	// branchTarget is precomputed during instantiation for BLOCK/LOOP
	// markers, per spec.md's "Design Notes" suggested optimization: a single
	// pre-pass records the index of each marker's matching END so a branch
	// out of a block need not scan forward for it. -1 means "not resolved"
	// (every instruction other than a BLOCK/LOOP marker keeps it).
	branchTarget int
}

func newInstr(op Opcode) Instruction {
	return Instruction{Op: op, branchTarget: -1}
}

func newInstrImm(op Opcode, imm Immediate) Instruction {
	return Instruction{Op: op, Imm: imm, HasImm: true, branchTarget: -1}
}
