package svm

import (
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Parse lexes and parses a single textual module. name is used only for
// diagnostics/Module.Name; it need not be a filesystem path.
func Parse(name, text string) (*Module, error) {
	toks := NewLexer(text).Tokenize()
	p := &parser{toks: toks}
	mod, err := p.parseModule()
	if err != nil {
		return nil, err
	}
	mod.Name = name
	return mod, nil
}

type parser struct {
	toks []Token
	pos  int
}

func (p *parser) peek() Token {
	if p.pos >= len(p.toks) {
		return Token{Kind: TokEOF}
	}
	return p.toks[p.pos]
}

func (p *parser) consume() Token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind TokenKind) (Token, error) {
	t := p.consume()
	if t.Kind != kind {
		return t, UnexpectedTokenError{Want: kind, Got: t}
	}
	return t, nil
}

func (p *parser) parseModule() (*Module, error) {
	if _, err := p.expect(TokLParen); err != nil {
		return nil, err
	}
	head := p.consume()
	if head.Text != "module" {
		return nil, ExpectedModuleError{Got: head.Text}
	}

	mod := &Module{}
	for p.peek().Kind == TokLParen {
		checkpoint := p.pos
		p.consume() // (
		field := p.peek()
		switch field.Text {
		case "func":
			p.consume()
			fn, err := p.parseFunc()
			if err != nil {
				return nil, err
			}
			mod.Functions = append(mod.Functions, fn)
		case "import":
			p.consume()
			imp, err := p.parseImport()
			if err != nil {
				return nil, err
			}
			mod.Imports = append(mod.Imports, imp)
		case "type":
			p.consume()
			typ, err := p.parseType()
			if err != nil {
				return nil, err
			}
			mod.Types = append(mod.Types, typ)
		case "table":
			p.consume()
			tbl, err := p.parseTable()
			if err != nil {
				return nil, err
			}
			mod.Tables = append(mod.Tables, tbl)
		case "elem":
			p.consume()
			elem, err := p.parseElem()
			if err != nil {
				return nil, err
			}
			mod.Elements = append(mod.Elements, elem)
		case "string":
			p.consume()
			sd, err := p.parseStringDef()
			if err != nil {
				return nil, err
			}
			mod.Strings = append(mod.Strings, sd)
		default:
			p.pos = checkpoint + 1
			if err := p.skipSExpr(); err != nil {
				return nil, err
			}
		}
	}

	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	return mod, nil
}

func (p *parser) skipSExpr() error {
	depth := 1
	for depth > 0 {
		t := p.consume()
		if t.Kind == TokEOF {
			return UnexpectedTokenError{Want: TokRParen, Got: t}
		}
		switch t.Kind {
		case TokLParen:
			depth++
		case TokRParen:
			depth--
		}
	}
	return nil
}

func (p *parser) parseOptionalAlias() string {
	if p.peek().Kind == TokIdentifier {
		return stripSigil(p.consume().Text)
	}
	return ""
}

// parseParamList reads a (param $x? i32 i32 ...) or (local $x? i32 ...) style
// child form already positioned just past its opening keyword; returns the
// parallel type/name slices it accumulates. Result lists go through
// parseResultList.
func (p *parser) parseParamList() (types []ValueType, names []string, err error) {
	for p.peek().Kind != TokRParen {
		name := ""
		if p.peek().Kind == TokIdentifier {
			name = stripSigil(p.consume().Text)
		}
		if p.peek().Kind == TokKeyword {
			tok := p.consume()
			vt, ok := parseValueType(tok.Text)
			if !ok {
				return nil, nil, InvalidImmediateError{Got: tok}
			}
			types = append(types, vt)
			names = append(names, name)
		}
	}
	return types, names, nil
}

func (p *parser) parseResultList() (types []ValueType, err error) {
	for p.peek().Kind != TokRParen {
		tok := p.consume()
		vt, ok := parseValueType(tok.Text)
		if !ok {
			return nil, InvalidImmediateError{Got: tok}
		}
		types = append(types, vt)
	}
	return types, nil
}

func (p *parser) parseFunc() (Function, error) {
	var fn Function
	fn.Name = p.parseOptionalAlias()

	for p.peek().Kind != TokRParen {
		if p.peek().Kind != TokLParen {
			return fn, FlatInstructionNotSupportedError{Got: p.peek()}
		}

		checkpoint := p.pos
		p.consume() // (
		inner := p.peek()
		switch inner.Text {
		case "param":
			p.consume()
			types, names, err := p.parseParamList()
			if err != nil {
				return fn, err
			}
			fn.ParamTypes = append(fn.ParamTypes, types...)
			fn.ParamNames = append(fn.ParamNames, names...)
			if _, err := p.expect(TokRParen); err != nil {
				return fn, err
			}
		case "result":
			p.consume()
			types, err := p.parseResultList()
			if err != nil {
				return fn, err
			}
			fn.ResultTypes = append(fn.ResultTypes, types...)
			if _, err := p.expect(TokRParen); err != nil {
				return fn, err
			}
		case "local":
			p.consume()
			types, names, err := p.parseParamList()
			if err != nil {
				return fn, err
			}
			fn.LocalTypes = append(fn.LocalTypes, types...)
			fn.LocalNames = append(fn.LocalNames, names...)
			if _, err := p.expect(TokRParen); err != nil {
				return fn, err
			}
		default:
			p.pos = checkpoint
			if err := p.parseInstruction(&fn.Body); err != nil {
				return fn, err
			}
		}
	}

	if _, err := p.expect(TokRParen); err != nil {
		return fn, err
	}
	return fn, nil
}

func (p *parser) parseType() (Type, error) {
	var t Type
	t.Name = p.parseOptionalAlias()

	if _, err := p.expect(TokLParen); err != nil {
		return t, err
	}
	head := p.consume()
	if head.Text != "func" {
		return t, ExpectedFuncError{Got: head.Text}
	}

	for p.peek().Kind == TokLParen {
		p.consume()
		inner := p.consume()
		switch inner.Text {
		case "param":
			types, _, err := p.parseParamList()
			if err != nil {
				return t, err
			}
			t.ParamTypes = append(t.ParamTypes, types...)
		case "result":
			types, err := p.parseResultList()
			if err != nil {
				return t, err
			}
			t.ResultTypes = append(t.ResultTypes, types...)
		default:
			return t, UnexpectedTokenError{Want: TokKeyword, Got: inner}
		}
		if _, err := p.expect(TokRParen); err != nil {
			return t, err
		}
	}

	if _, err := p.expect(TokRParen); err != nil { // close func
		return t, err
	}
	if _, err := p.expect(TokRParen); err != nil { // close type
		return t, err
	}
	return t, nil
}

func (p *parser) parseTable() (Table, error) {
	var tbl Table
	tbl.Name = p.parseOptionalAlias()

	minTok := p.consume()
	if minTok.Kind != TokInteger {
		return tbl, UnexpectedTokenError{Want: TokInteger, Got: minTok}
	}
	min, err := strconv.Atoi(minTok.Text)
	if err != nil {
		return tbl, InvalidImmediateError{Got: minTok}
	}
	tbl.Min = min

	if p.peek().Kind == TokInteger {
		maxTok := p.consume()
		max, err := strconv.Atoi(maxTok.Text)
		if err != nil {
			return tbl, InvalidImmediateError{Got: maxTok}
		}
		tbl.Max = max
	} else {
		tbl.Max = tbl.Min
	}

	kind := p.consume()
	if kind.Text != "funcref" {
		return tbl, NonFuncrefTableError{Got: kind.Text}
	}
	if _, err := p.expect(TokRParen); err != nil {
		return tbl, err
	}
	return tbl, nil
}

func (p *parser) parseElem() (ElementSegment, error) {
	var elem ElementSegment

	if _, err := p.expect(TokLParen); err != nil {
		return elem, err
	}
	head := p.consume()
	if head.Text != "i32.const" {
		return elem, UnexpectedTokenError{Want: TokKeyword, Got: head}
	}
	offTok := p.consume()
	if offTok.Kind != TokInteger {
		return elem, InvalidImmediateError{Op: OpI32Const, Got: offTok}
	}
	n, err := strconv.ParseInt(offTok.Text, 10, 32)
	if err != nil {
		return elem, InvalidImmediateError{Op: OpI32Const, Got: offTok}
	}
	elem.Offset = int32(n)
	if _, err := p.expect(TokRParen); err != nil {
		return elem, err
	}

	for p.peek().Kind != TokRParen {
		name := p.consume()
		elem.FunctionNames = append(elem.FunctionNames, stripSigil(name.Text))
	}
	if _, err := p.expect(TokRParen); err != nil {
		return elem, err
	}
	return elem, nil
}

func (p *parser) parseStringDef() (StringDefinition, error) {
	var sd StringDefinition
	if p.peek().Kind != TokIdentifier {
		return sd, ExpectedStringValueError{Field: "string alias"}
	}
	sd.Alias = stripSigil(p.consume().Text)

	if p.peek().Kind != TokString {
		return sd, ExpectedStringValueError{Field: "string value"}
	}
	sd.Value = p.consume().Text

	if _, err := p.expect(TokRParen); err != nil {
		return sd, err
	}
	return sd, nil
}

func (p *parser) parseImport() (Import, error) {
	var imp Import

	modTok, err := p.expect(TokString)
	if err != nil {
		return imp, err
	}
	imp.Module = modTok.Text

	fieldTok, err := p.expect(TokString)
	if err != nil {
		return imp, err
	}
	imp.Field = fieldTok.Text

	if _, err := p.expect(TokLParen); err != nil {
		return imp, err
	}
	kind := p.consume()
	if kind.Text != "func" {
		return imp, UnknownImportKindError{Kind: kind.Text}
	}
	imp.Alias = p.parseOptionalAlias()

	for p.peek().Kind != TokRParen {
		if _, err := p.expect(TokLParen); err != nil {
			return imp, err
		}
		inner := p.consume()
		switch inner.Text {
		case "param":
			types, _, err := p.parseParamList()
			if err != nil {
				return imp, err
			}
			imp.ParamTypes = append(imp.ParamTypes, types...)
		case "result":
			types, err := p.parseResultList()
			if err != nil {
				return imp, err
			}
			imp.ResultTypes = append(imp.ResultTypes, types...)
		default:
			return imp, UnexpectedTokenError{Want: TokKeyword, Got: inner}
		}
		if _, err := p.expect(TokRParen); err != nil {
			return imp, err
		}
	}
	if _, err := p.expect(TokRParen); err != nil { // close func
		return imp, err
	}
	if _, err := p.expect(TokRParen); err != nil { // close import
		return imp, err
	}
	return imp, nil
}

// parseInstruction parses one folded-form instruction, `(opcode imm? operand*)`,
// emitting operand sub-instructions before the enclosing opcode so the
// result is flat postfix order (spec.md §4.2).
func (p *parser) parseInstruction(out *[]Instruction) error {
	if p.peek().Kind != TokLParen {
		return FlatInstructionNotSupportedError{Got: p.peek()}
	}
	p.consume() // (
	opTok := p.consume()
	op, err := mapOpcode(opTok.Text)
	if err != nil {
		return err
	}

	switch {
	case op == OpBlock || op == OpLoop:
		instr, err := p.parseImmediate(op)
		if err != nil {
			return err
		}
		*out = append(*out, instr)
		for p.peek().Kind != TokRParen {
			if err := p.parseInstruction(out); err != nil {
				return err
			}
		}
		if _, err := p.expect(TokRParen); err != nil {
			return err
		}
		*out = append(*out, newInstr(OpEnd))

	case op == OpCallIndirect:
		if _, err := p.expect(TokLParen); err != nil {
			return err
		}
		kw := p.consume()
		if kw.Text != "type" {
			return UnexpectedTokenError{Want: TokKeyword, Got: kw}
		}
		typeName := p.consume()
		if _, err := p.expect(TokRParen); err != nil {
			return err
		}
		instr := newInstrImm(OpCallIndirect, immNameOf(stripSigil(typeName.Text)))

		for p.peek().Kind != TokRParen {
			if err := p.parseInstruction(out); err != nil {
				return err
			}
		}
		if _, err := p.expect(TokRParen); err != nil {
			return err
		}
		*out = append(*out, instr)

	case takesImmediate(op):
		instr, err := p.parseImmediate(op)
		if err != nil {
			return err
		}
		for p.peek().Kind != TokRParen {
			if err := p.parseInstruction(out); err != nil {
				return err
			}
		}
		if _, err := p.expect(TokRParen); err != nil {
			return err
		}
		*out = append(*out, instr)

	default:
		for p.peek().Kind != TokRParen {
			if err := p.parseInstruction(out); err != nil {
				return err
			}
		}
		if _, err := p.expect(TokRParen); err != nil {
			return err
		}
		*out = append(*out, newInstr(op))
	}

	return nil
}

func takesImmediate(op Opcode) bool {
	_, ok := immediateKinds[op]
	return ok
}

func (p *parser) parseImmediate(op Opcode) (Instruction, error) {
	kind := immediateKinds[op]
	tok := p.consume()

	switch kind {
	case immI32:
		n, err := strconv.ParseInt(tok.Text, 10, 32)
		if err != nil {
			return Instruction{}, InvalidImmediateError{Op: op, Got: tok}
		}
		return newInstrImm(op, immI32Of(int32(n))), nil
	case immI64:
		n, err := strconv.ParseInt(tok.Text, 10, 64)
		if err != nil {
			return Instruction{}, InvalidImmediateError{Op: op, Got: tok}
		}
		return newInstrImm(op, immI64Of(n)), nil
	case immF32:
		f, err := strconv.ParseFloat(tok.Text, 32)
		if err != nil {
			return Instruction{}, InvalidImmediateError{Op: op, Got: tok}
		}
		return newInstrImm(op, immF32Of(float32(f))), nil
	case immF64:
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return Instruction{}, InvalidImmediateError{Op: op, Got: tok}
		}
		return newInstrImm(op, immF64Of(f)), nil
	case immName:
		if tok.Kind != TokIdentifier && tok.Kind != TokInteger && tok.Kind != TokKeyword {
			return Instruction{}, InvalidImmediateError{Op: op, Got: tok}
		}
		return newInstrImm(op, immNameOf(stripSigil(tok.Text))), nil
	default:
		return Instruction{}, InvalidImmediateError{Op: op, Got: tok}
	}
}

// mapOpcode resolves a source mnemonic to an Opcode. Memory load/store
// mnemonics are rejected explicitly (there is no linear memory in this
// dialect); anything else unrecognized degrades to NOP.
func mapOpcode(mnemonic string) (Opcode, error) {
	if op, ok := mnemonicTable[mnemonic]; ok {
		return op, nil
	}
	if strings.Contains(mnemonic, "load") || strings.Contains(mnemonic, "store") {
		return OpNop, UnsupportedMnemonicError{Mnemonic: mnemonic}
	}
	return OpNop, nil
}

// typeListEqual reports whether two ValueType slices match exactly; used by
// RegisterHostFunction to validate a host signature against its import
// (call_indirect uses Type.signatureEqual instead).
func typeListEqual(a, b []ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	return lo.EveryBy(lo.Zip2(a, b), func(p lo.Tuple2[ValueType, ValueType]) bool {
		return p.A == p.B
	})
}
