/* Package svm: a stack machine for a textual S-expression assembly

svm reads a small S-expression assembly language -- one function, one
type signature, one instruction at a time -- and runs it on a typed
stack machine. The language looks like a stripped-down WebAssembly text
format: functions take typed parameters and locals, instructions are
written in folded (nested-parenthesis) form and flattened into postfix
order during parsing, and values carry one of four tags: i32, i64, f32,
f64.

There is no linear memory instruction in the language. Instead, host
programs hand the interpreter a memstore.Store -- a handle-addressed
heap of allocated blocks -- and expose whatever load/store primitives
they need as host functions. This keeps the instruction set tiny while
still letting embedders build arrays, strings, and records on top of
it.

Section 1: Lexing and parsing

The lexer (lexer.go) never raises an error; anything it cannot make
sense of degrades to the simplest token it can produce, and malformed
mnemonics are instead caught later by the parser. The parser (parser.go)
is a recursive-descent reader over the folded form; it rejects flat
(already-postfix) instruction sequences and any attempt to use a memory
load/store mnemonic, since this dialect has no linear memory of its
own.

Section 2: Instantiation

NewInterpreter resolves a parsed Module against a memstore.Store:
string constants become read-only blocks, the optional function table
is populated from element segments, and the matching `end` of every
block is precomputed in a single pass (see interpreter.go's
precomputeBranches) so that executing a `br` out of a block only scans
backwards for the block's marker and never scans forward for its end.

Section 3: Running

Run executes one exported function to completion, a trap, or context
cancellation. Faults -- stack underflow, an out-of-range local, an
indirect call through an uninitialized table slot, and so on -- unwind
the dispatch loop as a single recovered panic rather than threading an
error return through every instruction; once Run returns an error the
interpreter must not be reused.

Host functions are the only way two modules talk to each other: a host
function registered in module A's interpreter can turn around and call
Run on an interpreter instantiated from module B, sharing the same
memstore.Store. Nothing here prevents that B interpreter from calling
back into A; the call stack of each interpreter instance simply grows
and shrinks independently, as ordinary Go call frames would.

Section 4: What's deliberately missing

local.tee, global.get/global.set, return, and unreachable are
recognized by the lexer and parser but fault if the interpreter ever
tries to execute one; so do the integer division and remainder
opcodes, since this dialect does not define trap behavior for division
by zero or signed overflow. if/else are not in the mnemonic table: like
any other unknown mnemonic they parse as NOP, so their nested forms
are parsed and executed in order as ordinary instructions. See the Open Question resolutions in
DESIGN.md for the reasoning behind each.
*/
package svm
