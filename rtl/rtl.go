// Package rtl implements the flat, bit-ranged mid-level IR (C8): the
// target of MIR->RTL lowering (package lower), once every aggregate Kind
// has been replaced by an explicit bit width and every structured Path
// by an explicit [start, end) bit range. RTL is itself the source of the
// RTL->NTL bit-blasting expansion (package expand) and of the structured
// HDL emitter (package hdl).
package rtl

import (
	"fmt"

	"github.com/rhdl-project/rhdlc/bits"
)

// Register identifies a bit-vector value within one Module; unlike
// symtab.Register, its only declared property is a width — aggregate
// shape has already been lowered away.
type Register uint32

// Literal identifies a compile-time constant bit string within one
// Module's Table.
type Literal uint32

// Table is one Module's register-width and literal arena.
type Table struct {
	widths   []int
	literals []bits.BitString
	names    []string
}

// NewRegister allocates a fresh width-w Register.
func (t *Table) NewRegister(w int, name string) Register {
	t.widths = append(t.widths, w)
	t.names = append(t.names, name)
	return Register(len(t.widths) - 1)
}

// NewLiteral allocates a fresh Literal holding bs.
func (t *Table) NewLiteral(bs bits.BitString) Literal {
	t.literals = append(t.literals, bs)
	return Literal(len(t.literals) - 1)
}

// Width returns r's declared bit width.
func (t *Table) Width(r Register) int { return t.widths[r] }

// Name returns r's diagnostic name, which may be empty.
func (t *Table) Name(r Register) string { return t.names[r] }

// LiteralValue returns l's constant bit string.
func (t *Table) LiteralValue(l Literal) bits.BitString { return t.literals[l] }

// NumRegisters reports the arena size.
func (t *Table) NumRegisters() int { return len(t.widths) }

// RefKind discriminates the Ref sum type.
type RefKind uint8

const (
	EmptyRef RefKind = iota
	RegRef
	LitRef
)

// Ref is a reference to a bit-vector value: a Register, a Literal, or
// Empty (no value — Case's "no default", an absent Splice substitution
// path element, etc).
type Ref struct {
	kind RefKind
	reg  Register
	lit  Literal
}

var Empty = Ref{kind: EmptyRef}

func OfRegister(r Register) Ref { return Ref{kind: RegRef, reg: r} }
func OfLiteral(l Literal) Ref   { return Ref{kind: LitRef, lit: l} }

func (r Ref) Kind() RefKind          { return r.kind }
func (r Ref) IsEmpty() bool          { return r.kind == EmptyRef }
func (r Ref) Register() (Register, bool) {
	if r.kind != RegRef {
		return 0, false
	}
	return r.reg, true
}
func (r Ref) Literal() (Literal, bool) {
	if r.kind != LitRef {
		return 0, false
	}
	return r.lit, true
}

// RefWidth returns the bit width of ref within t.
func (t *Table) RefWidth(ref Ref) int {
	switch ref.kind {
	case RegRef:
		return t.widths[ref.reg]
	case LitRef:
		return len(t.literals[ref.lit])
	default:
		return 0
	}
}

// Opcode discriminates the Op sum type.
type Opcode uint8

const (
	OpAssign Opcode = iota
	OpBinary
	OpUnary
	OpConcat
	OpIndex
	OpSplice
	OpDynamicIndex
	OpDynamicSplice
	OpCase
	OpSelect
	OpCast
	OpExec
	OpComment
	OpNoop
)

func (o Opcode) String() string {
	names := [...]string{"Assign", "Binary", "Unary", "Concat", "Index", "Splice", "DynamicIndex", "DynamicSplice", "Case", "Select", "Cast", "Exec", "Comment", "Noop"}
	if int(o) < len(names) {
		return names[o]
	}
	return fmt.Sprintf("Opcode(%d)", int(o))
}

// BinaryOp mirrors mir.BinaryOp, with the Kind-level signedness it needs
// carried explicitly as Op.Signed since RTL registers have no Kind.
type BinaryOp uint8

const (
	Add BinaryOp = iota
	Sub
	Mul
	BitAnd
	BitOr
	BitXor
	Shl
	Shr
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
)

func (o BinaryOp) IsComparison() bool {
	return o == Eq || o == Ne || o == Lt || o == Le || o == Gt || o == Ge
}

func (o BinaryOp) String() string {
	names := [...]string{"Add", "Sub", "Mul", "BitAnd", "BitOr", "BitXor", "Shl", "Shr", "Eq", "Ne", "Lt", "Le", "Gt", "Ge"}
	if int(o) < len(names) {
		return names[o]
	}
	return fmt.Sprintf("BinaryOp(%d)", int(o))
}

// UnaryOp mirrors mir.UnaryOp.
type UnaryOp uint8

const (
	Neg UnaryOp = iota
	Not
	All
	Any
	Xor
)

func (o UnaryOp) String() string {
	names := [...]string{"Neg", "Not", "All", "Any", "Xor"}
	if int(o) < len(names) {
		return names[o]
	}
	return fmt.Sprintf("UnaryOp(%d)", int(o))
}

// CaseArm pairs an optional literal pattern (Pattern.IsEmpty() means
// wildcard) with the Ref chosen on a match.
type CaseArm struct {
	Pattern Ref // LitRef, or Empty for wildcard
	Value   Ref
}

// Op is one flat RTL operation, analogous in spirit to mir.Op but over
// plain bit vectors with explicit [start,end) ranges instead of
// structured Paths.
type Op struct {
	Opcode Opcode

	Lhs Register

	Arg, Arg2, Arg3 Ref
	Args            []Ref // Concat operands, LSB-first

	BinOp  BinaryOp
	UnOp   UnaryOp
	Signed bool // arithmetic/comparison/cast signedness

	// Start/End is Index/Splice's static bit range within Arg.
	Start, End int

	// DynamicIndex/DynamicSplice: IndexReg selects one of NumElems
	// ElemWidth-wide slices of Arg, starting at BaseOffset.
	IndexReg   Register
	BaseOffset int
	ElemWidth  int
	NumElems   int

	// Callee identifies the Submodule invoked by an Exec op lowered from
	// mir.OpExec (§4.7 rule 6); Args holds the call arguments.
	Callee uint32

	CaseTable []CaseArm

	Comment string
}

// LocatedOp pairs an Op with a source-derived label, used for -dump
// traceability back to the originating MIR op rather than a full rherr.Span
// (RTL ops often fan out from one MIR op into several).
type LocatedOp struct {
	Label string
	Op    Op
}

// Submodule records one externally-called kernel lowered independently of
// its caller (§4.7 rule 6: "Exec preserved as an RTL sub-module
// invocation; submodules are lowered independently").
type Submodule struct {
	ID     uint32
	Module *Module
}

// Module is one compiled kernel's RTL: flat ops over a register Table,
// produced by package lower from a well-formed, passed mir.Object.
type Module struct {
	Name       string
	Table      *Table
	Arguments  []Register
	Return     Ref
	Ops        []LocatedOp
	Submodules []Submodule
}

// New returns an empty Module.
func New(name string) *Module {
	return &Module{Name: name, Table: &Table{}}
}

func (m *Module) String() string {
	return fmt.Sprintf("rtl.Module{%s, %d regs, %d ops}", m.Name, m.Table.NumRegisters(), len(m.Ops))
}
