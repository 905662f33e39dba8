// Package ntl implements the single-bit netlist IR (C10): the target of
// RTL->NTL bit-blasting (package expand) and the source of the structured
// HDL emitter (package hdl). Every value in NTL is exactly one bit wide;
// RTL's width-W registers become W independent NTL registers, and RTL's
// arithmetic/compare/shift ops survive as single Vector ops rather than
// being blasted bit-by-bit (§4.9).
package ntl

import (
	"fmt"

	"github.com/rhdl-project/rhdlc/bits"
)

// Register identifies one single-bit value within a Netlist.
type Register uint32

// Bit is a one-bit literal value: Zero, One, or X (don't-care/unknown).
type Bit uint8

const (
	Zero Bit = iota
	One
	Xbit
)

func FromBitsBit(b bits.Bit) Bit {
	switch b {
	case bits.Zero:
		return Zero
	case bits.One:
		return One
	default:
		return Xbit
	}
}

func (b Bit) String() string {
	switch b {
	case Zero:
		return "0"
	case One:
		return "1"
	default:
		return "X"
	}
}

// RefKind discriminates the Ref sum type.
type RefKind uint8

const (
	EmptyRef RefKind = iota
	RegRef
	ConstRef
)

// Ref is a reference to a single bit: a Register, a constant Bit, or
// Empty.
type Ref struct {
	kind RefKind
	reg  Register
	bit  Bit
}

var Empty = Ref{kind: EmptyRef}

func OfRegister(r Register) Ref { return Ref{kind: RegRef, reg: r} }
func OfConst(b Bit) Ref         { return Ref{kind: ConstRef, bit: b} }

func (r Ref) Kind() RefKind { return r.kind }
func (r Ref) IsEmpty() bool { return r.kind == EmptyRef }
func (r Ref) Register() (Register, bool) {
	if r.kind != RegRef {
		return 0, false
	}
	return r.reg, true
}
func (r Ref) Const() (Bit, bool) {
	if r.kind != ConstRef {
		return 0, false
	}
	return r.bit, true
}

// Table is the per-Netlist register arena: every Register carries only a
// diagnostic name (its width is always 1).
type Table struct {
	names []string
}

func (t *Table) NewRegister(name string) Register {
	t.names = append(t.names, name)
	return Register(len(t.names) - 1)
}

func (t *Table) Name(r Register) string { return t.names[r] }
func (t *Table) NumRegisters() int      { return len(t.names) }

// Opcode discriminates the Op sum type. Gate (And/Or/Xor/Not) and Select
// and Assign and static Index/Splice/Concat are the per-bit expansion
// targets of §4.9; Vector carries an un-blasted RTL
// arithmetic/compare/shift op verbatim (preserving signedness) since
// bit-blasting those loses the carry-chain structure a downstream
// synthesis tool needs; Case mirrors RTL Case one output bit at a time,
// sharing the discriminant; Unary is a whole-vector reduction (All/Any/Xor
// reduce) or Neg; BlackBox is an opaque leaf, one per output bit of an
// RTL Exec (package expand); DFF is a sequential leaf that no MIR/RTL op
// currently lowers to (§1 scopes RHDL itself to the comb-only subset
// described in C9-C12).
type Opcode uint8

const (
	OpConst Opcode = iota
	OpAssign
	OpGate
	OpNot
	OpSelect
	OpCase
	OpVector
	OpUnary
	OpDFF
	OpBlackBox
	OpComment
	OpNoop
)

func (o Opcode) String() string {
	names := [...]string{"Const", "Assign", "Gate", "Not", "Select", "Case", "Vector", "Unary", "DFF", "BlackBox", "Comment", "Noop"}
	if int(o) < len(names) {
		return names[o]
	}
	return fmt.Sprintf("Opcode(%d)", int(o))
}

// GateOp enumerates OpGate's bitwise function.
type GateOp uint8

const (
	And GateOp = iota
	Or
	Xor
)

// VectorOp enumerates the arithmetic/compare/shift functions an OpVector
// node preserves whole. The order differs from rtl.BinaryOp (which also
// has the bitwise ops), so expand maps each BinOp to its VectorOp.
type VectorOp uint8

const (
	Add VectorOp = iota
	Sub
	Mul
	Shl
	Shr
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
)

func (o VectorOp) String() string {
	names := [...]string{"Add", "Sub", "Mul", "Shl", "Shr", "Eq", "Ne", "Lt", "Le", "Gt", "Ge"}
	if int(o) < len(names) {
		return names[o]
	}
	return fmt.Sprintf("VectorOp(%d)", int(o))
}

// UnaryVectorOp enumerates OpUnary's whole-vector function: a reduction
// (All/Any/XorReduce) or Neg.
type UnaryVectorOp uint8

const (
	All UnaryVectorOp = iota
	Any
	XorReduce
	Neg
)

func (o UnaryVectorOp) String() string {
	names := [...]string{"All", "Any", "XorReduce", "Neg"}
	if int(o) < len(names) {
		return names[o]
	}
	return fmt.Sprintf("UnaryVectorOp(%d)", int(o))
}

// CaseArm pairs a constant multi-bit pattern (LSB-first, matched
// position-wise against the Op's Discriminant) with the Ref chosen on a
// match. Wild, when true, makes this the default arm and Pattern is
// ignored.
type CaseArm struct {
	Pattern []Bit
	Wild    bool
	Value   Ref
}

// Op is one single-bit netlist operation.
type Op struct {
	Opcode Opcode

	Lhs Register

	Arg, Arg2, Arg3 Ref
	Args            []Ref // Vector/Unary operand bits, LSB-first; BlackBox input bits

	Gate GateOp

	// Vector/Unary carry a whole un-blasted operation: Args is the
	// concatenated multi-bit operand(s) in LSB-first order (for a binary
	// VecOp, the first operand occupies Args[:Len1] and the second
	// Args[Len1:]), Signed mirrors rtl.Op.Signed, and VecOp/UnOp select the
	// function.
	VecOp  VectorOp
	UnOp   UnaryVectorOp
	Signed bool
	Len1   int

	// Discriminant holds the shared per-bit discriminant Refs (LSB-first)
	// for a Case; CaseTable's Pattern bits are matched position-wise
	// against Discriminant.
	Discriminant []Ref
	CaseTable    []CaseArm

	Comment string
}

// LocatedOp pairs an Op with a traceability label (mirrors rtl.LocatedOp).
type LocatedOp struct {
	Label string
	Op    Op
}

// Netlist is one compiled kernel's NTL: single-bit ops over a register
// Table, produced by package expand from an rtl.Module. Arguments and
// Return are vectors of per-bit Refs, LSB-first, preserving the original
// RTL register's width.
type Netlist struct {
	Name       string
	Table      *Table
	Arguments  [][]Register
	Return     []Ref
	Ops        []LocatedOp
	Submodules []Submodule
}

// Submodule mirrors rtl.Submodule at the bit-blasted level.
type Submodule struct {
	ID uint32
	NL *Netlist
}

func New(name string) *Netlist {
	return &Netlist{Name: name, Table: &Table{}}
}

func (nl *Netlist) String() string {
	return fmt.Sprintf("ntl.Netlist{%s, %d regs, %d ops}", nl.Name, nl.Table.NumRegisters(), len(nl.Ops))
}
