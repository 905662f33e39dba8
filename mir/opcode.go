// Package mir implements the structured-operand mid-level IR (C5):
// `slot = op(slots)` opcodes operating on aggregate Kinds, built via
// Builder and consumed by the pass framework (package mirpass), the
// compile-time interpreter (package interp), and the MIR->RTL lowering
// (package lower).
package mir

import (
	"fmt"

	"github.com/rhdl-project/rhdlc/kind"
	"github.com/rhdl-project/rhdlc/path"
	"github.com/rhdl-project/rhdlc/rherr"
	"github.com/rhdl-project/rhdlc/symtab"
)

// Opcode discriminates the Op sum type.
type Opcode uint8

const (
	OpAssign Opcode = iota
	OpBinary
	OpUnary
	OpArray
	OpTuple
	OpRepeat
	OpStruct
	OpEnum
	OpIndex
	OpSplice
	OpCase
	OpSelect
	OpCast
	OpWrap
	OpExec
	OpRetime
	OpComment
	OpNoop
)

func (o Opcode) String() string {
	switch o {
	case OpAssign:
		return "Assign"
	case OpBinary:
		return "Binary"
	case OpUnary:
		return "Unary"
	case OpArray:
		return "Array"
	case OpTuple:
		return "Tuple"
	case OpRepeat:
		return "Repeat"
	case OpStruct:
		return "Struct"
	case OpEnum:
		return "Enum"
	case OpIndex:
		return "Index"
	case OpSplice:
		return "Splice"
	case OpCase:
		return "Case"
	case OpSelect:
		return "Select"
	case OpCast:
		return "Cast"
	case OpWrap:
		return "Wrap"
	case OpExec:
		return "Exec"
	case OpRetime:
		return "Retime"
	case OpComment:
		return "Comment"
	case OpNoop:
		return "Noop"
	default:
		return fmt.Sprintf("Opcode(%d)", int(o))
	}
}

// BinaryOp enumerates Binary's operator.
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

func (o BinaryOp) String() string {
	names := [...]string{"Add", "Sub", "Mul", "BitAnd", "BitOr", "BitXor", "Shl", "Shr", "Eq", "Ne", "Lt", "Le", "Gt", "Ge"}
	if int(o) < len(names) {
		return names[o]
	}
	return fmt.Sprintf("BinaryOp(%d)", int(o))
}

// IsComparison reports whether o produces a 1-bit boolean result.
func (o BinaryOp) IsComparison() bool {
	return o == Eq || o == Ne || o == Lt || o == Le || o == Gt || o == Ge
}

// UnaryOp enumerates Unary's operator.
type UnaryOp uint8

const (
	Neg UnaryOp = iota
	Not
	All
	Any
	Xor
	Signed
	Unsigned
	Val
)

func (o UnaryOp) String() string {
	names := [...]string{"Neg", "Not", "All", "Any", "Xor", "Signed", "Unsigned", "Val"}
	if int(o) < len(names) {
		return names[o]
	}
	return fmt.Sprintf("UnaryOp(%d)", int(o))
}

// IsReduction reports whether o produces a 1-bit result (All/Any/Xor).
func (o UnaryOp) IsReduction() bool {
	return o == All || o == Any || o == Xor
}

// CastKind enumerates Cast's variant.
type CastKind uint8

const (
	AsBits CastKind = iota
	AsSigned
	Resize
)

func (k CastKind) String() string {
	switch k {
	case AsBits:
		return "AsBits"
	case AsSigned:
		return "AsSigned"
	case Resize:
		return "Resize"
	default:
		return fmt.Sprintf("CastKind(%d)", int(k))
	}
}

// WrapOp enumerates Wrap's variant.
type WrapOp uint8

const (
	WrapOk WrapOp = iota
	WrapErr
	WrapSome
	WrapNone
)

func (w WrapOp) String() string {
	switch w {
	case WrapOk:
		return "Ok"
	case WrapErr:
		return "Err"
	case WrapSome:
		return "Some"
	case WrapNone:
		return "None"
	default:
		return fmt.Sprintf("WrapOp(%d)", int(w))
	}
}

// CaseArgKind discriminates a Case arm's pattern.
type CaseArgKind uint8

const (
	CaseLiteral CaseArgKind = iota
	CaseWild
)

// CaseArgument is one Case arm's pattern: either a Literal slot to match
// against, or Wild (matches anything).
type CaseArgument struct {
	Kind    CaseArgKind
	Literal symtab.Literal
}

// CaseArm pairs a CaseArgument with the value-slot returned when it
// matches.
type CaseArm struct {
	Pattern CaseArgument
	Value   symtab.Slot
}

// FieldAssign is one (member, value) pair of a Struct/Enum construction.
type FieldAssign struct {
	Member string
	Value  symtab.Slot
}

// CalleeID opaquely identifies an external kernel in Object.Externals.
type CalleeID uint32

// Op is a single located opcode. Go has no tagged-union type, so every
// opcode's operands live in one flattened struct and are interpreted
// according to Opcode — callers must switch on Opcode, never read a
// field the variant doesn't define.
type Op struct {
	Opcode Opcode

	// Lhs is the result slot. Unused (symtab.Empty) for Noop/Comment.
	Lhs symtab.Slot

	// Arg/Arg2/Arg3 are opcode-specific scalar operand slots:
	//   Assign:  Arg  = rhs
	//   Binary:  Arg  = arg1, Arg2 = arg2
	//   Unary:   Arg  = arg1
	//   Repeat:  Arg  = value
	//   Index:   Arg  = arg
	//   Splice:  Arg  = orig, Arg2 = subst
	//   Case:    Arg  = discriminant
	//   Select:  Arg  = cond, Arg2 = true_value, Arg3 = false_value
	//   Cast:    Arg  = arg
	//   Wrap:    Arg  = arg
	//   Exec:    (args live in Args)
	//   Retime:  Arg  = arg
	Arg, Arg2, Arg3 symtab.Slot

	// Args holds variable-length operand lists: Array elements, Tuple
	// fields (by position), and Exec call arguments.
	Args []symtab.Slot

	BinOp  BinaryOp
	UnOp   UnaryOp
	Cast   CastKind
	Wrap   WrapOp
	Callee CalleeID

	// Path is the structured address for Index/Splice.
	Path path.Path

	// Len is Repeat's element count or Cast's target width (when set).
	Len    int
	HasLen bool

	// TargetKind is Cast/Wrap's declared target Kind, when known.
	TargetKind    kind.Kind
	HasTargetKind bool

	// Color is Retime's optional imposed clock domain.
	Color    kind.Color
	HasColor bool

	// StructFields/Rest/HasRest/Template back Struct and Enum construction.
	StructFields []FieldAssign
	Rest         symtab.Slot
	HasRest      bool
	// Variant is the Enum member name being constructed (Enum only).
	Variant  string
	Template symtab.Literal

	// CaseTable is Case's ordered arm list.
	CaseTable []CaseArm

	// Comment is Comment's text.
	Comment string
}

// LocatedOp pairs an Op with the source span it was lowered from.
type LocatedOp struct {
	Span rherr.Span
	Op   Op
}
