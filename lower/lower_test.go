package lower

import (
	"testing"

	"github.com/rhdl-project/rhdlc/bits"
	"github.com/rhdl-project/rhdlc/kind"
	"github.com/rhdl-project/rhdlc/mir"
	"github.com/rhdl-project/rhdlc/mirpass"
	"github.com/rhdl-project/rhdlc/path"
	"github.com/rhdl-project/rhdlc/rherr"
	"github.com/rhdl-project/rhdlc/rtl"
	"github.com/rhdl-project/rhdlc/symtab"
	"github.com/stretchr/testify/require"
)

// TestLowerDouble mirrors §8 scenario S1 at the RTL level: a
// single Binary(Add) op over two 8-bit arguments.
func TestLowerDouble(t *testing.T) {
	obj := mir.New("double", 1)
	b := mir.NewBuilder(obj)
	a := b.Argument(kind.NewBits(8), "a")
	sum := b.Binary(rherr.Span{}, mir.Add, kind.NewBits(8), symtab.OfRegister(a), symtab.OfRegister(a), "sum")
	b.SetReturn(symtab.OfRegister(sum))
	require.NoError(t, obj.Verify())

	passed, err := mirpass.Run(obj)
	require.NoError(t, err)

	mod, err := Lower(passed)
	require.NoError(t, err)
	require.Len(t, mod.Ops, 1)
	op := mod.Ops[0].Op
	require.Equal(t, rtl.OpBinary, op.Opcode)
	require.Equal(t, rtl.Add, op.BinOp)
	require.False(t, op.Signed)
	require.Equal(t, 8, mod.Table.Width(op.Lhs))
}

// TestLowerTupleStaticIndex exercises rule 1 (Concat) and rule 2 (static
// Index): a Tuple(Bits(8), Bits(4)) constructed then read back at position
// 1 should produce a Concat followed by an Index over bits [8, 12).
func TestLowerTupleStaticIndex(t *testing.T) {
	tk := kind.NewTuple(kind.NewBits(8), kind.NewBits(4))
	obj := mir.New("second", 1)
	b := mir.NewBuilder(obj)
	a := b.Argument(kind.NewBits(8), "a")
	c := b.Argument(kind.NewBits(4), "c")
	tup := b.Tuple(rherr.Span{}, tk, []symtab.Slot{symtab.OfRegister(a), symtab.OfRegister(c)}, "tup")
	snd := b.Index(rherr.Span{}, kind.NewBits(4), symtab.OfRegister(tup), path.Path{path.TupleIndexOf(1)}, "snd")
	b.SetReturn(symtab.OfRegister(snd))
	require.NoError(t, obj.Verify())

	mod, err := Lower(obj)
	require.NoError(t, err)
	require.Len(t, mod.Ops, 2)

	concat := mod.Ops[0].Op
	require.Equal(t, rtl.OpConcat, concat.Opcode)
	require.Len(t, concat.Args, 2)

	idx := mod.Ops[1].Op
	require.Equal(t, rtl.OpIndex, idx.Opcode)
	require.Equal(t, 8, idx.Start)
	require.Equal(t, 12, idx.End)
}

// TestLowerEnumDiscriminantCase mirrors §8 scenario S2 at the RTL
// level: reading an Enum's discriminant is a static Index, and matching it
// is an RTL Case.
func TestLowerEnumDiscriminantCase(t *testing.T) {
	layout := kind.DiscriminantLayout{Width: 2, Alignment: kind.Lsb, Signedness: false}
	ek := kind.NewEnum("Light", layout,
		kind.Variant{Name: "Red", Discriminant: 0, Payload: kind.Kind{}},
		kind.Variant{Name: "Yellow", Discriminant: 1, Payload: kind.Kind{}},
		kind.Variant{Name: "Green", Discriminant: 2, Payload: kind.Kind{}},
	)
	obj := mir.New("next", 1)
	b := mir.NewBuilder(obj)
	light := b.Argument(ek, "light")
	disc := b.Index(rherr.Span{}, kind.NewBits(2), symtab.OfRegister(light), path.Path{path.EnumDiscriminantOf()}, "disc")

	zero, _ := bits.NewFromInt(kind.NewBits(2), 0)
	one, _ := bits.NewFromInt(kind.NewBits(2), 1)
	two, _ := bits.NewFromInt(kind.NewBits(2), 2)
	zeroLit := b.Literal(zero, "zero")
	oneLit := b.Literal(one, "one")
	twoLit := b.Literal(two, "two")
	redLit, _ := zeroLit.Literal()
	yellowLit, _ := oneLit.Literal()
	greenLit, _ := twoLit.Literal()

	arms := []mir.CaseArm{
		{Pattern: mir.CaseArgument{Kind: mir.CaseLiteral, Literal: redLit}, Value: oneLit},
		{Pattern: mir.CaseArgument{Kind: mir.CaseLiteral, Literal: yellowLit}, Value: twoLit},
		{Pattern: mir.CaseArgument{Kind: mir.CaseLiteral, Literal: greenLit}, Value: zeroLit},
	}
	result := b.Case(rherr.Span{}, kind.NewBits(2), symtab.OfRegister(disc), arms, "result")
	b.SetReturn(symtab.OfRegister(result))
	require.NoError(t, obj.Verify())

	mod, err := Lower(obj)
	require.NoError(t, err)
	require.Len(t, mod.Ops, 2)

	idx := mod.Ops[0].Op
	require.Equal(t, rtl.OpIndex, idx.Opcode)
	require.Equal(t, 0, idx.Start)
	require.Equal(t, 2, idx.End)

	caseOp := mod.Ops[1].Op
	require.Equal(t, rtl.OpCase, caseOp.Opcode)
	require.Len(t, caseOp.CaseTable, 3)
}

// TestLowerResizeSignExtends exercises rule 7: Resize growing a Signed
// source sign-extends.
func TestLowerResizeSignExtends(t *testing.T) {
	obj := mir.New("widen", 1)
	b := mir.NewBuilder(obj)
	a := b.Argument(kind.NewSigned(4), "a")
	wide := b.Cast(rherr.Span{}, mir.Resize, kind.NewSigned(8), symtab.OfRegister(a), 8, "wide")
	b.SetReturn(symtab.OfRegister(wide))
	require.NoError(t, obj.Verify())

	mod, err := Lower(obj)
	require.NoError(t, err)
	require.Len(t, mod.Ops, 1)
	op := mod.Ops[0].Op
	require.Equal(t, rtl.OpCast, op.Opcode)
	require.True(t, op.Signed)
}

// TestLowerExecPreservesSubmodule covers rule 6: Exec becomes an RTL
// sub-module invocation, and the callee is lowered independently into
// Module.Submodules.
func TestLowerExecPreservesSubmodule(t *testing.T) {
	square := mir.New("square", 2)
	sb := mir.NewBuilder(square)
	x := sb.Argument(kind.NewBits(8), "x")
	sq := sb.Binary(rherr.Span{}, mir.Mul, kind.NewBits(8), symtab.OfRegister(x), symtab.OfRegister(x), "sq")
	sb.SetReturn(symtab.OfRegister(sq))
	require.NoError(t, square.Verify())

	outer := mir.New("callSquare", 1)
	b := mir.NewBuilder(outer)
	b.AddExternal(mir.CalleeID(0), square)
	a := b.Argument(kind.NewBits(8), "a")
	r := b.Exec(rherr.Span{}, kind.NewBits(8), mir.CalleeID(0), []symtab.Slot{symtab.OfRegister(a)}, "r")
	b.SetReturn(symtab.OfRegister(r))
	require.NoError(t, outer.Verify())

	mod, err := Lower(outer)
	require.NoError(t, err)
	require.Len(t, mod.Ops, 1)
	require.Equal(t, rtl.OpExec, mod.Ops[0].Op.Opcode)
	require.Equal(t, uint32(0), mod.Ops[0].Op.Callee)
	require.Len(t, mod.Submodules, 1)
	require.Equal(t, "square", mod.Submodules[0].Module.Name)
}
