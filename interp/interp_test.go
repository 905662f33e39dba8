package interp

import (
	"testing"

	"github.com/rhdl-project/rhdlc/bits"
	"github.com/rhdl-project/rhdlc/kind"
	"github.com/rhdl-project/rhdlc/mir"
	"github.com/rhdl-project/rhdlc/path"
	"github.com/rhdl-project/rhdlc/rherr"
	"github.com/rhdl-project/rhdlc/symtab"
	"github.com/stretchr/testify/require"
)

// TestS1Double mirrors §8 scenario S1.
func TestS1Double(t *testing.T) {
	obj := mir.New("double", 1)
	b := mir.NewBuilder(obj)
	a := b.Argument(kind.NewBits(8), "a")
	sum := b.Binary(rherr.Span{}, mir.Add, kind.NewBits(8), symtab.OfRegister(a), symtab.OfRegister(a), "sum")
	b.SetReturn(symtab.OfRegister(sum))
	require.NoError(t, obj.Verify())

	five, err := bits.NewFromInt(kind.NewBits(8), 5)
	require.NoError(t, err)
	got, err := Run(obj, []bits.Value{five})
	require.NoError(t, err)
	n, ok := bits.AsInt(got)
	require.True(t, ok)
	require.Equal(t, 10, n)
}

// TestS5SelectOnXCondition mirrors §8 scenario S5: Select on an X
// condition yields all-X of the result width.
func TestS5SelectOnXCondition(t *testing.T) {
	obj := mir.New("mux", 1)
	b := mir.NewBuilder(obj)
	cond := b.Argument(kind.NewBits(1), "cond")
	t8 := b.Argument(kind.NewBits(8), "t")
	f8 := b.Argument(kind.NewBits(8), "f")
	sel := b.Select(rherr.Span{}, kind.NewBits(8), symtab.OfRegister(cond), symtab.OfRegister(t8), symtab.OfRegister(f8), "sel")
	b.SetReturn(symtab.OfRegister(sel))
	require.NoError(t, obj.Verify())

	xCond := bits.Value{Bits: bits.BitString{bits.X}, Kind: kind.NewBits(1)}
	tv, _ := bits.NewFromInt(kind.NewBits(8), 0xAA)
	fv, _ := bits.NewFromInt(kind.NewBits(8), 0x55)
	got, err := Run(obj, []bits.Value{xCond, tv, fv})
	require.NoError(t, err)
	require.True(t, got.Bits.HasX())
}

func trafficKind() kind.Kind {
	layout := kind.DiscriminantLayout{Width: 2, Alignment: kind.Lsb, Signedness: false}
	return kind.NewEnum("Light", layout,
		kind.Variant{Name: "Red", Discriminant: 0, Payload: kind.Kind{}},
		kind.Variant{Name: "Yellow", Discriminant: 1, Payload: kind.Kind{}},
		kind.Variant{Name: "Green", Discriminant: 2, Payload: kind.Kind{}},
	)
}

// TestS2EnumCaseMatch mirrors §8 scenario S2: construct an Enum
// variant and Case-match its discriminant back to a value.
func TestS2EnumCaseMatch(t *testing.T) {
	ek := trafficKind()
	obj := mir.New("next", 1)
	b := mir.NewBuilder(obj)
	light := b.Argument(ek, "light")

	zero, _ := bits.NewFromInt(kind.NewBits(2), 0)
	one, _ := bits.NewFromInt(kind.NewBits(2), 1)
	two, _ := bits.NewFromInt(kind.NewBits(2), 2)
	zeroLit := b.Literal(zero, "zero")
	oneLit := b.Literal(one, "one")
	twoLit := b.Literal(two, "two")

	redLit, _ := zeroLit.Literal()
	yellowLit, _ := oneLit.Literal()
	greenLit, _ := twoLit.Literal()

	discReg := b.Index(rherr.Span{}, kind.NewBits(2), symtab.OfRegister(light), path.Path{path.EnumDiscriminantOf()}, "discbits")

	arms := []mir.CaseArm{
		{Pattern: mir.CaseArgument{Kind: mir.CaseLiteral, Literal: redLit}, Value: oneLit},
		{Pattern: mir.CaseArgument{Kind: mir.CaseLiteral, Literal: yellowLit}, Value: twoLit},
		{Pattern: mir.CaseArgument{Kind: mir.CaseLiteral, Literal: greenLit}, Value: zeroLit},
	}
	result := b.Case(rherr.Span{}, kind.NewBits(2), symtab.OfRegister(discReg), arms, "result")
	b.SetReturn(symtab.OfRegister(result))
	require.NoError(t, obj.Verify())

	yellow, err := bits.WrapVariant(ek, "Yellow", bits.Value{Kind: kind.Kind{}})
	require.NoError(t, err)
	got, err := Run(obj, []bits.Value{yellow})
	require.NoError(t, err)
	n, ok := bits.AsInt(got)
	require.True(t, ok)
	require.Equal(t, 2, n) // Yellow(1) -> Green(2)
}

func TestExecRecursive(t *testing.T) {
	square := mir.New("square", 2)
	sb := mir.NewBuilder(square)
	x := sb.Argument(kind.NewBits(8), "x")
	sq := sb.Binary(rherr.Span{}, mir.Mul, kind.NewBits(8), symtab.OfRegister(x), symtab.OfRegister(x), "sq")
	sb.SetReturn(symtab.OfRegister(sq))
	require.NoError(t, square.Verify())

	outer := mir.New("sumOfSquares", 1)
	b := mir.NewBuilder(outer)
	b.AddExternal(mir.CalleeID(0), square)
	a := b.Argument(kind.NewBits(8), "a")
	c := b.Argument(kind.NewBits(8), "c")
	sqA := b.Exec(rherr.Span{}, kind.NewBits(8), mir.CalleeID(0), []symtab.Slot{symtab.OfRegister(a)}, "sqA")
	sqC := b.Exec(rherr.Span{}, kind.NewBits(8), mir.CalleeID(0), []symtab.Slot{symtab.OfRegister(c)}, "sqC")
	sum := b.Binary(rherr.Span{}, mir.Add, kind.NewBits(8), symtab.OfRegister(sqA), symtab.OfRegister(sqC), "sum")
	b.SetReturn(symtab.OfRegister(sum))
	require.NoError(t, outer.Verify())

	av, _ := bits.NewFromInt(kind.NewBits(8), 3)
	cv, _ := bits.NewFromInt(kind.NewBits(8), 4)
	got, err := Run(outer, []bits.Value{av, cv})
	require.NoError(t, err)
	n, ok := bits.AsInt(got)
	require.True(t, ok)
	require.Equal(t, 25, n) // 3^2 + 4^2
}
