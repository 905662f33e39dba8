package hdl

import (
	"strings"
	"testing"

	"github.com/rhdl-project/rhdlc/bits"
	"github.com/rhdl-project/rhdlc/expand"
	"github.com/rhdl-project/rhdlc/kind"
	"github.com/rhdl-project/rhdlc/lower"
	"github.com/rhdl-project/rhdlc/mir"
	"github.com/rhdl-project/rhdlc/path"
	"github.com/rhdl-project/rhdlc/rherr"
	"github.com/rhdl-project/rhdlc/symtab"
	"github.com/stretchr/testify/require"
)

// TestEmitDoubleProducesVectorAssign mirrors §8 scenario S1 all the
// way to HDL: an 8-bit Add stays a single continuous assign driven by a
// Vector op, bound to a matching out port.
func TestEmitDoubleProducesVectorAssign(t *testing.T) {
	obj := mir.New("double", 1)
	b := mir.NewBuilder(obj)
	a := b.Argument(kind.NewBits(8), "a")
	sum := b.Binary(rherr.Span{}, mir.Add, kind.NewBits(8), symtab.OfRegister(a), symtab.OfRegister(a), "sum")
	b.SetReturn(symtab.OfRegister(sum))
	require.NoError(t, obj.Verify())

	mod, err := lower.Lower(obj)
	require.NoError(t, err)
	nl, err := expand.Expand(mod)
	require.NoError(t, err)

	m, err := Emit(nl)
	require.NoError(t, err)

	require.Len(t, m.Ports, 2)
	require.Equal(t, "arg_0", m.Ports[0].Name)
	require.Equal(t, In, m.Ports[0].Direction)
	require.Equal(t, 8, m.Ports[0].Width)
	require.Equal(t, "out", m.Ports[1].Name)
	require.Equal(t, Out, m.Ports[1].Direction)
	require.Equal(t, 8, m.Ports[1].Width)

	var foundVector bool
	for _, s := range m.Statements {
		if s.Kind == StmtContinuousAssign && strings.Contains(s.Rhs, "+") {
			foundVector = true
		}
	}
	require.True(t, foundVector, "expected a continuous assign driven by a vector add")

	// out is bound bit-by-bit from the sum's aliased registers.
	last := m.Statements[len(m.Statements)-1]
	require.Equal(t, "out[7]", last.Lhs)

	require.Contains(t, m.String(), "module double")
}

// TestEmitCaseProducesAlwaysBlock mirrors §8 scenario S2: matching
// an enum discriminant lowers to one always @* case block per output bit.
func TestEmitCaseProducesAlwaysBlock(t *testing.T) {
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

	mod, err := lower.Lower(obj)
	require.NoError(t, err)
	nl, err := expand.Expand(mod)
	require.NoError(t, err)

	m, err := Emit(nl)
	require.NoError(t, err)

	var always int
	for _, s := range m.Statements {
		if s.Kind == StmtAlwaysComb {
			always++
			require.Len(t, s.Body, 1)
			require.Equal(t, StmtCase, s.Body[0].Kind)
		}
	}
	require.Equal(t, 2, always, "one always @* case block per discriminant output bit")
	require.Contains(t, m.String(), "endcase")
}

// TestEmitNoArgumentsUsesInitialBlock covers the initial-block rule: a
// kernel that reads no inputs is a compile-time constant, so its body is
// one initial block rather than a flat list of continuous assigns.
func TestEmitNoArgumentsUsesInitialBlock(t *testing.T) {
	obj := mir.New("const42", 1)
	b := mir.NewBuilder(obj)
	v, _ := bits.NewFromInt(kind.NewBits(8), 42)
	lit := b.Literal(v, "fortytwo")
	b.SetReturn(lit)
	require.NoError(t, obj.Verify())

	mod, err := lower.Lower(obj)
	require.NoError(t, err)
	nl, err := expand.Expand(mod)
	require.NoError(t, err)

	m, err := Emit(nl)
	require.NoError(t, err)

	require.Len(t, m.Ports, 1)
	require.Equal(t, "out", m.Ports[0].Name)
	require.Len(t, m.Statements, 1)
	require.Equal(t, StmtInitial, m.Statements[0].Kind)
	for _, s := range m.Statements[0].Body {
		require.Equal(t, StmtBlockingAssign, s.Kind)
	}
	require.Contains(t, m.String(), "initial")
}
