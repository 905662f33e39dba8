package mirpass

import (
	"testing"

	"github.com/rhdl-project/rhdlc/bits"
	"github.com/rhdl-project/rhdlc/kind"
	"github.com/rhdl-project/rhdlc/mir"
	"github.com/rhdl-project/rhdlc/rherr"
	"github.com/rhdl-project/rhdlc/symtab"
	"github.com/stretchr/testify/require"
)

func TestPipelineFoldsAndEliminatesDeadCode(t *testing.T) {
	obj := mir.New("const_add", 1)
	b := mir.NewBuilder(obj)
	five, _ := bits.NewFromInt(kind.NewBits(8), 5)
	three, _ := bits.NewFromInt(kind.NewBits(8), 3)
	fiveSlot := b.Literal(five, "five")
	threeSlot := b.Literal(three, "three")
	sum := b.Binary(rherr.Span{}, mir.Add, kind.NewBits(8), fiveSlot, threeSlot, "sum")
	// dead computation that should become a Noop.
	b.Binary(rherr.Span{}, mir.Mul, kind.NewBits(8), fiveSlot, threeSlot, "unused")
	b.SetReturn(symtab.OfRegister(sum))
	require.NoError(t, obj.Verify())

	out, err := Run(obj)
	require.NoError(t, err)

	require.Equal(t, mir.OpAssign, out.Ops[0].Op.Opcode) // sum folded
	require.Equal(t, mir.OpNoop, out.Ops[1].Op.Opcode)   // unused eliminated
}

func TestPipelineRejectsCoherenceViolation(t *testing.T) {
	clkA := kind.NewColor("clkA")
	clkB := kind.NewColor("clkB")
	kindA := kind.NewSignal(kind.NewBits(8), clkA)
	kindB := kind.NewSignal(kind.NewBits(8), clkB)

	obj := mir.New("mixed", 1)
	b := mir.NewBuilder(obj)
	a := b.Argument(kindA, "a")
	c := b.Argument(kindB, "c")
	sum := b.Binary(rherr.Span{}, mir.Add, kindA, symtab.OfRegister(a), symtab.OfRegister(c), "sum")
	b.SetReturn(symtab.OfRegister(sum))

	_, err := Run(obj)
	require.Error(t, err)
	rerr, ok := err.(*rherr.Error)
	require.True(t, ok)
	require.Equal(t, rherr.Coherence, rerr.Category)
}
