package coherence

import (
	"testing"

	"github.com/rhdl-project/rhdlc/bits"
	"github.com/rhdl-project/rhdlc/kind"
	"github.com/rhdl-project/rhdlc/mir"
	"github.com/rhdl-project/rhdlc/rherr"
	"github.com/rhdl-project/rhdlc/symtab"
	"github.com/stretchr/testify/require"
)

// TestS3CoherentSameDomain mirrors §8 scenario S3's success path:
// combining two Signals of the same domain is accepted.
func TestS3CoherentSameDomain(t *testing.T) {
	clk := kind.NewColor("clk")
	sigKind := kind.NewSignal(kind.NewBits(8), clk)

	obj := mir.New("add_same_domain", 1)
	b := mir.NewBuilder(obj)
	a := b.Argument(sigKind, "a")
	c := b.Argument(sigKind, "c")
	b.Binary(rherr.Span{}, mir.Add, sigKind, symtab.OfRegister(a), symtab.OfRegister(c), "sum")

	require.NoError(t, Check(obj))
}

// TestS3IncoherentMixedDomains mirrors §8 scenario S3's failure
// path: combining Signals of two distinct domains is rejected with a
// Coherence error carrying both spans.
func TestS3IncoherentMixedDomains(t *testing.T) {
	clkA := kind.NewColor("clkA")
	clkB := kind.NewColor("clkB")
	kindA := kind.NewSignal(kind.NewBits(8), clkA)
	kindB := kind.NewSignal(kind.NewBits(8), clkB)

	obj := mir.New("add_mixed_domain", 1)
	b := mir.NewBuilder(obj)
	a := b.Argument(kindA, "a")
	c := b.Argument(kindB, "c")
	b.Binary(rherr.Span{File: "k.rhdl", Line: 3, Col: 5}, mir.Add, kindA, symtab.OfRegister(a), symtab.OfRegister(c), "sum")

	err := Check(obj)
	require.Error(t, err)
	rerr, ok := err.(*rherr.Error)
	require.True(t, ok)
	require.Equal(t, rherr.Coherence, rerr.Category)
}

// TestStructPackagingEscapeHatch: packaging two different-domain Signals
// into a named struct's fields is accepted (§4.8 escape hatch).
func TestStructPackagingEscapeHatch(t *testing.T) {
	clkA := kind.NewColor("clkA")
	clkB := kind.NewColor("clkB")
	kindA := kind.NewSignal(kind.NewBits(8), clkA)
	kindB := kind.NewSignal(kind.NewBits(8), clkB)
	pairKind := kind.NewStruct("Pair", kind.Field{Name: "a", Kind: kindA}, kind.Field{Name: "b", Kind: kindB})

	obj := mir.New("pack", 1)
	b := mir.NewBuilder(obj)
	a := b.Argument(kindA, "a")
	c := b.Argument(kindB, "c")
	b.Struct(rherr.Span{}, pairKind,
		[]mir.FieldAssign{{Member: "a", Value: symtab.OfRegister(a)}, {Member: "b", Value: symtab.OfRegister(c)}},
		symtab.Empty, bits.ZeroOf(pairKind), "pair")

	require.NoError(t, Check(obj))
}
