package typecheck

import (
	"testing"

	"github.com/rhdl-project/rhdlc/kind"
	"github.com/rhdl-project/rhdlc/mir"
	"github.com/rhdl-project/rhdlc/rherr"
	"github.com/rhdl-project/rhdlc/symtab"
	"github.com/stretchr/testify/require"
)

func TestCheckAcceptsWellTypedDouble(t *testing.T) {
	obj := mir.New("double", 1)
	b := mir.NewBuilder(obj)
	a := b.Argument(kind.NewBits(8), "a")
	aSlot := symtab.OfRegister(a)
	sum := b.Binary(rherr.Span{}, mir.Add, kind.NewBits(8), aSlot, aSlot, "sum")
	b.SetReturn(symtab.OfRegister(sum))

	require.NoError(t, Check(obj))
}

func TestCheckRejectsWidthMismatch(t *testing.T) {
	obj := mir.New("bad", 1)
	b := mir.NewBuilder(obj)
	a := b.Argument(kind.NewBits(8), "a")
	c := b.Argument(kind.NewBits(4), "c")
	obj.Ops = append(obj.Ops, mir.LocatedOp{Op: mir.Op{
		Opcode: mir.OpBinary,
		Lhs:    symtab.OfRegister(obj.Symtab.InsertRegister(kind.NewBits(8), symtab.Meta{})),
		BinOp:  mir.Add,
		Arg:    symtab.OfRegister(a),
		Arg2:   symtab.OfRegister(c),
	}})

	err := Check(obj)
	require.Error(t, err)
}

func TestCheckAcceptsComparisonResultWidth(t *testing.T) {
	obj := mir.New("cmp", 1)
	b := mir.NewBuilder(obj)
	a := b.Argument(kind.NewBits(8), "a")
	c := b.Argument(kind.NewBits(8), "c")
	lt := b.Binary(rherr.Span{}, mir.Lt, kind.NewBits(1), symtab.OfRegister(a), symtab.OfRegister(c), "lt")
	b.SetReturn(symtab.OfRegister(lt))

	require.NoError(t, Check(obj))
}
