package mir

import (
	"testing"

	"github.com/rhdl-project/rhdlc/kind"
	"github.com/rhdl-project/rhdlc/rherr"
	"github.com/rhdl-project/rhdlc/symtab"
	"github.com/stretchr/testify/require"
)

// TestVerifyWellFormedObject hand-builds §8 scenario S1:
// fn double(a: b8) -> b8 { a + a }.
func TestVerifyWellFormedObject(t *testing.T) {
	obj := New("double", 1)
	b := NewBuilder(obj)
	a := b.Argument(kind.NewBits(8), "a")
	aSlot := symtab.OfRegister(a)
	sum := b.Binary(rherr.Span{}, Add, kind.NewBits(8), aSlot, aSlot, "sum")
	b.SetReturn(symtab.OfRegister(sum))

	require.NoError(t, obj.Verify())
	require.Equal(t, 1, len(obj.Ops))
	require.Equal(t, OpBinary, obj.Ops[0].Op.Opcode)
}

func TestVerifyCatchesUseBeforeDef(t *testing.T) {
	obj := New("bad", 1)
	// A register minted directly in the Table, never declared as an
	// Argument nor produced by a prior op's Lhs.
	ghost := obj.Symtab.InsertRegister(kind.NewBits(8), symtab.Meta{})
	b := NewBuilder(obj)
	ghostSlot := symtab.OfRegister(ghost)
	sum := b.Binary(rherr.Span{}, Add, kind.NewBits(8), ghostSlot, ghostSlot, "sum")
	b.SetReturn(symtab.OfRegister(sum))

	require.Error(t, obj.Verify())
}

func TestVerifyExecArityMismatch(t *testing.T) {
	callee := New("inner", 2)
	cb := NewBuilder(callee)
	x := cb.Argument(kind.NewBits(8), "x")
	cb.SetReturn(symtab.OfRegister(x))

	caller := New("outer", 1)
	b := NewBuilder(caller)
	b.AddExternal(CalleeID(1), callee)
	a := b.Argument(kind.NewBits(8), "a")
	extra := b.Argument(kind.NewBits(8), "extra")
	res := b.Exec(rherr.Span{}, kind.NewBits(8), CalleeID(1), []symtab.Slot{symtab.OfRegister(a), symtab.OfRegister(extra)}, "r")
	b.SetReturn(symtab.OfRegister(res))

	require.Error(t, caller.Verify())
}

func TestVerifyRejectsUnknownCallee(t *testing.T) {
	obj := New("outer", 1)
	b := NewBuilder(obj)
	a := b.Argument(kind.NewBits(8), "a")
	res := b.Exec(rherr.Span{}, kind.NewBits(8), CalleeID(99), []symtab.Slot{symtab.OfRegister(a)}, "r")
	b.SetReturn(symtab.OfRegister(res))

	require.Error(t, obj.Verify())
}

func TestVerifyAcceptsMatchingExec(t *testing.T) {
	callee := New("square", 2)
	cb := NewBuilder(callee)
	x := cb.Argument(kind.NewBits(8), "x")
	sq := cb.Binary(rherr.Span{}, Mul, kind.NewBits(8), symtab.OfRegister(x), symtab.OfRegister(x), "sq")
	cb.SetReturn(symtab.OfRegister(sq))
	require.NoError(t, callee.Verify())

	caller := New("outer", 1)
	b := NewBuilder(caller)
	b.AddExternal(CalleeID(7), callee)
	a := b.Argument(kind.NewBits(8), "a")
	res := b.Exec(rherr.Span{}, kind.NewBits(8), CalleeID(7), []symtab.Slot{symtab.OfRegister(a)}, "r")
	b.SetReturn(symtab.OfRegister(res))

	require.NoError(t, caller.Verify())
}

func TestVerifyRejectsRecursiveCallGraph(t *testing.T) {
	a := New("a", 1)
	bObj := New("b", 2)
	a.Externals[CalleeID(0)] = bObj
	bObj.Externals[CalleeID(0)] = a

	require.Error(t, checkAcyclic(a, map[FnID]bool{}))
}
