// Package dce implements dead-code elimination: a backward liveness sweep
// from ReturnSlot (every Exec op is kept, and its arguments stay live,
// since Exec may have externally observable effects) that replaces every
// other op whose result is never read with a Noop, preserving op count
// and position for -dump readability.
package dce

import (
	"github.com/rhdl-project/rhdlc/mir"
	"github.com/rhdl-project/rhdlc/path"
	"github.com/rhdl-project/rhdlc/symtab"
)

// Run returns a new Object with dead ops replaced by Noop.
func Run(obj *mir.Object) (*mir.Object, error) {
	out := *obj
	out.Ops = append([]mir.LocatedOp(nil), obj.Ops...)

	live := map[symtab.Register]bool{}
	markSlotLive(live, out.ReturnSlot)

	for i := len(out.Ops) - 1; i >= 0; i-- {
		op := out.Ops[i].Op
		r, isReg := op.Lhs.Register()
		resultLive := !isReg || live[r] || op.Opcode == mir.OpExec // Exec kept conservatively (side-effecting callee)
		if !resultLive {
			out.Ops[i] = mir.LocatedOp{Span: out.Ops[i].Span, Op: mir.Op{Opcode: mir.OpNoop}}
			continue
		}
		markOperandsLive(live, op)
	}
	return &out, nil
}

func markSlotLive(live map[symtab.Register]bool, s symtab.Slot) {
	if r, ok := s.Register(); ok {
		live[r] = true
	}
}

func markOperandsLive(live map[symtab.Register]bool, op mir.Op) {
	markSlotLive(live, op.Arg)
	markSlotLive(live, op.Arg2)
	markSlotLive(live, op.Arg3)
	if op.HasRest {
		markSlotLive(live, op.Rest)
	}
	for _, s := range op.Args {
		markSlotLive(live, s)
	}
	for _, fa := range op.StructFields {
		markSlotLive(live, fa.Value)
	}
	for _, arm := range op.CaseTable {
		markSlotLive(live, arm.Value)
	}
	markPathLive(live, op.Path)
}

// markPathLive marks the backing register of every DynamicIndex element
// in p live: a register read only as a runtime array index, never
// through Arg/Arg2/.../Args, would otherwise look unreferenced and could
// be wrongly folded away by a later pass.
func markPathLive(live map[symtab.Register]bool, p path.Path) {
	for _, elem := range p {
		if elem.Kind != path.DynamicIndex {
			continue
		}
		live[symtab.RegisterFromPathSlot(elem.Slot)] = true
	}
}
