// Package coherence implements the clock-domain coherence checker (C13):
// a union-find over the Colors observed on an Object's Signal-typed
// registers, unifying the operand domains of every scalar op and
// rejecting the first point where two distinct concrete domains would
// have to merge (§4.8).
package coherence

import (
	"github.com/golang/glog"
	"github.com/rhdl-project/rhdlc/internal/rhdlapi"
	"github.com/rhdl-project/rhdlc/kind"
	"github.com/rhdl-project/rhdlc/mir"
	"github.com/rhdl-project/rhdlc/path"
	"github.com/rhdl-project/rhdlc/rherr"
	"github.com/rhdl-project/rhdlc/symtab"
)

type unionFind struct {
	parent map[uint64]uint64
	name   map[uint64]string
	origin map[uint64]rherr.Span // first span a domain id was observed at
}

func newUnionFind() *unionFind {
	return &unionFind{parent: map[uint64]uint64{}, name: map[uint64]string{}, origin: map[uint64]rherr.Span{}}
}

func (u *unionFind) find(id uint64) uint64 {
	p, ok := u.parent[id]
	if !ok {
		u.parent[id] = id
		return id
	}
	if p == id {
		return id
	}
	root := u.find(p)
	u.parent[id] = root
	return root
}

func (u *unionFind) observe(c kind.Color, span rherr.Span) {
	if _, ok := u.parent[c.ID()]; !ok {
		u.parent[c.ID()] = c.ID()
		u.name[c.ID()] = c.String()
		u.origin[c.ID()] = span
	}
}

// union requires a and b to be in the same domain class; it never merges
// classes. A constant on either side always agrees; two non-constant
// colors in different classes are a coherence violation.
func (u *unionFind) union(a, b kind.Color, span rherr.Span, opDesc string) error {
	if a.IsConstant() || b.IsConstant() {
		return nil
	}
	u.observe(a, span)
	u.observe(b, span)
	ra, rb := u.find(a.ID()), u.find(b.ID())
	if ra == rb {
		return nil
	}
	return rherr.New(rherr.Coherence, span, opDesc,
		"mixes clock domains %q (first seen %s) and %q (first seen %s)",
		u.name[ra], u.origin[ra], u.name[rb], u.origin[rb])
}

func domainOf(obj *mir.Object, s symtab.Slot) kind.Color {
	switch s.Kind() {
	case symtab.RegisterSlot:
		r, _ := s.Register()
		k := obj.Symtab.RegisterKind(r)
		if k.Tag() == kind.SignalT {
			return k.Domain()
		}
		return kind.ColorNone
	case symtab.LiteralSlot:
		return kind.ColorConst
	default:
		return kind.ColorNone
	}
}

// Check walks every op of obj (and, transitively, every Object reachable
// through Externals) and fails with a rherr.Coherence error at the first
// domain-mixing violation.
func Check(obj *mir.Object) error {
	if rhdlapi.CoherenceLoggingEnabled {
		glog.Infof("coherence: checking %s", obj.Name)
	}
	seen := map[*mir.Object]bool{}
	if err := check(obj, seen); err != nil {
		if rhdlapi.CoherenceLoggingEnabled {
			glog.Infof("coherence: %s rejected: %v", obj.Name, err)
		}
		return err
	}
	return nil
}

func check(obj *mir.Object, seen map[*mir.Object]bool) error {
	if seen[obj] {
		return nil
	}
	seen[obj] = true
	uf := newUnionFind()
	for _, lop := range obj.Ops {
		if err := checkOp(obj, uf, lop); err != nil {
			return err
		}
	}
	for _, callee := range obj.Externals {
		if err := check(callee, seen); err != nil {
			return err
		}
	}
	return nil
}

// checkOp unifies the domains that must coincide for one op. Aggregate
// construction (Struct/Tuple/Array/Enum) is deliberately exempt: §4.8
// carves out "packaging into named struct/tuple fields" as the escape
// hatch for combining values of different domains, since the result
// keeps each field's Signal coloring distinct rather than forcing a
// single coloring on the whole aggregate.
func checkOp(obj *mir.Object, uf *unionFind, lop mir.LocatedOp) error {
	span, op := lop.Span, lop.Op
	d := func(s symtab.Slot) kind.Color { return domainOf(obj, s) }

	switch op.Opcode {
	case mir.OpBinary:
		return uf.union(d(op.Arg), d(op.Arg2), span, "Binary("+op.BinOp.String()+")")
	case mir.OpSelect:
		if err := uf.union(d(op.Arg), d(op.Arg2), span, "Select"); err != nil {
			return err
		}
		if err := uf.union(d(op.Arg2), d(op.Arg3), span, "Select"); err != nil {
			return err
		}
		return uf.union(d(op.Arg2), d(op.Lhs), span, "Select")
	case mir.OpCase:
		var rep symtab.Slot
		first := true
		for _, arm := range op.CaseTable {
			if first {
				rep = arm.Value
				first = false
				continue
			}
			if err := uf.union(d(rep), d(arm.Value), span, "Case"); err != nil {
				return err
			}
		}
	case mir.OpSplice:
		if err := checkDynamicIndex(obj, uf, d(op.Arg), op.Path, span, "Splice"); err != nil {
			return err
		}
		return uf.union(d(op.Arg), d(op.Lhs), span, "Splice")
	case mir.OpIndex:
		return checkDynamicIndex(obj, uf, d(op.Arg), op.Path, span, "Index")
	case mir.OpAssign:
		return uf.union(d(op.Arg), d(op.Lhs), span, "Assign")
	case mir.OpExec:
		return checkExec(obj, uf, op, span)
	}
	return nil
}

// checkDynamicIndex unifies argColor (the domain of the value being
// addressed) with the domain of every DynamicIndex slot register in p: a
// runtime index pulled from one clock domain selecting into a Signal from
// another is exactly the same kind of domain mixing as a Select condition
// wired to branches in a different domain.
func checkDynamicIndex(obj *mir.Object, uf *unionFind, argColor kind.Color, p path.Path, span rherr.Span, opDesc string) error {
	for _, elem := range p {
		if elem.Kind != path.DynamicIndex {
			continue
		}
		idxReg := symtab.RegisterFromPathSlot(elem.Slot)
		idxColor := domainOf(obj, symtab.OfRegister(idxReg))
		if err := uf.union(argColor, idxColor, span, opDesc+"(dynamic index)"); err != nil {
			return err
		}
	}
	return nil
}

// checkExec unifies each call argument's domain with the corresponding
// callee parameter's domain: Externals recursion (see check) validates a
// callee's own internals, but never the caller-side binding across the
// call boundary, which is a distinct coherence requirement (§4.8
// "Exec arg-to-parameter").
func checkExec(obj *mir.Object, uf *unionFind, op mir.Op, span rherr.Span) error {
	callee, ok := obj.Externals[op.Callee]
	if !ok {
		return nil // obj.Verify already rejects a dangling Callee; nothing more to check here.
	}
	n := len(op.Args)
	if len(callee.Arguments) < n {
		n = len(callee.Arguments)
	}
	for i := 0; i < n; i++ {
		argColor := domainOf(obj, op.Args[i])
		paramColor := domainOf(callee, symtab.OfRegister(callee.Arguments[i]))
		if err := uf.union(argColor, paramColor, span, "Exec("+callee.Name+")"); err != nil {
			return err
		}
	}
	return nil
}
