package mir

import (
	"fmt"

	"github.com/rhdl-project/rhdlc/kind"
	"github.com/rhdl-project/rhdlc/rherr"
	"github.com/rhdl-project/rhdlc/symtab"
)

// FnID opaquely identifies an Object's originating kernel function, used
// by Exec to detect recursive call graphs during Verify.
type FnID uint64

// Object is one compiled kernel: a flat op sequence over a Table, callable
// by Exec from other Objects through Externals (§4.1).
type Object struct {
	Name       string
	FnID       FnID
	Symtab     *symtab.Table
	Arguments  []symtab.Register
	ReturnSlot symtab.Slot
	Ops        []LocatedOp
	Externals  map[CalleeID]*Object
}

// New returns an empty Object over a fresh Table.
func New(name string, fnID FnID) *Object {
	return &Object{
		Name:      name,
		FnID:      fnID,
		Symtab:    symtab.New(),
		Externals: make(map[CalleeID]*Object),
	}
}

func (o *Object) op(span rherr.Span, op Op) {
	o.Ops = append(o.Ops, LocatedOp{Span: span, Op: op})
}

// Verify checks well-formedness (§4.3): every referenced slot
// exists and is defined before use, every Exec callee-id resolves in
// Externals with matching arity and argument kinds, and the Exec call
// graph rooted at o is acyclic.
func (o *Object) Verify() error {
	defined := make(map[symtab.Register]bool, len(o.Arguments))
	for _, a := range o.Arguments {
		defined[a] = true
	}

	checkSlot := func(span rherr.Span, s symtab.Slot, what string) error {
		switch s.Kind() {
		case symtab.EmptySlot:
			return nil
		case symtab.LiteralSlot:
			l, _ := s.Literal()
			if int(l) >= o.Symtab.NumLiterals() {
				return rherr.New(rherr.ICE, span, "mir.Verify", "%s references out-of-range literal %d", what, l)
			}
			return nil
		case symtab.RegisterSlot:
			r, _ := s.Register()
			if int(r) >= o.Symtab.NumRegisters() {
				return rherr.New(rherr.ICE, span, "mir.Verify", "%s references out-of-range register %d", what, r)
			}
			if !defined[r] {
				return rherr.New(rherr.ICE, span, "mir.Verify", "%s reads register %d before it is assigned", what, r)
			}
			return nil
		default:
			return rherr.New(rherr.ICE, span, "mir.Verify", "%s has unknown slot kind", what)
		}
	}

	for _, lop := range o.Ops {
		span, op := lop.Span, lop.Op
		operands := []symtab.Slot{op.Arg, op.Arg2, op.Arg3, op.Rest}
		operands = append(operands, op.Args...)
		for _, fa := range op.StructFields {
			operands = append(operands, fa.Value)
		}
		for _, arm := range op.CaseTable {
			operands = append(operands, arm.Value)
		}
		for _, s := range operands {
			if err := checkSlot(span, s, op.Opcode.String()); err != nil {
				return err
			}
		}
		if (op.Opcode == OpStruct && !op.HasRest) || op.Opcode == OpEnum {
			if int(op.Template) >= o.Symtab.NumLiterals() {
				return rherr.New(rherr.ICE, span, "mir.Verify", "%s references out-of-range template literal %d", op.Opcode, op.Template)
			}
		}

		if op.Opcode == OpExec {
			callee, ok := o.Externals[op.Callee]
			if !ok {
				return rherr.New(rherr.ICE, span, "mir.Verify", "Exec references unknown callee %d", op.Callee)
			}
			if len(op.Args) != len(callee.Arguments) {
				return rherr.New(rherr.ICE, span, "mir.Verify", "Exec to %q passes %d args, wants %d", callee.Name, len(op.Args), len(callee.Arguments))
			}
			for i, argSlot := range op.Args {
				var argKind kind.Kind
				switch argSlot.Kind() {
				case symtab.RegisterSlot:
					r, _ := argSlot.Register()
					argKind = o.Symtab.RegisterKind(r)
				case symtab.LiteralSlot:
					l, _ := argSlot.Literal()
					argKind = o.Symtab.Literal(l).Kind
				}
				want := callee.Symtab.RegisterKind(callee.Arguments[i])
				if argSlot.Kind() != symtab.EmptySlot && !kind.Equal(argKind, want) {
					return rherr.New(rherr.Type, span, "mir.Verify", "Exec to %q arg %d has kind %s, wants %s", callee.Name, i, argKind, want)
				}
			}
		}

		if op.Lhs.Kind() == symtab.RegisterSlot {
			r, _ := op.Lhs.Register()
			defined[r] = true
		}
	}

	if err := checkAcyclic(o, map[FnID]bool{}); err != nil {
		return err
	}
	return nil
}

func checkAcyclic(o *Object, onStack map[FnID]bool) error {
	if onStack[o.FnID] {
		return rherr.New(rherr.ICE, rherr.Span{}, "mir.Verify", "recursive Exec call graph through %q", o.Name)
	}
	onStack[o.FnID] = true
	defer delete(onStack, o.FnID)
	for _, callee := range o.Externals {
		if err := checkAcyclic(callee, onStack); err != nil {
			return err
		}
	}
	return nil
}

func (o *Object) String() string {
	return fmt.Sprintf("mir.Object{%s, %d ops}", o.Name, len(o.Ops))
}
