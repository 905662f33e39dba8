// Package typecheck implements the MIR type-check pass: it re-derives the
// result Kind of every op from its operands' declared Kinds and confirms
// it matches the Kind already recorded for Lhs in the symbol table,
// catching width/signedness/shape mismatches a malformed lowering or a
// buggy earlier pass could introduce.
package typecheck

import (
	"github.com/rhdl-project/rhdlc/kind"
	"github.com/rhdl-project/rhdlc/mir"
	"github.com/rhdl-project/rhdlc/path"
	"github.com/rhdl-project/rhdlc/rherr"
	"github.com/rhdl-project/rhdlc/symtab"
)

// Check walks every op of obj and fails at the first Kind mismatch, with
// a rherr.Type error for operand mismatches and a rherr.ICE error for a
// Cast/Wrap TargetKind mismatch or an unknown Exec callee.
func Check(obj *mir.Object) error {
	for _, lop := range obj.Ops {
		if err := checkOp(obj, lop); err != nil {
			return err
		}
	}
	return nil
}

func slotKind(obj *mir.Object, s symtab.Slot) (kind.Kind, bool) {
	switch s.Kind() {
	case symtab.RegisterSlot:
		r, _ := s.Register()
		return obj.Symtab.RegisterKind(r), true
	case symtab.LiteralSlot:
		l, _ := s.Literal()
		return obj.Symtab.Literal(l).Kind, true
	default:
		return kind.Kind{}, false
	}
}

func lhsKind(obj *mir.Object, op mir.Op) kind.Kind {
	r, _ := op.Lhs.Register()
	return obj.Symtab.RegisterKind(r)
}

func sameWidth(a, b kind.Kind) bool { return a.Width() == b.Width() }

func checkOp(obj *mir.Object, lop mir.LocatedOp) error {
	span, op := lop.Span, lop.Op
	want := lhsKind(obj, op)

	switch op.Opcode {
	case mir.OpNoop, mir.OpComment, mir.OpRetime:
		return nil
	case mir.OpAssign:
		got, _ := slotKind(obj, op.Arg)
		if !kind.Equal(got, want) {
			return mismatch(span, "Assign", want, got)
		}
	case mir.OpBinary:
		a, _ := slotKind(obj, op.Arg)
		b, _ := slotKind(obj, op.Arg2)
		if !sameWidth(a, b) {
			return rherr.New(rherr.Type, span, "Binary("+op.BinOp.String()+")", "operand widths differ: %d vs %d", a.Width(), b.Width())
		}
		if op.BinOp.IsComparison() {
			if want.Width() != 1 {
				return rherr.New(rherr.Type, span, "Binary", "comparison result must be 1 bit, got width %d", want.Width())
			}
		} else if !kind.Equal(a, want) {
			return mismatch(span, "Binary("+op.BinOp.String()+")", want, a)
		}
	case mir.OpUnary:
		a, _ := slotKind(obj, op.Arg)
		if op.UnOp.IsReduction() {
			if want.Width() != 1 {
				return rherr.New(rherr.Type, span, "Unary("+op.UnOp.String()+")", "reduction result must be 1 bit, got width %d", want.Width())
			}
		} else if !kind.Equal(a, want) {
			return mismatch(span, "Unary("+op.UnOp.String()+")", want, a)
		}
	case mir.OpArray:
		if want.Tag() != kind.ArrayT {
			return rherr.New(rherr.Type, span, "Array", "result register is not an Array Kind: %s", want)
		}
		if len(op.Args) != want.Size() {
			return rherr.New(rherr.Type, span, "Array", "constructs %d elements, Kind declares size %d", len(op.Args), want.Size())
		}
		for _, s := range op.Args {
			k, _ := slotKind(obj, s)
			if !kind.Equal(k, want.Base()) {
				return mismatch(span, "Array element", want.Base(), k)
			}
		}
	case mir.OpTuple:
		if want.Tag() != kind.TupleT {
			return rherr.New(rherr.Type, span, "Tuple", "result register is not a Tuple Kind: %s", want)
		}
		els := want.Elements()
		if len(op.Args) != len(els) {
			return rherr.New(rherr.Type, span, "Tuple", "constructs %d fields, Kind declares %d", len(op.Args), len(els))
		}
		for i, s := range op.Args {
			k, _ := slotKind(obj, s)
			if !kind.Equal(k, els[i]) {
				return mismatch(span, "Tuple field", els[i], k)
			}
		}
	case mir.OpRepeat:
		if want.Tag() != kind.ArrayT {
			return rherr.New(rherr.Type, span, "Repeat", "result register is not an Array Kind: %s", want)
		}
		if want.Size() != op.Len {
			return rherr.New(rherr.Type, span, "Repeat", "repeats %d times, Kind declares size %d", op.Len, want.Size())
		}
		a, _ := slotKind(obj, op.Arg)
		if !kind.Equal(a, want.Base()) {
			return mismatch(span, "Repeat element", want.Base(), a)
		}
	case mir.OpStruct:
		if want.Tag() != kind.StructT {
			return rherr.New(rherr.Type, span, "Struct", "result register is not a Struct Kind: %s", want)
		}
		for _, fa := range op.StructFields {
			fk, ok := fieldKind(want, fa.Member)
			if !ok {
				return rherr.New(rherr.Type, span, "Struct", "no field %q in %s", fa.Member, want.Name())
			}
			got, _ := slotKind(obj, fa.Value)
			if !kind.Equal(got, fk) {
				return mismatch(span, "Struct field "+fa.Member, fk, got)
			}
		}
	case mir.OpEnum:
		if want.Tag() != kind.EnumT {
			return rherr.New(rherr.Type, span, "Enum", "result register is not an Enum Kind: %s", want)
		}
		v, ok := want.Variant(op.Variant)
		if !ok {
			return rherr.New(rherr.Type, span, "Enum", "no variant %q in %s", op.Variant, want.Name())
		}
		for _, fa := range op.StructFields {
			fk, ok := fieldKind(v.Payload, fa.Member)
			if !ok {
				return rherr.New(rherr.Type, span, "Enum", "no field %q in variant %s payload %s", fa.Member, op.Variant, v.Payload)
			}
			got, _ := slotKind(obj, fa.Value)
			if !kind.Equal(got, fk) {
				return mismatch(span, "Enum payload field "+fa.Member, fk, got)
			}
		}
	case mir.OpIndex:
		a, _ := slotKind(obj, op.Arg)
		resolved, err := path.Resolve(a, op.Path)
		if err != nil {
			return err
		}
		if !kind.Equal(resolved, want) {
			return mismatch(span, "Index", want, resolved)
		}
	case mir.OpSplice:
		a, _ := slotKind(obj, op.Arg)
		if !kind.Equal(a, want) {
			return mismatch(span, "Splice result", want, a)
		}
		sub, _ := slotKind(obj, op.Arg2)
		resolved, err := path.Resolve(a, op.Path)
		if err != nil {
			return err
		}
		if !kind.Equal(resolved, sub) {
			return mismatch(span, "Splice substitution", resolved, sub)
		}
	case mir.OpCase:
		for _, arm := range op.CaseTable {
			k, _ := slotKind(obj, arm.Value)
			if !kind.Equal(k, want) {
				return mismatch(span, "Case arm", want, k)
			}
		}
	case mir.OpSelect:
		a, _ := slotKind(obj, op.Arg2)
		b, _ := slotKind(obj, op.Arg3)
		if !kind.Equal(a, b) {
			return mismatch(span, "Select branches", a, b)
		}
		if !kind.Equal(a, want) {
			return mismatch(span, "Select", want, a)
		}
	case mir.OpCast:
		if !op.HasTargetKind || !kind.Equal(op.TargetKind, want) {
			return rherr.New(rherr.ICE, span, "Cast", "Cast op's TargetKind does not match its Lhs register's Kind")
		}
	case mir.OpWrap:
		if !op.HasTargetKind || !kind.Equal(op.TargetKind, want) {
			return rherr.New(rherr.ICE, span, "Wrap", "Wrap op's TargetKind does not match its Lhs register's Kind")
		}
	case mir.OpExec:
		callee, ok := obj.Externals[op.Callee]
		if !ok {
			return rherr.New(rherr.ICE, span, "Exec", "unknown callee %d", op.Callee)
		}
		retKind, err := returnKind(callee)
		if err != nil {
			return err
		}
		if !kind.Equal(retKind, want) {
			return mismatch(span, "Exec result", want, retKind)
		}
	}
	return nil
}

func fieldKind(k kind.Kind, member string) (kind.Kind, bool) {
	for _, f := range k.Fields() {
		if f.Name == member {
			return f.Kind, true
		}
	}
	return kind.Kind{}, false
}

func returnKind(obj *mir.Object) (kind.Kind, error) {
	switch obj.ReturnSlot.Kind() {
	case symtab.RegisterSlot:
		r, _ := obj.ReturnSlot.Register()
		return obj.Symtab.RegisterKind(r), nil
	case symtab.LiteralSlot:
		l, _ := obj.ReturnSlot.Literal()
		return obj.Symtab.Literal(l).Kind, nil
	default:
		return kind.Kind{}, rherr.ICEf(rherr.Span{}, "typecheck.returnKind", "%q has no return slot", obj.Name)
	}
}

func mismatch(span rherr.Span, what string, want, got kind.Kind) error {
	return rherr.New(rherr.Type, span, what, "expected Kind %s, got %s", want, got)
}
