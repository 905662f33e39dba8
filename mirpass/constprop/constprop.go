// Package constprop implements the constant-propagation pass: any op all
// of whose operands are Literal slots is folded at compile time into an
// Assign of a freshly interned Literal. Ops are evaluated with package
// bits directly (the same functions interp uses); only Exec is folded by
// running package interp on the callee.
package constprop

import (
	"github.com/rhdl-project/rhdlc/bits"
	"github.com/rhdl-project/rhdlc/interp"
	"github.com/rhdl-project/rhdlc/kind"
	"github.com/rhdl-project/rhdlc/mir"
	"github.com/rhdl-project/rhdlc/path"
	"github.com/rhdl-project/rhdlc/rherr"
	"github.com/rhdl-project/rhdlc/symtab"
)

// Run returns a new Object with every fully-literal op folded.
func Run(obj *mir.Object) (*mir.Object, error) {
	out := clone(obj)
	for i, lop := range out.Ops {
		folded, err := foldOp(out, lop)
		if err != nil {
			return nil, err
		}
		out.Ops[i] = folded
	}
	return out, nil
}

func clone(obj *mir.Object) *mir.Object {
	out := *obj
	out.Ops = append([]mir.LocatedOp(nil), obj.Ops...)
	return &out
}

func literalOf(obj *mir.Object, s symtab.Slot) (bits.Value, bool) {
	l, ok := s.Literal()
	if !ok {
		return bits.Value{}, false
	}
	return obj.Symtab.Literal(l), true
}

func allLiteral(obj *mir.Object, slots ...symtab.Slot) ([]bits.Value, bool) {
	out := make([]bits.Value, len(slots))
	for i, s := range slots {
		v, ok := literalOf(obj, s)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func assignLiteral(obj *mir.Object, span rherr.Span, lhs symtab.Slot, value bits.Value) mir.LocatedOp {
	lit := obj.Symtab.InsertLiteral(value, symtab.Meta{Name: "constprop"})
	return mir.LocatedOp{Span: span, Op: mir.Op{Opcode: mir.OpAssign, Lhs: lhs, Arg: symtab.OfLiteral(lit)}}
}

// foldOp tries to replace lop with a folded Assign. It returns lop
// unchanged whenever an operand is not a compile-time constant, or when
// the op's path is dynamic (dynamic indices cannot be resolved without a
// register value at this stage).
func foldOp(obj *mir.Object, lop mir.LocatedOp) (mir.LocatedOp, error) {
	span, op := lop.Span, lop.Op
	switch op.Opcode {
	case mir.OpBinary:
		vs, ok := allLiteral(obj, op.Arg, op.Arg2)
		if !ok {
			return lop, nil
		}
		v, err := evalBinary(op, vs[0], vs[1])
		if err != nil {
			return lop, err
		}
		return assignLiteral(obj, span, op.Lhs, v), nil
	case mir.OpUnary:
		vs, ok := allLiteral(obj, op.Arg)
		if !ok {
			return lop, nil
		}
		v, err := evalUnary(op, vs[0])
		if err != nil {
			return lop, err
		}
		return assignLiteral(obj, span, op.Lhs, v), nil
	case mir.OpArray:
		vs, ok := allLiteral(obj, op.Args...)
		if !ok {
			return lop, nil
		}
		v := bits.Concat(vs...)
		v.Kind = registerKind(obj, op.Lhs)
		return assignLiteral(obj, span, op.Lhs, v), nil
	case mir.OpTuple:
		vs, ok := allLiteral(obj, op.Args...)
		if !ok {
			return lop, nil
		}
		return assignLiteral(obj, span, op.Lhs, bits.Concat(vs...)), nil
	case mir.OpRepeat:
		v, ok := literalOf(obj, op.Arg)
		if !ok {
			return lop, nil
		}
		return assignLiteral(obj, span, op.Lhs, bits.Repeat(v, op.Len)), nil
	case mir.OpIndex:
		if op.Path.HasDynamic() {
			return lop, nil
		}
		v, ok := literalOf(obj, op.Arg)
		if !ok {
			return lop, nil
		}
		sub, err := v.Read(op.Path)
		if err != nil {
			return lop, err
		}
		return assignLiteral(obj, span, op.Lhs, sub), nil
	case mir.OpSplice:
		if op.Path.HasDynamic() {
			return lop, nil
		}
		vs, ok := allLiteral(obj, op.Arg, op.Arg2)
		if !ok {
			return lop, nil
		}
		res, err := vs[0].Splice(op.Path, vs[1])
		if err != nil {
			return lop, err
		}
		return assignLiteral(obj, span, op.Lhs, res), nil
	case mir.OpSelect:
		vs, ok := allLiteral(obj, op.Arg, op.Arg2, op.Arg3)
		if !ok {
			return lop, nil
		}
		b, ok := bits.AsBool(vs[0])
		var chosen bits.Value
		if !ok {
			chosen = bits.XOf(registerKind(obj, op.Lhs))
		} else if b {
			chosen = vs[1]
		} else {
			chosen = vs[2]
		}
		return assignLiteral(obj, span, op.Lhs, chosen), nil
	case mir.OpStruct:
		if op.HasRest {
			rv, ok := literalOf(obj, op.Rest)
			if !ok {
				return lop, nil
			}
			return foldStruct(obj, span, op, rv)
		}
		return foldStruct(obj, span, op, obj.Symtab.Literal(op.Template))
	case mir.OpEnum:
		base := obj.Symtab.Literal(op.Template)
		return foldEnum(obj, span, op, base)
	case mir.OpCase:
		disc, ok := literalOf(obj, op.Arg)
		if !ok {
			return lop, nil
		}
		for _, arm := range op.CaseTable {
			matched := arm.Pattern.Kind == mir.CaseWild
			var armVal bits.Value
			if !matched {
				lit := obj.Symtab.Literal(arm.Pattern.Literal)
				eq, err := bits.Eq(disc, lit)
				if err != nil {
					return lop, err
				}
				matched = eq.Bits[0] == bits.One
			}
			v, ok := literalOf(obj, arm.Value)
			if !ok {
				return lop, nil
			}
			armVal = v
			if matched {
				return assignLiteral(obj, span, op.Lhs, armVal), nil
			}
		}
		return assignLiteral(obj, span, op.Lhs, bits.XOf(registerKind(obj, op.Lhs))), nil
	case mir.OpCast:
		v, ok := literalOf(obj, op.Arg)
		if !ok {
			return lop, nil
		}
		var out bits.Value
		switch op.Cast {
		case mir.AsBits:
			out = bits.UnsignedCast(v, op.TargetKind.Width())
		case mir.AsSigned:
			out = bits.SignedCast(v, op.TargetKind.Width())
		case mir.Resize:
			out = bits.Resize(v, op.Len)
		}
		return assignLiteral(obj, span, op.Lhs, out), nil
	case mir.OpWrap:
		v, ok := literalOf(obj, op.Arg)
		if !ok {
			return lop, nil
		}
		var out bits.Value
		var err error
		switch op.Wrap {
		case mir.WrapOk:
			out, err = bits.WrapOk(op.TargetKind, v)
		case mir.WrapErr:
			out, err = bits.WrapErr(op.TargetKind, v)
		case mir.WrapSome:
			out, err = bits.WrapSome(op.TargetKind, v)
		case mir.WrapNone:
			out, err = bits.WrapNone(op.TargetKind)
		}
		if err != nil {
			return lop, err
		}
		return assignLiteral(obj, span, op.Lhs, out), nil
	case mir.OpExec:
		vs, ok := allLiteral(obj, op.Args...)
		if !ok {
			return lop, nil
		}
		callee := obj.Externals[op.Callee]
		result, err := interp.Run(callee, vs)
		if err != nil {
			return lop, err
		}
		return assignLiteral(obj, span, op.Lhs, result), nil
	default:
		return lop, nil
	}
}

func registerKind(obj *mir.Object, lhs symtab.Slot) kind.Kind {
	r, _ := lhs.Register()
	return obj.Symtab.RegisterKind(r)
}

func evalBinary(op mir.Op, a, b bits.Value) (bits.Value, error) {
	switch op.BinOp {
	case mir.Add:
		return bits.Add(a, b)
	case mir.Sub:
		return bits.Sub(a, b)
	case mir.Mul:
		return bits.Mul(a, b)
	case mir.BitAnd:
		return bits.BitAnd(a, b)
	case mir.BitOr:
		return bits.BitOr(a, b)
	case mir.BitXor:
		return bits.BitXor(a, b)
	case mir.Shl:
		return bits.Shl(a, b)
	case mir.Shr:
		return bits.Shr(a, b)
	case mir.Eq:
		return bits.Eq(a, b)
	case mir.Ne:
		return bits.Ne(a, b)
	case mir.Lt:
		return bits.Lt(a, b)
	case mir.Le:
		return bits.Le(a, b)
	case mir.Gt:
		return bits.Gt(a, b)
	case mir.Ge:
		return bits.Ge(a, b)
	default:
		return bits.Value{}, rherr.ICEf(rherr.Span{}, "constprop.evalBinary", "unhandled BinaryOp %s", op.BinOp)
	}
}

func evalUnary(op mir.Op, a bits.Value) (bits.Value, error) {
	switch op.UnOp {
	case mir.Neg:
		return bits.Neg(a)
	case mir.Not:
		return bits.Not(a), nil
	case mir.All:
		return bits.All(a), nil
	case mir.Any:
		return bits.Any(a), nil
	case mir.Xor:
		return bits.Xor(a), nil
	case mir.Val:
		return a, nil
	case mir.Signed:
		return bits.SignedCast(a, a.Kind.Width()), nil
	case mir.Unsigned:
		return bits.UnsignedCast(a, a.Kind.Width()), nil
	default:
		return bits.Value{}, rherr.ICEf(rherr.Span{}, "constprop.evalUnary", "unhandled UnaryOp %s", op.UnOp)
	}
}

func foldStruct(obj *mir.Object, span rherr.Span, op mir.Op, base bits.Value) (mir.LocatedOp, error) {
	cur := base
	for _, fa := range op.StructFields {
		v, ok := literalOf(obj, fa.Value)
		if !ok {
			return mir.LocatedOp{Span: span, Op: op}, nil
		}
		var err error
		cur, err = cur.Splice(path.Path{path.FieldOf(fa.Member)}, v)
		if err != nil {
			return mir.LocatedOp{}, err
		}
	}
	return assignLiteral(obj, span, op.Lhs, cur), nil
}

func foldEnum(obj *mir.Object, span rherr.Span, op mir.Op, base bits.Value) (mir.LocatedOp, error) {
	k := registerKind(obj, op.Lhs)
	variant, ok := k.Variant(op.Variant)
	if !ok {
		return mir.LocatedOp{}, rherr.New(rherr.ICE, span, "constprop.foldEnum", "no variant %q in %s", op.Variant, k.Name())
	}
	cur := base
	for _, fa := range op.StructFields {
		v, ok := literalOf(obj, fa.Value)
		if !ok {
			return mir.LocatedOp{Span: span, Op: op}, nil
		}
		// Struct/tuple-payload variants splice into the field's own
		// sub-range; a single-value payload has no such field, so fall
		// back to the whole payload range (mirrors lower.lowerEnum).
		p := path.Path{path.EnumPayloadOf(op.Variant)}
		if _, _, ferr := path.BitRange(variant.Payload, path.Path{path.FieldOf(fa.Member)}); ferr == nil {
			p = path.Path{path.EnumPayloadOf(op.Variant), path.FieldOf(fa.Member)}
		}
		var err error
		cur, err = cur.Splice(p, v)
		if err != nil {
			return mir.LocatedOp{}, err
		}
	}
	return assignLiteral(obj, span, op.Lhs, cur), nil
}
