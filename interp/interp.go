// Package interp implements the compile-time interpreter (C7): it executes
// a mir.Object's ops directly against bits.Value, used both to run a
// kernel ahead-of-time as a test oracle and, recursively through Exec, by
// package mirpass/constprop to fold literal-only subgraphs.
package interp

import (
	"github.com/rhdl-project/rhdlc/bits"
	"github.com/rhdl-project/rhdlc/kind"
	"github.com/rhdl-project/rhdlc/mir"
	"github.com/rhdl-project/rhdlc/path"
	"github.com/rhdl-project/rhdlc/rherr"
	"github.com/rhdl-project/rhdlc/symtab"
)

// frame is one Object's register file during execution.
type frame struct {
	obj     *mir.Object
	regs    []bits.Value
	defined []bool
}

func newFrame(obj *mir.Object) *frame {
	return &frame{
		obj:     obj,
		regs:    make([]bits.Value, obj.Symtab.NumRegisters()),
		defined: make([]bool, obj.Symtab.NumRegisters()),
	}
}

func (f *frame) read(span rherr.Span, s symtab.Slot) (bits.Value, error) {
	switch s.Kind() {
	case symtab.EmptySlot:
		return bits.Value{}, rherr.ICEf(span, "interp.read", "attempted to read the Empty slot")
	case symtab.LiteralSlot:
		l, _ := s.Literal()
		return f.obj.Symtab.Literal(l), nil
	case symtab.RegisterSlot:
		r, _ := s.Register()
		if !f.defined[r] {
			return bits.Value{}, rherr.ICEf(span, "interp.read", "register %d read before assignment", r)
		}
		return f.regs[r], nil
	default:
		return bits.Value{}, rherr.ICEf(span, "interp.read", "unknown slot kind")
	}
}

func (f *frame) write(span rherr.Span, s symtab.Slot, v bits.Value) error {
	r, ok := s.Register()
	if !ok {
		return rherr.ICEf(span, "interp.write", "Lhs slot is not a Register")
	}
	f.regs[r] = v
	f.defined[r] = true
	return nil
}

// resolvePath concretizes every DynamicIndex element of p by reading the
// current register value and converting it to an integer Index. Fails if
// any dynamic index register holds an X bit — the interpreter, used as a
// test oracle, requires fully concrete runtime inputs (an intentional
// simplification over real hardware, where an X index propagates to an
// X result; see DESIGN.md).
func (f *frame) resolvePath(span rherr.Span, p path.Path) (path.Path, error) {
	if !p.HasDynamic() {
		return p, nil
	}
	out := make(path.Path, len(p))
	for i, e := range p {
		if e.Kind != path.DynamicIndex {
			out[i] = e
			continue
		}
		reg := symtab.RegisterFromPathSlot(e.Slot)
		if !f.defined[reg] {
			return nil, rherr.ICEf(span, "interp.resolvePath", "dynamic index register %d read before assignment", reg)
		}
		idx, ok := bits.AsInt(f.regs[reg])
		if !ok {
			return nil, rherr.New(rherr.Type, span, "interp.resolvePath", "dynamic index register %d holds an X value; cannot resolve at compile time", reg)
		}
		out[i] = path.IndexOf(idx)
	}
	return out, nil
}

// Run executes obj against args (one Value per Arguments entry, in
// order) and returns the Value read from ReturnSlot.
func Run(obj *mir.Object, args []bits.Value) (bits.Value, error) {
	if len(args) != len(obj.Arguments) {
		return bits.Value{}, rherr.New(rherr.ICE, rherr.Span{}, "interp.Run", "%q takes %d arguments, got %d", obj.Name, len(obj.Arguments), len(args))
	}
	f := newFrame(obj)
	for i, r := range obj.Arguments {
		want := obj.Symtab.RegisterKind(r)
		if !kind.Equal(want, args[i].Kind) {
			return bits.Value{}, rherr.New(rherr.Type, rherr.Span{}, "interp.Run", "%q argument %d has kind %s, got %s", obj.Name, i, want, args[i].Kind)
		}
		f.regs[r] = args[i]
		f.defined[r] = true
	}
	for _, lop := range obj.Ops {
		if err := f.eval(lop.Span, lop.Op); err != nil {
			return bits.Value{}, err
		}
	}
	return f.read(rherr.Span{}, obj.ReturnSlot)
}

func (f *frame) eval(span rherr.Span, op mir.Op) error {
	switch op.Opcode {
	case mir.OpNoop, mir.OpComment:
		return nil
	case mir.OpAssign:
		v, err := f.read(span, op.Arg)
		if err != nil {
			return err
		}
		return f.write(span, op.Lhs, v)
	case mir.OpBinary:
		return f.evalBinary(span, op)
	case mir.OpUnary:
		return f.evalUnary(span, op)
	case mir.OpArray:
		return f.evalVariadic(span, op, func(vs []bits.Value) (bits.Value, error) {
			out := bits.Concat(vs...)
			out.Kind = f.lhsKind(op)
			return out, nil
		})
	case mir.OpTuple:
		return f.evalVariadic(span, op, func(vs []bits.Value) (bits.Value, error) {
			return bits.Concat(vs...), nil
		})
	case mir.OpRepeat:
		v, err := f.read(span, op.Arg)
		if err != nil {
			return err
		}
		return f.write(span, op.Lhs, bits.Repeat(v, op.Len))
	case mir.OpStruct:
		return f.evalStruct(span, op)
	case mir.OpEnum:
		return f.evalEnum(span, op)
	case mir.OpIndex:
		return f.evalIndex(span, op)
	case mir.OpSplice:
		return f.evalSplice(span, op)
	case mir.OpCase:
		return f.evalCase(span, op)
	case mir.OpSelect:
		return f.evalSelect(span, op)
	case mir.OpCast:
		return f.evalCast(span, op)
	case mir.OpWrap:
		return f.evalWrap(span, op)
	case mir.OpExec:
		return f.evalExec(span, op)
	case mir.OpRetime:
		v, err := f.read(span, op.Arg)
		if err != nil {
			return err
		}
		if op.HasColor {
			inner := v.Kind
			if inner.Tag() == kind.SignalT {
				inner, _ = inner.Unwrap()
			}
			v.Kind = kind.NewSignal(inner, op.Color)
		}
		return f.write(span, op.Lhs, v)
	default:
		return rherr.ICEf(span, "interp.eval", "unhandled opcode %s", op.Opcode)
	}
}

func (f *frame) lhsKind(op mir.Op) kind.Kind {
	r, _ := op.Lhs.Register()
	return f.obj.Symtab.RegisterKind(r)
}

func (f *frame) evalVariadic(span rherr.Span, op mir.Op, combine func([]bits.Value) (bits.Value, error)) error {
	vs := make([]bits.Value, len(op.Args))
	for i, s := range op.Args {
		v, err := f.read(span, s)
		if err != nil {
			return err
		}
		vs[i] = v
	}
	out, err := combine(vs)
	if err != nil {
		return err
	}
	return f.write(span, op.Lhs, out)
}

func (f *frame) evalBinary(span rherr.Span, op mir.Op) error {
	a, err := f.read(span, op.Arg)
	if err != nil {
		return err
	}
	b, err := f.read(span, op.Arg2)
	if err != nil {
		return err
	}
	var out bits.Value
	switch op.BinOp {
	case mir.Add:
		out, err = bits.Add(a, b)
	case mir.Sub:
		out, err = bits.Sub(a, b)
	case mir.Mul:
		out, err = bits.Mul(a, b)
	case mir.BitAnd:
		out, err = bits.BitAnd(a, b)
	case mir.BitOr:
		out, err = bits.BitOr(a, b)
	case mir.BitXor:
		out, err = bits.BitXor(a, b)
	case mir.Shl:
		out, err = bits.Shl(a, b)
	case mir.Shr:
		out, err = bits.Shr(a, b)
	case mir.Eq:
		out, err = bits.Eq(a, b)
	case mir.Ne:
		out, err = bits.Ne(a, b)
	case mir.Lt:
		out, err = bits.Lt(a, b)
	case mir.Le:
		out, err = bits.Le(a, b)
	case mir.Gt:
		out, err = bits.Gt(a, b)
	case mir.Ge:
		out, err = bits.Ge(a, b)
	default:
		return rherr.ICEf(span, "interp.evalBinary", "unhandled BinaryOp %s", op.BinOp)
	}
	if err != nil {
		return rherr.Wrap(rherr.Type, span, "Binary("+op.BinOp.String()+")", err, "%v", err)
	}
	return f.write(span, op.Lhs, out)
}

func (f *frame) evalUnary(span rherr.Span, op mir.Op) error {
	a, err := f.read(span, op.Arg)
	if err != nil {
		return err
	}
	var out bits.Value
	switch op.UnOp {
	case mir.Neg:
		out, err = bits.Neg(a)
	case mir.Not:
		out = bits.Not(a)
	case mir.All:
		out = bits.All(a)
	case mir.Any:
		out = bits.Any(a)
	case mir.Xor:
		out = bits.Xor(a)
	case mir.Val:
		out = a
	case mir.Signed:
		out = bits.SignedCast(a, a.Kind.Width())
	case mir.Unsigned:
		out = bits.UnsignedCast(a, a.Kind.Width())
	default:
		return rherr.ICEf(span, "interp.evalUnary", "unhandled UnaryOp %s", op.UnOp)
	}
	if err != nil {
		return err
	}
	return f.write(span, op.Lhs, out)
}

func (f *frame) evalStruct(span rherr.Span, op mir.Op) error {
	var base bits.Value
	if op.HasRest {
		v, err := f.read(span, op.Rest)
		if err != nil {
			return err
		}
		base = v
	} else {
		base = f.obj.Symtab.Literal(op.Template)
	}
	for _, fa := range op.StructFields {
		v, err := f.read(span, fa.Value)
		if err != nil {
			return err
		}
		var err2 error
		base, err2 = base.Splice(path.Path{path.FieldOf(fa.Member)}, v)
		if err2 != nil {
			return err2
		}
	}
	return f.write(span, op.Lhs, base)
}

func (f *frame) evalEnum(span rherr.Span, op mir.Op) error {
	base := f.obj.Symtab.Literal(op.Template)
	k := f.lhsKind(op)
	variant, ok := k.Variant(op.Variant)
	if !ok {
		return rherr.ICEf(span, "interp.evalEnum", "no variant %q in %s", op.Variant, k.Name())
	}
	for _, fa := range op.StructFields {
		v, err := f.read(span, fa.Value)
		if err != nil {
			return err
		}
		// Struct/tuple-payload variants splice into the field's own
		// sub-range; a single-value payload has no such field, so fall
		// back to the whole payload range (mirrors lower.lowerEnum).
		p := path.Path{path.EnumPayloadOf(op.Variant)}
		if _, _, ferr := path.BitRange(variant.Payload, path.Path{path.FieldOf(fa.Member)}); ferr == nil {
			p = path.Path{path.EnumPayloadOf(op.Variant), path.FieldOf(fa.Member)}
		}
		base, err = base.Splice(p, v)
		if err != nil {
			return err
		}
	}
	return f.write(span, op.Lhs, base)
}

func (f *frame) evalIndex(span rherr.Span, op mir.Op) error {
	a, err := f.read(span, op.Arg)
	if err != nil {
		return err
	}
	p, err := f.resolvePath(span, op.Path)
	if err != nil {
		return err
	}
	v, err := a.Read(p)
	if err != nil {
		return err
	}
	return f.write(span, op.Lhs, v)
}

func (f *frame) evalSplice(span rherr.Span, op mir.Op) error {
	orig, err := f.read(span, op.Arg)
	if err != nil {
		return err
	}
	subst, err := f.read(span, op.Arg2)
	if err != nil {
		return err
	}
	p, err := f.resolvePath(span, op.Path)
	if err != nil {
		return err
	}
	v, err := orig.Splice(p, subst)
	if err != nil {
		return err
	}
	return f.write(span, op.Lhs, v)
}

func (f *frame) evalCase(span rherr.Span, op mir.Op) error {
	disc, err := f.read(span, op.Arg)
	if err != nil {
		return err
	}
	for _, arm := range op.CaseTable {
		matched := arm.Pattern.Kind == mir.CaseWild
		if !matched {
			lit := f.obj.Symtab.Literal(arm.Pattern.Literal)
			eq, err := bits.Eq(disc, lit)
			if err != nil {
				return err
			}
			matched = eq.Bits[0] == bits.One
		}
		if matched {
			v, err := f.read(span, arm.Value)
			if err != nil {
				return err
			}
			return f.write(span, op.Lhs, v)
		}
	}
	return f.write(span, op.Lhs, bits.XOf(f.lhsKind(op)))
}

func (f *frame) evalSelect(span rherr.Span, op mir.Op) error {
	cond, err := f.read(span, op.Arg)
	if err != nil {
		return err
	}
	b, ok := bits.AsBool(cond)
	if !ok {
		return f.write(span, op.Lhs, bits.XOf(f.lhsKind(op)))
	}
	chosen := op.Arg3
	if b {
		chosen = op.Arg2
	}
	v, err := f.read(span, chosen)
	if err != nil {
		return err
	}
	return f.write(span, op.Lhs, v)
}

func (f *frame) evalCast(span rherr.Span, op mir.Op) error {
	a, err := f.read(span, op.Arg)
	if err != nil {
		return err
	}
	var out bits.Value
	switch op.Cast {
	case mir.AsBits:
		out = bits.UnsignedCast(a, op.TargetKind.Width())
	case mir.AsSigned:
		out = bits.SignedCast(a, op.TargetKind.Width())
	case mir.Resize:
		out = bits.Resize(a, op.Len)
	default:
		return rherr.ICEf(span, "interp.evalCast", "unhandled CastKind %s", op.Cast)
	}
	return f.write(span, op.Lhs, out)
}

func (f *frame) evalWrap(span rherr.Span, op mir.Op) error {
	a, err := f.read(span, op.Arg)
	if err != nil {
		return err
	}
	var out bits.Value
	switch op.Wrap {
	case mir.WrapOk:
		out, err = bits.WrapOk(op.TargetKind, a)
	case mir.WrapErr:
		out, err = bits.WrapErr(op.TargetKind, a)
	case mir.WrapSome:
		out, err = bits.WrapSome(op.TargetKind, a)
	case mir.WrapNone:
		out, err = bits.WrapNone(op.TargetKind)
	default:
		return rherr.ICEf(span, "interp.evalWrap", "unhandled WrapOp %s", op.Wrap)
	}
	if err != nil {
		return err
	}
	return f.write(span, op.Lhs, out)
}

func (f *frame) evalExec(span rherr.Span, op mir.Op) error {
	callee, ok := f.obj.Externals[op.Callee]
	if !ok {
		return rherr.ICEf(span, "interp.evalExec", "unknown callee %d", op.Callee)
	}
	args := make([]bits.Value, len(op.Args))
	for i, s := range op.Args {
		v, err := f.read(span, s)
		if err != nil {
			return err
		}
		args[i] = v
	}
	result, err := Run(callee, args)
	if err != nil {
		return err
	}
	return f.write(span, op.Lhs, result)
}
