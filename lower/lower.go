// Package lower implements the MIR->RTL lowering pass (C9, §4.7):
// a monomorphizing pass that assigns every MIR Register a flat bit layout
// and rewrites every aggregate-shaped op into Concat/Index/Splice over
// explicit bit ranges.
package lower

import (
	"github.com/golang/glog"
	"github.com/rhdl-project/rhdlc/bits"
	"github.com/rhdl-project/rhdlc/kind"
	"github.com/rhdl-project/rhdlc/mir"
	"github.com/rhdl-project/rhdlc/path"
	"github.com/rhdl-project/rhdlc/rherr"
	"github.com/rhdl-project/rhdlc/rtl"
	"github.com/rhdl-project/rhdlc/symtab"
)

// Lower translates a passed (coherence-checked, type-checked,
// constant-propagated, dead-code-eliminated) mir.Object into an
// rtl.Module. Externals are lowered independently and recursively,
// memoized per Lower call by callee *mir.Object so a kernel called from
// multiple sites is only lowered once.
func Lower(obj *mir.Object) (*rtl.Module, error) {
	glog.V(1).Infof("lower: %s (%d ops)", obj.Name, len(obj.Ops))
	m, err := lowerMemo(obj, map[*mir.Object]*rtl.Module{})
	if err != nil {
		return nil, err
	}
	glog.V(2).Infof("lower: %s -> %d rtl ops, %d submodules", obj.Name, len(m.Ops), len(m.Submodules))
	return m, nil
}

func lowerMemo(obj *mir.Object, memo map[*mir.Object]*rtl.Module) (*rtl.Module, error) {
	if m, ok := memo[obj]; ok {
		return m, nil
	}
	l := &lowerer{
		src: obj,
		m:   rtl.New(obj.Name),
		reg: map[symtab.Register]rtl.Register{},
	}
	memo[obj] = l.m

	for _, a := range obj.Arguments {
		r := l.declare(a)
		l.m.Arguments = append(l.m.Arguments, r)
	}
	for _, lop := range obj.Ops {
		if err := l.lowerOp(lop); err != nil {
			return nil, err
		}
	}
	ret, err := l.lowerSlot(rherr.Span{}, obj.ReturnSlot)
	if err != nil {
		return nil, err
	}
	l.m.Return = ret

	for id, callee := range obj.Externals {
		sub, err := lowerMemo(callee, memo)
		if err != nil {
			return nil, err
		}
		l.m.Submodules = append(l.m.Submodules, rtl.Submodule{ID: uint32(id), Module: sub})
	}
	return l.m, nil
}

type lowerer struct {
	src *mir.Object
	m   *rtl.Module
	reg map[symtab.Register]rtl.Register
}

// declare assigns r a flat bit layout (just a width, at this stage — the
// byte/bit offset within a containing aggregate was resolved already by
// path.BitRange; a standalone Register's own layout is simply [0, width)).
func (l *lowerer) declare(r symtab.Register) rtl.Register {
	if rr, ok := l.reg[r]; ok {
		return rr
	}
	k := l.src.Symtab.RegisterKind(r)
	rr := l.m.Table.NewRegister(k.Width(), l.src.Symtab.RegisterMeta(r).Name)
	l.reg[r] = rr
	return rr
}

func (l *lowerer) lowerSlot(span rherr.Span, s symtab.Slot) (rtl.Ref, error) {
	switch s.Kind() {
	case symtab.EmptySlot:
		return rtl.Empty, nil
	case symtab.LiteralSlot:
		lit, _ := s.Literal()
		v := l.src.Symtab.Literal(lit)
		return rtl.OfLiteral(l.m.Table.NewLiteral(v.Bits)), nil
	case symtab.RegisterSlot:
		r, _ := s.Register()
		return rtl.OfRegister(l.declare(r)), nil
	default:
		return rtl.Ref{}, rherr.ICEf(span, "lower.lowerSlot", "unknown slot kind")
	}
}

func (l *lowerer) emit(label string, op rtl.Op) {
	l.m.Ops = append(l.m.Ops, rtl.LocatedOp{Label: label, Op: op})
}

// lowerOp dispatches one MIR op to however many RTL ops it expands into,
// per the 7 numbered rules of §4.7.
func (l *lowerer) lowerOp(lop mir.LocatedOp) error {
	span, op := lop.Span, lop.Op
	switch op.Opcode {
	case mir.OpNoop:
		return nil
	case mir.OpComment:
		l.emit("Comment", rtl.Op{Opcode: rtl.OpComment, Comment: op.Comment})
		return nil
	case mir.OpAssign, mir.OpRetime:
		lhs := l.declare(regOf(op.Lhs))
		arg, err := l.lowerSlot(span, op.Arg)
		if err != nil {
			return err
		}
		l.emit(op.Opcode.String(), rtl.Op{Opcode: rtl.OpAssign, Lhs: lhs, Arg: arg})
		return nil
	case mir.OpBinary:
		return l.lowerBinary(span, op)
	case mir.OpUnary:
		return l.lowerUnary(span, op)
	case mir.OpArray, mir.OpTuple:
		// Rule 1: aggregate constructors become Concat over the parts, in
		// the Kind's field order (which for Array/Tuple is Args already).
		return l.lowerConcatOp(span, op, op.Args)
	case mir.OpRepeat:
		v, err := l.lowerSlot(span, op.Arg)
		if err != nil {
			return err
		}
		parts := make([]rtl.Ref, op.Len)
		for i := range parts {
			parts[i] = v
		}
		lhs := l.declare(regOf(op.Lhs))
		l.emit("Repeat", rtl.Op{Opcode: rtl.OpConcat, Lhs: lhs, Args: parts})
		return nil
	case mir.OpStruct:
		return l.lowerStruct(span, op)
	case mir.OpEnum:
		return l.lowerEnum(span, op)
	case mir.OpIndex:
		return l.lowerIndex(span, op)
	case mir.OpSplice:
		return l.lowerSplice(span, op)
	case mir.OpCase:
		return l.lowerCase(span, op)
	case mir.OpSelect:
		return l.lowerSelect(span, op)
	case mir.OpCast:
		return l.lowerCast(span, op)
	case mir.OpWrap:
		return l.lowerWrap(span, op)
	case mir.OpExec:
		return l.lowerExec(span, op)
	default:
		return rherr.ICEf(span, "lower.lowerOp", "unhandled MIR opcode %s", op.Opcode)
	}
}

func regOf(s symtab.Slot) symtab.Register {
	r, _ := s.Register()
	return r
}

func (l *lowerer) lowerConcatOp(span rherr.Span, op mir.Op, parts []symtab.Slot) error {
	refs := make([]rtl.Ref, len(parts))
	for i, s := range parts {
		r, err := l.lowerSlot(span, s)
		if err != nil {
			return err
		}
		refs[i] = r
	}
	lhs := l.declare(regOf(op.Lhs))
	l.emit(op.Opcode.String(), rtl.Op{Opcode: rtl.OpConcat, Lhs: lhs, Args: refs})
	return nil
}

func (l *lowerer) lowerBinary(span rherr.Span, op mir.Op) error {
	a, err := l.lowerSlot(span, op.Arg)
	if err != nil {
		return err
	}
	b, err := l.lowerSlot(span, op.Arg2)
	if err != nil {
		return err
	}
	lhs := l.declare(regOf(op.Lhs))
	signed := isSignedSlot(l.src, op.Arg)
	l.emit("Binary", rtl.Op{Opcode: rtl.OpBinary, Lhs: lhs, BinOp: rtl.BinaryOp(op.BinOp), Signed: signed, Arg: a, Arg2: b})
	return nil
}

func (l *lowerer) lowerUnary(span rherr.Span, op mir.Op) error {
	a, err := l.lowerSlot(span, op.Arg)
	if err != nil {
		return err
	}
	lhs := l.declare(regOf(op.Lhs))
	signed := isSignedSlot(l.src, op.Arg)
	switch op.UnOp {
	case mir.Val, mir.Signed, mir.Unsigned:
		l.emit("Unary", rtl.Op{Opcode: rtl.OpAssign, Lhs: lhs, Arg: a})
	default:
		l.emit("Unary", rtl.Op{Opcode: rtl.OpUnary, Lhs: lhs, UnOp: rtl.UnaryOp(op.UnOp), Signed: signed, Arg: a})
	}
	return nil
}

func isSignedSlot(obj *mir.Object, s symtab.Slot) bool {
	switch s.Kind() {
	case symtab.RegisterSlot:
		r, _ := s.Register()
		k := obj.Symtab.RegisterKind(r)
		inner, _ := k.Unwrap()
		return inner.Tag() == kind.SignedT
	case symtab.LiteralSlot:
		l, _ := s.Literal()
		k := obj.Symtab.Literal(l).Kind
		inner, _ := k.Unwrap()
		return inner.Tag() == kind.SignedT
	default:
		return false
	}
}

// lowerStruct expands a Struct construction per rule 1: start from rest
// or template, splice each named field's static bit range.
func (l *lowerer) lowerStruct(span rherr.Span, op mir.Op) error {
	k := l.src.Symtab.RegisterKind(regOf(op.Lhs))
	base, err := l.baseRef(span, op)
	if err != nil {
		return err
	}
	cur := base
	lhs := l.declare(regOf(op.Lhs))
	for _, fa := range op.StructFields {
		start, end, err := path.BitRange(k, path.Path{path.FieldOf(fa.Member)})
		if err != nil {
			return err
		}
		val, err := l.lowerSlot(span, fa.Value)
		if err != nil {
			return err
		}
		tmp := l.m.Table.NewRegister(k.Width(), "")
		l.emit("Struct.splice."+fa.Member, rtl.Op{Opcode: rtl.OpSplice, Lhs: tmp, Arg: cur, Arg2: val, Start: start, End: end})
		cur = rtl.OfRegister(tmp)
	}
	l.emit("Struct", rtl.Op{Opcode: rtl.OpAssign, Lhs: lhs, Arg: cur})
	return nil
}

func (l *lowerer) baseRef(span rherr.Span, op mir.Op) (rtl.Ref, error) {
	if op.HasRest {
		return l.lowerSlot(span, op.Rest)
	}
	v := l.src.Symtab.Literal(op.Template)
	return rtl.OfLiteral(l.m.Table.NewLiteral(v.Bits)), nil
}

// lowerEnum expands rule 4: starting from the variant's template, which
// already holds the discriminant, splice each payload field into the
// Kind's discriminant-aligned layout.
func (l *lowerer) lowerEnum(span rherr.Span, op mir.Op) error {
	k := l.src.Symtab.RegisterKind(regOf(op.Lhs))
	v, ok := k.Variant(op.Variant)
	if !ok {
		return rherr.New(rherr.ICE, span, "lower.Enum", "no variant %q in %s", op.Variant, k.Name())
	}
	tmplVal := l.src.Symtab.Literal(op.Template)
	cur := rtl.OfLiteral(l.m.Table.NewLiteral(tmplVal.Bits))
	lhs := l.declare(regOf(op.Lhs))
	for _, fa := range op.StructFields {
		start, end, err := path.BitRange(k, path.Path{path.EnumPayloadOf(op.Variant)})
		if err != nil {
			return err
		}
		if fStart, fEnd, ferr := path.BitRange(v.Payload, path.Path{path.FieldOf(fa.Member)}); ferr == nil {
			start, end = start+fStart, start+fEnd
		}
		val, err := l.lowerSlot(span, fa.Value)
		if err != nil {
			return err
		}
		tmp := l.m.Table.NewRegister(k.Width(), "")
		l.emit("Enum.splice."+fa.Member, rtl.Op{Opcode: rtl.OpSplice, Lhs: tmp, Arg: cur, Arg2: val, Start: start, End: end})
		cur = rtl.OfRegister(tmp)
	}
	l.emit("Enum", rtl.Op{Opcode: rtl.OpAssign, Lhs: lhs, Arg: cur})
	return nil
}

// lowerIndex implements rules 2 and 3: a fully-static path becomes a
// single bit-range Index; a path with one trailing DynamicIndex becomes
// constant-collapsed outer offsets plus one DynamicIndex at the
// innermost dynamic element.
func (l *lowerer) lowerIndex(span rherr.Span, op mir.Op) error {
	argKind := sourceKind(l.src, op.Arg)
	arg, err := l.lowerSlot(span, op.Arg)
	if err != nil {
		return err
	}
	lhs := l.declare(regOf(op.Lhs))
	if !op.Path.HasDynamic() {
		start, end, err := path.BitRange(argKind, op.Path)
		if err != nil {
			return err
		}
		l.emit("Index", rtl.Op{Opcode: rtl.OpIndex, Lhs: lhs, Arg: arg, Start: start, End: end})
		return nil
	}
	staticOffset, elemWidth, numElems, idxReg, err := l.peelDynamic(span, argKind, op.Path)
	if err != nil {
		return err
	}
	l.emit("DynamicIndex", rtl.Op{
		Opcode: rtl.OpDynamicIndex, Lhs: lhs, Arg: arg,
		BaseOffset: staticOffset, ElemWidth: elemWidth, NumElems: numElems, IndexReg: idxReg,
	})
	return nil
}

func (l *lowerer) lowerSplice(span rherr.Span, op mir.Op) error {
	argKind := sourceKind(l.src, op.Arg)
	orig, err := l.lowerSlot(span, op.Arg)
	if err != nil {
		return err
	}
	subst, err := l.lowerSlot(span, op.Arg2)
	if err != nil {
		return err
	}
	lhs := l.declare(regOf(op.Lhs))
	if !op.Path.HasDynamic() {
		start, end, err := path.BitRange(argKind, op.Path)
		if err != nil {
			return err
		}
		l.emit("Splice", rtl.Op{Opcode: rtl.OpSplice, Lhs: lhs, Arg: orig, Arg2: subst, Start: start, End: end})
		return nil
	}
	staticOffset, elemWidth, numElems, idxReg, err := l.peelDynamic(span, argKind, op.Path)
	if err != nil {
		return err
	}
	l.emit("DynamicSplice", rtl.Op{
		Opcode: rtl.OpDynamicSplice, Lhs: lhs, Arg: orig, Arg2: subst,
		BaseOffset: staticOffset, ElemWidth: elemWidth, NumElems: numElems, IndexReg: idxReg,
	})
	return nil
}

// peelDynamic resolves every static prefix of p with path.BitRange-style
// accumulation, then requires the trailing element (and only it) to be a
// DynamicIndex into an Array, returning its base offset, element width,
// element count, and the Register carrying the runtime index.
func (l *lowerer) peelDynamic(span rherr.Span, k kind.Kind, p path.Path) (offset, elemWidth, numElems int, idxReg rtl.Register, err error) {
	cur := k
	for i, e := range p {
		if e.Kind == path.DynamicIndex {
			if i != len(p)-1 {
				return 0, 0, 0, 0, rherr.New(rherr.ICE, span, "lower.peelDynamic", "only a single trailing DynamicIndex is supported per path")
			}
			if cur.Tag() != kind.ArrayT {
				return 0, 0, 0, 0, rherr.New(rherr.Type, span, "lower.peelDynamic", "DynamicIndex applied to non-array kind %s", cur)
			}
			srcReg := symtab.RegisterFromPathSlot(e.Slot)
			return offset, cur.Base().Width(), cur.Size(), l.declare(srcReg), nil
		}
		start, _, next, serr := bitStepFor(cur, e)
		if serr != nil {
			return 0, 0, 0, 0, serr
		}
		offset += start
		cur = next
	}
	return 0, 0, 0, 0, rherr.ICEf(span, "lower.peelDynamic", "path has no DynamicIndex element")
}

// bitStepFor wraps path.BitRange for a single element by applying it to a
// one-element sub-path, avoiding duplicating stepBits (unexported).
func bitStepFor(cur kind.Kind, e path.Element) (offset, width int, next kind.Kind, err error) {
	start, end, err := path.BitRange(cur, path.Path{e})
	if err != nil {
		return 0, 0, kind.Kind{}, err
	}
	next, err = path.Resolve(cur, path.Path{e})
	if err != nil {
		return 0, 0, kind.Kind{}, err
	}
	return start, end - start, next, nil
}

func sourceKind(obj *mir.Object, s symtab.Slot) kind.Kind {
	switch s.Kind() {
	case symtab.RegisterSlot:
		r, _ := s.Register()
		return obj.Symtab.RegisterKind(r)
	case symtab.LiteralSlot:
		l, _ := s.Literal()
		return obj.Symtab.Literal(l).Kind
	default:
		return kind.Kind{}
	}
}

// lowerCase implements rule 5: the discriminant's bit range (here, the
// discriminant has already been reduced to a scalar Register upstream by
// an Index op, so Arg is used directly) drives an RTL Case over literal
// patterns.
func (l *lowerer) lowerCase(span rherr.Span, op mir.Op) error {
	disc, err := l.lowerSlot(span, op.Arg)
	if err != nil {
		return err
	}
	arms := make([]rtl.CaseArm, len(op.CaseTable))
	for i, arm := range op.CaseTable {
		var pat rtl.Ref
		if arm.Pattern.Kind == mir.CaseWild {
			pat = rtl.Empty
		} else {
			v := l.src.Symtab.Literal(arm.Pattern.Literal)
			pat = rtl.OfLiteral(l.m.Table.NewLiteral(v.Bits))
		}
		val, err := l.lowerSlot(span, arm.Value)
		if err != nil {
			return err
		}
		arms[i] = rtl.CaseArm{Pattern: pat, Value: val}
	}
	lhs := l.declare(regOf(op.Lhs))
	l.emit("Case", rtl.Op{Opcode: rtl.OpCase, Lhs: lhs, Arg: disc, CaseTable: arms})
	return nil
}

func (l *lowerer) lowerSelect(span rherr.Span, op mir.Op) error {
	cond, err := l.lowerSlot(span, op.Arg)
	if err != nil {
		return err
	}
	t, err := l.lowerSlot(span, op.Arg2)
	if err != nil {
		return err
	}
	f, err := l.lowerSlot(span, op.Arg3)
	if err != nil {
		return err
	}
	lhs := l.declare(regOf(op.Lhs))
	l.emit("Select", rtl.Op{Opcode: rtl.OpSelect, Lhs: lhs, Arg: cond, Arg2: t, Arg3: f})
	return nil
}

// lowerCast implements rule 7: preserve signedness, sign-extending a
// growing Resize of a Signed source, zero-extending otherwise.
func (l *lowerer) lowerCast(span rherr.Span, op mir.Op) error {
	a, err := l.lowerSlot(span, op.Arg)
	if err != nil {
		return err
	}
	lhs := l.declare(regOf(op.Lhs))
	signed := (op.Cast == mir.AsSigned || op.Cast == mir.Resize) && isSignedSlot(l.src, op.Arg)
	l.emit("Cast("+op.Cast.String()+")", rtl.Op{Opcode: rtl.OpCast, Lhs: lhs, Arg: a, Signed: signed})
	return nil
}

// lowerWrap treats Wrap like Enum construction: the wrapped Kind's
// template already encodes the Ok/Err/Some/None discriminant, so Wrap
// lowers to a single Splice of the payload into its aligned range.
func (l *lowerer) lowerWrap(span rherr.Span, op mir.Op) error {
	if op.Wrap == mir.WrapNone {
		zero := bits.ZeroOf(op.TargetKind)
		lhs := l.declare(regOf(op.Lhs))
		l.emit("Wrap(None)", rtl.Op{Opcode: rtl.OpAssign, Lhs: lhs, Arg: rtl.OfLiteral(l.m.Table.NewLiteral(zero.Bits))})
		return nil
	}
	variant := map[mir.WrapOp]string{mir.WrapOk: "Ok", mir.WrapErr: "Err", mir.WrapSome: "Some"}[op.Wrap]
	k := op.TargetKind
	v, ok := k.Variant(variant)
	if !ok {
		return rherr.New(rherr.ICE, span, "lower.Wrap", "no variant %q in %s", variant, k.Name())
	}
	base, err := bits.WrapVariant(k, variant, bits.ZeroOf(v.Payload))
	if err != nil {
		return err
	}
	start, end, err := path.BitRange(k, path.Path{path.EnumPayloadOf(variant)})
	if err != nil {
		return err
	}
	arg, err := l.lowerSlot(span, op.Arg)
	if err != nil {
		return err
	}
	lhs := l.declare(regOf(op.Lhs))
	l.emit("Wrap("+variant+")", rtl.Op{
		Opcode: rtl.OpSplice, Lhs: lhs,
		Arg: rtl.OfLiteral(l.m.Table.NewLiteral(base.Bits)), Arg2: arg, Start: start, End: end,
	})
	return nil
}

func (l *lowerer) lowerExec(span rherr.Span, op mir.Op) error {
	args := make([]rtl.Ref, len(op.Args))
	for i, s := range op.Args {
		r, err := l.lowerSlot(span, s)
		if err != nil {
			return err
		}
		args[i] = r
	}
	lhs := l.declare(regOf(op.Lhs))
	l.emit("Exec", rtl.Op{Opcode: rtl.OpExec, Lhs: lhs, Args: args, Callee: uint32(op.Callee)})
	return nil
}
