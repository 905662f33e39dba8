// Package expand implements the RTL->NTL bit-blasting expansion (C11,
// §4.9): every RTL Register of width W becomes W one-bit NTL
// Registers, and every RTL op is rewritten into its per-bit (or, for
// arithmetic/compare/shift, whole-vector) NTL equivalent.
package expand

import (
	"github.com/golang/glog"
	"github.com/rhdl-project/rhdlc/ntl"
	"github.com/rhdl-project/rhdlc/rherr"
	"github.com/rhdl-project/rhdlc/rtl"
)

// Expand lowers m into a Netlist. Externals (rtl.Submodule) are expanded
// independently and recursively, memoized by module identity like
// package lower's Exec memoization.
func Expand(m *rtl.Module) (*ntl.Netlist, error) {
	glog.V(1).Infof("expand: %s (%d rtl ops)", m.Name, len(m.Ops))
	nl, err := expandMemo(m, map[*rtl.Module]*ntl.Netlist{})
	if err != nil {
		return nil, err
	}
	glog.V(2).Infof("expand: %s -> %d ntl ops", m.Name, len(nl.Ops))
	return nl, nil
}

func expandMemo(m *rtl.Module, memo map[*rtl.Module]*ntl.Netlist) (*ntl.Netlist, error) {
	if nl, ok := memo[m]; ok {
		return nl, nil
	}
	e := &expander{
		src: m,
		nl:  ntl.New(m.Name),
		reg: map[rtl.Register][]ntl.Register{},
	}
	memo[m] = e.nl

	for _, a := range m.Arguments {
		e.nl.Arguments = append(e.nl.Arguments, e.declare(a))
	}
	for _, lop := range m.Ops {
		if err := e.expandOp(lop); err != nil {
			return nil, err
		}
	}
	e.nl.Return = e.refBits(m.Return)

	for _, sub := range m.Submodules {
		child, err := expandMemo(sub.Module, memo)
		if err != nil {
			return nil, err
		}
		e.nl.Submodules = append(e.nl.Submodules, ntl.Submodule{ID: sub.ID, NL: child})
	}
	return e.nl, nil
}

type expander struct {
	src *rtl.Module
	nl  *ntl.Netlist
	reg map[rtl.Register][]ntl.Register
}

// declare assigns r, a W-bit RTL register, W fresh one-bit NTL registers,
// LSB-first.
func (e *expander) declare(r rtl.Register) []ntl.Register {
	if bs, ok := e.reg[r]; ok {
		return bs
	}
	w := e.src.Table.Width(r)
	name := e.src.Table.Name(r)
	bs := make([]ntl.Register, w)
	for i := range bs {
		bs[i] = e.nl.Table.NewRegister(name)
	}
	e.reg[r] = bs
	return bs
}

// refBits resolves ref to its per-bit Refs, LSB-first: a Register's
// declared bits, or a Literal's constant bit-sequence.
func (e *expander) refBits(ref rtl.Ref) []ntl.Ref {
	switch ref.Kind() {
	case rtl.RegRef:
		r, _ := ref.Register()
		regs := e.declare(r)
		out := make([]ntl.Ref, len(regs))
		for i, rr := range regs {
			out[i] = ntl.OfRegister(rr)
		}
		return out
	case rtl.LitRef:
		l, _ := ref.Literal()
		bs := e.src.Table.LiteralValue(l)
		out := make([]ntl.Ref, len(bs))
		for i, b := range bs {
			out[i] = ntl.OfConst(ntl.FromBitsBit(b))
		}
		return out
	default:
		return nil
	}
}

func (e *expander) emit(label string, op ntl.Op) {
	e.nl.Ops = append(e.nl.Ops, ntl.LocatedOp{Label: label, Op: op})
}

func (e *expander) expandOp(lop rtl.LocatedOp) error {
	label, op := lop.Label, lop.Op

	switch op.Opcode {
	case rtl.OpNoop:
		return nil
	case rtl.OpComment:
		e.emit(label, ntl.Op{Opcode: ntl.OpComment, Comment: op.Comment})
		return nil
	}

	lhs := e.declare(op.Lhs)
	switch op.Opcode {
	case rtl.OpAssign:
		e.expandAssign(label, lhs, e.refBits(op.Arg))
		return nil
	case rtl.OpBinary:
		return e.expandBinary(label, lhs, op)
	case rtl.OpUnary:
		return e.expandUnary(label, lhs, op)
	case rtl.OpConcat:
		e.expandConcat(label, lhs, op.Args)
		return nil
	case rtl.OpIndex:
		e.expandIndex(label, lhs, op)
		return nil
	case rtl.OpSplice:
		e.expandSplice(label, lhs, op)
		return nil
	case rtl.OpDynamicIndex:
		return e.expandDynamicIndex(label, lhs, op)
	case rtl.OpDynamicSplice:
		return e.expandDynamicSplice(label, lhs, op)
	case rtl.OpCase:
		e.expandCase(label, lhs, op)
		return nil
	case rtl.OpSelect:
		e.expandSelect(label, lhs, op)
		return nil
	case rtl.OpCast:
		e.expandCast(label, lhs, op)
		return nil
	case rtl.OpExec:
		e.expandExec(label, lhs, op)
		return nil
	default:
		return rherr.ICEf(rherr.Span{}, "expand.expandOp", "unhandled RTL opcode %s", op.Opcode)
	}
}

func (e *expander) expandAssign(label string, lhs []ntl.Register, src []ntl.Ref) {
	for i, r := range lhs {
		var s ntl.Ref
		if i < len(src) {
			s = src[i]
		} else {
			s = ntl.OfConst(ntl.Zero)
		}
		e.emit(label, ntl.Op{Opcode: ntl.OpAssign, Lhs: r, Arg: s})
	}
}

func (e *expander) expandConcat(label string, lhs []ntl.Register, parts []rtl.Ref) {
	bitIdx := 0
	for _, p := range parts {
		bs := e.refBits(p)
		for _, b := range bs {
			if bitIdx < len(lhs) {
				e.emit(label, ntl.Op{Opcode: ntl.OpAssign, Lhs: lhs[bitIdx], Arg: b})
			}
			bitIdx++
		}
	}
}

// expandBinary: bitwise ops (And/Or/Xor) blast per-bit via OpGate;
// everything else (Add/Sub/Mul/Shl/Shr/comparisons) becomes a single
// OpVector carrying the whole operand vectors (§4.9).
func (e *expander) expandBinary(label string, lhs []ntl.Register, op rtl.Op) error {
	a := e.refBits(op.Arg)
	b := e.refBits(op.Arg2)
	if gate, ok := gateOf(op.BinOp); ok {
		for i, r := range lhs {
			ab, bb := bitAt(a, i), bitAt(b, i)
			e.emit(label, ntl.Op{Opcode: ntl.OpGate, Lhs: r, Gate: gate, Arg: ab, Arg2: bb})
		}
		return nil
	}
	vecOp, ok := vectorOf(op.BinOp)
	if !ok {
		return rherr.ICEf(rherr.Span{}, "expand.expandBinary", "unhandled binary op %s", op.BinOp)
	}
	args := append(append([]ntl.Ref{}, a...), b...)
	if len(lhs) == 0 {
		return nil
	}
	e.emit(label, ntl.Op{Opcode: ntl.OpVector, Lhs: lhs[0], VecOp: vecOp, Signed: op.Signed, Args: args, Len1: len(a)})
	e.assignVectorResultBits(label, lhs)
	return nil
}

func gateOf(op rtl.BinaryOp) (ntl.GateOp, bool) {
	switch op {
	case rtl.BitAnd:
		return ntl.And, true
	case rtl.BitOr:
		return ntl.Or, true
	case rtl.BitXor:
		return ntl.Xor, true
	default:
		return 0, false
	}
}

func vectorOf(op rtl.BinaryOp) (ntl.VectorOp, bool) {
	switch op {
	case rtl.Add:
		return ntl.Add, true
	case rtl.Sub:
		return ntl.Sub, true
	case rtl.Mul:
		return ntl.Mul, true
	case rtl.Shl:
		return ntl.Shl, true
	case rtl.Shr:
		return ntl.Shr, true
	case rtl.Eq:
		return ntl.Eq, true
	case rtl.Ne:
		return ntl.Ne, true
	case rtl.Lt:
		return ntl.Lt, true
	case rtl.Le:
		return ntl.Le, true
	case rtl.Gt:
		return ntl.Gt, true
	case rtl.Ge:
		return ntl.Ge, true
	default:
		return 0, false
	}
}

// assignVectorResultBits emits the bookkeeping Assign ops that make every
// output bit beyond lhs[0] a named alias of the same OpVector result, so
// downstream consumers (package hdl) can read any output bit directly
// rather than re-deriving it from lhs[0]'s neighbors.
func (e *expander) assignVectorResultBits(label string, lhs []ntl.Register) {
	for i := 1; i < len(lhs); i++ {
		e.emit(label, ntl.Op{Opcode: ntl.OpAssign, Lhs: lhs[i], Arg: ntl.OfRegister(lhs[0])})
	}
}

func (e *expander) expandUnary(label string, lhs []ntl.Register, op rtl.Op) error {
	a := e.refBits(op.Arg)
	if op.Opcode == rtl.OpUnary && op.UnOp == rtl.Not {
		for i, r := range lhs {
			e.emit(label, ntl.Op{Opcode: ntl.OpNot, Lhs: r, Arg: bitAt(a, i)})
		}
		return nil
	}
	uop, ok := unaryReduceOf(op.UnOp)
	if !ok {
		return rherr.ICEf(rherr.Span{}, "expand.expandUnary", "unhandled unary op %s", op.UnOp)
	}
	if len(lhs) == 0 {
		return nil
	}
	e.emit(label, ntl.Op{Opcode: ntl.OpUnary, Lhs: lhs[0], UnOp: uop, Signed: op.Signed, Args: a})
	e.assignVectorResultBits(label, lhs)
	return nil
}

func unaryReduceOf(op rtl.UnaryOp) (ntl.UnaryVectorOp, bool) {
	switch op {
	case rtl.All:
		return ntl.All, true
	case rtl.Any:
		return ntl.Any, true
	case rtl.Xor:
		return ntl.XorReduce, true
	case rtl.Neg:
		return ntl.Neg, true
	default:
		return 0, false
	}
}

func (e *expander) expandIndex(label string, lhs []ntl.Register, op rtl.Op) {
	a := e.refBits(op.Arg)
	for i, r := range lhs {
		e.emit(label, ntl.Op{Opcode: ntl.OpAssign, Lhs: r, Arg: bitAt(a, op.Start+i)})
	}
}

func (e *expander) expandSplice(label string, lhs []ntl.Register, op rtl.Op) {
	orig := e.refBits(op.Arg)
	subst := e.refBits(op.Arg2)
	for i, r := range lhs {
		if i >= op.Start && i < op.End {
			e.emit(label, ntl.Op{Opcode: ntl.OpAssign, Lhs: r, Arg: bitAt(subst, i-op.Start)})
		} else {
			e.emit(label, ntl.Op{Opcode: ntl.OpAssign, Lhs: r, Arg: bitAt(orig, i)})
		}
	}
}

// elemPattern returns elem's binary encoding as a width-bit LSB-first
// constant pattern, matched against the runtime index register's bits.
func elemPattern(elem, width int) []ntl.Bit {
	out := make([]ntl.Bit, width)
	for i := range out {
		if elem&(1<<uint(i)) != 0 {
			out[i] = ntl.One
		} else {
			out[i] = ntl.Zero
		}
	}
	return out
}

// expandDynamicIndex builds, for each output bit, a Case over the runtime
// index register's bits selecting which of NumElems candidate slices
// supplies that bit — the bit-level equivalent of RTL's DynamicIndex.
func (e *expander) expandDynamicIndex(label string, lhs []ntl.Register, op rtl.Op) error {
	a := e.refBits(op.Arg)
	idxRefs := e.refBits(rtl.OfRegister(op.IndexReg))
	for bit, r := range lhs {
		arms := make([]ntl.CaseArm, op.NumElems)
		for elem := 0; elem < op.NumElems; elem++ {
			pos := op.BaseOffset + elem*op.ElemWidth + bit
			arms[elem] = ntl.CaseArm{Pattern: elemPattern(elem, len(idxRefs)), Value: bitAt(a, pos)}
		}
		e.emit(label, ntl.Op{Opcode: ntl.OpCase, Lhs: r, Discriminant: idxRefs, CaseTable: arms})
	}
	return nil
}

func (e *expander) expandDynamicSplice(label string, lhs []ntl.Register, op rtl.Op) error {
	orig := e.refBits(op.Arg)
	subst := e.refBits(op.Arg2)
	idxRefs := e.refBits(rtl.OfRegister(op.IndexReg))
	for bit, r := range lhs {
		inRange := false
		for elem := 0; elem < op.NumElems; elem++ {
			if bit >= op.BaseOffset+elem*op.ElemWidth && bit < op.BaseOffset+(elem+1)*op.ElemWidth {
				inRange = true
				break
			}
		}
		if !inRange {
			e.emit(label, ntl.Op{Opcode: ntl.OpAssign, Lhs: r, Arg: bitAt(orig, bit)})
			continue
		}
		arms := make([]ntl.CaseArm, op.NumElems)
		for elem := 0; elem < op.NumElems; elem++ {
			lo := op.BaseOffset + elem*op.ElemWidth
			hi := lo + op.ElemWidth
			val := bitAt(orig, bit)
			if bit >= lo && bit < hi {
				val = bitAt(subst, bit-lo)
			}
			arms[elem] = ntl.CaseArm{Pattern: elemPattern(elem, len(idxRefs)), Value: val}
		}
		e.emit(label, ntl.Op{Opcode: ntl.OpCase, Lhs: r, Discriminant: idxRefs, CaseTable: arms})
	}
	return nil
}

func (e *expander) expandCase(label string, lhs []ntl.Register, op rtl.Op) {
	disc := e.refBits(op.Arg)
	for bit, r := range lhs {
		arms := make([]ntl.CaseArm, len(op.CaseTable))
		for i, arm := range op.CaseTable {
			valBits := e.refBits(arm.Value)
			if arm.Pattern.IsEmpty() {
				arms[i] = ntl.CaseArm{Wild: true, Value: bitAt(valBits, bit)}
				continue
			}
			patBits := e.refBits(arm.Pattern)
			pat := make([]ntl.Bit, len(disc))
			for j := range pat {
				b, _ := bitAt(patBits, j).Const()
				pat[j] = b
			}
			arms[i] = ntl.CaseArm{Pattern: pat, Value: bitAt(valBits, bit)}
		}
		e.emit(label, ntl.Op{Opcode: ntl.OpCase, Lhs: r, Discriminant: disc, CaseTable: arms})
	}
}

func (e *expander) expandSelect(label string, lhs []ntl.Register, op rtl.Op) {
	cond := e.refBits(op.Arg)
	t := e.refBits(op.Arg2)
	f := e.refBits(op.Arg3)
	c := bitAt(cond, 0)
	for i, r := range lhs {
		e.emit(label, ntl.Op{Opcode: ntl.OpSelect, Lhs: r, Arg: c, Arg2: bitAt(t, i), Arg3: bitAt(f, i)})
	}
}

// expandCast per-bit copies the low bits and pads: Zero for
// unsigned/resize-of-unsigned, sign-bit replication for
// resize-of-signed (§4.9).
func (e *expander) expandCast(label string, lhs []ntl.Register, op rtl.Op) {
	a := e.refBits(op.Arg)
	for i, r := range lhs {
		if i < len(a) {
			e.emit(label, ntl.Op{Opcode: ntl.OpAssign, Lhs: r, Arg: a[i]})
			continue
		}
		pad := ntl.OfConst(ntl.Zero)
		if op.Signed && len(a) > 0 {
			pad = a[len(a)-1]
		}
		e.emit(label, ntl.Op{Opcode: ntl.OpAssign, Lhs: r, Arg: pad})
	}
}

func (e *expander) expandExec(label string, lhs []ntl.Register, op rtl.Op) {
	var args []ntl.Ref
	for _, a := range op.Args {
		args = append(args, e.refBits(a)...)
	}
	for _, r := range lhs {
		e.emit(label, ntl.Op{Opcode: ntl.OpBlackBox, Lhs: r, Args: args, Comment: "exec"})
	}
}

func bitAt(bs []ntl.Ref, i int) ntl.Ref {
	if i < 0 || i >= len(bs) {
		return ntl.OfConst(ntl.Zero)
	}
	return bs[i]
}

