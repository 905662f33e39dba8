// Package path implements the structured-address algebra (C4): a sequence
// of elements addressing into a composite Kind or typed-bits value —
// struct fields, array/tuple indices, enum payloads/discriminants, and
// dynamic (runtime-resolved) array indices.
package path

import (
	"fmt"

	"github.com/rhdl-project/rhdlc/kind"
	"github.com/rhdl-project/rhdlc/rherr"
)

// Slot is an opaque numeric reference to a Register holding the runtime
// index for a DynamicIndex element. It is deliberately not the concrete
// symtab.Register type: path sits below symtab in the dependency order
// (symtab's Literal values need Read/Splice, which live one layer below,
// in bits, which in turn needs Path) so Slot is kept as a plain alias.
// Callers (package mir) convert to/from symtab.Register, which shares the
// same uint32 underlying representation.
type Slot uint32

// ElementKind discriminates the Element sum type.
type ElementKind uint8

const (
	Field ElementKind = iota
	Index
	TupleIndex
	EnumPayload
	EnumPayloadByValue
	EnumDiscriminant
	DynamicIndex
)

func (k ElementKind) String() string {
	switch k {
	case Field:
		return "Field"
	case Index:
		return "Index"
	case TupleIndex:
		return "TupleIndex"
	case EnumPayload:
		return "EnumPayload"
	case EnumPayloadByValue:
		return "EnumPayloadByValue"
	case EnumDiscriminant:
		return "EnumDiscriminant"
	case DynamicIndex:
		return "DynamicIndex"
	default:
		return fmt.Sprintf("ElementKind(%d)", int(k))
	}
}

// Element is one step of a Path.
type Element struct {
	Kind ElementKind
	Name string // Field / EnumPayload variant name
	Int  int    // Index / TupleIndex
	Disc int64  // EnumPayloadByValue
	Slot Slot   // DynamicIndex
}

func FieldOf(name string) Element             { return Element{Kind: Field, Name: name} }
func IndexOf(i int) Element                   { return Element{Kind: Index, Int: i} }
func TupleIndexOf(i int) Element              { return Element{Kind: TupleIndex, Int: i} }
func EnumPayloadOf(variant string) Element    { return Element{Kind: EnumPayload, Name: variant} }
func EnumPayloadByValueOf(disc int64) Element { return Element{Kind: EnumPayloadByValue, Disc: disc} }
func EnumDiscriminantOf() Element             { return Element{Kind: EnumDiscriminant} }
func DynamicIndexOf(slot Slot) Element        { return Element{Kind: DynamicIndex, Slot: slot} }

// Path is an ordered address into a composite Kind or value.
type Path []Element

// HasDynamic reports whether p contains any DynamicIndex element.
func (p Path) HasDynamic() bool {
	for _, e := range p {
		if e.Kind == DynamicIndex {
			return true
		}
	}
	return false
}

// approximated replaces every DynamicIndex with Index(0), per the design
// note in §9: "approximate dynamic elements as Index(0) for
// type-checking only".
func (p Path) approximated() Path {
	if !p.HasDynamic() {
		return p
	}
	out := make(Path, len(p))
	for i, e := range p {
		if e.Kind == DynamicIndex {
			out[i] = IndexOf(0)
		} else {
			out[i] = e
		}
	}
	return out
}

// Resolve returns the sub-Kind addressed by p within k, approximating any
// DynamicIndex as Index(0) (type-checking only — the actual runtime
// behavior is provided by package interp and, at the RTL level, by the
// DynamicIndex/DynamicSplice opcodes). Resolve traverses through Signal
// wrappers, preserving the domain on the result (§3 "Applying a
// path to a Signal traverses its inner Kind, preserving the domain").
func Resolve(k kind.Kind, p Path) (kind.Kind, error) {
	cur := k
	var domain *kind.Color
	ap := p.approximated()
	for _, e := range ap {
		if cur.Tag() == kind.SignalT {
			inner, d := cur.Unwrap()
			cur = inner
			domain = &d
		}
		next, err := step(cur, e)
		if err != nil {
			return kind.Kind{}, err
		}
		cur = next
	}
	if domain != nil {
		return kind.NewSignal(cur, *domain), nil
	}
	return cur, nil
}

func step(cur kind.Kind, e Element) (kind.Kind, error) {
	switch e.Kind {
	case Field:
		if cur.Tag() != kind.StructT {
			return kind.Kind{}, rherr.New(rherr.Type, rherr.Span{}, "path.Field", "cannot apply Field(%s) to non-struct kind %s", e.Name, cur)
		}
		for _, f := range cur.Fields() {
			if f.Name == e.Name {
				return f.Kind, nil
			}
		}
		return kind.Kind{}, rherr.New(rherr.Type, rherr.Span{}, "path.Field", "no field %q in struct %s", e.Name, cur.Name())
	case Index, DynamicIndex:
		if cur.Tag() != kind.ArrayT {
			return kind.Kind{}, rherr.New(rherr.Type, rherr.Span{}, "path.Index", "cannot index non-array kind %s", cur)
		}
		if e.Kind == Index && (e.Int < 0 || e.Int >= cur.Size()) {
			return kind.Kind{}, rherr.New(rherr.Type, rherr.Span{}, "path.Index", "index %d out of bounds for array of size %d", e.Int, cur.Size())
		}
		return cur.Base(), nil
	case TupleIndex:
		if cur.Tag() == kind.StructT && cur.IsTupleStruct() {
			for _, f := range cur.Fields() {
				if f.Name == fmt.Sprint(e.Int) {
					return f.Kind, nil
				}
			}
			return kind.Kind{}, rherr.New(rherr.Type, rherr.Span{}, "path.TupleIndex", "no field %d in tuple struct %s", e.Int, cur.Name())
		}
		if cur.Tag() != kind.TupleT {
			return kind.Kind{}, rherr.New(rherr.Type, rherr.Span{}, "path.TupleIndex", "cannot apply TupleIndex to non-tuple kind %s", cur)
		}
		els := cur.Elements()
		if e.Int < 0 || e.Int >= len(els) {
			return kind.Kind{}, rherr.New(rherr.Type, rherr.Span{}, "path.TupleIndex", "tuple index %d out of bounds (len %d)", e.Int, len(els))
		}
		return els[e.Int], nil
	case EnumPayload:
		if cur.Tag() != kind.EnumT {
			return kind.Kind{}, rherr.New(rherr.Type, rherr.Span{}, "path.EnumPayload", "cannot apply EnumPayload to non-enum kind %s", cur)
		}
		v, ok := cur.Variant(e.Name)
		if !ok {
			return kind.Kind{}, rherr.New(rherr.Type, rherr.Span{}, "path.EnumPayload", "no variant %q in enum %s", e.Name, cur.Name())
		}
		return v.Payload, nil
	case EnumPayloadByValue:
		if cur.Tag() != kind.EnumT {
			return kind.Kind{}, rherr.New(rherr.Type, rherr.Span{}, "path.EnumPayloadByValue", "cannot apply EnumPayloadByValue to non-enum kind %s", cur)
		}
		v, ok := cur.VariantByDiscriminant(e.Disc)
		if !ok {
			return kind.Kind{}, rherr.New(rherr.Type, rherr.Span{}, "path.EnumPayloadByValue", "no variant with discriminant %d in enum %s", e.Disc, cur.Name())
		}
		return v.Payload, nil
	case EnumDiscriminant:
		if cur.Tag() != kind.EnumT {
			return kind.Kind{}, rherr.New(rherr.Type, rherr.Span{}, "path.EnumDiscriminant", "cannot apply EnumDiscriminant to non-enum kind %s", cur)
		}
		l := cur.DiscriminantLayout()
		if l.Signedness {
			return kind.NewSigned(l.Width), nil
		}
		return kind.NewBits(l.Width), nil
	default:
		return kind.Kind{}, rherr.ICEf(rherr.Span{}, "path.step", "unknown path element kind %v", e.Kind)
	}
}

// BitRange computes the LSB-based [start, end) bit range addressed by a
// fully-static p (no DynamicIndex) within k, per §4.7's bit-range
// convention. It fails if p contains any DynamicIndex element — callers
// (package lower) must first peel off the dynamic suffix.
func BitRange(k kind.Kind, p Path) (start, end int, err error) {
	if p.HasDynamic() {
		return 0, 0, rherr.ICEf(rherr.Span{}, "path.BitRange", "path contains a DynamicIndex; cannot compute a static bit range")
	}
	cur := k
	offset := 0
	for _, e := range p {
		if cur.Tag() == kind.SignalT {
			cur, _ = cur.Unwrap()
		}
		elOffset, elWidth, next, err := stepBits(cur, e)
		if err != nil {
			return 0, 0, err
		}
		offset += elOffset
		cur = next
		_ = elWidth
	}
	return offset, offset + cur.Width(), nil
}

// stepBits returns the bit offset (relative to the start of cur) and width
// of the sub-Kind selected by a single static Element, plus the sub-Kind
// itself.
func stepBits(cur kind.Kind, e Element) (offset, width int, next kind.Kind, err error) {
	switch e.Kind {
	case Field:
		if cur.Tag() != kind.StructT {
			return 0, 0, kind.Kind{}, rherr.New(rherr.Type, rherr.Span{}, "path.Field", "cannot apply Field(%s) to non-struct kind %s", e.Name, cur)
		}
		off := 0
		for _, f := range cur.Fields() {
			if f.Name == e.Name {
				return off, f.Kind.Width(), f.Kind, nil
			}
			off += f.Kind.Width()
		}
		return 0, 0, kind.Kind{}, rherr.New(rherr.Type, rherr.Span{}, "path.Field", "no field %q in struct %s", e.Name, cur.Name())
	case Index:
		if cur.Tag() != kind.ArrayT {
			return 0, 0, kind.Kind{}, rherr.New(rherr.Type, rherr.Span{}, "path.Index", "cannot index non-array kind %s", cur)
		}
		if e.Int < 0 || e.Int >= cur.Size() {
			return 0, 0, kind.Kind{}, rherr.New(rherr.Type, rherr.Span{}, "path.Index", "index %d out of bounds for array of size %d", e.Int, cur.Size())
		}
		elWidth := cur.Base().Width()
		return e.Int * elWidth, elWidth, cur.Base(), nil
	case TupleIndex:
		if cur.Tag() == kind.StructT && cur.IsTupleStruct() {
			off := 0
			for _, f := range cur.Fields() {
				if f.Name == fmt.Sprint(e.Int) {
					return off, f.Kind.Width(), f.Kind, nil
				}
				off += f.Kind.Width()
			}
			return 0, 0, kind.Kind{}, rherr.New(rherr.Type, rherr.Span{}, "path.TupleIndex", "no field %d in tuple struct %s", e.Int, cur.Name())
		}
		if cur.Tag() != kind.TupleT {
			return 0, 0, kind.Kind{}, rherr.New(rherr.Type, rherr.Span{}, "path.TupleIndex", "cannot apply TupleIndex to non-tuple kind %s", cur)
		}
		els := cur.Elements()
		if e.Int < 0 || e.Int >= len(els) {
			return 0, 0, kind.Kind{}, rherr.New(rherr.Type, rherr.Span{}, "path.TupleIndex", "tuple index %d out of bounds", e.Int)
		}
		off := 0
		for i := 0; i < e.Int; i++ {
			off += els[i].Width()
		}
		return off, els[e.Int].Width(), els[e.Int], nil
	case EnumPayload, EnumPayloadByValue:
		if cur.Tag() != kind.EnumT {
			return 0, 0, kind.Kind{}, rherr.New(rherr.Type, rherr.Span{}, "path.EnumPayload", "cannot apply to non-enum kind %s", cur)
		}
		var v kind.Variant
		var ok bool
		if e.Kind == EnumPayload {
			v, ok = cur.Variant(e.Name)
		} else {
			v, ok = cur.VariantByDiscriminant(e.Disc)
		}
		if !ok {
			return 0, 0, kind.Kind{}, rherr.New(rherr.Type, rherr.Span{}, "path.EnumPayload", "no such variant in enum %s", cur.Name())
		}
		l := cur.DiscriminantLayout()
		payloadOffset := 0
		if l.Alignment == kind.Lsb {
			payloadOffset = l.Width
		}
		return payloadOffset, v.Payload.Width(), v.Payload, nil
	case EnumDiscriminant:
		if cur.Tag() != kind.EnumT {
			return 0, 0, kind.Kind{}, rherr.New(rherr.Type, rherr.Span{}, "path.EnumDiscriminant", "cannot apply to non-enum kind %s", cur)
		}
		l := cur.DiscriminantLayout()
		discOffset := 0
		if l.Alignment == kind.Msb {
			discOffset = cur.Width() - l.Width
		}
		var discKind kind.Kind
		if l.Signedness {
			discKind = kind.NewSigned(l.Width)
		} else {
			discKind = kind.NewBits(l.Width)
		}
		return discOffset, l.Width, discKind, nil
	default:
		return 0, 0, kind.Kind{}, rherr.ICEf(rherr.Span{}, "path.stepBits", "element kind %v has no static bit range", e.Kind)
	}
}
