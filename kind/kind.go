// Package kind implements the RHDL Kind system (C2): algebraic type
// descriptors for bit-precise hardware values — Bits(n), Signed(n), Tuple,
// Array, Struct, Enum (with discriminant layout), Signal(kind, domain), and
// Empty.
package kind

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Tag discriminates the Kind sum type.
type Tag uint8

const (
	Empty Tag = iota
	BitsT
	SignedT
	TupleT
	ArrayT
	StructT
	EnumT
	SignalT
)

// String implements fmt.Stringer.
func (t Tag) String() string {
	switch t {
	case Empty:
		return "Empty"
	case BitsT:
		return "Bits"
	case SignedT:
		return "Signed"
	case TupleT:
		return "Tuple"
	case ArrayT:
		return "Array"
	case StructT:
		return "Struct"
	case EnumT:
		return "Enum"
	case SignalT:
		return "Signal"
	default:
		return fmt.Sprintf("Tag(%d)", int(t))
	}
}

// Field is a named member of a Struct Kind.
type Field struct {
	Name string
	Kind Kind
}

// Variant is one arm of an Enum Kind.
type Variant struct {
	Name        string
	Discriminant int64
	Payload     Kind
}

// Alignment says which end of an Enum's bit layout the discriminant
// occupies.
type Alignment uint8

const (
	Lsb Alignment = iota
	Msb
)

func (a Alignment) String() string {
	if a == Msb {
		return "Msb"
	}
	return "Lsb"
}

// DiscriminantLayout describes how an Enum's discriminant is packed.
type DiscriminantLayout struct {
	Width      int
	Alignment  Alignment
	Signedness bool // true if the discriminant is interpreted as signed
}

// Kind is the immutable type descriptor of a slot. The zero Kind is Empty.
// Composite payloads (Tuple elements, Array base, Struct fields, Enum
// variants, Signal inner) are held by value in slices/pointers that callers
// must treat as immutable — Kinds are never mutated in place, only built
// fresh via the constructors below or returned (possibly interned) from
// Intern.
type Kind struct {
	tag Tag

	n int // Bits(n) / Signed(n) width

	elements []Kind // Tuple

	base *Kind // Array
	size int    // Array

	name   string  // Struct / Enum
	fields []Field // Struct

	variants []Variant          // Enum
	layout   DiscriminantLayout // Enum

	inner  *Kind // Signal
	domain Color // Signal
}

// NewBits returns Bits(n). Panics if n <= 0, per §3 (Bits(n), n>0).
func NewBits(n int) Kind {
	if n <= 0 {
		panic(fmt.Sprintf("kind: Bits width must be > 0, got %d", n))
	}
	return Kind{tag: BitsT, n: n}
}

// NewSigned returns Signed(n). Panics if n <= 0.
func NewSigned(n int) Kind {
	if n <= 0 {
		panic(fmt.Sprintf("kind: Signed width must be > 0, got %d", n))
	}
	return Kind{tag: SignedT, n: n}
}

// NewTuple returns Tuple(elements). Tuple(nil) and Empty compare equal
// (§3, §4.1 "Kind equality for Empty").
func NewTuple(elements ...Kind) Kind {
	return Kind{tag: TupleT, elements: elements}
}

// NewArray returns Array(base, size).
func NewArray(base Kind, size int) Kind {
	b := base
	return Kind{tag: ArrayT, base: &b, size: size}
}

// NewStruct returns Struct(name, fields).
func NewStruct(name string, fields ...Field) Kind {
	return Kind{tag: StructT, name: name, fields: fields}
}

// NewEnum returns Enum(name, variants, layout). Width is disc.width +
// max(variant-payload.width) per §3.
func NewEnum(name string, layout DiscriminantLayout, variants ...Variant) Kind {
	return Kind{tag: EnumT, name: name, variants: variants, layout: layout}
}

// NewSignal returns Signal(inner, domain). Panics if inner is itself a
// Signal (§3: "inner must not itself be Signal").
func NewSignal(inner Kind, domain Color) Kind {
	if inner.tag == SignalT {
		panic("kind: Signal(inner) may not itself be a Signal")
	}
	in := inner
	return Kind{tag: SignalT, inner: &in, domain: domain}
}

// Tag returns the discriminant of the Kind sum type.
func (k Kind) Tag() Tag { return k.tag }

// IsEmpty reports whether k is Empty or a zero-length Tuple — the one
// implicit kind identification permitted by §4.1.
func (k Kind) IsEmpty() bool {
	return k.tag == Empty || (k.tag == TupleT && len(k.elements) == 0)
}

// N returns the bit width for Bits/Signed kinds.
func (k Kind) N() int { return k.n }

// Elements returns the member Kinds of a Tuple.
func (k Kind) Elements() []Kind { return k.elements }

// Base returns the element Kind of an Array.
func (k Kind) Base() Kind { return *k.base }

// Size returns the element count of an Array.
func (k Kind) Size() int { return k.size }

// Name returns the declared name of a Struct or Enum.
func (k Kind) Name() string { return k.name }

// Fields returns the ordered fields of a Struct.
func (k Kind) Fields() []Field { return k.fields }

// IsTupleStruct reports whether every field name parses as a decimal
// integer (§3: Struct "is-tuple-struct iff all field names are
// decimal integers").
func (k Kind) IsTupleStruct() bool {
	if k.tag != StructT || len(k.fields) == 0 {
		return false
	}
	for _, f := range k.fields {
		if _, err := strconv.Atoi(f.Name); err != nil {
			return false
		}
	}
	return true
}

// Variants returns the ordered variants of an Enum.
func (k Kind) Variants() []Variant { return k.variants }

// DiscriminantLayout returns the discriminant layout of an Enum.
func (k Kind) DiscriminantLayout() DiscriminantLayout { return k.layout }

// Variant looks up an Enum variant by name.
func (k Kind) Variant(name string) (Variant, bool) {
	for _, v := range k.variants {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}

// VariantByDiscriminant looks up an Enum variant by its numeric
// discriminant — §3: "variants are identified by numeric
// discriminant, not by position".
func (k Kind) VariantByDiscriminant(disc int64) (Variant, bool) {
	for _, v := range k.variants {
		if v.Discriminant == disc {
			return v, true
		}
	}
	return Variant{}, false
}

// Inner returns the wrapped Kind of a Signal.
func (k Kind) Inner() Kind { return *k.inner }

// Domain returns the clock domain tag of a Signal.
func (k Kind) Domain() Color { return k.domain }

// Unwrap strips a Signal wrapper, if any, returning the inner Kind and the
// domain ColorNone if k was not a Signal. Several operator typing rules
// ignore Signal wrapping (§3 "Binary... all three kinds equal
// ignoring Signal wrapping").
func (k Kind) Unwrap() (inner Kind, domain Color) {
	if k.tag == SignalT {
		return *k.inner, k.domain
	}
	return k, ColorNone
}

// Width returns the bit width of the Kind.
func (k Kind) Width() int {
	switch k.tag {
	case Empty:
		return 0
	case BitsT, SignedT:
		return k.n
	case TupleT:
		w := 0
		for _, e := range k.elements {
			w += e.Width()
		}
		return w
	case ArrayT:
		return k.base.Width() * k.size
	case StructT:
		w := 0
		for _, f := range k.fields {
			w += f.Kind.Width()
		}
		return w
	case EnumT:
		maxPayload := 0
		for _, v := range k.variants {
			if w := v.Payload.Width(); w > maxPayload {
				maxPayload = w
			}
		}
		return k.layout.Width + maxPayload
	case SignalT:
		return k.inner.Width()
	default:
		panic(fmt.Sprintf("kind: unknown tag %d", k.tag))
	}
}

// Equal reports structural equality, with Empty == Tuple([]) as the sole
// implicit identification (§4.1).
func Equal(a, b Kind) bool {
	if a.IsEmpty() && b.IsEmpty() {
		return true
	}
	if a.tag != b.tag {
		return false
	}
	switch a.tag {
	case Empty:
		return true
	case BitsT, SignedT:
		return a.n == b.n
	case TupleT:
		if len(a.elements) != len(b.elements) {
			return false
		}
		for i := range a.elements {
			if !Equal(a.elements[i], b.elements[i]) {
				return false
			}
		}
		return true
	case ArrayT:
		return a.size == b.size && Equal(*a.base, *b.base)
	case StructT:
		if a.name != b.name || len(a.fields) != len(b.fields) {
			return false
		}
		for i := range a.fields {
			if a.fields[i].Name != b.fields[i].Name || !Equal(a.fields[i].Kind, b.fields[i].Kind) {
				return false
			}
		}
		return true
	case EnumT:
		if a.name != b.name || a.layout != b.layout || len(a.variants) != len(b.variants) {
			return false
		}
		for i := range a.variants {
			if a.variants[i].Name != b.variants[i].Name ||
				a.variants[i].Discriminant != b.variants[i].Discriminant ||
				!Equal(a.variants[i].Payload, b.variants[i].Payload) {
				return false
			}
		}
		return true
	case SignalT:
		return a.domain == b.domain && Equal(*a.inner, *b.inner)
	default:
		return false
	}
}

// String implements fmt.Stringer, for diagnostics and test golden output.
func (k Kind) String() string {
	switch k.tag {
	case Empty:
		return "()"
	case BitsT:
		return fmt.Sprintf("b%d", k.n)
	case SignedT:
		return fmt.Sprintf("s%d", k.n)
	case TupleT:
		parts := make([]string, len(k.elements))
		for i, e := range k.elements {
			parts[i] = e.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case ArrayT:
		return fmt.Sprintf("[%s; %d]", k.base.String(), k.size)
	case StructT:
		return k.name
	case EnumT:
		return k.name
	case SignalT:
		return fmt.Sprintf("%s@%s", k.inner.String(), k.domain)
	default:
		return "?"
	}
}

// key returns a canonical string used by the interner to deduplicate
// structurally-equal Kinds.
func (k Kind) key() string {
	var b strings.Builder
	k.writeKey(&b)
	return b.String()
}

func (k Kind) writeKey(b *strings.Builder) {
	if k.IsEmpty() {
		b.WriteString("E")
		return
	}
	switch k.tag {
	case BitsT:
		fmt.Fprintf(b, "B%d", k.n)
	case SignedT:
		fmt.Fprintf(b, "S%d", k.n)
	case TupleT:
		b.WriteString("T(")
		for _, e := range k.elements {
			e.writeKey(b)
			b.WriteByte(',')
		}
		b.WriteByte(')')
	case ArrayT:
		b.WriteString("A(")
		k.base.writeKey(b)
		fmt.Fprintf(b, ";%d)", k.size)
	case StructT:
		fmt.Fprintf(b, "St[%s](", k.name)
		for _, f := range k.fields {
			fmt.Fprintf(b, "%s:", f.Name)
			f.Kind.writeKey(b)
			b.WriteByte(',')
		}
		b.WriteByte(')')
	case EnumT:
		fmt.Fprintf(b, "En[%s]{%d,%s,%v}(", k.name, k.layout.Width, k.layout.Alignment, k.layout.Signedness)
		for _, v := range k.variants {
			fmt.Fprintf(b, "%s=%d:", v.Name, v.Discriminant)
			v.Payload.writeKey(b)
			b.WriteByte(',')
		}
		b.WriteByte(')')
	case SignalT:
		b.WriteString("Sig(")
		k.inner.writeKey(b)
		fmt.Fprintf(b, "@%d)", k.domain.id)
	}
}

// interner deduplicates structurally-equal Kinds. It is process-wide
// mutable state (§5, §9): lazily initialized, sound under concurrent
// reads via a RWMutex with idempotent lookup-then-insert. (The Color id
// counter in this package and symtab's Table counter are process-wide
// mutable state as well.)
type interner struct {
	mu    sync.RWMutex
	table map[string]Kind
}

var globalInterner = &interner{table: make(map[string]Kind)}

// Intern returns a canonical, structurally-deduplicated representative of
// k. Interning is a permitted optimization (§3); callers may use
// either the interned or the original value interchangeably since Equal
// defines structural, not pointer, equality.
func Intern(k Kind) Kind {
	key := k.key()
	globalInterner.mu.RLock()
	if v, ok := globalInterner.table[key]; ok {
		globalInterner.mu.RUnlock()
		return v
	}
	globalInterner.mu.RUnlock()

	globalInterner.mu.Lock()
	defer globalInterner.mu.Unlock()
	if v, ok := globalInterner.table[key]; ok {
		return v
	}
	globalInterner.table[key] = k
	return k
}
