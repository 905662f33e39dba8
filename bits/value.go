package bits

import (
	"math/big"

	"github.com/rhdl-project/rhdlc/kind"
	"github.com/rhdl-project/rhdlc/path"
	"github.com/rhdl-project/rhdlc/rherr"
)

// Value is a typed bits value: a bit string paired with its declared
// Kind. Invariant: len(Bits) == Kind.Width() (§3).
type Value struct {
	Bits BitString
	Kind kind.Kind
}

// ZeroOf returns an all-Zero Value of the given Kind.
func ZeroOf(k kind.Kind) Value {
	return Value{Bits: allBits(Zero, k.Width()), Kind: k}
}

// XOf returns an all-X Value of the given Kind — the "don't-care" result
// used by Select on an X condition and by Case with no matching arm
// (§4.5).
func XOf(k kind.Kind) Value {
	return Value{Bits: allBits(X, k.Width()), Kind: k}
}

// NewFromInt constructs a Value of Kind k from a signed integer literal.
// Fails with rherr.Overflow if the literal does not fit k (§4.1:
// "overflow, unsigned negative, signed out-of-range -> error").
func NewFromInt(k kind.Kind, v int64) (Value, error) {
	w := k.Width()
	switch k.Tag() {
	case kind.BitsT:
		if v < 0 {
			return Value{}, rherr.New(rherr.Overflow, rherr.Span{}, "bits.NewFromInt", "negative literal %d does not fit unsigned Kind %s", v, k)
		}
		max := new(big.Int).Lsh(big.NewInt(1), uint(w))
		bv := big.NewInt(v)
		if bv.Cmp(max) >= 0 {
			return Value{}, rherr.New(rherr.Overflow, rherr.Span{}, "bits.NewFromInt", "literal %d overflows %s", v, k)
		}
		return Value{Bits: bigToBits(bv, w), Kind: k}, nil
	case kind.SignedT:
		minV := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(w-1)))
		maxV := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(w-1)), big.NewInt(1))
		bv := big.NewInt(v)
		if bv.Cmp(minV) < 0 || bv.Cmp(maxV) > 0 {
			return Value{}, rherr.New(rherr.Overflow, rherr.Span{}, "bits.NewFromInt", "literal %d out of range for %s", v, k)
		}
		return Value{Bits: bigSignedToBits(bv, w), Kind: k}, nil
	default:
		return Value{}, rherr.New(rherr.Type, rherr.Span{}, "bits.NewFromInt", "cannot construct an integer literal of kind %s", k)
	}
}

// --- big.Int <-> BitString conversions -------------------------------------

func bigToBits(v *big.Int, w int) BitString {
	out := make(BitString, w)
	for i := 0; i < w; i++ {
		if v.Bit(i) == 1 {
			out[i] = One
		} else {
			out[i] = Zero
		}
	}
	return out
}

// bigSignedToBits encodes v (which must fit in w bits, two's complement)
// into a little-endian BitString.
func bigSignedToBits(v *big.Int, w int) BitString {
	if v.Sign() >= 0 {
		return bigToBits(v, w)
	}
	mod := new(big.Int).Lsh(big.NewInt(1), uint(w))
	wrapped := new(big.Int).Add(v, mod)
	return bigToBits(wrapped, w)
}

// unsignedBig reads s as an unsigned magnitude. Returns ok=false if s
// contains an X bit.
func unsignedBig(s BitString) (*big.Int, bool) {
	if s.HasX() {
		return nil, false
	}
	v := new(big.Int)
	for i := len(s) - 1; i >= 0; i-- {
		v.Lsh(v, 1)
		if s[i] == One {
			v.Or(v, big.NewInt(1))
		}
	}
	return v, true
}

// signedBig reads s as a two's-complement signed magnitude.
func signedBig(s BitString) (*big.Int, bool) {
	v, ok := unsignedBig(s)
	if !ok {
		return nil, false
	}
	w := len(s)
	if w > 0 && s[w-1] == One {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(w))
		v.Sub(v, mod)
	}
	return v, true
}

func isSigned(k kind.Kind) bool {
	inner, _ := k.Unwrap()
	return inner.Tag() == kind.SignedT
}

func wrapped(v *big.Int, k kind.Kind) BitString {
	w := k.Width()
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(w)), big.NewInt(1))
	m := new(big.Int).And(v, mask)
	if m.Sign() < 0 {
		m.Add(m, new(big.Int).Lsh(big.NewInt(1), uint(w)))
	}
	return bigToBits(m, w)
}

// --- Arithmetic --------------------------------------------------------

// arith2 implements the common shape of Add/Sub/Mul: if either operand
// carries an X bit the whole result is conservatively all-X (exact bit-level
// X propagation through a ripple-carry adder is not modeled), otherwise the result wraps within the declared width.
func arith2(lhs, rhs Value, combine func(a, b *big.Int) *big.Int) (Value, error) {
	if !kind.Equal(stripSignal(lhs.Kind), stripSignal(rhs.Kind)) {
		return Value{}, rherr.New(rherr.Type, rherr.Span{}, "bits.arith", "operand kinds differ: %s vs %s", lhs.Kind, rhs.Kind)
	}
	if lhs.Bits.HasX() || rhs.Bits.HasX() {
		return XOf(lhs.Kind), nil
	}
	var a, b *big.Int
	if isSigned(lhs.Kind) {
		a, _ = signedBig(lhs.Bits)
		b, _ = signedBig(rhs.Bits)
	} else {
		a, _ = unsignedBig(lhs.Bits)
		b, _ = unsignedBig(rhs.Bits)
	}
	return Value{Bits: wrapped(combine(a, b), lhs.Kind), Kind: lhs.Kind}, nil
}

func stripSignal(k kind.Kind) kind.Kind {
	inner, _ := k.Unwrap()
	return inner
}

// Add wraps within the declared width.
func Add(lhs, rhs Value) (Value, error) {
	return arith2(lhs, rhs, func(a, b *big.Int) *big.Int { return new(big.Int).Add(a, b) })
}

// Sub wraps within the declared width.
func Sub(lhs, rhs Value) (Value, error) {
	return arith2(lhs, rhs, func(a, b *big.Int) *big.Int { return new(big.Int).Sub(a, b) })
}

// Mul wraps within the declared width.
func Mul(lhs, rhs Value) (Value, error) {
	return arith2(lhs, rhs, func(a, b *big.Int) *big.Int { return new(big.Int).Mul(a, b) })
}

// Neg is only defined on Signed values (§4.1).
func Neg(v Value) (Value, error) {
	if !isSigned(v.Kind) {
		return Value{}, rherr.New(rherr.Type, rherr.Span{}, "bits.Neg", "Neg requires a Signed operand, got %s", v.Kind)
	}
	if v.Bits.HasX() {
		return XOf(v.Kind), nil
	}
	a, _ := signedBig(v.Bits)
	return Value{Bits: wrapped(new(big.Int).Neg(a), v.Kind), Kind: v.Kind}, nil
}

// shiftAmount reads the unsigned shift-amount operand and rejects a shift
// >= width as undefined per §4.1 and the open question in §9
// ("treat as a type error after lowering").
func shiftAmount(amount Value, width int) (int, error) {
	if isSigned(amount.Kind) {
		return 0, rherr.New(rherr.Type, rherr.Span{}, "bits.shift", "shift amount must be unsigned, got %s", amount.Kind)
	}
	if amount.Bits.HasX() {
		return -1, nil // signalled by caller as "X" amount -> all-X result
	}
	n, ok := unsignedBig(amount.Bits)
	if !ok {
		return -1, nil
	}
	if !n.IsInt64() || n.Int64() >= int64(width) {
		return 0, rherr.New(rherr.Type, rherr.Span{}, "bits.shift", "shift amount %s >= width %d is undefined", n, width)
	}
	return int(n.Int64()), nil
}

// Shl shifts left, zero-filling from the LSB.
func Shl(v, amount Value) (Value, error) {
	w := v.Kind.Width()
	n, err := shiftAmount(amount, w)
	if err != nil {
		return Value{}, err
	}
	if n < 0 || v.Bits.HasX() {
		return XOf(v.Kind), nil
	}
	out := allBits(Zero, w)
	for i := w - 1; i >= n; i-- {
		out[i] = v.Bits[i-n]
	}
	return Value{Bits: out, Kind: v.Kind}, nil
}

// Shr shifts right: arithmetic (sign-extending) on Signed, logical
// (zero-filling) on Bits.
func Shr(v, amount Value) (Value, error) {
	w := v.Kind.Width()
	n, err := shiftAmount(amount, w)
	if err != nil {
		return Value{}, err
	}
	if n < 0 || v.Bits.HasX() {
		return XOf(v.Kind), nil
	}
	fill := Zero
	if isSigned(v.Kind) && w > 0 && v.Bits[w-1] == One {
		fill = One
	}
	out := allBits(fill, w)
	for i := 0; i < w-n; i++ {
		out[i] = v.Bits[i+n]
	}
	return Value{Bits: out, Kind: v.Kind}, nil
}

// --- Bitwise -------------------------------------------------------------

func bitwise2(lhs, rhs Value, op func(a, b Bit) Bit) (Value, error) {
	if !kind.Equal(stripSignal(lhs.Kind), stripSignal(rhs.Kind)) {
		return Value{}, rherr.New(rherr.Type, rherr.Span{}, "bits.bitwise", "operand kinds differ: %s vs %s", lhs.Kind, rhs.Kind)
	}
	w := len(lhs.Bits)
	out := make(BitString, w)
	for i := 0; i < w; i++ {
		out[i] = op(lhs.Bits[i], rhs.Bits[i])
	}
	return Value{Bits: out, Kind: lhs.Kind}, nil
}

func BitAnd(lhs, rhs Value) (Value, error) { return bitwise2(lhs, rhs, and) }
func BitOr(lhs, rhs Value) (Value, error)  { return bitwise2(lhs, rhs, or) }
func BitXor(lhs, rhs Value) (Value, error) { return bitwise2(lhs, rhs, xor) }

// Not complements every bit.
func Not(v Value) Value {
	out := make(BitString, len(v.Bits))
	for i, b := range v.Bits {
		out[i] = not(b)
	}
	return Value{Bits: out, Kind: v.Kind}
}

// --- Reductions ------------------------------------------------------------

func oneBitResult(b Bit) Value {
	return Value{Bits: BitString{b}, Kind: kind.NewBits(1)}
}

// All returns 1 iff every bit is One.
func All(v Value) Value {
	r := One
	for _, b := range v.Bits {
		r = and(r, b)
	}
	return oneBitResult(r)
}

// Any returns 1 iff some bit is One.
func Any(v Value) Value {
	r := Zero
	for _, b := range v.Bits {
		r = or(r, b)
	}
	return oneBitResult(r)
}

// Xor returns the parity of the bits.
func Xor(v Value) Value {
	r := Zero
	for _, b := range v.Bits {
		r = xor(r, b)
	}
	return oneBitResult(r)
}

// --- Comparison ------------------------------------------------------------

// Eq treats X as distinct from 0/1 — equality with X is always X, never
// true or false (§9 "Don't-care semantics").
func Eq(lhs, rhs Value) (Value, error) {
	if !kind.Equal(stripSignal(lhs.Kind), stripSignal(rhs.Kind)) {
		return Value{}, rherr.New(rherr.Type, rherr.Span{}, "bits.Eq", "operand kinds differ: %s vs %s", lhs.Kind, rhs.Kind)
	}
	if lhs.Bits.HasX() || rhs.Bits.HasX() {
		return oneBitResult(X), nil
	}
	for i := range lhs.Bits {
		if lhs.Bits[i] != rhs.Bits[i] {
			return oneBitResult(Zero), nil
		}
	}
	return oneBitResult(One), nil
}

// Ne is the complement of Eq, with the same X semantics.
func Ne(lhs, rhs Value) (Value, error) {
	v, err := Eq(lhs, rhs)
	if err != nil {
		return Value{}, err
	}
	if v.Bits[0] == X {
		return v, nil
	}
	return oneBitResult(not(v.Bits[0])), nil
}

func ordered(lhs, rhs Value) (*big.Int, *big.Int, error) {
	if !kind.Equal(stripSignal(lhs.Kind), stripSignal(rhs.Kind)) {
		return nil, nil, rherr.New(rherr.Type, rherr.Span{}, "bits.compare", "comparison requires same signedness and width: %s vs %s", lhs.Kind, rhs.Kind)
	}
	var a, b *big.Int
	var ok1, ok2 bool
	if isSigned(lhs.Kind) {
		a, ok1 = signedBig(lhs.Bits)
		b, ok2 = signedBig(rhs.Bits)
	} else {
		a, ok1 = unsignedBig(lhs.Bits)
		b, ok2 = unsignedBig(rhs.Bits)
	}
	if !ok1 || !ok2 {
		return nil, nil, nil // signals X to caller
	}
	return a, b, nil
}

func compare(lhs, rhs Value, test func(cmp int) bool) (Value, error) {
	a, b, err := ordered(lhs, rhs)
	if err != nil {
		return Value{}, err
	}
	if a == nil {
		return oneBitResult(X), nil
	}
	if test(a.Cmp(b)) {
		return oneBitResult(One), nil
	}
	return oneBitResult(Zero), nil
}

func Lt(lhs, rhs Value) (Value, error) { return compare(lhs, rhs, func(c int) bool { return c < 0 }) }
func Le(lhs, rhs Value) (Value, error) { return compare(lhs, rhs, func(c int) bool { return c <= 0 }) }
func Gt(lhs, rhs Value) (Value, error) { return compare(lhs, rhs, func(c int) bool { return c > 0 }) }
func Ge(lhs, rhs Value) (Value, error) { return compare(lhs, rhs, func(c int) bool { return c >= 0 }) }

// --- Casts -------------------------------------------------------------

// UnsignedCast truncates or zero-extends v to an n-bit Bits value.
func UnsignedCast(v Value, n int) Value {
	return resize(v, kind.NewBits(n), false)
}

// SignedCast truncates or extends v to an n-bit Signed value, sign-extending
// iff the source was itself Signed.
func SignedCast(v Value, n int) Value {
	return resize(v, kind.NewSigned(n), isSigned(v.Kind))
}

// Resize changes the width of v while preserving its Kind's signedness
// category, sign-extending iff the input is Signed (§4.1/§4.7).
func Resize(v Value, n int) Value {
	var target kind.Kind
	if isSigned(v.Kind) {
		target = kind.NewSigned(n)
	} else {
		target = kind.NewBits(n)
	}
	return resize(v, target, isSigned(v.Kind))
}

func resize(v Value, target kind.Kind, signExtend bool) Value {
	n := target.Width()
	src := v.Bits
	out := make(BitString, n)
	fill := Zero
	if signExtend && len(src) > 0 {
		fill = src[len(src)-1]
	}
	for i := 0; i < n; i++ {
		if i < len(src) {
			out[i] = src[i]
		} else {
			out[i] = fill
		}
	}
	return Value{Bits: out, Kind: target}
}

// --- Repeat / Concat -----------------------------------------------------

// Repeat builds an Array(v.Kind, n) by repeating v n times.
func Repeat(v Value, n int) Value {
	out := make(BitString, 0, v.Kind.Width()*n)
	for i := 0; i < n; i++ {
		out = append(out, v.Bits...)
	}
	return Value{Bits: out, Kind: kind.NewArray(v.Kind, n)}
}

// Concat joins bit strings in order, lowest-index argument occupying the
// low bits, producing a Tuple of the argument Kinds.
func Concat(vs ...Value) Value {
	var out BitString
	kinds := make([]kind.Kind, len(vs))
	for i, v := range vs {
		out = append(out, v.Bits...)
		kinds[i] = v.Kind
	}
	return Value{Bits: out, Kind: kind.NewTuple(kinds...)}
}

// --- Path read / splice --------------------------------------------------

// Read returns the sub-value addressed by p. p must not contain a
// DynamicIndex — the interpreter resolves dynamic indices to concrete
// Index elements before calling Read (§4.1, §4.5).
func (v Value) Read(p path.Path) (Value, error) {
	if p.HasDynamic() {
		return Value{}, rherr.ICEf(rherr.Span{}, "bits.Read", "path must be fully resolved (no DynamicIndex) before calling Value.Read")
	}
	subKind, err := path.Resolve(v.Kind, p)
	if err != nil {
		return Value{}, err
	}
	start, end, err := path.BitRange(v.Kind, p)
	if err != nil {
		return Value{}, err
	}
	return Value{Bits: append(BitString{}, v.Bits[start:end]...), Kind: subKind}, nil
}

// Splice returns a copy of v with the sub-value addressed by p replaced by
// sub, preserving the outer width (§4.1). p must not contain a
// DynamicIndex.
func (v Value) Splice(p path.Path, sub Value) (Value, error) {
	if p.HasDynamic() {
		return Value{}, rherr.ICEf(rherr.Span{}, "bits.Splice", "path must be fully resolved (no DynamicIndex) before calling Value.Splice")
	}
	start, end, err := path.BitRange(v.Kind, p)
	if err != nil {
		return Value{}, err
	}
	if end-start != len(sub.Bits) {
		return Value{}, rherr.New(rherr.Type, rherr.Span{}, "bits.Splice", "substitution width %d does not match addressed range width %d", len(sub.Bits), end-start)
	}
	out := v.Bits.Clone()
	copy(out[start:end], sub.Bits)
	return Value{Bits: out, Kind: v.Kind}, nil
}

// --- Enum wrapping ---------------------------------------------------------

// WrapVariant constructs k's Enum Value for variant name, embedding payload.
// Fails if k is not an Enum with that variant, or payload's Kind does not
// match the variant's payload Kind.
func WrapVariant(k kind.Kind, variant string, payload Value) (Value, error) {
	if k.Tag() != kind.EnumT {
		return Value{}, rherr.New(rherr.Type, rherr.Span{}, "bits.WrapVariant", "cannot wrap a non-enum kind %s", k)
	}
	v, ok := k.Variant(variant)
	if !ok {
		return Value{}, rherr.New(rherr.Type, rherr.Span{}, "bits.WrapVariant", "no variant %q in enum %s", variant, k.Name())
	}
	if !payload.Kind.IsEmpty() && !kind.Equal(v.Payload, payload.Kind) {
		return Value{}, rherr.New(rherr.Type, rherr.Span{}, "bits.WrapVariant", "payload kind %s does not match variant %s payload kind %s", payload.Kind, variant, v.Payload)
	}
	out := allBits(Zero, k.Width())
	l := k.DiscriminantLayout()
	discVal, err := discBits(v.Discriminant, l)
	if err != nil {
		return Value{}, err
	}
	discOffset := 0
	if l.Alignment == kind.Msb {
		discOffset = k.Width() - l.Width
	}
	copy(out[discOffset:discOffset+l.Width], discVal)

	payloadOffset := 0
	if l.Alignment == kind.Lsb {
		payloadOffset = l.Width
	}
	copy(out[payloadOffset:payloadOffset+len(payload.Bits)], payload.Bits)
	return Value{Bits: out, Kind: k}, nil
}

func discBits(disc int64, l kind.DiscriminantLayout) (BitString, error) {
	if l.Signedness {
		return bigSignedToBits(big.NewInt(disc), l.Width), nil
	}
	if disc < 0 {
		return nil, rherr.New(rherr.Overflow, rherr.Span{}, "bits.discBits", "negative discriminant %d for unsigned layout", disc)
	}
	return bigToBits(big.NewInt(disc), l.Width), nil
}

// wrapResultOrOption models Wrap{Ok,Err,Some,None} (§3/§4.5): k
// must be a Result- or Option-shaped Enum (two variants named
// Ok/Err or Some/None).
func wrapResultOrOption(k kind.Kind, variant string, payload Value) (Value, error) {
	return WrapVariant(k, variant, payload)
}

func WrapOk(k kind.Kind, v Value) (Value, error)   { return wrapResultOrOption(k, "Ok", v) }
func WrapErr(k kind.Kind, v Value) (Value, error)  { return wrapResultOrOption(k, "Err", v) }
func WrapSome(k kind.Kind, v Value) (Value, error) { return wrapResultOrOption(k, "Some", v) }
func WrapNone(k kind.Kind) (Value, error) {
	return wrapResultOrOption(k, "None", Value{Kind: kind.Kind{}})
}

// AsInt reads v as an unsigned machine int, for resolving a DynamicIndex
// or a Case/Select condition. ok is false if v carries an X bit or does
// not fit an int.
func AsInt(v Value) (n int, ok bool) {
	big, ok := unsignedBig(v.Bits)
	if !ok || !big.IsInt64() {
		return 0, false
	}
	return int(big.Int64()), true
}

// AsBool reports whether v's Any() reduction is true, for Select/Case
// conditions that are not single-bit.
func AsBool(v Value) (b bool, ok bool) {
	any := Any(v)
	if any.Bits[0] == X {
		return false, false
	}
	return any.Bits[0] == One, true
}

// Discriminant reads v's Enum discriminant as a Value of the discriminant
// Kind.
func (v Value) Discriminant() (Value, error) {
	if v.Kind.Tag() != kind.EnumT {
		return Value{}, rherr.New(rherr.Type, rherr.Span{}, "bits.Discriminant", "not an enum: %s", v.Kind)
	}
	return v.Read(path.Path{path.EnumDiscriminantOf()})
}
