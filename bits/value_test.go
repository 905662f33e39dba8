package bits

import (
	"testing"

	"github.com/rhdl-project/rhdlc/kind"
	"github.com/rhdl-project/rhdlc/path"
	"github.com/stretchr/testify/require"
)

// TestS1Double mirrors §8 scenario S1:
// fn double(a: b8) -> b8 { a + a } applied to a=0x05 yields 0x0A.
func TestS1Double(t *testing.T) {
	a, err := NewFromInt(kind.NewBits(8), 0x05)
	require.NoError(t, err)
	sum, err := Add(a, a)
	require.NoError(t, err)
	got, ok := unsignedBig(sum.Bits)
	require.True(t, ok)
	require.Equal(t, int64(0x0A), got.Int64())
}

func TestAddWraps(t *testing.T) {
	a, _ := NewFromInt(kind.NewBits(8), 200)
	b, _ := NewFromInt(kind.NewBits(8), 100)
	sum, err := Add(a, b)
	require.NoError(t, err)
	got, _ := unsignedBig(sum.Bits)
	require.Equal(t, int64(44), got.Int64()) // 300 mod 256
}

func TestNegOnlyOnSigned(t *testing.T) {
	u, _ := NewFromInt(kind.NewBits(8), 5)
	_, err := Neg(u)
	require.Error(t, err)

	s, _ := NewFromInt(kind.NewSigned(8), 5)
	neg, err := Neg(s)
	require.NoError(t, err)
	got, _ := signedBig(neg.Bits)
	require.Equal(t, int64(-5), got.Int64())
}

func TestShiftRightArithmeticVsLogical(t *testing.T) {
	amt, _ := NewFromInt(kind.NewBits(4), 1)

	s, _ := NewFromInt(kind.NewSigned(8), -2)
	sRes, err := Shr(s, amt)
	require.NoError(t, err)
	got, _ := signedBig(sRes.Bits)
	require.Equal(t, int64(-1), got.Int64())

	u, _ := NewFromInt(kind.NewBits(8), 0x80)
	uRes, err := Shr(u, amt)
	require.NoError(t, err)
	gotU, _ := unsignedBig(uRes.Bits)
	require.Equal(t, int64(0x40), gotU.Int64())
}

func TestShiftByWidthIsError(t *testing.T) {
	v, _ := NewFromInt(kind.NewBits(8), 1)
	amt, _ := NewFromInt(kind.NewBits(8), 8)
	_, err := Shl(v, amt)
	require.Error(t, err)
}

// TestS5SelectDontCare mirrors §8 scenario S5: Select on an X condition
// yields all-X of the lhs width. (Select itself lives in package interp;
// here we verify the XOf building block it relies on.)
func TestS5SelectDontCare(t *testing.T) {
	v := XOf(kind.NewBits(8))
	require.True(t, v.Bits.HasX())
	require.Equal(t, 8, len(v.Bits))
}

func TestEqWithXIsNeverTrueOrFalse(t *testing.T) {
	a := Value{Bits: BitString{One, X}, Kind: kind.NewBits(2)}
	b := Value{Bits: BitString{One, Zero}, Kind: kind.NewBits(2)}
	eq, err := Eq(a, b)
	require.NoError(t, err)
	require.Equal(t, X, eq.Bits[0])
	ne, err := Ne(a, b)
	require.NoError(t, err)
	require.Equal(t, X, ne.Bits[0])
}

func TestBitwiseXPropagation(t *testing.T) {
	a := Value{Bits: BitString{One, X, Zero}, Kind: kind.NewBits(3)}
	b := Value{Bits: BitString{One, One, One}, Kind: kind.NewBits(3)}
	and, err := BitAnd(a, b)
	require.NoError(t, err)
	require.Equal(t, BitString{One, X, Zero}, and.Bits)
}

func TestResizeSignExtendsOnlyForSigned(t *testing.T) {
	s, _ := NewFromInt(kind.NewSigned(4), -1) // 0b1111
	resized := Resize(s, 8)
	got, _ := signedBig(resized.Bits)
	require.Equal(t, int64(-1), got.Int64())

	u, _ := NewFromInt(kind.NewBits(4), 0xF)
	resizedU := Resize(u, 8)
	got2, _ := unsignedBig(resizedU.Bits)
	require.Equal(t, int64(0xF), got2.Int64())
}

func pointKind() kind.Kind {
	return kind.NewStruct("Point", kind.Field{Name: "p", Kind: kind.NewBits(2)}, kind.Field{Name: "q", Kind: kind.NewBits(3)})
}

// TestS6RoundTrip mirrors §8 scenario S6 / testable property #3:
// splice(v, p, read(v, p)) == v for every well-typed path.
func TestS6RoundTrip(t *testing.T) {
	sk := kind.NewStruct("S", kind.Field{Name: "a", Kind: kind.NewBits(4)}, kind.Field{Name: "b", Kind: kind.NewArray(pointKind(), 3)})
	a, _ := NewFromInt(kind.NewBits(4), 9)
	p0, _ := NewFromInt(kind.NewBits(2), 1)
	q0, _ := NewFromInt(kind.NewBits(3), 2)
	p1, _ := NewFromInt(kind.NewBits(2), 3)
	q1, _ := NewFromInt(kind.NewBits(3), 4)
	p2, _ := NewFromInt(kind.NewBits(2), 0)
	q2, _ := NewFromInt(kind.NewBits(3), 7)
	point0 := Concat(p0, q0)
	point0.Kind = pointKind()
	point1 := Concat(p1, q1)
	point1.Kind = pointKind()
	point2 := Concat(p2, q2)
	point2.Kind = pointKind()
	arr := Concat(point0, point1, point2)
	arr.Kind = kind.NewArray(pointKind(), 3)
	v := Concat(a, arr)
	v.Kind = sk

	paths := []path.Path{
		{path.FieldOf("a")},
		{path.FieldOf("b"), path.IndexOf(0), path.FieldOf("p")},
		{path.FieldOf("b"), path.IndexOf(1), path.FieldOf("q")},
		{path.FieldOf("b"), path.IndexOf(2)},
	}
	for _, p := range paths {
		sub, err := v.Read(p)
		require.NoError(t, err)
		rt, err := v.Splice(p, sub)
		require.NoError(t, err)
		require.Equal(t, v.Bits, rt.Bits)
	}
}

func TestWrapVariantAndDiscriminant(t *testing.T) {
	layout := kind.DiscriminantLayout{Width: 2, Alignment: kind.Lsb, Signedness: false}
	e := kind.NewEnum("SimpleEnum", layout,
		kind.Variant{Name: "Init", Discriminant: 1, Payload: kind.Kind{}},
		kind.Variant{Name: "Run", Discriminant: 0, Payload: kind.NewBits(8)},
		kind.Variant{Name: "Point", Discriminant: 2, Payload: pointKind()},
		kind.Variant{Name: "Boom", Discriminant: 3, Payload: kind.Kind{}},
	)
	seven, _ := NewFromInt(kind.NewBits(8), 7)
	run, err := WrapVariant(e, "Run", seven)
	require.NoError(t, err)
	disc, err := run.Discriminant()
	require.NoError(t, err)
	d, _ := unsignedBig(disc.Bits)
	require.Equal(t, int64(0), d.Int64())

	payload, err := run.Read(path.Path{path.EnumPayloadOf("Run")})
	require.NoError(t, err)
	got, _ := unsignedBig(payload.Bits)
	require.Equal(t, int64(7), got.Int64())
}

func TestNewFromIntOverflow(t *testing.T) {
	_, err := NewFromInt(kind.NewBits(4), 16)
	require.Error(t, err)
	_, err = NewFromInt(kind.NewBits(4), -1)
	require.Error(t, err)
	_, err = NewFromInt(kind.NewSigned(4), 8)
	require.Error(t, err)
	_, err = NewFromInt(kind.NewSigned(4), -9)
	require.Error(t, err)
}
