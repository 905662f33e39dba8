package path

import (
	"testing"

	"github.com/rhdl-project/rhdlc/kind"
	"github.com/stretchr/testify/require"
)

func pointKind() kind.Kind {
	return kind.NewStruct("Point", kind.Field{Name: "p", Kind: kind.NewBits(2)}, kind.Field{Name: "q", Kind: kind.NewBits(3)})
}

func TestResolveField(t *testing.T) {
	s := kind.NewStruct("S", kind.Field{Name: "a", Kind: kind.NewBits(4)}, kind.Field{Name: "b", Kind: kind.NewArray(pointKind(), 3)})
	got, err := Resolve(s, Path{FieldOf("b"), IndexOf(1), FieldOf("q")})
	require.NoError(t, err)
	require.True(t, kind.Equal(kind.NewBits(3), got))
}

func TestBitRangeStructArray(t *testing.T) {
	// Struct{a:b4, b:Array<Point,3>} — matches S6's shape in §8.
	s := kind.NewStruct("S", kind.Field{Name: "a", Kind: kind.NewBits(4)}, kind.Field{Name: "b", Kind: kind.NewArray(pointKind(), 3)})
	start, end, err := BitRange(s, Path{FieldOf("b"), IndexOf(1), FieldOf("q")})
	require.NoError(t, err)
	// a:4 bits, then b[0] (5 bits: p=2,q=3), then b[1].p (2 bits), then b[1].q.
	require.Equal(t, 4+5+2, start)
	require.Equal(t, start+3, end)
}

// TestStaticIndexFolding mirrors scenario S4 of §8: a[c+1] with
// c=3 resolves statically to bit range [16, 20) in an [b4; 8] array.
func TestStaticIndexFolding(t *testing.T) {
	arr := kind.NewArray(kind.NewBits(4), 8)
	start, end, err := BitRange(arr, Path{IndexOf(4)})
	require.NoError(t, err)
	require.Equal(t, 16, start)
	require.Equal(t, 20, end)
}

func TestEnumDiscriminantAndPayloadOffsets(t *testing.T) {
	layout := kind.DiscriminantLayout{Width: 2, Alignment: kind.Lsb, Signedness: false}
	e := kind.NewEnum("E", layout,
		kind.Variant{Name: "Init", Discriminant: 0, Payload: kind.Kind{}},
		kind.Variant{Name: "Run", Discriminant: 1, Payload: kind.NewBits(8)},
	)
	dStart, dEnd, err := BitRange(e, Path{EnumDiscriminantOf()})
	require.NoError(t, err)
	require.Equal(t, 0, dStart)
	require.Equal(t, 2, dEnd)

	pStart, pEnd, err := BitRange(e, Path{EnumPayloadOf("Run")})
	require.NoError(t, err)
	require.Equal(t, 2, pStart)
	require.Equal(t, 10, pEnd)
}

func TestDynamicIndexApproximatedForResolve(t *testing.T) {
	arr := kind.NewArray(kind.NewBits(4), 8)
	got, err := Resolve(arr, Path{DynamicIndexOf(7)})
	require.NoError(t, err)
	require.True(t, kind.Equal(kind.NewBits(4), got))
}

func TestBitRangeRejectsDynamic(t *testing.T) {
	arr := kind.NewArray(kind.NewBits(4), 8)
	_, _, err := BitRange(arr, Path{DynamicIndexOf(0)})
	require.Error(t, err)
}

func TestSignalPreservesDomainThroughPath(t *testing.T) {
	c := kind.NewColor("clk")
	sig := kind.NewSignal(pointKind(), c)
	got, err := Resolve(sig, Path{FieldOf("q")})
	require.NoError(t, err)
	require.Equal(t, kind.SignalT, got.Tag())
	inner, domain := got.Unwrap()
	require.True(t, kind.Equal(kind.NewBits(3), inner))
	require.Equal(t, c, domain)
}
