package kernels

import (
	"testing"

	"github.com/rhdl-project/rhdlc/bits"
	"github.com/rhdl-project/rhdlc/coherence"
	"github.com/rhdl-project/rhdlc/expand"
	"github.com/rhdl-project/rhdlc/interp"
	"github.com/rhdl-project/rhdlc/kind"
	"github.com/rhdl-project/rhdlc/lower"
	"github.com/rhdl-project/rhdlc/path"
	"github.com/rhdl-project/rhdlc/rherr"
	"github.com/stretchr/testify/require"
)

func TestNamesListsEveryKernel(t *testing.T) {
	names := Names()
	require.ElementsMatch(t, []string{
		"double", "simple_enum_match", "add_coherent", "add_incoherent",
		"static_index", "tri_value_select", "splice_roundtrip",
	}, names)
}

// TestDoubleKernel is §8 scenario S1: applying a = 0x05 yields 0x0A.
func TestDoubleKernel(t *testing.T) {
	k, ok := Lookup("double")
	require.True(t, ok)
	obj, err := k.Build()
	require.NoError(t, err)

	a, err := bits.NewFromInt(kind.NewBits(8), 0x05)
	require.NoError(t, err)
	got, err := interp.Run(obj, []bits.Value{a})
	require.NoError(t, err)
	want, err := bits.NewFromInt(kind.NewBits(8), 0x0A)
	require.NoError(t, err)
	require.Equal(t, want.Bits, got.Bits)
}

// TestSimpleEnumMatchKernel is §8 scenario S2.
func TestSimpleEnumMatchKernel(t *testing.T) {
	k, ok := Lookup("simple_enum_match")
	require.True(t, ok)
	obj, err := k.Build()
	require.NoError(t, err)

	ek := simpleEnumKind()
	u8 := kind.NewBits(8)

	seven, err := bits.NewFromInt(u8, 7)
	require.NoError(t, err)
	run7, err := bits.WrapVariant(ek, "Run", seven)
	require.NoError(t, err)

	point := kind.Variant{}
	for _, v := range ek.Variants() {
		if v.Name == "Point" {
			point = v
		}
	}
	x, err := bits.NewFromInt(kind.NewBits(4), 1)
	require.NoError(t, err)
	y, err := bits.NewFromInt(kind.NewBits(8), 2)
	require.NoError(t, err)
	xy := bits.Concat(x, y)
	xy.Kind = point.Payload
	pointXY, err := bits.WrapVariant(ek, "Point", xy)
	require.NoError(t, err)

	initV, err := bits.WrapVariant(ek, "Init", bits.Value{Kind: kind.Kind{}})
	require.NoError(t, err)
	boomV, err := bits.WrapVariant(ek, "Boom", bits.Value{Kind: kind.Kind{}})
	require.NoError(t, err)

	cases := []struct {
		name string
		arg  bits.Value
		want int64
	}{
		{"Run(7)", run7, 7},
		{"Point{x:1,y:2}", pointXY, 2},
		{"Init", initV, 1},
		{"Boom", boomV, 7},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := interp.Run(obj, []bits.Value{c.arg})
			require.NoError(t, err)
			want, err := bits.NewFromInt(u8, c.want)
			require.NoError(t, err)
			require.Equal(t, want.Bits, got.Bits)
		})
	}
}

// TestAddCoherentPassesCheck is half of §8 scenario S3: C == D
// compiles.
func TestAddCoherentPassesCheck(t *testing.T) {
	k, ok := Lookup("add_coherent")
	require.True(t, ok)
	obj, err := k.Build()
	require.NoError(t, err)
	require.NoError(t, coherence.Check(obj))
}

// TestAddIncoherentFailsCheck is the other half of S3: C != D is rejected
// with a Coherence error.
func TestAddIncoherentFailsCheck(t *testing.T) {
	k, ok := Lookup("add_incoherent")
	require.True(t, ok)
	obj, err := k.Build()
	require.NoError(t, err)

	err = coherence.Check(obj)
	require.Error(t, err)
	var rerr *rherr.Error
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, rherr.Coherence, rerr.Category)
}

// TestStaticIndexKernel is §8 scenario S4: the built Index op
// carries no DynamicIndex path element, and evaluates to a[4].
func TestStaticIndexKernel(t *testing.T) {
	k, ok := Lookup("static_index")
	require.True(t, ok)
	obj, err := k.Build()
	require.NoError(t, err)

	var sawIndex bool
	for _, lop := range obj.Ops {
		if lop.Op.Path != nil {
			sawIndex = true
			require.False(t, lop.Op.Path.HasDynamic())
			require.Equal(t, path.Path{path.IndexOf(4)}, lop.Op.Path)
		}
	}
	require.True(t, sawIndex)

	elems := make([]bits.Value, 8)
	for i := range elems {
		v, err := bits.NewFromInt(kind.NewBits(4), int64(i))
		require.NoError(t, err)
		elems[i] = v
	}
	arr := bits.Concat(elems...)
	arr.Kind = kind.NewArray(kind.NewBits(4), 8)
	got, err := interp.Run(obj, []bits.Value{arr})
	require.NoError(t, err)
	require.Equal(t, elems[4].Bits, got.Bits)

	mod, err := lower.Lower(obj)
	require.NoError(t, err)
	_, err = expand.Expand(mod)
	require.NoError(t, err)
}

// TestTriValueSelectKernel is §8 scenario S5.
func TestTriValueSelectKernel(t *testing.T) {
	k, ok := Lookup("tri_value_select")
	require.True(t, ok)
	obj, err := k.Build()
	require.NoError(t, err)

	got, err := interp.Run(obj, nil)
	require.NoError(t, err)
	require.Equal(t, bits.XOf(kind.NewBits(8)).Bits, got.Bits)
}

// TestSpliceRoundtripKernel is §8 scenario S6, exercised both
// through the MIR interpreter and directly against package bits, which
// must agree.
func TestSpliceRoundtripKernel(t *testing.T) {
	k, ok := Lookup("splice_roundtrip")
	require.True(t, ok)
	obj, err := k.Build()
	require.NoError(t, err)

	outerK := nestedRoundtripKind()
	elemK := outerK.Fields()[1].Kind.Base()

	mkElem := func(p, q int64) bits.Value {
		pv, err := bits.NewFromInt(kind.NewBits(2), p)
		require.NoError(t, err)
		qv, err := bits.NewFromInt(kind.NewBits(3), q)
		require.NoError(t, err)
		e := bits.Concat(pv, qv)
		e.Kind = elemK
		return e
	}
	arr := bits.Concat(mkElem(0, 1), mkElem(2, 3), mkElem(1, 4))
	arr.Kind = outerK.Fields()[1].Kind

	a, err := bits.NewFromInt(kind.NewBits(4), 9)
	require.NoError(t, err)
	v := bits.Concat(a, arr)
	v.Kind = outerK

	got, err := interp.Run(obj, []bits.Value{v})
	require.NoError(t, err)
	require.Equal(t, v.Bits, got.Bits)

	p := path.Path{path.FieldOf("b"), path.IndexOf(1), path.FieldOf("q")}
	sub, err := v.Read(p)
	require.NoError(t, err)
	spliced, err := v.Splice(p, sub)
	require.NoError(t, err)
	require.Equal(t, v.Bits, spliced.Bits)
}
