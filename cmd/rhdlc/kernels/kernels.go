// Package kernels is a hand-built registry standing in for the
// (out-of-scope) macro/reflection front end: each entry constructs a
// *mir.Object directly through mir.Builder, hand-building the IR graph
// the same way a graph-construction test harness would. rhdlc's
// compile/check/kernels subcommands operate on these.
package kernels

import (
	"fmt"
	"sort"

	"github.com/rhdl-project/rhdlc/bits"
	"github.com/rhdl-project/rhdlc/kind"
	"github.com/rhdl-project/rhdlc/mir"
	"github.com/rhdl-project/rhdlc/path"
	"github.com/rhdl-project/rhdlc/rherr"
	"github.com/rhdl-project/rhdlc/symtab"
)

// Kernel is one registered example, built on demand so every lookup gets
// its own fresh Object and Table.
type Kernel struct {
	Name        string
	Description string
	Build       func() (*mir.Object, error)
}

var registry = map[string]Kernel{}

func register(k Kernel) {
	if _, dup := registry[k.Name]; dup {
		panic(fmt.Sprintf("kernels: duplicate registration %q", k.Name))
	}
	registry[k.Name] = k
}

// Lookup returns the named kernel.
func Lookup(name string) (Kernel, bool) {
	k, ok := registry[name]
	return k, ok
}

// Names returns every registered kernel name, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func init() {
	register(Kernel{
		Name:        "double",
		Description: "fn double(a: b8) -> b8 { a + a }",
		Build:       buildDouble,
	})
	register(Kernel{
		Name:        "simple_enum_match",
		Description: "match over SimpleEnum{Init, Run(u8), Point{x:b4,y:u8}, Boom}",
		Build:       buildSimpleEnumMatch,
	})
	register(Kernel{
		Name:        "add_coherent",
		Description: "fn add(x: Sig<b8,C>, y: Sig<b8,C>) -> Sig<b8,C> { val(x) + val(y) }, same domain",
		Build:       buildAddCoherent,
	})
	register(Kernel{
		Name:        "add_incoherent",
		Description: "fn add(x: Sig<b8,C>, y: Sig<b8,D>) -> Sig<b8,C> { val(x) + val(y) }, mismatched domains",
		Build:       buildAddIncoherent,
	})
	register(Kernel{
		Name:        "static_index",
		Description: "fn foo(a: [b4; 8]) -> b4 { let c = 3; a[c + 1] }, folded to a[4] at construction",
		Build:       buildStaticIndex,
	})
	register(Kernel{
		Name:        "tri_value_select",
		Description: "Select{cond: X, true: 0xAA, false: 0x55} -> all-X",
		Build:       buildTriValueSelect,
	})
	register(Kernel{
		Name:        "splice_roundtrip",
		Description: "splice(v, p, read(v, p)) == v for a nested struct/array Kind",
		Build:       buildSpliceRoundtrip,
	})
}

// buildDouble is §8 scenario S1: applying it to a = 0x05 yields
// 0x0A, and since both operands are the same register, constant
// propagation over a literal argument leaves no Binary op behind.
func buildDouble() (*mir.Object, error) {
	obj := mir.New("double", 1)
	b := mir.NewBuilder(obj)
	a := b.Argument(kind.NewBits(8), "a")
	sum := b.Binary(rherr.Span{}, mir.Add, kind.NewBits(8), symtab.OfRegister(a), symtab.OfRegister(a), "sum")
	b.SetReturn(symtab.OfRegister(sum))
	if err := obj.Verify(); err != nil {
		return nil, err
	}
	return obj, nil
}

// simpleEnumKind builds SimpleEnum{Init, Run(u8), Point{x:b4,y:u8}, Boom}
// with the discriminant layout named in §8 scenario S2: width 2,
// Lsb-aligned, unsigned.
func simpleEnumKind() kind.Kind {
	layout := kind.DiscriminantLayout{Width: 2, Alignment: kind.Lsb, Signedness: false}
	point := kind.NewStruct("Point",
		kind.Field{Name: "x", Kind: kind.NewBits(4)},
		kind.Field{Name: "y", Kind: kind.NewBits(8)},
	)
	return kind.NewEnum("SimpleEnum", layout,
		kind.Variant{Name: "Init", Discriminant: 0, Payload: kind.Kind{}},
		kind.Variant{Name: "Run", Discriminant: 1, Payload: kind.NewBits(8)},
		kind.Variant{Name: "Point", Discriminant: 2, Payload: point},
		kind.Variant{Name: "Boom", Discriminant: 3, Payload: kind.Kind{}},
	)
}

// buildSimpleEnumMatch is §8 scenario S2. It matches a SimpleEnum
// argument on its discriminant, returning Init -> 1, Run(n) -> n,
// Point{x,y} -> y, Boom -> 7. Running it through interp.Run with Run(7),
// Point{x:1,y:2}, Init and Boom reproduces 7, 2, 1 and 7 respectively.
func buildSimpleEnumMatch() (*mir.Object, error) {
	ek := simpleEnumKind()
	obj := mir.New("simple_enum_match", 1)
	b := mir.NewBuilder(obj)
	span := rherr.Span{}
	u8 := kind.NewBits(8)

	e := b.Argument(ek, "e")
	eSlot := symtab.OfRegister(e)
	disc := b.Index(span, kind.NewBits(2), eSlot, path.Path{path.EnumDiscriminantOf()}, "disc")

	initVal, err := bits.NewFromInt(u8, 1)
	if err != nil {
		return nil, err
	}
	boomVal, err := bits.NewFromInt(u8, 7)
	if err != nil {
		return nil, err
	}
	initLit := b.Literal(initVal, "init_result")
	boomLit := b.Literal(boomVal, "boom_result")

	run := b.Index(span, u8, eSlot, path.Path{path.EnumPayloadOf("Run")}, "run_payload")
	pointY := b.Index(span, u8, eSlot, path.Path{path.EnumPayloadOf("Point"), path.FieldOf("y")}, "point_y")

	discLit := func(v int64) (symtab.Literal, error) {
		val, err := bits.NewFromInt(kind.NewBits(2), v)
		if err != nil {
			return 0, err
		}
		slot := b.Literal(val, fmt.Sprintf("disc_%d", v))
		lit, _ := slot.Literal()
		return lit, nil
	}
	lit0, err := discLit(0)
	if err != nil {
		return nil, err
	}
	lit1, err := discLit(1)
	if err != nil {
		return nil, err
	}
	lit2, err := discLit(2)
	if err != nil {
		return nil, err
	}
	lit3, err := discLit(3)
	if err != nil {
		return nil, err
	}

	arms := []mir.CaseArm{
		{Pattern: mir.CaseArgument{Kind: mir.CaseLiteral, Literal: lit0}, Value: initLit},
		{Pattern: mir.CaseArgument{Kind: mir.CaseLiteral, Literal: lit1}, Value: symtab.OfRegister(run)},
		{Pattern: mir.CaseArgument{Kind: mir.CaseLiteral, Literal: lit2}, Value: symtab.OfRegister(pointY)},
		{Pattern: mir.CaseArgument{Kind: mir.CaseLiteral, Literal: lit3}, Value: boomLit},
	}
	result := b.Case(span, u8, symtab.OfRegister(disc), arms, "result")
	b.SetReturn(symtab.OfRegister(result))
	if err := obj.Verify(); err != nil {
		return nil, err
	}
	return obj, nil
}

// buildAdd is the shared body for §8 scenario S3:
// fn add<C,D>(x: Sig<b8,C>, y: Sig<b8,D>) -> Sig<b8,C> { val(x) + val(y) }.
// val() is erased at construction time: Binary's operand-equality rule
// ignores Signal wrapping, so x and y are fed to Binary directly and
// package coherence is the one place their domains are compared.
func buildAdd(cx, cy kind.Color) (*mir.Object, error) {
	obj := mir.New("add", 1)
	b := mir.NewBuilder(obj)
	span := rherr.Span{}
	b8 := kind.NewBits(8)

	x := b.Argument(kind.NewSignal(b8, cx), "x")
	y := b.Argument(kind.NewSignal(b8, cy), "y")
	sum := b.Binary(span, mir.Add, kind.NewSignal(b8, cx), symtab.OfRegister(x), symtab.OfRegister(y), "sum")
	b.SetReturn(symtab.OfRegister(sum))
	if err := obj.Verify(); err != nil {
		return nil, err
	}
	return obj, nil
}

// buildAddCoherent builds S3 with C == D: package coherence accepts it.
func buildAddCoherent() (*mir.Object, error) {
	c := kind.NewColor("C")
	return buildAdd(c, c)
}

// buildAddIncoherent builds S3 with C != D: obj.Verify() still accepts
// it (domain mixing is not a well-formedness defect), but
// coherence.Check rejects it, naming both domains with the span where
// each was first seen.
func buildAddIncoherent() (*mir.Object, error) {
	return buildAdd(kind.NewColor("C"), kind.NewColor("D"))
}

// buildStaticIndex is §8 scenario S4. "let c = 3; a[c + 1]" folds
// to a static index before any MIR exists: a front end would resolve c
// during lowering, since it is a prior binding to a literal, never
// emitting a register for it. The built Index op addresses bits [16,20)
// of the 32-bit array directly, with no DynamicIndex path element.
func buildStaticIndex() (*mir.Object, error) {
	obj := mir.New("static_index", 1)
	b := mir.NewBuilder(obj)
	span := rherr.Span{}
	b4 := kind.NewBits(4)
	arr := kind.NewArray(b4, 8)

	a := b.Argument(arr, "a")
	elem := b.Index(span, b4, symtab.OfRegister(a), path.Path{path.IndexOf(4)}, "elem")
	b.SetReturn(symtab.OfRegister(elem))
	if err := obj.Verify(); err != nil {
		return nil, err
	}
	return obj, nil
}

// buildTriValueSelect is §8 scenario S5: a Select whose condition
// is all-X yields an all-X result of the branch width, regardless of
// what the true/false branches hold.
func buildTriValueSelect() (*mir.Object, error) {
	obj := mir.New("tri_value_select", 1)
	b := mir.NewBuilder(obj)
	span := rherr.Span{}
	b8 := kind.NewBits(8)

	condX := bits.XOf(kind.NewBits(1))
	trueVal, err := bits.NewFromInt(b8, 0xAA)
	if err != nil {
		return nil, err
	}
	falseVal, err := bits.NewFromInt(b8, 0x55)
	if err != nil {
		return nil, err
	}
	cond := b.Literal(condX, "cond")
	t := b.Literal(trueVal, "true_branch")
	f := b.Literal(falseVal, "false_branch")

	result := b.Select(span, b8, cond, t, f, "result")
	b.SetReturn(symtab.OfRegister(result))
	if err := obj.Verify(); err != nil {
		return nil, err
	}
	return obj, nil
}

// nestedRoundtripKind is Struct{a: b4, b: Array<Struct{p:b2, q:b3}, 3>}.
func nestedRoundtripKind() kind.Kind {
	elem := kind.NewStruct("Elem",
		kind.Field{Name: "p", Kind: kind.NewBits(2)},
		kind.Field{Name: "q", Kind: kind.NewBits(3)},
	)
	return kind.NewStruct("Outer",
		kind.Field{Name: "a", Kind: kind.NewBits(4)},
		kind.Field{Name: "b", Kind: kind.NewArray(elem, 3)},
	)
}

// buildSpliceRoundtrip is §8 scenario S6, at one representative
// path (b[1].q): splice(v, p, read(v, p)) reproduces v bit for bit, for
// every well-typed v and p, not only this one.
func buildSpliceRoundtrip() (*mir.Object, error) {
	obj := mir.New("splice_roundtrip", 1)
	b := mir.NewBuilder(obj)
	span := rherr.Span{}
	k := nestedRoundtripKind()
	p := path.Path{path.FieldOf("b"), path.IndexOf(1), path.FieldOf("q")}

	v := b.Argument(k, "v")
	vSlot := symtab.OfRegister(v)
	read := b.Index(span, kind.NewBits(3), vSlot, p, "read")
	spliced := b.Splice(span, k, vSlot, p, symtab.OfRegister(read), "spliced")
	b.SetReturn(symtab.OfRegister(spliced))
	if err := obj.Verify(); err != nil {
		return nil, err
	}
	return obj, nil
}
