package mir

import (
	"github.com/rhdl-project/rhdlc/bits"
	"github.com/rhdl-project/rhdlc/kind"
	"github.com/rhdl-project/rhdlc/path"
	"github.com/rhdl-project/rhdlc/rherr"
	"github.com/rhdl-project/rhdlc/symtab"
)

// Builder is the supported way to hand-construct a well-formed Object: it
// allocates result registers and appends located Ops in one step, pairing
// allocation with insertion the way an SSA builder typically does. Every
// With-less append returns the freshly allocated result Register so
// callers can chain operand wiring.
type Builder struct {
	obj *Object
}

// NewBuilder wraps obj for construction. obj is typically freshly built
// with New; Arguments are then declared through the Builder's Argument.
func NewBuilder(obj *Object) *Builder { return &Builder{obj: obj} }

// Object returns the Object under construction.
func (b *Builder) Object() *Object { return b.obj }

// Argument declares a new input Register of Kind k and records it in
// Arguments, in declaration order.
func (b *Builder) Argument(k kind.Kind, name string) symtab.Register {
	r := b.obj.Symtab.InsertRegister(k, symtab.Meta{Name: name})
	b.obj.Arguments = append(b.obj.Arguments, r)
	return r
}

// Literal inserts a compile-time constant and returns its Slot.
func (b *Builder) Literal(v bits.Value, name string) symtab.Slot {
	return symtab.OfLiteral(b.obj.Symtab.InsertLiteral(v, symtab.Meta{Name: name}))
}

func (b *Builder) fresh(k kind.Kind, name string) symtab.Register {
	return b.obj.Symtab.InsertRegister(k, symtab.Meta{Name: name})
}

func (b *Builder) emit(span rherr.Span, op Op) symtab.Register {
	r, _ := op.Lhs.Register()
	b.obj.op(span, op)
	return r
}

// SetReturn marks s as the Object's return slot.
func (b *Builder) SetReturn(s symtab.Slot) { b.obj.ReturnSlot = s }

// Assign emits `lhs = rhs` into a freshly allocated Register: an
// explicit copy rather than a rewiring of every use site.
func (b *Builder) Assign(span rherr.Span, k kind.Kind, rhs symtab.Slot, name string) symtab.Register {
	lhs := b.fresh(k, name)
	return b.emit(span, Op{Opcode: OpAssign, Lhs: symtab.OfRegister(lhs), Arg: rhs})
}

// Binary emits a two-operand arithmetic/bitwise/comparison op.
func (b *Builder) Binary(span rherr.Span, op BinaryOp, k kind.Kind, a, c symtab.Slot, name string) symtab.Register {
	lhs := b.fresh(k, name)
	return b.emit(span, Op{Opcode: OpBinary, Lhs: symtab.OfRegister(lhs), BinOp: op, Arg: a, Arg2: c})
}

// Unary emits a single-operand op.
func (b *Builder) Unary(span rherr.Span, op UnaryOp, k kind.Kind, a symtab.Slot, name string) symtab.Register {
	lhs := b.fresh(k, name)
	return b.emit(span, Op{Opcode: OpUnary, Lhs: symtab.OfRegister(lhs), UnOp: op, Arg: a})
}

// Array emits an Array aggregate construction from elements, in index order.
func (b *Builder) Array(span rherr.Span, k kind.Kind, elements []symtab.Slot, name string) symtab.Register {
	lhs := b.fresh(k, name)
	return b.emit(span, Op{Opcode: OpArray, Lhs: symtab.OfRegister(lhs), Args: elements})
}

// Tuple emits a Tuple aggregate construction, fields in position order.
func (b *Builder) Tuple(span rherr.Span, k kind.Kind, fields []symtab.Slot, name string) symtab.Register {
	lhs := b.fresh(k, name)
	return b.emit(span, Op{Opcode: OpTuple, Lhs: symtab.OfRegister(lhs), Args: fields})
}

// Repeat emits `[value; len]`.
func (b *Builder) Repeat(span rherr.Span, k kind.Kind, value symtab.Slot, len_ int, name string) symtab.Register {
	lhs := b.fresh(k, name)
	return b.emit(span, Op{Opcode: OpRepeat, Lhs: symtab.OfRegister(lhs), Arg: value, Len: len_, HasLen: true})
}

// Struct emits a Struct (or tuple-struct) construction. rest, when
// non-empty, supplies a Register/Literal default for fields not named in
// fields; otherwise template supplies the default bits directly (baked in
// as a fresh Literal) as the "rest slot, else template" fallback.
func (b *Builder) Struct(span rherr.Span, k kind.Kind, fields []FieldAssign, rest symtab.Slot, template bits.Value, name string) symtab.Register {
	lhs := b.fresh(k, name)
	op := Op{Opcode: OpStruct, Lhs: symtab.OfRegister(lhs), StructFields: fields}
	if !rest.IsEmpty() {
		op.Rest, op.HasRest = rest, true
	} else {
		op.Template = b.obj.Symtab.InsertLiteral(template, symtab.Meta{Name: name + ".template"})
	}
	return b.emit(span, op)
}

// Enum emits construction of one named variant of an Enum Kind. template
// is the variant's zero/default encoding (with the discriminant already
// set), baked in as a fresh Literal.
func (b *Builder) Enum(span rherr.Span, k kind.Kind, variant string, fields []FieldAssign, template bits.Value, name string) symtab.Register {
	lhs := b.fresh(k, name)
	tmplLit := b.obj.Symtab.InsertLiteral(template, symtab.Meta{Name: name + ".template"})
	return b.emit(span, Op{Opcode: OpEnum, Lhs: symtab.OfRegister(lhs), Variant: variant, StructFields: fields, Template: tmplLit})
}

// Index emits a structured-path read of arg.
func (b *Builder) Index(span rherr.Span, k kind.Kind, arg symtab.Slot, p path.Path, name string) symtab.Register {
	lhs := b.fresh(k, name)
	return b.emit(span, Op{Opcode: OpIndex, Lhs: symtab.OfRegister(lhs), Arg: arg, Path: p})
}

// Splice emits a structured-path update: orig with subst written at p.
func (b *Builder) Splice(span rherr.Span, k kind.Kind, orig symtab.Slot, p path.Path, subst symtab.Slot, name string) symtab.Register {
	lhs := b.fresh(k, name)
	return b.emit(span, Op{Opcode: OpSplice, Lhs: symtab.OfRegister(lhs), Arg: orig, Path: p, Arg2: subst})
}

// Case emits a table-driven select over discriminant.
func (b *Builder) Case(span rherr.Span, k kind.Kind, discriminant symtab.Slot, arms []CaseArm, name string) symtab.Register {
	lhs := b.fresh(k, name)
	return b.emit(span, Op{Opcode: OpCase, Lhs: symtab.OfRegister(lhs), Arg: discriminant, CaseTable: arms})
}

// Select emits a ternary mux; an X condition yields all-X (§8 S5).
func (b *Builder) Select(span rherr.Span, k kind.Kind, cond, ifTrue, ifFalse symtab.Slot, name string) symtab.Register {
	lhs := b.fresh(k, name)
	return b.emit(span, Op{Opcode: OpSelect, Lhs: symtab.OfRegister(lhs), Arg: cond, Arg2: ifTrue, Arg3: ifFalse})
}

// Cast emits a reinterpretation/resize of arg. len_ is meaningful only for
// Resize.
func (b *Builder) Cast(span rherr.Span, ck CastKind, k kind.Kind, arg symtab.Slot, len_ int, name string) symtab.Register {
	lhs := b.fresh(k, name)
	op := Op{Opcode: OpCast, Lhs: symtab.OfRegister(lhs), Cast: ck, Arg: arg, TargetKind: k, HasTargetKind: true}
	if ck == Resize {
		op.Len, op.HasLen = len_, true
	}
	return b.emit(span, op)
}

// Wrap emits construction of a Result/Option variant around arg.
func (b *Builder) Wrap(span rherr.Span, w WrapOp, k kind.Kind, arg symtab.Slot, name string) symtab.Register {
	lhs := b.fresh(k, name)
	return b.emit(span, Op{Opcode: OpWrap, Lhs: symtab.OfRegister(lhs), Wrap: w, Arg: arg, TargetKind: k, HasTargetKind: true})
}

// Exec emits a call into an external kernel, registered via AddExternal.
func (b *Builder) Exec(span rherr.Span, k kind.Kind, callee CalleeID, args []symtab.Slot, name string) symtab.Register {
	lhs := b.fresh(k, name)
	return b.emit(span, Op{Opcode: OpExec, Lhs: symtab.OfRegister(lhs), Callee: callee, Args: args})
}

// Retime emits an explicit clock-domain retag, optionally imposing color.
func (b *Builder) Retime(span rherr.Span, k kind.Kind, arg symtab.Slot, color *kind.Color, name string) symtab.Register {
	lhs := b.fresh(k, name)
	op := Op{Opcode: OpRetime, Lhs: symtab.OfRegister(lhs), Arg: arg}
	if color != nil {
		op.Color, op.HasColor = *color, true
	}
	return b.emit(span, op)
}

// Comment emits a no-op annotation, preserved through passes for -dump
// readability.
func (b *Builder) Comment(span rherr.Span, text string) {
	b.obj.op(span, Op{Opcode: OpComment, Comment: text})
}

// Noop emits an op with no observable effect. (Package dce writes its
// Noop ops in place directly rather than through this method.)
func (b *Builder) Noop(span rherr.Span) {
	b.obj.op(span, Op{Opcode: OpNoop})
}

// AddExternal registers callee under id so Exec ops can reference it.
func (b *Builder) AddExternal(id CalleeID, callee *Object) {
	b.obj.Externals[id] = callee
}
