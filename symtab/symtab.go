// Package symtab implements the symbol table and slot arenas (C3): a
// compile unit's arena-allocated Literal and Register IDs, backed by
// internal/rhdlapi.Pool, plus the polymorphic metadata attached to each.
package symtab

import (
	"github.com/rhdl-project/rhdlc/bits"
	"github.com/rhdl-project/rhdlc/kind"
	"github.com/rhdl-project/rhdlc/path"
	"github.com/rhdl-project/rhdlc/rherr"
	"github.com/rhdl-project/rhdlc/internal/rhdlapi"
)

// Literal identifies a compile-time constant slot within one Table. IDs
// from different Tables are not interchangeable, but Literal and Register
// are plain indices: neither the type system nor any runtime check stops
// an ID of one Table from being used with another.
type Literal uint32

// Register identifies a mutable (in MIR: SSA-like, single-assignment at
// the value level) slot within one Table.
type Register uint32

// AsPathSlot converts r to the generic path.Slot reference used by
// DynamicIndex path elements.
func (r Register) AsPathSlot() path.Slot { return path.Slot(r) }

// RegisterFromPathSlot is the inverse of Register.AsPathSlot.
func RegisterFromPathSlot(s path.Slot) Register { return Register(s) }

// Meta is metadata attached to any slot: its source span and an optional
// human-readable name (§3).
type Meta struct {
	Span rherr.Span
	Name string
}

type literalRecord struct {
	value bits.Value
	meta  Meta
}

type registerRecord struct {
	kind kind.Kind
	meta Meta
}

// Table is one compile unit's symbol table: two arenas, Literal and
// Register, each monotonically growing except via Retain.
type Table struct {
	unit      uint64 // distinct per Table; no method reads it
	literals  rhdlapi.Pool[literalRecord]
	registers rhdlapi.Pool[registerRecord]
}

var tableCounter uint64

// New returns an empty Table for a fresh compile unit.
func New() *Table {
	tableCounter++
	return &Table{
		unit:      tableCounter,
		literals:  rhdlapi.NewPool[literalRecord](),
		registers: rhdlapi.NewPool[registerRecord](),
	}
}

// InsertLiteral allocates a fresh Literal slot holding value, with meta.
func (t *Table) InsertLiteral(value bits.Value, meta Meta) Literal {
	return Literal(t.literals.Insert(literalRecord{value: value, meta: meta}))
}

// InsertRegister allocates a fresh Register slot of Kind k, with meta.
func (t *Table) InsertRegister(k kind.Kind, meta Meta) Register {
	return Register(t.registers.Insert(registerRecord{kind: k, meta: meta}))
}

// Literal returns the constant value of l. Panics (an ICE at the caller's
// level, since a well-formed MIR never holds a dangling Literal) if l is
// out of range.
func (t *Table) Literal(l Literal) bits.Value {
	return t.literals.View(int(l)).value
}

// LiteralMeta returns the metadata of l.
func (t *Table) LiteralMeta(l Literal) Meta {
	return t.literals.View(int(l)).meta
}

// RegisterKind returns the declared Kind of r.
func (t *Table) RegisterKind(r Register) kind.Kind {
	return t.registers.View(int(r)).kind
}

// RegisterMeta returns the metadata of r.
func (t *Table) RegisterMeta(r Register) Meta {
	return t.registers.View(int(r)).meta
}

// NumLiterals and NumRegisters report arena sizes, used by iteration and by
// interp to size the register file.
func (t *Table) NumLiterals() int  { return t.literals.Allocated() }
func (t *Table) NumRegisters() int { return t.registers.Allocated() }

// IterLiterals calls fn for every Literal in ID order.
func (t *Table) IterLiterals(fn func(Literal, bits.Value, Meta)) {
	for i := 0; i < t.literals.Allocated(); i++ {
		rec := t.literals.View(i)
		fn(Literal(i), rec.value, rec.meta)
	}
}

// IterRegisters calls fn for every Register in ID order.
func (t *Table) IterRegisters(fn func(Register, kind.Kind, Meta)) {
	for i := 0; i < t.registers.Allocated(); i++ {
		rec := t.registers.View(i)
		fn(Register(i), rec.kind, rec.meta)
	}
}

// Remap translates slot IDs from a source Table into a (possibly
// different) destination Table, as produced by Merge or Retain.
type Remap struct {
	literals  map[Literal]Literal
	registers map[Register]Register
}

// Literal translates a source Literal ID.
func (r Remap) Literal(l Literal) (Literal, bool) {
	v, ok := r.literals[l]
	return v, ok
}

// Register translates a source Register ID.
func (r Remap) Register(reg Register) (Register, bool) {
	v, ok := r.registers[reg]
	return v, ok
}

// Merge absorbs other's slots into t, returning a Remap from other's IDs to
// t's new IDs (§3 "merging two tables returns a remapping
// function").
func (t *Table) Merge(other *Table) Remap {
	remap := Remap{literals: make(map[Literal]Literal), registers: make(map[Register]Register)}
	other.IterLiterals(func(l Literal, v bits.Value, m Meta) {
		remap.literals[l] = t.InsertLiteral(v, m)
	})
	other.IterRegisters(func(r Register, k kind.Kind, m Meta) {
		remap.registers[r] = t.InsertRegister(k, m)
	})
	return remap
}

// Retain builds a fresh Table containing only the slots for which keepLit /
// keepReg return true, returning a Remap from the old Table's IDs to the
// new one's (§3: "deletion is done by 'retain' returning a remap").
func (t *Table) Retain(keepLit func(Literal) bool, keepReg func(Register) bool) (*Table, Remap) {
	out := New()
	remap := Remap{literals: make(map[Literal]Literal), registers: make(map[Register]Register)}
	t.IterLiterals(func(l Literal, v bits.Value, m Meta) {
		if keepLit == nil || keepLit(l) {
			remap.literals[l] = out.InsertLiteral(v, m)
		}
	})
	t.IterRegisters(func(r Register, k kind.Kind, m Meta) {
		if keepReg == nil || keepReg(r) {
			remap.registers[r] = out.InsertRegister(k, m)
		}
	})
	return out, remap
}
