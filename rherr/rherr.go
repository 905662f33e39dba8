// Package rherr defines the structured error type shared by every stage of
// the compiler: syntax, type, clock-coherence, internal-compiler-error, and
// overflow diagnostics, each carrying a source span and a typed cause.
package rherr

import "fmt"

// Category classifies an Error per the taxonomy in §7.
type Category int

const (
	// Syntax covers rejected AST shapes: bad patterns, non-constant loop
	// bounds, unmatched enum variants, and similar "given a bad program"
	// problems. Fatal for the compile unit.
	Syntax Category = iota
	// Type covers IR-level invariant violations caught by the type-check
	// pass: width mismatches, wrong signedness, bad casts.
	Type
	// Coherence covers clock-domain mixing detected by package coherence.
	Coherence
	// ICE (internal compiler error) covers any "should not happen" branch:
	// uninitialized register reads, missing literals, missing kinds on a
	// Cast/Wrap, a dangling return slot, Exec arity mismatches.
	ICE
	// Overflow covers a literal that does not fit its declared width.
	Overflow
)

// String implements fmt.Stringer.
func (c Category) String() string {
	switch c {
	case Syntax:
		return "syntax"
	case Type:
		return "type"
	case Coherence:
		return "coherence"
	case ICE:
		return "ICE"
	case Overflow:
		return "overflow"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Span is a source location, carried from symbol-table metadata through to
// diagnostics. A zero Span (File == "") means "no location available",
// which is legitimate for synthetic MIR built directly via mir.Builder
// rather than lowered from source.
type Span struct {
	File        string
	Line, Col   int
	Line2, Col2 int // end of range; zero means "point location"
}

// String implements fmt.Stringer.
func (s Span) String() string {
	if s.File == "" {
		return "<generated>"
	}
	if s.Line2 == 0 && s.Col2 == 0 {
		return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Col)
	}
	return fmt.Sprintf("%s:%d:%d-%d:%d", s.File, s.Line, s.Col, s.Line2, s.Col2)
}

// Error is the one error type returned by every fallible operation in this
// module. Cause is opcode- or check-specific data (e.g. the bits error
// behind a failed Binary op in interp) useful for tests and tooling; it is not
// meant to be type-switched on outside this repository.
type Error struct {
	Category Category
	Span     Span
	Op       string // opcode or check name, e.g. "Binary(Add)", "clock-coherence"
	Message  string
	Cause    error // wrapped underlying error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: [%s] %s: %s", e.Span, e.Category, e.Op, e.Message)
	}
	return fmt.Sprintf("%s: [%s] %s", e.Span, e.Category, e.Message)
}

// Unwrap supports errors.Is/errors.As against Cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an Error. Message is formatted with fmt.Sprintf.
func New(cat Category, span Span, op, format string, args ...any) *Error {
	return &Error{Category: cat, Span: span, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error that carries an underlying cause.
func Wrap(cat Category, span Span, op string, cause error, format string, args ...any) *Error {
	return &Error{Category: cat, Span: span, Op: op, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ICEf is a convenience constructor for Category ICE, used pervasively by
// interp and lower whenever a prior pass's invariant appears violated.
func ICEf(span Span, op, format string, args ...any) *Error {
	return New(ICE, span, op, format, args...)
}
