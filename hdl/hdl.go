// Package hdl implements the structured HDL module emitter (C12): the
// final stage of the pipeline, turning a fully bit-blasted ntl.Netlist
// into ports, declarations, and statements in the shape of a synthesizable
// hardware module. This is NOT a Verilog pretty-printer — hdl.Module's
// String() is a structural debug dump only.
package hdl

import (
	"fmt"
	"strings"

	"github.com/rhdl-project/rhdlc/ntl"
	"github.com/rhdl-project/rhdlc/rherr"
)

// Direction discriminates a Port's data direction.
type Direction uint8

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == In {
		return "input"
	}
	return "output"
}

// Port is one module boundary signal: arg_{i} for each kernel argument,
// and out for the return value (§4.10 naming convention).
type Port struct {
	Name      string
	Direction Direction
	Width     int
}

// DeclKind discriminates a Declaration's storage class.
type DeclKind uint8

const (
	Wire DeclKind = iota
	Reg
)

func (k DeclKind) String() string {
	if k == Reg {
		return "reg"
	}
	return "wire"
}

// Declaration is one internal signal: always width 1, one per ntl.Register,
// named r{index} with an optional alias comment carried over from the
// register's diagnostic Table name for debuggability.
type Declaration struct {
	Name  string
	Kind  DeclKind
	Width int
	Alias string
}

// StmtKind discriminates the Statement sum type.
type StmtKind uint8

const (
	StmtContinuousAssign StmtKind = iota
	StmtAlwaysComb
	StmtInitial
	StmtCase
	StmtBlockingAssign
	StmtInstance
)

func (k StmtKind) String() string {
	names := [...]string{"ContinuousAssign", "AlwaysComb", "Initial", "Case", "BlockingAssign", "Instance"}
	if int(k) < len(names) {
		return names[k]
	}
	return fmt.Sprintf("StmtKind(%d)", int(k))
}

// CaseArm is one arm of a StmtCase: Wild marks the default arm, in which
// case Pattern is ignored.
type CaseArm struct {
	Pattern string
	Wild    bool
	Body    []Statement
}

// Instance binds one submodule's ports to caller-side expressions, used
// both for exec calls and for NTL black boxes.
type Instance struct {
	Name       string
	ModuleName string
	Inputs     []string
	Output     string
}

// Statement is one HDL statement. Only the fields relevant to Kind are
// populated; this mirrors rtl.Op/ntl.Op's flattened-struct convention
// rather than a Stmt interface with per-kind methods.
type Statement struct {
	Kind StmtKind

	// StmtContinuousAssign, StmtBlockingAssign.
	Lhs, Rhs string

	// StmtAlwaysComb, StmtInitial: the statements evaluated together.
	Body []Statement

	// StmtCase.
	Selector string
	Arms     []CaseArm

	// StmtInstance.
	Instance *Instance

	Comment string
}

// Submodule mirrors rtl.Submodule/ntl.Submodule at the HDL level: one
// nested Module definition per externally-called kernel.
type Submodule struct {
	ID     uint32
	Module *Module
}

// Module is one compiled kernel's structured HDL: ports, declarations,
// statements, and nested submodule definitions, produced by Emit from an
// ntl.Netlist.
type Module struct {
	Name         string
	Ports        []Port
	Declarations []Declaration
	Statements   []Statement
	Submodules   []Submodule
}

// Emit lowers nl into a structured HDL Module, recursively emitting every
// submodule the netlist calls.
func Emit(nl *ntl.Netlist) (*Module, error) {
	return emitMemo(nl, map[*ntl.Netlist]*Module{})
}

func emitMemo(nl *ntl.Netlist, memo map[*ntl.Netlist]*Module) (*Module, error) {
	if m, ok := memo[nl]; ok {
		return m, nil
	}
	m := &Module{Name: nl.Name}
	memo[nl] = m

	for i, grp := range nl.Arguments {
		m.Ports = append(m.Ports, Port{Name: fmt.Sprintf("arg_%d", i), Direction: In, Width: len(grp)})
	}
	m.Ports = append(m.Ports, Port{Name: "out", Direction: Out, Width: len(nl.Return)})

	for r := 0; r < nl.Table.NumRegisters(); r++ {
		m.Declarations = append(m.Declarations, Declaration{
			Name:  regName(ntl.Register(r)),
			Kind:  Reg,
			Width: 1,
			Alias: nl.Table.Name(ntl.Register(r)),
		})
	}

	for _, sub := range nl.Submodules {
		subMod, err := emitMemo(sub.NL, memo)
		if err != nil {
			return nil, err
		}
		m.Submodules = append(m.Submodules, Submodule{ID: sub.ID, Module: subMod})
	}

	var body []Statement
	for i, grp := range nl.Arguments {
		for j, reg := range grp {
			body = append(body, Statement{
				Kind: StmtContinuousAssign,
				Lhs:  regName(reg),
				Rhs:  fmt.Sprintf("arg_%d[%d]", i, j),
			})
		}
	}

	for _, lop := range nl.Ops {
		stmts, err := emitOp(lop.Op)
		if err != nil {
			return nil, rherr.Wrap(rherr.ICE, rherr.Span{}, "hdl.Emit", err, "op %q", lop.Label)
		}
		body = append(body, stmts...)
	}

	for i, ref := range nl.Return {
		body = append(body, Statement{
			Kind: StmtContinuousAssign,
			Lhs:  fmt.Sprintf("out[%d]", i),
			Rhs:  refExpr(ref),
		})
	}

	if len(nl.Arguments) == 0 {
		// No inputs read: the body is a compile-time constant, so the whole
		// thing is one initial block of blocking assigns instead of
		// continuous assigns (§4.10).
		m.Statements = []Statement{{Kind: StmtInitial, Body: toBlocking(body)}}
	} else {
		m.Statements = body
	}

	return m, nil
}

func regName(r ntl.Register) string { return fmt.Sprintf("r%d", r) }

func refExpr(ref ntl.Ref) string {
	if r, ok := ref.Register(); ok {
		return regName(r)
	}
	if b, ok := ref.Const(); ok {
		switch b {
		case ntl.Zero:
			return "1'b0"
		case ntl.One:
			return "1'b1"
		default:
			return "1'bx"
		}
	}
	return "1'bz" // Empty ref: no driver.
}

func gateSymbol(g ntl.GateOp) string {
	switch g {
	case ntl.And:
		return "&"
	case ntl.Or:
		return "|"
	default:
		return "^"
	}
}

func vectorSymbol(op ntl.VectorOp) string {
	names := [...]string{"+", "-", "*", "<<", ">>", "==", "!=", "<", "<=", ">", ">="}
	if int(op) < len(names) {
		return names[op]
	}
	return op.String()
}

// reduceSymbol returns the prefix unary operator for a whole-vector Unary
// op; Verilog's reduction operators (&, |, ^) and its arithmetic negate
// (-) are both prefix-unary, so no special-casing is needed at this layer.
func reduceSymbol(op ntl.UnaryVectorOp) (string, bool) {
	switch op {
	case ntl.All:
		return "&", true
	case ntl.Any:
		return "|", true
	case ntl.XorReduce:
		return "^", true
	case ntl.Neg:
		return "-", true
	default:
		return "", false
	}
}

func vecExpr(args []ntl.Ref) string {
	parts := make([]string, len(args))
	for i, r := range args {
		parts[len(args)-1-i] = refExpr(r) // Verilog concat is MSB-first; args are LSB-first.
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func emitOp(op ntl.Op) ([]Statement, error) {
	switch op.Opcode {
	case ntl.OpComment, ntl.OpNoop:
		if op.Comment == "" {
			return nil, nil
		}
		return []Statement{{Kind: StmtContinuousAssign, Comment: op.Comment}}, nil

	case ntl.OpConst:
		return []Statement{{Kind: StmtContinuousAssign, Lhs: regName(op.Lhs), Rhs: refExpr(op.Arg)}}, nil

	case ntl.OpAssign:
		return []Statement{{Kind: StmtContinuousAssign, Lhs: regName(op.Lhs), Rhs: refExpr(op.Arg)}}, nil

	case ntl.OpGate:
		rhs := fmt.Sprintf("%s %s %s", refExpr(op.Arg), gateSymbol(op.Gate), refExpr(op.Arg2))
		return []Statement{{Kind: StmtContinuousAssign, Lhs: regName(op.Lhs), Rhs: rhs}}, nil

	case ntl.OpNot:
		return []Statement{{Kind: StmtContinuousAssign, Lhs: regName(op.Lhs), Rhs: "~" + refExpr(op.Arg)}}, nil

	case ntl.OpSelect:
		rhs := fmt.Sprintf("%s ? %s : %s", refExpr(op.Arg), refExpr(op.Arg2), refExpr(op.Arg3))
		return []Statement{{Kind: StmtContinuousAssign, Lhs: regName(op.Lhs), Rhs: rhs}}, nil

	case ntl.OpVector:
		a, b := op.Args[:op.Len1], op.Args[op.Len1:]
		signed := ""
		if op.Signed {
			signed = "$signed"
		}
		rhs := fmt.Sprintf("%s%s %s %s%s", signed, vecExpr(a), vectorSymbol(op.VecOp), signed, vecExpr(b))
		return []Statement{{Kind: StmtContinuousAssign, Lhs: regName(op.Lhs), Rhs: rhs, Comment: "vector op, other output bits alias this one"}}, nil

	case ntl.OpUnary:
		sym, ok := reduceSymbol(op.UnOp)
		if !ok {
			return nil, rherr.ICEf(rherr.Span{}, "hdl.emitOp", "unhandled unary vector op %s", op.UnOp)
		}
		return []Statement{{Kind: StmtContinuousAssign, Lhs: regName(op.Lhs), Rhs: sym + vecExpr(op.Args)}}, nil

	case ntl.OpCase:
		arms := make([]CaseArm, len(op.CaseTable))
		for i, arm := range op.CaseTable {
			body := []Statement{{Kind: StmtBlockingAssign, Lhs: regName(op.Lhs), Rhs: refExpr(arm.Value)}}
			if arm.Wild {
				arms[i] = CaseArm{Wild: true, Body: body}
				continue
			}
			arms[i] = CaseArm{Pattern: patternLiteral(arm.Pattern), Body: body}
		}
		caseStmt := Statement{Kind: StmtCase, Selector: vecExpr(op.Discriminant), Arms: arms}
		return []Statement{{Kind: StmtAlwaysComb, Body: []Statement{caseStmt}}}, nil

	case ntl.OpDFF:
		return []Statement{{Kind: StmtContinuousAssign, Comment: "reserved: sequential element, no current lowering reaches this"}}, nil

	case ntl.OpBlackBox:
		inst := &Instance{Name: fmt.Sprintf("inst_%s", regName(op.Lhs)), ModuleName: "black_box", Output: regName(op.Lhs)}
		for _, a := range op.Args {
			inst.Inputs = append(inst.Inputs, refExpr(a))
		}
		return []Statement{{Kind: StmtInstance, Instance: inst, Comment: op.Comment}}, nil

	default:
		return nil, rherr.ICEf(rherr.Span{}, "hdl.emitOp", "unhandled ntl opcode %s", op.Opcode)
	}
}

func patternLiteral(bs []ntl.Bit) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d'b", len(bs)))
	for i := len(bs) - 1; i >= 0; i-- {
		sb.WriteString(bs[i].String())
	}
	return sb.String()
}

// toBlocking rewrites a flat list of continuous assigns into blocking
// assigns for use inside an initial/always body. A StmtCase is left
// as-is since it already carries blocking assigns; a StmtAlwaysComb is
// replaced by its first body statement (its Case).
func toBlocking(stmts []Statement) []Statement {
	out := make([]Statement, len(stmts))
	for i, s := range stmts {
		if s.Kind == StmtContinuousAssign && s.Lhs != "" {
			s.Kind = StmtBlockingAssign
		}
		if s.Kind == StmtAlwaysComb {
			out[i] = s.Body[0] // unwrap the always-comb to its Case
			continue
		}
		out[i] = s
	}
	return out
}

func New(name string) *Module { return &Module{Name: name} }

// String renders m as an indented structural dump: ports, declarations,
// then statements. Not a Verilog pretty-printer — purely for --dump=hdl
// debug output and golden-style test assertions (§4.10).
func (m *Module) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "module %s\n", m.Name)
	for _, p := range m.Ports {
		fmt.Fprintf(&sb, "\t%s [%d] %s\n", p.Direction, p.Width, p.Name)
	}
	for _, d := range m.Declarations {
		alias := ""
		if d.Alias != "" {
			alias = fmt.Sprintf(" // %s", d.Alias)
		}
		fmt.Fprintf(&sb, "\t%s [%d] %s%s\n", d.Kind, d.Width, d.Name, alias)
	}
	for _, s := range m.Statements {
		writeStatement(&sb, s, 1)
	}
	for _, sub := range m.Submodules {
		fmt.Fprintf(&sb, "\tsubmodule %d:\n", sub.ID)
		for _, line := range strings.Split(sub.Module.String(), "\n") {
			if line == "" {
				continue
			}
			fmt.Fprintf(&sb, "\t%s\n", line)
		}
	}
	return sb.String()
}

func writeStatement(sb *strings.Builder, s Statement, depth int) {
	indent := strings.Repeat("\t", depth)
	switch s.Kind {
	case StmtContinuousAssign:
		if s.Lhs == "" {
			if s.Comment != "" {
				fmt.Fprintf(sb, "%s// %s\n", indent, s.Comment)
			}
			return
		}
		fmt.Fprintf(sb, "%sassign %s = %s;", indent, s.Lhs, s.Rhs)
		if s.Comment != "" {
			fmt.Fprintf(sb, " // %s", s.Comment)
		}
		sb.WriteByte('\n')
	case StmtBlockingAssign:
		fmt.Fprintf(sb, "%s%s = %s;\n", indent, s.Lhs, s.Rhs)
	case StmtAlwaysComb:
		fmt.Fprintf(sb, "%salways @ *\n", indent)
		for _, b := range s.Body {
			writeStatement(sb, b, depth+1)
		}
	case StmtInitial:
		fmt.Fprintf(sb, "%sinitial\n", indent)
		for _, b := range s.Body {
			writeStatement(sb, b, depth+1)
		}
	case StmtCase:
		fmt.Fprintf(sb, "%scase (%s)\n", indent, s.Selector)
		for _, arm := range s.Arms {
			if arm.Wild {
				fmt.Fprintf(sb, "%sdefault:\n", indent+"\t")
			} else {
				fmt.Fprintf(sb, "%s%s:\n", indent+"\t", arm.Pattern)
			}
			for _, b := range arm.Body {
				writeStatement(sb, b, depth+2)
			}
		}
		fmt.Fprintf(sb, "%sendcase\n", indent)
	case StmtInstance:
		inst := s.Instance
		fmt.Fprintf(sb, "%s%s %s(%s) -> %s;\n", indent, inst.ModuleName, inst.Name, strings.Join(inst.Inputs, ", "), inst.Output)
	}
}
