// Package mirpass orchestrates the fixed-order MIR pass pipeline (C6):
// coherence check, type-check, constant-propagation, dead-code elimination,
// each a total MIR -> (MIR, error) transform that never mutates its input
// Object in place.
package mirpass

import (
	"github.com/golang/glog"
	"github.com/rhdl-project/rhdlc/coherence"
	"github.com/rhdl-project/rhdlc/internal/rhdlapi"
	"github.com/rhdl-project/rhdlc/mir"
	"github.com/rhdl-project/rhdlc/mirpass/constprop"
	"github.com/rhdl-project/rhdlc/mirpass/dce"
	"github.com/rhdl-project/rhdlc/mirpass/typecheck"
)

// Pass transforms a well-formed Object into another well-formed Object.
type Pass func(*mir.Object) (*mir.Object, error)

// Pipeline is the fixed pass order (§4.6): clock-domain coherence
// must run before type-check (it can reject a program type-check alone
// would accept), constant-propagation before dead-code elimination (so
// DCE sees the folded-away operands as unreferenced).
var Pipeline = []Pass{
	CoherenceCheck,
	TypeCheck,
	ConstantPropagation,
	DeadCodeElimination,
}

// CoherenceCheck runs the clock-domain unification checker (package
// coherence) and returns obj unchanged if it accepts.
func CoherenceCheck(obj *mir.Object) (*mir.Object, error) {
	if err := coherence.Check(obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// TypeCheck runs the structural IR type-checker.
func TypeCheck(obj *mir.Object) (*mir.Object, error) {
	if err := typecheck.Check(obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// ConstantPropagation folds ops whose operands are all Literal into a
// single Assign of a freshly-interned literal.
func ConstantPropagation(obj *mir.Object) (*mir.Object, error) {
	before := len(obj.Ops)
	out, err := constprop.Run(obj)
	if err != nil {
		return nil, err
	}
	glog.V(2).Infof("constprop: %s, %d ops considered", obj.Name, before)
	return out, nil
}

// DeadCodeElimination replaces ops whose result is never read with Noop
// ops; the op count is unchanged.
func DeadCodeElimination(obj *mir.Object) (*mir.Object, error) {
	before := len(obj.Ops)
	out, err := dce.Run(obj)
	if err != nil {
		return nil, err
	}
	glog.V(2).Infof("dce: %s, %d -> %d ops", obj.Name, before, len(out.Ops))
	return out, nil
}

// Run applies Pipeline in order, threading the possibly-new Object
// through each stage. When rhdlapi.MIRValidationEnabled is set it calls
// Verify on the input and again on each pass's output, as a cheap
// internal consistency check on the passes themselves.
func Run(obj *mir.Object) (*mir.Object, error) {
	glog.V(1).Infof("mirpass: running pipeline on %s", obj.Name)
	if rhdlapi.MIRValidationEnabled {
		if err := obj.Verify(); err != nil {
			return nil, err
		}
	}
	cur := obj
	for _, p := range Pipeline {
		next, err := p(cur)
		if err != nil {
			glog.V(1).Infof("mirpass: %s failed: %v", obj.Name, err)
			return nil, err
		}
		cur = next
		if rhdlapi.MIRValidationEnabled {
			if err := cur.Verify(); err != nil {
				return nil, err
			}
		}
	}
	glog.V(1).Infof("mirpass: %s passed, %d ops remain", obj.Name, len(cur.Ops))
	return cur, nil
}
