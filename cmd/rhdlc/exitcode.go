package main

import (
	"errors"

	"github.com/rhdl-project/rhdlc/rherr"
)

// exitCode is the process exit status rhdlc reports for a failed command,
// distinguishing "the input program is rejected" from "something internal
// went wrong" the way a shell script driving the compiler would want to.
type exitCode int

const (
	exitOK exitCode = iota
	exitSyntax
	exitType
	exitCoherence
	exitOverflow
	exitICE
	exitUsage // cobra/flag errors: unknown kernel, bad --args, wrong arg count
)

// String implements fmt.Stringer.
func (e exitCode) String() string {
	switch e {
	case exitOK:
		return "ok"
	case exitSyntax:
		return "syntax"
	case exitType:
		return "type"
	case exitCoherence:
		return "coherence"
	case exitOverflow:
		return "overflow"
	case exitICE:
		return "ICE"
	case exitUsage:
		return "usage"
	default:
		return "unknown"
	}
}

// exitCodeFor maps a command error to the process exit status: a
// *rherr.Error reports the category it failed with, anything else
// (unknown kernel name, malformed --args) is a usage error.
func exitCodeFor(err error) exitCode {
	if err == nil {
		return exitOK
	}
	var rerr *rherr.Error
	if !errors.As(err, &rerr) {
		return exitUsage
	}
	switch rerr.Category {
	case rherr.Syntax:
		return exitSyntax
	case rherr.Type:
		return exitType
	case rherr.Coherence:
		return exitCoherence
	case rherr.Overflow:
		return exitOverflow
	case rherr.ICE:
		return exitICE
	default:
		return exitUsage
	}
}
