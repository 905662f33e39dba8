package main

import (
	"errors"
	"testing"

	"github.com/rhdl-project/rhdlc/rherr"
	"github.com/stretchr/testify/require"
)

func TestExitCodeForNil(t *testing.T) {
	require.Equal(t, exitOK, exitCodeFor(nil))
}

func TestExitCodeForCategories(t *testing.T) {
	cases := []struct {
		cat  rherr.Category
		want exitCode
	}{
		{rherr.Syntax, exitSyntax},
		{rherr.Type, exitType},
		{rherr.Coherence, exitCoherence},
		{rherr.Overflow, exitOverflow},
		{rherr.ICE, exitICE},
	}
	for _, c := range cases {
		err := rherr.New(c.cat, rherr.Span{}, "op", "boom")
		require.Equal(t, c.want, exitCodeFor(err))
	}
}

func TestExitCodeForUsageError(t *testing.T) {
	require.Equal(t, exitUsage, exitCodeFor(errors.New("unknown kernel")))
}
