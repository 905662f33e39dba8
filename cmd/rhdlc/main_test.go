package main

import (
	"testing"

	"github.com/rhdl-project/rhdlc/cmd/rhdlc/kernels"
	"github.com/stretchr/testify/require"
)

func TestParseArgCSV(t *testing.T) {
	k, ok := kernels.Lookup("double")
	require.True(t, ok)
	obj, err := k.Build()
	require.NoError(t, err)

	vals, err := parseArgCSV(obj, "5")
	require.NoError(t, err)
	require.Len(t, vals, 1)

	_, err = parseArgCSV(obj, "5,6")
	require.Error(t, err)

	vals, err = parseArgCSV(obj, "")
	require.NoError(t, err)
	require.Nil(t, vals)
}
