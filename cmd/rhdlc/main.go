// Command rhdlc is the compiler driver: list the built-in example
// kernels, run one through the full pipeline and dump a chosen stage, or
// run just the coherence/type-check prefix.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/rhdl-project/rhdlc/bits"
	"github.com/rhdl-project/rhdlc/cmd/rhdlc/kernels"
	"github.com/rhdl-project/rhdlc/expand"
	"github.com/rhdl-project/rhdlc/hdl"
	"github.com/rhdl-project/rhdlc/interp"
	"github.com/rhdl-project/rhdlc/lower"
	"github.com/rhdl-project/rhdlc/mir"
	"github.com/rhdl-project/rhdlc/mirpass"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rhdlc",
		Short: "rhdlc — RHDL kernel compiler: MIR -> RTL -> NTL -> HDL",
	}

	rootCmd.AddCommand(kernelsCmd())
	rootCmd.AddCommand(compileCmd())
	rootCmd.AddCommand(checkCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(int(exitCodeFor(err)))
	}
}

func kernelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kernels",
		Short: "List the built-in example kernels",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range kernels.Names() {
				k, _ := kernels.Lookup(name)
				fmt.Printf("%-20s %s\n", k.Name, k.Description)
			}
			return nil
		},
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <kernel>",
		Short: "Run coherence and type-checking only, without lowering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, ok := kernels.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown kernel %q (see `rhdlc kernels`)", args[0])
			}
			obj, err := k.Build()
			if err != nil {
				return err
			}
			if _, err := mirpass.CoherenceCheck(obj); err != nil {
				return err
			}
			if _, err := mirpass.TypeCheck(obj); err != nil {
				return err
			}
			fmt.Printf("%s: ok\n", k.Name)
			return nil
		},
	}
}

func compileCmd() *cobra.Command {
	var dump string
	var argsCSV string

	cmd := &cobra.Command{
		Use:   "compile <kernel>",
		Short: "Run a kernel through the full pipeline and print one stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, cliArgs []string) error {
			k, ok := kernels.Lookup(cliArgs[0])
			if !ok {
				return fmt.Errorf("unknown kernel %q (see `rhdlc kernels`)", cliArgs[0])
			}
			obj, err := k.Build()
			if err != nil {
				return err
			}
			glog.V(1).Infof("compile: %s, dump=%s", k.Name, dump)

			if argVals, err := parseArgCSV(obj, argsCSV); err != nil {
				return err
			} else if argVals != nil {
				result, err := interp.Run(obj, argVals)
				if err != nil {
					return err
				}
				fmt.Printf("result: %s (%s)\n", result.Bits, result.Kind)
			}

			passed, err := mirpass.Run(obj)
			if err != nil {
				return err
			}

			if dump == "mir" {
				fmt.Println(passed.String())
				return nil
			}

			mod, err := lower.Lower(passed)
			if err != nil {
				return err
			}
			if dump == "rtl" {
				fmt.Println(mod.String())
				return nil
			}

			nl, err := expand.Expand(mod)
			if err != nil {
				return err
			}
			if dump == "ntl" {
				fmt.Println(nl.String())
				return nil
			}

			hm, err := hdl.Emit(nl)
			if err != nil {
				return err
			}
			if dump == "hdl" {
				fmt.Println(hm.String())
				return nil
			}
			return fmt.Errorf("unknown --dump stage %q (want mir|rtl|ntl|hdl)", dump)
		},
	}
	cmd.Flags().StringVar(&dump, "dump", "hdl", "pipeline stage to print: mir, rtl, ntl, or hdl")
	cmd.Flags().StringVar(&argsCSV, "args", "", "comma-separated integer argument values; prints the interpreted result before the dump")
	return cmd
}

// parseArgCSV is kept separate from compileCmd so it can be exercised by
// tests without going through cobra.
func parseArgCSV(obj *mir.Object, csv string) ([]bits.Value, error) {
	if csv == "" {
		return nil, nil
	}
	parts := strings.Split(csv, ",")
	if len(parts) != len(obj.Arguments) {
		return nil, fmt.Errorf("--args has %d values, %s takes %d arguments", len(parts), obj.Name, len(obj.Arguments))
	}
	out := make([]bits.Value, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 0, 64)
		if err != nil {
			return nil, fmt.Errorf("--args value %q: %w", p, err)
		}
		k := obj.Symtab.RegisterKind(obj.Arguments[i])
		v, err := bits.NewFromInt(k, n)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
