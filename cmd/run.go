// Copyright © 2021 The Lust authors

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ZekeMedley/lust/lust"
	"github.com/ZekeMedley/lust/parser"
)

var runExpression bool

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compile and run lust code",
	Long: `Compile and run lust code supplied via the command line or files.

Each argument compiles and executes as its own program; the value of its
last expression is printed to stdout.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := compileOptions()
		if err != nil {
			return err
		}
		sources, err := runReadSources(args)
		if err != nil {
			return err
		}
		for i, src := range sources {
			exprs, err := parser.Parse(sourceName(args[i]), src)
			if err != nil {
				return err
			}
			result, err := lust.RoundtripProgram(exprs, opts...)
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, result) //nolint:errcheck // best-effort output
		}
		return nil
	},
}

func sourceName(arg string) string {
	if runExpression {
		return "argument"
	}
	return arg
}

func runReadSources(args []string) ([][]byte, error) {
	sources := make([][]byte, len(args))
	if runExpression {
		for i := range args {
			sources[i] = []byte(args[i])
		}
		return sources, nil
	}
	for i, path := range args {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		sources[i] = b
	}
	return sources, nil
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVarP(&runExpression, "expression", "e", false,
		"Interpret arguments as lust expressions")
}
