// Copyright © 2021 The Lust authors

package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ZekeMedley/lust/repl"
)

// replCmd represents the repl command
var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive lust REPL",
	Long: `Start an interactive read-compile-execute loop.

Every submitted form compiles to machine code and runs in a fresh session,
so definitions do not persist between lines. Line editing and in-session
command history are supported via readline. Use Ctrl-D to exit.

Example REPL session:
  lust> (add 1 2)
  3
  lust> (let ((double (fn (x) (mul x 2)))) (double 21))
  42
  lust> (cons 1 (cons 2 ()))
  (1 (2 ()))`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := compileOptions()
		if err != nil {
			return err
		}
		repl.RunRepl(filepath.Base(os.Args[0])+"> ",
			repl.WithCompileOptions(opts...))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}
