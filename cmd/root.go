// Copyright © 2021 The Lust authors

// Package cmd implements the lust command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lust",
	Short: "Lust — a JIT compiled Lisp",
	Long: `Lust compiles Lisp expressions to native machine code and executes them
immediately.

Getting started:
  lust run file.lust           Compile and run a source file
  lust run -e '(add 1 2)'      Compile and run an expression
  lust repl                    Start an interactive REPL

Language overview:
  Programs are sequences of expressions; the value of the last one is
  printed. Integers, characters (#\a, #\space, #\newline, #\tab), the
  booleans true and false, and the empty list () evaluate to themselves.
  (let ((name expr) ...) body...) binds names lexically, (if c a b)
  branches (only false is falsey), and (fn (args...) body...) builds a
  closure. Pairs are built with cons and taken apart with car and cdr.

Every program compiles in its own session: anonymous functions are lifted
to the top level, all functions are declared before any body is compiled,
and the finished machine code runs in process.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.lust.yaml)")
	rootCmd.PersistentFlags().Int("heap-size", 0, "session heap size in bytes (0 uses the default)")
	rootCmd.PersistentFlags().String("trace", "none",
		`Stage tracing backend: "none", "otel", "opencensus", or "pprof".`)
	must(viper.BindPFlag("heap-size", rootCmd.PersistentFlags().Lookup("heap-size")))
	must(viper.BindPFlag("trace", rootCmd.PersistentFlags().Lookup("trace")))
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".lust" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".lust")
	}

	viper.SetEnvPrefix("lust")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
