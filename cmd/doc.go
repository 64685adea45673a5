// Copyright © 2021 The Lust authors

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ZekeMedley/lust/docs"
)

// docCmd represents the doc command
var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Print the language reference",
	Long:  `Print the lust language reference to stdout.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(os.Stdout, docs.LangGuide) //nolint:errcheck // best-effort output
	},
}

func init() {
	rootCmd.AddCommand(docCmd)
}
