// Package commands implements the crispctl CLI commands.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// outputFormat controls the output format for commands that print
// structured data: table or json.
var outputFormat string

// backendName backs the root --backend persistent flag. The protect and
// unprotect commands define their own local --backend flag, which takes
// precedence, and no command reads backendName.
var backendName string

// rootCmd is the top-level cobra command for crispctl.
var rootCmd = &cobra.Command{
	Use:   "crispctl",
	Short: "Build, parse, and verify CRISP secure datagrams",
	Long:  "crispctl operates entirely locally: it builds and parses CRISP datagrams using the in-process crisp core, without talking to a running crispd daemon.",
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table",
		"output format: table, json")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "dummy",
		"crypto backend: dummy, aesref")

	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(protectCmd())
	rootCmd.AddCommand(unprotectCmd())
	rootCmd.AddCommand(versionCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
