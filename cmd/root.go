package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Exit codes for the CLI.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// rootCmd is the base command for the gateway binary. It is the entry point
// when the process is run without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "mcpgateway",
	Short: "Multi-tenant MCP gateway",
	Long: `mcpgateway aggregates a fleet of upstream MCP servers behind one
session- and auth-aware endpoint, namespacing their tools into a single
catalog and routing client traffic to the upstream each session is bound to.`,
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. Called from main with
// the build-time version string.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command, exiting the process with a non-zero code
// on failure.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mcpgateway version %s\n" .Version}}`)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCodeError)
	}
}
