// Lanscout is a DNS-SD / mDNS discovery utility for local networks.
//
// It broadcasts service-discovery queries, collects the responses that
// arrive during a bounded listening window, and aggregates them into one
// entry per responding host. Results are available as plain text, JSON,
// a live terminal view, or a local HTTP/WebSocket API.
//
// Usage:
//
//	lanscout [command] [flags]
//
// Running without arguments launches the interactive browse view.
// See 'lanscout --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tobrk/lanscout/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lanscout",
	Short: "LAN Service Discovery Utility",
	Long: `A utility for discovering hosts and services on the local network
using multicast DNS service discovery.

Broadcasts queries for the requested service types, listens for responses
across a bounded window, and aggregates them into one entry per host.

If no command is specified, the interactive browse view will launch
automatically.`,
	Version: version.Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: run the browse view when no subcommand provided
		return runBrowse(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("lanscout %s (commit: %s)\n", version.Version, version.Commit)
	},
}
