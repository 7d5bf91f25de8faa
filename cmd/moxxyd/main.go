// Package main is the moxxyd daemon entry point: it loads the process
// configuration, boots the swarm, and serves the internal control plane
// until signalled to stop (spec.md §3, §9).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during release builds.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "moxxyd",
		Short: "moxxy multi-agent runtime daemon",
		Long: `moxxyd boots a swarm of named agent actors, each with its own
tool catalog, recall store, and model provider, and serves the internal
control-plane HTTP API spec.md describes: dispatching turns, reading
sessions and memory, managing the vault, scheduled jobs, tool servers,
and webhook registrations, and proxying host-side commands.`,
	}

	root.AddCommand(buildServeCmd(), buildVersionCmd())
	return root
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("moxxyd %s (commit %s, built %s)\n", version, commit, date)
			return nil
		},
	}
}
