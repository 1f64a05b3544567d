package main

import (
	"fmt"
	"os"

	"github.com/biodoia/marketmind/cmd/backend/commands"
	"github.com/spf13/cobra"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "marketmind",
		Short: "MarketMind - Multi-agent market analysis",
		Long: `MarketMind - Multi-agent market analysis server

A team of AI agents (research, analysis, writing, strategy) coordinated by
a planner that turns a business question into a workflow, grounded on the
user's own documents.

Features:
  • Agent catalog and single agent chat
  • Autonomous workflows with dependency-aware steps and final synthesis
  • Knowledge base context scoped by workspace or project
  • Per-IP rate limiting (memory or Redis)
  • Workflow run history and Prometheus metrics`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config file")

	// Add all commands
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.AgentsCmd)
	rootCmd.AddCommand(commands.WorkflowCmd)
	rootCmd.AddCommand(commands.RunsCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.MigrateCmd)
	rootCmd.AddCommand(commands.DoctorCmd)

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("MarketMind version %s\n", version)
			fmt.Printf("Commit: %s\n", commit)
		},
	})

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
