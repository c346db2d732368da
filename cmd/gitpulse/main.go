// Package main provides the entry point for the gitpulse CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gitpulse/gitpulse/cmd/gitpulse/commands"
	"github.com/gitpulse/gitpulse/pkg/version"
)

var (
	verbose bool
	quiet   bool
)

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "gitpulse",
		Short: "Gitpulse - Git commit history analysis and export",
		Long: `Gitpulse extracts commit statistics from local git repositories and
exports them for Elasticsearch ingestion.

Commands:
  analyze   Extract commit history from configured repositories
  emails    Find author emails missing from the identity mapping
  config    Inspect configuration values
  render    Render activity charts from a bulk export
  dashboard Export Grafana dashboard panels as images`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output")

	// Add commands.
	rootCmd.AddCommand(commands.NewAnalyzeCommand())
	rootCmd.AddCommand(commands.NewEmailsCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewRenderCommand())
	rootCmd.AddCommand(commands.NewDashboardCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "gitpulse %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
