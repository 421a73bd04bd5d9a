package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "aggregator",
		Short:         "Job board aggregation service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// A missing .env is fine; the real environment wins either way.
			_ = godotenv.Load()
		},
	}
	root.AddCommand(newServeCmd(), newScrapeCmd(), newCleanupCmd())
	return root
}
