// Package main implements dartctl, a CLI for the dartrag HTTP API.
package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL of the dartrag server
	serverURL string
	timeout   time.Duration
	jsonOut   bool

	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dartctl",
	Short: "CLI for dartrag disclosure analysis",
	Long: `dartctl talks to a running dartrag server. It submits DART disclosure
files for indexing, polls indexing tasks, and asks questions about indexed
documents.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("DARTRAG_URL", "http://localhost:8000"), "dartrag server URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "request timeout")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print raw JSON responses")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
