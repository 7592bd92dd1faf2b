package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(healthCmd, infoCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check dartrag server health",
	Long: `Check the health of the dartrag server and its vector store.

Examples:
  dartctl health
  dartctl health --server http://localhost:9000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient(serverURL, timeout).health()
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Server Status: %s\n", resp.Status)
		fmt.Fprintf(out, "Server URL:    %s\n", serverURL)
		fmt.Fprintf(out, "Vector DB:     %s", resp.VectorDB.Status)
		if resp.VectorDB.TotalChunks != nil {
			fmt.Fprintf(out, " (%d chunks)", *resp.VectorDB.TotalChunks)
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "News API:      %s\n", resp.NewsAPI.Status)
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show service settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient(serverURL, timeout).info()
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
}
