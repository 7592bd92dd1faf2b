package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	dhttp "github.com/fyrsmithlabs/dartrag/internal/http"
)

var (
	withNews    bool
	withoutNews bool
	searchTopK  int
	previousQ   string
)

func init() {
	for _, c := range []*cobra.Command{queryCmd, batchCmd} {
		c.Flags().BoolVar(&withNews, "news", false, "always include related news")
		c.Flags().BoolVar(&withoutNews, "no-news", false, "never include related news")
		c.MarkFlagsMutuallyExclusive("news", "no-news")
	}
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 5, "number of chunks to return")
	followUpCmd.Flags().StringVar(&previousQ, "previous", "", "the previous question (required)")
	_ = followUpCmd.MarkFlagRequired("previous")

	rootCmd.AddCommand(queryCmd, batchCmd, followUpCmd, searchCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query <document-id> <question>",
	Short: "Ask a question about an indexed document",
	Long: `Ask a question about an indexed document. News is included when the
question looks market related unless --news or --no-news is given.

Examples:
  dartctl query 20240315000123 "올해 매출 전망은 어떤가요?"
  dartctl query 20240315000123 "주요 위험 요인은?" --no-news`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient(serverURL, timeout).query(dhttp.QueryRequest{
			DocumentID:  args[0],
			Question:    args[1],
			IncludeNews: newsOverride(),
		})
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		printAnswer(cmd, resp.Result)
		return nil
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch <document-id> <question>...",
	Short: "Ask several questions at once",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient(serverURL, timeout).batch(dhttp.BatchRequest{
			DocumentID:  args[0],
			Questions:   args[1:],
			IncludeNews: newsOverride(),
		})
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d/%d answered\n", resp.SuccessfulAnswers, resp.TotalQuestions)
		for i, item := range resp.Results {
			fmt.Fprintf(out, "\n[%d] %s\n", i+1, item.Question)
			if !item.Success || item.Result == nil {
				fmt.Fprintf(out, "error: %s\n", item.Error)
				continue
			}
			printAnswer(cmd, *item.Result)
		}
		return nil
	},
}

var followUpCmd = &cobra.Command{
	Use:   "follow-up <document-id>",
	Short: "Suggest follow-up questions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient(serverURL, timeout).followUp(args[0], previousQ)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		for _, q := range resp.FollowUpQuestions {
			fmt.Fprintf(cmd.OutOrStdout(), "- %s\n", q)
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <document-id> <query>",
	Short: "Search chunks of a document by similarity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient(serverURL, timeout).search(args[0], args[1], searchTopK)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		out := cmd.OutOrStdout()
		if resp.Message != "" {
			fmt.Fprintln(out, resp.Message)
		}
		for _, r := range resp.Results {
			fmt.Fprintf(out, "%.3f [%s/%s] %s\n", r.Similarity, r.ChunkType, r.Section, oneLine(r.Content, 120))
		}
		return nil
	},
}

func newsOverride() *bool {
	switch {
	case withNews:
		v := true
		return &v
	case withoutNews:
		v := false
		return &v
	}
	return nil
}

func printAnswer(cmd *cobra.Command, r dhttp.AnalysisResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, r.Answer)
	fmt.Fprintf(out, "\nconfidence %.2f, %d chunks, %.1fs\n", r.Confidence, len(r.RelevantChunks), r.AnalysisTime)
	for _, n := range r.RelatedNews {
		fmt.Fprintf(out, "  news: %s (%s)\n", n.Title, n.Link)
	}
}

func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
