package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"

	dhttp "github.com/fyrsmithlabs/dartrag/internal/http"
	"github.com/fyrsmithlabs/dartrag/internal/tasks"
)

var (
	indexCorpName string
	indexWait     bool
	pollInterval  time.Duration
)

func init() {
	indexCmd.Flags().StringVar(&indexCorpName, "corp", "", "company name (required)")
	indexCmd.Flags().BoolVar(&indexWait, "wait", false, "poll until the task finishes")
	indexCmd.Flags().DurationVar(&pollInterval, "interval", 2*time.Second, "polling interval with --wait")
	_ = indexCmd.MarkFlagRequired("corp")

	rootCmd.AddCommand(indexCmd, statusCmd, summaryCmd, chunksCmd, statsCmd, deleteCmd)
}

var indexCmd = &cobra.Command{
	Use:   "index <document-id> <file>",
	Short: "Submit a disclosure text file for indexing",
	Long: `Submit a disclosure file for background indexing. The path is resolved
on the server, so it must be readable by the dartrag process.

Examples:
  # Index and return immediately
  dartctl index 20240315000123 ./data/samsung.txt --corp 삼성전자

  # Index and wait for completion
  dartctl index 20240315000123 ./data/samsung.txt --corp 삼성전자 --wait`,
	Args: cobra.ExactArgs(2),
	RunE: runIndex,
}

var statusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Show an indexing task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := newClient(serverURL, timeout).status(args[0])
		if err != nil {
			return err
		}
		return printTask(cmd, task)
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary <document-id>",
	Short: "Print the summary of an indexed document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sum, err := newClient(serverURL, timeout).summary(args[0])
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), sum)
		}
		fmt.Fprintln(cmd.OutOrStdout(), sum.Markdown())
		return nil
	},
}

var chunksCmd = &cobra.Command{
	Use:   "chunks <document-id>",
	Short: "List chunk previews of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient(serverURL, timeout).chunks(args[0])
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d chunks\n", resp.DocumentID, resp.TotalChunks)
		for _, c := range resp.Chunks {
			fmt.Fprintf(out, "- [%s/%s] %s\n  %s\n", c.ChunkType, c.Section, c.ChunkID, c.ContentPreview)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show vector store and task statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient(serverURL, timeout).stats()
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Delete a document's chunks, tasks and summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient(serverURL, timeout).remove(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
		return nil
	},
}

func runIndex(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[1])
	if err != nil {
		return fmt.Errorf("resolve %s: %w", args[1], err)
	}

	c := newClient(serverURL, timeout)
	resp, err := c.index(dhttp.IndexRequest{DocumentID: args[0], CorpName: indexCorpName, FilePath: path})
	if err != nil {
		return err
	}
	if !indexWait {
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\ntask: %s\n", resp.Message, resp.TaskID)
		return nil
	}

	task, err := waitForTask(cmd.Context(), c, resp.TaskID, pollInterval, timeout)
	if err != nil {
		return err
	}
	if err := printTask(cmd, task); err != nil {
		return err
	}
	if task.Status == tasks.StatusFailed {
		return errors.New("indexing failed")
	}
	return nil
}

// waitForTask polls until the task reaches a terminal status or maxWait
// elapses.
func waitForTask(ctx context.Context, c *client, taskID string, interval, maxWait time.Duration) (tasks.Task, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var task tasks.Task
	backoff := retry.WithMaxDuration(maxWait, retry.NewConstant(interval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		t, err := c.status(taskID)
		if err != nil {
			var apiErr *apiError
			if errors.As(err, &apiErr) {
				return err
			}
			return retry.RetryableError(err)
		}
		task = t
		if !t.Status.Terminal() {
			return retry.RetryableError(fmt.Errorf("task %s is %s", taskID, t.Status))
		}
		return nil
	})
	return task, err
}

func printTask(cmd *cobra.Command, t tasks.Task) error {
	if jsonOut {
		return printJSON(cmd.OutOrStdout(), t)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "task:     %s\n", t.ID)
	fmt.Fprintf(out, "document: %s\n", t.DocumentID)
	fmt.Fprintf(out, "status:   %s\n", t.Status)
	if t.TotalChunks != nil {
		fmt.Fprintf(out, "chunks:   %d", *t.TotalChunks)
		if t.DegradedChunks > 0 {
			fmt.Fprintf(out, " (%d without embeddings)", t.DegradedChunks)
		}
		fmt.Fprintln(out)
	}
	if t.ProcessingTime != nil {
		fmt.Fprintf(out, "elapsed:  %.1fs\n", *t.ProcessingTime)
	}
	if t.ErrorMessage != "" {
		fmt.Fprintf(out, "error:    %s\n", t.ErrorMessage)
	}
	if t.Summary != nil {
		fmt.Fprintf(out, "\n%s\n", t.Summary.Markdown())
	}
	return nil
}
