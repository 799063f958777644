package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/heronlancellot/bee2bee/internal/core"
)

var (
	flagBranch      string
	flagUser        string
	flagIncremental bool
)

var indexCmd = &cobra.Command{
	Use:   "index <owner/repo | github URL>",
	Short: "Index a GitHub repository for semantic search",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&flagBranch, "branch", "main", "branch to index")
	indexCmd.Flags().StringVar(&flagUser, "user", "cli", "user id the index is registered to")
	indexCmd.Flags().BoolVar(&flagIncremental, "incremental", false, "re-index even when the repo is already indexed")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	job, err := a.indexer.IndexRepository(ctx, args[0], flagUser, flagBranch, flagIncremental)
	if err != nil {
		return err
	}

	if job.Status == core.JobCompleted {
		fmt.Printf("%s already indexed: %d chunks, access granted to %s\n",
			job.Repo, job.ChunksIndexed, flagUser)
		return nil
	}

	fmt.Printf("indexing %s (job %s)\n", job.Repo, job.JobID)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		j := a.indexer.JobStatus(job.JobID)
		if j == nil {
			return fmt.Errorf("job %s disappeared", job.JobID)
		}

		switch j.Status {
		case core.JobCompleted:
			fmt.Printf("\rdone: %d files, %d chunks indexed\n", j.FilesProcessed, j.ChunksIndexed)
			for _, e := range j.Errors {
				fmt.Println("  warning:", e)
			}
			return nil
		case core.JobFailed:
			fmt.Println()
			for _, e := range j.Errors {
				fmt.Println("  error:", e)
			}
			return fmt.Errorf("indexing %s failed", j.Repo)
		default:
			fmt.Printf("\r%-9s %5.1f%%  files=%d", j.Status, j.Progress*100, j.FilesProcessed)
		}
	}
}
