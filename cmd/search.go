package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	flagRepos      []string
	flagSearchUser string
	flagTopK       int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed repositories with a natural language query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringSliceVar(&flagRepos, "repo", nil, "repository to search (owner/name, repeatable)")
	searchCmd.Flags().StringVar(&flagSearchUser, "user", "cli", "user id the search runs as")
	searchCmd.Flags().IntVar(&flagTopK, "k", 10, "maximum number of results")
	searchCmd.MarkFlagRequired("repo")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	query := strings.Join(args, " ")
	results, err := a.searcher.Search(cmd.Context(), query, flagRepos, flagSearchUser, flagTopK)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Printf("no results for %q\n", query)
		return nil
	}

	for i, r := range results {
		c := r.Chunk
		fmt.Printf("%2d. %s %s (%s) score=%.3f\n", i+1, c.Type, c.Name, c.Language, r.Score)
		fmt.Printf("    %s:%d-%d\n", c.FilePath, c.StartLine, c.EndLine)
		if c.Docstring != "" {
			fmt.Printf("    %s\n", firstLine(c.Docstring))
		}
		if r.FileURL != "" {
			fmt.Printf("    %s\n", r.FileURL)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
