package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/heronlancellot/bee2bee/internal/core"
	"github.com/heronlancellot/bee2bee/internal/indexer"
	"github.com/heronlancellot/bee2bee/internal/search"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing indexing and code search tools",
	RunE:  runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	s := mcpserver.NewMCPServer("bee2bee", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(indexRepositoryTool(), makeIndexHandler(a.indexer))
	s.AddTool(getJobStatusTool(), makeJobStatusHandler(a.indexer))
	s.AddTool(searchCodeTool(), makeSearchHandler(a.searcher))

	a.logger.Info("mcp server listening on stdio")
	return mcpserver.ServeStdio(s)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func indexRepositoryTool() mcp.Tool {
	return mcp.NewTool("index_repository",
		mcp.WithDescription("Index a GitHub repository for semantic code search. Returns a job id to poll with get_job_status. If the repository is already indexed the caller is granted access immediately."),
		mcp.WithString("repo_url",
			mcp.Required(),
			mcp.Description("Repository as owner/name or a github.com URL"),
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("User the index is registered to"),
		),
		mcp.WithString("branch",
			mcp.Description("Branch to index (default main)"),
		),
		mcp.WithBoolean("incremental",
			mcp.Description("Re-index even when the repository is already indexed"),
		),
	)
}

func getJobStatusTool() mcp.Tool {
	return mcp.NewTool("get_job_status",
		mcp.WithDescription("Get the status, progress, and errors of an indexing job."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("Job id returned by index_repository"),
		),
	)
}

func searchCodeTool() mcp.Tool {
	return mcp.NewTool("search_code",
		mcp.WithDescription("Semantically search indexed repositories. Returns ranked code chunks with file locations and source links."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language description of the code to find"),
		),
		mcp.WithArray("repos",
			mcp.Required(),
			mcp.Description("Repositories to search, each as owner/name or a github.com URL"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("User the search runs as; repositories they cannot read are skipped"),
		),
		mcp.WithNumber("k",
			mcp.Description("Maximum number of results (default 10)"),
		),
	)
}

// --- Handler factories ---

func makeIndexHandler(orch *indexer.Orchestrator) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		repoURL := req.GetString("repo_url", "")
		userID := req.GetString("user_id", "")
		if repoURL == "" || userID == "" {
			return mcp.NewToolResultError("repo_url and user_id are required"), nil
		}
		branch := req.GetString("branch", "main")
		incremental := req.GetBool("incremental", false)

		job, err := orch.IndexRepository(ctx, repoURL, userID, branch, incremental)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("index failed: %v", err)), nil
		}
		return jobResult(job)
	}
}

func makeJobStatusHandler(orch *indexer.Orchestrator) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobID := req.GetString("job_id", "")
		if jobID == "" {
			return mcp.NewToolResultError("job_id is required"), nil
		}
		job := orch.JobStatus(jobID)
		if job == nil {
			return mcp.NewToolResultError(fmt.Sprintf("unknown job %q", jobID)), nil
		}
		return jobResult(job)
	}
}

func makeSearchHandler(svc *search.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		userID := req.GetString("user_id", "")
		if query == "" || userID == "" {
			return mcp.NewToolResultError("query and user_id are required"), nil
		}
		repos := req.GetStringSlice("repos", nil)
		if len(repos) == 0 {
			return mcp.NewToolResultError("repos is required"), nil
		}
		k := req.GetInt("k", 10)

		results, err := svc.Search(ctx, query, repos, userID, k)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return mcp.NewToolResultText(formatSearchResults(query, results)), nil
	}
}

// --- Formatting helpers ---

func jobResult(job *core.IndexingJob) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode job: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func formatSearchResults(query string, results []core.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for query: %q", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search results for %q (%d chunks)\n\n", query, len(results))

	for i, r := range results {
		c := r.Chunk
		fmt.Fprintf(&sb, "### Result %d: `%s` %s (score %.3f)\n\n", i+1, c.Name, c.Type, r.Score)
		fmt.Fprintf(&sb, "**Repo:** %s  \n**File:** %s (lines %d-%d)  \n**Language:** %s\n\n",
			c.Repo, c.FilePath, c.StartLine, c.EndLine, c.Language)
		if c.ParentClass != "" {
			fmt.Fprintf(&sb, "**Class:** %s\n\n", c.ParentClass)
		}
		if c.Docstring != "" {
			fmt.Fprintf(&sb, "> %s\n\n", firstLine(c.Docstring))
		}
		fmt.Fprintf(&sb, "```%s\n%s\n```\n\n", c.Language, c.Code)
		if r.FileURL != "" {
			fmt.Fprintf(&sb, "[source](%s)\n\n", r.FileURL)
		}
	}
	return sb.String()
}
