// Package fetcher downloads repository snapshots into ephemeral workspaces.
// The primary mechanism is a shallow single-branch git clone; when that
// fails the GitHub tarball API is tried once before the job fails.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/heronlancellot/bee2bee/internal/core"
)

// Workspace is an exclusively owned temporary checkout. The job that
// requested it must call Release on every exit path.
type Workspace struct {
	// Path is the repository root inside the workspace.
	Path string
	root string
}

// Release deletes the workspace directory.
func (w *Workspace) Release() error {
	if w == nil || w.root == "" {
		return nil
	}
	return os.RemoveAll(w.root)
}

// Fetcher downloads repositories from GitHub.
type Fetcher struct {
	token  string
	client *http.Client
	logger *slog.Logger
}

// New creates a Fetcher. The token may be empty for public repositories.
func New(token string, timeout time.Duration, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Fetcher{
		token:  token,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Fetch downloads owner/name at branch into a fresh workspace and returns
// it. Clone failures fall back to the tarball download; only when both
// mechanisms fail does the error surface.
func (f *Fetcher) Fetch(ctx context.Context, owner, name, branch string) (*Workspace, error) {
	root, err := os.MkdirTemp("", fmt.Sprintf("%s_%s_", owner, name))
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	ws, cloneErr := f.clone(ctx, owner, name, branch, root)
	if cloneErr == nil {
		return ws, nil
	}

	f.logger.Warn("git clone failed, trying tarball download",
		"repo", owner+"/"+name, "branch", branch, "error", cloneErr)

	ws, tarErr := f.downloadTarball(ctx, owner, name, branch, root)
	if tarErr == nil {
		return ws, nil
	}

	os.RemoveAll(root)
	return nil, fmt.Errorf("fetch %s/%s@%s: clone: %v; tarball: %w", owner, name, branch, cloneErr, tarErr)
}

func (f *Fetcher) clone(ctx context.Context, owner, name, branch, root string) (*Workspace, error) {
	repoDir := filepath.Join(root, name)
	url := fmt.Sprintf("https://github.com/%s/%s.git", owner, name)

	cmd := exec.CommandContext(ctx, "git", "clone",
		"--depth", "1", "--single-branch", "--branch", branch, url, repoDir)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrNetwork, ctx.Err())
		}
		return nil, classifyCloneError(string(out))
	}
	return &Workspace{Path: repoDir, root: root}, nil
}

// classifyCloneError maps git stderr to the fetch error taxonomy.
func classifyCloneError(out string) error {
	lower := strings.ToLower(out)
	switch {
	case strings.Contains(lower, "could not find remote branch"),
		strings.Contains(lower, "remote branch") && strings.Contains(lower, "not found"):
		return fmt.Errorf("%w: %s", core.ErrBranchNotFound, firstLine(out))
	case strings.Contains(lower, "authentication failed"),
		strings.Contains(lower, "could not read username"),
		strings.Contains(lower, "invalid username or password"):
		return fmt.Errorf("%w: %s", core.ErrAuth, firstLine(out))
	default:
		return fmt.Errorf("%w: git clone: %s", core.ErrNetwork, firstLine(out))
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return s
}

// LatestCommit returns the head commit sha for a branch.
func (f *Fetcher) LatestCommit(ctx context.Context, owner, name, branch string) (string, error) {
	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/commits/%s", owner, name, branch)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	f.authorize(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return "", err
	}

	var body struct {
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode commit response: %w", err)
	}
	return body.SHA, nil
}

func (f *Fetcher) authorize(req *http.Request) {
	if f.token != "" {
		req.Header.Set("Authorization", "token "+f.token)
	}
}

// statusError maps GitHub API status codes to the fetch error taxonomy.
func statusError(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: HTTP 404", core.ErrBranchNotFound)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", core.ErrAuth, code)
	default:
		return fmt.Errorf("%w: HTTP %d", core.ErrNetwork, code)
	}
}
