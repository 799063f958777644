package fetcher

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heronlancellot/bee2bee/internal/core"
)

func TestClassifyCloneError(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want error
	}{
		{"branch", "fatal: Remote branch nope not found in upstream origin", core.ErrBranchNotFound},
		{"branch_alt", "warning: Could not find remote branch nope to clone.", core.ErrBranchNotFound},
		{"auth", "fatal: Authentication failed for 'https://github.com/o/r.git/'", core.ErrAuth},
		{"auth_prompt", "fatal: could not read Username for 'https://github.com': terminal prompts disabled", core.ErrAuth},
		{"network", "fatal: unable to access 'https://github.com/o/r.git/': Could not resolve host", core.ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyCloneError(tt.out)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestStatusError(t *testing.T) {
	assert.NoError(t, statusError(http.StatusOK))
	assert.ErrorIs(t, statusError(http.StatusNotFound), core.ErrBranchNotFound)
	assert.ErrorIs(t, statusError(http.StatusUnauthorized), core.ErrAuth)
	assert.ErrorIs(t, statusError(http.StatusForbidden), core.ErrAuth)
	assert.ErrorIs(t, statusError(http.StatusBadGateway), core.ErrNetwork)
}

// buildArchive produces a gzipped tar stream shaped like a GitHub tarball:
// every entry lives under an "owner-repo-sha/" prefix.
func buildArchive(t *testing.T, files map[string]string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "octo-widgets-abc123/", Typeflag: tar.TypeDir, Mode: 0o755,
	}))
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: "octo-widgets-abc123/" + name, Typeflag: tar.TypeReg,
			Mode: 0o644, Size: int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return &buf
}

func TestExtractTarGz(t *testing.T) {
	archive := buildArchive(t, map[string]string{
		"main.py":        "print('hi')\n",
		"lib/helpers.py": "def f():\n    pass\n",
	})

	dest := filepath.Join(t.TempDir(), "widgets")
	require.NoError(t, extractTarGz(archive, dest))

	data, err := os.ReadFile(filepath.Join(dest, "main.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('hi')\n", string(data))

	_, err = os.Stat(filepath.Join(dest, "lib", "helpers.py"))
	assert.NoError(t, err)
}

func TestExtractTarGzRejectsTraversal(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "prefix/../../evil.txt", Typeflag: tar.TypeReg, Mode: 0o644, Size: 4,
	}))
	_, err := tw.Write([]byte("pwnd"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	err = extractTarGz(&buf, t.TempDir())
	assert.Error(t, err)
}

func TestWorkspaceRelease(t *testing.T) {
	root, err := os.MkdirTemp("", "ws_test_")
	require.NoError(t, err)
	ws := &Workspace{Path: filepath.Join(root, "repo"), root: root}

	require.NoError(t, os.MkdirAll(ws.Path, 0o755))
	require.NoError(t, ws.Release())

	_, err = os.Stat(root)
	assert.True(t, os.IsNotExist(err), "workspace root should be gone")

	var nilWS *Workspace
	assert.NoError(t, nilWS.Release(), "releasing a nil workspace is a no-op")
}
