package chunker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heronlancellot/bee2bee/internal/core"
	"github.com/heronlancellot/bee2bee/internal/parser"
)

const pySample = `import os
from typing import List

def fetch_data(url):
    """Performs an HTTP request and returns the body."""
    return get(url)

class Client:
    def close(self):
        self.conn.close()
`

const goSample = `package api

import "net/http"

// Get issues a GET request.
func Get(url string) (*http.Response, error) {
	return http.Get(url)
}

func (c *Client) Close() error {
	return c.conn.Close()
}
`

func extract(t *testing.T, path, src string) []core.CodeChunk {
	t.Helper()
	p := parser.New(parser.DefaultRegistry())
	tree, spec, err := p.Parse(context.Background(), path, []byte(src))
	require.NoError(t, err)
	require.NotNil(t, tree, "grammar must be registered for %s", path)
	defer tree.Close()

	return New().Extract(tree, []byte(src), "octo/widgets", path, spec)
}

func TestExtractPython(t *testing.T) {
	chunks := extract(t, "src/api.py", pySample)
	require.Len(t, chunks, 3) // fetch_data, Client, Client.close

	byName := map[string]core.CodeChunk{}
	for _, c := range chunks {
		byName[c.Name] = c
	}

	fd, ok := byName["fetch_data"]
	require.True(t, ok)
	assert.Equal(t, core.ChunkFunction, fd.Type)
	assert.Equal(t, "Performs an HTTP request and returns the body.", fd.Docstring)
	assert.Equal(t, "def fetch_data(url):", fd.Signature)
	assert.Less(t, fd.StartLine, fd.EndLine)
	assert.NotEmpty(t, fd.Code)
	assert.Equal(t, "src.api", fd.Module)
	assert.Contains(t, fd.Imports, "import os")
	assert.Contains(t, fd.Imports, "from typing import List")

	cls, ok := byName["Client"]
	require.True(t, ok)
	assert.Equal(t, core.ChunkClass, cls.Type)

	m, ok := byName["close"]
	require.True(t, ok)
	assert.Equal(t, core.ChunkMethod, m.Type, "function nested in a class is a method")
	assert.Equal(t, "Client", m.ParentClass)
}

func TestExtractGo(t *testing.T) {
	chunks := extract(t, "pkg/api/get.go", goSample)
	require.Len(t, chunks, 2)

	assert.Equal(t, "Get", chunks[0].Name)
	assert.Equal(t, core.ChunkFunction, chunks[0].Type)
	assert.Equal(t, "Get issues a GET request.", chunks[0].Docstring)

	assert.Equal(t, "Close", chunks[1].Name)
	assert.Equal(t, core.ChunkMethod, chunks[1].Type)
}

func TestExtractDeterministic(t *testing.T) {
	a := extract(t, "src/api.py", pySample)
	b := extract(t, "src/api.py", pySample)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.Equal(t, a[i].StartByte, b[i].StartByte)
		assert.Equal(t, a[i].EndByte, b[i].EndByte)
	}
}

func TestUnsupportedExtensionIsNoTree(t *testing.T) {
	p := parser.New(parser.DefaultRegistry())
	tree, spec, err := p.Parse(context.Background(), "README.md", []byte("# hello"))
	require.NoError(t, err, "unsupported extension is a skip, not a failure")
	assert.Nil(t, tree)
	assert.Nil(t, spec)
}

func TestComplexityCountsBranches(t *testing.T) {
	src := `def f(x):
    if x > 0:
        for i in range(x):
            pass
    return x
`
	chunks := extract(t, "f.py", src)
	require.Len(t, chunks, 1)
	assert.Equal(t, 3, chunks[0].Complexity) // base + if + for
}
