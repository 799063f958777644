package embedder

import (
	"path"
	"regexp"
	"strings"

	"github.com/heronlancellot/bee2bee/internal/core"
)

var (
	camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	acronymTail   = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
	nonWord       = regexp.MustCompile(`[^\w\s]`)
)

// Textify turns a chunk into a natural-language sentence for the text
// encoder, e.g. "function fetch data that does performs an http request
// defined as def fetch_data url in file api.py module src.api".
func Textify(c core.CodeChunk) string {
	parts := []string{string(c.Type) + " " + humanize(c.Name)}

	if c.Docstring != "" {
		parts = append(parts, "that does "+c.Docstring)
	}
	if c.Signature != "" {
		parts = append(parts, "defined as "+humanize(c.Signature))
	}
	parts = append(parts, "in file "+path.Base(c.FilePath))
	if c.Module != "" {
		parts = append(parts, "module "+c.Module)
	}

	text := strings.Join(parts, " ")
	text = nonWord.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// humanize splits camelCase and snake_case identifiers into lower-cased
// words: "fetchUserData" → "fetch user data", "fetch_data" → "fetch data".
func humanize(s string) string {
	s = acronymTail.ReplaceAllString(s, "$1 $2")
	s = camelBoundary.ReplaceAllString(s, "$1 $2")
	s = strings.ReplaceAll(s, "_", " ")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
