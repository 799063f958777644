package chunker

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/heronlancellot/bee2bee/internal/parser"
)

// docstring extracts documentation directly attached to a definition: a
// Python-style string as the first statement of the body, or a run of
// comment lines immediately above the definition.
func docstring(node *sitter.Node, src []byte, spec *parser.LanguageSpec) string {
	if spec.Name == "python" {
		if doc := pythonDocstring(node, src); doc != "" {
			return doc
		}
	}
	return leadingComments(node, src)
}

// pythonDocstring returns the string literal opening the function or class
// body, with its quotes stripped.
func pythonDocstring(node *sitter.Node, src []byte) string {
	body := node.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	expr := first.NamedChild(0)
	if expr.Type() != "string" {
		return ""
	}
	return trimQuotes(expr.Content(src))
}

// leadingComments collects the contiguous comment run ending on the line
// directly above the definition. A blank line breaks attachment.
func leadingComments(node *sitter.Node, src []byte) string {
	var lines []string
	wantLine := node.StartPoint().Row

	for prev := node.PrevNamedSibling(); prev != nil; prev = prev.PrevNamedSibling() {
		if prev.Type() != "comment" || prev.EndPoint().Row+1 != wantLine {
			break
		}
		lines = append([]string{trimCommentMarkers(prev.Content(src))}, lines...)
		wantLine = prev.StartPoint().Row
	}
	return strings.TrimSpace(strings.Join(lines, " "))
}

func trimQuotes(s string) string {
	for _, q := range []string{`"""`, "'''", `"`, "'"} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			return strings.TrimSpace(s[len(q) : len(s)-len(q)])
		}
	}
	return strings.TrimSpace(s)
}

func trimCommentMarkers(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "///"):
		s = s[3:]
	case strings.HasPrefix(s, "//"):
		s = s[2:]
	case strings.HasPrefix(s, "#"):
		s = s[1:]
	case strings.HasPrefix(s, "/*"):
		s = strings.TrimSuffix(s[2:], "*/")
	}
	return strings.TrimSpace(s)
}
