package htmltext

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	xhtml "golang.org/x/net/html"
)

const defaultMaxLength = 4096

// Clean converts an HTML fragment into a normalized text representation.
// It strips tags (keeping their textual content), decodes entities, collapses
// repeated whitespace, and caps the result at max bytes (rune-safe). A
// non-positive max falls back to a sensible default.
func Clean(input string, max int) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	if max <= 0 {
		max = defaultMaxLength
	}

	nodes, err := xhtml.ParseFragment(strings.NewReader(trimmed), nil)
	if err != nil {
		return truncate(collapseWhitespace(html.UnescapeString(trimmed)), max)
	}

	var builder strings.Builder
	for _, n := range nodes {
		walk(n, &builder)
	}

	return truncate(collapseWhitespace(builder.String()), max)
}

func walk(n *xhtml.Node, builder *strings.Builder) {
	if n == nil {
		return
	}

	switch n.Type {
	case xhtml.ElementNode:
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript", "template":
			return
		}
	case xhtml.TextNode:
		builder.WriteString(html.UnescapeString(n.Data))
		builder.WriteByte(' ')
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walk(child, builder)
	}
}

func collapseWhitespace(s string) string {
	var builder strings.Builder
	builder.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && builder.Len() > 0 {
			builder.WriteByte(' ')
		}
		inSpace = false
		builder.WriteRune(r)
	}
	return builder.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	for !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return strings.TrimRightFunc(cut, unicode.IsSpace)
}
