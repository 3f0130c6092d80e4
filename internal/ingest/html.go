package ingest

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// decodeHTML extracts visible text via x/net/html's tree parser rather
// than a naive tag-stripping regex: script/style subtrees are skipped
// entirely and block-level elements emit a paragraph break, so headings
// and paragraphs remain recognisable to the chunker's heuristic heading
// detector even though the tags themselves are gone.
func decodeHTML(data []byte) (string, error) {
	doc, err := html.Parse(strings.NewReader(string(data)))
	if err != nil {
		return "", fmt.Errorf("decode html: %w", err)
	}

	var buf strings.Builder
	walkHTML(doc, &buf)
	return strings.TrimSpace(collapseBlankLines(buf.String())), nil
}

func walkHTML(n *html.Node, buf *strings.Builder) {
	if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
		return
	}
	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
	}
	if n.Type == html.ElementNode && n.DataAtom == atom.Br {
		buf.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkHTML(c, buf)
	}
	if n.Type == html.ElementNode && isBlockElement(n.DataAtom) {
		buf.WriteString("\n\n")
	}
}

func isBlockElement(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.Tr, atom.Section, atom.Article,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	}
	return false
}

func collapseBlankLines(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}
