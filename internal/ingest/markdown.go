package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// decodeMarkdown walks goldmark's parsed AST and concatenates text
// segments, re-emitting ATX heading markers and paragraph breaks so the
// chunker's heading detector (internal/chunker) still finds section
// boundaries after the Markdown syntax itself is stripped.
func decodeMarkdown(data []byte) (string, error) {
	doc := goldmark.New().Parser().Parse(gmtext.NewReader(data))

	var buf bytes.Buffer
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch n.Kind() {
		case ast.KindHeading:
			h := n.(*ast.Heading)
			if entering {
				buf.WriteString(strings.Repeat("#", h.Level) + " ")
			} else {
				buf.WriteString("\n\n")
			}
		case ast.KindText:
			if entering {
				t := n.(*ast.Text)
				buf.Write(t.Segment.Value(data))
				if t.SoftLineBreak() || t.HardLineBreak() {
					buf.WriteByte('\n')
				}
			}
		case ast.KindParagraph, ast.KindBlockquote:
			if !entering {
				buf.WriteString("\n\n")
			}
		case ast.KindCodeBlock, ast.KindFencedCodeBlock:
			if entering {
				writeLines(&buf, n, data)
				buf.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("decode markdown: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

type linesNode interface {
	Lines() *gmtext.Segments
}

func writeLines(buf *bytes.Buffer, n ast.Node, source []byte) {
	ln, ok := n.(linesNode)
	if !ok {
		return
	}
	lines := ln.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
}
