package ingest

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// decodePDF extracts text from a PDF without a full parser: it
// FlateDecode-inflates every stream object it can and pulls literal
// string operands out of Tj/TJ text-showing operators. No font table,
// no layout reconstruction, no encrypted-PDF support — spec.md §1 treats
// PDF decoding as an external collaborator, so this exists to give the
// pipeline something real to run end to end rather than a stub. No pack
// example imports a PDF library, so this stays on the standard library.
var (
	streamRe = regexp.MustCompile(`(?s)stream\r?\n(.*?)\r?\nendstream`)
	tjRe     = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*Tj`)
	tjArrRe  = regexp.MustCompile(`\[((?:[^\[\]]|\\.)*)\]\s*TJ`)
	tjStrRe  = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)
)

func decodePDF(data []byte) (string, error) {
	var out strings.Builder
	for _, m := range streamRe.FindAllSubmatch(data, -1) {
		content := m[1]
		if inflated, ok := inflateStream(content); ok {
			content = inflated
		}
		extractPDFOperators(content, &out)
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("decode pdf: no extractable text found")
	}
	return strings.TrimSpace(out.String()), nil
}

func inflateStream(raw []byte) ([]byte, bool) {
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, false
	}
	defer zr.Close()
	decoded, err := io.ReadAll(zr)
	if err != nil {
		return nil, false
	}
	return decoded, true
}

func extractPDFOperators(content []byte, out *strings.Builder) {
	for _, m := range tjRe.FindAllSubmatch(content, -1) {
		out.Write(unescapePDFString(m[1]))
		out.WriteByte(' ')
	}
	for _, m := range tjArrRe.FindAllSubmatch(content, -1) {
		for _, sm := range tjStrRe.FindAllSubmatch(m[1], -1) {
			out.Write(unescapePDFString(sm[1]))
		}
		out.WriteByte('\n')
	}
}

func unescapePDFString(b []byte) []byte {
	s := string(b)
	s = strings.ReplaceAll(s, `\(`, "(")
	s = strings.ReplaceAll(s, `\)`, ")")
	s = strings.ReplaceAll(s, `\\`, `\`)
	return []byte(s)
}
