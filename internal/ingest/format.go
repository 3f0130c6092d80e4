package ingest

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// format is the decoded document family dispatched by Decode. Detection
// prefers the filename extension; when that is absent or ambiguous it
// falls back to sniffing the content-type from the bytes themselves via
// mimetype, matching spec.md §4.4 stage 1's "extension / sniffed
// content-type" dispatch rule.
type format int

const (
	formatText format = iota
	formatMarkdown
	formatHTML
	formatCSV
	formatPDF
	formatDOCX
)

func detectFormat(filename, contentType string, data []byte) format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return formatMarkdown
	case ".html", ".htm":
		return formatHTML
	case ".csv":
		return formatCSV
	case ".pdf":
		return formatPDF
	case ".docx":
		return formatDOCX
	case ".txt":
		return formatText
	}

	if contentType != "" {
		if f, ok := formatFromMIME(contentType); ok {
			return f
		}
	}

	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if f, ok := formatFromMIME(m.String()); ok {
			return f
		}
	}
	return formatText
}

func formatFromMIME(mimeType string) (format, bool) {
	base := mimeType
	if i := strings.IndexByte(base, ';'); i >= 0 {
		base = base[:i]
	}
	switch strings.TrimSpace(base) {
	case "text/markdown":
		return formatMarkdown, true
	case "text/html", "application/xhtml+xml":
		return formatHTML, true
	case "text/csv":
		return formatCSV, true
	case "application/pdf":
		return formatPDF, true
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return formatDOCX, true
	case "text/plain":
		return formatText, true
	}
	return formatText, false
}
