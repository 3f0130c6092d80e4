package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// decodeDOCX reads word/document.xml out of the OOXML zip container and
// concatenates <w:t> text runs, breaking paragraphs at each </w:p>.
// OOXML is plain zip+XML, so this needs nothing beyond the standard
// library; no pack example imports a DOCX library either.
type docxTextRun struct {
	Text string `xml:",chardata"`
}

func decodeDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("decode docx: %w", err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("decode docx: word/document.xml not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("decode docx: %w", err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("decode docx: %w", err)
	}

	var b strings.Builder
	dec := xml.NewDecoder(bytes.NewReader(raw))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode docx: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				var run docxTextRun
				if err := dec.DecodeElement(&run, &t); err == nil {
					b.WriteString(run.Text)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "p" {
				b.WriteString("\n\n")
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}
