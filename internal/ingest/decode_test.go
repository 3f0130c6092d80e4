package ingest

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePlainTextPassesThrough(t *testing.T) {
	d := NewDefaultDecoder()
	text, contentType, err := d.Decode("notes.txt", "", []byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	assert.Equal(t, "text/plain", contentType)
}

func TestDecodeMarkdownStripsSyntaxKeepsHeadings(t *testing.T) {
	d := NewDefaultDecoder()
	text, contentType, err := d.Decode("doc.md", "", []byte("# Title\n\nSome *bold* text here.\n\n## Section\n\nMore text."))
	require.NoError(t, err)
	assert.Equal(t, "text/markdown", contentType)
	assert.Contains(t, text, "# Title")
	assert.Contains(t, text, "## Section")
	assert.Contains(t, text, "bold")
	assert.NotContains(t, text, "*bold*")
}

func TestDecodeHTMLStripsTagsSkipsScript(t *testing.T) {
	d := NewDefaultDecoder()
	html := `<html><body><h1>Title</h1><p>Hello <b>world</b></p><script>alert(1)</script></body></html>`
	text, contentType, err := d.Decode("page.html", "", []byte(html))
	require.NoError(t, err)
	assert.Equal(t, "text/html", contentType)
	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "Hello")
	assert.Contains(t, text, "world")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "<h1>")
}

func TestDecodeCSVRendersRowsAsSentences(t *testing.T) {
	d := NewDefaultDecoder()
	csv := "name,role\nAda Lovelace,Mathematician\nGrace Hopper,Rear Admiral\n"
	text, contentType, err := d.Decode("people.csv", "", []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, text, "name: Ada Lovelace")
	assert.Contains(t, text, "role: Mathematician")
	assert.Contains(t, text, "Grace Hopper")
}

func TestDecodeDispatchesBySniffedContentTypeWhenExtensionMissing(t *testing.T) {
	d := NewDefaultDecoder()
	text, contentType, err := d.Decode("upload", "text/html", []byte("<p>Hi there</p>"))
	require.NoError(t, err)
	assert.Equal(t, "text/html", contentType)
	assert.Contains(t, text, "Hi there")
}

func TestDecodeDOCXExtractsParagraphRuns(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Acme Corp signed a contract.</w:t></w:r></w:p>
<w:p><w:r><w:t>Ada Lovelace is the lead engineer.</w:t></w:r></w:p>
</w:body>
</w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	d := NewDefaultDecoder()
	text, contentType, err := d.Decode("contract.docx", "", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", contentType)
	assert.Contains(t, text, "Acme Corp signed a contract.")
	assert.Contains(t, text, "Ada Lovelace is the lead engineer.")
}
