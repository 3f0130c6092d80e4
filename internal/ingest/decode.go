package ingest

// Decoder turns raw artifact bytes into plain text, the seam spec.md §1
// names as an external collaborator ("PDF/DOCX/HTML decoding is treated
// as a function bytes -> plain-text + per-block metadata"). DefaultDecoder
// below is a real, if modest, implementation for every format the
// ingestion pipeline accepts, so the pipeline runs end to end without a
// configured external service; deployments that want a dedicated PDF/DOCX
// extraction service can supply their own Decoder.
type Decoder interface {
	Decode(filename, contentType string, data []byte) (text, detectedContentType string, err error)
}

// DefaultDecoder dispatches by filename extension, falling back to
// sniffed content-type, per spec.md §4.4 stage 1.
type DefaultDecoder struct{}

func NewDefaultDecoder() *DefaultDecoder { return &DefaultDecoder{} }

func (d *DefaultDecoder) Decode(filename, contentType string, data []byte) (string, string, error) {
	switch detectFormat(filename, contentType, data) {
	case formatMarkdown:
		text, err := decodeMarkdown(data)
		return text, "text/markdown", err
	case formatHTML:
		text, err := decodeHTML(data)
		return text, "text/html", err
	case formatCSV:
		text, err := decodeCSV(data)
		return text, "text/csv", err
	case formatPDF:
		text, err := decodePDF(data)
		return text, "application/pdf", err
	case formatDOCX:
		text, err := decodeDOCX(data)
		return text, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", err
	default:
		return string(data), "text/plain", nil
	}
}

var _ Decoder = (*DefaultDecoder)(nil)
