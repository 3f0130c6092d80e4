package types

import "time"

// Document is a raw ingested artifact, addressed by its content hash
// within a memory. (MemoryID, ContentHash) is unique unless the caller
// passes force=true on ingest.
type Document struct {
	ID               string    `json:"document_id"`
	MemoryID         string    `json:"memory_id"`
	Filename         string    `json:"filename"`
	ContentHash      string    `json:"content_hash"`
	SizeBytes        int64     `json:"size_bytes"`
	ContentType      string    `json:"content_type"`
	ObjectURI        string    `json:"object_uri"`
	SourcePath       string    `json:"source_path,omitempty"`
	SourceModifiedAt time.Time `json:"source_modified_at,omitempty"`
	IngestedAt       time.Time `json:"ingested_at"`
	TextLength       int       `json:"text_length"`
}
