package types

// Chunk is a contiguous passage of a document's text, packaged for
// embedding. Destroyed with its document or memory.
type Chunk struct {
	ID          string                 `json:"chunk_id"`
	MemoryID    string                 `json:"memory_id"`
	DocumentID  string                 `json:"document_id"`
	Sequence    int                    `json:"sequence"`
	SectionPath []string               `json:"section_path,omitempty"`
	TokenCount  int                    `json:"token_count"`
	Text        string                 `json:"text"`
	Vector      []float32              `json:"vector,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// ScoredChunk pairs a Chunk with its similarity score against a query
// embedding, used by the retrieval core (§4.8).
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}
