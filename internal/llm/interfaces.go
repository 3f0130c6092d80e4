package llm

import "context"

// TextGenerator is the interface for LLM text completion.
// All enrichment prompts use single-string completion style (not chat).
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	GetModel() string
}

// EmbeddingGenerator is the interface for generating vector embeddings.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}

// BatchEmbeddingGenerator additionally supports embedding many texts in
// one request, used by the ingestion pipeline's embedding stage (§4.6)
// to respect embedding_batch_size/embedding_concurrency rather than
// issuing one HTTP call per chunk.
type BatchEmbeddingGenerator interface {
	EmbeddingGenerator
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
