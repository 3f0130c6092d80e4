package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/graphmemory/graphmemory/internal/config"
	"github.com/graphmemory/graphmemory/internal/graphstore"
	"github.com/graphmemory/graphmemory/internal/llm"
	"github.com/graphmemory/graphmemory/internal/vectorstore"
	"github.com/graphmemory/graphmemory/pkg/types"
)

// ModeGraphGuided means candidate documents for vector search were
// narrowed by graph search; ModeRAGOnly means graph search matched
// nothing and vector search ran unrestricted across the memory.
const (
	ModeGraphGuided = "graph-guided"
	ModeRAGOnly     = "rag-only"
)

// SourceDocument is a chunk or entity's originating document, as
// surfaced to callers (§4.8's "filename, URI").
type SourceDocument struct {
	DocumentID string `json:"-"`
	Filename   string `json:"filename"`
	URI        string `json:"uri"`
}

// ChunkDecision records one retained-or-dropped chunk for the decisional
// log (§4.8 "Decisional logging").
type ChunkDecision struct {
	ChunkID  string
	Score    float64
	Accepted bool
}

// Trace is the structured decisional log emitted per Q&A (§4.8).
type Trace struct {
	TokenizationInput  string
	TokenizationOutput []string
	GraphHits          int
	Mode               string
	Chunks             []ChunkDecision
	PromptChars        int
}

// Result is the structured retrieval bundle returned by memory_query and
// consumed internally by question_answer.
type Result struct {
	Entities        []EntityMatch
	Chunks          []types.ScoredChunk
	SourceDocuments []SourceDocument
	Mode            string
}

// AnswerResult is question_answer's response: prose plus the entities
// and source documents that grounded it.
type AnswerResult struct {
	Answer          string
	Entities        []string
	SourceDocuments []SourceDocument
}

// Engine is the retrieval core shared by question_answer and
// memory_query (§4.8). Grounded on internal/engine/memory_engine.go's
// constructor-injection style.
type Engine struct {
	graph     graphstore.GraphStore
	vectors   vectorstore.VectorStore
	embedder  llm.EmbeddingGenerator
	generator llm.TextGenerator
	tunables  config.Tunables
}

func New(graph graphstore.GraphStore, vectors vectorstore.VectorStore, embedder llm.EmbeddingGenerator, generator llm.TextGenerator, tunables config.Tunables) *Engine {
	return &Engine{graph: graph, vectors: vectors, embedder: embedder, generator: generator, tunables: tunables}
}

// Retrieve runs the graph-then-vector retrieval core (§4.8 steps 1-5),
// shared by MemoryQuery and Ask.
func (e *Engine) Retrieve(ctx context.Context, memoryID, queryText string) (Result, Trace, error) {
	trace := Trace{TokenizationInput: queryText}

	searchLimit := e.tunables.GraphSearchLimit
	if searchLimit <= 0 {
		searchLimit = 10
	}
	entities, tokens, err := SearchEntities(ctx, e.graph, memoryID, queryText, searchLimit)
	if err != nil {
		return Result{}, trace, fmt.Errorf("query: graph search: %w", err)
	}
	trace.TokenizationOutput = tokens
	trace.GraphHits = len(entities)

	docIDs := SourceDocuments(entities)

	embedding, err := e.embedder.Embed(ctx, queryText)
	if err != nil {
		return Result{}, trace, fmt.Errorf("query: embed question: %w", err)
	}

	chunkLimit := e.tunables.RAGChunkLimit
	if chunkLimit <= 0 {
		chunkLimit = 8
	}

	var candidates []types.ScoredChunk
	if len(docIDs) > 0 {
		trace.Mode = ModeGraphGuided
		candidates, err = e.vectors.SearchRestricted(ctx, memoryID, embedding, docIDs, chunkLimit)
	} else {
		trace.Mode = ModeRAGOnly
		candidates, err = e.vectors.SearchAll(ctx, memoryID, embedding, chunkLimit)
	}
	if err != nil {
		return Result{}, trace, fmt.Errorf("query: vector search: %w", err)
	}

	threshold := e.tunables.RAGScoreThreshold
	if threshold == 0 {
		threshold = 0.58
	}
	var retained []types.ScoredChunk
	for _, c := range candidates {
		accepted := c.Score >= threshold
		trace.Chunks = append(trace.Chunks, ChunkDecision{ChunkID: c.Chunk.ID, Score: c.Score, Accepted: accepted})
		if accepted {
			retained = append(retained, c)
		}
	}
	sort.SliceStable(retained, func(i, j int) bool { return retained[i].Score > retained[j].Score })

	docSet := make(map[string]bool, len(docIDs))
	var orderedDocIDs []string
	for _, id := range docIDs {
		if !docSet[id] {
			docSet[id] = true
			orderedDocIDs = append(orderedDocIDs, id)
		}
	}
	for _, c := range retained {
		if !docSet[c.Chunk.DocumentID] {
			docSet[c.Chunk.DocumentID] = true
			orderedDocIDs = append(orderedDocIDs, c.Chunk.DocumentID)
		}
	}

	sourceDocs := make([]SourceDocument, 0, len(orderedDocIDs))
	for _, id := range orderedDocIDs {
		doc, err := e.graph.GetDocument(ctx, id)
		if err != nil {
			continue
		}
		sourceDocs = append(sourceDocs, SourceDocument{DocumentID: doc.ID, Filename: doc.Filename, URI: doc.ObjectURI})
	}

	return Result{Entities: entities, Chunks: retained, SourceDocuments: sourceDocs, Mode: trace.Mode}, trace, nil
}

// MemoryQuery returns the structured retrieval bundle with no LLM call
// (§4.8 memory_query).
func (e *Engine) MemoryQuery(ctx context.Context, memoryID, queryText string) (Result, Trace, error) {
	return e.Retrieve(ctx, memoryID, queryText)
}

// Ask runs the retrieval core then composes a cited prose answer
// (§4.8 question_answer).
func (e *Engine) Ask(ctx context.Context, memoryID, queryText string) (AnswerResult, Trace, error) {
	result, trace, err := e.Retrieve(ctx, memoryID, queryText)
	if err != nil {
		return AnswerResult{}, trace, err
	}

	prompt := buildAnswerPrompt(result, queryText)
	trace.PromptChars = len(prompt)

	answer, err := e.generator.Complete(ctx, prompt)
	if err != nil {
		return AnswerResult{}, trace, fmt.Errorf("query: answer generation: %w", err)
	}

	names := make([]string, 0, len(result.Entities))
	for _, m := range result.Entities {
		names = append(names, m.Entity.Name)
	}

	return AnswerResult{Answer: answer, Entities: names, SourceDocuments: result.SourceDocuments}, trace, nil
}

// buildAnswerPrompt assembles the prompt named in §4.8: entity context
// with 1-hop neighbourhoods, retained chunks labelled by source
// filename, the question, and a citation/refusal instruction.
func buildAnswerPrompt(result Result, question string) string {
	var b strings.Builder

	if len(result.Entities) == 0 && len(result.Chunks) == 0 {
		b.WriteString("No relevant context was found in this memory. Refuse to answer and say so plainly.\n\n")
	} else {
		b.WriteString("Known entities and their immediate relationships:\n")
		for _, m := range result.Entities {
			fmt.Fprintf(&b, "- %s (%s)", m.Entity.Name, m.Entity.Type)
			if m.Entity.Description != "" {
				fmt.Fprintf(&b, ": %s", m.Entity.Description)
			}
			b.WriteString("\n")
			for _, r := range m.Relations {
				fmt.Fprintf(&b, "  %s -[%s]-> %s\n", r.FromEntity, r.Type, r.ToEntity)
			}
		}

		filenameByDoc := make(map[string]string, len(result.SourceDocuments))
		for _, d := range result.SourceDocuments {
			filenameByDoc[d.DocumentID] = d.Filename
		}

		b.WriteString("\nRelevant passages:\n")
		for _, c := range result.Chunks {
			filename := filenameByDoc[c.Chunk.DocumentID]
			if filename == "" {
				filename = "unknown source"
			}
			fmt.Fprintf(&b, "[%s]\n%s\n\n", filename, c.Chunk.Text)
		}
	}

	fmt.Fprintf(&b, "Question: %s\n\n", question)
	b.WriteString("Answer using only the context above. Cite the source filename for every claim. If the context is empty or insufficient, say you don't know rather than guessing.\n")
	return b.String()
}
