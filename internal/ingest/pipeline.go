// Package ingest implements the nine-stage document ingestion pipeline:
// decode, deduplicate, upload, chunked extraction with cumulative
// context, merge, graph persistence, retrieval chunking, embedding, and
// vector write. Grounded on the staged-pipeline shape of
// internal/engine/memory_engine.go, reworked from an async worker-pool
// into a synchronous per-request pipeline per spec.md §5.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/graphmemory/graphmemory/internal/apperr"
	"github.com/graphmemory/graphmemory/internal/chunker"
	"github.com/graphmemory/graphmemory/internal/config"
	"github.com/graphmemory/graphmemory/internal/graphstore"
	"github.com/graphmemory/graphmemory/internal/llm"
	"github.com/graphmemory/graphmemory/internal/objectstore"
	"github.com/graphmemory/graphmemory/internal/ontology"
	"github.com/graphmemory/graphmemory/internal/vectorstore"
	"github.com/graphmemory/graphmemory/pkg/types"
)

// cumulativeContextBudget bounds the "already found" JSON rendered into
// later extraction chunks' prompts (§4.4 stage 4's "truncated to a
// budget" note; §9's context-budgeting design note).
const cumulativeContextBudget = 4000

// Pipeline wires the five collaborators an ingestion run touches:
// object store, graph store, vector store, LLM extractor, and embedder.
type Pipeline struct {
	objects    objectstore.ObjectStore
	graph      graphstore.GraphStore
	vectors    vectorstore.VectorStore
	extractor  *llm.Extractor
	embedder   llm.BatchEmbeddingGenerator
	ontologies *ontology.Loader
	tunables   config.Tunables
}

func New(
	objects objectstore.ObjectStore,
	graph graphstore.GraphStore,
	vectors vectorstore.VectorStore,
	extractor *llm.Extractor,
	embedder llm.BatchEmbeddingGenerator,
	ontologies *ontology.Loader,
	tunables config.Tunables,
) *Pipeline {
	return &Pipeline{
		objects:    objects,
		graph:      graph,
		vectors:    vectors,
		extractor:  extractor,
		embedder:   embedder,
		ontologies: ontologies,
		tunables:   tunables,
	}
}

// Request is the argument bundle for Ingest, matching spec.md §4.4's
// signature `ingest(memory_id, filename, bytes, force?, source_path?,
// source_modified_at?)`.
type Request struct {
	MemoryID         string
	Filename         string
	Data             []byte
	ContentType      string
	Force            bool
	SourcePath       string
	SourceModifiedAt time.Time
	Decoder          Decoder // nil uses DefaultDecoder
}

// Result reports what an ingest call did, for the memory_ingest tool
// response.
type Result struct {
	DocumentID     string
	Deduplicated   bool
	EntitiesNew    int
	EntitiesMerged int
	RelationsNew   int
	ChunksWritten  int
}

// Ingest runs a document through all nine pipeline stages. sink may be
// nil (NoopProgressSink is used), matching callers with no live session
// (tests, the admin CLI, backup replay).
func (p *Pipeline) Ingest(ctx context.Context, req Request, sink ProgressSink) (Result, error) {
	if sink == nil {
		sink = NoopProgressSink{}
	}
	start := time.Now()

	mem, err := p.graph.GetMemory(ctx, req.MemoryID)
	if err != nil {
		return Result{}, fmt.Errorf("ingest: %w", err)
	}
	ont, ok := p.ontologies.Get(mem.OntologyName)
	if !ok {
		return Result{}, apperr.InvalidArgument("ontology %q is not loaded", mem.OntologyName)
	}

	// Stage 1: decode.
	decoder := req.Decoder
	if decoder == nil {
		decoder = NewDefaultDecoder()
	}
	text, detectedContentType, err := decoder.Decode(req.Filename, req.ContentType, req.Data)
	if err != nil {
		return Result{}, fmt.Errorf("ingest: decode: %w", err)
	}
	maxLen := p.tunables.MaxTextLength
	if maxLen <= 0 {
		maxLen = 950000
	}
	if len(text) > maxLen {
		return Result{}, apperr.InvalidArgument("decoded text length %d exceeds max_text_length %d", len(text), maxLen)
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = detectedContentType
	}
	sink.Notify(ProgressEvent{Phase: "decode", Current: 1, Total: 1, Elapsed: time.Since(start)})

	// Stage 2: deduplicate.
	hash := sha256.Sum256(req.Data)
	contentHash := hex.EncodeToString(hash[:])
	existing, err := p.graph.GetDocumentByHash(ctx, req.MemoryID, contentHash)
	if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return Result{}, fmt.Errorf("ingest: lookup existing document: %w", err)
	}
	if existing != nil && !req.Force {
		sink.Notify(ProgressEvent{Phase: "deduplicate", Current: 1, Total: 1, Elapsed: time.Since(start)})
		return Result{DocumentID: existing.ID, Deduplicated: true}, nil
	}
	sink.Notify(ProgressEvent{Phase: "deduplicate", Current: 1, Total: 1, Elapsed: time.Since(start)})

	// Stage 3: upload — the commit point for the raw artifact.
	var docID string
	if existing != nil {
		// force=true re-ingest of the same bytes: same document identity;
		// the object, document row and vectors are rewritten.
		docID = existing.ID
		objectURI := existing.ObjectURI
		if err := p.objects.Put(ctx, objectURI, req.Data, contentType); err != nil {
			return Result{}, fmt.Errorf("ingest: upload: %w", err)
		}
		if err := p.graph.ReplaceDocumentContent(ctx, docID, objectURI, len(text)); err != nil {
			return Result{}, fmt.Errorf("ingest: persist document: %w", err)
		}
		if err := p.vectors.DeleteByDocument(ctx, docID); err != nil {
			return Result{}, fmt.Errorf("ingest: clear stale vectors: %w", err)
		}
	} else {
		docID = uuid.NewString()
		objectURI := fmt.Sprintf("memories/%s/documents/%s", req.MemoryID, docID)
		if err := p.objects.Put(ctx, objectURI, req.Data, contentType); err != nil {
			return Result{}, fmt.Errorf("ingest: upload: %w", err)
		}
		doc := &types.Document{
			ID:               docID,
			MemoryID:         req.MemoryID,
			Filename:         req.Filename,
			ContentHash:      contentHash,
			SizeBytes:        int64(len(req.Data)),
			ContentType:      contentType,
			ObjectURI:        objectURI,
			SourcePath:       req.SourcePath,
			SourceModifiedAt: req.SourceModifiedAt,
			IngestedAt:       time.Now(),
			TextLength:       len(text),
		}
		if _, err := p.graph.UpsertDocument(ctx, doc); err != nil {
			return Result{}, fmt.Errorf("ingest: persist document: %w", err)
		}
	}
	sink.Notify(ProgressEvent{Phase: "upload", Current: 1, Total: 1, Elapsed: time.Since(start)})

	// Stage 4: extract, chunked, with cumulative context. Stage 5: merge
	// is folded into the accumulator as chunks are added.
	extractionSize := p.tunables.ExtractionChunkSize
	chunks := chunker.ExtractionChunks(text, extractionSize)
	acc := newExtractionAccumulator()
	for i, chunkText := range chunks {
		cumulative := acc.cumulativeJSON(cumulativeContextBudget)
		result, err := p.extractor.Extract(ctx, ont, cumulative, chunkText)
		if err != nil {
			// Partial result is preferred to total failure (§4.4 stage 4):
			// log and continue with the next chunk.
			log.Printf("ingest: extraction chunk %d/%d failed memory_id=%s document_id=%s: %v",
				i+1, len(chunks), req.MemoryID, docID, err)
		} else {
			acc.add(result)
		}
		sink.Notify(ProgressEvent{
			Phase: "extract", Current: i + 1, Total: len(chunks),
			Entities: acc.entityCount(), Relations: acc.relationCount(),
			Elapsed: time.Since(start),
		})
	}

	// Stage 6: persist graph.
	nameToID := make(map[string]string, acc.entityCount())
	var entitiesNew, entitiesMerged int
	for _, me := range acc.entities() {
		before, lookupErr := p.graph.GetEntityByName(ctx, req.MemoryID, me.name, me.entityType)
		if lookupErr != nil && !apperr.Is(lookupErr, apperr.KindNotFound) {
			return Result{}, fmt.Errorf("ingest: lookup entity %q: %w", me.name, lookupErr)
		}
		ent, err := p.graph.MergeEntity(ctx, req.MemoryID, me.name, me.entityType, me.description, docID)
		if err != nil {
			return Result{}, fmt.Errorf("ingest: persist entity %q: %w", me.name, err)
		}
		nameToID[me.name] = ent.ID
		if before == nil {
			entitiesNew++
		} else {
			entitiesMerged++
		}
	}
	var relationsNew int
	for _, mr := range acc.relations() {
		fromID, okFrom := nameToID[mr.from]
		toID, okTo := nameToID[mr.to]
		if !okFrom || !okTo {
			// Extraction referenced an entity name that never resolved to
			// a persisted node (noise in the model's output); skip the
			// relation rather than failing the whole document.
			continue
		}
		if _, err := p.graph.MergeRelation(ctx, req.MemoryID, fromID, toID, mr.relType, mr.description, docID); err != nil {
			return Result{}, fmt.Errorf("ingest: persist relation %s->%s: %w", mr.from, mr.to, err)
		}
		relationsNew++
	}
	sink.Notify(ProgressEvent{
		Phase: "persist_graph", Current: 1, Total: 1,
		Entities: entitiesNew + entitiesMerged, Relations: relationsNew,
		Elapsed: time.Since(start),
	})

	result := Result{
		DocumentID:     docID,
		EntitiesNew:    entitiesNew,
		EntitiesMerged: entitiesMerged,
		RelationsNew:   relationsNew,
	}

	// Stages 7-9 are best-effort-forward: on failure, the document stays
	// committed in the object+graph stores and storage_check will detect
	// vector-store divergence (§4.4 "Transactional discipline").
	retrievalChunks := chunker.Chunk(text, chunker.Options{
		TargetTokens: p.tunables.ChunkSize,
		Overlap:      p.tunables.ChunkOverlap,
	})
	sink.Notify(ProgressEvent{Phase: "chunk", Current: 1, Total: 1, Elapsed: time.Since(start)})

	if err := p.embedAndWrite(ctx, req.MemoryID, docID, retrievalChunks, sink, start); err != nil {
		log.Printf("ingest: embedding/vector write failed after graph commit memory_id=%s document_id=%s: %v", req.MemoryID, docID, err)
		return result, nil
	}
	result.ChunksWritten = len(retrievalChunks)
	return result, nil
}

// embedAndWrite runs stage 8 (embed) and stage 9 (write vectors) with
// bounded parallelism across embedding batches (config
// embedding_concurrency, default 4), matching §5's "embedding batches
// may be issued with bounded parallelism" note.
func (p *Pipeline) embedAndWrite(ctx context.Context, memoryID, documentID string, chunks []chunker.PackedChunk, sink ProgressSink, start time.Time) error {
	if len(chunks) == 0 {
		return nil
	}
	batchSize := p.tunables.EmbeddingBatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	concurrency := p.tunables.EmbeddingConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	batches := batchChunks(chunks, batchSize)
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	errs := make([]error, len(batches))
	var completed int32

	for bi, batch := range batches {
		wg.Add(1)
		sem <- struct{}{}
		go func(bi int, batch []chunker.PackedChunk) {
			defer wg.Done()
			defer func() { <-sem }()

			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Text
			}
			vecs, err := p.embedder.EmbedBatch(ctx, texts)
			if err != nil {
				errs[bi] = fmt.Errorf("embed batch %d: %w", bi, err)
				return
			}
			for i, c := range batch {
				rec := &types.Chunk{
					ID:          uuid.NewString(),
					MemoryID:    memoryID,
					DocumentID:  documentID,
					Sequence:    c.Sequence,
					SectionPath: c.SectionPath,
					TokenCount:  c.TokenCount,
					Text:        c.Text,
					Vector:      vecs[i],
				}
				if err := p.vectors.Upsert(ctx, rec); err != nil {
					errs[bi] = fmt.Errorf("write vector batch %d: %w", bi, err)
					return
				}
			}
			done := atomic.AddInt32(&completed, 1)
			sink.Notify(ProgressEvent{Phase: "embed", Current: int(done), Total: len(batches), Elapsed: time.Since(start)})
		}(bi, batch)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func batchChunks(chunks []chunker.PackedChunk, size int) [][]chunker.PackedChunk {
	var batches [][]chunker.PackedChunk
	for i := 0; i < len(chunks); i += size {
		end := i + size
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, chunks[i:end])
	}
	return batches
}
