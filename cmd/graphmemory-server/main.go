// cmd/graphmemory-server is the entry point for the graph memory
// service: it wires the Postgres-backed graph and vector stores, the
// MinIO-backed object store, and an OpenAI-compatible LLM client through
// the ingestion pipeline, query engine, backup service, and tool
// dispatcher, then serves the server-push/REST transport over HTTP.
//
// Startup sequence:
//  1. Load configuration from environment variables.
//  2. Open the object store, graph store, and colocated vector store.
//  3. Load ontology definitions.
//  4. Wire the ingestion pipeline, query engine, backup service, and
//     token manager.
//  5. Build the tool dispatcher and HTTP mux.
//  6. Serve until SIGINT/SIGTERM, then shut down gracefully.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/graphmemory/graphmemory/internal/auth"
	"github.com/graphmemory/graphmemory/internal/backup"
	"github.com/graphmemory/graphmemory/internal/config"
	"github.com/graphmemory/graphmemory/internal/dispatcher"
	"github.com/graphmemory/graphmemory/internal/graphstore"
	"github.com/graphmemory/graphmemory/internal/ingest"
	"github.com/graphmemory/graphmemory/internal/llm"
	"github.com/graphmemory/graphmemory/internal/objectstore"
	"github.com/graphmemory/graphmemory/internal/ontology"
	"github.com/graphmemory/graphmemory/internal/query"
	"github.com/graphmemory/graphmemory/internal/transport"
	"github.com/graphmemory/graphmemory/internal/vectorstore"
)

// embeddingDim is the vector width produced by OpenAI's
// text-embedding-3-small. The embedding client sends no dimensions
// parameter, so a model with a different native width does not match it.
const embeddingDim = 1536

func main() {
	log.SetOutput(os.Stderr)
	log.SetPrefix("graphmemory-server: ")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Security.BootstrapAdminKey == "" {
		log.Fatal("GRAPHMEM_BOOTSTRAP_ADMIN_KEY must be set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("received shutdown signal")
		cancel()
	}()

	objects, err := objectstore.New(ctx, cfg.ObjectStore, log.New(os.Stderr, "objectstore: ", log.LstdFlags))
	if err != nil {
		log.Fatalf("failed to open object store: %v", err)
	}

	graphDB, err := graphstore.Open(cfg.GraphStore.DSN)
	if err != nil {
		log.Fatalf("failed to open graph store: %v", err)
	}
	defer graphDB.Close()

	vectors, err := vectorstore.Open(graphDB.DB(), embeddingDim)
	if err != nil {
		log.Fatalf("failed to open vector store: %v", err)
	}

	ontologies, err := ontology.NewLoader(cfg.Ontology.Dir)
	if err != nil {
		log.Fatalf("failed to load ontologies from %q: %v", cfg.Ontology.Dir, err)
	}

	chatClient := llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.ChatModel,
		BaseURL:   cfg.LLM.BaseURL,
		MaxTokens: cfg.Tunables.ExtractionMaxTokens,
		Timeout:   time.Duration(cfg.Tunables.ExtractionTimeoutS) * time.Second,
	})
	embeddingClient := llm.NewOpenAIEmbeddingClient(llm.OpenAIEmbeddingConfig{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.EmbeddingModel,
		BaseURL: cfg.LLM.BaseURL,
	})
	extractor := llm.NewExtractor(chatClient)

	pipeline := ingest.New(objects, graphDB, vectors, extractor, embeddingClient, ontologies, cfg.Tunables)
	queries := query.New(graphDB, vectors, embeddingClient, chatClient, cfg.Tunables)
	backups := backup.New(objects, graphDB, vectors, cfg.Tunables)
	tokens := auth.New(graphDB, cfg.Security.BootstrapAdminKey)

	d := dispatcher.New(graphDB, objects, vectors, pipeline, queries, backups, ontologies, tokens)
	authManager := tokens

	mux := transport.NewMux(d, authManager, "0.1.0", "")

	addr, err := transport.Start(ctx, hostPort(cfg), mux)
	if err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
	log.Printf("listening on %s", addr)

	<-ctx.Done()
	log.Println("shutting down")
}

func hostPort(cfg *config.Config) string {
	return fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
}
