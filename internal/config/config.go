// Package config provides configuration management for the service. It
// loads settings from environment variables with the GRAPHMEM_ prefix and
// supplies the defaults named by the specification's Configuration
// section.
package config

import (
	"os"
	"strconv"
)

// Config holds all configuration settings for the process.
type Config struct {
	Server      ServerConfig
	ObjectStore ObjectStoreConfig
	GraphStore  GraphStoreConfig
	LLM         LLMConfig
	Security    SecurityConfig
	Ontology    OntologyConfig
	Tunables    Tunables
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int
	Host string
}

// ObjectStoreConfig contains the MinIO/S3-compatible object store
// credentials and bucket.
type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// GraphStoreConfig contains the Postgres DSN backing both the graph store
// and the vector store (see DESIGN.md on colocation).
type GraphStoreConfig struct {
	DSN string
}

// LLMConfig contains the OpenAI-compatible chat and embedding endpoint
// configuration.
type LLMConfig struct {
	BaseURL        string
	APIKey         string
	ChatModel      string
	EmbeddingModel string
}

// SecurityConfig contains the bootstrap admin key used to authenticate
// before any token exists.
type SecurityConfig struct {
	BootstrapAdminKey string
}

// OntologyConfig names the directory of YAML ontology documents loaded
// at startup (§4.1).
type OntologyConfig struct {
	Dir string
}

// Tunables holds every numeric knob named in the specification's
// Configuration section, each with the spec's stated default.
type Tunables struct {
	MaxDocumentSizeMB    int
	ExtractionChunkSize  int
	MaxTextLength        int
	ChunkSize            int
	ChunkOverlap         int
	RAGScoreThreshold    float64
	RAGChunkLimit        int
	BackupRetentionCount int
	ExtractionTimeoutS   int
	EmbeddingBatchSize   int
	EmbeddingConcurrency int
	ExtractionMaxTokens  int
	GraphSearchLimit     int
}

// LoadConfig loads configuration from environment variables with
// sensible defaults. All environment variables use the GRAPHMEM_ prefix.
func LoadConfig() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("GRAPHMEM_PORT", 8080),
			Host: getEnv("GRAPHMEM_HOST", "0.0.0.0"),
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:  getEnv("GRAPHMEM_OBJECT_STORE_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("GRAPHMEM_OBJECT_STORE_ACCESS_KEY", ""),
			SecretKey: getEnv("GRAPHMEM_OBJECT_STORE_SECRET_KEY", ""),
			Bucket:    getEnv("GRAPHMEM_OBJECT_STORE_BUCKET", "graphmemory"),
			UseSSL:    getEnvBool("GRAPHMEM_OBJECT_STORE_USE_SSL", false),
		},
		GraphStore: GraphStoreConfig{
			DSN: getEnv("GRAPHMEM_GRAPH_STORE_DSN", "postgres://localhost:5432/graphmemory?sslmode=disable"),
		},
		LLM: LLMConfig{
			BaseURL:        getEnv("GRAPHMEM_LLM_BASE_URL", "https://api.openai.com"),
			APIKey:         getEnv("GRAPHMEM_LLM_API_KEY", ""),
			ChatModel:      getEnv("GRAPHMEM_LLM_CHAT_MODEL", "gpt-4o-mini"),
			EmbeddingModel: getEnv("GRAPHMEM_LLM_EMBEDDING_MODEL", "text-embedding-3-small"),
		},
		Security: SecurityConfig{
			BootstrapAdminKey: getEnv("GRAPHMEM_BOOTSTRAP_ADMIN_KEY", ""),
		},
		Ontology: OntologyConfig{
			Dir: getEnv("GRAPHMEM_ONTOLOGY_DIR", "./ontologies"),
		},
		Tunables: Tunables{
			MaxDocumentSizeMB:    getEnvInt("GRAPHMEM_MAX_DOCUMENT_SIZE_MB", 50),
			ExtractionChunkSize:  getEnvInt("GRAPHMEM_EXTRACTION_CHUNK_SIZE", 25000),
			MaxTextLength:        getEnvInt("GRAPHMEM_MAX_TEXT_LENGTH", 950000),
			ChunkSize:            getEnvInt("GRAPHMEM_CHUNK_SIZE", 500),
			ChunkOverlap:         getEnvInt("GRAPHMEM_CHUNK_OVERLAP", 50),
			RAGScoreThreshold:    getEnvFloat("GRAPHMEM_RAG_SCORE_THRESHOLD", 0.58),
			RAGChunkLimit:        getEnvInt("GRAPHMEM_RAG_CHUNK_LIMIT", 8),
			BackupRetentionCount: getEnvInt("GRAPHMEM_BACKUP_RETENTION_COUNT", 5),
			ExtractionTimeoutS:   getEnvInt("GRAPHMEM_EXTRACTION_TIMEOUT_S", 600),
			EmbeddingBatchSize:   getEnvInt("GRAPHMEM_EMBEDDING_BATCH_SIZE", 32),
			EmbeddingConcurrency: getEnvInt("GRAPHMEM_EMBEDDING_CONCURRENCY", 4),
			ExtractionMaxTokens:  getEnvInt("GRAPHMEM_EXTRACTION_MAX_TOKENS", 4096),
			GraphSearchLimit:     getEnvInt("GRAPHMEM_GRAPH_SEARCH_LIMIT", 10),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "No", "NO":
			return false
		}
	}
	return defaultValue
}
