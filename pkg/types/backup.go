package types

import "time"

// BackupManifest is the manifest.json written alongside every backup's
// graph_data.json, vectors.jsonl, and document_keys.json.
type BackupManifest struct {
	SchemaVersion int            `json:"schema_version"`
	BackupID      string         `json:"backup_id"`
	MemoryID      string         `json:"memory_id"`
	CreatedAt     time.Time      `json:"created_at"`
	Description   string         `json:"description,omitempty"`
	Counts        BackupCounts   `json:"counts"`
	ChecksumSHA256 string        `json:"checksum_sha256"`
	ArchiveSHA256 string         `json:"archive_sha256,omitempty"`
}

// BackupCounts records how many objects of each kind a backup snapshot
// contains, used both for the manifest and for verifying round-trips.
type BackupCounts struct {
	Entities  int `json:"entities"`
	Relations int `json:"relations"`
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
}

// BackupInfo is the summary returned by backup_list.
type BackupInfo struct {
	BackupID    string    `json:"backup_id"`
	MemoryID    string    `json:"memory_id"`
	CreatedAt   time.Time `json:"created_at"`
	Description string    `json:"description,omitempty"`
	Counts      BackupCounts `json:"counts"`
}

// GraphSnapshot is the canonical JSON structure written as
// graph_data.json: the subgraph rooted at a memory.
type GraphSnapshot struct {
	Memory    Memory     `json:"memory"`
	Entities  []Entity   `json:"entities"`
	Relations []Relation `json:"relations"`
	Documents []Document `json:"documents"`
}

// VectorRecord is one line of vectors.jsonl.
type VectorRecord struct {
	ID      string                 `json:"id"`
	Payload map[string]interface{} `json:"payload"`
	Vector  []float32              `json:"vector"`
}
