package types

import "time"

// Memory is a tenant-scoped namespace. It owns every Document, Entity,
// Relation, and Chunk ingested under it and is destroyed, with cascade,
// by memory_delete.
type Memory struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	OntologyName string    `json:"ontology_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// Stats holds per-type counts returned by memory_stats.
type Stats struct {
	MemoryID  string `json:"memory_id"`
	Entities  int    `json:"entities"`
	Relations int    `json:"relations"`
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
}
