package types

import "strings"

// OtherEntityType is substituted for any entity type the active ontology
// does not declare.
const OtherEntityType = "Other"

// Entity is a typed node in a memory's knowledge graph. Entities are
// created or merged during ingestion; the merge key is (MemoryID, Name,
// Type). Description accumulates per-document fragments joined by " | ",
// deduplicated by substring equality.
type Entity struct {
	ID          string   `json:"entity_id"`
	MemoryID    string   `json:"memory_id"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Mentions    int      `json:"mentions"`
	SourceDocs  []string `json:"source_docs"`
}

// MergeDescription appends frag to e.Description, skipping it if it is
// already present as a substring (case-sensitive, matching the merge
// semantics of document-level fragments rather than fuzzy similarity).
func (e *Entity) MergeDescription(frag string) {
	if frag == "" {
		return
	}
	if e.Description == "" {
		e.Description = frag
		return
	}
	for _, part := range splitDescription(e.Description) {
		if strings.Contains(part, frag) {
			return
		}
	}
	e.Description = e.Description + " | " + frag
}

func splitDescription(d string) []string {
	var parts []string
	start := 0
	for i := 0; i+3 <= len(d); i++ {
		if d[i:i+3] == " | " {
			parts = append(parts, d[start:i])
			start = i + 3
			i += 2
		}
	}
	parts = append(parts, d[start:])
	return parts
}

// AddSourceDoc appends docID to SourceDocs if not already present, and
// increments Mentions.
func (e *Entity) AddSourceDoc(docID string) {
	e.Mentions++
	for _, d := range e.SourceDocs {
		if d == docID {
			return
		}
	}
	e.SourceDocs = append(e.SourceDocs, docID)
}

// RemoveSourceDoc removes docID from SourceDocs, returning true if the
// entity now has zero source documents (the orphan-cascade condition).
func (e *Entity) RemoveSourceDoc(docID string) (empty bool) {
	out := e.SourceDocs[:0]
	for _, d := range e.SourceDocs {
		if d != docID {
			out = append(out, d)
		}
	}
	e.SourceDocs = out
	return len(e.SourceDocs) == 0
}
