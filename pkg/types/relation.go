package types

// Relation is a typed, directed edge between two entities in the same
// memory. Created during ingestion; the merge key is (MemoryID, FromID,
// ToID, Type).
type Relation struct {
	ID          string `json:"relation_id"`
	MemoryID    string `json:"memory_id"`
	FromEntity  string `json:"from_entity"`
	ToEntity    string `json:"to_entity"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	SourceDoc   string `json:"source_doc"`
}

// Key returns the merge key for this relation.
func (r *Relation) Key() string {
	return r.MemoryID + "\x00" + r.FromEntity + "\x00" + r.ToEntity + "\x00" + r.Type
}
