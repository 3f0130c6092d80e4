package graphstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/graphmemory/graphmemory/internal/apperr"
	"github.com/graphmemory/graphmemory/internal/search"
	"github.com/graphmemory/graphmemory/pkg/types"
)

// Fake is an in-memory GraphStore used by tests in packages that depend
// on the graph store adapter (ingest, query, backup, auth, dispatcher),
// matching the teacher's MockClient pattern. It implements the full
// merge/cascade/search semantics of §4.3/§4.7, not a stub.
type Fake struct {
	mu        sync.Mutex
	memories  map[string]types.Memory
	documents map[string]types.Document
	entities  map[string]types.Entity
	relations map[string]types.Relation
	tokens    map[string]types.Token
}

func NewFake() *Fake {
	return &Fake{
		memories:  make(map[string]types.Memory),
		documents: make(map[string]types.Document),
		entities:  make(map[string]types.Entity),
		relations: make(map[string]types.Relation),
		tokens:    make(map[string]types.Token),
	}
}

func (f *Fake) CreateMemory(_ context.Context, m *types.Memory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.memories[m.ID]; ok {
		return apperr.AlreadyExists("memory %q already exists", m.ID)
	}
	f.memories[m.ID] = *m
	return nil
}

func (f *Fake) GetMemory(_ context.Context, id string) (*types.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.memories[id]
	if !ok {
		return nil, apperr.NotFound("memory %q not found", id)
	}
	return &m, nil
}

func (f *Fake) ListMemories(_ context.Context) ([]types.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.Memory, 0, len(f.memories))
	for _, m := range f.memories {
		out = append(out, m)
	}
	return out, nil
}

func (f *Fake) DeleteMemory(_ context.Context, id string) (CascadeCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.memories[id]; !ok {
		return CascadeCounts{}, apperr.NotFound("memory %q not found", id)
	}
	var counts CascadeCounts
	for did, d := range f.documents {
		if d.MemoryID == id {
			counts.Documents++
			delete(f.documents, did)
		}
	}
	for eid, e := range f.entities {
		if e.MemoryID == id {
			counts.Entities++
			delete(f.entities, eid)
		}
	}
	for rid, r := range f.relations {
		if r.MemoryID == id {
			counts.Relations++
			delete(f.relations, rid)
		}
	}
	delete(f.memories, id)
	return counts, nil
}

func (f *Fake) Stats(_ context.Context, memoryID string) (types.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := types.Stats{MemoryID: memoryID}
	for _, d := range f.documents {
		if d.MemoryID == memoryID {
			st.Documents++
		}
	}
	for _, e := range f.entities {
		if e.MemoryID == memoryID {
			st.Entities++
		}
	}
	for _, r := range f.relations {
		if r.MemoryID == memoryID {
			st.Relations++
		}
	}
	return st, nil
}

func (f *Fake) UpsertDocument(_ context.Context, d *types.Document) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.documents {
		if existing.MemoryID == d.MemoryID && existing.ContentHash == d.ContentHash {
			*d = existing
			return false, nil
		}
	}
	f.documents[d.ID] = *d
	return true, nil
}

func (f *Fake) ReplaceDocumentContent(_ context.Context, id, objectURI string, textLength int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.documents[id]
	if !ok {
		return apperr.NotFound("document %q not found", id)
	}
	d.ObjectURI = objectURI
	d.TextLength = textLength
	f.documents[id] = d
	return nil
}

func (f *Fake) GetDocumentByHash(_ context.Context, memoryID, contentHash string) (*types.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.documents {
		if d.MemoryID == memoryID && d.ContentHash == contentHash {
			return &d, nil
		}
	}
	return nil, apperr.NotFound("document not found")
}

func (f *Fake) GetDocument(_ context.Context, id string) (*types.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.documents[id]
	if !ok {
		return nil, apperr.NotFound("document %q not found", id)
	}
	return &d, nil
}

func (f *Fake) ListDocuments(_ context.Context, memoryID string) ([]types.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Document
	for _, d := range f.documents {
		if d.MemoryID == memoryID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *Fake) DeleteDocument(_ context.Context, id string) (CascadeCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.documents[id]
	if !ok {
		return CascadeCounts{}, apperr.NotFound("document %q not found", id)
	}
	delete(f.documents, id)
	counts := CascadeCounts{Documents: 1}

	for eid, e := range f.entities {
		empty := e.RemoveSourceDoc(id)
		f.entities[eid] = e
		if empty {
			counts.Entities++
			delete(f.entities, eid)
			for rid, r := range f.relations {
				if r.FromEntity == eid || r.ToEntity == eid {
					counts.Relations++
					delete(f.relations, rid)
				}
			}
		}
	}
	_ = doc
	return counts, nil
}

func (f *Fake) MergeEntity(_ context.Context, memoryID, name, entityType, description, sourceDocID string) (*types.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, e := range f.entities {
		if e.MemoryID == memoryID && e.Name == name && e.Type == entityType {
			e.MergeDescription(description)
			e.AddSourceDoc(sourceDocID)
			f.entities[id] = e
			return &e, nil
		}
	}
	e := types.Entity{ID: "ent_" + uuid.NewString(), MemoryID: memoryID, Name: name, Type: entityType}
	e.MergeDescription(description)
	e.AddSourceDoc(sourceDocID)
	f.entities[e.ID] = e
	return &e, nil
}

func (f *Fake) GetEntity(_ context.Context, id string) (*types.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entities[id]
	if !ok {
		return nil, apperr.NotFound("entity %q not found", id)
	}
	return &e, nil
}

func (f *Fake) GetEntityByName(_ context.Context, memoryID, name, entityType string) (*types.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entities {
		if e.MemoryID == memoryID && e.Name == name && e.Type == entityType {
			return &e, nil
		}
	}
	return nil, apperr.NotFound("entity %q not found", name)
}

func (f *Fake) Neighbours(_ context.Context, entityID string, hops int) ([]types.Entity, []types.Relation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if hops < 1 {
		hops = 1
	}
	if hops > 2 {
		hops = 2
	}
	visited := map[string]bool{entityID: true}
	frontier := []string{entityID}
	var relations []types.Relation
	var neighbourIDs []string

	for h := 0; h < hops; h++ {
		var next []string
		for _, r := range f.relations {
			touches := false
			for _, id := range frontier {
				if r.FromEntity == id || r.ToEntity == id {
					touches = true
					break
				}
			}
			if !touches {
				continue
			}
			relations = append(relations, r)
			for _, candidate := range []string{r.FromEntity, r.ToEntity} {
				if !visited[candidate] {
					visited[candidate] = true
					next = append(next, candidate)
					neighbourIDs = append(neighbourIDs, candidate)
				}
			}
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}

	entities := make([]types.Entity, 0, len(neighbourIDs))
	for _, id := range neighbourIDs {
		if e, ok := f.entities[id]; ok {
			entities = append(entities, e)
		}
	}
	return entities, relations, nil
}

func (f *Fake) MergeRelation(_ context.Context, memoryID, fromEntity, toEntity, relType, description, sourceDoc string) (*types.Relation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, r := range f.relations {
		if r.MemoryID == memoryID && r.FromEntity == fromEntity && r.ToEntity == toEntity && r.Type == relType {
			if description != "" && description != r.Description {
				r.Description = r.Description + " | " + description
			}
			f.relations[id] = r
			return &r, nil
		}
	}
	r := types.Relation{
		ID: "rel_" + uuid.NewString(), MemoryID: memoryID,
		FromEntity: fromEntity, ToEntity: toEntity, Type: relType,
		Description: description, SourceDoc: sourceDoc,
	}
	f.relations[r.ID] = r
	return &r, nil
}

func (f *Fake) FullTextSearchEntities(_ context.Context, memoryID string, tokens []string, limit int) ([]types.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(tokens) == 0 {
		return nil, nil
	}
	var out []types.Entity
	for _, e := range f.entities {
		if e.MemoryID != memoryID {
			continue
		}
		folded := search.Fold(e.Name)
		for _, tok := range tokens {
			if folded == tok {
				out = append(out, e)
				break
			}
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *Fake) ContainsSearchEntities(_ context.Context, memoryID string, tokens []string, limit int) ([]types.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Entity
	for _, e := range f.entities {
		if e.MemoryID != memoryID {
			continue
		}
		lowered := toLower(e.Name)
		folded := search.Fold(e.Name)
		matched := false
		for _, tok := range tokens {
			if contains(lowered, tok) || contains(folded, tok) {
				matched = true
				break
			}
		}
		if matched {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *Fake) AllObjectURIs(_ context.Context, memoryID string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string)
	for _, d := range f.documents {
		if memoryID == "" || d.MemoryID == memoryID {
			out[d.ID] = d.ObjectURI
		}
	}
	return out, nil
}

func (f *Fake) CreateToken(_ context.Context, t *types.Token) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tokens[t.TokenHash]; ok {
		return apperr.AlreadyExists("token already exists")
	}
	f.tokens[t.TokenHash] = *t
	return nil
}

func (f *Fake) GetToken(_ context.Context, tokenHash string) (*types.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[tokenHash]
	if !ok {
		return nil, apperr.NotFound("token not found")
	}
	return &t, nil
}

func (f *Fake) ListTokens(_ context.Context) ([]types.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.Token, 0, len(f.tokens))
	for _, t := range f.tokens {
		out = append(out, t)
	}
	return out, nil
}

func (f *Fake) RevokeToken(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[tokenHash]
	if !ok {
		return apperr.NotFound("token not found")
	}
	now := time.Now()
	t.RevokedAt = &now
	f.tokens[tokenHash] = t
	return nil
}

func (f *Fake) UpdateTokenMemoryIDs(_ context.Context, tokenHash string, memoryIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[tokenHash]
	if !ok {
		return apperr.NotFound("token not found")
	}
	t.MemoryIDs = memoryIDs
	f.tokens[tokenHash] = t
	return nil
}

func (f *Fake) ReplaceGraphSnapshot(_ context.Context, snap types.GraphSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.memories[snap.Memory.ID]; ok {
		return apperr.AlreadyExists("memory %q already exists", snap.Memory.ID)
	}
	f.memories[snap.Memory.ID] = snap.Memory
	for _, d := range snap.Documents {
		f.documents[d.ID] = d
	}
	for _, e := range snap.Entities {
		f.entities[e.ID] = e
	}
	for _, r := range snap.Relations {
		f.relations[r.ID] = r
	}
	return nil
}

func (f *Fake) Snapshot(_ context.Context, memoryID string) (types.GraphSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.memories[memoryID]
	if !ok {
		return types.GraphSnapshot{}, apperr.NotFound("memory %q not found", memoryID)
	}
	snap := types.GraphSnapshot{Memory: m}
	for _, d := range f.documents {
		if d.MemoryID == memoryID {
			snap.Documents = append(snap.Documents, d)
		}
	}
	for _, e := range f.entities {
		if e.MemoryID == memoryID {
			snap.Entities = append(snap.Entities, e)
		}
	}
	for _, r := range f.relations {
		if r.MemoryID == memoryID {
			snap.Relations = append(snap.Relations, r)
		}
	}
	return snap, nil
}

func (f *Fake) Close() error { return nil }

var _ GraphStore = (*Fake)(nil)

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}

func contains(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
