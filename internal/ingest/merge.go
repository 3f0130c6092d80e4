package ingest

import (
	"encoding/json"
	"strings"

	"github.com/graphmemory/graphmemory/internal/llm"
)

// extractionAccumulator merges entities and relations across a
// document's extraction chunks (spec.md §4.4 stage 5), before the
// merged set ever reaches the graph store's own cross-document
// MergeEntity/MergeRelation. Dedup key for entities is
// (name_normalised, type); for relations, (from, to, type).
type extractionAccumulator struct {
	entitiesByKey  map[string]*mergedEntity
	entityOrder    []string
	relationsByKey map[string]*mergedRelation
	relationOrder  []string
}

type mergedEntity struct {
	name        string
	entityType  string
	description string
}

type mergedRelation struct {
	from, to, relType, description string
}

func newExtractionAccumulator() *extractionAccumulator {
	return &extractionAccumulator{
		entitiesByKey:  make(map[string]*mergedEntity),
		relationsByKey: make(map[string]*mergedRelation),
	}
}

func entityKey(name, entityType string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "\x00" + entityType
}

func relationKey(from, to, relType string) string {
	return strings.ToLower(strings.TrimSpace(from)) + "\x00" + strings.ToLower(strings.TrimSpace(to)) + "\x00" + relType
}

func mergeFragment(existing, frag string) string {
	if frag == "" {
		return existing
	}
	if existing == "" {
		return frag
	}
	if strings.Contains(existing, frag) {
		return existing
	}
	return existing + " | " + frag
}

// add folds one chunk's extraction result into the accumulator.
func (a *extractionAccumulator) add(r llm.ExtractionResult) {
	for _, e := range r.Entities {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		key := entityKey(name, e.Type)
		if existing, ok := a.entitiesByKey[key]; ok {
			existing.description = mergeFragment(existing.description, e.Description)
			continue
		}
		a.entitiesByKey[key] = &mergedEntity{name: name, entityType: e.Type, description: e.Description}
		a.entityOrder = append(a.entityOrder, key)
	}
	for _, rel := range r.Relations {
		from, to := strings.TrimSpace(rel.From), strings.TrimSpace(rel.To)
		if from == "" || to == "" {
			continue
		}
		key := relationKey(from, to, rel.Type)
		if existing, ok := a.relationsByKey[key]; ok {
			existing.description = mergeFragment(existing.description, rel.Description)
			continue
		}
		a.relationsByKey[key] = &mergedRelation{from: from, to: to, relType: rel.Type, description: rel.Description}
		a.relationOrder = append(a.relationOrder, key)
	}
}

func (a *extractionAccumulator) entities() []*mergedEntity {
	out := make([]*mergedEntity, 0, len(a.entityOrder))
	for _, k := range a.entityOrder {
		out = append(out, a.entitiesByKey[k])
	}
	return out
}

func (a *extractionAccumulator) relations() []*mergedRelation {
	out := make([]*mergedRelation, 0, len(a.relationOrder))
	for _, k := range a.relationOrder {
		out = append(out, a.relationsByKey[k])
	}
	return out
}

func (a *extractionAccumulator) entityCount() int   { return len(a.entityOrder) }
func (a *extractionAccumulator) relationCount() int { return len(a.relationOrder) }

type compactEntity struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type compactRelation struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type"`
}

type cumulativeSummary struct {
	Entities  []compactEntity   `json:"entities"`
	Relations []compactRelation `json:"relations"`
}

// cumulativeJSON renders a compact summary of everything extracted so
// far, passed to the next chunk's prompt as "already found" context
// (§4.4 stage 4). When the summary would exceed budget characters, the
// oldest relations are dropped first, then the oldest entities, until it
// fits — bounded because each iteration removes exactly one element.
func (a *extractionAccumulator) cumulativeJSON(budget int) string {
	if len(a.entityOrder) == 0 && len(a.relationOrder) == 0 {
		return ""
	}
	summary := cumulativeSummary{}
	for _, e := range a.entities() {
		summary.Entities = append(summary.Entities, compactEntity{Name: e.name, Type: e.entityType})
	}
	for _, r := range a.relations() {
		summary.Relations = append(summary.Relations, compactRelation{From: r.from, To: r.to, Type: r.relType})
	}

	raw, _ := json.Marshal(summary)
	for len(raw) > budget && (len(summary.Entities) > 0 || len(summary.Relations) > 0) {
		if len(summary.Relations) > 0 {
			summary.Relations = summary.Relations[1:]
		} else {
			summary.Entities = summary.Entities[1:]
		}
		raw, _ = json.Marshal(summary)
	}
	return string(raw)
}
