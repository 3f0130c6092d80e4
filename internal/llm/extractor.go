package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/graphmemory/graphmemory/pkg/types"
)

// ExtractedEntity is one entity surfaced by a single extraction chunk,
// before merge (§4.4 stage 5) reconciles it against others.
type ExtractedEntity struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// ExtractedRelation is one relation surfaced by a single extraction
// chunk, referencing entities by name (resolved to ids at persist time,
// §4.4 stage 6).
type ExtractedRelation struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// ExtractionResult is what one chunk's LLM call yields.
type ExtractionResult struct {
	Entities  []ExtractedEntity
	Relations []ExtractedRelation
}

type extractionResponse struct {
	Entities  []ExtractedEntity   `json:"entities"`
	Relations []ExtractedRelation `json:"relations"`
}

// Extractor assembles the extraction prompt (ontology + cumulative
// context + chunk text) and calls a TextGenerator, parsing its JSON
// response leniently. Grounded on the teacher's prompts.go construction
// style and response_parser.go's extractJSON brace-matching recovery,
// generalized from the teacher's separate entity/relationship passes
// into §4.4 stage 4's single combined entities+relations call.
type Extractor struct {
	gen TextGenerator
}

func NewExtractor(gen TextGenerator) *Extractor {
	return &Extractor{gen: gen}
}

// Extract runs one chunk through the LLM. cumulativeContext is a
// compact JSON rendering of entities/relations already extracted from
// prior chunks in the same document, truncated by the caller to a
// budget before being passed in (§4.4 stage 4, §9's context-budgeting
// note).
func (e *Extractor) Extract(ctx context.Context, ont *types.Ontology, cumulativeContext, chunkText string) (ExtractionResult, error) {
	prompt := buildExtractionPrompt(ont, cumulativeContext, chunkText)
	raw, err := e.gen.Complete(ctx, prompt)
	if err != nil {
		return ExtractionResult{}, err
	}
	return parseExtractionResponse(raw, ont)
}

func buildExtractionPrompt(ont *types.Ontology, cumulativeContext, chunkText string) string {
	var b strings.Builder
	b.WriteString("Extract entities and relations from the text below, following this ontology.\n\n")
	b.WriteString("Entity types:\n")
	for _, t := range ont.EntityTypes {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
		for _, ex := range t.Examples {
			fmt.Fprintf(&b, "  e.g. %s\n", ex)
		}
	}
	b.WriteString("\nRelation types:\n")
	for _, t := range ont.RelationTypes {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
	}
	if len(ont.PriorityEntities) > 0 {
		fmt.Fprintf(&b, "\nPrioritise these entity types: %s\n", strings.Join(ont.PriorityEntities, ", "))
	}
	if len(ont.PriorityRelations) > 0 {
		fmt.Fprintf(&b, "Prioritise these relation types: %s\n", strings.Join(ont.PriorityRelations, ", "))
	}
	if ont.Instructions != "" {
		fmt.Fprintf(&b, "\nInstructions: %s\n", ont.Instructions)
	}
	if cumulativeContext != "" && cumulativeContext != "{}" {
		fmt.Fprintf(&b, "\nEntities and relations already found in this document:\n%s\n", cumulativeContext)
	}
	b.WriteString("\nRespond with a single JSON object: {\"entities\":[{\"name\":...,\"type\":...,\"description\":...}],\"relations\":[{\"from\":...,\"to\":...,\"type\":...,\"description\":...}]}\n\n")
	b.WriteString("Text:\n")
	b.WriteString(chunkText)
	return b.String()
}

// parseExtractionResponse decodes the model's JSON, attempting lenient
// brace-matching recovery when strict decoding fails, and coerces any
// type the ontology doesn't declare to types.OtherEntityType.
func parseExtractionResponse(raw string, ont *types.Ontology) (ExtractionResult, error) {
	var resp extractionResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		recovered := extractJSONObject(raw)
		if recovered == "" {
			return ExtractionResult{}, fmt.Errorf("extraction response is not valid JSON: %w", err)
		}
		if err := json.Unmarshal([]byte(recovered), &resp); err != nil {
			return ExtractionResult{}, fmt.Errorf("extraction response unparseable after recovery: %w", err)
		}
	}

	for i := range resp.Entities {
		resp.Entities[i].Name = strings.TrimSpace(resp.Entities[i].Name)
		resp.Entities[i].Type = ont.NormalizeEntityType(resp.Entities[i].Type)
	}
	return ExtractionResult{Entities: resp.Entities, Relations: resp.Relations}, nil
}

// extractJSONObject finds the first balanced {...} object in text,
// tolerating markdown code fences and leading/trailing prose — the
// lenient-recovery fallback required by §4.4 stage 4.
func extractJSONObject(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.IndexByte(text, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escape := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escape {
			escape = false
			continue
		}
		switch ch {
		case '\\':
			escape = true
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}
