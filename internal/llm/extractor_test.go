package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmemory/graphmemory/pkg/types"
)

func testOntology() *types.Ontology {
	return &types.Ontology{
		Name: "legal",
		EntityTypes: []types.TypeDef{
			{Name: "Person", Description: "a human"},
			{Name: "Organization", Description: "a company or institution"},
		},
		RelationTypes: []types.TypeDef{
			{Name: "WORKS_FOR", Description: "employment"},
		},
	}
}

func TestExtractParsesWellFormedJSON(t *testing.T) {
	gen := &FakeTextGenerator{Responses: []string{
		`{"entities":[{"name":"Ada Lovelace","type":"Person","description":"mathematician"}],"relations":[{"from":"Ada Lovelace","to":"Acme","type":"WORKS_FOR"}]}`,
	}}
	e := NewExtractor(gen)
	result, err := e.Extract(context.Background(), testOntology(), "", "Ada Lovelace worked for Acme.")
	require.NoError(t, err)
	require.Len(t, result.Entities, 1)
	assert.Equal(t, "Person", result.Entities[0].Type)
	require.Len(t, result.Relations, 1)
}

func TestExtractRecoversFromMarkdownFencedJSON(t *testing.T) {
	gen := &FakeTextGenerator{Responses: []string{
		"Here you go:\n```json\n{\"entities\":[{\"name\":\"Acme\",\"type\":\"Organization\"}],\"relations\":[]}\n```\nLet me know if you need more.",
	}}
	e := NewExtractor(gen)
	result, err := e.Extract(context.Background(), testOntology(), "", "Acme is a company.")
	require.NoError(t, err)
	require.Len(t, result.Entities, 1)
	assert.Equal(t, "Acme", result.Entities[0].Name)
}

func TestExtractCoercesUndeclaredTypeToOther(t *testing.T) {
	gen := &FakeTextGenerator{Responses: []string{
		`{"entities":[{"name":"Mount Everest","type":"Mountain"}],"relations":[]}`,
	}}
	e := NewExtractor(gen)
	result, err := e.Extract(context.Background(), testOntology(), "", "Mount Everest is tall.")
	require.NoError(t, err)
	require.Len(t, result.Entities, 1)
	assert.Equal(t, types.OtherEntityType, result.Entities[0].Type)
}

func TestExtractFailsOnUnrecoverableGarbage(t *testing.T) {
	gen := &FakeTextGenerator{Responses: []string{"not json at all, no braces here"}}
	e := NewExtractor(gen)
	_, err := e.Extract(context.Background(), testOntology(), "", "text")
	assert.Error(t, err)
}

func TestBuildExtractionPromptIncludesCumulativeContext(t *testing.T) {
	prompt := buildExtractionPrompt(testOntology(), `{"entities":["Ada Lovelace"]}`, "more text")
	assert.Contains(t, prompt, "Ada Lovelace")
	assert.Contains(t, prompt, "more text")
	assert.Contains(t, prompt, "WORKS_FOR")
}
