package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmemory/graphmemory/internal/llm"
)

func TestAccumulatorMergesEntityAcrossChunksByNameAndType(t *testing.T) {
	acc := newExtractionAccumulator()
	acc.add(llm.ExtractionResult{
		Entities: []llm.ExtractedEntity{{Name: "Acme", Type: "Organization", Description: "a company"}},
	})
	acc.add(llm.ExtractionResult{
		Entities: []llm.ExtractedEntity{{Name: "Acme", Type: "Organization", Description: "based in Lyon"}},
	})

	entities := acc.entities()
	require.Len(t, entities, 1)
	assert.Equal(t, "a company | based in Lyon", entities[0].description)
}

func TestAccumulatorDoesNotDuplicateIdenticalDescriptionFragment(t *testing.T) {
	acc := newExtractionAccumulator()
	acc.add(llm.ExtractionResult{Entities: []llm.ExtractedEntity{{Name: "Acme", Type: "Organization", Description: "a company"}}})
	acc.add(llm.ExtractionResult{Entities: []llm.ExtractedEntity{{Name: "Acme", Type: "Organization", Description: "a company"}}})

	assert.Equal(t, "a company", acc.entities()[0].description)
}

func TestAccumulatorTreatsDifferentTypesAsDistinctEntities(t *testing.T) {
	acc := newExtractionAccumulator()
	acc.add(llm.ExtractionResult{Entities: []llm.ExtractedEntity{
		{Name: "Acme", Type: "Organization"},
		{Name: "Acme", Type: "Person"},
	}})
	assert.Len(t, acc.entities(), 2)
}

func TestAccumulatorMergesRelationsByFromToType(t *testing.T) {
	acc := newExtractionAccumulator()
	acc.add(llm.ExtractionResult{Relations: []llm.ExtractedRelation{
		{From: "Ada Lovelace", To: "Acme", Type: "WORKS_FOR", Description: "since 2020"},
	}})
	acc.add(llm.ExtractionResult{Relations: []llm.ExtractedRelation{
		{From: "Ada Lovelace", To: "Acme", Type: "WORKS_FOR", Description: "as CTO"},
	}})

	relations := acc.relations()
	require.Len(t, relations, 1)
	assert.Equal(t, "since 2020 | as CTO", relations[0].description)
}

func TestCumulativeJSONEmptyWhenNothingExtractedYet(t *testing.T) {
	acc := newExtractionAccumulator()
	assert.Equal(t, "", acc.cumulativeJSON(1000))
}

func TestCumulativeJSONTruncatesToBudgetByDroppingOldest(t *testing.T) {
	acc := newExtractionAccumulator()
	for i := 0; i < 50; i++ {
		acc.add(llm.ExtractionResult{Entities: []llm.ExtractedEntity{
			{Name: "Entity" + string(rune('A'+i%26)) + string(rune('0'+i/26)), Type: "Organization"},
		}})
	}
	out := acc.cumulativeJSON(200)
	assert.LessOrEqual(t, len(out), 200)
	assert.NotEmpty(t, out)
}
