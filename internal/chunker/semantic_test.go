package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkProducesOrderedSequenceWithSectionPaths(t *testing.T) {
	text := "# Intro\nAda Lovelace wrote notes on the Analytical Engine. She described an algorithm.\n\n# Legacy\nHer work inspired later computer scientists. It remains influential today."
	chunks := Chunk(text, Options{TargetTokens: 500, Overlap: 50})
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, i, c.Sequence)
	}
	assert.Contains(t, chunks[0].SectionPath, "Intro")
}

func TestChunkRespectsTargetTokenBoundary(t *testing.T) {
	sentence := "The quick brown fox jumps over the lazy dog repeatedly. "
	text := strings.Repeat(sentence, 40)
	chunks := Chunk(text, Options{TargetTokens: 50, Overlap: 10})
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.TokenCount, 50+EstimateTokens(sentence))
	}
}

func TestChunkTerminatesWhenOverlapExceedsTarget(t *testing.T) {
	sentence := "A moderately long sentence that takes up a chunk of the token budget on its own. "
	text := strings.Repeat(sentence, 20)
	chunks := Chunk(text, Options{TargetTokens: 10, Overlap: 1000})
	assert.NotEmpty(t, chunks)
	assert.Less(t, len(chunks), 1000)
}

func TestChunkEmptyTextReturnsNoChunks(t *testing.T) {
	assert.Empty(t, Chunk("   \n\t  ", Options{}))
}

func TestExtractionChunksAreFixedSizeNonOverlapping(t *testing.T) {
	text := strings.Repeat("x", 100)
	chunks := ExtractionChunks(text, 30)
	require.Len(t, chunks, 4)
	assert.Len(t, chunks[0], 30)
	assert.Len(t, chunks[3], 10)
	assert.Equal(t, text, strings.Join(chunks, ""))
}
