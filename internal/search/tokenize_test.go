package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldStripsCombiningMarks(t *testing.T) {
	assert.Equal(t, "reversibilite", Fold("Réversibilité"))
	assert.Equal(t, "reversibilite", Fold("reversibilite"))
}

func TestTokenizeDropsStopwordsAndShortTokens(t *testing.T) {
	tokens := Tokenize("Le contrat de Cloud Temple et Acme a ete signe", DefaultStopwords)
	assert.Contains(t, tokens, "contrat")
	assert.Contains(t, tokens, "cloud")
	assert.Contains(t, tokens, "temple")
	assert.Contains(t, tokens, "acme")
	assert.NotContains(t, tokens, "le")
	assert.NotContains(t, tokens, "de")
	assert.NotContains(t, tokens, "et")
	assert.NotContains(t, tokens, "a")
}

func TestTokenizeAccentInsensitive(t *testing.T) {
	withAccent := Tokenize("Réversibilité", nil)
	withoutAccent := Tokenize("reversibilite", nil)
	assert.Equal(t, withoutAccent, withAccent)
}
