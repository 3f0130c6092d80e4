// Package search implements the accent-insensitive tokenisation used by
// both indexing and querying in the graph search component (§4.7).
// golang.org/x/text is carried in the dependency graph of several repos
// in the example pack (vasic-digital-SuperAgent, theRebelliousNerd-codenerd)
// as the ecosystem-standard way to normalise Unicode text in Go; it is
// used here directly for its canonical purpose, NFKD decomposition
// followed by combining-mark removal, which is the Go-idiomatic
// replacement for relying on a database-side unaccent extension.
package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold NFKD-normalises s and strips combining marks, returning a
// lowercased, accent-folded string. "Réversibilité" folds to
// "reversibilite".
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Tokenize extracts alphabetic word runs (Unicode letters only),
// lowercases and accent-folds each, drops stopwords and tokens shorter
// than two characters, per §4.7.
func Tokenize(s string, stop *Stopwords) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		tok := Fold(cur.String())
		cur.Reset()
		if len(tok) < 2 {
			return
		}
		if stop != nil && stop.Contains(tok) {
			return
		}
		tokens = append(tokens, tok)
	}
	for _, r := range s {
		if unicode.IsLetter(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}
