package search

// Stopwords is a configurable language resource, per the specification's
// design note that the stopword set and language bias are not hardcoded
// assumptions but a swappable resource.
type Stopwords struct {
	set map[string]struct{}
}

// NewStopwords builds a Stopwords set from words, folding each the same
// way Tokenize folds query/document tokens so lookups are consistent.
func NewStopwords(words []string) *Stopwords {
	s := &Stopwords{set: make(map[string]struct{}, len(words))}
	for _, w := range words {
		s.set[Fold(w)] = struct{}{}
	}
	return s
}

// Contains reports whether tok (already folded) is a stopword.
func (s *Stopwords) Contains(tok string) bool {
	if s == nil {
		return false
	}
	_, ok := s.set[tok]
	return ok
}

// DefaultStopwords is a French+English seed list, reflecting the
// specification's note that the source system's behaviour is
// French-biased.
var DefaultStopwords = NewStopwords([]string{
	"le", "la", "les", "un", "une", "des", "de", "du", "et", "ou", "est",
	"en", "au", "aux", "ce", "ces", "que", "qui", "pour", "avec", "dans",
	"sur", "par", "ne", "pas", "se", "sa", "son", "ses",
	"the", "a", "an", "and", "or", "is", "are", "of", "to", "in", "on",
	"for", "with", "by", "not", "this", "that", "it", "as", "at", "be",
})
