package chunker

// PackedChunk is one packed passage of the semantic chunker's output (§4.5).
type PackedChunk struct {
	Sequence    int
	SectionPath []string
	TokenCount  int
	Text        string
}

// Options configures the semantic chunker. A TargetTokens of zero or
// less falls back to 500; Overlap has no fallback, and zero or a
// negative value means no overlap.
type Options struct {
	TargetTokens int // default 500
	Overlap      int // 0 or negative: no overlap
}

// Chunk splits text into a bounded, ordered sequence of chunks,
// grounded on the teacher's internal/llm/chunker.go sentence-packing
// loop, extended with heading-derived section paths and the
// discard-overlap-rather-than-iterate termination invariant (§4.5 step
// 5) that the teacher's version lacked — the teacher's loop could spin
// if the overlap window itself already exceeded the target, which this
// guards against explicitly.
func Chunk(text string, opts Options) []PackedChunk {
	if opts.TargetTokens <= 0 {
		opts.TargetTokens = 500
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}

	headings := detectHeadings(text)
	pathAt := sectionTree(headings)
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []PackedChunk
	var current []sentence
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		var b []byte
		for _, s := range current {
			b = append(b, s.text...)
		}
		chunks = append(chunks, PackedChunk{
			Sequence:    len(chunks),
			SectionPath: pathAt(current[0].offset),
			TokenCount:  currentTokens,
			Text:        string(b),
		})
	}

	for _, s := range sentences {
		sTokens := EstimateTokens(s.text)

		if currentTokens > 0 && currentTokens+sTokens > opts.TargetTokens {
			flush()

			overlap := carryOverlap(current, opts.Overlap)
			// Termination invariant: if the overlap alone already meets
			// or exceeds the target, drop it rather than risk the next
			// sentence never fitting and looping forever.
			overlapTokens := sumTokens(overlap)
			if overlapTokens >= opts.TargetTokens {
				overlap = nil
				overlapTokens = 0
			}
			current = overlap
			currentTokens = overlapTokens
		}

		current = append(current, s)
		currentTokens += sTokens
	}
	flush()

	return chunks
}

// carryOverlap returns the trailing sentences of prev whose cumulative
// token count is at most budget, in order.
func carryOverlap(prev []sentence, budget int) []sentence {
	if budget <= 0 || len(prev) == 0 {
		return nil
	}
	total := 0
	start := len(prev)
	for i := len(prev) - 1; i >= 0; i-- {
		t := EstimateTokens(prev[i].text)
		if total+t > budget {
			break
		}
		total += t
		start = i
	}
	return append([]sentence(nil), prev[start:]...)
}

func sumTokens(ss []sentence) int {
	total := 0
	for _, s := range ss {
		total += EstimateTokens(s.text)
	}
	return total
}
