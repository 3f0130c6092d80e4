package chunker

// ExtractionChunks partitions text into fixed-size, non-overlapping
// slices for the ingestion pipeline's extraction pass (§4.4 stage 4).
// Unlike the semantic chunker, this pass never carries overlap between
// chunks — entity/relation merge (stage 5) is what reconciles duplicate
// mentions that straddle a chunk boundary, so preserving continuity
// here would only waste LLM context budget.
func ExtractionChunks(text string, size int) []string {
	if size <= 0 {
		size = 25000
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	var out []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}
