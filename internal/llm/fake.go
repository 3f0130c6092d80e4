package llm

import "context"

// FakeTextGenerator is a scripted TextGenerator for tests: Responses is
// consumed in order, one per Complete call; Err (if set) is returned
// instead, matching internal/graphstore.Fake's plain-struct-double style.
type FakeTextGenerator struct {
	Responses []string
	Err       error
	calls     int
	Prompts   []string
}

func (f *FakeTextGenerator) Complete(_ context.Context, prompt string) (string, error) {
	f.Prompts = append(f.Prompts, prompt)
	if f.Err != nil {
		return "", f.Err
	}
	if f.calls >= len(f.Responses) {
		return "", nil
	}
	r := f.Responses[f.calls]
	f.calls++
	return r, nil
}

func (f *FakeTextGenerator) GetModel() string { return "fake-chat" }

var _ TextGenerator = (*FakeTextGenerator)(nil)

// FakeEmbedder returns a deterministic vector per text: component i is
// byte i of the text (cycling when the text is shorter than Dim) divided
// by 255, so equal texts embed identically and texts that differ within
// their first Dim bytes do not — enough for ranking
// assertions in retrieval-core tests without a real embedding model.
type FakeEmbedder struct {
	Dim int
	Err error
}

func (f *FakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *FakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	dim := f.Dim
	if dim <= 0 {
		dim = 8
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = deterministicVector(t, dim)
	}
	return out, nil
}

func (f *FakeEmbedder) GetModel() string { return "fake-embed" }

var _ BatchEmbeddingGenerator = (*FakeEmbedder)(nil)

func deterministicVector(text string, dim int) []float32 {
	vec := make([]float32, dim)
	if text == "" {
		return vec
	}
	for i := 0; i < dim; i++ {
		vec[i] = float32(text[i%len(text)]) / 255.0
	}
	return vec
}
