package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/graphmemory/graphmemory/internal/apperr"
)

// OpenAIConfig configures a chat-completion client against an
// OpenAI-compatible `/v1/chat/completions` endpoint — the teacher's
// hardcoded api.openai.com becomes a configured BaseURL per
// LLMConfig, since §4.4/§9 only require an OpenAI-shaped wire format,
// not the vendor.
type OpenAIConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	Timeout   time.Duration // default 60s; the server sets it from extraction_timeout_s
	MaxTokens int           // default 4096, per extraction_max_tokens tunable
}

// OpenAIClient implements TextGenerator against the chat completions
// endpoint, with every call routed through a CircuitBreaker.
type OpenAIClient struct {
	cfg            OpenAIConfig
	client         *http.Client
	circuitBreaker *CircuitBreaker
}

func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	return &OpenAIClient{
		cfg:            cfg,
		client:         &http.Client{Timeout: cfg.Timeout},
		circuitBreaker: NewCircuitBreaker(),
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends a single-turn, temperature-0 completion and returns
// the response text. Used by both extraction (§4.4 stage 4) and
// question_answer (§4.8) — extraction passes its own per-chunk timeout
// via ctx, question_answer relies on cfg.Timeout.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.complete(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return "", apperr.DependencyFailure("llm", err)
		}
		return "", err
	}
	return result.(string), nil
}

func (c *OpenAIClient) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0,
		MaxTokens:   c.cfg.MaxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", apperr.DependencyFailure("llm", fmt.Errorf("send chat request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", apperr.DependencyFailure("llm", fmt.Errorf("chat completion status %d: %s", resp.StatusCode, string(body)))
	}

	var respData chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(respData.Choices) == 0 {
		return "", apperr.DependencyFailure("llm", errors.New("chat completion returned no choices"))
	}
	return respData.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) GetModel() string { return c.cfg.Model }

var _ TextGenerator = (*OpenAIClient)(nil)

// OpenAIEmbeddingConfig configures an embedding client against an
// OpenAI-compatible `/v1/embeddings` endpoint.
type OpenAIEmbeddingConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int // default 5, hard cap on 429/5xx backoff retries (§4.6)
}

// OpenAIEmbeddingClient implements EmbeddingGenerator with batched
// embedding support and jittered exponential backoff on 429/5xx,
// matching §4.6's embedder contract.
type OpenAIEmbeddingClient struct {
	cfg            OpenAIEmbeddingConfig
	client         *http.Client
	circuitBreaker *CircuitBreaker
}

func NewOpenAIEmbeddingClient(cfg OpenAIEmbeddingConfig) *OpenAIEmbeddingClient {
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}
	return &OpenAIEmbeddingClient{
		cfg:            cfg,
		client:         &http.Client{Timeout: cfg.Timeout},
		circuitBreaker: NewCircuitBreaker(),
	}
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed generates an embedding for a single text, satisfying
// EmbeddingGenerator. Callers ingesting many chunks should prefer
// EmbedBatch.
func (c *OpenAIEmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds up to len(texts) strings in one request, retrying
// the whole batch with jittered exponential backoff on 429/5xx up to
// MaxRetries times before giving up (§4.6).
func (c *OpenAIEmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.embedBatchWithRetry(ctx, texts)
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return nil, apperr.DependencyFailure("llm", err)
		}
		return nil, err
	}
	return result.([][]float32), nil
}

func (c *OpenAIEmbeddingClient) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		vecs, retryable, err := c.embedBatch(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, apperr.DependencyFailure("llm", fmt.Errorf("embedding retries exhausted: %w", lastErr))
}

// backoffDelay returns an exponential delay with +/-20% jitter, capped
// at 30s, for retry attempt n (1-indexed).
func backoffDelay(n int) time.Duration {
	base := math.Pow(2, float64(n-1)) * float64(200*time.Millisecond)
	if base > float64(30*time.Second) {
		base = float64(30 * time.Second)
	}
	jitter := base * (0.8 + 0.4*rand.Float64())
	return time.Duration(jitter)
}

func (c *OpenAIEmbeddingClient) embedBatch(ctx context.Context, texts []string) (vecs [][]float32, retryable bool, err error) {
	reqBody := embeddingRequest{Model: c.cfg.Model, Input: texts}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, false, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/v1/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return nil, false, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, apperr.DependencyFailure("llm", fmt.Errorf("send embedding request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		body, _ := io.ReadAll(resp.Body)
		return nil, true, apperr.DependencyFailure("llm", fmt.Errorf("embedding status %d: %s", resp.StatusCode, string(body)))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, false, apperr.DependencyFailure("llm", fmt.Errorf("embedding status %d: %s", resp.StatusCode, string(body)))
	}

	var respData embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return nil, false, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(respData.Data) != len(texts) {
		return nil, false, apperr.DependencyFailure("llm", fmt.Errorf("embedding returned %d vectors for %d inputs", len(respData.Data), len(texts)))
	}

	out := make([][]float32, len(texts))
	for _, d := range respData.Data {
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = vec
	}
	return out, false, nil
}

func (c *OpenAIEmbeddingClient) GetModel() string { return c.cfg.Model }

var _ BatchEmbeddingGenerator = (*OpenAIEmbeddingClient)(nil)
