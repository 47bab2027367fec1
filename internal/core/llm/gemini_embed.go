package llm

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"campusassist/internal/apperr"
	"campusassist/internal/core"
)

type GeminiEmbedder struct {
	client    *genai.Client
	modelName string
	dim       int
	timeout   time.Duration
}

func NewGeminiEmbedder(ctx context.Context, apiKey, modelName string, dim int, timeout time.Duration) (*GeminiEmbedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("embedder: GEMINI_API_KEY: %w", apperr.ErrConfig)
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-embedding-001"
	}
	if dim <= 0 {
		dim = 1024
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeminiEmbedder{client: cl, modelName: modelName, dim: dim, timeout: timeout}, nil
}

func (g *GeminiEmbedder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Embed returns a vector of exactly the configured dimension. A vector
// of any other length violates the store's column contract and is
// rejected here rather than at insert time.
func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	em := g.client.EmbeddingModel(g.modelName)
	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, classify("gemini embed", err)
	}
	if resp == nil || resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini embed: %w", apperr.ErrEmptyResponse)
	}
	vec := resp.Embedding.Values
	if len(vec) != g.dim {
		return nil, fmt.Errorf("gemini embed: got %d values, want %d: %w", len(vec), g.dim, apperr.ErrDimensionMismatch)
	}
	return vec, nil
}

var _ core.EmbeddingProvider = (*GeminiEmbedder)(nil)
