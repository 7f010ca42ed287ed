package llm

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"docchat/internal/types"
)

type EmbedderConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	BatchSize  int
	MaxRetries int
	RateLimit  float64
}

// Embedder computes OpenAI embeddings in batches. Each batch is retried
// with exponential backoff; a failure after the retry budget, or a
// dimension mismatch inside the model output, is an EmbeddingError and
// fatal for the ingestion run.
type Embedder struct {
	config  EmbedderConfig
	client  EmbeddingClient
	limiter *rate.Limiter

	// dim is set on the first successful call. One embedder is shared
	// across concurrent sessions, so the read-check-write is atomic.
	dim atomic.Int32
}

type EmbeddingClient interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	applyEmbedderDefaults(&config)

	opts := []openai.Option{
		openai.WithToken(config.APIKey),
		openai.WithEmbeddingModel(config.Model),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding model: %w", err)
	}
	return newEmbedder(client, config), nil
}

// NewEmbedderWithClient wires an explicit client, used by tests.
func NewEmbedderWithClient(client EmbeddingClient, config EmbedderConfig) *Embedder {
	applyEmbedderDefaults(&config)
	return newEmbedder(client, config)
}

func newEmbedder(client EmbeddingClient, config EmbedderConfig) *Embedder {
	return &Embedder{
		config:  config,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

func applyEmbedderDefaults(config *EmbedderConfig) {
	if config.Model == "" {
		config.Model = "text-embedding-3-small"
	}
	if config.BatchSize == 0 {
		config.BatchSize = 64
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 5
	}
	if config.RateLimit == 0 {
		config.RateLimit = 5.0
	}
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += e.config.BatchSize {
		end := i + e.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := i / e.config.BatchSize
		vectors, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, &types.EmbeddingError{Batch: batch, Err: err}
		}
		out = append(out, vectors...)
	}

	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, &types.EmbeddingError{Err: err}
	}
	return vectors[0], nil
}

// Dimension reports the vector size observed on the first successful
// call, 0 before that.
func (e *Embedder) Dimension() int { return int(e.dim.Load()) }

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error

	for attempt := 0; attempt <= e.config.MaxRetries; attempt++ {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		vectors, err := e.client.CreateEmbedding(ctx, texts)
		if err != nil {
			lastErr = err
			if attempt < e.config.MaxRetries {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(retryDelay(attempt)):
				}
				continue
			}
			break
		}

		if err := e.checkDimensions(vectors, len(texts)); err != nil {
			return nil, err
		}
		return vectors, nil
	}

	return nil, lastErr
}

func (e *Embedder) checkDimensions(vectors [][]float32, want int) error {
	if len(vectors) != want {
		return fmt.Errorf("model returned %d vectors for %d inputs", len(vectors), want)
	}
	for _, v := range vectors {
		dim := int32(len(v))
		if !e.dim.CompareAndSwap(0, dim) && e.dim.Load() != dim {
			return fmt.Errorf("dimension mismatch: got %d, want %d", dim, e.dim.Load())
		}
	}
	return nil
}

func retryDelay(attempt int) time.Duration {
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
