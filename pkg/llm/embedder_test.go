package llm_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/types"
	"docchat/pkg/llm"
)

// fakeEmbeddingClient returns a fixed-size vector per input and can be
// scripted to fail for the first few calls.
type fakeEmbeddingClient struct {
	mu       sync.Mutex
	dim      int
	calls    int
	failures int
	batches  [][]string
	oddDim   bool
}

func (f *fakeEmbeddingClient) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.batches = append(f.batches, texts)
	if f.calls <= f.failures {
		return nil, errors.New("temporary upstream error")
	}

	out := make([][]float32, len(texts))
	for i := range texts {
		dim := f.dim
		if f.oddDim && i%2 == 1 {
			dim++
		}
		out[i] = make([]float32, dim)
		out[i][0] = 1
	}
	return out, nil
}

func TestEmbedDocumentsBatches(t *testing.T) {
	client := &fakeEmbeddingClient{dim: 4}
	e := llm.NewEmbedderWithClient(client, llm.EmbedderConfig{BatchSize: 2, RateLimit: 1000})

	vectors, err := e.EmbedDocuments(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)

	assert.Len(t, vectors, 5)
	assert.Equal(t, 3, client.calls) // 2 + 2 + 1
	assert.Equal(t, []string{"e"}, client.batches[2])
	assert.Equal(t, 4, e.Dimension())
}

func TestEmbedDocumentsRetriesThenSucceeds(t *testing.T) {
	client := &fakeEmbeddingClient{dim: 4, failures: 2}
	e := llm.NewEmbedderWithClient(client, llm.EmbedderConfig{BatchSize: 8, MaxRetries: 3, RateLimit: 1000})

	vectors, err := e.EmbedDocuments(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vectors, 2)
	assert.Equal(t, 3, client.calls)
}

func TestEmbedDocumentsExhaustsRetries(t *testing.T) {
	client := &fakeEmbeddingClient{dim: 4, failures: 100}
	e := llm.NewEmbedderWithClient(client, llm.EmbedderConfig{BatchSize: 8, MaxRetries: 2, RateLimit: 1000})

	_, err := e.EmbedDocuments(context.Background(), []string{"a"})
	var embErr *types.EmbeddingError
	require.True(t, errors.As(err, &embErr))
	assert.Equal(t, 3, client.calls) // initial try + 2 retries
}

func TestEmbedDocumentsDimensionMismatch(t *testing.T) {
	client := &fakeEmbeddingClient{dim: 4, oddDim: true}
	e := llm.NewEmbedderWithClient(client, llm.EmbedderConfig{BatchSize: 8, RateLimit: 1000})

	_, err := e.EmbedDocuments(context.Background(), []string{"a", "b"})
	var embErr *types.EmbeddingError
	require.True(t, errors.As(err, &embErr))
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestEmbedQueryConcurrentFirstCalls(t *testing.T) {
	client := &fakeEmbeddingClient{dim: 3}
	e := llm.NewEmbedderWithClient(client, llm.EmbedderConfig{RateLimit: 1000})

	// One embedder is shared across sessions; the first queries may
	// arrive together and all observe the dimension at once.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vector, err := e.EmbedQuery(context.Background(), "what was the deposit?")
			assert.NoError(t, err)
			assert.Len(t, vector, 3)
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, e.Dimension())
}

func TestEmbedQuery(t *testing.T) {
	client := &fakeEmbeddingClient{dim: 3}
	e := llm.NewEmbedderWithClient(client, llm.EmbedderConfig{RateLimit: 1000})

	vector, err := e.EmbedQuery(context.Background(), "what was the deposit?")
	require.NoError(t, err)
	assert.Len(t, vector, 3)
	assert.Equal(t, 3, e.Dimension())
}
