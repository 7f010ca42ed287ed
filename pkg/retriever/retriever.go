package retriever

import (
	"context"

	"docchat/internal/models"
	"docchat/internal/types"
)

type RetrieverConfig struct {
	TopK             int
	SimilarityCutoff float32
}

// Retriever embeds a standalone query, runs a top-K similarity search
// and drops everything below the relevance cutoff. An empty result set
// means "no sufficiently relevant context" and is a normal outcome, not
// an error.
type Retriever struct {
	config   RetrieverConfig
	embedder types.Embedder
	store    types.VectorStore
}

func NewWithConfig(config RetrieverConfig, embedder types.Embedder, store types.VectorStore) *Retriever {
	if config.TopK == 0 {
		config.TopK = 8
	}
	if config.SimilarityCutoff == 0 {
		config.SimilarityCutoff = 0.55
	}

	return &Retriever{
		config:   config,
		embedder: embedder,
		store:    store,
	}
}

func (r *Retriever) Retrieve(ctx context.Context, query string) ([]models.RetrievalResult, error) {
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := r.store.Search(ctx, vector, r.config.TopK)
	if err != nil {
		return nil, err
	}

	// The store returns results best-first; keep that order and cut
	// everything under the relevance floor.
	filtered := results[:0]
	for _, result := range results {
		if result.Score >= r.config.SimilarityCutoff {
			filtered = append(filtered, result)
		}
	}
	return filtered, nil
}
