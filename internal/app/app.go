// Package app wires configured components together for the command
// entry points. All dependencies are passed explicitly; nothing here
// holds global state.
package app

import (
	"context"

	"docchat/internal/types"
	"docchat/pkg/config"
	"docchat/pkg/llm"
	"docchat/pkg/retriever"
	"docchat/pkg/store"
)

func BuildEmbedder(cfg *config.Config) (*llm.Embedder, error) {
	return llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		APIKey:     cfg.Credentials.OpenAIAPIKey,
		Model:      cfg.LLM.EmbeddingModel,
		BatchSize:  cfg.LLM.EmbedBatchSize,
		MaxRetries: cfg.LLM.MaxRetries,
	})
}

// BuildStore opens the configured backend. dimension may be zero when
// the collection is known to exist already (query-time use).
func BuildStore(ctx context.Context, cfg *config.Config, dimension int) (types.VectorStore, error) {
	return store.Open(ctx, store.Options{
		Backend:          cfg.Store.Backend,
		QdrantURL:        cfg.Qdrant.URL,
		QdrantCollection: cfg.Qdrant.Collection,
		DatabaseURL:      cfg.Store.DatabaseURL,
		TableName:        cfg.Store.TableName,
		Dimension:        dimension,
	})
}

// BuildQueryPipeline assembles the online side: condenser, retriever
// over the store, and the citation answerer.
func BuildQueryPipeline(cfg *config.Config, vs types.VectorStore) (types.Condenser, types.Retriever, types.Answerer, error) {
	embedder, err := BuildEmbedder(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	condenser, err := llm.NewCondenserWithConfig(llm.CondenserConfig{
		APIKey: cfg.Credentials.OpenAIAPIKey,
		Model:  cfg.LLM.ChatModel,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	answerer, err := llm.NewWithConfig(llm.ChatConfig{
		APIKey:            cfg.Credentials.OpenAIAPIKey,
		Model:             cfg.LLM.ChatModel,
		Temperature:       cfg.LLM.Temperature,
		CitationChunkSize: cfg.Retrieval.CitationSize,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	ret := retriever.NewWithConfig(retriever.RetrieverConfig{
		TopK:             cfg.Retrieval.TopK,
		SimilarityCutoff: cfg.Retrieval.SimilarityCutoff,
	}, embedder, vs)

	return condenser, ret, answerer, nil
}
