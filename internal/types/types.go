package types

import (
	"context"

	"docchat/internal/models"
)

// Core interfaces. Consumers depend on these rather than on the
// concrete parser, store and model clients so they can be swapped for
// test doubles.

// Parser converts raw source files under a directory into normalized
// Documents. Individual unreadable files are skipped with a warning;
// the returned error is reserved for failures that void the whole run.
type Parser interface {
	Load(ctx context.Context, dir string) ([]models.Document, error)
}

// Processor splits Documents into retrieval-sized Chunks.
type Processor interface {
	Process(docs []models.Document) ([]models.Chunk, error)
}

// Embedder computes embedding vectors for texts.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// VectorStore persists index records and answers nearest-neighbor
// queries by cosine similarity, best match first. It is read-shared
// across sessions and written only by the ingestion pipeline.
type VectorStore interface {
	Upsert(ctx context.Context, records []models.IndexRecord) error
	Search(ctx context.Context, vector []float32, k int) ([]models.RetrievalResult, error)
	Close()
}

// Retriever embeds a query, searches the store and drops results below
// the relevance cutoff. An empty slice is a valid outcome.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]models.RetrievalResult, error)
}

// Answerer produces a citation-grounded Answer from a standalone query
// and the retrieved passages. It must return a usable Answer even when
// results is empty.
type Answerer interface {
	Answer(ctx context.Context, query string, results []models.RetrievalResult) (models.Answer, error)
}

// Condenser rewrites a context-dependent follow-up into a standalone
// query using the session history.
type Condenser interface {
	Condense(ctx context.Context, history []models.Turn, utterance string) (string, error)
}
