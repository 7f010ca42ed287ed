// Package store implements the vector index: persisted {text, metadata,
// embedding} records under a named collection, queried by cosine
// similarity. Three interchangeable backends sit behind the
// types.VectorStore interface: qdrant (default), pgvector and memory.
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"docchat/internal/types"
)

// Options selects and configures a backend.
type Options struct {
	Backend string // qdrant, pgvector or memory

	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string

	DatabaseURL string
	TableName   string

	// Dimension of the embedding vectors; required for backends that
	// declare a schema up front.
	Dimension int
}

// Open builds the configured backend. The qdrant backend also ensures
// its collection exists when a dimension is known.
func Open(ctx context.Context, opts Options) (types.VectorStore, error) {
	switch opts.Backend {
	case "", "qdrant":
		s, err := NewQdrant(QdrantConfig{
			URL:        opts.QdrantURL,
			APIKey:     opts.QdrantAPIKey,
			Collection: opts.QdrantCollection,
		})
		if err != nil {
			return nil, err
		}
		if opts.Dimension > 0 {
			if err := s.EnsureCollection(ctx, opts.Dimension); err != nil {
				return nil, err
			}
		}
		return s, nil
	case "pgvector":
		return NewPgvector(ctx, PgvectorConfig{
			ConnString: opts.DatabaseURL,
			TableName:  opts.TableName,
			Dimension:  opts.Dimension,
		})
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

// recordNamespace salts the deterministic record IDs.
var recordNamespace = uuid.MustParse("1a0c9f66-3f9d-4df1-9c43-2f6b1e5a7d10")

// RecordID derives a stable UUID from the record content, so
// re-ingesting the same source upserts the same rows instead of
// appending duplicates.
func RecordID(source, pageLabel, text string) string {
	return uuid.NewSHA1(recordNamespace, []byte(source+"\x00"+pageLabel+"\x00"+text)).String()
}
