package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"docchat/internal/models"
	"docchat/internal/types"
)

type PgvectorConfig struct {
	ConnString string
	TableName  string
	Dimension  int
}

// Pgvector is the PostgreSQL backend, kept behind the same VectorStore
// interface as the Qdrant client. One row per index record, cosine
// distance over an ivfflat index.
type Pgvector struct {
	config PgvectorConfig
	pool   *pgxpool.Pool
}

func NewPgvector(ctx context.Context, config PgvectorConfig) (*Pgvector, error) {
	if config.TableName == "" {
		config.TableName = "docchat_chunks"
	}
	if config.Dimension == 0 {
		config.Dimension = 1536
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, &types.StoreUnavailable{Backend: "pgvector", Err: err}
	}

	vs := &Pgvector{config: config, pool: pool}
	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, &types.StoreUnavailable{Backend: "pgvector", Err: err}
	}
	return vs, nil
}

func (vs *Pgvector) initialize(ctx context.Context) error {
	if _, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			document_id TEXT,
			source TEXT,
			page_label TEXT,
			chunk_index INTEGER,
			content TEXT NOT NULL,
			embedding vector(%d)
		)`, vs.config.TableName, vs.config.Dimension)
	if _, err := vs.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)
	if _, err := vs.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

func (vs *Pgvector) Upsert(ctx context.Context, records []models.IndexRecord) error {
	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return &types.StoreUnavailable{Backend: "pgvector", Err: err}
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, source, page_label, chunk_index, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`,
		vs.config.TableName)

	for _, record := range records {
		_, err := tx.Exec(ctx, stmt,
			record.ID,
			record.Metadata["document_id"],
			record.Metadata["source"],
			record.Metadata["page_label"],
			record.Metadata["chunk_index"],
			record.Text,
			pgvector.NewVector(record.Embedding),
		)
		if err != nil {
			return fmt.Errorf("failed to insert record %s: %w", record.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &types.StoreUnavailable{Backend: "pgvector", Err: err}
	}
	return nil
}

func (vs *Pgvector) Search(ctx context.Context, vector []float32, k int) ([]models.RetrievalResult, error) {
	if k <= 0 {
		k = 8
	}

	// Cosine similarity is 1 minus the <=> cosine distance.
	query := fmt.Sprintf(`
		SELECT document_id, source, page_label, chunk_index, content,
		       1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, &types.StoreUnavailable{Backend: "pgvector", Err: err}
	}
	defer rows.Close()

	var results []models.RetrievalResult
	for rows.Next() {
		var r models.RetrievalResult
		var score float64
		err := rows.Scan(
			&r.Chunk.DocumentID,
			&r.Chunk.Source,
			&r.Chunk.PageLabel,
			&r.Chunk.Index,
			&r.Chunk.Text,
			&score,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.Score = float32(score)
		results = append(results, r)
	}
	return results, rows.Err()
}

func (vs *Pgvector) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}
