package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/models"
	"docchat/pkg/store"
)

func record(id, text, page string, embedding []float32) models.IndexRecord {
	return models.IndexRecord{
		ID:        id,
		Text:      text,
		Embedding: embedding,
		Metadata: map[string]any{
			"page_label":  page,
			"source":      "report.pdf",
			"document_id": "doc1",
			"chunk_index": 0,
		},
	}
}

func TestMemorySearchOrdersByCosine(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []models.IndexRecord{
		record("a", "exact match", "1", []float32{1, 0}),
		record("b", "orthogonal", "2", []float32{0, 1}),
		record("c", "close match", "3", []float32{0.9, 0.1}),
	}))

	results, err := s.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "exact match", results[0].Chunk.Text)
	assert.Equal(t, "close match", results[1].Chunk.Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Greater(t, results[1].Score, results[2].Score)

	// Payload metadata round-trips into the chunk.
	assert.Equal(t, "1", results[0].Chunk.PageLabel)
	assert.Equal(t, "report.pdf", results[0].Chunk.Source)
}

func TestMemorySearchHonorsK(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []models.IndexRecord{
		record("a", "one", "1", []float32{1, 0}),
		record("b", "two", "2", []float32{0.5, 0.5}),
		record("c", "three", "3", []float32{0, 1}),
	}))

	results, err := s.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestMemoryUpsertIsIdempotent(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	rec := record("same-id", "text", "1", []float32{1, 0})
	require.NoError(t, s.Upsert(ctx, []models.IndexRecord{rec}))
	require.NoError(t, s.Upsert(ctx, []models.IndexRecord{rec}))

	assert.Equal(t, 1, s.Len())
}

func TestRecordIDIsStable(t *testing.T) {
	a := store.RecordID("report.pdf", "42", "Total deposits at end of 2024: 120M")
	b := store.RecordID("report.pdf", "42", "Total deposits at end of 2024: 120M")
	c := store.RecordID("report.pdf", "43", "Total deposits at end of 2024: 120M")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 36) // UUID form, accepted by qdrant as a point id
}
