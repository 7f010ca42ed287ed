package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"docchat/internal/models"
)

// Memory is an in-process store used by tests and offline runs. Search
// is exact cosine similarity over all records.
type Memory struct {
	mu      sync.RWMutex
	records map[string]models.IndexRecord
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]models.IndexRecord)}
}

func (s *Memory) Upsert(_ context.Context, records []models.IndexRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range records {
		s.records[record.ID] = record
	}
	return nil
}

func (s *Memory) Search(_ context.Context, vector []float32, k int) ([]models.RetrievalResult, error) {
	if k <= 0 {
		k = 8
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]models.RetrievalResult, 0, len(s.records))
	for _, record := range s.records {
		results = append(results, models.RetrievalResult{
			Chunk: chunkFromPayload(withText(record)),
			Score: cosine(vector, record.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *Memory) Close() {}

// Len reports the number of stored records.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func withText(record models.IndexRecord) map[string]any {
	payload := make(map[string]any, len(record.Metadata)+1)
	for k, v := range record.Metadata {
		payload[k] = v
	}
	payload["text"] = record.Text
	return payload
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
