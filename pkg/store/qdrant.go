package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"docchat/internal/models"
	"docchat/internal/types"
)

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
	Timeout    time.Duration
}

// Qdrant is a REST client for one named Qdrant collection. Cosine
// distance; the collection is created on first use if missing. An
// unreachable database surfaces as StoreUnavailable.
type Qdrant struct {
	config QdrantConfig
	client *http.Client
}

func NewQdrant(config QdrantConfig) (*Qdrant, error) {
	if config.URL == "" {
		config.URL = "http://localhost:6333"
	}
	if config.Collection == "" {
		return nil, fmt.Errorf("qdrant: collection name is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}

	return &Qdrant{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}, nil
}

// EnsureCollection creates the collection with the given vector size if
// it does not exist yet.
func (s *Qdrant) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("qdrant: invalid dimension %d", dimension)
	}
	s.config.Dimension = dimension

	url := fmt.Sprintf("%s/collections/%s", s.config.URL, s.config.Collection)

	status, err := s.request(ctx, http.MethodGet, url, nil, nil)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	status, err = s.request(ctx, http.MethodPut, url, body, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return &types.StoreUnavailable{
			Backend: "qdrant",
			Err:     fmt.Errorf("create collection returned status %d", status),
		}
	}
	return nil
}

func (s *Qdrant) Upsert(ctx context.Context, records []models.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]map[string]any, len(records))
	for i, record := range records {
		points[i] = map[string]any{
			"id":      record.ID,
			"vector":  record.Embedding,
			"payload": withText(record),
		}
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", s.config.URL, s.config.Collection)
	status, err := s.request(ctx, http.MethodPut, url, map[string]any{"points": points}, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return &types.StoreUnavailable{
			Backend: "qdrant",
			Err:     fmt.Errorf("upsert returned status %d", status),
		}
	}
	return nil
}

func (s *Qdrant) Search(ctx context.Context, vector []float32, k int) ([]models.RetrievalResult, error) {
	if k <= 0 {
		k = 8
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}

	var resp struct {
		Result []struct {
			Score   float32        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", s.config.URL, s.config.Collection)
	status, err := s.request(ctx, http.MethodPost, url, body, &resp)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, &types.StoreUnavailable{
			Backend: "qdrant",
			Err:     fmt.Errorf("search returned status %d", status),
		}
	}

	results := make([]models.RetrievalResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, models.RetrievalResult{
			Chunk: chunkFromPayload(r.Payload),
			Score: r.Score,
		})
	}
	return results, nil
}

func (s *Qdrant) Close() {}

func chunkFromPayload(payload map[string]any) models.Chunk {
	chunk := models.Chunk{}
	if v, ok := payload["text"].(string); ok {
		chunk.Text = v
	}
	if v, ok := payload["page_label"].(string); ok {
		chunk.PageLabel = v
	}
	if v, ok := payload["source"].(string); ok {
		chunk.Source = v
	}
	if v, ok := payload["document_id"].(string); ok {
		chunk.DocumentID = v
	}
	switch v := payload["chunk_index"].(type) {
	case float64:
		chunk.Index = int(v)
	case int:
		chunk.Index = v
	}
	return chunk
}

func (s *Qdrant) request(ctx context.Context, method, url string, body any, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.config.APIKey != "" {
		req.Header.Set("api-key", s.config.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, &types.StoreUnavailable{Backend: "qdrant", Err: err}
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("qdrant: decoding %s %s: %w", method, url, err)
		}
	}
	return resp.StatusCode, nil
}
