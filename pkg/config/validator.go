package config

import (
	"net/url"

	"docchat/internal/types"
)

// Validate checks the configuration before anything touches the
// network. Required credentials fail fast with a ConfigError naming the
// missing field.
func (c *Config) Validate() error {
	if c.Credentials.OpenAIAPIKey == "" {
		return &types.ConfigError{
			Field:   "openai_api_key",
			Message: "OpenAI API key is required (set OPENAI_API_KEY)",
		}
	}

	if c.Credentials.LlamaCloudAPIKey == "" {
		return &types.ConfigError{
			Field:   "llama_cloud_api_key",
			Message: "LlamaCloud API key is required (set LLAMA_CLOUD_API_KEY)",
		}
	}

	if _, err := url.Parse(c.Qdrant.URL); err != nil {
		return &types.ConfigError{
			Field:   "qdrant_url",
			Message: "invalid Qdrant URL",
		}
	}

	switch c.Store.Backend {
	case "qdrant", "memory":
	case "pgvector":
		if c.Store.DatabaseURL == "" {
			return &types.ConfigError{
				Field:   "database_url",
				Message: "pgvector backend requires a connection string (set DATABASE_URL)",
			}
		}
	default:
		return &types.ConfigError{
			Field:   "store.backend",
			Message: "backend must be one of qdrant, pgvector, memory",
		}
	}

	if c.Retrieval.TopK < 1 {
		return &types.ConfigError{
			Field:   "retrieval.top_k",
			Message: "top_k must be positive",
		}
	}

	if c.Retrieval.SimilarityCutoff < 0 || c.Retrieval.SimilarityCutoff > 1 {
		return &types.ConfigError{
			Field:   "retrieval.similarity_cutoff",
			Message: "similarity_cutoff must be between 0 and 1",
		}
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return &types.ConfigError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		}
	}

	if c.Ingestion.ChunkOverlap < 0 || c.Ingestion.ChunkOverlap >= c.Ingestion.ChunkSize {
		return &types.ConfigError{
			Field:   "ingestion.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		}
	}

	return nil
}

// ValidateServer extends Validate for the chat server. An unset
// credential pair would wave through a client presenting empty basic
// auth, so the server refuses to start without one.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Auth.Username == "" || c.Auth.Password == "" {
		return &types.ConfigError{
			Field:   "auth",
			Message: "chat credentials are required (set APP_USERNAME and APP_PASSWORD)",
		}
	}

	return nil
}
