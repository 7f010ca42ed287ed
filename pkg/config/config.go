package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration. Values are resolved in
// order: defaults, then the optional yaml file, then environment
// variables (a .env file is honored the same way). Unknown yaml keys
// are ignored.
type Config struct {
	Credentials struct {
		OpenAIAPIKey     string `yaml:"openai_api_key"`
		LlamaCloudAPIKey string `yaml:"llama_cloud_api_key"`
	} `yaml:"credentials"`

	Auth struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"auth"`

	Qdrant struct {
		URL        string `yaml:"url"`
		Collection string `yaml:"collection_name"`
	} `yaml:"qdrant"`

	Store struct {
		Backend     string `yaml:"backend"` // qdrant, pgvector or memory
		DatabaseURL string `yaml:"database_url"`
		TableName   string `yaml:"table_name"`
	} `yaml:"store"`

	LLM struct {
		ChatModel      string  `yaml:"chat_model"`
		EmbeddingModel string  `yaml:"embedding_model"`
		Temperature    float64 `yaml:"temperature"`
		EmbedBatchSize int     `yaml:"embed_batch_size"`
		MaxRetries     int     `yaml:"max_retries"`
	} `yaml:"llm"`

	Ingestion struct {
		DataDir      string `yaml:"data_dir"`
		ChunkSize    int    `yaml:"chunk_size"`
		ChunkOverlap int    `yaml:"chunk_overlap"`
	} `yaml:"ingestion"`

	Retrieval struct {
		TopK             int     `yaml:"top_k"`
		SimilarityCutoff float32 `yaml:"similarity_cutoff"`
		CitationSize     int     `yaml:"citation_chunk_size"`
	} `yaml:"retrieval"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
}

// Load reads the configuration. An empty path checks the default
// locations; a missing file is not an error, the defaults plus the
// environment are used instead.
func Load(path string) (*Config, error) {
	// A .env next to the binary feeds the environment lookups below.
	_ = godotenv.Load()

	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/docchat/config.yaml"),
		}
		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	config := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Qdrant.URL == "" {
		config.Qdrant.URL = "http://localhost:6333"
	}
	if config.Qdrant.Collection == "" {
		config.Qdrant.Collection = "universal_rag_collection"
	}

	if config.Store.Backend == "" {
		config.Store.Backend = "qdrant"
	}
	if config.Store.TableName == "" {
		config.Store.TableName = "docchat_chunks"
	}

	if config.LLM.ChatModel == "" {
		config.LLM.ChatModel = "gpt-4o-mini"
	}
	if config.LLM.EmbeddingModel == "" {
		config.LLM.EmbeddingModel = "text-embedding-3-small"
	}
	if config.LLM.EmbedBatchSize == 0 {
		config.LLM.EmbedBatchSize = 64
	}
	if config.LLM.MaxRetries == 0 {
		config.LLM.MaxRetries = 5
	}

	if config.Ingestion.DataDir == "" {
		config.Ingestion.DataDir = "./data"
	}
	if config.Ingestion.ChunkSize == 0 {
		config.Ingestion.ChunkSize = 1000
	}
	if config.Ingestion.ChunkOverlap == 0 {
		config.Ingestion.ChunkOverlap = 200
	}

	if config.Retrieval.TopK == 0 {
		config.Retrieval.TopK = 8
	}
	if config.Retrieval.SimilarityCutoff == 0 {
		config.Retrieval.SimilarityCutoff = 0.55
	}
	if config.Retrieval.CitationSize == 0 {
		config.Retrieval.CitationSize = 512
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8000"
	}
}

func mergeWithEnv(config *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		config.Credentials.OpenAIAPIKey = v
	}
	if v := os.Getenv("LLAMA_CLOUD_API_KEY"); v != "" {
		config.Credentials.LlamaCloudAPIKey = v
	}
	if v := os.Getenv("APP_USERNAME"); v != "" {
		config.Auth.Username = v
	}
	if v := os.Getenv("APP_PASSWORD"); v != "" {
		config.Auth.Password = v
	}
	if v := os.Getenv("QDRANT_URL"); v != "" {
		config.Qdrant.URL = v
	}
	if v := os.Getenv("QDRANT_COLLECTION_NAME"); v != "" {
		config.Qdrant.Collection = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		config.Store.DatabaseURL = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		config.Ingestion.DataDir = v
	}
}
