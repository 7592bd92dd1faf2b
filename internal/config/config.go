// Package config provides configuration loading for dartrag.
//
// Values are resolved from hardcoded defaults, an optional YAML file, a .env file
// and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds the complete dartrag configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
	OpenAI      OpenAIConfig      `koanf:"openai"`
	Embeddings  EmbeddingsConfig  `koanf:"embeddings"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	Chunker     ChunkerConfig     `koanf:"chunker"`
	News        NewsConfig        `koanf:"news"`
	Summary     SummaryConfig     `koanf:"summary"`
	Analysis    AnalysisConfig    `koanf:"analysis"`
	Tasks       TasksConfig       `koanf:"tasks"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	Title           string   `koanf:"title"`
	Version         string   `koanf:"version"`
	// DocumentRoot confines indexable file paths when set.
	DocumentRoot string `koanf:"document_root"`
}

// LoggingConfig is the subset of logging settings exposed to operators.
type LoggingConfig struct {
	Level    string `koanf:"level"`
	Format   string `koanf:"format"`
	Sampling bool   `koanf:"sampling"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"`
	Protocol     string  `koanf:"protocol"`
	Insecure     bool    `koanf:"insecure"`
	ServiceName  string  `koanf:"service_name"`
	SamplingRate float64 `koanf:"sampling_rate"`
}

// OpenAIConfig holds credentials and model names for the completion API.
type OpenAIConfig struct {
	APIKey         Secret `koanf:"api_key"`
	BaseURL        string `koanf:"base_url"`
	Model          string `koanf:"model"`
	EmbeddingModel string `koanf:"embedding_model"`
	MaxRetries     int    `koanf:"max_retries"`
}

// EmbeddingsConfig controls batching and caching of embeddings.
type EmbeddingsConfig struct {
	BatchSize    int      `koanf:"batch_size"`
	Dimension    int      `koanf:"dimension"`
	CacheEnabled bool     `koanf:"cache_enabled"`
	CacheTTL     Duration `koanf:"cache_ttl"`
	CacheMaxCost int64    `koanf:"cache_max_cost"`
}

// VectorStoreConfig selects and configures the vector backend.
type VectorStoreConfig struct {
	Provider        string `koanf:"provider"`
	Collection      string `koanf:"collection"`
	ChromemPath     string `koanf:"chromem_path"`
	ChromemCompress bool   `koanf:"chromem_compress"`
	QdrantHost      string `koanf:"qdrant_host"`
	QdrantPort      int    `koanf:"qdrant_port"`
	QdrantTLS       bool   `koanf:"qdrant_tls"`
}

// ChunkerConfig controls document chunking.
// ChunkSize and ChunkOverlap size child chunks in hierarchical mode; the
// Parent fields size their parents. MaxTokens bounds semantic chunks.
type ChunkerConfig struct {
	Mode          string `koanf:"mode"`
	MaxTokens     int    `koanf:"max_tokens"`
	ChunkSize     int    `koanf:"chunk_size"`
	ChunkOverlap  int    `koanf:"chunk_overlap"`
	ParentSize    int    `koanf:"parent_size"`
	ParentOverlap int    `koanf:"parent_overlap"`
	Encoding      string `koanf:"encoding"`
}

// NewsConfig configures the Naver news search client.
type NewsConfig struct {
	ClientID     string   `koanf:"client_id"`
	ClientSecret Secret   `koanf:"client_secret"`
	URL          string   `koanf:"url"`
	Months       int      `koanf:"months"`
	Display      int      `koanf:"display"`
	Timeout      Duration `koanf:"timeout"`
	RatePerSec   float64  `koanf:"rate_per_sec"`
}

// SummaryConfig configures summary generation.
type SummaryConfig struct {
	MaxLength int      `koanf:"max_length"`
	Timeout   Duration `koanf:"timeout"`
}

// AnalysisConfig configures question answering retrieval.
type AnalysisConfig struct {
	RetrievalK int `koanf:"retrieval_k"`
	RerankK    int `koanf:"rerank_k"`
	MaxBatch   int `koanf:"max_batch"`
}

// TasksConfig selects the task and summary store.
type TasksConfig struct {
	Backend       string   `koanf:"backend"`
	TTL           Duration `koanf:"ttl"`
	MaxEntries    int      `koanf:"max_entries"`
	BadgerPath    string   `koanf:"badger_path"`
	RedisAddr     string   `koanf:"redis_addr"`
	RedisPassword Secret   `koanf:"redis_password"`
	RedisDB       int      `koanf:"redis_db"`
	SweepSchedule string   `koanf:"sweep_schedule"`
	StaleAfter    Duration `koanf:"stale_after"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ShutdownTimeout: Duration(10 * time.Second),
			Title:           "공시 분석 AI API",
			Version:         "1.0.0",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Sampling: true,
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			Endpoint:     "localhost:4317",
			Protocol:     "grpc",
			Insecure:     true,
			ServiceName:  "dartrag",
			SamplingRate: 1.0,
		},
		OpenAI: OpenAIConfig{
			Model:          "gpt-4",
			EmbeddingModel: "text-embedding-3-small",
			MaxRetries:     3,
		},
		Embeddings: EmbeddingsConfig{
			BatchSize:    10,
			Dimension:    1536,
			CacheEnabled: true,
			CacheTTL:     Duration(24 * time.Hour),
			CacheMaxCost: 64 << 20,
		},
		VectorStore: VectorStoreConfig{
			Provider:    "chromem",
			Collection:  "dart_documents",
			ChromemPath: "./chroma_db",
			QdrantHost:  "localhost",
			QdrantPort:  6334,
		},
		Chunker: ChunkerConfig{
			Mode:          "semantic",
			MaxTokens:     1000,
			ChunkSize:     800,
			ChunkOverlap:  150,
			ParentSize:    5000,
			ParentOverlap: 500,
			Encoding:      "cl100k_base",
		},
		News: NewsConfig{
			URL:        "https://openapi.naver.com/v1/search/news.json",
			Months:     3,
			Display:    20,
			Timeout:    Duration(10 * time.Second),
			RatePerSec: 10,
		},
		Summary: SummaryConfig{
			MaxLength: 1500,
			Timeout:   Duration(60 * time.Second),
		},
		Analysis: AnalysisConfig{
			RetrievalK: 10,
			RerankK:    5,
			MaxBatch:   10,
		},
		Tasks: TasksConfig{
			Backend:       "memory",
			TTL:           Duration(24 * time.Hour),
			MaxEntries:    10000,
			BadgerPath:    "./data/tasks",
			RedisAddr:     "localhost:6379",
			SweepSchedule: "@every 10m",
			StaleAfter:    Duration(time.Hour),
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port))
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		errs = append(errs, errors.New("telemetry.endpoint is required when telemetry is enabled"))
	}
	if c.OpenAI.Model == "" || c.OpenAI.EmbeddingModel == "" {
		errs = append(errs, errors.New("openai.model and openai.embedding_model are required"))
	}
	if c.Embeddings.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize))
	}
	if c.Embeddings.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("embeddings.dimension must be positive, got %d", c.Embeddings.Dimension))
	}
	switch c.VectorStore.Provider {
	case "chromem":
		if c.VectorStore.ChromemPath == "" {
			errs = append(errs, errors.New("vectorstore.chromem_path is required for chromem"))
		}
	case "qdrant":
		if c.VectorStore.QdrantHost == "" || c.VectorStore.QdrantPort <= 0 {
			errs = append(errs, errors.New("vectorstore.qdrant_host and qdrant_port are required for qdrant"))
		}
	default:
		errs = append(errs, fmt.Errorf("vectorstore.provider must be chromem or qdrant, got %q", c.VectorStore.Provider))
	}
	if c.VectorStore.Collection == "" {
		errs = append(errs, errors.New("vectorstore.collection is required"))
	}
	switch c.Chunker.Mode {
	case "semantic", "hierarchical":
	default:
		errs = append(errs, fmt.Errorf("chunker.mode must be semantic or hierarchical, got %q", c.Chunker.Mode))
	}
	if c.Chunker.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("chunker.max_tokens must be positive, got %d", c.Chunker.MaxTokens))
	}
	if c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize || c.Chunker.ParentOverlap >= c.Chunker.ParentSize {
		errs = append(errs, errors.New("chunker overlaps must be smaller than their chunk sizes"))
	}
	if c.News.Display <= 0 || c.News.Display > 100 {
		errs = append(errs, fmt.Errorf("news.display must be 1-100, got %d", c.News.Display))
	}
	if c.Summary.Timeout.Duration() <= 0 {
		errs = append(errs, errors.New("summary.timeout must be positive"))
	}
	if c.Analysis.RetrievalK <= 0 || c.Analysis.RerankK <= 0 {
		errs = append(errs, errors.New("analysis.retrieval_k and analysis.rerank_k must be positive"))
	}
	if c.Analysis.MaxBatch <= 0 {
		errs = append(errs, errors.New("analysis.max_batch must be positive"))
	}
	switch c.Tasks.Backend {
	case "memory":
	case "badger":
		if c.Tasks.BadgerPath == "" {
			errs = append(errs, errors.New("tasks.badger_path is required for badger"))
		}
	case "redis":
		if c.Tasks.RedisAddr == "" {
			errs = append(errs, errors.New("tasks.redis_addr is required for redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("tasks.backend must be memory, badger or redis, got %q", c.Tasks.Backend))
	}
	if c.Tasks.TTL.Duration() <= 0 {
		errs = append(errs, errors.New("tasks.ttl must be positive"))
	}

	return errors.Join(errs...)
}

// NewsConfigured reports whether Naver credentials are present.
func (c *Config) NewsConfigured() bool {
	return c.News.ClientID != "" && c.News.ClientSecret.IsSet()
}
