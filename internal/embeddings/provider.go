package embeddings

import (
	"context"
	"errors"
	"fmt"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMissingAPIKey is returned when no OpenAI key is configured.
	ErrMissingAPIKey = errors.New("openai api key is not set")
)

// Embedder generates vectors. It matches langchaingo's embeddings.Embedder so
// langchaingo implementations and test fakes are interchangeable.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ProviderConfig holds the settings for the OpenAI embedding provider.
type ProviderConfig struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// BaseURL overrides the API endpoint; empty uses api.openai.com.
	BaseURL string
	// Model is the embedding model, e.g. text-embedding-3-small.
	Model string
}

// Validate validates the configuration.
func (c ProviderConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// NewProvider creates an OpenAI embedder through langchaingo.
func NewProvider(cfg ProviderConfig) (Embedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []openai.Option{
		openai.WithEmbeddingModel(cfg.Model),
		openai.WithToken(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}

	// Service does its own batching, so the embedder sends each call as one request.
	embedder, err := lcembeddings.NewEmbedder(client,
		lcembeddings.WithBatchSize(maxProviderBatch),
		lcembeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return embedder, nil
}

// maxProviderBatch is the most inputs OpenAI accepts in one embeddings call.
const maxProviderBatch = 2048
