package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/dartrag/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("dartrag.embeddings")

// Config controls batching, fallback and caching.
type Config struct {
	Model        string
	BatchSize    int
	Dimension    int
	CacheEnabled bool
	CacheTTL     time.Duration
	CacheMaxCost int64
}

// DefaultConfig returns the settings for text-embedding-3-small.
func DefaultConfig() Config {
	return Config{
		Model:        "text-embedding-3-small",
		BatchSize:    10,
		Dimension:    1536,
		CacheEnabled: true,
		CacheTTL:     24 * time.Hour,
		CacheMaxCost: 64 << 20,
	}
}

// FromConfig builds a Config from the daemon configuration.
func FromConfig(oa config.OpenAIConfig, cfg config.EmbeddingsConfig) Config {
	return Config{
		Model:        oa.EmbeddingModel,
		BatchSize:    cfg.BatchSize,
		Dimension:    cfg.Dimension,
		CacheEnabled: cfg.CacheEnabled,
		CacheTTL:     cfg.CacheTTL.Duration(),
		CacheMaxCost: cfg.CacheMaxCost,
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive", ErrInvalidConfig)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	return nil
}

// BatchResult is the outcome of embedding a list of texts. Vectors and
// Degraded are index-aligned with the input.
type BatchResult struct {
	Vectors       [][]float32
	Degraded      []bool
	DegradedCount int
}

// Service embeds documents in batches and caches query embeddings.
type Service struct {
	embedder Embedder
	config   Config
	cache    *queryCache
	metrics  *Metrics
	logger   *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics replaces the instruments created from the global meter provider.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService wraps embedder.
func NewService(embedder Embedder, cfg Config, logger *zap.Logger, opts ...Option) (*Service, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is nil", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		embedder: embedder,
		config:   cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(logger)
	}
	if cfg.CacheEnabled {
		c, err := newQueryCache(cfg.CacheMaxCost, cfg.CacheTTL)
		if err != nil {
			return nil, err
		}
		s.cache = c
	}
	return s, nil
}

// Model returns the embedding model name.
func (s *Service) Model() string { return s.config.Model }

// Dimension returns the configured vector dimension.
func (s *Service) Dimension() int { return s.config.Dimension }

// EmbedDocuments embeds texts in sequential batches of Config.BatchSize.
//
// A failed batch does not fail the call: its texts get zero vectors of
// Config.Dimension and are flagged in the result. Only context cancellation
// is returned as an error.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) (BatchResult, error) {
	ctx, span := tracer.Start(ctx, "embeddings.EmbedDocuments")
	defer span.End()
	span.SetAttributes(
		attribute.Int("texts", len(texts)),
		attribute.Int("batch_size", s.config.BatchSize),
	)

	res := BatchResult{
		Vectors:  make([][]float32, 0, len(texts)),
		Degraded: make([]bool, 0, len(texts)),
	}

	for start := 0; start < len(texts); start += s.config.BatchSize {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "cancelled")
			return res, err
		}
		end := min(start+s.config.BatchSize, len(texts))
		batch := texts[start:end]

		vectors, err := s.embedBatch(ctx, batch)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				span.RecordError(ctxErr)
				span.SetStatus(codes.Error, "cancelled")
				return res, ctxErr
			}
			s.logger.Warn("embedding batch failed, using zero vectors",
				zap.String("model", s.config.Model),
				zap.Int("batch_start", start),
				zap.Int("batch_len", len(batch)),
				zap.Error(err),
			)
			span.RecordError(err)
			s.metrics.RecordDegraded(ctx, s.config.Model, len(batch))
			for range batch {
				res.Vectors = append(res.Vectors, make([]float32, s.config.Dimension))
				res.Degraded = append(res.Degraded, true)
			}
			res.DegradedCount += len(batch)
			continue
		}
		res.Vectors = append(res.Vectors, vectors...)
		for range batch {
			res.Degraded = append(res.Degraded, false)
		}
	}

	span.SetAttributes(attribute.Int("degraded", res.DegradedCount))
	return res, nil
}

func (s *Service) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	started := time.Now()
	vectors, err := s.embedder.EmbedDocuments(ctx, batch)
	if err == nil && len(vectors) != len(batch) {
		err = fmt.Errorf("provider returned %d vectors for %d texts", len(vectors), len(batch))
	}
	s.metrics.RecordGeneration(ctx, s.config.Model, "embed_documents", time.Since(started), len(batch), err)
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

// EmbedQuery embeds a search query, serving repeats from the cache.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrEmptyInput)
	}

	ctx, span := tracer.Start(ctx, "embeddings.EmbedQuery")
	defer span.End()

	key := cacheKey(s.config.Model, text)
	if s.cache != nil {
		if vec, ok := s.cache.get(key); ok {
			s.metrics.RecordCacheLookup(ctx, true)
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return vec, nil
		}
		s.metrics.RecordCacheLookup(ctx, false)
	}

	started := time.Now()
	vec, err := s.embedder.EmbedQuery(ctx, text)
	s.metrics.RecordGeneration(ctx, s.config.Model, "embed_query", time.Since(started), 1, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embed query failed")
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	if s.cache != nil {
		s.cache.set(key, vec)
	}
	return vec, nil
}

// Close releases the query cache.
func (s *Service) Close() error {
	if s.cache != nil {
		s.cache.close()
	}
	return nil
}
