package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/dartrag/internal/analysis"
	"github.com/fyrsmithlabs/dartrag/internal/chunker"
	"github.com/fyrsmithlabs/dartrag/internal/config"
	"github.com/fyrsmithlabs/dartrag/internal/embeddings"
	"github.com/fyrsmithlabs/dartrag/internal/index"
	"github.com/fyrsmithlabs/dartrag/internal/llm"
	"github.com/fyrsmithlabs/dartrag/internal/news"
	"github.com/fyrsmithlabs/dartrag/internal/pipeline"
	"github.com/fyrsmithlabs/dartrag/internal/reader"
	"github.com/fyrsmithlabs/dartrag/internal/reranker"
	"github.com/fyrsmithlabs/dartrag/internal/summary"
	"github.com/fyrsmithlabs/dartrag/internal/tasks"
	"github.com/fyrsmithlabs/dartrag/internal/tokenizer"
	"github.com/fyrsmithlabs/dartrag/internal/vectorstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

// BuildOption overrides a component Build would otherwise create.
type BuildOption func(*buildOptions)

type buildOptions struct {
	embedder   embeddings.Embedder
	model      llms.Model
	counter    tokenizer.Counter
	registerer prometheus.Registerer
}

// WithEmbedder replaces the OpenAI embedding provider.
func WithEmbedder(e embeddings.Embedder) BuildOption {
	return func(o *buildOptions) { o.embedder = e }
}

// WithChatModel replaces the OpenAI chat model.
func WithChatModel(m llms.Model) BuildOption {
	return func(o *buildOptions) { o.model = m }
}

// WithTokenCounter replaces the tiktoken counter.
func WithTokenCounter(c tokenizer.Counter) BuildOption {
	return func(o *buildOptions) { o.counter = c }
}

// WithRegisterer registers native Prometheus collectors on reg.
func WithRegisterer(reg prometheus.Registerer) BuildOption {
	return func(o *buildOptions) { o.registerer = reg }
}

// Build constructs the full service graph from cfg. On error everything
// created so far is closed.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...BuildOption) (_ Registry, err error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	var built Options
	defer func() {
		if err != nil {
			_ = NewRegistry(built).Close(context.WithoutCancel(ctx))
		}
	}()

	// Embeddings and vectors.
	embedder := o.embedder
	if embedder == nil {
		embedder, err = embeddings.NewProvider(embeddings.ProviderConfig{
			APIKey:  cfg.OpenAI.APIKey.Value(),
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.EmbeddingModel,
		})
		if err != nil {
			return nil, fmt.Errorf("embedding provider: %w", err)
		}
	}
	built.Embeddings, err = embeddings.NewService(embedder,
		embeddings.FromConfig(cfg.OpenAI, cfg.Embeddings),
		logger.Named("embeddings"),
		embeddings.WithMetrics(embeddings.NewMetrics(logger)))
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}

	built.VectorStore, err = vectorstore.NewStore(ctx, cfg.VectorStore, cfg.Embeddings.Dimension,
		logger.Named("vectorstore"), vectorstore.NewMetrics(o.registerer))
	if err != nil {
		return nil, fmt.Errorf("vectorstore: %w", err)
	}

	built.Index, err = index.NewService(built.Embeddings, built.VectorStore,
		reranker.NewKeywordReranker(), logger.Named("index"))
	if err != nil {
		return nil, err
	}

	// Generators.
	model := o.model
	if model == nil {
		model, err = llm.NewOpenAI(cfg.OpenAI.APIKey.Value(), cfg.OpenAI.BaseURL, cfg.OpenAI.Model)
		if err != nil {
			return nil, fmt.Errorf("chat model: %w", err)
		}
	}
	completer, err := llm.NewClient(model, llm.Config{MaxRetries: cfg.OpenAI.MaxRetries}, logger.Named("llm"))
	if err != nil {
		return nil, err
	}

	built.News = news.NewService(news.FromConfig(cfg.News), logger.Named("news"))
	if !built.News.Configured() {
		logger.Warn("naver news credentials not set; answers will not include news")
	}

	summarizer, err := summary.NewGenerator(completer, summary.FromConfig(cfg.Summary), logger.Named("summary"))
	if err != nil {
		return nil, err
	}
	built.Analyzer, err = analysis.NewAnalyzer(built.Index, built.News, completer,
		analysis.FromConfig(cfg.Analysis), logger.Named("analysis"))
	if err != nil {
		return nil, err
	}

	// Pipelines.
	counter := o.counter
	if counter == nil {
		counter = tokenizer.New(cfg.Chunker.Encoding, logger)
	}
	split, err := chunker.New(chunker.FromConfig(cfg.Chunker), counter, logger.Named("chunker"))
	if err != nil {
		return nil, fmt.Errorf("chunker: %w", err)
	}
	built.Indexer, err = pipeline.NewIndexer(reader.New(0), split, built.Index, summarizer, logger.Named("indexer"))
	if err != nil {
		return nil, err
	}
	built.Querier, err = pipeline.NewQuerier(built.Analyzer, logger.Named("querier"))
	if err != nil {
		return nil, err
	}

	// Task bookkeeping.
	built.Tasks, err = tasks.NewStore(ctx, cfg.Tasks, logger.Named("tasks"))
	if err != nil {
		return nil, fmt.Errorf("task store: %w", err)
	}
	built.Runner, err = pipeline.NewTaskRunner(built.Indexer, built.Tasks, logger.Named("runner"))
	if err != nil {
		return nil, err
	}
	built.Janitor, err = tasks.NewJanitor(built.Tasks, cfg.Tasks.SweepSchedule, cfg.Tasks.StaleAfter.Duration(), logger.Named("janitor"))
	if err != nil {
		return nil, err
	}

	return NewRegistry(built), nil
}
