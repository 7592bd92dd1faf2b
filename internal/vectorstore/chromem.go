package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var chromemTracer = otel.Tracer("dartrag.vectorstore.chromem")

// errCallerEmbeds is returned if chromem ever tries to embed text itself.
var errCallerEmbeds = errors.New("chromem store expects precomputed embeddings")

// ChromemConfig holds configuration for the chromem-go embedded database.
type ChromemConfig struct {
	// Path is the directory for persistent storage. Default: "./chroma_db"
	Path string

	// Compress enables gzip compression for stored documents.
	Compress bool

	// Collection is the collection name. Default: "dart_documents"
	Collection string

	// Dimension is the embedding dimension. Default: 1536
	Dimension int
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "./chroma_db"
	}
	if c.Collection == "" {
		c.Collection = "dart_documents"
	}
	if c.Dimension == 0 {
		c.Dimension = 1536
	}
}

// Validate validates the configuration.
func (c *ChromemConfig) Validate() error {
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	return ValidateCollectionName(c.Collection)
}

// ChromemStore implements Store on chromem-go.
//
// chromem normalises vectors on insert, so a zero vector is stored with NaN
// components and never reaches a similarity threshold.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	config     ChromemConfig
	logger     *zap.Logger
	metrics    *Metrics
}

// NewChromemStore opens or creates the persistent database and collection.
func NewChromemStore(config ChromemConfig, logger *zap.Logger, metrics *Metrics) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	path, err := expandPath(config.Path)
	if err != nil {
		return nil, fmt.Errorf("expanding path: %w", err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", path, err)
	}

	db, err := chromem.NewPersistentDB(path, config.Compress)
	if err != nil {
		return nil, fmt.Errorf("creating chromem DB: %w", err)
	}

	// A non-nil embedding func stops chromem from defaulting to its own OpenAI client.
	collection, err := db.GetOrCreateCollection(config.Collection, nil, refuseEmbedding)
	if err != nil {
		return nil, fmt.Errorf("getting collection %s: %w", config.Collection, err)
	}

	logger.Info("chromem store initialized",
		zap.String("path", path),
		zap.Bool("compress", config.Compress),
		zap.String("collection", config.Collection),
		zap.Int("dimension", config.Dimension),
		zap.Int("records", collection.Count()),
	)

	return &ChromemStore{
		db:         db,
		collection: collection,
		config:     config,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

func refuseEmbedding(context.Context, string) ([]float32, error) {
	return nil, errCallerEmbeds
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// Upsert adds records; existing IDs are overwritten.
func (s *ChromemStore) Upsert(ctx context.Context, records []Record) (err error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Upsert")
	defer span.End()
	started := time.Now()
	defer func() { s.metrics.observe(BackendChromem, "upsert", started, err) }()

	span.SetAttributes(attribute.Int("record_count", len(records)))

	if err := validateRecords(records, s.config.Dimension); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        r.ID,
			Content:   r.Content,
			Metadata:  copyMetadata(r.Metadata),
			Embedding: r.Embedding,
		}
	}

	// Concurrency of 1 since embeddings are precomputed.
	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("adding documents: %w", err)
	}

	s.logger.Debug("upserted records to chromem",
		zap.String("collection", s.config.Collection),
		zap.Int("count", len(records)),
	)
	return nil
}

// Query performs cosine similarity search with a metadata where filter.
func (s *ChromemStore) Query(ctx context.Context, vector []float32, k int, filter Filter) (_ []Match, err error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Query")
	defer span.End()
	started := time.Now()
	defer func() { s.metrics.observe(BackendChromem, "query", started, err) }()

	span.SetAttributes(attribute.Int("k", k))

	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(vector) != s.config.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, store expects %d", ErrDimensionMismatch, len(vector), s.config.Dimension)
	}
	if isZero(vector) {
		return []Match{}, nil
	}

	// chromem requires nResults <= collection size.
	count := s.collection.Count()
	if count == 0 {
		return []Match{}, nil
	}
	k = min(k, count)

	results, err := s.collection.QueryEmbedding(ctx, vector, k, filter, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", s.config.Collection, err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{
			ID:         r.ID,
			Content:    r.Content,
			Similarity: r.Similarity,
			Metadata:   r.Metadata,
		})
	}

	span.SetAttributes(attribute.Int("results_count", len(matches)))
	return matches, nil
}

// Get returns all records matching filter.
//
// chromem has no filtered listing, so this runs an exhaustive query with a
// unit query vector and nResults equal to the collection size.
func (s *ChromemStore) Get(ctx context.Context, filter Filter) (_ []Record, err error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Get")
	defer span.End()
	started := time.Now()
	defer func() { s.metrics.observe(BackendChromem, "get", started, err) }()

	count := s.collection.Count()
	if count == 0 {
		return []Record{}, nil
	}

	axis := make([]float32, s.config.Dimension)
	axis[0] = 1

	results, err := s.collection.QueryEmbedding(ctx, axis, count, filter, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("listing collection %s: %w", s.config.Collection, err)
	}

	records := make([]Record, 0, len(results))
	for _, r := range results {
		records = append(records, Record{
			ID:        r.ID,
			Content:   r.Content,
			Embedding: r.Embedding,
			Metadata:  r.Metadata,
		})
	}
	span.SetAttributes(attribute.Int("results_count", len(records)))
	return records, nil
}

// Delete removes all records matching filter.
func (s *ChromemStore) Delete(ctx context.Context, filter Filter) (err error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Delete")
	defer span.End()
	started := time.Now()
	defer func() { s.metrics.observe(BackendChromem, "delete", started, err) }()

	if len(filter) == 0 {
		return ErrEmptyFilter
	}
	if err := s.collection.Delete(ctx, filter, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting from collection %s: %w", s.config.Collection, err)
	}

	s.logger.Debug("deleted records from chromem",
		zap.String("collection", s.config.Collection),
		zap.Any("filter", filter),
	)
	return nil
}

// Count returns the number of records in the collection.
func (s *ChromemStore) Count(context.Context) (int, error) {
	n := s.collection.Count()
	s.metrics.setRecords(BackendChromem, s.config.Collection, n)
	return n, nil
}

// Info describes the store.
func (s *ChromemStore) Info() Info {
	return Info{Backend: BackendChromem, Collection: s.config.Collection, Dimension: s.config.Dimension}
}

// Health reports whether the collection is still registered in the database.
func (s *ChromemStore) Health(context.Context) error {
	if s.db.GetCollection(s.config.Collection, refuseEmbedding) == nil {
		return fmt.Errorf("collection %s is missing", s.config.Collection)
	}
	return nil
}

// Close is a no-op; chromem persists on every write.
func (s *ChromemStore) Close() error {
	s.logger.Info("chromem store closed")
	return nil
}

var _ Store = (*ChromemStore)(nil)
