package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var qdrantTracer = otel.Tracer("dartrag.vectorstore.qdrant")

// Payload keys the store reserves for itself.
const (
	payloadContent = "content"
	payloadChunkID = "chunk_id"
)

// Point ids are UUIDv5 of the chunk id in this namespace.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/fyrsmithlabs/dartrag/chunks"))

// scrollPage is the page size for Get.
const scrollPage = 256

// QdrantConfig holds configuration for the Qdrant gRPC client.
type QdrantConfig struct {
	// Host is the Qdrant server hostname. Default: "localhost"
	Host string

	// Port is the gRPC port (not the 6333 REST port). Default: 6334
	Port int

	// Collection is the collection name. Default: "dart_documents"
	Collection string

	// Dimension is the embedding dimension. Default: 1536
	Dimension int

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// MaxRetries bounds retries of transient failures. Default: 3
	MaxRetries int

	// RetryBackoff is the initial backoff, doubled per retry. Default: 500ms
	RetryBackoff time.Duration

	// MaxMessageSize is the gRPC message limit in bytes. Default: 50MB
	MaxMessageSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.Collection == "" {
		c.Collection = "dart_documents"
	}
	if c.Dimension == 0 {
		c.Dimension = 1536
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	return ValidateCollectionName(c.Collection)
}

// IsTransientError reports whether a gRPC error is worth retrying.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// QdrantStore implements Store on Qdrant's native gRPC client.
type QdrantStore struct {
	client  *qdrant.Client
	config  QdrantConfig
	logger  *zap.Logger
	metrics *Metrics
}

// NewQdrantStore connects, health-checks and ensures the collection exists
// with a keyword index on document_id.
func NewQdrantStore(ctx context.Context, config QdrantConfig, logger *zap.Logger, metrics *Metrics) (*QdrantStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if !config.UseTLS {
		logger.Warn("qdrant gRPC is using plaintext; enable TLS outside local development")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		UseTLS: config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	s := &QdrantStore{client: client, config: config, logger: logger, metrics: metrics}

	hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Health(hctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	if err := s.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("qdrant store initialized",
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
		zap.String("collection", config.Collection),
		zap.Int("dimension", config.Dimension),
	)
	return s, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.config.Collection)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", s.config.Collection, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.config.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.config.Dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", s.config.Collection, err)
	}

	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.config.Collection,
		FieldName:      "document_id",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("indexing document_id: %w", err)
	}

	s.logger.Info("created qdrant collection", zap.String("collection", s.config.Collection))
	return nil
}

// PointID maps a chunk id to its deterministic Qdrant point id.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

// retry retries op on transient gRPC errors with exponential backoff.
func (s *QdrantStore) retry(ctx context.Context, name string, op func() error) error {
	backoff := s.config.RetryBackoff
	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if !IsTransientError(err) {
			return fmt.Errorf("%s failed (permanent): %w", name, err)
		}
		if attempt >= s.config.MaxRetries {
			return fmt.Errorf("%s failed after %d retries: %w", name, s.config.MaxRetries, err)
		}
		s.logger.Debug("retrying qdrant operation", zap.String("operation", name), zap.Int("attempt", attempt+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", name, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
}

func toQdrantFilter(filter Filter) *qdrant.Filter {
	if len(filter) == 0 {
		return nil
	}
	conds := make([]*qdrant.Condition, 0, len(filter))
	for k, v := range filter {
		conds = append(conds, qdrant.NewMatch(k, v))
	}
	return &qdrant.Filter{Must: conds}
}

func toPayload(r Record) map[string]*qdrant.Value {
	payload := make(map[string]*qdrant.Value, len(r.Metadata)+2)
	for k, v := range r.Metadata {
		payload[k] = qdrant.NewValueString(v)
	}
	payload[payloadContent] = qdrant.NewValueString(r.Content)
	payload[payloadChunkID] = qdrant.NewValueString(r.ID)
	return payload
}

// fromPayload splits a payload into chunk id, content and string metadata.
func fromPayload(payload map[string]*qdrant.Value) (id, content string, meta map[string]string) {
	meta = make(map[string]string, len(payload))
	for k, v := range payload {
		switch k {
		case payloadContent:
			content = v.GetStringValue()
		case payloadChunkID:
			id = v.GetStringValue()
		default:
			meta[k] = v.GetStringValue()
		}
	}
	return id, content, meta
}

// Upsert writes records as points keyed by PointID.
func (s *QdrantStore) Upsert(ctx context.Context, records []Record) (err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Upsert")
	defer span.End()
	started := time.Now()
	defer func() { s.metrics.observe(BackendQdrant, "upsert", started, err) }()

	span.SetAttributes(attribute.Int("record_count", len(records)))

	if err := validateRecords(records, s.config.Dimension); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(r.ID)),
			Vectors: qdrant.NewVectors(r.Embedding...),
			Payload: toPayload(r),
		}
	}

	err = s.retry(ctx, "upsert", func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.config.Collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upserting points to %s: %w", s.config.Collection, err)
	}
	return nil
}

// Query runs a filtered nearest-neighbour search.
func (s *QdrantStore) Query(ctx context.Context, vector []float32, k int, filter Filter) (_ []Match, err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Query")
	defer span.End()
	started := time.Now()
	defer func() { s.metrics.observe(BackendQdrant, "query", started, err) }()

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

	var points []*qdrant.ScoredPoint
	err = s.retry(ctx, "query", func() error {
		res, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: s.config.Collection,
			Query:          qdrant.NewQuery(vector...),
			Limit:          qdrant.PtrOf(uint64(k)),
			Filter:         toQdrantFilter(filter),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		points = res
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying %s: %w", s.config.Collection, err)
	}

	matches := make([]Match, 0, len(points))
	for _, p := range points {
		id, content, meta := fromPayload(p.GetPayload())
		matches = append(matches, Match{ID: id, Content: content, Similarity: p.GetScore(), Metadata: meta})
	}
	span.SetAttributes(attribute.Int("results_count", len(matches)))
	return matches, nil
}

// Get scrolls through every point matching filter. Embeddings are not returned.
func (s *QdrantStore) Get(ctx context.Context, filter Filter) (_ []Record, err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Get")
	defer span.End()
	started := time.Now()
	defer func() { s.metrics.observe(BackendQdrant, "get", started, err) }()

	var (
		records []Record
		offset  *qdrant.PointId
	)
	for {
		var (
			page []*qdrant.RetrievedPoint
			next *qdrant.PointId
		)
		err = s.retry(ctx, "scroll", func() error {
			var err error
			page, next, err = s.client.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
				CollectionName: s.config.Collection,
				Filter:         toQdrantFilter(filter),
				Limit:          qdrant.PtrOf(uint32(scrollPage)),
				Offset:         offset,
				WithPayload:    qdrant.NewWithPayload(true),
			})
			return err
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("scrolling %s: %w", s.config.Collection, err)
		}
		for _, p := range page {
			id, content, meta := fromPayload(p.GetPayload())
			records = append(records, Record{ID: id, Content: content, Metadata: meta})
		}
		if next == nil || len(page) == 0 {
			break
		}
		offset = next
	}

	if records == nil {
		records = []Record{}
	}
	span.SetAttributes(attribute.Int("results_count", len(records)))
	return records, nil
}

// Delete removes every point matching filter.
func (s *QdrantStore) Delete(ctx context.Context, filter Filter) (err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Delete")
	defer span.End()
	started := time.Now()
	defer func() { s.metrics.observe(BackendQdrant, "delete", started, err) }()

	if len(filter) == 0 {
		return ErrEmptyFilter
	}

	err = s.retry(ctx, "delete", func() error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: s.config.Collection,
			Wait:           qdrant.PtrOf(true),
			Points:         qdrant.NewPointsSelectorFilter(toQdrantFilter(filter)),
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting from %s: %w", s.config.Collection, err)
	}
	return nil
}

// Count returns the exact number of points.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.config.Collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", s.config.Collection, err)
	}
	s.metrics.setRecords(BackendQdrant, s.config.Collection, int(n))
	return int(n), nil
}

// Info describes the store.
func (s *QdrantStore) Info() Info {
	return Info{Backend: BackendQdrant, Collection: s.config.Collection, Dimension: s.config.Dimension}
}

// Health calls the Qdrant health endpoint.
func (s *QdrantStore) Health(ctx context.Context) error {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Health")
	defer span.End()

	if _, err := s.client.HealthCheck(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

var _ Store = (*QdrantStore)(nil)
