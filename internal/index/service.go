package index

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/dartrag/internal/chunker"
	"github.com/fyrsmithlabs/dartrag/internal/embeddings"
	"github.com/fyrsmithlabs/dartrag/internal/reranker"
	"github.com/fyrsmithlabs/dartrag/internal/vectorstore"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("dartrag.index")

// Embedder is the part of embeddings.Service the index needs.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) (embeddings.BatchResult, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// Service embeds, stores and searches chunks.
type Service struct {
	embedder Embedder
	store    vectorstore.Store
	reranker reranker.Reranker
	logger   *zap.Logger
}

// NewService wires the index. A nil reranker uses the 0.7/0.3 keyword blend.
func NewService(embedder Embedder, store vectorstore.Store, rr reranker.Reranker, logger *zap.Logger) (*Service, error) {
	if embedder == nil || store == nil {
		return nil, fmt.Errorf("index: embedder and store are required")
	}
	if rr == nil {
		rr = reranker.NewKeywordReranker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{embedder: embedder, store: store, reranker: rr, logger: logger}, nil
}

// EmbedAndStore embeds chunks in batches and writes them to the store.
//
// Failed embedding batches do not fail the call; those chunks are stored with
// zero vectors and reported through EmbedResult.DegradedCount. Storage
// failures and cancellation are returned as errors.
func (s *Service) EmbedAndStore(ctx context.Context, chunks []chunker.Chunk) (EmbedResult, error) {
	ctx, span := tracer.Start(ctx, "index.EmbedAndStore")
	defer span.End()
	span.SetAttributes(attribute.Int("chunks", len(chunks)))

	if len(chunks) == 0 {
		return EmbedResult{}, ErrNoChunks
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	batch, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding cancelled")
		return EmbedResult{}, fmt.Errorf("embedding chunks: %w", err)
	}

	res := EmbedResult{
		Chunks:        make([]EmbeddedChunk, len(chunks)),
		DegradedCount: batch.DegradedCount,
	}
	records := make([]vectorstore.Record, len(chunks))
	for i, c := range chunks {
		ec := EmbeddedChunk{Chunk: c, Embedding: batch.Vectors[i], Degraded: batch.Degraded[i]}
		res.Chunks[i] = ec
		records[i] = toRecord(ec, i)
	}

	if err := s.store.Upsert(ctx, records); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store failed")
		return EmbedResult{}, fmt.Errorf("storing chunks: %w", err)
	}

	span.SetAttributes(attribute.Int("degraded", res.DegradedCount))
	s.logger.Info("chunks embedded and stored",
		zap.String("document_id", chunks[0].DocumentID),
		zap.Int("chunks", len(chunks)),
		zap.Int("degraded", res.DegradedCount),
	)
	return res, nil
}

// Search returns chunks with similarity >= opts.MinSimilarity, nearest first.
// The document filter runs inside the vector query.
func (s *Service) Search(ctx context.Context, query string, opts SearchOptions) ([]Match, error) {
	ctx, span := tracer.Start(ctx, "index.Search")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	span.SetAttributes(
		attribute.String("document_id", opts.DocumentID),
		attribute.Int("top_k", opts.TopK),
		attribute.Float64("min_similarity", float64(opts.MinSimilarity)),
	)

	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embed query failed")
		return nil, err
	}

	var filter vectorstore.Filter
	if opts.DocumentID != "" {
		filter = vectorstore.Filter{KeyDocumentID: opts.DocumentID}
	}

	hits, err := s.store.Query(ctx, vec, opts.TopK, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "vector query failed")
		return nil, fmt.Errorf("searching chunks: %w", err)
	}

	matches := make([]Match, 0, len(hits))
	for _, h := range hits {
		// NaN similarities from zero vectors fail this comparison too.
		if !(h.Similarity >= opts.MinSimilarity) {
			continue
		}
		matches = append(matches, Match{
			Chunk:      fromRecord(h.ID, h.Content, h.Metadata),
			Similarity: h.Similarity,
			Score:      h.Similarity,
		})
	}
	matches = widenToParents(matches)

	span.SetAttributes(attribute.Int("results", len(matches)))
	s.logger.Debug("search completed",
		zap.String("document_id", opts.DocumentID),
		zap.Int("candidates", len(hits)),
		zap.Int("results", len(matches)),
	)
	return matches, nil
}

// SearchWithRerank takes topK candidates at similarity >= 0.3, reranks them
// with the keyword blend and returns the best rerankTopK.
func (s *Service) SearchWithRerank(ctx context.Context, query, documentID string, topK, rerankTopK int) ([]Match, error) {
	ctx, span := tracer.Start(ctx, "index.SearchWithRerank")
	defer span.End()

	if topK <= 0 {
		topK = DefaultRerankCandidates
	}
	if rerankTopK <= 0 {
		rerankTopK = DefaultTopK
	}

	candidates, err := s.Search(ctx, query, SearchOptions{
		DocumentID:    documentID,
		TopK:          topK,
		MinSimilarity: RerankMinSimilarity,
	})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []Match{}, nil
	}

	docs := make([]reranker.Document, len(candidates))
	for i, c := range candidates {
		docs[i] = reranker.Document{ID: c.Chunk.ID, Content: c.Chunk.Content, Score: c.Similarity}
	}

	ranked, err := s.reranker.Rerank(ctx, query, docs, rerankTopK)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("reranking: %w", err)
	}

	out := make([]Match, len(ranked))
	for i, r := range ranked {
		m := candidates[r.OriginalRank]
		m.Score = r.RerankerScore
		out[i] = m
	}
	span.SetAttributes(attribute.Int("results", len(out)))
	return out, nil
}

// GetByDocument returns every chunk of a document in chunking order.
func (s *Service) GetByDocument(ctx context.Context, documentID string) ([]chunker.Chunk, error) {
	ctx, span := tracer.Start(ctx, "index.GetByDocument")
	defer span.End()

	if documentID == "" {
		return nil, ErrMissingDocumentID
	}

	records, err := s.store.Get(ctx, vectorstore.Filter{KeyDocumentID: documentID})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("listing chunks: %w", err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		oi, oj := ordinalOf(records[i].Metadata), ordinalOf(records[j].Metadata)
		if oi != oj {
			return oi < oj
		}
		return records[i].ID < records[j].ID
	})

	chunks := make([]chunker.Chunk, len(records))
	for i, r := range records {
		c := fromRecord(r.ID, r.Content, r.Metadata)
		delete(c.Metadata, chunker.MetaParentContent)
		chunks[i] = c
	}
	span.SetAttributes(attribute.Int("chunks", len(chunks)))
	return chunks, nil
}

// Delete removes every chunk of a document.
func (s *Service) Delete(ctx context.Context, documentID string) error {
	ctx, span := tracer.Start(ctx, "index.Delete")
	defer span.End()

	if documentID == "" {
		return ErrMissingDocumentID
	}
	if err := s.store.Delete(ctx, vectorstore.Filter{KeyDocumentID: documentID}); err != nil {
		span.RecordError(err)
		return fmt.Errorf("deleting document %s: %w", documentID, err)
	}
	s.logger.Info("document deleted from index", zap.String("document_id", documentID))
	return nil
}

// Stats reports the chunk count and index configuration.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	info := s.store.Info()
	n, err := s.store.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("counting chunks: %w", err)
	}
	return Stats{
		TotalChunks:    n,
		Collection:     info.Collection,
		EmbeddingModel: s.embedder.Model(),
		Backend:        info.Backend,
	}, nil
}

// Health reports whether the vector store is reachable.
func (s *Service) Health(ctx context.Context) error {
	return s.store.Health(ctx)
}
