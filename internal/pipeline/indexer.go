package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/dartrag/internal/chunker"
	"github.com/fyrsmithlabs/dartrag/internal/index"
	"github.com/fyrsmithlabs/dartrag/internal/logging"
	"github.com/fyrsmithlabs/dartrag/internal/reader"
	"github.com/fyrsmithlabs/dartrag/internal/summary"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("dartrag.pipeline")

// DocumentReader loads a filing from disk.
type DocumentReader interface {
	Read(ctx context.Context, path string) (*reader.Document, error)
}

// Splitter turns document text into chunks.
type Splitter interface {
	Chunk(text, documentID string) ([]chunker.Chunk, error)
}

// ChunkIndexer embeds and stores chunks.
type ChunkIndexer interface {
	EmbedAndStore(ctx context.Context, chunks []chunker.Chunk) (index.EmbedResult, error)
}

// Summarizer produces the four-part document summary.
type Summarizer interface {
	Generate(ctx context.Context, content, companyName string) (summary.Summary, error)
}

// Progress is reported when a stage starts.
type Progress struct {
	DocumentID string
	Stage      Stage
}

// ProgressFunc receives stage transitions.
type ProgressFunc func(Progress)

// Indexer runs reading, chunking, embedding and summarizing in order.
type Indexer struct {
	reader     DocumentReader
	splitter   Splitter
	index      ChunkIndexer
	summarizer Summarizer
	logger     *zap.Logger
	metrics    *metrics
	progress   ProgressFunc
}

// NewIndexer wires the indexing workflow.
func NewIndexer(r DocumentReader, s Splitter, idx ChunkIndexer, sum Summarizer, logger *zap.Logger) (*Indexer, error) {
	if r == nil || s == nil || idx == nil || sum == nil {
		return nil, errors.New("reader, splitter, index and summarizer are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{
		reader:     r,
		splitter:   s,
		index:      idx,
		summarizer: sum,
		logger:     logger,
		metrics:    newMetrics(logger),
	}, nil
}

// OnProgress sets the stage callback.
func (ix *Indexer) OnProgress(fn ProgressFunc) {
	ix.progress = fn
}

// Run executes the workflow. The returned state always carries a Stage;
// failures set ErrorMessage and leave later stages unrun.
func (ix *Indexer) Run(ctx context.Context, req IndexRequest) *IndexingState {
	ctx, span := tracer.Start(logging.WithDocumentID(ctx, req.DocumentID), "pipeline.Index")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", req.DocumentID))

	state := &IndexingState{
		Request:   req,
		Stage:     StagePending,
		StartedAt: time.Now(),
		Times:     Timings{},
	}

	steps := []struct {
		stage Stage
		run   func(context.Context, *IndexingState) string
	}{
		{StageReading, ix.read},
		{StageChunking, ix.chunk},
		{StageEmbedding, ix.embed},
		{StageSummarizing, ix.summarize},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			state.fail(err.Error())
			break
		}
		state.Stage = step.stage
		if ix.progress != nil {
			ix.progress(Progress{DocumentID: req.DocumentID, Stage: step.stage})
		}

		start := time.Now()
		msg := step.run(ctx, state)
		elapsed := time.Since(start).Seconds()
		state.Times[step.stage] = elapsed
		ix.metrics.stage(ctx, "index", step.stage, elapsed)

		if msg != "" {
			state.fail(msg)
			break
		}
	}

	if state.Failed() {
		span.SetStatus(codes.Error, state.ErrorMessage)
		ix.logger.Warn("indexing failed", append(logging.ContextFields(ctx),
			zap.String("stage", string(state.FailedStage)),
			zap.String("error", state.ErrorMessage))...)
	} else {
		state.Stage = StageCompleted
		ix.logger.Info("indexing completed", append(logging.ContextFields(ctx),
			zap.Int("chunks", len(state.Chunks)),
			zap.Int("degraded_chunks", state.DegradedChunks),
			zap.Float64("seconds", state.Times.Total()))...)
	}
	ix.metrics.run(ctx, "index", state.Failed())
	return state
}

func (ix *Indexer) read(ctx context.Context, s *IndexingState) string {
	path := s.Request.FilePath
	if strings.TrimSpace(path) == "" {
		return MsgNoFilePath
	}
	doc, err := ix.reader.Read(ctx, path)
	switch {
	case errors.Is(err, reader.ErrEmptyPath):
		return MsgNoFilePath
	case errors.Is(err, reader.ErrNotFound):
		return fmt.Sprintf(MsgFileNotFound, path)
	case err != nil:
		return fmt.Sprintf(MsgReadFailed, err)
	}
	if strings.TrimSpace(doc.Text) == "" {
		return fmt.Sprintf(MsgFileUnreadable, path)
	}
	s.Content = doc.Text
	return ""
}

func (ix *Indexer) chunk(_ context.Context, s *IndexingState) string {
	chunks, err := ix.splitter.Chunk(s.Content, s.Request.DocumentID)
	if errors.Is(err, chunker.ErrNoChunks) || (err == nil && len(chunks) == 0) {
		return MsgChunkingFailed
	}
	if err != nil {
		return fmt.Sprintf(MsgChunkingError, err)
	}
	for i := range chunks {
		chunks[i] = chunks[i].WithMetadata(chunker.MetaCorpName, s.Request.CorpName)
	}
	s.Chunks = chunks
	return ""
}

func (ix *Indexer) embed(ctx context.Context, s *IndexingState) string {
	res, err := ix.index.EmbedAndStore(ctx, s.Chunks)
	if err != nil {
		return fmt.Sprintf(MsgEmbeddingFailed, err)
	}
	s.DegradedChunks = res.DegradedCount
	return ""
}

func (ix *Indexer) summarize(ctx context.Context, s *IndexingState) string {
	sum, err := ix.summarizer.Generate(ctx, s.Content, s.Request.CorpName)
	if err != nil {
		return err.Error()
	}
	s.Summary = &sum
	return ""
}
