package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/fyrsmithlabs/dartrag/internal/analysis"
	"github.com/fyrsmithlabs/dartrag/internal/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Analyst answers questions about a document.
type Analyst interface {
	Analyze(ctx context.Context, req analysis.Request) (analysis.Result, error)
}

// Querier runs the question answering workflow.
type Querier struct {
	analyst Analyst
	logger  *zap.Logger
	metrics *metrics
}

// NewQuerier wires the query workflow.
func NewQuerier(a Analyst, logger *zap.Logger) (*Querier, error) {
	if a == nil {
		return nil, errors.New("analyst is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Querier{analyst: a, logger: logger, metrics: newMetrics(logger)}, nil
}

// Run answers one question. When the request leaves IncludeNews unset, the
// keyword policy decides.
func (q *Querier) Run(ctx context.Context, req QueryRequest) *QueryState {
	ctx, span := tracer.Start(logging.WithDocumentID(ctx, req.DocumentID), "pipeline.Query")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", req.DocumentID))

	state := &QueryState{Request: req, Stage: StageAnalyzing, Times: Timings{}}
	if req.IncludeNews != nil {
		state.IncludeNews = *req.IncludeNews
	} else {
		state.IncludeNews = analysis.NeedsNews(req.Question)
	}
	include := state.IncludeNews

	start := time.Now()
	res, err := q.analyst.Analyze(ctx, analysis.Request{
		Question:    req.Question,
		DocumentID:  req.DocumentID,
		CompanyName: req.CorpName,
		IncludeNews: &include,
	})
	elapsed := time.Since(start).Seconds()
	state.Times[StageAnalyzing] = elapsed
	q.metrics.stage(ctx, "query", StageAnalyzing, elapsed)

	if err != nil {
		state.Stage = StageFailed
		state.ErrorMessage = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		q.logger.Warn("query failed", append(logging.ContextFields(ctx), zap.Error(err))...)
	} else {
		state.Result = res
		state.Stage = StageCompleted
	}
	q.metrics.run(ctx, "query", state.Failed())
	return state
}
