// Package analysis answers questions about an indexed disclosure using
// retrieved chunks and, when useful, recent news.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/dartrag/internal/config"
	"github.com/fyrsmithlabs/dartrag/internal/index"
	"github.com/fyrsmithlabs/dartrag/internal/llm"
	"github.com/fyrsmithlabs/dartrag/internal/news"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("dartrag.analysis")

// ErrMissingInput is returned when the question or document id is blank.
var ErrMissingInput = errors.New("질문 또는 문서 ID가 없습니다.")

const (
	minChunkScore = 0.3
	maxChunks     = 5
	newsDisplay   = 10
)

var (
	answerOptions   = llm.Options{Temperature: 0.2, MaxTokens: 1500}
	followUpOptions = llm.Options{Temperature: 0.4, MaxTokens: 300}
)

// Retriever finds chunks of one document relevant to a query.
type Retriever interface {
	SearchWithRerank(ctx context.Context, query, documentID string, topK, rerankTopK int) ([]index.Match, error)
}

// NewsSearcher finds news about a company.
type NewsSearcher interface {
	SearchCompanyNews(ctx context.Context, companyName string, months, display int) []news.Item
}

// Request is one question.
type Request struct {
	Question    string
	DocumentID  string
	CompanyName string
	// IncludeNews overrides NeedsNews when set.
	IncludeNews *bool
}

// Result is a generated answer with its supporting material.
type Result struct {
	Answer       string        `json:"answer"`
	Confidence   float64       `json:"confidence_score"`
	Chunks       []index.Match `json:"-"`
	News         []news.Item   `json:"related_news"`
	NewsIncluded bool          `json:"news_included"`
	Elapsed      time.Duration `json:"-"`
}

// Config sizes retrieval.
type Config struct {
	RetrievalK int
	RerankK    int
}

// FromConfig builds a Config from the daemon configuration.
func FromConfig(c config.AnalysisConfig) Config {
	return Config{RetrievalK: c.RetrievalK, RerankK: c.RerankK}
}

// Analyzer answers questions.
type Analyzer struct {
	retriever Retriever
	news      NewsSearcher
	llm       llm.Completer
	config    Config
	logger    *zap.Logger
}

// NewAnalyzer creates an Analyzer. newsSearcher may be nil.
func NewAnalyzer(retriever Retriever, newsSearcher NewsSearcher, completer llm.Completer, cfg Config, logger *zap.Logger) (*Analyzer, error) {
	if retriever == nil || completer == nil {
		return nil, errors.New("analysis: retriever and completer are required")
	}
	if cfg.RetrievalK <= 0 {
		cfg.RetrievalK = 10
	}
	if cfg.RerankK <= 0 {
		cfg.RerankK = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{retriever: retriever, news: newsSearcher, llm: completer, config: cfg, logger: logger}, nil
}

// Analyze answers req.Question. Retrieval and news failures degrade to no
// context; a failed completion is returned as an error.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	if strings.TrimSpace(req.Question) == "" || req.DocumentID == "" {
		return Result{}, ErrMissingInput
	}

	includeNews := NeedsNews(req.Question)
	if req.IncludeNews != nil {
		includeNews = *req.IncludeNews
	}

	ctx, span := tracer.Start(ctx, "analysis.Analyze")
	defer span.End()
	span.SetAttributes(
		attribute.String("document_id", req.DocumentID),
		attribute.Bool("include_news", includeNews),
	)

	chunks := a.relevantChunks(ctx, req.Question, req.DocumentID)

	var articles []news.Item
	if includeNews && req.CompanyName != "" && a.news != nil {
		articles = FilterNews(a.news.SearchCompanyNews(ctx, req.CompanyName, 0, newsDisplay), req.Question)
	}

	answer, err := a.llm.Complete(ctx, answerPrompt(req.Question, req.CompanyName, chunks, articles), answerOptions)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "answer generation failed")
		return Result{}, fmt.Errorf("분석 중 오류: %w", err)
	}

	res := Result{
		Answer:       answer,
		Confidence:   Confidence(len(chunks), answer),
		Chunks:       chunks,
		News:         articles,
		NewsIncluded: len(articles) > 0,
		Elapsed:      time.Since(started),
	}
	if res.News == nil {
		res.News = []news.Item{}
	}
	span.SetAttributes(
		attribute.Int("chunks", len(chunks)),
		attribute.Int("news", len(articles)),
		attribute.Float64("confidence", res.Confidence),
	)
	a.logger.Info("question answered",
		zap.String("document_id", req.DocumentID),
		zap.Int("chunks", len(chunks)),
		zap.Int("news", len(articles)),
		zap.Float64("confidence", res.Confidence),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

func (a *Analyzer) relevantChunks(ctx context.Context, question, documentID string) []index.Match {
	matches, err := a.retriever.SearchWithRerank(ctx, question, documentID, a.config.RetrievalK, a.config.RerankK)
	if err != nil {
		a.logger.Warn("chunk retrieval failed, answering without document context",
			zap.String("document_id", documentID), zap.Error(err))
		return nil
	}
	out := make([]index.Match, 0, maxChunks)
	for _, m := range matches {
		if m.Score > minChunkScore {
			out = append(out, m)
		}
		if len(out) == maxChunks {
			break
		}
	}
	return out
}

// FollowUps suggests up to three follow-up questions. When analysis is
// empty the previous question stands in for it. Failures yield no
// suggestions.
func (a *Analyzer) FollowUps(ctx context.Context, question, analysis, companyName string) []string {
	if strings.TrimSpace(analysis) == "" {
		if strings.TrimSpace(question) == "" {
			return []string{}
		}
		analysis = "이전 질문: " + question
	}
	out, err := a.llm.Complete(ctx, followUpPrompt(analysis, companyName), followUpOptions)
	if err != nil {
		a.logger.Warn("follow-up generation failed", zap.Error(err))
		return []string{}
	}
	return ParseFollowUps(out)
}
