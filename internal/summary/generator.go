package summary

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fyrsmithlabs/dartrag/internal/chunker"
	"github.com/fyrsmithlabs/dartrag/internal/llm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("dartrag.summary")

const (
	directTokenLimit = 8000
	tokensPerChar    = 1.5
	directWindow     = 6000
	sectionCap       = 2000
)

var (
	directOptions      = llm.Options{Temperature: 0.3, MaxTokens: 1000}
	sectionOptions     = llm.Options{Temperature: 0.3, MaxTokens: 200}
	integrationOptions = llm.Options{Temperature: 0.3, MaxTokens: 800}
)

// summarySections splits long documents for the chunked strategy.
var summarySections = []chunker.SectionPattern{
	{Label: sectionBusiness, Heading: regexp.MustCompile(`(?i)사업의\s*내용|주요\s*사업|사업현황`)},
	{Label: sectionFinancial, Heading: regexp.MustCompile(`(?i)재무에\s*관한\s*사항|재무상태|재무제표`)},
	{Label: sectionManagement, Heading: regexp.MustCompile(`(?i)경영진\s*분석|재무성과\s*분석|경영성과`)},
	{Label: sectionRisk, Heading: regexp.MustCompile(`(?i)위험요인|리스크\s*요인|사업위험`)},
}

type sectionSummary struct {
	section string
	text    string
}

// Generator produces document summaries with a completion model.
type Generator struct {
	llm    llm.Completer
	config Config
	logger *zap.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(completer llm.Completer, cfg Config, logger *zap.Logger) (*Generator, error) {
	if completer == nil {
		return nil, errors.New("summary: completer is required")
	}
	def := DefaultConfig()
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = def.MaxLength
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{llm: completer, config: cfg, logger: logger}, nil
}

// ChooseStrategy estimates 1.5 tokens per character and picks the direct
// strategy below 8000 estimated tokens.
func ChooseStrategy(content string) Strategy {
	if float64(utf8.RuneCountInString(content))*tokensPerChar < directTokenLimit {
		return StrategyDirect
	}
	return StrategyChunked
}

// Generate summarizes content for companyName.
func (g *Generator) Generate(ctx context.Context, content, companyName string) (Summary, error) {
	if strings.TrimSpace(content) == "" {
		return Summary{}, ErrEmptyContent
	}

	strategy := ChooseStrategy(content)
	ctx, span := tracer.Start(ctx, "summary.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("strategy", string(strategy)),
		attribute.Int("content_chars", utf8.RuneCountInString(content)),
	)

	started := time.Now()
	var (
		raw string
		err error
	)
	if strategy == StrategyDirect {
		raw, err = g.direct(ctx, content, companyName)
	} else {
		raw, err = g.chunked(ctx, content, companyName)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "summary failed")
		return Summary{}, err
	}

	s := Structure(raw)
	s.Strategy = strategy
	g.logger.Info("summary generated",
		zap.String("corp_name", companyName),
		zap.String("strategy", string(strategy)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return s, nil
}

func (g *Generator) direct(ctx context.Context, content, company string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	out, err := g.llm.Complete(ctx, directPrompt(truncateRunes(content, directWindow), company, g.config.MaxLength), directOptions)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w (%d초)", ErrTimeout, int(g.config.Timeout.Seconds()))
		}
		return "", fmt.Errorf("요약 생성 중 오류: %w", err)
	}
	return out, nil
}

func (g *Generator) chunked(ctx context.Context, content, company string) (string, error) {
	sections := SplitSections(content)

	var summaries []sectionSummary
	for _, name := range sectionOrder {
		text := sections[name]
		if strings.TrimSpace(text) == "" {
			continue
		}
		out, err := g.llm.Complete(ctx, sectionPrompt(name, text, company), sectionOptions)
		if err != nil {
			if ctx.Err() != nil {
				return "", fmt.Errorf("요약 생성 중 오류: %w", ctx.Err())
			}
			g.logger.Warn("section summary failed", zap.String("section", name), zap.Error(err))
			out = name + " 섹션 요약 실패: " + err.Error()
		}
		summaries = append(summaries, sectionSummary{section: name, text: out})
	}

	merged, err := g.llm.Complete(ctx, integrationPrompt(summaries, company, g.config.MaxLength), integrationOptions)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("요약 생성 중 오류: %w", ctx.Err())
		}
		g.logger.Warn("summary integration failed, concatenating sections", zap.Error(err))
		return fallbackIntegration(summaries), nil
	}
	return merged, nil
}

// SplitSections partitions content into the business, financial, management,
// risk and others sections, each capped at 2000 characters.
func SplitSections(content string) map[string]string {
	out := make(map[string]string, len(sectionOrder))
	for _, sec := range chunker.PartitionWith(content, summarySections) {
		out[sec.Label] = truncateRunes(sec.Text(content), sectionCap)
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
