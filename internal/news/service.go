package news

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("dartrag.news")

// Service searches company news. A Service without credentials is
// unconfigured and returns no items.
type Service struct {
	config  Config
	client  *resty.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a news service.
func NewService(cfg Config, logger *zap.Logger) *Service {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("X-Naver-Client-Id", cfg.ClientID).
		SetHeader("X-Naver-Client-Secret", cfg.ClientSecret)

	return &Service{
		config:  cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		logger:  logger,
		now:     time.Now,
	}
}

// Configured reports whether the service has credentials.
func (s *Service) Configured() bool {
	return s != nil && s.config.Configured()
}

// SearchCompanyNews searches every query variant of companyName, merges the
// results and returns at most display articles ordered by relevance.
// Non-positive months and display fall back to the configured defaults;
// articles older than months are dropped. It never fails.
func (s *Service) SearchCompanyNews(ctx context.Context, companyName string, months, display int) []Item {
	if !s.Configured() || strings.TrimSpace(companyName) == "" {
		return nil
	}
	if months <= 0 {
		months = s.config.Months
	}
	if display <= 0 {
		display = s.config.Display
	}

	ctx, span := tracer.Start(ctx, "news.SearchCompanyNews")
	defer span.End()

	variants := QueryVariants(companyName)
	perVariant := perVariantDisplay(display, len(variants))
	span.SetAttributes(
		attribute.Int("variants", len(variants)),
		attribute.Int("display", display),
	)

	var all []Item
	for _, q := range variants {
		all = append(all, s.search(ctx, q, perVariant)...)
	}

	items := rank(Dedup(all))
	items = filterSince(items, s.now().AddDate(0, -months, 0))
	if len(items) > display {
		items = items[:display]
	}

	span.SetAttributes(attribute.Int("results", len(items)))
	s.logger.Debug("news search completed",
		zap.String("corp_name", companyName),
		zap.Int("fetched", len(all)),
		zap.Int("results", len(items)),
	)
	return items
}

// QueryVariants returns the search queries for a company: the name, the name
// with 실적, 재무 and 사업 appended, and the name without (주)/㈜ when that
// differs.
func QueryVariants(companyName string) []string {
	variants := []string{
		companyName,
		companyName + " 실적",
		companyName + " 재무",
		companyName + " 사업",
	}
	clean := strings.TrimSpace(strings.NewReplacer("(주)", "", "㈜", "").Replace(companyName))
	if clean != companyName && clean != "" {
		variants = append(variants, clean)
	}
	return variants
}

func perVariantDisplay(display, variants int) int {
	if variants <= 0 {
		return 0
	}
	n := display / variants
	if n < 1 {
		n = 1
	}
	if n > maxDisplayPerRequest {
		n = maxDisplayPerRequest
	}
	return n
}

// search runs one query. Any failure is logged and yields no items.
func (s *Service) search(ctx context.Context, query string, display int) []Item {
	ctx, span := tracer.Start(ctx, "news.search")
	defer span.End()
	span.SetAttributes(attribute.String("query", query))

	fail := func(err error) []Item {
		span.RecordError(err)
		span.SetStatus(codes.Error, "news search failed")
		s.logger.Warn("news search failed", zap.String("query", query), zap.Error(err))
		return nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fail(fmt.Errorf("rate limiter: %w", err))
	}

	var payload naverResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":   query,
			"display": strconv.Itoa(display),
			"start":   "1",
			"sort":    "sim",
		}).
		SetResult(&payload).
		Get(s.config.URL)
	if err != nil {
		return fail(err)
	}
	if resp.IsError() {
		return fail(fmt.Errorf("naver api status %d", resp.StatusCode()))
	}

	items := make([]Item, 0, len(payload.Items))
	for _, raw := range payload.Items {
		title := CleanHTML(raw.Title)
		desc := CleanHTML(raw.Description)
		items = append(items, Item{
			Title:          title,
			Description:    desc,
			PubDate:        raw.PubDate,
			Link:           raw.Link,
			RelevanceScore: Relevance(title, desc, query),
		})
	}
	span.SetAttributes(attribute.Int("items", len(items)))
	return items
}

// CleanHTML strips tags and decodes entities.
func CleanHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}

// RecentNews keeps articles published within the last days. Articles whose
// date cannot be parsed are kept.
func RecentNews(items []Item, days int) []Item {
	return filterSince(items, time.Now().AddDate(0, 0, -days))
}

func filterSince(items []Item, cutoff time.Time) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		published, err := time.Parse(PubDateLayout, it.PubDate)
		if err != nil || !published.Before(cutoff) {
			out = append(out, it)
		}
	}
	return out
}
