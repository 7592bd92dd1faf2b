package summary

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fyrsmithlabs/dartrag/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	mu      sync.Mutex
	prompts []string
	opts    []llm.Options
	reply   func(ctx context.Context, prompt string) (string, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	f.mu.Unlock()
	return f.reply(ctx, prompt)
}

const modelSummary = `## 🏢 기업 개요
반도체와 가전을 만드는 회사입니다.

## 💰 재무 하이라이트
매출 300조원.
영업이익 증가.

## 📈 주요 변화사항
신규 공장 투자.

## ⚠️ 주목할 점
환율 위험.`

func TestStructure(t *testing.T) {
	s := Structure(modelSummary)
	assert.Equal(t, "반도체와 가전을 만드는 회사입니다.", s.CompanyOverview)
	assert.Equal(t, "매출 300조원. 영업이익 증가.", s.FinancialHighlights)
	assert.Equal(t, "신규 공장 투자.", s.KeyChanges)
	assert.Equal(t, "환율 위험.", s.NotablePoints)
}

func TestStructure_Placeholders(t *testing.T) {
	s := Structure("서론 문장\n## 기업 개요\n개요 내용\n## 참고\n무시되는 줄\n💰\n")
	assert.Equal(t, "개요 내용", s.CompanyOverview)
	assert.Equal(t, Placeholder, s.FinancialHighlights)
	assert.Equal(t, Placeholder, s.KeyChanges)
	assert.Equal(t, Placeholder, s.NotablePoints)

	empty := Structure("")
	assert.Equal(t, Summary{
		CompanyOverview:     Placeholder,
		FinancialHighlights: Placeholder,
		KeyChanges:          Placeholder,
		NotablePoints:       Placeholder,
	}, empty)
}

func TestSummary_MarkdownRoundTrip(t *testing.T) {
	s := Structure(modelSummary)
	again := Structure(s.Markdown())
	assert.Equal(t, s, again)
}

func TestChooseStrategy(t *testing.T) {
	assert.Equal(t, StrategyDirect, ChooseStrategy(strings.Repeat("가", 500)))
	assert.Equal(t, StrategyDirect, ChooseStrategy(strings.Repeat("가", 5333)))
	assert.Equal(t, StrategyChunked, ChooseStrategy(strings.Repeat("가", 5334)))
}

func TestGenerate_Direct(t *testing.T) {
	fc := &fakeCompleter{reply: func(context.Context, string) (string, error) { return modelSummary, nil }}
	g, err := NewGenerator(fc, DefaultConfig(), nil)
	require.NoError(t, err)

	content := strings.Repeat("가", 500)
	s, err := g.Generate(context.Background(), content, "삼성전자")
	require.NoError(t, err)
	assert.Equal(t, StrategyDirect, s.Strategy)
	assert.Equal(t, "환율 위험.", s.NotablePoints)

	require.Len(t, fc.prompts, 1)
	assert.Contains(t, fc.prompts[0], "다음 삼성전자의 공시 문서를")
	assert.Contains(t, fc.prompts[0], "1500자 이내")
	assert.Equal(t, llm.Options{Temperature: 0.3, MaxTokens: 1000}, fc.opts[0])
}

func TestGenerate_Empty(t *testing.T) {
	g, err := NewGenerator(&fakeCompleter{}, DefaultConfig(), nil)
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), " \n ", "A")
	assert.ErrorIs(t, err, ErrEmptyContent)
	assert.Equal(t, "문서 내용이 없습니다.", err.Error())
}

func TestGenerate_Timeout(t *testing.T) {
	fc := &fakeCompleter{reply: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	g, err := NewGenerator(fc, Config{MaxLength: 1500, Timeout: 20 * time.Millisecond}, nil)
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "짧은 문서", "A")
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, "요약 생성 시간 초과 (0초)", err.Error())
	assert.Len(t, fc.prompts, 1)
}

func TestGenerate_TimeoutMessage(t *testing.T) {
	fc := &fakeCompleter{reply: func(context.Context, string) (string, error) {
		return "", context.DeadlineExceeded
	}}
	g, err := NewGenerator(fc, DefaultConfig(), nil)
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "짧은 문서", "A")
	assert.EqualError(t, err, "요약 생성 시간 초과 (60초)")
}

func TestGenerate_OtherError(t *testing.T) {
	upstream := errors.New("invalid api key")
	fc := &fakeCompleter{reply: func(context.Context, string) (string, error) { return "", upstream }}
	g, err := NewGenerator(fc, DefaultConfig(), nil)
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "짧은 문서", "A")
	require.ErrorIs(t, err, upstream)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Equal(t, "요약 생성 중 오류: invalid api key", err.Error())
}

func longDocument() string {
	var sb strings.Builder
	sb.WriteString("II. 사업의 내용\n반도체 사업을 영위합니다.\n\n")
	sb.WriteString("III. 재무에 관한 사항\n매출액은 300조원입니다.\n\n")
	sb.WriteString("IV. 위험요인\n환율 변동 위험이 있습니다.\n\n")
	sb.WriteString(strings.Repeat("기타 내용입니다. ", 1000))
	return sb.String()
}

func TestSplitSections(t *testing.T) {
	sections := SplitSections(longDocument())
	assert.Equal(t, "사업의 내용\n반도체 사업을 영위합니다.", sections[sectionBusiness])
	assert.Equal(t, "재무에 관한 사항\n매출액은 300조원입니다.", sections[sectionFinancial])
	assert.Equal(t, "위험요인\n환율 변동 위험이 있습니다.", sections[sectionRisk])
	assert.Empty(t, sections[sectionManagement])
	assert.LessOrEqual(t, len([]rune(sections[sectionOthers])), sectionCap)
	assert.NotEmpty(t, sections[sectionOthers])
}

func TestGenerate_Chunked(t *testing.T) {
	fc := &fakeCompleter{reply: func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "섹션별로 요약한 내용") {
			return modelSummary, nil
		}
		return "섹션 요약", nil
	}}
	g, err := NewGenerator(fc, DefaultConfig(), nil)
	require.NoError(t, err)

	s, err := g.Generate(context.Background(), longDocument(), "삼성전자")
	require.NoError(t, err)
	assert.Equal(t, StrategyChunked, s.Strategy)
	assert.Equal(t, "반도체와 가전을 만드는 회사입니다.", s.CompanyOverview)

	// business, financial, risk, others, then integration.
	require.Len(t, fc.prompts, 5)
	assert.Contains(t, fc.prompts[0], "주요 사업 분야와 현재 상황")
	assert.Contains(t, fc.prompts[1], "핵심 재무 지표")
	assert.Contains(t, fc.prompts[2], "주요 위험 요인")
	assert.Contains(t, fc.prompts[3], "기타 중요한 내용")
	assert.Equal(t, llm.Options{Temperature: 0.3, MaxTokens: 200}, fc.opts[0])
	assert.Equal(t, llm.Options{Temperature: 0.3, MaxTokens: 800}, fc.opts[4])
	assert.Contains(t, fc.prompts[4], "business: 섹션 요약")
}

func TestGenerate_ChunkedFallback(t *testing.T) {
	fc := &fakeCompleter{reply: func(_ context.Context, prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "섹션별로 요약한 내용"):
			return "", errors.New("rate limited")
		case strings.Contains(prompt, "주요 사업 분야"):
			return "사업 요약", nil
		case strings.Contains(prompt, "주요 위험 요인"):
			return "위험 요약", nil
		default:
			return "", nil
		}
	}}
	g, err := NewGenerator(fc, DefaultConfig(), nil)
	require.NoError(t, err)

	s, err := g.Generate(context.Background(), longDocument(), "삼성전자")
	require.NoError(t, err)
	assert.Equal(t, "사업 요약", s.CompanyOverview)
	assert.Equal(t, Placeholder, s.FinancialHighlights)
	assert.Equal(t, Placeholder, s.KeyChanges)
	assert.Equal(t, "위험 요약", s.NotablePoints)
}

func TestFallbackIntegration(t *testing.T) {
	out := fallbackIntegration([]sectionSummary{
		{sectionRisk, "위험"},
		{sectionBusiness, "사업"},
		{sectionFinancial, " "},
		{sectionOthers, "기타"},
	})
	assert.Equal(t, "## 🏢 기업 개요\n사업\n\n## ⚠️ 주목할 점\n위험", out)
}

func TestNewGenerator_RequiresCompleter(t *testing.T) {
	_, err := NewGenerator(nil, DefaultConfig(), nil)
	assert.Error(t, err)
}
