package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fyrsmithlabs/dartrag/internal/chunker"
	"github.com/fyrsmithlabs/dartrag/internal/index"
	"github.com/fyrsmithlabs/dartrag/internal/llm"
	"github.com/fyrsmithlabs/dartrag/internal/news"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRetriever struct {
	matches []index.Match
	err     error
	topK    int
	rerankK int
}

func (f *fakeRetriever) SearchWithRerank(_ context.Context, _, _ string, topK, rerankTopK int) ([]index.Match, error) {
	f.topK, f.rerankK = topK, rerankTopK
	return f.matches, f.err
}

type fakeNews struct {
	items   []news.Item
	calls   int
	display int
}

func (f *fakeNews) SearchCompanyNews(_ context.Context, _ string, _, display int) []news.Item {
	f.calls++
	f.display = display
	return f.items
}

type fakeCompleter struct {
	reply   string
	err     error
	prompts []string
	opts    []llm.Options
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, opts llm.Options) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	return f.reply, f.err
}

func match(section, content string, score float32) index.Match {
	return index.Match{
		Chunk:      chunker.Chunk{ID: section, Section: section, Content: content},
		Similarity: score,
		Score:      score,
	}
}

func boolPtr(b bool) *bool { return &b }

func TestNeedsNews(t *testing.T) {
	tests := []struct {
		question string
		want     bool
	}{
		{"최근 주가 전망은 어떤가요?", true},
		{"소송 위험이 있나요?", true},
		{"신제품 출시 계획은?", true},
		{"회사의 본점 주소는 어디인가요?", false},
		{"대표이사는 누구인가요?", false},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsNews(tt.question))
		})
	}
}

func TestNewsScore(t *testing.T) {
	// 최근 (temporal) + 주가 (external) + 전망 (temporal and external).
	assert.InDelta(t, 0.3+0.4+0.3+0.4, NewsScore("최근 주가 전망"), 1e-9)
	assert.InDelta(t, 0.35, NewsScore("소송"), 1e-9)
	assert.Zero(t, NewsScore("본점 주소"))
}

func TestFilterNews(t *testing.T) {
	items := []news.Item{
		{Title: "삼성전자 실적 개선", Description: "영업이익 증가", RelevanceScore: 0.5},
		{Title: "날씨", Description: "맑음", RelevanceScore: 0.9},
		{Title: "삼성전자 신제품", Description: "스마트폰", RelevanceScore: 0.1},
		{Title: "반도체 매출", Description: "", RelevanceScore: 0.2},
		{Title: "삼성전자 매출 전망", Description: "", RelevanceScore: 0.3},
	}
	got := FilterNews(items, "삼성전자 실적은?")

	require.Len(t, got, 3)
	// 0.5 + 0.2 (삼성전자) + 0.3 financial, clamped.
	assert.Equal(t, "삼성전자 실적 개선", got[0].Title)
	assert.InDelta(t, 1.0, got[0].RelevanceScore, 1e-9)
	assert.Equal(t, "날씨", got[1].Title)
	assert.InDelta(t, 0.9, got[1].RelevanceScore, 1e-9)
	assert.Equal(t, "삼성전자 매출 전망", got[2].Title)
	assert.InDelta(t, 0.8, got[2].RelevanceScore, 1e-9)
	for _, it := range got {
		assert.Greater(t, it.RelevanceScore, 0.4)
		assert.LessOrEqual(t, it.RelevanceScore, 1.0)
	}
	assert.InDelta(t, 0.5, items[0].RelevanceScore, 1e-9, "input is not modified")
}

func TestFilterNews_RepeatedQuestionWordCountsOnce(t *testing.T) {
	items := []news.Item{{Title: "공장 증설 소식", RelevanceScore: 0.1}}

	assert.Empty(t, FilterNews(items, "공장 계획"))
	assert.Empty(t, FilterNews(items, "공장 공장 계획"))
	assert.Empty(t, FilterNews(items, "공장 공장 공장 공장"))
}

func TestConfidence(t *testing.T) {
	long := strings.Repeat("가", 501)
	tests := []struct {
		name   string
		chunks int
		answer string
		want   float64
	}{
		{"bare", 0, "짧은 답", 0.5},
		{"one chunk", 1, "짧은 답", 0.6},
		{"three chunks", 3, "짧은 답", 0.7},
		{"figures", 3, "매출 30% 증가", 0.8},
		{"everything", 5, long + " 2023년 매출 300억", 0.9},
		{"hedged", 0, "정보가 부족합니다", 0.4},
		{"zero chunks long hedged numeric", 0, strings.Repeat("나", 2000) + "10% 판단하기 어려움", 0.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Confidence(tt.chunks, tt.answer)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestParseFollowUps(t *testing.T) {
	text := "다음은 제안입니다.\n1. A\n2. B\n\n3. C\n4. D\n추가 설명"
	assert.Equal(t, []string{"A", "B", "C"}, ParseFollowUps(text))

	assert.Equal(t, []string{"X"}, ParseFollowUps("  1.   X  \n2.\n"))
	assert.Empty(t, ParseFollowUps("질문 없음"))
	assert.Equal(t, []string{"a", "b", "c"}, ParseFollowUps("1. a\n1. b\n2. c\n3. d"))
}

func TestAnalyze(t *testing.T) {
	r := &fakeRetriever{matches: []index.Match{
		match("financial_status", strings.Repeat("매", 400), 0.9),
		match("others", "낮은 점수", 0.2),
		match("risk_factors", "환율 위험", 0.5),
	}}
	n := &fakeNews{items: []news.Item{{Title: "삼성전자 실적 발표", Description: "매출", RelevanceScore: 0.6}}}
	c := &fakeCompleter{reply: "매출이 30% 증가했습니다."}

	a, err := NewAnalyzer(r, n, c, Config{}, nil)
	require.NoError(t, err)

	res, err := a.Analyze(context.Background(), Request{
		Question:    "최근 실적 전망은?",
		DocumentID:  "doc1",
		CompanyName: "삼성전자",
	})
	require.NoError(t, err)

	assert.Equal(t, 10, r.topK)
	assert.Equal(t, 5, r.rerankK)
	assert.Equal(t, 1, n.calls)
	assert.Equal(t, 10, n.display)

	require.Len(t, res.Chunks, 2)
	assert.Equal(t, "financial_status", res.Chunks[0].Chunk.Section)
	assert.True(t, res.NewsIncluded)
	require.Len(t, res.News, 1)
	assert.InDelta(t, 0.5+0.1+0.1, res.Confidence, 1e-9)
	assert.Equal(t, "매출이 30% 증가했습니다.", res.Answer)

	require.Len(t, c.prompts, 1)
	p := c.prompts[0]
	assert.Contains(t, p, "당신은 삼성전자의 공시 문서와 최신 뉴스를")
	assert.Contains(t, p, "질문: 최근 실적 전망은?")
	assert.Contains(t, p, "1. [financial_status] "+strings.Repeat("매", 300)+"...")
	assert.NotContains(t, p, strings.Repeat("매", 301))
	assert.Contains(t, p, "2. [risk_factors] 환율 위험...")
	assert.Contains(t, p, "## 최근 뉴스 정보:\n1. 삼성전자 실적 발표\n   매출")
	assert.Equal(t, llm.Options{Temperature: 0.2, MaxTokens: 1500}, c.opts[0])
}

func TestAnalyze_NewsOverride(t *testing.T) {
	n := &fakeNews{items: []news.Item{{Title: "삼성전자 실적", RelevanceScore: 0.9}}}
	c := &fakeCompleter{reply: "답"}
	a, err := NewAnalyzer(&fakeRetriever{}, n, c, Config{}, nil)
	require.NoError(t, err)

	res, err := a.Analyze(context.Background(), Request{
		Question: "최근 주가 전망", DocumentID: "d", CompanyName: "삼성전자", IncludeNews: boolPtr(false),
	})
	require.NoError(t, err)
	assert.Zero(t, n.calls)
	assert.False(t, res.NewsIncluded)
	assert.NotNil(t, res.News)
	assert.NotContains(t, c.prompts[0], "최근 뉴스 정보")

	_, err = a.Analyze(context.Background(), Request{
		Question: "대표이사는 누구인가요?", DocumentID: "d", CompanyName: "삼성전자", IncludeNews: boolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n.calls)
}

func TestAnalyze_NoCompanySkipsNews(t *testing.T) {
	n := &fakeNews{}
	a, err := NewAnalyzer(&fakeRetriever{}, n, &fakeCompleter{reply: "답"}, Config{}, nil)
	require.NoError(t, err)

	_, err = a.Analyze(context.Background(), Request{Question: "최근 주가 전망", DocumentID: "d"})
	require.NoError(t, err)
	assert.Zero(t, n.calls)
}

func TestAnalyze_RetrievalFailureDegrades(t *testing.T) {
	c := &fakeCompleter{reply: "답"}
	a, err := NewAnalyzer(&fakeRetriever{err: errors.New("qdrant down")}, nil, c, Config{}, nil)
	require.NoError(t, err)

	res, err := a.Analyze(context.Background(), Request{Question: "대표이사는?", DocumentID: "d"})
	require.NoError(t, err)
	assert.Empty(t, res.Chunks)
	assert.InDelta(t, 0.5, res.Confidence, 1e-9)
	assert.NotContains(t, c.prompts[0], "공시 문서 관련 내용")
}

func TestAnalyze_Errors(t *testing.T) {
	upstream := errors.New("quota exceeded")
	a, err := NewAnalyzer(&fakeRetriever{}, nil, &fakeCompleter{err: upstream}, Config{}, nil)
	require.NoError(t, err)

	_, err = a.Analyze(context.Background(), Request{Question: " ", DocumentID: "d"})
	assert.ErrorIs(t, err, ErrMissingInput)
	_, err = a.Analyze(context.Background(), Request{Question: "질문입니다", DocumentID: ""})
	assert.ErrorIs(t, err, ErrMissingInput)

	_, err = a.Analyze(context.Background(), Request{Question: "질문입니다", DocumentID: "d"})
	assert.ErrorIs(t, err, upstream)

	_, err = NewAnalyzer(nil, nil, nil, Config{}, nil)
	assert.Error(t, err)
}

func TestFollowUps(t *testing.T) {
	c := &fakeCompleter{reply: "1. 부채비율은?\n2. 배당 정책은?\n3. 설비 투자 계획은?\n감사합니다"}
	a, err := NewAnalyzer(&fakeRetriever{}, nil, c, Config{}, nil)
	require.NoError(t, err)

	got := a.FollowUps(context.Background(), "매출은?", "", "삼성전자")
	assert.Equal(t, []string{"부채비율은?", "배당 정책은?", "설비 투자 계획은?"}, got)
	assert.Contains(t, c.prompts[0], "다음은 삼성전자에 대한 분석 결과입니다:\n\n이전 질문: 매출은?")
	assert.Equal(t, llm.Options{Temperature: 0.4, MaxTokens: 300}, c.opts[0])

	failing := &fakeCompleter{err: errors.New("down")}
	a2, err := NewAnalyzer(&fakeRetriever{}, nil, failing, Config{}, nil)
	require.NoError(t, err)
	assert.Empty(t, a2.FollowUps(context.Background(), "매출은?", "", "삼성전자"))
	assert.Empty(t, a2.FollowUps(context.Background(), "", "", "삼성전자"))
}
