package analysis

import "strings"

// KeywordFamily is a weighted group of question keywords.
type KeywordFamily struct {
	Name     string
	Weight   float64
	Keywords []string
}

// NewsFamilies scores how much a question depends on information outside the
// filing.
var NewsFamilies = []KeywordFamily{
	{"temporal", 0.3, []string{"최근", "현재", "요즘", "지금", "올해", "작년", "내년", "앞으로", "향후", "미래", "전망", "계획", "예정"}},
	{"market", 0.25, []string{"경쟁", "시장", "업계", "동향", "트렌드", "비교", "경쟁사", "점유율", "순위", "위치", "경쟁력", "차별화"}},
	{"external_evaluation", 0.4, []string{"주가", "시세", "평가", "전문가", "분석가", "의견", "추천", "목표가", "투자", "전망", "리포트"}},
	{"performance_change", 0.2, []string{"증가", "감소", "성장", "하락", "변화", "개선", "악화", "상승", "회복", "둔화", "가속", "확대", "축소"}},
	{"business_event", 0.25, []string{"신사업", "신제품", "출시", "론칭", "확장", "진출", "인수", "합병", "제휴", "파트너십", "투자유치"}},
	{"negative_risk", 0.35, []string{"문제", "이슈", "위험", "우려", "논란", "갈등", "소송", "제재", "벌금", "조사", "비판"}},
}

// NewsThreshold is the score a question must exceed to pull in news. Zero
// means a single keyword hit is enough.
const NewsThreshold = 0.0

// NewsScore sums weight × hits over NewsFamilies. A keyword listed in two
// families counts in both.
func NewsScore(question string) float64 {
	q := strings.ToLower(question)
	score := 0.0
	for _, fam := range NewsFamilies {
		for _, kw := range fam.Keywords {
			if strings.Contains(q, kw) {
				score += fam.Weight
			}
		}
	}
	return score
}

// NeedsNews reports whether answering question should include news.
func NeedsNews(question string) bool {
	return NewsScore(question) > NewsThreshold
}

// financialKeywords mark finance-related questions and articles.
var financialKeywords = []string{"실적", "매출", "영업이익", "순이익", "재무", "수익", "손실", "성장", "감소", "증가", "전망", "계획", "투자"}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
