package news

import (
	"sort"
	"strings"
)

// FinancialKeywords each add 0.1 to an article's relevance.
var FinancialKeywords = []string{"실적", "매출", "영업이익", "순이익", "재무", "투자", "사업", "전망"}

// Relevance scores an article against the query that found it: +0.5 when the
// title contains the query, +0.3 when the description does, +0.1 per
// financial keyword anywhere in the article, capped at 1.0.
func Relevance(title, description, query string) float64 {
	q := strings.ToLower(query)
	t := strings.ToLower(title)
	d := strings.ToLower(description)

	score := 0.0
	if strings.Contains(t, q) {
		score += 0.5
	}
	if strings.Contains(d, q) {
		score += 0.3
	}
	text := t + " " + d
	for _, kw := range FinancialKeywords {
		if strings.Contains(text, kw) {
			score += 0.1
		}
	}
	return clamp(score)
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Dedup keeps the first article for each 20-rune title prefix.
func Dedup(items []Item) []Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]Item, 0, len(items))
	for _, it := range items {
		key := titleKey(it.Title)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}

func titleKey(title string) string {
	r := []rune(title)
	if len(r) > dedupPrefixRunes {
		r = r[:dedupPrefixRunes]
	}
	return string(r)
}

// rank drops articles below the minimum relevance and sorts the rest by
// relevance, highest first. Equal scores keep their input order.
func rank(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.RelevanceScore >= minRelevance {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RelevanceScore > out[j].RelevanceScore
	})
	return out
}
