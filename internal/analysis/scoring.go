package analysis

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/fyrsmithlabs/dartrag/internal/news"
)

const (
	newsKeepAbove  = 0.4
	maxNews        = 3
	questionBoost  = 0.2
	financialBoost = 0.3
)

// FilterNews rescores items against question and returns the best three
// scoring above 0.4. Each distinct question word found in the article adds 0.2; a
// financial question matched by a financial article adds 0.3.
func FilterNews(items []news.Item, question string) []news.Item {
	q := strings.ToLower(question)
	words := uniqueWords(q)
	financialQuestion := containsAny(q, financialKeywords)

	scored := make([]news.Item, 0, len(items))
	for _, it := range items {
		text := strings.ToLower(it.Title + " " + it.Description)
		score := it.RelevanceScore
		for _, w := range words {
			if strings.Contains(text, w) {
				score += questionBoost
			}
		}
		if financialQuestion && containsAny(text, financialKeywords) {
			score += financialBoost
		}
		it.RelevanceScore = clamp(score)
		if it.RelevanceScore > newsKeepAbove {
			scored = append(scored, it)
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RelevanceScore > scored[j].RelevanceScore
	})
	if len(scored) > maxNews {
		scored = scored[:maxNews]
	}
	return scored
}

var (
	figurePattern       = regexp.MustCompile(`\d+%|\d+억|\d+만|\d+년|\d+월`)
	uncertaintyPhrases  = []string{"확실하지 않", "명확하지 않", "정보가 부족", "판단하기 어려"}
	longAnswerThreshold = 500
)

// Confidence scores an answer: 0.5 base, +0.2 for three or more supporting
// chunks (+0.1 for at least one), +0.1 for answers over 500 characters, +0.1
// when concrete figures appear, -0.1 for hedging language. The result is
// clamped to [0, 1].
func Confidence(chunks int, answer string) float64 {
	c := 0.5
	switch {
	case chunks >= 3:
		c += 0.2
	case chunks >= 1:
		c += 0.1
	}
	if utf8.RuneCountInString(answer) > longAnswerThreshold {
		c += 0.1
	}
	if figurePattern.MatchString(answer) {
		c += 0.1
	}
	if containsAny(answer, uncertaintyPhrases) {
		c -= 0.1
	}
	return clamp(c)
}

// ParseFollowUps keeps lines starting with "1.", "2." or "3.", strips the
// marker and returns at most three questions.
func ParseFollowUps(text string) []string {
	out := make([]string, 0, 3)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "1.") && !strings.HasPrefix(line, "2.") && !strings.HasPrefix(line, "3.") {
			continue
		}
		if q := strings.TrimSpace(line[2:]); q != "" {
			out = append(out, q)
		}
		if len(out) == 3 {
			break
		}
	}
	return out
}

// uniqueWords splits s on whitespace and drops repeats, keeping first order.
func uniqueWords(s string) []string {
	fields := strings.Fields(s)
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
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
