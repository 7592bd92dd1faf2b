package summary

import "strings"

type heading struct {
	marker string
	phrase string
	title  string
	field  func(*Summary) *string
}

// headings are checked in order; a line matching either the emoji or the
// title opens that field.
var headings = []heading{
	{"🏢", "기업 개요", "🏢 기업 개요", func(s *Summary) *string { return &s.CompanyOverview }},
	{"💰", "재무 하이라이트", "💰 재무 하이라이트", func(s *Summary) *string { return &s.FinancialHighlights }},
	{"📈", "주요 변화사항", "📈 주요 변화사항", func(s *Summary) *string { return &s.KeyChanges }},
	{"⚠", "주목할 점", "⚠️ 주목할 점", func(s *Summary) *string { return &s.NotablePoints }},
}

func (h heading) matches(line string) bool {
	return strings.Contains(line, h.marker) || strings.Contains(line, h.phrase)
}

// Structure parses model output into a Summary. Lines after a heading are
// joined with spaces into its field until the next heading; any other "##"
// line closes the current field. Empty fields get Placeholder.
func Structure(text string) Summary {
	var s Summary
	var current *string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if h, ok := matchHeading(line); ok {
			current = h.field(&s)
			continue
		}
		if strings.HasPrefix(line, "##") {
			current = nil
			continue
		}
		if current != nil {
			if *current != "" {
				*current += " "
			}
			*current += line
		}
	}
	for _, h := range headings {
		if f := h.field(&s); strings.TrimSpace(*f) == "" {
			*f = Placeholder
		}
	}
	return s
}

func matchHeading(line string) (heading, bool) {
	for _, h := range headings {
		if h.matches(line) {
			return h, true
		}
	}
	return heading{}, false
}
