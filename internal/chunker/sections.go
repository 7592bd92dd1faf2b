package chunker

import (
	"regexp"
	"strings"
)

// Section labels.
const (
	SectionCompanyOverview    = "company_overview"
	SectionBusinessContent    = "business_content"
	SectionFinancialStatus    = "financial_status"
	SectionManagementAnalysis = "management_analysis"
	SectionRiskFactors        = "risk_factors"
	SectionFuturePlans        = "future_plans"
	SectionOthers             = "others"
)

// SectionPattern pairs a label with the heading that opens the section.
type SectionPattern struct {
	Label   string
	Heading *regexp.Regexp
}

// DisclosureSections is evaluated in order; earlier entries win.
var DisclosureSections = []SectionPattern{
	{SectionCompanyOverview, regexp.MustCompile(`(?i)회사의\s*개요|기업개요|회사개요`)},
	{SectionBusinessContent, regexp.MustCompile(`(?i)사업의\s*내용|주요\s*사업|사업현황`)},
	{SectionFinancialStatus, regexp.MustCompile(`(?i)재무에\s*관한\s*사항|재무상태|재무제표|재무현황`)},
	{SectionManagementAnalysis, regexp.MustCompile(`(?i)경영진\s*분석|재무성과\s*분석|경영성과`)},
	{SectionRiskFactors, regexp.MustCompile(`(?i)위험요인|리스크\s*요인|사업위험`)},
	{SectionFuturePlans, regexp.MustCompile(`(?i)향후\s*계획|사업전망|미래전략`)},
}

// sectionBoundary ends a section: a blank line, or a line opening with a
// roman or arabic numeral followed by a period.
var sectionBoundary = regexp.MustCompile(`\n\n|\n(?i:[IVX])+\.|\n[0-9]+\.`)

// Range is a half-open byte range into the source text.
type Range struct {
	Start int
	End   int
}

// Section is a labelled set of byte ranges. Matched sections have one range;
// the others section collects every unconsumed gap.
type Section struct {
	Label  string
	Ranges []Range
}

// Text returns the section content from src.
func (s Section) Text(src string) string {
	if len(s.Ranges) == 1 {
		return src[s.Ranges[0].Start:s.Ranges[0].End]
	}
	var sb strings.Builder
	for _, r := range s.Ranges {
		sb.WriteString(src[r.Start:r.End])
	}
	return sb.String()
}

// Partition splits text with DisclosureSections.
func Partition(text string) []Section {
	return PartitionWith(text, DisclosureSections)
}

// PartitionWith splits text into labelled sections. Patterns are tried in
// order, each against text not already consumed by an earlier pattern; the
// first heading found opens the section, which runs to the next boundary or
// the end of the unconsumed span. Whatever remains becomes SectionOthers
// when it is not blank. The source string is never modified.
func PartitionWith(text string, patterns []SectionPattern) []Section {
	free := []Range{{0, len(text)}}
	var out []Section

	for _, p := range patterns {
		for i, span := range free {
			loc := p.Heading.FindStringIndex(text[span.Start:span.End])
			if loc == nil {
				continue
			}
			start := span.Start + loc[0]
			end := span.End
			if b := sectionBoundary.FindStringIndex(text[span.Start+loc[1] : span.End]); b != nil {
				end = span.Start + loc[1] + b[0]
			}
			out = append(out, Section{Label: p.Label, Ranges: []Range{{start, end}}})

			rest := make([]Range, 0, len(free)+1)
			rest = append(rest, free[:i]...)
			if start > span.Start {
				rest = append(rest, Range{span.Start, start})
			}
			if end < span.End {
				rest = append(rest, Range{end, span.End})
			}
			free = append(rest, free[i+1:]...)
			break
		}
	}

	others := Section{Label: SectionOthers}
	for _, r := range free {
		if strings.TrimSpace(text[r.Start:r.End]) != "" {
			others.Ranges = append(others.Ranges, r)
		}
	}
	if len(others.Ranges) > 0 {
		out = append(out, others)
	}
	return out
}
