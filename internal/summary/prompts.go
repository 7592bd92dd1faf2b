package summary

import (
	"fmt"
	"strings"
)

// Chunked-strategy section labels.
const (
	sectionBusiness   = "business"
	sectionFinancial  = "financial"
	sectionManagement = "management"
	sectionRisk       = "risk"
	sectionOthers     = "others"
)

// sectionOrder is the order section summaries are generated and merged in.
var sectionOrder = []string{sectionBusiness, sectionFinancial, sectionManagement, sectionRisk, sectionOthers}

var sectionInstructions = map[string]string{
	sectionBusiness:   "주요 사업 분야와 현재 상황을 2-3문장으로 요약해주세요.",
	sectionFinancial:  "핵심 재무 지표와 전년 대비 변화를 2-3문장으로 요약해주세요.",
	sectionManagement: "경영 성과와 분석 내용을 2-3문장으로 요약해주세요.",
	sectionRisk:       "주요 위험 요인을 2-3문장으로 요약해주세요.",
	sectionOthers:     "기타 중요한 내용을 2-3문장으로 요약해주세요.",
}

// fallbackHeadings maps section summaries to headings when integration fails.
// The others section has no heading and is left out.
var fallbackHeadings = []struct {
	section string
	title   string
}{
	{sectionBusiness, "🏢 기업 개요"},
	{sectionFinancial, "💰 재무 하이라이트"},
	{sectionManagement, "📈 주요 변화사항"},
	{sectionRisk, "⚠️ 주목할 점"},
}

func directPrompt(content, company string, maxLength int) string {
	return fmt.Sprintf(`당신은 금융 문서 분석 전문가입니다.
다음 %s의 공시 문서를 읽고, 일반 투자자도 이해하기 쉽게 요약해주세요.

문서 내용:
%s

다음 4개 섹션으로 요약해주세요:

## 🏢 기업 개요
- 주요 사업 분야와 현재 상황을 간단히 설명

## 💰 재무 하이라이트
- 매출, 영업이익, 순이익 등 핵심 재무 지표
- 전년 대비 주요 변화사항

## 📈 주요 변화사항
- 신규 사업, 투자, M&A 등 중요한 변화
- 시장 환경 변화가 회사에 미치는 영향

## ⚠️ 주목할 점
- 투자자가 알아야 할 위험 요인이나 기회 요인
- 향후 전망에 영향을 줄 수 있는 요소들

각 섹션은 2-3문장으로 간결하게 작성하고, 전체 길이는 %d자 이내로 해주세요.
금융 전문 용어는 괄호 안에 쉬운 설명을 추가해주세요.`, company, content, maxLength)
}

func sectionPrompt(section, content, company string) string {
	instruction, ok := sectionInstructions[section]
	if !ok {
		instruction = "내용을 2-3문장으로 요약해주세요."
	}
	return fmt.Sprintf(`다음은 %s의 공시 문서 중 일부입니다.
%s

내용:
%s

일반 투자자도 이해하기 쉽게 설명해주세요.`, company, instruction, content)
}

func integrationPrompt(summaries []sectionSummary, company string, maxLength int) string {
	var sb strings.Builder
	for _, s := range summaries {
		fmt.Fprintf(&sb, "%s: %s\n", s.section, s.text)
	}
	return fmt.Sprintf(`다음은 %s의 공시 문서를 섹션별로 요약한 내용입니다.
이를 바탕으로 투자자를 위한 최종 요약 보고서를 작성해주세요.

섹션별 요약:
%s
다음 형식으로 작성해주세요:

## 🏢 기업 개요
## 💰 재무 하이라이트
## 📈 주요 변화사항
## ⚠️ 주목할 점

각 섹션은 2-3문장으로 간결하게 작성하고, 전체 길이는 %d자 이내로 해주세요.`, company, sb.String(), maxLength)
}

// fallbackIntegration concatenates section summaries under their headings,
// skipping empty ones.
func fallbackIntegration(summaries []sectionSummary) string {
	byName := make(map[string]string, len(summaries))
	for _, s := range summaries {
		byName[s.section] = s.text
	}
	var parts []string
	for _, h := range fallbackHeadings {
		if text := strings.TrimSpace(byName[h.section]); text != "" {
			parts = append(parts, "## "+h.title+"\n"+text)
		}
	}
	return strings.Join(parts, "\n\n")
}
