package analysis

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/dartrag/internal/index"
	"github.com/fyrsmithlabs/dartrag/internal/news"
)

const chunkPreview = 300

func buildContext(chunks []index.Match, articles []news.Item) string {
	var parts []string
	if len(chunks) > 0 {
		var sb strings.Builder
		sb.WriteString("## 공시 문서 관련 내용:\n")
		for i, c := range chunks {
			content := []rune(c.Chunk.Content)
			if len(content) > chunkPreview {
				content = content[:chunkPreview]
			}
			fmt.Fprintf(&sb, "%d. [%s] %s...\n\n", i+1, c.Chunk.Section, string(content))
		}
		parts = append(parts, sb.String())
	}
	if len(articles) > 0 {
		var sb strings.Builder
		sb.WriteString("## 최근 뉴스 정보:\n")
		for i, n := range articles {
			fmt.Fprintf(&sb, "%d. %s\n   %s\n\n", i+1, n.Title, n.Description)
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, "\n")
}

func answerPrompt(question, company string, chunks []index.Match, articles []news.Item) string {
	return fmt.Sprintf(`당신은 %s의 공시 문서와 최신 뉴스를 분석하는 금융 전문가입니다.
다음 질문에 대해 제공된 정보를 바탕으로 정확하고 통찰력 있는 답변을 해주세요.

질문: %s

참고 정보:
%s

답변 가이드라인:
1. 공시 문서의 정보를 우선적으로 활용하세요
2. 최신 뉴스는 보조적인 정보로 활용하세요
3. 구체적인 숫자나 데이터가 있다면 인용하세요
4. 불확실한 정보는 명시적으로 표시하세요
5. 투자자 관점에서 실용적인 인사이트를 제공하세요
6. 답변은 3-4개 문단으로 구성하세요

답변 구조:
- 첫 번째 문단: 질문에 대한 직접적인 답변
- 두 번째 문단: 공시 문서 기반 상세 분석
- 세 번째 문단: 시장 상황 및 뉴스 반영 (해당시)
- 네 번째 문단: 투자자를 위한 시사점`, company, question, buildContext(chunks, articles))
}

func followUpPrompt(analysis, company string) string {
	return fmt.Sprintf(`다음은 %s에 대한 분석 결과입니다:

%s

이 분석을 바탕으로 투자자가 추가로 궁금해할 만한 후속 질문 3개를 제안해주세요.
각 질문은 구체적이고 실용적이어야 합니다.

형식:
1. 질문1
2. 질문2
3. 질문3`, company, analysis)
}
