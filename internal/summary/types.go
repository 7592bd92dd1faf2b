// Package summary turns a disclosure document into a four-part summary.
package summary

import (
	"errors"
	"strings"
	"time"

	"github.com/fyrsmithlabs/dartrag/internal/config"
)

// Placeholder fills summary fields the model left empty.
const Placeholder = "정보가 없습니다."

// Strategy names how a summary was produced.
type Strategy string

const (
	StrategyDirect  Strategy = "direct"
	StrategyChunked Strategy = "chunked"
)

var (
	// ErrEmptyContent is returned for a blank document.
	ErrEmptyContent = errors.New("문서 내용이 없습니다.")
	// ErrTimeout is returned when the direct summary exceeds its deadline.
	ErrTimeout = errors.New("요약 생성 시간 초과")
)

// Summary is the structured document summary.
type Summary struct {
	CompanyOverview     string   `json:"company_overview"`
	FinancialHighlights string   `json:"financial_highlights"`
	KeyChanges          string   `json:"key_changes"`
	NotablePoints       string   `json:"notable_points"`
	Strategy            Strategy `json:"strategy,omitempty"`
}

// Markdown renders the summary under the four headings.
func (s Summary) Markdown() string {
	var sb strings.Builder
	for i, h := range headings {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("## ")
		sb.WriteString(h.title)
		sb.WriteString("\n")
		sb.WriteString(*h.field(&s))
	}
	return sb.String()
}

// Config controls generation.
type Config struct {
	MaxLength int
	Timeout   time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{MaxLength: 1500, Timeout: 60 * time.Second}
}

// FromConfig builds a Config from the daemon configuration.
func FromConfig(c config.SummaryConfig) Config {
	return Config{MaxLength: c.MaxLength, Timeout: c.Timeout.Duration()}
}
