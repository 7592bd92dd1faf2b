// Package tokenizer counts model tokens for chunk budgeting.
package tokenizer

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// DefaultEncoding is the encoding used by gpt-4 and text-embedding-3-*.
const DefaultEncoding = "cl100k_base"

// Counter returns the number of tokens in text.
type Counter interface {
	Count(text string) int
}

// CounterFunc adapts a function to Counter.
type CounterFunc func(string) int

// Count implements Counter.
func (f CounterFunc) Count(text string) int { return f(text) }

// Tiktoken counts tokens with a BPE encoding.
type Tiktoken struct {
	encoding string
	mu       sync.Mutex
	tke      *tiktoken.Tiktoken
}

// NewTiktoken loads an encoding by name, or by model name if the encoding is
// unknown. The BPE ranks are downloaded on first use unless cached locally.
func NewTiktoken(modelOrEncoding string) (*Tiktoken, error) {
	if modelOrEncoding == "" {
		modelOrEncoding = DefaultEncoding
	}
	tke, err := tiktoken.GetEncoding(modelOrEncoding)
	if err != nil {
		tke, err = tiktoken.EncodingForModel(modelOrEncoding)
		if err != nil {
			return nil, fmt.Errorf("load encoding %q: %w", modelOrEncoding, err)
		}
	}
	return &Tiktoken{encoding: modelOrEncoding, tke: tke}, nil
}

// Count implements Counter.
func (t *Tiktoken) Count(text string) int {
	if text == "" {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tke.Encode(text, nil, nil))
}

// Encoding returns the encoding or model name the counter was built with.
func (t *Tiktoken) Encoding() string {
	return t.encoding
}

// Approximate estimates cl100k token counts without the BPE tables: about
// four ASCII bytes per token and one token per non-ASCII rune, which holds
// reasonably for Hangul syllables.
type Approximate struct{}

// Count implements Counter.
func (Approximate) Count(text string) int {
	ascii, other := 0, 0
	for _, r := range text {
		if r < utf8.RuneSelf {
			ascii++
		} else {
			other++
		}
	}
	return (ascii+3)/4 + other
}

// New returns a tiktoken counter, falling back to Approximate when the
// encoding cannot be loaded (for example with no network access).
func New(encoding string, logger *zap.Logger) Counter {
	if logger == nil {
		logger = zap.NewNop()
	}
	counter, err := NewTiktoken(strings.TrimSpace(encoding))
	if err != nil {
		logger.Warn("tiktoken unavailable, using approximate token counts",
			zap.String("encoding", encoding), zap.Error(err))
		return Approximate{}
	}
	return counter
}
