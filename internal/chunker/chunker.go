// Package chunker splits disclosure documents into section-tagged chunks.
//
// The default semantic mode partitions text into disclosure sections,
// pulls tables out as their own chunks, and packs the remaining paragraphs
// under a token budget with a two-sentence overlap between neighbours.
// Hierarchical mode emits small child chunks that carry the text of the
// larger parent span they were cut from.
package chunker

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/dartrag/internal/config"
	"github.com/fyrsmithlabs/dartrag/internal/tokenizer"
	"go.uber.org/zap"
)

// ErrNoChunks is returned when a document produces no chunks.
var ErrNoChunks = errors.New("document produced no chunks")

// Modes.
const (
	ModeSemantic     = "semantic"
	ModeHierarchical = "hierarchical"
)

// overlapSentences is how many trailing sentences seed the next chunk.
const overlapSentences = 2

// Config controls chunk sizes.
type Config struct {
	Mode          string
	MaxTokens     int
	ParentSize    int
	ParentOverlap int
	ChildSize     int
	ChildOverlap  int
}

// DefaultConfig returns the semantic-mode defaults.
func DefaultConfig() Config {
	return Config{
		Mode:          ModeSemantic,
		MaxTokens:     1000,
		ParentSize:    5000,
		ParentOverlap: 500,
		ChildSize:     800,
		ChildOverlap:  150,
	}
}

// FromConfig maps application settings onto a chunker config.
func FromConfig(c config.ChunkerConfig) Config {
	return Config{
		Mode:          c.Mode,
		MaxTokens:     c.MaxTokens,
		ParentSize:    c.ParentSize,
		ParentOverlap: c.ParentOverlap,
		ChildSize:     c.ChunkSize,
		ChildOverlap:  c.ChunkOverlap,
	}
}

// Chunker splits documents. It is safe for concurrent use when its Counter is.
type Chunker struct {
	cfg     Config
	counter tokenizer.Counter
	logger  *zap.Logger
}

// New creates a Chunker.
func New(cfg Config, counter tokenizer.Counter, logger *zap.Logger) (*Chunker, error) {
	if counter == nil {
		return nil, errors.New("token counter is required")
	}
	if cfg.MaxTokens <= 0 {
		return nil, fmt.Errorf("max tokens must be positive, got %d", cfg.MaxTokens)
	}
	switch cfg.Mode {
	case "":
		cfg.Mode = ModeSemantic
	case ModeSemantic, ModeHierarchical:
	default:
		return nil, fmt.Errorf("unknown chunking mode %q", cfg.Mode)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chunker{cfg: cfg, counter: counter, logger: logger}, nil
}

// Mode returns the configured chunking mode.
func (c *Chunker) Mode() string {
	return c.cfg.Mode
}

// Chunk splits text using the configured mode.
func (c *Chunker) Chunk(text, documentID string) ([]Chunk, error) {
	if c.cfg.Mode == ModeHierarchical {
		return c.ChunkHierarchical(text, documentID)
	}
	return c.ChunkSemantic(text, documentID)
}

// ChunkSemantic partitions text into sections, extracts tables, and packs
// paragraphs under the token budget.
func (c *Chunker) ChunkSemantic(text, documentID string) ([]Chunk, error) {
	var chunks []Chunk
	for _, section := range Partition(text) {
		chunks = append(chunks, c.chunkSection(section.Text(text), section.Label, documentID)...)
	}
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	c.logger.Debug("document chunked",
		zap.String("document_id", documentID),
		zap.String("mode", ModeSemantic),
		zap.Int("chunks", len(chunks)))
	return chunks, nil
}

func (c *Chunker) chunkSection(content, section, documentID string) []Chunk {
	var chunks []Chunk

	tables, rest := ExtractTables(content)
	for _, table := range tables {
		chunks = append(chunks, Chunk{
			ID:         ChunkID(documentID, TypeTable, section, table.Index),
			DocumentID: documentID,
			Content:    table.Content,
			Type:       TypeTable,
			Section:    section,
			Metadata:   map[string]string{MetaTableIndex: strconv.Itoa(table.Index)},
		})
	}

	if strings.TrimSpace(rest) == "" {
		return chunks
	}
	for i, packed := range c.pack(splitParagraphs(rest)) {
		chunks = append(chunks, Chunk{
			ID:         ChunkID(documentID, TypeText, section, i),
			DocumentID: documentID,
			Content:    packed,
			Type:       TypeText,
			Section:    section,
			Metadata: map[string]string{
				MetaParagraphCount: strconv.Itoa(strings.Count(packed, "\n\n") + 1),
			},
		})
	}
	return chunks
}

// pack greedily joins paragraphs while the buffer stays within MaxTokens.
// On overflow the buffer is flushed and the next one starts with the last
// sentences of the flushed buffer, unless that seed would itself overflow.
// A paragraph larger than the budget is emitted whole.
func (c *Chunker) pack(paragraphs []string) []string {
	var (
		out []string
		buf string
	)
	for _, p := range paragraphs {
		candidate := p
		if buf != "" {
			candidate = buf + "\n\n" + p
		}
		if c.counter.Count(candidate) <= c.cfg.MaxTokens {
			buf = candidate
			continue
		}
		if buf == "" {
			buf = p
			continue
		}
		out = append(out, buf)
		seeded := p
		if overlap := overlapText(buf); overlap != "" {
			seeded = overlap + "\n\n" + p
		}
		if c.counter.Count(seeded) > c.cfg.MaxTokens {
			seeded = p
		}
		buf = seeded
	}
	if buf != "" {
		out = append(out, buf)
	}
	return out
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// overlapText returns the last overlapSentences '.'-delimited sentences of text.
func overlapText(text string) string {
	trimmed := strings.TrimSpace(text)
	body := strings.TrimSuffix(trimmed, ".")
	parts := strings.Split(body, ".")
	if len(parts) > overlapSentences {
		parts = parts[len(parts)-overlapSentences:]
	}
	out := strings.TrimSpace(strings.Join(parts, "."))
	if out != "" && body != trimmed {
		out += "."
	}
	return out
}
