package chunker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap"
)

// Section labels and MetaLevel values used by hierarchical chunking.
const (
	LevelParent = "parent"
	LevelChild  = "child"
)

var splitSeparators = []string{"\n\n", "\n", ".", "!", "?", " "}

// ChunkHierarchical splits text into parent spans and returns only the
// child chunks cut from them. Each child carries its parent's id and full
// text in metadata, so a child hit can be widened to the parent at search
// time without the parent ever competing for a result slot. Sizes are
// measured in tokens.
func (c *Chunker) ChunkHierarchical(text, documentID string) ([]Chunk, error) {
	parentSplitter := c.splitter(c.cfg.ParentSize, c.cfg.ParentOverlap)
	childSplitter := c.splitter(c.cfg.ChildSize, c.cfg.ChildOverlap)

	parents, err := parentSplitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split parents: %w", err)
	}

	var chunks []Chunk
	parentIndex := 0
	for _, parentText := range parents {
		parentText = strings.TrimSpace(parentText)
		if parentText == "" {
			continue
		}
		parentID := ChunkID(documentID, TypeText, LevelParent, parentIndex)

		children, err := childSplitter.SplitText(parentText)
		if err != nil {
			return nil, fmt.Errorf("split children of %s: %w", parentID, err)
		}
		for _, childText := range children {
			childText = strings.TrimSpace(childText)
			if childText == "" {
				continue
			}
			chunks = append(chunks, Chunk{
				ID:         ChunkID(documentID, TypeText, LevelChild, len(chunks)),
				DocumentID: documentID,
				Content:    childText,
				Type:       TypeText,
				Section:    LevelChild,
				Metadata: map[string]string{
					MetaLevel:         LevelChild,
					MetaParentID:      parentID,
					MetaParentIndex:   strconv.Itoa(parentIndex),
					MetaParentContent: parentText,
				},
			})
		}
		parentIndex++
	}

	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	c.logger.Debug("document chunked",
		zap.String("document_id", documentID),
		zap.String("mode", ModeHierarchical),
		zap.Int("parents", parentIndex),
		zap.Int("chunks", len(chunks)))
	return chunks, nil
}

func (c *Chunker) splitter(size, overlap int) textsplitter.RecursiveCharacter {
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
		textsplitter.WithSeparators(splitSeparators),
		textsplitter.WithLenFunc(c.counter.Count),
	)
}
