package index

import (
	"strconv"

	"github.com/fyrsmithlabs/dartrag/internal/chunker"
	"github.com/fyrsmithlabs/dartrag/internal/vectorstore"
)

// Metadata keys owned by the index.
const (
	KeyDocumentID = "document_id"
	KeyChunkType  = "chunk_type"
	KeySection    = "section"
	KeyPage       = "page"
	KeyOrdinal    = "chunk_ordinal"
	KeyDegraded   = "degraded"

	// KeyMatchedChunk names the child chunk behind a widened parent match.
	KeyMatchedChunk = "matched_chunk_id"
)

var reservedKeys = map[string]bool{
	KeyDocumentID: true,
	KeyChunkType:  true,
	KeySection:    true,
	KeyPage:       true,
	KeyOrdinal:    true,
	KeyDegraded:   true,
}

// toRecord flattens a chunk into a vector record. Reserved keys win over
// same-named chunk metadata.
func toRecord(c EmbeddedChunk, ordinal int) vectorstore.Record {
	meta := make(map[string]string, len(c.Metadata)+6)
	for k, v := range c.Metadata {
		meta[k] = v
	}
	meta[KeyDocumentID] = c.DocumentID
	meta[KeyChunkType] = string(c.Type)
	meta[KeySection] = c.Section
	meta[KeyOrdinal] = strconv.Itoa(ordinal)
	if c.Page > 0 {
		meta[KeyPage] = strconv.Itoa(c.Page)
	}
	if c.Degraded {
		meta[KeyDegraded] = "true"
	}
	return vectorstore.Record{
		ID:        c.ID,
		Content:   c.Content,
		Embedding: c.Embedding,
		Metadata:  meta,
	}
}

// fromRecord rebuilds a chunk from stored fields and metadata.
func fromRecord(id, content string, meta map[string]string) chunker.Chunk {
	c := chunker.Chunk{
		ID:         id,
		DocumentID: meta[KeyDocumentID],
		Content:    content,
		Type:       chunker.Type(meta[KeyChunkType]),
		Section:    meta[KeySection],
		Metadata:   make(map[string]string, len(meta)),
	}
	if c.Type == "" {
		c.Type = chunker.TypeText
	}
	if p, err := strconv.Atoi(meta[KeyPage]); err == nil {
		c.Page = p
	}
	for k, v := range meta {
		if !reservedKeys[k] {
			c.Metadata[k] = v
		}
	}
	return c
}

// widenToParents replaces child hits from hierarchical chunking with their
// parent span. Matches must be best first; the first child of a parent keeps
// the slot and later siblings are dropped. The matched child id stays in
// KeyMatchedChunk.
func widenToParents(matches []Match) []Match {
	seen := make(map[string]bool)
	out := matches[:0]
	for _, m := range matches {
		parentID := m.Chunk.Metadata[chunker.MetaParentID]
		parentText, ok := m.Chunk.Metadata[chunker.MetaParentContent]
		if parentID == "" || !ok {
			out = append(out, m)
			continue
		}
		if seen[parentID] {
			continue
		}
		seen[parentID] = true

		md := make(map[string]string, len(m.Chunk.Metadata))
		for k, v := range m.Chunk.Metadata {
			md[k] = v
		}
		delete(md, chunker.MetaParentContent)
		md[KeyMatchedChunk] = m.Chunk.ID
		md[chunker.MetaLevel] = chunker.LevelParent

		m.Chunk.ID = parentID
		m.Chunk.Section = chunker.LevelParent
		m.Chunk.Content = parentText
		m.Chunk.Metadata = md
		out = append(out, m)
	}
	return out
}

func ordinalOf(meta map[string]string) int {
	n, err := strconv.Atoi(meta[KeyOrdinal])
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}
