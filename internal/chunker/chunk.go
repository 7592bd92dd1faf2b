package chunker

import "strconv"

// Type distinguishes prose chunks from extracted tables.
type Type string

const (
	TypeText  Type = "text"
	TypeTable Type = "table"
)

// Metadata keys set by the chunker.
const (
	MetaTableIndex     = "table_index"
	MetaParagraphCount = "paragraph_count"
	MetaParentID       = "parent_id"
	MetaParentIndex    = "parent_index"
	MetaParentContent  = "parent_content"
	MetaLevel          = "level"
	MetaCorpName       = "corp_name"
)

// Chunk is a section-tagged span of a disclosure document.
type Chunk struct {
	ID         string            `json:"chunk_id"`
	DocumentID string            `json:"document_id"`
	Content    string            `json:"content"`
	Type       Type              `json:"chunk_type"`
	Section    string            `json:"section"`
	Page       int               `json:"page_number,omitempty"`
	Metadata   map[string]string `json:"metadata"`
}

// ChunkID builds the deterministic id {document}_{type}_{section}_{index}.
func ChunkID(documentID string, typ Type, section string, index int) string {
	return documentID + "_" + string(typ) + "_" + section + "_" + strconv.Itoa(index)
}

// WithMetadata returns a copy of c with key set; the original is untouched.
func (c Chunk) WithMetadata(key, value string) Chunk {
	md := make(map[string]string, len(c.Metadata)+1)
	for k, v := range c.Metadata {
		md[k] = v
	}
	md[key] = value
	c.Metadata = md
	return c
}
