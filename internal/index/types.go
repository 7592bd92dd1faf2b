package index

import (
	"errors"

	"github.com/fyrsmithlabs/dartrag/internal/chunker"
)

var (
	// ErrEmptyQuery is returned for a blank search query.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrNoChunks is returned by EmbedAndStore when given nothing to store.
	ErrNoChunks = errors.New("no chunks to embed")

	// ErrMissingDocumentID is returned when a document-scoped call has no id.
	ErrMissingDocumentID = errors.New("document id is required")
)

// Default search parameters.
const (
	DefaultTopK             = 5
	DefaultMinSimilarity    = 0.8
	RerankMinSimilarity     = 0.3
	DefaultRerankCandidates = 10
)

// EmbeddedChunk is a chunk with its vector.
type EmbeddedChunk struct {
	chunker.Chunk
	Embedding []float32 `json:"-"`
	// Degraded marks a zero-vector fallback from a failed embedding batch.
	Degraded bool `json:"degraded"`
}

// EmbedResult is the outcome of EmbedAndStore.
type EmbedResult struct {
	Chunks        []EmbeddedChunk
	DegradedCount int
}

// Match is a search hit. Similarity is the vector similarity; Score is the
// blended rerank score when reranking ran, otherwise equal to Similarity.
type Match struct {
	Chunk      chunker.Chunk `json:"chunk"`
	Similarity float32       `json:"similarity"`
	Score      float32       `json:"score"`
}

// SearchOptions scope and bound a search.
type SearchOptions struct {
	DocumentID    string
	TopK          int
	MinSimilarity float32
}

// Stats summarizes the index.
type Stats struct {
	TotalChunks    int    `json:"total_chunks"`
	Collection     string `json:"collection_name"`
	EmbeddingModel string `json:"embedding_model"`
	Backend        string `json:"backend"`
}
