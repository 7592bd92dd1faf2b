// Package reranker reorders vector search candidates by query relevance.
package reranker

import (
	"context"
)

// Document is a search candidate.
type Document struct {
	ID      string  // chunk id
	Content string  // text compared against the query
	Score   float32 // vector similarity from the first-stage search
}

// ScoredDocument is a candidate with its reranked score.
type ScoredDocument struct {
	Document
	RerankerScore float32 // final blended score
	KeywordScore  float32 // query term overlap in [0, 1]
	OriginalRank  int     // position in the input, 0-indexed
}

// Reranker reorders candidates.
type Reranker interface {
	// Rerank scores docs against query and returns the best topK, highest
	// RerankerScore first. topK <= 0 returns every document.
	Rerank(ctx context.Context, query string, docs []Document, topK int) ([]ScoredDocument, error)

	// Close releases any resources.
	Close() error
}
