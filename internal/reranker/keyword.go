package reranker

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// ErrNilContext is returned when a nil context is passed to Rerank.
var ErrNilContext = errors.New("context cannot be nil")

// Default blend weights for similarity and keyword overlap.
const (
	DefaultSimilarityWeight = 0.7
	DefaultKeywordWeight    = 0.3
)

// KeywordReranker blends vector similarity with query term overlap:
//
//	score = SimilarityWeight*similarity + KeywordWeight*overlap
//
// where overlap is the share of distinct query terms that appear in the
// document. Terms are whitespace-separated and lowercased, which suits Korean
// text where particles stay attached to words.
type KeywordReranker struct {
	similarityWeight float32
	keywordWeight    float32
}

// NewKeywordReranker creates a reranker with the 0.7/0.3 blend.
func NewKeywordReranker() *KeywordReranker {
	return &KeywordReranker{
		similarityWeight: DefaultSimilarityWeight,
		keywordWeight:    DefaultKeywordWeight,
	}
}

// NewKeywordRerankerWithWeights creates a reranker with custom weights.
func NewKeywordRerankerWithWeights(similarity, keyword float32) *KeywordReranker {
	return &KeywordReranker{similarityWeight: similarity, keywordWeight: keyword}
}

// Rerank scores every candidate and returns the topK best. Ties keep their
// input order.
func (r *KeywordReranker) Rerank(ctx context.Context, query string, docs []Document, topK int) ([]ScoredDocument, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if len(docs) == 0 {
		return []ScoredDocument{}, nil
	}
	if topK <= 0 || topK > len(docs) {
		topK = len(docs)
	}

	queryTerms := termSet(query)

	scored := make([]ScoredDocument, len(docs))
	for i, doc := range docs {
		overlap := Overlap(queryTerms, termSet(doc.Content))
		scored[i] = ScoredDocument{
			Document:      doc,
			RerankerScore: r.similarityWeight*doc.Score + r.keywordWeight*overlap,
			KeywordScore:  overlap,
			OriginalRank:  i,
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RerankerScore > scored[j].RerankerScore
	})

	return scored[:topK], nil
}

// Close is a no-op.
func (r *KeywordReranker) Close() error {
	return nil
}

// termSet lowercases text and returns its distinct whitespace-separated terms.
func termSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Overlap returns |query ∩ doc| / |query|, or 0 for an empty query.
func Overlap(query, doc map[string]struct{}) float32 {
	if len(query) == 0 {
		return 0
	}
	matched := 0
	for term := range query {
		if _, ok := doc[term]; ok {
			matched++
		}
	}
	return float32(matched) / float32(len(query))
}

var _ Reranker = (*KeywordReranker)(nil)
