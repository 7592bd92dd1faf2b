package index

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fyrsmithlabs/dartrag/internal/chunker"
	"github.com/fyrsmithlabs/dartrag/internal/embeddings"
	"github.com/fyrsmithlabs/dartrag/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dim = 4

// keywordEmbedder maps 매출, 부채 and 위험 to their own axis plus a small
// shared component. Texts containing FAIL make the whole call fail.
type keywordEmbedder struct{}

func (keywordEmbedder) vector(text string) []float32 {
	v := []float32{0, 0, 0, 0.1}
	for i, kw := range []string{"매출", "부채", "위험"} {
		if strings.Contains(text, kw) {
			v[i] = 1
		}
	}
	return v
}

func (e keywordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.Contains(t, "FAIL") {
			return nil, errors.New("rate limited")
		}
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

func newTestService(t *testing.T) (*Service, vectorstore.Store) {
	t.Helper()
	cfg := embeddings.DefaultConfig()
	cfg.BatchSize = 2
	cfg.Dimension = dim
	cfg.CacheEnabled = false
	emb, err := embeddings.NewService(keywordEmbedder{}, cfg, nil)
	require.NoError(t, err)

	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
		Path:       t.TempDir(),
		Collection: "index_test",
		Dimension:  dim,
	}, nil, nil)
	require.NoError(t, err)

	svc, err := NewService(emb, store, nil, nil)
	require.NoError(t, err)
	return svc, store
}

func chunk(doc, id, content string) chunker.Chunk {
	return chunker.Chunk{
		ID:         doc + "_text_others_" + id,
		DocumentID: doc,
		Content:    content,
		Type:       chunker.TypeText,
		Section:    "others",
		Metadata:   map[string]string{chunker.MetaCorpName: "삼성전자"},
	}
}

func indexSample(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()
	_, err := svc.EmbedAndStore(ctx, []chunker.Chunk{
		chunk("d1", "0", "매출 증가"),
		chunk("d1", "1", "부채 감소"),
		chunk("d1", "2", "위험 요인"),
	})
	require.NoError(t, err)
	_, err = svc.EmbedAndStore(ctx, []chunker.Chunk{chunk("d2", "0", "매출 감소")})
	require.NoError(t, err)
}

func TestNewService_RequiresDeps(t *testing.T) {
	_, err := NewService(nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestEmbedAndStore(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.EmbedAndStore(ctx, nil)
	assert.ErrorIs(t, err, ErrNoChunks)

	res, err := svc.EmbedAndStore(ctx, []chunker.Chunk{chunk("d1", "0", "매출"), chunk("d1", "1", "부채")})
	require.NoError(t, err)
	assert.Equal(t, 0, res.DegradedCount)
	require.Len(t, res.Chunks, 2)
	assert.Equal(t, []float32{1, 0, 0, 0.1}, res.Chunks[0].Embedding)
	assert.Equal(t, "d1", res.Chunks[1].DocumentID)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestEmbedAndStore_Degraded(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.EmbedAndStore(ctx, []chunker.Chunk{
		chunk("d1", "0", "매출 FAIL"),
		chunk("d1", "1", "부채"),
		chunk("d1", "2", "위험"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.DegradedCount)
	assert.True(t, res.Chunks[0].Degraded)
	assert.True(t, res.Chunks[1].Degraded)
	assert.False(t, res.Chunks[2].Degraded)
	assert.Equal(t, make([]float32, dim), res.Chunks[0].Embedding)

	// Degraded chunks are still listed but never match a search.
	chunks, err := svc.GetByDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Len(t, chunks, 3)

	matches, err := svc.Search(ctx, "부채", SearchOptions{DocumentID: "d1", TopK: 5, MinSimilarity: 0.5})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSearch_DocumentFilterAndThreshold(t *testing.T) {
	svc, _ := newTestService(t)
	indexSample(t, svc)
	ctx := context.Background()

	matches, err := svc.Search(ctx, "매출", SearchOptions{DocumentID: "d1", TopK: 5, MinSimilarity: DefaultMinSimilarity})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "d1_text_others_0", matches[0].Chunk.ID)
	assert.Equal(t, "d1", matches[0].Chunk.DocumentID)
	assert.Equal(t, "삼성전자", matches[0].Chunk.Metadata[chunker.MetaCorpName])
	assert.GreaterOrEqual(t, matches[0].Similarity, float32(DefaultMinSimilarity))

	all, err := svc.Search(ctx, "매출", SearchOptions{TopK: 10, MinSimilarity: 0.8})
	require.NoError(t, err)
	assert.Len(t, all, 2, "both documents without a filter")

	loose, err := svc.Search(ctx, "매출", SearchOptions{DocumentID: "d1", TopK: 10, MinSimilarity: 0})
	require.NoError(t, err)
	assert.Len(t, loose, 3)
	for i := 1; i < len(loose); i++ {
		assert.GreaterOrEqual(t, loose[i-1].Similarity, loose[i].Similarity)
	}

	_, err = svc.Search(ctx, "  ", SearchOptions{})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearch_RaisingThresholdNeverAddsResults(t *testing.T) {
	svc, _ := newTestService(t)
	indexSample(t, svc)

	prev := 1 << 30
	for _, minSim := range []float32{0, 0.01, 0.3, 0.8, 0.99} {
		got, err := svc.Search(context.Background(), "매출", SearchOptions{DocumentID: "d1", TopK: 10, MinSimilarity: minSim})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(got), prev)
		for _, m := range got {
			assert.GreaterOrEqual(t, m.Similarity, minSim)
		}
		prev = len(got)
	}
}

func TestSearchWithRerank(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.EmbedAndStore(ctx, []chunker.Chunk{
		chunk("d1", "0", "매출 현황"),
		chunk("d1", "1", "매출 부채 비율 분석"),
		chunk("d1", "2", "위험"),
	})
	require.NoError(t, err)

	got, err := svc.SearchWithRerank(ctx, "매출 부채 비율", "d1", 10, 5)
	require.NoError(t, err)
	require.NotEmpty(t, got)

	assert.Equal(t, "d1_text_others_1", got[0].Chunk.ID)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}
	for _, m := range got {
		assert.GreaterOrEqual(t, m.Similarity, float32(RerankMinSimilarity))
		assert.GreaterOrEqual(t, m.Score, float32(0))
		assert.LessOrEqual(t, m.Score, float32(1.0001))
	}

	none, err := svc.SearchWithRerank(ctx, "매출", "missing", 10, 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func childChunk(doc string, i int, content, parentID, parentText string) chunker.Chunk {
	return chunker.Chunk{
		ID:         chunker.ChunkID(doc, chunker.TypeText, chunker.LevelChild, i),
		DocumentID: doc,
		Content:    content,
		Type:       chunker.TypeText,
		Section:    chunker.LevelChild,
		Metadata: map[string]string{
			chunker.MetaLevel:         chunker.LevelChild,
			chunker.MetaParentID:      parentID,
			chunker.MetaParentContent: parentText,
		},
	}
}

func TestSearch_WidensChildHitsToParent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first := "매출 성장. 매출 유지."
	second := "부채 증가."
	_, err := svc.EmbedAndStore(ctx, []chunker.Chunk{
		childChunk("d1", 0, "매출 성장.", "d1_text_parent_0", first),
		childChunk("d1", 1, "매출 유지.", "d1_text_parent_0", first),
		childChunk("d1", 2, "부채 증가.", "d1_text_parent_1", second),
	})
	require.NoError(t, err)

	got, err := svc.Search(ctx, "매출", SearchOptions{DocumentID: "d1", TopK: 10})
	require.NoError(t, err)
	require.Len(t, got, 2, "siblings under one parent must share a single slot")

	top := got[0]
	assert.Equal(t, "d1_text_parent_0", top.Chunk.ID)
	assert.Equal(t, first, top.Chunk.Content)
	assert.Equal(t, chunker.LevelParent, top.Chunk.Section)
	assert.Contains(t, []string{"d1_text_child_0", "d1_text_child_1"}, top.Chunk.Metadata[KeyMatchedChunk])
	assert.NotContains(t, top.Chunk.Metadata, chunker.MetaParentContent)
	assert.Equal(t, "d1_text_parent_1", got[1].Chunk.ID)

	reranked, err := svc.SearchWithRerank(ctx, "매출", "d1", 10, 5)
	require.NoError(t, err)
	require.Len(t, reranked, 1)
	assert.Equal(t, first, reranked[0].Chunk.Content)

	listed, err := svc.GetByDocument(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, listed, 3)
	for _, c := range listed {
		assert.NotContains(t, c.Metadata, chunker.MetaParentContent)
		assert.NotEmpty(t, c.Metadata[chunker.MetaParentID])
	}
}

func TestGetByDocument_OrderAndDelete(t *testing.T) {
	svc, _ := newTestService(t)
	indexSample(t, svc)
	ctx := context.Background()

	chunks, err := svc.GetByDocument(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "d1_text_others_0", chunks[0].ID)
	assert.Equal(t, "d1_text_others_1", chunks[1].ID)
	assert.Equal(t, "d1_text_others_2", chunks[2].ID)
	assert.Equal(t, chunker.TypeText, chunks[0].Type)
	assert.NotContains(t, chunks[0].Metadata, KeyOrdinal)

	_, err = svc.GetByDocument(ctx, "")
	assert.ErrorIs(t, err, ErrMissingDocumentID)

	require.NoError(t, svc.Delete(ctx, "d1"))
	chunks, err = svc.GetByDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	others, err := svc.GetByDocument(ctx, "d2")
	require.NoError(t, err)
	assert.Len(t, others, 1)

	assert.ErrorIs(t, svc.Delete(ctx, ""), ErrMissingDocumentID)
}

func TestStats(t *testing.T) {
	svc, _ := newTestService(t)
	indexSample(t, svc)

	st, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{
		TotalChunks:    4,
		Collection:     "index_test",
		EmbeddingModel: "text-embedding-3-small",
		Backend:        vectorstore.BackendChromem,
	}, st)
	assert.NoError(t, svc.Health(context.Background()))
}

func TestRecordRoundTrip(t *testing.T) {
	c := EmbeddedChunk{
		Chunk: chunker.Chunk{
			ID: "d_table_others_0", DocumentID: "d", Content: "표", Type: chunker.TypeTable,
			Section: "others", Page: 3,
			Metadata: map[string]string{chunker.MetaTableIndex: "0", KeyDocumentID: "spoofed"},
		},
		Embedding: []float32{1, 0, 0, 0},
		Degraded:  true,
	}
	r := toRecord(c, 7)
	assert.Equal(t, "d", r.Metadata[KeyDocumentID])
	assert.Equal(t, "7", r.Metadata[KeyOrdinal])
	assert.Equal(t, "true", r.Metadata[KeyDegraded])
	assert.Equal(t, "3", r.Metadata[KeyPage])

	back := fromRecord(r.ID, r.Content, r.Metadata)
	assert.Equal(t, c.Chunk.ID, back.ID)
	assert.Equal(t, "d", back.DocumentID)
	assert.Equal(t, chunker.TypeTable, back.Type)
	assert.Equal(t, 3, back.Page)
	assert.Equal(t, map[string]string{chunker.MetaTableIndex: "0"}, back.Metadata)
	assert.Equal(t, 7, ordinalOf(r.Metadata))
}
