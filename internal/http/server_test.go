package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fyrsmithlabs/dartrag/internal/analysis"
	"github.com/fyrsmithlabs/dartrag/internal/chunker"
	"github.com/fyrsmithlabs/dartrag/internal/index"
	"github.com/fyrsmithlabs/dartrag/internal/logging"
	"github.com/fyrsmithlabs/dartrag/internal/news"
	"github.com/fyrsmithlabs/dartrag/internal/pipeline"
	"github.com/fyrsmithlabs/dartrag/internal/summary"
	"github.com/fyrsmithlabs/dartrag/internal/tasks"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeIndex struct {
	chunks    map[string][]chunker.Chunk
	matches   []index.Match
	healthErr error
	deleted   []string
	lastOpts  index.SearchOptions
}

func (f *fakeIndex) GetByDocument(_ context.Context, id string) ([]chunker.Chunk, error) {
	return f.chunks[id], nil
}

func (f *fakeIndex) Search(_ context.Context, _ string, opts index.SearchOptions) ([]index.Match, error) {
	f.lastOpts = opts
	return f.matches, nil
}

func (f *fakeIndex) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.chunks, id)
	return nil
}

func (f *fakeIndex) Stats(context.Context) (index.Stats, error) {
	n := 0
	for _, cs := range f.chunks {
		n += len(cs)
	}
	return index.Stats{TotalChunks: n, Collection: "dart_documents", EmbeddingModel: "text-embedding-3-small", Backend: "chromem"}, nil
}

func (f *fakeIndex) Health(context.Context) error { return f.healthErr }

type fakeRunner struct {
	store     tasks.Store
	requestID string
}

func (f *fakeRunner) Submit(ctx context.Context, req pipeline.IndexRequest) (tasks.Task, error) {
	f.requestID = logging.RequestIDFromContext(ctx)
	t := tasks.Task{ID: "task-1", DocumentID: req.DocumentID, CorpName: req.CorpName, Status: tasks.StatusPending, CreatedAt: time.Now()}
	return t, f.store.SaveTask(ctx, t)
}

type fakeQuerier struct {
	mu   sync.Mutex
	seen []pipeline.QueryRequest
}

func (f *fakeQuerier) Run(_ context.Context, req pipeline.QueryRequest) *pipeline.QueryState {
	f.mu.Lock()
	f.seen = append(f.seen, req)
	f.mu.Unlock()

	state := &pipeline.QueryState{Request: req, Times: pipeline.Timings{pipeline.StageAnalyzing: 1.5}}
	if strings.Contains(req.Question, "실패") {
		state.Stage = pipeline.StageFailed
		state.ErrorMessage = "분석 중 오류: upstream"
		return state
	}
	state.Stage = pipeline.StageCompleted
	state.Result = analysis.Result{
		Answer:       "매출이 증가했습니다.",
		Confidence:   0.8,
		Chunks:       []index.Match{{Chunk: chunker.Chunk{Content: "매출 1조원"}}},
		News:         []news.Item{{Title: "실적 발표"}},
		NewsIncluded: true,
	}
	return state
}

type fakeFollowUps struct{ company string }

func (f *fakeFollowUps) FollowUps(_ context.Context, question, _, companyName string) []string {
	f.company = companyName
	return []string{question + " 1", question + " 2", question + " 3"}
}

type fakeNews struct{ configured bool }

func (f fakeNews) Configured() bool { return f.configured }

type testEnv struct {
	server  *Server
	logs    *logging.TestLogger
	runner  *fakeRunner
	index   *fakeIndex
	store   *tasks.MemoryStore
	querier *fakeQuerier
	follow  *fakeFollowUps
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	store := tasks.NewMemoryStore(100, time.Hour)
	env := &testEnv{
		index: &fakeIndex{chunks: map[string][]chunker.Chunk{
			"doc1": {
				{ID: "doc1_text_others_0", DocumentID: "doc1", Content: strings.Repeat("가", 250), Type: chunker.TypeText, Section: "others", Metadata: map[string]string{"corp_name": "삼성전자"}},
				{ID: "doc1_table_others_0", DocumentID: "doc1", Content: "| 매출 | 1조 |", Type: chunker.TypeTable, Section: "others", Metadata: map[string]string{"corp_name": "삼성전자"}},
			},
		}},
		store:   store,
		logs:    logging.NewTestLogger(),
		runner:  &fakeRunner{store: store},
		querier: &fakeQuerier{},
		follow:  &fakeFollowUps{},
	}
	s, err := NewServer(Deps{
		Index:     env.index,
		Tasks:     store,
		Runner:    env.runner,
		Querier:   env.querier,
		FollowUps: env.follow,
		News:      fakeNews{configured: true},
		Metrics:   http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
	}, env.logs.Underlying(), &Config{Title: "공시 분석 AI API", Version: "1.0.0", MaxBatch: 10, SummaryTimeout: time.Minute})
	require.NoError(t, err)
	env.server = s
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(data))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["message"]
}

func TestNewServer(t *testing.T) {
	env := setupTestServer(t)
	assert.Equal(t, 8000, env.server.config.Port)
	assert.Equal(t, "0.0.0.0", env.server.config.Host)

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(env.server.deps, nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("returns error when a dependency is missing", func(t *testing.T) {
		deps := env.server.deps
		deps.Querier = nil
		_, err := NewServer(deps, zap.NewNop(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "querier")
	})
}

func TestHandleIndex(t *testing.T) {
	env := setupTestServer(t)
	path := filepath.Join(t.TempDir(), "filing.txt")
	require.NoError(t, os.WriteFile(path, []byte("공시 본문"), 0o600))

	rec := env.do(t, http.MethodPost, "/api/v1/documents/index", IndexRequest{DocumentID: "doc2", CorpName: "LG전자", FilePath: path})
	require.Equal(t, http.StatusAccepted, rec.Code)
	resp := decode[IndexResponse](t, rec)
	assert.Equal(t, "task-1", resp.TaskID)
	assert.Equal(t, "doc2", resp.DocumentID)
	assert.Equal(t, MsgIndexStarted, resp.Message)
	assert.Equal(t, tasks.StatusPending, resp.Status)

	rec = env.do(t, http.MethodPost, "/api/v1/documents/index", IndexRequest{DocumentID: "doc2", CorpName: "LG전자", FilePath: "/missing.txt"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "파일을 찾을 수 없습니다: /missing.txt", errorMessage(t, rec))

	rec = env.do(t, http.MethodPost, "/api/v1/documents/index", map[string]string{"document_id": "doc2", "file_path": path})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "corp_name 필드는 필수입니다.", errorMessage(t, rec))
}

func TestRequestIDReachesHandlersAndLog(t *testing.T) {
	env := setupTestServer(t)
	path := filepath.Join(t.TempDir(), "filing.txt")
	require.NoError(t, os.WriteFile(path, []byte("공시 본문"), 0o600))

	data, err := json.Marshal(IndexRequest{DocumentID: "doc2", CorpName: "LG전자", FilePath: path})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/index", bytes.NewReader(data))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderXRequestID, "req-42")
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, "req-42", env.runner.requestID)
	env.logs.AssertField(t, "http request", "request.id", "req-42")
	env.logs.AssertField(t, "http request", "status", int64(http.StatusAccepted))
}

func TestHandleIndex_RejectsUnsafeInput(t *testing.T) {
	env := setupTestServer(t)
	root := t.TempDir()
	inside := filepath.Join(root, "filing.txt")
	require.NoError(t, os.WriteFile(inside, []byte("공시 본문"), 0o600))
	outside := filepath.Join(t.TempDir(), "other.txt")
	require.NoError(t, os.WriteFile(outside, []byte("공시 본문"), 0o600))
	env.server.config.DocumentRoot = root

	rec := env.do(t, http.MethodPost, "/api/v1/documents/index", IndexRequest{DocumentID: "../doc", CorpName: "LG전자", FilePath: inside})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, MsgInvalidDocumentID, errorMessage(t, rec))

	rec = env.do(t, http.MethodPost, "/api/v1/documents/index", IndexRequest{DocumentID: "doc2", CorpName: "LG전자", FilePath: outside})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, fmt.Sprintf(MsgPathNotAllowed, outside), errorMessage(t, rec))

	rec = env.do(t, http.MethodPost, "/api/v1/documents/index", IndexRequest{DocumentID: "doc2", CorpName: "LG전자", FilePath: inside})
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestHandleTaskStatus(t *testing.T) {
	env := setupTestServer(t)
	chunks := 3
	require.NoError(t, env.store.SaveTask(context.Background(), tasks.Task{
		ID: "t1", DocumentID: "doc1", Status: tasks.StatusCompleted, TotalChunks: &chunks,
	}))

	rec := env.do(t, http.MethodGet, "/api/v1/documents/index/t1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	task := decode[tasks.Task](t, rec)
	assert.Equal(t, tasks.StatusCompleted, task.Status)
	assert.Equal(t, 3, *task.TotalChunks)

	rec = env.do(t, http.MethodGet, "/api/v1/documents/index/nope/status", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, MsgTaskNotFound, errorMessage(t, rec))
}

func TestHandleSummary(t *testing.T) {
	env := setupTestServer(t)
	rec := env.do(t, http.MethodGet, "/api/v1/documents/doc1/summary", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, MsgSummaryNotFound, errorMessage(t, rec))

	require.NoError(t, env.store.SaveSummary(context.Background(), "doc1", summary.Summary{CompanyOverview: "개요"}))
	rec = env.do(t, http.MethodGet, "/api/v1/documents/doc1/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "개요", decode[summary.Summary](t, rec).CompanyOverview)
}

func TestHandleDelete(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	require.NoError(t, env.store.SaveTask(ctx, tasks.Task{ID: "t1", DocumentID: "doc1", Status: tasks.StatusCompleted}))
	require.NoError(t, env.store.SaveTask(ctx, tasks.Task{ID: "t2", DocumentID: "other", Status: tasks.StatusCompleted}))
	require.NoError(t, env.store.SaveSummary(ctx, "doc1", summary.Summary{}))

	rec := env.do(t, http.MethodDelete, "/api/v1/documents/doc1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "문서 doc1가 삭제되었습니다.", decode[MessageResponse](t, rec).Message)
	assert.Equal(t, []string{"doc1"}, env.index.deleted)

	_, err := env.store.GetTask(ctx, "t1")
	assert.ErrorIs(t, err, tasks.ErrNotFound)
	_, err = env.store.GetTask(ctx, "t2")
	assert.NoError(t, err)
	_, err = env.store.GetSummary(ctx, "doc1")
	assert.ErrorIs(t, err, tasks.ErrNotFound)
}

func TestHandleChunks(t *testing.T) {
	env := setupTestServer(t)
	rec := env.do(t, http.MethodGet, "/api/v1/documents/doc1/chunks", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[ChunksResponse](t, rec)
	assert.Equal(t, 2, resp.TotalChunks)
	assert.Equal(t, strings.Repeat("가", 200)+"...", resp.Chunks[0].ContentPreview)
	assert.Equal(t, "| 매출 | 1조 |", resp.Chunks[1].ContentPreview)
	assert.Equal(t, "table", resp.Chunks[1].ChunkType)
	assert.Equal(t, "삼성전자", resp.Chunks[0].Metadata["corp_name"])

	rec = env.do(t, http.MethodGet, "/api/v1/documents/nope/chunks", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, MsgDocumentNotFound, errorMessage(t, rec))
}

func TestHandleStats(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	for id, st := range map[string]tasks.Status{"a": tasks.StatusProcessing, "b": tasks.StatusCompleted, "c": tasks.StatusCompleted} {
		require.NoError(t, env.store.SaveTask(ctx, tasks.Task{ID: id, DocumentID: "doc1", Status: st}))
	}

	rec := env.do(t, http.MethodGet, "/api/v1/documents/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[StatsResponse](t, rec)
	assert.Equal(t, 2, resp.TotalChunks)
	assert.Equal(t, "dart_documents", resp.Collection)
	assert.Equal(t, 1, resp.ProcessingTasks)
	assert.Equal(t, 2, resp.CompletedTasks)
	assert.Equal(t, 3, resp.TotalTasks)
}

func TestHandleQuery(t *testing.T) {
	env := setupTestServer(t)

	rec := env.do(t, http.MethodPost, "/api/v1/query", QueryRequest{DocumentID: "doc1", Question: "매출 추이는 어떤가요?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[QueryResponse](t, rec)
	assert.Equal(t, "doc1", resp.DocumentID)
	assert.Equal(t, "매출이 증가했습니다.", resp.Result.Answer)
	assert.Equal(t, []string{"매출 1조원"}, resp.Result.RelevantChunks)
	assert.True(t, resp.Result.NewsIncluded)
	assert.InDelta(t, 1.5, resp.Result.AnalysisTime, 1e-9)
	require.Len(t, env.querier.seen, 1)
	assert.Equal(t, "삼성전자", env.querier.seen[0].CorpName)
	assert.Nil(t, env.querier.seen[0].IncludeNews)

	off := false
	rec = env.do(t, http.MethodPost, "/api/v1/query/", QueryRequest{DocumentID: "doc1", Question: "매출 추이는 어떤가요?", IncludeNews: &off})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.querier.seen[1].IncludeNews)
	assert.False(t, *env.querier.seen[1].IncludeNews)

	t.Run("short question", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/query", QueryRequest{DocumentID: "doc1", Question: "매출?"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "question 필드는 최소 5자 이상이어야 합니다.", errorMessage(t, rec))
	})

	t.Run("unknown document", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/query", QueryRequest{DocumentID: "nope", Question: "매출 추이는 어떤가요?"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, MsgDocumentNotIndexed, errorMessage(t, rec))
	})

	t.Run("analysis failure", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/query", QueryRequest{DocumentID: "doc1", Question: "실패하는 질문입니다"})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "분석 중 오류: upstream", errorMessage(t, rec))
	})
}

func TestHandleFollowUp(t *testing.T) {
	env := setupTestServer(t)

	rec := env.do(t, http.MethodPost, "/api/v1/query/doc1/follow-up", FollowUpRequest{PreviousQuestion: "매출은?"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[FollowUpResponse](t, rec)
	assert.Equal(t, []string{"매출은? 1", "매출은? 2", "매출은? 3"}, resp.FollowUpQuestions)
	assert.Equal(t, "삼성전자", env.follow.company)

	rec = env.do(t, http.MethodPost, "/api/v1/query/doc1/follow-up?previous_question=%EB%B6%80%EC%B1%84%EB%8A%94", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "부채는", decode[FollowUpResponse](t, rec).PreviousQuestion)

	rec = env.do(t, http.MethodPost, "/api/v1/query/doc1/follow-up", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/query/nope/follow-up", FollowUpRequest{PreviousQuestion: "매출은?"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSearch(t *testing.T) {
	env := setupTestServer(t)

	rec := env.do(t, http.MethodGet, "/api/v1/query/doc1/search?query=%EB%A7%A4%EC%B6%9C", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[SearchResponse](t, rec)
	assert.Empty(t, resp.Results)
	assert.Equal(t, MsgNoSearchResults, resp.Message)
	assert.Equal(t, index.SearchOptions{DocumentID: "doc1", TopK: 5, MinSimilarity: 0.3}, env.index.lastOpts)

	env.index.matches = []index.Match{{
		Chunk:      chunker.Chunk{ID: "doc1_text_others_0", Section: "others", Type: chunker.TypeText, Content: "매출 1조원"},
		Similarity: 0.9,
	}}
	rec = env.do(t, http.MethodGet, "/api/v1/query/doc1/search?query=%EB%A7%A4%EC%B6%9C&top_k=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[SearchResponse](t, rec)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 1, resp.TotalFound)
	assert.Empty(t, resp.Message)
	assert.InDelta(t, 0.9, resp.Results[0].Similarity, 1e-6)
	assert.Equal(t, 2, env.index.lastOpts.TopK)

	rec = env.do(t, http.MethodGet, "/api/v1/query/doc1/search", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/v1/query/doc1/search?query=x&top_k=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleBatch(t *testing.T) {
	env := setupTestServer(t)

	rec := env.do(t, http.MethodPost, "/api/v1/query/batch", BatchRequest{
		DocumentID: "doc1",
		Questions:  []string{"매출 추이는 어떤가요?", "짧음", "실패하는 질문입니다"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[BatchResponse](t, rec)
	assert.Equal(t, 3, resp.TotalQuestions)
	assert.Equal(t, 1, resp.SuccessfulAnswers)
	require.Len(t, resp.Results, 3)
	assert.True(t, resp.Results[0].Success)
	assert.Equal(t, "매출이 증가했습니다.", resp.Results[0].Result.Answer)
	assert.Equal(t, MsgQuestionTooShort, resp.Results[1].Error)
	assert.Equal(t, "분석 중 오류: upstream", resp.Results[2].Error)

	questions := make([]string, 11)
	for i := range questions {
		questions[i] = fmt.Sprintf("매출 추이는 어떤가요? %d", i)
	}

	env.querier.mu.Lock()
	before := len(env.querier.seen)
	env.querier.mu.Unlock()
	rec = env.do(t, http.MethodPost, "/api/v1/query/batch", BatchRequest{DocumentID: "doc1", Questions: questions[:10]})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	full := decode[BatchResponse](t, rec)
	assert.Equal(t, 10, full.TotalQuestions)
	assert.Equal(t, 10, full.SuccessfulAnswers)
	require.Len(t, full.Results, 10)
	for i, item := range full.Results {
		assert.Equal(t, questions[i], item.Question)
	}
	env.querier.mu.Lock()
	assert.Equal(t, 10, len(env.querier.seen)-before)
	env.querier.mu.Unlock()

	rec = env.do(t, http.MethodPost, "/api/v1/query/batch", BatchRequest{DocumentID: "doc1", Questions: questions})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "한 번에 최대 10개의 질문까지 처리할 수 있습니다.", errorMessage(t, rec))

	rec = env.do(t, http.MethodPost, "/api/v1/query/batch", BatchRequest{DocumentID: "nope", Questions: []string{"매출 추이는 어떤가요?"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	env := setupTestServer(t)

	rec := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "healthy", resp.VectorDB.Status)
	require.NotNil(t, resp.VectorDB.TotalChunks)
	assert.Equal(t, 2, *resp.VectorDB.TotalChunks)
	assert.Equal(t, "configured", resp.NewsAPI.Status)

	env.index.healthErr = errors.New("collection missing")
	rec = env.do(t, http.MethodGet, "/health", nil)
	resp = decode[HealthResponse](t, rec)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "collection missing", resp.VectorDB.Error)
}

func TestHandleHealth_NewsNotConfigured(t *testing.T) {
	env := setupTestServer(t)
	env.server.deps.News = fakeNews{}

	resp := decode[HealthResponse](t, env.do(t, http.MethodGet, "/health", nil))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "not_configured", resp.NewsAPI.Status)
}

func TestHandleInfoAndMetrics(t *testing.T) {
	env := setupTestServer(t)

	rec := env.do(t, http.MethodGet, "/api/v1/info", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[InfoResponse](t, rec)
	assert.Equal(t, "공시 분석 AI API", info.Service.Name)
	assert.Equal(t, "1.0.0", info.Service.Version)
	assert.Equal(t, "60초", info.Settings.SummaryTimeout)
	assert.Equal(t, 2, info.Database.TotalChunks)
	assert.True(t, info.Features["auto_news_detection"])

	rec = env.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "짧은 글", preview("짧은 글"))
	assert.Equal(t, strings.Repeat("a", 200), preview(strings.Repeat("a", 200)))
	assert.Equal(t, strings.Repeat("a", 200)+"...", preview(strings.Repeat("a", 201)))
}
