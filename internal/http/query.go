package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fyrsmithlabs/dartrag/internal/index"
	"github.com/fyrsmithlabs/dartrag/internal/news"
	"github.com/fyrsmithlabs/dartrag/internal/pipeline"
	"github.com/labstack/echo/v4"
)

const (
	defaultSearchTopK = 5
	searchMinSim      = 0.3
)

// indexedCorpName returns the company name of an indexed document, or a 404
// with msg when the document has no chunks.
func (s *Server) indexedCorpName(ctx context.Context, documentID, msg string) (string, error) {
	chunks, err := s.deps.Index.GetByDocument(ctx, documentID)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("문서 조회 중 오류가 발생했습니다: %v", err))
	}
	if len(chunks) == 0 {
		return "", echo.NewHTTPError(http.StatusNotFound, msg)
	}
	return corpName(chunks), nil
}

func (s *Server) handleQuery(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, MsgInvalidBody)
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
	}

	ctx := c.Request().Context()
	corp, err := s.indexedCorpName(ctx, req.DocumentID, MsgDocumentNotIndexed)
	if err != nil {
		return err
	}

	result, msg := s.answer(ctx, req.DocumentID, corp, req.Question, req.IncludeNews)
	if msg != "" {
		return echo.NewHTTPError(http.StatusInternalServerError, msg)
	}
	return c.JSON(http.StatusOK, QueryResponse{
		DocumentID: req.DocumentID,
		Question:   req.Question,
		Result:     result,
		Timestamp:  time.Now(),
	})
}

// answer runs one question and returns the result or a failure message.
func (s *Server) answer(ctx context.Context, documentID, corp, question string, includeNews *bool) (AnalysisResult, string) {
	state := s.deps.Querier.Run(ctx, pipeline.QueryRequest{
		DocumentID:  documentID,
		CorpName:    corp,
		Question:    question,
		IncludeNews: includeNews,
	})
	if state.Failed() {
		return AnalysisResult{}, state.ErrorMessage
	}

	res := state.Result
	chunks := make([]string, len(res.Chunks))
	for i, m := range res.Chunks {
		chunks[i] = m.Chunk.Content
	}
	answer := res.Answer
	if answer == "" {
		answer = MsgNoAnswer
	}
	items := res.News
	if items == nil {
		items = []news.Item{}
	}
	return AnalysisResult{
		Answer:         answer,
		Confidence:     res.Confidence,
		RelevantChunks: chunks,
		RelatedNews:    items,
		AnalysisTime:   state.Times[pipeline.StageAnalyzing],
		NewsIncluded:   res.NewsIncluded,
	}, ""
}

func (s *Server) handleFollowUp(c echo.Context) error {
	var req FollowUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, MsgInvalidBody)
	}
	if req.PreviousQuestion == "" {
		req.PreviousQuestion = c.QueryParam("previous_question")
	}
	if strings.TrimSpace(req.PreviousQuestion) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "previous_question 필드는 필수입니다.")
	}

	ctx := c.Request().Context()
	id := c.Param("document_id")
	corp, err := s.indexedCorpName(ctx, id, MsgDocumentNotFound)
	if err != nil {
		return err
	}

	questions := s.deps.FollowUps.FollowUps(ctx, req.PreviousQuestion, "", corp)
	if questions == nil {
		questions = []string{}
	}
	return c.JSON(http.StatusOK, FollowUpResponse{
		DocumentID:        id,
		PreviousQuestion:  req.PreviousQuestion,
		FollowUpQuestions: questions,
	})
}

func (s *Server) handleSearch(c echo.Context) error {
	id := c.Param("document_id")
	query := c.QueryParam("query")
	if strings.TrimSpace(query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query 파라미터는 필수입니다.")
	}
	topK := defaultSearchTopK
	if err := echo.QueryParamsBinder(c).Int("top_k", &topK).BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "top_k 파라미터가 올바르지 않습니다.")
	}
	if topK <= 0 {
		topK = defaultSearchTopK
	}

	matches, err := s.deps.Index.Search(c.Request().Context(), query, index.SearchOptions{
		DocumentID:    id,
		TopK:          topK,
		MinSimilarity: searchMinSim,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("문서 검색 중 오류가 발생했습니다: %v", err))
	}

	resp := SearchResponse{DocumentID: id, Query: query, Results: make([]SearchResult, 0, len(matches))}
	for _, m := range matches {
		resp.Results = append(resp.Results, SearchResult{
			ChunkID:    m.Chunk.ID,
			Section:    m.Chunk.Section,
			ChunkType:  string(m.Chunk.Type),
			Content:    m.Chunk.Content,
			Similarity: m.Similarity,
			Metadata:   m.Chunk.Metadata,
		})
	}
	resp.TotalFound = len(resp.Results)
	if resp.TotalFound == 0 {
		resp.Message = MsgNoSearchResults
	}
	return c.JSON(http.StatusOK, resp)
}

// handleBatch answers questions one after another. A failed question is
// reported in its slot and does not stop the batch.
func (s *Server) handleBatch(c echo.Context) error {
	var req BatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, MsgInvalidBody)
	}
	if len(req.Questions) > s.config.MaxBatch {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf(MsgBatchTooLarge, s.config.MaxBatch))
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
	}

	ctx := c.Request().Context()
	corp, err := s.indexedCorpName(ctx, req.DocumentID, MsgDocumentNotFound)
	if err != nil {
		return err
	}

	resp := BatchResponse{
		DocumentID:     req.DocumentID,
		TotalQuestions: len(req.Questions),
		Results:        make([]BatchItem, 0, len(req.Questions)),
	}
	for _, q := range req.Questions {
		item := BatchItem{Question: q}
		switch {
		case utf8.RuneCountInString(q) < minQuestionRunes:
			item.Error = MsgQuestionTooShort
		default:
			result, msg := s.answer(ctx, req.DocumentID, corp, q, req.IncludeNews)
			if msg != "" {
				item.Error = msg
			} else {
				item.Success = true
				item.Result = &result
				resp.SuccessfulAnswers++
			}
		}
		resp.Results = append(resp.Results, item)
	}
	resp.Timestamp = time.Now()
	return c.JSON(http.StatusOK, resp)
}
