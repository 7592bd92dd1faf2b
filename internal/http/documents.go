package http

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"unicode/utf8"

	"github.com/fyrsmithlabs/dartrag/internal/pipeline"
	"github.com/fyrsmithlabs/dartrag/internal/sanitize"
	"github.com/fyrsmithlabs/dartrag/internal/tasks"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// handleIndex validates the file and starts background indexing.
func (s *Server) handleIndex(c echo.Context) error {
	var req IndexRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, MsgInvalidBody)
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
	}
	if err := sanitize.DocumentID(req.DocumentID); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, MsgInvalidDocumentID)
	}
	path, err := sanitize.Path(req.FilePath, s.config.DocumentRoot)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf(MsgPathNotAllowed, req.FilePath))
	}
	if _, err := os.Stat(path); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf(MsgFileNotFound, req.FilePath))
	}

	task, err := s.deps.Runner.Submit(c.Request().Context(), pipeline.IndexRequest{
		DocumentID: req.DocumentID,
		CorpName:   req.CorpName,
		FilePath:   path,
	})
	if errors.Is(err, pipeline.ErrRunnerClosed) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "서버가 종료 중입니다.")
	}
	if err != nil {
		s.logger.Error("failed to submit indexing task", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("인덱싱 작업 생성 중 오류가 발생했습니다: %v", err))
	}

	return c.JSON(http.StatusAccepted, IndexResponse{
		TaskID:     task.ID,
		DocumentID: task.DocumentID,
		Message:    MsgIndexStarted,
		Status:     task.Status,
	})
}

func (s *Server) handleTaskStatus(c echo.Context) error {
	task, err := s.deps.Tasks.GetTask(c.Request().Context(), c.Param("task_id"))
	if errors.Is(err, tasks.ErrNotFound) || errors.Is(err, tasks.ErrInvalidKey) {
		return echo.NewHTTPError(http.StatusNotFound, MsgTaskNotFound)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("작업 조회 중 오류가 발생했습니다: %v", err))
	}
	return c.JSON(http.StatusOK, task)
}

func (s *Server) handleSummary(c echo.Context) error {
	sum, err := s.deps.Tasks.GetSummary(c.Request().Context(), c.Param("document_id"))
	if errors.Is(err, tasks.ErrNotFound) || errors.Is(err, tasks.ErrInvalidKey) {
		return echo.NewHTTPError(http.StatusNotFound, MsgSummaryNotFound)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("요약 조회 중 오류가 발생했습니다: %v", err))
	}
	return c.JSON(http.StatusOK, sum)
}

// handleDelete removes the document's vectors, task records and summary.
func (s *Server) handleDelete(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("document_id")

	if err := s.deps.Index.Delete(ctx, id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("문서 삭제 중 오류가 발생했습니다: %v", err))
	}
	removed, err := s.deps.Tasks.DeleteTasksByDocument(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("문서 삭제 중 오류가 발생했습니다: %v", err))
	}
	if err := s.deps.Tasks.DeleteSummary(ctx, id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("문서 삭제 중 오류가 발생했습니다: %v", err))
	}

	s.logger.Info("document deleted", zap.String("document_id", id), zap.Int("tasks", removed))
	return c.JSON(http.StatusOK, MessageResponse{Message: fmt.Sprintf(MsgDocumentDeleted, id)})
}

func (s *Server) handleChunks(c echo.Context) error {
	id := c.Param("document_id")
	chunks, err := s.deps.Index.GetByDocument(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("청크 조회 중 오류가 발생했습니다: %v", err))
	}
	if len(chunks) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, MsgDocumentNotFound)
	}

	previews := make([]ChunkPreview, len(chunks))
	for i, ch := range chunks {
		previews[i] = ChunkPreview{
			ChunkID:        ch.ID,
			Section:        ch.Section,
			ChunkType:      string(ch.Type),
			ContentPreview: preview(ch.Content),
			Metadata:       ch.Metadata,
		}
	}
	return c.JSON(http.StatusOK, ChunksResponse{DocumentID: id, TotalChunks: len(chunks), Chunks: previews})
}

func (s *Server) handleStats(c echo.Context) error {
	ctx := c.Request().Context()
	st, err := s.deps.Index.Stats(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("통계 조회 중 오류가 발생했습니다: %v", err))
	}
	all, err := s.deps.Tasks.ListTasks(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("통계 조회 중 오류가 발생했습니다: %v", err))
	}
	counts := tasks.CountByStatus(all)

	return c.JSON(http.StatusOK, StatsResponse{
		TotalChunks:     st.TotalChunks,
		Collection:      st.Collection,
		EmbeddingModel:  st.EmbeddingModel,
		Backend:         st.Backend,
		PendingTasks:    counts.Pending,
		ProcessingTasks: counts.Processing,
		CompletedTasks:  counts.Completed,
		FailedTasks:     counts.Failed,
		TotalTasks:      counts.Total,
	})
}

// preview truncates to previewRunes characters and marks the cut.
func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	return string([]rune(s)[:previewRunes]) + "..."
}
