package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	statusHealthy       = "healthy"
	statusUnhealthy     = "unhealthy"
	statusDegraded      = "degraded"
	statusConfigured    = "configured"
	statusNotConfigured = "not_configured"
)

// handleHealth reports the vector store and news API state. Any component
// that is not healthy or configured makes the service degraded.
func (s *Server) handleHealth(c echo.Context) error {
	ctx := c.Request().Context()
	resp := HealthResponse{
		Status:    statusHealthy,
		API:       statusHealthy,
		Uptime:    time.Since(s.started).Seconds(),
		Timestamp: time.Now(),
	}

	if err := s.deps.Index.Health(ctx); err != nil {
		resp.VectorDB = ComponentStatus{Status: statusUnhealthy, Error: err.Error()}
	} else if st, err := s.deps.Index.Stats(ctx); err != nil {
		resp.VectorDB = ComponentStatus{Status: statusUnhealthy, Error: err.Error()}
	} else {
		total := st.TotalChunks
		resp.VectorDB = ComponentStatus{Status: statusHealthy, TotalChunks: &total}
	}

	if s.deps.News.Configured() {
		resp.NewsAPI = ComponentStatus{Status: statusConfigured}
	} else {
		resp.NewsAPI = ComponentStatus{Status: statusNotConfigured}
	}

	if resp.VectorDB.Status != statusHealthy || resp.NewsAPI.Status != statusConfigured {
		resp.Status = statusDegraded
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleInfo(c echo.Context) error {
	st, err := s.deps.Index.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("API 정보 조회 중 오류: %v", err))
	}
	cfg := s.config
	return c.JSON(http.StatusOK, InfoResponse{
		Service: InfoService{
			Name:           cfg.Title,
			Version:        cfg.Version,
			Model:          cfg.Model,
			EmbeddingModel: cfg.EmbeddingModel,
		},
		Features: map[string]bool{
			"file_based_indexing":    true,
			"separated_workflows":    true,
			"auto_news_detection":    true,
			"progressive_disclosure": true,
		},
		Settings: InfoSettings{
			MaxSummaryLength: cfg.MaxSummaryLen,
			ChunkSize:        cfg.ChunkSize,
			ChunkOverlap:     cfg.ChunkOverlap,
			SummaryTimeout:   fmt.Sprintf("%d초", int(cfg.SummaryTimeout.Seconds())),
			MaxBatch:         cfg.MaxBatch,
		},
		Database: InfoDatabase{
			Collection:     st.Collection,
			Backend:        st.Backend,
			TotalChunks:    st.TotalChunks,
			PersistDir:     cfg.PersistDir,
			EmbeddingModel: st.EmbeddingModel,
		},
	})
}

// handleRoot lists the API groups.
func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"service":   s.config.Title,
		"version":   s.config.Version,
		"status":    "running",
		"timestamp": time.Now(),
		"endpoints": map[string]string{
			"documents": "/api/v1/documents - 파일 기반 인덱싱 및 요약",
			"query":     "/api/v1/query - 질의응답",
			"info":      "/api/v1/info - API 정보",
			"health":    "/health - 상태 확인",
			"metrics":   "/metrics - Prometheus 메트릭",
		},
	})
}
