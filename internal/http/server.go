// Package http serves the dartrag REST API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/dartrag/internal/chunker"
	"github.com/fyrsmithlabs/dartrag/internal/config"
	"github.com/fyrsmithlabs/dartrag/internal/index"
	"github.com/fyrsmithlabs/dartrag/internal/logging"
	"github.com/fyrsmithlabs/dartrag/internal/pipeline"
	"github.com/fyrsmithlabs/dartrag/internal/tasks"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// DocumentIndex is the slice of the index service the API reads and deletes.
type DocumentIndex interface {
	GetByDocument(ctx context.Context, documentID string) ([]chunker.Chunk, error)
	Search(ctx context.Context, query string, opts index.SearchOptions) ([]index.Match, error)
	Delete(ctx context.Context, documentID string) error
	Stats(ctx context.Context) (index.Stats, error)
	Health(ctx context.Context) error
}

// TaskSubmitter starts background indexing.
type TaskSubmitter interface {
	Submit(ctx context.Context, req pipeline.IndexRequest) (tasks.Task, error)
}

// QueryRunner answers a question about an indexed document.
type QueryRunner interface {
	Run(ctx context.Context, req pipeline.QueryRequest) *pipeline.QueryState
}

// FollowUpSuggester proposes follow-up questions.
type FollowUpSuggester interface {
	FollowUps(ctx context.Context, question, analysis, companyName string) []string
}

// NewsStatus reports whether news search has credentials.
type NewsStatus interface {
	Configured() bool
}

// Deps are the services behind the handlers. Metrics is optional.
type Deps struct {
	Index     DocumentIndex
	Tasks     tasks.Store
	Runner    TaskSubmitter
	Querier   QueryRunner
	FollowUps FollowUpSuggester
	News      NewsStatus
	Metrics   http.Handler
}

func (d Deps) validate() error {
	var missing []string
	if d.Index == nil {
		missing = append(missing, "index")
	}
	if d.Tasks == nil {
		missing = append(missing, "tasks")
	}
	if d.Runner == nil {
		missing = append(missing, "runner")
	}
	if d.Querier == nil {
		missing = append(missing, "querier")
	}
	if d.FollowUps == nil {
		missing = append(missing, "follow-ups")
	}
	if d.News == nil {
		missing = append(missing, "news")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing dependencies: %v", missing)
	}
	return nil
}

// Config holds HTTP server configuration and the static parts of /api/v1/info.
type Config struct {
	Host           string
	Port           int
	Title          string
	Version        string
	Model          string
	EmbeddingModel string
	Collection     string
	PersistDir     string
	MaxBatch       int
	MaxSummaryLen  int
	ChunkSize      int
	ChunkOverlap   int
	SummaryTimeout time.Duration
	// DocumentRoot confines file_path in index requests when set.
	DocumentRoot string
}

// ConfigFrom derives the server config from the application config.
func ConfigFrom(c *config.Config) *Config {
	return &Config{
		Host:           c.Server.Host,
		Port:           c.Server.Port,
		Title:          c.Server.Title,
		Version:        c.Server.Version,
		Model:          c.OpenAI.Model,
		EmbeddingModel: c.OpenAI.EmbeddingModel,
		Collection:     c.VectorStore.Collection,
		PersistDir:     c.VectorStore.ChromemPath,
		MaxBatch:       c.Analysis.MaxBatch,
		MaxSummaryLen:  c.Summary.MaxLength,
		ChunkSize:      c.Chunker.ChunkSize,
		ChunkOverlap:   c.Chunker.ChunkOverlap,
		SummaryTimeout: c.Summary.Timeout.Duration(),
		DocumentRoot:   c.Server.DocumentRoot,
	}
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.Title == "" {
		c.Title = "공시 분석 AI API"
	}
	if c.MaxBatch <= 0 {
		c.MaxBatch = 10
	}
}

// Server provides the HTTP endpoints.
type Server struct {
	echo    *echo.Echo
	deps    Deps
	logger  *zap.Logger
	config  *Config
	started time.Time
}

// NewServer creates a new HTTP server.
func NewServer(deps Deps, logger *zap.Logger, cfg *Config) (*Server, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		return nil, errors.New("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.applyDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), id)))
		},
	}))
	e.Use(middleware.CORS())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			fields := append(logging.ContextFields(c.Request().Context()),
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			logger.Info("http request", fields...)
			return err
		}
	})
	e.Use(NewHTTPMetrics(logger).MetricsMiddleware())

	s := &Server{
		echo:    e,
		deps:    deps,
		logger:  logger,
		config:  cfg,
		started: time.Now(),
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/", s.handleRoot)
	s.echo.GET("/health", s.handleHealth)
	if s.deps.Metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.deps.Metrics))
	}

	v1 := s.echo.Group("/api/v1")
	v1.GET("/info", s.handleInfo)

	docs := v1.Group("/documents")
	docs.POST("/index", s.handleIndex)
	docs.GET("/index/:task_id/status", s.handleTaskStatus)
	docs.GET("/stats", s.handleStats)
	docs.GET("/:document_id/summary", s.handleSummary)
	docs.GET("/:document_id/chunks", s.handleChunks)
	docs.DELETE("/:document_id", s.handleDelete)

	query := v1.Group("/query")
	query.POST("", s.handleQuery)
	query.POST("/", s.handleQuery)
	query.POST("/batch", s.handleBatch)
	query.POST("/:document_id/follow-up", s.handleFollowUp)
	query.GET("/:document_id/search", s.handleSearch)
}

// ServeHTTP lets the server be mounted or exercised with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start starts the HTTP server and blocks until it stops. A graceful
// Shutdown makes it return nil.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// corpName reads the company name recorded on the first chunk.
func corpName(chunks []chunker.Chunk) string {
	if len(chunks) == 0 {
		return ""
	}
	return chunks[0].Metadata[chunker.MetaCorpName]
}
