package pipeline

import (
	"time"

	"github.com/fyrsmithlabs/dartrag/internal/analysis"
	"github.com/fyrsmithlabs/dartrag/internal/chunker"
	"github.com/fyrsmithlabs/dartrag/internal/summary"
)

// Stage is a step of a workflow.
type Stage string

const (
	StagePending     Stage = "pending"
	StageReading     Stage = "reading"
	StageChunking    Stage = "chunking"
	StageEmbedding   Stage = "embedding"
	StageSummarizing Stage = "summarizing"
	StageAnalyzing   Stage = "analyzing"
	StageCompleted   Stage = "completed"
	StageFailed      Stage = "failed"
)

// User-facing failure messages.
const (
	MsgNoFilePath      = "파일 경로가 제공되지 않았습니다."
	MsgFileNotFound    = "파일을 찾을 수 없습니다: %s"
	MsgFileUnreadable  = "파일을 읽을 수 없습니다: %s"
	MsgReadFailed      = "파일 읽기 중 오류: %v"
	MsgChunkingFailed  = "문서 청킹에 실패했습니다."
	MsgChunkingError   = "청킹 처리 중 오류: %v"
	MsgEmbeddingFailed = "임베딩 처리 중 오류: %v"
)

// IndexRequest names the filing to index.
type IndexRequest struct {
	DocumentID string `json:"document_id"`
	CorpName   string `json:"corp_name"`
	FilePath   string `json:"file_path"`
}

// Timings maps a stage to its elapsed seconds.
type Timings map[Stage]float64

// Total sums all stage timings.
func (t Timings) Total() float64 {
	var sum float64
	for _, v := range t {
		sum += v
	}
	return sum
}

// IndexingState is the record of one indexing run.
type IndexingState struct {
	Request        IndexRequest     `json:"request"`
	Content        string           `json:"-"`
	Chunks         []chunker.Chunk  `json:"-"`
	DegradedChunks int              `json:"degraded_chunks"`
	Summary        *summary.Summary `json:"summary,omitempty"`
	Stage          Stage            `json:"stage"`
	FailedStage    Stage            `json:"failed_stage,omitempty"`
	ErrorMessage   string           `json:"error_message,omitempty"`
	StartedAt      time.Time        `json:"started_at"`
	Times          Timings          `json:"processing_times"`
}

// Failed reports whether the run stopped with an error.
func (s *IndexingState) Failed() bool {
	return s.ErrorMessage != ""
}

func (s *IndexingState) fail(msg string) {
	s.FailedStage = s.Stage
	s.Stage = StageFailed
	s.ErrorMessage = msg
}

// QueryRequest is a question against one indexed document.
type QueryRequest struct {
	DocumentID string
	CorpName   string
	Question   string
	// IncludeNews overrides the keyword policy when set.
	IncludeNews *bool
}

// QueryState is the record of one question.
type QueryState struct {
	Request      QueryRequest
	IncludeNews  bool
	Result       analysis.Result
	Stage        Stage
	ErrorMessage string
	Times        Timings
}

// Failed reports whether the question could not be answered.
func (s *QueryState) Failed() bool {
	return s.ErrorMessage != ""
}
