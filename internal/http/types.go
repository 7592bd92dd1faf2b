package http

import (
	"time"

	"github.com/fyrsmithlabs/dartrag/internal/news"
	"github.com/fyrsmithlabs/dartrag/internal/tasks"
)

// User-facing messages.
const (
	MsgIndexStarted       = "인덱싱 작업이 시작되었습니다."
	MsgFileNotFound       = "파일을 찾을 수 없습니다: %s"
	MsgTaskNotFound       = "해당 작업을 찾을 수 없습니다."
	MsgSummaryNotFound    = "문서 요약을 찾을 수 없습니다. 먼저 문서를 인덱싱해주세요."
	MsgDocumentDeleted    = "문서 %s가 삭제되었습니다."
	MsgDocumentNotFound   = "문서를 찾을 수 없습니다."
	MsgDocumentNotIndexed = "문서를 찾을 수 없습니다. 먼저 문서를 인덱싱해주세요."
	MsgNoSearchResults    = "관련된 내용을 찾을 수 없습니다."
	MsgBatchTooLarge      = "한 번에 최대 %d개의 질문까지 처리할 수 있습니다."
	MsgQuestionTooShort   = "질문은 최소 5자 이상이어야 합니다."
	MsgNoAnswer           = "답변을 생성할 수 없습니다."
	MsgInvalidBody        = "잘못된 요청 본문입니다."
	MsgInvalidDocumentID  = "문서 ID가 올바르지 않습니다."
	MsgPathNotAllowed     = "허용되지 않은 파일 경로입니다: %s"
)

// previewRunes bounds chunk previews.
const previewRunes = 200

// minQuestionRunes is the shortest accepted question.
const minQuestionRunes = 5

// IndexRequest is the body of POST /api/v1/documents/index.
type IndexRequest struct {
	DocumentID string `json:"document_id" validate:"required"`
	CorpName   string `json:"corp_name" validate:"required"`
	FilePath   string `json:"file_path" validate:"required"`
}

// IndexResponse acknowledges a submitted indexing task.
type IndexResponse struct {
	TaskID     string       `json:"task_id"`
	DocumentID string       `json:"document_id"`
	Message    string       `json:"message"`
	Status     tasks.Status `json:"status"`
}

// MessageResponse carries a single message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ChunkPreview is one entry of GET /documents/:document_id/chunks.
type ChunkPreview struct {
	ChunkID        string            `json:"chunk_id"`
	Section        string            `json:"section"`
	ChunkType      string            `json:"chunk_type"`
	ContentPreview string            `json:"content_preview"`
	Metadata       map[string]string `json:"metadata"`
}

// ChunksResponse lists a document's chunks.
type ChunksResponse struct {
	DocumentID  string         `json:"document_id"`
	TotalChunks int            `json:"total_chunks"`
	Chunks      []ChunkPreview `json:"chunks"`
}

// StatsResponse combines index and task statistics.
type StatsResponse struct {
	TotalChunks     int    `json:"total_chunks"`
	Collection      string `json:"collection_name"`
	EmbeddingModel  string `json:"embedding_model"`
	Backend         string `json:"backend"`
	PendingTasks    int    `json:"pending_tasks"`
	ProcessingTasks int    `json:"processing_tasks"`
	CompletedTasks  int    `json:"completed_tasks"`
	FailedTasks     int    `json:"failed_tasks"`
	TotalTasks      int    `json:"total_tasks"`
}

// QueryRequest is the body of POST /api/v1/query.
type QueryRequest struct {
	DocumentID  string `json:"document_id" validate:"required"`
	Question    string `json:"question" validate:"required,min=5"`
	IncludeNews *bool  `json:"include_news"`
}

// AnalysisResult is the answer to one question.
type AnalysisResult struct {
	Answer         string      `json:"answer"`
	Confidence     float64     `json:"confidence_score"`
	RelevantChunks []string    `json:"relevant_chunks"`
	RelatedNews    []news.Item `json:"related_news"`
	AnalysisTime   float64     `json:"analysis_time"`
	NewsIncluded   bool        `json:"news_included"`
}

// QueryResponse is returned by POST /api/v1/query.
type QueryResponse struct {
	DocumentID string         `json:"document_id"`
	Question   string         `json:"question"`
	Result     AnalysisResult `json:"result"`
	Timestamp  time.Time      `json:"timestamp"`
}

// FollowUpRequest is the body of POST /query/:document_id/follow-up.
// previous_question may also be given as a query parameter.
type FollowUpRequest struct {
	PreviousQuestion string `json:"previous_question" query:"previous_question"`
}

// FollowUpResponse lists suggested questions.
type FollowUpResponse struct {
	DocumentID        string   `json:"document_id"`
	PreviousQuestion  string   `json:"previous_question"`
	FollowUpQuestions []string `json:"follow_up_questions"`
}

// SearchResult is one raw similarity hit.
type SearchResult struct {
	ChunkID    string            `json:"chunk_id"`
	Section    string            `json:"section"`
	ChunkType  string            `json:"chunk_type"`
	Content    string            `json:"content"`
	Similarity float32           `json:"similarity_score"`
	Metadata   map[string]string `json:"metadata"`
}

// SearchResponse is returned by GET /query/:document_id/search.
type SearchResponse struct {
	DocumentID string         `json:"document_id"`
	Query      string         `json:"query"`
	Results    []SearchResult `json:"results"`
	TotalFound int            `json:"total_found"`
	Message    string         `json:"message,omitempty"`
}

// BatchRequest is the body of POST /api/v1/query/batch.
type BatchRequest struct {
	DocumentID  string   `json:"document_id" validate:"required"`
	Questions   []string `json:"questions" validate:"required,min=1"`
	IncludeNews *bool    `json:"include_news"`
}

// BatchItem is the outcome of one question in a batch.
type BatchItem struct {
	Question string          `json:"question"`
	Success  bool            `json:"success"`
	Result   *AnalysisResult `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// BatchResponse is returned by POST /api/v1/query/batch.
type BatchResponse struct {
	DocumentID        string      `json:"document_id"`
	TotalQuestions    int         `json:"total_questions"`
	SuccessfulAnswers int         `json:"successful_answers"`
	Results           []BatchItem `json:"results"`
	Timestamp         time.Time   `json:"timestamp"`
}

// ComponentStatus is the health of one dependency.
type ComponentStatus struct {
	Status      string `json:"status"`
	TotalChunks *int   `json:"total_chunks,omitempty"`
	Error       string `json:"error,omitempty"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string          `json:"status"`
	API       string          `json:"api"`
	VectorDB  ComponentStatus `json:"vector_db"`
	NewsAPI   ComponentStatus `json:"news_api"`
	Uptime    float64         `json:"uptime_seconds"`
	Timestamp time.Time       `json:"timestamp"`
}

// InfoResponse is the response body for GET /api/v1/info.
type InfoResponse struct {
	Service  InfoService     `json:"service"`
	Features map[string]bool `json:"features"`
	Settings InfoSettings    `json:"settings"`
	Database InfoDatabase    `json:"database"`
}

// InfoService names the running service and its models.
type InfoService struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	Model          string `json:"model"`
	EmbeddingModel string `json:"embedding_model"`
}

// InfoSettings echoes tunables.
type InfoSettings struct {
	MaxSummaryLength int    `json:"max_summary_length"`
	ChunkSize        int    `json:"chunk_size"`
	ChunkOverlap     int    `json:"chunk_overlap"`
	SummaryTimeout   string `json:"summary_timeout"`
	MaxBatch         int    `json:"max_batch_questions"`
}

// InfoDatabase describes the vector collection.
type InfoDatabase struct {
	Collection     string `json:"collection_name"`
	Backend        string `json:"backend"`
	TotalChunks    int    `json:"total_documents"`
	PersistDir     string `json:"persist_directory,omitempty"`
	EmbeddingModel string `json:"embedding_model"`
}
