// Package tasks stores indexing task records and document summaries.
//
// Every entry expires after the configured TTL. Backends:
//
//   - memory: expiring LRU, the default and the one tests use
//   - badger: embedded key-value store with per-entry TTL
//   - redis:  shared store for several daemon replicas
package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/fyrsmithlabs/dartrag/internal/summary"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the task can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var (
	// ErrNotFound is returned for unknown or expired entries.
	ErrNotFound = errors.New("not found")
	// ErrInvalidKey is returned for an empty id.
	ErrInvalidKey = errors.New("empty key")
)

// Task is one indexing run as seen by API clients.
type Task struct {
	ID             string           `json:"task_id"`
	DocumentID     string           `json:"document_id"`
	CorpName       string           `json:"corp_name,omitempty"`
	Status         Status           `json:"status"`
	Summary        *summary.Summary `json:"summary"`
	TotalChunks    *int             `json:"total_chunks"`
	DegradedChunks int              `json:"degraded_chunks,omitempty"`
	ProcessingTime *float64         `json:"processing_time"`
	ErrorMessage   string           `json:"error_message,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Store persists tasks and summaries. Implementations are safe for
// concurrent use.
type Store interface {
	SaveTask(ctx context.Context, t Task) error
	GetTask(ctx context.Context, id string) (Task, error)
	ListTasks(ctx context.Context) ([]Task, error)
	// DeleteTasksByDocument removes every task of a document and returns
	// how many were removed.
	DeleteTasksByDocument(ctx context.Context, documentID string) (int, error)

	SaveSummary(ctx context.Context, documentID string, s summary.Summary) error
	GetSummary(ctx context.Context, documentID string) (summary.Summary, error)
	DeleteSummary(ctx context.Context, documentID string) error

	Close() error
}

// Sweeper is implemented by stores that need periodic maintenance.
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// Counts aggregates tasks by status.
type Counts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
}

// CountByStatus tallies tasks.
func CountByStatus(ts []Task) Counts {
	var c Counts
	for _, t := range ts {
		switch t.Status {
		case StatusPending:
			c.Pending++
		case StatusProcessing:
			c.Processing++
		case StatusCompleted:
			c.Completed++
		case StatusFailed:
			c.Failed++
		}
	}
	c.Total = len(ts)
	return c
}
