package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fyrsmithlabs/dartrag/internal/logging"
	"github.com/fyrsmithlabs/dartrag/internal/tasks"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrRunnerClosed is returned by Submit after Shutdown.
var ErrRunnerClosed = errors.New("task runner is shut down")

// IndexRunner executes one indexing workflow.
type IndexRunner interface {
	Run(ctx context.Context, req IndexRequest) *IndexingState
}

// TaskRunner runs indexing workflows in background goroutines and records
// their progress in a task store.
type TaskRunner struct {
	indexer IndexRunner
	store   tasks.Store
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewTaskRunner creates a runner over indexer and store.
func NewTaskRunner(indexer IndexRunner, store tasks.Store, logger *zap.Logger) (*TaskRunner, error) {
	if indexer == nil || store == nil {
		return nil, errors.New("indexer and task store are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskRunner{
		indexer: indexer,
		store:   store,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Submit records a pending task and starts the workflow in the background.
// The workflow outlives ctx; only Shutdown cancels it.
func (r *TaskRunner) Submit(ctx context.Context, req IndexRequest) (tasks.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return tasks.Task{}, ErrRunnerClosed
	}

	now := r.now()
	task := tasks.Task{
		ID:         r.newID(),
		DocumentID: req.DocumentID,
		CorpName:   req.CorpName,
		Status:     tasks.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.store.SaveTask(ctx, task); err != nil {
		return tasks.Task{}, err
	}

	// The workflow runs on the runner's context; only the correlation ids of
	// the submitting request carry over.
	runCtx := logging.WithRequestID(r.ctx, logging.RequestIDFromContext(ctx))
	runCtx = logging.WithTaskID(runCtx, task.ID)
	runCtx = logging.WithDocumentID(runCtx, task.DocumentID)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(runCtx, task, req)
	}()

	r.logger.Info("indexing task submitted", logging.ContextFields(runCtx)...)
	return task, nil
}

func (r *TaskRunner) run(ctx context.Context, task tasks.Task, req IndexRequest) {
	log := r.logger.With(logging.ContextFields(ctx)...)

	task.Status = tasks.StatusProcessing
	task.UpdatedAt = r.now()
	if err := r.store.SaveTask(ctx, task); err != nil {
		log.Error("failed to record task start", zap.Error(err))
	}

	state := r.indexer.Run(ctx, req)
	task.UpdatedAt = r.now()
	if state.Failed() {
		task.Status = tasks.StatusFailed
		task.ErrorMessage = state.ErrorMessage
	} else {
		total := len(state.Chunks)
		elapsed := state.Times.Total()
		task.Status = tasks.StatusCompleted
		task.Summary = state.Summary
		task.TotalChunks = &total
		task.DegradedChunks = state.DegradedChunks
		task.ProcessingTime = &elapsed
		if state.Summary != nil {
			if err := r.store.SaveSummary(ctx, req.DocumentID, *state.Summary); err != nil {
				log.Error("failed to save summary", zap.Error(err))
			}
		}
	}

	// The run context may already be cancelled by Shutdown; the final
	// status must still be written.
	if err := r.store.SaveTask(context.WithoutCancel(ctx), task); err != nil {
		log.Error("failed to record task result", zap.Error(err))
		return
	}
	log.Info("indexing task finished", zap.String("status", string(task.Status)))
}

// Wait blocks until every submitted task has finished.
func (r *TaskRunner) Wait() {
	r.wg.Wait()
}

// Shutdown stops accepting tasks, cancels running workflows and waits for
// them to record their outcome or for ctx to expire.
func (r *TaskRunner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
