package tasks

import (
	"context"
	"sort"
	"time"

	"github.com/fyrsmithlabs/dartrag/internal/summary"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore keeps entries in expiring LRUs. Contents are lost on restart.
type MemoryStore struct {
	tasks     *expirable.LRU[string, Task]
	summaries *expirable.LRU[string, summary.Summary]
}

// NewMemoryStore creates a store holding at most maxEntries tasks and as
// many summaries, each expiring after ttl.
func NewMemoryStore(maxEntries int, ttl time.Duration) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &MemoryStore{
		tasks:     expirable.NewLRU[string, Task](maxEntries, nil, ttl),
		summaries: expirable.NewLRU[string, summary.Summary](maxEntries, nil, ttl),
	}
}

func (m *MemoryStore) SaveTask(ctx context.Context, t Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.ID == "" {
		return ErrInvalidKey
	}
	m.tasks.Add(t.ID, t)
	return nil
}

func (m *MemoryStore) GetTask(ctx context.Context, id string) (Task, error) {
	if err := ctx.Err(); err != nil {
		return Task{}, err
	}
	t, ok := m.tasks.Get(id)
	if !ok {
		return Task{}, ErrNotFound
	}
	return t, nil
}

// ListTasks returns live tasks, oldest first.
func (m *MemoryStore) ListTasks(ctx context.Context) ([]Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := m.tasks.Values()
	sortByCreated(out)
	return out, nil
}

func (m *MemoryStore) DeleteTasksByDocument(ctx context.Context, documentID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n := 0
	for _, id := range m.tasks.Keys() {
		if t, ok := m.tasks.Peek(id); ok && t.DocumentID == documentID {
			m.tasks.Remove(id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) SaveSummary(ctx context.Context, documentID string, s summary.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if documentID == "" {
		return ErrInvalidKey
	}
	m.summaries.Add(documentID, s)
	return nil
}

func (m *MemoryStore) GetSummary(ctx context.Context, documentID string) (summary.Summary, error) {
	if err := ctx.Err(); err != nil {
		return summary.Summary{}, err
	}
	s, ok := m.summaries.Get(documentID)
	if !ok {
		return summary.Summary{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) DeleteSummary(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.summaries.Remove(documentID)
	return nil
}

func (m *MemoryStore) Close() error {
	m.tasks.Purge()
	m.summaries.Purge()
	return nil
}

func sortByCreated(ts []Task) {
	sort.SliceStable(ts, func(i, j int) bool {
		if ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
			return ts[i].ID < ts[j].ID
		}
		return ts[i].CreatedAt.Before(ts[j].CreatedAt)
	})
}
