package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fyrsmithlabs/dartrag/internal/summary"
	"go.uber.org/zap"
)

const (
	badgerTaskPrefix    = "task/"
	badgerSummaryPrefix = "summary/"
	gcDiscardRatio      = 0.5
)

// BadgerConfig configures BadgerStore. An empty Path opens an in-memory
// database.
type BadgerConfig struct {
	Path string
	TTL  time.Duration
}

// BadgerStore persists entries in an embedded badger database using
// per-entry TTLs.
type BadgerStore struct {
	db     *badger.DB
	ttl    time.Duration
	logger *zap.Logger
}

// NewBadgerStore opens or creates the database.
func NewBadgerStore(cfg BadgerConfig, logger *zap.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var opts badger.Options
	if cfg.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("creating badger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	db, err := badger.Open(opts.WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("opening badger at %q: %w", cfg.Path, err)
	}
	return &BadgerStore{db: db, ttl: cfg.TTL, logger: logger}, nil
}

func (b *BadgerStore) set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), data)
		if b.ttl > 0 {
			e = e.WithTTL(b.ttl)
		}
		return txn.SetEntry(e)
	})
}

func (b *BadgerStore) get(key string, v any) error {
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}

func (b *BadgerStore) SaveTask(ctx context.Context, t Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.ID == "" {
		return ErrInvalidKey
	}
	if err := b.set(badgerTaskPrefix+t.ID, t); err != nil {
		return fmt.Errorf("saving task %s: %w", t.ID, err)
	}
	return nil
}

func (b *BadgerStore) GetTask(ctx context.Context, id string) (Task, error) {
	if err := ctx.Err(); err != nil {
		return Task{}, err
	}
	var t Task
	if err := b.get(badgerTaskPrefix+id, &t); err != nil {
		return Task{}, err
	}
	return t, nil
}

func (b *BadgerStore) ListTasks(ctx context.Context) ([]Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Task
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(badgerTaskPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var t Task
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &t)
			}); err != nil {
				return err
			}
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	sortByCreated(out)
	return out, nil
}

func (b *BadgerStore) DeleteTasksByDocument(ctx context.Context, documentID string) (int, error) {
	ts, err := b.ListTasks(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	err = b.db.Update(func(txn *badger.Txn) error {
		for _, t := range ts {
			if t.DocumentID != documentID {
				continue
			}
			if err := txn.Delete([]byte(badgerTaskPrefix + t.ID)); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("deleting tasks of %s: %w", documentID, err)
	}
	return n, nil
}

func (b *BadgerStore) SaveSummary(ctx context.Context, documentID string, s summary.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if documentID == "" {
		return ErrInvalidKey
	}
	if err := b.set(badgerSummaryPrefix+documentID, s); err != nil {
		return fmt.Errorf("saving summary %s: %w", documentID, err)
	}
	return nil
}

func (b *BadgerStore) GetSummary(ctx context.Context, documentID string) (summary.Summary, error) {
	if err := ctx.Err(); err != nil {
		return summary.Summary{}, err
	}
	var s summary.Summary
	if err := b.get(badgerSummaryPrefix+documentID, &s); err != nil {
		return summary.Summary{}, err
	}
	return s, nil
}

func (b *BadgerStore) DeleteSummary(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(badgerSummaryPrefix + documentID))
	})
}

// Sweep reclaims value log space left by expired and deleted entries.
func (b *BadgerStore) Sweep(ctx context.Context) error {
	for ctx.Err() == nil {
		err := b.db.RunValueLogGC(gcDiscardRatio)
		switch {
		case err == nil:
			continue
		case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrGCInMemoryMode):
			return nil
		default:
			return fmt.Errorf("badger value log gc: %w", err)
		}
	}
	return ctx.Err()
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}
