package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/dartrag/internal/summary"
	"github.com/redis/go-redis/v9"
)

const (
	redisPrefix        = "dartrag:"
	redisTaskPrefix    = redisPrefix + "task:"
	redisSummaryPrefix = redisPrefix + "summary:"
	redisScanCount     = 200
)

// RedisConfig configures RedisStore.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisStore keeps entries in redis with SET ... EX.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects and pings redis.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return &RedisStore{client: client, ttl: cfg.TTL}, nil
}

func (r *RedisStore) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

func (r *RedisStore) get(ctx context.Context, key string, v any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (r *RedisStore) SaveTask(ctx context.Context, t Task) error {
	if t.ID == "" {
		return ErrInvalidKey
	}
	if err := r.set(ctx, redisTaskPrefix+t.ID, t); err != nil {
		return fmt.Errorf("saving task %s: %w", t.ID, err)
	}
	return nil
}

func (r *RedisStore) GetTask(ctx context.Context, id string) (Task, error) {
	var t Task
	if err := r.get(ctx, redisTaskPrefix+id, &t); err != nil {
		return Task{}, err
	}
	return t, nil
}

func (r *RedisStore) ListTasks(ctx context.Context) ([]Task, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, redisTaskPrefix+"*", redisScanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning tasks: %w", err)
	}
	if len(keys) == 0 {
		return []Task{}, nil
	}

	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	out := make([]Task, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			// Expired between SCAN and MGET.
			continue
		}
		var t Task
		if err := json.Unmarshal([]byte(s), &t); err != nil {
			return nil, fmt.Errorf("decoding task: %w", err)
		}
		out = append(out, t)
	}
	sortByCreated(out)
	return out, nil
}

func (r *RedisStore) DeleteTasksByDocument(ctx context.Context, documentID string) (int, error) {
	ts, err := r.ListTasks(ctx)
	if err != nil {
		return 0, err
	}
	var keys []string
	for _, t := range ts {
		if t.DocumentID == documentID {
			keys = append(keys, redisTaskPrefix+t.ID)
		}
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("deleting tasks of %s: %w", documentID, err)
	}
	return int(n), nil
}

func (r *RedisStore) SaveSummary(ctx context.Context, documentID string, s summary.Summary) error {
	if documentID == "" {
		return ErrInvalidKey
	}
	if err := r.set(ctx, redisSummaryPrefix+documentID, s); err != nil {
		return fmt.Errorf("saving summary %s: %w", documentID, err)
	}
	return nil
}

func (r *RedisStore) GetSummary(ctx context.Context, documentID string) (summary.Summary, error) {
	var s summary.Summary
	if err := r.get(ctx, redisSummaryPrefix+documentID, &s); err != nil {
		return summary.Summary{}, err
	}
	return s, nil
}

func (r *RedisStore) DeleteSummary(ctx context.Context, documentID string) error {
	return r.client.Del(ctx, redisSummaryPrefix+documentID).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
