package embeddings

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// queryCache holds query embeddings keyed by model and text.
type queryCache struct {
	cache *ristretto.Cache[string, []float32]
	ttl   time.Duration
}

func newQueryCache(maxCost int64, ttl time.Duration) (*queryCache, error) {
	if maxCost <= 0 {
		maxCost = 64 << 20
	}
	// One 1536-dim vector costs 6KiB; NumCounters follows ristretto's 10x guidance.
	counters := maxCost / (6 << 10) * 10
	if counters < 1000 {
		counters = 1000
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []float32]{
		NumCounters: counters,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating query cache: %w", err)
	}
	return &queryCache{cache: c, ttl: ttl}, nil
}

func cacheKey(model, text string) string {
	return model + "\x00" + text
}

func (q *queryCache) get(key string) ([]float32, bool) {
	return q.cache.Get(key)
}

// set stores vec and waits for the write buffer so the next get observes it.
func (q *queryCache) set(key string, vec []float32) {
	q.cache.SetWithTTL(key, vec, int64(len(vec))*4, q.ttl)
	q.cache.Wait()
}

func (q *queryCache) close() {
	q.cache.Close()
}
