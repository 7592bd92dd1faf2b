package embeddings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// fakeEmbedder returns [len(text), call] vectors and fails the calls listed in failOn.
type fakeEmbedder struct {
	mu         sync.Mutex
	calls      [][]string
	queryCalls int
	failOn     map[int]bool
	short      bool
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := len(f.calls)
	f.calls = append(f.calls, texts)
	if f.failOn[call] {
		return nil, errors.New("upstream 500")
	}
	n := len(texts)
	if f.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(len(texts[i])), float32(call)}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	if text == "fail" {
		return nil, errors.New("upstream 500")
	}
	return []float32{float32(len(text)), 1}, nil
}

func newTestService(t *testing.T, emb Embedder, mutate func(*Config)) *Service {
	t.Helper()
	cfg := DefaultConfig()
	cfg.BatchSize = 2
	cfg.Dimension = 4
	if mutate != nil {
		mutate(&cfg)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	svc, err := NewService(emb, cfg, zap.NewNop(), WithMetrics(newMetrics(mp.Meter(instrumentationName), nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestNewService_Validation(t *testing.T) {
	tests := []struct {
		name     string
		embedder Embedder
		mutate   func(*Config)
	}{
		{name: "nil embedder", embedder: nil},
		{name: "zero batch", embedder: &fakeEmbedder{}, mutate: func(c *Config) { c.BatchSize = 0 }},
		{name: "zero dimension", embedder: &fakeEmbedder{}, mutate: func(c *Config) { c.Dimension = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			_, err := NewService(tt.embedder, cfg, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestEmbedDocuments_Batches(t *testing.T) {
	emb := &fakeEmbedder{}
	svc := newTestService(t, emb, nil)

	res, err := svc.EmbedDocuments(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)

	require.Len(t, emb.calls, 3)
	assert.Equal(t, []string{"a", "bb"}, emb.calls[0])
	assert.Equal(t, []string{"eeeee"}, emb.calls[2])

	require.Len(t, res.Vectors, 5)
	assert.Equal(t, []float32{3, 1}, res.Vectors[2])
	assert.Equal(t, 0, res.DegradedCount)
	assert.Equal(t, []bool{false, false, false, false, false}, res.Degraded)
}

func TestEmbedDocuments_FailedBatchUsesZeroVectors(t *testing.T) {
	emb := &fakeEmbedder{failOn: map[int]bool{1: true}}
	svc := newTestService(t, emb, nil)

	res, err := svc.EmbedDocuments(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)

	require.Len(t, res.Vectors, 5)
	assert.Equal(t, 2, res.DegradedCount)
	assert.Equal(t, []bool{false, false, true, true, false}, res.Degraded)
	assert.Equal(t, make([]float32, 4), res.Vectors[2])
	assert.Equal(t, make([]float32, 4), res.Vectors[3])
	assert.Equal(t, []float32{5, 2}, res.Vectors[4])
}

func TestEmbedDocuments_ShortResponseIsDegraded(t *testing.T) {
	emb := &fakeEmbedder{short: true}
	svc := newTestService(t, emb, nil)

	res, err := svc.EmbedDocuments(context.Background(), []string{"a", "bb"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.DegradedCount)
	require.Len(t, res.Vectors, 2)
}

func TestEmbedDocuments_Cancelled(t *testing.T) {
	svc := newTestService(t, &fakeEmbedder{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.EmbedDocuments(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmbedDocuments_Empty(t *testing.T) {
	svc := newTestService(t, &fakeEmbedder{}, nil)
	res, err := svc.EmbedDocuments(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Vectors)
}

func TestEmbedQuery_Cache(t *testing.T) {
	emb := &fakeEmbedder{}
	svc := newTestService(t, emb, func(c *Config) { c.CacheTTL = time.Hour })
	ctx := context.Background()

	first, err := svc.EmbedQuery(ctx, "매출 추이")
	require.NoError(t, err)
	second, err := svc.EmbedQuery(ctx, "매출 추이")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, emb.queryCalls)
}

func TestEmbedQuery_NoCache(t *testing.T) {
	emb := &fakeEmbedder{}
	svc := newTestService(t, emb, func(c *Config) { c.CacheEnabled = false })
	ctx := context.Background()

	_, err := svc.EmbedQuery(ctx, "q")
	require.NoError(t, err)
	_, err = svc.EmbedQuery(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, 2, emb.queryCalls)
}

func TestEmbedQuery_Errors(t *testing.T) {
	svc := newTestService(t, &fakeEmbedder{}, nil)

	_, err := svc.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = svc.EmbedQuery(context.Background(), "fail")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding query")
}

func TestProviderConfig_Validate(t *testing.T) {
	assert.ErrorIs(t, ProviderConfig{APIKey: "k"}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, ProviderConfig{Model: "m"}.Validate(), ErrMissingAPIKey)
	assert.NoError(t, ProviderConfig{Model: "m", APIKey: "k"}.Validate())

	_, err := NewProvider(ProviderConfig{Model: "m"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Model: "text-embedding-3-small", APIKey: "sk-test", BaseURL: "http://127.0.0.1:1/v1"})
	require.NoError(t, err)
	assert.NotNil(t, p)
}
