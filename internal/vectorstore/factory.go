package vectorstore

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/dartrag/internal/config"
	"github.com/fyrsmithlabs/dartrag/internal/sanitize"
	"go.uber.org/zap"
)

// NewStore creates the backend named by cfg.Provider:
//   - "chromem" (default): embedded ChromemStore, no external service
//   - "qdrant": QdrantStore, requires a running Qdrant server
func NewStore(ctx context.Context, cfg config.VectorStoreConfig, dimension int, logger *zap.Logger, metrics *Metrics) (Store, error) {
	if cfg.Collection != "" {
		cfg.Collection = sanitize.Identifier(cfg.Collection)
	}
	switch cfg.Provider {
	case BackendChromem, "":
		return NewChromemStore(ChromemConfig{
			Path:       cfg.ChromemPath,
			Compress:   cfg.ChromemCompress,
			Collection: cfg.Collection,
			Dimension:  dimension,
		}, logger, metrics)

	case BackendQdrant:
		return NewQdrantStore(ctx, QdrantConfig{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			Collection: cfg.Collection,
			Dimension:  dimension,
			UseTLS:     cfg.QdrantTLS,
		}, logger, metrics)

	default:
		return nil, fmt.Errorf("%w: unsupported vectorstore provider %q (supported: chromem, qdrant)", ErrInvalidConfig, cfg.Provider)
	}
}
