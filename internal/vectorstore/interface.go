package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Sentinel errors for vector store operations.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyRecords indicates an empty upsert.
	ErrEmptyRecords = errors.New("empty or nil records")

	// ErrDimensionMismatch is returned when a vector does not match the store dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrConnectionFailed indicates gRPC connection issues.
	ErrConnectionFailed = errors.New("failed to connect to Qdrant")

	// ErrInvalidCollectionName indicates collection name validation failure.
	ErrInvalidCollectionName = errors.New("invalid collection name")

	// ErrEmptyFilter is returned by Delete when no filter is given.
	ErrEmptyFilter = errors.New("delete requires a filter")
)

// Store is the interface for vector persistence.
//
// Implementations:
//   - ChromemStore: embedded chromem-go (default)
//   - QdrantStore: external Qdrant gRPC client
type Store interface {
	// Upsert writes records, replacing any with the same ID.
	Upsert(ctx context.Context, records []Record) error

	// Query returns up to k records nearest to vector, best first, restricted
	// to records whose metadata matches every entry in filter.
	Query(ctx context.Context, vector []float32, k int, filter Filter) ([]Match, error)

	// Get returns every record matching filter. Order is unspecified.
	Get(ctx context.Context, filter Filter) ([]Record, error)

	// Delete removes every record matching filter. An empty filter is rejected.
	Delete(ctx context.Context, filter Filter) error

	// Count returns the number of records in the collection.
	Count(ctx context.Context) (int, error)

	// Info describes the backend and collection.
	Info() Info

	// Health reports whether the backend is reachable.
	Health(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// collectionNamePattern allows lowercase letters, digits and underscores.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// ValidateCollectionName validates a collection name.
// Pattern: ^[a-z0-9_]{1,64}$
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidCollectionName)
	}
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: collection name must match pattern ^[a-z0-9_]{1,64}$, got %q", ErrInvalidCollectionName, name)
	}
	return nil
}

func validateRecords(records []Record, dimension int) error {
	if len(records) == 0 {
		return ErrEmptyRecords
	}
	for i, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record at index %d has an empty id", i)
		}
		if len(r.Embedding) != dimension {
			return fmt.Errorf("%w: record %q has %d dimensions, store expects %d",
				ErrDimensionMismatch, r.ID, len(r.Embedding), dimension)
		}
	}
	return nil
}
