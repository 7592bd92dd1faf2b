// Package embeddings turns chunk text into vectors.
//
// Provider wraps the langchaingo OpenAI embedder. Service sits in front of any
// Embedder and adds fixed-size batching, a zero-vector fallback for failed
// batches, a ristretto cache for query embeddings, and OpenTelemetry metrics.
package embeddings
