// Package services builds and holds the dartrag component graph.
//
// Build wires every service from a config.Config: vector store, embeddings,
// index, news client, LLM client, summary and analysis generators, task
// store, pipelines and the janitor. The daemon and integration tests use it
// so both exercise the same wiring. NewRegistry wraps pre-built services.
package services
