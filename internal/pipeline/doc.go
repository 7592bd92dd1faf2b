// Package pipeline runs the two document workflows end to end.
//
// Indexer reads a filing, chunks it, embeds the chunks into the index and
// generates a summary. Querier answers a question against an indexed
// document. Neither returns raw errors: failures are recorded on the state
// record as a user-facing ErrorMessage together with the stage that failed.
//
// TaskRunner runs indexing in the background and mirrors progress into a
// tasks.Store so clients can poll for the result.
package pipeline
