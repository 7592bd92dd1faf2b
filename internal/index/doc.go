// Package index embeds chunks, stores them and answers document-scoped
// similarity searches.
//
// Service composes the embeddings batching service, a vectorstore.Store and
// the keyword reranker. Chunk fields travel as string metadata on the vector
// record:
//
//	document_id, chunk_type, section, page, chunk_ordinal, degraded
//
// plus any metadata the chunk already carried (corp_name, table_index, ...).
package index
