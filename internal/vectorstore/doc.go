// Package vectorstore persists chunk vectors and answers nearest-neighbour
// queries.
//
// Two backends implement Store:
//   - ChromemStore: embedded chromem-go with a persistent directory (default)
//   - QdrantStore: external Qdrant over gRPC
//
// Vectors are computed by the caller; stores never embed text. Similarity is
// cosine similarity in [-1, 1], higher is closer. Filters are exact matches on
// string metadata and are applied inside the backend query, so a document
// filter never leaks chunks from other documents.
//
// # Usage
//
//	store, err := vectorstore.NewStore(cfg.VectorStore, cfg.Embeddings.Dimension, logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	err = store.Upsert(ctx, []vectorstore.Record{{
//	    ID:        "doc1_text_business_content_0",
//	    Content:   "...",
//	    Embedding: vec,
//	    Metadata:  map[string]string{"document_id": "doc1"},
//	}})
//
//	matches, err := store.Query(ctx, queryVec, 5, vectorstore.Filter{"document_id": "doc1"})
package vectorstore
