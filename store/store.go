// Package store holds the vector index: (embedding, chunk) records with
// nearest-neighbour search over them.
package store

import (
	"context"

	"github.com/Kondrashov16/arkiv/models"
)

// Record is one stored (chunk, embedding) pair. The store owns its records;
// they are appended in batch by Add and only ever removed all together by
// Reset.
type Record struct {
	Chunk     models.Chunk
	Embedding []float32
}

// SearchResult pairs a record with its distance to the query. Lower score
// means more similar.
type SearchResult struct {
	Record Record
	Score  float32
}

// VectorStore stores embedded chunks and answers similarity queries.
//
// Implementations serialize Add and Reset against every other operation;
// Search may run concurrently with Search. Callers must not assume any
// locking beyond that, and must not rely on the store for deduplication:
// adding the same document name twice produces two independent chunk sets.
type VectorStore interface {
	// Add appends one record per chunk, assigning chunk ids 0..len-1 for
	// this call, and returns the new total record count. Every embedding
	// must match the dimension established by the first insertion;
	// otherwise Add fails with models.ErrDimensionMismatch and the store is
	// left untouched.
	Add(ctx context.Context, documentName string, chunks []string, embeddings [][]float32) (int, error)

	// Search returns the min(topK, size) records nearest to the query,
	// ascending by squared L2 distance, ties broken by insertion order.
	// An empty store yields an empty result, not an error.
	Search(ctx context.Context, query []float32, topK int) ([]SearchResult, error)

	// Reset removes every record and returns the count removed. Idempotent.
	Reset(ctx context.Context) (int, error)

	// Size reports the current record count.
	Size(ctx context.Context) (int, error)

	// Documents lists ingested documents in first-ingestion order.
	Documents(ctx context.Context) ([]models.Document, error)
}
