package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Kondrashov16/arkiv/models"
)

// MemoryStore is the default backend: a brute-force squared-L2 scan over
// in-process slices. The corpus is expected to stay small enough that an
// exact scan beats the bookkeeping of an ANN structure.
//
// A single RWMutex covers the record collection. The write lock is held only
// for the Add/Reset body itself, never across extraction, embedding or LLM
// calls; those happen before the caller touches the store.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	records   []Record
	documents []models.Document
	now       func() time.Time
}

// NewMemoryStore creates an empty in-memory store. The dimension is fixed by
// the first Add.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// Add implements VectorStore.
func (s *MemoryStore) Add(_ context.Context, documentName string, chunks []string, embeddings [][]float32) (int, error) {
	if len(chunks) != len(embeddings) {
		return 0, fmt.Errorf("chunks and embeddings length mismatch: %d != %d", len(chunks), len(embeddings))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dimension
	if dim == 0 && len(embeddings) > 0 {
		dim = len(embeddings[0])
	}
	// Validate the whole batch before appending anything: Add is
	// all-or-nothing.
	for i, emb := range embeddings {
		if len(emb) != dim {
			return 0, fmt.Errorf("%w: embedding %d has length %d, index dimension is %d",
				models.ErrDimensionMismatch, i, len(emb), dim)
		}
	}

	if len(chunks) > 0 {
		s.dimension = dim
		for i, text := range chunks {
			s.records = append(s.records, Record{
				Chunk:     models.Chunk{DocumentName: documentName, ChunkID: i, Text: text},
				Embedding: embeddings[i],
			})
		}
		s.documents = append(s.documents, models.Document{Name: documentName, UploadedAt: s.now()})
	}
	return len(s.records), nil
}

// Search implements VectorStore.
func (s *MemoryStore) Search(_ context.Context, query []float32, topK int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 || topK <= 0 {
		return []SearchResult{}, nil
	}
	if s.dimension != 0 && len(query) != s.dimension {
		return nil, fmt.Errorf("%w: query has length %d, index dimension is %d",
			models.ErrDimensionMismatch, len(query), s.dimension)
	}

	results := make([]SearchResult, len(s.records))
	for i, rec := range s.records {
		results[i] = SearchResult{Record: rec, Score: squaredL2(rec.Embedding, query)}
	}
	// Stable sort keeps insertion order for equal distances.
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score < results[j].Score })

	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

// Reset implements VectorStore.
func (s *MemoryStore) Reset(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cleared := len(s.records)
	s.records = nil
	s.documents = nil
	s.dimension = 0
	return cleared, nil
}

// Size implements VectorStore.
func (s *MemoryStore) Size(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Documents implements VectorStore.
func (s *MemoryStore) Documents(_ context.Context) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]models.Document, len(s.documents))
	copy(docs, s.documents)
	return docs, nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
