package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/google/uuid"

	"github.com/Kondrashov16/arkiv/models"
)

// ChromaStore keeps the records in a Chroma collection instead of process
// memory, behind the same VectorStore contract. Selected with
// VECTOR_STORE=chroma; useful when the index should survive restarts.
type ChromaStore struct {
	client         chromago.Client
	collectionName string

	mu         sync.Mutex
	collection chromago.Collection
	dimension  int
}

// NewChromaStore connects to Chroma and gets or creates the named
// collection.
func NewChromaStore(ctx context.Context, client chromago.Client, collectionName string) (*ChromaStore, error) {
	collection, err := getOrCreateCollection(ctx, client, collectionName)
	if err != nil {
		return nil, err
	}
	return &ChromaStore{
		client:         client,
		collectionName: collectionName,
		collection:     collection,
	}, nil
}

func getOrCreateCollection(ctx context.Context, client chromago.Client, name string) (chromago.Collection, error) {
	collection, err := client.GetOrCreateCollection(
		ctx,
		name,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("description", "arkiv document chunks"),
				chromago.NewStringAttribute("created_by", "arkiv"),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create collection %q: %w", name, err)
	}
	return collection, nil
}

// Add implements VectorStore.
func (s *ChromaStore) Add(ctx context.Context, documentName string, chunks []string, vectors [][]float32) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, fmt.Errorf("chunks and embeddings length mismatch: %d != %d", len(chunks), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dimension
	if dim == 0 && len(vectors) > 0 {
		dim = len(vectors[0])
	}
	for i, emb := range vectors {
		if len(emb) != dim {
			return 0, fmt.Errorf("%w: embedding %d has length %d, index dimension is %d",
				models.ErrDimensionMismatch, i, len(emb), dim)
		}
	}

	// The whole document goes in one request so a failure cannot leave a
	// partial chunk set behind.
	if len(chunks) > 0 {
		uploadedAt := time.Now().UTC().Format(time.RFC3339)
		batchID := uuid.New().String()
		ids := make([]chromago.DocumentID, len(chunks))
		embs := make([]embeddings.Embedding, len(chunks))
		metas := make([]chromago.DocumentMetadata, len(chunks))
		for i := range chunks {
			ids[i] = chromago.DocumentID(fmt.Sprintf("%s-chunk%d", batchID, i))
			embs[i] = embeddings.NewEmbeddingFromFloat32(vectors[i])
			metas[i] = chromago.NewDocumentMetadata(
				chromago.NewStringAttribute("document_name", documentName),
				chromago.NewIntAttribute("chunk_id", int64(i)),
				chromago.NewStringAttribute("uploaded_at", uploadedAt),
			)
		}
		err := s.collection.Add(ctx,
			chromago.WithIDs(ids...),
			chromago.WithTexts(chunks...),
			chromago.WithEmbeddings(embs...),
			chromago.WithMetadatas(metas...),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to add %d chunks of %q to chroma: %w", len(chunks), documentName, err)
		}
		s.dimension = dim
	}

	count, err := s.collection.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count collection after add: %w", err)
	}
	return int(count), nil
}

// Search implements VectorStore.
func (s *ChromaStore) Search(ctx context.Context, query []float32, topK int) ([]SearchResult, error) {
	s.mu.Lock()
	collection := s.collection
	dim := s.dimension
	s.mu.Unlock()

	if topK <= 0 {
		return []SearchResult{}, nil
	}
	count, err := collection.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count collection: %w", err)
	}
	if count == 0 {
		return []SearchResult{}, nil
	}
	if dim != 0 && len(query) != dim {
		return nil, fmt.Errorf("%w: query has length %d, index dimension is %d",
			models.ErrDimensionMismatch, len(query), dim)
	}
	if topK > int(count) {
		topK = int(count)
	}

	results, err := collection.Query(ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(query)),
		chromago.WithNResults(topK),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chroma: %w", err)
	}

	documentGroups := results.GetDocumentsGroups()
	metadataGroups := results.GetMetadatasGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(documentGroups) == 0 {
		return []SearchResult{}, nil
	}

	out := make([]SearchResult, 0, len(documentGroups[0]))
	for i, doc := range documentGroups[0] {
		rec := Record{Chunk: models.Chunk{Text: doc.ContentString()}}
		if len(metadataGroups) > 0 && i < len(metadataGroups[0]) {
			meta := metadataToMap(metadataGroups[0][i])
			if name, ok := meta["document_name"].(string); ok {
				rec.Chunk.DocumentName = name
			}
			if id, ok := meta["chunk_id"].(float64); ok {
				rec.Chunk.ChunkID = int(id)
			}
		}
		var score float32
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			score = float32(distanceGroups[0][i])
		}
		out = append(out, SearchResult{Record: rec, Score: score})
	}
	// Chroma returns distance-ordered results; the sort is a no-op unless
	// the server changes that, and keeps the contract explicit.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score < out[j].Score })
	return out, nil
}

// Reset implements VectorStore. The collection is dropped and recreated.
func (s *ChromaStore) Reset(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count, err := s.collection.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count collection before reset: %w", err)
	}
	if err := s.client.DeleteCollection(ctx, s.collectionName); err != nil {
		return 0, fmt.Errorf("failed to delete collection %q: %w", s.collectionName, err)
	}
	collection, err := getOrCreateCollection(ctx, s.client, s.collectionName)
	if err != nil {
		return 0, err
	}
	s.collection = collection
	s.dimension = 0
	return int(count), nil
}

// Size implements VectorStore.
func (s *ChromaStore) Size(ctx context.Context) (int, error) {
	s.mu.Lock()
	collection := s.collection
	s.mu.Unlock()
	count, err := collection.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count collection: %w", err)
	}
	return int(count), nil
}

// Documents implements VectorStore. Document identity is reconstructed from
// chunk metadata; first-seen wins so the order follows record insertion.
func (s *ChromaStore) Documents(ctx context.Context) ([]models.Document, error) {
	s.mu.Lock()
	collection := s.collection
	s.mu.Unlock()

	results, err := collection.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get documents from chroma: %w", err)
	}

	seen := make(map[string]bool)
	docs := make([]models.Document, 0)
	for _, meta := range results.GetMetadatas() {
		m := metadataToMap(meta)
		name, ok := m["document_name"].(string)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		doc := models.Document{Name: name}
		if ts, ok := m["uploaded_at"].(string); ok {
			if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
				doc.UploadedAt = parsed
			}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// metadataToMap converts chroma metadata to a plain map. DocumentMetadata
// exposes no direct accessor for all values, so round-trip through JSON.
func metadataToMap(meta chromago.DocumentMetadata) map[string]interface{} {
	if meta == nil {
		return map[string]interface{}{}
	}
	jsonBytes, err := json.Marshal(meta)
	if err != nil {
		log.Printf("WARN: could not marshal chroma metadata: %v", err)
		return map[string]interface{}{}
	}
	var m map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &m); err != nil {
		log.Printf("WARN: could not unmarshal chroma metadata: %v", err)
		return map[string]interface{}{}
	}
	return m
}
