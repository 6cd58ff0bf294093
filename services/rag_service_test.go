package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kondrashov16/arkiv/models"
	"github.com/Kondrashov16/arkiv/store"
)

// fakeEmbedder maps exact texts to fixed vectors and falls back to a default
// vector for everything else. failAfter > 0 makes EmbedBatch fail on the
// n-th text, for exercising ingestion atomicity.
type fakeEmbedder struct {
	vectors   map[string][]float32
	fallback  []float32
	failAfter int
}

func (f *fakeEmbedder) Model() string { return "fake-embed" }

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return f.fallback, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for i, text := range texts {
		if f.failAfter > 0 && i+1 >= f.failAfter {
			return nil, errors.New("fake embedder failure")
		}
		v, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// fakeGateway records the payload it receives and returns a canned answer.
type fakeGateway struct {
	answer   string
	err      error
	messages []models.ChatMessage
	calls    int
}

func (f *fakeGateway) Complete(_ context.Context, messages []models.ChatMessage) (string, error) {
	f.calls++
	f.messages = messages
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func newTestRAGService(t *testing.T, embedder Embedder, gateway LLMGateway) (RAGService, *store.MemoryStore) {
	t.Helper()
	chunker, err := NewChunker("fixed", 400, 50)
	require.NoError(t, err)
	memStore := store.NewMemoryStore()
	svc := NewRAGService(chunker, embedder, gateway, NewContextAssembler(0), memStore, 5, 240, time.Minute)
	return svc, memStore
}

func TestIngestFileChunksAndIndexes(t *testing.T) {
	embedder := &fakeEmbedder{fallback: []float32{1, 2, 3}}
	gateway := &fakeGateway{answer: "unused"}
	svc, memStore := newTestRAGService(t, embedder, gateway)

	data := []byte(strings.Repeat("a", 1000))
	resp, err := svc.IngestFile(context.Background(), "doc.txt", data)
	require.NoError(t, err)

	assert.Equal(t, "doc.txt", resp.Filename)
	assert.Equal(t, 3, resp.ChunksAdded)
	assert.Equal(t, 3, resp.TotalVectorsInStore)

	results, err := memStore.Search(context.Background(), []float32{1, 2, 3}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	ids := map[int]bool{}
	for _, res := range results {
		assert.Equal(t, "doc.txt", res.Record.Chunk.DocumentName)
		ids[res.Record.Chunk.ChunkID] = true
	}
	assert.Equal(t, map[int]bool{0: true, 1: true, 2: true}, ids)
}

func TestIngestFileEmbeddingFailureLeavesStoreUntouched(t *testing.T) {
	embedder := &fakeEmbedder{fallback: []float32{1}, failAfter: 2}
	svc, memStore := newTestRAGService(t, embedder, &fakeGateway{})

	_, err := svc.IngestFile(context.Background(), "doc.txt", []byte(strings.Repeat("b", 1000)))
	require.Error(t, err)

	size, err := memStore.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, size)
}

func TestIngestFileUnsupportedFormat(t *testing.T) {
	embedder := &fakeEmbedder{fallback: []float32{1}}
	svc, memStore := newTestRAGService(t, embedder, &fakeGateway{})

	_, err := svc.IngestFile(context.Background(), "tool.exe", []byte{0x00})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnsupportedFormat)

	size, err := memStore.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, size)
}

func TestIngestFileEmptyText(t *testing.T) {
	embedder := &fakeEmbedder{fallback: []float32{1}}
	svc, memStore := newTestRAGService(t, embedder, &fakeGateway{})

	resp, err := svc.IngestFile(context.Background(), "empty.txt", []byte("   \n\t  "))
	require.NoError(t, err)
	assert.Equal(t, 0, resp.ChunksAdded)
	assert.Equal(t, 0, resp.TotalVectorsInStore)

	size, err := memStore.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, size)
}

func TestQueryReturnsRankedSources(t *testing.T) {
	embedder := &fakeEmbedder{
		vectors: map[string][]float32{
			"alpha": {0, 0},
			"beta":  {10, 10},
			"what is alpha?": {0.1, 0},
		},
		fallback: []float32{5, 5},
	}
	gateway := &fakeGateway{answer: "Alpha is the first letter."}
	svc, memStore := newTestRAGService(t, embedder, gateway)

	_, err := memStore.Add(context.Background(), "greek.txt", []string{"alpha"}, [][]float32{{0, 0}})
	require.NoError(t, err)
	_, err = memStore.Add(context.Background(), "other.txt", []string{"beta"}, [][]float32{{10, 10}})
	require.NoError(t, err)

	topK := 2
	resp, err := svc.Query(context.Background(), models.QueryRequest{
		QueryText: "what is alpha?",
		TopK:      topK,
	})
	require.NoError(t, err)

	assert.Equal(t, "Alpha is the first letter.", resp.LLMResponse)
	require.Len(t, resp.Sources, 2)
	assert.Equal(t, "greek.txt", resp.Sources[0].DocumentName)
	assert.Equal(t, 0, resp.Sources[0].ChunkID)
	assert.Equal(t, "alpha", resp.Sources[0].TextPreview)
	assert.Equal(t, "other.txt", resp.Sources[1].DocumentName)
	assert.LessOrEqual(t, resp.Sources[0].Score, resp.Sources[1].Score)

	// The retrieved text reaches the LLM through the system message.
	require.NotEmpty(t, gateway.messages)
	assert.Contains(t, gateway.messages[0].Content, "greek.txt")
	assert.Equal(t, "what is alpha?", gateway.messages[len(gateway.messages)-1].Content)
}

func TestQueryEmptyIndexStillCallsLLM(t *testing.T) {
	embedder := &fakeEmbedder{fallback: []float32{1, 1}}
	gateway := &fakeGateway{answer: "General knowledge answer."}
	svc, _ := newTestRAGService(t, embedder, gateway)

	resp, err := svc.Query(context.Background(), models.QueryRequest{QueryText: "anything?"})
	require.NoError(t, err)

	assert.Equal(t, "General knowledge answer.", resp.LLMResponse)
	assert.NotNil(t, resp.Sources)
	assert.Empty(t, resp.Sources)
	assert.Equal(t, 1, gateway.calls)
	assert.NotContains(t, gateway.messages[0].Content, "--- Context from Documents ---")
}

func TestQueryDefaultTopK(t *testing.T) {
	embedder := &fakeEmbedder{fallback: []float32{0}}
	gateway := &fakeGateway{answer: "ok"}
	svc, memStore := newTestRAGService(t, embedder, gateway)

	chunks := []string{"a", "b", "c", "d", "e", "f", "g"}
	vectors := make([][]float32, len(chunks))
	for i := range vectors {
		vectors[i] = []float32{float32(i)}
	}
	_, err := memStore.Add(context.Background(), "doc.txt", chunks, vectors)
	require.NoError(t, err)

	// No top_k in the request: the configured default of 5 applies.
	resp, err := svc.Query(context.Background(), models.QueryRequest{QueryText: "q"})
	require.NoError(t, err)
	assert.Len(t, resp.Sources, 5)
}

func TestQueryGatewayFailurePropagates(t *testing.T) {
	embedder := &fakeEmbedder{fallback: []float32{1}}
	gateway := &fakeGateway{err: models.ErrUpstream}
	svc, _ := newTestRAGService(t, embedder, gateway)

	_, err := svc.Query(context.Background(), models.QueryRequest{QueryText: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUpstream)
}

func TestQueryGroundsLLMOnFullChunkText(t *testing.T) {
	embedder := &fakeEmbedder{fallback: []float32{0}}
	gateway := &fakeGateway{answer: "ok"}
	chunker, err := NewChunker("fixed", 400, 50)
	require.NoError(t, err)
	memStore := store.NewMemoryStore()
	svc := NewRAGService(chunker, embedder, gateway, NewContextAssembler(0), memStore, 5, 10, time.Minute)

	// The marker sits well past the 10-rune preview bound; the model must
	// still see it.
	chunk := strings.Repeat("x", 40) + " the answer is forty-two"
	_, err = memStore.Add(context.Background(), "doc.txt", []string{chunk}, [][]float32{{0}})
	require.NoError(t, err)

	resp, err := svc.Query(context.Background(), models.QueryRequest{QueryText: "q"})
	require.NoError(t, err)

	require.Len(t, resp.Sources, 1)
	assert.Equal(t, strings.Repeat("x", 10)+"…", resp.Sources[0].TextPreview)
	require.NotEmpty(t, gateway.messages)
	assert.Contains(t, gateway.messages[0].Content, "the answer is forty-two")
}

func TestQueryPreviewTruncation(t *testing.T) {
	embedder := &fakeEmbedder{fallback: []float32{0}}
	gateway := &fakeGateway{answer: "ok"}
	chunker, err := NewChunker("fixed", 400, 50)
	require.NoError(t, err)
	memStore := store.NewMemoryStore()
	svc := NewRAGService(chunker, embedder, gateway, NewContextAssembler(0), memStore, 5, 10, time.Minute)

	long := strings.Repeat("x", 50)
	_, err = memStore.Add(context.Background(), "doc.txt", []string{long}, [][]float32{{0}})
	require.NoError(t, err)

	resp, err := svc.Query(context.Background(), models.QueryRequest{QueryText: "q"})
	require.NoError(t, err)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, strings.Repeat("x", 10)+"…", resp.Sources[0].TextPreview)
}

// deadlineEmbedder reports whether the contexts it receives carry a
// deadline.
type deadlineEmbedder struct {
	fakeEmbedder
	sawDeadline bool
}

func (d *deadlineEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if _, ok := ctx.Deadline(); ok {
		d.sawDeadline = true
	}
	return d.fakeEmbedder.Embed(ctx, text)
}

func (d *deadlineEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if _, ok := ctx.Deadline(); ok {
		d.sawDeadline = true
	}
	return d.fakeEmbedder.EmbedBatch(ctx, texts)
}

func TestEmbeddingCallsAreBoundedByTimeout(t *testing.T) {
	embedder := &deadlineEmbedder{fakeEmbedder: fakeEmbedder{fallback: []float32{1}}}
	svc, _ := newTestRAGService(t, embedder, &fakeGateway{answer: "ok"})

	_, err := svc.IngestFile(context.Background(), "doc.txt", []byte("some content"))
	require.NoError(t, err)
	assert.True(t, embedder.sawDeadline)

	embedder.sawDeadline = false
	_, err = svc.Query(context.Background(), models.QueryRequest{QueryText: "q"})
	require.NoError(t, err)
	assert.True(t, embedder.sawDeadline)
}

func TestResetClearsStore(t *testing.T) {
	embedder := &fakeEmbedder{fallback: []float32{1}}
	svc, memStore := newTestRAGService(t, embedder, &fakeGateway{})

	_, err := memStore.Add(context.Background(), "doc.txt", []string{"a", "b"}, [][]float32{{1}, {2}})
	require.NoError(t, err)

	resp, err := svc.Reset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, resp.TotalVectorsInStore)
	assert.Contains(t, resp.Message, "2 records cleared")

	size, err := memStore.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, size)
}

func TestListDocuments(t *testing.T) {
	embedder := &fakeEmbedder{fallback: []float32{1}}
	svc, memStore := newTestRAGService(t, embedder, &fakeGateway{})

	_, err := memStore.Add(context.Background(), "a.txt", []string{"a"}, [][]float32{{1}})
	require.NoError(t, err)
	_, err = memStore.Add(context.Background(), "b.md", []string{"b"}, [][]float32{{2}})
	require.NoError(t, err)

	resp, err := svc.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Documents, 2)
	assert.Equal(t, "a.txt", resp.Documents[0].Name)
	assert.Equal(t, "b.md", resp.Documents[1].Name)
}
