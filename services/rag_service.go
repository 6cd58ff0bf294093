package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Kondrashov16/arkiv/models"
	"github.com/Kondrashov16/arkiv/store"
)

// RAGService exposes the core pipelines: ingestion (the only write path into
// the vector store) and retrieval-augmented query (the read path).
type RAGService interface {
	// IngestFile runs extract -> chunk -> embed -> index for one uploaded
	// file. The store is only touched after every embedding has succeeded;
	// a failure anywhere leaves it exactly as it was.
	IngestFile(ctx context.Context, filename string, data []byte) (*models.UploadResponse, error)

	// Query runs embed -> search -> assemble -> complete and returns the
	// answer with its sources. Any step failing aborts the whole query; no
	// partial answer or source list is returned.
	Query(ctx context.Context, req models.QueryRequest) (*models.QueryResponse, error)

	// Reset clears the vector store.
	Reset(ctx context.Context) (*models.ResetResponse, error)

	// ListDocuments reports the ingested document set.
	ListDocuments(ctx context.Context) (*models.DocumentsResponse, error)
}

type ragServiceImpl struct {
	chunker     Chunker
	embedder    Embedder
	gateway     LLMGateway
	assembler   *ContextAssembler
	vectorStore store.VectorStore

	defaultTopK int
	previewLen  int

	// upstreamTimeout bounds each embedding and LLM call; zero disables it.
	upstreamTimeout time.Duration
}

// NewRAGService wires the pipeline components together.
func NewRAGService(
	chunker Chunker,
	embedder Embedder,
	gateway LLMGateway,
	assembler *ContextAssembler,
	vectorStore store.VectorStore,
	defaultTopK int,
	previewLen int,
	upstreamTimeout time.Duration,
) RAGService {
	return &ragServiceImpl{
		chunker:         chunker,
		embedder:        embedder,
		gateway:         gateway,
		assembler:       assembler,
		vectorStore:     vectorStore,
		defaultTopK:     defaultTopK,
		previewLen:      previewLen,
		upstreamTimeout: upstreamTimeout,
	}
}

// boundedCtx derives a context carrying the upstream timeout, with a no-op
// cancel when the timeout is disabled.
func (r *ragServiceImpl) boundedCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.upstreamTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.upstreamTimeout)
}

// IngestFile implements RAGService.
func (r *ragServiceImpl) IngestFile(ctx context.Context, filename string, data []byte) (*models.UploadResponse, error) {
	log.Printf("SERVICE: Ingesting file %q (%d bytes)", filename, len(data))

	text, err := ExtractText(data, filename)
	if err != nil {
		return nil, fmt.Errorf("could not extract text from %q: %w", filename, err)
	}

	chunks, err := r.chunker.Split(text)
	if err != nil {
		return nil, fmt.Errorf("could not chunk %q: %w", filename, err)
	}
	if len(chunks) == 0 {
		total, err := r.vectorStore.Size(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not read store size: %w", err)
		}
		log.Printf("SERVICE: File %q produced no chunks, store untouched", filename)
		return &models.UploadResponse{
			Filename:            filename,
			Message:             "File processed, but no text chunks were generated.",
			ChunksAdded:         0,
			TotalVectorsInStore: total,
		}, nil
	}

	// All embeddings must succeed before the store is mutated.
	embedCtx, cancel := r.boundedCtx(ctx)
	defer cancel()
	vectors, err := r.embedder.EmbedBatch(embedCtx, chunks)
	if err != nil {
		return nil, fmt.Errorf("could not embed chunks of %q: %w", filename, err)
	}

	total, err := r.vectorStore.Add(ctx, filename, chunks, vectors)
	if err != nil {
		return nil, fmt.Errorf("could not index chunks of %q: %w", filename, err)
	}

	log.Printf("SERVICE: Added %d chunks from %q, store now holds %d vectors", len(chunks), filename, total)
	return &models.UploadResponse{
		Filename:            filename,
		Message:             "File processed and content added to vector store successfully.",
		ChunksAdded:         len(chunks),
		TotalVectorsInStore: total,
	}, nil
}

// Query implements RAGService.
func (r *ragServiceImpl) Query(ctx context.Context, req models.QueryRequest) (*models.QueryResponse, error) {
	log.Printf("SERVICE: Querying with %q", truncateRunes(req.QueryText, 80))

	embedCtx, embedCancel := r.boundedCtx(ctx)
	defer embedCancel()
	queryVec, err := r.embedder.Embed(embedCtx, req.QueryText)
	if err != nil {
		return nil, fmt.Errorf("could not embed query: %w", err)
	}

	topK := req.TopK
	if topK <= 0 {
		topK = r.defaultTopK
	}

	results, err := r.vectorStore.Search(ctx, queryVec, topK)
	if err != nil {
		return nil, fmt.Errorf("could not search vector store: %w", err)
	}

	// The model is grounded on the full chunk text; the truncated preview is
	// only the response projection.
	chunks := make([]models.Chunk, 0, len(results))
	sources := make([]models.Source, 0, len(results))
	for _, res := range results {
		chunks = append(chunks, res.Record.Chunk)
		sources = append(sources, models.Source{
			DocumentName: res.Record.Chunk.DocumentName,
			ChunkID:      res.Record.Chunk.ChunkID,
			TextPreview:  truncateRunes(res.Record.Chunk.Text, r.previewLen),
			Score:        res.Score,
		})
	}
	if len(sources) == 0 {
		// Empty index: the LLM still answers, just without grounding.
		log.Println("SERVICE: Vector store is empty, querying LLM without document context.")
	}

	messages := r.assembler.Assemble(req.QueryText, chunks, req.ChatHistory)

	llmCtx, llmCancel := r.boundedCtx(ctx)
	defer llmCancel()
	answer, err := r.gateway.Complete(llmCtx, messages)
	if err != nil {
		return nil, fmt.Errorf("could not generate LLM response: %w", err)
	}

	return &models.QueryResponse{LLMResponse: answer, Sources: sources}, nil
}

// Reset implements RAGService.
func (r *ragServiceImpl) Reset(ctx context.Context) (*models.ResetResponse, error) {
	cleared, err := r.vectorStore.Reset(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not reset vector store: %w", err)
	}
	total, err := r.vectorStore.Size(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not read store size after reset: %w", err)
	}
	log.Printf("SERVICE: Vector store reset, %d records cleared", cleared)
	return &models.ResetResponse{
		Message:             fmt.Sprintf("Vector store has been reset, %d records cleared.", cleared),
		TotalVectorsInStore: total,
	}, nil
}

// ListDocuments implements RAGService.
func (r *ragServiceImpl) ListDocuments(ctx context.Context) (*models.DocumentsResponse, error) {
	docs, err := r.vectorStore.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list documents: %w", err)
	}
	return &models.DocumentsResponse{Count: len(docs), Documents: docs}, nil
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
