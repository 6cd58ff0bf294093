package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"google.golang.org/genai"

	"github.com/Kondrashov16/arkiv/models"
)

// Embedder maps text to a fixed-dimensional vector. The model is fixed for
// the process lifetime; changing it without re-embedding existing chunks
// leaves the index inconsistent, which is the operator's responsibility.
type Embedder interface {
	// Embed vectorizes a single string.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch vectorizes texts in input order with uniform
	// dimensionality. It is atomic: on any failure no partial result is
	// returned.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Model reports the configured model identifier.
	Model() string
}

// OllamaEmbedder calls a local Ollama instance's embeddings API.
type OllamaEmbedder struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

// NewOllamaEmbedder creates an Ollama-backed embedder.
func NewOllamaEmbedder(client *http.Client, baseURL, model string) *OllamaEmbedder {
	return &OllamaEmbedder{httpClient: client, baseURL: baseURL, model: model}
}

func (e *OllamaEmbedder) Model() string { return e.model }

// Embed implements Embedder.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(models.OllamaEmbedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal ollama request: %v", models.ErrEmbeddingFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create ollama http request: %v", models.ErrEmbeddingFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: ollama embedding call: %v", models.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: failed to call ollama embedding api: %v", models.ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: ollama api returned status %d: %s",
			models.ErrEmbeddingFailed, resp.StatusCode, string(bodyBytes))
	}

	var ollamaResp models.OllamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode ollama response: %v", models.ErrEmbeddingFailed, err)
	}
	if len(ollamaResp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: ollama returned an empty embedding", models.ErrEmbeddingFailed)
	}
	return ollamaResp.Embedding, nil
}

// EmbedBatch implements Embedder. Ollama's embeddings endpoint takes one
// prompt per call, so the batch loops; the first failure aborts the batch.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %d of %d: %w", i, len(texts), err)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// GeminiEmbedder embeds through the Gemini API.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

// NewGeminiEmbedder creates a Gemini-backed embedder.
func NewGeminiEmbedder(client *genai.Client, model string) *GeminiEmbedder {
	return &GeminiEmbedder{client: client, model: model}
}

func (e *GeminiEmbedder) Model() string { return e.model }

// Embed implements Embedder.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch implements Embedder. Gemini accepts multiple contents per
// request and returns one embedding per content, in order.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		parts := genai.Text(text)
		if len(parts) == 0 {
			return nil, fmt.Errorf("%w: cannot embed empty text", models.ErrEmbeddingFailed)
		}
		contents = append(contents, parts[0])
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: gemini embedding call: %v", models.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: gemini embedding call failed: %v", models.ErrEmbeddingFailed, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: gemini returned %d embeddings for %d texts",
			models.ErrEmbeddingFailed, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("%w: gemini returned an empty embedding at index %d", models.ErrEmbeddingFailed, i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}
