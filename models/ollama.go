package models

// OllamaEmbedRequest structures a request to the Ollama embeddings API.
type OllamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// OllamaEmbedResponse parses the embedding out of an Ollama API response.
type OllamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}
