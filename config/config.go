package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every process-wide setting, resolved once at startup.
// There is no hot-reload.
type Config struct {
	Port string

	// LLM gateway
	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterBaseURL string
	LLMTimeout        time.Duration

	// Embedder
	EmbeddingProvider string // "ollama" or "gemini"
	EmbeddingModel    string
	OllamaBaseURL     string
	GeminiAPIKey      string

	// Vector store
	VectorStore      string // "memory" or "chroma"
	ChromaCollection string

	// Chunking
	ChunkSize     int
	ChunkOverlap  int
	ChunkStrategy string // "fixed" or "recursive"

	// Query defaults
	MaxContextChunks int
	PreviewMaxChars  int
	ContextMaxChars  int

	// Optional features
	WatchDir         string
	UnidocLicenseKey string
}

// Load reads .env if present, then resolves settings from the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:   getEnv("OPENROUTER_MODEL_NAME", "mistralai/mistral-7b-instruct"),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
		EmbeddingModel:    getEnv("EMBEDDING_MODEL_NAME", "nomic-embed-text"),
		OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		VectorStore:       getEnv("VECTOR_STORE", "memory"),
		ChromaCollection:  getEnv("CHROMA_COLLECTION", "arkiv-documents"),
		ChunkStrategy:     getEnv("CHUNK_STRATEGY", "fixed"),
		WatchDir:          os.Getenv("WATCH_DIR"),
		UnidocLicenseKey:  os.Getenv("UNIDOC_LICENSE_KEY"),
	}

	var err error
	if cfg.ChunkSize, err = getEnvInt("CHUNK_SIZE", 500); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap, err = getEnvInt("CHUNK_OVERLAP", 50); err != nil {
		return nil, err
	}
	if cfg.MaxContextChunks, err = getEnvInt("MAX_CONTEXT_CHUNKS", 5); err != nil {
		return nil, err
	}
	if cfg.PreviewMaxChars, err = getEnvInt("PREVIEW_MAX_CHARS", 240); err != nil {
		return nil, err
	}
	if cfg.ContextMaxChars, err = getEnvInt("CONTEXT_MAX_CHARS", 0); err != nil {
		return nil, err
	}
	timeoutSecs, err := getEnvInt("LLM_TIMEOUT_SECS", 60)
	if err != nil {
		return nil, err
	}
	cfg.LLMTimeout = time.Duration(timeoutSecs) * time.Second

	switch cfg.EmbeddingProvider {
	case "ollama", "gemini":
	default:
		return nil, fmt.Errorf("EMBEDDING_PROVIDER must be 'ollama' or 'gemini', got %q", cfg.EmbeddingProvider)
	}
	switch cfg.VectorStore {
	case "memory", "chroma":
	default:
		return nil, fmt.Errorf("VECTOR_STORE must be 'memory' or 'chroma', got %q", cfg.VectorStore)
	}
	switch cfg.ChunkStrategy {
	case "fixed", "recursive":
	default:
		return nil, fmt.Errorf("CHUNK_STRATEGY must be 'fixed' or 'recursive', got %q", cfg.ChunkStrategy)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}
