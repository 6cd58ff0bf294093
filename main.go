package main

import (
	"context"
	"log"
	"net/http"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/gin-gonic/gin"
	"google.golang.org/genai"

	"github.com/Kondrashov16/arkiv/config"
	"github.com/Kondrashov16/arkiv/controller"
	"github.com/Kondrashov16/arkiv/services"
	"github.com/Kondrashov16/arkiv/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	services.SetUnidocLicense(cfg.UnidocLicenseKey)

	httpClient := &http.Client{
		Timeout: cfg.LLMTimeout,
	}

	chunker, err := services.NewChunker(cfg.ChunkStrategy, cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatalf("FATAL: Invalid chunking configuration: %v", err)
	}

	embedder, err := buildEmbedder(cfg, httpClient)
	if err != nil {
		log.Fatalf("FATAL: Failed to create embedder: %v", err)
	}
	log.Printf("Embedding provider: %s (model %s)", cfg.EmbeddingProvider, embedder.Model())

	vectorStore, closeStore, err := buildVectorStore(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to create vector store: %v", err)
	}
	defer closeStore()
	log.Printf("Vector store backend: %s", cfg.VectorStore)

	gateway := services.NewOpenRouterGateway(httpClient, cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
	assembler := services.NewContextAssembler(cfg.ContextMaxChars)

	ragService := services.NewRAGService(
		chunker, embedder, gateway, assembler, vectorStore,
		cfg.MaxContextChunks, cfg.PreviewMaxChars, cfg.LLMTimeout,
	)
	ragController := controller.NewRAGController(ragService)

	if cfg.WatchDir != "" {
		indexer := services.NewFileIndexingService(ragService)
		go func() {
			ctx := context.Background()
			indexer.ScanAndIndexDirectory(ctx, cfg.WatchDir)
			indexer.WatchDirectory(ctx, cfg.WatchDir)
		}()
	}

	router := gin.Default()

	// CORS for the desktop client.
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "arkiv API",
			"version": "1.0.0",
		})
	})

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/upload", ragController.UploadFile)
		apiV1.POST("/query", ragController.QueryRAG)
		apiV1.POST("/reset", ragController.ResetStore)
		apiV1.GET("/documents", ragController.ListDocuments)
	}

	log.Printf("arkiv backend server starting on http://localhost:%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("FATAL: Failed to start server: %v", err)
	}
}

func buildEmbedder(cfg *config.Config, httpClient *http.Client) (services.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "gemini":
		geminiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, err
		}
		return services.NewGeminiEmbedder(geminiClient, cfg.EmbeddingModel), nil
	default:
		return services.NewOllamaEmbedder(httpClient, cfg.OllamaBaseURL, cfg.EmbeddingModel), nil
	}
}

func buildVectorStore(cfg *config.Config) (store.VectorStore, func(), error) {
	if cfg.VectorStore != "chroma" {
		return store.NewMemoryStore(), func() {}, nil
	}

	chromaClient, err := chromago.NewHTTPClient()
	if err != nil {
		return nil, nil, err
	}
	closeClient := func() {
		if err := chromaClient.Close(); err != nil {
			log.Printf("Warning: Failed to close chroma client: %v", err)
		}
	}
	chromaStore, err := store.NewChromaStore(context.Background(), chromaClient, cfg.ChromaCollection)
	if err != nil {
		closeClient()
		return nil, nil, err
	}
	return chromaStore, closeClient, nil
}
