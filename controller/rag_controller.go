package controller

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kondrashov16/arkiv/models"
	"github.com/Kondrashov16/arkiv/services"
)

// RAGController handles the HTTP requests for the document QA API. It is a
// thin transport over the RAGService, which holds the actual pipelines.
type RAGController struct {
	ragService services.RAGService
}

// NewRAGController creates a controller with the service dependency
// injected from main.
func NewRAGController(service services.RAGService) *RAGController {
	return &RAGController{ragService: service}
}

// UploadFile is the handler for POST /api/v1/upload. It expects a multipart
// form with a "file" field and runs the ingestion pipeline on its contents.
func (c *RAGController) UploadFile(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "Missing multipart field 'file': " + err.Error()})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "Could not open uploaded file: " + err.Error()})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "Could not read uploaded file: " + err.Error()})
		return
	}

	response, err := c.ragService.IngestFile(ctx.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response)
}

// QueryRAG is the handler for POST /api/v1/query.
func (c *RAGController) QueryRAG(ctx *gin.Context) {
	var req models.QueryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: "Invalid request body: " + err.Error()})
		return
	}

	response, err := c.ragService.Query(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response)
}

// ResetStore is the handler for POST /api/v1/reset.
func (c *RAGController) ResetStore(ctx *gin.Context) {
	response, err := c.ragService.Reset(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response)
}

// ListDocuments is the handler for GET /api/v1/documents.
func (c *RAGController) ListDocuments(ctx *gin.Context) {
	response, err := c.ragService.ListDocuments(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response)
}

// respondError maps the pipeline's error taxonomy onto HTTP statuses. The
// error text is surfaced verbatim; the services already keep upstream
// messages intact.
func respondError(ctx *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrUnsupportedFormat), errors.Is(err, models.ErrInvalidChunkingConfig):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrExtractionFailed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrUpstream), errors.Is(err, models.ErrNetwork):
		status = http.StatusBadGateway
	case errors.Is(err, models.ErrTimeout):
		status = http.StatusGatewayTimeout
	}
	if status == http.StatusInternalServerError {
		log.Printf("CONTROLLER ERROR: %v", err)
	}
	ctx.JSON(status, models.ErrorResponse{Detail: err.Error()})
}
