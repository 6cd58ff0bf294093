package models

import "errors"

// Error taxonomy shared by the pipeline components. Components wrap these
// sentinels with fmt.Errorf("...: %w", ...) so callers can classify with
// errors.Is while keeping the human-readable cause.
var (
	// ErrUnsupportedFormat means the uploaded file's extension is not one of
	// the supported document types (.pdf, .docx, .md, .txt).
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrExtractionFailed means the file matched a supported type but could
	// not be parsed (corrupt, encrypted, malformed).
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrInvalidChunkingConfig means overlap/size violate 0 <= overlap < size.
	ErrInvalidChunkingConfig = errors.New("invalid chunking configuration")

	// ErrEmbeddingFailed means the embedding backend rejected the request or
	// returned an unusable result.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrDimensionMismatch means an embedding's length differs from the
	// dimension established by the vector store's first insertion.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrUpstream means the LLM endpoint answered with a non-success status.
	// The wrapped message carries the upstream's own error text.
	ErrUpstream = errors.New("upstream LLM error")

	// ErrNetwork means the LLM endpoint could not be reached at all.
	ErrNetwork = errors.New("network error")

	// ErrTimeout means a pipeline step exceeded its configured deadline.
	ErrTimeout = errors.New("operation timed out")
)
