package models

// UploadResponse reports the outcome of a file ingestion.
type UploadResponse struct {
	Filename            string `json:"filename"`
	Message             string `json:"message"`
	ChunksAdded         int    `json:"chunks_added"`
	TotalVectorsInStore int    `json:"total_vectors_in_store"`
}

// QueryResponse carries the model's answer plus the chunks it was grounded
// on, ordered by ascending distance.
type QueryResponse struct {
	LLMResponse string   `json:"llm_response"`
	Sources     []Source `json:"sources"`
}

// ResetResponse reports the outcome of clearing the vector store.
type ResetResponse struct {
	Message             string `json:"message"`
	TotalVectorsInStore int    `json:"total_vectors_in_store"`
}

// DocumentsResponse lists the documents currently held in the store.
type DocumentsResponse struct {
	Count     int        `json:"count"`
	Documents []Document `json:"documents"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
