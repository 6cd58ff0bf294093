package models

// QueryRequest is the body of POST /api/v1/query.
type QueryRequest struct {
	QueryText   string        `json:"query_text" binding:"required"`
	ChatHistory []ChatMessage `json:"chat_history" binding:"omitempty,dive"`
	// TopK overrides the configured default when set.
	TopK int `json:"top_k" binding:"omitempty,gte=1"`
}
