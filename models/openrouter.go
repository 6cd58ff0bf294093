package models

// OpenRouterMessage is one message in an OpenAI-compatible chat payload.
type OpenRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenRouterRequest is the body sent to the chat completions endpoint.
type OpenRouterRequest struct {
	Model    string              `json:"model"`
	Messages []OpenRouterMessage `json:"messages"`
}

// OpenRouterResponse parses the answer out of a chat completions response.
// The error object is populated when the upstream reports a failure inside
// a 200 body, which OpenRouter does for some provider errors.
type OpenRouterResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}
