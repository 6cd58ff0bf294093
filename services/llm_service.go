package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Kondrashov16/arkiv/models"
)

// LLMGateway sends an assembled message payload to the hosted model and
// returns its answer. Exactly one attempt per call; retry policy, if any,
// belongs to the caller.
type LLMGateway interface {
	Complete(ctx context.Context, messages []models.ChatMessage) (string, error)
}

// OpenRouterGateway talks to OpenRouter's OpenAI-compatible chat completions
// endpoint.
type OpenRouterGateway struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewOpenRouterGateway creates the gateway. baseURL is the API root without
// a trailing slash, e.g. https://openrouter.ai/api/v1.
func NewOpenRouterGateway(client *http.Client, baseURL, apiKey, model string) *OpenRouterGateway {
	return &OpenRouterGateway{
		httpClient: client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
	}
}

// Complete implements LLMGateway. Upstream failures keep the upstream's own
// error text; transport and deadline failures are classified separately so
// the controller can map them to distinct statuses.
func (g *OpenRouterGateway) Complete(ctx context.Context, messages []models.ChatMessage) (string, error) {
	payload := models.OpenRouterRequest{
		Model:    g.model,
		Messages: make([]models.OpenRouterMessage, 0, len(messages)),
	}
	for _, m := range messages {
		payload.Messages = append(payload.Messages, models.OpenRouterMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal LLM request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create LLM http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: LLM call to %s: %v", models.ErrTimeout, g.model, err)
		}
		return "", fmt.Errorf("%w: failed to reach LLM endpoint: %v", models.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d: %s", models.ErrUpstream, resp.StatusCode, string(bodyBytes))
	}

	var parsed models.OpenRouterResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: malformed response body: %v", models.ErrUpstream, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%w: %s", models.ErrUpstream, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: response contains no choices", models.ErrUpstream)
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
