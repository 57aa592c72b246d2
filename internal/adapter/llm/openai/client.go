// Package openai implements the completion endpoint client. The base URL is
// configurable so any OpenAI-compatible host works, including Gemini's
// compatibility endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	llmhttp "github.com/reviewpipe/reviewpipe/internal/adapter/llm/http"
)

const (
	providerName   = "openai"
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 30 * time.Second
)

// HTTPClient is an HTTP client for an OpenAI-compatible chat completion API.
type HTTPClient struct {
	apiKey       string
	model        string
	baseURL      string
	organization string
	client       *http.Client

	logger llmhttp.Logger
}

// Options configures optional client settings.
type Options struct {
	BaseURL      string
	Organization string
	Timeout      time.Duration
}

// NewHTTPClient creates a completion client for the given key and model.
func NewHTTPClient(apiKey, model string, opts Options) *HTTPClient {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &HTTPClient{
		apiKey:       apiKey,
		model:        model,
		baseURL:      baseURL,
		organization: opts.Organization,
		client:       &http.Client{Timeout: timeout},
	}
}

// SetBaseURL sets a custom base URL (for testing).
func (c *HTTPClient) SetBaseURL(url string) {
	c.baseURL = url
}

// SetLogger sets the logger for this client.
func (c *HTTPClient) SetLogger(logger llmhttp.Logger) {
	c.logger = logger
}

// APIResponse represents the parsed response from the API.
type APIResponse struct {
	Text         string
	TokensIn     int
	TokensOut    int
	Model        string
	FinishReason string
}

// CreateCompletion sends one chat completion request. The overrides map is
// merged into the request body last, so completion parameter files can
// replace any field including the model.
func (c *HTTPClient) CreateCompletion(ctx context.Context, messages []Message, overrides map[string]any) (*APIResponse, error) {
	startTime := time.Now()

	promptChars := 0
	for _, msg := range messages {
		promptChars += len(msg.Content)
	}
	if c.logger != nil {
		c.logger.LogRequest(ctx, llmhttp.RequestLog{
			Provider:    providerName,
			Model:       c.model,
			Timestamp:   startTime,
			PromptChars: promptChars,
			APIKey:      c.apiKey,
		})
	}

	reqBody := map[string]any{
		"model":           c.model,
		"messages":        messages,
		"response_format": map[string]string{"type": "json_object"},
	}
	for key, value := range overrides {
		reqBody[key] = value
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.organization != "" {
		req.Header.Set("OpenAI-Organization", c.organization)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		callErr := mapTransportError(err)
		c.logError(ctx, callErr, startTime)
		return nil, callErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read completion response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := c.handleErrorResponse(resp.StatusCode, body)
		c.logError(ctx, apiErr, startTime)
		return nil, apiErr
	}

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("parse completion response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, &llmhttp.Error{
			Type:     llmhttp.ErrTypeUnknown,
			Message:  "no choices in response",
			Provider: providerName,
		}
	}

	result := &APIResponse{
		Text:         chatResp.Choices[0].Message.Content,
		TokensIn:     chatResp.Usage.PromptTokens,
		TokensOut:    chatResp.Usage.CompletionTokens,
		Model:        chatResp.Model,
		FinishReason: chatResp.Choices[0].FinishReason,
	}

	if c.logger != nil {
		c.logger.LogResponse(ctx, llmhttp.ResponseLog{
			Provider:     providerName,
			Model:        c.model,
			Timestamp:    time.Now(),
			Duration:     time.Since(startTime),
			TokensIn:     result.TokensIn,
			TokensOut:    result.TokensOut,
			StatusCode:   resp.StatusCode,
			FinishReason: result.FinishReason,
		})
	}

	return result, nil
}

// handleErrorResponse converts HTTP error responses to typed errors,
// preferring the provider's error message when the body parses.
func (c *HTTPClient) handleErrorResponse(statusCode int, body []byte) *llmhttp.Error {
	apiErr := llmhttp.NewStatusError(providerName, statusCode, body)

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		apiErr.Message = errResp.Error.Message
	}
	return apiErr
}

// mapTransportError distinguishes timeouts from other transport failures.
func mapTransportError(err error) *llmhttp.Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return llmhttp.NewTimeoutError(providerName, err.Error())
	}
	return &llmhttp.Error{
		Type:     llmhttp.ErrTypeUnknown,
		Message:  err.Error(),
		Provider: providerName,
	}
}

func (c *HTTPClient) logError(ctx context.Context, apiErr *llmhttp.Error, startTime time.Time) {
	if c.logger == nil {
		return
	}
	c.logger.LogError(ctx, llmhttp.ErrorLog{
		Provider:   providerName,
		Model:      c.model,
		Timestamp:  time.Now(),
		Duration:   time.Since(startTime),
		Error:      apiErr,
		ErrorType:  apiErr.Type,
		StatusCode: apiErr.StatusCode,
	})
}
