package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmhttp "github.com/reviewpipe/reviewpipe/internal/adapter/llm/http"
	"github.com/reviewpipe/reviewpipe/internal/adapter/llm/openai"
)

const successBody = `{
	"model": "gpt-4o-mini",
	"choices": [{"message": {"role": "assistant", "content": "[{\"file\":\"a.py\",\"line\":1,\"message\":\"nit\"}]"}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150}
}`

func TestCreateCompletionSuccess(t *testing.T) {
	var gotPath, gotAuth, gotOrg string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotOrg = r.Header.Get("OpenAI-Organization")

		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(successBody))
	}))
	defer server.Close()

	client := openai.NewHTTPClient("sk-test", "gpt-4o-mini", openai.Options{
		BaseURL:      server.URL,
		Organization: "org-42",
	})

	messages := []openai.Message{
		{Role: "system", Content: "review the diff"},
		{Role: "user", Content: "diff --git a/a.py b/a.py"},
	}
	resp, err := client.CreateCompletion(context.Background(), messages, nil)
	require.NoError(t, err)

	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "org-42", gotOrg)

	assert.Equal(t, "gpt-4o-mini", gotBody["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, gotBody["response_format"])
	sent, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, sent, 2)

	assert.Contains(t, resp.Text, "a.py")
	assert.Equal(t, 120, resp.TokensIn)
	assert.Equal(t, 30, resp.TokensOut)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestCreateCompletionOverridesMergedLast(t *testing.T) {
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &gotBody))
		w.Write([]byte(successBody))
	}))
	defer server.Close()

	client := openai.NewHTTPClient("sk-test", "gpt-4o-mini", openai.Options{BaseURL: server.URL})

	overrides := map[string]any{
		"temperature": 0.2,
		"model":       "gpt-4-turbo",
	}
	_, err := client.CreateCompletion(context.Background(), []openai.Message{{Role: "user", Content: "hi"}}, overrides)
	require.NoError(t, err)

	// Overrides win over client defaults, including the model itself.
	assert.Equal(t, "gpt-4-turbo", gotBody["model"])
	assert.Equal(t, 0.2, gotBody["temperature"])
	assert.Equal(t, map[string]any{"type": "json_object"}, gotBody["response_format"])
}

func TestCreateCompletionAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	client := openai.NewHTTPClient("sk-bad", "gpt-4o-mini", openai.Options{BaseURL: server.URL})

	_, err := client.CreateCompletion(context.Background(), []openai.Message{{Role: "user", Content: "hi"}}, nil)
	require.Error(t, err)

	var apiErr *llmhttp.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, llmhttp.ErrTypeAuthentication, apiErr.Type)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	// The provider's error message is surfaced, not the raw body.
	assert.Contains(t, apiErr.Message, "Incorrect API key")
}

func TestCreateCompletionRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`rate limited`))
	}))
	defer server.Close()

	client := openai.NewHTTPClient("sk-test", "gpt-4o-mini", openai.Options{BaseURL: server.URL})

	_, err := client.CreateCompletion(context.Background(), []openai.Message{{Role: "user", Content: "hi"}}, nil)

	var apiErr *llmhttp.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, llmhttp.ErrTypeRateLimit, apiErr.Type)
}

func TestCreateCompletionTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(successBody))
	}))
	defer server.Close()

	client := openai.NewHTTPClient("sk-test", "gpt-4o-mini", openai.Options{
		BaseURL: server.URL,
		Timeout: 20 * time.Millisecond,
	})

	_, err := client.CreateCompletion(context.Background(), []openai.Message{{Role: "user", Content: "hi"}}, nil)
	require.Error(t, err)

	var apiErr *llmhttp.Error
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsTimeout())
}

func TestCreateCompletionNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"model": "gpt-4o-mini", "choices": [], "usage": {}}`))
	}))
	defer server.Close()

	client := openai.NewHTTPClient("sk-test", "gpt-4o-mini", openai.Options{BaseURL: server.URL})

	_, err := client.CreateCompletion(context.Background(), []openai.Message{{Role: "user", Content: "hi"}}, nil)
	require.Error(t, err)

	var apiErr *llmhttp.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Message, "no choices")
}
