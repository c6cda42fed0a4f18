package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	fgerrors "github.com/randalmurphal/taskmentor/pkg/flowgraph/errors"
	"github.com/randalmurphal/taskmentor/pkg/flowgraph/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openAIServer serves /chat/completions with the given status and body and
// records the decoded request.
func openAIServer(t *testing.T, status int, body string, got *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if got != nil {
			raw, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(raw, got))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAI_Complete(t *testing.T) {
	var got map[string]any
	srv := openAIServer(t, http.StatusOK, `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1,
		"model": "gpt-4o-mini",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "Five tasks assigned."}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
	}`, &got)

	client := llm.NewOpenAI(
		llm.WithOpenAIAPIKey("test-key"),
		llm.WithBaseURL(srv.URL+"/"),
		llm.WithOpenAIModel("gpt-4o-mini"),
	)

	resp, err := client.Complete(context.Background(), llm.CompletionRequest{
		SystemPrompt: "You are a mentor.",
		Messages:     []llm.Message{llm.UserMessage("Plan my week")},
	})
	require.NoError(t, err)

	assert.Equal(t, "Five tasks assigned.", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 16, resp.Usage.TotalTokens)
	assert.Equal(t, "openai", client.Provider())

	assert.Equal(t, "gpt-4o-mini", got["model"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestOpenAI_StatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, retryable: true},
		{name: "server error", status: http.StatusInternalServerError, retryable: true},
		{name: "unauthorized", status: http.StatusUnauthorized, retryable: false},
		{name: "bad request", status: http.StatusBadRequest, retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := openAIServer(t, tt.status, `{"error": {"message": "nope", "type": "x"}}`, nil)
			client := llm.NewOpenAI(llm.WithOpenAIAPIKey("test-key"), llm.WithBaseURL(srv.URL+"/"))

			_, err := client.Complete(context.Background(), llm.CompletionRequest{
				Messages: []llm.Message{llm.UserMessage("hi")},
			})
			require.Error(t, err)

			var llmErr *llm.Error
			require.True(t, errors.As(err, &llmErr))
			assert.Equal(t, tt.retryable, llmErr.Retryable)

			var httpErr *fgerrors.HTTPError
			require.True(t, errors.As(err, &httpErr))
			assert.Equal(t, tt.status, httpErr.StatusCode)
			assert.Equal(t, tt.retryable, fgerrors.IsRetryable(err))
		})
	}
}

func TestOpenAI_EmptyChoices(t *testing.T) {
	srv := openAIServer(t, http.StatusOK, `{"id": "x", "object": "chat.completion", "created": 1, "model": "m", "choices": []}`, nil)
	client := llm.NewOpenAI(llm.WithOpenAIAPIKey("test-key"), llm.WithBaseURL(srv.URL+"/"))

	_, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{llm.UserMessage("hi")},
	})
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
	assert.False(t, fgerrors.IsRetryable(err))
}

func TestOpenAI_BaseURLWithPathPrefix(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id": "x", "object": "chat.completion", "created": 1, "model": "gemini-2.0-flash",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "ok"}, "finish_reason": "stop"}]}`)
	}))
	t.Cleanup(srv.Close)

	client := llm.NewOpenAI(
		llm.WithOpenAIAPIKey("test-key"),
		llm.WithBaseURL(srv.URL+"/v1beta/openai/"),
		llm.WithProviderName("gemini"),
		llm.WithOpenAIModel("gemini-2.0-flash"),
	)

	resp, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{llm.UserMessage("hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, "/v1beta/openai/chat/completions", path)
	assert.Equal(t, "gemini", client.Provider())
}
