package genai

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school-query-workers/internal/common/config"
	apperrors "school-query-workers/internal/common/errors"
)

func TestGatewayClient_AccumulatesEventStream(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/generate", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: message\n")
		fmt.Fprint(w, "data: {\"delta\":\"SELECT COUNT(*) \"}\n\n")
		fmt.Fprint(w, ": keep-alive\n")
		fmt.Fprint(w, "data: {\"delta\":\"FROM students\"}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, "data: {\"delta\":\" ignored\"}\n\n")
	}))
	defer server.Close()

	client := NewGatewayClient(config.GenAIConfig{BaseURL: server.URL + "/", APIKey: "key", MaxTokens: 256})
	text, err := client.Complete(context.Background(), "prompt")

	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM students", text)
	assert.Equal(t, "prompt", got["prompt"])
	assert.Equal(t, true, got["stream"])
	assert.Equal(t, float64(256), got["max_tokens"])
}

func TestGatewayClient_SingleJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"text": "There are 42 students.", "confidence": 0.9})
	}))
	defer server.Close()

	text, err := NewGatewayClient(config.GenAIConfig{BaseURL: server.URL}).Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "There are 42 students.", text)
}

func TestGatewayClient_ServerErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewGatewayClient(config.GenAIConfig{BaseURL: server.URL}).Complete(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGatewayClient_DeadlineIsTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewGatewayClient(config.GenAIConfig{BaseURL: server.URL}).Complete(ctx, "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestOpenAIClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body.Model)
		if assert.Len(t, body.Messages, 1) {
			assert.Equal(t, "question", body.Messages[0].Content)
		}

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"SELECT 1"}}]}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(config.GenAIConfig{BaseURL: server.URL, APIKey: "sk-test"})
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", text)
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(config.GenAIConfig{BaseURL: "http://localhost"})
	assert.Error(t, err)
}

func TestNew_SelectsProvider(t *testing.T) {
	c, err := New(config.GenAIConfig{Provider: "gateway", BaseURL: "http://x"})
	require.NoError(t, err)
	assert.IsType(t, &GatewayClient{}, c)

	c, err = New(config.GenAIConfig{Provider: "openai", BaseURL: "http://x", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	_, err = New(config.GenAIConfig{Provider: "bard"})
	assert.Error(t, err)
}

func TestCall_MapsErrors(t *testing.T) {
	tests := []struct {
		name     string
		fn       CompleterFunc
		wantCode apperrors.ErrorCode
	}{
		{
			name:     "timeout",
			fn:       func(ctx context.Context, p string) (string, error) { return "", fmt.Errorf("%w: slow", ErrTimeout) },
			wantCode: apperrors.ErrCodeGenAITimeout,
		},
		{
			name:     "unavailable",
			fn:       func(ctx context.Context, p string) (string, error) { return "", fmt.Errorf("%w: 502", ErrUnavailable) },
			wantCode: apperrors.ErrCodeGenAIUnavailable,
		},
		{
			name:     "empty completion",
			fn:       func(ctx context.Context, p string) (string, error) { return "   ", nil },
			wantCode: apperrors.ErrCodeGenAIUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Call(context.Background(), tt.fn, PurposeGenerate, "p")
			require.Error(t, err)
			var stdErr *apperrors.StandardError
			require.True(t, stderrors.As(err, &stdErr))
			assert.Equal(t, tt.wantCode, stdErr.Code)
		})
	}

	text, err := Call(context.Background(), CompleterFunc(func(ctx context.Context, p string) (string, error) {
		return "ok", nil
	}), PurposeSynthesize, "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}
