package responses

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lwmacct/260829-go-pkg-unillm/pkg/unillm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSSE(w http.ResponseWriter, event, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

// ═══════════════════════════════════════════════════════════════════════════
// New 函数测试
// ═══════════════════════════════════════════════════════════════════════════

func TestNew_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	client, err := New(&Config{})

	assert.Nil(t, client)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestNew_DefaultValues(t *testing.T) {
	client, err := New(&Config{APIKey: "test-key"})

	require.NoError(t, err)
	assert.Equal(t, unillm.ClientTypeResponses.DefaultModel(), client.Model())
	assert.Contains(t, client.config.BaseURL, "api.openai.com")
	assert.NoError(t, client.Close())
}

// ═══════════════════════════════════════════════════════════════════════════
// Stream / Complete 测试
// ═══════════════════════════════════════════════════════════════════════════

func TestClient_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 验证请求
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var reqBody map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, true, reqBody["stream"])
		assert.NotNil(t, reqBody["input"])

		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(w, "response.created",
			`{"type":"response.created","response":{"id":"resp_1"}}`)
		writeSSE(w, "response.output_text.delta",
			`{"type":"response.output_text.delta","delta":"Hello!"}`)
		writeSSE(w, "response.completed",
			`{"type":"response.completed","response":{"status":"completed","usage":{"input_tokens":7,"output_tokens":2}}}`)
	}))
	defer server.Close()

	client, err := New(&Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	msg, err := client.Complete(context.Background(),
		[]*unillm.UniMessage{unillm.NewUserMessage("Hi")}, nil)

	require.NoError(t, err)
	assert.Equal(t, "Hello!", msg.Text())
	assert.Equal(t, unillm.FinishReasonStop, msg.FinishReason)
	require.NotNil(t, msg.Usage)
	assert.Equal(t, int64(7), msg.Usage.PromptTokens)
	assert.Equal(t, int64(2), msg.Usage.ResponseTokens)
}

func TestClient_Complete_ToolCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(w, "response.function_call_arguments.delta",
			`{"type":"response.function_call_arguments.delta","call_id":"call_9","delta":"{\"city\":\"Berlin\"}"}`)
		writeSSE(w, "response.function_call_arguments.done",
			`{"type":"response.function_call_arguments.done","call_id":"call_9","name":"get_weather"}`)
		writeSSE(w, "response.completed",
			`{"type":"response.completed","response":{"status":"completed"}}`)
	}))
	defer server.Close()

	client, err := New(&Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	msg, err := client.Complete(context.Background(),
		[]*unillm.UniMessage{unillm.NewUserMessage("weather in Berlin?")}, nil)

	require.NoError(t, err)
	calls := msg.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_9", calls[0].ToolCallID)
	assert.Equal(t, "get_weather", calls[0].Name)
	assert.Equal(t, map[string]any{"city": "Berlin"}, calls[0].Arguments)
}

func TestClient_Complete_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid request"}}`))
	}))
	defer server.Close()

	client, err := New(&Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	msg, err := client.Complete(context.Background(),
		[]*unillm.UniMessage{unillm.NewUserMessage("hi")}, nil)

	assert.Nil(t, msg)
	require.Error(t, err)

	var apiErr *unillm.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.False(t, apiErr.IsRetryable())
}
